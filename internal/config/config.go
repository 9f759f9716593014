package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	LogLevel            string
	DatabaseURL         string
	RedisURL            string
	FrontendURLEndsWith string
	DevPassword         string
	AllowCrossSiteDev   bool
	HealthAdminKey      string
	PageCacheTTL        time.Duration // how long public listing pages stay in Redis
	RevalidateURL       string        // front-end revalidate webhook; empty disables the HTTP invalidator
	RevalidateSecret    string
	RevalidateAsync     bool          // enqueue invalidations on asynq instead of running them inline
	RevalidateDebounce  time.Duration // asynq ProcessIn delay; invalidations of one path inside it coalesce
	WorkerConcurrency   int
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("PAGE_CACHE_TTL", "10m")
	viper.SetDefault("REVALIDATE_DEBOUNCE", "5s")
	viper.SetDefault("WORKER_CONCURRENCY", 5)

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = viper.GetString("NODE_ENV")
	}
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL_DEV")
	if env == "production" {
		dbURL = viper.GetString("DATABASE_URL_PROD")
	} else if env == "test" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}

	return &Config{
		Env:                 env,
		Port:                viper.GetString("PORT"),
		LogLevel:            viper.GetString("LOG_LEVEL"),
		DatabaseURL:         dbURL,
		RedisURL:            viper.GetString("REDIS_URL"),
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         viper.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:   strings.EqualFold(viper.GetString("ALLOW_CROSS_SITE_DEV"), "true"),
		HealthAdminKey:      viper.GetString("HEALTH_ADMIN_KEY"),
		PageCacheTTL:        viper.GetDuration("PAGE_CACHE_TTL"),
		RevalidateURL:       strings.TrimSpace(viper.GetString("REVALIDATE_URL")),
		RevalidateSecret:    viper.GetString("REVALIDATE_SECRET"),
		RevalidateAsync:     viper.GetBool("REVALIDATE_ASYNC"),
		RevalidateDebounce:  viper.GetDuration("REVALIDATE_DEBOUNCE"),
		WorkerConcurrency:   viper.GetInt("WORKER_CONCURRENCY"),
	}, nil
}

// IsProduction reports whether the app runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
