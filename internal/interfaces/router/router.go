package router

import (
	"net/http"
	"time"

	lesvc "realty-backend/internal/application/listingevents"
	listsvc "realty-backend/internal/application/listings"
	pubsvc "realty-backend/internal/application/publication"
	"realty-backend/internal/config"
	"realty-backend/internal/infrastructure/database"
	"realty-backend/internal/infrastructure/pagecache"
	"realty-backend/internal/infrastructure/queue"
	"realty-backend/internal/infrastructure/revalidate"
	healthhandler "realty-backend/internal/interfaces/handlers/health"
	lehandler "realty-backend/internal/interfaces/handlers/listingevents"
	listhandler "realty-backend/internal/interfaces/handlers/listings"
	pubhandler "realty-backend/internal/interfaces/handlers/publication"
	"realty-backend/internal/middleware"
	"realty-backend/internal/pkg/constants"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	rdb, err := middleware.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return nil, nil, nil, err
	}

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, nil, err
		}
	}

	inv, err := NewInvalidator(cfg, rdb)
	if err != nil {
		return nil, nil, nil, err
	}
	app := NewApp(cfg, db, rdb, inv)
	return app, db, rdb, nil
}

// NewInvalidator picks how status changes reach cached public pages: inline
// against the page cache and the optional front-end webhook, or through the
// revalidation queue when REVALIDATE_ASYNC is set.
func NewInvalidator(cfg *config.Config, rdb *redis.Client) (revalidate.Invalidator, error) {
	if cfg.RevalidateAsync {
		client, err := queue.NewClient(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		inspector, err := queue.NewInspector(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		log.Info().Dur("debounce", cfg.RevalidateDebounce).Msg("revalidation queued on asynq")
		return &queue.Enqueuer{Client: client, Inspector: inspector, Debounce: cfg.RevalidateDebounce}, nil
	}
	return SyncInvalidator(cfg, &pagecache.Cache{Rdb: rdb, TTL: cfg.PageCacheTTL}), nil
}

// SyncInvalidator invalidates the page cache first, then the front-end.
func SyncInvalidator(cfg *config.Config, cache *pagecache.Cache) revalidate.Multi {
	inv := revalidate.Multi{cache}
	if cfg.RevalidateURL != "" {
		inv = append(inv, &revalidate.HTTPInvalidator{
			URL:    cfg.RevalidateURL,
			Secret: cfg.RevalidateSecret,
			Client: &http.Client{Timeout: 10 * time.Second},
		})
	}
	return inv
}

// NewApp wires middleware and routes. db may be nil, in which case only the
// health endpoints are served.
func NewApp(cfg *config.Config, db *gorm.DB, rdb *redis.Client, inv revalidate.Invalidator) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))
	app.Use(middleware.Tracing())
	app.Use(middleware.Session(rdb, middleware.SessionConfig{
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.IsProduction(),
	}))
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.RouteLogger())

	hh := &healthhandler.Handlers{
		Rdb:            rdb,
		HealthAdminKey: cfg.HealthAdminKey,
	}
	if db != nil {
		hh.DB = &database.Pinger{DB: db}
	}
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	if db == nil {
		log.Warn().Msg("no database configured; listing routes disabled")
		return app
	}

	cache := &pagecache.Cache{Rdb: rdb, TTL: cfg.PageCacheTTL}

	// Listings (admin)
	ls := &listsvc.Service{DB: db, Cache: cache}
	lh := &listhandler.Handlers{Service: ls}
	ph := &pubhandler.Handlers{
		Service:     &pubsvc.Service{Store: &pubsvc.GormStore{DB: db}},
		Invalidator: inv,
	}
	lg := app.Group("/api/v1/listings", middleware.RequireAuth())
	lg.Get("/", middleware.AuthorizePermission(constants.ViewListings), lh.GetListings)
	lg.Get("/:id", middleware.AuthorizePermission(constants.ViewListings), lh.GetListingByID)
	// batch before /:id so the literal segment wins
	lg.Patch("/publishing-status", middleware.AuthorizePermission(constants.PublishListing), ph.BatchUpdatePublishingStatus)
	lg.Patch("/:id", middleware.AuthorizePermission(constants.PublishListing), ph.UpdatePublishingStatus)

	// Listings (public)
	app.Get("/api/v1/public/listings/:id", lh.GetPublicListing)

	// ListingEvents
	leh := &lehandler.Handlers{Service: &lesvc.Service{DB: db}}
	leg := app.Group("/api/v1/listing-events", middleware.RequireAuth(), middleware.AuthorizePermission(constants.ViewListings))
	leg.Get("/:listing_id", leh.GetListingEvents)

	return app
}
