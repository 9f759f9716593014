package main

import (
	"realty-backend/internal/config"
	"realty-backend/internal/infrastructure/pagecache"
	"realty-backend/internal/infrastructure/queue"
	"realty-backend/internal/interfaces/router"
	"realty-backend/internal/logging"
	"realty-backend/internal/middleware"

	"github.com/rs/zerolog/log"
)

// The worker drains the revalidation queue filled by the API when
// REVALIDATE_ASYNC is set. asynq.Server.Run blocks until SIGINT/SIGTERM.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load")
	}
	logging.Setup(cfg.Env, cfg.LogLevel)

	rdb, err := middleware.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("redis client")
	}
	defer rdb.Close()

	srv, err := queue.NewServer(cfg.RedisURL, cfg.WorkerConcurrency)
	if err != nil {
		log.Fatal().Err(err).Msg("asynq server")
	}
	proc := &queue.Processor{
		Invalidator: router.SyncInvalidator(cfg, &pagecache.Cache{Rdb: rdb, TTL: cfg.PageCacheTTL}),
	}

	log.Info().Int("concurrency", cfg.WorkerConcurrency).Str("queue", queue.QueueRevalidate).Msg("revalidation worker starting")
	if err := srv.Run(queue.NewServeMux(proc)); err != nil {
		log.Fatal().Err(err).Msg("asynq server stopped")
	}
}
