package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/rkstgr/papermake-aws/internal/config"
	"github.com/rkstgr/papermake-aws/internal/pkg/logger"
	"github.com/rkstgr/papermake-aws/internal/render"
	"github.com/rkstgr/papermake-aws/internal/storage"
	"github.com/rkstgr/papermake-aws/internal/worker"
)

func main() {
	log := logger.New(logger.Config{
		Level:       config.Env("LOG_LEVEL", "info"),
		Format:      config.Env("LOG_FORMAT", "json"),
		ServiceName: "papermake-worker",
		AddSource:   config.BoolEnv("LOG_SOURCE", false),
	})

	dbURL := config.MustEnv("DATABASE_URL")
	redisAddr := config.MustEnv("REDIS_ADDR")
	queueName := config.Env("JOB_QUEUE_NAME", "papermake:jobs")
	batchSize := config.IntEnv("WORKER_BATCH_SIZE", 10)
	renderMode := config.Env("RENDER_MODE", render.ModeCached)

	// SIGINT/SIGTERM cancels the context; Run drains the current batch
	// and returns.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.LogFatal("failed to connect to PostgreSQL", err)
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rdb.Close()

	sp, err := storage.NewProvider()
	if err != nil {
		log.LogFatal("failed to initialize storage provider", err)
	}

	log.Info("starting papermake worker",
		"queue", queueName,
		"batch_size", batchSize,
		"render_mode", renderMode,
		"storage", sp.Provider(),
	)

	deps := worker.Deps{
		Pool:       pool,
		RDB:        rdb,
		SP:         sp,
		Log:        log,
		QueueName:  queueName,
		BatchSize:  batchSize,
		RenderMode: renderMode,
	}

	if err := worker.Run(ctx, deps); err != nil && ctx.Err() == nil {
		log.LogFatal("worker stopped", err)
	}
	log.Info("worker shut down")
}
