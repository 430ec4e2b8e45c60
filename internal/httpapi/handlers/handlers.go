package handlers

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/rkstgr/papermake-aws/internal/pkg/logger"
	"github.com/rkstgr/papermake-aws/internal/ports"
	"github.com/rkstgr/papermake-aws/internal/queue"
	"github.com/rkstgr/papermake-aws/internal/render"
	"github.com/rkstgr/papermake-aws/internal/repositories"
)

type Deps struct {
	Pool     *pgxpool.Pool
	RDB      *redis.Client
	SP       ports.StorageProvider
	Log      *logger.Logger
	Pipeline *render.Pipeline
	Queue    *queue.RedisQueue
}

type Handler struct {
	pool      *pgxpool.Pool
	rdb       *redis.Client
	sp        ports.StorageProvider
	log       *logger.Logger
	pipeline  *render.Pipeline
	queue     *queue.RedisQueue
	templates *repositories.TemplateRepository
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	return &Handler{
		pool:      d.Pool,
		rdb:       d.RDB,
		sp:        d.SP,
		log:       log.WithComponent("httpapi"),
		pipeline:  d.Pipeline,
		queue:     d.Queue,
		templates: repositories.NewTemplateRepository(d.Pool),
	}
}
