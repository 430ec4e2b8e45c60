package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/rkstgr/papermake-aws/internal/config"
	"github.com/rkstgr/papermake-aws/internal/httpapi/handlers"
	"github.com/rkstgr/papermake-aws/internal/httpkit"
	"github.com/rkstgr/papermake-aws/internal/pkg/logger"
	"github.com/rkstgr/papermake-aws/internal/pkg/middleware"
	"github.com/rkstgr/papermake-aws/internal/ports"
	"github.com/rkstgr/papermake-aws/internal/queue"
	"github.com/rkstgr/papermake-aws/internal/render"
)

type Deps struct {
	Pool     *pgxpool.Pool
	RDB      *redis.Client
	SP       ports.StorageProvider
	Log      *logger.Logger
	Pipeline *render.Pipeline
	Queue    *queue.RedisQueue
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Timeout(60 * time.Second))

	allowedOrigins := config.EnvCSV("CORS_ALLOWED_ORIGINS", []string{
		"http://localhost:8081",
		"http://localhost:5173",
	})
	r.Use(httpkit.CORS(httpkit.CORSOptions{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAgeSeconds:    600,
	}))

	h := handlers.New(handlers.Deps{
		Pool:     d.Pool,
		RDB:      d.RDB,
		SP:       d.SP,
		Log:      log,
		Pipeline: d.Pipeline,
		Queue:    d.Queue,
	})

	// ---- HEALTH ----
	r.Get("/health", h.Health)

	// ---- RENDER (sync) ----
	r.Post("/render", h.PostRender)

	// ---- TEMPLATES ----
	r.Post("/templates", h.PostTemplate)
	r.Get("/templates", h.ListTemplates)
	r.Get("/templates/{templateId}", h.GetTemplate)
	r.Get("/templates/{templateId}/source", h.GetTemplateSource)
	r.Delete("/templates/{templateId}", h.DeleteTemplate)

	// ---- JOBS (async) ----
	r.Post("/jobs", h.PostJobs)
	r.Get("/jobs", h.ListJobs)
	r.Get("/jobs/{jobId}", h.GetJob)
	r.Get("/jobs/{jobId}/output", h.GetJobOutput)

	return r
}
