package worker

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/rkstgr/papermake-aws/internal/pkg/logger"
	"github.com/rkstgr/papermake-aws/internal/queue"
	"github.com/rkstgr/papermake-aws/internal/render"
	"github.com/rkstgr/papermake-aws/internal/repositories"
)

const defaultBatchSize = 10

// Run consumes job messages from the queue and feeds them through the render
// pipeline in batches. It blocks until ctx is canceled. All render state
// (caches, engine) is built once here and shared across every batch the
// worker processes.
func Run(ctx context.Context, d Deps) error {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	log = log.WithComponent("worker")

	q := queue.NewRedisQueue(d.RDB, d.QueueName)

	engine := render.NewPongo2Engine()
	source := render.NewStorageSourceStore(d.SP, repositories.NewTemplateRepository(d.Pool))

	var renderer render.Renderer
	switch d.RenderMode {
	case render.ModeContext:
		renderer = render.NewContextRenderer(render.NewContextCache(engine, source, log))
	default:
		renderer = render.NewCachedRenderer(render.NewTemplateCache(engine, source, log))
	}

	pipeline := render.NewPipeline(renderer, render.NewStorageSink(d.SP, engine.ContentType()), engine.Extension(), log)
	recorder := NewRecorder(d.Pool)

	batchSize := d.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	log.Info("worker started", "queue", d.QueueName, "batch_size", batchSize, "render_mode", d.RenderMode)

	for {
		select {
		case <-ctx.Done():
			log.Info("worker context canceled, stopping")
			return ctx.Err()
		default:
		}

		// Use a separate context with timeout for queue operations so a
		// quiet queue still lets us notice cancellation.
		popCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		payload, err := q.Pop(popCtx, 0)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				log.Info("worker stopping due to context cancellation")
				return ctx.Err()
			}
			if stderrors.Is(err, context.DeadlineExceeded) {
				continue
			}
			log.Warn("queue pop error, retrying", "error", err.Error())
			time.Sleep(1 * time.Second)
			continue
		}
		if payload == "" {
			continue
		}

		payloads := append([]string{payload}, drain(ctx, q, batchSize-1, log)...)
		jobs := decodeBatch(payloads, log)
		if len(jobs) == 0 {
			continue
		}

		recorder.MarkRunning(ctx, jobs)

		start := time.Now()
		resp := pipeline.Process(ctx, jobs)

		for _, res := range resp.Results {
			if err := recorder.Record(ctx, res); err != nil {
				log.Error("failed to record job result",
					"job_id", res.JobID,
					"error", err.Error(),
				)
			}
		}

		log.Info("batch processed",
			"total", resp.Summary.Total,
			"success", resp.Summary.Success,
			"failed", resp.Summary.Failed,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// drain non-blockingly pulls up to max additional payloads so one pipeline
// run amortizes the caches over everything already waiting.
func drain(ctx context.Context, q *queue.RedisQueue, max int, log *logger.Logger) []string {
	var payloads []string
	for len(payloads) < max {
		payload, ok, err := q.TryPop(ctx)
		if err != nil {
			log.Warn("queue drain error", "error", err.Error())
			break
		}
		if !ok {
			break
		}
		payloads = append(payloads, payload)
	}
	return payloads
}
