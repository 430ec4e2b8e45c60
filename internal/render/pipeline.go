package render

import (
	"context"
	"sync"
	"time"

	"github.com/rkstgr/papermake-aws/internal/pkg/errors"
	"github.com/rkstgr/papermake-aws/internal/pkg/logger"
)

// Pipeline processes batches of render jobs in two phases: a sequential
// render phase followed by a parallel upload phase. Rendering stays
// sequential on purpose: it is CPU/memory bound, and in context mode the
// per-template contexts are already serialized internally, so sequential
// dispatch keeps result order deterministic without scheduling overhead.
type Pipeline struct {
	renderer Renderer
	sink     OutputSink
	ext      string
	log      *logger.Logger
}

func NewPipeline(renderer Renderer, sink OutputSink, ext string, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Pipeline{
		renderer: renderer,
		sink:     sink,
		ext:      ext,
		log:      log.WithComponent("pipeline"),
	}
}

type renderedJob struct {
	job       Job
	objectKey string
	output    []byte
}

// Process renders every job in input order, uploads the outputs in parallel,
// and returns one result per job plus summary counts. A job's failure at any
// stage is recorded in its own result and never aborts the batch; this
// method itself has no failure mode.
func (p *Pipeline) Process(ctx context.Context, jobs []Job) BatchResponse {
	start := time.Now()
	p.log.Info("processing batch", "batch_size", len(jobs))

	rendered, failures := p.renderPhase(ctx, jobs)
	outcomes := p.uploadPhase(ctx, rendered)

	resp := Combine(failures, outcomes)
	p.log.Info("batch complete",
		"total", resp.Summary.Total,
		"success", resp.Summary.Success,
		"failed", resp.Summary.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp
}

// renderPhase iterates jobs in input order. Failed jobs materialize an error
// result immediately; successful ones carry their bytes to the upload phase.
func (p *Pipeline) renderPhase(ctx context.Context, jobs []Job) ([]renderedJob, []JobResult) {
	rendered := make([]renderedJob, 0, len(jobs))
	var failures []JobResult

	for _, job := range jobs {
		log := p.log.WithJobID(job.JobID).WithTemplateID(job.TemplateID)

		out, err := p.renderOne(ctx, job)
		if err != nil {
			log.Warn("render failed", "error", err.Error())
			failures = append(failures, JobResult{
				JobID:      job.JobID,
				TemplateID: job.TemplateID,
				Status:     StatusError,
				Error:      err.Error(),
			})
			continue
		}

		rendered = append(rendered, renderedJob{
			job:       job,
			objectKey: OutputKey(job.JobID, p.ext),
			output:    out,
		})
	}

	return rendered, failures
}

// renderOne converts a panicking render into a per-job error so one bad job
// cannot take down the batch. The cache's own defers release any held
// context lock first.
func (p *Pipeline) renderOne(ctx context.Context, job Job) (out []byte, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Newf(errors.CodeRender, "render panic: %v", rec)
		}
	}()
	return p.renderer.RenderJob(ctx, job)
}

// uploadPhase starts one goroutine per rendered job and gathers every
// outcome before returning. Tasks share nothing mutable beyond the sink
// handle; results land at fixed indices so no synchronization is needed on
// the slice itself.
func (p *Pipeline) uploadPhase(ctx context.Context, rendered []renderedJob) []JobResult {
	if len(rendered) == 0 {
		return nil
	}

	results := make([]JobResult, len(rendered))
	var wg sync.WaitGroup
	for i, rj := range rendered {
		wg.Add(1)
		go func(i int, rj renderedJob) {
			defer wg.Done()
			results[i] = p.uploadOne(ctx, rj)
		}(i, rj)
	}
	wg.Wait()

	return results
}

// uploadOne uploads a single artifact. A crashed task is converted into an
// error result rather than propagated, so it can never abort sibling
// uploads or the batch.
func (p *Pipeline) uploadOne(ctx context.Context, rj renderedJob) (res JobResult) {
	defer func() {
		if rec := recover(); rec != nil {
			p.log.Error("upload task panicked", "job_id", rj.job.JobID, "panic", rec)
			res = JobResult{
				JobID:      rj.job.JobID,
				TemplateID: rj.job.TemplateID,
				Status:     StatusError,
				Error:      errors.TaskFailure("upload task panicked: %v", rec).Error(),
			}
		}
	}()

	storedKey, size, err := p.sink.UploadOutput(ctx, rj.objectKey, rj.output)
	if err != nil {
		p.log.Warn("upload failed", "job_id", rj.job.JobID, "error", err.Error())
		return JobResult{
			JobID:      rj.job.JobID,
			TemplateID: rj.job.TemplateID,
			Status:     StatusError,
			Error:      errors.Upload(err, "pipeline.upload", "output upload failed").Error(),
		}
	}
	if storedKey == "" {
		storedKey = rj.objectKey
	}

	return JobResult{
		JobID:      rj.job.JobID,
		TemplateID: rj.job.TemplateID,
		Status:     StatusSuccess,
		OutputKey:  storedKey,
		OutputSize: size,
	}
}
