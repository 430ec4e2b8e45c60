package handlers

import (
	"net/http"
	"strings"

	"github.com/rkstgr/papermake-aws/internal/config"
	"github.com/rkstgr/papermake-aws/internal/httpkit"
	"github.com/rkstgr/papermake-aws/internal/render"
)

const maxBatchSize = 100

type RenderJobRequest struct {
	TemplateID string         `json:"template_id"`
	Data       map[string]any `json:"data"`
}

type RenderBatchRequest struct {
	Jobs []RenderJobRequest `json:"jobs"`
}

// PostRender renders a batch synchronously and returns the per-job
// results in the response. Failed jobs do not abort the batch.
func (h *Handler) PostRender(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.log.FromContext(ctx)

	var req RenderBatchRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "invalid json body", nil)
		return
	}

	jobs, errResp := buildJobs(req.Jobs)
	if errResp != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", errResp.msg, errResp.details)
		return
	}

	resp := h.pipeline.Process(ctx, jobs)
	log.Info("render batch processed",
		"total", resp.Summary.Total,
		"success", resp.Summary.Success,
		"failed", resp.Summary.Failed,
	)

	httpkit.WriteJSON(w, 200, resp)
}

type validationError struct {
	msg     string
	details map[string]any
}

// buildJobs validates the request and assigns a fresh job id to every entry.
func buildJobs(reqs []RenderJobRequest) ([]render.Job, *validationError) {
	if len(reqs) == 0 {
		return nil, &validationError{msg: "jobs is required and must not be empty", details: map[string]any{"field": "jobs"}}
	}
	if len(reqs) > maxBatchSize {
		return nil, &validationError{msg: "too many jobs in one batch", details: map[string]any{"field": "jobs", "max": maxBatchSize}}
	}

	jobs := make([]render.Job, 0, len(reqs))
	for i, jr := range reqs {
		templateID := strings.TrimSpace(jr.TemplateID)
		if templateID == "" {
			return nil, &validationError{
				msg:     "template_id is required",
				details: map[string]any{"field": "jobs.template_id", "index": i},
			}
		}
		data := jr.Data
		if data == nil {
			data = map[string]any{}
		}
		jobs = append(jobs, render.Job{
			JobID:      config.NewJobID(),
			TemplateID: templateID,
			Data:       data,
		})
	}
	return jobs, nil
}
