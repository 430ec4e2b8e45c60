package handlers

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rkstgr/papermake-aws/internal/httpkit"
	"github.com/rkstgr/papermake-aws/internal/queue"
)

// PostJobs enqueues a batch for background rendering. Each job gets its id
// here so the caller can poll before the worker ever sees the message.
func (h *Handler) PostJobs(w http.ResponseWriter, r *http.Request) {
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

	createdAt := time.Now().UTC()
	jobIDs := make([]string, 0, len(jobs))
	for _, job := range jobs {
		_, err := h.pool.Exec(ctx,
			`INSERT INTO jobs (id, template_id, status, created_at)
			 VALUES ($1,$2,'QUEUED',$3)`,
			job.JobID, job.TemplateID, createdAt,
		)
		if err != nil {
			log.LogError(ctx, "job insert failed", err, "job_id", job.JobID)
			httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db insert failed", nil)
			return
		}
		jobIDs = append(jobIDs, job.JobID)
	}

	for _, job := range jobs {
		err := h.queue.Push(ctx, queue.Message{
			JobID:      job.JobID,
			TemplateID: job.TemplateID,
			Data:       job.Data,
		})
		if err != nil {
			log.LogError(ctx, "queue push failed", err, "job_id", job.JobID)
			httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "queue push failed", nil)
			return
		}
	}

	log.Info("jobs queued", "count", len(jobIDs))
	httpkit.WriteJSON(w, 202, map[string]any{
		"job_ids": jobIDs,
		"status":  "queued",
	})
}

func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := strings.TrimSpace(r.URL.Query().Get("status"))
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}

	var (
		rows pgxRows
		err  error
	)

	if status != "" {
		rows, err = h.pool.Query(ctx,
			`SELECT id, template_id, status, COALESCE(output_key,''), created_at
			 FROM jobs WHERE status=$1
			 ORDER BY created_at DESC
			 LIMIT $2`,
			status, limit,
		)
	} else {
		rows, err = h.pool.Query(ctx,
			`SELECT id, template_id, status, COALESCE(output_key,''), created_at
			 FROM jobs
			 ORDER BY created_at DESC
			 LIMIT $1`,
			limit,
		)
	}
	if err != nil {
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db query failed", nil)
		return
	}
	defer rows.Close()

	type item struct {
		ID         string    `json:"id"`
		TemplateID string    `json:"template_id"`
		Status     string    `json:"status"`
		OutputKey  string    `json:"output_key,omitempty"`
		CreatedAt  time.Time `json:"created_at"`
	}

	out := make([]item, 0, limit)
	for rows.Next() {
		var it item
		if err := rows.Scan(&it.ID, &it.TemplateID, &it.Status, &it.OutputKey, &it.CreatedAt); err != nil {
			httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "row scan failed", nil)
			return
		}
		out = append(out, it)
	}

	httpkit.WriteJSON(w, 200, map[string]any{"jobs": out})
}

func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "jobId")

	var (
		id, templateID, status, outputKey, errorText string
		outputSize                                   *int64
		createdAt                                    time.Time
		startedAt, finishedAt                        *time.Time
	)

	err := h.pool.QueryRow(ctx,
		`SELECT id, template_id, status, COALESCE(output_key,''), output_size, COALESCE(error_text,''),
		        created_at, started_at, finished_at
		 FROM jobs WHERE id=$1`,
		jobID,
	).Scan(&id, &templateID, &status, &outputKey, &outputSize, &errorText, &createdAt, &startedAt, &finishedAt)
	if err != nil {
		httpkit.WriteErr(w, 404, "JOB_NOT_FOUND", "job not found", map[string]any{"job_id": jobID})
		return
	}

	job := map[string]any{
		"id":          id,
		"template_id": templateID,
		"status":      status,
		"created_at":  createdAt,
		"started_at":  startedAt,
		"finished_at": finishedAt,
	}
	if outputKey != "" {
		job["output_key"] = outputKey
	}
	if outputSize != nil {
		job["output_size"] = *outputSize
	}
	if errorText != "" {
		job["error"] = errorText
	}

	httpkit.WriteJSON(w, 200, map[string]any{"job": job})
}

// GetJobOutput streams the rendered artifact for a finished job.
func (h *Handler) GetJobOutput(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "jobId")

	var status, outputKey string
	var outputSize *int64

	err := h.pool.QueryRow(ctx,
		`SELECT status, COALESCE(output_key,''), output_size FROM jobs WHERE id=$1`,
		jobID,
	).Scan(&status, &outputKey, &outputSize)
	if err != nil {
		httpkit.WriteErr(w, 404, "JOB_NOT_FOUND", "job not found", map[string]any{"job_id": jobID})
		return
	}
	if outputKey == "" {
		httpkit.WriteErr(w, 409, "JOB_NOT_DONE", "job has no output yet", map[string]any{"job_id": jobID, "status": status})
		return
	}

	rc, ct, size, err := h.sp.GetObject(ctx, outputKey)
	if err != nil {
		httpkit.WriteErr(w, 404, "OUTPUT_FILE_MISSING", "job output missing", map[string]any{"object_key": outputKey})
		return
	}
	defer rc.Close()

	if ct == "" {
		ct = "application/octet-stream"
	}
	if size <= 0 && outputSize != nil {
		size = *outputSize
	}
	w.Header().Set("Content-Type", ct)
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	_, _ = io.Copy(w, rc)
}

type pgxRows interface {
	Close()
	Next() bool
	Scan(dest ...any) error
}
