package worker

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rkstgr/papermake-aws/internal/render"
)

// Recorder persists job lifecycle transitions. Jobs enqueued through the API
// already have a QUEUED row; jobs pushed to the queue by external producers
// get their row created on completion (upsert).
type Recorder struct {
	pool *pgxpool.Pool
}

func NewRecorder(pool *pgxpool.Pool) *Recorder {
	return &Recorder{pool: pool}
}

// MarkRunning flips the batch's jobs to RUNNING. Best effort: a missing row
// is not an error, the completion upsert will create it.
func (r *Recorder) MarkRunning(ctx context.Context, jobs []render.Job) {
	ids := make([]string, 0, len(jobs))
	for _, j := range jobs {
		ids = append(ids, j.JobID)
	}
	_, _ = r.pool.Exec(ctx,
		`UPDATE jobs SET status='RUNNING', started_at=NOW(), finished_at=NULL, error_text=NULL
		 WHERE id = ANY($1)`,
		ids,
	)
}

// Record writes one job's terminal state.
func (r *Recorder) Record(ctx context.Context, res render.JobResult) error {
	status, outputKey, outputSize, errText := recordColumns(res)

	_, err := r.pool.Exec(ctx,
		`INSERT INTO jobs (id, template_id, status, output_key, output_size, error_text, created_at, finished_at)
		 VALUES ($1,$2,$3,$4,$5,$6,NOW(),NOW())
		 ON CONFLICT (id) DO UPDATE
		 SET status=EXCLUDED.status,
		     output_key=EXCLUDED.output_key,
		     output_size=EXCLUDED.output_size,
		     error_text=EXCLUDED.error_text,
		     finished_at=EXCLUDED.finished_at`,
		res.JobID, res.TemplateID, status, outputKey, outputSize, errText,
	)
	return err
}

// recordColumns maps a result onto the jobs row. Output columns are NULL
// exactly when the job failed, never because the artifact happened to be
// empty; error_text is NULL exactly when it succeeded.
func recordColumns(res render.JobResult) (status string, outputKey, outputSize, errText any) {
	if res.Status == render.StatusSuccess {
		return "DONE", res.OutputKey, res.OutputSize, nil
	}

	msg := res.Error
	if len(msg) > 2000 {
		msg = msg[:2000]
	}
	return "FAILED", nil, nil, msg
}
