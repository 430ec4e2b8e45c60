package worker

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rkstgr/papermake-aws/internal/config"
	"github.com/rkstgr/papermake-aws/internal/pkg/logger"
	"github.com/rkstgr/papermake-aws/internal/queue"
	"github.com/rkstgr/papermake-aws/internal/render"
)

// decodeBatch turns raw queue payloads into jobs. A malformed message is
// logged and skipped; it never fails the batch. Jobs without an ID get one
// here, and from that point on they are guaranteed exactly one result.
func decodeBatch(payloads []string, log *logger.Logger) []render.Job {
	jobs := make([]render.Job, 0, len(payloads))
	for _, payload := range payloads {
		job, err := decodeMessage(payload)
		if err != nil {
			log.Warn("skipping malformed job message", "error", err.Error())
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs
}

func decodeMessage(payload string) (render.Job, error) {
	var msg queue.Message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return render.Job{}, fmt.Errorf("invalid job message: %w", err)
	}

	msg.TemplateID = strings.TrimSpace(msg.TemplateID)
	if msg.TemplateID == "" {
		return render.Job{}, fmt.Errorf("job message missing template_id")
	}

	jobID := strings.TrimSpace(msg.JobID)
	if jobID == "" {
		jobID = config.NewJobID()
	}

	return render.Job{
		JobID:      jobID,
		TemplateID: msg.TemplateID,
		Data:       msg.Data,
	}, nil
}
