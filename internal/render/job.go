package render

// Job is one unit of work: render one template with one data document and
// deliver the artifact. Jobs are created at ingress with a generated job ID
// and are immutable afterwards.
type Job struct {
	JobID      string         `json:"job_id"`
	TemplateID string         `json:"template_id"`
	Data       map[string]any `json:"data"`
}

// Job result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// JobResult is the outcome of exactly one job. Either OutputKey/OutputSize
// are set (success) or Error carries the coded failure (error).
type JobResult struct {
	JobID      string `json:"job_id"`
	TemplateID string `json:"template_id"`
	Status     string `json:"status"`
	OutputKey  string `json:"output_key,omitempty"`
	OutputSize int64  `json:"output_size,omitempty"`
	Error      string `json:"error,omitempty"`
}

// BatchSummary tallies the results of one batch.
// Total is always Success + Failed.
type BatchSummary struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

// BatchResponse is the caller-facing outcome of one Process call.
type BatchResponse struct {
	Results []JobResult  `json:"results"`
	Summary BatchSummary `json:"summary"`
}

// Combine merges synchronous render failures and asynchronous upload
// outcomes into one result list plus summary counts. Pure function: no I/O,
// no failure modes of its own.
func Combine(renderFailures, uploadOutcomes []JobResult) BatchResponse {
	results := make([]JobResult, 0, len(renderFailures)+len(uploadOutcomes))
	results = append(results, renderFailures...)
	results = append(results, uploadOutcomes...)

	summary := BatchSummary{Total: len(results)}
	for _, r := range results {
		if r.Status == StatusSuccess {
			summary.Success++
		} else {
			summary.Failed++
		}
	}

	return BatchResponse{Results: results, Summary: summary}
}
