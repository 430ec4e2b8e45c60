package worker

import (
	"strings"
	"testing"

	"github.com/rkstgr/papermake-aws/internal/render"
)

func TestRecordColumns(t *testing.T) {
	tests := []struct {
		name           string
		res            render.JobResult
		wantStatus     string
		wantOutputKey  any
		wantOutputSize any
		wantErrNil     bool
	}{
		{
			name: "success",
			res: render.JobResult{
				JobID:      "job_1",
				Status:     render.StatusSuccess,
				OutputKey:  "renders/job_1.html",
				OutputSize: 128,
			},
			wantStatus:     "DONE",
			wantOutputKey:  "renders/job_1.html",
			wantOutputSize: int64(128),
			wantErrNil:     true,
		},
		{
			name: "zero-byte artifact keeps its size",
			res: render.JobResult{
				JobID:      "job_2",
				Status:     render.StatusSuccess,
				OutputKey:  "renders/job_2.html",
				OutputSize: 0,
			},
			wantStatus:     "DONE",
			wantOutputKey:  "renders/job_2.html",
			wantOutputSize: int64(0),
			wantErrNil:     true,
		},
		{
			name: "failure nulls output columns",
			res: render.JobResult{
				JobID:  "job_3",
				Status: render.StatusError,
				Error:  "RENDER_ERROR: template render failed",
			},
			wantStatus:     "FAILED",
			wantOutputKey:  nil,
			wantOutputSize: nil,
			wantErrNil:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, outputKey, outputSize, errText := recordColumns(tt.res)
			if status != tt.wantStatus {
				t.Errorf("status: got %q, want %q", status, tt.wantStatus)
			}
			if outputKey != tt.wantOutputKey {
				t.Errorf("output_key: got %v, want %v", outputKey, tt.wantOutputKey)
			}
			if outputSize != tt.wantOutputSize {
				t.Errorf("output_size: got %v, want %v", outputSize, tt.wantOutputSize)
			}
			if (errText == nil) != tt.wantErrNil {
				t.Errorf("error_text: got %v", errText)
			}
		})
	}
}

func TestRecordColumnsTruncatesError(t *testing.T) {
	res := render.JobResult{
		JobID:  "job_4",
		Status: render.StatusError,
		Error:  strings.Repeat("x", 5000),
	}
	_, _, _, errText := recordColumns(res)
	msg, ok := errText.(string)
	if !ok {
		t.Fatalf("expected string error_text, got %T", errText)
	}
	if len(msg) != 2000 {
		t.Errorf("expected error truncated to 2000 chars, got %d", len(msg))
	}
}
