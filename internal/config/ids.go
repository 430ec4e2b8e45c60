package config

import "github.com/google/uuid"

// NewID returns a prefixed random identifier, e.g. "job_2c7f...".
func NewID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

// NewJobID returns a fresh job identifier.
func NewJobID() string {
	return NewID("job")
}
