package models

import "time"

// Template is the metadata row for a render template. The source bytes
// live in object storage under ObjectKey; Postgres only holds the catalog.
type Template struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	ObjectKey   string     `json:"object_key"`
	SizeBytes   int64      `json:"size_bytes"`
	CreatedAt   time.Time  `json:"created_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}
