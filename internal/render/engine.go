// Package render implements the template caches and the two-phase batch
// pipeline that turn submitted render jobs into per-job outcomes. Template
// sources are fetched from the object store, compiled once per process, and
// reused across batches; rendered artifacts are uploaded back to the store.
package render

// Engine compiles template sources into reusable rendering artifacts.
// Implementations must be safe for concurrent use.
type Engine interface {
	Compile(source []byte) (CompiledTemplate, error)

	// Extension is the file extension of rendered artifacts, without the dot.
	Extension() string

	// ContentType is the MIME type of rendered artifacts.
	ContentType() string
}

// CompiledTemplate is a compiled template ready to render. Safe for
// concurrent use; all renders against it are independent.
type CompiledTemplate interface {
	Render(data map[string]any) ([]byte, error)
}

// ContextEngine creates stateful render contexts. A context amortizes per-
// template setup across renders at the cost of not being concurrency-safe.
type ContextEngine interface {
	NewContext(source []byte) (RenderContext, error)

	Extension() string
	ContentType() string
}

// RenderContext is a stateful rendering handle bound to one template.
// NOT safe for concurrent use: callers must hold exclusive access for the
// duration of each Render call. ContextCache enforces this.
type RenderContext interface {
	Render(data map[string]any) ([]byte, error)
}
