package render

import (
	"context"
	"sync"

	"github.com/rkstgr/papermake-aws/internal/pkg/errors"
	"github.com/rkstgr/papermake-aws/internal/pkg/logger"
)

// SourceStore provides raw template sources keyed by template ID.
type SourceStore interface {
	FetchTemplate(ctx context.Context, templateID string) ([]byte, error)
}

type templateEntry struct {
	raw      []byte
	compiled CompiledTemplate
}

// TemplateCache memoizes the fetch+compile of a template by ID. Entries live
// for the lifetime of the process and are never evicted; compiled templates
// are shared read-only by all callers after insertion.
type TemplateCache struct {
	engine Engine
	store  SourceStore
	log    *logger.Logger

	mu      sync.RWMutex
	entries map[string]templateEntry
}

func NewTemplateCache(engine Engine, store SourceStore, log *logger.Logger) *TemplateCache {
	if log == nil {
		log = logger.NewDefault()
	}
	return &TemplateCache{
		engine:  engine,
		store:   store,
		log:     log.WithComponent("template_cache"),
		entries: make(map[string]templateEntry),
	}
}

// Resolve returns the compiled template for templateID, fetching and
// compiling it on first use. The lock is released before the fetch+compile,
// so two callers missing simultaneously may both do the work; both publish
// and the last write wins. That is harmless: the compiled artifact is a pure
// function of the source, so the published state never diverges.
func (c *TemplateCache) Resolve(ctx context.Context, templateID string) (CompiledTemplate, error) {
	c.mu.RLock()
	if e, ok := c.entries[templateID]; ok {
		c.mu.RUnlock()
		c.log.Debug("template cache hit", "template_id", templateID)
		return e.compiled, nil
	}
	c.mu.RUnlock()

	c.log.Debug("template cache miss, fetching", "template_id", templateID)

	raw, err := c.store.FetchTemplate(ctx, templateID)
	if err != nil {
		return nil, errors.Fetch(err, "template_cache.resolve", "template fetch failed").
			WithField("template_id", templateID)
	}

	compiled, err := c.engine.Compile(raw)
	if err != nil {
		return nil, errors.Compile(err, "template_cache.resolve", "template compile failed").
			WithField("template_id", templateID)
	}

	c.mu.Lock()
	c.entries[templateID] = templateEntry{raw: raw, compiled: compiled}
	c.mu.Unlock()

	return compiled, nil
}

// source returns the cached raw source for templateID, if present.
func (c *TemplateCache) source(templateID string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[templateID]
	if !ok {
		return nil, false
	}
	return e.raw, true
}

// Len reports the number of cached templates.
func (c *TemplateCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
