package render

import (
	"context"
	"sync"

	"github.com/rkstgr/papermake-aws/internal/pkg/errors"
	"github.com/rkstgr/papermake-aws/internal/pkg/logger"
)

// contextHandle pairs a render context with the mutex that guards it.
// The mutex is the load-bearing mechanism keeping a non-reentrant context
// away from concurrent callers.
type contextHandle struct {
	mu sync.Mutex
	rc RenderContext
}

// ContextCache memoizes one stateful RenderContext per template ID and
// serializes access to it. Renders of the same template never overlap;
// renders of different templates proceed concurrently. Handles live for the
// lifetime of the process.
type ContextCache struct {
	engine ContextEngine
	store  SourceStore
	log    *logger.Logger

	mu      sync.RWMutex
	handles map[string]*contextHandle
}

func NewContextCache(engine ContextEngine, store SourceStore, log *logger.Logger) *ContextCache {
	if log == nil {
		log = logger.NewDefault()
	}
	return &ContextCache{
		engine:  engine,
		store:   store,
		log:     log.WithComponent("context_cache"),
		handles: make(map[string]*contextHandle),
	}
}

// WithContext runs fn against the template's render context while holding
// its exclusive lock. The lock is released when fn returns or panics; a
// failed render does not poison the context, it stays reusable.
func (c *ContextCache) WithContext(ctx context.Context, templateID string, fn func(RenderContext) error) error {
	h, err := c.handle(ctx, templateID)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return fn(h.rc)
}

// handle resolves or lazily creates the exclusive handle for templateID.
// Creation happens outside the cache lock, so racing callers may each build
// a context; the first published handle wins and later ones are dropped.
// First-writer-wins (unlike the template cache) keeps exactly one live
// context per template, which is what the non-overlap guarantee rests on.
func (c *ContextCache) handle(ctx context.Context, templateID string) (*contextHandle, error) {
	c.mu.RLock()
	h, ok := c.handles[templateID]
	c.mu.RUnlock()
	if ok {
		return h, nil
	}

	c.log.Debug("render context miss, creating", "template_id", templateID)

	raw, err := c.store.FetchTemplate(ctx, templateID)
	if err != nil {
		return nil, errors.Fetch(err, "context_cache.handle", "template fetch failed").
			WithField("template_id", templateID)
	}

	rc, err := c.engine.NewContext(raw)
	if err != nil {
		return nil, errors.Compile(err, "context_cache.handle", "render context creation failed").
			WithField("template_id", templateID)
	}

	c.mu.Lock()
	if existing, ok := c.handles[templateID]; ok {
		c.mu.Unlock()
		return existing, nil
	}
	h = &contextHandle{rc: rc}
	c.handles[templateID] = h
	c.mu.Unlock()

	return h, nil
}

// Len reports the number of cached render contexts.
func (c *ContextCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.handles)
}
