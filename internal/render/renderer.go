package render

import (
	"context"

	"github.com/rkstgr/papermake-aws/internal/pkg/errors"
)

// Render modes selectable via RENDER_MODE.
const (
	ModeCached  = "cached"
	ModeContext = "context"
)

// Renderer turns one job into output bytes, resolving the template through
// whichever cache the active mode uses.
type Renderer interface {
	RenderJob(ctx context.Context, job Job) ([]byte, error)
}

// CachedRenderer renders against shared compiled templates from the
// TemplateCache. Renders of the same template may run concurrently.
type CachedRenderer struct {
	cache *TemplateCache
}

func NewCachedRenderer(cache *TemplateCache) *CachedRenderer {
	return &CachedRenderer{cache: cache}
}

func (r *CachedRenderer) RenderJob(ctx context.Context, job Job) ([]byte, error) {
	tpl, err := r.cache.Resolve(ctx, job.TemplateID)
	if err != nil {
		return nil, err
	}

	out, err := tpl.Render(job.Data)
	if err != nil {
		return nil, errors.Render(err, "renderer.render", "template render failed").
			WithField("template_id", job.TemplateID)
	}
	return out, nil
}

// ContextRenderer renders through per-template stateful contexts from the
// ContextCache. Renders of the same template are serialized.
type ContextRenderer struct {
	cache *ContextCache
}

func NewContextRenderer(cache *ContextCache) *ContextRenderer {
	return &ContextRenderer{cache: cache}
}

func (r *ContextRenderer) RenderJob(ctx context.Context, job Job) ([]byte, error) {
	var out []byte
	err := r.cache.WithContext(ctx, job.TemplateID, func(rc RenderContext) error {
		b, err := rc.Render(job.Data)
		if err != nil {
			return errors.Render(err, "renderer.render", "template render failed").
				WithField("template_id", job.TemplateID)
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
