package render

import (
	"bytes"
	"fmt"

	"github.com/flosch/pongo2/v6"
)

// Pongo2Engine renders django-style templates into HTML artifacts.
type Pongo2Engine struct {
	set *pongo2.TemplateSet
}

// NewPongo2Engine creates an engine with an isolated template set so that
// registered filters or globals never leak into other engine instances.
func NewPongo2Engine() *Pongo2Engine {
	return &Pongo2Engine{
		set: pongo2.NewSet("papermake", pongo2.MustNewLocalFileSystemLoader("")),
	}
}

func (e *Pongo2Engine) Compile(source []byte) (CompiledTemplate, error) {
	tpl, err := e.set.FromBytes(source)
	if err != nil {
		return nil, fmt.Errorf("pongo2 compile: %w", err)
	}
	return &pongo2Template{tpl: tpl}, nil
}

func (e *Pongo2Engine) NewContext(source []byte) (RenderContext, error) {
	tpl, err := e.set.FromBytes(source)
	if err != nil {
		return nil, fmt.Errorf("pongo2 compile: %w", err)
	}
	return &pongo2Context{tpl: tpl}, nil
}

func (e *Pongo2Engine) Extension() string { return "html" }

func (e *Pongo2Engine) ContentType() string { return "text/html; charset=utf-8" }

type pongo2Template struct {
	tpl *pongo2.Template
}

func (t *pongo2Template) Render(data map[string]any) ([]byte, error) {
	out, err := t.tpl.ExecuteBytes(pongo2.Context(data))
	if err != nil {
		return nil, fmt.Errorf("pongo2 execute: %w", err)
	}
	return out, nil
}

// pongo2Context reuses one output buffer across renders, which is what makes
// it single-user: two concurrent renders would interleave into the same
// buffer. ContextCache serializes access.
type pongo2Context struct {
	tpl *pongo2.Template
	buf bytes.Buffer
}

func (c *pongo2Context) Render(data map[string]any) ([]byte, error) {
	c.buf.Reset()
	if err := c.tpl.ExecuteWriter(pongo2.Context(data), &c.buf); err != nil {
		return nil, fmt.Errorf("pongo2 execute: %w", err)
	}
	out := make([]byte, c.buf.Len())
	copy(out, c.buf.Bytes())
	return out, nil
}
