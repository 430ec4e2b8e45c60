package render

import (
	"context"
	"fmt"
	"sync"
)

// stubStore serves template sources from memory and counts fetches, so tests
// can observe whether the caches re-fetch.
type stubStore struct {
	mu      sync.Mutex
	sources map[string][]byte
	fetches map[string]int
}

func newStubStore(sources map[string]string) *stubStore {
	s := &stubStore{
		sources: make(map[string][]byte),
		fetches: make(map[string]int),
	}
	for id, src := range sources {
		s.sources[id] = []byte(src)
	}
	return s
}

func (s *stubStore) FetchTemplate(_ context.Context, templateID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches[templateID]++
	src, ok := s.sources[templateID]
	if !ok {
		return nil, fmt.Errorf("object not found: %s", templateID)
	}
	return src, nil
}

func (s *stubStore) fetchCount(templateID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches[templateID]
}

// stubEngine compiles any source not equal to "broken" into a template that
// echoes the source back.
type stubEngine struct{}

func (stubEngine) Compile(source []byte) (CompiledTemplate, error) {
	if string(source) == "broken" {
		return nil, fmt.Errorf("syntax error")
	}
	return stubTemplate{source: string(source)}, nil
}

func (stubEngine) NewContext(source []byte) (RenderContext, error) {
	if string(source) == "broken" {
		return nil, fmt.Errorf("syntax error")
	}
	return &stubContext{source: string(source)}, nil
}

func (stubEngine) Extension() string { return "pdf" }

func (stubEngine) ContentType() string { return "application/pdf" }

type stubTemplate struct {
	source string
}

func (t stubTemplate) Render(data map[string]any) ([]byte, error) {
	if data != nil {
		if _, ok := data["fail"]; ok {
			return nil, fmt.Errorf("bad data")
		}
	}
	return []byte(t.source), nil
}

type stubContext struct {
	source string
}

func (c *stubContext) Render(data map[string]any) ([]byte, error) {
	if data != nil {
		if _, ok := data["fail"]; ok {
			return nil, fmt.Errorf("bad data")
		}
	}
	return []byte(c.source), nil
}

// memorySink collects uploads in memory.
type memorySink struct {
	mu      sync.Mutex
	objects map[string][]byte
	failKey string
}

func newMemorySink() *memorySink {
	return &memorySink{objects: make(map[string][]byte)}
}

func (s *memorySink) UploadOutput(_ context.Context, objectKey string, body []byte) (string, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failKey != "" && objectKey == s.failKey {
		return "", 0, fmt.Errorf("storage unavailable")
	}
	s.objects[objectKey] = body
	return objectKey, int64(len(body)), nil
}
