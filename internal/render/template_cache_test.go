package render

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/rkstgr/papermake-aws/internal/pkg/errors"
)

func TestTemplateCacheResolve(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		templateID string
		wantErr    errors.Code
		wantOutput string
	}{
		{
			name:       "existing template",
			templateID: "invoice",
			wantOutput: "invoice source",
		},
		{
			name:       "missing template",
			templateID: "absent",
			wantErr:    errors.CodeFetch,
		},
		{
			name:       "malformed template",
			templateID: "bad",
			wantErr:    errors.CodeCompile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStubStore(map[string]string{
				"invoice": "invoice source",
				"bad":     "broken",
			})
			cache := NewTemplateCache(stubEngine{}, store, nil)

			tpl, err := cache.Resolve(ctx, tt.templateID)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("expected %s, got nil", tt.wantErr)
				}
				if !errors.IsCode(err, tt.wantErr) {
					t.Errorf("expected code %s, got %s", tt.wantErr, errors.GetCode(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			out, err := tpl.Render(nil)
			if err != nil {
				t.Fatalf("render failed: %v", err)
			}
			if string(out) != tt.wantOutput {
				t.Errorf("expected output %q, got %q", tt.wantOutput, out)
			}
		})
	}
}

func TestTemplateCacheFetchesOnce(t *testing.T) {
	ctx := context.Background()
	store := newStubStore(map[string]string{"invoice": "invoice source"})
	cache := NewTemplateCache(stubEngine{}, store, nil)

	// First call populates the cache; the next two must not re-fetch.
	for i := 0; i < 3; i++ {
		if _, err := cache.Resolve(ctx, "invoice"); err != nil {
			t.Fatalf("resolve %d failed: %v", i, err)
		}
	}

	if got := store.fetchCount("invoice"); got != 1 {
		t.Errorf("expected 1 fetch, got %d", got)
	}
	if got := cache.Len(); got != 1 {
		t.Errorf("expected 1 cached entry, got %d", got)
	}
}

func TestTemplateCacheFailedResolveNotCached(t *testing.T) {
	ctx := context.Background()
	store := newStubStore(map[string]string{})
	cache := NewTemplateCache(stubEngine{}, store, nil)

	if _, err := cache.Resolve(ctx, "absent"); err == nil {
		t.Fatal("expected error for missing template")
	}
	if got := cache.Len(); got != 0 {
		t.Errorf("expected empty cache after failure, got %d entries", got)
	}

	// The template shows up later; the next resolve must retry the fetch.
	store.mu.Lock()
	store.sources["absent"] = []byte("late source")
	store.mu.Unlock()

	tpl, err := cache.Resolve(ctx, "absent")
	if err != nil {
		t.Fatalf("resolve after recovery failed: %v", err)
	}
	out, _ := tpl.Render(nil)
	if string(out) != "late source" {
		t.Errorf("expected recovered source, got %q", out)
	}
}

func TestTemplateCacheConcurrentResolve(t *testing.T) {
	ctx := context.Background()
	store := newStubStore(map[string]string{"invoice": "invoice source"})
	cache := NewTemplateCache(stubEngine{}, store, nil)

	const callers = 16
	var wg sync.WaitGroup
	outputs := make([]string, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tpl, err := cache.Resolve(ctx, "invoice")
			if err != nil {
				t.Errorf("resolve failed: %v", err)
				return
			}
			out, _ := tpl.Render(nil)
			outputs[i] = string(out)
		}(i)
	}
	wg.Wait()

	// Racing callers may duplicate the fetch, but the published state never
	// diverges: one entry, identical render output for everyone.
	if got := cache.Len(); got != 1 {
		t.Errorf("expected 1 published entry, got %d", got)
	}
	for i, out := range outputs {
		if out != "invoice source" {
			t.Errorf("caller %d got divergent output %q", i, out)
		}
	}
}

func TestTemplateCacheKeepsRawSource(t *testing.T) {
	ctx := context.Background()
	store := newStubStore(map[string]string{"invoice": "invoice source"})
	cache := NewTemplateCache(stubEngine{}, store, nil)

	if _, ok := cache.source("invoice"); ok {
		t.Error("expected no source before resolve")
	}

	if _, err := cache.Resolve(ctx, "invoice"); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	raw, ok := cache.source("invoice")
	if !ok || !strings.Contains(string(raw), "invoice source") {
		t.Errorf("expected cached raw source, got %q (ok=%v)", raw, ok)
	}
}
