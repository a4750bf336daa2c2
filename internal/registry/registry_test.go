package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/flowzero/zflow/internal/kv"
	"github.com/flowzero/zflow/pkg/api"
)

func TestRegistryPutAndGet(t *testing.T) {
	ctx := context.Background()
	r := New(kv.NewMemoryStore())

	tmpl := api.Template{
		Flow:        api.Succeed(api.StringValue("ok")),
		InputSchema: api.StringSchema(),
	}
	if err := r.Put(ctx, "greet", tmpl); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := r.Get(ctx, "greet")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Flow.Equal(tmpl.Flow) {
		t.Fatalf("flow mismatch: got %+v want %+v", got.Flow, tmpl.Flow)
	}
	if got.InputSchema.Tag() != tmpl.InputSchema.Tag() {
		t.Fatalf("schema mismatch: got %v want %v", got.InputSchema, tmpl.InputSchema)
	}
}

func TestRegistryGetUnknownReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	r := New(kv.NewMemoryStore())

	_, err := r.Get(ctx, "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	var nf *api.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v (%T)", err, err)
	}
}

func TestRegistryPutReplacesExisting(t *testing.T) {
	ctx := context.Background()
	r := New(kv.NewMemoryStore())

	first := api.Template{Flow: api.Succeed(api.IntValue(1))}
	second := api.Template{Flow: api.Succeed(api.IntValue(2))}

	if err := r.Put(ctx, "t", first); err != nil {
		t.Fatalf("put first: %v", err)
	}
	if err := r.Put(ctx, "t", second); err != nil {
		t.Fatalf("put second: %v", err)
	}

	got, err := r.Get(ctx, "t")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Flow.Equal(second.Flow) {
		t.Fatalf("expected replaced flow, got %+v", got.Flow)
	}
}

func TestRegistryAllAndDelete(t *testing.T) {
	ctx := context.Background()
	r := New(kv.NewMemoryStore())

	if err := r.Put(ctx, "a", api.Template{Flow: api.Succeed(api.IntValue(1))}); err != nil {
		t.Fatalf("put a: %v", err)
	}
	if err := r.Put(ctx, "b", api.Template{Flow: api.Succeed(api.IntValue(2))}); err != nil {
		t.Fatalf("put b: %v", err)
	}

	seen := map[api.TemplateId]bool{}
	for entry, err := range r.All(ctx) {
		if err != nil {
			t.Fatalf("all: %v", err)
		}
		seen[entry.Id] = true
	}
	if !seen["a"] || !seen["b"] {
		t.Fatalf("expected both templates, got %v", seen)
	}

	if err := r.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := r.Get(ctx, "a"); err == nil {
		t.Fatalf("expected deleted template to be gone")
	}

	if err := r.Delete(ctx, "does-not-exist"); err != nil {
		t.Fatalf("delete unknown should be a no-op: %v", err)
	}
}
