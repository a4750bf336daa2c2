// Package registry implements the flow-template store on top of any
// api.KVStore: named flow definitions that can be started by
// id instead of being sent inline.
package registry

import (
	"context"

	"github.com/flowzero/zflow/pkg/api"
)

// Registry stores api.Template values under api.TemplatesNamespace in a
// backing api.KVStore, keyed by api.TemplateId. Every Put writes at
// timestamp zero, so a later Put for the same id overwrites the earlier
// template rather than adding a version.
type Registry struct {
	store api.KVStore
}

// New wraps store as a template registry.
func New(store api.KVStore) *Registry {
	return &Registry{store: store}
}

// Put creates or replaces the template stored under id.
func (r *Registry) Put(ctx context.Context, id api.TemplateId, tmpl api.Template) error {
	encoded, err := encodeTemplate(tmpl)
	if err != nil {
		return api.NewDecodeError("template", err)
	}
	if err := r.store.Put(ctx, api.TemplatesNamespace, []byte(id), encoded, 0); err != nil {
		return err
	}
	return nil
}

// Get returns the template stored under id, or a *api.NotFoundError if
// none exists.
func (r *Registry) Get(ctx context.Context, id api.TemplateId) (api.Template, error) {
	raw, found, err := r.store.GetLatest(ctx, api.TemplatesNamespace, []byte(id), nil)
	if err != nil {
		return api.Template{}, err
	}
	if !found {
		return api.Template{}, api.NewNotFoundError("template", string(id))
	}
	tmpl, err := decodeTemplate(raw)
	if err != nil {
		return api.Template{}, api.NewDecodeError("template", err)
	}
	return tmpl, nil
}

// TemplateEntry is one row yielded by All.
type TemplateEntry struct {
	Id       api.TemplateId
	Template api.Template
}

// All streams every registered template.
func (r *Registry) All(ctx context.Context) func(yield func(TemplateEntry, error) bool) {
	return func(yield func(TemplateEntry, error) bool) {
		for entry, err := range r.store.ScanAll(ctx, api.TemplatesNamespace) {
			if err != nil {
				yield(TemplateEntry{}, err)
				return
			}
			tmpl, decodeErr := decodeTemplate(entry.Value)
			if decodeErr != nil {
				yield(TemplateEntry{}, api.NewDecodeError("template", decodeErr))
				return
			}
			if !yield(TemplateEntry{Id: api.TemplateId(entry.Key), Template: tmpl}, nil) {
				return
			}
		}
	}
}

// Delete removes the template stored under id. It is a no-op if id is
// unknown.
func (r *Registry) Delete(ctx context.Context, id api.TemplateId) error {
	return r.store.Delete(ctx, api.TemplatesNamespace, []byte(id), nil)
}
