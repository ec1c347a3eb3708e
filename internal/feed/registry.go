package feed

import (
	"fmt"

	"wartracker/internal/domain"
)

// Registry keeps the static catalog of named feed sources.
type Registry struct {
	order   []string
	sources map[string]domain.FeedSource
}

// NewRegistry builds a registry from the configured sources, preserving
// their order.
func NewRegistry(sources []domain.FeedSource) *Registry {
	r := &Registry{sources: map[string]domain.FeedSource{}}
	for _, src := range sources {
		r.Register(src)
	}
	return r
}

// Register adds or replaces a source by name.
func (r *Registry) Register(source domain.FeedSource) {
	if r.sources == nil {
		r.sources = map[string]domain.FeedSource{}
	}
	if _, exists := r.sources[source.Name]; !exists {
		r.order = append(r.order, source.Name)
	}
	r.sources[source.Name] = source
}

// Resolve returns a source by name or an error if it is absent.
func (r *Registry) Resolve(name string) (domain.FeedSource, error) {
	if src, ok := r.sources[name]; ok {
		return src, nil
	}
	return domain.FeedSource{}, fmt.Errorf("feed source %s is not registered", name)
}

// All returns every registered source in registration order.
func (r *Registry) All() []domain.FeedSource {
	out := make([]domain.FeedSource, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.sources[name])
	}
	return out
}
