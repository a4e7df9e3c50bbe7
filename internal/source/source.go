package source

import (
	"context"
	"fmt"

	"github.com/bobmatnyc/ai-power-rankings/internal/domain"
)

// Request carries all parameters required to execute one collection pass.
type Request struct {
	Window     domain.DateRange
	SourceName string
	Options    map[string]string
}

// Collector captures a single upstream strategy (Hacker News, dev.to, RSS).
type Collector interface {
	Name() string
	Kind() domain.SourceKind
	Collect(ctx context.Context, req Request) ([]domain.RawRecord, error)
}

// Registry keeps a mapping from collector names to their implementations.
type Registry struct {
	collectors map[string]Collector
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{collectors: map[string]Collector{}}
}

// Register adds or replaces a collector implementation.
func (r *Registry) Register(c Collector) {
	if r.collectors == nil {
		r.collectors = map[string]Collector{}
	}
	r.collectors[c.Name()] = c
}

// Resolve returns a collector by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Collector, error) {
	if c, ok := r.collectors[name]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("collector %s is not registered", name)
}
