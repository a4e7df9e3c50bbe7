package fetch

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/bobmatnyc/ai-power-rankings/internal/config"
	"github.com/bobmatnyc/ai-power-rankings/internal/domain"
	"github.com/bobmatnyc/ai-power-rankings/internal/ports"
	"github.com/bobmatnyc/ai-power-rankings/internal/source"
)

// StrategySource implements RecordSource via registered collector
// strategies. A failing collector contributes zero records and never fails
// the pass.
type StrategySource struct {
	registry *source.Registry
	cfg      config.CollectionConfig
	logger   *slog.Logger
}

var _ ports.RecordSource = (*StrategySource)(nil)

// NewStrategySource wires the collector registry with the configured
// collection pass settings.
func NewStrategySource(reg *source.Registry, cfg config.CollectionConfig, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		cfg:      cfg,
		logger:   log,
	}
}

// FetchAll runs every configured collector over the window. Collectors run
// serially by default; maxConcurrentSources > 1 bounds a parallel fan-out.
func (s *StrategySource) FetchAll(ctx context.Context, window domain.DateRange) []domain.SourceBatch {
	if s.registry == nil {
		s.warn("collector registry is not configured")
		return nil
	}

	s.debug("fetch all", "sources", len(s.cfg.Sources),
		"from", window.Start.Format("2006-01-02"), "to", window.End.Format("2006-01-02"))

	batches := make([]domain.SourceBatch, len(s.cfg.Sources))
	g, gctx := errgroup.WithContext(ctx)
	limit := s.cfg.MaxConcurrentSources
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, name := range s.cfg.Sources {
		i, name := i, name
		g.Go(func() error {
			batches[i] = s.collectOne(gctx, name, window)
			return nil
		})
	}
	_ = g.Wait()

	kept := batches[:0]
	for _, b := range batches {
		if len(b.Records) > 0 {
			kept = append(kept, b)
		}
	}
	return kept
}

func (s *StrategySource) collectOne(ctx context.Context, name string, window domain.DateRange) domain.SourceBatch {
	strategy, err := s.registry.Resolve(name)
	if err != nil {
		s.warn("skip unknown source", "source", name, "error", err)
		return domain.SourceBatch{Name: name}
	}

	records, err := strategy.Collect(ctx, source.Request{Window: window, SourceName: name})
	if err != nil {
		s.warn("source fetch failed", "source", name, "error", err)
		return domain.SourceBatch{Kind: strategy.Kind(), Name: name}
	}

	s.debug("source produced records", "source", name, "count", len(records))
	return domain.SourceBatch{
		Kind:    strategy.Kind(),
		Name:    name,
		Records: records,
	}
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *StrategySource) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
