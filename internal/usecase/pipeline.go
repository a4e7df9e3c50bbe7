package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bobmatnyc/ai-power-rankings/internal/classifier"
	"github.com/bobmatnyc/ai-power-rankings/internal/config"
	"github.com/bobmatnyc/ai-power-rankings/internal/domain"
	"github.com/bobmatnyc/ai-power-rankings/internal/metrics"
	"github.com/bobmatnyc/ai-power-rankings/internal/normalizer"
	"github.com/bobmatnyc/ai-power-rankings/internal/ports"
)

// Fixed tags applied to every archived record, followed by the category.
var baseTags = []string{"industry", "ai-coding"}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
// Mirror, Notifier, ChatClient, and Metrics are optional.
type PipelineDeps struct {
	Source     ports.RecordSource
	Archive    ports.Archive
	Classifier *classifier.Classifier
	Mirror     ports.ArticleMirror
	Notifier   ports.Notifier
	ChatClient ports.ChatClient
	Metrics    *metrics.Metrics
	Collection config.CollectionConfig
	Clock      func() time.Time
	Logger     *slog.Logger
}

// Pipeline implements the collect, classify, merge, archive workflow.
type Pipeline struct {
	source     ports.RecordSource
	archive    ports.Archive
	classifier *classifier.Classifier
	mirror     ports.ArticleMirror
	notifier   ports.Notifier
	chatClient ports.ChatClient
	metrics    *metrics.Metrics
	collection config.CollectionConfig
	clock      func() time.Time
	logger     *slog.Logger
}

// Summary reports what one pipeline run did.
type Summary struct {
	RunID     string
	Fetched   int
	Malformed int
	Filtered  int
	Added     int
	Skipped   int
	Months    []string
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	cls := deps.Classifier
	if cls == nil {
		cls = classifier.New(nil)
	}
	return &Pipeline{
		source:     deps.Source,
		archive:    deps.Archive,
		classifier: cls,
		mirror:     deps.Mirror,
		notifier:   deps.Notifier,
		chatClient: deps.ChatClient,
		metrics:    deps.Metrics,
		collection: deps.Collection,
		clock:      clock,
		logger:     deps.Logger,
	}
}

// Run executes one full pass over the window: fetch from every source,
// normalize and classify, filter, merge into the archive, rebuild the
// index, then fan out to the optional mirror and notification channels.
// Only a persistence failure aborts the run.
func (p *Pipeline) Run(ctx context.Context, window domain.DateRange) (Summary, error) {
	started := p.clock()
	summary := Summary{RunID: uuid.NewString()}
	log := p.log().With("run_id", summary.RunID)

	if p.source == nil || p.archive == nil {
		return summary, fmt.Errorf("pipeline missing source or archive")
	}

	log.Info("collection started",
		"from", window.Start.Format("2006-01-02"), "to", window.End.Format("2006-01-02"))

	batches := p.source.FetchAll(ctx, window)

	var records []domain.ArticleRecord
	for _, batch := range batches {
		summary.Fetched += len(batch.Records)
		p.metrics.Fetched(batch.Name, len(batch.Records))

		for _, raw := range batch.Records {
			item, err := normalizer.Normalize(raw, batch.Kind)
			if err != nil {
				summary.Malformed++
				p.metrics.Skipped(metrics.ReasonMalformed, 1)
				log.Debug("dropping malformed record", "source", batch.Name, "title", raw.Title)
				continue
			}

			enriched := p.classifier.Classify(item)
			if reason, keep := p.filter(enriched); !keep {
				summary.Filtered++
				p.metrics.Skipped(reason, 1)
				continue
			}

			records = append(records, p.toRecord(enriched))
		}
	}

	log.Info("records normalized",
		"fetched", summary.Fetched, "malformed", summary.Malformed,
		"filtered", summary.Filtered, "remaining", len(records))

	result, err := p.archive.UpsertBatch(records)
	if err != nil {
		p.metrics.RunCompleted("error", p.clock().Sub(started))
		return summary, fmt.Errorf("archive batch: %w", err)
	}
	summary.Added = result.Added
	summary.Skipped = result.Skipped
	summary.Months = result.Months
	p.metrics.Archived(result.Added)
	p.metrics.Skipped(metrics.ReasonDuplicate, result.Skipped)

	// The index is derived state; a failed rebuild leaves it stale, not
	// wrong, and the next successful run repairs it.
	if _, err := p.archive.RebuildIndex(); err != nil {
		log.Warn("index rebuild failed", "error", err)
	}

	p.fanOut(ctx, log, result.AddedRecords)

	log.Info("collection finished",
		"added", result.Added, "skipped", result.Skipped, "months", result.Months)
	p.metrics.RunCompleted("success", p.clock().Sub(started))
	return summary, nil
}

// filter applies the post-classification drop rules.
func (p *Pipeline) filter(item domain.EnrichedItem) (string, bool) {
	if !p.collection.KeepGeneralItems && len(item.ToolMentions) == 0 {
		return metrics.ReasonGeneral, false
	}
	if p.collection.RelevanceFloor > 0 && item.Relevance < p.collection.RelevanceFloor {
		return metrics.ReasonLowRelevance, false
	}
	return "", true
}

// toRecord freezes an enriched item into its persisted form.
func (p *Pipeline) toRecord(item domain.EnrichedItem) domain.ArticleRecord {
	now := p.clock().UTC()

	date := item.PublishedAt
	if date.IsZero() {
		date = now
	}

	tags := make([]string, 0, len(baseTags)+1)
	tags = append(tags, baseTags...)
	tags = append(tags, string(item.Category))

	return domain.ArticleRecord{
		ID:           item.ID,
		Slug:         domain.Slugify(item.Title),
		Title:        item.Title,
		Content:      item.Body,
		Summary:      item.Body,
		Source:       item.Source,
		SourceURL:    item.URL,
		Tags:         tags,
		ToolMentions: item.ToolIDs(),
		CreatedAt:    now,
		UpdatedAt:    now,
		Date:         date.UTC(),
	}
}

// fanOut pushes newly archived records to the optional channels. Failures
// here never fail the run.
func (p *Pipeline) fanOut(ctx context.Context, log *slog.Logger, added []domain.ArticleRecord) {
	if len(added) == 0 {
		return
	}

	if p.mirror != nil {
		if err := p.mirror.SavePublished(ctx, added); err != nil {
			log.Warn("database mirror failed", "error", err)
		}
	}

	if p.chatClient != nil {
		if summary, err := p.chatClient.SendDigest(ctx, added); err != nil {
			log.Warn("digest summary failed", "error", err)
		} else if summary != "" {
			log.Info("digest summary", "text", summary)
		}
	}

	if p.notifier != nil {
		if err := p.notifier.PublishDigest(ctx, added); err != nil {
			log.Warn("digest notification failed", "error", err)
		}
	}
}

func (p *Pipeline) log() *slog.Logger {
	if p.logger != nil {
		return p.logger
	}
	return slog.Default()
}
