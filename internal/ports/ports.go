package ports

import (
	"context"

	"github.com/bobmatnyc/ai-power-rankings/internal/domain"
)

// RecordSource aggregates every configured collector into one fetch pass.
// Implementations absorb per-source failures and return whatever was
// collected successfully.
type RecordSource interface {
	FetchAll(ctx context.Context, window domain.DateRange) []domain.SourceBatch
}

// Archive persists news records across the flat log, the monthly shards and
// the per-article files, and rebuilds the derived index.
type Archive interface {
	UpsertBatch(records []domain.ArticleRecord) (domain.UpsertResult, error)
	RebuildIndex() (domain.ArchiveIndex, error)
}

// ArticleMirror replicates archived records into an external database.
// Mirror failures never fail a batch.
type ArticleMirror interface {
	SavePublished(ctx context.Context, records []domain.ArticleRecord) error
}

// Notifier delivers a digest of newly archived records.
type Notifier interface {
	PublishDigest(ctx context.Context, records []domain.ArticleRecord) error
}

// ChatClient produces a short natural-language digest for a batch.
type ChatClient interface {
	SendDigest(ctx context.Context, records []domain.ArticleRecord) (string, error)
}

// Scheduler runs the pipeline repeatedly until stopped.
type Scheduler interface {
	Start(ctx context.Context) error
	Stop()
}
