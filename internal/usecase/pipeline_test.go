package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bobmatnyc/ai-power-rankings/internal/config"
	"github.com/bobmatnyc/ai-power-rankings/internal/domain"
)

type stubSource struct {
	batches []domain.SourceBatch
}

func (s *stubSource) FetchAll(ctx context.Context, window domain.DateRange) []domain.SourceBatch {
	return s.batches
}

type stubArchive struct {
	upserted     [][]domain.ArticleRecord
	upsertErr    error
	rebuildErr   error
	rebuildCalls int
	existing     map[string]struct{}
}

func (a *stubArchive) UpsertBatch(records []domain.ArticleRecord) (domain.UpsertResult, error) {
	if a.upsertErr != nil {
		return domain.UpsertResult{}, a.upsertErr
	}
	a.upserted = append(a.upserted, records)

	var added []domain.ArticleRecord
	skipped := 0
	for _, rec := range records {
		if _, ok := a.existing[rec.ID]; ok {
			skipped++
			continue
		}
		added = append(added, rec)
	}
	return domain.UpsertResult{
		Added:        len(added),
		Skipped:      skipped,
		AddedRecords: added,
	}, nil
}

func (a *stubArchive) RebuildIndex() (domain.ArchiveIndex, error) {
	a.rebuildCalls++
	return domain.ArchiveIndex{}, a.rebuildErr
}

type stubNotifier struct {
	published [][]domain.ArticleRecord
	err       error
}

func (n *stubNotifier) PublishDigest(ctx context.Context, records []domain.ArticleRecord) error {
	n.published = append(n.published, records)
	return n.err
}

func fixedClock() func() time.Time {
	return func() time.Time {
		return time.Date(2025, time.August, 25, 12, 0, 0, 0, time.UTC)
	}
}

func testWindow() domain.DateRange {
	return domain.DateRange{
		Start: time.Date(2025, time.August, 18, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, time.August, 25, 12, 0, 0, 0, time.UTC),
	}
}

func TestRunEndToEnd(t *testing.T) {
	t.Parallel()

	published := time.Date(2025, time.August, 22, 9, 0, 0, 0, time.UTC)
	source := &stubSource{batches: []domain.SourceBatch{
		{
			Kind: domain.SourceHackerNews,
			Name: "hackernews",
			Records: []domain.RawRecord{
				{NativeID: "44112233", Title: "GitHub Copilot launches new agent mode", URL: "https://example.com/a", PublishedAt: published},
				{Summary: "no identifier at all"},
				{NativeID: "44112234", Title: "Kubernetes release notes", URL: "https://example.com/b", PublishedAt: published},
			},
		},
	}}
	archive := &stubArchive{}
	notifier := &stubNotifier{}

	p := NewPipeline(PipelineDeps{
		Source:   source,
		Archive:  archive,
		Notifier: notifier,
		Collection: config.CollectionConfig{
			RelevanceFloor:   0.3,
			KeepGeneralItems: false,
		},
		Clock: fixedClock(),
	})

	summary, err := p.Run(context.Background(), testWindow())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if summary.Fetched != 3 || summary.Malformed != 1 || summary.Filtered != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.Added != 1 {
		t.Fatalf("added = %d, want 1", summary.Added)
	}

	if len(archive.upserted) != 1 || len(archive.upserted[0]) != 1 {
		t.Fatalf("archive received %v", archive.upserted)
	}
	rec := archive.upserted[0][0]
	if rec.ID != "hn-44112233" {
		t.Errorf("id = %s", rec.ID)
	}
	if rec.Slug != "news-github-copilot-launches-new-agent-mode" {
		t.Errorf("slug = %s", rec.Slug)
	}
	wantTags := []string{"industry", "ai-coding", "product-launch"}
	if len(rec.Tags) != 3 || rec.Tags[2] != wantTags[2] {
		t.Errorf("tags = %v, want %v", rec.Tags, wantTags)
	}
	if len(rec.ToolMentions) != 1 || rec.ToolMentions[0] != "github-copilot" {
		t.Errorf("tool mentions = %v", rec.ToolMentions)
	}
	if !rec.Date.Equal(published) {
		t.Errorf("date = %v, want %v", rec.Date, published)
	}

	if archive.rebuildCalls != 1 {
		t.Errorf("rebuild calls = %d", archive.rebuildCalls)
	}
	if len(notifier.published) != 1 || len(notifier.published[0]) != 1 {
		t.Errorf("notifier got %v", notifier.published)
	}
}

func TestRunAbortsOnArchiveFailure(t *testing.T) {
	t.Parallel()

	source := &stubSource{batches: []domain.SourceBatch{
		{Kind: domain.SourceHackerNews, Name: "hackernews", Records: []domain.RawRecord{
			{NativeID: "1", Title: "Claude Code update ships"},
		}},
	}}
	archive := &stubArchive{upsertErr: errors.New("disk full")}
	notifier := &stubNotifier{}

	p := NewPipeline(PipelineDeps{
		Source:   source,
		Archive:  archive,
		Notifier: notifier,
		Clock:    fixedClock(),
	})

	if _, err := p.Run(context.Background(), testWindow()); err == nil {
		t.Fatal("expected error when archive write fails")
	}
	if archive.rebuildCalls != 0 {
		t.Error("index rebuilt despite failed batch")
	}
	if len(notifier.published) != 0 {
		t.Error("digest sent despite failed batch")
	}
}

func TestRunIndexFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	source := &stubSource{batches: []domain.SourceBatch{
		{Kind: domain.SourceHackerNews, Name: "hackernews", Records: []domain.RawRecord{
			{NativeID: "1", Title: "Claude Code update ships"},
		}},
	}}
	archive := &stubArchive{rebuildErr: errors.New("corrupt shard")}

	p := NewPipeline(PipelineDeps{
		Source:  source,
		Archive: archive,
		Clock:   fixedClock(),
	})

	if _, err := p.Run(context.Background(), testWindow()); err != nil {
		t.Fatalf("index failure must not abort the run: %v", err)
	}
}

func TestRunSkipsDigestWhenNothingAdded(t *testing.T) {
	t.Parallel()

	source := &stubSource{batches: []domain.SourceBatch{
		{Kind: domain.SourceHackerNews, Name: "hackernews", Records: []domain.RawRecord{
			{NativeID: "1", Title: "Claude Code update ships"},
		}},
	}}
	archive := &stubArchive{existing: map[string]struct{}{"hn-1": {}}}
	notifier := &stubNotifier{}

	p := NewPipeline(PipelineDeps{
		Source:   source,
		Archive:  archive,
		Notifier: notifier,
		Clock:    fixedClock(),
	})

	summary, err := p.Run(context.Background(), testWindow())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if summary.Added != 0 || summary.Skipped != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if len(notifier.published) != 0 {
		t.Error("digest sent for an all-duplicate batch")
	}
}

func TestRunKeepsGeneralItemsWhenConfigured(t *testing.T) {
	t.Parallel()

	source := &stubSource{batches: []domain.SourceBatch{
		{Kind: domain.SourceRSS, Name: "rss", Records: []domain.RawRecord{
			{Title: "AI conference recap", URL: "https://example.com/recap"},
		}},
	}}
	archive := &stubArchive{}

	p := NewPipeline(PipelineDeps{
		Source:  source,
		Archive: archive,
		Collection: config.CollectionConfig{
			KeepGeneralItems: true,
		},
		Clock: fixedClock(),
	})

	summary, err := p.Run(context.Background(), testWindow())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if summary.Filtered != 0 || summary.Added != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	rec := archive.upserted[0][0]
	if rec.Tags[2] != string(domain.CategoryAIGeneral) {
		t.Errorf("category tag = %s", rec.Tags[2])
	}
	if !rec.Date.Equal(fixedClock()().UTC()) {
		t.Errorf("zero publish date should fall back to the clock, got %v", rec.Date)
	}
}

func TestCollectionWindow(t *testing.T) {
	t.Parallel()

	end := time.Date(2025, time.August, 25, 0, 0, 0, 0, time.UTC)
	w := CollectionWindow(end, 7)
	if !w.End.Equal(end) {
		t.Fatalf("end = %v", w.End)
	}
	if !w.Start.Equal(end.Add(-7 * 24 * time.Hour)) {
		t.Fatalf("start = %v", w.Start)
	}

	// Non-positive lookback falls back to a week.
	w = CollectionWindow(end, 0)
	if !w.Start.Equal(end.Add(-7 * 24 * time.Hour)) {
		t.Fatalf("default start = %v", w.Start)
	}
}
