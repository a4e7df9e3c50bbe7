package archive

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/bobmatnyc/ai-power-rankings/internal/domain"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s := New(t.TempDir(), nil)
	s.now = func() time.Time {
		return time.Date(2025, time.August, 26, 10, 0, 0, 0, time.UTC)
	}
	return s
}

func testRecord(id string, day int) domain.ArticleRecord {
	date := time.Date(2025, time.August, day, 8, 0, 0, 0, time.UTC)
	return domain.ArticleRecord{
		ID:        id,
		Slug:      "news-" + id,
		Title:     "title " + id,
		Source:    "HackerNews",
		CreatedAt: date,
		UpdatedAt: date,
		Date:      date,
	}
}

func TestUpsertBatchWritesAllProjections(t *testing.T) {
	t.Parallel()

	s := testStore(t)
	records := []domain.ArticleRecord{
		testRecord("hn-1", 25),
		testRecord("hn-2", 20),
		{
			ID:     "hn-3",
			Source: "HackerNews",
			Date:   time.Date(2025, time.July, 30, 8, 0, 0, 0, time.UTC),
		},
	}

	result, err := s.UpsertBatch(records)
	if err != nil {
		t.Fatalf("UpsertBatch error: %v", err)
	}
	if result.Added != 3 || result.Skipped != 0 {
		t.Fatalf("result = %+v, want 3 added, 0 skipped", result)
	}
	if !reflect.DeepEqual(result.Months, []string{"2025-07", "2025-08"}) {
		t.Fatalf("months = %v, want [2025-07 2025-08]", result.Months)
	}

	flat, err := s.LoadFlat()
	if err != nil {
		t.Fatalf("LoadFlat error: %v", err)
	}
	if len(flat.Articles) != 3 {
		t.Fatalf("flat log has %d articles, want 3", len(flat.Articles))
	}
	if flat.Articles[0].ID != "hn-1" {
		t.Errorf("flat log not date descending: first id = %s", flat.Articles[0].ID)
	}
	if flat.Metadata.TotalArticles != 3 {
		t.Errorf("flat metadata total = %d, want 3", flat.Metadata.TotalArticles)
	}
	if !reflect.DeepEqual(flat.Metadata.Sources, []string{"HackerNews"}) {
		t.Errorf("flat metadata sources = %v", flat.Metadata.Sources)
	}

	aug, err := s.LoadShard("2025-08")
	if err != nil {
		t.Fatalf("LoadShard error: %v", err)
	}
	if len(aug.Articles) != 2 || aug.Month != "2025-08" {
		t.Errorf("2025-08 shard = %d articles, month %q", len(aug.Articles), aug.Month)
	}

	jul, err := s.LoadShard("2025-07")
	if err != nil {
		t.Fatalf("LoadShard error: %v", err)
	}
	if len(jul.Articles) != 1 {
		t.Errorf("2025-07 shard has %d articles, want 1", len(jul.Articles))
	}

	for _, want := range []string{
		filepath.Join("articles", "2025", "08", "hn-1.json"),
		filepath.Join("articles", "2025", "08", "hn-2.json"),
		filepath.Join("articles", "2025", "07", "hn-3.json"),
	} {
		if _, err := os.Stat(filepath.Join(s.root, want)); err != nil {
			t.Errorf("missing per-article file %s: %v", want, err)
		}
	}
}

func TestUpsertBatchIdempotent(t *testing.T) {
	t.Parallel()

	s := testStore(t)
	batch := []domain.ArticleRecord{testRecord("hn-1", 25), testRecord("hn-2", 22)}

	if _, err := s.UpsertBatch(batch); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	second, err := s.UpsertBatch(batch)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if second.Added != 0 || second.Skipped != 2 {
		t.Errorf("second pass = %+v, want 0 added, 2 skipped", second)
	}

	flat, err := s.LoadFlat()
	if err != nil {
		t.Fatalf("LoadFlat error: %v", err)
	}
	if len(flat.Articles) != 2 {
		t.Errorf("flat log has %d articles after replay, want 2", len(flat.Articles))
	}
}

func TestUpsertBatchSkipsArchivedDuplicates(t *testing.T) {
	t.Parallel()

	s := testStore(t)
	if _, err := s.UpsertBatch([]domain.ArticleRecord{testRecord("hn-111", 20)}); err != nil {
		t.Fatalf("seed upsert: %v", err)
	}

	result, err := s.UpsertBatch([]domain.ArticleRecord{
		testRecord("hn-111", 25), // same id, any payload
		testRecord("hn-222", 22),
	})
	if err != nil {
		t.Fatalf("UpsertBatch error: %v", err)
	}
	if result.Added != 1 || result.Skipped != 1 {
		t.Errorf("result = %+v, want 1 added, 1 skipped", result)
	}
	if len(result.AddedRecords) != 1 || result.AddedRecords[0].ID != "hn-222" {
		t.Errorf("added records = %+v, want only hn-222", result.AddedRecords)
	}

	flat, _ := s.LoadFlat()
	want := []string{"hn-222", "hn-111"}
	got := make([]string, len(flat.Articles))
	for i, rec := range flat.Articles {
		got[i] = rec.ID
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("flat ids = %v, want %v", got, want)
	}
}

func TestUpsertBatchBacksUpBeforeOverwrite(t *testing.T) {
	t.Parallel()

	s := testStore(t)
	if _, err := s.UpsertBatch([]domain.ArticleRecord{testRecord("hn-1", 25)}); err != nil {
		t.Fatalf("seed upsert: %v", err)
	}

	before, err := os.ReadFile(s.flatPath())
	if err != nil {
		t.Fatalf("read flat log: %v", err)
	}

	if _, err := s.UpsertBatch([]domain.ArticleRecord{testRecord("hn-2", 24)}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		t.Fatalf("read root: %v", err)
	}
	var backup string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "news.json.backup-") {
			backup = e.Name()
		}
	}
	if backup == "" {
		t.Fatal("no backup file created")
	}

	saved, err := os.ReadFile(filepath.Join(s.root, backup))
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if string(saved) != string(before) {
		t.Error("backup does not match the pre-overwrite flat log")
	}
}

func TestUpsertBatchAbortsWhenBackupFails(t *testing.T) {
	t.Parallel()

	s := testStore(t)
	if _, err := s.UpsertBatch([]domain.ArticleRecord{testRecord("hn-1", 25)}); err != nil {
		t.Fatalf("seed upsert: %v", err)
	}
	before, err := os.ReadFile(s.flatPath())
	if err != nil {
		t.Fatalf("read flat log: %v", err)
	}

	// Occupy the backup target path with a directory so the copy fails.
	blocker := filepath.Join(s.root, "news.json.backup-"+s.now().Format(backupFormat))
	if err := os.Mkdir(blocker, 0o755); err != nil {
		t.Fatalf("mkdir blocker: %v", err)
	}

	if _, err := s.UpsertBatch([]domain.ArticleRecord{testRecord("hn-2", 24)}); err == nil {
		t.Fatal("expected backup failure to abort the batch")
	}

	after, err := os.ReadFile(s.flatPath())
	if err != nil {
		t.Fatalf("read flat log: %v", err)
	}
	if string(after) != string(before) {
		t.Error("flat log mutated despite backup failure")
	}
	if _, err := os.Stat(filepath.Join(s.root, articleDir, "2025", "08", "hn-2.json")); err == nil {
		t.Error("article file written despite backup failure")
	}
}

func TestRebuildIndexFromShards(t *testing.T) {
	t.Parallel()

	s := testStore(t)
	_, err := s.UpsertBatch([]domain.ArticleRecord{
		testRecord("hn-1", 25),
		testRecord("hn-2", 20),
		{ID: "hn-3", Date: time.Date(2025, time.July, 30, 8, 0, 0, 0, time.UTC)},
	})
	if err != nil {
		t.Fatalf("UpsertBatch error: %v", err)
	}

	idx, err := s.RebuildIndex()
	if err != nil {
		t.Fatalf("RebuildIndex error: %v", err)
	}

	if idx.TotalArticles != 3 {
		t.Errorf("total = %d, want 3", idx.TotalArticles)
	}
	wantMonths := []domain.MonthCount{{Month: "2025-08", Count: 2}, {Month: "2025-07", Count: 1}}
	if !reflect.DeepEqual(idx.Months, wantMonths) {
		t.Errorf("months = %v, want %v", idx.Months, wantMonths)
	}
	if len(idx.RecentArticles) != 3 || idx.RecentArticles[0].ID != "hn-1" {
		t.Errorf("recent = %v", idx.RecentArticles)
	}
	if idx.LastUpdated == "" {
		t.Error("last_updated empty, want max shard stamp")
	}
}

func TestRebuildIndexDeterministic(t *testing.T) {
	t.Parallel()

	s := testStore(t)
	if _, err := s.UpsertBatch([]domain.ArticleRecord{testRecord("hn-1", 25), testRecord("hn-2", 20)}); err != nil {
		t.Fatalf("UpsertBatch error: %v", err)
	}

	if _, err := s.RebuildIndex(); err != nil {
		t.Fatalf("first rebuild: %v", err)
	}
	first, err := os.ReadFile(s.indexPath())
	if err != nil {
		t.Fatalf("read index: %v", err)
	}

	// Rebuilding discards the old index entirely; without intervening
	// writes the output bytes are identical.
	s.now = func() time.Time { return time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC) }
	if _, err := s.RebuildIndex(); err != nil {
		t.Fatalf("second rebuild: %v", err)
	}
	second, err := os.ReadFile(s.indexPath())
	if err != nil {
		t.Fatalf("read index: %v", err)
	}

	if string(first) != string(second) {
		t.Error("index bytes differ across rebuilds of identical shards")
	}
}

func TestRebuildIndexCapsRecent(t *testing.T) {
	t.Parallel()

	s := testStore(t)
	var batch []domain.ArticleRecord
	for day := 1; day <= 14; day++ {
		batch = append(batch, testRecord(string(rune('a'+day-1)), day))
	}
	if _, err := s.UpsertBatch(batch); err != nil {
		t.Fatalf("UpsertBatch error: %v", err)
	}

	idx, err := s.RebuildIndex()
	if err != nil {
		t.Fatalf("RebuildIndex error: %v", err)
	}
	if len(idx.RecentArticles) != 10 {
		t.Errorf("recent = %d records, want 10", len(idx.RecentArticles))
	}
	if idx.RecentArticles[0].Date.Day() != 14 {
		t.Errorf("most recent day = %d, want 14", idx.RecentArticles[0].Date.Day())
	}
}

func TestLoadFlatMissingFile(t *testing.T) {
	t.Parallel()

	s := New(t.TempDir(), nil)
	col, err := s.LoadFlat()
	if err != nil {
		t.Fatalf("LoadFlat error: %v", err)
	}
	if len(col.Articles) != 0 {
		t.Errorf("expected empty archive, got %d articles", len(col.Articles))
	}
}
