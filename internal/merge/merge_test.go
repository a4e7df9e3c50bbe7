package merge

import (
	"reflect"
	"testing"
	"time"

	"github.com/bobmatnyc/ai-power-rankings/internal/domain"
)

func record(id string, day int) domain.ArticleRecord {
	return domain.ArticleRecord{
		ID:   id,
		Date: time.Date(2025, time.August, day, 0, 0, 0, 0, time.UTC),
	}
}

func ids(records []domain.ArticleRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestMergeDedupByID(t *testing.T) {
	t.Parallel()

	existing := []domain.ArticleRecord{record("hn-111", 20)}
	incoming := []domain.ArticleRecord{
		record("hn-111", 25), // same id, different payload: still a duplicate
		record("hn-222", 22),
	}

	merged := Merge(existing, incoming)

	want := []string{"hn-222", "hn-111"}
	if !reflect.DeepEqual(ids(merged), want) {
		t.Errorf("merged ids = %v, want %v", ids(merged), want)
	}

	// The archived payload wins; the duplicate's fields are discarded.
	for _, r := range merged {
		if r.ID == "hn-111" && r.Date.Day() != 20 {
			t.Errorf("existing record mutated: date day = %d, want 20", r.Date.Day())
		}
	}
}

func TestMergeOrdering(t *testing.T) {
	t.Parallel()

	merged := Merge(
		[]domain.ArticleRecord{record("a", 25), record("b", 20)},
		[]domain.ArticleRecord{record("c", 22)},
	)

	want := []string{"a", "c", "b"}
	if !reflect.DeepEqual(ids(merged), want) {
		t.Errorf("merged ids = %v, want %v", ids(merged), want)
	}
}

func TestMergeStableOnEqualDates(t *testing.T) {
	t.Parallel()

	merged := Merge(
		[]domain.ArticleRecord{record("first", 25), record("second", 25)},
		[]domain.ArticleRecord{record("third", 25)},
	)

	want := []string{"first", "second", "third"}
	if !reflect.DeepEqual(ids(merged), want) {
		t.Errorf("merged ids = %v, want %v", ids(merged), want)
	}
}

func TestMergeIdempotent(t *testing.T) {
	t.Parallel()

	existing := []domain.ArticleRecord{record("x", 25)}
	batch := []domain.ArticleRecord{record("y", 22), record("z", 24)}

	once := Merge(existing, batch)
	twice := Merge(once, batch)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("merge not idempotent:\nonce:  %v\ntwice: %v", ids(once), ids(twice))
	}
}

func TestMergeAdditiveOnly(t *testing.T) {
	t.Parallel()

	existing := []domain.ArticleRecord{record("keep-1", 25), record("keep-2", 10)}
	merged := Merge(existing, nil)

	if len(merged) != len(existing) {
		t.Fatalf("merge changed length with empty incoming: %d", len(merged))
	}
	if !reflect.DeepEqual(merged, existing) {
		t.Error("merge altered existing records")
	}
}

func TestDedupeBatch(t *testing.T) {
	t.Parallel()

	batch := []domain.ArticleRecord{record("a", 25), record("a", 20), record("b", 22)}
	deduped := DedupeBatch(batch)

	want := []string{"a", "b"}
	if !reflect.DeepEqual(ids(deduped), want) {
		t.Errorf("deduped ids = %v, want %v", ids(deduped), want)
	}
	if deduped[0].Date.Day() != 25 {
		t.Errorf("first occurrence not kept: day = %d", deduped[0].Date.Day())
	}
}
