// Package merge combines ordered article collections by stable identity.
package merge

import (
	"sort"

	"github.com/bobmatnyc/ai-power-rankings/internal/domain"
)

// Merge appends every incoming record whose id is absent from existing,
// then stable-sorts the combined sequence by date descending. Membership
// is checked against the original existing set only, which makes the
// operation idempotent: merge(X, merge(X, Y)) == merge(X, Y). Existing
// records are never removed or mutated.
func Merge(existing, incoming []domain.ArticleRecord) []domain.ArticleRecord {
	seen := make(map[string]struct{}, len(existing))
	for _, rec := range existing {
		seen[rec.ID] = struct{}{}
	}

	merged := make([]domain.ArticleRecord, len(existing), len(existing)+len(incoming))
	copy(merged, existing)

	for _, rec := range incoming {
		if _, dup := seen[rec.ID]; dup {
			continue
		}
		merged = append(merged, rec)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Date.After(merged[j].Date)
	})
	return merged
}

// DedupeBatch drops same-id duplicates inside one batch, keeping the first
// occurrence. Merge itself only guards against ids already archived, so
// batches are deduplicated before they reach it.
func DedupeBatch(records []domain.ArticleRecord) []domain.ArticleRecord {
	seen := make(map[string]struct{}, len(records))
	out := records[:0:0]
	for _, rec := range records {
		if _, dup := seen[rec.ID]; dup {
			continue
		}
		seen[rec.ID] = struct{}{}
		out = append(out, rec)
	}
	return out
}
