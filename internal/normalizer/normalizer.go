// Package normalizer maps raw source records into the canonical NewsItem
// shape. Missing fields degrade to zero values; the only failure mode is a
// record with nothing to derive a stable identifier from.
package normalizer

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/bobmatnyc/ai-power-rankings/internal/domain"
)

// ErrMalformedRecord marks a record with no native id, no URL, and no
// title. Such records are dropped individually; the batch continues.
var ErrMalformedRecord = errors.New("malformed record: no id, url, or title")

// hashLen is the truncated hex length of synthetic identifiers.
const hashLen = 12

// Normalize converts one raw record into a canonical item. Identifier
// policy, in order of preference: the source-native id prefixed with the
// source tag, a content hash of the URL, a content hash of the title.
func Normalize(raw domain.RawRecord, kind domain.SourceKind) (domain.NewsItem, error) {
	tag := kind.Tag()

	var id string
	switch {
	case strings.TrimSpace(raw.NativeID) != "":
		id = tag + "-" + strings.TrimSpace(raw.NativeID)
	case strings.TrimSpace(raw.URL) != "":
		id = tag + "-" + hashID(raw.URL)
	case strings.TrimSpace(raw.Title) != "":
		id = tag + "-" + hashID(raw.Title)
	default:
		return domain.NewsItem{}, ErrMalformedRecord
	}

	source := raw.Source
	if source == "" {
		source = string(kind)
	}

	return domain.NewsItem{
		ID:            id,
		Title:         strings.TrimSpace(raw.Title),
		URL:           strings.TrimSpace(raw.URL),
		Source:        source,
		PublishedAt:   raw.PublishedAt,
		Body:          strings.TrimSpace(raw.Summary),
		Tags:          raw.Tags,
		Engagement:    raw.Engagement,
		HasEngagement: raw.HasEngagement,
	}, nil
}

// hashID returns the first 12 hex characters of the SHA-256 digest. The
// hash is fixed so synthetic ids stay reproducible across runs, machines,
// and implementations.
func hashID(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:hashLen]
}
