package domain

import (
	"strings"
	"time"
	"unicode"
)

// SourceKind identifies a collector strategy. The short tag form of the
// kind prefixes every identifier derived from that source.
type SourceKind string

const (
	SourceHackerNews SourceKind = "hackernews"
	SourceDevTo      SourceKind = "devto"
	SourceRSS        SourceKind = "rss"
)

// Tag returns the identifier prefix for records of this kind.
func (k SourceKind) Tag() string {
	switch k {
	case SourceHackerNews:
		return "hn"
	default:
		return string(k)
	}
}

// DateRange bounds a collection pass. Both ends are inclusive.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// RawRecord is the loosely shaped payload a collector hands to the
// normalizer. Apart from the normalizer nothing inspects it.
type RawRecord struct {
	NativeID    string
	Title       string
	URL         string
	Summary     string
	Author      string
	Source      string
	Tags        []string
	PublishedAt time.Time

	// Engagement carries an upvote-style metric when the source has one.
	Engagement    int
	Comments      int
	HasEngagement bool
}

// SourceBatch groups the raw records fetched from one configured source.
type SourceBatch struct {
	Kind    SourceKind
	Name    string
	Records []RawRecord
}

// NewsItem is the canonical shape every raw record normalizes into.
// ID is immutable once assigned; two items with the same ID are the same
// logical article regardless of other field differences.
type NewsItem struct {
	ID          string
	Title       string
	URL         string
	Source      string
	PublishedAt time.Time
	Body        string
	Tags        []string

	Engagement    int
	HasEngagement bool
}

// Category is the closed classification taxonomy.
type Category string

const (
	CategoryProductLaunch Category = "product-launch"
	CategoryResearch      Category = "research"
	CategoryBusiness      Category = "business"
	CategoryTutorial      Category = "tutorial"
	CategoryComparison    Category = "comparison"
	CategoryUpdate        Category = "update"
	CategorySecurity      Category = "security"
	CategoryAIGeneral     Category = "ai-general"
)

// MentionTier grades how prominently a tool appears in an item.
type MentionTier string

const (
	TierPrimary   MentionTier = "primary"
	TierMentioned MentionTier = "mentioned"
)

// ToolMention is a detected reference to a canonical tool.
type ToolMention struct {
	ToolID string
	Tier   MentionTier
}

// EnrichedItem is a NewsItem plus the classifier's derived fields. The
// derived fields are a pure function of Title and Body.
type EnrichedItem struct {
	NewsItem
	Category     Category
	ToolMentions []ToolMention
	Relevance    float64
}

// ToolIDs returns the mentioned tool identifiers in detection order.
func (e EnrichedItem) ToolIDs() []string {
	ids := make([]string, 0, len(e.ToolMentions))
	for _, m := range e.ToolMentions {
		ids = append(ids, m.ToolID)
	}
	return ids
}

// ArticleRecord is the persisted form of an enriched item. Records are
// created once during merge and never mutated in place.
type ArticleRecord struct {
	ID           string    `json:"id"`
	Slug         string    `json:"slug"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Summary      string    `json:"summary"`
	Source       string    `json:"source"`
	SourceURL    string    `json:"source_url"`
	Tags         []string  `json:"tags"`
	ToolMentions []string  `json:"tool_mentions"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Date         time.Time `json:"date"`
}

// Month returns the YYYY-MM shard key for the record.
func (a ArticleRecord) Month() string {
	return a.Date.UTC().Format("2006-01")
}

// UpsertResult summarizes one archive merge pass. AddedRecords holds the
// records that were genuinely new, in batch order.
type UpsertResult struct {
	Added        int
	Skipped      int
	Months       []string
	AddedRecords []ArticleRecord
}

// MonthCount is one per-month entry in the archive index.
type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// ArchiveIndex is the derived summary view over all monthly shards. It is
// never edited directly, only rebuilt.
type ArchiveIndex struct {
	TotalArticles  int             `json:"total_articles"`
	LastUpdated    string          `json:"last_updated"`
	Months         []MonthCount    `json:"months"`
	RecentArticles []ArticleRecord `json:"recent_articles"`
}

const slugMaxWords = 8

// Slugify derives a URL-safe identifier from a title: the first eight
// words, lowercased, with runs of non-alphanumerics collapsed to dashes.
// Distinct titles may slugify identically; collisions are last-write-wins.
func Slugify(title string) string {
	words := strings.Fields(strings.ToLower(title))
	if len(words) > slugMaxWords {
		words = words[:slugMaxWords]
	}

	var b strings.Builder
	for _, r := range strings.Join(words, "-") {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('-')
		}
	}

	parts := strings.FieldsFunc(b.String(), func(r rune) bool { return r == '-' })
	return "news-" + strings.Join(parts, "-")
}
