// Package classifier assigns a category, tool mentions, and a relevance
// score to normalized news items. Classification is a pure function of the
// item's title and body: no I/O, no randomness, same input same output.
package classifier

import (
	"strings"

	"github.com/bobmatnyc/ai-power-rankings/internal/domain"
)

const (
	baseScore      = 0.5
	toolBoost      = 0.2
	toolBoostCap   = 2
	codingBoost    = 0.2
	aiBoost        = 0.1
	engagementNorm = 100.0
)

// Classifier enriches items against an immutable tool registry.
type Classifier struct {
	registry *Registry
}

// New builds a classifier. A nil registry falls back to the built-in
// taxonomy.
func New(registry *Registry) *Classifier {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Classifier{registry: registry}
}

// Classify derives the category, tool mentions, and relevance score for
// the item. It is total: an empty title and body still yield a valid
// (ai-general, no mentions, 0.5) result.
func (c *Classifier) Classify(item domain.NewsItem) domain.EnrichedItem {
	title := strings.ToLower(item.Title)
	combined := title + " " + strings.ToLower(item.Body)

	mentions := c.detectTools(title, combined)

	return domain.EnrichedItem{
		NewsItem:     item,
		Category:     categorize(combined),
		ToolMentions: mentions,
		Relevance:    relevance(item, combined, len(mentions)),
	}
}

// categorize returns the first matching category rule, or ai-general.
func categorize(combined string) domain.Category {
	for _, rule := range categoryRules {
		if containsAny(combined, rule.keywords) {
			return rule.category
		}
	}
	return domain.CategoryAIGeneral
}

// detectTools walks the registry in order so mention insertion order is
// stable across runs. A tool is "primary" when any of its aliases appears
// in the title, "mentioned" when one appears only in the body; primary
// wins when aliases of the same tool match at both tiers.
func (c *Classifier) detectTools(title, combined string) []domain.ToolMention {
	var mentions []domain.ToolMention
	for _, tool := range c.registry.Tools() {
		tier := domain.MentionTier("")
		for _, alias := range tool.Aliases {
			if strings.Contains(title, alias) {
				tier = domain.TierPrimary
				break
			}
			if strings.Contains(combined, alias) {
				tier = domain.TierMentioned
			}
		}
		if tier != "" {
			mentions = append(mentions, domain.ToolMention{ToolID: tool.ID, Tier: tier})
		}
	}
	return mentions
}

// relevance computes the heuristic score: base 0.5, +0.2 per mentioned
// tool capped at two tools, +0.2 for a coding keyword, +0.1 for an AI
// keyword, then blended toward the normalized engagement metric when one
// is present, and clamped to [0, 1].
func relevance(item domain.NewsItem, combined string, toolCount int) float64 {
	boost := 0.0

	if toolCount > 0 {
		if toolCount > toolBoostCap {
			toolCount = toolBoostCap
		}
		boost += toolBoost * float64(toolCount)
	}

	if containsAny(combined, codingKeywords) {
		boost += codingBoost
	}
	if containsAny(combined, aiKeywords) {
		boost += aiBoost
	}

	score := baseScore + boost

	if item.HasEngagement {
		normalized := float64(item.Engagement) / engagementNorm
		if normalized > 1.0 {
			normalized = 1.0
		}
		score = (score + normalized) / 2
	}

	if score > 1.0 {
		score = 1.0
	}
	if score < 0.0 {
		score = 0.0
	}
	return score
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
