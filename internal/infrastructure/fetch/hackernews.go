package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bobmatnyc/ai-power-rankings/internal/config"
	"github.com/bobmatnyc/ai-power-rankings/internal/domain"
	"github.com/bobmatnyc/ai-power-rankings/internal/source"
)

const userAgent = "ai-power-rankings-news/1.0"

// HackerNewsCollector pulls AI coding stories from two endpoints: the
// Firebase item API for the current top stories and the Algolia
// search_by_date API for keyword queries over the collection window.
type HackerNewsCollector struct {
	client *http.Client
	cfg    config.HackerNewsConfig
	delay  time.Duration
}

// NewHackerNewsCollector wires an HTTP client; delay throttles consecutive
// item requests against the Firebase API.
func NewHackerNewsCollector(client *http.Client, cfg config.HackerNewsConfig, delay time.Duration) *HackerNewsCollector {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &HackerNewsCollector{client: client, cfg: cfg, delay: delay}
}

// Name identifies the strategy inside the registry.
func (h *HackerNewsCollector) Name() string {
	return "hackernews"
}

// Kind reports the source family for id tagging.
func (h *HackerNewsCollector) Kind() domain.SourceKind {
	return domain.SourceHackerNews
}

type hnItem struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Text        string `json:"text"`
	By          string `json:"by"`
	Score       int    `json:"score"`
	Descendants int    `json:"descendants"`
	Time        int64  `json:"time"`
	Type        string `json:"type"`
}

type algoliaResponse struct {
	Hits []algoliaHit `json:"hits"`
}

type algoliaHit struct {
	ObjectID    string `json:"objectID"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	StoryText   string `json:"story_text"`
	Author      string `json:"author"`
	Points      int    `json:"points"`
	NumComments int    `json:"num_comments"`
	CreatedAtI  int64  `json:"created_at_i"`
}

// Collect merges the top-story scan and the keyword searches, deduplicated
// by native story id.
func (h *HackerNewsCollector) Collect(ctx context.Context, req source.Request) ([]domain.RawRecord, error) {
	seen := map[string]struct{}{}
	var records []domain.RawRecord

	top, err := h.collectTopStories(ctx, req.Window)
	if err != nil {
		return nil, fmt.Errorf("top stories: %w", err)
	}
	for _, rec := range top {
		if _, ok := seen[rec.NativeID]; ok {
			continue
		}
		seen[rec.NativeID] = struct{}{}
		records = append(records, rec)
	}

	for _, query := range h.cfg.Queries {
		hits, err := h.searchRecent(ctx, query, req.Window)
		if err != nil {
			return nil, fmt.Errorf("query %q: %w", query, err)
		}
		for _, rec := range hits {
			if _, ok := seen[rec.NativeID]; ok {
				continue
			}
			seen[rec.NativeID] = struct{}{}
			records = append(records, rec)
		}
		h.pause(ctx)
	}

	return records, nil
}

func (h *HackerNewsCollector) collectTopStories(ctx context.Context, window domain.DateRange) ([]domain.RawRecord, error) {
	var ids []int64
	if err := h.getJSON(ctx, h.cfg.BaseURL+"/topstories.json", &ids); err != nil {
		return nil, err
	}

	limit := h.cfg.StoryLimit
	if limit <= 0 || limit > len(ids) {
		limit = len(ids)
	}

	var records []domain.RawRecord
	for _, id := range ids[:limit] {
		var item hnItem
		if err := h.getJSON(ctx, fmt.Sprintf("%s/item/%d.json", h.cfg.BaseURL, id), &item); err != nil {
			return nil, err
		}
		h.pause(ctx)

		if item.Type != "story" || item.Title == "" {
			continue
		}
		if !matchesKeywords(item.Title, h.cfg.Keywords) {
			continue
		}
		published := time.Unix(item.Time, 0).UTC()
		if !window.Contains(published) {
			continue
		}

		link := item.URL
		if link == "" {
			link = fmt.Sprintf("https://news.ycombinator.com/item?id=%d", item.ID)
		}
		records = append(records, domain.RawRecord{
			NativeID:      strconv.FormatInt(item.ID, 10),
			Title:         item.Title,
			URL:           link,
			Summary:       item.Text,
			Author:        item.By,
			Source:        "HackerNews",
			PublishedAt:   published,
			Engagement:    item.Score,
			Comments:      item.Descendants,
			HasEngagement: true,
		})
	}

	return records, nil
}

func (h *HackerNewsCollector) searchRecent(ctx context.Context, query string, window domain.DateRange) ([]domain.RawRecord, error) {
	endpoint, err := url.Parse(h.cfg.AlgoliaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid search url %s: %w", h.cfg.AlgoliaURL, err)
	}
	q := endpoint.Query()
	q.Set("query", query)
	q.Set("tags", "story")
	q.Set("numericFilters", fmt.Sprintf("created_at_i>%d", window.Start.Unix()))
	endpoint.RawQuery = q.Encode()

	var resp algoliaResponse
	if err := h.getJSON(ctx, endpoint.String(), &resp); err != nil {
		return nil, err
	}

	var records []domain.RawRecord
	for _, hit := range resp.Hits {
		if hit.Title == "" {
			continue
		}
		published := time.Unix(hit.CreatedAtI, 0).UTC()
		if !window.Contains(published) {
			continue
		}

		link := hit.URL
		if link == "" {
			link = "https://news.ycombinator.com/item?id=" + hit.ObjectID
		}
		records = append(records, domain.RawRecord{
			NativeID:      hit.ObjectID,
			Title:         hit.Title,
			URL:           link,
			Summary:       hit.StoryText,
			Author:        hit.Author,
			Source:        "HackerNews",
			PublishedAt:   published,
			Engagement:    hit.Points,
			Comments:      hit.NumComments,
			HasEngagement: true,
		})
	}

	return records, nil
}

func (h *HackerNewsCollector) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("hackernews returned %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (h *HackerNewsCollector) pause(ctx context.Context) {
	if h.delay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(h.delay):
	}
}

func matchesKeywords(title string, keywords []string) bool {
	lower := strings.ToLower(title)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
