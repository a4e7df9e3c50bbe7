package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bobmatnyc/ai-power-rankings/internal/config"
	"github.com/bobmatnyc/ai-power-rankings/internal/domain"
	"github.com/bobmatnyc/ai-power-rankings/internal/source"
)

// DevToCollector queries the public Dev.to articles API once per configured
// tag.
type DevToCollector struct {
	client *http.Client
	cfg    config.DevToConfig
	delay  time.Duration
}

// NewDevToCollector wires an HTTP client; delay throttles consecutive tag
// queries.
func NewDevToCollector(client *http.Client, cfg config.DevToConfig, delay time.Duration) *DevToCollector {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &DevToCollector{client: client, cfg: cfg, delay: delay}
}

// Name identifies the strategy inside the registry.
func (d *DevToCollector) Name() string {
	return "devto"
}

// Kind reports the source family for id tagging.
func (d *DevToCollector) Kind() domain.SourceKind {
	return domain.SourceDevTo
}

type devToArticle struct {
	ID                int64     `json:"id"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	URL               string    `json:"url"`
	PublishedAt       string    `json:"published_at"`
	TagList           []string  `json:"tag_list"`
	PositiveReactions int       `json:"positive_reactions_count"`
	CommentsCount     int       `json:"comments_count"`
	User              devToUser `json:"user"`
}

type devToUser struct {
	Name string `json:"name"`
}

// Collect walks the configured tags and keeps articles published inside the
// window, deduplicated by native article id across tags.
func (d *DevToCollector) Collect(ctx context.Context, req source.Request) ([]domain.RawRecord, error) {
	seen := map[int64]struct{}{}
	var records []domain.RawRecord

	for _, tag := range d.cfg.Tags {
		articles, err := d.fetchTag(ctx, tag)
		if err != nil {
			return nil, fmt.Errorf("tag %s: %w", tag, err)
		}

		for _, art := range articles {
			if _, ok := seen[art.ID]; ok {
				continue
			}
			published, err := time.Parse(time.RFC3339, art.PublishedAt)
			if err != nil || !req.Window.Contains(published.UTC()) {
				continue
			}
			seen[art.ID] = struct{}{}
			records = append(records, domain.RawRecord{
				NativeID:      strconv.FormatInt(art.ID, 10),
				Title:         art.Title,
				URL:           art.URL,
				Summary:       art.Description,
				Author:        art.User.Name,
				Source:        "Dev.to",
				Tags:          art.TagList,
				PublishedAt:   published.UTC(),
				Engagement:    art.PositiveReactions,
				Comments:      art.CommentsCount,
				HasEngagement: true,
			})
		}
		d.pause(ctx)
	}

	return records, nil
}

func (d *DevToCollector) fetchTag(ctx context.Context, tag string) ([]devToArticle, error) {
	endpoint, err := url.Parse(d.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %s: %w", d.cfg.BaseURL, err)
	}
	q := endpoint.Query()
	q.Set("tag", tag)
	perPage := d.cfg.PerPage
	if perPage <= 0 {
		perPage = 10
	}
	q.Set("per_page", strconv.Itoa(perPage))
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request articles: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dev.to returned %s", resp.Status)
	}

	var articles []devToArticle
	if err := json.NewDecoder(resp.Body).Decode(&articles); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return articles, nil
}

func (d *DevToCollector) pause(ctx context.Context) {
	if d.delay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d.delay):
	}
}
