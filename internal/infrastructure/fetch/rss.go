package fetch

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/bobmatnyc/ai-power-rankings/internal/config"
	"github.com/bobmatnyc/ai-power-rankings/internal/domain"
	"github.com/bobmatnyc/ai-power-rankings/internal/source"
)

// RSSCollector polls configured RSS 2.0 and Atom feeds. Feed entries carry
// no native ids worth trusting, so NativeID stays empty and ids derive from
// the entry URL downstream.
type RSSCollector struct {
	client *http.Client
	cfg    config.RSSConfig
	delay  time.Duration
}

// NewRSSCollector wires an HTTP client; delay throttles consecutive feed
// requests.
func NewRSSCollector(client *http.Client, cfg config.RSSConfig, delay time.Duration) *RSSCollector {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &RSSCollector{client: client, cfg: cfg, delay: delay}
}

// Name identifies the strategy inside the registry.
func (r *RSSCollector) Name() string {
	return "rss"
}

// Kind reports the source family for id tagging.
func (r *RSSCollector) Kind() domain.SourceKind {
	return domain.SourceRSS
}

type rssFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Creator     string `xml:"creator"`
	PubDate     string `xml:"pubDate"`
}

type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title     string     `xml:"title"`
	Links     []atomLink `xml:"link"`
	Summary   string     `xml:"summary"`
	Content   string     `xml:"content"`
	Author    atomAuthor `xml:"author"`
	Updated   string     `xml:"updated"`
	Published string     `xml:"published"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

// Collect polls every configured feed and keeps entries published inside
// the window, capped per feed.
func (r *RSSCollector) Collect(ctx context.Context, req source.Request) ([]domain.RawRecord, error) {
	var records []domain.RawRecord
	for i, feed := range r.cfg.Feeds {
		if i > 0 {
			r.pause(ctx)
		}
		items, err := r.fetchFeed(ctx, feed)
		if err != nil {
			return nil, fmt.Errorf("feed %s: %w", feed.Name, err)
		}

		kept := 0
		for _, rec := range items {
			if !req.Window.Contains(rec.PublishedAt) {
				continue
			}
			if r.cfg.MaxPerFeed > 0 && kept >= r.cfg.MaxPerFeed {
				break
			}
			kept++
			records = append(records, rec)
		}
	}
	return records, nil
}

func (r *RSSCollector) fetchFeed(ctx context.Context, feed config.FeedConfig) ([]domain.RawRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}
	return parseFeed(string(body), feed.Name)
}

// parseFeed accepts either an RSS 2.0 document or an Atom document.
func parseFeed(body, feedName string) ([]domain.RawRecord, error) {
	var rss rssFeed
	if err := xml.Unmarshal([]byte(body), &rss); err == nil && len(rss.Channel.Items) > 0 {
		return fromRSSItems(rss.Channel.Items, feedName), nil
	}

	var atom atomFeed
	if err := xml.Unmarshal([]byte(body), &atom); err == nil && len(atom.Entries) > 0 {
		return fromAtomEntries(atom.Entries, feedName), nil
	}

	return nil, fmt.Errorf("unrecognized feed format for %s", feedName)
}

func fromRSSItems(items []rssItem, feedName string) []domain.RawRecord {
	records := make([]domain.RawRecord, 0, len(items))
	for _, item := range items {
		records = append(records, domain.RawRecord{
			Title:       strings.TrimSpace(item.Title),
			URL:         strings.TrimSpace(item.Link),
			Summary:     stripHTML(item.Description),
			Author:      strings.TrimSpace(item.Creator),
			Source:      feedName,
			PublishedAt: parseFeedDate(item.PubDate),
		})
	}
	return records
}

func fromAtomEntries(entries []atomEntry, feedName string) []domain.RawRecord {
	records := make([]domain.RawRecord, 0, len(entries))
	for _, entry := range entries {
		summary := entry.Summary
		if summary == "" {
			summary = entry.Content
		}
		published := entry.Published
		if published == "" {
			published = entry.Updated
		}
		records = append(records, domain.RawRecord{
			Title:       strings.TrimSpace(entry.Title),
			URL:         atomEntryLink(entry.Links),
			Summary:     stripHTML(summary),
			Author:      strings.TrimSpace(entry.Author.Name),
			Source:      feedName,
			PublishedAt: parseFeedDate(published),
		})
	}
	return records
}

func atomEntryLink(links []atomLink) string {
	for _, l := range links {
		if l.Rel == "" || l.Rel == "alternate" {
			return l.Href
		}
	}
	if len(links) > 0 {
		return links[0].Href
	}
	return ""
}

// stripHTML reduces feed markup to plain text. Feeds routinely embed full
// article bodies as HTML inside description elements.
func stripHTML(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.Contains(raw, "<") {
		return raw
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return raw
	}
	return strings.TrimSpace(doc.Text())
}

var feedDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2006-01-02T15:04:05Z",
}

func parseFeedDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range feedDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func (r *RSSCollector) pause(ctx context.Context) {
	if r.delay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(r.delay):
	}
}
