package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bobmatnyc/ai-power-rankings/internal/domain"
	"github.com/bobmatnyc/ai-power-rankings/internal/ports"
)

const digestLimit = 15

// Notifier posts a digest of newly archived records to a Telegram chat via
// the bot API.
type Notifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  "https://api.telegram.org",
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// PublishDigest formats the batch as a Markdown message and posts it.
func (n *Notifier) PublishDigest(ctx context.Context, records []domain.ArticleRecord) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}
	if len(records) == 0 {
		return nil
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", formatDigest(records))
	form.Set("parse_mode", "Markdown")
	form.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}

func formatDigest(records []domain.ArticleRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*AI coding news: %d new article(s)*\n", len(records))

	shown := records
	if len(shown) > digestLimit {
		shown = shown[:digestLimit]
	}
	for _, rec := range shown {
		fmt.Fprintf(&b, "\n• [%s](%s) | %s", escapeMarkdown(rec.Title), rec.SourceURL, rec.Source)
	}
	if len(records) > digestLimit {
		fmt.Fprintf(&b, "\n\n…and %d more", len(records)-digestLimit)
	}
	return b.String()
}

func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer("[", "\\[", "]", "\\]", "*", "\\*", "_", "\\_")
	return replacer.Replace(s)
}
