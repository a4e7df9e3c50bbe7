package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration decodes YAML scalars like "200ms" or "6h".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped standard duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "NEWS_COLLECTOR_CONFIG"
	archiveDirEnv     = "NEWS_ARCHIVE_DIR"
	databaseDSNEnv    = "DATABASE_DSN"
	openRouterKeyEnv  = "OPENROUTER_API_KEY"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	Archive       ArchiveConfig      `yaml:"archive"`
	Database      DatabaseConfig     `yaml:"database"`
	Collection    CollectionConfig   `yaml:"collection"`
	Sources       SourcesConfig      `yaml:"sources"`
	Tools         []ToolConfig       `yaml:"tools"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
	OpenRouter    OpenRouterConfig   `yaml:"openrouter"`
	Metrics       MetricsConfig      `yaml:"metrics"`
	Logging       LoggingConfig      `yaml:"logging"`
}

// ArchiveConfig locates the on-disk news archive. All paths are explicit
// configuration; nothing reads ambient global state.
type ArchiveConfig struct {
	Dir string `yaml:"dir"`
}

// DatabaseConfig describes the optional Postgres mirror of published
// articles. An empty DSN disables the mirror.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// CollectionConfig tunes one collection pass.
type CollectionConfig struct {
	// Days is the lookback window for a scheduled or one-shot run.
	Days int `yaml:"days"`
	// Sources lists the collector strategies to run, in order.
	Sources []string `yaml:"sources"`
	// RequestDelay is the pause between consecutive calls to one API.
	RequestDelay Duration `yaml:"requestDelay"`
	// MaxConcurrentSources bounds parallel source fetches. 1 is serial.
	MaxConcurrentSources int `yaml:"maxConcurrentSources"`
	// RelevanceFloor drops items scoring below it before the archive
	// write. Zero or negative disables the filter.
	RelevanceFloor float64 `yaml:"relevanceFloor"`
	// KeepGeneralItems keeps items with zero tool mentions as general AI
	// news instead of dropping them before the archive write.
	KeepGeneralItems bool `yaml:"keepGeneralItems"`
}

// SourcesConfig groups the per-collector settings.
type SourcesConfig struct {
	HackerNews HackerNewsConfig `yaml:"hackernews"`
	DevTo      DevToConfig      `yaml:"devto"`
	RSS        RSSConfig        `yaml:"rss"`
}

// HackerNewsConfig drives the Hacker News collector: the Firebase item
// API for top stories plus Algolia keyword searches.
type HackerNewsConfig struct {
	BaseURL    string   `yaml:"baseUrl"`
	AlgoliaURL string   `yaml:"algoliaUrl"`
	StoryLimit int      `yaml:"storyLimit"`
	Keywords   []string `yaml:"keywords"`
	Queries    []string `yaml:"queries"`
}

// DevToConfig drives the Dev.to articles API collector.
type DevToConfig struct {
	BaseURL string   `yaml:"baseUrl"`
	Tags    []string `yaml:"tags"`
	PerPage int      `yaml:"perPage"`
}

// RSSConfig lists the feeds polled by the RSS collector.
type RSSConfig struct {
	Feeds      []FeedConfig `yaml:"feeds"`
	MaxPerFeed int          `yaml:"maxPerFeed"`
}

// FeedConfig is a single named feed endpoint.
type FeedConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// ToolConfig maps a canonical tool id to its ordered alias list. When the
// list is empty the built-in registry is used.
type ToolConfig struct {
	ID      string   `yaml:"id"`
	Aliases []string `yaml:"aliases"`
}

// SchedulerConfig defines recurring collection runs.
type SchedulerConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Interval Duration       `yaml:"interval"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send digest messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// OpenRouterConfig defines how to push batch digests to an
// OpenRouter-compatible chat completions API. Empty APIKey disables it.
type OpenRouterConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// MetricsConfig controls the Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// LoggingConfig controls log level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads YAML configuration (if present) and applies environment
// overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Collection.Sources) == 0 {
		cfg.Collection.Sources = defaultConfig().Collection.Sources
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(archiveDirEnv); v != "" {
		c.Archive.Dir = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(openRouterKeyEnv); v != "" {
		c.OpenRouter.APIKey = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Archive.Dir != "" {
		base.Archive = override.Archive
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Collection.Days > 0 {
		base.Collection.Days = override.Collection.Days
	}
	if len(override.Collection.Sources) > 0 {
		base.Collection.Sources = override.Collection.Sources
	}
	if override.Collection.RequestDelay > 0 {
		base.Collection.RequestDelay = override.Collection.RequestDelay
	}
	if override.Collection.MaxConcurrentSources > 0 {
		base.Collection.MaxConcurrentSources = override.Collection.MaxConcurrentSources
	}
	if override.Collection.RelevanceFloor != 0 {
		base.Collection.RelevanceFloor = override.Collection.RelevanceFloor
	}
	base.Collection.KeepGeneralItems = override.Collection.KeepGeneralItems

	if override.Sources.HackerNews.BaseURL != "" {
		base.Sources.HackerNews.BaseURL = override.Sources.HackerNews.BaseURL
	}
	if override.Sources.HackerNews.AlgoliaURL != "" {
		base.Sources.HackerNews.AlgoliaURL = override.Sources.HackerNews.AlgoliaURL
	}
	if override.Sources.HackerNews.StoryLimit > 0 {
		base.Sources.HackerNews.StoryLimit = override.Sources.HackerNews.StoryLimit
	}
	if len(override.Sources.HackerNews.Keywords) > 0 {
		base.Sources.HackerNews.Keywords = override.Sources.HackerNews.Keywords
	}
	if len(override.Sources.HackerNews.Queries) > 0 {
		base.Sources.HackerNews.Queries = override.Sources.HackerNews.Queries
	}

	if override.Sources.DevTo.BaseURL != "" {
		base.Sources.DevTo.BaseURL = override.Sources.DevTo.BaseURL
	}
	if len(override.Sources.DevTo.Tags) > 0 {
		base.Sources.DevTo.Tags = override.Sources.DevTo.Tags
	}
	if override.Sources.DevTo.PerPage > 0 {
		base.Sources.DevTo.PerPage = override.Sources.DevTo.PerPage
	}

	if len(override.Sources.RSS.Feeds) > 0 {
		base.Sources.RSS.Feeds = override.Sources.RSS.Feeds
	}
	if override.Sources.RSS.MaxPerFeed > 0 {
		base.Sources.RSS.MaxPerFeed = override.Sources.RSS.MaxPerFeed
	}

	if len(override.Tools) > 0 {
		base.Tools = override.Tools
	}

	base.Scheduler.Enabled = override.Scheduler.Enabled
	if override.Scheduler.Interval > 0 {
		base.Scheduler.Interval = override.Scheduler.Interval
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.OpenRouter.Endpoint != "" {
		base.OpenRouter.Endpoint = override.OpenRouter.Endpoint
	}
	if override.OpenRouter.Model != "" {
		base.OpenRouter.Model = override.OpenRouter.Model
	}
	if override.OpenRouter.APIKey != "" {
		base.OpenRouter.APIKey = override.OpenRouter.APIKey
	}
	if override.OpenRouter.SystemPrompt != "" {
		base.OpenRouter.SystemPrompt = override.OpenRouter.SystemPrompt
	}

	base.Metrics.Enabled = override.Metrics.Enabled
	if override.Metrics.Port > 0 {
		base.Metrics.Port = override.Metrics.Port
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Archive:  ArchiveConfig{Dir: "data/json/news"},
		Database: DatabaseConfig{DSN: ""},
		Collection: CollectionConfig{
			Days:                 7,
			Sources:              []string{"hackernews", "devto", "rss"},
			RequestDelay:         Duration(200 * time.Millisecond),
			MaxConcurrentSources: 1,
			RelevanceFloor:       0.3,
			KeepGeneralItems:     false,
		},
		Sources: SourcesConfig{
			HackerNews: HackerNewsConfig{
				BaseURL:    "https://hacker-news.firebaseio.com/v0",
				AlgoliaURL: "https://hn.algolia.com/api/v1/search_by_date",
				StoryLimit: 100,
				Keywords: []string{
					"ai", "artificial intelligence", "machine learning",
					"gpt", "claude", "copilot", "llm",
				},
				Queries: []string{
					"ai coding", "code assistant", "github copilot", "claude",
					"chatgpt programming", "ai developer tools", "code generation",
					"llm coding", "ai ide", "cursor editor", "windsurf", "codeium",
				},
			},
			DevTo: DevToConfig{
				BaseURL: "https://dev.to/api/articles",
				Tags: []string{
					"ai", "machinelearning", "github", "copilot",
					"chatgpt", "claude", "programming",
				},
				PerPage: 10,
			},
			RSS: RSSConfig{
				Feeds: []FeedConfig{
					{Name: "MIT AI News", URL: "https://news.mit.edu/rss/topic/artificial-intelligence2"},
					{Name: "AI News", URL: "https://www.artificialintelligence-news.com/feed/"},
					{Name: "VentureBeat AI", URL: "https://venturebeat.com/ai/feed/"},
				},
				MaxPerFeed: 20,
			},
		},
		Scheduler: SchedulerConfig{
			Enabled:  false,
			Interval: Duration(24 * time.Hour),
			Timezone: defaultTimezone,
			location: tz,
		},
		OpenRouter: OpenRouterConfig{
			Endpoint:     "https://openrouter.ai/api/v1/chat/completions",
			Model:        "anthropic/claude-3.5-haiku",
			APIKey:       "",
			SystemPrompt: "You summarize weekly AI coding tool news digests.",
		},
		Metrics: MetricsConfig{Enabled: false, Port: 9091},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}
