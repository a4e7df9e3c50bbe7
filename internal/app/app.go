package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bobmatnyc/ai-power-rankings/internal/archive"
	"github.com/bobmatnyc/ai-power-rankings/internal/classifier"
	"github.com/bobmatnyc/ai-power-rankings/internal/config"
	"github.com/bobmatnyc/ai-power-rankings/internal/infrastructure/fetch"
	"github.com/bobmatnyc/ai-power-rankings/internal/infrastructure/llm"
	"github.com/bobmatnyc/ai-power-rankings/internal/infrastructure/scheduler"
	"github.com/bobmatnyc/ai-power-rankings/internal/infrastructure/storage"
	"github.com/bobmatnyc/ai-power-rankings/internal/infrastructure/telegram"
	"github.com/bobmatnyc/ai-power-rankings/internal/logging"
	"github.com/bobmatnyc/ai-power-rankings/internal/metrics"
	"github.com/bobmatnyc/ai-power-rankings/internal/ports"
	"github.com/bobmatnyc/ai-power-rankings/internal/source"
	"github.com/bobmatnyc/ai-power-rankings/internal/usecase"
)

// Application wires configuration to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	pipeline *usecase.Pipeline
	metrics  *metrics.Metrics
	db       *sql.DB
}

// New builds a runnable application instance from configuration.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	registry := source.NewRegistry()
	registry.Register(fetch.NewHackerNewsCollector(nil, cfg.Sources.HackerNews, cfg.Collection.RequestDelay.Std()))
	registry.Register(fetch.NewDevToCollector(nil, cfg.Sources.DevTo, cfg.Collection.RequestDelay.Std()))
	registry.Register(fetch.NewRSSCollector(nil, cfg.Sources.RSS, cfg.Collection.RequestDelay.Std()))

	recordSource := fetch.NewStrategySource(registry, cfg.Collection, baseLogger.With("component", "source"))
	store := archive.New(cfg.Archive.Dir, baseLogger.With("component", "archive"))

	var db *sql.DB
	var mirror ports.ArticleMirror
	if cfg.Database.DSN != "" {
		opened, err := sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		db = opened
		mirror = storage.NewPostgresMirror(db)
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" && cfg.Notifications.Telegram.ChatID != "" {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	var chatClient ports.ChatClient
	if cfg.OpenRouter.APIKey != "" {
		chatClient = llm.NewOpenRouterClient(cfg.OpenRouter)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(nil)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:     recordSource,
		Archive:    store,
		Classifier: classifier.New(toolRegistry(cfg.Tools)),
		Mirror:     mirror,
		Notifier:   notifier,
		ChatClient: chatClient,
		Metrics:    m,
		Collection: cfg.Collection,
		Logger:     baseLogger.With("component", "pipeline"),
	})

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		pipeline: pipeline,
		metrics:  m,
		db:       db,
	}, nil
}

// Run executes the pipeline once, or repeatedly when the scheduler is
// enabled. It blocks until the context ends or the single pass finishes.
func (a *Application) Run(ctx context.Context) error {
	if a.pipeline == nil {
		return nil
	}
	defer a.close()

	if a.cfg.Metrics.Enabled {
		go a.serveMetrics(ctx)
	}

	if !a.cfg.Scheduler.Enabled {
		now := time.Now().In(a.cfg.Scheduler.Location())
		_, err := a.pipeline.Run(ctx, usecase.CollectionWindow(now, a.cfg.Collection.Days))
		return err
	}

	driver := scheduler.NewIntervalScheduler(a.cfg.Scheduler.Interval.Std(), a.cfg.Scheduler.Location(), func(trigger time.Time) {
		window := usecase.CollectionWindow(trigger, a.cfg.Collection.Days)
		if _, err := a.pipeline.Run(ctx, window); err != nil {
			a.logger.Error("scheduled run failed", "error", err)
		}
	})

	runner := usecase.NewScheduler(driver, a.pipeline)
	if err := runner.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer runner.Stop()

	<-ctx.Done()
	return nil
}

func (a *Application) serveMetrics(ctx context.Context) {
	srv := &http.Server{
		Addr:    metrics.ListenAddr(a.cfg.Metrics.Port),
		Handler: metrics.Handler(nil),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		a.logger.Warn("metrics server stopped", "error", err)
	}
}

func (a *Application) close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("close database", "error", err)
		}
	}
}

// toolRegistry maps configured tool entries onto the classifier registry.
// Aliases compare lowercased; an empty configuration keeps the built-in
// taxonomy.
func toolRegistry(tools []config.ToolConfig) *classifier.Registry {
	if len(tools) == 0 {
		return nil
	}
	mapped := make([]classifier.Tool, 0, len(tools))
	for _, t := range tools {
		aliases := make([]string, 0, len(t.Aliases))
		for _, a := range t.Aliases {
			aliases = append(aliases, strings.ToLower(a))
		}
		mapped = append(mapped, classifier.Tool{ID: t.ID, Aliases: aliases})
	}
	return classifier.NewRegistry(mapped)
}
