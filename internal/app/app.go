package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tonetracker/internal/config"
	"tonetracker/internal/domain"
	"tonetracker/internal/infrastructure/llm"
	"tonetracker/internal/infrastructure/parser"
	"tonetracker/internal/infrastructure/scheduler"
	"tonetracker/internal/infrastructure/storage"
	"tonetracker/internal/infrastructure/telegram"
	"tonetracker/internal/logging"
	"tonetracker/internal/minutes"
	"tonetracker/internal/ports"
	"tonetracker/internal/scanner"
	"tonetracker/internal/textwin"
	"tonetracker/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	pipeline *usecase.Pipeline
	logger   *slog.Logger
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	members := buildRoster(cfg.Members)
	windower := textwin.New(cfg.Windowing.Keywords, cfg.Windowing.MaxChars, cfg.Windowing.Stride)
	splitter := minutes.NewSplitter(members, baseLogger.With("component", "splitter"))

	registry := scanner.NewRegistry()
	registry.Register(parser.NewFeedScanner(nil, baseLogger.With("component", "scanner.feed")))
	registry.Register(parser.NewListingScanner(nil, baseLogger.With("component", "scanner.listing")))
	registry.Register(parser.NewMinutesScanner(nil, splitter, windower, baseLogger.With("component", "scanner.minutes")))
	registry.Register(parser.NewTestimonyScanner(nil, baseLogger.With("component", "scanner.testimony")))

	source := parser.NewStrategySource(registry, cfg.Sources, cfg.Pipeline.SourceWorkers, baseLogger.With("component", "source"))
	bodies := parser.NewBodyTextFetcher(nil, windower, baseLogger.With("component", "bodies"))
	scorer := llm.NewClient(cfg.Scorer, cfg.Context, baseLogger.With("component", "scorer"))
	store := storage.NewCorpusStore(cfg.Store.CorpusPath, baseLogger.With("component", "store"))
	attention := storage.NewAttentionList(cfg.Store.AttentionPath, baseLogger.With("component", "attention"))

	var notifier ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID)
	}

	var supplement func() (domain.Corpus, error)
	if path := cfg.Store.SupplementPath; path != "" {
		supplement = func() (domain.Corpus, error) { return storage.ReadCorpusFile(path) }
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:     source,
		Bodies:     bodies,
		Scorer:     scorer,
		Repository: store,
		Attention:  attention,
		Notifier:   notifier,
		Members:    members,
		Supplement: supplement,
		Config:     cfg.Pipeline,
		Logger:     baseLogger.With("component", "pipeline"),
	})
	return &Application{cfg: cfg, pipeline: pipeline, logger: baseLogger}
}

// Run executes one pipeline pass, or keeps running on the configured
// schedule until the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if a.pipeline == nil {
		return nil
	}

	params := usecase.RunParams{
		LookbackDays: a.cfg.Pipeline.LookbackDays,
		Backfill:     a.cfg.Pipeline.Backfill,
		DryRun:       a.cfg.Pipeline.DryRun,
	}

	if !a.cfg.Scheduler.Enabled {
		_, err := a.pipeline.Run(ctx, params)
		return err
	}

	driver := scheduler.NewIntervalScheduler(
		time.Duration(a.cfg.Scheduler.IntervalHours)*time.Hour,
		a.cfg.Scheduler.Location())
	sched := usecase.NewScheduler(driver, a.pipeline, params, a.logger.With("component", "scheduler"))
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	<-ctx.Done()
	return sched.Stop(context.Background())
}

// Rescore re-runs scoring for entries recorded under a stale policy context.
func (a *Application) Rescore(ctx context.Context) error {
	if a.pipeline == nil {
		return nil
	}
	n, err := a.pipeline.Rescore(ctx)
	if err != nil {
		return err
	}
	a.logger.Info("rescore finished", "rewritten", n)
	return nil
}

// buildRoster merges config-declared members over the built-in roster.
// Config wins by key, so aliases can be extended without a rebuild.
func buildRoster(overrides []config.MemberConfig) *domain.MemberRegistry {
	byKey := map[string]domain.MemberIdentity{}
	var order []string
	for _, m := range domain.DefaultMembers() {
		byKey[m.Key] = m
		order = append(order, m.Key)
	}
	for _, o := range overrides {
		if o.Key == "" {
			continue
		}
		if _, known := byKey[o.Key]; !known {
			order = append(order, o.Key)
		}
		byKey[o.Key] = domain.MemberIdentity{
			Key:         o.Key,
			DisplayName: o.DisplayName,
			Aliases:     o.Aliases,
			Role:        domain.Role(o.Role),
			Former:      o.Former,
		}
	}

	members := make([]domain.MemberIdentity, 0, len(order))
	for _, key := range order {
		members = append(members, byKey[key])
	}
	return domain.NewMemberRegistry(members)
}
