package parser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"tonetracker/internal/config"
	"tonetracker/internal/domain"
	"tonetracker/internal/ports"
	"tonetracker/internal/scanner"
)

// StrategySource implements ports.ItemSource via registered scanner
// strategies. Sources run concurrently with a small bound; one failing
// source is reported and skipped, never fatal for the window.
type StrategySource struct {
	registry *scanner.Registry
	sources  []config.SourceConfig
	workers  int
	logger   *slog.Logger
}

var _ ports.ItemSource = (*StrategySource)(nil)

// NewStrategySource wires the scanner registry with config-defined sources.
func NewStrategySource(reg *scanner.Registry, sources []config.SourceConfig, workers int, log *slog.Logger) *StrategySource {
	if workers <= 0 {
		workers = 2
	}
	return &StrategySource{
		registry: reg,
		sources:  sources,
		workers:  workers,
		logger:   log,
	}
}

// FetchWindow executes every configured source for the lookback window and
// aggregates items plus per-source failures.
func (s *StrategySource) FetchWindow(ctx context.Context, lookbackDays int) ([]domain.RawItem, []error) {
	if s.registry == nil {
		return nil, []error{fmt.Errorf("scanner registry is not configured")}
	}

	s.debug("fetch window", "sources", len(s.sources), "lookback_days", lookbackDays)

	var (
		mu         sync.Mutex
		aggregated []domain.RawItem
		failures   []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, src := range s.sources {
		src := src
		g.Go(func() error {
			strategy, err := s.registry.Resolve(src.Scanner)
			if err != nil {
				mu.Lock()
				failures = append(failures, fmt.Errorf("source %s: %w", src.Name, err))
				mu.Unlock()
				return nil
			}

			req := scanner.Request{
				SourceID:     src.Name,
				URL:          src.URL,
				BaseURL:      src.BaseURL,
				LookbackDays: lookbackDays,
				Meetings:     toScannerMeetings(src.Meetings),
				Options:      src.Options,
			}

			results, err := strategy.Scan(gctx, req)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
				return nil
			}
			for i := range results {
				if results[i].SourceID == "" {
					results[i].SourceID = src.Name
				}
			}
			s.debug("source produced items", "source", src.Name, "count", len(results))
			aggregated = append(aggregated, results...)
			return nil
		})
	}
	_ = g.Wait()

	s.debug("strategy source done", "total_items", len(aggregated), "failed_sources", len(failures))
	return aggregated, failures
}

func toScannerMeetings(cfg []config.MeetingConfig) []scanner.Meeting {
	meetings := make([]scanner.Meeting, 0, len(cfg))
	for _, m := range cfg {
		meetings = append(meetings, scanner.Meeting{Date: m.Date, URL: m.URL})
	}
	return meetings
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
