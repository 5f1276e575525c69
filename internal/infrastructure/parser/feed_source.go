package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"tonetracker/internal/dates"
	"tonetracker/internal/domain"
	"tonetracker/internal/scanner"
)

// FeedScanner reads a speeches RSS/Atom feed and emits speech items.
type FeedScanner struct {
	parser *gofeed.Parser
	logger *slog.Logger
}

// NewFeedScanner wires a feed parser over the shared HTTP defaults.
func NewFeedScanner(client *http.Client, logger *slog.Logger) *FeedScanner {
	fp := gofeed.NewParser()
	fp.Client = defaultClient(client)
	fp.UserAgent = userAgent
	return &FeedScanner{parser: fp, logger: logger}
}

// Name identifies the strategy inside the registry.
func (s *FeedScanner) Name() string { return "feed" }

// Scan fetches the feed and keeps items inside the lookback window. A broken
// feed fails this source only; the caller treats it as a skipped page.
func (s *FeedScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.RawItem, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("source %s: no feed url", req.SourceID)
	}

	feed, err := s.parser.ParseURLWithContext(req.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("source %s: parse feed: %w", req.SourceID, err)
	}

	cutoff, bounded := req.Cutoff(nowFn())
	items := make([]domain.RawItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		if it == nil || strings.TrimSpace(it.Title) == "" {
			continue
		}

		published, ok := itemDate(it)
		if !ok {
			continue
		}
		if bounded && published.Before(cutoff) {
			continue
		}

		link := feedLink(it)
		if link == "" {
			if s.logger != nil {
				s.logger.Warn("feed item without usable link", "source", req.SourceID, "title", it.Title)
			}
			continue
		}

		items = append(items, domain.RawItem{
			SourceID:    req.SourceID,
			URL:         link,
			Title:       collapse(it.Title),
			PublishedAt: published,
			AuthorText:  authorText(it),
			Kind:        domain.KindSpeech,
		})
	}

	if s.logger != nil {
		s.logger.Info("feed scanned", "source", req.SourceID, "items", len(items))
	}
	return items, nil
}

func itemDate(it *gofeed.Item) (time.Time, bool) {
	if it.PublishedParsed != nil {
		t := it.PublishedParsed.UTC()
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}
	if t, ok := dates.Parse(it.Published); ok {
		return t, true
	}
	if it.UpdatedParsed != nil {
		t := it.UpdatedParsed.UTC()
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

func feedLink(it *gofeed.Item) string {
	if strings.HasPrefix(it.Link, "http") {
		return strings.TrimSpace(it.Link)
	}
	if strings.HasPrefix(it.GUID, "http") {
		return strings.TrimSpace(it.GUID)
	}
	return ""
}

func authorText(it *gofeed.Item) string {
	parts := []string{it.Description, it.Title}
	for _, a := range it.Authors {
		if a != nil {
			parts = append(parts, a.Name)
		}
	}
	return collapse(strings.Join(parts, " "))
}
