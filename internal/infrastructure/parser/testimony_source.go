package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"tonetracker/internal/dates"
	"tonetracker/internal/domain"
	"tonetracker/internal/scanner"
)

// TestimonyScanner walks a parliamentary-committee work page for oral
// evidence sessions featuring committee members.
type TestimonyScanner struct {
	client *http.Client
	logger *slog.Logger
}

// NewTestimonyScanner wires an HTTP client.
func NewTestimonyScanner(client *http.Client, logger *slog.Logger) *TestimonyScanner {
	return &TestimonyScanner{client: defaultClient(client), logger: logger}
}

// Name identifies the strategy inside the registry.
func (s *TestimonyScanner) Name() string { return "testimony" }

// Scan fetches the committee page and returns dated testimony items.
func (s *TestimonyScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.RawItem, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("source %s: no committee url", req.SourceID)
	}

	doc, err := fetchDocument(ctx, s.client, req.URL)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", req.SourceID, err)
	}

	linkPattern := req.Options["linkPattern"]
	if linkPattern == "" {
		linkPattern = "oral-evidence"
	}

	cutoff, bounded := req.Cutoff(nowFn())
	seen := map[string]struct{}{}
	var items []domain.RawItem

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !strings.Contains(strings.ToLower(href), linkPattern) {
			return
		}
		title := collapse(a.Text())
		if len(title) < minLinkTitle {
			return
		}
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}

		around := parentContext(a)
		published, ok := dates.Parse(around)
		if !ok {
			return
		}
		if bounded && published.Before(cutoff) {
			return
		}

		items = append(items, domain.RawItem{
			SourceID:    req.SourceID,
			URL:         absoluteURL(req.BaseURL, href),
			Title:       "Committee Testimony - " + truncate(title, 100),
			Venue:       "Treasury Select Committee",
			PublishedAt: published,
			AuthorText:  around,
			Kind:        domain.KindTestimony,
		})
	})

	if s.logger != nil {
		s.logger.Info("testimony scanned", "source", req.SourceID, "items", len(items))
	}
	return items, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n])
}
