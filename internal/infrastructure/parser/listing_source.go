package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"tonetracker/internal/dates"
	"tonetracker/internal/domain"
	"tonetracker/internal/scanner"
)

// skipPatterns filters navigation and asset links out of the fallback walk.
var skipPatterns = []string{
	"/about/", "/careers/", "/education/", "/media-center", "/publications/",
	"/data/", "/banking/", "/supervision/", "/search", "/contact", "/privacy",
	".pdf", ".xlsx", ".csv", "/feeds/", "/rss/", "#", "javascript:", "mailto:",
}

var (
	urlDateRe  = regexp.MustCompile(`(20\d{2})[-/](\d{1,2})[-/](\d{1,2})`)
	urlMonthRe = regexp.MustCompile(`/(?:speech|speeches)/(\d{4})/([a-z]+)/`)
)

const minLinkTitle = 10

// ListingScanner walks an HTML listing page and extracts speech links. It
// makes no assumption about page structure beyond anchors with dated
// surroundings; the link pattern is per-source config.
type ListingScanner struct {
	client *http.Client
	logger *slog.Logger
}

// NewListingScanner wires an HTTP client.
func NewListingScanner(client *http.Client, logger *slog.Logger) *ListingScanner {
	return &ListingScanner{client: defaultClient(client), logger: logger}
}

// Name identifies the strategy inside the registry.
func (s *ListingScanner) Name() string { return "listing" }

// Scan fetches the listing page and returns dated speech items inside the
// lookback window.
func (s *ListingScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.RawItem, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("source %s: no listing url", req.SourceID)
	}

	doc, err := fetchDocument(ctx, s.client, req.URL)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", req.SourceID, err)
	}

	linkPattern := req.Options["linkPattern"]
	if linkPattern == "" {
		linkPattern = "/speech/"
	}

	cutoff, bounded := req.Cutoff(nowFn())
	seen := map[string]struct{}{}
	var items []domain.RawItem

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		title := collapse(a.Text())
		if title == "" || len(title) < minLinkTitle {
			return
		}
		hl := strings.ToLower(href)
		if !strings.Contains(hl, linkPattern) {
			return
		}
		for _, p := range skipPatterns {
			if strings.Contains(hl, p) {
				return
			}
		}
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}

		around := parentContext(a)
		published, ok := dates.Parse(around)
		if !ok {
			published, ok = dates.Parse(title)
		}
		if !ok {
			published, ok = dateFromURL(hl)
		}
		if !ok {
			return
		}
		if bounded && published.Before(cutoff) {
			return
		}

		items = append(items, domain.RawItem{
			SourceID:    req.SourceID,
			URL:         absoluteURL(req.BaseURL, href),
			Title:       title,
			PublishedAt: published,
			AuthorText:  around,
			Kind:        domain.KindSpeech,
		})
	})

	if s.logger != nil {
		s.logger.Info("listing scanned", "source", req.SourceID, "items", len(items))
	}
	return items, nil
}

// dateFromURL recovers a date from slugs like /speech/2026/february/... or
// embedded 2026-02-05 segments.
func dateFromURL(href string) (time.Time, bool) {
	if m := urlDateRe.FindStringSubmatch(href); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
		}
	}
	if m := urlMonthRe.FindStringSubmatch(href); m != nil {
		return dates.Parse("1 " + m[2] + " " + m[1])
	}
	return time.Time{}, false
}
