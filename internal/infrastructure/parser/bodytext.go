package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"tonetracker/internal/ports"
	"tonetracker/internal/textwin"
)

// contentSelectors are tried in order; the first element with substantial
// text wins. Speech pages share a consistent structure but the fallbacks
// cover older templates.
var contentSelectors = []string{
	"div.page-content",
	"div[class*='article']",
	"div[class*='speech']",
	"div#content",
	"article",
	"main",
	"div.col-sm-8",
}

// clutterSelectors are removed before extraction.
var clutterSelectors = []string{
	"div.cookie-banner", "div.related-links", "div.footnotes",
	"div.breadcrumb", "ul.pagination",
}

const minContentChars = 300

// BodyTextFetcher retrieves a document and extracts its policy-relevant
// window.
type BodyTextFetcher struct {
	client   *http.Client
	windower *textwin.Windower
	logger   *slog.Logger
}

var _ ports.BodyFetcher = (*BodyTextFetcher)(nil)

// NewBodyTextFetcher wires an HTTP client and the window selector.
func NewBodyTextFetcher(client *http.Client, windower *textwin.Windower, logger *slog.Logger) *BodyTextFetcher {
	return &BodyTextFetcher{client: defaultClient(client), windower: windower, logger: logger}
}

// FetchBody downloads the page, strips clutter and returns the densest
// policy window of the main content.
func (f *BodyTextFetcher) FetchBody(ctx context.Context, url string) (string, error) {
	doc, err := fetchDocument(ctx, f.client, url)
	if err != nil {
		return "", fmt.Errorf("fetch body %s: %w", url, err)
	}

	doc.Find("nav, footer, header, script, style, aside, form, noscript").Remove()
	for _, sel := range clutterSelectors {
		doc.Find(sel).Remove()
	}

	for _, sel := range contentSelectors {
		el := doc.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		raw := collapse(el.Text())
		if len(raw) > minContentChars {
			return f.windower.Select(raw), nil
		}
	}

	body := collapse(doc.Find("body").Text())
	if body == "" {
		return "", fmt.Errorf("fetch body %s: no extractable text", url)
	}
	return f.windower.Select(body), nil
}
