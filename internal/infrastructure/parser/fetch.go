package parser

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	fetchTimeout = 45 * time.Second
	userAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

var spaceRe = regexp.MustCompile(`\s+`)

// nowFn is swapped out by tests that pin the lookback cutoff.
var nowFn = time.Now

func defaultClient(client *http.Client) *http.Client {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	return client
}

func fetchDocument(ctx context.Context, client *http.Client, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-GB,en;q=0.5")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

// absoluteURL joins a possibly relative href against a base.
func absoluteURL(base, href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return strings.TrimSuffix(base, "/") + href
}

// collapse normalizes runs of whitespace to single spaces.
func collapse(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// blockText extracts element text block-by-block so passage markers keep
// their line boundaries. Falls back to raw text for selector-less content.
func blockText(sel *goquery.Selection) string {
	var blocks []string
	sel.Find("p, li, h1, h2, h3, h4").Each(func(_ int, b *goquery.Selection) {
		if t := collapse(b.Text()); t != "" {
			blocks = append(blocks, t)
		}
	})
	if len(blocks) == 0 {
		return collapse(sel.Text())
	}
	return strings.Join(blocks, "\n")
}

// parentContext returns the text of the nearest list-ish ancestor, which is
// where listing pages keep dates and speaker bylines.
func parentContext(a *goquery.Selection) string {
	par := a.ParentsFiltered("li, div, article, tr, p").First()
	if par.Length() == 0 {
		return collapse(a.Text())
	}
	return collapse(par.Text())
}
