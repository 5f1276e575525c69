package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tonetracker/internal/scanner"
)

const speechListing = `<!DOCTYPE html><html><body>
<nav><a href="/about/careers">Careers at the Bank</a></nav>
<ul>
<li>
  <a href="/speech/2026/august/pill-inflation">Inflation and the policy outlook</a>
  <span>Speech by Huw Pill</span><span>20 August 2026</span>
</li>
<li>
  <a href="/speech/2024/march/older-remarks">Some considerably older remarks</a>
  <span>1 March 2024</span>
</li>
<li>
  <a href="/speech/2026/august/url-dated-remarks">Remarks dated only by their slug</a>
</li>
<li>
  <a href="/speech/2026/august/pill-inflation">Inflation and the policy outlook</a>
  <span>20 August 2026</span>
</li>
</ul>
</body></html>`

func TestListingScannerExtractsDatedSpeechLinks(t *testing.T) {
	pinNow(t, time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(speechListing))
	}))
	defer server.Close()

	items, err := NewListingScanner(nil, nil).Scan(context.Background(), scanner.Request{
		SourceID:     "boe_speech_list",
		URL:          server.URL,
		BaseURL:      "https://example.org",
		LookbackDays: 30,
		Options:      map[string]string{"linkPattern": "/speech/"},
	})
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "https://example.org/speech/2026/august/pill-inflation", items[0].URL)
	assert.Equal(t, time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC), items[0].PublishedAt)
	assert.Contains(t, items[0].AuthorText, "Huw Pill")

	// Undated anchors fall back to the date embedded in the slug.
	assert.Equal(t, "https://example.org/speech/2026/august/url-dated-remarks", items[1].URL)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), items[1].PublishedAt)
}

func TestDateFromURL(t *testing.T) {
	got, ok := dateFromURL("/news/2026-02-05/statement")
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC), got)

	got, ok = dateFromURL("/speech/2026/february/remarks")
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), got)

	_, ok = dateFromURL("/speech/undated/remarks")
	assert.False(t, ok)
}
