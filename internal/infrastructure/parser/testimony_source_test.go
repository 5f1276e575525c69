package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tonetracker/internal/domain"
	"tonetracker/internal/scanner"
)

const committeePage = `<!DOCTYPE html><html><body>
<ul>
<li>
  <a href="/oral-evidence/15021/html">Oral evidence: Bank of England Monetary Policy Reports</a>
  <span>Wednesday 19 August 2026</span>
</li>
<li>
  <a href="/publications/12345/report">Committee report publication with a date 3 March 2026</a>
</li>
<li>
  <a href="/oral-evidence/11000/html">Oral evidence: earlier session on the policy report</a>
  <span>Tuesday 14 January 2025</span>
</li>
</ul>
</body></html>`

func TestTestimonyScannerFindsOralEvidenceSessions(t *testing.T) {
	pinNow(t, time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(committeePage))
	}))
	defer server.Close()

	items, err := NewTestimonyScanner(nil, nil).Scan(context.Background(), scanner.Request{
		SourceID:     "tsc_testimony",
		URL:          server.URL,
		BaseURL:      "https://committees.example.org",
		LookbackDays: 30,
		Options:      map[string]string{"linkPattern": "oral-evidence"},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)

	got := items[0]
	assert.Equal(t, "https://committees.example.org/oral-evidence/15021/html", got.URL)
	assert.Equal(t, domain.KindTestimony, got.Kind)
	assert.Equal(t, "Treasury Select Committee", got.Venue)
	assert.Equal(t, time.Date(2026, 8, 19, 0, 0, 0, 0, time.UTC), got.PublishedAt)
	assert.Contains(t, got.Title, "Committee Testimony")
}
