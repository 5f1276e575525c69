package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tonetracker/internal/domain"
	"tonetracker/internal/minutes"
	"tonetracker/internal/scanner"
	"tonetracker/internal/textwin"
)

const minutesPage = `<!DOCTYPE html><html><body>
<nav><a href="/">Home</a></nav>
<div class="page-content">
<p>Five members (Andrew Bailey, Sarah Breeden, Clare Lombardelli, Huw Pill and Megan Greene)
voted in favour of maintaining Bank Rate at 3.75%.</p>
<p>Four members (Swati Dhingra, Dave Ramsden, Alan Taylor and Catherine L. Mann)
voted against, preferring a reduction of 25 basis points to 3.5%.</p>
<p>Huw Pill: The persistence of services price inflation warrants maintaining the
current degree of restriction until the disinflation process is secure.</p>
<p>Swati Dhingra: Weak demand and a loosening labour market argue for an immediate
reduction in Bank Rate to avoid an unnecessarily deep slowdown.</p>
</div>
</body></html>`

func newMinutesScanner() *MinutesScanner {
	registry := domain.NewMemberRegistry(domain.DefaultMembers())
	return NewMinutesScanner(nil,
		minutes.NewSplitter(registry, nil),
		textwin.New(nil, 0, 0), nil)
}

func TestMinutesScannerSplitsVoteRationales(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(minutesPage))
	}))
	defer server.Close()

	items, err := newMinutesScanner().Scan(context.Background(), scanner.Request{
		SourceID: "mpc_minutes",
		Meetings: []scanner.Meeting{{Date: "2026-02-05", URL: server.URL}},
	})
	require.NoError(t, err)
	require.Len(t, items, 2)

	pill := items[0]
	assert.Equal(t, domain.KindMinutesRationale, pill.Kind)
	assert.Equal(t, "Huw Pill", pill.AuthorText)
	assert.Equal(t, domain.VoteHold, pill.Vote)
	assert.Equal(t, "MPC Meeting", pill.Venue)
	assert.Contains(t, pill.BodyText, "services price inflation")
	assert.Contains(t, pill.Title, "2026-02-05")

	dhingra := items[1]
	assert.Equal(t, "Swati Dhingra", dhingra.AuthorText)
	assert.Equal(t, domain.VoteCut, dhingra.Vote)
}

func TestMinutesScannerFallsBackToGeneralDiscussion(t *testing.T) {
	page := `<html><body><div class="page-content"><p>` +
		strings.Repeat("The Committee judged that monetary policy needed to remain restrictive. ", 6) +
		`</p></div></body></html>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer server.Close()

	items, err := newMinutesScanner().Scan(context.Background(), scanner.Request{
		SourceID: "mpc_minutes",
		Meetings: []scanner.Meeting{{Date: "2026-02-05", URL: server.URL}},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, domain.KindMinutesGeneral, items[0].Kind)
	assert.NotEmpty(t, items[0].BodyText)
}

func TestMinutesScannerSkipsUnreachableMeeting(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(minutesPage))
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer bad.Close()

	items, err := newMinutesScanner().Scan(context.Background(), scanner.Request{
		SourceID: "mpc_minutes",
		Meetings: []scanner.Meeting{
			{Date: "2025-12-18", URL: bad.URL},
			{Date: "2026-02-05", URL: good.URL},
		},
	})
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestMinutesScannerAllMeetingsFailingReportsError(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer bad.Close()

	_, err := newMinutesScanner().Scan(context.Background(), scanner.Request{
		SourceID: "mpc_minutes",
		Meetings: []scanner.Meeting{{Date: "2026-02-05", URL: bad.URL}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mpc_minutes")
}
