package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/PuerkitoBio/goquery"

	"tonetracker/internal/dates"
	"tonetracker/internal/domain"
	"tonetracker/internal/minutes"
	"tonetracker/internal/scanner"
	"tonetracker/internal/textwin"
)

// minutesContentSelectors locate the minutes body on the page.
var minutesContentSelectors = []string{"div.page-content", "article", "main"}

// MinutesScanner fetches committee-minutes pages and splits each into
// per-member vote rationales. This is the richest source: minutes carry
// named rationale passages plus the aggregate vote breakdown.
type MinutesScanner struct {
	client   *http.Client
	splitter *minutes.Splitter
	windower *textwin.Windower
	logger   *slog.Logger
}

// NewMinutesScanner wires the splitter and windower.
func NewMinutesScanner(client *http.Client, splitter *minutes.Splitter, windower *textwin.Windower, logger *slog.Logger) *MinutesScanner {
	return &MinutesScanner{
		client:   defaultClient(client),
		splitter: splitter,
		windower: windower,
		logger:   logger,
	}
}

// Name identifies the strategy inside the registry.
func (s *MinutesScanner) Name() string { return "minutes" }

// Scan walks the configured meetings inside the lookback window. One
// unreachable meeting page is skipped, not fatal: remaining meetings still
// produce items and the page is retried on the next run.
func (s *MinutesScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.RawItem, error) {
	cutoff, bounded := req.Cutoff(nowFn())

	var items []domain.RawItem
	var firstErr error
	for _, meeting := range req.Meetings {
		day, ok := dates.Parse(meeting.Date)
		if !ok {
			if s.logger != nil {
				s.logger.Warn("meeting with unparsable date skipped", "source", req.SourceID, "date", meeting.Date)
			}
			continue
		}
		if bounded && day.Before(cutoff) {
			continue
		}

		meetingItems, err := s.scanMeeting(ctx, req, meeting)
		if err != nil {
			if s.logger != nil {
				s.logger.Error("minutes page failed", "source", req.SourceID, "date", meeting.Date, "error", err)
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		items = append(items, meetingItems...)
	}

	if len(items) == 0 && firstErr != nil {
		return nil, fmt.Errorf("source %s: %w", req.SourceID, firstErr)
	}
	if s.logger != nil {
		s.logger.Info("minutes scanned", "source", req.SourceID, "items", len(items))
	}
	return items, nil
}

func (s *MinutesScanner) scanMeeting(ctx context.Context, req scanner.Request, meeting scanner.Meeting) ([]domain.RawItem, error) {
	doc, err := fetchDocument(ctx, s.client, meeting.URL)
	if err != nil {
		return nil, err
	}
	doc.Find("nav, footer, header, script, style, aside, form, noscript").Remove()

	var content *goquery.Selection
	for _, sel := range minutesContentSelectors {
		if c := doc.Find(sel).First(); c.Length() > 0 {
			content = c
			break
		}
	}
	if content == nil {
		content = doc.Find("body").First()
	}
	if content.Length() == 0 {
		return nil, fmt.Errorf("no content in minutes page %s", meeting.URL)
	}

	fullText := blockText(content)
	day, _ := dates.Parse(meeting.Date)

	rationales := s.splitter.Split(fullText)
	if len(rationales) == 0 {
		// No per-member passages identified: pass the document through
		// unsplit so no content is lost.
		general := s.windower.Select(collapse(fullText))
		if len(general) < 200 {
			return nil, nil
		}
		return []domain.RawItem{{
			SourceID:    req.SourceID,
			URL:         meeting.URL,
			Title:       fmt.Sprintf("Minutes - General Discussion - %s", meeting.Date),
			Venue:       "MPC Meeting",
			PublishedAt: day,
			BodyText:    general,
			Kind:        domain.KindMinutesGeneral,
		}}, nil
	}

	items := make([]domain.RawItem, 0, len(rationales))
	for _, rat := range rationales {
		items = append(items, domain.RawItem{
			SourceID:    req.SourceID,
			URL:         meeting.URL,
			Title:       fmt.Sprintf("Minutes Vote Rationale - %s - %s", rat.Name, meeting.Date),
			Venue:       "MPC Meeting",
			PublishedAt: day,
			AuthorText:  rat.Name,
			BodyText:    rat.Text,
			Kind:        domain.KindMinutesRationale,
			Vote:        rat.Vote,
		})
	}
	return items, nil
}
