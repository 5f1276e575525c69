// Package dates parses the loosely formatted publication dates found on
// central-bank sites and feeds. Upstream pages mix UK, US and ISO styles,
// often with weekday prefixes, ordinal suffixes and time-of-day tails.
package dates

import (
	"regexp"
	"strings"
	"time"
)

var layouts = []string{
	"2 January 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2006-01-02",
	"02/01/2006",
	"January 2006",
	"2006-01-02T15:04:05",
}

var (
	spaceRe    = regexp.MustCompile(`\s+`)
	weekdayRe  = regexp.MustCompile(`^[A-Za-z]{3,9},\s*`)
	clockRe    = regexp.MustCompile(`\s+\d{2}:\d{2}(:\d{2})?.*$`)
	ordinalRe  = regexp.MustCompile(`(\d)(st|nd|rd|th)\b`)
	tzOffsetRe = regexp.MustCompile(`[+-]\d{2}:\d{2}$`)
	ukStyleRe  = regexp.MustCompile(`\d{1,2}\s+[A-Za-z]+\s+\d{4}`)
	usStyleRe  = regexp.MustCompile(`[A-Za-z]+\s+\d{1,2},?\s+\d{4}`)
	isoRe      = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
)

// Parse extracts a calendar date from free text. The zero time and false are
// returned when nothing date-like can be found.
func Parse(text string) (time.Time, bool) {
	text = spaceRe.ReplaceAllString(strings.TrimSpace(text), " ")
	if text == "" {
		return time.Time{}, false
	}

	cleaned := weekdayRe.ReplaceAllString(text, "")
	cleaned = clockRe.ReplaceAllString(cleaned, "")
	cleaned = ordinalRe.ReplaceAllString(cleaned, "$1")
	cleaned = tzOffsetRe.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)

	head := cleaned
	if len(head) > 30 {
		head = head[:30]
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, head); err == nil {
			return day(t), true
		}
	}

	// Fall back to scanning for an embedded date.
	for _, re := range []*regexp.Regexp{ukStyleRe, usStyleRe} {
		if m := re.FindString(cleaned); m != "" && m != cleaned {
			if t, ok := Parse(m); ok {
				return t, true
			}
		}
	}
	if m := isoRe.FindString(cleaned); m != "" {
		if t, err := time.Parse("2006-01-02", m); err == nil {
			return day(t), true
		}
	}
	return time.Time{}, false
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
