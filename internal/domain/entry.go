package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"
)

// Kind classifies the document a corpus entry was derived from.
type Kind string

const (
	KindSpeech           Kind = "speech"
	KindMinutesDocument  Kind = "minutes_document"
	KindMinutesRationale Kind = "minutes_rationale"
	KindMinutesGeneral   Kind = "minutes_general"
	KindTestimony        Kind = "testimony"
)

// Vote records a member's stated decision when the source document carries one.
// Empty means the source did not state a vote; it is never inferred.
type Vote string

const (
	VoteHold   Vote = "hold"
	VoteCut    Vote = "cut"
	VoteAbsent Vote = "absent"
)

// GeneralMemberKey files unattributed minutes_general entries. It is the one
// member key that bypasses roster resolution.
const GeneralMemberKey = "mpc_general"

// Score range shared by all three dimensions.
const (
	ScoreMin = -100
	ScoreMax = 100
)

// Composite weights. They sum to 1.0 and are part of the corpus contract:
// every persisted composite must equal Composite(stance, balance, direction).
const (
	WeightStance    = 0.30
	WeightBalance   = 0.35
	WeightDirection = 0.35
)

// RawItem is one fetched document before scoring. Transient: it becomes zero
// or more ScoredEntry values and is then discarded.
type RawItem struct {
	SourceID    string
	URL         string
	Title       string
	Venue       string
	PublishedAt time.Time
	AuthorText  string
	BodyText    string
	Kind        Kind
	Vote        Vote
}

// Date returns the item's publication date in ISO form, or "" when unknown.
func (r RawItem) Date() string {
	if r.PublishedAt.IsZero() {
		return ""
	}
	return r.PublishedAt.Format("2006-01-02")
}

// Keyword is one signal phrase the scorer extracted, tagged hawk/dove/neutral.
type Keyword struct {
	Word string `json:"word"`
	Type string `json:"type"`
}

// DimensionScores holds the three independent policy-tone dimensions.
type DimensionScores struct {
	Stance    int       `json:"stance"`
	Balance   int       `json:"balance"`
	Direction int       `json:"direction"`
	Rationale string    `json:"reason"`
	Keywords  []Keyword `json:"keywords"`
}

// Composite computes the fixed weighted combination of the three dimensions.
func Composite(stance, balance, direction int) int {
	return int(math.Round(WeightStance*float64(stance) +
		WeightBalance*float64(balance) +
		WeightDirection*float64(direction)))
}

// ScoredEntry is the unit of the corpus.
type ScoredEntry struct {
	MemberKey   string    `json:"-"`
	Date        string    `json:"date"`
	Title       string    `json:"title"`
	Venue       string    `json:"venue,omitempty"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Kind        Kind      `json:"kind"`
	Vote        Vote      `json:"vote,omitempty"`
	TextExcerpt string    `json:"text"`
	Stance      int       `json:"stance"`
	Balance     int       `json:"balance"`
	Direction   int       `json:"direction"`
	Composite   int       `json:"composite"`
	Rationale   string    `json:"reason,omitempty"`
	Keywords    []Keyword `json:"keywords,omitempty"`
	Model       string    `json:"model,omitempty"`
	ContextTag  string    `json:"context_tag,omitempty"`
	Fingerprint string    `json:"fingerprint"`
	ScoredAt    string    `json:"scored_at"`
}

// Corpus maps a member key to that member's entries in discovery order.
// Chronological ordering is a read-time concern for the dashboard.
type Corpus map[string][]ScoredEntry

// Size reports the total entry count across all members.
func (c Corpus) Size() int {
	n := 0
	for _, entries := range c {
		n += len(entries)
	}
	return n
}

// Fingerprints returns the set of all fingerprints present in the corpus.
func (c Corpus) Fingerprints() map[string]struct{} {
	set := make(map[string]struct{}, c.Size())
	for _, entries := range c {
		for _, e := range entries {
			set[e.Fingerprint] = struct{}{}
		}
	}
	return set
}

// NewestDate returns the latest entry date in the corpus, or "" when empty.
// Dates are ISO strings so lexical comparison is chronological.
func (c Corpus) NewestDate() string {
	newest := ""
	for _, entries := range c {
		for _, e := range entries {
			if e.Date > newest {
				newest = e.Date
			}
		}
	}
	return newest
}

// NewFingerprint derives a stable identity hash from the normalized
// identifying fields. Incidental body-text changes upstream must not change
// the fingerprint, so only url, date and member participate.
func NewFingerprint(rawURL, date, memberKey string) string {
	sum := sha256.Sum256([]byte(NormalizeURL(rawURL) + "|" + date + "|" + memberKey))
	return hex.EncodeToString(sum[:])[:16]
}

// NormalizeURL canonicalizes a URL for fingerprinting: lowercase scheme and
// host, fragment dropped, trailing slash trimmed.
func NormalizeURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return strings.TrimRight(strings.TrimSpace(rawURL), "/")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	return u.String()
}

// ErrValidation marks entries that violate the corpus schema; such entries
// are rejected before persistence, never clamped or repaired.
var ErrValidation = errors.New("entry validation failed")

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func inRange(v int) bool { return v >= ScoreMin && v <= ScoreMax }

// Validate enforces the data-model invariants on a candidate entry.
func (e ScoredEntry) Validate() error {
	switch {
	case e.MemberKey == "":
		return validationErr("missing member key")
	case e.Date == "":
		return validationErr("missing date")
	case e.Title == "":
		return validationErr("missing title")
	case e.URL == "":
		return validationErr("missing url")
	case e.Source == "":
		return validationErr("missing source")
	case e.Fingerprint == "":
		return validationErr("missing fingerprint")
	}
	switch e.Kind {
	case KindSpeech, KindMinutesRationale, KindMinutesGeneral, KindTestimony:
	default:
		return validationErr("kind %q not persistable", e.Kind)
	}
	switch e.Vote {
	case "", VoteHold, VoteCut, VoteAbsent:
	default:
		return validationErr("unknown vote %q", e.Vote)
	}
	if !inRange(e.Stance) || !inRange(e.Balance) || !inRange(e.Direction) {
		return validationErr("dimension out of range [%d,%d]: stance=%d balance=%d direction=%d",
			ScoreMin, ScoreMax, e.Stance, e.Balance, e.Direction)
	}
	if want := Composite(e.Stance, e.Balance, e.Direction); e.Composite != want {
		return validationErr("composite %d inconsistent with dimensions (want %d)", e.Composite, want)
	}
	return nil
}
