// Package minutes splits a committee-minutes document into per-member vote
// rationales. Post-2024 minutes carry named rationale passages ("Huw Pill: I
// do not see a need...") and an aggregate vote breakdown ("Five members
// (A, B, C, D, E) voted in favour...").
package minutes

import (
	"log/slog"
	"regexp"
	"strings"

	"tonetracker/internal/domain"
)

// Rationale is one member's extracted vote reasoning.
type Rationale struct {
	MemberKey string
	Name      string
	Text      string
	Vote      domain.Vote
}

const minRationaleChars = 30

var (
	spaceRe  = regexp.MustCompile(`\s+`)
	holdRe   = regexp.MustCompile(`(?i)(?:one|two|three|four|five|six|seven|eight|nine|\d)\s+members?\s*\(([^)]+)\)\s*(?:voted in favour|preferred to maintain)`)
	cutRe    = regexp.MustCompile(`(?i)(?:one|two|three|four|five|six|seven|eight|nine|\d)\s+members?\s*\(([^)]+)\)\s*(?:voted against|preferred to reduce|preferring)`)
	absentRe = regexp.MustCompile(`(?i)\(([^)]+)\)\s*(?:was|were)\s+(?:absent|unable to attend)`)
)

// Splitter extracts rationales using the member registry's display names.
type Splitter struct {
	registry *domain.MemberRegistry
	nameRe   *regexp.Regexp
	logger   *slog.Logger
}

// NewSplitter compiles the passage pattern from registry display names,
// longest first so "Catherine L. Mann" wins over any shorter overlap.
func NewSplitter(registry *domain.MemberRegistry, logger *slog.Logger) *Splitter {
	names := registry.DisplayNames()
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = regexp.QuoteMeta(n)
	}
	// RE2 has no lookahead; passages are sliced between successive marker
	// match positions instead.
	pattern := `(?im)(?:^|\n)\s*(` + strings.Join(quoted, "|") + `)\s*:\s*`
	return &Splitter{
		registry: registry,
		nameRe:   regexp.MustCompile(pattern),
		logger:   logger,
	}
}

// VoteBreakdown parses the aggregate hold/cut groups, plus an explicit
// absence statement when the minutes carry one. Missing or unparsable groups
// yield empty slices; callers then leave votes unset. Absence is never
// inferred from a member missing in both vote groups.
func VoteBreakdown(text string) (hold, cut, absent []string) {
	if m := holdRe.FindStringSubmatch(text); m != nil {
		hold = splitNames(m[1])
	}
	if m := cutRe.FindStringSubmatch(text); m != nil {
		cut = splitNames(m[1])
	}
	if m := absentRe.FindStringSubmatch(text); m != nil {
		absent = splitNames(m[1])
	}
	return hold, cut, absent
}

func splitNames(group string) []string {
	group = strings.ReplaceAll(group, " and ", ",")
	parts := strings.Split(group, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	return names
}

// Split extracts all identifiable member rationales from minutes text and
// annotates each with the member's vote from the aggregate breakdown. An
// unparsable breakdown still yields passages, with votes left empty.
func (s *Splitter) Split(text string) []Rationale {
	hold, cut, absent := VoteBreakdown(text)

	marks := s.nameRe.FindAllStringSubmatchIndex(text, -1)
	rationales := make([]Rationale, 0, len(marks))
	for i, m := range marks {
		name := text[m[2]:m[3]]
		start := m[1]
		end := len(text)
		if i+1 < len(marks) {
			end = marks[i+1][0]
		}
		passage := strings.TrimSpace(spaceRe.ReplaceAllString(text[start:end], " "))
		if len(passage) < minRationaleChars {
			continue
		}

		key, err := s.registry.Resolve(name)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("rationale speaker unresolved", "name", name, "error", err)
			}
			continue
		}

		rationales = append(rationales, Rationale{
			MemberKey: key,
			Name:      name,
			Text:      passage,
			Vote:      voteFor(name, hold, cut, absent),
		})
	}
	return rationales
}

func voteFor(name string, hold, cut, absent []string) domain.Vote {
	ln := strings.ToLower(name)
	for _, h := range hold {
		if nameOverlaps(ln, strings.ToLower(h)) {
			return domain.VoteHold
		}
	}
	for _, c := range cut {
		if nameOverlaps(ln, strings.ToLower(c)) {
			return domain.VoteCut
		}
	}
	for _, a := range absent {
		if nameOverlaps(ln, strings.ToLower(a)) {
			return domain.VoteAbsent
		}
	}
	return ""
}

// nameOverlaps tolerates breakdown groups listing surnames or full names.
func nameOverlaps(a, b string) bool {
	return strings.Contains(a, b) || strings.Contains(b, a)
}
