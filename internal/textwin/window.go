// Package textwin selects the most policy-relevant window of a long document.
// Naive prefix truncation captures boilerplate preamble and starves the
// scorer of policy content; density-ranked windowing avoids that bias.
package textwin

import "strings"

// DefaultKeywords is the policy vocabulary used for density scoring. The
// list is a tunable: config may replace it wholesale.
var DefaultKeywords = []string{
	"inflation", "labour market", "labor market", "employment",
	"bank rate", "interest rate", "restrictive", "neutral",
	"mandate", "cut", "hike", "hold", "target", "percent",
	"monetary policy", "price stability", "economy", "growth",
	"disinflation", "tightening", "easing", "mpc", "persistence",
	"services inflation", "wage growth", "pay growth", "slack",
	"output gap", "gdp", "cpi", "demand", "supply",
	"uncertainty", "tariff", "fiscal", "budget", "sterling",
	"quantitative tightening", "gilt", "sonia",
}

const (
	DefaultMaxChars = 3000
	DefaultStride   = 250
)

// Windower ranks fixed-size candidate windows by keyword density.
type Windower struct {
	keywords []string
	maxChars int
	stride   int
}

// New builds a Windower; zero or nil arguments fall back to defaults.
func New(keywords []string, maxChars, stride int) *Windower {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if stride <= 0 {
		stride = DefaultStride
	}
	lowered := make([]string, len(keywords))
	for i, k := range keywords {
		lowered[i] = strings.ToLower(k)
	}
	return &Windower{keywords: lowered, maxChars: maxChars, stride: stride}
}

// MaxChars reports the configured window bound.
func (w *Windower) MaxChars() int { return w.maxChars }

// Select returns the contiguous substring of at most maxChars with the
// highest keyword density. Text already within the bound is returned as is.
func (w *Windower) Select(full string) string {
	if len(full) <= w.maxChars {
		return full
	}

	lowered := strings.ToLower(full)
	bestStart, bestScore := 0, -1
	limit := len(full) - w.maxChars
	if limit < 1 {
		limit = 1
	}
	for i := 0; i < limit; i += w.stride {
		chunk := lowered[i : i+w.maxChars]
		score := 0
		for _, k := range w.keywords {
			score += strings.Count(chunk, k)
		}
		if score > bestScore {
			bestScore, bestStart = score, i
		}
	}
	return strings.TrimSpace(full[bestStart : bestStart+w.maxChars])
}
