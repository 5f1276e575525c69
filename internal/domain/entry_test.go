package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEntry() ScoredEntry {
	e := ScoredEntry{
		MemberKey:   "pill",
		Date:        "2026-02-05",
		Title:       "Monetary policy in uncertain times",
		URL:         "https://example.org/speech/2026/february/pill",
		Source:      "boe_speech",
		Kind:        KindSpeech,
		TextExcerpt: "inflation persistence remains the central concern",
		Stance:      20,
		Balance:     35,
		Direction:   40,
		ScoredAt:    "2026-02-06T07:00:00Z",
	}
	e.Composite = Composite(e.Stance, e.Balance, e.Direction)
	e.Fingerprint = NewFingerprint(e.URL, e.Date, e.MemberKey)
	return e
}

func TestCompositeWeights(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, Composite(0, 0, 0))
	// 0.30*20 + 0.35*35 + 0.35*40 = 6 + 12.25 + 14 = 32.25 → 32
	assert.Equal(t, 32, Composite(20, 35, 40))
	assert.Equal(t, -32, Composite(-20, -35, -40))
	assert.Equal(t, 100, Composite(100, 100, 100))
}

func TestValidateAcceptsWellFormed(t *testing.T) {
	t.Parallel()
	require.NoError(t, validEntry().Validate())
}

func TestValidateRejections(t *testing.T) {
	t.Parallel()

	cases := map[string]func(*ScoredEntry){
		"missing member":        func(e *ScoredEntry) { e.MemberKey = "" },
		"missing date":          func(e *ScoredEntry) { e.Date = "" },
		"missing url":           func(e *ScoredEntry) { e.URL = "" },
		"missing fingerprint":   func(e *ScoredEntry) { e.Fingerprint = "" },
		"raw minutes kind":      func(e *ScoredEntry) { e.Kind = KindMinutesDocument },
		"unknown vote":          func(e *ScoredEntry) { e.Vote = "abstain" },
		"stance out of range":   func(e *ScoredEntry) { e.Stance = 101 },
		"balance out of range":  func(e *ScoredEntry) { e.Balance = -150 },
		"stale composite":       func(e *ScoredEntry) { e.Composite++ },
		"direction above bound": func(e *ScoredEntry) { e.Direction = ScoreMax + 1 },
	}
	for name, mutate := range cases {
		e := validEntry()
		mutate(&e)
		err := e.Validate()
		require.Error(t, err, name)
		assert.ErrorIs(t, err, ErrValidation, name)
	}
}

func TestFingerprintStableUnderIncidentalChange(t *testing.T) {
	t.Parallel()

	a := NewFingerprint("https://Example.org/speech/2026/pill/", "2026-02-05", "pill")
	b := NewFingerprint("https://example.org/speech/2026/pill#section", "2026-02-05", "pill")
	assert.Equal(t, a, b)

	c := NewFingerprint("https://example.org/speech/2026/pill", "2026-02-05", "mann")
	assert.NotEqual(t, a, c)
	d := NewFingerprint("https://example.org/speech/2026/pill", "2026-02-06", "pill")
	assert.NotEqual(t, a, d)
	assert.Len(t, a, 16)
}

func TestCorpusHelpers(t *testing.T) {
	t.Parallel()

	e1, e2 := validEntry(), validEntry()
	e2.Date = "2026-03-19"
	e2.URL = "https://example.org/speech/2026/march/pill"
	e2.Fingerprint = NewFingerprint(e2.URL, e2.Date, e2.MemberKey)

	c := Corpus{"pill": {e1, e2}}
	assert.Equal(t, 2, c.Size())
	assert.Equal(t, "2026-03-19", c.NewestDate())

	fps := c.Fingerprints()
	assert.Len(t, fps, 2)
	_, ok := fps[e1.Fingerprint]
	assert.True(t, ok)
}
