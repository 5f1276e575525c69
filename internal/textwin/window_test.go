package textwin

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectShortTextUnchanged(t *testing.T) {
	t.Parallel()

	w := New(nil, 100, 10)
	text := "inflation remains above target"
	assert.Equal(t, text, w.Select(text))
}

func TestSelectFindsDenseRegion(t *testing.T) {
	t.Parallel()

	preamble := strings.Repeat("thank you for the kind introduction and the lovely venue. ", 20)
	dense := strings.Repeat("inflation persistence means bank rate must stay restrictive. ", 10)
	tail := strings.Repeat("and with that I will close and take questions. ", 20)
	full := preamble + dense + tail

	w := New(nil, len(dense)+50, 25)
	got := w.Select(full)

	assert.LessOrEqual(t, len(got), len(dense)+50)
	assert.Contains(t, got, "inflation persistence")
	assert.NotContains(t, got, "kind introduction")
}

func TestSelectCustomVocabulary(t *testing.T) {
	t.Parallel()

	filler := strings.Repeat("x ", 200)
	target := strings.Repeat("widget ", 30)
	full := filler + target + filler

	w := New([]string{"widget"}, 120, 20)
	got := w.Select(full)
	assert.Contains(t, got, "widget")
}
