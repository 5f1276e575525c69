package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tonetracker/internal/domain"
	"tonetracker/internal/ports"
)

func entry(member, url, date string) domain.ScoredEntry {
	return domain.ScoredEntry{
		MemberKey:   member,
		Date:        date,
		Title:       "Remarks on the outlook",
		URL:         url,
		Source:      "boe_speech",
		Kind:        domain.KindSpeech,
		TextExcerpt: "excerpt",
		Stance:      20,
		Balance:     35,
		Direction:   40,
		Composite:   domain.Composite(20, 35, 40),
		Fingerprint: domain.NewFingerprint(url, date, member),
		ScoredAt:    "2026-08-30T10:00:00Z",
	}
}

func TestLoadMissingFileYieldsEmptyCorpus(t *testing.T) {
	t.Parallel()

	store := NewCorpusStore(filepath.Join(t.TempDir(), "corpus.json"), nil)
	corpus, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, corpus)
}

func TestMergeAndPersistRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "corpus.json")
	store := NewCorpusStore(path, nil)
	ctx := context.Background()

	added, err := store.MergeAndPersist(ctx, []domain.ScoredEntry{
		entry("pill", "https://example.org/speech/one", "2026-08-01"),
		entry("mann", "https://example.org/speech/two", "2026-08-02"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	corpus, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, corpus.Size())
	require.Len(t, corpus["pill"], 1)
	assert.Equal(t, "pill", corpus["pill"][0].MemberKey)
	assert.Equal(t, "2026-08-02", corpus.NewestDate())
}

func TestMergeSkipsKnownFingerprints(t *testing.T) {
	t.Parallel()

	store := NewCorpusStore(filepath.Join(t.TempDir(), "corpus.json"), nil)
	ctx := context.Background()
	e := entry("pill", "https://example.org/speech/one", "2026-08-01")

	added, err := store.MergeAndPersist(ctx, []domain.ScoredEntry{e})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	// Rerun with the same entry plus a case/fragment variant of its URL.
	variant := e
	variant.URL = "HTTPS://EXAMPLE.ORG/speech/one#section"
	variant.Fingerprint = domain.NewFingerprint(variant.URL, variant.Date, variant.MemberKey)
	added, err = store.MergeAndPersist(ctx, []domain.ScoredEntry{e, variant})
	require.NoError(t, err)
	assert.Equal(t, 0, added)

	corpus, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, corpus.Size())
}

func TestMergeRejectsInvalidEntries(t *testing.T) {
	t.Parallel()

	store := NewCorpusStore(filepath.Join(t.TempDir(), "corpus.json"), nil)
	ctx := context.Background()

	bad := entry("pill", "https://example.org/speech/bad", "2026-08-01")
	bad.Stance = 250
	inconsistent := entry("pill", "https://example.org/speech/off", "2026-08-02")
	inconsistent.Composite = 99
	good := entry("mann", "https://example.org/speech/good", "2026-08-03")

	added, err := store.MergeAndPersist(ctx, []domain.ScoredEntry{bad, inconsistent, good})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	corpus, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, corpus.Size())
	assert.Empty(t, corpus["pill"])
}

func TestPersistLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewCorpusStore(filepath.Join(dir, "corpus.json"), nil)

	_, err := store.MergeAndPersist(context.Background(), []domain.ScoredEntry{
		entry("pill", "https://example.org/speech/one", "2026-08-01"),
	})
	require.NoError(t, err)

	names, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, f := range names {
		assert.NotContains(t, f.Name(), ".tmp-")
	}
}

func TestRewriteScoresKeepsIdentityFields(t *testing.T) {
	t.Parallel()

	store := NewCorpusStore(filepath.Join(t.TempDir(), "corpus.json"), nil)
	ctx := context.Background()
	e := entry("pill", "https://example.org/speech/one", "2026-08-01")
	e.ContextTag = "aaaa1111"
	_, err := store.MergeAndPersist(ctx, []domain.ScoredEntry{e})
	require.NoError(t, err)

	updated := e
	updated.Stance = -10
	updated.Balance = -20
	updated.Direction = -30
	updated.Composite = domain.Composite(-10, -20, -30)
	updated.ContextTag = "bbbb2222"
	updated.Title = "this must not overwrite the stored title"

	n, err := store.RewriteScores(ctx, []domain.ScoredEntry{updated})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	corpus, err := store.Load(ctx)
	require.NoError(t, err)
	got := corpus["pill"][0]
	assert.Equal(t, -10, got.Stance)
	assert.Equal(t, "bbbb2222", got.ContextTag)
	assert.Equal(t, "Remarks on the outlook", got.Title)
	assert.Equal(t, e.Fingerprint, got.Fingerprint)
}

func TestAttentionListMergesByFingerprint(t *testing.T) {
	t.Parallel()

	list := NewAttentionList(filepath.Join(t.TempDir(), "needs_attention.json"), nil)
	ctx := context.Background()

	require.NoError(t, list.Record(ctx, []ports.AttentionItem{
		{Fingerprint: "f1", Title: "one", LastError: "scoring failed"},
		{Fingerprint: "f2", Title: "two", LastError: "unresolved member"},
	}))
	require.NoError(t, list.Record(ctx, []ports.AttentionItem{
		{Fingerprint: "f1", Title: "one", LastError: "scoring failed again"},
	}))

	items, err := list.Load()
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "scoring failed again", items["f1"].LastError)
}
