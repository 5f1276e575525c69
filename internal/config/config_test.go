package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(scorerAPIKeyEnv, "")
	t.Setenv(lookbackDaysEnv, "")

	cfg := Load()
	assert.Equal(t, 7, cfg.Pipeline.LookbackDays)
	assert.Equal(t, 730, cfg.Pipeline.BackfillDays)
	assert.Equal(t, "corpus.json", cfg.Store.CorpusPath)
	assert.Len(t, cfg.Sources, 4)
	assert.Equal(t, "feed", cfg.Sources[0].Scanner)
	assert.InDelta(t, 3.25, cfg.Context.NeutralRate, 0.001)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logging:
  level: debug
pipeline:
  lookbackDays: 14
scorer:
  model: other-model
store:
  corpusPath: /tmp/tone/corpus.json
sources:
  - name: only_feed
    scanner: feed
    url: https://example.org/rss
`), 0o644))
	t.Setenv(configPathEnv, path)
	t.Setenv(scorerModelEnv, "")
	t.Setenv(lookbackDaysEnv, "")

	cfg := Load()
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 14, cfg.Pipeline.LookbackDays)
	assert.Equal(t, "other-model", cfg.Scorer.Model)
	assert.Equal(t, "/tmp/tone/corpus.json", cfg.Store.CorpusPath)
	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, "only_feed", cfg.Sources[0].Name)
	// Unset file fields keep their defaults.
	assert.Equal(t, 730, cfg.Pipeline.BackfillDays)
	assert.Equal(t, "needs_attention.json", cfg.Store.AttentionPath)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(scorerAPIKeyEnv, "sk-test")
	t.Setenv(scorerModelEnv, "env-model")
	t.Setenv(lookbackDaysEnv, "21")
	t.Setenv(dryRunEnv, "true")
	t.Setenv(backfillEnv, "1")

	cfg := Load()
	assert.Equal(t, "sk-test", cfg.Scorer.APIKey)
	assert.Equal(t, "env-model", cfg.Scorer.Model)
	assert.Equal(t, 21, cfg.Pipeline.LookbackDays)
	assert.True(t, cfg.Pipeline.DryRun)
	assert.True(t, cfg.Pipeline.Backfill)
}

func TestGapBasisPoints(t *testing.T) {
	p := PolicyContext{RateMidpoint: 3.75, NeutralRate: 3.25}
	assert.Equal(t, 50, p.GapBasisPoints())
}
