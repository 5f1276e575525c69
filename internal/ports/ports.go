package ports

import (
	"context"
	"time"

	"tonetracker/internal/domain"
)

// ItemSource pulls raw items from upstream providers for a lookback window.
type ItemSource interface {
	FetchWindow(ctx context.Context, lookbackDays int) ([]domain.RawItem, []error)
}

// BodyFetcher retrieves and extracts the policy-relevant text of a document.
type BodyFetcher interface {
	FetchBody(ctx context.Context, url string) (string, error)
}

// ScoreRequest carries one bounded text window plus scoring context hints.
type ScoreRequest struct {
	MemberName string
	Text       string
	Vote       domain.Vote
}

// Scorer sends a text window to the external scoring capability and returns
// validated dimension scores.
type Scorer interface {
	Score(ctx context.Context, req ScoreRequest) (domain.DimensionScores, error)
	// ContextTag identifies the immutable scoring context the gateway is
	// currently calibrated with; entries record it for later recalibration.
	ContextTag() string
	Model() string
}

// CorpusRepository is the authoritative keyed store of scored entries.
type CorpusRepository interface {
	Load(ctx context.Context) (domain.Corpus, error)
	// MergeAndPersist validates candidates, skips known fingerprints, appends
	// the rest and persists the whole corpus in a single atomic write. It
	// returns the number of entries actually added.
	MergeAndPersist(ctx context.Context, candidates []domain.ScoredEntry) (int, error)
	// RewriteScores replaces score fields of existing entries in one atomic
	// write, matching by fingerprint. Used only by the recalibration pass.
	RewriteScores(ctx context.Context, updated []domain.ScoredEntry) (int, error)
}

// AttentionItem is a sidelined item awaiting manual follow-up.
type AttentionItem struct {
	Fingerprint string `json:"fingerprint"`
	MemberKey   string `json:"member_key,omitempty"`
	Date        string `json:"date"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	LastError   string `json:"last_error"`
	RecordedAt  string `json:"recorded_at"`
}

// AttentionSink records items that exhausted retries or could not be
// attributed, keyed by fingerprint, so nothing is silently lost.
type AttentionSink interface {
	Record(ctx context.Context, items []AttentionItem) error
}

// Notifier publishes the end-of-run report to an outbound channel.
type Notifier interface {
	PublishReport(ctx context.Context, report string) error
}

// Scheduler controls when pipeline runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
