package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tonetracker/internal/config"
	"tonetracker/internal/domain"
	"tonetracker/internal/ports"
)

// State names the phase a run is in. Transitions are strictly forward;
// FETCHING through SCORING degrade per item, PERSISTING failures fail the run.
type State string

const (
	StateIdle       State = "idle"
	StateFetching   State = "fetching"
	StateResolving  State = "resolving"
	StateScoring    State = "scoring"
	StatePersisting State = "persisting"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// RunParams tunes a single pipeline run. Zero values fall back to config.
type RunParams struct {
	LookbackDays int
	Backfill     bool
	DryRun       bool
}

// Report summarizes one run for logging and notification.
type Report struct {
	RunID        string
	StartedAt    time.Time
	FinishedAt   time.Time
	LookbackDays int
	DryRun       bool
	Fetched      int
	Undated      int
	Duplicates   int
	Sidelined    int
	Scored       int
	Persisted    int
	SourceErrors []string
	Attention    []ports.AttentionItem
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source     ports.ItemSource
	Bodies     ports.BodyFetcher
	Scorer     ports.Scorer
	Repository ports.CorpusRepository
	Attention  ports.AttentionSink
	Notifier   ports.Notifier
	Members    *domain.MemberRegistry
	// Supplement loads the manually curated corpus file merged into every
	// run. Nil when no supplement is configured.
	Supplement func() (domain.Corpus, error)
	Config     config.PipelineConfig
	Logger     *slog.Logger
}

// Pipeline implements the ingestion workflow: fetch, resolve, dedup, score,
// persist. One run is sequential; concurrency lives inside the source fan-out.
type Pipeline struct {
	source     ports.ItemSource
	bodies     ports.BodyFetcher
	scorer     ports.Scorer
	repository ports.CorpusRepository
	attention  ports.AttentionSink
	notifier   ports.Notifier
	members    *domain.MemberRegistry
	supplement func() (domain.Corpus, error)
	cfg        config.PipelineConfig
	logger     *slog.Logger

	mu    sync.Mutex
	state State

	nowFn func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		source:     deps.Source,
		bodies:     deps.Bodies,
		scorer:     deps.Scorer,
		repository: deps.Repository,
		attention:  deps.Attention,
		notifier:   deps.Notifier,
		members:    deps.Members,
		supplement: deps.Supplement,
		cfg:        deps.Config,
		logger:     logger,
		state:      StateIdle,
		nowFn:      time.Now,
	}
}

// State reports the current run phase.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
	p.logger.Debug("pipeline state", "state", string(s))
}

// candidate pairs a fetched item with its resolved identity.
type candidate struct {
	item        domain.RawItem
	memberKey   string
	memberName  string
	fingerprint string
}

// Run executes one full pipeline pass and returns its report. Source and
// per-item failures degrade the run; only a persistence failure fails it.
func (p *Pipeline) Run(ctx context.Context, params RunParams) (Report, error) {
	report := Report{
		RunID:     uuid.NewString(),
		StartedAt: p.nowFn(),
		DryRun:    params.DryRun,
	}
	logger := p.logger.With("run_id", report.RunID)

	corpus, err := p.repository.Load(ctx)
	if err != nil {
		p.setState(StateFailed)
		return report, fmt.Errorf("load corpus: %w", err)
	}
	known := corpus.Fingerprints()

	lookback := p.effectiveLookback(params, corpus)
	report.LookbackDays = lookback
	logger.Info("run started",
		"lookback_days", lookback, "corpus_entries", corpus.Size(),
		"dry_run", params.DryRun, "backfill", params.Backfill)

	p.setState(StateFetching)
	items, srcErrs := p.source.FetchWindow(ctx, lookback)
	report.Fetched = len(items)
	for _, e := range srcErrs {
		report.SourceErrors = append(report.SourceErrors, e.Error())
		logger.Warn("source failed", "error", e)
	}

	p.setState(StateResolving)
	var candidates []candidate
	for _, item := range items {
		date := item.Date()
		if date == "" {
			report.Undated++
			logger.Debug("item skipped: no date", "url", item.URL)
			continue
		}

		key, name, err := p.resolveMember(item)
		if err != nil {
			report.Attention = append(report.Attention, p.attentionItem(item, date, "", err))
			continue
		}

		fp := domain.NewFingerprint(item.URL, date, key)
		if _, dup := known[fp]; dup {
			report.Duplicates++
			continue
		}
		known[fp] = struct{}{}
		candidates = append(candidates, candidate{item: item, memberKey: key, memberName: name, fingerprint: fp})
	}

	logger.Info("items resolved",
		"fetched", report.Fetched, "new", len(candidates),
		"duplicates", report.Duplicates, "undated", report.Undated,
		"unattributed", len(report.Attention))

	if params.DryRun {
		p.setState(StateDone)
		report.Sidelined = len(report.Attention)
		report.FinishedAt = p.nowFn()
		logger.Info("dry run complete", "would_score", len(candidates))
		return report, nil
	}

	p.setState(StateScoring)
	entries := p.scoreCandidates(ctx, logger, candidates, &report)

	if supplemental, err := p.loadSupplement(); err != nil {
		logger.Warn("supplement skipped", "error", err)
	} else {
		entries = append(entries, supplemental...)
	}

	p.setState(StatePersisting)
	if len(report.Attention) > 0 {
		if err := p.attention.Record(ctx, report.Attention); err != nil {
			p.setState(StateFailed)
			return report, fmt.Errorf("record attention list: %w", err)
		}
	}
	persisted, err := p.repository.MergeAndPersist(ctx, entries)
	if err != nil {
		p.setState(StateFailed)
		return report, fmt.Errorf("persist corpus: %w", err)
	}
	report.Persisted = persisted
	report.Sidelined = len(report.Attention)
	report.FinishedAt = p.nowFn()

	p.setState(StateDone)
	logger.Info("run complete",
		"scored", report.Scored, "persisted", report.Persisted,
		"sidelined", report.Sidelined,
		"elapsed", report.FinishedAt.Sub(report.StartedAt).Round(time.Second))

	if p.notifier != nil {
		if err := p.notifier.PublishReport(ctx, report.Digest()); err != nil {
			logger.Warn("report notification failed", "error", err)
		}
	}
	return report, nil
}

// scoreCandidates fetches each candidate's body where needed, scores it and
// builds corpus entries. Failures sideline the item and the loop continues.
func (p *Pipeline) scoreCandidates(ctx context.Context, logger *slog.Logger, candidates []candidate, report *Report) []domain.ScoredEntry {
	delay := time.Duration(p.cfg.FetchDelayMs) * time.Millisecond
	var entries []domain.ScoredEntry

	for i, c := range candidates {
		if ctx.Err() != nil {
			logger.Warn("scoring interrupted", "remaining", len(candidates)-i)
			break
		}

		text := c.item.BodyText
		if text == "" {
			if i > 0 && delay > 0 {
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					continue
				}
			}
			fetched, err := p.bodies.FetchBody(ctx, c.item.URL)
			if err != nil {
				logger.Warn("body fetch failed", "url", c.item.URL, "error", err)
				report.Attention = append(report.Attention, p.attentionItem(c.item, c.item.Date(), c.memberKey, err))
				continue
			}
			text = fetched
		}

		scores, err := p.scorer.Score(ctx, ports.ScoreRequest{
			MemberName: c.memberName,
			Text:       text,
			Vote:       c.item.Vote,
		})
		if err != nil {
			logger.Warn("scoring failed", "url", c.item.URL, "member", c.memberKey, "error", err)
			report.Attention = append(report.Attention, p.attentionItem(c.item, c.item.Date(), c.memberKey, err))
			continue
		}

		entries = append(entries, p.buildEntry(c, text, scores))
		report.Scored++
		logger.Info("item scored",
			"member", c.memberKey, "kind", string(c.item.Kind),
			"composite", domain.Composite(scores.Stance, scores.Balance, scores.Direction))
	}
	return entries
}

func (p *Pipeline) buildEntry(c candidate, text string, scores domain.DimensionScores) domain.ScoredEntry {
	excerpt := text
	if limit := p.cfg.ExcerptChars; limit > 0 && len(excerpt) > limit {
		excerpt = excerpt[:limit]
	}
	return domain.ScoredEntry{
		MemberKey:   c.memberKey,
		Date:        c.item.Date(),
		Title:       c.item.Title,
		Venue:       c.item.Venue,
		URL:         c.item.URL,
		Source:      c.item.SourceID,
		Kind:        c.item.Kind,
		Vote:        c.item.Vote,
		TextExcerpt: excerpt,
		Stance:      scores.Stance,
		Balance:     scores.Balance,
		Direction:   scores.Direction,
		// The composite is always derived locally from the dimensions.
		Composite:   domain.Composite(scores.Stance, scores.Balance, scores.Direction),
		Rationale:   scores.Rationale,
		Keywords:    scores.Keywords,
		Model:       p.scorer.Model(),
		ContextTag:  p.scorer.ContextTag(),
		Fingerprint: c.fingerprint,
		ScoredAt:    p.nowFn().UTC().Format(time.RFC3339),
	}
}

// resolveMember attributes an item to exactly one roster member. Unattributed
// general minutes commentary files under the shared key; everything else must
// resolve unambiguously.
func (p *Pipeline) resolveMember(item domain.RawItem) (key, name string, err error) {
	if item.Kind == domain.KindMinutesGeneral {
		return domain.GeneralMemberKey, "Monetary Policy Committee", nil
	}

	key, err = p.members.Resolve(item.AuthorText + " " + item.Title)
	if err != nil {
		return "", "", fmt.Errorf("attribute %s: %w", item.URL, err)
	}
	member, ok := p.members.Get(key)
	if !ok {
		return "", "", fmt.Errorf("attribute %s: member %s not in roster", item.URL, key)
	}
	return key, member.DisplayName, nil
}

func (p *Pipeline) attentionItem(item domain.RawItem, date, memberKey string, cause error) ports.AttentionItem {
	return ports.AttentionItem{
		Fingerprint: domain.NewFingerprint(item.URL, date, memberKey),
		MemberKey:   memberKey,
		Date:        date,
		Title:       item.Title,
		URL:         item.URL,
		Source:      item.SourceID,
		LastError:   cause.Error(),
		RecordedAt:  p.nowFn().UTC().Format(time.RFC3339),
	}
}

// effectiveLookback widens the configured window when the corpus has gone
// stale, so a lapsed schedule catches up without manual intervention.
func (p *Pipeline) effectiveLookback(params RunParams, corpus domain.Corpus) int {
	if params.Backfill {
		return p.cfg.BackfillDays
	}
	lookback := params.LookbackDays
	if lookback <= 0 {
		lookback = p.cfg.LookbackDays
	}
	newest := corpus.NewestDate()
	if newest == "" {
		return lookback
	}
	newestAt, err := time.Parse("2006-01-02", newest)
	if err != nil {
		return lookback
	}
	stale := int(p.nowFn().Sub(newestAt).Hours()/24) + 1
	if stale > lookback {
		lookback = stale
	}
	if p.cfg.BackfillDays > 0 && lookback > p.cfg.BackfillDays {
		lookback = p.cfg.BackfillDays
	}
	return lookback
}

func (p *Pipeline) loadSupplement() ([]domain.ScoredEntry, error) {
	if p.supplement == nil {
		return nil, nil
	}
	extra, err := p.supplement()
	if err != nil {
		return nil, err
	}
	var entries []domain.ScoredEntry
	for member, list := range extra {
		for _, e := range list {
			e.MemberKey = member
			if e.Fingerprint == "" {
				e.Fingerprint = domain.NewFingerprint(e.URL, e.Date, member)
			}
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// Digest renders the report for the notification channel.
func (r Report) Digest() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tone run %s\n", r.RunID[:8])
	fmt.Fprintf(&b, "Window: %d days\n", r.LookbackDays)
	fmt.Fprintf(&b, "Fetched %d, new scored %d, persisted %d, duplicates %d\n",
		r.Fetched, r.Scored, r.Persisted, r.Duplicates)
	if r.Sidelined > 0 {
		fmt.Fprintf(&b, "Needs attention: %d\n", r.Sidelined)
		for _, a := range r.Attention {
			fmt.Fprintf(&b, "- %s (%s): %s\n", a.Title, a.Source, a.LastError)
		}
	}
	if len(r.SourceErrors) > 0 {
		fmt.Fprintf(&b, "Source errors: %d\n", len(r.SourceErrors))
	}
	if r.DryRun {
		b.WriteString("Dry run: nothing persisted\n")
	}
	return b.String()
}
