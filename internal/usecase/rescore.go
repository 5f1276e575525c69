package usecase

import (
	"context"
	"fmt"
	"time"

	"tonetracker/internal/domain"
	"tonetracker/internal/ports"
)

// Rescore re-runs scoring for every entry whose recorded context tag differs
// from the scorer's current calibration, then rewrites them in place. Entry
// identity (url, date, member, fingerprint) never changes.
func (p *Pipeline) Rescore(ctx context.Context) (int, error) {
	corpus, err := p.repository.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load corpus: %w", err)
	}

	currentTag := p.scorer.ContextTag()
	var stale []domain.ScoredEntry
	for _, entries := range corpus {
		for _, e := range entries {
			if e.ContextTag != currentTag {
				stale = append(stale, e)
			}
		}
	}
	p.logger.Info("recalibration scan",
		"total", corpus.Size(), "stale", len(stale), "context_tag", currentTag)
	if len(stale) == 0 {
		return 0, nil
	}

	var updated []domain.ScoredEntry
	for _, e := range stale {
		if ctx.Err() != nil {
			break
		}
		name := e.MemberKey
		if member, ok := p.members.Get(e.MemberKey); ok {
			name = member.DisplayName
		}
		scores, err := p.scorer.Score(ctx, ports.ScoreRequest{
			MemberName: name,
			Text:       e.TextExcerpt,
			Vote:       e.Vote,
		})
		if err != nil {
			p.logger.Warn("rescore failed", "fingerprint", e.Fingerprint, "error", err)
			continue
		}
		e.Stance = scores.Stance
		e.Balance = scores.Balance
		e.Direction = scores.Direction
		e.Composite = domain.Composite(scores.Stance, scores.Balance, scores.Direction)
		e.Rationale = scores.Rationale
		e.Keywords = scores.Keywords
		e.Model = p.scorer.Model()
		e.ContextTag = currentTag
		e.ScoredAt = p.nowFn().UTC().Format(time.RFC3339)
		updated = append(updated, e)
	}

	n, err := p.repository.RewriteScores(ctx, updated)
	if err != nil {
		return 0, fmt.Errorf("rewrite scores: %w", err)
	}
	p.logger.Info("recalibration complete", "rewritten", n, "failed", len(stale)-n)
	return n, nil
}
