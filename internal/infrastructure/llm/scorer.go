package llm

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"tonetracker/internal/config"
	"tonetracker/internal/domain"
	"tonetracker/internal/ports"
)

const (
	anthropicVersion = "2023-06-01"
	maxResultTokens  = 500
	promptTextLimit  = 2800
)

// ErrInvalidResult marks a structurally invalid scoring response: missing
// dimensions, non-numeric values, or values outside the declared range.
// Invalid results are treated as scoring failures, never forced into range.
var ErrInvalidResult = errors.New("invalid scoring result")

var fenceRe = regexp.MustCompile("(?m)^```json|^```|```$")

// Client wraps the external scoring capability: slow, rate-limited and
// occasionally transiently unavailable. Calls carry an immutable policy
// context so re-scoring under a corrected context is explicit and auditable.
type Client struct {
	endpoint    string
	model       string
	apiKey      string
	policy      config.PolicyContext
	contextTag  string
	maxAttempts int
	initBackoff time.Duration
	maxBackoff  time.Duration
	limiter     *rate.Limiter
	httpClient  *http.Client
	logger      *slog.Logger
}

var _ ports.Scorer = (*Client)(nil)

// NewClient builds a scoring client from configuration.
func NewClient(cfg config.ScorerConfig, policy config.PolicyContext, logger *slog.Logger) *Client {
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	maxBackoff := time.Duration(cfg.MaxBackoffSeconds) * time.Second
	if maxBackoff <= 0 {
		maxBackoff = 30 * time.Second
	}
	perMinute := cfg.CallsPerMinute
	if perMinute <= 0 {
		perMinute = 40
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 45 * time.Second
	}

	return &Client{
		endpoint:    cfg.Endpoint,
		model:       cfg.Model,
		apiKey:      cfg.APIKey,
		policy:      policy,
		contextTag:  contextTag(cfg.Model, policy),
		maxAttempts: attempts,
		initBackoff: 2 * time.Second,
		maxBackoff:  maxBackoff,
		limiter:     rate.NewLimiter(rate.Limit(perMinute/60.0), 1),
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

// Model reports the configured scoring model identifier.
func (c *Client) Model() string { return c.model }

// ContextTag identifies the calibration this client scores under. Entries
// persist it; the recalibration pass rewrites entries whose tag is stale.
func (c *Client) ContextTag() string { return c.contextTag }

func contextTag(model string, p config.PolicyContext) string {
	payload := fmt.Sprintf("%s|%s|%.3f|%.3f|%s|%s|%s",
		model, p.BankRate, p.RateMidpoint, p.NeutralRate, p.CPILatest, p.LastVote, p.LastDecision)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])[:8]
}

// Score sends one bounded text window for scoring, retrying transient
// failures with capped exponential backoff. The caller sidelines items that
// exhaust the budget.
func (c *Client) Score(ctx context.Context, req ports.ScoreRequest) (domain.DimensionScores, error) {
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return domain.DimensionScores{}, fmt.Errorf("scorer misconfigured")
	}
	if len(strings.TrimSpace(req.Text)) < 50 {
		return domain.DimensionScores{}, fmt.Errorf("%w: text too short to score", ErrInvalidResult)
	}

	prompt := c.buildPrompt(req)

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.initBackoff
	expo.MaxInterval = c.maxBackoff
	expo.MaxElapsedTime = 0

	attempt := 0
	return backoff.RetryWithData(func() (domain.DimensionScores, error) {
		attempt++
		scores, err := c.scoreOnce(ctx, prompt)
		if err != nil && c.logger != nil {
			c.logger.Warn("score attempt failed",
				"attempt", attempt, "max_attempts", c.maxAttempts, "error", err)
		}
		return scores, err
	}, backoff.WithContext(backoff.WithMaxRetries(expo, uint64(c.maxAttempts-1)), ctx))
}

func (c *Client) scoreOnce(ctx context.Context, prompt string) (domain.DimensionScores, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.DimensionScores{}, backoff.Permanent(err)
	}

	body, err := json.Marshal(map[string]any{
		"model":      c.model,
		"max_tokens": maxResultTokens,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	})
	if err != nil {
		return domain.DimensionScores{}, backoff.Permanent(fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.DimensionScores{}, backoff.Permanent(fmt.Errorf("new request: %w", err))
	}
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Timeouts and connection errors are transient by policy.
		return domain.DimensionScores{}, fmt.Errorf("scoring call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		callErr := fmt.Errorf("scorer returned %s: %s", resp.Status, strings.TrimSpace(string(payload)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return domain.DimensionScores{}, callErr
		}
		return domain.DimensionScores{}, backoff.Permanent(callErr)
	}

	var decoded struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.DimensionScores{}, fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Content) == 0 {
		return domain.DimensionScores{}, fmt.Errorf("%w: empty response content", ErrInvalidResult)
	}

	return parseScores(decoded.Content[0].Text)
}

// parseScores validates the model's JSON. Any missing or out-of-range
// dimension rejects the whole result; a fresh sample may still pass, so the
// error stays retryable within the attempt budget.
func parseScores(raw string) (domain.DimensionScores, error) {
	raw = strings.TrimSpace(fenceRe.ReplaceAllString(strings.TrimSpace(raw), ""))

	var parsed struct {
		Stance    *int             `json:"stance"`
		Balance   *int             `json:"balance"`
		Direction *int             `json:"direction"`
		Reason    string           `json:"reason"`
		Keywords  []domain.Keyword `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return domain.DimensionScores{}, fmt.Errorf("%w: %v", ErrInvalidResult, err)
	}
	for name, v := range map[string]*int{
		"stance": parsed.Stance, "balance": parsed.Balance, "direction": parsed.Direction,
	} {
		if v == nil {
			return domain.DimensionScores{}, fmt.Errorf("%w: missing %s", ErrInvalidResult, name)
		}
		if *v < domain.ScoreMin || *v > domain.ScoreMax {
			return domain.DimensionScores{}, fmt.Errorf("%w: %s=%d outside [%d,%d]",
				ErrInvalidResult, name, *v, domain.ScoreMin, domain.ScoreMax)
		}
	}

	return domain.DimensionScores{
		Stance:    *parsed.Stance,
		Balance:   *parsed.Balance,
		Direction: *parsed.Direction,
		Rationale: parsed.Reason,
		Keywords:  parsed.Keywords,
	}, nil
}

func (c *Client) buildPrompt(req ports.ScoreRequest) string {
	name := req.MemberName
	if name == "" {
		name = "Unknown committee member"
	}
	text := req.Text
	if len(text) > promptTextLimit {
		text = text[:promptTextLimit]
	}

	voteCtx := ""
	if req.Vote == domain.VoteHold || req.Vote == domain.VoteCut {
		voteCtx = fmt.Sprintf(
			"IMPORTANT: This member voted to %s at this meeting. The text explains their reasoning.\n\n",
			strings.ToUpper(string(req.Vote)))
	}

	return fmt.Sprintf(`You are a quantitative central-bank policy analyst. Score this statement on three components anchored to the current policy framework.

NEUTRAL RATE FRAMEWORK:
- Estimated neutral rate: %.2f%%
- Current policy rate: %s (midpoint %.2f%%)
- Policy is %+dbps relative to neutral
- Speaker: %s
- Last committee vote: %s on %s
- Latest CPI: %s (target: 2%%)

SCORE THREE COMPONENTS (-100 to +100, positive = hawkish):

STANCE - how the speaker characterizes policy restrictiveness.
BALANCE - primary risk emphasis: inflation (+) vs growth/employment (-).
DIRECTION - signaled future rate path: hold/hike (+) vs cuts (-).

Extract 3-4 key signal phrases, label each hawk/dove/neutral.
One sentence rationale referencing the neutral rate framework.

%sReturn ONLY valid JSON:
{"stance":int,"balance":int,"direction":int,"reason":"string","keywords":[{"word":"string","type":"hawk|dove|neutral"}]}

TEXT:
%s`,
		c.policy.NeutralRate, c.policy.BankRate, c.policy.RateMidpoint,
		c.policy.GapBasisPoints(), name,
		c.policy.LastVote, c.policy.LastDecision, c.policy.CPILatest,
		voteCtx, text)
}
