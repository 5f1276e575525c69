package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"tonetracker/internal/textwin"
)

const (
	defaultTimezone  = "UTC"
	configPathEnv    = "TONETRACKER_CONFIG"
	scorerAPIKeyEnv  = "SCORER_API_KEY"
	scorerModelEnv   = "SCORER_MODEL"
	lookbackDaysEnv  = "LOOKBACK_DAYS"
	telegramTokenEnv = "TELEGRAM_BOT_TOKEN"
	telegramChatEnv  = "TELEGRAM_CHAT_ID"
	dryRunEnv        = "TONETRACKER_DRY_RUN"
	backfillEnv      = "TONETRACKER_BACKFILL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Pipeline      PipelineConfig     `yaml:"pipeline"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Scorer        ScorerConfig       `yaml:"scorer"`
	Context       PolicyContext      `yaml:"context"`
	Windowing     WindowingConfig    `yaml:"windowing"`
	Store         StoreConfig        `yaml:"store"`
	Notifications NotificationConfig `yaml:"notifications"`
	Members       []MemberConfig     `yaml:"members"`
	Sources       []SourceConfig     `yaml:"sources"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// PipelineConfig defines run parameters supplied by the workflow layer.
type PipelineConfig struct {
	LookbackDays  int  `yaml:"lookbackDays"`
	BackfillDays  int  `yaml:"backfillDays"`
	DryRun        bool `yaml:"dryRun"`
	Backfill      bool `yaml:"backfill"`
	ExcerptChars  int  `yaml:"excerptChars"`
	FetchDelayMs  int  `yaml:"fetchDelayMs"`
	SourceWorkers int  `yaml:"sourceWorkers"`
}

// SchedulerConfig defines when recurring runs execute.
type SchedulerConfig struct {
	Enabled       bool           `yaml:"enabled"`
	IntervalHours int            `yaml:"intervalHours"`
	Timezone      string         `yaml:"timezone"`
	location      *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// ScorerConfig defines how to contact the external scoring capability.
type ScorerConfig struct {
	Endpoint          string  `yaml:"endpoint"`
	Model             string  `yaml:"model"`
	APIKey            string  `yaml:"apiKey"`
	MaxAttempts       int     `yaml:"maxAttempts"`
	MaxBackoffSeconds int     `yaml:"maxBackoffSeconds"`
	TimeoutSeconds    int     `yaml:"timeoutSeconds"`
	CallsPerMinute    float64 `yaml:"callsPerMinute"`
}

// PolicyContext is the immutable calibration record passed to the scorer per
// call. Changing it and re-running the recalibration pass is the only
// sanctioned way to re-score history.
type PolicyContext struct {
	BankRate     string  `yaml:"bankRate"`
	RateMidpoint float64 `yaml:"rateMidpoint"`
	NeutralRate  float64 `yaml:"neutralRate"`
	CPILatest    string  `yaml:"cpiLatest"`
	LastVote     string  `yaml:"lastVote"`
	LastDecision string  `yaml:"lastDecision"`
	NextMeeting  string  `yaml:"nextMeeting"`
}

// GapBasisPoints derives the policy gap over neutral, in basis points.
func (p PolicyContext) GapBasisPoints() int {
	return int((p.RateMidpoint-p.NeutralRate)*100 + 0.5)
}

// WindowingConfig exposes the text-window tunables.
type WindowingConfig struct {
	MaxChars int      `yaml:"maxChars"`
	Stride   int      `yaml:"stride"`
	Keywords []string `yaml:"keywords"`
}

// StoreConfig locates the corpus and its companion files.
type StoreConfig struct {
	CorpusPath     string `yaml:"corpusPath"`
	SupplementPath string `yaml:"supplementPath"`
	AttentionPath  string `yaml:"attentionPath"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// MemberConfig extends or overrides the built-in member roster. Alias
// maintenance happens here, never in resolution code.
type MemberConfig struct {
	Key         string   `yaml:"key"`
	DisplayName string   `yaml:"displayName"`
	Role        string   `yaml:"role"`
	Former      bool     `yaml:"former"`
	Aliases     []string `yaml:"aliases"`
}

// MeetingConfig pins one committee meeting's minutes page.
type MeetingConfig struct {
	Date string `yaml:"date"`
	URL  string `yaml:"url"`
}

// SourceConfig describes a single source with its scanner strategy.
type SourceConfig struct {
	Name     string            `yaml:"name"`
	Scanner  string            `yaml:"scanner"`
	URL      string            `yaml:"url"`
	BaseURL  string            `yaml:"baseUrl"`
	Meetings []MeetingConfig   `yaml:"meetings"`
	Options  map[string]string `yaml:"options"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Sources) == 0 {
		cfg.Sources = defaultConfig().Sources
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(scorerAPIKeyEnv); v != "" {
		c.Scorer.APIKey = v
	}
	if v := os.Getenv(scorerModelEnv); v != "" {
		c.Scorer.Model = v
	}
	if v := os.Getenv(lookbackDaysEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Pipeline.LookbackDays = n
		}
	}
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
	if v := os.Getenv(dryRunEnv); v != "" {
		c.Pipeline.DryRun = v == "1" || v == "true"
	}
	if v := os.Getenv(backfillEnv); v != "" {
		c.Pipeline.Backfill = v == "1" || v == "true"
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	if override.Pipeline.LookbackDays > 0 {
		base.Pipeline.LookbackDays = override.Pipeline.LookbackDays
	}
	if override.Pipeline.BackfillDays > 0 {
		base.Pipeline.BackfillDays = override.Pipeline.BackfillDays
	}
	if override.Pipeline.ExcerptChars > 0 {
		base.Pipeline.ExcerptChars = override.Pipeline.ExcerptChars
	}
	if override.Pipeline.FetchDelayMs > 0 {
		base.Pipeline.FetchDelayMs = override.Pipeline.FetchDelayMs
	}
	if override.Pipeline.SourceWorkers > 0 {
		base.Pipeline.SourceWorkers = override.Pipeline.SourceWorkers
	}
	if override.Pipeline.DryRun {
		base.Pipeline.DryRun = true
	}
	if override.Pipeline.Backfill {
		base.Pipeline.Backfill = true
	}

	if override.Scheduler.Enabled {
		base.Scheduler.Enabled = true
	}
	if override.Scheduler.IntervalHours > 0 {
		base.Scheduler.IntervalHours = override.Scheduler.IntervalHours
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Scorer.Endpoint != "" {
		base.Scorer.Endpoint = override.Scorer.Endpoint
	}
	if override.Scorer.Model != "" {
		base.Scorer.Model = override.Scorer.Model
	}
	if override.Scorer.APIKey != "" {
		base.Scorer.APIKey = override.Scorer.APIKey
	}
	if override.Scorer.MaxAttempts > 0 {
		base.Scorer.MaxAttempts = override.Scorer.MaxAttempts
	}
	if override.Scorer.MaxBackoffSeconds > 0 {
		base.Scorer.MaxBackoffSeconds = override.Scorer.MaxBackoffSeconds
	}
	if override.Scorer.TimeoutSeconds > 0 {
		base.Scorer.TimeoutSeconds = override.Scorer.TimeoutSeconds
	}
	if override.Scorer.CallsPerMinute > 0 {
		base.Scorer.CallsPerMinute = override.Scorer.CallsPerMinute
	}

	if override.Context != (PolicyContext{}) {
		base.Context = override.Context
	}

	if override.Windowing.MaxChars > 0 {
		base.Windowing.MaxChars = override.Windowing.MaxChars
	}
	if override.Windowing.Stride > 0 {
		base.Windowing.Stride = override.Windowing.Stride
	}
	if len(override.Windowing.Keywords) > 0 {
		base.Windowing.Keywords = override.Windowing.Keywords
	}

	if override.Store.CorpusPath != "" {
		base.Store.CorpusPath = override.Store.CorpusPath
	}
	if override.Store.SupplementPath != "" {
		base.Store.SupplementPath = override.Store.SupplementPath
	}
	if override.Store.AttentionPath != "" {
		base.Store.AttentionPath = override.Store.AttentionPath
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if len(override.Members) > 0 {
		base.Members = override.Members
	}
	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Pipeline: PipelineConfig{
			LookbackDays:  7,
			BackfillDays:  730,
			ExcerptChars:  800,
			FetchDelayMs:  1000,
			SourceWorkers: 2,
		},
		Scheduler: SchedulerConfig{Enabled: false, IntervalHours: 24, Timezone: defaultTimezone, location: tz},
		Scorer: ScorerConfig{
			Endpoint:          "https://api.anthropic.com/v1/messages",
			Model:             "claude-sonnet-4-5",
			MaxAttempts:       3,
			MaxBackoffSeconds: 30,
			TimeoutSeconds:    45,
			CallsPerMinute:    40,
		},
		Context: PolicyContext{
			BankRate:     "3.75%",
			RateMidpoint: 3.75,
			NeutralRate:  3.25,
			CPILatest:    "3.4%",
			LastVote:     "5-4 hold",
			LastDecision: "2026-02-05",
			NextMeeting:  "2026-03-19",
		},
		Windowing: WindowingConfig{
			MaxChars: textwin.DefaultMaxChars,
			Stride:   textwin.DefaultStride,
		},
		Store: StoreConfig{
			CorpusPath:    "corpus.json",
			AttentionPath: "needs_attention.json",
		},
		Sources: []SourceConfig{
			{
				Name:    "boe_speech",
				Scanner: "feed",
				URL:     "https://www.bankofengland.co.uk/rss/speeches",
			},
			{
				Name:    "boe_speech_list",
				Scanner: "listing",
				URL:     "https://www.bankofengland.co.uk/news/speeches",
				BaseURL: "https://www.bankofengland.co.uk",
				Options: map[string]string{"linkPattern": "/speech/"},
			},
			{
				Name:    "mpc_minutes",
				Scanner: "minutes",
				Meetings: []MeetingConfig{
					{Date: "2025-11-06", URL: "https://www.bankofengland.co.uk/monetary-policy-summary-and-minutes/2025/november-2025"},
					{Date: "2025-12-18", URL: "https://www.bankofengland.co.uk/monetary-policy-summary-and-minutes/2025/december-2025"},
					{Date: "2026-02-05", URL: "https://www.bankofengland.co.uk/monetary-policy-summary-and-minutes/2026/february-2026"},
				},
			},
			{
				Name:    "tsc_testimony",
				Scanner: "testimony",
				URL:     "https://committees.parliament.uk/work/68/bank-of-england-monetary-policy-reports/",
				BaseURL: "https://committees.parliament.uk",
				Options: map[string]string{"linkPattern": "oral-evidence"},
			},
		},
	}
}
