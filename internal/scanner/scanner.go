package scanner

import (
	"context"
	"fmt"
	"time"

	"tonetracker/internal/domain"
)

// Meeting pins one committee meeting's minutes page.
type Meeting struct {
	Date string
	URL  string
}

// Request carries all parameters required to execute a scan of one source.
type Request struct {
	SourceID     string
	URL          string
	BaseURL      string
	LookbackDays int
	Meetings     []Meeting
	Options      map[string]string
}

// Cutoff returns the earliest publication date the scan should keep.
// A non-positive lookback means full history (no cutoff).
func (r Request) Cutoff(now time.Time) (time.Time, bool) {
	if r.LookbackDays <= 0 {
		return time.Time{}, false
	}
	return now.UTC().AddDate(0, 0, -r.LookbackDays), true
}

// Scanner captures a single source-adapter strategy (RSS feed, HTML listing,
// minutes pages, testimony listing).
type Scanner interface {
	Name() string
	Scan(ctx context.Context, req Request) ([]domain.RawItem, error)
}

// Registry keeps a mapping from scanner names to their implementations.
type Registry struct {
	scanners map[string]Scanner
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{scanners: map[string]Scanner{}}
}

// Register adds or replaces a scanner implementation.
func (r *Registry) Register(scanner Scanner) {
	if r.scanners == nil {
		r.scanners = map[string]Scanner{}
	}
	r.scanners[scanner.Name()] = scanner
}

// Resolve returns a scanner by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Scanner, error) {
	if scanner, ok := r.scanners[name]; ok {
		return scanner, nil
	}
	return nil, fmt.Errorf("scanner %s is not registered", name)
}
