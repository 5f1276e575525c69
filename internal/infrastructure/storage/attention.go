package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"tonetracker/internal/ports"
)

// AttentionList records items that failed resolution or scoring, keyed by
// fingerprint so repeated failures update in place instead of piling up.
type AttentionList struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

var _ ports.AttentionSink = (*AttentionList)(nil)

func NewAttentionList(path string, logger *slog.Logger) *AttentionList {
	return &AttentionList{path: path, logger: logger}
}

// Record merges the given items into the on-disk list.
func (l *AttentionList) Record(_ context.Context, items []ports.AttentionItem) error {
	if len(items) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	existing, err := l.load()
	if err != nil {
		return err
	}
	for _, item := range items {
		existing[item.Fingerprint] = item
	}
	if err := writeJSONAtomic(l.path, existing); err != nil {
		return err
	}
	if l.logger != nil {
		l.logger.Info("attention list updated", "new", len(items), "total", len(existing))
	}
	return nil
}

// Load returns the current list, for reporting.
func (l *AttentionList) Load() (map[string]ports.AttentionItem, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

func (l *AttentionList) load() (map[string]ports.AttentionItem, error) {
	raw, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]ports.AttentionItem{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read attention list %s: %w", l.path, err)
	}
	if len(raw) == 0 {
		return map[string]ports.AttentionItem{}, nil
	}

	items := map[string]ports.AttentionItem{}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("parse attention list %s: %w", l.path, err)
	}
	return items, nil
}
