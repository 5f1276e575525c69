package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"tonetracker/internal/domain"
	"tonetracker/internal/ports"
)

const lockRetryDelay = 250 * time.Millisecond

// CorpusStore persists the corpus as one JSON document keyed by member. The
// whole document is rewritten in a single atomic rename under a file lock,
// so an interrupted run leaves either the old corpus or the new one, never a
// torn write.
type CorpusStore struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

var _ ports.CorpusRepository = (*CorpusStore)(nil)

// NewCorpusStore wires the store to its file path.
func NewCorpusStore(path string, logger *slog.Logger) *CorpusStore {
	return &CorpusStore{path: path, logger: logger}
}

// Load reads the corpus; a missing or empty file yields an empty corpus.
func (s *CorpusStore) Load(_ context.Context) (domain.Corpus, error) {
	return ReadCorpusFile(s.path)
}

// ReadCorpusFile loads a corpus-shaped JSON file. Also used for the manual
// supplement file.
func ReadCorpusFile(path string) (domain.Corpus, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Corpus{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read corpus %s: %w", path, err)
	}
	if len(raw) == 0 {
		return domain.Corpus{}, nil
	}

	var corpus domain.Corpus
	if err := json.Unmarshal(raw, &corpus); err != nil {
		return nil, fmt.Errorf("parse corpus %s: %w", path, err)
	}
	for member, entries := range corpus {
		for i := range entries {
			entries[i].MemberKey = member
		}
		corpus[member] = entries
	}
	return corpus, nil
}

// MergeAndPersist validates candidates, skips already-known fingerprints,
// appends the rest and persists once for the whole batch. Known fingerprints
// are a no-op, not an error, which is what makes reruns idempotent.
func (s *CorpusStore) MergeAndPersist(ctx context.Context, candidates []domain.ScoredEntry) (int, error) {
	if len(candidates) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	corpus, err := ReadCorpusFile(s.path)
	if err != nil {
		return 0, err
	}

	known := corpus.Fingerprints()
	added := 0
	for _, entry := range candidates {
		if _, dup := known[entry.Fingerprint]; dup {
			continue
		}
		if err := entry.Validate(); err != nil {
			// Malformed candidates never reach disk; the batch continues.
			if s.logger != nil {
				s.logger.Warn("entry rejected", "url", entry.URL, "error", err)
			}
			continue
		}
		corpus[entry.MemberKey] = append(corpus[entry.MemberKey], entry)
		known[entry.Fingerprint] = struct{}{}
		added++
	}

	if added == 0 {
		return 0, nil
	}
	if err := writeJSONAtomic(s.path, corpus); err != nil {
		return 0, err
	}
	if s.logger != nil {
		s.logger.Info("corpus persisted", "added", added, "total", corpus.Size(), "members", len(corpus))
	}
	return added, nil
}

// RewriteScores replaces the score fields of existing entries, matched by
// fingerprint, in one atomic write. Identity fields stay untouched. Only the
// recalibration pass calls this.
func (s *CorpusStore) RewriteScores(ctx context.Context, updated []domain.ScoredEntry) (int, error) {
	if len(updated) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	corpus, err := ReadCorpusFile(s.path)
	if err != nil {
		return 0, err
	}

	byFingerprint := make(map[string]domain.ScoredEntry, len(updated))
	for _, u := range updated {
		byFingerprint[u.Fingerprint] = u
	}

	rewritten := 0
	for member, entries := range corpus {
		for i, entry := range entries {
			u, ok := byFingerprint[entry.Fingerprint]
			if !ok {
				continue
			}
			entry.Stance = u.Stance
			entry.Balance = u.Balance
			entry.Direction = u.Direction
			entry.Composite = u.Composite
			entry.Rationale = u.Rationale
			entry.Keywords = u.Keywords
			entry.Model = u.Model
			entry.ContextTag = u.ContextTag
			entry.ScoredAt = u.ScoredAt
			if err := entry.Validate(); err != nil {
				if s.logger != nil {
					s.logger.Warn("rescored entry rejected", "fingerprint", entry.Fingerprint, "error", err)
				}
				continue
			}
			entries[i] = entry
			rewritten++
		}
		corpus[member] = entries
	}

	if rewritten == 0 {
		return 0, nil
	}
	if err := writeJSONAtomic(s.path, corpus); err != nil {
		return 0, err
	}
	return rewritten, nil
}

// acquire takes the cross-process file lock guarding the destination.
func (s *CorpusStore) acquire(ctx context.Context) (func(), error) {
	lock := flock.New(s.path + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("lock corpus %s: %w", s.path, err)
	}
	if !locked {
		return nil, fmt.Errorf("lock corpus %s: not acquired", s.path)
	}
	return func() { _ = lock.Unlock() }, nil
}

// writeJSONAtomic persists via temp file, fsync and rename so interruption
// on any exit path leaves the previous file intact.
func writeJSONAtomic(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer func() {
		if tmp != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp: %w", err)
	}
	name := tmp.Name()
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(name, path); err != nil {
		_ = os.Remove(name)
		tmp = nil
		return fmt.Errorf("rename %s: %w", path, err)
	}
	tmp = nil
	return nil
}
