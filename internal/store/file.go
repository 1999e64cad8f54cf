package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const (
	turnsDocument   = "turns.json"
	summaryDocument = "summary.json"
)

// FileStore keeps the session state in two JSON documents on disk: one
// holding the turn collection keyed by turn label, one holding the summary
// record. Both documents are rewritten wholesale on every update.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Append(_ context.Context, turn Turn) (Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := s.loadTurnsLocked()
	turn.Index = len(turns) + 1
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	turns = append(turns, turn)

	if err := s.writeTurnsLocked(turns); err != nil {
		return Turn{}, err
	}
	return turn, nil
}

func (s *FileStore) LoadAll(_ context.Context) ([]Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadTurnsLocked(), nil
}

func (s *FileStore) Summary(_ context.Context) (SummaryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(s.dir, summaryDocument))
	if err != nil {
		return SummaryRecord{}, nil
	}
	var rec SummaryRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		// Corrupt summary document: treat as no summary.
		return SummaryRecord{}, nil
	}
	return rec, nil
}

func (s *FileStore) SaveSummary(_ context.Context, rec SummaryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	return s.replaceDocumentLocked(summaryDocument, data)
}

func (s *FileStore) Wipe(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range []string{turnsDocument, summaryDocument} {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("wipe %s: %w", name, err)
		}
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

// loadTurnsLocked reads the turns document and returns its turns in index
// order. A missing or corrupt document yields an empty collection.
func (s *FileStore) loadTurnsLocked() []Turn {
	data, err := os.ReadFile(filepath.Join(s.dir, turnsDocument))
	if err != nil {
		return nil
	}
	var byLabel map[string]Turn
	if err := json.Unmarshal(data, &byLabel); err != nil {
		return nil
	}

	turns := make([]Turn, 0, len(byLabel))
	for _, t := range byLabel {
		turns = append(turns, t)
	}
	sort.Slice(turns, func(i, j int) bool { return turns[i].Index < turns[j].Index })
	return turns
}

func (s *FileStore) writeTurnsLocked(turns []Turn) error {
	byLabel := make(map[string]Turn, len(turns))
	for _, t := range turns {
		byLabel[fmt.Sprintf("turn_%d", t.Index)] = t
	}
	data, err := json.MarshalIndent(byLabel, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal turns: %w", err)
	}
	return s.replaceDocumentLocked(turnsDocument, data)
}

// replaceDocumentLocked rewrites a document atomically via a temp file so a
// crash mid-write never leaves a half-written document behind.
func (s *FileStore) replaceDocumentLocked(name string, data []byte) error {
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}
