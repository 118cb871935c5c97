package storage

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"newsarchive/internal/domain"
	"newsarchive/internal/ports"
)

const stateFile = "crawlstate.json"

// StateStore persists crawl progress as a JSON document next to the
// corpus, written with the same temp-then-rename discipline.
type StateStore struct {
	path string
}

var _ ports.StateStore = (*StateStore)(nil)

// NewStateStore places the state file inside the output directory.
func NewStateStore(dir string) *StateStore {
	return &StateStore{path: filepath.Join(dir, stateFile)}
}

// Load reads persisted progress; a missing file yields a fresh state.
func (s *StateStore) Load() (*domain.CrawlState, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.NewCrawlState(), nil
	}
	if err != nil {
		return nil, &domain.StorageError{Op: "read crawl state", Err: err}
	}

	var state domain.CrawlState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, &domain.StorageError{Op: "decode crawl state", Err: err}
	}
	state.Normalize()
	return &state, nil
}

// Save writes the state durably.
func (s *StateStore) Save(state *domain.CrawlState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return &domain.StorageError{Op: "encode crawl state", Err: err}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return &domain.StorageError{Op: "write crawl state", Err: err}
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return &domain.StorageError{Op: "commit crawl state", Err: err}
	}
	return nil
}
