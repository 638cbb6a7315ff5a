// Package store persists the instrument configuration and current loop as a
// single JSON blob.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cbegin/skyline-go/internal/logger"
	"github.com/cbegin/skyline-go/internal/score"
)

var ErrNoState = errors.New("no saved state")

// State is the persisted blob. Field names match the saved file format.
type State struct {
	Buildings []score.Instrument `json:"buildings"`
	MusicLoop *score.Score       `json:"musicLoop"`
}

// FileStore reads and writes State at one path.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string { return s.path }

// Save writes the blob through a temporary file so a crash never leaves a
// truncated state behind.
func (s *FileStore) Save(st State) error {
	if st.Buildings == nil {
		st.Buildings = []score.Instrument{}
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

// Load returns ErrNoState when nothing has been saved yet. Notes outside the
// loop or without a length are dropped from the saved loop.
func (s *FileStore) Load() (State, error) {
	s.mu.Lock()
	data, err := os.ReadFile(s.path)
	s.mu.Unlock()
	if errors.Is(err, fs.ErrNotExist) {
		return State{}, ErrNoState
	}
	if err != nil {
		return State{}, fmt.Errorf("read state: %w", err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("parse state: %w", err)
	}
	if _, err := score.NewConfig(st.Buildings...); err != nil {
		return State{}, fmt.Errorf("saved instruments: %w", err)
	}
	if dropped := st.MusicLoop.DropInvalidNotes(); dropped > 0 {
		logger.Warn("dropped unplayable notes from saved loop", logger.Fields{"path": s.path, "dropped": dropped})
	}
	return st, nil
}

// Autosaver coalesces bursts of changes into one write after a quiet period.
type Autosaver struct {
	mu      sync.Mutex
	store   *FileStore
	delay   time.Duration
	snap    func() State
	timer   *time.Timer
	pending bool
	onError func(error)
}

// NewAutosaver saves snap() to store delay after the last Touch.
func NewAutosaver(store *FileStore, delay time.Duration, snap func() State) *Autosaver {
	return &Autosaver{store: store, delay: delay, snap: snap}
}

// OnError registers a callback for failed background saves.
func (a *Autosaver) OnError(fn func(error)) {
	a.mu.Lock()
	a.onError = fn
	a.mu.Unlock()
}

// Touch records a change and restarts the quiet period.
func (a *Autosaver) Touch() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = true
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.delay, func() { _ = a.Flush() })
}

// Flush writes immediately if a change is pending.
func (a *Autosaver) Flush() error {
	a.mu.Lock()
	if !a.pending {
		a.mu.Unlock()
		return nil
	}
	a.pending = false
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	onError := a.onError
	a.mu.Unlock()

	if err := a.store.Save(a.snap()); err != nil {
		logger.Error("autosave failed", err, logger.Fields{"path": a.store.Path()})
		if onError != nil {
			onError(err)
		}
		return err
	}
	logger.Debug("state autosaved", logger.Fields{"path": a.store.Path()})
	return nil
}

// Pending reports whether a change has not been written yet.
func (a *Autosaver) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending
}

// Close writes any pending change and stops the timer.
func (a *Autosaver) Close() error {
	return a.Flush()
}
