package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"railsdock/internal/logger"
)

// SetupState records the last completed `railsdock setup`.
type SetupState struct {
	CompletedAt time.Time `json:"completed_at"`
	Mode        string    `json:"mode"` // "new" or "existing" application
}

// BackupState records a database dump railsdock wrote.
type BackupState struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// CleanupState records one cleanup run and how many of its steps failed.
type CleanupState struct {
	Level  string    `json:"level"`
	At     time.Time `json:"at"`
	Failed int       `json:"failed"`
}

// State holds everything railsdock remembers between runs.
// Nothing in it is authoritative: Docker and the backups directory are.
type State struct {
	Setup    *SetupState            `json:"setup,omitempty"`
	Backups  map[string]BackupState `json:"backups"`  // Map from backup file name to its BackupState
	Cleanups []CleanupState         `json:"cleanups"` // Oldest first, capped at maxCleanups
}

const maxCleanups = 20

// LoadState loads the saved state from a JSON file at the given path.
// If the file does not exist or cannot be parsed, it returns a new empty State.
func LoadState(path string) *State {
	file, err := os.ReadFile(path)
	if err != nil {
		return &State{Backups: make(map[string]BackupState)}
	}

	var st State
	if err := json.Unmarshal(file, &st); err != nil {
		logger.Warn("[WARN] Ignoring unreadable state file %s: %v\n", path, err)
	}
	if st.Backups == nil {
		st.Backups = make(map[string]BackupState)
	}
	return &st
}

// SaveState writes the given State to path as indented JSON, creating the parent directory.
func SaveState(path string, st *State) error {
	file, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	logger.Debug("[DEBUG] Writing state to %s:\n%s\n", path, string(file))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	if err := os.WriteFile(path, file, 0o644); err != nil {
		return fmt.Errorf("write state file %s: %w", path, err)
	}
	return nil
}

// RecordCleanup appends a cleanup run, dropping the oldest beyond the cap.
func (s *State) RecordCleanup(level string, at time.Time, failed int) {
	s.Cleanups = append(s.Cleanups, CleanupState{Level: level, At: at, Failed: failed})
	if len(s.Cleanups) > maxCleanups {
		s.Cleanups = s.Cleanups[len(s.Cleanups)-maxCleanups:]
	}
}

// LastCleanup returns the most recent cleanup, if any.
func (s *State) LastCleanup() (CleanupState, bool) {
	if len(s.Cleanups) == 0 {
		return CleanupState{}, false
	}
	return s.Cleanups[len(s.Cleanups)-1], true
}

// Update loads the state at path, applies fn and saves it back. A failed save
// is logged, not returned: state never decides whether an operation succeeded.
func Update(path string, fn func(*State)) {
	st := LoadState(path)
	fn(st)
	if err := SaveState(path, st); err != nil {
		logger.Warn("[WARN] %v\n", err)
	}
}
