// Package backup writes, restores and prunes timestamped PostgreSQL dumps in
// the project's backups directory.
package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"railsdock/internal/compose"
	"railsdock/internal/config"
	"railsdock/internal/logger"
	"railsdock/internal/prompt"
	"railsdock/internal/state"
	"railsdock/internal/ui"
)

const (
	// Prefix starts every backup file name.
	Prefix = "db_backup_"
	// TimeFormat is the second-resolution timestamp in backup names.
	TimeFormat = "20060102_150405"

	// maxSameSecond bounds the _<n> suffixes tried for one timestamp.
	maxSameSecond = 100
)

// FileName returns the backup name for t. n > 0 adds a collision suffix.
func FileName(t time.Time, n int) string {
	if n == 0 {
		return Prefix + t.Format(TimeFormat) + ".sql"
	}
	return fmt.Sprintf("%s%s_%d.sql", Prefix, t.Format(TimeFormat), n)
}

// Info describes a backup file on disk.
type Info struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// Manager owns the backups directory of one project.
type Manager struct {
	Config   *config.Config
	Compose  *compose.Client
	Prompter prompt.Prompter
	Now      func() time.Time
	DryRun   bool
}

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// reserve creates a new, empty backup file without ever overwriting one.
func (m *Manager) reserve(at time.Time) (*os.File, error) {
	dir := m.Config.BackupsPath()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backups directory: %w", err)
	}
	for n := 0; n < maxSameSecond; n++ {
		path := filepath.Join(dir, FileName(at, n))
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create %s: %w", path, err)
		}
		logger.Debug("[DEBUG] %s exists, trying next suffix\n", path)
	}
	return nil, fmt.Errorf("too many backups for %s", at.Format(TimeFormat))
}

// Create dumps the database into a new backup file and returns its path.
// A failed dump leaves no file behind.
func (m *Manager) Create(ctx context.Context) (string, error) {
	pg := m.Config.PostgresSettings()
	args := []string{"exec", "-T", m.Config.Services.DB, "pg_dump", "-U", pg.User, pg.Database}
	at := m.now()

	if m.DryRun {
		logger.Info("[INFO] Would write %s\n", filepath.Join(m.Config.BackupsPath(), FileName(at, 0)))
		return "", m.Compose.RunIO(ctx, nil, io.Discard, args...)
	}

	f, err := m.reserve(at)
	if err != nil {
		return "", err
	}
	path := f.Name()
	logger.Step("==> Dumping database %s to %s\n", pg.Database, path)

	dumpErr := m.Compose.RunIO(ctx, nil, f, args...)
	closeErr := f.Close()
	if err := errors.Join(dumpErr, closeErr); err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			logger.Warn("[WARN] Could not remove partial backup %s: %v\n", path, rmErr)
		}
		return "", fmt.Errorf("backup failed: %w", err)
	}

	fi, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	state.Update(m.Config.StatePath(), func(s *state.State) {
		s.Backups[filepath.Base(path)] = state.BackupState{Path: path, Size: fi.Size(), CreatedAt: at}
	})
	logger.Success("[OK] Backup written to %s (%s)\n", path, ui.HumanSize(fi.Size()))
	return path, nil
}

// resolveDump makes a relative dump path absolute. It is tried against the
// project root first, then the backups directory, so bare names work.
func (m *Manager) resolveDump(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if p := m.Config.Path(path); fileExists(p) {
		return p
	}
	return filepath.Join(m.Config.BackupsPath(), path)
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}

// Restore loads a dump into the database after confirmation. The dump may be
// compressed; see OpenDump.
func (m *Manager) Restore(ctx context.Context, path string) error {
	path = m.resolveDump(path)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("backup not found: %w", err)
	}
	dump, err := OpenDump(path)
	if err != nil {
		return err
	}
	defer dump.Close()
	pg := m.Config.PostgresSettings()

	ok, err := m.Prompter.Confirm(ctx, fmt.Sprintf("Restore %s into database %s? Existing data may be overwritten.", filepath.Base(path), pg.Database))
	if err != nil {
		return err
	}
	if !ok {
		logger.Warn("[WARN] Restore cancelled\n")
		return nil
	}

	logger.Step("==> Restoring %s into %s\n", filepath.Base(path), pg.Database)
	var stdout io.Writer = io.Discard
	if logger.DebugEnabled() {
		stdout = logger.Output()
	}
	err = m.Compose.RunIO(ctx, dump, stdout,
		"exec", "-T", m.Config.Services.DB, "psql", "-U", pg.User, "-d", pg.Database, "-v", "ON_ERROR_STOP=1")
	if err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}
	logger.Success("[OK] Restored %s\n", filepath.Base(path))
	return nil
}

// List returns the backups on disk, newest first.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.Config.BackupsPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []Info
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), Prefix) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Info{
			Name:    e.Name(),
			Path:    filepath.Join(m.Config.BackupsPath(), e.Name()),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ModTime.Equal(out[j].ModTime) {
			return out[i].Name > out[j].Name
		}
		return out[i].ModTime.After(out[j].ModTime)
	})
	return out, nil
}

// Prune deletes backups whose modification time is older than olderThan,
// after confirmation, and returns the removed paths.
func (m *Manager) Prune(ctx context.Context, olderThan time.Duration) ([]string, error) {
	all, err := m.List()
	if err != nil {
		return nil, err
	}
	cutoff := m.now().Add(-olderThan)
	var stale []Info
	for _, b := range all {
		if b.ModTime.Before(cutoff) {
			stale = append(stale, b)
		}
	}
	if len(stale) == 0 {
		logger.Info("[INFO] No backups older than %s\n", FormatAge(olderThan))
		return nil, nil
	}

	for _, b := range stale {
		logger.Info("  %s  %s\n", b.Name, ui.Muted(b.ModTime.Format("2006-01-02")))
	}
	ok, err := m.Prompter.Confirm(ctx, fmt.Sprintf("Delete %d backups older than %s?", len(stale), FormatAge(olderThan)))
	if err != nil {
		return nil, err
	}
	if !ok {
		logger.Warn("[WARN] Prune cancelled\n")
		return nil, nil
	}

	var removed []string
	var errs []error
	for _, b := range stale {
		if m.DryRun {
			logger.Info("[INFO] Would remove %s\n", b.Path)
			continue
		}
		if err := os.Remove(b.Path); err != nil {
			errs = append(errs, err)
			continue
		}
		removed = append(removed, b.Path)
	}
	if len(removed) > 0 {
		state.Update(m.Config.StatePath(), func(s *state.State) {
			for _, p := range removed {
				delete(s.Backups, filepath.Base(p))
			}
		})
		logger.Success("[OK] Removed %d backups\n", len(removed))
	}
	return removed, errors.Join(errs...)
}

// Console opens psql in the database container.
func (m *Manager) Console(ctx context.Context) error {
	pg := m.Config.PostgresSettings()
	return m.Compose.Run(ctx, "exec", m.Config.Services.DB, "psql", "-U", pg.User, pg.Database)
}

// ParseAge accepts Go durations plus a day suffix ("90d").
func ParseAge(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil || days < 0 {
			return 0, fmt.Errorf("invalid age %q", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid age %q", s)
	}
	return d, nil
}

// FormatAge renders whole days as "90d" and anything else as a Go duration.
func FormatAge(d time.Duration) string {
	day := 24 * time.Hour
	if d >= day && d%day == 0 {
		return fmt.Sprintf("%dd", d/day)
	}
	return d.String()
}
