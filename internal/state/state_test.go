package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadState_MissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()

	st := LoadState(filepath.Join(dir, "missing.json"))
	assert.NotNil(t, st.Backups)
	assert.Nil(t, st.Setup)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	st = LoadState(bad)
	assert.NotNil(t, st.Backups)
}

func TestSaveState_RoundTripCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".railsdock", "state.json")
	at := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

	st := LoadState(path)
	st.Setup = &SetupState{CompletedAt: at, Mode: "existing"}
	st.Backups["db_backup_20261018_093000.sql"] = BackupState{Path: "/p", Size: 12, CreatedAt: at}
	require.NoError(t, SaveState(path, st))

	got := LoadState(path)
	require.NotNil(t, got.Setup)
	assert.Equal(t, "existing", got.Setup.Mode)
	assert.True(t, got.Setup.CompletedAt.Equal(at))
	assert.Equal(t, int64(12), got.Backups["db_backup_20261018_093000.sql"].Size)
}

func TestRecordCleanup_Capped(t *testing.T) {
	st := &State{}
	_, ok := st.LastCleanup()
	assert.False(t, ok)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < maxCleanups+5; i++ {
		st.RecordCleanup("light", base.Add(time.Duration(i)*time.Hour), 0)
	}
	st.RecordCleanup("deep", base.Add(100*time.Hour), 2)

	assert.Len(t, st.Cleanups, maxCleanups)
	last, ok := st.LastCleanup()
	require.True(t, ok)
	assert.Equal(t, "deep", last.Level)
	assert.Equal(t, 2, last.Failed)
}

func TestUpdate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	Update(path, func(s *State) { s.RecordCleanup("medium", time.Now(), 1) })
	Update(path, func(s *State) { s.RecordCleanup("light", time.Now(), 0) })

	st := LoadState(path)
	require.Len(t, st.Cleanups, 2)
	assert.Equal(t, "medium", st.Cleanups[0].Level)
}
