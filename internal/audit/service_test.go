package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/database"
	auditRepo "github.com/mrlokans/library/internal/database/audit"
	"github.com/mrlokans/library/internal/entities"
)

var testNow = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func setupTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := database.NewDatabase(config.Database{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "library.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := NewService(auditRepo.NewRepository(db.DB)).WithClock(func() time.Time { return testNow })
	return svc, db.DB
}

func createEntry(t *testing.T, db *gorm.DB, action string, age time.Duration) {
	t.Helper()
	require.NoError(t, db.Create(&entities.LogEntry{
		Timestamp: testNow.Add(-age),
		Action:    action,
		Details:   action + " details",
	}).Error)
}

func TestService_Log(t *testing.T) {
	svc, db := setupTestService(t)

	err := svc.Log(ActionBorrow, "User alice borrowed book 1 (Dune)")
	require.NoError(t, err)

	var saved entities.LogEntry
	require.NoError(t, db.First(&saved).Error)
	assert.Equal(t, ActionBorrow, saved.Action)
	assert.Equal(t, "User alice borrowed book 1 (Dune)", saved.Details)
	assert.True(t, testNow.Equal(saved.Timestamp))
}

func TestService_LogAsync(t *testing.T) {
	svc, db := setupTestService(t)

	svc.LogAsync(ActionCreateUser, "Created user bob with role user")

	assert.Eventually(t, func() bool {
		var count int64
		db.Model(&entities.LogEntry{}).Where("action = ?", ActionCreateUser).Count(&count)
		return count == 1
	}, time.Second, 10*time.Millisecond)
}

func TestService_LogTruncatesDetails(t *testing.T) {
	svc, db := setupTestService(t)

	require.NoError(t, svc.Log(ActionAddBook, strings.Repeat("x", 2*maxDetailsLength)))

	var saved entities.LogEntry
	require.NoError(t, db.First(&saved).Error)
	assert.Len(t, saved.Details, maxDetailsLength)
	assert.True(t, strings.HasSuffix(saved.Details, "..."))
}

func TestService_Recent(t *testing.T) {
	svc, db := setupTestService(t)

	createEntry(t, db, ActionBorrow, 3*time.Hour)
	createEntry(t, db, ActionReturn, 2*time.Hour)
	createEntry(t, db, ActionBorrow, time.Hour)

	entries, total, err := svc.Recent(2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Timestamp.After(entries[1].Timestamp), "newest first")

	entries, total, err = svc.RecentByAction(ActionBorrow, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, entries, 2)
}

func TestService_Archive(t *testing.T) {
	svc, db := setupTestService(t)
	dir := filepath.Join(t.TempDir(), "archive")

	createEntry(t, db, ActionBorrow, 40*24*time.Hour)
	createEntry(t, db, ActionReturn, 31*24*time.Hour)
	createEntry(t, db, ActionAddBook, time.Hour)

	result, err := svc.Archive(30*24*time.Hour, dir)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Archived)
	assert.Equal(t, filepath.Join(dir, "logs-20240501-093000.jsonl.gz"), result.File)

	archived, err := ReadArchive(result.File)
	require.NoError(t, err)
	require.Len(t, archived, 2)
	assert.Equal(t, ActionBorrow, archived[0].Action)
	assert.Equal(t, ActionReturn, archived[1].Action)

	var remaining []entities.LogEntry
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, ActionAddBook, remaining[0].Action)
}

func TestService_ArchiveNothingOld(t *testing.T) {
	svc, db := setupTestService(t)
	dir := filepath.Join(t.TempDir(), "archive")

	createEntry(t, db, ActionBorrow, time.Hour)

	result, err := svc.Archive(30*24*time.Hour, dir)
	require.NoError(t, err)
	assert.Zero(t, result.Archived)
	assert.Empty(t, result.File)

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err), "no archive directory without entries")
}

func TestService_ArchiveFailureKeepsEntries(t *testing.T) {
	svc, db := setupTestService(t)

	// A regular file where the directory should be makes the archive fail.
	blocker := filepath.Join(t.TempDir(), "archive")
	require.NoError(t, os.WriteFile(blocker, []byte("not a directory"), 0644))

	createEntry(t, db, ActionBorrow, 40*24*time.Hour)

	_, err := svc.Archive(30*24*time.Hour, blocker)
	require.Error(t, err)

	var count int64
	db.Model(&entities.LogEntry{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestService_ArchiveTwiceInOneSecond(t *testing.T) {
	svc, db := setupTestService(t)
	dir := filepath.Join(t.TempDir(), "archive")

	createEntry(t, db, ActionBorrow, 100*24*time.Hour)
	createEntry(t, db, ActionReturn, 100*24*time.Hour)
	createEntry(t, db, ActionAddBook, 40*24*time.Hour)

	first, err := svc.Archive(90*24*time.Hour, dir)
	require.NoError(t, err)
	require.Equal(t, 2, first.Archived)

	second, err := svc.Archive(30*24*time.Hour, dir)
	require.NoError(t, err)
	require.Equal(t, 1, second.Archived)

	assert.Equal(t, filepath.Join(dir, "logs-20240501-093000.jsonl.gz"), first.File)
	assert.Equal(t, filepath.Join(dir, "logs-20240501-093000-1.jsonl.gz"), second.File)

	files, err := filepath.Glob(filepath.Join(dir, "*.jsonl.gz"))
	require.NoError(t, err)
	require.Len(t, files, 2)

	var recovered int
	for _, f := range files {
		entries, err := ReadArchive(f)
		require.NoError(t, err)
		recovered += len(entries)
	}
	assert.Equal(t, 3, recovered, "every archived entry is still readable")

	var count int64
	require.NoError(t, db.Model(&entities.LogEntry{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestService_ArchiveDeleteFailureRemovesFile(t *testing.T) {
	svc, db := setupTestService(t)
	dir := filepath.Join(t.TempDir(), "archive")

	createEntry(t, db, ActionBorrow, 40*24*time.Hour)
	require.NoError(t, db.Exec(`CREATE TRIGGER keep_logs BEFORE DELETE ON logs
		BEGIN SELECT RAISE(ABORT, 'logs are read-only'); END`).Error)

	_, err := svc.Archive(30*24*time.Hour, dir)
	require.Error(t, err)

	files, err := filepath.Glob(filepath.Join(dir, "*"))
	require.NoError(t, err)
	assert.Empty(t, files, "no archive is left behind for entries still in the table")

	var count int64
	require.NoError(t, db.Model(&entities.LogEntry{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestService_DeleteOlderThan(t *testing.T) {
	svc, db := setupTestService(t)

	createEntry(t, db, "old", 48*time.Hour)
	createEntry(t, db, "new", time.Hour)

	deleted, err := svc.DeleteOlderThan(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var remaining []entities.LogEntry
	db.Find(&remaining)
	require.Len(t, remaining, 1)
	assert.Equal(t, "new", remaining[0].Action)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"short", 10, "short"},
		{"exactly10c", 10, "exactly10c"},
		{"this is a very long string", 10, "this is..."},
		{"", 5, ""},
	}

	for _, tc := range tests {
		result := truncate(tc.input, tc.maxLen)
		assert.Equal(t, tc.expected, result)
	}
}
