package audit

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/library/internal/entities"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "logs.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.LogEntry{})
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return db
}

func TestRepository_LogEntry(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	entry := &entities.LogEntry{Action: "add_book", Details: "Added book: Dune by Frank Herbert"}
	err := repo.LogEntry(entry)
	require.NoError(t, err)
	assert.NotZero(t, entry.ID)
	assert.False(t, entry.Timestamp.IsZero())
}

func TestRepository_GetEntries(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	now := time.Now().UTC()

	for i := 0; i < 15; i++ {
		require.NoError(t, repo.LogEntry(&entities.LogEntry{
			Action:    "add_book",
			Details:   "test",
			Timestamp: now.Add(time.Duration(-i) * time.Hour),
		}))
	}
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.LogEntry(&entities.LogEntry{Action: "delete_book", Details: "test"}))
	}

	t.Run("get all entries", func(t *testing.T) {
		entries, total, err := repo.GetEntries("", 50, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(20), total)
		assert.Len(t, entries, 20)
	})

	t.Run("filter by action", func(t *testing.T) {
		entries, total, err := repo.GetEntries("add_book", 50, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(15), total)
		assert.Len(t, entries, 15)
	})

	t.Run("pagination", func(t *testing.T) {
		page1, total, err := repo.GetEntries("add_book", 5, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(15), total)
		require.Len(t, page1, 5)

		page2, _, err := repo.GetEntries("add_book", 5, 5)
		require.NoError(t, err)
		require.Len(t, page2, 5)
		assert.True(t, page1[4].Timestamp.After(page2[0].Timestamp))
	})
}

func TestRepository_ArchiveOlderThan(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	now := time.Now().UTC()

	require.NoError(t, repo.LogEntry(&entities.LogEntry{Action: "old", Timestamp: now.AddDate(0, 0, -100)}))
	require.NoError(t, repo.LogEntry(&entities.LogEntry{Action: "old", Timestamp: now.AddDate(0, 0, -95)}))
	require.NoError(t, repo.LogEntry(&entities.LogEntry{Action: "recent", Timestamp: now}))
	cutoff := now.AddDate(0, 0, -90)

	t.Run("failed archive keeps entries", func(t *testing.T) {
		n, err := repo.ArchiveOlderThan(cutoff, func([]entities.LogEntry) error {
			return errors.New("disk full")
		})
		require.Error(t, err)
		assert.Zero(t, n)

		_, total, err := repo.GetEntries("", 50, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
	})

	t.Run("archives and deletes old entries", func(t *testing.T) {
		var seen []entities.LogEntry
		n, err := repo.ArchiveOlderThan(cutoff, func(entries []entities.LogEntry) error {
			seen = entries
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		require.Len(t, seen, 2)
		assert.Equal(t, "old", seen[0].Action)

		entries, total, err := repo.GetEntries("", 50, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, "recent", entries[0].Action)
	})

	t.Run("nothing to archive", func(t *testing.T) {
		called := false
		n, err := repo.ArchiveOlderThan(cutoff, func([]entities.LogEntry) error {
			called = true
			return nil
		})
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.False(t, called)
	})
}

func TestRepository_DeleteOlderThan(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	now := time.Now().UTC()

	require.NoError(t, repo.LogEntry(&entities.LogEntry{Action: "old", Timestamp: now.AddDate(0, 0, -40)}))
	require.NoError(t, repo.LogEntry(&entities.LogEntry{Action: "recent", Timestamp: now}))

	deleted, err := repo.DeleteOlderThan(now.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}
