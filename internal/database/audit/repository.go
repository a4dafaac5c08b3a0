package audit

import (
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// LogEntry appends an entry to the action log.
func (r *Repository) LogEntry(entry *entities.LogEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	return r.db.Create(entry).Error
}

// GetEntries retrieves paginated log entries, most recent first.
// An empty action returns entries of every action.
func (r *Repository) GetEntries(action string, limit, offset int) ([]entities.LogEntry, int64, error) {
	var entries []entities.LogEntry
	var total int64

	query := r.db.Model(&entities.LogEntry{})
	if action != "" {
		query = query.Where("action = ?", action)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	err := query.Order("timestamp DESC, id DESC").Limit(limit).Offset(offset).Find(&entries).Error
	return entries, total, err
}

// ArchiveOlderThan hands every entry older than cutoff to archive and, if it
// succeeds, deletes those entries. Both happen in one database transaction so
// a failed archive leaves the log untouched. Returns the number of archived entries.
func (r *Repository) ArchiveOlderThan(cutoff time.Time, archive func([]entities.LogEntry) error) (int, error) {
	var archived int
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var entries []entities.LogEntry
		if err := tx.Where("timestamp < ?", cutoff.UTC()).Order("id ASC").Find(&entries).Error; err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		if err := archive(entries); err != nil {
			return err
		}

		lastID := entries[len(entries)-1].ID
		result := tx.Where("timestamp < ? AND id <= ?", cutoff.UTC(), lastID).Delete(&entities.LogEntry{})
		if result.Error != nil {
			return result.Error
		}
		archived = int(result.RowsAffected)
		return nil
	})
	return archived, err
}

// DeleteOlderThan removes log entries older than the specified time without archiving.
// Returns the number of deleted entries.
func (r *Repository) DeleteOlderThan(olderThan time.Time) (int64, error) {
	result := r.db.Where("timestamp < ?", olderThan.UTC()).Delete(&entities.LogEntry{})
	return result.RowsAffected, result.Error
}
