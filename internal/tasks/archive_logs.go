package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/library/internal/audit"
)

const (
	QueueArchiveLogs = "archive_logs"

	defaultLogRetentionDays = 30
)

// LogArchiver moves old action log entries out of the database.
type LogArchiver interface {
	Archive(retention time.Duration, dir string) (*audit.ArchiveResult, error)
}

// ArchiveLogsTask archives action log entries older than RetentionDays.
type ArchiveLogsTask struct {
	RetentionDays int `json:"retention_days"`
}

// Config returns the queue configuration for log archiving tasks.
func (t ArchiveLogsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        QueueArchiveLogs,
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ArchiveLogsProcessor creates a processor function for ArchiveLogsTask.
// Archives are written to dir.
func ArchiveLogsProcessor(archiver LogArchiver, dir string) backlite.QueueProcessor[ArchiveLogsTask] {
	return func(ctx context.Context, task ArchiveLogsTask) error {
		if archiver == nil {
			return fmt.Errorf("log archiver not configured")
		}

		retentionDays := task.RetentionDays
		if retentionDays <= 0 {
			retentionDays = defaultLogRetentionDays
		}
		retention := time.Duration(retentionDays) * 24 * time.Hour

		result, err := archiver.Archive(retention, dir)
		if err != nil {
			return fmt.Errorf("archive logs: %w", err)
		}

		log.Printf("[TASK] Archived %d log entries older than %d days", result.Archived, retentionDays)
		return nil
	}
}

// NewArchiveLogsQueue creates a backlite queue for log archiving tasks.
func NewArchiveLogsQueue(archiver LogArchiver, dir string) backlite.Queue {
	return backlite.NewQueue(ArchiveLogsProcessor(archiver, dir))
}
