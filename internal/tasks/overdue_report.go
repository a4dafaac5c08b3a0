package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/library/internal/admin"
)

const QueueOverdueReport = "overdue_report"

// OverdueRecorder logs the loans that are past due.
type OverdueRecorder interface {
	RecordOverdueLoans(now time.Time) (*admin.OverdueReport, error)
}

// OverdueReportTask records a summary of overdue loans in the action log.
type OverdueReportTask struct{}

// Config returns the queue configuration for overdue reports.
func (t OverdueReportTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        QueueOverdueReport,
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// OverdueReportProcessor creates a processor function for OverdueReportTask.
func OverdueReportProcessor(recorder OverdueRecorder) backlite.QueueProcessor[OverdueReportTask] {
	return func(ctx context.Context, task OverdueReportTask) error {
		if recorder == nil {
			return fmt.Errorf("overdue recorder not configured")
		}

		report, err := recorder.RecordOverdueLoans(time.Now())
		if err != nil {
			return fmt.Errorf("overdue report: %w", err)
		}

		log.Printf("[TASK] Found %d overdue loans", report.Count)
		return nil
	}
}

// NewOverdueReportQueue creates a backlite queue for overdue reports.
func NewOverdueReportQueue(recorder OverdueRecorder) backlite.Queue {
	return backlite.NewQueue(OverdueReportProcessor(recorder))
}
