package tasks

import (
	"fmt"

	"github.com/mikestefanello/backlite"
)

// TypeInfo describes a task type that can be triggered by hand.
type TypeInfo struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Queue       string `json:"queue"`
}

// Types lists the maintenance tasks in the order the scheduler runs them.
var Types = []TypeInfo{
	{
		Type:        QueueArchiveLogs,
		Description: "Archive old action log entries to a compressed file",
		Queue:       QueueArchiveLogs,
	},
	{
		Type:        QueueOverdueReport,
		Description: "Record the loans that are past their due date",
		Queue:       QueueOverdueReport,
	},
}

// NewTask builds the task for a task type.
// retentionDays is used by archive_logs only.
func NewTask(taskType string, retentionDays int) (backlite.Task, error) {
	switch taskType {
	case QueueArchiveLogs:
		return ArchiveLogsTask{RetentionDays: retentionDays}, nil
	case QueueOverdueReport:
		return OverdueReportTask{}, nil
	default:
		return nil, fmt.Errorf("unknown task type: %s", taskType)
	}
}

// MaintenanceTasks returns one task of every maintenance type.
func MaintenanceTasks(retentionDays int) []backlite.Task {
	return []backlite.Task{
		ArchiveLogsTask{RetentionDays: retentionDays},
		OverdueReportTask{},
	}
}
