package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs maintenance daily at 03:00.
const DefaultSchedule = "0 3 * * *"

// parser accepts standard five-field cron expressions.
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateCronSchedule validates a cron schedule expression.
func ValidateCronSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// GetCronDescription returns a human-readable description of a cron schedule.
func GetCronDescription(schedule string) string {
	switch schedule {
	case "0 * * * *":
		return "Every hour at :00"
	case "0 */6 * * *":
		return "Every 6 hours"
	case "0 0 * * *":
		return "Daily at midnight"
	case DefaultSchedule:
		return "Daily at 03:00"
	case "0 0 * * 0":
		return "Weekly on Sunday at midnight"
	default:
		return "Custom schedule: " + schedule
	}
}

// GetNextRunTime calculates when a schedule fires next after from.
func GetNextRunTime(schedule string, from time.Time) (*time.Time, error) {
	sched, err := parser.Parse(schedule)
	if err != nil {
		return nil, err
	}
	next := sched.Next(from)
	return &next, nil
}
