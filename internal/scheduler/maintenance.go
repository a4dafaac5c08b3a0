// Package scheduler runs the library's periodic maintenance: archiving old
// action log entries and reporting overdue loans. The scheduler only
// enqueues tasks; the task queue workers do the work.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"

	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/tasks"
)

// TaskEnqueuer saves tasks for the background workers.
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, tasks ...backlite.Task) ([]string, error)
}

// MaintenanceScheduler enqueues the maintenance tasks on a cron schedule.
type MaintenanceScheduler struct {
	enqueuer      TaskEnqueuer
	schedule      string
	retentionDays int
	enabled       bool

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewMaintenanceScheduler creates a new scheduler instance.
func NewMaintenanceScheduler(enqueuer TaskEnqueuer, cfg config.Maintenance) *MaintenanceScheduler {
	schedule := cfg.Schedule
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &MaintenanceScheduler{
		enqueuer:      enqueuer,
		schedule:      schedule,
		retentionDays: cfg.LogRetentionDays,
		enabled:       cfg.Enabled,
		cron:          cron.New(cron.WithParser(parser)),
	}
}

// Start begins the scheduler if maintenance is enabled. An invalid
// schedule is reported as an error.
func (s *MaintenanceScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.enabled {
		log.Printf("Maintenance scheduler: disabled")
		return nil
	}

	if err := ValidateCronSchedule(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.enqueue(context.Background()); err != nil {
			log.Printf("Maintenance scheduler: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule maintenance job: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	nextRun, _ := GetNextRunTime(s.schedule, time.Now())
	log.Printf("Maintenance scheduler: started with schedule '%s' (%s). Next run: %v",
		s.schedule,
		GetCronDescription(s.schedule),
		nextRun)

	// Monitor for context cancellation
	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler, waiting for a running enqueue to finish.
func (s *MaintenanceScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.cron.Remove(s.entryID)
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("Maintenance scheduler: stopped")
}

// RunNow enqueues every maintenance task immediately and returns the task IDs.
func (s *MaintenanceScheduler) RunNow(ctx context.Context) ([]string, error) {
	return s.enqueue(ctx)
}

// IsRunning returns whether the scheduler is active.
func (s *MaintenanceScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Schedule returns the cron expression in use.
func (s *MaintenanceScheduler) Schedule() string {
	return s.schedule
}

// GetNextRunTime returns when maintenance will run next, or nil when stopped.
func (s *MaintenanceScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

func (s *MaintenanceScheduler) enqueue(ctx context.Context) ([]string, error) {
	if s.enqueuer == nil {
		return nil, fmt.Errorf("task queue not configured")
	}

	ids, err := s.enqueuer.Enqueue(ctx, tasks.MaintenanceTasks(s.retentionDays)...)
	if err != nil {
		return nil, err
	}
	log.Printf("Maintenance scheduler: enqueued %d tasks", len(ids))
	return ids, nil
}
