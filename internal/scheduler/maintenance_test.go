package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/tasks"
)

type recordingEnqueuer struct {
	mu    sync.Mutex
	tasks []backlite.Task
	err   error
}

func (r *recordingEnqueuer) Enqueue(ctx context.Context, ts ...backlite.Task) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	r.tasks = append(r.tasks, ts...)
	ids := make([]string, len(ts))
	for i := range ts {
		ids[i] = "task-" + string(rune('a'+i))
	}
	return ids, nil
}

func TestValidateCronSchedule(t *testing.T) {
	assert.NoError(t, ValidateCronSchedule("0 3 * * *"))
	assert.NoError(t, ValidateCronSchedule("*/15 * * * *"))
	assert.Error(t, ValidateCronSchedule("every day"))
	assert.Error(t, ValidateCronSchedule("0 3 * *"), "four fields")
	assert.Error(t, ValidateCronSchedule("0 0 3 * * *"), "seconds are not supported")
}

func TestGetNextRunTime(t *testing.T) {
	from := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

	next, err := GetNextRunTime(DefaultSchedule, from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 2, 3, 0, 0, 0, time.UTC), *next)

	_, err = GetNextRunTime("bogus", from)
	assert.Error(t, err)
}

func TestGetCronDescription(t *testing.T) {
	assert.Equal(t, "Daily at 03:00", GetCronDescription(DefaultSchedule))
	assert.Equal(t, "Custom schedule: 5 4 * * *", GetCronDescription("5 4 * * *"))
}

func TestMaintenanceScheduler_StartStop(t *testing.T) {
	s := NewMaintenanceScheduler(&recordingEnqueuer{}, config.Maintenance{Enabled: true})
	assert.Equal(t, DefaultSchedule, s.Schedule())

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.NotNil(t, s.GetNextRunTime())

	s.Stop()
	assert.False(t, s.IsRunning())
	assert.Nil(t, s.GetNextRunTime())
}

func TestMaintenanceScheduler_Disabled(t *testing.T) {
	s := NewMaintenanceScheduler(&recordingEnqueuer{}, config.Maintenance{Enabled: false, Schedule: "bogus"})

	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
}

func TestMaintenanceScheduler_InvalidSchedule(t *testing.T) {
	s := NewMaintenanceScheduler(&recordingEnqueuer{}, config.Maintenance{Enabled: true, Schedule: "61 * * * *"})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron schedule")
	assert.False(t, s.IsRunning())
}

func TestMaintenanceScheduler_StopsWithContext(t *testing.T) {
	s := NewMaintenanceScheduler(&recordingEnqueuer{}, config.Maintenance{Enabled: true})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool { return !s.IsRunning() }, time.Second, 10*time.Millisecond)
}

func TestMaintenanceScheduler_RunNow(t *testing.T) {
	enqueuer := &recordingEnqueuer{}
	s := NewMaintenanceScheduler(enqueuer, config.Maintenance{LogRetentionDays: 60})

	ids, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Len(t, ids, 2)
	assert.Equal(t, []backlite.Task{
		tasks.ArchiveLogsTask{RetentionDays: 60},
		tasks.OverdueReportTask{},
	}, enqueuer.tasks)

	enqueuer.err = errors.New("queue closed")
	_, err = s.RunNow(context.Background())
	assert.Error(t, err)
}

func TestMaintenanceScheduler_RunNowWithoutQueue(t *testing.T) {
	s := NewMaintenanceScheduler(nil, config.Maintenance{})
	_, err := s.RunNow(context.Background())
	assert.Error(t, err)
}
