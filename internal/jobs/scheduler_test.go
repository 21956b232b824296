package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oftaclinic/api/internal/cleanup"
)

type fakeCleaner struct {
	report      cleanup.Report
	stats       cleanup.Stats
	deleteErr   error
	deleteCalls int
	statsCalls  int
}

func (f *fakeCleaner) DeleteUnused(ctx context.Context) (cleanup.Report, error) {
	f.deleteCalls++
	return f.report, f.deleteErr
}

func (f *fakeCleaner) UsageStats(ctx context.Context) (cleanup.Stats, error) {
	f.statsCalls++
	return f.stats, nil
}

type fakeFlusher struct {
	flushes int
}

func (f *fakeFlusher) Flush(ctx context.Context) {
	f.flushes++
}

type fakeNotifier struct {
	cleanupReports []cleanup.Report
	storageAlerts  []cleanup.Stats
	taskStatuses   map[string]bool
	err            error
}

func (f *fakeNotifier) CleanupReport(report cleanup.Report) error {
	f.cleanupReports = append(f.cleanupReports, report)
	return f.err
}

func (f *fakeNotifier) StorageAlert(stats cleanup.Stats) error {
	f.storageAlerts = append(f.storageAlerts, stats)
	return f.err
}

func (f *fakeNotifier) TaskStatus(task string, enabled bool) error {
	if f.taskStatuses == nil {
		f.taskStatuses = make(map[string]bool)
	}
	f.taskStatuses[task] = enabled
	return f.err
}

func newTestScheduler(cleaner *fakeCleaner, flusher *fakeFlusher, notifier *fakeNotifier) *Scheduler {
	return NewScheduler(
		DefaultTaskSet(), cleaner, flusher, notifier,
		Thresholds{UnusedCount: 100, StorageBytes: 5 << 30},
		zerolog.Nop(),
	)
}

func TestDefaultTaskSet(t *testing.T) {
	set := DefaultTaskSet()

	tasks := set.All()
	require.Len(t, tasks, 3)
	assert.Equal(t, TaskDailyCleanup, tasks[0].Name)
	assert.Equal(t, TaskWeeklyCleanup, tasks[1].Name)
	assert.Equal(t, TaskStatsCheck, tasks[2].Name)
	for _, task := range tasks {
		assert.True(t, task.Enabled, task.Name)
	}
}

func TestTaskSetToggle(t *testing.T) {
	set := DefaultTaskSet()

	task, err := set.SetEnabled(TaskDailyCleanup, false)
	require.NoError(t, err)
	assert.False(t, task.Enabled)
	assert.False(t, set.Enabled(TaskDailyCleanup))

	task, err = set.SetEnabled(TaskDailyCleanup, true)
	require.NoError(t, err)
	assert.True(t, task.Enabled)

	_, err = set.SetEnabled("compactDatabase", false)
	assert.ErrorIs(t, err, ErrUnknownTask)
}

func TestRunTaskUnknownName(t *testing.T) {
	s := newTestScheduler(&fakeCleaner{}, &fakeFlusher{}, &fakeNotifier{})

	_, err := s.RunTask(context.Background(), "compactDatabase")
	assert.ErrorIs(t, err, ErrUnknownTask)
}

func TestRunTaskBypassesEnabledFlag(t *testing.T) {
	cleaner := &fakeCleaner{report: cleanup.Report{Total: 1, Deleted: []string{"a.jpg"}}}
	s := newTestScheduler(cleaner, &fakeFlusher{}, &fakeNotifier{})

	_, err := s.tasks.SetEnabled(TaskDailyCleanup, false)
	require.NoError(t, err)

	result, err := s.RunTask(context.Background(), TaskDailyCleanup)
	require.NoError(t, err)
	assert.Equal(t, 1, cleaner.deleteCalls, "manual runs execute even when the task is disabled")

	report, ok := result.(cleanup.Report)
	require.True(t, ok)
	assert.Equal(t, 1, report.Total)
}

func TestDailyCleanupFlushesCacheAndNotifies(t *testing.T) {
	cleaner := &fakeCleaner{report: cleanup.Report{Total: 2, Deleted: []string{"a.jpg", "b.jpg"}}}
	flusher := &fakeFlusher{}
	notifier := &fakeNotifier{}
	s := newTestScheduler(cleaner, flusher, notifier)

	_, err := s.RunTask(context.Background(), TaskDailyCleanup)
	require.NoError(t, err)

	assert.Equal(t, 1, flusher.flushes)
	require.Len(t, notifier.cleanupReports, 1)
	assert.Equal(t, 2, notifier.cleanupReports[0].Total)
}

func TestDailyCleanupSkipsNotificationWhenNothingDeleted(t *testing.T) {
	notifier := &fakeNotifier{}
	s := newTestScheduler(&fakeCleaner{}, &fakeFlusher{}, notifier)

	_, err := s.RunTask(context.Background(), TaskDailyCleanup)
	require.NoError(t, err)
	assert.Empty(t, notifier.cleanupReports)
}

func TestDailyCleanupPropagatesFailure(t *testing.T) {
	cleaner := &fakeCleaner{deleteErr: errors.New("store down")}
	flusher := &fakeFlusher{}
	s := newTestScheduler(cleaner, flusher, &fakeNotifier{})

	_, err := s.RunTask(context.Background(), TaskDailyCleanup)
	assert.Error(t, err)
	assert.Zero(t, flusher.flushes, "no flush after a failed cleanup")
}

func TestWeeklyCleanupAlwaysNotifies(t *testing.T) {
	cleaner := &fakeCleaner{stats: cleanup.Stats{TotalImages: 10}}
	notifier := &fakeNotifier{}
	s := newTestScheduler(cleaner, &fakeFlusher{}, notifier)

	result, err := s.RunTask(context.Background(), TaskWeeklyCleanup)
	require.NoError(t, err)
	assert.Equal(t, 2, cleaner.statsCalls, "stats taken before and after the pass")
	assert.Len(t, notifier.cleanupReports, 1, "weekly report goes out even with zero deletions")

	weekly, ok := result.(WeeklyCleanupResult)
	require.True(t, ok)
	assert.Equal(t, 10, weekly.InitialStats.TotalImages)
}

func TestStatsCheckBelowThresholdsStaysQuiet(t *testing.T) {
	cleaner := &fakeCleaner{stats: cleanup.Stats{TotalImages: 10, UnusedImages: 3, TotalSize: 1 << 20}}
	notifier := &fakeNotifier{}
	s := newTestScheduler(cleaner, &fakeFlusher{}, notifier)

	_, err := s.RunTask(context.Background(), TaskStatsCheck)
	require.NoError(t, err)
	assert.Empty(t, notifier.storageAlerts)
}

func TestStatsCheckAlertsPerBreachedThreshold(t *testing.T) {
	cleaner := &fakeCleaner{stats: cleanup.Stats{
		TotalImages:  500,
		UnusedImages: 200,
		TotalSize:    6 << 30,
	}}
	notifier := &fakeNotifier{}
	s := newTestScheduler(cleaner, &fakeFlusher{}, notifier)

	_, err := s.RunTask(context.Background(), TaskStatsCheck)
	require.NoError(t, err)
	assert.Len(t, notifier.storageAlerts, 2, "count and size thresholds alert independently")
}

func TestSetTaskEnabledNotifiesAdmins(t *testing.T) {
	notifier := &fakeNotifier{}
	s := newTestScheduler(&fakeCleaner{}, &fakeFlusher{}, notifier)

	task, err := s.SetTaskEnabled(TaskStatsCheck, false)
	require.NoError(t, err)
	assert.False(t, task.Enabled)
	assert.Equal(t, map[string]bool{TaskStatsCheck: false}, notifier.taskStatuses)

	_, err = s.SetTaskEnabled("compactDatabase", true)
	assert.ErrorIs(t, err, ErrUnknownTask)
}

func TestSetTaskEnabledSurvivesNotifierFailure(t *testing.T) {
	notifier := &fakeNotifier{err: errors.New("smtp down")}
	s := newTestScheduler(&fakeCleaner{}, &fakeFlusher{}, notifier)

	task, err := s.SetTaskEnabled(TaskDailyCleanup, false)
	require.NoError(t, err, "notification failures never fail the toggle")
	assert.False(t, task.Enabled)
}

func TestStatusListsEveryTask(t *testing.T) {
	s := newTestScheduler(&fakeCleaner{}, &fakeFlusher{}, &fakeNotifier{})

	statuses := s.Status()
	require.Len(t, statuses, 3)
	assert.Equal(t, TaskDailyCleanup, statuses[0].Name)
	assert.Equal(t, "0 0 3 * * *", statuses[0].Schedule)
	assert.Nil(t, statuses[0].NextRun, "cron not started, no next firing")
}
