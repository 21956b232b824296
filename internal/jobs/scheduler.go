package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"oftaclinic/api/internal/cleanup"
)

// CleanupRunner is the slice of the cleanup service the scheduler drives.
type CleanupRunner interface {
	DeleteUnused(ctx context.Context) (cleanup.Report, error)
	UsageStats(ctx context.Context) (cleanup.Stats, error)
}

// CacheFlusher clears the image cache after a cleanup pass.
type CacheFlusher interface {
	Flush(ctx context.Context)
}

// Notifier delivers operator notifications. Notification failures never fail
// the task that triggered them.
type Notifier interface {
	CleanupReport(report cleanup.Report) error
	StorageAlert(stats cleanup.Stats) error
	TaskStatus(task string, enabled bool) error
}

// Thresholds are the stats-check alert limits.
type Thresholds struct {
	UnusedCount  int
	StorageBytes int64
}

// WeeklyCleanupResult captures the stats before and after the weekly pass.
type WeeklyCleanupResult struct {
	InitialStats cleanup.Stats  `json:"initialStats"`
	FinalStats   cleanup.Stats  `json:"finalStats"`
	Report       cleanup.Report `json:"result"`
}

// Scheduler registers the wall-clock triggers and runs the task bodies. Cron
// entries always fire; a disabled task is skipped at fire time, so toggling
// takes effect without touching the cron runtime.
type Scheduler struct {
	cron       *cron.Cron
	tasks      *TaskSet
	cleaner    CleanupRunner
	cache      CacheFlusher
	notifier   Notifier
	thresholds Thresholds
	log        zerolog.Logger
	entries    map[string]cron.EntryID
}

func NewScheduler(tasks *TaskSet, cleaner CleanupRunner, cache CacheFlusher, notifier Notifier, thresholds Thresholds, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithSeconds()),
		tasks:      tasks,
		cleaner:    cleaner,
		cache:      cache,
		notifier:   notifier,
		thresholds: thresholds,
		log:        log,
		entries:    make(map[string]cron.EntryID),
	}
}

func (s *Scheduler) Start() error {
	for _, task := range s.tasks.All() {
		name := task.Name
		id, err := s.cron.AddFunc(task.Schedule, func() { s.fire(name) })
		if err != nil {
			return fmt.Errorf("schedule %s: %w", name, err)
		}
		s.entries[name] = id
		s.log.Info().Str("task", name).Str("schedule", task.Schedule).Msg("task scheduled")
	}
	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() context.CancelFunc {
	_, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	go func() {
		<-s.cron.Stop().Done()
		cancel()
	}()
	return cancel
}

// fire runs one scheduled invocation. Failures are logged and swallowed; the
// next firing is unaffected and nothing is retried within the window.
func (s *Scheduler) fire(name string) {
	if !s.tasks.Enabled(name) {
		s.log.Debug().Str("task", name).Msg("task disabled, skipping")
		return
	}

	if _, err := s.RunTask(context.Background(), name); err != nil {
		s.log.Error().Err(err).Str("task", name).Msg("scheduled task failed")
	}
}

// RunTask executes a task body immediately and returns its result. The
// enabled flag is deliberately bypassed so operators can trigger a disabled
// task by hand.
func (s *Scheduler) RunTask(ctx context.Context, name string) (any, error) {
	switch name {
	case TaskDailyCleanup:
		return s.runDailyCleanup(ctx)
	case TaskWeeklyCleanup:
		return s.runWeeklyCleanup(ctx)
	case TaskStatsCheck:
		return s.runStatsCheck(ctx)
	default:
		return nil, ErrUnknownTask
	}
}

// SetTaskEnabled flips a task's flag and notifies admins of the change.
func (s *Scheduler) SetTaskEnabled(name string, enabled bool) (TaskConfig, error) {
	task, err := s.tasks.SetEnabled(name, enabled)
	if err != nil {
		return TaskConfig{}, err
	}
	s.log.Info().Str("task", name).Bool("enabled", enabled).Msg("task toggled")
	if err := s.notifier.TaskStatus(name, enabled); err != nil {
		s.log.Error().Err(err).Str("task", name).Msg("task status notification failed")
	}
	return task, nil
}

// Status reports every task with its next firing time.
func (s *Scheduler) Status() []TaskStatus {
	statuses := make([]TaskStatus, 0, len(s.entries))
	for _, task := range s.tasks.All() {
		status := TaskStatus{
			Name:        task.Name,
			Schedule:    task.Schedule,
			Enabled:     task.Enabled,
			Description: task.Description,
		}
		if id, ok := s.entries[task.Name]; ok {
			if next := s.cron.Entry(id).Next; !next.IsZero() {
				status.NextRun = &next
			}
		}
		statuses = append(statuses, status)
	}
	return statuses
}

func (s *Scheduler) runDailyCleanup(ctx context.Context) (cleanup.Report, error) {
	s.log.Info().Msg("starting daily image cleanup")

	report, err := s.cleaner.DeleteUnused(ctx)
	if err != nil {
		return cleanup.Report{}, err
	}
	s.cache.Flush(ctx)
	s.log.Info().Int("deleted", report.Total).Msg("daily cleanup finished")

	if report.Total > 0 {
		if err := s.notifier.CleanupReport(report); err != nil {
			s.log.Error().Err(err).Msg("cleanup report notification failed")
		}
	}
	return report, nil
}

func (s *Scheduler) runWeeklyCleanup(ctx context.Context) (WeeklyCleanupResult, error) {
	s.log.Info().Msg("starting weekly image cleanup")

	initial, err := s.cleaner.UsageStats(ctx)
	if err != nil {
		return WeeklyCleanupResult{}, err
	}
	report, err := s.cleaner.DeleteUnused(ctx)
	if err != nil {
		return WeeklyCleanupResult{}, err
	}
	final, err := s.cleaner.UsageStats(ctx)
	if err != nil {
		return WeeklyCleanupResult{}, err
	}
	s.cache.Flush(ctx)
	s.log.Info().
		Int("deleted", report.Total).
		Int("remaining", final.TotalImages).
		Msg("weekly cleanup finished")

	if err := s.notifier.CleanupReport(report); err != nil {
		s.log.Error().Err(err).Msg("cleanup report notification failed")
	}

	return WeeklyCleanupResult{
		InitialStats: initial,
		FinalStats:   final,
		Report:       report,
	}, nil
}

func (s *Scheduler) runStatsCheck(ctx context.Context) (cleanup.Stats, error) {
	stats, err := s.cleaner.UsageStats(ctx)
	if err != nil {
		return cleanup.Stats{}, err
	}
	s.log.Info().
		Int("total", stats.TotalImages).
		Int("unused", stats.UnusedImages).
		Int64("total_size", stats.TotalSize).
		Msg("image usage stats")

	if stats.UnusedImages > s.thresholds.UnusedCount {
		s.log.Warn().Int("unused", stats.UnusedImages).Msg("unused image count over threshold")
		if err := s.notifier.StorageAlert(stats); err != nil {
			s.log.Error().Err(err).Msg("storage alert notification failed")
		}
	}
	if stats.TotalSize > s.thresholds.StorageBytes {
		s.log.Warn().Int64("total_size", stats.TotalSize).Msg("storage usage over threshold")
		if err := s.notifier.StorageAlert(stats); err != nil {
			s.log.Error().Err(err).Msg("storage alert notification failed")
		}
	}
	return stats, nil
}
