package jobs

import (
	"errors"
	"sync"
	"time"
)

const (
	TaskDailyCleanup  = "dailyCleanup"
	TaskWeeklyCleanup = "weeklyCleanup"
	TaskStatsCheck    = "statsCheck"
)

var ErrUnknownTask = errors.New("unknown task")

// TaskConfig describes one scheduled task. Schedules are 6-field cron
// expressions (seconds first).
type TaskConfig struct {
	Name        string `json:"name"`
	Schedule    string `json:"schedule"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

// TaskStatus is the admin-facing view of a task.
type TaskStatus struct {
	Name        string     `json:"name"`
	Schedule    string     `json:"schedule"`
	Enabled     bool       `json:"enabled"`
	Description string     `json:"description"`
	NextRun     *time.Time `json:"nextRun,omitempty"`
}

// TaskSet is the in-memory task registry. It is owned by the composition
// root and injected into the scheduler; it is never persisted and resets to
// defaults on restart. All toggles go through one mutex.
type TaskSet struct {
	mu    sync.Mutex
	tasks map[string]*TaskConfig
	order []string
}

// DefaultTaskSet returns the three fixed tasks, all enabled: daily cleanup at
// 03:00, full weekly cleanup Sundays at 04:00 and a stats check every six
// hours.
func DefaultTaskSet() *TaskSet {
	set := &TaskSet{tasks: make(map[string]*TaskConfig)}
	for _, task := range []TaskConfig{
		{
			Name:        TaskDailyCleanup,
			Schedule:    "0 0 3 * * *",
			Description: "Daily cleanup of unused images",
			Enabled:     true,
		},
		{
			Name:        TaskWeeklyCleanup,
			Schedule:    "0 0 4 * * 0",
			Description: "Full weekly image cleanup with before/after stats",
			Enabled:     true,
		},
		{
			Name:        TaskStatsCheck,
			Schedule:    "0 0 */6 * * *",
			Description: "Image usage statistics check",
			Enabled:     true,
		},
	} {
		t := task
		set.tasks[t.Name] = &t
		set.order = append(set.order, t.Name)
	}
	return set
}

func (s *TaskSet) Get(name string) (TaskConfig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[name]
	if !ok {
		return TaskConfig{}, false
	}
	return *task, true
}

func (s *TaskSet) Enabled(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[name]
	return ok && task.Enabled
}

func (s *TaskSet) SetEnabled(name string, enabled bool) (TaskConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[name]
	if !ok {
		return TaskConfig{}, ErrUnknownTask
	}
	task.Enabled = enabled
	return *task, nil
}

// All returns the tasks in their registration order.
func (s *TaskSet) All() []TaskConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TaskConfig, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, *s.tasks[name])
	}
	return out
}
