package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oftaclinic/api/internal/cleanup"
	"oftaclinic/api/internal/config"
	"oftaclinic/api/internal/jobs"
)

type stubCleaner struct{}

func (stubCleaner) DeleteUnused(ctx context.Context) (cleanup.Report, error) {
	return cleanup.Report{Total: 1, Deleted: []string{"a.jpg"}}, nil
}

func (stubCleaner) UsageStats(ctx context.Context) (cleanup.Stats, error) {
	return cleanup.Stats{TotalImages: 1, UsedImages: 1}, nil
}

type stubFlusher struct{}

func (stubFlusher) Flush(ctx context.Context) {}

type stubNotifier struct{}

func (stubNotifier) CleanupReport(cleanup.Report) error { return nil }
func (stubNotifier) StorageAlert(cleanup.Stats) error   { return nil }
func (stubNotifier) TaskStatus(string, bool) error      { return nil }

func newSchedulerRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	scheduler := jobs.NewScheduler(
		jobs.DefaultTaskSet(), stubCleaner{}, stubFlusher{}, stubNotifier{},
		jobs.Thresholds{UnusedCount: 100, StorageBytes: 5 << 30},
		zerolog.Nop(),
	)

	h := NewHandlerSet(Deps{
		Log:       zerolog.Nop(),
		Cfg:       &config.AppConfig{Environment: "development"},
		Scheduler: scheduler,
	})

	router := gin.New()
	router.GET("/api/scheduler/status", h.GetSchedulerStatus)
	router.PUT("/api/scheduler/tasks/:name", h.UpdateTaskStatus)
	router.POST("/api/scheduler/tasks/:name/run", h.RunTask)
	return router
}

func TestSchedulerStatusEndpoint(t *testing.T) {
	router := newSchedulerRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/scheduler/status", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Tasks []jobs.TaskStatus `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Tasks, 3)
	assert.Equal(t, jobs.TaskDailyCleanup, body.Tasks[0].Name)
	assert.True(t, body.Tasks[0].Enabled)
}

func TestUpdateTaskStatusEndpoint(t *testing.T) {
	router := newSchedulerRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/scheduler/tasks/dailyCleanup",
		strings.NewReader(`{"enabled": false}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"enabled":false`)
}

func TestUpdateTaskStatusRequiresBoolean(t *testing.T) {
	router := newSchedulerRouter(t)

	for _, body := range []string{`{}`, `{"enabled": "yes"}`, ``} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/api/scheduler/tasks/dailyCleanup",
			strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestUpdateTaskStatusUnknownTask(t *testing.T) {
	router := newSchedulerRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/scheduler/tasks/compactDatabase",
		strings.NewReader(`{"enabled": true}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRunTaskEndpoint(t *testing.T) {
	router := newSchedulerRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/scheduler/tasks/dailyCleanup/run", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/scheduler/tasks/compactDatabase/run", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
