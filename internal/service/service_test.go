package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/cutoptimizer/internal/config"
	"github.com/piwi3910/cutoptimizer/internal/request"
	"github.com/piwi3910/cutoptimizer/internal/task"
)

func testConfig() config.Config {
	cfg := config.Load()
	cfg.Service.PoolSize = 2
	cfg.Service.QueueCapacity = 4
	cfg.Performance.MaxSimultaneousThreads = 4
	cfg.Performance.ThreadCheckInterval = 10 * time.Millisecond
	return cfg
}

func validPanel(id int) request.Panel {
	return request.Panel{ID: id, Width: "100", Height: "50", Count: 1, Enabled: true}
}

func baseRequest() request.CalculationRequest {
	return request.CalculationRequest{
		Panels:      []request.Panel{validPanel(1)},
		StockPanels: []request.Panel{{ID: 10, Width: "100", Height: "50", Count: 1, Enabled: true}},
		ClientInfo:  request.ClientInfo{ID: "client-1"},
	}
}

func TestSubmitTaskRejectsZeroDemandPanels(t *testing.T) {
	s := New(testConfig())
	s.Init()
	defer s.Stop()

	req := baseRequest()
	req.Panels = nil

	code, taskID := s.SubmitTask(req)
	assert.Equal(t, StatusInvalidTiles, code)
	assert.Empty(t, taskID)
}

func TestSubmitTaskRejectsTooManyDemandPanels(t *testing.T) {
	s := New(testConfig())
	s.Init()
	defer s.Stop()

	req := baseRequest()
	req.Panels = []request.Panel{{ID: 1, Width: "10", Height: "10", Count: 5001, Enabled: true}}

	code, _ := s.SubmitTask(req)
	assert.Equal(t, StatusTooManyPanels, code)
}

func TestSubmitTaskRejectsZeroStockPanels(t *testing.T) {
	s := New(testConfig())
	s.Init()
	defer s.Stop()

	req := baseRequest()
	req.StockPanels = nil

	code, _ := s.SubmitTask(req)
	assert.Equal(t, StatusInvalidStockTiles, code)
}

func TestSubmitTaskRejectsTooManyStockPanels(t *testing.T) {
	s := New(testConfig())
	s.Init()
	defer s.Stop()

	req := baseRequest()
	req.StockPanels = []request.Panel{{ID: 1, Width: "10", Height: "10", Count: 5001, Enabled: true}}

	code, _ := s.SubmitTask(req)
	assert.Equal(t, StatusTooManyStockPanels, code)
}

func TestSubmitTaskEnforcesOneRunningTaskPerClient(t *testing.T) {
	s := New(testConfig())
	s.cfg.MaxSimultaneousTasks = 1
	s.Init()
	defer s.Stop()

	running := task.New("already-running", "client-1", task.Request{}, 1)
	running.SetRunning()
	s.registry.Add(running)

	code, taskID := s.SubmitTask(baseRequest())
	assert.Equal(t, StatusTaskAlreadyRunning, code)
	assert.Empty(t, taskID)
}

func TestSubmitTaskAllowsMultipleTasksWhenConfigured(t *testing.T) {
	s := New(testConfig())
	s.cfg.AllowMultipleTasksPerClient = true
	s.Init()
	defer s.Stop()

	running := task.New("already-running", "client-1", task.Request{}, 1)
	running.SetRunning()
	s.registry.Add(running)

	code, taskID := s.SubmitTask(baseRequest())
	assert.Equal(t, StatusOK, code)
	assert.NotEmpty(t, taskID)
}

func TestSubmitTaskRunsToFinishAndBuildsResponse(t *testing.T) {
	s := New(testConfig())
	s.Init()
	defer s.Stop()

	code, taskID := s.SubmitTask(baseRequest())
	require.Equal(t, StatusOK, code)
	require.NotEmpty(t, taskID)

	require.Eventually(t, func() bool {
		view := s.GetTaskStatus(taskID)
		return view.Found && view.Status == task.StatusFinished
	}, 2*time.Second, 5*time.Millisecond)

	view := s.GetTaskStatus(taskID)
	require.NotNil(t, view.Response)
	require.Len(t, view.Response.Panels, 1)
	assert.Equal(t, 1, view.Response.Panels[0].Count)
	assert.Empty(t, view.Response.NoFitPanels)
	assert.NotEmpty(t, view.Logs)
}

func TestGetTaskStatusUnknownTaskNotFound(t *testing.T) {
	s := New(testConfig())
	s.Init()
	defer s.Stop()

	view := s.GetTaskStatus("does-not-exist")
	assert.False(t, view.Found)
}

func TestStopAndTerminateTaskUnknownReturnsFalse(t *testing.T) {
	s := New(testConfig())
	s.Init()
	defer s.Stop()

	_, ok := s.StopTask("nope")
	assert.False(t, ok)

	_, ok = s.TerminateTask("nope")
	assert.False(t, ok)
}

func TestStopTaskMovesRunningToStopped(t *testing.T) {
	s := New(testConfig())
	s.Init()
	defer s.Stop()

	running := task.New("t1", "client-1", task.Request{}, 1)
	running.SetRunning()
	s.registry.Add(running)

	status, ok := s.StopTask("t1")
	assert.True(t, ok)
	assert.Equal(t, task.StatusStopped, status)
}
