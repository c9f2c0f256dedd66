// Package service implements the external-facing admission and lifecycle
// operations of §4.1 (submitTask/getTaskStatus/stopTask/terminateTask/
// getStats) and the WatchDog of §4.2.
package service

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/piwi3910/cutoptimizer/internal/apperror"
	"github.com/piwi3910/cutoptimizer/internal/config"
	"github.com/piwi3910/cutoptimizer/internal/cutlog"
	"github.com/piwi3910/cutoptimizer/internal/metrics"
	"github.com/piwi3910/cutoptimizer/internal/mosaic"
	"github.com/piwi3910/cutoptimizer/internal/request"
	"github.com/piwi3910/cutoptimizer/internal/response"
	"github.com/piwi3910/cutoptimizer/internal/spawner"
	"github.com/piwi3910/cutoptimizer/internal/task"
)

// maxPanelsPerRequest and maxStockPanelsPerRequest bound submitTask's
// demand/stock panel counts (§4.1 step 1-2).
const (
	maxPanelsPerRequest      = 5000
	maxStockPanelsPerRequest = 5000
)

// Service owns the task registry, the bounded CutListWorker executor and
// the WatchDog for one process.
type Service struct {
	cfg  config.ServiceConfig
	perf config.PerformanceThresholds

	registry *task.RunningTasks
	executor *spawner.Executor
	watchdog *WatchDog
	log      zerolog.Logger

	mu      sync.Mutex
	started bool
}

// New constructs a Service from process configuration. Call Init before
// submitting any task.
func New(cfg config.Config) *Service {
	return &Service{
		cfg:      cfg.Service,
		perf:     cfg.Performance,
		registry: task.NewRunningTasks(),
		log:      cutlog.ForComponent("service"),
	}
}

// Init creates the bounded CutListWorker executor — shared across every
// task for the life of the process, per §4.1's "init(poolSize)" — and
// starts the WatchDog on its own goroutine.
func (s *Service) Init() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.executor = spawner.NewExecutor(s.cfg.PoolSize, s.cfg.QueueCapacity)
	s.watchdog = NewWatchDog(s.registry, s.perf)
	go s.watchdog.Run()
	s.started = true
	s.log.Info().Int("poolSize", s.cfg.PoolSize).Int("queueCapacity", s.cfg.QueueCapacity).Msg("service started")
}

// Stop drains the CutListWorker executor and stops the WatchDog. Tasks
// already running are not cancelled; their later worker submissions are
// rejected, and the stopped WatchDog no longer sweeps them.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.watchdog.Stop()
	s.executor.Stop()
	s.started = false
	s.log.Info().Msg("service stopped")
}

// SubmitTask validates req and, if accepted, assigns a taskId and spawns
// its driver on its own unbounded goroutine (§4.1 "submitTask", §5: the
// per-task driver is the unbounded "helper" thread; only the CutListWorkers
// it eventually spawns run through the bounded Executor).
func (s *Service) SubmitTask(req request.CalculationRequest) (StatusCode, string) {
	demandCount := request.ValidPanelCount(req.Panels)
	switch {
	case demandCount == 0:
		s.logRejected(req, apperror.New(apperror.CategoryService, apperror.CodeServiceValidation, "no valid demand panels in request"))
		metrics.RecordTaskSubmission(StatusInvalidTiles.String())
		return StatusInvalidTiles, ""
	case demandCount > maxPanelsPerRequest:
		s.logRejected(req, apperror.New(apperror.CategoryService, apperror.CodeServiceValidation, "too many demand panels in request"))
		metrics.RecordTaskSubmission(StatusTooManyPanels.String())
		return StatusTooManyPanels, ""
	}

	stockCount := request.ValidPanelCount(req.StockPanels)
	switch {
	case stockCount == 0:
		s.logRejected(req, apperror.New(apperror.CategoryService, apperror.CodeServiceValidation, "no valid stock panels in request"))
		metrics.RecordTaskSubmission(StatusInvalidStockTiles.String())
		return StatusInvalidStockTiles, ""
	case stockCount > maxStockPanelsPerRequest:
		s.logRejected(req, apperror.New(apperror.CategoryService, apperror.CodeServiceValidation, "too many stock panels in request"))
		metrics.RecordTaskSubmission(StatusTooManyStockPanels.String())
		return StatusTooManyStockPanels, ""
	}

	if !s.cfg.AllowMultipleTasksPerClient {
		limit := s.cfg.MaxSimultaneousTasks
		if override := req.Configuration.PerformanceThresholds; override != nil && override.MaxSimultaneousTasks > 0 {
			limit = override.MaxSimultaneousTasks
		}
		if s.registry.RunningCountForClient(req.ClientInfo.ID) >= limit {
			s.logRejected(req, apperror.New(apperror.CategoryService, apperror.CodeServiceClientAlreadyHasTask, "client already has the maximum number of simultaneous tasks running"))
			metrics.RecordTaskSubmission(StatusTaskAlreadyRunning.String())
			return StatusTaskAlreadyRunning, ""
		}
	}

	t, perf := s.newTask(req)
	s.registry.Add(t)

	go s.runTask(t, perf)

	metrics.RecordTaskSubmission(StatusOK.String())
	return StatusOK, t.ID
}

// logRejected logs a submitTask admission failure as the apperror.Error it
// was classified into, before the caller converts it to a wire StatusCode.
func (s *Service) logRejected(req request.CalculationRequest, appErr *apperror.Error) {
	s.log.Warn().Str("clientId", req.ClientInfo.ID).Str("code", string(appErr.Code)).Msg(appErr.Error())
}

// newTask scales req and builds an IDLE Task, following the digit-budget
// scaling in internal/request.
func (s *Service) newTask(req request.CalculationRequest) (*task.Task, config.PerformanceThresholds) {
	factor := request.ScaleFactor(req)

	taskReq := task.Request{
		Demand: request.ExpandPanels(req.Panels, factor),
		Stock:  request.ExpandPanels(req.StockPanels, factor),
		Configuration: task.Configuration{
			CutThickness:             request.ScaleDecimal(req.Configuration.CutThickness, factor),
			MinTrimDimension:         request.ScaleDecimal(req.Configuration.MinTrimDimension, factor),
			UseSingleStockUnit:       req.Configuration.UseSingleStockUnit,
			OptimizationFactor:       req.Configuration.OptimizationFactor,
			OptimizationPriority:     req.Configuration.OptimizationPriority,
			CutOrientationPreference: req.Configuration.CutOrientationPreference,
			ConsiderOrientation:      req.Configuration.ConsiderOrientation,
		},
	}

	perf := s.perf
	if override := req.Configuration.PerformanceThresholds; override != nil {
		perf = perf.WithOverrides(config.PerformanceThresholds{
			MaxSimultaneousThreads: override.MaxSimultaneousThreads,
			ThreadCheckInterval:    time.Duration(override.ThreadCheckIntervalMS) * time.Millisecond,
		})
	}

	taskID := s.registry.NextTaskID(time.Now())
	t := task.New(taskID, req.ClientInfo.ID, taskReq, factor)
	t.DemandByID = request.PanelsByID(req.Panels)
	t.StockByID = request.PanelsByID(req.StockPanels)
	return t, perf
}

// runTask is the per-task driver thread: it spawns one MaterialDriver per
// material and waits for all of them to finish (§4.3 "compute()"
// orchestration, §5 "one thread drives the task from submitTask").
func (s *Service) runTask(t *task.Task, perf config.PerformanceThresholds) {
	t.SetRunning()
	log := cutlog.ForTask(t.ID, "")
	log.Info().Msg("task started")

	partitioned := task.PartitionByMaterial(t.Request)

	var wg sync.WaitGroup
	for material, matReq := range partitioned {
		wg.Add(1)
		go func(material string, matReq task.Request) {
			defer wg.Done()
			d := &task.MaterialDriver{
				Task:          t,
				Material:      material,
				Demand:        matReq.Demand,
				Stock:         matReq.Stock,
				Config:        matReq.Configuration,
				MaxThreads:    perf.MaxSimultaneousThreads,
				CheckInterval: perf.ThreadCheckInterval,
				Executor:      s.executor,
			}
			d.Run()
		}(material, matReq)
	}
	wg.Wait()

	metrics.RecordTaskDuration(t.EndTime.Sub(t.StartTime))
	log.Info().Str("status", t.Status().String()).Msg("task driver finished")
}

// TaskStatusView is the result of getTaskStatus: the task's lifecycle
// status, overall progress and, if one exists, its current best response.
type TaskStatusView struct {
	Found          bool
	Status         task.Status
	PercentageDone int
	InitPercentage int
	Response       *response.CalculationResponse
	Logs           []string
}

// GetTaskStatus refreshes the cached Response for taskID, stamps
// lastQueried, and returns a status snapshot (§4.1 "getTaskStatus").
func (s *Service) GetTaskStatus(taskID string) TaskStatusView {
	t := s.registry.Get(taskID)
	if t == nil {
		return TaskStatusView{Found: false}
	}
	t.Touch()

	view := TaskStatusView{
		Found:          true,
		Status:         t.Status(),
		PercentageDone: t.OverallPercentage(),
		InitPercentage: t.InitPercentage(),
		Logs:           t.Logs(),
	}

	view.Response = s.refreshCachedResponse(t)
	return view
}

// refreshCachedResponse rebuilds and caches t's Response from its current
// best per-material solutions (§4.7 "invoked ... lazily on getTaskStatus
// refreshes; the cache is replaced every call").
func (s *Service) refreshCachedResponse(t *task.Task) *response.CalculationResponse {
	solutions := make(map[string]*mosaic.Solution)
	for _, material := range t.Materials() {
		if best := t.BestSolution(material); best != nil {
			solutions[material] = best
		}
	}
	resp := response.Build(t.ID, t.Factor, t.StartTime, solutions, t.DemandByID, t.StockByID)
	t.SetCachedResponse(resp)
	return resp
}

// StopTask moves a RUNNING task to STOPPED (§4.1 "stopTask"). Valid only
// from RUNNING; otherwise the current status is returned unchanged.
func (s *Service) StopTask(taskID string) (task.Status, bool) {
	t := s.registry.Get(taskID)
	if t == nil {
		return 0, false
	}
	t.Stop()
	return t.Status(), true
}

// TerminateTask moves a RUNNING task to TERMINATED (§4.1 "terminateTask").
func (s *Service) TerminateTask(taskID string) (task.Status, bool) {
	t := s.registry.Get(taskID)
	if t == nil {
		return 0, false
	}
	t.Terminate()
	return t.Status(), true
}

// GetStats returns a registry-wide snapshot plus the WatchDog's most
// recent per-task reports (§4.1 "getStats").
func (s *Service) GetStats() (task.Stats, []TaskReport) {
	return s.registry.Snapshot(), s.watchdog.LastReports()
}
