package service

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/piwi3910/cutoptimizer/internal/apperror"
	"github.com/piwi3910/cutoptimizer/internal/config"
	"github.com/piwi3910/cutoptimizer/internal/cutlog"
	"github.com/piwi3910/cutoptimizer/internal/metrics"
	"github.com/piwi3910/cutoptimizer/internal/task"
)

// finishedTaskTTL is the fixed grace period a terminal-state task stays in
// the registry before the watchdog archives it (§4.2 step 3). Unlike the
// other watchdog thresholds, which are read from configuration, it is a
// fixed constant.
const finishedTaskTTL = 60 * time.Second

// TaskReport is one task's watchdog snapshot, emitted every sweep (§4.2
// step 1).
type TaskReport struct {
	TaskID         string
	ClientID       string
	Status         task.Status
	TotalThreads   int
	ErrorThreads   int
	PanelCount     int
	PercentageDone int
	Elapsed        time.Duration
}

// WatchDog runs the fixed-interval sweep described in §4.2: it reports on
// every registered task, terminates tasks whose workers have all errored
// past the threshold, and cleans up tasks past their timeouts.
type WatchDog struct {
	registry *task.RunningTasks
	perf     config.PerformanceThresholds
	log      zerolog.Logger

	stop chan struct{}
	done chan struct{}

	mu      sync.Mutex
	reports []TaskReport
}

// NewWatchDog builds a WatchDog over registry. Call Run to start its
// sweep loop on a new goroutine's behalf; Run blocks until Stop.
func NewWatchDog(registry *task.RunningTasks, perf config.PerformanceThresholds) *WatchDog {
	return &WatchDog{
		registry: registry,
		perf:     perf,
		log:      cutlog.ForComponent("watchdog"),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run sweeps every perf.WatchdogInterval until Stop is called. Intended to
// be run on its own goroutine ("dedicated thread", §4.2).
func (w *WatchDog) Run() {
	defer close(w.done)
	ticker := time.NewTicker(w.perf.WatchdogInterval)
	defer ticker.Stop()
	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

// Stop signals the sweep loop to exit and waits for it to do so.
func (w *WatchDog) Stop() {
	close(w.stop)
	<-w.done
}

// LastReports returns a copy of the TaskReports from the most recent
// sweep, used by getStats (§4.1).
func (w *WatchDog) LastReports() []TaskReport {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]TaskReport, len(w.reports))
	copy(out, w.reports)
	return out
}

func (w *WatchDog) sweep() {
	now := time.Now()
	tasks := w.registry.All()

	reports := make([]TaskReport, 0, len(tasks))
	for _, t := range tasks {
		total, errored := t.ThreadCounts()
		reports = append(reports, TaskReport{
			TaskID:         t.ID,
			ClientID:       t.ClientID,
			Status:         t.Status(),
			TotalThreads:   total,
			ErrorThreads:   errored,
			PanelCount:     len(t.Request.Demand),
			PercentageDone: t.OverallPercentage(),
			Elapsed:        now.Sub(t.StartTime),
		})

		if t.Status() == task.StatusRunning && t.ErrorThreadThreshold() {
			t.TerminateError()
			appErr := apperror.New(apperror.CategoryTask, apperror.CodeTaskWorkerError, "every worker errored past threshold, terminating")
			metrics.RecordWatchdogTermination("error-threshold")
			t.AppendLog("watchdog: " + appErr.Error())
			w.log.Warn().Str("taskId", t.ID).Str("code", string(appErr.Code)).Msg(appErr.Error())
		}
	}

	w.mu.Lock()
	w.reports = reports
	w.mu.Unlock()

	w.reportActiveCounts(reports)
	w.cleanup(now)
}

// reportActiveCounts publishes the per-status task gauge from this
// sweep's reports (§4.2 step 1's "report on every task" feeding getStats
// and process metrics alike).
func (w *WatchDog) reportActiveCounts(reports []TaskReport) {
	counts := make(map[task.Status]int)
	for _, r := range reports {
		counts[r.Status]++
	}
	for _, status := range []task.Status{
		task.StatusIdle, task.StatusRunning, task.StatusFinished,
		task.StatusStopped, task.StatusTerminated, task.StatusError,
	} {
		metrics.SetTasksActive(status.String(), counts[status])
	}
}

// cleanup implements §4.2 step 3's four checks, plus step 4's orphan
// sweep: a task whose registry entry has already been archived this
// iteration needs no further handling since workers read IsRunning() and
// unwind on their own.
func (w *WatchDog) cleanup(now time.Time) {
	for _, t := range w.registry.All() {
		switch t.Status() {
		case task.StatusFinished, task.StatusStopped, task.StatusTerminated, task.StatusError:
			if now.Sub(t.EndTime) > finishedTaskTTL {
				w.registry.RemoveAndArchive(t.ID)
			}
		case task.StatusRunning:
			w.terminateIfExpired(t, now)
		}
	}
}

func (w *WatchDog) terminateIfExpired(t *task.Task, now time.Time) {
	switch {
	case t.HasAllFitSolution() && now.Sub(t.StartTime) > w.perf.TaskPostAllFitTimeout:
		t.Terminate()
		appErr := apperror.New(apperror.CategoryTask, apperror.CodeTaskWorkerTerminated, "all-fit solution held past post-solution timeout")
		metrics.RecordWatchdogTermination("post-allfit-timeout")
		t.AppendLog("watchdog: " + appErr.Error())
		w.log.Info().Str("taskId", t.ID).Str("code", string(appErr.Code)).Msg(appErr.Error())
	case now.Sub(t.StartTime) > w.perf.TaskAbsoluteTimeout:
		t.Terminate()
		appErr := apperror.New(apperror.CategoryTask, apperror.CodeTaskWorkerTerminated, "absolute timeout exceeded")
		metrics.RecordWatchdogTermination("absolute-timeout")
		t.AppendLog("watchdog: " + appErr.Error())
		w.log.Info().Str("taskId", t.ID).Str("code", string(appErr.Code)).Msg(appErr.Error())
	case now.Sub(t.LastQueried) > w.perf.ClientSilenceTimeout:
		t.Terminate()
		appErr := apperror.New(apperror.CategoryTask, apperror.CodeTaskWorkerTerminated, "client has not queried status recently")
		metrics.RecordWatchdogTermination("client-silence")
		t.AppendLog("watchdog: " + appErr.Error())
		w.log.Info().Str("taskId", t.ID).Str("code", string(appErr.Code)).Msg(appErr.Error())
	}
}
