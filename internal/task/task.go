// Package task implements the Task lifecycle state machine, the
// process-wide RunningTasks registry, and the per-material driver that
// partitions one task's demand/stock lists by material and runs the
// stock-bundle × permutation × direction grid described in §4.3.
package task

import (
	"sort"
	"sync"
	"time"

	"github.com/piwi3910/cutoptimizer/internal/geometry"
	"github.com/piwi3910/cutoptimizer/internal/mosaic"
	"github.com/piwi3910/cutoptimizer/internal/request"
	"github.com/piwi3910/cutoptimizer/internal/worker"
)

// Status is one of the states in a Task's lifecycle.
type Status int

const (
	StatusIdle Status = iota
	StatusQueued
	StatusRunning
	StatusFinished
	StatusStopped
	StatusTerminated
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "IDLE"
	case StatusQueued:
		return "QUEUED"
	case StatusRunning:
		return "RUNNING"
	case StatusFinished:
		return "FINISHED"
	case StatusStopped:
		return "STOPPED"
	case StatusTerminated:
		return "TERMINATED"
	case StatusError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Configuration holds the scaled, validated knobs a per-material driver
// needs; it is the task-level counterpart of the request's configuration
// block (§6), already integer-scaled by internal/request.
type Configuration struct {
	CutThickness            int
	MinTrimDimension        int
	UseSingleStockUnit      bool
	OptimizationFactor      float64
	OptimizationPriority    int
	CutOrientationPreference int // 0=both, 1=horizontal first, 2=vertical first
	ConsiderOrientation     bool
}

// Request is the post-validation, post-scaling input to one task: every
// demand and stock panel, with their material tags intact, plus the
// shared configuration.
type Request struct {
	Demand        []geometry.TileDimensions
	Stock         []geometry.TileDimensions
	Configuration Configuration
}

// Task tracks one optimization run for its whole lifetime, across every
// material it spans.
type Task struct {
	mu sync.Mutex

	ID         string
	ClientID   string
	Request    Request
	Factor     int
	status     Status
	StartTime  time.Time
	EndTime    time.Time
	LastQueried time.Time

	// DemandByID and StockByID index the original wire-level panels (still
	// decimal, still carrying labels and edge-banding tags) by id. The
	// response builder needs them because the scaled geometry.TileDimensions
	// flowing through placement drops both. Set once at construction, read
	// only, so unguarded by mu like Request.
	DemandByID map[int]request.Panel
	StockByID  map[int]request.Panel

	// per-material beams, percentage-done and thread-group rankings.
	beams              map[string][]*mosaic.Solution
	percentageDone     map[string]int
	threadGroupRanking map[string]*worker.ThreadGroupRankings
	minTrimInfluenced  map[string]bool

	// initPercentage is the highest per-thread progress any single worker
	// has reported so far across every material (§4.1 getTaskStatus), so a
	// client can see movement before OverallPercentage ticks.
	initPercentage int

	errorThreads   int
	totalThreads   int
	log            []string
	cachedResponse any
}

// New constructs an IDLE task. Materials are discovered from req and
// preallocated so progress/beam maps never need a nil check.
func New(id, clientID string, req Request, factor int) *Task {
	t := &Task{
		ID:                 id,
		ClientID:           clientID,
		Request:            req,
		Factor:             factor,
		status:             StatusIdle,
		StartTime:          time.Now(),
		LastQueried:        time.Now(),
		beams:              make(map[string][]*mosaic.Solution),
		percentageDone:     make(map[string]int),
		threadGroupRanking: make(map[string]*worker.ThreadGroupRankings),
		minTrimInfluenced:  make(map[string]bool),
	}
	for _, m := range materialsOf(req) {
		t.beams[m] = nil
		t.percentageDone[m] = 0
		t.threadGroupRanking[m] = worker.NewThreadGroupRankings()
		t.minTrimInfluenced[m] = false
	}
	return t
}

// PartitionByMaterial splits req's demand and stock panels by their
// effective material tag, one Request per material, following the
// original compute() orchestration that spawns one driver thread per
// material found across both lists.
func PartitionByMaterial(req Request) map[string]Request {
	out := make(map[string]Request)
	for _, d := range req.Demand {
		m := d.EffectiveMaterial()
		r := out[m]
		r.Demand = append(r.Demand, d)
		r.Configuration = req.Configuration
		out[m] = r
	}
	for _, s := range req.Stock {
		m := s.EffectiveMaterial()
		r := out[m]
		r.Stock = append(r.Stock, s)
		r.Configuration = req.Configuration
		out[m] = r
	}
	return out
}

func materialsOf(req Request) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, d := range req.Demand {
		m := d.EffectiveMaterial()
		if _, ok := seen[m]; !ok {
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}

// Materials returns every material this task tracks progress for, sorted
// for deterministic iteration by callers like the response builder.
func (t *Task) Materials() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.beams))
	for m := range t.beams {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// SetRunning sets the status to RUNNING; it does not check the current
// status.
func (t *Task) SetRunning() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = StatusRunning
}

// IsRunning is the cooperative-cancellation check workers, the sorter and
// the spawner poll at every yield point (§5).
func (t *Task) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status == StatusRunning
}

// Stop moves a RUNNING task to STOPPED and stamps EndTime. No-op from any
// other state.
func (t *Task) Stop() {
	t.transitionFromRunning(StatusStopped)
}

// Terminate moves a RUNNING task to TERMINATED and stamps EndTime.
func (t *Task) Terminate() {
	t.transitionFromRunning(StatusTerminated)
}

// TerminateError moves a RUNNING task to ERROR and stamps EndTime, used by
// the WatchDog's error-threshold check (§4.2 step 2).
func (t *Task) TerminateError() {
	t.transitionFromRunning(StatusError)
}

func (t *Task) transitionFromRunning(to Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusRunning {
		return
	}
	t.status = to
	t.EndTime = time.Now()
}

// SetMaterialPercentage records progress for one material and advances the
// task to FINISHED if every known material has reached 100 (§4.3 step 7,
// §3 "FINISHED when every material hits 100%").
func (t *Task) SetMaterialPercentage(material string, pct int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.percentageDone[material] = pct
	t.checkIfFinishedLocked()
}

func (t *Task) checkIfFinishedLocked() {
	if t.status != StatusRunning {
		return
	}
	for _, pct := range t.percentageDone {
		if pct < 100 {
			return
		}
	}
	t.status = StatusFinished
	t.EndTime = time.Now()
}

// RecordThreadPercentage latches the highest per-thread progress reported
// by any worker so far, for InitPercentage.
func (t *Task) RecordThreadPercentage(pct int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if pct > t.initPercentage {
		t.initPercentage = pct
	}
}

// InitPercentage returns the highest per-thread progress any single worker
// has reported so far (§4.1 getTaskStatus).
func (t *Task) InitPercentage() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.initPercentage
}

// OverallPercentage averages per-material percentage across every
// material known to the task.
func (t *Task) OverallPercentage() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.percentageDone) == 0 {
		return 0
	}
	total := 0
	for _, pct := range t.percentageDone {
		total += pct
	}
	return total / len(t.percentageDone)
}

// MergeBeam folds a material's fresh shared-beam snapshot into the task's
// record for that material (called by the driver once, after every worker
// it spawned has finished).
func (t *Task) MergeBeam(material string, beam []*mosaic.Solution) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.beams[material] = beam
}

// BestSolution returns the current best Solution for material, if any.
func (t *Task) BestSolution(material string) *mosaic.Solution {
	t.mu.Lock()
	defer t.mu.Unlock()
	beam := t.beams[material]
	if len(beam) == 0 {
		return nil
	}
	return beam[0]
}

// HasAllFitSolution reports whether any material's current best solution
// places every demand panel with no no-fit panels remaining.
func (t *Task) HasAllFitSolution() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, beam := range t.beams {
		if len(beam) > 0 && len(beam[0].NoFitPanels) == 0 {
			return true
		}
	}
	return false
}

// RecordMinTrimInfluenced sets the monotonic per-material latch (§4.4.1).
func (t *Task) RecordMinTrimInfluenced(material string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.minTrimInfluenced[material] = true
}

func (t *Task) IsMinTrimDimensionInfluenced(material string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.minTrimInfluenced[material]
}

// ThreadGroupRankings returns the eligibility tracker for material,
// creating one if this is the first material seen (defensive; New already
// preallocates for every material present at construction).
func (t *Task) ThreadGroupRankings(material string) *worker.ThreadGroupRankings {
	t.mu.Lock()
	defer t.mu.Unlock()
	if r, ok := t.threadGroupRanking[material]; ok {
		return r
	}
	r := worker.NewThreadGroupRankings()
	t.threadGroupRanking[material] = r
	return r
}

// RecordWorkerFinished increments the finished-worker count and, when
// errored, the error count: the bookkeeping the WatchDog's error-threshold check reads (§4.2 step 2).
func (t *Task) RecordWorkerFinished(errored bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalThreads++
	if errored {
		t.errorThreads++
	}
}

// ErrorThreadThreshold reports whether every worker that has finished so
// far errored and the total exceeds 100, the WatchDog's terminateError
// trigger condition.
func (t *Task) ErrorThreadThreshold() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalThreads > 100 && t.errorThreads == t.totalThreads
}

// ThreadCounts returns the total and errored worker-completion counts
// recorded so far, used by the WatchDog's per-task report and its
// error-threshold check.
func (t *Task) ThreadCounts() (total, errored int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalThreads, t.errorThreads
}

// Touch refreshes LastQueried, used by getTaskStatus to mark the client as
// still present (§4.2 cleanup: "lastQueried older than 60s ⇒ terminate").
func (t *Task) Touch() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.LastQueried = time.Now()
}

// AppendLog appends one line to the task's append-only log.
func (t *Task) AppendLog(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.log = append(t.log, line)
}

// Logs returns a copy of the task's append-only log, most recent last.
func (t *Task) Logs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.log...)
}

// SetCachedResponse implements the §4.1 getTaskStatus cache (§4.7: "the
// cache is replaced every call").
func (t *Task) SetCachedResponse(resp any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cachedResponse = resp
}
