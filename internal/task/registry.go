package task

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// RunningTasks is the process-wide task registry (§3: "singleton ... all
// structural mutations guarded by a monitor on the list"). It is
// constructed explicitly rather than held in a package-level global, per
// Design Notes §9's "avoid true process globals" guidance — tests build
// their own instance.
type RunningTasks struct {
	mu    sync.Mutex
	tasks map[string]*Task

	archivedFinished   int64
	archivedStopped    int64
	archivedTerminated int64
	archivedError      int64

	idCounter atomic.Int64
}

// NewRunningTasks returns an empty registry.
func NewRunningTasks() *RunningTasks {
	return &RunningTasks{tasks: make(map[string]*Task)}
}

// NextTaskID builds a taskId of yyyyMMddHHmm plus an atomic counter
// (§4.1 step 5), guaranteeing both readability and uniqueness under
// concurrent submission.
func (r *RunningTasks) NextTaskID(now time.Time) string {
	seq := r.idCounter.Add(1)
	return fmt.Sprintf("%s%d", now.Format("200601021504"), seq)
}

// Add registers t.
func (r *RunningTasks) Add(t *Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[t.ID] = t
}

// Get returns the task with the given id, or nil.
func (r *RunningTasks) Get(id string) *Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tasks[id]
}

// RunningCountForClient counts RUNNING tasks owned by clientID, used by
// the "one task per client" admission check (§4.1 step 3).
func (r *RunningTasks) RunningCountForClient(clientID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, t := range r.tasks {
		if t.ClientID == clientID && t.Status() == StatusRunning {
			count++
		}
	}
	return count
}

// All returns a snapshot of every registered task, used by the WatchDog's
// per-iteration sweep.
func (r *RunningTasks) All() []*Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, t)
	}
	return out
}

// RemoveAndArchive deletes id from the active set and increments the
// archived counter matching its terminal status. No-op for an unknown id
// or a task not yet in a terminal state.
func (r *RunningTasks) RemoveAndArchive(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return
	}
	switch t.Status() {
	case StatusFinished:
		r.archivedFinished++
	case StatusStopped:
		r.archivedStopped++
	case StatusTerminated:
		r.archivedTerminated++
	case StatusError:
		r.archivedError++
	default:
		return
	}
	delete(r.tasks, id)
}

// Stats is the snapshot getStats returns (§4.1).
type Stats struct {
	Running            int
	Queued             int
	ArchivedFinished   int64
	ArchivedStopped    int64
	ArchivedTerminated int64
	ArchivedError      int64
}

// Snapshot builds a Stats over the current registry.
func (r *RunningTasks) Snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := Stats{
		ArchivedFinished:   r.archivedFinished,
		ArchivedStopped:    r.archivedStopped,
		ArchivedTerminated: r.archivedTerminated,
		ArchivedError:      r.archivedError,
	}
	for _, t := range r.tasks {
		switch t.Status() {
		case StatusRunning:
			s.Running++
		case StatusQueued:
			s.Queued++
		}
	}
	return s
}
