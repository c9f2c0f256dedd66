// Package spawner throttles how many CutListWorker goroutines run
// concurrently for one task and, separately, owns the bounded service-wide
// executor those goroutines actually run on. Spawner.Spawn blocks while
// alive-worker count for its task is at or above the configured ceiling,
// re-checking every threadCheckInterval (grounded on the original's
// "while (nbrRunningThreads + nbrQueuedThreads >= maxSimultaneousThreads)"
// poll loop); once past that ceiling it submits to the shared Executor,
// which applies the real rejection policy (§4.1/§3) when its queue is full.
package spawner

import (
	"sync"
	"sync/atomic"
	"time"
)

// Spawner bounds the number of simultaneously running workers for one
// task. It is safe for concurrent use by the task's single driver
// goroutine calling Spawn and any number of worker goroutines it started.
type Spawner struct {
	maxSimultaneous int
	checkInterval   time.Duration
	alive           atomic.Int64
	wg              sync.WaitGroup
	onPollTick      func()
	executor        *Executor
}

// New builds a Spawner with the given per-task ceiling and polling
// interval, submitting accepted work to executor. onPollTick, if set, is
// called on every poll iteration while Spawn is blocked on the ceiling —
// the task uses it to refresh progress percentages the way the original
// spawn loop does.
func New(maxSimultaneous int, checkInterval time.Duration, onPollTick func(), executor *Executor) *Spawner {
	return &Spawner{maxSimultaneous: maxSimultaneous, checkInterval: checkInterval, onPollTick: onPollTick, executor: executor}
}

// Spawn blocks until fewer than maxSimultaneous workers are alive for this
// task, then submits work to the shared Executor. The alive count is
// re-read on every poll tick; Spawn does not check task status, so work is
// submitted once a slot frees even if the task stopped meanwhile. It returns false if the Executor's
// queue was full and work was rejected; work never runs in that case.
func (s *Spawner) Spawn(work func()) bool {
	for s.alive.Load() >= int64(s.maxSimultaneous) {
		if s.onPollTick != nil {
			s.onPollTick()
		}
		time.Sleep(s.checkInterval)
	}
	s.alive.Add(1)
	s.wg.Add(1)
	accepted := s.executor.TrySubmit(func() {
		defer s.wg.Done()
		defer s.alive.Add(-1)
		work()
	})
	if !accepted {
		s.wg.Done()
		s.alive.Add(-1)
	}
	return accepted
}

// AliveCount returns the number of currently running workers.
func (s *Spawner) AliveCount() int { return int(s.alive.Load()) }

// HasUnfinished reports whether any spawned worker is still running.
func (s *Spawner) HasUnfinished() bool { return s.alive.Load() > 0 }

// Wait blocks until every spawned worker has returned. Used by the
// per-material driver's termination step (§4.3 step 7) together with
// HasUnfinished for the 1s poll loop.
func (s *Spawner) Wait() { s.wg.Wait() }
