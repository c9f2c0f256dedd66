package worker

import "sync"

// ThreadGroupRankings tracks, per material, the running total of top-5
// finished-worker solutions each worker group ("AREA",
// "AREA_HCUTS_1ST", "AREA_VCUTS_1ST") contributed, plus how many workers
// have finished for that material. It backs the group-eligibility gate
// (§4.4.2): after a warm-up period, worker groups that consistently
// underperform stop being spawned.
//
// RecordFinished is called from concurrently-running CutListWorker
// goroutines (one per spawned permutation/bundle/policy) while Eligible is
// called from the material driver's goroutine, so every access to the maps
// below goes through mu.
type ThreadGroupRankings struct {
	mu              sync.Mutex
	counts          map[string]map[string]int
	finishedThreads map[string]int
}

// NewThreadGroupRankings returns an empty tracker.
func NewThreadGroupRankings() *ThreadGroupRankings {
	return &ThreadGroupRankings{
		counts:          make(map[string]map[string]int),
		finishedThreads: make(map[string]int),
	}
}

// RecordFinished records that one worker of group for material finished,
// and that it contributed count of its solutions to the most recent top-5.
func (r *ThreadGroupRankings) RecordFinished(material, group string, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts[material] == nil {
		r.counts[material] = make(map[string]int)
	}
	r.counts[material][group] += count
	r.finishedThreads[material]++
}

// Eligible implements the gate itself: before starting each worker for
// group G under material m, compute total = Σ rankings[m][*] and mine =
// rankings[m][G]. Fewer than 10 finished threads for m and every group is
// always eligible (warm-up); afterward a group is eligible only if its
// share exceeds 1/5 of the total.
func (r *ThreadGroupRankings) Eligible(material, group string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finishedThreads[material] < 10 {
		return true
	}
	groupCounts := r.counts[material]
	var total int
	for _, c := range groupCounts {
		total += c
	}
	if total == 0 {
		return true
	}
	mine := groupCounts[group]
	return mine > total/5
}
