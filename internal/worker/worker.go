package worker

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/piwi3910/cutoptimizer/internal/geometry"
	"github.com/piwi3910/cutoptimizer/internal/mosaic"
	"github.com/piwi3910/cutoptimizer/internal/ranking"
)

// SharedBeam is the task-level merge point every worker of one material
// group feeds into: the per-thread top solutions are folded in here under
// the final comparator chain, then truncated to Accuracy (§4.3 step 6).
type SharedBeam struct {
	mu     sync.Mutex
	chain  ranking.Chain
	best   []*mosaic.Solution
	accFn  func() int
}

// NewSharedBeam builds an empty beam that ranks with chain and truncates to
// whatever accuracy() returns at merge time.
func NewSharedBeam(chain ranking.Chain, accuracy func() int) *SharedBeam {
	return &SharedBeam{chain: chain, accFn: accuracy}
}

// Merge folds candidates into the shared beam and truncates to the current
// accuracy. Safe for concurrent callers, one per worker thread.
func (b *SharedBeam) Merge(candidates []*mosaic.Solution) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.best = append(b.best, candidates...)
	sort.SliceStable(b.best, func(i, j int) bool {
		return b.chain.Less(b.best[i], b.best[j])
	})
	b.best = truncateBeam(b.best, b.accFn())
}

// Best returns a snapshot of the current best solutions, most preferred
// first.
func (b *SharedBeam) Best() []*mosaic.Solution {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*mosaic.Solution(nil), b.best...)
}

// Config bundles everything one Worker run needs that is not the
// permutation itself: the stock bundle it packs into, material
// constraints, and the callbacks it uses to report progress and influence
// back to its owning task.
type Config struct {
	StockBundle          *mosaic.StockBundle
	CutThickness         int
	MinTrimDimension     int
	ConsiderGrain        bool
	FirstCutPolicy       FirstCutPolicy
	ThreadRankChain      ranking.Chain
	FinalRankChain       ranking.Chain
	Accuracy             int
	Shared               *SharedBeam
	IsRunning            func() bool
	OnMinTrimInfluenced  func()
	OnPercentage         func(pct int)

	// OnTopGroupContribution is called once per Run with the number of the
	// final beam's top-5 solutions actually produced (min(5, len(beam))),
	// letting the task increment threadGroupRankings[material][group] by
	// that count for the group-eligibility gate (§4.4.2).
	OnTopGroupContribution func(count int)
}

// Worker runs one CutListThread equivalent: given one ordered permutation
// of demand panels, it grows a local beam of partial Solutions one panel at
// a time, applying candidatePlacements at every step and truncating the
// beam to Config.Accuracy after each panel (§4.4).
type Worker struct {
	cfg         Config
	permutation []geometry.TileDimensions
}

// NewWorker builds a Worker over one permutation.
func NewWorker(permutation []geometry.TileDimensions, cfg Config) *Worker {
	return &Worker{permutation: permutation, cfg: cfg}
}

// Run executes the full permutation against a single seed Solution (built
// fresh from cfg.StockBundle) and merges the resulting local beam into
// cfg.Shared. It returns early, without merging, if IsRunning ever reports
// false (cooperative cancellation from the watchdog or a client
// disconnect/stop request).
func (w *Worker) Run() {
	seed := mosaic.NewSolution(w.cfg.StockBundle, time.Now())
	seed.CreatorThreadGroup = w.cfg.FirstCutPolicy.GroupLabel()
	seed.AuxInfo = uuid.New().String()
	beam := []*mosaic.Solution{seed}

	total := len(w.permutation)
	for i, t := range w.permutation {
		if w.cfg.IsRunning != nil && !w.cfg.IsRunning() {
			return
		}
		beam = w.placePanelAcrossBeam(beam, t)
		beam = dedupeByShape(beam)
		sort.SliceStable(beam, func(a, b int) bool {
			return w.cfg.ThreadRankChain.Less(beam[a], beam[b])
		})
		beam = truncateBeam(beam, w.cfg.Accuracy)

		if w.cfg.OnPercentage != nil && total > 0 {
			w.cfg.OnPercentage(((i + 1) * 100) / total)
		}
	}

	sort.SliceStable(beam, func(a, b int) bool {
		return w.cfg.FinalRankChain.Less(beam[a], beam[b])
	})

	top := len(beam)
	if top > 5 {
		top = 5
	}
	if w.cfg.OnTopGroupContribution != nil {
		w.cfg.OnTopGroupContribution(top)
	}

	for _, s := range beam {
		dropZeroUsedMosaics(s)
	}

	if w.cfg.Shared != nil {
		w.cfg.Shared.Merge(beam)
	}
}

// dropZeroUsedMosaics removes, in place, every mosaic of s whose root has
// placed nothing at all — a sheet the search reached for but never used
// (§4.4 step 3).
func dropZeroUsedMosaics(s *mosaic.Solution) {
	kept := s.Mosaics[:0]
	for _, m := range s.Mosaics {
		if m.Root.UsedArea() > 0 {
			kept = append(kept, m)
		}
	}
	s.Mosaics = kept
}

// placePanelAcrossBeam tries to place t into every Solution in beam. A
// Solution that accepts t in at least one mosaic is dropped from the beam
// and replaced by its children (the "z2 == z" pruning idiom: once a parent
// has produced any children, the parent itself no longer represents a
// maximal placement and is discarded). A Solution that accepts t nowhere
// is kept unchanged except that t is appended to its NoFitPanels.
func (w *Worker) placePanelAcrossBeam(beam []*mosaic.Solution, t geometry.TileDimensions) []*mosaic.Solution {
	next := make([]*mosaic.Solution, 0, len(beam))
	for _, s := range beam {
		children := w.placeInSolution(s, t)
		if len(children) == 0 {
			children = w.tryFreshMosaic(s, t)
		}
		if len(children) == 0 {
			kept := s.Clone()
			kept.NoFitPanels = append(kept.NoFitPanels, t)
			next = append(next, kept)
			continue
		}
		next = append(next, children...)
	}
	return next
}

// placeInSolution tries every mosaic of s in order and stops at the first
// mosaic that accepts t, returning one child Solution per placement
// candidate produced there (§4.4: "stop scanning further mosaics for this
// solution once one mosaic accepts the panel").
func (w *Worker) placeInSolution(s *mosaic.Solution, t geometry.TileDimensions) []*mosaic.Solution {
	for i, m := range s.Mosaics {
		if m.Material != t.EffectiveMaterial() {
			continue
		}
		placements := candidatePlacements(m, t, w.cfg.CutThickness, w.cfg.MinTrimDimension, w.cfg.FirstCutPolicy, w.cfg.ConsiderGrain, w.cfg.OnMinTrimInfluenced)
		if len(placements) == 0 {
			continue
		}
		out := make([]*mosaic.Solution, 0, len(placements))
		for _, nm := range placements {
			child := s.Clone()
			child.ReplaceMosaic(i, nm)
			out = append(out, child)
		}
		return out
	}
	return nil
}

// tryFreshMosaic looks for the first unused stock sheet able to hold t and,
// if found, instantiates it as a new mosaic and places t there.
func (w *Worker) tryFreshMosaic(s *mosaic.Solution, t geometry.TileDimensions) []*mosaic.Solution {
	for idx, stock := range s.UnusedStockPanels {
		if stock.EffectiveMaterial() != t.EffectiveMaterial() {
			continue
		}
		if !fitsEitherOrientation(stock, t) {
			continue
		}
		fresh := mosaic.NewMosaic(stock)
		placements := candidatePlacements(fresh, t, w.cfg.CutThickness, w.cfg.MinTrimDimension, w.cfg.FirstCutPolicy, w.cfg.ConsiderGrain, w.cfg.OnMinTrimInfluenced)
		if len(placements) == 0 {
			continue
		}
		out := make([]*mosaic.Solution, 0, len(placements))
		for _, nm := range placements {
			child := s.Clone()
			child.UnusedStockPanels = append(append([]geometry.TileDimensions(nil), s.UnusedStockPanels[:idx]...), s.UnusedStockPanels[idx+1:]...)
			child.AppendMosaic(nm)
			out = append(out, child)
		}
		return out
	}
	return nil
}

// dedupeByShape drops beam members whose every mosaic's StringIdentifier
// already occurs earlier in the beam, collapsing solutions that reached
// the same tree shape via different placement orders (§4.4 step 2).
func dedupeByShape(beam []*mosaic.Solution) []*mosaic.Solution {
	seen := make(map[string]struct{}, len(beam))
	out := make([]*mosaic.Solution, 0, len(beam))
	for _, s := range beam {
		key := shapeKey(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

func shapeKey(s *mosaic.Solution) string {
	var key string
	for _, m := range s.Mosaics {
		key += m.Root.StringIdentifier() + "|"
	}
	return key
}

// truncateBeam reproduces the original's subList(min(size-1, k), size-1)
// removal exactly, including its off-by-one: it keeps indices [0,
// removeStart) plus the final element, dropping [removeStart, size-1).
// When len(beam) <= k the slice is returned unchanged; otherwise the
// result has exactly k+1 elements (Design Notes §9 item 2 — preserved, not
// fixed).
func truncateBeam(beam []*mosaic.Solution, k int) []*mosaic.Solution {
	size := len(beam)
	if size == 0 {
		return beam
	}
	removeEnd := size - 1
	removeStart := k
	if size-1 < removeStart {
		removeStart = size - 1
	}
	if removeStart >= removeEnd {
		return beam
	}
	out := make([]*mosaic.Solution, 0, removeStart+1)
	out = append(out, beam[:removeStart]...)
	out = append(out, beam[removeEnd])
	return out
}
