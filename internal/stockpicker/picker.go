// Package stockpicker implements the stock-bundle generator and sorter
// (§4.5): the generator enumerates candidate multisets of stock sheets
// large enough to plausibly hold the whole demand list, and the sorter
// keeps a growing, area-ascending list of those bundles for workers to
// pull from as they start new permutations.
package stockpicker

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/piwi3910/cutoptimizer/internal/geometry"
	"github.com/piwi3910/cutoptimizer/internal/mosaic"
)

// pollInterval is how often GetStockSolution re-checks for a bundle that
// has not arrived yet.
const pollInterval = 1 * time.Second

// Generator enumerates bundles of stock-tile indices whose total area
// covers the demand and whose largest member covers the widest demand
// side, in increasing bundle size, advancing lexicographically within each
// size (Design Notes §9 item 5 — an explicit Exhausted outcome replaces the
// original's thread.isAlive() exhaustion proxy).
type Generator struct {
	stock            []geometry.TileDimensions
	requiredArea     int64
	requiredMaxSide  int
	sizeCap          int
	emittedAllPanel  bool
	allSameID        bool
	exclusions       map[string]struct{}
	cursor           []int
	bundleSize       int
	exhausted        bool
}

// NewGenerator builds a Generator over stock for the given demand list.
// hint, if positive, caps the enumerated bundle size below the default
// 1,000-sheet ceiling.
func NewGenerator(stock, demand []geometry.TileDimensions, hint int) *Generator {
	sorted := append([]geometry.TileDimensions(nil), stock...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Area() < sorted[j].Area() })

	var requiredArea int64
	requiredMaxSide := 0
	for _, d := range demand {
		requiredArea += d.Area()
		if d.Width > requiredMaxSide {
			requiredMaxSide = d.Width
		}
		if d.Height > requiredMaxSide {
			requiredMaxSide = d.Height
		}
	}

	sizeCap := 1000
	if hint > 0 && hint < sizeCap {
		sizeCap = hint
	}

	allSameID := len(sorted) > 0
	for _, s := range sorted {
		if s.ID != sorted[0].ID {
			allSameID = false
			break
		}
	}

	startSize := 1
	if len(sorted) > 0 {
		biggest := sorted[len(sorted)-1].Area()
		if biggest > 0 {
			startSize = int(math.Ceil(float64(requiredArea) / float64(biggest)))
		}
	}
	if startSize < 1 {
		startSize = 1
	}

	return &Generator{
		stock:           sorted,
		requiredArea:    requiredArea,
		requiredMaxSide: requiredMaxSide,
		sizeCap:         sizeCap,
		allSameID:       allSameID,
		exclusions:      make(map[string]struct{}),
		bundleSize:      startSize,
	}
}

// bundleKey is a canonical string for an index multiset, used to reject
// bundles already returned.
func bundleKey(idx []int) string {
	sorted := append([]int(nil), idx...)
	sort.Ints(sorted)
	key := make([]byte, 0, len(sorted)*4)
	for _, v := range sorted {
		key = append(key, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
	}
	return string(key)
}

func (g *Generator) tileAt(idx []int) []geometry.TileDimensions {
	out := make([]geometry.TileDimensions, len(idx))
	for i, v := range idx {
		out[i] = g.stock[v]
	}
	return out
}

func (g *Generator) satisfies(idx []int) bool {
	var area int64
	maxSide := 0
	for _, v := range idx {
		t := g.stock[v]
		area += t.Area()
		if t.Width > maxSide {
			maxSide = t.Width
		}
		if t.Height > maxSide {
			maxSide = t.Height
		}
	}
	return area >= g.requiredArea && maxSide >= g.requiredMaxSide
}

// Next returns the next bundle and true, or nil and false when the
// generator is exhausted. The very first call always returns the
// pre-built "all-panel" bundle (every stock sheet) as a reachability
// safety net, per §4.5.
func (g *Generator) Next() ([]geometry.TileDimensions, bool) {
	if g.exhausted {
		return nil, false
	}
	if !g.emittedAllPanel {
		g.emittedAllPanel = true
		all := make([]int, len(g.stock))
		for i := range g.stock {
			all[i] = i
		}
		g.exclusions[bundleKey(all)] = struct{}{}
		if g.allSameID {
			g.exhausted = true
		}
		return g.tileAt(all), true
	}
	if g.allSameID {
		g.exhausted = true
		return nil, false
	}

	for g.bundleSize <= g.sizeCap && g.bundleSize <= len(g.stock) {
		idx, ok := g.advance()
		if !ok {
			g.bundleSize++
			g.cursor = nil
			continue
		}
		if !g.satisfies(idx) {
			continue
		}
		key := bundleKey(idx)
		if _, dup := g.exclusions[key]; dup {
			continue
		}
		g.exclusions[key] = struct{}{}
		return g.tileAt(idx), true
	}
	g.exhausted = true
	return nil, false
}

// advance produces the next strictly-increasing index combination of size
// g.bundleSize — every bundle member a distinct physical sheet, matching
// "(c) indices are unique" — lexicographically after g.cursor. It advances
// the rightmost slot that can still move to "the next unused stock tile"
// and resets every slot to its right, per getNextUnusedStockTile.
func (g *Generator) advance() ([]int, bool) {
	n := len(g.stock)
	if g.cursor == nil {
		if g.bundleSize > n {
			return nil, false
		}
		g.cursor = make([]int, g.bundleSize)
		for i := range g.cursor {
			g.cursor[i] = i
		}
		return append([]int(nil), g.cursor...), true
	}
	i := g.bundleSize - 1
	for i >= 0 {
		if g.cursor[i] < n-g.bundleSize+i {
			g.cursor[i]++
			for j := i + 1; j < g.bundleSize; j++ {
				g.cursor[j] = g.cursor[j-1] + 1
			}
			return append([]int(nil), g.cursor...), true
		}
		i--
	}
	return nil, false
}

// Sorter owns the growing, area-ascending list of bundles workers pull
// from. Its Run method, started in its own goroutine, adds bundles until the
// task stops, an all-fit solution exists and at least 100 bundles are held,
// or the generator is exhausted.
type Sorter struct {
	mu            sync.Mutex
	gen           *Generator
	solutions     []*mosaic.StockBundle
	dead          bool
	isRunning     func() bool
	hasAllFit     func() bool
	retrievedMax  int
}

// NewSorter builds a Sorter over gen. isRunning reports whether the owning
// task is still live; hasAllFit reports whether an all-fit solution already
// exists (both stop conditions from §4.5).
func NewSorter(gen *Generator, isRunning, hasAllFit func() bool) *Sorter {
	return &Sorter{gen: gen, isRunning: isRunning, hasAllFit: hasAllFit}
}

// Run pulls bundles until a stop condition fires. It is meant to run in its
// own goroutine; callers observe progress and exhaustion through
// GetStockSolution.
func (s *Sorter) Run() {
	for {
		s.mu.Lock()
		count := len(s.solutions)
		maxRetrieved := s.retrievedMax
		s.mu.Unlock()

		if s.isRunning != nil && !s.isRunning() {
			s.markDead()
			return
		}
		if s.hasAllFit != nil && s.hasAllFit() && count >= 100 {
			s.markDead()
			return
		}
		if count > 10 && maxRetrieved < count-1 {
			time.Sleep(10 * time.Millisecond)
			continue
		}

		bundle, ok := s.gen.Next()
		if !ok {
			s.markDead()
			return
		}

		s.insert(mosaic.NewStockBundle(bundle))
		if !isUniform(bundle) {
			s.insert(mosaic.NewStockBundle(descendingClone(bundle)))
		}
	}
}

func isUniform(stock []geometry.TileDimensions) bool {
	for _, t := range stock[1:] {
		if !t.DimensionsEqual(stock[0]) {
			return false
		}
	}
	return true
}

func descendingClone(stock []geometry.TileDimensions) []geometry.TileDimensions {
	out := append([]geometry.TileDimensions(nil), stock...)
	sort.Slice(out, func(i, j int) bool { return out[i].Area() > out[j].Area() })
	return out
}

func (s *Sorter) insert(b *mosaic.StockBundle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.solutions {
		if existing.Equal(b) {
			return
		}
	}
	s.solutions = append(s.solutions, b)
	sort.SliceStable(s.solutions, func(i, j int) bool {
		return s.solutions[i].TotalArea < s.solutions[j].TotalArea
	})
}

func (s *Sorter) markDead() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dead = true
}

// GetStockSolution is the consumer-facing call: blocks, polling at 1s,
// until index i exists or the sorter has died, returning (nil, false) on
// exhaustion.
func (s *Sorter) GetStockSolution(i int) (*mosaic.StockBundle, bool) {
	for {
		s.mu.Lock()
		if i < len(s.solutions) {
			b := s.solutions[i]
			if i > s.retrievedMax {
				s.retrievedMax = i
			}
			s.mu.Unlock()
			return b, true
		}
		dead := s.dead
		s.mu.Unlock()
		if dead {
			return nil, false
		}
		time.Sleep(pollInterval)
	}
}
