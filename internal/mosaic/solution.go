package mosaic

import (
	"math"
	"sort"
	"sync/atomic"
	"time"

	"github.com/piwi3910/cutoptimizer/internal/geometry"
)

var nextSolutionID atomic.Int64

// Solution is one candidate whole layout: a set of Mosaics kept sorted
// ascending by unused area, a queue of stock sheets not yet turned into a
// Mosaic, the panels that could not be placed anywhere, and the tag of the
// worker group ("AREA", "AREA_HCUTS_1ST", "AREA_VCUTS_1ST") that produced
// it.
type Solution struct {
	ID                 int64
	Mosaics            []*Mosaic
	UnusedStockPanels  []geometry.TileDimensions
	NoFitPanels        []geometry.TileDimensions
	CreatorThreadGroup string
	CreatedAt          time.Time
	AuxInfo            string
}

// NewSolution seeds a Solution from a stock bundle: the bundle's first
// sheet becomes the first mosaic, every remaining sheet is held in
// UnusedStockPanels.
func NewSolution(bundle *StockBundle, createdAt time.Time) *Solution {
	s := &Solution{ID: nextSolutionID.Add(1) - 1, CreatedAt: createdAt}
	if len(bundle.Stock) == 0 {
		return s
	}
	s.Mosaics = []*Mosaic{NewMosaic(bundle.Stock[0])}
	s.UnusedStockPanels = append(s.UnusedStockPanels, bundle.Stock[1:]...)
	return s
}

// Clone returns a deep-enough copy for the beam search to hand to a child:
// the Mosaics slice, UnusedStockPanels and NoFitPanels are copied so
// appends on one Solution never affect another, but individual *Mosaic
// values are shared until ReplaceMosaic installs a new one for the mosaic
// that actually changed.
func (s *Solution) Clone() *Solution {
	cp := &Solution{
		ID:                 nextSolutionID.Add(1) - 1,
		Mosaics:             append([]*Mosaic(nil), s.Mosaics...),
		UnusedStockPanels:   append([]geometry.TileDimensions(nil), s.UnusedStockPanels...),
		NoFitPanels:         append([]geometry.TileDimensions(nil), s.NoFitPanels...),
		CreatorThreadGroup:  s.CreatorThreadGroup,
		CreatedAt:           s.CreatedAt,
		AuxInfo:             s.AuxInfo,
	}
	return cp
}

// ReplaceMosaic swaps the mosaic at index i for replacement and re-sorts
// Mosaics ascending by unused area (the insertion-order invariant from
// §3: "sorted ascending by unused area on every insertion").
func (s *Solution) ReplaceMosaic(i int, replacement *Mosaic) {
	s.Mosaics[i] = replacement
	s.sortMosaics()
}

// AppendMosaic adds a freshly instantiated mosaic (built from an unused
// stock panel) and re-sorts.
func (s *Solution) AppendMosaic(m *Mosaic) {
	s.Mosaics = append(s.Mosaics, m)
	s.sortMosaics()
}

func (s *Solution) sortMosaics() {
	sort.SliceStable(s.Mosaics, func(i, j int) bool {
		return s.Mosaics[i].WastedArea() < s.Mosaics[j].WastedArea()
	})
}

// TotalUsedArea sums UsedArea across every mosaic.
func (s *Solution) TotalUsedArea() int64 {
	var total int64
	for _, m := range s.Mosaics {
		total += m.UsedArea()
	}
	return total
}

// TotalWastedArea sums WastedArea across every mosaic.
func (s *Solution) TotalWastedArea() int64 {
	var total int64
	for _, m := range s.Mosaics {
		total += m.WastedArea()
	}
	return total
}

// NbrFinalTiles sums the final-leaf count across every mosaic.
func (s *Solution) NbrFinalTiles() int {
	var total int
	for _, m := range s.Mosaics {
		total += m.NbrFinalPanels()
	}
	return total
}

// NbrCuts sums the cut count across every mosaic.
func (s *Solution) NbrCuts() int {
	var total int
	for _, m := range s.Mosaics {
		total += len(m.Cuts)
	}
	return total
}

// NbrMosaics is len(Mosaics).
func (s *Solution) NbrMosaics() int { return len(s.Mosaics) }

// BiggestUnusedTileArea is the largest non-final leaf area across every
// mosaic, the BIGGEST_UNUSED_TILE_AREA ranking key.
func (s *Solution) BiggestUnusedTileArea() int64 {
	var biggest int64
	for _, m := range s.Mosaics {
		if a := m.Root.BiggestArea(); a > biggest {
			biggest = a
		}
	}
	return biggest
}

// MostUnusedPanelArea is the largest per-mosaic WastedArea, the
// MOST_UNUSED_PANEL_AREA ranking key.
func (s *Solution) MostUnusedPanelArea() int64 {
	var biggest int64
	for _, m := range s.Mosaics {
		if a := m.WastedArea(); a > biggest {
			biggest = a
		}
	}
	return biggest
}

// DistinctTileSetSize is the size of the largest per-mosaic distinct-tile
// set, the MOST_HV_DISCREPANCY ranking key.
func (s *Solution) DistinctTileSetSize() int {
	var biggest int
	for _, m := range s.Mosaics {
		if n := len(m.Root.DistinctTileSet()); n > biggest {
			biggest = n
		}
	}
	return biggest
}

// AvgCenterOfMassDistance averages, over every mosaic, the Euclidean
// distance of that mosaic's center of mass from the origin.
func (s *Solution) AvgCenterOfMassDistance() float64 {
	if len(s.Mosaics) == 0 {
		return 0
	}
	var total float64
	for _, m := range s.Mosaics {
		x, y := m.CenterOfMass()
		total += math.Hypot(x, y)
	}
	return total / float64(len(s.Mosaics))
}

// NbrUnusedTiles sums the unused-leaf count across every mosaic.
func (s *Solution) NbrUnusedTiles() int {
	var total int
	for _, m := range s.Mosaics {
		total += m.NbrWastedPanels()
	}
	return total
}
