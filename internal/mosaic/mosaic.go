// Package mosaic assembles geometry.TileNode trees into Mosaics (one stock
// sheet and its guillotine split tree) and Solutions (a candidate whole
// layout: a list of Mosaics plus the bookkeeping the beam search needs to
// carry between panel placements — unused stock, no-fit panels, and a
// creator tag used by the worker group eligibility gate, §4.4.2).
package mosaic

import (
	"sync/atomic"

	"github.com/piwi3910/cutoptimizer/internal/geometry"
)

// Mosaic is one stock sheet instance together with the cuts applied to it
// so far. Its root's final leaves are disjoint and tile exactly the area
// they claim; Cuts lists every internal split precisely, in the order
// applied.
type Mosaic struct {
	Root        *geometry.TileNode
	Cuts        []geometry.Cut
	Material    string
	Orientation geometry.Orientation
	StockID     int
}

// NewMosaic seeds a Mosaic from one stock sheet's dimensions.
func NewMosaic(stock geometry.TileDimensions) *Mosaic {
	return &Mosaic{
		Root:        geometry.NewTileNodeFromDimensions(stock),
		Material:    stock.EffectiveMaterial(),
		Orientation: stock.Orientation,
		StockID:     stock.ID,
	}
}

// Clone returns a copy of m: a new Mosaic struct pointing at the same Root,
// with Cuts copied into a fresh slice. Callers that replace Root
// after a placement always do so via geometry.TileNode.CopyReplacingLeaf,
// which itself never touches the original tree, so sharing Root between
// the pre- and post-placement Mosaic values until the replacement is
// installed is safe.
func (m *Mosaic) Clone() *Mosaic {
	cp := *m
	cp.Cuts = append([]geometry.Cut(nil), m.Cuts...)
	return &cp
}

// UsedArea is the sum of every final leaf's area in the tree.
func (m *Mosaic) UsedArea() int64 { return m.Root.UsedArea() }

// WastedArea is the root's area minus UsedArea, which also counts kerf as
// waste (kerf is never assigned to a leaf).
func (m *Mosaic) WastedArea() int64 { return m.Root.UnusedArea() }

// UsedAreaRatio is UsedArea / Root.Area(), 0 if the root has no area.
func (m *Mosaic) UsedAreaRatio() float64 {
	total := m.Root.Area()
	if total == 0 {
		return 0
	}
	return float64(m.UsedArea()) / float64(total)
}

func (m *Mosaic) NbrFinalPanels() int  { return m.Root.NbrFinalTiles() }
func (m *Mosaic) NbrWastedPanels() int { return m.Root.NbrUnusedTiles() }

// CutLength is the sum of every cut's length.
func (m *Mosaic) CutLength() int {
	var total int
	for _, c := range m.Cuts {
		total += c.Length()
	}
	return total
}

// CenterOfMass returns the area-weighted centroid of every final leaf,
// used by the SMALLEST_CENTER_OF_MASS_DIST_TO_ORIGIN ranking key.
func (m *Mosaic) CenterOfMass() (x, y float64) {
	var totalArea float64
	var sumX, sumY float64
	for _, leaf := range m.Root.FinalTileNodes() {
		area := float64(leaf.Area())
		cx := float64(leaf.X1()+leaf.X2()) / 2
		cy := float64(leaf.Y1()+leaf.Y2()) / 2
		sumX += cx * area
		sumY += cy * area
		totalArea += area
	}
	if totalArea == 0 {
		return 0, 0
	}
	return sumX / totalArea, sumY / totalArea
}

var nextMosaicID atomic.Int64

// NewID returns the next value of the process-wide mosaic id counter.
// Mosaics themselves do not carry an id in the original design, but
// response assembly needs a stable key per rendered sheet; see
// internal/response.
func NewID() int64 { return nextMosaicID.Add(1) - 1 }
