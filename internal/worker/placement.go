// Package worker implements the candidate-search worker (§4.4): given one
// permutation of demand panels and one stock bundle, it grows a beam of
// partial Solutions by repeatedly trying to place the next panel into every
// existing mosaic via guillotine splits, keeping only the top-K under a
// configurable comparator chain.
package worker

import (
	"github.com/piwi3910/cutoptimizer/internal/geometry"
	"github.com/piwi3910/cutoptimizer/internal/mosaic"
)

// FirstCutPolicy restricts which split direction a worker tries first when
// a panel does not fit a leaf exactly.
type FirstCutPolicy int

const (
	PolicyBoth FirstCutPolicy = iota
	PolicyHorizontal
	PolicyVertical
)

// GroupLabel is the worker group tag used by the eligibility gate (§4.4.2)
// and recorded on every Solution a worker produces.
func (p FirstCutPolicy) GroupLabel() string {
	switch p {
	case PolicyHorizontal:
		return "AREA_HCUTS_1ST"
	case PolicyVertical:
		return "AREA_VCUTS_1ST"
	default:
		return "AREA"
	}
}

// orientationVariants returns the TileDimensions variant(s) a placement
// attempt should try, per §4.4.1 step 1: if grain consideration is on and
// both the mosaic and the panel have a grain constraint, rotate the panel
// to match the mosaic; otherwise try both orientations (skipping the
// rotated one for a square panel, since it is identical).
func orientationVariants(t geometry.TileDimensions, mosaicOrientation geometry.Orientation, considerGrain bool) []geometry.TileDimensions {
	if considerGrain && mosaicOrientation != geometry.OrientationAny && t.Orientation != geometry.OrientationAny {
		if t.Orientation == mosaicOrientation {
			return []geometry.TileDimensions{t}
		}
		return []geometry.TileDimensions{t.Rotate90()}
	}
	if t.IsSquare() {
		return []geometry.TileDimensions{t}
	}
	return []geometry.TileDimensions{t, t.Rotate90()}
}

// isCandidateLeaf reports whether leaf is large enough to host tv and,
// where it is larger, leaves either no trim or at least minTrim of spare
// material on each axis (§4.4.1 step 2). onMinTrimInfluenced is invoked
// when a leaf is rejected only because of the minTrim constraint, setting
// the task-wide isMinTrimDimensionInfluenced latch.
func isCandidateLeaf(leaf *geometry.TileNode, tv geometry.TileDimensions, minTrim int, onMinTrimInfluenced func()) bool {
	lw, lh := leaf.Width(), leaf.Height()
	if lw < tv.Width || lh < tv.Height {
		return false
	}
	widthOK := lw == tv.Width || lw >= tv.Width+minTrim
	heightOK := lh == tv.Height || lh >= tv.Height+minTrim
	if widthOK && heightOK {
		return true
	}
	if onMinTrimInfluenced != nil {
		onMinTrimInfluenced()
	}
	return false
}

// splitHV implements the "horizontal cut first" branch of the placement
// primitive: split the leaf's width at tv.Width, then if the resulting
// strip is still taller than tv.Height, split that strip's height too.
// The innermost piece is marked final. leaf must already be an
// exclusively-owned node (reached through TileNode.CopyReplacingLeaf).
func splitHV(leaf *geometry.TileNode, tv geometry.TileDimensions, kerf, externalID int) []geometry.Cut {
	cuts := []geometry.Cut{geometry.SplitHorizontally(leaf, tv.Width, kerf)}
	child1 := leaf.Child1()
	if child1.Height() > tv.Height {
		cuts = append(cuts, geometry.SplitVertically(child1, tv.Height, kerf))
		child1.Child1().MarkFinal(externalID, tv.IsRotated)
	} else {
		child1.MarkFinal(externalID, tv.IsRotated)
	}
	return cuts
}

// splitVH is splitHV's mirror image: split height first, then width.
func splitVH(leaf *geometry.TileNode, tv geometry.TileDimensions, kerf, externalID int) []geometry.Cut {
	cuts := []geometry.Cut{geometry.SplitVertically(leaf, tv.Height, kerf)}
	child1 := leaf.Child1()
	if child1.Width() > tv.Width {
		cuts = append(cuts, geometry.SplitHorizontally(child1, tv.Width, kerf))
		child1.Child1().MarkFinal(externalID, tv.IsRotated)
	} else {
		child1.MarkFinal(externalID, tv.IsRotated)
	}
	return cuts
}

// candidatePlacements is the placement primitive of §4.4.1: it tries every
// orientation variant of t against every non-final leaf of m and returns
// one new Mosaic per successful placement. It never mutates m.
func candidatePlacements(m *mosaic.Mosaic, t geometry.TileDimensions, kerf, minTrim int, policy FirstCutPolicy, considerGrain bool, onMinTrimInfluenced func()) []*mosaic.Mosaic {
	var out []*mosaic.Mosaic
	for _, tv := range orientationVariants(t, m.Orientation, considerGrain) {
		for _, leaf := range m.Root.UnusedLeaves() {
			if !isCandidateLeaf(leaf, tv, minTrim, onMinTrimInfluenced) {
				continue
			}
			leafID := leaf.ID()
			lw, lh := leaf.Width(), leaf.Height()

			if lw == tv.Width && lh == tv.Height {
				newRoot := m.Root.CopyReplacingLeaf(leafID, func(l *geometry.TileNode) {
					l.MarkFinal(t.ID, tv.IsRotated)
				})
				out = append(out, withRoot(m, newRoot, nil))
				continue
			}

			if policy == PolicyBoth || policy == PolicyHorizontal {
				var cuts []geometry.Cut
				newRoot := m.Root.CopyReplacingLeaf(leafID, func(l *geometry.TileNode) {
					cuts = splitHV(l, tv, kerf, t.ID)
				})
				out = append(out, withRoot(m, newRoot, cuts))
			}
			if policy == PolicyBoth || policy == PolicyVertical {
				var cuts []geometry.Cut
				newRoot := m.Root.CopyReplacingLeaf(leafID, func(l *geometry.TileNode) {
					cuts = splitVH(l, tv, kerf, t.ID)
				})
				out = append(out, withRoot(m, newRoot, cuts))
			}
		}
	}
	return out
}

// withRoot returns a Mosaic sharing m's material/orientation/stockId but
// with newRoot installed and cuts appended.
func withRoot(m *mosaic.Mosaic, newRoot *geometry.TileNode, cuts []geometry.Cut) *mosaic.Mosaic {
	nm := m.Clone()
	nm.Root = newRoot
	nm.Cuts = append(nm.Cuts, cuts...)
	return nm
}

// fitsEitherOrientation reports whether stock is large enough to hold t in
// either orientation, used when probing Solution.UnusedStockPanels for a
// fresh mosaic to instantiate.
func fitsEitherOrientation(stock, t geometry.TileDimensions) bool {
	fitsNormal := stock.Width >= t.Width && stock.Height >= t.Height
	fitsRotated := stock.Width >= t.Height && stock.Height >= t.Width
	return fitsNormal || fitsRotated
}
