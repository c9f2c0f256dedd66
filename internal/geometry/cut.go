package geometry

import "sync/atomic"

var nextCutID atomic.Int64

// Axis names which way a cut line runs. A Vertical cut has a constant x
// coordinate and varies in y (it divides a tile into left/right pieces); a
// Horizontal cut has a constant y and varies in x (top/bottom pieces).
type Axis int

const (
	AxisVertical Axis = iota
	AxisHorizontal
)

func (a Axis) String() string {
	if a == AxisHorizontal {
		return "horizontal"
	}
	return "vertical"
}

// Cut is an immutable record of one guillotine split: the coordinates of
// the cut line, which axis it runs along, the id of the node it split, the
// ids of the two resulting children, and the original node's size (kept so
// a cut list alone can reconstruct the tree without walking it).
type Cut struct {
	ID             int64
	X1, Y1, X2, Y2 int
	Axis           Axis
	OriginalTileID int64
	Child1ID       int64
	Child2ID       int64
	OriginalWidth  int
	OriginalHeight int
}

// Length returns |Δx| + |Δy|, which is always equal to the single nonzero
// delta since a cut line is axis-aligned.
func (c Cut) Length() int {
	dx, dy := c.X2-c.X1, c.Y2-c.Y1
	return absInt(dx) + absInt(dy)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// SplitHorizontally divides n's width at w: child1 becomes the left piece
// of width w, child2 the right piece of width (n.Width()-w-kerf) if that is
// positive, else nil (the kerf and any remainder below zero consume the
// rest of the tile). The kerf itself is not assigned to either child; it is
// implicit in the gap between child1's right edge and child2's left edge.
// n must be an exclusively-owned node (see TileNode.CopyReplacingLeaf).
func SplitHorizontally(n *TileNode, w, kerf int) Cut {
	t := n.tile
	child1 := NewTile(t.X1, t.X1+w, t.Y1, t.Y2)
	c1 := &TileNode{id: nextNodeID.Add(1) - 1, externalID: NoExternalID, tile: child1}

	var c2 *TileNode
	remaining := t.Width() - w - kerf
	if remaining > 0 {
		child2 := NewTile(t.X1+w+kerf, t.X2, t.Y1, t.Y2)
		c2 = &TileNode{id: nextNodeID.Add(1) - 1, externalID: NoExternalID, tile: child2}
	}
	n.SetChildren(c1, c2)

	return Cut{
		ID:             nextCutID.Add(1) - 1,
		X1:             t.X1 + w,
		Y1:             t.Y1,
		X2:             t.X1 + w,
		Y2:             t.Y2,
		Axis:           AxisVertical,
		OriginalTileID: n.id,
		Child1ID:       c1.id,
		Child2ID: func() int64 {
			if c2 != nil {
				return c2.id
			}
			return NoExternalID
		}(),
		OriginalWidth:  t.Width(),
		OriginalHeight: t.Height(),
	}
}

// SplitVertically divides n's height at h: child1 becomes the top piece of
// height h, child2 the bottom piece of height (n.Height()-h-kerf) if
// positive. Symmetric to SplitHorizontally on the other axis.
func SplitVertically(n *TileNode, h, kerf int) Cut {
	t := n.tile
	child1 := NewTile(t.X1, t.X2, t.Y1, t.Y1+h)
	c1 := &TileNode{id: nextNodeID.Add(1) - 1, externalID: NoExternalID, tile: child1}

	var c2 *TileNode
	remaining := t.Height() - h - kerf
	if remaining > 0 {
		child2 := NewTile(t.X1, t.X2, t.Y1+h+kerf, t.Y2)
		c2 = &TileNode{id: nextNodeID.Add(1) - 1, externalID: NoExternalID, tile: child2}
	}
	n.SetChildren(c1, c2)

	return Cut{
		ID:             nextCutID.Add(1) - 1,
		X1:             t.X1,
		Y1:             t.Y1 + h,
		X2:             t.X2,
		Y2:             t.Y1 + h,
		Axis:           AxisHorizontal,
		OriginalTileID: n.id,
		Child1ID:       c1.id,
		Child2ID: func() int64 {
			if c2 != nil {
				return c2.id
			}
			return NoExternalID
		}(),
		OriginalWidth:  t.Width(),
		OriginalHeight: t.Height(),
	}
}
