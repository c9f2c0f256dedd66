package geometry

import (
	"strconv"
	"sync/atomic"
)

// nextNodeID backs TileNode's process-wide monotonic id counter (§5:
// "TileNode ids ... assigned from a process-wide monotonic counter").
var nextNodeID atomic.Int64

// NoExternalID is the sentinel externalId of a node that carries no placed
// panel, matching the original's -1 default.
const NoExternalID = -1

// TileNode is one node of a Mosaic's binary guillotine split tree: a leaf
// (possibly final, carrying the externalId of the demand panel placed into
// it) or an internal node with exactly two children produced by one
// horizontal or vertical cut.
//
// A TileNode is owned by its containing Mosaic. Mutating a node that is
// still reachable from another Solution's tree would corrupt that
// Solution's view, so trees are never mutated through a shared pointer;
// see CopyReplacingLeaf, which path-copies only the ancestors of the leaf
// being changed and lets every sibling subtree remain shared by reference
// (Design Notes §9 option (b), grounded on the original's
// TileNode.copy()/copyChildren()).
type TileNode struct {
	id         int64
	externalID int
	tile       Tile
	isFinal    bool
	isRotated  bool
	child1     *TileNode
	child2     *TileNode

	usedAreaMemo    int64
	usedAreaIsFinal bool
}

// NewTileNode allocates a fresh leaf node covering the given rectangle.
func NewTileNode(x1, x2, y1, y2 int) *TileNode {
	return &TileNode{
		id:         nextNodeID.Add(1) - 1,
		externalID: NoExternalID,
		tile:       NewTile(x1, x2, y1, y2),
	}
}

// NewTileNodeFromDimensions allocates a fresh leaf node at the origin sized
// to hold td — used to seed a Mosaic's root from a stock sheet.
func NewTileNodeFromDimensions(td TileDimensions) *TileNode {
	return &TileNode{
		id:         nextNodeID.Add(1) - 1,
		externalID: NoExternalID,
		tile:       NewTileFromDimensions(td.Width, td.Height),
	}
}

// shallowCopy copies id, externalId, tile, flags and the two child
// pointers, but not the subtrees they point to: the copy shares them.
func (n *TileNode) shallowCopy() *TileNode {
	cp := *n
	cp.usedAreaMemo = 0
	cp.usedAreaIsFinal = false
	return &cp
}

func (n *TileNode) ID() int64         { return n.id }
func (n *TileNode) ExternalID() int   { return n.externalID }
func (n *TileNode) IsFinal() bool     { return n.isFinal }
func (n *TileNode) IsRotated() bool   { return n.isRotated }
func (n *TileNode) Child1() *TileNode { return n.child1 }
func (n *TileNode) Child2() *TileNode { return n.child2 }
func (n *TileNode) Tile() Tile        { return n.tile }

func (n *TileNode) HasChildren() bool { return n.child1 != nil || n.child2 != nil }

func (n *TileNode) X1() int { return n.tile.X1 }
func (n *TileNode) X2() int { return n.tile.X2 }
func (n *TileNode) Y1() int { return n.tile.Y1 }
func (n *TileNode) Y2() int { return n.tile.Y2 }

func (n *TileNode) Width() int  { return n.tile.Width() }
func (n *TileNode) Height() int { return n.tile.Height() }
func (n *TileNode) Area() int64 { return n.tile.Area() }

func (n *TileNode) IsHorizontal() bool { return n.Width() > n.Height() }
func (n *TileNode) IsVertical() bool   { return n.Height() > n.Width() }

// MarkFinal turns this node into a final leaf carrying externalID, rotated
// as indicated. Only valid on a node this copy exclusively owns.
func (n *TileNode) MarkFinal(externalID int, rotated bool) {
	n.isFinal = true
	n.externalID = externalID
	n.isRotated = rotated
	n.child1 = nil
	n.child2 = nil
}

// SetChildren installs the two children resulting from a split, turning a
// leaf into an internal node. Only valid on an exclusively-owned copy.
func (n *TileNode) SetChildren(child1, child2 *TileNode) {
	n.isFinal = false
	n.child1 = child1
	n.child2 = child2
}

// UsedArea is the sum of the areas of every final leaf beneath n, memoized
// once it equals n's own area (an internal node can never become "less
// used" after that point, mirroring the original's isAreaTotallyUsed
// shortcut).
func (n *TileNode) UsedArea() int64 {
	if n.usedAreaIsFinal {
		return n.usedAreaMemo
	}
	if n.isFinal {
		return n.Area()
	}
	var used int64
	if n.child1 != nil {
		used += n.child1.UsedArea()
	}
	if n.child2 != nil {
		used += n.child2.UsedArea()
	}
	if used == n.Area() {
		n.usedAreaIsFinal = true
		n.usedAreaMemo = used
	}
	return used
}

func (n *TileNode) UnusedArea() int64 { return n.Area() - n.UsedArea() }

// UnusedLeaves returns every non-final leaf beneath n (candidate free
// rectangles for future placements).
func (n *TileNode) UnusedLeaves() []*TileNode {
	var out []*TileNode
	n.collectUnusedLeaves(&out)
	return out
}

func (n *TileNode) collectUnusedLeaves(out *[]*TileNode) {
	if !n.isFinal && n.child1 == nil && n.child2 == nil {
		*out = append(*out, n)
	}
	if n.child1 != nil {
		n.child1.collectUnusedLeaves(out)
	}
	if n.child2 != nil {
		n.child2.collectUnusedLeaves(out)
	}
}

// FinalTileNodes returns every final leaf beneath n, pre-order.
func (n *TileNode) FinalTileNodes() []*TileNode {
	var out []*TileNode
	n.collectFinalTileNodes(&out)
	return out
}

func (n *TileNode) collectFinalTileNodes(out *[]*TileNode) {
	if n.isFinal {
		*out = append(*out, n)
	}
	if n.child1 != nil {
		n.child1.collectFinalTileNodes(out)
	}
	if n.child2 != nil {
		n.child2.collectFinalTileNodes(out)
	}
}

func (n *TileNode) HasFinal() bool {
	if n.isFinal {
		return true
	}
	if n.child1 != nil && n.child1.HasFinal() {
		return true
	}
	if n.child2 != nil && n.child2.HasFinal() {
		return true
	}
	return false
}

func (n *TileNode) NbrUnusedTiles() int {
	count := 0
	if !n.isFinal && n.child1 == nil && n.child2 == nil {
		count = 1
	}
	if n.child1 != nil {
		count += n.child1.NbrUnusedTiles()
	}
	if n.child2 != nil {
		count += n.child2.NbrUnusedTiles()
	}
	return count
}

func (n *TileNode) Depth() int {
	depth := 0
	if n.child1 != nil {
		depth += 1 + n.child1.Depth()
	}
	if n.child2 != nil {
		depth += 1 + n.child2.Depth()
	}
	return depth
}

func (n *TileNode) NbrFinalTiles() int {
	count := 0
	if n.isFinal {
		count = 1
	}
	if n.child1 != nil {
		count += n.child1.NbrFinalTiles()
	}
	if n.child2 != nil {
		count += n.child2.NbrFinalTiles()
	}
	return count
}

// BiggestArea returns the area of the largest non-final leaf beneath n.
func (n *TileNode) BiggestArea() int64 {
	var area int64
	if n.child1 == nil && n.child2 == nil && !n.isFinal {
		area = n.Area()
	}
	if n.child1 != nil {
		if a := n.child1.BiggestArea(); a > area {
			area = a
		}
	}
	if n.child2 != nil {
		if a := n.child2.BiggestArea(); a > area {
			area = a
		}
	}
	return area
}

func (n *TileNode) NbrFinalHorizontal() int {
	count := 0
	if n.isFinal && n.IsHorizontal() {
		count = 1
	}
	if n.child1 != nil {
		count += n.child1.NbrFinalHorizontal()
	}
	if n.child2 != nil {
		count += n.child2.NbrFinalHorizontal()
	}
	return count
}

func (n *TileNode) NbrFinalVertical() int {
	count := 0
	if n.isFinal && n.IsVertical() {
		count = 1
	}
	if n.child1 != nil {
		count += n.child1.NbrFinalVertical()
	}
	if n.child2 != nil {
		count += n.child2.NbrFinalVertical()
	}
	return count
}

// DistinctTileSet returns the Cantor-pairing hash of (width, height) for
// every final leaf beneath n: i = width+height, hash = i*(i+1)/2 + height.
// Its cardinality is the MOST_HV_DISCREPANCY ranking key.
func (n *TileNode) DistinctTileSet() map[int]struct{} {
	set := make(map[int]struct{})
	n.collectDistinctTileSet(set)
	return set
}

func (n *TileNode) collectDistinctTileSet(set map[int]struct{}) {
	if n.isFinal {
		w, h := n.Width(), n.Height()
		i := w + h
		set[(i*(i+1))/2+h] = struct{}{}
		return
	}
	if n.child1 != nil {
		n.child1.collectDistinctTileSet(set)
	}
	if n.child2 != nil {
		n.child2.collectDistinctTileSet(set)
	}
}

// StringIdentifier returns the pre-order concatenation of every node's
// (x1,y1,x2,y2,isFinal), used to deduplicate beam members by tree shape
// (§4.4 step 2). It is a textual fingerprint, not a structural hash, by
// design: two trees with the same shape but different ids collapse to the
// same identifier.
func (n *TileNode) StringIdentifier() string {
	var sb []byte
	sb = n.appendStringIdentifier(sb)
	return string(sb)
}

func (n *TileNode) appendStringIdentifier(sb []byte) []byte {
	sb = strconv.AppendInt(sb, int64(n.tile.X1), 10)
	sb = strconv.AppendInt(sb, int64(n.tile.Y1), 10)
	sb = strconv.AppendInt(sb, int64(n.tile.X2), 10)
	sb = strconv.AppendInt(sb, int64(n.tile.Y2), 10)
	sb = strconv.AppendBool(sb, n.isFinal)
	if n.child1 != nil {
		sb = n.child1.appendStringIdentifier(sb)
	}
	if n.child2 != nil {
		sb = n.child2.appendStringIdentifier(sb)
	}
	return sb
}

// CopyReplacingLeaf returns a new tree equal to root except that the leaf
// with the given id has been replaced by applying mutate to an exclusive
// shallow copy of it. Every node on the path from root to that leaf is
// shallow-copied; every sibling subtree off that path is shared by
// reference with the original tree. Returns nil if no node with that id is
// found.
//
// This is the single copy primitive the placement primitive uses: it keeps
// the O(depth) cost the original Java achieves with copy()/copyChildren(),
// rather than deep-copying the whole tree per placement trial.
func (n *TileNode) CopyReplacingLeaf(leafID int64, mutate func(leaf *TileNode)) *TileNode {
	if n.id == leafID {
		cp := n.shallowCopy()
		mutate(cp)
		return cp
	}
	if n.child1 == nil && n.child2 == nil {
		return nil
	}
	cp := n.shallowCopy()
	if n.child1 != nil {
		if replaced := n.child1.CopyReplacingLeaf(leafID, mutate); replaced != nil {
			cp.child1 = replaced
			return cp
		}
	}
	if n.child2 != nil {
		if replaced := n.child2.CopyReplacingLeaf(leafID, mutate); replaced != nil {
			cp.child2 = replaced
			return cp
		}
	}
	return nil
}
