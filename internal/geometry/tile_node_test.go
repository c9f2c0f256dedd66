package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTileNodeFromDimensions(t *testing.T) {
	root := NewTileNodeFromDimensions(TileDimensions{Width: 100, Height: 50})
	assert.Equal(t, 100, root.Width())
	assert.Equal(t, 50, root.Height())
	assert.False(t, root.IsFinal())
	assert.Equal(t, int64(5000), root.Area())
}

func TestSplitHorizontallyExactRemainder(t *testing.T) {
	root := NewTileNodeFromDimensions(TileDimensions{Width: 100, Height: 50})
	cut := SplitHorizontally(root, 60, 0)

	require.True(t, root.HasChildren())
	assert.Equal(t, 60, root.Child1().Width())
	require.NotNil(t, root.Child2())
	assert.Equal(t, 40, root.Child2().Width())
	assert.Equal(t, 50, root.Child2().Height())
	assert.Equal(t, AxisVertical, cut.Axis)
	assert.Equal(t, 50, cut.Length()) // the cut line runs the full height of the tile
}

func TestSplitHorizontallyNoRemainderWhenKerfConsumesRest(t *testing.T) {
	root := NewTileNodeFromDimensions(TileDimensions{Width: 100, Height: 10})
	SplitHorizontally(root, 90, 10)
	assert.Nil(t, root.Child2())
	assert.Equal(t, 90, root.Child1().Width())
}

func TestMarkFinalClearsChildren(t *testing.T) {
	root := NewTileNodeFromDimensions(TileDimensions{Width: 100, Height: 50})
	root.MarkFinal(7, false)
	assert.True(t, root.IsFinal())
	assert.Equal(t, 7, root.ExternalID())
	assert.False(t, root.HasChildren())
}

func TestUsedAreaMemoizesOnceTotal(t *testing.T) {
	root := NewTileNodeFromDimensions(TileDimensions{Width: 100, Height: 50})
	SplitHorizontally(root, 100, 0) // child2 nil, child1 covers whole area
	root.Child1().MarkFinal(1, false)
	assert.Equal(t, int64(5000), root.UsedArea())
	assert.Equal(t, int64(0), root.UnusedArea())
}

func TestDistinctTileSetCantorPairing(t *testing.T) {
	root := NewTileNodeFromDimensions(TileDimensions{Width: 45, Height: 10})
	root.MarkFinal(1, false)
	set := root.DistinctTileSet()
	require.Len(t, set, 1)
	i := 45 + 10
	expected := (i*(i+1))/2 + 10
	_, ok := set[expected]
	assert.True(t, ok)
}

func TestStringIdentifierDistinguishesShapes(t *testing.T) {
	a := NewTileNodeFromDimensions(TileDimensions{Width: 100, Height: 50})
	SplitHorizontally(a, 60, 0)
	b := NewTileNodeFromDimensions(TileDimensions{Width: 100, Height: 50})

	assert.NotEqual(t, a.StringIdentifier(), b.StringIdentifier())
}

func TestCopyReplacingLeafSharesSiblings(t *testing.T) {
	root := NewTileNodeFromDimensions(TileDimensions{Width: 100, Height: 100})
	SplitHorizontally(root, 60, 0)
	leftID := root.Child1().ID()
	rightChild := root.Child2()

	newRoot := root.CopyReplacingLeaf(leftID, func(leaf *TileNode) {
		leaf.MarkFinal(1, false)
	})

	require.NotNil(t, newRoot)
	assert.NotSame(t, root, newRoot)
	assert.True(t, newRoot.Child1().IsFinal())
	assert.False(t, root.Child1().IsFinal(), "original tree must be untouched")
	assert.Same(t, rightChild, newRoot.Child2(), "sibling subtree must be shared by reference")
}

func TestCopyReplacingLeafMissingIDReturnsNil(t *testing.T) {
	root := NewTileNodeFromDimensions(TileDimensions{Width: 100, Height: 100})
	result := root.CopyReplacingLeaf(-999, func(*TileNode) {})
	assert.Nil(t, result)
}

func TestRotate90SwapsSidesAndOrientation(t *testing.T) {
	td := TileDimensions{Width: 100, Height: 50, Orientation: OrientationHorizontal}
	r := td.Rotate90()
	assert.Equal(t, 50, r.Width)
	assert.Equal(t, 100, r.Height)
	assert.Equal(t, OrientationVertical, r.Orientation)
	assert.True(t, r.IsRotated)
}
