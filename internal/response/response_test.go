package response

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/cutoptimizer/internal/geometry"
	"github.com/piwi3910/cutoptimizer/internal/mosaic"
	"github.com/piwi3910/cutoptimizer/internal/request"
)

// buildFixtureMosaic lays out a 1000x600 stock sheet (scaled by factor 10,
// i.e. a 100.0x60.0 sheet) split vertically at x=600: the left leaf becomes
// panel 1 unrotated, the right leaf becomes panel 2 rotated.
func buildFixtureMosaic(stockID int) *mosaic.Mosaic {
	root := geometry.NewTileNode(0, 1000, 0, 600)
	left := geometry.NewTileNode(0, 600, 0, 600)
	right := geometry.NewTileNode(600, 1000, 0, 600)
	left.MarkFinal(1, false)
	right.MarkFinal(2, true)
	root.SetChildren(left, right)

	m := mosaic.NewMosaic(geometry.TileDimensions{ID: stockID, Width: 1000, Height: 600})
	m.Root = root
	m.Cuts = []geometry.Cut{
		{X1: 600, Y1: 0, X2: 600, Y2: 600, Axis: geometry.AxisVertical, OriginalTileID: root.ID(), Child1ID: left.ID(), Child2ID: right.ID(), OriginalWidth: 1000, OriginalHeight: 600},
	}
	return m
}

func TestBuildFlattensMosaicIntoTilesAndCuts(t *testing.T) {
	m := buildFixtureMosaic(99)
	solutions := map[string]*mosaic.Solution{
		"DEFAULT_MATERIAL": {ID: 1, Mosaics: []*mosaic.Mosaic{m}, CreatedAt: time.Now()},
	}
	demandByID := map[int]request.Panel{
		1: {ID: 1, Label: "left"},
		2: {ID: 2, Label: "right"},
	}
	stockByID := map[int]request.Panel{
		99: {ID: 99, Label: "sheet"},
	}

	resp := Build("task-1", 10, time.Now().Add(-time.Second), solutions, demandByID, stockByID)

	require.Len(t, resp.Mosaics, 1)
	mo := resp.Mosaics[0]
	assert.Equal(t, "sheet", mo.StockLabel)
	require.NotNil(t, mo.RequestStockID)
	assert.Equal(t, 99, *mo.RequestStockID)

	require.Len(t, mo.Tiles, 3)
	assert.True(t, mo.Tiles[0].HasChildren)
	assert.False(t, mo.Tiles[0].IsFinal)

	assert.Equal(t, 60.0, mo.Tiles[1].Width)
	assert.Equal(t, 60.0, mo.Tiles[1].Height)
	assert.True(t, mo.Tiles[1].IsFinal)
	assert.False(t, mo.Tiles[1].IsRotated)
	require.NotNil(t, mo.Tiles[1].RequestObjID)
	assert.Equal(t, 1, *mo.Tiles[1].RequestObjID)
	assert.Equal(t, "left", mo.Tiles[1].Label)

	assert.Equal(t, 40.0, mo.Tiles[2].Width)
	assert.Equal(t, 60.0, mo.Tiles[2].Height)
	assert.True(t, mo.Tiles[2].IsRotated)

	require.Len(t, mo.Cuts, 1)
	assert.Equal(t, 60.0, mo.Cuts[0].CutCoord)
	assert.True(t, mo.Cuts[0].IsHorizontal == false)
	assert.Equal(t, 100.0, mo.Cuts[0].OriginalWidth)
	assert.Equal(t, 60.0, mo.Cuts[0].OriginalHeight)

	assert.InDelta(t, 6000.0, mo.UsedArea, 0.0001)
	assert.Equal(t, 0.0, mo.WastedArea)
	assert.Equal(t, 1.0, mo.UsedAreaRatio)

	require.Len(t, resp.Panels, 2)
	assert.Equal(t, 1, resp.Panels[0].RequestObjID)
	assert.Equal(t, 1, resp.Panels[0].Count)
	assert.Equal(t, 2, resp.Panels[1].RequestObjID)

	assert.InDelta(t, 6000.0, resp.TotalUsedArea, 0.0001)
	assert.Equal(t, 0.0, resp.TotalWastedArea)
	assert.Equal(t, 1.0, resp.TotalUsedAreaRatio)
	assert.Equal(t, int64(1), resp.TotalNbrCuts)
	assert.Equal(t, 60.0, resp.TotalCutLength)

	require.NotNil(t, resp.SolutionElapsedTime)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, Version, resp.Version)
	assert.Equal(t, "task-1", resp.TaskID)
}

func TestBuildAggregatesUsedStockByMosaicNotByLeaf(t *testing.T) {
	a := buildFixtureMosaic(99)
	b := buildFixtureMosaic(99)
	solutions := map[string]*mosaic.Solution{
		"DEFAULT_MATERIAL": {ID: 1, Mosaics: []*mosaic.Mosaic{a, b}, CreatedAt: time.Now()},
	}
	demandByID := map[int]request.Panel{
		1: {ID: 1, Label: "left"},
		2: {ID: 2, Label: "right"},
	}
	stockByID := map[int]request.Panel{
		99: {ID: 99, Label: "sheet"},
	}

	resp := Build("task-1", 10, time.Now().Add(-time.Second), solutions, demandByID, stockByID)

	require.Len(t, resp.UsedStockPanels, 1)
	used := resp.UsedStockPanels[0]
	assert.Equal(t, 99, used.RequestObjID)
	assert.Equal(t, "sheet", used.Label)
	assert.Equal(t, 100.0, used.Width)
	assert.Equal(t, 60.0, used.Height)
	// one entry per mosaic, not per final leaf: two mosaics, two final
	// leaves each, still count == 2.
	assert.Equal(t, 2, used.Count)
}

func TestBuildAggregatesNoFitPanelsByIDWidthHeight(t *testing.T) {
	solutions := map[string]*mosaic.Solution{
		"DEFAULT_MATERIAL": {
			ID: 1,
			NoFitPanels: []geometry.TileDimensions{
				{ID: 3, Width: 200, Height: 300, Material: "DEFAULT_MATERIAL"},
				{ID: 3, Width: 200, Height: 300, Material: "DEFAULT_MATERIAL"},
			},
			CreatedAt: time.Now(),
		},
	}
	demandByID := map[int]request.Panel{3: {ID: 3, Label: "leftover"}}

	resp := Build("task-2", 10, time.Now(), solutions, demandByID, nil)

	require.Len(t, resp.NoFitPanels, 1)
	nf := resp.NoFitPanels[0]
	assert.Equal(t, 3, nf.ID)
	assert.Equal(t, 2, nf.Count)
	assert.Equal(t, 20.0, nf.Width)
	assert.Equal(t, 30.0, nf.Height)
	assert.Equal(t, "leftover", nf.Label)
	assert.Empty(t, nf.Material)
}

func TestBuildSumsEdgeBandingLengthsByRotation(t *testing.T) {
	m := buildFixtureMosaic(99)
	solutions := map[string]*mosaic.Solution{
		"DEFAULT_MATERIAL": {ID: 1, Mosaics: []*mosaic.Mosaic{m}, CreatedAt: time.Now()},
	}
	demandByID := map[int]request.Panel{
		1: {ID: 1, Label: "left", Edge: &request.EdgeInput{Top: "WHITE"}},
		2: {ID: 2, Label: "right", Edge: &request.EdgeInput{Left: "BLACK"}},
	}

	resp := Build("task-3", 10, time.Now(), solutions, demandByID, nil)

	// panel 1 (60x60 placed, not rotated): top/bottom run along width (60).
	assert.Equal(t, 60.0, resp.EdgeBands["WHITE"])
	// panel 2 (40x60 placed, rotated): left/right run along width (40).
	assert.Equal(t, 40.0, resp.EdgeBands["BLACK"])

	mo := resp.Mosaics[0]
	assert.Equal(t, 60.0, mo.EdgeBands["WHITE"])
	assert.Equal(t, 40.0, mo.EdgeBands["BLACK"])
}

func TestBuildOmitsSolutionElapsedTimeWhenNoSolutions(t *testing.T) {
	resp := Build("task-4", 10, time.Now(), map[string]*mosaic.Solution{}, nil, nil)
	assert.Nil(t, resp.SolutionElapsedTime)
	assert.Empty(t, resp.Mosaics)
	assert.Empty(t, resp.Panels)
}
