package worker

import (
	"testing"

	"github.com/piwi3910/cutoptimizer/internal/geometry"
	"github.com/piwi3910/cutoptimizer/internal/mosaic"
	"github.com/piwi3910/cutoptimizer/internal/ranking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runSingleWorker(t *testing.T, stock geometry.TileDimensions, demand []geometry.TileDimensions, kerf, minTrim int) *mosaic.Solution {
	bundle := mosaic.NewStockBundle([]geometry.TileDimensions{stock})
	shared := NewSharedBeam(ranking.Chain{ranking.MostTiles, ranking.LeastWastedArea}, func() int { return 10 })
	w := NewWorker(demand, Config{
		StockBundle:     bundle,
		CutThickness:    kerf,
		MinTrimDimension: minTrim,
		FirstCutPolicy:  PolicyBoth,
		ThreadRankChain: ranking.Chain{ranking.MostTiles, ranking.LeastWastedArea},
		FinalRankChain:  ranking.Chain{ranking.MostTiles, ranking.LeastWastedArea},
		Accuracy:        10,
		Shared:          shared,
		IsRunning:       func() bool { return true },
	})
	w.Run()
	best := shared.Best()
	require.NotEmpty(t, best)
	return best[0]
}

func TestScenarioAPerfectFitOneSheet(t *testing.T) {
	stock := geometry.TileDimensions{ID: 1, Width: 100, Height: 50}
	demand := []geometry.TileDimensions{{ID: 2, Width: 100, Height: 50}}

	s := runSingleWorker(t, stock, demand, 0, 0)

	require.Len(t, s.Mosaics, 1)
	m := s.Mosaics[0]
	assert.Equal(t, 0, len(m.Cuts))
	assert.Equal(t, 1.0, m.UsedAreaRatio())
	final := m.Root.FinalTileNodes()
	require.Len(t, final, 1)
	assert.Equal(t, 0, final[0].X1())
	assert.Equal(t, 0, final[0].Y1())
	assert.Empty(t, s.NoFitPanels)
}

func TestScenarioBOneHorizontalCut(t *testing.T) {
	stock := geometry.TileDimensions{ID: 1, Width: 100, Height: 50}
	demand := []geometry.TileDimensions{{ID: 2, Width: 60, Height: 50}}

	s := runSingleWorker(t, stock, demand, 0, 0)

	require.Len(t, s.Mosaics, 1)
	m := s.Mosaics[0]
	require.Len(t, m.Cuts, 1)
	cut := m.Cuts[0]
	assert.Equal(t, geometry.AxisVertical, cut.Axis)
	assert.Equal(t, 60, cut.X1)
	assert.Equal(t, 0, cut.Y1)
	assert.Equal(t, 60, cut.X2)
	assert.Equal(t, 50, cut.Y2)

	final := m.Root.FinalTileNodes()
	require.Len(t, final, 1)
	assert.Equal(t, 60, final[0].Width())
	assert.Equal(t, 50, final[0].Height())
	assert.InDelta(t, 0.6, m.UsedAreaRatio(), 1e-9)
}

func TestScenarioCTwoPiecesGuillotineSplit(t *testing.T) {
	stock := geometry.TileDimensions{ID: 1, Width: 100, Height: 100}
	demand := []geometry.TileDimensions{
		{ID: 2, Width: 60, Height: 50},
		{ID: 3, Width: 40, Height: 50},
	}

	s := runSingleWorker(t, stock, demand, 0, 0)

	require.Len(t, s.Mosaics, 1)
	m := s.Mosaics[0]
	final := m.Root.FinalTileNodes()
	require.Len(t, final, 2)
	// the two panels exactly fill a 100x50 strip; the remaining 100x50
	// strip is an unused leaf, not a third final tile.
	assert.Equal(t, int64(5000), m.UsedArea())
	assert.Equal(t, int64(5000), m.WastedArea())
	assert.Empty(t, s.NoFitPanels)
}

func TestScenarioDRotationNeeded(t *testing.T) {
	stock := geometry.TileDimensions{ID: 1, Width: 50, Height: 100}
	demand := []geometry.TileDimensions{{ID: 2, Width: 100, Height: 50}}

	s := runSingleWorker(t, stock, demand, 0, 0)

	require.Len(t, s.Mosaics, 1)
	m := s.Mosaics[0]
	assert.Empty(t, m.Cuts)
	final := m.Root.FinalTileNodes()
	require.Len(t, final, 1)
	assert.True(t, final[0].IsRotated())
	assert.Equal(t, 1.0, m.UsedAreaRatio())
}

func TestScenarioEKerfConsumed(t *testing.T) {
	stock := geometry.TileDimensions{ID: 1, Width: 100, Height: 10}
	demand := []geometry.TileDimensions{
		{ID: 2, Width: 45, Height: 10},
		{ID: 3, Width: 45, Height: 10},
	}

	s := runSingleWorker(t, stock, demand, 10, 0)

	require.Len(t, s.Mosaics, 1)
	m := s.Mosaics[0]
	final := m.Root.FinalTileNodes()
	require.Len(t, final, 2)

	xs := []int{final[0].X1(), final[1].X1()}
	assert.Contains(t, xs, 0)
	assert.Contains(t, xs, 55)

	require.Len(t, m.Cuts, 1)
	assert.Equal(t, geometry.AxisVertical, m.Cuts[0].Axis)
	assert.Equal(t, 45, m.Cuts[0].X1)

	assert.Equal(t, int64(900), m.UsedArea())
	assert.Less(t, m.UsedAreaRatio(), 1.0)
}

func TestScenarioFMinTrimDimensionBlocks(t *testing.T) {
	stock := geometry.TileDimensions{ID: 1, Width: 100, Height: 100}
	demand := []geometry.TileDimensions{{ID: 2, Width: 95, Height: 100}}

	influenced := false
	bundle := mosaic.NewStockBundle([]geometry.TileDimensions{stock})
	shared := NewSharedBeam(ranking.Chain{ranking.MostTiles}, func() int { return 10 })
	w := NewWorker(demand, Config{
		StockBundle:         bundle,
		CutThickness:        0,
		MinTrimDimension:    10,
		FirstCutPolicy:      PolicyBoth,
		ThreadRankChain:     ranking.Chain{ranking.MostTiles},
		FinalRankChain:      ranking.Chain{ranking.MostTiles},
		Accuracy:            10,
		Shared:              shared,
		IsRunning:           func() bool { return true },
		OnMinTrimInfluenced: func() { influenced = true },
	})
	w.Run()

	best := shared.Best()
	require.NotEmpty(t, best)
	s := best[0]
	assert.Len(t, s.NoFitPanels, 1)
	assert.True(t, influenced)
}

func TestTruncateBeamOffByOnePreserved(t *testing.T) {
	// len(beam) > k: result has k+1 elements, keeping [0,k) plus the last.
	beam := make([]*mosaic.Solution, 6)
	for i := range beam {
		beam[i] = &mosaic.Solution{}
	}
	out := truncateBeam(beam, 3)
	assert.Len(t, out, 4)
	assert.Same(t, beam[0], out[0])
	assert.Same(t, beam[2], out[2])
	assert.Same(t, beam[5], out[3])
}

func TestTruncateBeamNoOpWhenWithinBudget(t *testing.T) {
	beam := make([]*mosaic.Solution, 3)
	for i := range beam {
		beam[i] = &mosaic.Solution{}
	}
	out := truncateBeam(beam, 10)
	assert.Len(t, out, 3)
}

func TestGroupEligibilityWarmupAlwaysTrue(t *testing.T) {
	r := NewThreadGroupRankings()
	for i := 0; i < 9; i++ {
		r.RecordFinished("wood", "AREA", 0)
	}
	assert.True(t, r.Eligible("wood", "AREA_HCUTS_1ST"))
}

func TestGroupEligibilityPrunesUnderperformer(t *testing.T) {
	r := NewThreadGroupRankings()
	for i := 0; i < 10; i++ {
		r.RecordFinished("wood", "AREA", 5)
	}
	for i := 0; i < 10; i++ {
		r.RecordFinished("wood", "AREA_HCUTS_1ST", 0)
	}
	assert.True(t, r.Eligible("wood", "AREA"))
	assert.False(t, r.Eligible("wood", "AREA_HCUTS_1ST"))
}
