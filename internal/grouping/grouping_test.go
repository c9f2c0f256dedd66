package grouping

import (
	"testing"

	"github.com/piwi3910/cutoptimizer/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsOneDimensionalDetectsSharedSide(t *testing.T) {
	demand := []geometry.TileDimensions{{Width: 100, Height: 10}, {Width: 100, Height: 20}}
	stock := []geometry.TileDimensions{{Width: 100, Height: 200}}
	assert.True(t, IsOneDimensional(demand, stock))
}

func TestIsOneDimensionalFalseForGeneralCase(t *testing.T) {
	demand := []geometry.TileDimensions{{Width: 60, Height: 50}, {Width: 40, Height: 30}}
	stock := []geometry.TileDimensions{{Width: 100, Height: 100}}
	assert.False(t, IsOneDimensional(demand, stock))
}

func TestGroupSplitsFrequentSizeAcrossTwoGroups(t *testing.T) {
	demand := make([]geometry.TileDimensions, 150)
	for i := range demand {
		demand[i] = geometry.TileDimensions{Width: 10, Height: 10}
	}
	stock := []geometry.TileDimensions{{Width: 1000, Height: 1000}}

	grouped := Group(demand, stock)
	require.Len(t, grouped, 150)
	assert.Equal(t, 0, grouped[0].Group)
	assert.Equal(t, 1, grouped[149].Group)
}

func TestGroupKeepsRareSizesInGroupZero(t *testing.T) {
	demand := []geometry.TileDimensions{
		{Width: 60, Height: 50}, {Width: 40, Height: 30}, {Width: 20, Height: 20},
	}
	stock := []geometry.TileDimensions{{Width: 1000, Height: 1000}}

	grouped := Group(demand, stock)
	for _, g := range grouped {
		assert.Equal(t, 0, g.Group)
	}
}

func TestPermutationsIncludeOrderLedByLargestPanel(t *testing.T) {
	demand := []geometry.TileDimensions{
		{Width: 10, Height: 10}, {Width: 90, Height: 90}, {Width: 50, Height: 50},
	}
	stock := []geometry.TileDimensions{{Width: 1000, Height: 1000}}
	grouped := Group(demand, stock)

	perms := Permutations(grouped)
	require.NotEmpty(t, perms)
	for _, p := range perms {
		require.Len(t, p, 3)
	}

	found90First := false
	for _, p := range perms {
		if p[0].Width == 90 {
			found90First = true
		}
	}
	assert.True(t, found90First)
}

func TestPermutationsDeduplicatesBySequenceHash(t *testing.T) {
	demand := []geometry.TileDimensions{{Width: 50, Height: 50}, {Width: 50, Height: 50}}
	stock := []geometry.TileDimensions{{Width: 1000, Height: 1000}}
	grouped := Group(demand, stock)

	perms := Permutations(grouped)
	assert.Len(t, perms, 1)
}

func TestPermutationsBoundedBySevenFactorial(t *testing.T) {
	demand := make([]geometry.TileDimensions, 9)
	for i := range demand {
		demand[i] = geometry.TileDimensions{Width: i + 1, Height: i + 1}
	}
	stock := []geometry.TileDimensions{{Width: 1000, Height: 1000}}
	grouped := Group(demand, stock)

	perms := Permutations(grouped)
	assert.LessOrEqual(t, len(perms), 5040)
}
