// Package ranking implements the nine named total orders on Solutions
// (§4.6) and composes them into the lexicographic comparator chains used
// both for per-thread beam pruning and for final task-wide selection.
//
// The original source expressed each order as its own inheritance-based
// Comparator subclass; per Design Notes §9 ("replace inheritance-based
// comparator classes by a tagged-variant rank key enum"), this package
// instead defines a RankKey enum and a single Compare function, so the
// priority list is just an ordered slice of RankKey values.
package ranking

import "github.com/piwi3910/cutoptimizer/internal/mosaic"

// RankKey names one of the nine total orders a Solution can be ranked by.
type RankKey int

const (
	MostTiles RankKey = iota
	LeastWastedArea
	LeastNbrCuts
	LeastNbrMosaics
	BiggestUnusedTileArea
	MostHVDiscrepancy
	SmallestCenterOfMassDistToOrigin
	LeastNbrUnusedTiles
	MostUnusedPanelArea
)

func (k RankKey) String() string {
	switch k {
	case MostTiles:
		return "MOST_TILES"
	case LeastWastedArea:
		return "LEAST_WASTED_AREA"
	case LeastNbrCuts:
		return "LEAST_NBR_CUTS"
	case LeastNbrMosaics:
		return "LEAST_NBR_MOSAICS"
	case BiggestUnusedTileArea:
		return "BIGGEST_UNUSED_TILE_AREA"
	case MostHVDiscrepancy:
		return "MOST_HV_DISCREPANCY"
	case SmallestCenterOfMassDistToOrigin:
		return "SMALLEST_CENTER_OF_MASS_DIST_TO_ORIGIN"
	case LeastNbrUnusedTiles:
		return "LEAST_NBR_UNUSED_TILES"
	case MostUnusedPanelArea:
		return "MOST_UNUSED_PANEL_AREA"
	default:
		return "UNKNOWN"
	}
}

// ParseRankKey maps a name to its RankKey, reporting false for an unknown
// name — PriorityListFactory uses this to skip unrecognized priority
// entries silently, per §4.6.
func ParseRankKey(name string) (RankKey, bool) {
	for k := MostTiles; k <= MostUnusedPanelArea; k++ {
		if k.String() == name {
			return k, true
		}
	}
	return 0, false
}

// compareOne returns -1, 0 or 1 comparing a and b under key k, oriented so
// that a negative result always means "a is better than b" regardless of
// whether the underlying order is ascending or descending.
func compareOne(k RankKey, a, b *mosaic.Solution) int {
	switch k {
	case MostTiles:
		return -cmpInt(a.NbrFinalTiles(), b.NbrFinalTiles())
	case LeastWastedArea:
		return cmpInt64(a.TotalWastedArea(), b.TotalWastedArea())
	case LeastNbrCuts:
		return cmpInt(a.NbrCuts(), b.NbrCuts())
	case LeastNbrMosaics:
		return cmpInt(a.NbrMosaics(), b.NbrMosaics())
	case BiggestUnusedTileArea:
		return -cmpInt64(a.BiggestUnusedTileArea(), b.BiggestUnusedTileArea())
	case MostHVDiscrepancy:
		return cmpInt(a.DistinctTileSetSize(), b.DistinctTileSetSize())
	case SmallestCenterOfMassDistToOrigin:
		return cmpFloat(a.AvgCenterOfMassDistance(), b.AvgCenterOfMassDistance())
	case LeastNbrUnusedTiles:
		return cmpInt(a.NbrUnusedTiles(), b.NbrUnusedTiles())
	case MostUnusedPanelArea:
		return -cmpInt64(a.MostUnusedPanelArea(), b.MostUnusedPanelArea())
	default:
		return 0
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Chain is an ordered priority list; Compare applies it lexicographically,
// the first non-zero key deciding, ties comparing to 0.
type Chain []RankKey

// Compare returns a value usable with sort.Slice-style less functions:
// negative when a should sort before b.
func (c Chain) Compare(a, b *mosaic.Solution) int {
	for _, k := range c {
		if r := compareOne(k, a, b); r != 0 {
			return r
		}
	}
	return 0
}

// Less adapts Compare to a boolean "a is better than b" predicate.
func (c Chain) Less(a, b *mosaic.Solution) bool { return c.Compare(a, b) < 0 }

// PriorityListFactory builds the priority Chain for a request's
// optimizationPriority, per §4.6. Priority 0 puts wasted-area ahead of cut
// count; any other value swaps them, on the theory that minimizing cuts
// matters more once panel count is tied.
func PriorityListFactory(optimizationPriority int) Chain {
	if optimizationPriority == 0 {
		return Chain{
			MostTiles, LeastWastedArea, LeastNbrCuts, LeastNbrMosaics,
			BiggestUnusedTileArea, MostHVDiscrepancy,
		}
	}
	return Chain{
		MostTiles, LeastNbrCuts, LeastWastedArea, LeastNbrMosaics,
		BiggestUnusedTileArea, MostHVDiscrepancy,
	}
}

// ChainFromNames builds a Chain from a list of rank key names, silently
// skipping any name that does not match a known RankKey (§4.6: "Unknown
// priority names are skipped silently").
func ChainFromNames(names []string) Chain {
	var c Chain
	for _, n := range names {
		if k, ok := ParseRankKey(n); ok {
			c = append(c, k)
		}
	}
	return c
}
