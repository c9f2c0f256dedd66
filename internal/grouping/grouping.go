// Package grouping implements the first two steps of the per-material
// driver (§4.3): bucketing demand panels into GroupedTileDimensions, then
// expanding the distinct groups into a bounded set of permutations that
// seed the worker pool.
package grouping

import (
	"fmt"
	"sort"

	"github.com/piwi3910/cutoptimizer/internal/geometry"
)

// dimKey is the textual bucketing key: panels with the same (width,height)
// fall in the same bucket regardless of id or label.
func dimKey(t geometry.TileDimensions) string {
	return fmt.Sprintf("%dx%d", t.Width, t.Height)
}

// IsOneDimensional implements the one-dimensional predicate: true if there
// exists a dimension value V such that every demand panel and every stock
// sheet equals V on width or on height. A strip-cutting job (every panel
// and sheet sharing one fixed side) is one-dimensional.
func IsOneDimensional(demand, stock []geometry.TileDimensions) bool {
	if len(demand) == 0 {
		return false
	}
	candidates := map[int]struct{}{demand[0].Width: {}, demand[0].Height: {}}
	for v := range candidates {
		if sideMatchesEveryPanel(v, demand) && sideMatchesEveryPanel(v, stock) {
			return true
		}
	}
	return false
}

func sideMatchesEveryPanel(v int, panels []geometry.TileDimensions) bool {
	for _, p := range panels {
		if p.Width != v && p.Height != v {
			return false
		}
	}
	return true
}

// Group assigns a group index to every demand panel, in original order
// (§4.3 step 1). groupSplitThreshold = max(N/100, 1), forced to 1 when the
// job is one-dimensional. Within one size bucket, the group index
// increments whenever the running count for that size has exceeded the
// threshold and the bucket's total count exceeds the threshold too —
// meaning frequent sizes get split across at most two groups while rare
// sizes stay in group 0.
func Group(demand, stock []geometry.TileDimensions) []geometry.GroupedTileDimensions {
	threshold := len(demand) / 100
	if threshold < 1 {
		threshold = 1
	}
	if IsOneDimensional(demand, stock) {
		threshold = 1
	}

	totalBySize := make(map[string]int, len(demand))
	for _, t := range demand {
		totalBySize[dimKey(t)]++
	}

	runningBySize := make(map[string]int, len(demand))
	out := make([]geometry.GroupedTileDimensions, len(demand))
	for i, t := range demand {
		key := dimKey(t)
		runningBySize[key]++
		group := 0
		if runningBySize[key] > threshold && totalBySize[key] > threshold {
			group = 1
		}
		out[i] = geometry.GroupedTileDimensions{TileDimensions: t, Group: group}
	}
	return out
}

const maxFullPermutationSize = 7

// Permutations implements §4.3 step 2: take the distinct grouped
// dimensions, sort by area descending, keep the first 7 for full
// permutation, and append the rest in original order to every generated
// permutation. Each group permutation is then expanded back to a full
// panel list (every demand panel belonging to a given distinct group,
// stable-sorted by the group's position in the permutation), and the
// result is deduplicated by the sequence-hash of (width,height) pairs.
func Permutations(grouped []geometry.GroupedTileDimensions) [][]geometry.TileDimensions {
	distinct := distinctGroups(grouped)
	sort.SliceStable(distinct, func(i, j int) bool {
		return distinct[i].Area() > distinct[j].Area()
	})

	head := distinct
	var tail []geometry.GroupedTileDimensions
	if len(distinct) > maxFullPermutationSize {
		head = distinct[:maxFullPermutationSize]
		tail = distinct[maxFullPermutationSize:]
	}

	seen := make(map[string]struct{})
	var result [][]geometry.TileDimensions
	permuteHeads(head, func(order []geometry.GroupedTileDimensions) {
		full := append(append([]geometry.GroupedTileDimensions(nil), order...), tail...)
		expanded := expandGroupOrder(full, grouped)
		hash := sequenceHash(expanded)
		if _, ok := seen[hash]; ok {
			return
		}
		seen[hash] = struct{}{}
		result = append(result, expanded)
	})
	return result
}

// distinctGroups returns one representative GroupedTileDimensions per
// distinct (width, height, group) triple encountered in grouped.
func distinctGroups(grouped []geometry.GroupedTileDimensions) []geometry.GroupedTileDimensions {
	seen := make(map[string]struct{})
	var out []geometry.GroupedTileDimensions
	for _, g := range grouped {
		key := fmt.Sprintf("%dx%d:%d", g.Width, g.Height, g.Group)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, g)
	}
	return out
}

// permuteHeads calls emit once per permutation of items, in Heap's
// algorithm order. Capped implicitly at 7! = 5,040 calls by the caller
// never passing more than maxFullPermutationSize items.
func permuteHeads(items []geometry.GroupedTileDimensions, emit func([]geometry.GroupedTileDimensions)) {
	n := len(items)
	buf := append([]geometry.GroupedTileDimensions(nil), items...)
	if n == 0 {
		emit(buf)
		return
	}
	c := make([]int, n)
	emit(append([]geometry.GroupedTileDimensions(nil), buf...))
	i := 0
	for i < n {
		if c[i] < i {
			if i%2 == 0 {
				buf[0], buf[i] = buf[i], buf[0]
			} else {
				buf[c[i]], buf[i] = buf[i], buf[c[i]]
			}
			emit(append([]geometry.GroupedTileDimensions(nil), buf...))
			c[i]++
			i = 0
		} else {
			c[i] = 0
			i++
		}
	}
}

// expandGroupOrder expands one permutation of distinct groups back into a
// full panel list: every panel in grouped whose (width,height,group)
// matches a position in order is emitted in that position's rank, with
// within-group original order preserved (stable sort by index-in-group-
// perm).
func expandGroupOrder(order, grouped []geometry.GroupedTileDimensions) []geometry.TileDimensions {
	rank := make(map[string]int, len(order))
	for i, g := range order {
		rank[fmt.Sprintf("%dx%d:%d", g.Width, g.Height, g.Group)] = i
	}

	type ranked struct {
		rank int
		seq  int
		t    geometry.TileDimensions
	}
	items := make([]ranked, len(grouped))
	for i, g := range grouped {
		key := fmt.Sprintf("%dx%d:%d", g.Width, g.Height, g.Group)
		items[i] = ranked{rank: rank[key], seq: i, t: g.TileDimensions}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].rank < items[j].rank
	})

	out := make([]geometry.TileDimensions, len(items))
	for i, it := range items {
		out[i] = it.t
	}
	return out
}

func sequenceHash(seq []geometry.TileDimensions) string {
	var h string
	for _, t := range seq {
		h += fmt.Sprintf("%d,%d;", t.Width, t.Height)
	}
	return h
}
