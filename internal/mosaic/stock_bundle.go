package mosaic

import (
	"sort"

	"github.com/piwi3910/cutoptimizer/internal/geometry"
)

// StockBundle is one candidate multiset of stock sheets proposed as the
// containers for a whole Solution.
type StockBundle struct {
	Stock     []geometry.TileDimensions
	TotalArea int64
}

// NewStockBundle computes TotalArea from stock.
func NewStockBundle(stock []geometry.TileDimensions) *StockBundle {
	b := &StockBundle{Stock: append([]geometry.TileDimensions(nil), stock...)}
	for _, t := range b.Stock {
		b.TotalArea += t.Area()
	}
	return b
}

// dimKey is the sortable (width,height) pair used for multiset comparison.
type dimKey struct{ w, h int }

func dims(stock []geometry.TileDimensions) []dimKey {
	out := make([]dimKey, len(stock))
	for i, t := range stock {
		out[i] = dimKey{t.Width, t.Height}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].w != out[j].w {
			return out[i].w < out[j].w
		}
		return out[i].h < out[j].h
	})
	return out
}

// Equal reports whether two bundles hold the same multiset of (width,
// height) pairs, regardless of order or stock id — per Design Notes §9
// item 3, resolving the decompilation hazard in the original's bundle
// equality by defining it plainly rather than porting the broken loop.
func (b *StockBundle) Equal(other *StockBundle) bool {
	if len(b.Stock) != len(other.Stock) {
		return false
	}
	a, c := dims(b.Stock), dims(other.Stock)
	for i := range a {
		if a[i] != c[i] {
			return false
		}
	}
	return true
}
