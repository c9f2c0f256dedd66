// Package request holds the external-facing calculation request shape
// (§6), its "is this panel usable" validation, and the decimal-to-integer
// scaling that lets the rest of the optimizer work in exact integer units.
package request

import (
	"math"
	"strconv"

	"github.com/piwi3910/cutoptimizer/internal/geometry"
)

// maxAllowedDigits bounds decimalPlaces+integerPlaces across every
// dimension in a request (cutThickness and minTrimDimension included); past
// this the scaling factor is clamped down rather than overflowing int
// arithmetic downstream (original's MAX_ALLOWED_DIGITS).
const maxAllowedDigits = 6

// EdgeInput is the wire shape of a panel's requested edge-banding tags.
type EdgeInput struct {
	Top    string
	Left   string
	Bottom string
	Right  string
}

func (e *EdgeInput) toGeometry() geometry.Edge {
	if e == nil {
		return geometry.Edge{}
	}
	return geometry.Edge{Top: e.Top, Left: e.Left, Bottom: e.Bottom, Right: e.Right}
}

// HasAny reports whether any side requests banding.
func (e *EdgeInput) HasAny() bool {
	if e == nil {
		return false
	}
	return e.toGeometry().HasAny()
}

// Panel is one demand or stock entry as received over the wire: width and
// height are still decimal strings, not yet scaled.
type Panel struct {
	ID          int
	Width       string
	Height      string
	Count       int
	Material    string
	Orientation geometry.Orientation
	Label       string
	Enabled     bool
	Edge        *EdgeInput
}

// IsValid reports whether p should be considered for placement: enabled,
// a positive count, and width/height that parse as positive decimals (§6).
func (p Panel) IsValid() bool {
	if !p.Enabled || p.Count <= 0 {
		return false
	}
	w, err := strconv.ParseFloat(p.Width, 64)
	if err != nil || w <= 0 {
		return false
	}
	h, err := strconv.ParseFloat(p.Height, 64)
	if err != nil || h <= 0 {
		return false
	}
	return true
}

// PerformanceThresholdsInput is the request-level override of the process's
// default performance thresholds (§6).
type PerformanceThresholdsInput struct {
	MaxSimultaneousThreads int
	ThreadCheckIntervalMS  int
	MaxSimultaneousTasks   int
}

// Configuration is the wire shape of the request's configuration block.
type Configuration struct {
	CutThickness             string
	MinTrimDimension         string
	UseSingleStockUnit       bool
	OptimizationFactor       float64
	OptimizationPriority     int
	CutOrientationPreference int
	ConsiderOrientation      bool
	Units                    int
	PerformanceThresholds    *PerformanceThresholdsInput
}

// ClientInfo identifies the caller submitting a request.
type ClientInfo struct {
	ID string
}

// CalculationRequest is the full external-facing request shape (§6).
type CalculationRequest struct {
	Panels        []Panel
	StockPanels   []Panel
	Configuration Configuration
	ClientInfo    ClientInfo
}

// ValidPanelCount sums Count across every valid, enabled panel in list.
func ValidPanelCount(list []Panel) int {
	total := 0
	for _, p := range list {
		if p.IsValid() {
			total += p.Count
		}
	}
	return total
}

func nbrDecimalPlaces(s string) int {
	i := indexOfDot(s)
	if s == "" || i == -1 {
		return 0
	}
	return len(s) - i - 1
}

func nbrIntegerPlaces(s string) int {
	if s == "" {
		return 0
	}
	if i := indexOfDot(s); i != -1 {
		return len(s) - nbrDecimalPlaces(s) - 1
	}
	return len(s)
}

func indexOfDot(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}

func maxDecimalPlaces(list []Panel) int {
	max := 0
	for _, p := range list {
		if !p.IsValid() {
			continue
		}
		if d := nbrDecimalPlaces(p.Width); d > max {
			max = d
		}
		if d := nbrDecimalPlaces(p.Height); d > max {
			max = d
		}
	}
	return max
}

func maxIntegerPlaces(list []Panel) int {
	max := 0
	for _, p := range list {
		if !p.IsValid() {
			continue
		}
		if d := nbrIntegerPlaces(p.Width); d > max {
			max = d
		}
		if d := nbrIntegerPlaces(p.Height); d > max {
			max = d
		}
	}
	return max
}

// ScaleFactor computes the integer scaling factor for req, following the
// original's digit-budget clamp: the combined decimal+integer place count
// across every panel, the stock panels, and the cutThickness/
// minTrimDimension configuration fields is capped at maxAllowedDigits,
// trimming decimal places first if it would overflow.
func ScaleFactor(req CalculationRequest) int {
	decimalPlaces := max3(
		maxDecimalPlaces(req.Panels),
		maxDecimalPlaces(req.StockPanels),
		max(nbrDecimalPlaces(req.Configuration.CutThickness), nbrDecimalPlaces(req.Configuration.MinTrimDimension)),
	)
	integerPlaces := max3(
		maxIntegerPlaces(req.Panels),
		maxIntegerPlaces(req.StockPanels),
		max(nbrIntegerPlaces(req.Configuration.CutThickness), nbrIntegerPlaces(req.Configuration.MinTrimDimension)),
	)
	if decimalPlaces+integerPlaces > maxAllowedDigits {
		decimalPlaces = max(maxAllowedDigits-integerPlaces, 0)
	}
	return int(math.Pow(10, float64(decimalPlaces)))
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func max3(a, b, c int) int { return max(a, max(b, c)) }

// ScaleDecimal rounds s*factor to the nearest integer, following the
// original's Math.round(parseDouble(s) * factor) idiom; s is assumed
// already validated by Panel.IsValid or equivalent.
func ScaleDecimal(s string, factor int) int {
	v, _ := strconv.ParseFloat(s, 64)
	return int(math.Round(v * float64(factor)))
}

// ExpandPanels turns every valid, enabled panel in list into `Count` copies
// of a scaled geometry.TileDimensions, following the original's per-count
// unrolling (one TileDimensions per physical unit, sharing the same id and
// size).
func ExpandPanels(list []Panel, factor int) []geometry.TileDimensions {
	var out []geometry.TileDimensions
	for _, p := range list {
		if !p.IsValid() {
			continue
		}
		td := geometry.TileDimensions{
			ID:          p.ID,
			Width:       ScaleDecimal(p.Width, factor),
			Height:      ScaleDecimal(p.Height, factor),
			Material:    p.Material,
			Orientation: p.Orientation,
			Label:       p.Label,
			Edge:        p.Edge.toGeometry(),
		}
		for i := 0; i < p.Count; i++ {
			out = append(out, td)
		}
	}
	return out
}

// PanelsByID indexes list by id, used by the response builder to look up a
// demand panel's edge-banding tags from a placed tile's externalId.
func PanelsByID(list []Panel) map[int]Panel {
	out := make(map[int]Panel, len(list))
	for _, p := range list {
		out[p.ID] = p
	}
	return out
}
