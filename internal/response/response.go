// Package response assembles the external-facing CalculationResponse (§6)
// from a task's per-material solution beams: it flattens every mosaic's
// guillotine tree into tiles and cuts, aggregates final and no-fit panel
// counts by demand id, and sums edge-banding lengths, all unscaled back to
// the caller's original decimal units using the task's scale factor.
package response

import (
	"fmt"
	"hash/fnv"
	"sort"
	"time"

	"github.com/piwi3910/cutoptimizer/internal/geometry"
	"github.com/piwi3910/cutoptimizer/internal/mosaic"
	"github.com/piwi3910/cutoptimizer/internal/request"
)

// Version is the wire version of every CalculationResponse this service
// emits (§6: "version '1.2'").
const Version = "1.2"

// Edge is the unscaled edge-banding tag set carried by one tile.
type Edge struct {
	Top    string `json:"top,omitempty"`
	Left   string `json:"left,omitempty"`
	Bottom string `json:"bottom,omitempty"`
	Right  string `json:"right,omitempty"`
}

// Tile is one node of a mosaic's guillotine tree, pre-order flattened, in
// unscaled units.
type Tile struct {
	ID            int64   `json:"id"`
	RequestObjID  *int    `json:"requestObjId,omitempty"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	Width         float64 `json:"width"`
	Height        float64 `json:"height"`
	Label         string  `json:"label,omitempty"`
	Orientation   int     `json:"orientation"`
	IsFinal       bool    `json:"isFinal"`
	HasChildren   bool    `json:"hasChildren"`
	IsRotated     bool    `json:"isRotated"`
	Edge          Edge    `json:"edge"`
}

// Cut is one guillotine split, in unscaled units.
type Cut struct {
	X1             float64 `json:"x1"`
	Y1             float64 `json:"y1"`
	X2             float64 `json:"x2"`
	Y2             float64 `json:"y2"`
	CutCoord       float64 `json:"cutCoord"`
	IsHorizontal   bool    `json:"isHorizontal"`
	OriginalTileID int64   `json:"originalTileId"`
	Child1TileID   int64   `json:"child1TileId"`
	Child2TileID   int64   `json:"child2TileId"`
	OriginalWidth  float64 `json:"originalWidth"`
	OriginalHeight float64 `json:"originalHeight"`
}

// FinalTile aggregates how many instances of one demand (or stock) id were
// placed, in unscaled units.
type FinalTile struct {
	RequestObjID int     `json:"requestObjId"`
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
	Label        string  `json:"label,omitempty"`
	Count        int     `json:"count"`
}

// NoFitTile aggregates demand panels that could not be placed anywhere, in
// unscaled units.
type NoFitTile struct {
	ID       int     `json:"id"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Label    string  `json:"label,omitempty"`
	Material string  `json:"material,omitempty"`
	Count    int     `json:"count"`
}

// Mosaic is one rendered stock sheet, in unscaled units.
type Mosaic struct {
	RequestStockID *int               `json:"requestStockId,omitempty"`
	StockLabel     string             `json:"stockLabel,omitempty"`
	Material       string             `json:"material,omitempty"`
	UsedArea       float64            `json:"usedArea"`
	WastedArea     float64            `json:"wastedArea"`
	UsedAreaRatio  float64            `json:"usedAreaRatio"`
	NbrFinalPanels int                `json:"nbrFinalPanels"`
	NbrWastedPanels int               `json:"nbrWastedPanels"`
	CutLength      float64            `json:"cutLength"`
	Panels         []FinalTile        `json:"panels"`
	Tiles          []Tile             `json:"tiles"`
	Cuts           []Cut              `json:"cuts"`
	EdgeBands      map[string]float64 `json:"edgeBands,omitempty"`
}

// CalculationResponse is the full external-facing response shape (§6).
type CalculationResponse struct {
	Version             string             `json:"version"`
	ID                  string             `json:"id"`
	TaskID              string             `json:"taskId"`
	ElapsedTime         int64              `json:"elapsedTime"`
	SolutionElapsedTime *int64             `json:"solutionElapsedTime,omitempty"`
	TotalUsedArea       float64            `json:"totalUsedArea"`
	TotalWastedArea     float64            `json:"totalWastedArea"`
	TotalUsedAreaRatio  float64            `json:"totalUsedAreaRatio"`
	TotalNbrCuts        int64              `json:"totalNbrCuts"`
	TotalCutLength      float64            `json:"totalCutLength"`
	Panels              []FinalTile        `json:"panels"`
	UsedStockPanels     []FinalTile        `json:"usedStockPanels"`
	NoFitPanels         []NoFitTile        `json:"noFitPanels"`
	Mosaics             []Mosaic           `json:"mosaics"`
	EdgeBands           map[string]float64 `json:"edgeBands,omitempty"`
}

func unscale(v int64, factor int) float64 {
	if factor == 0 {
		return 0
	}
	return float64(v) / float64(factor)
}

func unscaleInt(v int, factor int) float64 { return unscale(int64(v), factor) }

// Build assembles a CalculationResponse for a task from its per-material
// best solutions. demandByID and stockByID index the original wire panels
// by id, used to recover labels and edge-banding tags that the scaled
// geometry.TileDimensions flowing through placement does not carry.
func Build(taskID string, factor int, startTime time.Time, solutions map[string]*mosaic.Solution, demandByID, stockByID map[int]request.Panel) *CalculationResponse {
	resp := &CalculationResponse{
		Version:   Version,
		TaskID:    taskID,
		EdgeBands: make(map[string]float64),
	}
	resp.ElapsedTime = time.Since(startTime).Milliseconds()

	materials := make([]string, 0, len(solutions))
	for m := range solutions {
		materials = append(materials, m)
	}
	sort.Strings(materials)

	hasher := fnv.New64a()
	panelTotals := make(map[int]*FinalTile)
	stockTotals := make(map[int]*FinalTile)
	noFitTotals := make(map[noFitKey]*NoFitTile)

	var latestSolution time.Time
	for _, material := range materials {
		s := solutions[material]
		if s == nil {
			continue
		}
		fmt.Fprintf(hasher, "%s:%d;", material, s.ID)
		if s.CreatedAt.After(latestSolution) {
			latestSolution = s.CreatedAt
		}

		for _, m := range s.Mosaics {
			resp.Mosaics = append(resp.Mosaics, buildMosaic(m, factor, demandByID, stockByID, panelTotals, stockTotals))
		}
		for _, nf := range s.NoFitPanels {
			addNoFit(noFitTotals, nf, factor, demandByID)
		}
	}
	resp.ID = fmt.Sprintf("%x", hasher.Sum64())
	if !latestSolution.IsZero() {
		elapsed := latestSolution.Sub(startTime).Milliseconds()
		resp.SolutionElapsedTime = &elapsed
	}

	resp.Panels = flattenFinalTiles(panelTotals)
	resp.UsedStockPanels = flattenFinalTiles(stockTotals)
	resp.NoFitPanels = flattenNoFit(noFitTotals)

	var totalUsed, totalWasted int64
	var totalCuts int64
	for _, m := range resp.Mosaics {
		totalCuts += int64(len(m.Cuts))
	}
	for _, material := range materials {
		s := solutions[material]
		if s == nil {
			continue
		}
		totalUsed += s.TotalUsedArea()
		totalWasted += s.TotalWastedArea()
		for _, m := range s.Mosaics {
			for tag, length := range mosaicEdgeBands(m, demandByID, factor) {
				resp.EdgeBands[tag] += length
			}
		}
	}
	resp.TotalUsedArea = unscale(totalUsed, factor*factor)
	resp.TotalWastedArea = unscale(totalWasted, factor*factor)
	if totalUsed+totalWasted > 0 {
		resp.TotalUsedAreaRatio = float64(totalUsed) / float64(totalUsed+totalWasted)
	}
	resp.TotalNbrCuts = totalCuts
	for _, m := range resp.Mosaics {
		resp.TotalCutLength += m.CutLength
	}
	return resp
}

func buildMosaic(m *mosaic.Mosaic, factor int, demandByID, stockByID map[int]request.Panel, panelTotals, stockTotals map[int]*FinalTile) Mosaic {
	out := Mosaic{
		Material:        materialOrEmpty(m.Material),
		UsedArea:        unscale(m.UsedArea(), factor*factor),
		WastedArea:      unscale(m.WastedArea(), factor*factor),
		UsedAreaRatio:   m.UsedAreaRatio(),
		NbrFinalPanels:  m.NbrFinalPanels(),
		NbrWastedPanels: m.NbrWastedPanels(),
		CutLength:       unscaleInt(m.CutLength(), factor),
		EdgeBands:       mosaicEdgeBands(m, demandByID, factor),
	}
	if stock, ok := stockByID[m.StockID]; ok {
		out.StockLabel = stock.Label
		id := m.StockID
		out.RequestStockID = &id
	}

	var tiles []Tile
	flattenTree(m.Root, factor, demandByID, &tiles)
	out.Tiles = tiles

	localPanels := make(map[int]*FinalTile)
	for _, leaf := range m.Root.FinalTileNodes() {
		ext := leaf.ExternalID()
		if ext == geometry.NoExternalID {
			continue
		}
		addFinal(localPanels, ext, leaf, factor, demandByID)
		addFinal(panelTotals, ext, leaf, factor, demandByID)
	}
	out.Panels = flattenFinalTiles(localPanels)
	addStockUsed(stockTotals, m, factor, stockByID)

	for _, c := range m.Cuts {
		out.Cuts = append(out.Cuts, Cut{
			X1:             unscaleInt(c.X1, factor),
			Y1:             unscaleInt(c.Y1, factor),
			X2:             unscaleInt(c.X2, factor),
			Y2:             unscaleInt(c.Y2, factor),
			CutCoord:       cutCoord(c, factor),
			IsHorizontal:   c.Axis == geometry.AxisHorizontal,
			OriginalTileID: c.OriginalTileID,
			Child1TileID:   c.Child1ID,
			Child2TileID:   c.Child2ID,
			OriginalWidth:  unscaleInt(c.OriginalWidth, factor),
			OriginalHeight: unscaleInt(c.OriginalHeight, factor),
		})
	}
	return out
}

func cutCoord(c geometry.Cut, factor int) float64 {
	if c.Axis == geometry.AxisVertical {
		return unscaleInt(c.X1, factor)
	}
	return unscaleInt(c.Y1, factor)
}

func materialOrEmpty(m string) string {
	if m == geometry.DefaultMaterial {
		return ""
	}
	return m
}

func flattenTree(n *geometry.TileNode, factor int, demandByID map[int]request.Panel, out *[]Tile) {
	t := Tile{
		ID:          n.ID(),
		X:           unscaleInt(n.X1(), factor),
		Y:           unscaleInt(n.Y1(), factor),
		Width:       unscaleInt(n.Width(), factor),
		Height:      unscaleInt(n.Height(), factor),
		IsFinal:     n.IsFinal(),
		HasChildren: n.HasChildren(),
		IsRotated:   n.IsRotated(),
	}
	if n.ExternalID() != geometry.NoExternalID {
		id := n.ExternalID()
		t.RequestObjID = &id
		if p, ok := demandByID[id]; ok {
			t.Label = p.Label
			t.Orientation = int(p.Orientation)
			t.Edge = Edge{Top: edgeTag(p, "top"), Left: edgeTag(p, "left"), Bottom: edgeTag(p, "bottom"), Right: edgeTag(p, "right")}
		}
	}
	*out = append(*out, t)
	if n.Child1() != nil {
		flattenTree(n.Child1(), factor, demandByID, out)
	}
	if n.Child2() != nil {
		flattenTree(n.Child2(), factor, demandByID, out)
	}
}

func edgeTag(p request.Panel, side string) string {
	if p.Edge == nil {
		return ""
	}
	switch side {
	case "top":
		return p.Edge.Top
	case "left":
		return p.Edge.Left
	case "bottom":
		return p.Edge.Bottom
	case "right":
		return p.Edge.Right
	}
	return ""
}

func addFinal(totals map[int]*FinalTile, id int, leaf *geometry.TileNode, factor int, demandByID map[int]request.Panel) {
	ft, ok := totals[id]
	if !ok {
		ft = &FinalTile{RequestObjID: id, Width: unscaleInt(leaf.Width(), factor), Height: unscaleInt(leaf.Height(), factor)}
		if p, ok := demandByID[id]; ok {
			ft.Label = p.Label
		}
		totals[id] = ft
	}
	ft.Count++
}

// addStockUsed aggregates one mosaic's stock sheet into totals, keyed by
// the mosaic's own StockID and using the stock sheet's own dimensions
// (m.Root's full width/height, not any placed panel's), one entry per
// mosaic regardless of how many final panels it holds.
func addStockUsed(totals map[int]*FinalTile, m *mosaic.Mosaic, factor int, stockByID map[int]request.Panel) {
	ft, ok := totals[m.StockID]
	if !ok {
		ft = &FinalTile{RequestObjID: m.StockID, Width: unscaleInt(m.Root.Width(), factor), Height: unscaleInt(m.Root.Height(), factor)}
		if p, ok := stockByID[m.StockID]; ok {
			ft.Label = p.Label
		}
		totals[m.StockID] = ft
	}
	ft.Count++
}

func flattenFinalTiles(totals map[int]*FinalTile) []FinalTile {
	ids := make([]int, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]FinalTile, 0, len(ids))
	for _, id := range ids {
		out = append(out, *totals[id])
	}
	return out
}

type noFitKey struct {
	id            int
	width, height int
}

func addNoFit(totals map[noFitKey]*NoFitTile, nf geometry.TileDimensions, factor int, demandByID map[int]request.Panel) {
	k := noFitKey{id: nf.ID, width: nf.Width, height: nf.Height}
	t, ok := totals[k]
	if !ok {
		t = &NoFitTile{
			ID:       nf.ID,
			Width:    unscaleInt(nf.Width, factor),
			Height:   unscaleInt(nf.Height, factor),
			Material: materialOrEmpty(nf.EffectiveMaterial()),
		}
		if p, ok := demandByID[nf.ID]; ok {
			t.Label = p.Label
		}
		totals[k] = t
	}
	t.Count++
}

func flattenNoFit(totals map[noFitKey]*NoFitTile) []NoFitTile {
	out := make([]NoFitTile, 0, len(totals))
	for _, t := range totals {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// mosaicEdgeBands sums edge-banding lengths for every final leaf in m whose
// externalId names a demand panel with a non-empty Edge, following the
// original's length-by-rotation rule: top/bottom run along the leaf's
// height when the panel was rotated, its width otherwise; left/right are
// the complement.
func mosaicEdgeBands(m *mosaic.Mosaic, demandByID map[int]request.Panel, factor int) map[string]float64 {
	bands := make(map[string]float64)
	for _, leaf := range m.Root.FinalTileNodes() {
		p, ok := demandByID[leaf.ExternalID()]
		if !ok || !p.Edge.HasAny() {
			continue
		}
		var topBottomLen, leftRightLen float64
		if leaf.IsRotated() {
			topBottomLen = unscaleInt(leaf.Height(), factor)
			leftRightLen = unscaleInt(leaf.Width(), factor)
		} else {
			topBottomLen = unscaleInt(leaf.Width(), factor)
			leftRightLen = unscaleInt(leaf.Height(), factor)
		}
		addBand(bands, p.Edge.Top, topBottomLen)
		addBand(bands, p.Edge.Bottom, topBottomLen)
		addBand(bands, p.Edge.Left, leftRightLen)
		addBand(bands, p.Edge.Right, leftRightLen)
	}
	return bands
}

func addBand(bands map[string]float64, tag string, length float64) {
	if tag == "" {
		return
	}
	bands[tag] += length
}
