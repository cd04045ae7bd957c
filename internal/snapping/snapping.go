// Package snapping aligns a dragged widget to the stage and its siblings.
//
// Every drag tick collects guide stops (stage edges and centers, plus the
// edges and centers of the other widgets), pairs them with the dragged
// widget's own edges on the same axis and keeps the closest pair per axis
// that lies within the tolerance.
package snapping

import (
	"math"

	"github.com/inamate/photoedit/internal/geometry"
)

// GuidelineOffset is the default snap tolerance in stage units.
const GuidelineOffset = 5

// GuideSpan is how far a guide line extends either way from the origin.
const GuideSpan = 6000

// Orientation of a guide line. Vertical guides constrain x.
type Orientation string

const (
	Vertical   Orientation = "V"
	Horizontal Orientation = "H"
)

// Anchor names which edge of the dragged box matched.
type Anchor string

const (
	Start  Anchor = "start"
	Center Anchor = "center"
	End    Anchor = "end"
)

// Stops are candidate guide positions per axis.
type Stops struct {
	Vertical   []float64
	Horizontal []float64
}

// Edge is one edge of the dragged widget with the distance from the widget's
// anchor position to that edge.
type Edge struct {
	Guide  float64
	Offset float64
	Anchor Anchor
}

// Edges are the dragged widget's snappable edges per axis.
type Edges struct {
	Vertical   []Edge
	Horizontal []Edge
}

// Guide is a matched alignment.
type Guide struct {
	Line        float64     `json:"lineGuide"`
	Offset      float64     `json:"offset"`
	Orientation Orientation `json:"orientation"`
	Anchor      Anchor      `json:"snap"`
}

// Line is a full-span segment to draw for a guide.
type Line struct {
	Orientation Orientation `json:"orientation"`
	Points      [4]float64  `json:"points"`
}

// Segment returns the drawable line for g.
func (g Guide) Segment() Line {
	if g.Orientation == Horizontal {
		return Line{Orientation: Horizontal, Points: [4]float64{-GuideSpan, g.Line, GuideSpan, g.Line}}
	}
	return Line{Orientation: Vertical, Points: [4]float64{g.Line, -GuideSpan, g.Line, GuideSpan}}
}

// LineGuideStops returns the stage borders and center, followed by the
// left, right and center (and top, bottom, middle) of every other box.
func LineGuideStops(stageW, stageH float64, others []geometry.Rect) Stops {
	s := Stops{
		Vertical:   []float64{0, stageW / 2, stageW},
		Horizontal: []float64{0, stageH / 2, stageH},
	}
	for _, box := range others {
		cx, cy := box.Center()
		s.Vertical = append(s.Vertical, box.X, box.Right(), cx)
		s.Horizontal = append(s.Horizontal, box.Y, box.Bottom(), cy)
	}
	return s
}

// ObjectEdges returns the start, center and end edges of box, with offsets
// relative to the widget's absolute position (absX, absY).
func ObjectEdges(box geometry.Rect, absX, absY float64) Edges {
	cx, cy := box.Center()
	return Edges{
		Vertical: []Edge{
			{Guide: box.X, Offset: absX - box.X, Anchor: Start},
			{Guide: cx, Offset: absX - cx, Anchor: Center},
			{Guide: box.Right(), Offset: absX - box.Right(), Anchor: End},
		},
		Horizontal: []Edge{
			{Guide: box.Y, Offset: absY - box.Y, Anchor: Start},
			{Guide: cy, Offset: absY - cy, Anchor: Center},
			{Guide: box.Bottom(), Offset: absY - box.Bottom(), Anchor: End},
		},
	}
}

// FindGuides keeps, per axis, the stop/edge pair with the smallest distance
// strictly below tolerance. On equal distances the first pair found wins.
func FindGuides(stops Stops, edges Edges, tolerance float64) []Guide {
	var guides []Guide
	if g, ok := best(stops.Vertical, edges.Vertical, tolerance, Vertical); ok {
		guides = append(guides, g)
	}
	if g, ok := best(stops.Horizontal, edges.Horizontal, tolerance, Horizontal); ok {
		guides = append(guides, g)
	}
	return guides
}

func best(stops []float64, edges []Edge, tolerance float64, o Orientation) (Guide, bool) {
	var (
		found bool
		g     Guide
		diff  float64
	)
	for _, stop := range stops {
		for _, e := range edges {
			d := math.Abs(stop - e.Guide)
			if d >= tolerance {
				continue
			}
			if !found || d < diff {
				found = true
				diff = d
				g = Guide{Line: stop, Offset: e.Offset, Orientation: o, Anchor: e.Anchor}
			}
		}
	}
	return g, found
}

// Apply moves (x, y) so that each guide's edge lands on its line. Axes
// without a guide keep their value.
func Apply(x, y float64, guides []Guide) (float64, float64) {
	for _, g := range guides {
		switch g.Orientation {
		case Vertical:
			x = g.Line + g.Offset
		case Horizontal:
			y = g.Line + g.Offset
		}
	}
	return x, y
}

// Input is one drag tick.
type Input struct {
	StageW, StageH float64
	// Dragged is the dragged widget's client rect at its raw position.
	Dragged geometry.Rect
	// X, Y is the dragged widget's raw absolute position.
	X, Y float64
	// Others are the client rects of every other selectable widget.
	Others    []geometry.Rect
	Tolerance float64
}

// Result is the snapped position and the guides to draw.
type Result struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Guides []Guide `json:"guides"`
}

// Snap runs one tick. A non-positive tolerance uses GuidelineOffset.
func Snap(in Input) Result {
	tol := in.Tolerance
	if tol <= 0 {
		tol = GuidelineOffset
	}
	guides := FindGuides(
		LineGuideStops(in.StageW, in.StageH, in.Others),
		ObjectEdges(in.Dragged, in.X, in.Y),
		tol,
	)
	x, y := Apply(in.X, in.Y, guides)
	return Result{X: x, Y: y, Guides: guides}
}
