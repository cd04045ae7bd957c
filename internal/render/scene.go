// Package render owns the live scene: one selectable group node per widget
// with its content as a child, the bounding-box queries selection and
// snapping run against, and the painters that turn a snapshot into pixels
// or draw commands.
package render

import (
	"slices"
	"strings"

	"github.com/inamate/photoedit/internal/document"
	"github.com/inamate/photoedit/internal/geometry"
	"github.com/inamate/photoedit/internal/snapping"
	"github.com/inamate/photoedit/internal/transform"
)

// ContentSuffix is appended to a widget id to name its content node.
const ContentSuffix = "/content"

// Node is a live scene node. Group nodes carry the widget transform; content
// nodes hold the widget payload at the group's origin.
type Node struct {
	id         string
	selectable bool
	parent     *Node
	children   []*Node

	t      document.Transform
	width  float64
	height float64
	widget document.Widget
}

func (n *Node) ID() string       { return n.id }
func (n *Node) Selectable() bool { return n.selectable }

func (n *Node) Parent() transform.Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *Node) Transform() document.Transform { return n.t }

func (n *Node) SetScale(sx, sy float64) {
	n.t.ScaleX, n.t.ScaleY = sx, sy
}

// SetPosition moves the node. Used for live drags before they are committed.
func (n *Node) SetPosition(x, y float64) {
	n.t.X, n.t.Y = x, y
}

// SetTransform replaces the live transform, as a transformer handle does.
func (n *Node) SetTransform(t document.Transform) {
	n.t = t
}

// Widget is the widget this node was built from.
func (n *Node) Widget() document.Widget { return n.widget }

// Size is the unscaled content size.
func (n *Node) Size() (float64, float64) { return n.width, n.height }

// Children returns the node's children.
func (n *Node) Children() []*Node { return n.children }

// Measurer sizes text content.
type Measurer interface {
	MeasureText(w document.TextWidget) (width, height float64)
}

// Scene is the registry of live nodes keyed by id. It is rebuilt from store
// snapshots and mutated by in-flight gestures in between.
type Scene struct {
	measure Measurer

	groups []*Node
	byID   map[string]*Node
	guides []snapping.Guide

	stageW, stageH float64
}

func NewScene(m Measurer) *Scene {
	return &Scene{measure: m, byID: make(map[string]*Node)}
}

// Sync rebuilds the registry from the widget list, bottom-most first.
func (s *Scene) Sync(widgets []document.Widget, canvas document.Canvas) {
	s.stageW, s.stageH = canvas.StageW, canvas.StageH
	s.groups = s.groups[:0]
	clear(s.byID)

	for _, w := range widgets {
		group := &Node{id: w.WidgetID(), selectable: true, t: w.Transformation(), widget: w}
		content := &Node{id: w.WidgetID() + ContentSuffix, parent: group, t: document.IdentityAt(0, 0), widget: w}
		content.width, content.height = s.contentSize(w)
		group.width, group.height = content.width, content.height
		group.children = []*Node{content}

		s.groups = append(s.groups, group)
		s.byID[group.id] = group
		s.byID[content.id] = content
	}
}

func (s *Scene) contentSize(w document.Widget) (float64, float64) {
	switch v := w.(type) {
	case document.ImageWidget:
		return v.DrawW, v.DrawH
	case document.TextWidget:
		if s.measure == nil {
			return 0, 0
		}
		return s.measure.MeasureText(v)
	case document.StickerWidget:
		return 0, 0
	}
	return 0, 0
}

// Node returns the node with the given id.
func (s *Scene) Node(id string) (*Node, bool) {
	n, ok := s.byID[id]
	return n, ok
}

// StageSize is the size of the stage at the last Sync.
func (s *Scene) StageSize() (float64, float64) { return s.stageW, s.stageH }

// SelectableIDs lists widget ids in z-order.
func (s *Scene) SelectableIDs() []string {
	ids := make([]string, len(s.groups))
	for i, g := range s.groups {
		ids[i] = g.id
	}
	return ids
}

// ClientRect is the axis-aligned box of a widget's live transform.
func (s *Scene) ClientRect(id string) (geometry.Rect, bool) {
	n, ok := s.byID[id]
	if !ok || !n.selectable {
		return geometry.Rect{}, false
	}
	return geometry.ClientRect(n.t, n.width, n.height), true
}

// SelectableAncestor resolves a node id to its owning widget id.
func (s *Scene) SelectableAncestor(nodeID string) (string, bool) {
	n, ok := s.byID[nodeID]
	if !ok {
		if owner, _, found := strings.Cut(nodeID, ContentSuffix); found {
			n, ok = s.byID[owner]
		}
	}
	if !ok {
		return "", false
	}
	for cur := n; cur != nil; cur = cur.parent {
		if cur.selectable {
			return cur.id, true
		}
	}
	return "", false
}

// OtherRects returns the client rects of every widget except skip.
func (s *Scene) OtherRects(skip string) []geometry.Rect {
	rects := make([]geometry.Rect, 0, len(s.groups))
	for _, g := range s.groups {
		if g.id == skip {
			continue
		}
		rects = append(rects, geometry.ClientRect(g.t, g.width, g.height))
	}
	return rects
}

// HitTest returns the id of the top-most content node under (x, y), or "".
func (s *Scene) HitTest(x, y float64) string {
	for _, g := range slices.Backward(s.groups) {
		inv := geometry.FromTransform(g.t).Invert()
		lx, ly := inv.TransformPoint(x, y)
		for _, c := range slices.Backward(g.children) {
			if c.width <= 0 || c.height <= 0 {
				continue
			}
			if (geometry.Rect{Width: c.width, Height: c.height}).Contains(lx, ly) {
				return c.id
			}
		}
	}
	return ""
}

// SelectionBounds is the union of the client rects of ids.
func (s *Scene) SelectionBounds(ids []string) geometry.Rect {
	var out geometry.Rect
	for _, id := range ids {
		r, ok := s.ClientRect(id)
		if !ok {
			continue
		}
		out = out.Union(r)
	}
	return out
}

// SetGuides replaces the guide lines shown for the current drag tick.
func (s *Scene) SetGuides(g []snapping.Guide) {
	s.guides = slices.Clone(g)
}

// ClearGuides removes every guide line.
func (s *Scene) ClearGuides() {
	s.guides = nil
}

// Guides returns the guide lines currently shown.
func (s *Scene) Guides() []snapping.Guide {
	return slices.Clone(s.guides)
}
