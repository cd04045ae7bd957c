// Package transform commits drag and resize/rotate gestures to the store
// once they end. Intermediate moves stay on the live node.
package transform

import "github.com/inamate/photoedit/internal/document"

// Node is a live scene node owned by the renderer.
type Node interface {
	ID() string
	Selectable() bool
	Parent() Node
	Transform() document.Transform
	SetScale(sx, sy float64)
}

// Committer persists transform changes. *store.Store satisfies it.
type Committer interface {
	UpdateWidgetTransform(id string, p document.TransformPatch)
}

// GuideClearer drops any snapping guide lines left over from a drag.
type GuideClearer interface {
	ClearGuides()
}

// SelectableAncestor walks up from n to the nearest node flagged selectable.
// It returns n itself when no ancestor is.
func SelectableAncestor(n Node) Node {
	for cur := n; cur != nil; cur = cur.Parent() {
		if cur.Selectable() {
			return cur
		}
	}
	return n
}

type Controller struct {
	store  Committer
	guides GuideClearer
}

// NewController returns a controller committing to store. guides may be nil.
func NewController(store Committer, guides GuideClearer) *Controller {
	return &Controller{store: store, guides: guides}
}

// DragEnd commits the final position of the dragged widget.
func (c *Controller) DragEnd(n Node) {
	if c.guides != nil {
		c.guides.ClearGuides()
	}
	target := SelectableAncestor(n)
	t := target.Transform()
	c.store.UpdateWidgetTransform(target.ID(), document.Position(t.X, t.Y))
}

// TransformEnd reads the final scale, rotation and position, resets the live
// node to unit scale and commits the values read. The reset keeps successive
// gestures from multiplying scale factors.
func (c *Controller) TransformEnd(n Node) {
	target := SelectableAncestor(n)
	t := target.Transform()
	target.SetScale(1, 1)
	c.store.UpdateWidgetTransform(target.ID(), document.Full(t))
}
