// Package selection turns pointer gestures on the stage into widget
// selections: marquee rectangles, plain clicks and modifier toggles.
package selection

import (
	"slices"

	"github.com/inamate/photoedit/internal/geometry"
)

// OutsideContainerID is the element id of the page area around the stage.
// Clicks landing directly on it clear the selection.
const OutsideContainerID = "canvas-container-page"

// Scene answers the bounding-box and ancestry queries selection needs from
// the renderer.
type Scene interface {
	// SelectableIDs lists selectable widget ids in z-order.
	SelectableIDs() []string
	// ClientRect is the on-screen axis-aligned box of a widget, rotation and
	// scale included.
	ClientRect(id string) (geometry.Rect, bool)
	// SelectableAncestor resolves any node id to the widget that owns it.
	SelectableAncestor(nodeID string) (string, bool)
}

// Target receives selection changes. *store.Store satisfies it.
type Target interface {
	SelectedWidgetIDs() []string
	SetSelectedWidgetIDs(ids []string)
}

// Modifiers are the keys held during a click.
type Modifiers struct {
	Shift, Ctrl, Meta, Alt bool
}

// Any reports whether a toggling modifier is held.
func (m Modifiers) Any() bool {
	return m.Shift || m.Ctrl || m.Meta || m.Alt
}

// Rect is the marquee as drawn: the pointer-down corner and the current one.
type Rect struct {
	Visible bool    `json:"visible"`
	X1      float64 `json:"x1"`
	Y1      float64 `json:"y1"`
	X2      float64 `json:"x2"`
	Y2      float64 `json:"y2"`
}

// Bounds normalizes the marquee corners.
func (r Rect) Bounds() geometry.Rect {
	return geometry.RectFromCorners(geometry.Point{X: r.X1, Y: r.Y1}, geometry.Point{X: r.X2, Y: r.Y2})
}

// Scheduler defers fn until after the current event has been dispatched.
type Scheduler func(fn func())

// Manager tracks one stage's marquee and click selection. It is driven from
// a single event loop and is not safe for concurrent use.
type Manager struct {
	scene    Scene
	target   Target
	schedule Scheduler

	selecting bool
	rect      Rect
	pending   []func()
}

type Option func(*Manager)

// WithScheduler replaces the default deferred queue, which is drained by
// Flush.
func WithScheduler(s Scheduler) Option {
	return func(m *Manager) { m.schedule = s }
}

func NewManager(scene Scene, target Target, opts ...Option) *Manager {
	m := &Manager{scene: scene, target: target}
	m.schedule = func(fn func()) { m.pending = append(m.pending, fn) }
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Rect returns the current marquee.
func (m *Manager) Rect() Rect { return m.rect }

// Selecting reports whether a marquee drag is in progress.
func (m *Manager) Selecting() bool { return m.selecting }

// PointerDown starts a marquee when the press landed on empty stage.
func (m *Manager) PointerDown(p geometry.Point, onEmptyStage bool) {
	if !onEmptyStage {
		return
	}
	m.selecting = true
	m.rect = Rect{Visible: true, X1: p.X, Y1: p.Y, X2: p.X, Y2: p.Y}
}

// PointerMove extends the marquee to p.
func (m *Manager) PointerMove(p geometry.Point) {
	if !m.selecting {
		return
	}
	m.rect.X2 = p.X
	m.rect.Y2 = p.Y
}

// PointerUp ends the marquee and replaces the selection with every widget
// whose client rect intersects it. The marquee stays visible until the
// deferred hide runs, so the click that follows the release is ignored.
func (m *Manager) PointerUp() {
	if !m.selecting {
		return
	}
	m.selecting = false
	m.schedule(func() { m.rect.Visible = false })

	box := m.rect.Bounds()
	selected := []string{}
	for _, id := range m.scene.SelectableIDs() {
		r, ok := m.scene.ClientRect(id)
		if !ok {
			continue
		}
		if box.Intersects(r) {
			selected = append(selected, id)
		}
	}
	m.target.SetSelectedWidgetIDs(selected)
}

// Flush runs deferred work queued by the default scheduler.
func (m *Manager) Flush() {
	for len(m.pending) > 0 {
		fns := m.pending
		m.pending = nil
		for _, fn := range fns {
			fn()
		}
	}
}

// Click handles a click on nodeID. An empty nodeID means the stage itself.
func (m *Manager) Click(nodeID string, mods Modifiers) {
	if m.rect.Visible {
		return
	}
	if nodeID == "" {
		m.target.SetSelectedWidgetIDs(nil)
		return
	}

	id, ok := m.scene.SelectableAncestor(nodeID)
	if !ok {
		return
	}

	current := m.target.SelectedWidgetIDs()
	switch {
	case !mods.Any():
		m.target.SetSelectedWidgetIDs([]string{id})
	case slices.Contains(current, id):
		m.target.SetSelectedWidgetIDs(slices.DeleteFunc(current, func(s string) bool { return s == id }))
	default:
		m.target.SetSelectedWidgetIDs(append(current, id))
	}
}

// OutsideClick clears the selection when a page click lands on the
// container around the stage rather than inside it.
func (m *Manager) OutsideClick(elementID string, insideStage bool) {
	if insideStage || elementID != OutsideContainerID {
		return
	}
	m.target.SetSelectedWidgetIDs(nil)
}
