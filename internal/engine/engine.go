package engine

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/inamate/photoedit/internal/cropframe"
	"github.com/inamate/photoedit/internal/document"
	"github.com/inamate/photoedit/internal/geometry"
	"github.com/inamate/photoedit/internal/render"
	"github.com/inamate/photoedit/internal/selection"
	"github.com/inamate/photoedit/internal/snapping"
	"github.com/inamate/photoedit/internal/store"
	"github.com/inamate/photoedit/internal/transform"
)

// Engine is one editing session. It owns the live scene and routes pointer,
// keyboard and export input to the selection, transform, snapping and crop
// controllers, which commit to the store.
type Engine struct {
	mu sync.Mutex

	store  *store.Store
	scene  *render.Scene
	raster *render.Raster

	sel  *selection.Manager
	xf   *transform.Controller
	crop *cropframe.Controller

	tolerance    float64
	lossyQuality float64
	onExport     func()

	// Set by the store listener; the scene is re-synced on the next call.
	dirty       atomic.Bool
	unsubscribe func()
	closed      bool

	drag *dragState
	// The click trailing a finished drag is not a selection click.
	suppressClick bool
}

type dragState struct {
	id         string
	offX, offY float64 // pointer offset from the widget origin
	moved      bool
}

type Option func(*Engine)

// WithSnapTolerance sets the snapping distance in stage units.
func WithSnapTolerance(tol float64) Option {
	return func(e *Engine) { e.tolerance = tol }
}

// WithExportHandler sets the callback run by the Ctrl/Cmd+S shortcut.
func WithExportHandler(fn func()) Option {
	return func(e *Engine) { e.onExport = fn }
}

// WithLossyQuality sets the default jpeg/webp export quality in (0, 1].
func WithLossyQuality(q float64) Option {
	return func(e *Engine) { e.lossyQuality = q }
}

// NewEngine creates a session over st. Text is measured and painted with
// fonts.
func NewEngine(st *store.Store, fonts *render.FontBook, opts ...Option) *Engine {
	e := &Engine{
		store:     st,
		scene:     render.NewScene(fonts),
		raster:    render.NewRaster(fonts),
		tolerance: snapping.GuidelineOffset,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.sel = selection.NewManager(e.scene, st)
	e.xf = transform.NewController(st, e.scene)
	e.crop = cropframe.NewController(st)

	e.dirty.Store(true)
	e.unsubscribe = st.Subscribe(func(store.State) { e.dirty.Store(true) })
	return e
}

// Close removes the store listener and closes the store so that image
// decodes still in flight are dropped. It is safe to call more than once.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.unsubscribe()
	e.store.Close()
}

// Store returns the session's store.
func (e *Engine) Store() *store.Store { return e.store }

// refresh re-syncs the scene and crop frame after store commits.
func (e *Engine) refresh() {
	if !e.dirty.Swap(false) {
		return
	}
	st := e.store.Snapshot()
	e.scene.Sync(st.Widgets, st.Canvas)
	e.crop.Sync()
}

// --- Commands (frontend → backend) ---

// PointerDown handles a press at stage coordinates (x, y). A press on a
// widget starts dragging it; a press on empty stage starts a marquee.
func (e *Engine) PointerDown(x, y float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sel.Flush()
	e.refresh()
	e.suppressClick = false

	hit := e.scene.HitTest(x, y)
	if hit == "" {
		e.drag = nil
		e.sel.PointerDown(geometry.Point{X: x, Y: y}, true)
		return
	}

	id, ok := e.scene.SelectableAncestor(hit)
	if !ok {
		return
	}
	n, _ := e.scene.Node(id)
	t := n.Transform()
	e.drag = &dragState{id: id, offX: x - t.X, offY: y - t.Y}
}

// PointerMove moves the dragged widget or extends the marquee.
func (e *Engine) PointerMove(x, y float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.drag != nil {
		e.dragMove(x, y)
		return
	}
	e.sel.PointerMove(geometry.Point{X: x, Y: y})
}

// dragMove positions the live node, snapped to the stage and sibling guides
// when snapping is on. Nothing is committed until the drag ends.
func (e *Engine) dragMove(x, y float64) {
	n, ok := e.scene.Node(e.drag.id)
	if !ok {
		e.drag = nil
		return
	}
	e.drag.moved = true

	nx, ny := x-e.drag.offX, y-e.drag.offY
	if !e.store.SnapEnabled() {
		n.SetPosition(nx, ny)
		e.scene.ClearGuides()
		return
	}

	t := n.Transform()
	t.X, t.Y = nx, ny
	w, h := n.Size()
	stageW, stageH := e.scene.StageSize()
	res := snapping.Snap(snapping.Input{
		StageW:    stageW,
		StageH:    stageH,
		Dragged:   geometry.ClientRect(t, w, h),
		X:         nx,
		Y:         ny,
		Others:    e.scene.OtherRects(e.drag.id),
		Tolerance: e.tolerance,
	})
	n.SetPosition(res.X, res.Y)
	e.scene.SetGuides(res.Guides)
}

// PointerUp ends a drag, committing the final position, or ends a marquee.
func (e *Engine) PointerUp() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if d := e.drag; d != nil {
		e.drag = nil
		if !d.moved {
			return
		}
		if n, ok := e.scene.Node(d.id); ok {
			e.xf.DragEnd(n)
		}
		e.suppressClick = true
		return
	}
	e.sel.PointerUp()
}

// Click selects from a click at (x, y). The click trailing a drag or a
// marquee is ignored.
func (e *Engine) Click(x, y float64, mods selection.Modifiers) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.suppressClick {
		e.suppressClick = false
		return
	}
	e.refresh()
	e.sel.Click(e.scene.HitTest(x, y), mods)
}

// OutsideClick handles a click anywhere on the page.
func (e *Engine) OutsideClick(elementID string, insideStage bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sel.OutsideClick(elementID, insideStage)
}

// Flush runs work deferred past the current event, such as hiding the
// marquee after a rectangle selection. Front ends call it on the next tick.
func (e *Engine) Flush() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sel.Flush()
}

// TransformMove shows a live resize/rotate of widget id.
func (e *Engine) TransformMove(id string, t document.Transform) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.refresh()
	if n, ok := e.scene.Node(id); ok {
		n.SetTransform(t)
	}
}

// TransformEnd commits the live resize/rotate of widget id.
func (e *Engine) TransformEnd(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if n, ok := e.scene.Node(id); ok {
		e.xf.TransformEnd(n)
	}
}

// CropPress grabs a corner handle of the crop frame.
func (e *Engine) CropPress(handle string, x, y float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.refresh()
	return e.crop.Press(cropframe.Handle(handle), geometry.Point{X: x, Y: y})
}

// CropMove resizes the crop frame.
func (e *Engine) CropMove(x, y float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.crop.Move(geometry.Point{X: x, Y: y})
}

// CropRelease commits the crop frame.
func (e *Engine) CropRelease() (document.Crop, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.crop.Release()
}

// --- Queries (frontend ← backend) ---

// Snapshot returns the committed store state.
func (e *Engine) Snapshot() store.State {
	return e.store.Snapshot()
}

// Render returns the draw commands for the current frame as JSON.
func (e *Engine) Render() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.refresh()

	st := e.store.Snapshot()
	var ov render.Overlay
	if r := e.sel.Rect(); r.Visible {
		b := r.Bounds()
		ov.Marquee = &b
	}
	if st.ActiveTab == document.TabCrop {
		f := e.crop.Frame()
		ov.Frame = &f
	}

	result, _ := render.DrawCommandsToJSON(render.CompileDrawCommands(st, e.scene, ov))
	return result
}

// HitTest returns the id of the top-most widget content under (x, y).
func (e *Engine) HitTest(x, y float64) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.refresh()
	return e.scene.HitTest(x, y)
}

// Guides returns the snapping guides shown for the current drag.
func (e *Engine) Guides() []snapping.Guide {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scene.Guides()
}

// CropFrame returns the crop frame as currently shown.
func (e *Engine) CropFrame() document.Crop {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.refresh()
	return e.crop.Frame()
}

// GetSelectionBounds returns the bounding box of the current selection as JSON.
func (e *Engine) GetSelectionBounds() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.refresh()
	return render.RectToJSON(e.scene.SelectionBounds(e.store.SelectedWidgetIDs()))
}

// GetState returns the full store snapshot as JSON.
func (e *Engine) GetState() string {
	data, _ := json.Marshal(e.store.Snapshot())
	return string(data)
}

// GetSelection returns the current selection as JSON.
func (e *Engine) GetSelection() string {
	data, _ := json.Marshal(e.store.SelectedWidgetIDs())
	return string(data)
}
