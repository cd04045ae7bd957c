// Package cropframe drives the four-handle frame used to resize the stage
// while the crop tab is active.
package cropframe

import (
	"fmt"

	"github.com/inamate/photoedit/internal/document"
	"github.com/inamate/photoedit/internal/geometry"
)

// Handle is one of the frame's corner handles.
type Handle string

const (
	TopLeft     Handle = "tl"
	TopRight    Handle = "tr"
	BottomLeft  Handle = "bl"
	BottomRight Handle = "br"
)

func (h Handle) Valid() bool {
	switch h {
	case TopLeft, TopRight, BottomLeft, BottomRight:
		return true
	}
	return false
}

// Store is the part of the editor store the frame reads and commits to.
// *store.Store satisfies it.
type Store interface {
	Canvas() document.Canvas
	FrameCrop() (document.Crop, bool)
	SetCrop(c document.Crop)
}

// Controller holds the interactive frame. It is idle until a handle is
// pressed and returns to idle on release.
type Controller struct {
	store Store

	frame     document.Crop
	active    Handle
	start     geometry.Point
	startCrop document.Crop
}

func NewController(store Store) *Controller {
	c := &Controller{store: store}
	c.Sync()
	return c
}

// Frame returns the frame as currently shown.
func (c *Controller) Frame() document.Crop { return c.frame }

// Active returns the held handle, or "" when idle.
func (c *Controller) Active() Handle { return c.active }

// Sync resets the local frame to the origin, sized to the committed crop or
// to the whole stage when there is none. It is ignored mid-drag.
func (c *Controller) Sync() {
	if c.active != "" {
		return
	}
	if crop, ok := c.store.FrameCrop(); ok {
		c.frame = document.Crop{Width: crop.Width, Height: crop.Height}
		return
	}
	cv := c.store.Canvas()
	c.frame = document.Crop{Width: cv.StageW, Height: cv.StageH}
}

// Press grabs handle h at pointer position p.
func (c *Controller) Press(h Handle, p geometry.Point) error {
	if !h.Valid() {
		return fmt.Errorf("unknown crop handle %q", h)
	}
	c.active = h
	c.start = p
	c.startCrop = c.frame
	return nil
}

// Move resizes the frame by the pointer delta since Press. Each handle owns
// the two edges that meet at it. The result is clamped to the stage.
func (c *Controller) Move(p geometry.Point) {
	if c.active == "" {
		return
	}
	dx := p.X - c.start.X
	dy := p.Y - c.start.Y

	r := c.startCrop
	switch c.active {
	case TopLeft:
		r.X += dx
		r.Y += dy
		r.Width -= dx
		r.Height -= dy
	case TopRight:
		r.Width += dx
		r.Y += dy
		r.Height -= dy
	case BottomLeft:
		r.X += dx
		r.Width -= dx
		r.Height += dy
	case BottomRight:
		r.Width += dx
		r.Height += dy
	}

	cv := c.store.Canvas()
	c.frame = Clamp(r, cv.StageW, cv.StageH)
}

// Clamp keeps r inside the stage. Overflow past the origin shrinks the size
// by the overflow amount; overflow past the far edges trims the size.
func Clamp(r document.Crop, stageW, stageH float64) document.Crop {
	if r.X < 0 {
		r.Width += r.X
		r.X = 0
	}
	if r.Y < 0 {
		r.Height += r.Y
		r.Y = 0
	}
	if r.X+r.Width > stageW {
		r.Width = stageW - r.X
	}
	if r.Y+r.Height > stageH {
		r.Height = stageH - r.Y
	}
	r.Rotation = 0
	return r
}

// Release commits the frame to the store and normalizes the local frame back
// to the origin with the committed size.
func (c *Controller) Release() (document.Crop, bool) {
	if c.active == "" {
		return document.Crop{}, false
	}
	committed := c.frame
	c.active = ""
	c.store.SetCrop(committed)
	c.frame = document.Crop{Width: committed.Width, Height: committed.Height}
	return committed, true
}
