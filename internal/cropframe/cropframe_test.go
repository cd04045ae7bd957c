package cropframe

import (
	"testing"

	"github.com/inamate/photoedit/internal/document"
	"github.com/inamate/photoedit/internal/geometry"
)

type fakeStore struct {
	canvas document.Canvas
	crop   *document.Crop
	sets   int
}

func (s *fakeStore) Canvas() document.Canvas { return s.canvas }

func (s *fakeStore) FrameCrop() (document.Crop, bool) {
	if s.crop == nil {
		return document.Crop{}, false
	}
	return *s.crop, true
}

func (s *fakeStore) SetCrop(c document.Crop) {
	s.sets++
	s.crop = &c
	s.canvas.StageW, s.canvas.StageH = c.Width, c.Height
}

func newStore() *fakeStore {
	return &fakeStore{canvas: document.Canvas{StageW: 800, StageH: 600, StageScale: 1}}
}

func TestMoveHandles(t *testing.T) {
	tests := []struct {
		name   string
		handle Handle
		to     geometry.Point
		want   document.Crop
	}{
		{"tl inward", TopLeft, geometry.Point{X: 50, Y: 40}, document.Crop{X: 50, Y: 40, Width: 750, Height: 560}},
		{"tr inward", TopRight, geometry.Point{X: -100, Y: 10}, document.Crop{X: 0, Y: 10, Width: 700, Height: 590}},
		{"bl inward", BottomLeft, geometry.Point{X: 20, Y: -30}, document.Crop{X: 20, Y: 0, Width: 780, Height: 570}},
		{"br inward", BottomRight, geometry.Point{X: -200, Y: -100}, document.Crop{X: 0, Y: 0, Width: 600, Height: 500}},
		{"br outward clamped", BottomRight, geometry.Point{X: 50, Y: 50}, document.Crop{X: 0, Y: 0, Width: 800, Height: 600}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController(newStore())
			if err := c.Press(tt.handle, geometry.Point{}); err != nil {
				t.Fatalf("Press: %v", err)
			}
			c.Move(tt.to)
			if got := c.Frame(); got != tt.want {
				t.Errorf("frame = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTopLeftOverflowShrinksByOverflow(t *testing.T) {
	c := NewController(newStore())
	c.frame = document.Crop{X: 100, Y: 0, Width: 300, Height: 200}
	if err := c.Press(TopLeft, geometry.Point{}); err != nil {
		t.Fatal(err)
	}

	// drag 130 left: x would be -30
	c.Move(geometry.Point{X: -130, Y: 0})
	got := c.Frame()
	if got.X != 0 {
		t.Errorf("x = %v, want 0", got.X)
	}
	// width grows by 130 then loses the 30 overflow
	if got.Width != 300+130-30 {
		t.Errorf("width = %v, want %v", got.Width, 300+130-30)
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name string
		in   document.Crop
		want document.Crop
	}{
		{"inside", document.Crop{X: 10, Y: 10, Width: 100, Height: 100}, document.Crop{X: 10, Y: 10, Width: 100, Height: 100}},
		{"negative x", document.Crop{X: -30, Y: 0, Width: 200, Height: 100}, document.Crop{X: 0, Y: 0, Width: 170, Height: 100}},
		{"negative y", document.Crop{X: 0, Y: -5, Width: 10, Height: 100}, document.Crop{X: 0, Y: 0, Width: 10, Height: 95}},
		{"past right", document.Crop{X: 700, Y: 0, Width: 200, Height: 100}, document.Crop{X: 700, Y: 0, Width: 100, Height: 100}},
		{"past bottom", document.Crop{X: 0, Y: 550, Width: 10, Height: 100}, document.Crop{X: 0, Y: 550, Width: 10, Height: 50}},
		{"rotation dropped", document.Crop{Width: 10, Height: 10, Rotation: 15}, document.Crop{Width: 10, Height: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clamp(tt.in, 800, 600); got != tt.want {
				t.Errorf("Clamp = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestReleaseCommitsAndNormalizes(t *testing.T) {
	s := newStore()
	c := NewController(s)
	if err := c.Press(TopLeft, geometry.Point{X: 0, Y: 0}); err != nil {
		t.Fatal(err)
	}
	c.Move(geometry.Point{X: 40, Y: 20})

	committed, ok := c.Release()
	if !ok {
		t.Fatal("Release reported idle")
	}
	want := document.Crop{X: 40, Y: 20, Width: 760, Height: 580}
	if committed != want || *s.crop != want {
		t.Errorf("committed = %+v (store %+v), want %+v", committed, *s.crop, want)
	}
	if got := c.Frame(); got != (document.Crop{Width: 760, Height: 580}) {
		t.Errorf("local frame = %+v, want origin 760x580", got)
	}
	if c.Active() != "" {
		t.Errorf("active = %q, want idle", c.Active())
	}

	if _, ok := c.Release(); ok {
		t.Error("second Release committed again")
	}
	if s.sets != 1 {
		t.Errorf("SetCrop called %d times, want 1", s.sets)
	}
}

func TestMoveWhileIdleIsIgnored(t *testing.T) {
	c := NewController(newStore())
	c.Move(geometry.Point{X: 10, Y: 10})
	if got := c.Frame(); got != (document.Crop{Width: 800, Height: 600}) {
		t.Errorf("frame = %+v, want full stage", got)
	}
}

func TestPressUnknownHandle(t *testing.T) {
	c := NewController(newStore())
	if err := c.Press("middle", geometry.Point{}); err == nil {
		t.Error("Press accepted unknown handle")
	}
}

func TestSyncUsesCommittedCrop(t *testing.T) {
	s := newStore()
	s.crop = &document.Crop{X: 5, Y: 5, Width: 100, Height: 50}
	c := NewController(s)
	if got := c.Frame(); got != (document.Crop{Width: 100, Height: 50}) {
		t.Errorf("frame = %+v, want origin 100x50", got)
	}
}
