package selection

import (
	"slices"
	"strings"
	"testing"

	"github.com/inamate/photoedit/internal/geometry"
)

type fakeScene struct {
	order []string
	rects map[string]geometry.Rect
}

func (f *fakeScene) SelectableIDs() []string { return f.order }

func (f *fakeScene) ClientRect(id string) (geometry.Rect, bool) {
	r, ok := f.rects[id]
	return r, ok
}

// Child nodes are named "<widget>/<part>".
func (f *fakeScene) SelectableAncestor(nodeID string) (string, bool) {
	id, _, _ := strings.Cut(nodeID, "/")
	_, ok := f.rects[id]
	return id, ok
}

type fakeTarget struct {
	ids   []string
	calls int
}

func (f *fakeTarget) SelectedWidgetIDs() []string { return slices.Clone(f.ids) }

func (f *fakeTarget) SetSelectedWidgetIDs(ids []string) {
	f.calls++
	f.ids = slices.Clone(ids)
}

func newScene() *fakeScene {
	return &fakeScene{
		order: []string{"a", "b", "c"},
		rects: map[string]geometry.Rect{
			"a": {X: 0, Y: 0, Width: 50, Height: 50},
			"b": {X: 100, Y: 100, Width: 50, Height: 50},
			"c": {X: 300, Y: 300, Width: 20, Height: 20},
		},
	}
}

func drag(m *Manager, from, to geometry.Point) {
	m.PointerDown(from, true)
	m.PointerMove(to)
	m.PointerUp()
}

func TestMarqueeSelectsIntersecting(t *testing.T) {
	tests := []struct {
		name     string
		from, to geometry.Point
		want     []string
	}{
		{"covers a and b", geometry.Point{X: 10, Y: 10}, geometry.Point{X: 120, Y: 120}, []string{"a", "b"}},
		{"reversed corners", geometry.Point{X: 120, Y: 120}, geometry.Point{X: 10, Y: 10}, []string{"a", "b"}},
		{"touching edge", geometry.Point{X: 150, Y: 150}, geometry.Point{X: 200, Y: 200}, []string{"b"}},
		{"empty area", geometry.Point{X: 200, Y: 0}, geometry.Point{X: 250, Y: 50}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := &fakeTarget{ids: []string{"c"}}
			m := NewManager(newScene(), target)
			drag(m, tt.from, tt.to)

			if !slices.Equal(target.ids, tt.want) {
				t.Errorf("selection = %v, want %v", target.ids, tt.want)
			}
		})
	}
}

func TestMarqueeIgnoredWhenPressOnWidget(t *testing.T) {
	target := &fakeTarget{}
	m := NewManager(newScene(), target)
	m.PointerDown(geometry.Point{X: 10, Y: 10}, false)
	m.PointerMove(geometry.Point{X: 400, Y: 400})
	m.PointerUp()

	if target.calls != 0 {
		t.Errorf("SetSelectedWidgetIDs called %d times, want 0", target.calls)
	}
	if m.Rect().Visible {
		t.Error("marquee visible after press on widget")
	}
}

func TestClickAfterMarqueeIsSuppressed(t *testing.T) {
	target := &fakeTarget{}
	m := NewManager(newScene(), target)
	drag(m, geometry.Point{X: 10, Y: 10}, geometry.Point{X: 120, Y: 120})

	// trailing click on the stage must not clear the marquee selection
	m.Click("", Modifiers{})
	if !slices.Equal(target.ids, []string{"a", "b"}) {
		t.Fatalf("selection = %v, want [a b]", target.ids)
	}

	m.Flush()
	if m.Rect().Visible {
		t.Error("marquee still visible after flush")
	}
	m.Click("", Modifiers{})
	if len(target.ids) != 0 {
		t.Errorf("selection = %v, want empty", target.ids)
	}
}

func TestCustomScheduler(t *testing.T) {
	var queued []func()
	target := &fakeTarget{}
	m := NewManager(newScene(), target, WithScheduler(func(fn func()) { queued = append(queued, fn) }))
	drag(m, geometry.Point{X: 0, Y: 0}, geometry.Point{X: 1, Y: 1})

	if len(queued) != 1 {
		t.Fatalf("queued = %d, want 1", len(queued))
	}
	queued[0]()
	if m.Rect().Visible {
		t.Error("marquee visible after scheduled hide")
	}
}

func TestClick(t *testing.T) {
	tests := []struct {
		name    string
		initial []string
		node    string
		mods    Modifiers
		want    []string
	}{
		{"plain replaces", []string{"a", "b"}, "c", Modifiers{}, []string{"c"}},
		{"plain on child resolves owner", nil, "b/text", Modifiers{}, []string{"b"}},
		{"plain on selected keeps only it", []string{"a", "b"}, "b", Modifiers{}, []string{"b"}},
		{"shift adds", []string{"a"}, "c", Modifiers{Shift: true}, []string{"a", "c"}},
		{"meta removes", []string{"a", "b", "c"}, "b", Modifiers{Meta: true}, []string{"a", "c"}},
		{"alt toggles child", []string{"a"}, "a/image", Modifiers{Alt: true}, []string{}},
		{"stage clears", []string{"a", "b"}, "", Modifiers{Ctrl: true}, []string{}},
		{"unknown node ignored", []string{"a"}, "guide", Modifiers{}, []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := &fakeTarget{ids: tt.initial}
			m := NewManager(newScene(), target)
			m.Click(tt.node, tt.mods)

			got := target.ids
			if got == nil {
				got = []string{}
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("selection = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOutsideClick(t *testing.T) {
	tests := []struct {
		name      string
		element   string
		inside    bool
		wantClear bool
	}{
		{"container", OutsideContainerID, false, true},
		{"sidebar", "sidebar", false, false},
		{"inside stage", OutsideContainerID, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := &fakeTarget{ids: []string{"a"}}
			m := NewManager(newScene(), target)
			m.OutsideClick(tt.element, tt.inside)

			if cleared := len(target.ids) == 0; cleared != tt.wantClear {
				t.Errorf("cleared = %v, want %v", cleared, tt.wantClear)
			}
		})
	}
}
