package transform

import (
	"testing"

	"github.com/inamate/photoedit/internal/document"
)

type fakeNode struct {
	id         string
	selectable bool
	parent     *fakeNode
	t          document.Transform
}

func (n *fakeNode) ID() string       { return n.id }
func (n *fakeNode) Selectable() bool { return n.selectable }

func (n *fakeNode) Parent() Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *fakeNode) Transform() document.Transform { return n.t }
func (n *fakeNode) SetScale(sx, sy float64)       { n.t.ScaleX, n.t.ScaleY = sx, sy }

type commit struct {
	id string
	t  document.Transform
}

type fakeStore struct {
	commits []commit
	base    document.Transform
}

func (s *fakeStore) UpdateWidgetTransform(id string, p document.TransformPatch) {
	s.commits = append(s.commits, commit{id, p.Apply(s.base)})
}

type fakeGuides struct{ cleared int }

func (g *fakeGuides) ClearGuides() { g.cleared++ }

func TestDragEndCommitsAncestorPosition(t *testing.T) {
	group := &fakeNode{id: "w1", selectable: true, t: document.Transform{X: 40, Y: 60, ScaleX: 2, ScaleY: 2}}
	text := &fakeNode{id: "w1-content", parent: group, t: document.IdentityAt(0, 0)}

	store := &fakeStore{base: document.Transform{X: 1, Y: 1, ScaleX: 3, ScaleY: 3, Rotation: 10}}
	guides := &fakeGuides{}
	NewController(store, guides).DragEnd(text)

	if guides.cleared != 1 {
		t.Errorf("guides cleared %d times, want 1", guides.cleared)
	}
	if len(store.commits) != 1 {
		t.Fatalf("commits = %d, want 1", len(store.commits))
	}
	got := store.commits[0]
	want := document.Transform{X: 40, Y: 60, ScaleX: 3, ScaleY: 3, Rotation: 10}
	if got.id != "w1" || got.t != want {
		t.Errorf("commit = %s %+v, want w1 %+v", got.id, got.t, want)
	}
}

func TestTransformEndResetsLiveScale(t *testing.T) {
	group := &fakeNode{id: "w1", selectable: true, t: document.Transform{X: 5, Y: 6, ScaleX: 1.5, ScaleY: 0.5, Rotation: 30}}
	store := &fakeStore{}
	c := NewController(store, nil)

	c.TransformEnd(group)

	if group.t.ScaleX != 1 || group.t.ScaleY != 1 {
		t.Errorf("live scale = %vx%v, want 1x1", group.t.ScaleX, group.t.ScaleY)
	}
	want := document.Transform{X: 5, Y: 6, ScaleX: 1.5, ScaleY: 0.5, Rotation: 30}
	if got := store.commits[0].t; got != want {
		t.Errorf("committed = %+v, want %+v", got, want)
	}

	// a second gesture starts from unit scale and does not compound
	group.t.ScaleX, group.t.ScaleY = 2, 2
	c.TransformEnd(group)
	if got := store.commits[1].t; got.ScaleX != 2 || got.ScaleY != 2 {
		t.Errorf("second commit scale = %vx%v, want 2x2", got.ScaleX, got.ScaleY)
	}
}

func TestSelectableAncestorFallsBackToNode(t *testing.T) {
	orphan := &fakeNode{id: "guide"}
	if got := SelectableAncestor(orphan); got.ID() != "guide" {
		t.Errorf("SelectableAncestor = %s, want guide", got.ID())
	}
}
