package store

import (
	"math"
	"slices"

	"github.com/inamate/photoedit/internal/document"
)

// AddWidget assigns w a fresh id, places it using the defaults centered on
// the stage merged with t, appends it on top of the z-order and makes it the
// only selected widget. It returns the new id.
func (s *Store) AddWidget(w document.Widget, t document.TransformPatch) string {
	var id string
	s.commit(func() bool {
		id = s.addLocked(w, t)
		return true
	})
	return id
}

func (s *Store) addLocked(w document.Widget, t document.TransformPatch) string {
	id := s.newID()
	for s.indexOf(id) >= 0 {
		id = s.newID()
	}

	base := document.IdentityAt(s.canvas.StageW/2, s.canvas.StageH/2)
	created := w.WithID(id).WithTransform(t.Apply(base))

	s.widgets = append(s.widgets, created)
	s.selected = []string{id}
	return id
}

// UpdateWidget merges fields into the widget, preserving its type. Unknown
// ids are ignored.
func (s *Store) UpdateWidget(id string, fields document.Fields) error {
	var err error
	s.commit(func() bool {
		i := s.indexOf(id)
		if i < 0 {
			return false
		}
		var next document.Widget
		next, err = document.Merge(s.widgets[i], fields)
		if err != nil {
			return false
		}
		s.widgets[i] = next
		return true
	})
	return err
}

// UpdateWidgetJSON is UpdateWidget for a raw JSON object of fields.
func (s *Store) UpdateWidgetJSON(id string, fields []byte) error {
	var err error
	s.commit(func() bool {
		i := s.indexOf(id)
		if i < 0 {
			return false
		}
		var next document.Widget
		next, err = document.MergeFields(s.widgets[i], fields)
		if err != nil {
			return false
		}
		s.widgets[i] = next
		return true
	})
	return err
}

// RemoveWidget deletes the widget and drops it from the selection.
func (s *Store) RemoveWidget(id string) {
	s.RemoveWidgets([]string{id})
}

// RemoveWidgets deletes every listed widget and drops them from the selection.
func (s *Store) RemoveWidgets(ids []string) {
	if len(ids) == 0 {
		return
	}
	s.commit(func() bool {
		before := len(s.widgets)
		s.widgets = slices.DeleteFunc(s.widgets, func(w document.Widget) bool {
			return slices.Contains(ids, w.WidgetID())
		})
		selBefore := len(s.selected)
		s.selected = slices.DeleteFunc(s.selected, func(id string) bool {
			return slices.Contains(ids, id)
		})
		return len(s.widgets) != before || len(s.selected) != selBefore
	})
}

// UpdateWidgetTransform merges only the transform fields present in p.
func (s *Store) UpdateWidgetTransform(id string, p document.TransformPatch) {
	if p.IsEmpty() {
		return
	}
	s.commit(func() bool {
		i := s.indexOf(id)
		if i < 0 {
			return false
		}
		w := s.widgets[i]
		s.widgets[i] = w.WithTransform(p.Apply(w.Transformation()))
		return true
	})
}

// SetImageFilters merges filter values into an image widget, or into the
// root image when id names it. Other widget types are left alone.
func (s *Store) SetImageFilters(id string, p document.FiltersPatch) {
	s.commit(func() bool {
		if s.root != nil && s.root.ID == id {
			s.root.Filters = p.Apply(s.root.Filters)
			return true
		}
		i := s.indexOf(id)
		if i < 0 {
			return false
		}
		img, ok := s.widgets[i].(document.ImageWidget)
		if !ok {
			return false
		}
		img.Filters = p.Apply(img.Filters)
		s.widgets[i] = img
		return true
	})
}

// MoveWidgetUp swaps the widget with the one above it.
func (s *Store) MoveWidgetUp(id string) {
	s.commit(func() bool {
		i := s.indexOf(id)
		if i < 0 || i == len(s.widgets)-1 {
			return false
		}
		s.widgets[i], s.widgets[i+1] = s.widgets[i+1], s.widgets[i]
		return true
	})
}

// MoveWidgetDown swaps the widget with the one below it.
func (s *Store) MoveWidgetDown(id string) {
	s.commit(func() bool {
		i := s.indexOf(id)
		if i <= 0 {
			return false
		}
		s.widgets[i], s.widgets[i-1] = s.widgets[i-1], s.widgets[i]
		return true
	})
}

// MoveWidgetToFront moves the widget to the top of the z-order.
func (s *Store) MoveWidgetToFront(id string) {
	s.MoveWidgetToIndex(id, math.MaxInt)
}

// MoveWidgetToBack moves the widget to the bottom of the z-order.
func (s *Store) MoveWidgetToBack(id string) {
	s.MoveWidgetToIndex(id, 0)
}

// MoveWidgetToIndex reinserts the widget at target, clamped to the valid range.
func (s *Store) MoveWidgetToIndex(id string, target int) {
	s.commit(func() bool {
		i := s.indexOf(id)
		if i < 0 {
			return false
		}
		target = max(0, min(target, len(s.widgets)-1))
		if target == i {
			return false
		}
		w := s.widgets[i]
		s.widgets = slices.Delete(s.widgets, i, i+1)
		s.widgets = slices.Insert(s.widgets, target, w)
		return true
	})
}

// DisplayToIndex converts a layer-list row (top-most first) to an array index.
func DisplayToIndex(displayIndex, length int) int {
	return length - 1 - displayIndex
}

// SetSelectedWidgetIDs replaces the selection. Duplicates and unknown ids are
// dropped; first-selected order is kept.
func (s *Store) SetSelectedWidgetIDs(ids []string) {
	s.commit(func() bool {
		next := make([]string, 0, len(ids))
		for _, id := range ids {
			if s.indexOf(id) < 0 || slices.Contains(next, id) {
				continue
			}
			next = append(next, id)
		}
		if slices.Equal(next, s.selected) {
			return false
		}
		s.selected = next
		return true
	})
}

// SelectedWidgetIDs returns the selection in first-selected order.
func (s *Store) SelectedWidgetIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.selected)
}

// SelectedWidgetID returns the first selected id, if any.
func (s *Store) SelectedWidgetID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.selected) == 0 {
		return "", false
	}
	return s.selected[0], true
}
