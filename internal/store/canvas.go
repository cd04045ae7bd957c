package store

import "github.com/inamate/photoedit/internal/document"

// SetContainer records the measured host size and re-derives geometry.
func (s *Store) SetContainer(c document.Container) {
	s.commit(func() bool {
		s.container = c
		s.resizeLocked()
		return true
	})
}

// SetStageSize sets the stage dimensions directly, for sessions without a
// root image.
func (s *Store) SetStageSize(w, h float64) {
	s.commit(func() bool {
		s.canvas.StageW = w
		s.canvas.StageH = h
		return true
	})
}

// SetCrop stores the crop rectangle; the stage takes the crop's size.
func (s *Store) SetCrop(c document.Crop) {
	s.commit(func() bool {
		s.frameCrop = &c
		s.canvas.StageW = c.Width
		s.canvas.StageH = c.Height
		return true
	})
}

// ResetCrop clears the crop rectangle and restores the stage derived from
// the root image.
func (s *Store) ResetCrop() {
	s.commit(func() bool {
		if s.frameCrop == nil {
			return false
		}
		s.frameCrop = nil
		s.resizeLocked()
		return true
	})
}

// FrameCrop returns the active crop rectangle, if any.
func (s *Store) FrameCrop() (document.Crop, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.frameCrop == nil {
		return document.Crop{}, false
	}
	return *s.frameCrop, true
}

// SetActiveTab switches the tool mode. Crop padding depends on the tab, so
// geometry is re-derived.
func (s *Store) SetActiveTab(tab document.EditorTab) {
	if !tab.Valid() {
		return
	}
	s.commit(func() bool {
		if s.activeTab == tab {
			return false
		}
		s.activeTab = tab
		s.resizeLocked()
		return true
	})
}

// ActiveTab returns the current tool mode.
func (s *Store) ActiveTab() document.EditorTab {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeTab
}

func (s *Store) SetSnapEnabled(enabled bool) {
	s.commit(func() bool {
		if s.snap == enabled {
			return false
		}
		s.snap = enabled
		return true
	})
}

// SetBackgroundColor sets the stage fill; nil removes it.
func (s *Store) SetBackgroundColor(color *string) {
	s.commit(func() bool {
		if color == nil {
			s.bg = nil
			return true
		}
		c := *color
		s.bg = &c
		return true
	})
}
