package engine

import "strings"

// KeyEvent is a keydown seen by the session-wide listener.
type KeyEvent struct {
	Key         string `json:"key"`
	Ctrl        bool   `json:"ctrl"`
	Meta        bool   `json:"meta"`
	Shift       bool   `json:"shift"`
	Alt         bool   `json:"alt"`
	InTextInput bool   `json:"inTextInput"`
}

// KeyDown applies the session shortcuts. Delete/Backspace outside a text
// input removes the selected widgets; Ctrl/Cmd+S runs the export handler.
// It reports whether the event was consumed and its default action should
// be prevented.
func (e *Engine) KeyDown(ev KeyEvent) bool {
	if (ev.Ctrl || ev.Meta) && strings.EqualFold(ev.Key, "s") {
		e.mu.Lock()
		fn := e.onExport
		e.mu.Unlock()
		if fn != nil {
			fn()
		}
		return true
	}

	switch ev.Key {
	case "Delete", "Backspace":
		if ev.InTextInput {
			return false
		}
		ids := e.store.SelectedWidgetIDs()
		if len(ids) == 0 {
			return false
		}
		e.store.RemoveWidgets(ids)
		return true
	}
	return false
}
