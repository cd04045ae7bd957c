package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"slices"
	"sync"

	"github.com/inamate/photoedit/internal/document"
	"github.com/inamate/photoedit/internal/typeid"
)

var (
	ErrDecode = errors.New("image decode failed")
	ErrClosed = errors.New("store closed")
)

// ImageLoader fetches and decodes the bitmap behind a URL.
type ImageLoader interface {
	Load(ctx context.Context, url string) (image.Image, error)
}

// Releaser is implemented by loaders that hand out locally allocated URLs
// (blob references) which must be released once decoded.
type Releaser interface {
	Owns(url string) bool
	Release(url string)
}

// State is an immutable snapshot of the editor, handed to renderers and
// listeners.
type State struct {
	Widgets           []document.Widget     `json:"widgets"`
	SelectedWidgetIDs []string              `json:"selectedWidgetIds"`
	SelectedWidgetID  *string               `json:"selectedWidgetId"`
	Canvas            document.Canvas       `json:"canvas"`
	Container         document.Container    `json:"container"`
	FrameCrop         *document.Crop        `json:"frameCrop"`
	ActiveTab         document.EditorTab    `json:"activeTab"`
	BackgroundColor   *string               `json:"backgroundColor"`
	SnapEnabled       bool                  `json:"snapEnabled"`
	RootImage         *document.ImageWidget `json:"rootImage"`
}

// UnmarshalJSON decodes each widget through its "type" discriminator.
func (st *State) UnmarshalJSON(data []byte) error {
	type plain State
	var raw struct {
		plain
		Widgets []json.RawMessage `json:"widgets"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	next := State(raw.plain)
	next.Widgets = make([]document.Widget, 0, len(raw.Widgets))
	for i, rw := range raw.Widgets {
		w, err := document.DecodeWidget(rw)
		if err != nil {
			return fmt.Errorf("widget %d: %w", i, err)
		}
		next.Widgets = append(next.Widgets, w)
	}
	*st = next
	return nil
}

// Store is the single source of truth for widgets, selection and stage
// geometry. All mutations go through its methods; each method is one atomic
// commit and notifies listeners after the lock is released.
type Store struct {
	mu sync.RWMutex

	widgets  []document.Widget
	selected []string

	canvas    document.Canvas
	container document.Container
	frameCrop *document.Crop
	activeTab document.EditorTab
	bg        *string
	snap      bool
	root      *document.ImageWidget

	loader ImageLoader
	newID  func() string
	closed bool

	listenersMu  sync.Mutex
	listeners    map[int]func(State)
	nextListener int
}

type Option func(*Store)

// WithIDGenerator overrides the widget id source.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithWidgets seeds the store with existing widgets, bottom-most first.
func WithWidgets(ws ...document.Widget) Option {
	return func(s *Store) { s.widgets = append(s.widgets, ws...) }
}

// WithStage sets the initial stage size, used before any root image is loaded.
func WithStage(w, h float64) Option {
	return func(s *Store) {
		s.canvas.StageW = w
		s.canvas.StageH = h
	}
}

// New creates a store. The loader may be nil if images are never added.
func New(loader ImageLoader, opts ...Option) *Store {
	s := &Store{
		loader:    loader,
		newID:     typeid.NewWidgetID,
		activeTab: document.TabEnhance,
		snap:      true,
		canvas:    document.Canvas{StageScale: 1, StageScaleX: 1, StageScaleY: 1},
		listeners: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close marks the store as gone. Image decodes that finish afterwards are
// dropped instead of being committed.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.listenersMu.Lock()
	clear(s.listeners)
	s.listenersMu.Unlock()
}

// Subscribe registers fn to be called with a fresh snapshot after every commit.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.listenersMu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	return func() {
		s.listenersMu.Lock()
		delete(s.listeners, id)
		s.listenersMu.Unlock()
	}
}

// commit runs fn under the write lock and notifies listeners if it reports a
// change.
func (s *Store) commit(fn func() bool) {
	s.mu.Lock()
	changed := fn()
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

func (s *Store) notify() {
	s.listenersMu.Lock()
	fns := make([]func(State), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenersMu.Unlock()

	if len(fns) == 0 {
		return
	}
	snap := s.Snapshot()
	for _, fn := range fns {
		fn(snap)
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := State{
		Widgets:           slices.Clone(s.widgets),
		SelectedWidgetIDs: slices.Clone(s.selected),
		Canvas:            s.canvas,
		Container:         s.container,
		ActiveTab:         s.activeTab,
		SnapEnabled:       s.snap,
	}
	if st.Widgets == nil {
		st.Widgets = []document.Widget{}
	}
	if st.SelectedWidgetIDs == nil {
		st.SelectedWidgetIDs = []string{}
	}
	if len(s.selected) > 0 {
		first := s.selected[0]
		st.SelectedWidgetID = &first
	}
	if s.frameCrop != nil {
		c := *s.frameCrop
		st.FrameCrop = &c
	}
	if s.bg != nil {
		bg := *s.bg
		st.BackgroundColor = &bg
	}
	if s.root != nil {
		r := *s.root
		st.RootImage = &r
	}
	return st
}

// Widgets returns the widgets in z-order, bottom-most first.
func (s *Store) Widgets() []document.Widget {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.widgets)
}

// Widget returns the widget with the given id.
func (s *Store) Widget(id string) (document.Widget, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.widgets[i], true
	}
	return nil, false
}

// Canvas returns the current stage geometry.
func (s *Store) Canvas() document.Canvas {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.canvas
}

// SnapEnabled reports whether drag snapping is on.
func (s *Store) SnapEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.widgets, func(w document.Widget) bool {
		return w.WidgetID() == id
	})
}

func (s *Store) logger() *slog.Logger {
	return slog.Default().With("component", "store")
}
