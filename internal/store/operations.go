package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/inamate/photoedit/internal/document"
)

const (
	OpWidgetAdd       = "widget.add"
	OpWidgetUpdate    = "widget.update"
	OpWidgetTransform = "widget.transform"
	OpWidgetRemove    = "widget.remove"
	OpWidgetFilters   = "widget.filters"
	OpWidgetOrder     = "widget.order"
	OpSelectionSet    = "selection.set"
	OpCanvasContainer = "canvas.container"
	OpCanvasCrop      = "canvas.crop"
	OpCanvasCropReset = "canvas.crop.reset"
	OpUITab           = "ui.tab"
	OpUISnap          = "ui.snap"
	OpUIBackground    = "ui.background"
	OpImageAdd        = "image.add"
	OpImageRoot       = "image.root"
)

// Layer order directions for widget.order.
const (
	OrderUp    = "up"
	OrderDown  = "down"
	OrderFront = "front"
	OrderBack  = "back"
	OrderIndex = "index"
)

var ErrUnknownOperation = errors.New("unknown operation type")

// Operation is a serialized store mutation submitted by a client.
type Operation struct {
	ID       string `json:"id,omitempty"`
	Type     string `json:"type"`
	WidgetID string `json:"widgetId,omitempty"`

	// widget.add
	Widget json.RawMessage `json:"widget,omitempty"`

	// widget.update
	Fields json.RawMessage `json:"fields,omitempty"`

	// widget.transform, and the optional placement for widget.add
	Transform *document.TransformPatch `json:"transform,omitempty"`

	// widget.filters
	Filters *document.FiltersPatch `json:"filters,omitempty"`

	// widget.order
	Order string `json:"order,omitempty"`
	Index *int   `json:"index,omitempty"`

	// widget.remove, selection.set
	IDs []string `json:"ids,omitempty"`

	// canvas.container
	Container *document.Container `json:"container,omitempty"`

	// canvas.crop
	Crop *document.Crop `json:"crop,omitempty"`

	// ui.*
	Tab        document.EditorTab `json:"tab,omitempty"`
	Snap       *bool              `json:"snap,omitempty"`
	Background *string            `json:"background,omitempty"`

	// image.add, image.root
	URL string `json:"url,omitempty"`
}

// Result carries what an operation produced, such as a created widget id.
type Result struct {
	WidgetID string `json:"widgetId,omitempty"`
}

// Pending is an operation whose slow part, fetching and decoding an image,
// has already run. Commit applies it to the store.
type Pending struct {
	commit func() (Result, error)
}

// Commit applies the operation.
func (p Pending) Commit() (Result, error) { return p.commit() }

// Prepare runs the part of op that does not touch store state. For image
// ops this is the fetch and decode; other ops have nothing to prepare.
// Decode failures are returned here and leave the store untouched.
func (s *Store) Prepare(ctx context.Context, op Operation) (Pending, error) {
	switch op.Type {
	case OpImageAdd, OpImageRoot:
		img, err := s.decode(ctx, op.URL)
		if err != nil {
			s.logger().Error("load image", "op", op.Type, "url", op.URL, "error", err)
			return Pending{}, err
		}
		insert := s.insertImage
		if op.Type == OpImageRoot {
			insert = s.installRoot
		}
		return Pending{commit: func() (Result, error) {
			id, err := insert(op.URL, img)
			return Result{WidgetID: id}, err
		}}, nil
	}
	return Pending{commit: func() (Result, error) { return s.apply(op) }}, nil
}

// Apply dispatches op to the matching store method. Ops naming a missing
// widget are no-ops; malformed payloads and unknown types are errors.
func (s *Store) Apply(ctx context.Context, op Operation) (Result, error) {
	p, err := s.Prepare(ctx, op)
	if err != nil {
		return Result{}, err
	}
	return p.Commit()
}

func (s *Store) apply(op Operation) (Result, error) {
	switch op.Type {
	case OpWidgetAdd:
		return s.applyAdd(op)
	case OpWidgetUpdate:
		return Result{}, s.UpdateWidgetJSON(op.WidgetID, op.Fields)
	case OpWidgetTransform:
		if op.Transform == nil {
			return Result{}, fmt.Errorf("%s: missing transform", op.Type)
		}
		s.UpdateWidgetTransform(op.WidgetID, *op.Transform)
		return Result{}, nil
	case OpWidgetRemove:
		ids := op.IDs
		if op.WidgetID != "" {
			ids = append(ids, op.WidgetID)
		}
		s.RemoveWidgets(ids)
		return Result{}, nil
	case OpWidgetFilters:
		if op.Filters == nil {
			return Result{}, fmt.Errorf("%s: missing filters", op.Type)
		}
		s.SetImageFilters(op.WidgetID, *op.Filters)
		return Result{}, nil
	case OpWidgetOrder:
		return Result{}, s.applyOrder(op)
	case OpSelectionSet:
		s.SetSelectedWidgetIDs(op.IDs)
		return Result{}, nil
	case OpCanvasContainer:
		if op.Container == nil {
			return Result{}, fmt.Errorf("%s: missing container", op.Type)
		}
		s.SetContainer(*op.Container)
		return Result{}, nil
	case OpCanvasCrop:
		if op.Crop == nil {
			return Result{}, fmt.Errorf("%s: missing crop", op.Type)
		}
		s.SetCrop(*op.Crop)
		return Result{}, nil
	case OpCanvasCropReset:
		s.ResetCrop()
		return Result{}, nil
	case OpUITab:
		if !op.Tab.Valid() {
			return Result{}, fmt.Errorf("%s: invalid tab %q", op.Type, op.Tab)
		}
		s.SetActiveTab(op.Tab)
		return Result{}, nil
	case OpUISnap:
		if op.Snap == nil {
			return Result{}, fmt.Errorf("%s: missing snap", op.Type)
		}
		s.SetSnapEnabled(*op.Snap)
		return Result{}, nil
	case OpUIBackground:
		s.SetBackgroundColor(op.Background)
		return Result{}, nil
	default:
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownOperation, op.Type)
	}
}

func (s *Store) applyAdd(op Operation) (Result, error) {
	w, err := document.DecodeWidget(op.Widget)
	if err != nil {
		return Result{}, err
	}
	if _, ok := w.(document.ImageWidget); ok {
		return Result{}, fmt.Errorf("%s: image widgets are added with %s", op.Type, OpImageAdd)
	}

	// Transform fields may be given inline on the widget or separately.
	var placement document.TransformPatch
	if err := json.Unmarshal(op.Widget, &placement); err != nil {
		return Result{}, fmt.Errorf("decode placement: %w", err)
	}
	if op.Transform != nil {
		placement = *op.Transform
	}

	return Result{WidgetID: s.AddWidget(w, placement)}, nil
}

func (s *Store) applyOrder(op Operation) error {
	switch op.Order {
	case OrderUp:
		s.MoveWidgetUp(op.WidgetID)
	case OrderDown:
		s.MoveWidgetDown(op.WidgetID)
	case OrderFront:
		s.MoveWidgetToFront(op.WidgetID)
	case OrderBack:
		s.MoveWidgetToBack(op.WidgetID)
	case OrderIndex:
		if op.Index == nil {
			return fmt.Errorf("%s: missing index", op.Type)
		}
		s.MoveWidgetToIndex(op.WidgetID, *op.Index)
	default:
		return fmt.Errorf("%s: unknown order %q", op.Type, op.Order)
	}
	return nil
}
