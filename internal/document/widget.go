package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
)

type WidgetType string

const (
	TypeText    WidgetType = "text"
	TypeImage   WidgetType = "image"
	TypeSticker WidgetType = "sticker"
)

var ErrUnknownWidgetType = errors.New("unknown widget type")

// Widget is a placeable scene object. The concrete types are TextWidget,
// ImageWidget and StickerWidget; consumers switch on the concrete type.
type Widget interface {
	WidgetID() string
	Type() WidgetType
	Transformation() Transform
	WithTransform(t Transform) Widget
	WithID(id string) Widget
	sealed()
}

type TextAlign string

const (
	AlignLeft   TextAlign = "left"
	AlignCenter TextAlign = "center"
	AlignRight  TextAlign = "right"
)

type FontStyle string

const (
	FontNormal     FontStyle = "normal"
	FontBold       FontStyle = "bold"
	FontItalic     FontStyle = "italic"
	FontItalicBold FontStyle = "italic bold"
)

type TextDecoration string

const (
	DecorationNone        TextDecoration = ""
	DecorationUnderline   TextDecoration = "underline"
	DecorationLineThrough TextDecoration = "line-through"
)

type TextWidget struct {
	ID string `json:"id"`
	Transform

	Text           string         `json:"text"`
	Fill           string         `json:"fill"`
	FontSize       float64        `json:"fontSize"`
	Align          TextAlign      `json:"align"`
	FontStyle      FontStyle      `json:"fontStyle,omitempty"`
	FontFamily     string         `json:"fontFamily,omitempty"`
	TextDecoration TextDecoration `json:"textDecoration,omitempty"`

	StrokeColor string  `json:"strokeColor,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`

	ShadowEnabled bool    `json:"shadowEnabled"`
	ShadowBlur    float64 `json:"shadowBlur"`
	ShadowOffsetX float64 `json:"shadowOffsetX"`
	ShadowOffsetY float64 `json:"shadowOffsetY"`
	ShadowColor   string  `json:"shadowColor"`
}

func (w TextWidget) WidgetID() string                 { return w.ID }
func (w TextWidget) Type() WidgetType                 { return TypeText }
func (w TextWidget) Transformation() Transform        { return w.Transform }
func (w TextWidget) WithTransform(t Transform) Widget { w.Transform = t; return w }
func (w TextWidget) WithID(id string) Widget          { w.ID = id; return w }
func (TextWidget) sealed()                            {}

func (w TextWidget) MarshalJSON() ([]byte, error) {
	type alias TextWidget
	return json.Marshal(struct {
		Type WidgetType `json:"type"`
		alias
	}{TypeText, alias(w)})
}

// ImageWidget owns a decoded bitmap. DrawW/DrawH are the rendered size in
// stage units, independent of the bitmap's natural resolution.
type ImageWidget struct {
	ID string `json:"id"`
	Transform

	Src           string       `json:"src,omitempty"`
	Img           image.Image  `json:"-"`
	NaturalWidth  int          `json:"naturalWidth"`
	NaturalHeight int          `json:"naturalHeight"`
	DrawW         float64      `json:"drawW"`
	DrawH         float64      `json:"drawH"`
	Filters       FiltersState `json:"filters"`
}

func (w ImageWidget) WidgetID() string                 { return w.ID }
func (w ImageWidget) Type() WidgetType                 { return TypeImage }
func (w ImageWidget) Transformation() Transform        { return w.Transform }
func (w ImageWidget) WithTransform(t Transform) Widget { w.Transform = t; return w }
func (w ImageWidget) WithID(id string) Widget          { w.ID = id; return w }
func (ImageWidget) sealed()                            {}

func (w ImageWidget) MarshalJSON() ([]byte, error) {
	type alias ImageWidget
	return json.Marshal(struct {
		Type WidgetType `json:"type"`
		alias
	}{TypeImage, alias(w)})
}

// StickerWidget is a placeholder category: transform and id only.
type StickerWidget struct {
	ID string `json:"id"`
	Transform
}

func (w StickerWidget) WidgetID() string                 { return w.ID }
func (w StickerWidget) Type() WidgetType                 { return TypeSticker }
func (w StickerWidget) Transformation() Transform        { return w.Transform }
func (w StickerWidget) WithTransform(t Transform) Widget { w.Transform = t; return w }
func (w StickerWidget) WithID(id string) Widget          { w.ID = id; return w }
func (StickerWidget) sealed()                            {}

func (w StickerWidget) MarshalJSON() ([]byte, error) {
	type alias StickerWidget
	return json.Marshal(struct {
		Type WidgetType `json:"type"`
		alias
	}{TypeSticker, alias(w)})
}

// DecodeWidget decodes a JSON widget using its "type" discriminant.
func DecodeWidget(data []byte) (Widget, error) {
	var head struct {
		Type WidgetType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode widget: %w", err)
	}

	switch head.Type {
	case TypeText:
		w := TextWidget{Align: AlignLeft}
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("decode text widget: %w", err)
		}
		return w, nil
	case TypeImage:
		w := ImageWidget{Filters: DefaultFilters()}
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("decode image widget: %w", err)
		}
		return w, nil
	case TypeSticker:
		var w StickerWidget
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("decode sticker widget: %w", err)
		}
		return w, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownWidgetType, head.Type)
	}
}

// Fields is a partial widget update keyed by JSON field name.
type Fields map[string]any

// MergeFields merges a JSON object of fields into w. The concrete type and id
// of w are preserved regardless of what the fields contain.
func MergeFields(w Widget, fields []byte) (Widget, error) {
	if len(fields) == 0 {
		return w, nil
	}

	switch v := w.(type) {
	case TextWidget:
		next := v
		if err := json.Unmarshal(fields, &next); err != nil {
			return w, fmt.Errorf("merge text widget: %w", err)
		}
		next.ID = v.ID
		return next, nil
	case ImageWidget:
		next := v
		if err := json.Unmarshal(fields, &next); err != nil {
			return w, fmt.Errorf("merge image widget: %w", err)
		}
		next.ID = v.ID
		next.Img = v.Img
		return next, nil
	case StickerWidget:
		next := v
		if err := json.Unmarshal(fields, &next); err != nil {
			return w, fmt.Errorf("merge sticker widget: %w", err)
		}
		next.ID = v.ID
		return next, nil
	default:
		return w, fmt.Errorf("%w: %T", ErrUnknownWidgetType, w)
	}
}

// Merge is MergeFields for an in-memory field map.
func Merge(w Widget, fields Fields) (Widget, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return w, fmt.Errorf("marshal fields: %w", err)
	}
	return MergeFields(w, data)
}
