package render

import (
	"encoding/json"

	"github.com/inamate/photoedit/internal/document"
	"github.com/inamate/photoedit/internal/filter"
	"github.com/inamate/photoedit/internal/geometry"
	"github.com/inamate/photoedit/internal/store"
)

// DrawCommand is a single drawing operation for a Canvas2D front end. The
// browser receives a list of these per frame and replays them in order.
type DrawCommand struct {
	Op        string    `json:"op"`                 // "background", "image", "text", "guide", "marquee", "frame"
	WidgetID  string    `json:"widgetId,omitempty"` // for hit correlation
	Transform []float64 `json:"transform,omitempty"`
	Width     float64   `json:"width,omitempty"`
	Height    float64   `json:"height,omitempty"`
	Fill      string    `json:"fill,omitempty"`
	Opacity   float64   `json:"opacity,omitempty"`

	// image
	Src        string                 `json:"src,omitempty"`
	Filters    []filter.Kind          `json:"filters,omitempty"`
	FilterArgs *document.FiltersState `json:"filterArgs,omitempty"`
	CacheRatio float64                `json:"cacheRatio,omitempty"`

	// text
	Text *document.TextWidget `json:"text,omitempty"`

	// guide
	Points []float64 `json:"points,omitempty"`

	Selected bool `json:"selected,omitempty"`
}

// Overlay is interaction state drawn over the widgets.
type Overlay struct {
	Marquee *geometry.Rect
	Frame   *document.Crop
}

// CompileDrawCommands emits commands in painter's order: background, root
// image, widgets bottom to top, then guides and overlays.
func CompileDrawCommands(st store.State, scene *Scene, ov Overlay) []DrawCommand {
	var cmds []DrawCommand

	if st.BackgroundColor != nil {
		cmds = append(cmds, DrawCommand{
			Op: "background", Fill: *st.BackgroundColor,
			Width: st.Canvas.StageW, Height: st.Canvas.StageH, Opacity: 1,
		})
	}

	if st.RootImage != nil {
		root := *st.RootImage
		origin := geometry.Identity()
		if st.FrameCrop != nil {
			origin = geometry.Translate(-st.FrameCrop.X, -st.FrameCrop.Y)
		}
		cmds = append(cmds, imageCommand(root, origin))
	}

	selected := make(map[string]bool, len(st.SelectedWidgetIDs))
	for _, id := range st.SelectedWidgetIDs {
		selected[id] = true
	}

	for _, w := range st.Widgets {
		t := w.Transformation()
		if n, ok := scene.Node(w.WidgetID()); ok {
			t = n.Transform()
		}
		m := geometry.FromTransform(t)

		var cmd DrawCommand
		switch v := w.(type) {
		case document.ImageWidget:
			cmd = imageCommand(v, m)
		case document.TextWidget:
			text := v
			cmd = DrawCommand{Op: "text", WidgetID: v.ID, Transform: m.ToSlice(), Text: &text, Opacity: 1}
			if n, ok := scene.Node(v.ID + ContentSuffix); ok {
				cmd.Width, cmd.Height = n.Size()
			}
		case document.StickerWidget:
			continue
		}
		cmd.Selected = selected[w.WidgetID()]
		cmds = append(cmds, cmd)
	}

	for _, g := range scene.Guides() {
		seg := g.Segment()
		cmds = append(cmds, DrawCommand{Op: "guide", Fill: GuideColor, Points: seg.Points[:], Opacity: 1})
	}

	if ov.Marquee != nil {
		r := *ov.Marquee
		cmds = append(cmds, DrawCommand{
			Op: "marquee", Transform: geometry.Translate(r.X, r.Y).ToSlice(),
			Width: r.Width, Height: r.Height, Fill: MarqueeFill, Opacity: 1,
		})
	}
	if ov.Frame != nil {
		f := *ov.Frame
		cmds = append(cmds, DrawCommand{
			Op: "frame", Transform: geometry.Translate(f.X, f.Y).ToSlice(),
			Width: f.Width, Height: f.Height, Opacity: 1,
		})
	}
	return cmds
}

func imageCommand(img document.ImageWidget, m geometry.Matrix2D) DrawCommand {
	cmd := DrawCommand{
		Op:        "image",
		WidgetID:  img.ID,
		Transform: m.ToSlice(),
		Width:     img.DrawW,
		Height:    img.DrawH,
		Src:       img.Src,
		Opacity:   img.Filters.Alpha,
	}
	if kinds := filter.Active(img.Filters); len(kinds) > 0 {
		f := img.Filters
		cmd.Filters = kinds
		cmd.FilterArgs = &f
		cmd.CacheRatio = filter.CacheRatio(float64(img.NaturalWidth), img.DrawW)
	}
	return cmd
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	if commands == nil {
		return "[]", nil
	}
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}

// RectToJSON serializes a Rect to JSON.
func RectToJSON(r geometry.Rect) string {
	data, _ := json.Marshal(r)
	return string(data)
}
