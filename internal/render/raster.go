package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"

	"github.com/fogleman/gg"

	"github.com/inamate/photoedit/internal/document"
	"github.com/inamate/photoedit/internal/filter"
	"github.com/inamate/photoedit/internal/geometry"
	"github.com/inamate/photoedit/internal/store"
)

var (
	black     = color.NRGBA{0, 0, 0, 255}
	guideRGBA = color.NRGBA{0, 161, 255, 255}
)

// PaintOptions selects the stage region to paint and the output density.
type PaintOptions struct {
	// Region in stage coordinates. Empty means the whole stage.
	Region geometry.Rect
	// PixelRatio multiplies the output size. Non-positive means 1.
	PixelRatio float64
	// Guides also paints the current snapping guides.
	Guides bool
}

// Raster paints snapshots into bitmaps with gg.
type Raster struct {
	fonts *FontBook
}

func NewRaster(fonts *FontBook) *Raster {
	return &Raster{fonts: fonts}
}

// Paint draws the background, root image and widgets of st. Live node
// transforms in scene take precedence over stored ones; scene may be nil.
func (r *Raster) Paint(st store.State, scene *Scene, opts PaintOptions) image.Image {
	region := opts.Region
	if region.IsEmpty() {
		region = geometry.Rect{Width: st.Canvas.StageW, Height: st.Canvas.StageH}
	}
	ratio := opts.PixelRatio
	if ratio <= 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		ratio = 1
	}

	w := max(1, int(math.Round(region.Width*ratio)))
	h := max(1, int(math.Round(region.Height*ratio)))
	dc := gg.NewContext(w, h)
	dc.Scale(ratio, ratio)
	dc.Translate(-region.X, -region.Y)

	if st.BackgroundColor != nil {
		dc.SetColor(colorOr(*st.BackgroundColor, color.NRGBA{}))
		dc.DrawRectangle(0, 0, st.Canvas.StageW, st.Canvas.StageH)
		dc.Fill()
	}

	if st.RootImage != nil {
		root := *st.RootImage
		root.Transform = document.IdentityAt(0, 0)
		if st.FrameCrop != nil {
			root.Transform = document.IdentityAt(-st.FrameCrop.X, -st.FrameCrop.Y)
		}
		r.drawImage(dc, root)
	}

	r.fonts.Lock()
	defer r.fonts.Unlock()

	for _, wd := range st.Widgets {
		if scene != nil {
			if n, ok := scene.Node(wd.WidgetID()); ok {
				wd = wd.WithTransform(n.Transform())
			}
		}
		switch v := wd.(type) {
		case document.ImageWidget:
			r.drawImage(dc, v)
		case document.TextWidget:
			r.drawText(dc, v)
		case document.StickerWidget:
		}
	}

	if opts.Guides && scene != nil {
		dc.SetColor(guideRGBA)
		dc.SetLineWidth(1)
		dc.SetDash(4, 6)
		for _, g := range scene.Guides() {
			p := g.Segment().Points
			dc.DrawLine(p[0], p[1], p[2], p[3])
			dc.Stroke()
		}
		dc.SetDash()
	}

	return dc.Image()
}

func place(dc *gg.Context, t document.Transform) {
	dc.Translate(t.X, t.Y)
	dc.Rotate(gg.Radians(t.Rotation))
	dc.Scale(t.ScaleX, t.ScaleY)
}

func (r *Raster) drawImage(dc *gg.Context, img document.ImageWidget) {
	if img.Img == nil || img.DrawW <= 0 || img.DrawH <= 0 {
		return
	}
	b := img.Img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return
	}

	src := filter.Apply(img.Img, img.Filters)
	if a := img.Filters.Alpha; a < 1 {
		src = fade(src, a)
	}

	dc.Push()
	defer dc.Pop()
	place(dc, img.Transform)
	dc.Scale(img.DrawW/float64(b.Dx()), img.DrawH/float64(b.Dy()))
	dc.DrawImage(src, -b.Min.X, -b.Min.Y)
}

// fade multiplies src's alpha by a.
func fade(src image.Image, a float64) image.Image {
	a = max(0, a)
	dst := image.NewNRGBA(src.Bounds())
	mask := image.NewUniform(color.Alpha{A: uint8(a*255 + 0.5)})
	draw.DrawMask(dst, dst.Bounds(), src, src.Bounds().Min, mask, image.Point{}, draw.Over)
	return dst
}

func (r *Raster) drawText(dc *gg.Context, t document.TextWidget) {
	if t.Text == "" {
		return
	}
	face := r.fonts.faceLocked(t)
	size := fontSize(t)
	lines := strings.Split(t.Text, "\n")

	dc.Push()
	defer dc.Pop()
	place(dc, t.Transform)
	dc.SetFontFace(face)

	var blockW float64
	for _, line := range lines {
		lw, _ := dc.MeasureString(line)
		blockW = max(blockW, lw)
	}

	// draw each line with its top at i*size, aligned within the block
	each := func(dx, dy float64, fn func(line string, x, baseline, width float64)) {
		for i, line := range lines {
			lw, _ := dc.MeasureString(line)
			x := dx
			switch t.Align {
			case document.AlignCenter:
				x += (blockW - lw) / 2
			case document.AlignRight:
				x += blockW - lw
			}
			fn(line, x, dy+float64(i)*size+size*0.8, lw)
		}
	}

	if t.ShadowEnabled {
		dc.SetColor(colorOr(t.ShadowColor, black))
		each(t.ShadowOffsetX, t.ShadowOffsetY, func(line string, x, y, _ float64) {
			dc.DrawString(line, x, y)
		})
	}

	if t.StrokeWidth > 0 && t.StrokeColor != "" {
		dc.SetColor(colorOr(t.StrokeColor, black))
		sw := t.StrokeWidth
		for _, o := range [][2]float64{{-sw, 0}, {sw, 0}, {0, -sw}, {0, sw}, {-sw, -sw}, {sw, sw}, {-sw, sw}, {sw, -sw}} {
			each(o[0], o[1], func(line string, x, y, _ float64) {
				dc.DrawString(line, x, y)
			})
		}
	}

	fill := colorOr(t.Fill, black)
	dc.SetColor(fill)
	each(0, 0, func(line string, x, y, width float64) {
		dc.DrawString(line, x, y)
		switch t.TextDecoration {
		case document.DecorationUnderline:
			dc.SetLineWidth(max(1, size/15))
			dc.DrawLine(x, y+size*0.1, x+width, y+size*0.1)
			dc.Stroke()
		case document.DecorationLineThrough:
			dc.SetLineWidth(max(1, size/15))
			dc.DrawLine(x, y-size*0.3, x+width, y-size*0.3)
			dc.Stroke()
		}
	})
}
