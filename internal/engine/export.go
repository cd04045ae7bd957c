package engine

import (
	"fmt"
	"io"

	"github.com/inamate/photoedit/internal/export"
	"github.com/inamate/photoedit/internal/geometry"
	"github.com/inamate/photoedit/internal/render"
)

// ExportRequest selects the output of an export.
type ExportRequest struct {
	// Format is a MIME type or extension; empty means png.
	Format string `json:"format"`
	// Scale is the desired output size relative to the root image's natural
	// width. Non-positive means 1.
	Scale   float64 `json:"scale"`
	Quality float64 `json:"quality,omitempty"`
}

// Export paints the stage region covered by the crop, or the whole stage,
// and encodes it to w. Overlays and guides are not painted. It returns the
// download filename.
func (e *Engine) Export(w io.Writer, req ExportRequest) (string, error) {
	f, err := export.ParseFormat(req.Format)
	if err != nil {
		return "", err
	}
	scale := req.Scale
	if scale <= 0 {
		scale = 1
	}

	e.mu.Lock()
	e.refresh()
	st := e.store.Snapshot()
	region := geometry.Rect{Width: st.Canvas.StageW, Height: st.Canvas.StageH}
	if st.FrameCrop != nil {
		region.Width, region.Height = st.FrameCrop.Width, st.FrameCrop.Height
	}
	if region.IsEmpty() {
		e.mu.Unlock()
		return "", export.ErrEmptyRegion
	}

	naturalW := region.Width
	if st.RootImage != nil && st.RootImage.NaturalWidth > 0 {
		naturalW = float64(st.RootImage.NaturalWidth)
	}
	img := e.raster.Paint(st, e.scene, render.PaintOptions{
		Region:     region,
		PixelRatio: export.PixelRatio(naturalW, scale, region.Width),
	})
	e.mu.Unlock()

	quality := req.Quality
	if quality <= 0 {
		quality = e.lossyQuality
	}
	if err := export.Encode(w, img, f, f.Quality(quality)); err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	return f.Filename(), nil
}
