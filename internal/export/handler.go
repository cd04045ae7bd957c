package export

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"net/http"
	"strconv"

	_ "golang.org/x/image/webp"

	"github.com/inamate/photoedit/internal/geometry"
	"github.com/inamate/photoedit/internal/typeid"
)

// Handler re-encodes canvases rendered in the browser: it crops the uploaded
// stage to the requested region, scales it by the pixel ratio and streams it
// back as an attachment.
type Handler struct {
	maxUpload    int64
	lossyQuality float64
}

// NewHandler creates a handler accepting uploads up to maxUploadMB and using
// jpegQuality (1..100) as the default lossy quality.
func NewHandler(maxUploadMB int64, jpegQuality int) *Handler {
	q := float64(jpegQuality) / 100
	if q <= 0 || q > 1 {
		q = DefaultLossyQuality
	}
	return &Handler{maxUpload: maxUploadMB << 20, lossyQuality: q}
}

func (h *Handler) ExportImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		http.Error(w, "request too large", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	format, err := ParseFormat(r.FormValue("format"))
	if err != nil {
		http.Error(w, "invalid format: must be png, jpeg, or webp", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "no image uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	src, _, err := image.Decode(file)
	if err != nil {
		slog.Warn("decode uploaded canvas", "error", err)
		http.Error(w, "invalid image", http.StatusBadRequest)
		return
	}

	region := geometry.Rect{
		X:      formFloat(r, "x", 0),
		Y:      formFloat(r, "y", 0),
		Width:  formFloat(r, "width", 0),
		Height: formFloat(r, "height", 0),
	}
	regionW := region.Width
	if regionW <= 0 {
		regionW = float64(src.Bounds().Dx())
	}
	ratio := PixelRatio(formFloat(r, "naturalWidth", 0), formFloat(r, "scale", 1), regionW)

	quality := formFloat(r, "quality", 0)
	if quality <= 0 {
		quality = h.lossyQuality
	}

	var buf bytes.Buffer
	err = Write(&buf, src, Options{Format: format, Quality: quality, Region: region, PixelRatio: ratio})
	if errors.Is(err, ErrEmptyRegion) {
		http.Error(w, "export region is outside the canvas", http.StatusBadRequest)
		return
	}
	if err != nil {
		slog.Error("export image", "format", format, "error", err)
		http.Error(w, "encoding failed", http.StatusInternalServerError)
		return
	}

	exportID := typeid.NewExportID()
	w.Header().Set("Content-Type", string(format))
	w.Header().Set("X-Export-Id", exportID)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, format.Filename()))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("write export response", "error", err)
		return
	}

	slog.Info("export complete", "id", exportID, "format", format, "size", buf.Len(), "pixelRatio", ratio)
}

func formFloat(r *http.Request, key string, def float64) float64 {
	v, err := strconv.ParseFloat(r.FormValue(key), 64)
	if err != nil {
		return def
	}
	return v
}
