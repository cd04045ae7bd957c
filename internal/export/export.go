// Package export crops, scales and encodes rendered stages into
// downloadable files.
package export

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/draw"

	"github.com/inamate/photoedit/internal/geometry"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported export format")
	ErrEmptyRegion       = errors.New("export region is empty")
)

// Format is an output MIME type.
type Format string

const (
	PNG  Format = "image/png"
	JPEG Format = "image/jpeg"
	WebP Format = "image/webp"
)

// DefaultLossyQuality is used for jpeg and webp when none is given.
const DefaultLossyQuality = 0.92

// ParseFormat accepts a MIME type or a bare extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "", "png", "image/png":
		return PNG, nil
	case "jpg", "jpeg", "image/jpeg":
		return JPEG, nil
	case "webp", "image/webp":
		return WebP, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Ext is the file extension: the MIME subtype.
func (f Format) Ext() string {
	_, sub, _ := strings.Cut(string(f), "/")
	return sub
}

// Filename is the download name, export.<ext>.
func (f Format) Filename() string {
	return "export." + f.Ext()
}

// Quality is 1 for png and the given lossy quality otherwise.
func (f Format) Quality(lossy float64) float64 {
	if f == PNG {
		return 1
	}
	if lossy <= 0 || lossy > 1 {
		return DefaultLossyQuality
	}
	return lossy
}

// PixelRatio makes the exported width equal naturalW*desiredScale however
// large the region is on screen. Degenerate inputs give 1.
func PixelRatio(naturalW, desiredScale, regionW float64) float64 {
	r := naturalW * desiredScale / regionW
	if r <= 0 || math.IsNaN(r) || math.IsInf(r, 0) {
		return 1
	}
	return r
}

// Options describe one export.
type Options struct {
	Format Format
	// Quality in (0, 1]; ignored for png.
	Quality float64
	// Region of the source to export, in source pixels at ratio 1.
	Region geometry.Rect
	// PixelRatio scales the region to the output size.
	PixelRatio float64
}

// Crop extracts opts.Region from src and resamples it by the pixel ratio.
func Crop(src image.Image, opts Options) (image.Image, error) {
	region := opts.Region
	if region.IsEmpty() {
		b := src.Bounds()
		region = geometry.Rect{X: float64(b.Min.X), Y: float64(b.Min.Y), Width: float64(b.Dx()), Height: float64(b.Dy())}
	}
	sr := image.Rect(
		int(math.Floor(region.X)), int(math.Floor(region.Y)),
		int(math.Ceil(region.X+region.Width)), int(math.Ceil(region.Y+region.Height)),
	).Intersect(src.Bounds())
	if sr.Empty() {
		return nil, ErrEmptyRegion
	}

	ratio := opts.PixelRatio
	if ratio <= 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		ratio = 1
	}
	w := max(1, int(math.Round(float64(sr.Dx())*ratio)))
	h := max(1, int(math.Round(float64(sr.Dy())*ratio)))

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	if w == sr.Dx() && h == sr.Dy() {
		draw.Copy(dst, image.Point{}, src, sr, draw.Src, nil)
		return dst, nil
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, sr, draw.Src, nil)
	return dst, nil
}

// Encode writes img in format f.
func Encode(w io.Writer, img image.Image, f Format, quality float64) error {
	var err error
	switch f {
	case PNG:
		err = png.Encode(w, img)
	case JPEG:
		q := int(math.Round(f.Quality(quality) * 100))
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: q})
	case WebP:
		err = nativewebp.Encode(w, img, nil)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", f.Ext(), err)
	}
	return nil
}

// Write crops, scales and encodes src in one step.
func Write(w io.Writer, src image.Image, opts Options) error {
	img, err := Crop(src, opts)
	if err != nil {
		return err
	}
	return Encode(w, img, opts.Format, opts.Quality)
}
