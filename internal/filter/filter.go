// Package filter resolves which image filters are active for a FiltersState
// and applies them to bitmaps with gift.
package filter

import (
	"image"
	"image/draw"
	"math"
	"math/rand/v2"

	"github.com/disintegration/gift"

	"github.com/inamate/photoedit/internal/document"
)

// Kind names a single pixel filter.
type Kind string

const (
	Blur      Kind = "blur"
	Brighten  Kind = "brighten"
	Contrast  Kind = "contrast"
	Enhance   Kind = "enhance"
	Noise     Kind = "noise"
	Pixelate  Kind = "pixelate"
	Threshold Kind = "threshold"
	RGB       Kind = "rgb"
	HSL       Kind = "hsl"
	HSV       Kind = "hsv"
)

// Active lists the filters f turns on, in application order. HSL and HSV are
// never both active: a non-zero value selects HSV, otherwise any hue,
// saturation or luminance change selects HSL.
func Active(f document.FiltersState) []Kind {
	var kinds []Kind
	if f.BlurRadius > 0 {
		kinds = append(kinds, Blur)
	}
	if f.Brightness != 0 {
		kinds = append(kinds, Brighten)
	}
	if f.Contrast != 0 {
		kinds = append(kinds, Contrast)
	}
	if f.Enhance > 0 {
		kinds = append(kinds, Enhance)
	}
	if f.Noise > 0 {
		kinds = append(kinds, Noise)
	}
	if f.PixelSize >= 1 {
		kinds = append(kinds, Pixelate)
	}
	if f.Threshold > 0 {
		kinds = append(kinds, Threshold)
	}
	if f.Red != 0 || f.Green != 0 || f.Blue != 0 {
		kinds = append(kinds, RGB)
	}

	hueSat := f.Hue != 0 || f.Saturation != 0
	useHSV := f.Value != 0
	switch {
	case !useHSV && (f.Luminance != 0 || hueSat):
		kinds = append(kinds, HSL)
	case useHSV:
		kinds = append(kinds, HSV)
	}
	return kinds
}

// CacheRatio is the pixel ratio filtered bitmaps are rendered at: the draw
// to natural width ratio, kept within [1, 2].
func CacheRatio(naturalW, drawW float64) float64 {
	if naturalW <= 0 {
		naturalW = 1
	}
	if drawW <= 0 {
		drawW = naturalW
	}
	return min(2, max(1, drawW/naturalW))
}

// Chain builds the gift pipeline for the active filters of f.
func Chain(f document.FiltersState) *gift.GIFT {
	g := gift.New()
	for _, k := range Active(f) {
		g.Add(filtersFor(k, f)...)
	}
	return g
}

func filtersFor(k Kind, f document.FiltersState) []gift.Filter {
	switch k {
	case Blur:
		return []gift.Filter{gift.GaussianBlur(float32(f.BlurRadius / 2))}
	case Brighten:
		return []gift.Filter{gift.Brightness(float32(f.Brightness * 100))}
	case Contrast:
		return []gift.Filter{gift.Contrast(float32(f.Contrast))}
	case Enhance:
		return []gift.Filter{enhance{amount: f.Enhance}}
	case Noise:
		half := float32(f.Noise / 2)
		return []gift.Filter{gift.ColorFunc(func(r, g, b, a float32) (float32, float32, float32, float32) {
			jitter := func() float32 { return half - 2*half*rand.Float32() }
			return r + jitter(), g + jitter(), b + jitter(), a
		})}
	case Pixelate:
		return []gift.Filter{gift.Pixelate(int(math.Floor(f.PixelSize)))}
	case Threshold:
		return []gift.Filter{gift.Threshold(float32(f.Threshold * 100))}
	case RGB:
		red, green, blue := float32(f.Red/255), float32(f.Green/255), float32(f.Blue/255)
		return []gift.Filter{gift.ColorFunc(func(r, g, b, a float32) (float32, float32, float32, float32) {
			lum := 0.34*r + 0.5*g + 0.16*b
			return lum * red, lum * green, lum * blue, a
		})}
	case HSL:
		return []gift.Filter{
			gift.Hue(float32(f.Hue)),
			gift.Saturation(saturationPercent(f.Saturation)),
			gift.Brightness(float32(f.Luminance * 100)),
		}
	case HSV:
		v := float32(math.Pow(2, f.Value))
		return []gift.Filter{
			gift.Hue(float32(f.Hue)),
			gift.Saturation(saturationPercent(f.Saturation)),
			gift.ColorFunc(func(r, g, b, a float32) (float32, float32, float32, float32) {
				return r * v, g * v, b * v, a
			}),
		}
	}
	return nil
}

// Saturation is an exponent: each step doubles or halves it.
func saturationPercent(s float64) float32 {
	return float32((math.Pow(2, s) - 1) * 100)
}

// Apply runs the active filters of f over src. src is returned as is when no
// filter is active.
func Apply(src image.Image, f document.FiltersState) image.Image {
	if len(Active(f)) == 0 {
		return src
	}
	g := Chain(f)
	dst := image.NewNRGBA(g.Bounds(src.Bounds()))
	g.Draw(dst, src)
	return dst
}

// enhance stretches each channel's range towards the full [0, 1] interval.
type enhance struct {
	amount float64
}

func (e enhance) Bounds(srcBounds image.Rectangle) image.Rectangle {
	return image.Rect(0, 0, srcBounds.Dx(), srcBounds.Dy())
}

func (e enhance) Draw(dst draw.Image, src image.Image, options *gift.Options) {
	b := src.Bounds()
	lo := [3]float64{math.MaxFloat64, math.MaxFloat64, math.MaxFloat64}
	hi := [3]float64{-math.MaxFloat64, -math.MaxFloat64, -math.MaxFloat64}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := src.At(x, y).RGBA()
			for i, v := range [3]uint32{r, g, bl} {
				f := float64(v) / 0xffff
				lo[i] = min(lo[i], f)
				hi[i] = max(hi[i], f)
			}
		}
	}

	var scale, offset [3]float32
	for i := range 3 {
		goalHi := hi[i] + (1-hi[i])*e.amount
		goalLo := lo[i] - lo[i]*e.amount
		span := hi[i] - lo[i]
		if span <= 0 {
			scale[i], offset[i] = 1, 0
			continue
		}
		s := (goalHi - goalLo) / span
		scale[i] = float32(s)
		offset[i] = float32(goalLo - lo[i]*s)
	}

	gift.ColorFunc(func(r, g, b, a float32) (float32, float32, float32, float32) {
		return r*scale[0] + offset[0], g*scale[1] + offset[1], b*scale[2] + offset[2], a
	}).Draw(dst, src, options)
}
