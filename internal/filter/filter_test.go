package filter

import (
	"image"
	"image/color"
	"slices"
	"testing"

	"github.com/inamate/photoedit/internal/document"
)

func TestActive(t *testing.T) {
	tests := []struct {
		name  string
		patch func(f *document.FiltersState)
		want  []Kind
	}{
		{"defaults", func(f *document.FiltersState) {}, nil},
		{"blur", func(f *document.FiltersState) { f.BlurRadius = 3 }, []Kind{Blur}},
		{"pixel size below one", func(f *document.FiltersState) { f.PixelSize = 0.5 }, nil},
		{"pixelate", func(f *document.FiltersState) { f.PixelSize = 4 }, []Kind{Pixelate}},
		{"rgb", func(f *document.FiltersState) { f.Green = 10 }, []Kind{RGB}},
		{"hue only picks hsl", func(f *document.FiltersState) { f.Hue = 30 }, []Kind{HSL}},
		{"luminance picks hsl", func(f *document.FiltersState) { f.Luminance = 0.2 }, []Kind{HSL}},
		{"value wins over hsl", func(f *document.FiltersState) {
			f.Value = 1
			f.Luminance = 0.2
			f.Saturation = 1
		}, []Kind{HSV}},
		{"order", func(f *document.FiltersState) {
			f.Threshold = 0.5
			f.Brightness = 0.1
			f.Noise = 0.2
		}, []Kind{Brighten, Noise, Threshold}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := document.DefaultFilters()
			tt.patch(&f)
			if got := Active(f); !slices.Equal(got, tt.want) {
				t.Errorf("Active = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestActiveNeverBothHSLAndHSV(t *testing.T) {
	for _, v := range []float64{0, 1} {
		for _, l := range []float64{0, 0.5} {
			for _, h := range []float64{0, 90} {
				f := document.FiltersState{Value: v, Luminance: l, Hue: h}
				kinds := Active(f)
				if slices.Contains(kinds, HSL) && slices.Contains(kinds, HSV) {
					t.Errorf("Active(%+v) = %v, has both HSL and HSV", f, kinds)
				}
			}
		}
	}
}

func TestCacheRatio(t *testing.T) {
	tests := []struct {
		natural, draw, want float64
	}{
		{1000, 500, 1},
		{100, 150, 1.5},
		{100, 900, 2},
		{0, 0, 1},
		{200, 0, 1},
	}
	for _, tt := range tests {
		if got := CacheRatio(tt.natural, tt.draw); got != tt.want {
			t.Errorf("CacheRatio(%v, %v) = %v, want %v", tt.natural, tt.draw, got, tt.want)
		}
	}
}

func solid(c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := range 4 {
		for x := range 4 {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestApplyNoFiltersReturnsSource(t *testing.T) {
	src := solid(color.NRGBA{10, 20, 30, 255})
	if got := Apply(src, document.DefaultFilters()); got != image.Image(src) {
		t.Error("Apply with neutral filters copied the image")
	}
}

func TestApplyThreshold(t *testing.T) {
	src := solid(color.NRGBA{200, 200, 200, 255})
	f := document.DefaultFilters()
	f.Threshold = 0.5

	out := Apply(src, f)
	r, g, b, _ := out.At(1, 1).RGBA()
	if r != 0xffff || g != 0xffff || b != 0xffff {
		t.Errorf("pixel = %d,%d,%d, want white", r>>8, g>>8, b>>8)
	}
}

func TestApplyRGBTintsByLuminance(t *testing.T) {
	src := solid(color.NRGBA{255, 255, 255, 255})
	f := document.DefaultFilters()
	f.Red = 255

	out := Apply(src, f)
	c := color.NRGBAModel.Convert(out.At(0, 0)).(color.NRGBA)
	if c.R != 255 || c.G != 0 || c.B != 0 {
		t.Errorf("pixel = %+v, want pure red", c)
	}
}

func TestApplyKeepsBounds(t *testing.T) {
	src := solid(color.NRGBA{90, 120, 150, 255})
	f := document.DefaultFilters()
	f.BlurRadius = 2
	f.Enhance = 0.5
	f.Hue = 45

	out := Apply(src, f)
	if out.Bounds() != src.Bounds() {
		t.Errorf("bounds = %v, want %v", out.Bounds(), src.Bounds())
	}
}

func TestEnhanceStretchesRange(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, color.NRGBA{100, 100, 100, 255})
	src.SetNRGBA(1, 0, color.NRGBA{150, 150, 150, 255})
	f := document.DefaultFilters()
	f.Enhance = 1

	out := Apply(src, f)
	dark := color.NRGBAModel.Convert(out.At(0, 0)).(color.NRGBA)
	light := color.NRGBAModel.Convert(out.At(1, 0)).(color.NRGBA)
	if dark.R > 1 || light.R < 254 {
		t.Errorf("stretched = %d..%d, want 0..255", dark.R, light.R)
	}
}
