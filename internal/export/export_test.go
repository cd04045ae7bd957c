package export

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/inamate/photoedit/internal/geometry"
)

func checker(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			c := color.NRGBA{255, 0, 0, 255}
			if (x+y)%2 == 0 {
				c = color.NRGBA{0, 0, 255, 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in       string
		want     Format
		filename string
		wantErr  bool
	}{
		{"", PNG, "export.png", false},
		{"image/png", PNG, "export.png", false},
		{"jpg", JPEG, "export.jpeg", false},
		{"image/jpeg", JPEG, "export.jpeg", false},
		{".webp", WebP, "export.webp", false},
		{"image/gif", "", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnsupportedFormat) {
				t.Errorf("ParseFormat(%q) error = %v, want ErrUnsupportedFormat", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want || got.Filename() != tt.filename {
			t.Errorf("ParseFormat(%q) = %q (%s), %v, want %q (%s)", tt.in, got, got.Filename(), err, tt.want, tt.filename)
		}
	}
}

func TestQuality(t *testing.T) {
	if q := PNG.Quality(0.5); q != 1 {
		t.Errorf("PNG.Quality = %v, want 1", q)
	}
	if q := JPEG.Quality(0); q != DefaultLossyQuality {
		t.Errorf("JPEG.Quality(0) = %v, want %v", q, DefaultLossyQuality)
	}
	if q := WebP.Quality(0.5); q != 0.5 {
		t.Errorf("WebP.Quality(0.5) = %v, want 0.5", q)
	}
}

func TestPixelRatio(t *testing.T) {
	tests := []struct {
		name                    string
		natural, scale, regionW float64
		want                    float64
	}{
		{"downscaled stage", 1600, 1, 800, 2},
		{"double scale", 1600, 2, 800, 4},
		{"zero region", 1600, 1, 0, 1},
		{"no image", 0, 1, 800, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PixelRatio(tt.natural, tt.scale, tt.regionW); got != tt.want {
				t.Errorf("PixelRatio = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCrop(t *testing.T) {
	src := checker(100, 80)
	tests := []struct {
		name  string
		opts  Options
		wantW int
		wantH int
		err   error
	}{
		{"whole", Options{}, 100, 80, nil},
		{"region", Options{Region: geometry.Rect{X: 10, Y: 10, Width: 30, Height: 20}}, 30, 20, nil},
		{"scaled", Options{Region: geometry.Rect{Width: 50, Height: 40}, PixelRatio: 2}, 100, 80, nil},
		{"clipped", Options{Region: geometry.Rect{X: 90, Y: 70, Width: 50, Height: 50}}, 10, 10, nil},
		{"outside", Options{Region: geometry.Rect{X: 200, Y: 200, Width: 5, Height: 5}}, 0, 0, ErrEmptyRegion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Crop(src, tt.opts)
			if !errors.Is(err, tt.err) {
				t.Fatalf("Crop error = %v, want %v", err, tt.err)
			}
			if err != nil {
				return
			}
			if b := got.Bounds(); b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("size = %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.wantW, tt.wantH)
			}
		})
	}
}

func TestEncodeRoundTripsDimensions(t *testing.T) {
	src := checker(12, 7)
	for _, f := range []Format{PNG, JPEG, WebP} {
		t.Run(f.Ext(), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&buf, src, f, 0); err != nil {
				t.Fatalf("Encode: %v", err)
			}
			cfg, name, err := image.DecodeConfig(&buf)
			if err != nil {
				t.Fatalf("DecodeConfig: %v", err)
			}
			if name != f.Ext() || cfg.Width != 12 || cfg.Height != 7 {
				t.Errorf("decoded %s %dx%d, want %s 12x7", name, cfg.Width, cfg.Height, f.Ext())
			}
		})
	}
}

func TestEncodeUnsupported(t *testing.T) {
	err := Encode(&bytes.Buffer{}, checker(1, 1), "image/bmp", 1)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func upload(t *testing.T, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	fw, err := mw.CreateFormFile("image", "stage.png")
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(fw, checker(200, 100)); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/export/image", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandlerExportImage(t *testing.T) {
	h := NewHandler(10, 92)
	req := upload(t, map[string]string{
		"format": "image/jpeg", "x": "0", "y": "0", "width": "100", "height": "50",
		"naturalWidth": "400", "scale": "1",
	})
	rec := httptest.NewRecorder()
	h.ExportImage(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="export.jpeg"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if got := rec.Header().Get("Content-Type"); got != "image/jpeg" {
		t.Errorf("Content-Type = %q", got)
	}
	cfg, _, err := image.DecodeConfig(rec.Body)
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	// pixel ratio 400/100 = 4
	if cfg.Width != 400 || cfg.Height != 200 {
		t.Errorf("exported %dx%d, want 400x200", cfg.Width, cfg.Height)
	}
}

func TestHandlerRejectsBadFormat(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler(10, 92).ExportImage(rec, upload(t, map[string]string{"format": "gif"}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
