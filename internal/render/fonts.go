package render

import (
	"fmt"
	"strings"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/inamate/photoedit/internal/document"
)

// DefaultFontSize is used for text widgets without a size.
const DefaultFontSize = 12

type faceKey struct {
	mono  bool
	style document.FontStyle
	size  float64
}

// FontBook resolves text widgets to font faces. Browser font families are
// mapped onto the Go fonts: monospace families to Go Mono, everything else
// to Go sans.
type FontBook struct {
	mu    sync.Mutex
	fonts map[string]*truetype.Font
	faces map[faceKey]font.Face
}

func NewFontBook() (*FontBook, error) {
	fb := &FontBook{
		fonts: make(map[string]*truetype.Font),
		faces: make(map[faceKey]font.Face),
	}
	sources := map[string][]byte{
		"regular":    goregular.TTF,
		"bold":       gobold.TTF,
		"italic":     goitalic.TTF,
		"bolditalic": gobolditalic.TTF,
		"mono":       gomono.TTF,
		"mono-bold":  gomonobold.TTF,
	}
	for name, data := range sources {
		f, err := truetype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parse font %s: %w", name, err)
		}
		fb.fonts[name] = f
	}
	return fb, nil
}

func isMono(family string) bool {
	family = strings.ToLower(family)
	return strings.Contains(family, "mono") || strings.Contains(family, "courier")
}

func fontSize(w document.TextWidget) float64 {
	if w.FontSize <= 0 {
		return DefaultFontSize
	}
	return w.FontSize
}

// Face returns the face for w, cached per family class, style and size.
// Faces are not safe for concurrent use; callers drawing with one must hold
// the book via Lock.
func (fb *FontBook) Face(w document.TextWidget) font.Face {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.faceLocked(w)
}

// Lock serializes use of the faces handed out by the book.
func (fb *FontBook) Lock()   { fb.mu.Lock() }
func (fb *FontBook) Unlock() { fb.mu.Unlock() }

func (fb *FontBook) faceLocked(w document.TextWidget) font.Face {
	key := faceKey{mono: isMono(w.FontFamily), style: w.FontStyle, size: fontSize(w)}
	if f, ok := fb.faces[key]; ok {
		return f
	}

	name := "regular"
	switch {
	case key.mono && (key.style == document.FontBold || key.style == document.FontItalicBold):
		name = "mono-bold"
	case key.mono:
		name = "mono"
	case key.style == document.FontBold:
		name = "bold"
	case key.style == document.FontItalic:
		name = "italic"
	case key.style == document.FontItalicBold:
		name = "bolditalic"
	}

	face := truetype.NewFace(fb.fonts[name], &truetype.Options{
		Size:    key.size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	fb.faces[key] = face
	return face
}

// MeasureText returns the block size of w: the widest line by the number of
// lines at one font size per line.
func (fb *FontBook) MeasureText(w document.TextWidget) (float64, float64) {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	face := fb.faceLocked(w)
	lines := strings.Split(w.Text, "\n")
	var width float64
	for _, line := range lines {
		adv := font.MeasureString(face, line)
		width = max(width, float64(adv)/64)
	}
	return width, float64(len(lines)) * fontSize(w)
}
