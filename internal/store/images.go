package store

import (
	"context"
	"fmt"
	"image"

	"github.com/inamate/photoedit/internal/document"
	"github.com/inamate/photoedit/internal/geometry"
	"github.com/inamate/photoedit/internal/typeid"
)

// decode fetches and decodes url without holding the store lock. Blob urls
// are released as soon as their image has been decoded.
func (s *Store) decode(ctx context.Context, url string) (image.Image, error) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if s.loader == nil {
		return nil, fmt.Errorf("%w: no image loader configured", ErrDecode)
	}

	img, err := s.loader.Load(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if img == nil {
		return nil, fmt.Errorf("%w: loader returned no image", ErrDecode)
	}
	s.release(url)
	return img, nil
}

func (s *Store) release(url string) {
	if r, ok := s.loader.(Releaser); ok && r.Owns(url) {
		r.Release(url)
	}
}

// AddImageWidget decodes the image at url and adds it as an overlay widget,
// sized at half the stage scale and centered on the stage. Decode failures
// are logged and leave the store untouched.
func (s *Store) AddImageWidget(ctx context.Context, url string) (string, error) {
	img, err := s.decode(ctx, url)
	if err != nil {
		s.logger().Error("load image", "url", url, "error", err)
		return "", err
	}
	return s.insertImage(url, img)
}

// insertImage commits an already decoded overlay image.
func (s *Store) insertImage(url string, img image.Image) (string, error) {
	natW := float64(img.Bounds().Dx())
	natH := float64(img.Bounds().Dy())

	var id string
	var closed bool
	s.commit(func() bool {
		if s.closed {
			closed = true
			return false
		}
		pads := geometry.ComputeCropPads(s.activeTab, s.canvas.StageScaleX, s.canvas.StageScaleY)
		size := geometry.ComputeOverlayDimensions(natW, natH, s.canvas.StageScale, pads.X, pads.Y)

		w := document.ImageWidget{
			Src:           url,
			Img:           img,
			NaturalWidth:  img.Bounds().Dx(),
			NaturalHeight: img.Bounds().Dy(),
			DrawW:         size.W,
			DrawH:         size.H,
			Filters:       document.DefaultFilters(),
		}
		id = s.addLocked(w, document.Position(
			(s.canvas.StageW-size.W)/2,
			(s.canvas.StageH-size.H)/2,
		))
		return true
	})
	if closed {
		return "", ErrClosed
	}

	s.logger().Debug("image widget added", "id", id, "width", natW, "height", natH)
	return id, nil
}

// LoadRootImage decodes the image at url and makes it the background image
// that drives the stage geometry. An existing root image is replaced.
func (s *Store) LoadRootImage(ctx context.Context, url string) (string, error) {
	img, err := s.decode(ctx, url)
	if err != nil {
		s.logger().Error("load root image", "url", url, "error", err)
		return "", err
	}
	return s.installRoot(url, img)
}

// installRoot commits an already decoded root image.
func (s *Store) installRoot(url string, img image.Image) (string, error) {
	var id string
	var closed bool
	s.commit(func() bool {
		if s.closed {
			closed = true
			return false
		}
		id = typeid.NewImageID()
		s.root = &document.ImageWidget{
			ID:            id,
			Transform:     document.IdentityAt(0, 0),
			Src:           url,
			Img:           img,
			NaturalWidth:  img.Bounds().Dx(),
			NaturalHeight: img.Bounds().Dy(),
			Filters:       document.DefaultFilters(),
		}
		s.resizeLocked()
		return true
	})
	if closed {
		return "", ErrClosed
	}
	return id, nil
}

// RootImage returns a copy of the root image, if one is loaded.
func (s *Store) RootImage() (document.ImageWidget, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.root == nil {
		return document.ImageWidget{}, false
	}
	return *s.root, true
}

// HandleResize re-derives stage geometry and image draw sizes from the
// container, the root image and the active tab.
func (s *Store) HandleResize() {
	s.commit(func() bool {
		s.resizeLocked()
		return true
	})
}

func (s *Store) resizeLocked() {
	if s.root != nil {
		scales := geometry.ComputeStageScales(
			s.container.Width, s.container.Height,
			float64(s.root.NaturalWidth), float64(s.root.NaturalHeight),
		)
		pads := geometry.ComputeCropPads(s.activeTab, scales.X, scales.Y)
		dims := geometry.ComputeRootDimensions(
			float64(s.root.NaturalWidth), float64(s.root.NaturalHeight),
			scales.Uniform, pads.X, pads.Y,
		)

		s.canvas = document.Canvas{
			StageW:      dims.StageW,
			StageH:      dims.StageH,
			StageScale:  scales.Uniform,
			StageScaleX: scales.X,
			StageScaleY: scales.Y,
		}
		s.root.DrawW = dims.DrawW
		s.root.DrawH = dims.DrawH
	}

	if s.frameCrop != nil {
		s.canvas.StageW = s.frameCrop.Width
		s.canvas.StageH = s.frameCrop.Height
	}

	pads := geometry.ComputeCropPads(s.activeTab, s.canvas.StageScaleX, s.canvas.StageScaleY)
	for i, w := range s.widgets {
		img, ok := w.(document.ImageWidget)
		if !ok || img.NaturalWidth == 0 || img.NaturalHeight == 0 {
			continue
		}
		size := geometry.ComputeOverlayDimensions(
			float64(img.NaturalWidth), float64(img.NaturalHeight),
			s.canvas.StageScale, pads.X, pads.Y,
		)
		img.DrawW, img.DrawH = size.W, size.H
		s.widgets[i] = img
	}
}
