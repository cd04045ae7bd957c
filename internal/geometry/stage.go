package geometry

import (
	"math"

	"github.com/inamate/photoedit/internal/document"
)

// CropSize is the padding band reserved around the stage while the crop tab
// is active, before scaling.
const CropSize = 30

// StageScales holds the per-axis fit factors and the uniform scale that
// preserves aspect ratio.
type StageScales struct {
	X       float64 `json:"stageScaleX"`
	Y       float64 `json:"stageScaleY"`
	Uniform float64 `json:"stageScale"`
}

// CropPads are the padding terms subtracted from stage dimensions.
type CropPads struct {
	X float64 `json:"cropPadX"`
	Y float64 `json:"cropPadY"`
}

// RootDimensions are the stage and draw sizes derived for the root image.
type RootDimensions struct {
	StageW float64 `json:"stageW"`
	StageH float64 `json:"stageH"`
	DrawW  float64 `json:"drawW"`
	DrawH  float64 `json:"drawH"`
}

// DrawSize is the on-stage rendered size of an image.
type DrawSize struct {
	W float64 `json:"drawW"`
	H float64 `json:"drawH"`
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// ComputeStageScale returns how much the content has to be scaled to fit the
// container while keeping its aspect ratio. Any non-positive input yields 1.
func ComputeStageScale(containerW, containerH, contentW, contentH float64) float64 {
	return ComputeStageScales(containerW, containerH, contentW, contentH).Uniform
}

// ComputeStageScales is ComputeStageScale with the per-axis factors kept.
func ComputeStageScales(containerW, containerH, contentW, contentH float64) StageScales {
	if !positive(containerW) || !positive(containerH) || !positive(contentW) || !positive(contentH) {
		return StageScales{X: 1, Y: 1, Uniform: 1}
	}

	sx := containerW / contentW
	sy := containerH / contentH
	return StageScales{X: sx, Y: sy, Uniform: min(sx, sy)}
}

// ComputeCropPads reserves a CropSize band scaled per axis while the crop tab
// is active, and no padding otherwise.
func ComputeCropPads(tab document.EditorTab, scaleX, scaleY float64) CropPads {
	if tab != document.TabCrop {
		return CropPads{}
	}
	return CropPads{X: finite(CropSize * scaleX), Y: finite(CropSize * scaleY)}
}

// ComputeRootDimensions derives the stage size from the root image. The
// horizontal size is reduced by the vertical pad and vice versa, since the
// pad is applied on the perpendicular edges.
func ComputeRootDimensions(imgW, imgH, stageScale, cropPadX, cropPadY float64) RootDimensions {
	stageW := finite(imgW*stageScale - cropPadY)
	stageH := finite(imgH*stageScale - cropPadX)
	return RootDimensions{StageW: stageW, StageH: stageH, DrawW: stageW, DrawH: stageH}
}

// ComputeOverlayDimensions sizes secondary images at half the root scale so
// they start small instead of covering the canvas.
func ComputeOverlayDimensions(imgW, imgH, stageScale, cropPadX, cropPadY float64) DrawSize {
	half := stageScale / 2
	return DrawSize{
		W: finite(imgW*half - cropPadY),
		H: finite(imgH*half - cropPadX),
	}
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
