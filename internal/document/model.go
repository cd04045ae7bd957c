package document

// EditorTab is the active tool mode of the editor sidebar.
type EditorTab string

const (
	TabEnhance EditorTab = "enhance"
	TabCrop    EditorTab = "crop"
	TabType    EditorTab = "type"
	TabBrush   EditorTab = "brush"
	TabSticker EditorTab = "sticker"
)

// Valid reports whether t is one of the known tabs.
func (t EditorTab) Valid() bool {
	switch t {
	case TabEnhance, TabCrop, TabType, TabBrush, TabSticker:
		return true
	}
	return false
}

// Transform places a widget on the stage. Rotation is in degrees, clockwise.
type Transform struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	ScaleX   float64 `json:"scaleX"`
	ScaleY   float64 `json:"scaleY"`
	Rotation float64 `json:"rotation"`
}

// IdentityAt returns an unscaled, unrotated transform at (x, y).
func IdentityAt(x, y float64) Transform {
	return Transform{X: x, Y: y, ScaleX: 1, ScaleY: 1, Rotation: 0}
}

// TransformPatch is a partial transform. Nil fields keep their current value.
type TransformPatch struct {
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	ScaleX   *float64 `json:"scaleX,omitempty"`
	ScaleY   *float64 `json:"scaleY,omitempty"`
	Rotation *float64 `json:"rotation,omitempty"`
}

// Apply merges the patch onto t.
func (p TransformPatch) Apply(t Transform) Transform {
	if p.X != nil {
		t.X = *p.X
	}
	if p.Y != nil {
		t.Y = *p.Y
	}
	if p.ScaleX != nil {
		t.ScaleX = *p.ScaleX
	}
	if p.ScaleY != nil {
		t.ScaleY = *p.ScaleY
	}
	if p.Rotation != nil {
		t.Rotation = *p.Rotation
	}
	return t
}

// IsEmpty reports whether the patch changes nothing.
func (p TransformPatch) IsEmpty() bool {
	return p.X == nil && p.Y == nil && p.ScaleX == nil && p.ScaleY == nil && p.Rotation == nil
}

// Position is a shorthand patch for x and y.
func Position(x, y float64) TransformPatch {
	return TransformPatch{X: &x, Y: &y}
}

// Full is a patch setting every transform field.
func Full(t Transform) TransformPatch {
	return TransformPatch{X: &t.X, Y: &t.Y, ScaleX: &t.ScaleX, ScaleY: &t.ScaleY, Rotation: &t.Rotation}
}

// Crop is the active crop/resize rectangle in stage coordinates.
type Crop struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation"`
}

// Container is the last measured size of the element hosting the stage.
type Container struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Canvas holds the derived stage geometry.
type Canvas struct {
	StageW      float64 `json:"stageW"`
	StageH      float64 `json:"stageH"`
	StageScale  float64 `json:"stageScale"`
	StageScaleX float64 `json:"stageScaleX"`
	StageScaleY float64 `json:"stageScaleY"`
}
