package document

// FiltersState holds the per-image filter parameters. Zero means neutral for
// every field except Alpha, whose neutral value is 1.
type FiltersState struct {
	BlurRadius float64 `json:"blurRadius"` // >= 0
	Brightness float64 `json:"brightness"` // -1..1
	Contrast   float64 `json:"contrast"`   // -100..100
	Enhance    float64 `json:"enhance"`    // 0..1
	Noise      float64 `json:"noise"`      // 0..1
	PixelSize  float64 `json:"pixelSize"`  // >= 0
	Threshold  float64 `json:"threshold"`  // 0..1
	Red        float64 `json:"red"`        // 0..255
	Green      float64 `json:"green"`      // 0..255
	Blue       float64 `json:"blue"`       // 0..255
	Alpha      float64 `json:"alpha"`      // 0..1
	Hue        float64 `json:"hue"`        // -180..180
	Saturation float64 `json:"saturation"` // -2..2
	Luminance  float64 `json:"luminance"`  // -1..1
	Value      float64 `json:"value"`      // 0..10
}

// DefaultFilters returns the neutral filter set.
func DefaultFilters() FiltersState {
	return FiltersState{Alpha: 1}
}

// FiltersPatch is a partial filter update. Nil fields keep their current value.
type FiltersPatch struct {
	BlurRadius *float64 `json:"blurRadius,omitempty"`
	Brightness *float64 `json:"brightness,omitempty"`
	Contrast   *float64 `json:"contrast,omitempty"`
	Enhance    *float64 `json:"enhance,omitempty"`
	Noise      *float64 `json:"noise,omitempty"`
	PixelSize  *float64 `json:"pixelSize,omitempty"`
	Threshold  *float64 `json:"threshold,omitempty"`
	Red        *float64 `json:"red,omitempty"`
	Green      *float64 `json:"green,omitempty"`
	Blue       *float64 `json:"blue,omitempty"`
	Alpha      *float64 `json:"alpha,omitempty"`
	Hue        *float64 `json:"hue,omitempty"`
	Saturation *float64 `json:"saturation,omitempty"`
	Luminance  *float64 `json:"luminance,omitempty"`
	Value      *float64 `json:"value,omitempty"`
}

// Apply merges the patch onto f.
func (p FiltersPatch) Apply(f FiltersState) FiltersState {
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&f.BlurRadius, p.BlurRadius)
	set(&f.Brightness, p.Brightness)
	set(&f.Contrast, p.Contrast)
	set(&f.Enhance, p.Enhance)
	set(&f.Noise, p.Noise)
	set(&f.PixelSize, p.PixelSize)
	set(&f.Threshold, p.Threshold)
	set(&f.Red, p.Red)
	set(&f.Green, p.Green)
	set(&f.Blue, p.Blue)
	set(&f.Alpha, p.Alpha)
	set(&f.Hue, p.Hue)
	set(&f.Saturation, p.Saturation)
	set(&f.Luminance, p.Luminance)
	set(&f.Value, p.Value)
	return f
}
