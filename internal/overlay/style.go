package overlay

import "image/color"

// Style controls how overlays are composited
type Style struct {
	Stroke        color.RGBA
	LineWidth     int
	LayerOpacity  float64 // whole drawing layer
	ShadowOpacity float64
	ShadowRadius  int
}

// DefaultStyle is a 2px green stroke with a soft shadow on a half-transparent layer
func DefaultStyle() Style {
	return Style{
		Stroke:        color.RGBA{G: 255, A: 255},
		LineWidth:     2,
		LayerOpacity:  0.5,
		ShadowOpacity: 0.75,
		ShadowRadius:  4,
	}
}
