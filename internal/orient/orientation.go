// Package orient turns raw decoded pixels with an EXIF orientation tag into
// upright, optionally downscaled pixels.
package orient

import (
	"fmt"
	"image"
	"math"

	"github.com/dudu/facemarks/internal/geom"
)

// Orientation is an EXIF orientation tag (1..8)
type Orientation int

const (
	Up            Orientation = 1 // stored upright
	UpMirrored    Orientation = 2 // mirrored horizontally
	Down          Orientation = 3 // rotated 180°
	DownMirrored  Orientation = 4 // mirrored vertically
	LeftMirrored  Orientation = 5 // transposed
	Right         Orientation = 6 // needs 90° clockwise turn
	RightMirrored Orientation = 7 // transversed
	Left          Orientation = 8 // needs 90° counter-clockwise turn
)

// All lists the eight tags in numeric order
var All = []Orientation{Up, UpMirrored, Down, DownMirrored, LeftMirrored, Right, RightMirrored, Left}

var names = map[Orientation]string{
	Up:            "up",
	UpMirrored:    "up-mirrored",
	Down:          "down",
	DownMirrored:  "down-mirrored",
	LeftMirrored:  "left-mirrored",
	Right:         "right",
	RightMirrored: "right-mirrored",
	Left:          "left",
}

func (o Orientation) String() string {
	if n, ok := names[o]; ok {
		return n
	}
	return fmt.Sprintf("orientation(%d)", int(o))
}

// Valid reports whether o is one of the eight EXIF tags
func (o Orientation) Valid() bool {
	return o >= Up && o <= Left
}

// SwapsAxes reports whether the upright canvas is the source canvas turned on
// its side
func (o Orientation) SwapsAxes() bool {
	return o >= LeftMirrored && o <= Left
}

// Parse accepts either the numeric tag or its name
func Parse(s string) (Orientation, error) {
	for o, n := range names {
		if n == s || fmt.Sprint(int(o)) == s {
			return o, nil
		}
	}
	return 0, fmt.Errorf("unknown orientation %q", s)
}

// Reorient returns the transform taking source pixel space (y-down, w×h) to
// upright pixel space. Pure rotations translate then rotate, mirrors translate
// then scale, mirrored rotations translate, scale, then rotate.
func Reorient(o Orientation, w, h float64) geom.Affine {
	switch o {
	case Down:
		return geom.Translation(w, h).Rotated(math.Pi)
	case Left:
		return geom.Translation(0, w).Rotated(3 * math.Pi / 2)
	case Right:
		return geom.Translation(h, 0).Rotated(math.Pi / 2)
	case UpMirrored:
		return geom.Translation(w, 0).Scaled(-1, 1)
	case DownMirrored:
		return geom.Translation(0, h).Scaled(1, -1)
	case LeftMirrored:
		return geom.Translation(0, 0).Scaled(-1, 1).Rotated(math.Pi / 2)
	case RightMirrored:
		return geom.Translation(h, w).Scaled(-1, 1).Rotated(3 * math.Pi / 2)
	default:
		return geom.Identity
	}
}

// Plan describes how one source image is normalized
type Plan struct {
	Orientation Orientation
	Source      image.Point // source pixel size
	Size        image.Point // upright output size
	Scale       float64     // resize factor applied after reorientation
	Transform   geom.Affine // source edges -> output edges
}

// FitResolution clamps w×h so the larger side is at most maxResolution,
// keeping the aspect ratio. maxResolution <= 0 disables the cap.
func FitResolution(w, h, maxResolution int) image.Point {
	if maxResolution <= 0 || w <= 0 || h <= 0 {
		return image.Pt(w, h)
	}
	if w <= maxResolution && h <= maxResolution {
		return image.Pt(w, h)
	}
	ratio := float64(w) / float64(h)
	limit := float64(maxResolution)
	if w > h {
		return image.Pt(maxResolution, int(math.Round(limit/ratio)))
	}
	return image.Pt(int(math.Round(limit*ratio)), maxResolution)
}

// NewPlan computes output size and transform for a w×h source
func NewPlan(w, h int, o Orientation, maxResolution int) Plan {
	bounds := FitResolution(w, h, maxResolution)

	scale := 1.0
	if w > 0 {
		scale = float64(bounds.X) / float64(w)
	}

	if o.SwapsAxes() {
		bounds = image.Pt(bounds.Y, bounds.X)
	}

	reorient := Reorient(o, float64(w), float64(h))
	return Plan{
		Orientation: o,
		Source:      image.Pt(w, h),
		Size:        bounds,
		Scale:       scale,
		Transform:   reorient.Concat(geom.Scaling(scale, scale)),
	}
}

// Inverse maps upright output coordinates back to source coordinates
func (p Plan) Inverse() (geom.Affine, bool) {
	return p.Transform.Invert()
}

// Identity reports whether the plan would copy pixels unchanged
func (p Plan) Identity() bool {
	return p.Transform == geom.Identity && p.Size == p.Source
}
