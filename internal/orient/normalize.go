package orient

import (
	"errors"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/dudu/facemarks/internal/geom"
)

// ErrNoPixelData is returned when the input Mat has nothing to render. It is a
// soft failure: Normalize hands back the input so the caller can carry on.
var ErrNoPixelData = errors.New("orient: image has no pixel data")

// Normalize renders src upright, downscaled so neither side exceeds
// maxResolution. src is never modified; the returned Mat is new and owned by the
// caller, except on ErrNoPixelData where src itself is returned.
func Normalize(src gocv.Mat, o Orientation, maxResolution int) (gocv.Mat, image.Point, error) {
	if src.Empty() {
		return src, image.Pt(src.Cols(), src.Rows()), ErrNoPixelData
	}

	plan := NewPlan(src.Cols(), src.Rows(), o, maxResolution)
	dst := Render(src, plan)
	return dst, plan.Size, nil
}

// Render warps src through the plan into a new Mat of plan.Size
func Render(src gocv.Mat, plan Plan) gocv.Mat {
	if plan.Identity() {
		return src.Clone()
	}
	return Warp(src, plan.Transform, plan.Size, interpolation(plan.Scale))
}

// Restore maps an upright image produced by plan back to the source layout
func Restore(upright gocv.Mat, plan Plan) (gocv.Mat, bool) {
	inv, ok := plan.Inverse()
	if !ok {
		return gocv.NewMat(), false
	}
	return Warp(upright, inv, plan.Source, interpolation(1/plan.Scale)), true
}

// Warp applies an edge-space affine transform into a new Mat of the given size
func Warp(src gocv.Mat, t geom.Affine, size image.Point, flags gocv.InterpolationFlags) gocv.Mat {
	m := matrix(t.PixelCenters())
	defer m.Close()

	dst := gocv.NewMat()
	gocv.WarpAffineWithParams(src, &dst, m, size, flags, gocv.BorderConstant, color.RGBA{})
	return dst
}

// interpolation keeps exact pixel permutations exact
func interpolation(scale float64) gocv.InterpolationFlags {
	if scale == 1 {
		return gocv.InterpolationNearestNeighbor
	}
	return gocv.InterpolationLinear
}

// matrix creates the 2x3 CV_64F matrix for an affine transform
func matrix(t geom.Affine) gocv.Mat {
	M := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	rows := t.Matrix()
	for r := 0; r < 2; r++ {
		for c := 0; c < 3; c++ {
			M.SetDoubleAt(r, c, rows[r][c])
		}
	}
	return M
}
