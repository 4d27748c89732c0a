// Package render composites face overlays onto BGR images with OpenCV.
package render

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/dudu/facemarks/internal/geom"
	"github.com/dudu/facemarks/internal/overlay"
)

// Composite draws overlays onto canvas in place. The drawing layer holds the
// strokes over their blurred black shadow and is blended at style.LayerOpacity.
func Composite(canvas *gocv.Mat, overlays []overlay.FaceOverlay, style overlay.Style) error {
	if canvas.Empty() || len(overlays) == 0 {
		return nil
	}
	if canvas.Type() != gocv.MatTypeCV8UC3 {
		return fmt.Errorf("render: canvas must be 8-bit BGR, got %v", canvas.Type())
	}
	rows, cols := canvas.Rows(), canvas.Cols()

	mask := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), rows, cols, gocv.MatTypeCV8UC1)
	defer mask.Close()
	strokePaths(&mask, overlays, style.LineWidth)

	// stroke coverage in [0, 1]
	stroke := gocv.NewMat()
	defer stroke.Close()
	mask.ConvertToWithParams(&stroke, gocv.MatTypeCV32F, 1.0/255, 0)

	shadow := shadowAlpha(mask, style)
	defer shadow.Close()

	// stroke over shadow: a = s + h - s*h, then the layer opacity
	alpha := gocv.NewMat()
	defer alpha.Close()
	overlap := gocv.NewMat()
	defer overlap.Close()
	gocv.Multiply(stroke, shadow, &overlap)
	gocv.Add(stroke, shadow, &alpha)
	gocv.Subtract(alpha, overlap, &alpha)
	alpha.MultiplyFloat(float32(style.LayerOpacity))

	stroke.MultiplyFloat(float32(style.LayerOpacity))
	paint := tint(stroke, style.Stroke)
	defer paint.Close()

	alpha3 := gocv.NewMat()
	defer alpha3.Close()
	gocv.Merge([]gocv.Mat{alpha, alpha, alpha}, &alpha3)

	keep := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(1, 1, 1, 0), rows, cols, gocv.MatTypeCV32FC3)
	defer keep.Close()
	gocv.Subtract(keep, alpha3, &keep)

	out := gocv.NewMat()
	defer out.Close()
	canvas.ConvertToWithParams(&out, gocv.MatTypeCV32FC3, 1.0/255, 0)
	gocv.Multiply(out, keep, &out)
	gocv.Add(out, paint, &out)

	out.ConvertToWithParams(canvas, gocv.MatTypeCV8UC3, 255, 0)
	return nil
}

// strokePaths draws every overlay path into a single-channel mask
func strokePaths(mask *gocv.Mat, overlays []overlay.FaceOverlay, thickness int) {
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	for _, ov := range overlays {
		for _, p := range ov.ScreenPaths() {
			pts := make([]image.Point, len(p.Points))
			for i, pt := range p.Points {
				pts[i] = pt.Image()
			}
			pv := gocv.NewPointsVectorFromPoints([][]image.Point{pts})
			gocv.Polylines(mask, pv, p.Closed, white, thickness)
			pv.Close()
		}
	}
}

// shadowAlpha blurs the stroke mask into a float coverage map scaled by the
// shadow opacity
func shadowAlpha(mask gocv.Mat, style overlay.Style) gocv.Mat {
	if style.ShadowOpacity <= 0 {
		return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), mask.Rows(), mask.Cols(), gocv.MatTypeCV32F)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	if style.ShadowRadius > 0 {
		k := 2*style.ShadowRadius + 1
		gocv.GaussianBlur(mask, &blurred, image.Pt(k, k), float64(style.ShadowRadius)/2, 0, gocv.BorderConstant)
	} else {
		mask.CopyTo(&blurred)
	}
	out := gocv.NewMat()
	blurred.ConvertToWithParams(&out, gocv.MatTypeCV32F, float32(style.ShadowOpacity/255), 0)
	return out
}

// tint turns a coverage map into premultiplied BGR paint of colour c
func tint(coverage gocv.Mat, c color.RGBA) gocv.Mat {
	channels := make([]gocv.Mat, 3)
	for i, v := range []uint8{c.B, c.G, c.R} {
		channels[i] = coverage.Clone()
		channels[i].MultiplyFloat(float32(v) / 255)
	}
	paint := gocv.NewMat()
	gocv.Merge(channels, &paint)
	for _, ch := range channels {
		ch.Close()
	}
	return paint
}

// Letterbox resizes img into a black canvas of the given size, aspect-fit and
// centred. It returns the canvas and where the image landed on it.
func Letterbox(img gocv.Mat, size image.Point) (gocv.Mat, geom.Rect) {
	canvas := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), size.Y, size.X, gocv.MatTypeCV8UC3)

	fit := overlay.AspectFit(image.Pt(img.Cols(), img.Rows()), geom.R(0, 0, float64(size.X), float64(size.Y)))
	dst := fit.Image().Intersect(image.Rect(0, 0, size.X, size.Y))
	if dst.Empty() {
		return canvas, geom.Rect{}
	}

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(img, &resized, dst.Size(), 0, 0, gocv.InterpolationArea)

	roi := canvas.Region(dst)
	resized.CopyTo(&roi)
	roi.Close()

	return canvas, geom.RectFromImage(dst)
}
