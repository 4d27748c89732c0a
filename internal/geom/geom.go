// Package geom holds the 2D primitives shared by the normalizer, the detector
// adapters and the overlay builder.
package geom

import (
	"image"
	"math"
)

// Point represents a 2D point
type Point struct {
	X, Y float64
}

// Pt is shorthand for Point{X: x, Y: y}
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Image rounds the point to the nearest pixel
func (p Point) Image() image.Point {
	return image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
}

// Rect is an origin + size rectangle. Whether Y grows up or down depends on the
// space it lives in: detector boxes are y-up, screen rects are y-down.
type Rect struct {
	X, Y          float64
	Width, Height float64
}

// R is shorthand for Rect{X: x, Y: y, Width: w, Height: h}
func R(x, y, w, h float64) Rect {
	return Rect{X: x, Y: y, Width: w, Height: h}
}

// RectFromImage converts an integer rectangle
func RectFromImage(r image.Rectangle) Rect {
	return Rect{
		X:      float64(r.Min.X),
		Y:      float64(r.Min.Y),
		Width:  float64(r.Dx()),
		Height: float64(r.Dy()),
	}
}

// MaxX returns X + Width
func (r Rect) MaxX() float64 {
	return r.X + r.Width
}

// MaxY returns Y + Height
func (r Rect) MaxY() float64 {
	return r.Y + r.Height
}

// Area returns rect area
func (r Rect) Area() float64 {
	return r.Width * r.Height
}

// Empty reports whether the rect has no area
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Image rounds the rect to integer pixel bounds
func (r Rect) Image() image.Rectangle {
	return image.Rect(
		int(math.Round(r.X)), int(math.Round(r.Y)),
		int(math.Round(r.MaxX())), int(math.Round(r.MaxY())),
	)
}

// Near reports whether a and b are within eps on both axes
func Near(a, b Point, eps float64) bool {
	return math.Abs(a.X-b.X) <= eps && math.Abs(a.Y-b.Y) <= eps
}
