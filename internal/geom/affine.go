package geom

import "math"

// Affine is a 2D affine transform:
//
//	x' = A*x + C*y + Tx
//	y' = B*x + D*y + Ty
//
// Builder methods prepend their operation, so Translation(tx, ty).Rotated(θ)
// rotates a point first and then translates it.
type Affine struct {
	A, B, C, D float64
	Tx, Ty     float64
}

// Identity is the no-op transform
var Identity = Affine{A: 1, D: 1}

// Translation returns a pure translation
func Translation(tx, ty float64) Affine {
	return Affine{A: 1, D: 1, Tx: tx, Ty: ty}
}

// Scaling returns a pure scale
func Scaling(sx, sy float64) Affine {
	return Affine{A: sx, D: sy}
}

// Rotation returns a rotation by theta radians. In a y-down space positive
// angles turn clockwise on screen.
func Rotation(theta float64) Affine {
	sin, cos := math.Sincos(theta)
	// Snap the quarter turns so table entries stay exact.
	sin, cos = snap(sin), snap(cos)
	return Affine{A: cos, B: sin, C: -sin, D: cos}
}

func snap(v float64) float64 {
	for _, w := range []float64{-1, 0, 1} {
		if math.Abs(v-w) < 1e-12 {
			return w
		}
	}
	return v
}

// Concat returns the transform that applies t first and then u
func (t Affine) Concat(u Affine) Affine {
	return Affine{
		A:  t.A*u.A + t.B*u.C,
		B:  t.A*u.B + t.B*u.D,
		C:  t.C*u.A + t.D*u.C,
		D:  t.C*u.B + t.D*u.D,
		Tx: t.Tx*u.A + t.Ty*u.C + u.Tx,
		Ty: t.Tx*u.B + t.Ty*u.D + u.Ty,
	}
}

// Translated applies a translation before t
func (t Affine) Translated(tx, ty float64) Affine {
	return Translation(tx, ty).Concat(t)
}

// Scaled applies a scale before t
func (t Affine) Scaled(sx, sy float64) Affine {
	return Scaling(sx, sy).Concat(t)
}

// Rotated applies a rotation before t
func (t Affine) Rotated(theta float64) Affine {
	return Rotation(theta).Concat(t)
}

// Apply maps a point through the transform
func (t Affine) Apply(p Point) Point {
	return Point{
		X: t.A*p.X + t.C*p.Y + t.Tx,
		Y: t.B*p.X + t.D*p.Y + t.Ty,
	}
}

// ApplyAll maps every point, returning a new slice
func (t Affine) ApplyAll(pts []Point) []Point {
	out := make([]Point, len(pts))
	for i, p := range pts {
		out[i] = t.Apply(p)
	}
	return out
}

// ApplyRect maps the four corners of r and returns their bounding rect
func (t Affine) ApplyRect(r Rect) Rect {
	corners := [4]Point{
		t.Apply(Pt(r.X, r.Y)),
		t.Apply(Pt(r.MaxX(), r.Y)),
		t.Apply(Pt(r.X, r.MaxY())),
		t.Apply(Pt(r.MaxX(), r.MaxY())),
	}
	minX, minY := corners[0].X, corners[0].Y
	maxX, maxY := minX, minY
	for _, c := range corners[1:] {
		minX = math.Min(minX, c.X)
		minY = math.Min(minY, c.Y)
		maxX = math.Max(maxX, c.X)
		maxY = math.Max(maxY, c.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Determinant of the linear part
func (t Affine) Determinant() float64 {
	return t.A*t.D - t.B*t.C
}

// Invert returns the inverse transform. A singular transform returns ok=false.
func (t Affine) Invert() (Affine, bool) {
	det := t.Determinant()
	if math.Abs(det) < 1e-12 {
		return Affine{}, false
	}
	inv := Affine{
		A: t.D / det,
		B: -t.B / det,
		C: -t.C / det,
		D: t.A / det,
	}
	inv.Tx = -(inv.A*t.Tx + inv.C*t.Ty)
	inv.Ty = -(inv.B*t.Tx + inv.D*t.Ty)
	return inv, true
}

// PixelCenters converts a transform defined on pixel edges (pixel i spans
// [i, i+1)) to one defined on pixel centres, which is what OpenCV's warp
// functions expect.
func (t Affine) PixelCenters() Affine {
	return Translation(0.5, 0.5).Concat(t).Concat(Translation(-0.5, -0.5))
}

// Matrix returns the transform as the row-major 2x3 matrix used by OpenCV
func (t Affine) Matrix() [2][3]float64 {
	return [2][3]float64{
		{t.A, t.C, t.Tx},
		{t.B, t.D, t.Ty},
	}
}
