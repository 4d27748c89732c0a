// Package overlay maps normalized face observations onto a display rectangle
// and turns landmark regions into drawable paths.
//
// Detector space is normalized and y-up. Layer space is the display's pixel
// space, y-down. Each face gets one layer anchored at the bottom-left corner
// of its box; the layer's transform flips y, so paths are built in y-up face
// units scaled to the box size and are never flipped themselves.
package overlay

import (
	"image"

	"github.com/dudu/facemarks/internal/detector"
	"github.com/dudu/facemarks/internal/geom"
)

// DrawPath is one landmark region outline in face-layer coordinates
type DrawPath struct {
	Region detector.Region
	Points []geom.Point
	Closed bool
}

// Segment is a straight line between two points
type Segment struct {
	From, To geom.Point
}

// Segments lists the path's straight lines. Closed paths end with last→first.
func (p DrawPath) Segments() []Segment {
	if len(p.Points) < 2 {
		return nil
	}
	n := len(p.Points) - 1
	if p.Closed {
		n++
	}
	segs := make([]Segment, 0, n)
	for i := 1; i < len(p.Points); i++ {
		segs = append(segs, Segment{From: p.Points[i-1], To: p.Points[i]})
	}
	if p.Closed {
		segs = append(segs, Segment{From: p.Points[len(p.Points)-1], To: p.Points[0]})
	}
	return segs
}

// FaceOverlay is everything drawn for one face
type FaceOverlay struct {
	Rect  geom.Rect // layer frame in display space; Y is the box's bottom edge
	Paths []DrawPath
}

// LayerTransform maps face-layer coordinates to display coordinates:
// translate(rect.x, rect.y) · scale(1, -1)
func (f FaceOverlay) LayerTransform() geom.Affine {
	return geom.Translation(f.Rect.X, f.Rect.Y).Scaled(1, -1)
}

// ScreenPaths returns the paths with the layer transform applied
func (f FaceOverlay) ScreenPaths() []DrawPath {
	t := f.LayerTransform()
	out := make([]DrawPath, len(f.Paths))
	for i, p := range f.Paths {
		out[i] = DrawPath{Region: p.Region, Points: t.ApplyAll(p.Points), Closed: p.Closed}
	}
	return out
}

// MapBoundingBox places a normalized y-up box inside bounds. The resulting Y
// is the box's bottom edge in y-down display space. Negative sizes clamp to 0.
func MapBoundingBox(b, bounds geom.Rect) geom.Rect {
	return geom.Rect{
		X:      b.X*bounds.Width + bounds.X,
		Y:      (1-b.Y)*bounds.Height + bounds.Y,
		Width:  max(0, b.Width*bounds.Width),
		Height: max(0, b.Height*bounds.Height),
	}
}

// Build produces one overlay per face, in input order. Regions with fewer
// than two points, and regions the detector did not report, draw nothing.
func Build(faces []detector.FaceObservation, displayBounds geom.Rect) []FaceOverlay {
	overlays := make([]FaceOverlay, 0, len(faces))
	for _, face := range faces {
		overlays = append(overlays, buildFace(face, displayBounds))
	}
	return overlays
}

func buildFace(face detector.FaceObservation, bounds geom.Rect) FaceOverlay {
	rect := MapBoundingBox(face.BoundingBox, bounds)
	ov := FaceOverlay{Rect: rect}
	if face.Landmarks == nil {
		return ov
	}

	toLayer := geom.Scaling(rect.Width, rect.Height)
	for _, r := range detector.Regions {
		pts, ok := face.Landmarks.Get(r)
		if !ok || len(pts) <= 1 {
			continue
		}
		ov.Paths = append(ov.Paths, DrawPath{
			Region: r,
			Points: toLayer.ApplyAll(pts),
			Closed: r.Closed(),
		})
	}
	return ov
}

// AspectFit returns where an image of the given size lands when fitted inside
// frame, preserving aspect ratio and centred on both axes
func AspectFit(imageSize image.Point, frame geom.Rect) geom.Rect {
	if imageSize.X <= 0 || imageSize.Y <= 0 || frame.Width <= 0 || frame.Height <= 0 {
		return geom.Rect{}
	}

	iw, ih := float64(imageSize.X), float64(imageSize.Y)
	ratio := max(iw/frame.Width, ih/frame.Height)
	w, h := iw/ratio, ih/ratio

	return geom.Rect{
		X:      frame.X + (frame.Width-w)/2,
		Y:      frame.Y + (frame.Height-h)/2,
		Width:  w,
		Height: h,
	}
}
