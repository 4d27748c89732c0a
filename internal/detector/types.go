package detector

import (
	"github.com/dudu/facemarks/internal/geom"
)

// BoundingBox represents a face bounding box in pixels (y-down)
type BoundingBox struct {
	X1, Y1 float64 // top-left
	X2, Y2 float64 // bottom-right
}

// Width returns box width
func (b BoundingBox) Width() float64 {
	return b.X2 - b.X1
}

// Height returns box height
func (b BoundingBox) Height() float64 {
	return b.Y2 - b.Y1
}

// Center returns box center point
func (b BoundingBox) Center() geom.Point {
	return geom.Point{
		X: (b.X1 + b.X2) / 2,
		Y: (b.Y1 + b.Y2) / 2,
	}
}

// Area returns box area
func (b BoundingBox) Area() float64 {
	return b.Width() * b.Height()
}

// Keypoints represents the 5 facial keypoints from SCRFD
type Keypoints struct {
	LeftEye    geom.Point // index 0
	RightEye   geom.Point // index 1
	Nose       geom.Point // index 2
	LeftMouth  geom.Point // index 3
	RightMouth geom.Point // index 4
}

// Landmarks106 represents 106 facial landmark points from insightface
type Landmarks106 [106]geom.Point

// Face represents a detected face in pixel coordinates
type Face struct {
	BoundingBox  BoundingBox
	Keypoints    Keypoints     // 5-point from SCRFD
	Landmarks106 *Landmarks106 // 106-point from 2d106det (optional)
	Score        float64
}

// Region names one facial feature outline
type Region int

const (
	LeftEyebrow Region = iota
	RightEyebrow
	FaceContour
	LeftEye
	RightEye
	OuterLips
	Nose
)

// OpenRegions are drawn as polylines
var OpenRegions = []Region{LeftEyebrow, RightEyebrow, FaceContour}

// ClosedRegions are drawn as polygons
var ClosedRegions = []Region{LeftEye, RightEye, OuterLips, Nose}

// Regions lists every region in drawing order
var Regions = append(append([]Region{}, OpenRegions...), ClosedRegions...)

var regionNames = [...]string{
	LeftEyebrow:  "left-eyebrow",
	RightEyebrow: "right-eyebrow",
	FaceContour:  "face-contour",
	LeftEye:      "left-eye",
	RightEye:     "right-eye",
	OuterLips:    "outer-lips",
	Nose:         "nose",
}

func (r Region) String() string {
	if r >= 0 && int(r) < len(regionNames) {
		return regionNames[r]
	}
	return "unknown"
}

// Closed reports whether the region outline joins back to its first point
func (r Region) Closed() bool {
	switch r {
	case LeftEye, RightEye, OuterLips, Nose:
		return true
	}
	return false
}

// Landmarks maps each reported region to its points. Points are normalized to
// the face bounding box, y-up.
type Landmarks map[Region][]geom.Point

// Get returns a region's points; ok is false when the detector did not report it
func (l Landmarks) Get(r Region) ([]geom.Point, bool) {
	pts, ok := l[r]
	return pts, ok
}

// FaceObservation is one face as reported across the detector boundary.
// BoundingBox is normalized to the upright image with the origin at the
// bottom-left (y-up). Landmarks is nil when none were detected.
type FaceObservation struct {
	BoundingBox geom.Rect
	Landmarks   Landmarks
	Score       float64
}
