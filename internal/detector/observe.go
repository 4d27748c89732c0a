package detector

import (
	"image"

	"github.com/dudu/facemarks/internal/geom"
)

// Observe converts a pixel-space face found on an upright image of the given
// size into a normalized, y-up observation. Landmarks are expressed relative
// to the face box with y growing upwards. Faces with a degenerate box carry no
// landmarks.
func Observe(face Face, size image.Point) FaceObservation {
	obs := FaceObservation{Score: face.Score}
	if size.X <= 0 || size.Y <= 0 {
		return obs
	}

	W, H := float64(size.X), float64(size.Y)
	box := face.BoundingBox
	obs.BoundingBox = geom.Rect{
		X:      box.X1 / W,
		Y:      1 - box.Y2/H,
		Width:  box.Width() / W,
		Height: box.Height() / H,
	}

	if box.Width() <= 0 || box.Height() <= 0 {
		return obs
	}

	toFace := box.relative

	obs.Landmarks = make(Landmarks, len(Regions))
	if face.Landmarks106 != nil {
		for _, r := range Regions {
			pts := face.Landmarks106.GetPoints(regionIndices[r])
			for i := range pts {
				pts[i] = toFace(pts[i])
			}
			obs.Landmarks[r] = pts
		}
		return obs
	}

	// 5-point fallback: only the mouth corners can form a path. SCRFD names
	// its keypoints from the viewer's side.
	kp := face.Keypoints
	obs.Landmarks[LeftEye] = []geom.Point{toFace(kp.RightEye)}
	obs.Landmarks[RightEye] = []geom.Point{toFace(kp.LeftEye)}
	obs.Landmarks[Nose] = []geom.Point{toFace(kp.Nose)}
	obs.Landmarks[OuterLips] = []geom.Point{toFace(kp.LeftMouth), toFace(kp.RightMouth)}
	return obs
}

// relative maps a pixel point into the box's unit square, y up
func (b BoundingBox) relative(p geom.Point) geom.Point {
	return geom.Point{
		X: (p.X - b.X1) / b.Width(),
		Y: (b.Y2 - p.Y) / b.Height(),
	}
}
