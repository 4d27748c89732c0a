package overlay

import (
	"image"
	"math"
	"testing"

	"github.com/dudu/facemarks/internal/detector"
	"github.com/dudu/facemarks/internal/geom"
)

const eps = 1e-9

func rectNear(a, b geom.Rect) bool {
	return math.Abs(a.X-b.X) <= eps && math.Abs(a.Y-b.Y) <= eps &&
		math.Abs(a.Width-b.Width) <= eps && math.Abs(a.Height-b.Height) <= eps
}

func square() []geom.Point {
	return []geom.Point{geom.Pt(0, 0), geom.Pt(1, 0), geom.Pt(1, 1), geom.Pt(0, 1)}
}

func TestMapBoundingBox(t *testing.T) {
	tests := []struct {
		name   string
		box    geom.Rect
		bounds geom.Rect
		want   geom.Rect
	}{
		{"reference", geom.R(0.25, 0.5, 0.5, 0.25), geom.R(0, 0, 400, 300), geom.R(100, 150, 200, 75)},
		{"offset bounds", geom.R(0.25, 0.5, 0.5, 0.25), geom.R(10, 20, 400, 300), geom.R(110, 170, 200, 75)},
		{"bottom-left origin", geom.R(0, 0, 1, 1), geom.R(0, 0, 640, 480), geom.R(0, 480, 640, 480)},
		{"zero area", geom.R(0.5, 0.5, 0, 0), geom.R(0, 0, 100, 100), geom.R(50, 50, 0, 0)},
		{"negative size clamps", geom.R(0.5, 0.5, -0.1, -0.2), geom.R(0, 0, 100, 100), geom.R(50, 50, 0, 0)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := MapBoundingBox(tc.box, tc.bounds); !rectNear(got, tc.want) {
				t.Errorf("MapBoundingBox = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestSegments(t *testing.T) {
	closed := DrawPath{Points: square(), Closed: true}.Segments()
	if len(closed) != 4 {
		t.Fatalf("closed square has %d segments, want 4", len(closed))
	}
	last := closed[3]
	if last.From != geom.Pt(0, 1) || last.To != geom.Pt(0, 0) {
		t.Errorf("closing segment = %+v, want (0,1)->(0,0)", last)
	}

	open := DrawPath{Points: square()}.Segments()
	if len(open) != 3 {
		t.Fatalf("open square has %d segments, want 3", len(open))
	}
	if open[2].To != geom.Pt(0, 1) {
		t.Errorf("open path ends at %+v", open[2].To)
	}

	if segs := (DrawPath{Points: []geom.Point{geom.Pt(1, 1)}, Closed: true}).Segments(); segs != nil {
		t.Errorf("single point segments = %v", segs)
	}
}

func TestBuild_SinglePointRegionsDrawNothing(t *testing.T) {
	face := detector.FaceObservation{
		BoundingBox: geom.R(0, 0, 1, 1),
		Landmarks: detector.Landmarks{
			detector.LeftEyebrow: {geom.Pt(0.5, 0.5)},
			detector.Nose:        {geom.Pt(0.5, 0.5)},
			detector.LeftEye:     {},
		},
	}

	got := Build([]detector.FaceObservation{face}, geom.R(0, 0, 100, 100))
	if len(got) != 1 {
		t.Fatalf("got %d overlays, want 1", len(got))
	}
	if len(got[0].Paths) != 0 {
		t.Errorf("got %d paths, want none", len(got[0].Paths))
	}
}

func TestBuild_OpenAndClosed(t *testing.T) {
	face := detector.FaceObservation{
		BoundingBox: geom.R(0, 0, 1, 1),
		Landmarks: detector.Landmarks{
			detector.Nose:        square(),
			detector.FaceContour: square(),
		},
	}

	got := Build([]detector.FaceObservation{face}, geom.R(0, 0, 1, 1))
	paths := got[0].Paths
	if len(paths) != 2 {
		t.Fatalf("got %d paths, want 2", len(paths))
	}
	// open regions draw before closed ones
	if paths[0].Region != detector.FaceContour || paths[0].Closed {
		t.Errorf("paths[0] = %v closed=%v, want open face contour", paths[0].Region, paths[0].Closed)
	}
	if paths[1].Region != detector.Nose || !paths[1].Closed {
		t.Errorf("paths[1] = %v closed=%v, want closed nose", paths[1].Region, paths[1].Closed)
	}
	if n := len(paths[1].Segments()); n != 4 {
		t.Errorf("nose segments = %d, want 4", n)
	}
	if n := len(paths[0].Segments()); n != 3 {
		t.Errorf("contour segments = %d, want 3", n)
	}
}

func TestBuild_MissingRegionOnOneFace(t *testing.T) {
	full := func() detector.Landmarks {
		lm := detector.Landmarks{}
		for _, r := range detector.Regions {
			lm[r] = square()
		}
		return lm
	}

	faces := make([]detector.FaceObservation, 3)
	for i := range faces {
		faces[i] = detector.FaceObservation{BoundingBox: geom.R(0.1*float64(i), 0.5, 0.2, 0.2), Landmarks: full()}
	}
	delete(faces[1].Landmarks, detector.LeftEyebrow)

	got := Build(faces, geom.R(0, 0, 640, 480))
	if len(got) != 3 {
		t.Fatalf("got %d overlays, want 3", len(got))
	}
	for i, ov := range got {
		want := len(detector.Regions)
		if i == 1 {
			want--
		}
		if len(ov.Paths) != want {
			t.Errorf("face %d: %d paths, want %d", i, len(ov.Paths), want)
		}
		for _, p := range ov.Paths {
			if i == 1 && p.Region == detector.LeftEyebrow {
				t.Errorf("face 1 should have no left eyebrow path")
			}
		}
	}
}

func TestBuild_NoLandmarks(t *testing.T) {
	got := Build([]detector.FaceObservation{{BoundingBox: geom.R(0.25, 0.5, 0.5, 0.25)}}, geom.R(0, 0, 400, 300))
	if len(got) != 1 || len(got[0].Paths) != 0 {
		t.Fatalf("Build = %+v, want one overlay without paths", got)
	}
	if !rectNear(got[0].Rect, geom.R(100, 150, 200, 75)) {
		t.Errorf("Rect = %+v", got[0].Rect)
	}

	if got := Build(nil, geom.R(0, 0, 1, 1)); len(got) != 0 {
		t.Errorf("Build(nil) = %v", got)
	}
}

func TestBuild_PathsScaledToBox(t *testing.T) {
	face := detector.FaceObservation{
		BoundingBox: geom.R(0.25, 0.5, 0.5, 0.25),
		Landmarks:   detector.Landmarks{detector.OuterLips: {geom.Pt(0, 0), geom.Pt(1, 1)}},
	}
	ov := Build([]detector.FaceObservation{face}, geom.R(0, 0, 400, 300))[0]

	pts := ov.Paths[0].Points
	if pts[0] != geom.Pt(0, 0) || !geom.Near(pts[1], geom.Pt(200, 75), eps) {
		t.Errorf("layer points = %+v", pts)
	}

	// the layer flip puts normalized (0,0) at the box's bottom-left and (1,1)
	// at its top-right in y-down display space
	screen := ov.ScreenPaths()[0].Points
	if !geom.Near(screen[0], geom.Pt(100, 150), eps) {
		t.Errorf("screen[0] = %+v, want (100,150)", screen[0])
	}
	if !geom.Near(screen[1], geom.Pt(300, 75), eps) {
		t.Errorf("screen[1] = %+v, want (300,75)", screen[1])
	}

	// the stored layer points are untouched
	if ov.Paths[0].Points[0] != geom.Pt(0, 0) {
		t.Errorf("ScreenPaths mutated layer points")
	}
}

func TestAspectFit(t *testing.T) {
	tests := []struct {
		name  string
		img   image.Point
		frame geom.Rect
		want  geom.Rect
	}{
		{"same aspect", image.Pt(640, 480), geom.R(0, 0, 320, 240), geom.R(0, 0, 320, 240)},
		{"pillarbox", image.Pt(480, 640), geom.R(0, 0, 640, 640), geom.R(80, 0, 480, 640)},
		{"letterbox", image.Pt(640, 320), geom.R(0, 0, 640, 640), geom.R(0, 160, 640, 320)},
		{"offset frame", image.Pt(100, 100), geom.R(10, 20, 200, 100), geom.R(60, 20, 100, 100)},
		{"upscale", image.Pt(10, 5), geom.R(0, 0, 100, 100), geom.R(0, 25, 100, 50)},
		{"empty image", image.Pt(0, 10), geom.R(0, 0, 100, 100), geom.Rect{}},
		{"empty frame", image.Pt(10, 10), geom.R(0, 0, 0, 100), geom.Rect{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := AspectFit(tc.img, tc.frame); !rectNear(got, tc.want) {
				t.Errorf("AspectFit = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestDefaultStyle(t *testing.T) {
	s := DefaultStyle()
	if s.LineWidth != 2 || s.LayerOpacity != 0.5 || s.ShadowOpacity != 0.75 || s.ShadowRadius != 4 {
		t.Errorf("DefaultStyle = %+v", s)
	}
	if s.Stroke.G != 255 || s.Stroke.R != 0 || s.Stroke.B != 0 {
		t.Errorf("stroke = %+v, want green", s.Stroke)
	}
}
