package render

import (
	"image"
	"testing"

	"gocv.io/x/gocv"

	"github.com/dudu/facemarks/internal/detector"
	"github.com/dudu/facemarks/internal/geom"
	"github.com/dudu/facemarks/internal/overlay"
)

// horizontal line across the middle of a 100x100 image
func lineOverlay() []overlay.FaceOverlay {
	return []overlay.FaceOverlay{{
		Rect: geom.R(10, 50, 80, 0),
		Paths: []overlay.DrawPath{{
			Region: detector.FaceContour,
			Points: []geom.Point{geom.Pt(0, 0), geom.Pt(80, 0)},
		}},
	}}
}

func filled(v float64) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(v, v, v, 0), 100, 100, gocv.MatTypeCV8UC3)
}

func TestComposite_StrokeAtLayerOpacity(t *testing.T) {
	canvas := filled(0)
	defer canvas.Close()

	if err := Composite(&canvas, lineOverlay(), overlay.DefaultStyle()); err != nil {
		t.Fatalf("Composite failed: %v", err)
	}

	px := canvas.GetVecbAt(50, 50)
	if px[0] != 0 || px[2] != 0 {
		t.Errorf("stroke pixel B,R = %d,%d, want 0", px[0], px[2])
	}
	if px[1] < 120 || px[1] > 135 {
		t.Errorf("stroke pixel G = %d, want about half of 255", px[1])
	}

	if far := canvas.GetVecbAt(10, 50); far[0] != 0 || far[1] != 0 || far[2] != 0 {
		t.Errorf("untouched pixel = %v", far)
	}
}

func TestComposite_ShadowDarkensNearby(t *testing.T) {
	canvas := filled(255)
	defer canvas.Close()

	if err := Composite(&canvas, lineOverlay(), overlay.DefaultStyle()); err != nil {
		t.Fatalf("Composite failed: %v", err)
	}

	if near := canvas.GetVecbAt(53, 50); near[0] >= 255 {
		t.Errorf("pixel next to stroke = %v, want shadowed", near)
	}
	if far := canvas.GetVecbAt(10, 50); far[0] != 255 || far[1] != 255 || far[2] != 255 {
		t.Errorf("pixel away from stroke = %v, want white", far)
	}
}

func TestComposite_NoOverlays(t *testing.T) {
	canvas := filled(40)
	defer canvas.Close()

	if err := Composite(&canvas, nil, overlay.DefaultStyle()); err != nil {
		t.Fatalf("Composite failed: %v", err)
	}
	if px := canvas.GetVecbAt(50, 50); px[0] != 40 {
		t.Errorf("canvas changed without overlays: %v", px)
	}
}

func TestComposite_RejectsGray(t *testing.T) {
	gray := gocv.NewMatWithSize(10, 10, gocv.MatTypeCV8UC1)
	defer gray.Close()

	if err := Composite(&gray, lineOverlay(), overlay.DefaultStyle()); err == nil {
		t.Error("expected error for single-channel canvas")
	}
}

func TestLetterbox(t *testing.T) {
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), 100, 200, gocv.MatTypeCV8UC3)
	defer img.Close()

	canvas, fit := Letterbox(img, image.Pt(100, 100))
	defer canvas.Close()

	if canvas.Cols() != 100 || canvas.Rows() != 100 {
		t.Fatalf("canvas = %dx%d", canvas.Cols(), canvas.Rows())
	}
	if fit != geom.R(0, 25, 100, 50) {
		t.Errorf("fit = %+v, want {0 25 100 50}", fit)
	}
	if px := canvas.GetVecbAt(10, 50); px[0] != 0 {
		t.Errorf("letterbox bar = %v, want black", px)
	}
	if px := canvas.GetVecbAt(50, 50); px[0] != 255 {
		t.Errorf("image area = %v, want white", px)
	}
}
