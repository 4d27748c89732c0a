package orient

import (
	"image"
	"testing"

	"github.com/dudu/facemarks/internal/geom"
)

// expectedIndex maps a source pixel index to its upright index for a w×h image
func expectedIndex(o Orientation, x, y, w, h int) image.Point {
	switch o {
	case UpMirrored:
		return image.Pt(w-1-x, y)
	case Down:
		return image.Pt(w-1-x, h-1-y)
	case DownMirrored:
		return image.Pt(x, h-1-y)
	case LeftMirrored:
		return image.Pt(y, x)
	case Right:
		return image.Pt(h-1-y, x)
	case RightMirrored:
		return image.Pt(h-1-y, w-1-x)
	case Left:
		return image.Pt(y, w-1-x)
	default:
		return image.Pt(x, y)
	}
}

func TestFitResolution(t *testing.T) {
	tests := []struct {
		name      string
		w, h, max int
		want      image.Point
	}{
		{"landscape clamp", 1280, 960, 640, image.Pt(640, 480)},
		{"portrait clamp", 960, 1280, 640, image.Pt(480, 640)},
		{"square clamp", 1000, 1000, 640, image.Pt(640, 640)},
		{"within limit", 500, 400, 640, image.Pt(500, 400)},
		{"exactly at limit", 640, 200, 640, image.Pt(640, 200)},
		{"rounds short side", 1000, 333, 640, image.Pt(640, 213)},
		{"cap disabled", 4000, 3000, 0, image.Pt(4000, 3000)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := FitResolution(tc.w, tc.h, tc.max); got != tc.want {
				t.Errorf("FitResolution(%d, %d, %d) = %v, want %v", tc.w, tc.h, tc.max, got, tc.want)
			}
		})
	}
}

func TestNewPlan_Sizes(t *testing.T) {
	for _, o := range All {
		t.Run(o.String(), func(t *testing.T) {
			plan := NewPlan(1280, 960, o, 640)
			want := image.Pt(640, 480)
			if o.SwapsAxes() {
				want = image.Pt(480, 640)
			}
			if plan.Size != want {
				t.Errorf("Size = %v, want %v", plan.Size, want)
			}
			if plan.Scale != 0.5 {
				t.Errorf("Scale = %v, want 0.5", plan.Scale)
			}

			// The source canvas must land exactly on the output canvas
			r := plan.Transform.ApplyRect(geom.R(0, 0, 1280, 960))
			if !geom.Near(geom.Pt(r.X, r.Y), geom.Pt(0, 0), 1e-9) ||
				!geom.Near(geom.Pt(r.Width, r.Height), geom.Pt(float64(want.X), float64(want.Y)), 1e-9) {
				t.Errorf("canvas maps to %+v, want 0,0 %v", r, want)
			}
		})
	}
}

func TestReorient_PixelMapping(t *testing.T) {
	const w, h = 5, 3
	for _, o := range All {
		t.Run(o.String(), func(t *testing.T) {
			tr := Reorient(o, w, h).PixelCenters()
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					got := tr.Apply(geom.Pt(float64(x), float64(y))).Image()
					if want := expectedIndex(o, x, y, w, h); got != want {
						t.Fatalf("pixel (%d,%d) -> %v, want %v", x, y, got, want)
					}
				}
			}
		})
	}
}

func TestPlan_InverseRoundTrip(t *testing.T) {
	points := []geom.Point{geom.Pt(0, 0), geom.Pt(1279, 0), geom.Pt(17.5, 900.25), geom.Pt(1280, 960)}
	for _, o := range All {
		t.Run(o.String(), func(t *testing.T) {
			plan := NewPlan(1280, 960, o, 640)
			inv, ok := plan.Inverse()
			if !ok {
				t.Fatal("plan transform should be invertible")
			}
			for _, p := range points {
				if back := inv.Apply(plan.Transform.Apply(p)); !geom.Near(back, p, 1e-9) {
					t.Errorf("%v round-trips to %v", p, back)
				}
			}
		})
	}
}

func TestPlan_Identity(t *testing.T) {
	if !NewPlan(320, 240, Up, 640).Identity() {
		t.Error("upright image within limits should be an identity plan")
	}
	if NewPlan(320, 240, Down, 640).Identity() {
		t.Error("rotated image should not be an identity plan")
	}
	if NewPlan(1280, 960, Up, 640).Identity() {
		t.Error("downscaled image should not be an identity plan")
	}
}

func TestUnknownOrientationIsIdentity(t *testing.T) {
	if Reorient(Orientation(0), 10, 10) != geom.Identity {
		t.Error("tag 0 should fall back to identity")
	}
	if Orientation(9).Valid() {
		t.Error("tag 9 should be invalid")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Orientation
		wantErr bool
	}{
		{"6", Right, false},
		{"right", Right, false},
		{"left-mirrored", LeftMirrored, false},
		{"sideways", 0, true},
	}
	for _, tc := range tests {
		got, err := Parse(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("Parse(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("Parse(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
