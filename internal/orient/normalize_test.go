package orient

import (
	"errors"
	"testing"

	"gocv.io/x/gocv"
)

// newGradient builds a w×h single-channel Mat where every pixel is unique
func newGradient(w, h int) gocv.Mat {
	m := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m.SetUCharAt(y, x, uint8(y*w+x+1))
		}
	}
	return m
}

func TestNormalize_Orientations(t *testing.T) {
	const w, h = 5, 3
	src := newGradient(w, h)
	defer src.Close()

	for _, o := range All {
		t.Run(o.String(), func(t *testing.T) {
			dst, size, err := Normalize(src, o, 0)
			if err != nil {
				t.Fatalf("Normalize failed: %v", err)
			}
			defer dst.Close()

			if dst.Cols() != size.X || dst.Rows() != size.Y {
				t.Fatalf("Mat is %dx%d, reported size %v", dst.Cols(), dst.Rows(), size)
			}

			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					p := expectedIndex(o, x, y, w, h)
					if got, want := dst.GetUCharAt(p.Y, p.X), src.GetUCharAt(y, x); got != want {
						t.Fatalf("upright(%d,%d) = %d, want %d", p.X, p.Y, got, want)
					}
				}
			}
		})
	}
}

func TestNormalize_RestoreRoundTrip(t *testing.T) {
	src := newGradient(7, 4)
	defer src.Close()

	for _, o := range All {
		t.Run(o.String(), func(t *testing.T) {
			plan := NewPlan(src.Cols(), src.Rows(), o, 0)
			upright := Render(src, plan)
			defer upright.Close()

			back, ok := Restore(upright, plan)
			if !ok {
				t.Fatal("Restore failed")
			}
			defer back.Close()

			diff := gocv.NewMat()
			defer diff.Close()
			gocv.AbsDiff(src, back, &diff)
			if n := gocv.CountNonZero(diff); n != 0 {
				t.Errorf("%d pixels differ after round trip", n)
			}
		})
	}
}

func TestNormalize_Downscale(t *testing.T) {
	src := gocv.NewMatWithSize(960, 1280, gocv.MatTypeCV8UC3)
	defer src.Close()

	dst, size, err := Normalize(src, Up, 640)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	defer dst.Close()

	if size.X != 640 || size.Y != 480 {
		t.Errorf("size = %v, want 640x480", size)
	}
	if dst.Cols() != 640 || dst.Rows() != 480 {
		t.Errorf("Mat = %dx%d, want 640x480", dst.Cols(), dst.Rows())
	}
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	src := newGradient(5, 3)
	defer src.Close()
	before := src.Clone()
	defer before.Close()

	dst, _, err := Normalize(src, RightMirrored, 0)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	dst.Close()

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(src, before, &diff)
	if gocv.CountNonZero(diff) != 0 {
		t.Error("input Mat was modified")
	}
}

func TestNormalize_NoPixelData(t *testing.T) {
	empty := gocv.NewMat()
	defer empty.Close()

	out, size, err := Normalize(empty, Right, 640)
	if !errors.Is(err, ErrNoPixelData) {
		t.Fatalf("err = %v, want ErrNoPixelData", err)
	}
	if !out.Empty() || size.X != 0 || size.Y != 0 {
		t.Errorf("expected the empty input back, got %dx%d", size.X, size.Y)
	}
}
