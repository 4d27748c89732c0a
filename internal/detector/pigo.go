package detector

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"

	pigo "github.com/esimov/pigo/core"
	"gocv.io/x/gocv"

	"github.com/dudu/facemarks/internal/geom"
	"github.com/dudu/facemarks/internal/log"
	"github.com/dudu/facemarks/internal/orient"
)

// flploc cascades used for outlines
var (
	eyeCascades   = []string{"lp46", "lp44", "lp42", "lp38", "lp312"}
	mouthCascades = []string{"lp93", "lp84", "lp82", "lp81"}
)

// PigoConfig configures the pure Go cascade detector
type PigoConfig struct {
	FaceCascade   string // facefinder
	PuplocCascade string // puploc, empty skips eyes and outlines
	FlplocDir     string // directory of lp* cascades, empty skips outlines

	MinSize      int
	MaxSize      int
	ShiftFactor  float64
	ScaleFactor  float64
	IoUThreshold float64
	MinQuality   float32
}

// DefaultPigoConfig returns the usual pigo search parameters
func DefaultPigoConfig() PigoConfig {
	return PigoConfig{
		MinSize:      20,
		MaxSize:      1000,
		ShiftFactor:  0.1,
		ScaleFactor:  1.1,
		IoUThreshold: 0.2,
		MinQuality:   5.0,
	}
}

// Pigo detects faces with pigo's pixel intensity comparison cascades. It
// needs no ONNX Runtime, at the cost of much coarser outlines.
type Pigo struct {
	cfg    PigoConfig
	faces  *pigo.Pigo
	pupils *pigo.PuplocCascade
	flps   map[string][]*pigo.FlpCascade
}

// NewPigo unpacks the configured cascades
func NewPigo(cfg PigoConfig) (*Pigo, error) {
	data, err := readCascade(cfg.FaceCascade)
	if err != nil {
		return nil, err
	}
	faces, err := pigo.NewPigo().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack face cascade: %w", err)
	}
	d := &Pigo{cfg: cfg, faces: faces}

	if cfg.PuplocCascade == "" {
		return d, nil
	}
	data, err = readCascade(cfg.PuplocCascade)
	if err != nil {
		return nil, err
	}
	d.pupils, err = pigo.NewPuplocCascade().UnpackCascade(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack pupil cascade: %w", err)
	}

	if cfg.FlplocDir != "" {
		if err := checkModel(cfg.FlplocDir); err != nil {
			return nil, err
		}
		d.flps, err = d.pupils.ReadCascadeDir(cfg.FlplocDir)
		if err != nil {
			return nil, fmt.Errorf("failed to read landmark cascades: %w", err)
		}
	}

	log.Debug(log.Fields{"pupils": d.pupils != nil, "outlines": len(d.flps)}, "pigo cascades loaded")
	return d, nil
}

func readCascade(path string) ([]byte, error) {
	if err := checkModel(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cascade: %w", err)
	}
	return data, nil
}

// Detect implements Detector
func (d *Pigo) Detect(ctx context.Context, img gocv.Mat, o orient.Orientation) ([]FaceObservation, error) {
	upright, size, err := orient.Normalize(img, o, 0)
	if err != nil {
		return nil, err
	}
	defer upright.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(upright, &gray, gocv.ColorBGRToGray)

	params := pigo.ImageParams{
		Pixels: gray.ToBytes(),
		Rows:   gray.Rows(),
		Cols:   gray.Cols(),
		Dim:    gray.Cols(),
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dets := d.faces.RunCascade(pigo.CascadeParams{
		MinSize:     d.cfg.MinSize,
		MaxSize:     d.cfg.MaxSize,
		ShiftFactor: d.cfg.ShiftFactor,
		ScaleFactor: d.cfg.ScaleFactor,
		ImageParams: params,
	}, 0.0)
	dets = d.faces.ClusterDetections(dets, d.cfg.IoUThreshold)

	var observations []FaceObservation
	for _, det := range dets {
		if det.Q < d.cfg.MinQuality {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		box := detectionBox(det)
		obs := Observe(Face{BoundingBox: box, Score: float64(det.Q)}, size)
		if obs.Landmarks != nil {
			obs.Landmarks = relativeRegions(box, d.outlines(det, params))
		}
		observations = append(observations, obs)
	}

	log.Debug(log.Fields{"candidates": len(dets), "faces": len(observations)}, "pigo detection complete")
	return observations, nil
}

// outlines localizes pupils and landmark points for one face. Regions are in
// pixels, y down.
func (d *Pigo) outlines(det pigo.Detection, params pigo.ImageParams) map[Region][]geom.Point {
	regions := make(map[Region][]geom.Point)
	if d.pupils == nil {
		return regions
	}

	scale := float32(det.Scale)
	pupil := func(dx float32) *pigo.Puploc {
		pl := d.pupils.RunDetector(pigo.Puploc{
			Row:      det.Row - int(0.075*scale),
			Col:      det.Col + int(dx*scale),
			Scale:    scale * 0.25,
			Perturbs: 63,
		}, params, 0.0, false)
		if pl == nil || pl.Row <= 0 || pl.Col <= 0 {
			return nil
		}
		return pl
	}
	imageLeft, imageRight := pupil(-0.175), pupil(0.175)
	if imageLeft == nil || imageRight == nil {
		return regions
	}

	center := float64(det.Col)
	eyes := []geom.Point{puplocPoint(imageLeft), puplocPoint(imageRight)}
	var mouth []geom.Point
	for _, name := range append(eyeCascades, mouthCascades...) {
		for _, flpc := range d.flps[name] {
			for _, flip := range []bool{false, true} {
				p := flpc.GetLandmarkPoint(imageLeft, imageRight, params, 63, flip)
				if p == nil || p.Row <= 0 || p.Col <= 0 {
					continue
				}
				if isEyeCascade(name) {
					eyes = append(eyes, puplocPoint(p))
				} else {
					mouth = append(mouth, puplocPoint(p))
				}
			}
		}
	}

	// the subject's right eye is on the image left
	for _, p := range eyes {
		if p.X < center {
			regions[RightEye] = append(regions[RightEye], p)
		} else {
			regions[LeftEye] = append(regions[LeftEye], p)
		}
	}
	if len(mouth) > 0 {
		regions[OuterLips] = mouth
	}
	for r, pts := range regions {
		regions[r] = sortByAngle(pts)
	}
	return regions
}

// Close releases the cascades
func (d *Pigo) Close() error {
	d.faces, d.pupils, d.flps = nil, nil, nil
	return nil
}

var _ Detector = (*Pigo)(nil)

// detectionBox converts pigo's centre and diameter to a box
func detectionBox(det pigo.Detection) BoundingBox {
	r := float64(det.Scale) / 2
	c := geom.Point{X: float64(det.Col), Y: float64(det.Row)}
	return BoundingBox{X1: c.X - r, Y1: c.Y - r, X2: c.X + r, Y2: c.Y + r}
}

func puplocPoint(p *pigo.Puploc) geom.Point {
	return geom.Point{X: float64(p.Col), Y: float64(p.Row)}
}

func isEyeCascade(name string) bool {
	for _, n := range eyeCascades {
		if n == name {
			return true
		}
	}
	return false
}

// relativeRegions maps pixel outlines into box-relative coordinates
func relativeRegions(box BoundingBox, regions map[Region][]geom.Point) Landmarks {
	out := make(Landmarks, len(regions))
	for r, pts := range regions {
		rel := make([]geom.Point, len(pts))
		for i, p := range pts {
			rel[i] = box.relative(p)
		}
		out[r] = rel
	}
	return out
}

// sortByAngle orders scattered points around their centroid so that they
// trace a simple polygon.
func sortByAngle(pts []geom.Point) []geom.Point {
	if len(pts) < 3 {
		return pts
	}
	var c geom.Point
	for _, p := range pts {
		c.X += p.X
		c.Y += p.Y
	}
	c.X /= float64(len(pts))
	c.Y /= float64(len(pts))

	sorted := make([]geom.Point, len(pts))
	copy(sorted, pts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return math.Atan2(sorted[i].Y-c.Y, sorted[i].X-c.X) < math.Atan2(sorted[j].Y-c.Y, sorted[j].X-c.X)
	})
	return sorted
}
