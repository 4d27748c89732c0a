package detector

import (
	"fmt"
	"image"

	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"

	"github.com/dudu/facemarks/internal/geom"
	"github.com/dudu/facemarks/internal/inference"
	"github.com/dudu/facemarks/internal/orient"
)

// Landmark106 detects 106 facial landmarks using insightface's 2d106det model
type Landmark106 struct {
	session   *inference.Session
	inputSize int
	inputMean float64
	inputStd  float64
}

// NewLandmark106 creates a new 106-point landmark detector
func NewLandmark106(modelPath string, opts inference.Options) (*Landmark106, error) {
	if err := checkModel(modelPath); err != nil {
		return nil, err
	}

	session, err := inference.NewSession(modelPath, []string{"data"}, []string{"fc1"}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create landmark session: %w", err)
	}

	return &Landmark106{
		session:   session,
		inputSize: 192,
		inputMean: 127.5,
		inputStd:  128.0,
	}, nil
}

// Detect fills face.Landmarks106 from the image the face was found in
func (l *Landmark106) Detect(img gocv.Mat, face *Face) error {
	crop := l.cropTransform(face.BoundingBox)

	aligned := orient.Warp(img, crop, image.Pt(l.inputSize, l.inputSize), gocv.InterpolationLinear)
	defer aligned.Close()

	blob := gocv.BlobFromImage(aligned, 1.0/l.inputStd, image.Pt(l.inputSize, l.inputSize),
		gocv.NewScalar(l.inputMean, l.inputMean, l.inputMean, 0), true, false)
	defer blob.Close()

	inputTensor, err := ort.NewTensor(
		ort.NewShape(1, 3, int64(l.inputSize), int64(l.inputSize)),
		bytesToFloat32(blob.ToBytes()),
	)
	if err != nil {
		return fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	// (1, 212) = 106 landmarks * 2 coords
	outputTensor, err := inference.CreateEmptyTensor[float32]([]int64{1, 212})
	if err != nil {
		return fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	if err := l.session.Run([]ort.Value{inputTensor}, []ort.Value{outputTensor}); err != nil {
		return fmt.Errorf("landmark inference failed: %w", err)
	}

	landmarks, err := l.postprocess(outputTensor.GetData(), crop)
	if err != nil {
		return err
	}
	face.Landmarks106 = &landmarks
	return nil
}

// cropTransform maps image pixels into the model input: the face centre lands
// in the middle and the larger box side, expanded 1.5x, fills the crop
func (l *Landmark106) cropTransform(box BoundingBox) geom.Affine {
	c := box.Center()
	side := max(box.Width(), box.Height()) * 1.5
	if side <= 0 {
		side = float64(l.inputSize)
	}
	s := float64(l.inputSize) / side
	half := float64(l.inputSize) / 2

	return geom.Translation(-c.X, -c.Y).
		Concat(geom.Scaling(s, s)).
		Concat(geom.Translation(half, half))
}

// postprocess maps model output in [-1, 1] back to image coordinates
func (l *Landmark106) postprocess(output []float32, crop geom.Affine) (Landmarks106, error) {
	var landmarks Landmarks106
	if len(output) < 212 {
		return landmarks, fmt.Errorf("landmark output has %d values, want 212", len(output))
	}

	inv, ok := crop.Invert()
	if !ok {
		return landmarks, fmt.Errorf("degenerate landmark crop")
	}

	half := float64(l.inputSize) / 2
	for i := range landmarks {
		p := geom.Point{
			X: (float64(output[i*2]) + 1) * half,
			Y: (float64(output[i*2+1]) + 1) * half,
		}
		landmarks[i] = inv.Apply(p)
	}
	return landmarks, nil
}

// Close releases detector resources
func (l *Landmark106) Close() error {
	return l.session.Destroy()
}

// regionIndices groups the insightface 106-point markup into outlines. Left and
// right follow the subject, so the left eye sits on the image's right.
var regionIndices = map[Region][]int{
	FaceContour: {
		1, 9, 10, 11, 12, 13, 14, 15, 16, 2, 3, 4, 5, 6, 7, 8, 0,
		24, 23, 22, 21, 20, 19, 18, 32, 31, 30, 29, 28, 27, 26, 25, 17,
	},
	LeftEyebrow:  {102, 103, 104, 105, 101},
	RightEyebrow: {43, 48, 49, 51, 50},
	LeftEye:      {89, 90, 87, 91, 93, 96, 94, 95},
	RightEye:     {35, 36, 33, 37, 39, 42, 40, 41},
	Nose:         {72, 73, 74, 86, 78, 79, 80, 85, 84},
	OuterLips:    {52, 64, 63, 71, 67, 68, 61, 58, 59, 53, 56, 55},
}

// RegionIndices returns the 106-point indices outlining a region
func RegionIndices(r Region) []int {
	return regionIndices[r]
}

// GetPoints returns the landmarks at the given indices, skipping any out of range
func (l *Landmarks106) GetPoints(indices []int) []geom.Point {
	points := make([]geom.Point, 0, len(indices))
	for _, idx := range indices {
		if idx >= 0 && idx < len(l) {
			points = append(points, l[idx])
		}
	}
	return points
}
