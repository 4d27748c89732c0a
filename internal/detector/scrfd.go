package detector

import (
	"fmt"
	"image"
	"math"

	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"

	"github.com/dudu/facemarks/internal/geom"
	"github.com/dudu/facemarks/internal/inference"
)

// SCRFDConfig tunes the SCRFD face detector
type SCRFDConfig struct {
	InputSize     int // square network input, multiple of 32
	ConfThreshold float32
	NMSThreshold  float32
	CoreML        bool
}

// DefaultSCRFDConfig returns the settings used by insightface's buffalo_l pack
func DefaultSCRFDConfig() SCRFDConfig {
	return SCRFDConfig{
		InputSize:     640,
		ConfThreshold: 0.5,
		NMSThreshold:  0.4,
	}
}

// SCRFD implements the SCRFD face detector
type SCRFD struct {
	session        *inference.Session
	cfg            SCRFDConfig
	featureStrides []int
	numAnchors     int
}

// NewSCRFD creates a new SCRFD detector
func NewSCRFD(modelPath string, cfg SCRFDConfig) (*SCRFD, error) {
	if err := checkModel(modelPath); err != nil {
		return nil, err
	}

	// SCRFD has 1 input and 9 outputs (3 levels × score, bbox, kps). Export
	// tools name them differently so take whatever the graph declares.
	inputs, outputs, err := inference.Describe(modelPath)
	if err != nil {
		return nil, err
	}
	if len(inputs) != 1 || len(outputs) != 9 {
		return nil, fmt.Errorf("unexpected SCRFD graph %s: %d inputs, %d outputs (want 1 and 9, a *_bnkps model)",
			modelPath, len(inputs), len(outputs))
	}

	session, err := inference.NewSession(modelPath, names(inputs), names(outputs), inference.Options{CoreML: cfg.CoreML})
	if err != nil {
		return nil, fmt.Errorf("failed to create SCRFD session: %w", err)
	}

	return &SCRFD{
		session:        session,
		cfg:            cfg,
		featureStrides: []int{8, 16, 32},
		numAnchors:     2, // anchors per position
	}, nil
}

func names(infos []inference.ModelInfo) []string {
	out := make([]string, len(infos))
	for i, info := range infos {
		out[i] = info.Name
	}
	return out
}

// Detect finds faces in an upright BGR image. Boxes and keypoints are in pixels.
func (s *SCRFD) Detect(img gocv.Mat) ([]Face, error) {
	origWidth, origHeight := img.Cols(), img.Rows()
	size := s.cfg.InputSize

	inputBlob, scale := s.preprocess(img)
	defer inputBlob.Close()

	inputTensor, err := ort.NewTensor(
		ort.NewShape(1, 3, int64(size), int64(size)),
		bytesToFloat32(inputBlob.ToBytes()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputs := make([]ort.Value, 9)
	outputTensors := make([]*ort.Tensor[float32], 9)
	defer func() {
		for _, t := range outputTensors {
			if t != nil {
				t.Destroy()
			}
		}
	}()

	widths := []int64{1, 4, 10} // score, bbox, kps
	for level, stride := range s.featureStrides {
		fm := size / stride
		anchors := int64(fm * fm * s.numAnchors)
		for kind, width := range widths {
			t, err := inference.CreateEmptyTensor[float32]([]int64{anchors, width})
			if err != nil {
				return nil, fmt.Errorf("failed to create output tensor: %w", err)
			}
			outputs[level+kind*3] = t
			outputTensors[level+kind*3] = t
		}
	}

	if err := s.session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	faces := s.postprocess(outputTensors, scale, origWidth, origHeight)
	return nms(faces, s.cfg.NMSThreshold), nil
}

// preprocess letterboxes the image into the top-left of the network input and
// returns the NCHW blob, RGB, normalized to (x - 127.5) / 128
func (s *SCRFD) preprocess(img gocv.Mat) (gocv.Mat, float64) {
	size := s.cfg.InputSize
	scale := float64(size) / float64(max(img.Rows(), img.Cols()))

	newWidth := int(float64(img.Cols()) * scale)
	newHeight := int(float64(img.Rows()) * scale)

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(img, &resized, image.Pt(newWidth, newHeight), 0, 0, gocv.InterpolationLinear)

	padded := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), size, size, gocv.MatTypeCV8UC3)
	defer padded.Close()

	roi := padded.Region(image.Rect(0, 0, newWidth, newHeight))
	resized.CopyTo(&roi)
	roi.Close()

	blob := gocv.BlobFromImage(padded, 1.0/128.0, image.Pt(size, size),
		gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)

	return blob, scale
}

// postprocess decodes model outputs to faces
func (s *SCRFD) postprocess(outputs []*ort.Tensor[float32], scale float64, origWidth, origHeight int) []Face {
	var faces []Face

	for level, stride := range s.featureStrides {
		fm := s.cfg.InputSize / stride

		scoreData := outputs[level].GetData()
		bboxData := outputs[level+3].GetData()
		kpsData := outputs[level+6].GetData()

		anchorIdx := 0
		for y := 0; y < fm; y++ {
			for x := 0; x < fm; x++ {
				for a := 0; a < s.numAnchors; a++ {
					// scrfd exports already apply the sigmoid
					score := scoreData[anchorIdx]
					if score > s.cfg.ConfThreshold {
						anchor := geom.Pt(float64(x*stride), float64(y*stride))

						box := distanceToBox(anchor, bboxData[anchorIdx*4:anchorIdx*4+4], stride, scale)
						box = box.clamp(float64(origWidth), float64(origHeight))

						faces = append(faces, Face{
							BoundingBox: box,
							Keypoints:   distanceToKeypoints(anchor, kpsData[anchorIdx*10:anchorIdx*10+10], stride, scale),
							Score:       float64(score),
						})
					}
					anchorIdx++
				}
			}
		}
	}

	return faces
}

// distanceToBox decodes (left, top, right, bottom) distances from an anchor
// into an image-space box
func distanceToBox(anchor geom.Point, d []float32, stride int, scale float64) BoundingBox {
	st := float64(stride)
	return BoundingBox{
		X1: (anchor.X - float64(d[0])*st) / scale,
		Y1: (anchor.Y - float64(d[1])*st) / scale,
		X2: (anchor.X + float64(d[2])*st) / scale,
		Y2: (anchor.Y + float64(d[3])*st) / scale,
	}
}

// distanceToKeypoints decodes 5 (dx, dy) offsets from an anchor
func distanceToKeypoints(anchor geom.Point, d []float32, stride int, scale float64) Keypoints {
	st := float64(stride)
	pt := func(i int) geom.Point {
		return geom.Point{
			X: (anchor.X + float64(d[i*2])*st) / scale,
			Y: (anchor.Y + float64(d[i*2+1])*st) / scale,
		}
	}
	return Keypoints{
		LeftEye:    pt(0),
		RightEye:   pt(1),
		Nose:       pt(2),
		LeftMouth:  pt(3),
		RightMouth: pt(4),
	}
}

func (b BoundingBox) clamp(w, h float64) BoundingBox {
	return BoundingBox{
		X1: clamp(b.X1, 0, w),
		Y1: clamp(b.Y1, 0, h),
		X2: clamp(b.X2, 0, w),
		Y2: clamp(b.Y2, 0, h),
	}
}

// Close releases detector resources
func (s *SCRFD) Close() error {
	return s.session.Destroy()
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(x, hi))
}

func bytesToFloat32(data []byte) []float32 {
	result := make([]float32, len(data)/4)
	for i := range result {
		bits := uint32(data[i*4]) | uint32(data[i*4+1])<<8 | uint32(data[i*4+2])<<16 | uint32(data[i*4+3])<<24
		result[i] = math.Float32frombits(bits)
	}
	return result
}
