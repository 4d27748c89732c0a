// Package detector adapts face and landmark models to a single boundary: an
// image plus its orientation tag in, normalized face observations out.
package detector

import (
	"context"
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/dudu/facemarks/internal/inference"
	"github.com/dudu/facemarks/internal/log"
	"github.com/dudu/facemarks/internal/orient"
)

// Detector finds faces and their landmark regions
type Detector interface {
	// Detect interprets img according to o. Observations are normalized to the
	// upright image.
	Detect(ctx context.Context, img gocv.Mat, o orient.Orientation) ([]FaceObservation, error)
	Close() error
}

// Config holds model locations for the ONNX detector
type Config struct {
	SCRFDModelPath    string
	LandmarkModelPath string // empty falls back to SCRFD's 5 keypoints
	SCRFD             SCRFDConfig
}

// ONNX runs SCRFD and, when configured, insightface's 2d106det
type ONNX struct {
	faces     *SCRFD
	landmarks *Landmark106
}

// NewONNX loads the detector models. inference.Initialize must have been called.
func NewONNX(cfg Config) (*ONNX, error) {
	faces, err := NewSCRFD(cfg.SCRFDModelPath, cfg.SCRFD)
	if err != nil {
		return nil, fmt.Errorf("failed to create face detector: %w", err)
	}

	d := &ONNX{faces: faces}
	if cfg.LandmarkModelPath != "" {
		lm, err := NewLandmark106(cfg.LandmarkModelPath, inference.Options{CoreML: cfg.SCRFD.CoreML})
		if err != nil {
			faces.Close()
			return nil, fmt.Errorf("failed to create landmark detector: %w", err)
		}
		d.landmarks = lm
	}
	return d, nil
}

// Detect implements Detector
func (d *ONNX) Detect(ctx context.Context, img gocv.Mat, o orient.Orientation) ([]FaceObservation, error) {
	upright, size, err := orient.Normalize(img, o, 0)
	if err != nil {
		return nil, err
	}
	defer upright.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	faces, err := d.faces.Detect(upright)
	if err != nil {
		return nil, fmt.Errorf("face detection failed: %w", err)
	}

	observations := make([]FaceObservation, 0, len(faces))
	for i := range faces {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if d.landmarks != nil {
			if err := d.landmarks.Detect(upright, &faces[i]); err != nil {
				log.Warn(log.Fields{"face": i, "error": err}, "landmarks unavailable, using keypoints")
			}
		}
		observations = append(observations, Observe(faces[i], size))
	}

	log.Debug(log.Fields{"faces": len(observations), "size": fmt.Sprintf("%dx%d", size.X, size.Y)}, "detection complete")
	return observations, nil
}

// Close releases both models
func (d *ONNX) Close() error {
	var errs []error
	if d.faces != nil {
		errs = append(errs, d.faces.Close())
	}
	if d.landmarks != nil {
		errs = append(errs, d.landmarks.Close())
	}
	return errors.Join(errs...)
}

var _ Detector = (*ONNX)(nil)

// uprightSize is the image size once o has been applied
func uprightSize(img gocv.Mat, o orient.Orientation) image.Point {
	return orient.NewPlan(img.Cols(), img.Rows(), o, 0).Size
}
