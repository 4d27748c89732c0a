package pipeline

import (
	"context"

	"gocv.io/x/gocv"

	"github.com/dudu/facemarks/internal/detector"
	"github.com/dudu/facemarks/internal/orient"
	"github.com/dudu/facemarks/internal/photo"
)

// Source yields photos to annotate. Next returns io.EOF when exhausted.
type Source interface {
	Next(ctx context.Context) (photo.Photo, error)
	Close() error
}

// Detector is the face/landmark boundary the pipeline drives
type Detector interface {
	Detect(ctx context.Context, img gocv.Mat, o orient.Orientation) ([]detector.FaceObservation, error)
	Close() error
}
