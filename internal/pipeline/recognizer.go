package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/dudu/facemarks/internal/detector"
	"github.com/dudu/facemarks/internal/geom"
	"github.com/dudu/facemarks/internal/log"
	"github.com/dudu/facemarks/internal/orient"
	"github.com/dudu/facemarks/internal/overlay"
)

// Request identifies one detection pass
type Request struct {
	ID          string
	Generation  uint64
	Orientation orient.Orientation
	Bounds      geom.Rect // display rect the overlays are built against
}

// Result is delivered once per Request. Err is set when detection failed, in
// which case Faces and Overlays are empty.
type Result struct {
	Request  Request
	Faces    []detector.FaceObservation
	Overlays []overlay.FaceOverlay
	Err      error
	Elapsed  time.Duration
}

// Recognizer runs detection off the caller's goroutine
type Recognizer struct {
	det        Detector
	generation atomic.Uint64
	wg         sync.WaitGroup
}

// NewRecognizer wraps a detector
func NewRecognizer(det Detector) *Recognizer {
	return &Recognizer{det: det}
}

// Start submits img for detection and returns immediately. img is copied, so
// the caller may release it. done runs on a background goroutine exactly once;
// callers hand the result to whichever goroutine owns the display. Each call
// gets a higher Generation than the last.
func (r *Recognizer) Start(ctx context.Context, img gocv.Mat, o orient.Orientation, bounds geom.Rect, done func(Result)) Request {
	req := Request{
		ID:          uuid.NewString(),
		Generation:  r.generation.Add(1),
		Orientation: o,
		Bounds:      bounds,
	}
	snapshot := img.Clone()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer snapshot.Close()
		done(r.run(ctx, req, snapshot))
	}()

	return req
}

func (r *Recognizer) run(ctx context.Context, req Request, img gocv.Mat) Result {
	logger := log.WithRequest(req.ID).WithField("generation", req.Generation)
	start := time.Now()

	faces, err := r.det.Detect(ctx, img, req.Orientation)
	res := Result{Request: req, Elapsed: time.Since(start)}
	if err != nil {
		logger.WithError(err).Warn("face detection failed")
		res.Err = err
		return res
	}

	res.Faces = faces
	res.Overlays = overlay.Build(faces, req.Bounds)
	logger.WithField("faces", len(faces)).WithField("elapsed", res.Elapsed).Debug("detection finished")
	return res
}

// Generation returns the most recently issued generation
func (r *Recognizer) Generation() uint64 {
	return r.generation.Load()
}

// Wait blocks until every started request has delivered its result
func (r *Recognizer) Wait() {
	r.wg.Wait()
}
