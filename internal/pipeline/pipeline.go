package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"gocv.io/x/gocv"

	"github.com/dudu/facemarks/internal/detector"
	"github.com/dudu/facemarks/internal/geom"
	"github.com/dudu/facemarks/internal/log"
	"github.com/dudu/facemarks/internal/orient"
	"github.com/dudu/facemarks/internal/overlay"
	"github.com/dudu/facemarks/internal/photo"
	"github.com/dudu/facemarks/internal/render"
)

// Config holds pipeline configuration
type Config struct {
	MaxResolution int // display cap; 0 keeps full size
	Style         overlay.Style
}

// Timing holds performance timing information
type Timing struct {
	Normalize time.Duration
	Detection time.Duration
	Overlay   time.Duration
	Render    time.Duration
	Total     time.Duration
}

// Frame is one annotated photo
type Frame struct {
	Image    gocv.Mat // upright, downscaled, overlays composited; owned by the caller
	Size     image.Point
	Faces    []detector.FaceObservation
	Overlays []overlay.FaceOverlay
	Timing   Timing
}

// Close releases the frame's image
func (f *Frame) Close() error {
	return f.Image.Close()
}

// Pipeline annotates photos synchronously
type Pipeline struct {
	config     Config
	detector   Detector
	lastTiming Timing
}

// New creates a pipeline around det. The pipeline owns det from here on.
func New(config Config, det Detector) *Pipeline {
	return &Pipeline{
		config:   config,
		detector: det,
	}
}

// Process normalizes ph for display, detects faces on the original pixels and
// composites the overlays onto the display image
func (p *Pipeline) Process(ctx context.Context, ph photo.Photo) (Frame, error) {
	totalStart := time.Now()
	var timing Timing
	fields := log.Fields{"photo": ph.Name, "orientation": ph.Orientation.String()}

	normStart := time.Now()
	display, size, err := orient.Normalize(ph.Image, ph.Orientation, p.config.MaxResolution)
	empty := errors.Is(err, orient.ErrNoPixelData)
	if empty {
		log.Warn(fields, "photo has no pixel data, using it as is")
		display = ph.Image.Clone()
	}
	timing.Normalize = time.Since(normStart)

	// nothing to detect on an empty photo
	var faces []detector.FaceObservation
	if !empty {
		detectStart := time.Now()
		faces, err = p.detector.Detect(ctx, ph.Image, ph.Orientation)
		timing.Detection = time.Since(detectStart)
		if err != nil {
			display.Close()
			return Frame{}, fmt.Errorf("detection failed: %w", err)
		}
	}

	overlayStart := time.Now()
	overlays := overlay.Build(faces, geom.R(0, 0, float64(size.X), float64(size.Y)))
	timing.Overlay = time.Since(overlayStart)

	renderStart := time.Now()
	if err := render.Composite(&display, overlays, p.config.Style); err != nil {
		log.Warn(log.Fields{"photo": ph.Name, "error": err}, "overlay not drawn")
	}
	timing.Render = time.Since(renderStart)

	timing.Total = time.Since(totalStart)
	p.lastTiming = timing

	fields["faces"] = len(faces)
	fields["total"] = timing.Total
	log.Debug(fields, "photo processed")

	return Frame{
		Image:    display,
		Size:     size,
		Faces:    faces,
		Overlays: overlays,
		Timing:   timing,
	}, nil
}

// LastTiming returns timing from last Process call
func (p *Pipeline) LastTiming() Timing {
	return p.lastTiming
}

// Close releases pipeline resources
func (p *Pipeline) Close() error {
	var errs []error

	if p.detector != nil {
		if err := p.detector.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}
