package pipeline

import (
	"sync"

	"github.com/dudu/facemarks/internal/log"
	"github.com/dudu/facemarks/internal/overlay"
)

// Scene is the overlay state for the photo currently on display. Overlays are
// replaced wholesale; results from superseded requests are discarded.
type Scene struct {
	mu         sync.Mutex
	generation uint64
	overlays   []overlay.FaceOverlay
	lastErr    error
}

// NewScene returns an empty scene
func NewScene() *Scene {
	return &Scene{}
}

// Reset clears the overlays for a newly displayed photo whose detection
// request carries generation
func (s *Scene) Reset(generation uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation = generation
	s.overlays = nil
	s.lastErr = nil
}

// Apply installs a result if it belongs to the current photo. It reports
// whether the scene changed. Failed results leave the overlays untouched and
// are kept as LastError.
func (s *Scene) Apply(res Result) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if res.Request.Generation != s.generation {
		log.Debug(log.Fields{
			log.RequestIDKey: res.Request.ID,
			"generation":     res.Request.Generation,
			"current":        s.generation,
		}, "dropping stale detection result")
		return false
	}
	if res.Err != nil {
		s.lastErr = res.Err
		return false
	}

	s.overlays = res.Overlays
	return true
}

// Overlays returns a copy of the current overlays
func (s *Scene) Overlays() []overlay.FaceOverlay {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]overlay.FaceOverlay, len(s.overlays))
	copy(out, s.overlays)
	return out
}

// Generation returns the generation the scene is waiting on
func (s *Scene) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// LastError returns the error from the current photo's detection, if any
func (s *Scene) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}
