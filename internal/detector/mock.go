package detector

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/dudu/facemarks/internal/orient"
)

// ErrMockUnconfigured is returned by a Mock without a DetectFunc
var ErrMockUnconfigured = errors.New("detector: mock has no DetectFunc")

// Mock implements Detector for testing.
// All methods can be customized via function fields.
type Mock struct {
	// DetectFunc is called when Detect is invoked.
	// If nil, returns ErrMockUnconfigured.
	DetectFunc func(ctx context.Context, img gocv.Mat, o orient.Orientation) ([]FaceObservation, error)

	// CloseFunc is called when Close is invoked.
	// If nil, returns nil.
	CloseFunc func() error

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a Detect invocation for verification.
type MockCall struct {
	Orientation orient.Orientation
	Size        image.Point // upright size of the submitted image
	Time        time.Time
}

// NewMock returns a mock that reports the given faces for every image.
func NewMock(faces ...FaceObservation) *Mock {
	return &Mock{
		DetectFunc: func(ctx context.Context, img gocv.Mat, o orient.Orientation) ([]FaceObservation, error) {
			out := make([]FaceObservation, len(faces))
			copy(out, faces)
			return out, nil
		},
	}
}

// WithError returns a mock that always fails with err.
func WithError(err error) *Mock {
	return &Mock{
		DetectFunc: func(ctx context.Context, img gocv.Mat, o orient.Orientation) ([]FaceObservation, error) {
			return nil, err
		},
	}
}

// WithLatency delays every Detect by delay, honouring ctx.
func WithLatency(m *Mock, delay time.Duration) *Mock {
	original := m.DetectFunc
	m.DetectFunc = func(ctx context.Context, img gocv.Mat, o orient.Orientation) ([]FaceObservation, error) {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if original != nil {
			return original(ctx, img, o)
		}
		return nil, ErrMockUnconfigured
	}
	return m
}

// Detect calls DetectFunc and records the call.
func (m *Mock) Detect(ctx context.Context, img gocv.Mat, o orient.Orientation) ([]FaceObservation, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Orientation: o, Size: uprightSize(img, o), Time: time.Now()})
	m.mu.Unlock()

	if m.DetectFunc != nil {
		return m.DetectFunc(ctx, img, o)
	}
	return nil, ErrMockUnconfigured
}

// Close calls CloseFunc.
func (m *Mock) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Calls returns all recorded Detect calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// Verify Mock implements Detector at compile time.
var _ Detector = (*Mock)(nil)
