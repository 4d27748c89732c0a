package camera

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/dudu/facemarks/internal/orient"
	"github.com/dudu/facemarks/internal/photo"
)

// Capture takes still snapshots from a webcam
type Capture struct {
	webcam   *gocv.VideoCapture
	deviceID int
	width    int
	height   int
	shots    int
	mu       sync.Mutex
}

// NewCapture opens a camera and requests the given resolution
func NewCapture(deviceID, width, height int) (*Capture, error) {
	webcam, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %d: %w", deviceID, err)
	}

	webcam.Set(gocv.VideoCaptureFrameWidth, float64(width))
	webcam.Set(gocv.VideoCaptureFrameHeight, float64(height))

	// camera may not support requested resolution
	return &Capture{
		webcam:   webcam,
		deviceID: deviceID,
		width:    int(webcam.Get(gocv.VideoCaptureFrameWidth)),
		height:   int(webcam.Get(gocv.VideoCaptureFrameHeight)),
	}, nil
}

// Next takes a snapshot. Frames come off the sensor upright, so the photo's
// orientation is always Up. A few frames are skipped first so the snapshot is
// current rather than whatever the driver buffered.
func (c *Capture) Next(ctx context.Context) (photo.Photo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.webcam == nil {
		return photo.Photo{}, fmt.Errorf("camera %d is closed", c.deviceID)
	}

	frame := gocv.NewMat()
	const flush = 3
	for i := 0; i <= flush; i++ {
		if err := ctx.Err(); err != nil {
			frame.Close()
			return photo.Photo{}, err
		}
		if !c.webcam.Read(&frame) || frame.Empty() {
			frame.Close()
			return photo.Photo{}, fmt.Errorf("failed to read from camera %d", c.deviceID)
		}
	}

	c.shots++
	return photo.Photo{
		Name:        fmt.Sprintf("camera%d-%s-%d", c.deviceID, time.Now().Format("150405"), c.shots),
		Image:       frame,
		Orientation: orient.Up,
	}, nil
}

// Width returns frame width
func (c *Capture) Width() int {
	return c.width
}

// Height returns frame height
func (c *Capture) Height() int {
	return c.height
}

// Close releases the camera
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.webcam != nil {
		err := c.webcam.Close()
		c.webcam = nil
		return err
	}
	return nil
}
