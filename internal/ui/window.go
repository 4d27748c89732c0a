package ui

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Keys handled by the preview loop
const (
	KeyNone  = -1
	KeyEsc   = 27
	KeySpace = 32
	KeyQ     = 'q'
)

var textColor = color.RGBA{R: 0, G: 255, B: 0, A: 255}

// Window manages the preview display
type Window struct {
	window *gocv.Window
	name   string
	size   image.Point
}

// NewWindow creates a preview window of the given size
func NewWindow(name string, size image.Point) *Window {
	window := gocv.NewWindow(name)
	// Force window to appear on macOS
	window.ResizeWindow(size.X, size.Y)
	window.MoveWindow(100, 100)
	return &Window{
		window: window,
		name:   name,
		size:   size,
	}
}

// Size returns the canvas size frames should be letterboxed to
func (w *Window) Size() image.Point {
	return w.size
}

// Show displays a frame with a status line in the top-left corner
func (w *Window) Show(frame *gocv.Mat, status string) {
	if status != "" {
		gocv.PutText(frame, status, image.Pt(10, 30), gocv.FontHersheyPlain, 2, textColor, 2)
	}
	w.window.IMShow(*frame)
}

// Prompt shows a blank canvas with a centred message
func (w *Window) Prompt(text string) {
	canvas := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), w.size.Y, w.size.X, gocv.MatTypeCV8UC3)
	defer canvas.Close()

	ts := gocv.GetTextSize(text, gocv.FontHersheySimplex, 1, 2)
	org := image.Pt((w.size.X-ts.X)/2, (w.size.Y+ts.Y)/2)
	gocv.PutText(&canvas, text, org, gocv.FontHersheySimplex, 1, textColor, 2)
	w.window.IMShow(canvas)
}

// WaitKey waits for key press, returns key code or -1
func (w *Window) WaitKey(delayMs int) int {
	return w.window.WaitKey(delayMs)
}

// Close closes the window
func (w *Window) Close() error {
	if w.window != nil {
		return w.window.Close()
	}
	return nil
}
