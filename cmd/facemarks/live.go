package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/spf13/cobra"
	"gocv.io/x/gocv"

	"github.com/dudu/facemarks/internal/camera"
	"github.com/dudu/facemarks/internal/config"
	"github.com/dudu/facemarks/internal/log"
	"github.com/dudu/facemarks/internal/orient"
	"github.com/dudu/facemarks/internal/overlay"
	"github.com/dudu/facemarks/internal/photo"
	"github.com/dudu/facemarks/internal/pipeline"
	"github.com/dudu/facemarks/internal/render"
	"github.com/dudu/facemarks/internal/ui"
)

func newLiveCmd(cfg *config.Config) *cobra.Command {
	var inputs []string

	cmd := &cobra.Command{
		Use:   "live",
		Short: "Preview landmarks on camera snapshots or photos",
		Long: `Opens a preview window. Space takes a new camera snapshot (or shows the
next photo when -i is given), q or ESC quits. A new photo replaces the one
being analysed; its late results are ignored.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runLive(cmd.Context(), cfg, inputs)
		},
	}

	cmd.Flags().StringSliceVarP(&inputs, "input", "i", nil, "Cycle through these photos instead of the camera")
	cmd.Flags().IntVarP(&cfg.CameraIndex, "camera", "c", cfg.CameraIndex, "Camera device index")
	cmd.Flags().IntVar(&cfg.DisplayWidth, "width", cfg.DisplayWidth, "Preview width")
	cmd.Flags().IntVar(&cfg.DisplayHeight, "height", cfg.DisplayHeight, "Preview height")
	return cmd
}

// liveView owns the window and everything drawn in it. All methods run on the
// main goroutine.
type liveView struct {
	window *ui.Window
	style  overlay.Style
	scene  *pipeline.Scene
	base   gocv.Mat // letterboxed photo without overlays
	status string
}

func (v *liveView) setPhoto(base gocv.Mat, generation uint64) {
	v.base.Close()
	v.base = base
	v.scene.Reset(generation)
	v.status = "detecting..."
	v.redraw()
}

func (v *liveView) apply(res pipeline.Result) {
	if !v.scene.Apply(res) {
		if res.Err != nil && res.Request.Generation == v.scene.Generation() {
			v.status = "detection failed"
			v.redraw()
		}
		return
	}
	v.status = fmt.Sprintf("%d face(s), %dms", len(res.Faces), res.Elapsed.Milliseconds())
	v.redraw()
}

func (v *liveView) redraw() {
	frame := v.base.Clone()
	defer frame.Close()
	if err := render.Composite(&frame, v.scene.Overlays(), v.style); err != nil {
		log.Warn(log.Fields{"error": err}, "overlay not drawn")
	}
	v.window.Show(&frame, v.status)
}

func runLive(ctx context.Context, cfg *config.Config, inputs []string) error {
	var source pipeline.Source
	prompt := "Press space for the next photo"
	if len(inputs) > 0 {
		source = photo.NewFiles(inputs, true)
	} else {
		cam, err := camera.NewCapture(cfg.CameraIndex, cfg.DisplayWidth, cfg.DisplayHeight)
		if err != nil {
			return err
		}
		log.Info(log.Fields{"camera": cfg.CameraIndex, "size": fmt.Sprintf("%dx%d", cam.Width(), cam.Height())}, "camera opened")
		source = cam
		prompt = "Press space to take a photo"
	}
	defer source.Close()

	det, shutdown, err := openDetector(cfg)
	if err != nil {
		return err
	}
	defer shutdown()
	defer det.Close()

	rec := pipeline.NewRecognizer(det)
	defer rec.Wait()

	// drained on every key poll; never block a detection goroutine
	results := make(chan pipeline.Result, 8)
	deliver := func(res pipeline.Result) {
		select {
		case results <- res:
		default:
			log.WithRequest(res.Request.ID).Debug("result channel full, dropping")
		}
	}

	view := &liveView{
		window: ui.NewWindow("facemarks", image.Pt(cfg.DisplayWidth, cfg.DisplayHeight)),
		style:  overlay.DefaultStyle(),
		scene:  pipeline.NewScene(),
		base:   gocv.NewMat(),
	}
	defer view.window.Close()
	defer view.base.Close()
	view.window.Prompt(prompt)

	next := func() error {
		ph, err := source.Next(ctx)
		if err != nil {
			return err
		}
		defer ph.Close()

		upright, size, err := orient.Normalize(ph.Image, ph.Orientation, cfg.MaxResolution)
		if errors.Is(err, orient.ErrNoPixelData) {
			log.Warn(log.Fields{"photo": ph.Name}, "photo has no pixel data")
			return nil
		}
		defer upright.Close()

		base, fit := render.Letterbox(upright, view.window.Size())
		req := rec.Start(ctx, ph.Image, ph.Orientation, fit, deliver)
		log.WithRequest(req.ID).WithField("photo", ph.Name).WithField("size", fmt.Sprintf("%dx%d", size.X, size.Y)).Debug("photo submitted")
		view.setPhoto(base, req.Generation)
		return nil
	}

	log.Info(nil, "running, press space for a photo and q to quit")
	for {
		select {
		case <-ctx.Done():
			return nil
		case res := <-results:
			view.apply(res)
		default:
		}

		switch view.window.WaitKey(30) {
		case ui.KeyQ, ui.KeyEsc:
			return nil
		case ui.KeySpace:
			if err := next(); err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				log.Error(log.Fields{"error": err}, "no photo")
				view.window.Prompt(prompt)
			}
		}
	}
}
