package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/dudu/facemarks/internal/config"
	"github.com/dudu/facemarks/internal/log"
	"github.com/dudu/facemarks/internal/overlay"
	"github.com/dudu/facemarks/internal/photo"
	"github.com/dudu/facemarks/internal/pipeline"
)

func newOverlayCmd(cfg *config.Config) *cobra.Command {
	var inputs []string

	cmd := &cobra.Command{
		Use:   "overlay [photos...]",
		Short: "Write annotated copies of photos",
		Example: `  facemarks overlay -i portrait.jpg -o out
  facemarks overlay --max-resolution 0 photos/*.jpg`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runOverlay(cmd.Context(), cfg, append(inputs, args...))
		},
	}

	cmd.Flags().StringSliceVarP(&inputs, "input", "i", nil, "Photo to annotate (repeatable)")
	cmd.Flags().StringVarP(&cfg.OutputDir, "output", "o", cfg.OutputDir, "Directory for annotated copies")
	cmd.Flags().StringVar(&cfg.OutputSuffix, "suffix", cfg.OutputSuffix, "Appended to each output file name")
	cmd.Flags().IntVarP(&cfg.JPEGQuality, "quality", "q", cfg.JPEGQuality, "JPEG quality of the output")
	return cmd
}

func runOverlay(ctx context.Context, cfg *config.Config, paths []string) error {
	if len(paths) == 0 {
		return fmt.Errorf("no photos given, use -i or pass paths as arguments")
	}

	det, shutdown, err := openDetector(cfg)
	if err != nil {
		return err
	}
	defer shutdown()

	p := pipeline.New(pipeline.Config{MaxResolution: cfg.MaxResolution, Style: overlay.DefaultStyle()}, det)
	defer p.Close()

	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetDescription("Annotating"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	source := photo.NewFiles(paths, false)
	defer source.Close()

	var failed []error
	for i := 0; i < source.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := annotate(ctx, cfg, p, source); err != nil {
			log.Error(log.Fields{"photo": paths[i], "error": err}, "photo skipped")
			failed = append(failed, err)
		}
		bar.Add(1)
	}
	bar.Finish()

	if len(failed) > 0 {
		return fmt.Errorf("%d of %d photos failed: %w", len(failed), len(paths), errors.Join(failed...))
	}
	log.Info(log.Fields{"photos": len(paths), "output": cfg.OutputDir}, "done")
	return nil
}

func annotate(ctx context.Context, cfg *config.Config, p *pipeline.Pipeline, source pipeline.Source) error {
	ph, err := source.Next(ctx)
	if err != nil {
		return err
	}
	defer ph.Close()

	frame, err := p.Process(ctx, ph)
	if err != nil {
		return err
	}
	defer frame.Close()

	out := photo.OutputPath(cfg.OutputDir, ph.Name, cfg.OutputSuffix)
	if err := photo.Save(out, frame.Image, cfg.JPEGQuality); err != nil {
		return err
	}

	log.Info(log.Fields{
		"photo":     ph.Name,
		"faces":     len(frame.Faces),
		"output":    out,
		"detection": frame.Timing.Detection,
		"total":     frame.Timing.Total,
	}, "annotated")
	return nil
}
