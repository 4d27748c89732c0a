package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tsawler/go-metal/checkpoints"

	"github.com/dudu/facemarks/internal/config"
	"github.com/dudu/facemarks/internal/inference"
)

func newModelsCmd(cfg *config.Config) *cobra.Command {
	var metal bool

	cmd := &cobra.Command{
		Use:   "models [model.onnx...]",
		Short: "Show inputs and outputs of the configured (or given) ONNX models",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			paths := args
			if len(paths) == 0 {
				paths = []string{cfg.ModelPath(cfg.SCRFDModel)}
				if cfg.LandmarkModel != "" {
					paths = append(paths, cfg.ModelPath(cfg.LandmarkModel))
				}
			}

			if err := inference.Initialize(cfg.ORTLibrary); err != nil {
				return err
			}
			defer inference.Shutdown()

			var errs []error
			for _, path := range paths {
				if err := describeModel(cmd.OutOrStdout(), path, metal); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		},
	}

	cmd.Flags().BoolVar(&metal, "metal", false, "Also check whether go-metal can import each model")
	return cmd
}

func describeModel(w io.Writer, path string, metal bool) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}

	inputs, outputs, err := inference.Describe(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s\n", path)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, in := range inputs {
		fmt.Fprintf(tw, "  in\t%s\t%v\t%s\n", in.Name, in.Dimensions, in.DataType)
	}
	for _, out := range outputs {
		fmt.Fprintf(tw, "  out\t%s\t%v\t%s\n", out.Name, out.Dimensions, out.DataType)
	}
	tw.Flush()

	if metal {
		checkpoint, err := checkpoints.NewONNXImporter().ImportFromONNX(path)
		if err != nil {
			// go-metal only covers a handful of ops, most detectors won't import
			fmt.Fprintf(w, "  go-metal: not importable (%v)\n", err)
		} else {
			fmt.Fprintf(w, "  go-metal: %d layers, %d weight tensors\n",
				len(checkpoint.ModelSpec.Layers), len(checkpoint.Weights))
		}
	}
	fmt.Fprintln(w)
	return nil
}
