package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dudu/facemarks/internal/config"
	"github.com/dudu/facemarks/internal/detector"
	"github.com/dudu/facemarks/internal/inference"
	"github.com/dudu/facemarks/internal/log"
)

// Version is the application version.
const Version = "0.1.0"

func newRootCmd(cfg *config.Config) *cobra.Command {
	var noColor bool

	root := &cobra.Command{
		Use:     "facemarks",
		Short:   "Draw detected facial landmarks over photos",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			log.Init(log.Options{Level: cfg.LogLevel, File: cfg.LogFile, NoColor: noColor})
			return nil
		},
		SilenceErrors: true,
	}
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	f := root.PersistentFlags()
	f.StringVar(&cfg.Backend, "backend", cfg.Backend, "Face detector: onnx (SCRFD and 2d106det) or pigo (pure Go cascades)")
	f.StringVar(&cfg.ModelsDir, "models-dir", cfg.ModelsDir, "Directory holding the ONNX models")
	f.StringVar(&cfg.SCRFDModel, "detector-model", cfg.SCRFDModel, "SCRFD face detection model")
	f.StringVar(&cfg.LandmarkModel, "landmark-model", cfg.LandmarkModel, "106-point landmark model (empty uses the detector's 5 keypoints)")
	f.StringVar(&cfg.FaceCascade, "face-cascade", cfg.FaceCascade, "pigo face cascade")
	f.StringVar(&cfg.PuplocCascade, "puploc-cascade", cfg.PuplocCascade, "pigo pupil cascade (empty disables eye and mouth outlines)")
	f.StringVar(&cfg.FlplocDir, "flploc-dir", cfg.FlplocDir, "Directory of pigo landmark cascades")
	f.StringVar(&cfg.ORTLibrary, "ort-lib", cfg.ORTLibrary, "Path to the ONNX Runtime shared library")
	f.BoolVar(&cfg.UseCoreML, "coreml", cfg.UseCoreML, "Use the CoreML execution provider when available")
	f.IntVarP(&cfg.MaxResolution, "max-resolution", "r", cfg.MaxResolution, "Longest side of the displayed image (0 keeps full size)")
	f.IntVar(&cfg.DetectionSize, "detection-size", cfg.DetectionSize, "Face detector input size (multiple of 32)")
	f.Float32Var(&cfg.ConfThreshold, "threshold", cfg.ConfThreshold, "Face detection confidence threshold")
	f.Float32Var(&cfg.NMSThreshold, "nms", cfg.NMSThreshold, "Overlap above which weaker detections are dropped")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	f.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Also write logs to this rotating file")
	f.BoolVar(&noColor, "no-color", false, "Disable coloured log output")

	root.AddCommand(
		newOverlayCmd(cfg),
		newLiveCmd(cfg),
		newModelsCmd(cfg),
	)
	return root
}

// openDetector loads the configured backend. Call the returned shutdown once
// the detector is closed.
func openDetector(cfg *config.Config) (detector.Detector, func(), error) {
	if cfg.Backend == config.BackendPigo {
		pcfg := detector.DefaultPigoConfig()
		pcfg.FaceCascade = cfg.ModelPath(cfg.FaceCascade)
		pcfg.PuplocCascade = cfg.ModelPath(cfg.PuplocCascade)
		pcfg.FlplocDir = cfg.ModelPath(cfg.FlplocDir)

		det, err := detector.NewPigo(pcfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load cascades: %w", err)
		}
		log.Info(log.Fields{"cascade": pcfg.FaceCascade, "puploc": pcfg.PuplocCascade}, "cascades loaded")
		return det, func() {}, nil
	}

	if err := inference.Initialize(cfg.ORTLibrary); err != nil {
		return nil, nil, err
	}

	det, err := detector.NewONNX(detector.Config{
		SCRFDModelPath:    cfg.ModelPath(cfg.SCRFDModel),
		LandmarkModelPath: cfg.ModelPath(cfg.LandmarkModel),
		SCRFD: detector.SCRFDConfig{
			InputSize:     cfg.DetectionSize,
			ConfThreshold: cfg.ConfThreshold,
			NMSThreshold:  cfg.NMSThreshold,
			CoreML:        cfg.UseCoreML,
		},
	})
	if err != nil {
		inference.Shutdown()
		return nil, nil, fmt.Errorf("failed to load models: %w", err)
	}

	log.Info(log.Fields{
		"detector":  cfg.ModelPath(cfg.SCRFDModel),
		"landmarks": cfg.ModelPath(cfg.LandmarkModel),
		"coreml":    cfg.UseCoreML,
	}, "models loaded")

	return det, func() {
		if err := inference.Shutdown(); err != nil {
			log.Warn(log.Fields{"error": err}, "ONNX Runtime shutdown failed")
		}
	}, nil
}
