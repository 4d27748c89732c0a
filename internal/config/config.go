// Package config holds runtime configuration for facemarks commands.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Detector backends
const (
	BackendONNX = "onnx"
	BackendPigo = "pigo"
)

// Config holds tool configuration
type Config struct {
	Backend       string
	ModelsDir     string
	SCRFDModel    string // relative to ModelsDir unless absolute
	LandmarkModel string // empty disables 106-point landmarks
	FaceCascade   string // pigo backend, relative to ModelsDir unless absolute
	PuplocCascade string
	FlplocDir     string
	ORTLibrary    string
	UseCoreML     bool
	MaxResolution int
	DetectionSize int
	ConfThreshold float32
	NMSThreshold  float32
	LogLevel      string
	LogFile       string
	CameraIndex   int
	DisplayWidth  int
	DisplayHeight int
	OutputDir     string
	OutputSuffix  string
	JPEGQuality   int
}

// Default returns production defaults
func Default() Config {
	return Config{
		Backend:       BackendONNX,
		ModelsDir:     "models",
		SCRFDModel:    "scrfd_10g.onnx",
		LandmarkModel: "2d106det.onnx",
		FaceCascade:   "cascade/facefinder",
		PuplocCascade: "cascade/puploc",
		FlplocDir:     "cascade/lps",
		ORTLibrary:    defaultORTLibrary(),
		UseCoreML:     false,
		MaxResolution: 640,
		DetectionSize: 640,
		ConfThreshold: 0.5,
		NMSThreshold:  0.4,
		LogLevel:      "info",
		CameraIndex:   0,
		DisplayWidth:  1280,
		DisplayHeight: 720,
		OutputDir:     "out",
		OutputSuffix:  "_landmarks",
		JPEGQuality:   95,
	}
}

func defaultORTLibrary() string {
	if _, err := os.Stat("lib/libonnxruntime.dylib"); err == nil {
		return "lib/libonnxruntime.dylib"
	}
	return "lib/libonnxruntime.so"
}

// Load returns defaults overridden by FACEMARKS_* environment variables
func Load() (Config, error) {
	cfg := Default()

	cfg.Backend = getEnv("FACEMARKS_BACKEND", cfg.Backend)
	cfg.ModelsDir = getEnv("FACEMARKS_MODELS_DIR", cfg.ModelsDir)
	cfg.ORTLibrary = getEnv("FACEMARKS_ORT_LIB", cfg.ORTLibrary)
	cfg.LogLevel = getEnv("FACEMARKS_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFile = getEnv("FACEMARKS_LOG_FILE", cfg.LogFile)

	if v, ok := os.LookupEnv("FACEMARKS_MAX_RESOLUTION"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid FACEMARKS_MAX_RESOLUTION %q: %w", v, err)
		}
		cfg.MaxResolution = n
	}
	if v, ok := os.LookupEnv("FACEMARKS_COREML"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid FACEMARKS_COREML %q: %w", v, err)
		}
		cfg.UseCoreML = b
	}

	return cfg, nil
}

func getEnv(k, d string) string {
	if val, ok := os.LookupEnv(k); ok {
		return val
	}
	return d
}

// ModelPath resolves a model file name against ModelsDir
func (c Config) ModelPath(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.ModelsDir, name)
}

// Validate checks the values a command is about to rely on
func (c Config) Validate() error {
	if c.MaxResolution < 0 {
		return fmt.Errorf("max resolution must be >= 0, got %d", c.MaxResolution)
	}
	if c.DetectionSize < 32 || c.DetectionSize%32 != 0 {
		return fmt.Errorf("detection size must be a positive multiple of 32, got %d", c.DetectionSize)
	}
	if c.ConfThreshold <= 0 || c.ConfThreshold > 1 {
		return fmt.Errorf("confidence threshold must be in (0, 1], got %f", c.ConfThreshold)
	}
	if c.NMSThreshold <= 0 || c.NMSThreshold > 1 {
		return fmt.Errorf("NMS threshold must be in (0, 1], got %f", c.NMSThreshold)
	}
	switch c.Backend {
	case BackendONNX:
		if c.SCRFDModel == "" {
			return fmt.Errorf("a face detection model is required")
		}
	case BackendPigo:
		if c.FaceCascade == "" {
			return fmt.Errorf("a face cascade is required")
		}
	default:
		return fmt.Errorf("unknown backend %q, want %s or %s", c.Backend, BackendONNX, BackendPigo)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("JPEG quality must be in [1, 100], got %d", c.JPEGQuality)
	}
	if c.DisplayWidth <= 0 || c.DisplayHeight <= 0 {
		return fmt.Errorf("display size must be positive, got %dx%d", c.DisplayWidth, c.DisplayHeight)
	}
	return nil
}
