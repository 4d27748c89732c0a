package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default() should validate: %v", err)
	}
	if Default().MaxResolution != 640 {
		t.Errorf("MaxResolution = %d, want 640", Default().MaxResolution)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"cap disabled", func(c *Config) { c.MaxResolution = 0 }, false},
		{"negative cap", func(c *Config) { c.MaxResolution = -1 }, true},
		{"odd detection size", func(c *Config) { c.DetectionSize = 500 }, true},
		{"zero confidence", func(c *Config) { c.ConfThreshold = 0 }, true},
		{"nms above one", func(c *Config) { c.NMSThreshold = 1.5 }, true},
		{"no detector model", func(c *Config) { c.SCRFDModel = "" }, true},
		{"no landmark model", func(c *Config) { c.LandmarkModel = "" }, false},
		{"pigo needs no model", func(c *Config) { c.Backend = BackendPigo; c.SCRFDModel = "" }, false},
		{"pigo without cascade", func(c *Config) { c.Backend = BackendPigo; c.FaceCascade = "" }, true},
		{"unknown backend", func(c *Config) { c.Backend = "dlib" }, true},
		{"bad quality", func(c *Config) { c.JPEGQuality = 0 }, true},
		{"zero display", func(c *Config) { c.DisplayWidth = 0 }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("FACEMARKS_MODELS_DIR", "/opt/models")
	t.Setenv("FACEMARKS_MAX_RESOLUTION", "1024")
	t.Setenv("FACEMARKS_COREML", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ModelsDir != "/opt/models" || cfg.MaxResolution != 1024 || !cfg.UseCoreML {
		t.Errorf("env overrides not applied: %+v", cfg)
	}

	t.Setenv("FACEMARKS_MAX_RESOLUTION", "big")
	if _, err := Load(); err == nil {
		t.Error("expected error for non-numeric resolution")
	}
}

func TestModelPath(t *testing.T) {
	cfg := Default()
	cfg.ModelsDir = "models"

	if got := cfg.ModelPath("scrfd.onnx"); got != filepath.Join("models", "scrfd.onnx") {
		t.Errorf("relative path = %q", got)
	}
	if got := cfg.ModelPath("/abs/scrfd.onnx"); got != "/abs/scrfd.onnx" {
		t.Errorf("absolute path = %q", got)
	}
	if got := cfg.ModelPath(""); got != "" {
		t.Errorf("empty path = %q", got)
	}
}
