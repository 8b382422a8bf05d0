// Package config handles Korori tool configuration loading and management.
package config

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/korori/pkg/formats"
)

// Config holds all tool settings.
type Config struct {
	Loader  LoaderConfig  `yaml:"loader"`
	Viewer  ViewerConfig  `yaml:"viewer"`
	Logging LoggingConfig `yaml:"logging"`
}

// LoaderConfig holds OBJ import settings.
type LoaderConfig struct {
	MaxElements int  `yaml:"max_elements"` // 0 = formats.DefaultOBJMaxElements
	Strict      bool `yaml:"strict"`       // fail on the first skipped line
}

// ViewerConfig holds display and rendering settings for objviewer.
type ViewerConfig struct {
	Width      int        `yaml:"width"`
	Height     int        `yaml:"height"`
	Fullscreen bool       `yaml:"fullscreen"`
	VSync      bool       `yaml:"vsync"`
	FOVDegrees float32    `yaml:"fov_degrees"`
	Background [3]float32 `yaml:"background"`
	Wireframe  bool       `yaml:"wireframe"`

	ScreenshotDir string `yaml:"screenshot_dir"` // empty = working directory
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Loader: LoaderConfig{
			MaxElements: 0,
			Strict:      false,
		},
		Viewer: ViewerConfig{
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
			FOVDegrees: 45,
			Background: [3]float32{0.1, 0.1, 0.15},
			Wireframe:  false,

			ScreenshotDir: "screenshots",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports settings that cannot be used.
func (c *Config) Validate() error {
	var errs []error
	if c.Loader.MaxElements < 0 {
		errs = append(errs, fmt.Errorf("loader.max_elements must not be negative, got %d", c.Loader.MaxElements))
	}
	if c.Viewer.Width <= 0 || c.Viewer.Height <= 0 {
		errs = append(errs, fmt.Errorf("viewer size must be positive, got %dx%d", c.Viewer.Width, c.Viewer.Height))
	}
	if c.Viewer.FOVDegrees <= 0 || c.Viewer.FOVDegrees >= 180 {
		errs = append(errs, fmt.Errorf("viewer.fov_degrees must be in (0, 180), got %v", c.Viewer.FOVDegrees))
	}
	return errors.Join(errs...)
}

// OBJOptions returns parser options for these loader settings.
func (c LoaderConfig) OBJOptions(log *zap.Logger) formats.OBJOptions {
	return formats.OBJOptions{
		Logger:      log,
		MaxElements: c.MaxElements,
		Strict:      c.Strict,
	}
}
