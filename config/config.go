// Package config holds the stream profile the pipelines are built from
// and the logging setup shared by every command.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/opd-ai/yuvpipe/interfaces"
	"github.com/opd-ai/yuvpipe/limits"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig indicates a stream profile that cannot drive a pipeline.
var ErrInvalidConfig = errors.New("invalid configuration")

// Default stream parameters.
const (
	DefaultWidth          = 1920
	DefaultHeight         = 1080
	DefaultFramerate      = 25
	DefaultBitrate        = 10000000
	DefaultStrideAlign    = 32
	DefaultSliceHeight    = 16
	DefaultGOPSize        = 25
	DefaultOutputCapacity = 65536
	DefaultPollInterval   = time.Millisecond
)

// StreamConfig describes one video stream and the hardware buffers it
// travels through.
type StreamConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	Framerate int `yaml:"framerate"`
	Bitrate   int `yaml:"bitrate"`

	// StrideAlign is the row alignment the hardware applies to the width.
	StrideAlign int `yaml:"stride_align"`
	// SliceHeight is the number of Y rows per hardware buffer. Zero means
	// one buffer per frame.
	SliceHeight int `yaml:"slice_height"`

	GOPSize        int           `yaml:"gop_size"`
	OutputCapacity int           `yaml:"output_capacity"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	FrameDigests   bool          `yaml:"frame_digests"`

	Log LogConfig `yaml:"log"`
}

// LogConfig selects the log level and format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the profile used when no file is given.
func Default() *StreamConfig {
	return &StreamConfig{
		Width:          DefaultWidth,
		Height:         DefaultHeight,
		Framerate:      DefaultFramerate,
		Bitrate:        DefaultBitrate,
		StrideAlign:    DefaultStrideAlign,
		SliceHeight:    DefaultSliceHeight,
		GOPSize:        DefaultGOPSize,
		OutputCapacity: DefaultOutputCapacity,
		PollInterval:   DefaultPollInterval,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML profile from path. Keys missing from the file keep
// their default values.
func Load(path string) (*StreamConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Load",
			"path":     path,
			"error":    err.Error(),
		}).Error("Failed to read config file")
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function": "Load",
		"path":     path,
		"width":    cfg.Width,
		"height":   cfg.Height,
	}).Info("Loaded stream configuration")
	return cfg, nil
}

// Parse decodes a YAML profile over the defaults and validates it.
func Parse(data []byte) (*StreamConfig, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the profile can drive a pipeline.
func (c *StreamConfig) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: frame size %dx%d", ErrInvalidConfig, c.Width, c.Height)
	}
	if c.Framerate <= 0 {
		return fmt.Errorf("%w: framerate %d", ErrInvalidConfig, c.Framerate)
	}
	if c.Bitrate <= 0 {
		return fmt.Errorf("%w: bitrate %d", ErrInvalidConfig, c.Bitrate)
	}
	if c.StrideAlign <= 0 || c.StrideAlign&(c.StrideAlign-1) != 0 {
		return fmt.Errorf("%w: stride alignment %d is not a power of two", ErrInvalidConfig, c.StrideAlign)
	}
	if c.SliceHeight < 0 || c.SliceHeight%2 != 0 {
		return fmt.Errorf("%w: slice height %d must be even and non-negative", ErrInvalidConfig, c.SliceHeight)
	}
	if c.GOPSize < 0 {
		return fmt.Errorf("%w: gop size %d", ErrInvalidConfig, c.GOPSize)
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("%w: poll interval %s", ErrInvalidConfig, c.PollInterval)
	}
	if err := limits.ValidateDimensions(c.Width, c.Height, c.HWStride()); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := limits.ValidateChunkCapacity(c.OutputCapacity); err != nil {
		return fmt.Errorf("%w: output %w", ErrInvalidConfig, err)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("%w: log format %q", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}

// HWStride returns the row stride the hardware uses for this width.
func (c *StreamConfig) HWStride() int {
	return AlignUp(c.Width, c.StrideAlign)
}

// EncoderConfig returns the parameters forwarded to an encoder component.
func (c *StreamConfig) EncoderConfig() interfaces.EncoderConfig {
	return interfaces.EncoderConfig{
		Width:     c.Width,
		Height:    c.Height,
		Framerate:   c.Framerate,
		Bitrate:     c.Bitrate,
		GOPSize:     c.GOPSize,
		Stride:      c.HWStride(),
		SliceHeight: c.SliceHeight,
	}
}

// AlignUp rounds n up to a multiple of align, which must be a power of two.
func AlignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}
