// Package main provides the yuvpipe command-line tool.
//
// yuvpipe moves raw I420 video between byte streams and (simulated)
// hardware components: it dumps camera frames, encodes raw frames, drains
// a camera-fed encoder, or idles while a camera feeds a renderer. Video
// goes to stdout or a file, logs always go to stderr.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opd-ai/yuvpipe/config"
	"github.com/opd-ai/yuvpipe/hwsim"
	"github.com/opd-ai/yuvpipe/i420"
	"github.com/opd-ai/yuvpipe/interfaces"
	"github.com/opd-ai/yuvpipe/pipeline"
	"github.com/sirupsen/logrus"
)

// Pipeline modes.
const (
	modeDump         = "dump"
	modeEncode       = "encode"
	modeCameraEncode = "camera-encode"
	modePlayback     = "playback"
)

// CLI configuration
type CLIConfig struct {
	mode        string
	configPath  string
	width       int
	height      int
	strideAlign int
	sliceHeight int
	frames      int
	input       string
	output      string
	digest      bool
	paced       bool
	logLevel    string
	logFormat   string
	help        bool
}

// parseCLIFlags parses command-line flags and returns the configuration.
func parseCLIFlags(args []string, usage io.Writer) (*CLIConfig, *flag.FlagSet, error) {
	cli := &CLIConfig{}
	fs := flag.NewFlagSet("yuvpipe", flag.ContinueOnError)
	fs.SetOutput(usage)

	fs.StringVar(&cli.mode, "mode", modeDump, "Pipeline: dump, encode, camera-encode or playback")
	fs.StringVar(&cli.configPath, "config", "", "YAML stream configuration file")

	// Stream overrides, zero keeps the configured value
	fs.IntVar(&cli.width, "width", 0, "Frame width override")
	fs.IntVar(&cli.height, "height", 0, "Frame height override")
	fs.IntVar(&cli.strideAlign, "stride-align", 0, "Hardware stride alignment override")
	fs.IntVar(&cli.sliceHeight, "slice-height", -1, "Hardware slice height override (0 = one buffer per frame)")

	// Simulated camera
	fs.IntVar(&cli.frames, "frames", 0, "Frames the simulated camera delivers (0 = until interrupted)")
	fs.BoolVar(&cli.paced, "paced", false, "Pace the simulated camera at the configured frame rate")

	// Streams
	fs.StringVar(&cli.input, "input", "-", "Raw frame input for encode, or camera source (- = stdin)")
	fs.StringVar(&cli.output, "output", "-", "Output file (- = stdout)")
	fs.BoolVar(&cli.digest, "digest", false, "Log a BLAKE2b digest of every captured frame")

	// Logging
	fs.StringVar(&cli.logLevel, "log-level", "", "Log level override (trace, debug, info, warn, error)")
	fs.StringVar(&cli.logFormat, "log-format", "", "Log format override (text, json)")

	fs.BoolVar(&cli.help, "help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}
	return cli, fs, nil
}

// printUsage prints the usage information.
func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "yuvpipe - raw I420 capture and encode pipelines")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintf(w, "  %s [options]\n", os.Args[0])
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  # Dump 100 test pattern frames")
	fmt.Fprintf(w, "  %s -mode dump -frames 100 -output frames.yuv\n", os.Args[0])
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  # Encode raw frames from stdin")
	fmt.Fprintf(w, "  %s -mode encode -width 640 -height 480 < in.yuv > out.bin\n", os.Args[0])
}

// validateCLIConfig validates the CLI configuration.
func validateCLIConfig(cli *CLIConfig) error {
	switch cli.mode {
	case modeDump, modeEncode, modeCameraEncode, modePlayback:
	default:
		return fmt.Errorf("unknown mode %q", cli.mode)
	}
	if cli.width < 0 || cli.height < 0 || cli.strideAlign < 0 {
		return fmt.Errorf("size overrides cannot be negative")
	}
	if cli.frames < 0 {
		return fmt.Errorf("frame count cannot be negative")
	}
	if cli.mode == modeEncode && cli.frames > 0 {
		return fmt.Errorf("-frames only applies to the simulated camera")
	}
	return nil
}

// loadStreamConfig loads the configuration file, if any, and applies the
// CLI overrides.
func loadStreamConfig(cli *CLIConfig) (*config.StreamConfig, error) {
	cfg := config.Default()
	if cli.configPath != "" {
		loaded, err := config.Load(cli.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if cli.width > 0 {
		cfg.Width = cli.width
	}
	if cli.height > 0 {
		cfg.Height = cli.height
	}
	if cli.strideAlign > 0 {
		cfg.StrideAlign = cli.strideAlign
	}
	if cli.sliceHeight >= 0 {
		cfg.SliceHeight = cli.sliceHeight
	}
	if cli.digest {
		cfg.FrameDigests = true
	}
	if cli.logLevel != "" {
		cfg.Log.Level = cli.logLevel
	}
	if cli.logFormat != "" {
		cfg.Log.Format = cli.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// streams opens the input and output named on the command line.
func streams(cli *CLIConfig, stdin io.Reader, stdout io.Writer) (io.Reader, io.Writer, func(), error) {
	var closers []io.Closer
	cleanup := func() {
		for _, c := range closers {
			c.Close()
		}
	}

	in := stdin
	if cli.input != "-" {
		f, err := os.Open(cli.input)
		if err != nil {
			return nil, nil, cleanup, err
		}
		closers = append(closers, f)
		in = f
	}

	out := stdout
	if cli.output != "-" {
		f, err := os.Create(cli.output)
		if err != nil {
			cleanup()
			return nil, nil, func() {}, err
		}
		closers = append(closers, f)
		out = f
	}
	return in, out, cleanup, nil
}

// closeComponent releases a hardware component at teardown.
func closeComponent(c interfaces.Component) {
	fields := logrus.Fields{
		"function":   "closeComponent",
		"component":  c.Name(),
		"simulation": c.IsSimulation(),
	}
	if err := c.Close(); err != nil {
		fields["error"] = err.Error()
		logrus.WithFields(fields).Warn("Failed to close component")
		return
	}
	logrus.WithFields(fields).Debug("Component closed")
}

// run builds the components for the selected mode and runs its pipeline.
func run(ctx context.Context, cli *CLIConfig, cfg *config.StreamConfig, stdin io.Reader, stdout io.Writer) (pipeline.Stats, error) {
	frame, buf, err := i420.Compute(cfg.Width, cfg.Height, cfg.HWStride(), cfg.SliceHeight)
	if err != nil {
		return pipeline.Stats{}, err
	}

	opts := pipeline.Options{
		PollInterval:   cfg.PollInterval,
		OutputCapacity: cfg.OutputCapacity,
		FrameDigests:   cfg.FrameDigests,
	}

	in, out, cleanup, err := streams(cli, stdin, stdout)
	defer cleanup()
	if err != nil {
		return pipeline.Stats{}, err
	}

	newCamera := func() *hwsim.Camera {
		var src io.Reader = hwsim.NewTestPattern(frame, cli.frames)
		if cli.input != "-" {
			src = in
		}
		cam := hwsim.NewCamera(frame, buf, src)
		if cli.paced {
			cam.SetFrameInterval(time.Second / time.Duration(cfg.Framerate))
		}
		return cam
	}

	switch cli.mode {
	case modeDump:
		cam := newCamera()
		defer closeComponent(cam)
		cam.StartCapture()
		defer cam.StopCapture()
		return pipeline.Capture(ctx, cam, frame, buf, out, opts)

	case modeEncode:
		enc, err := hwsim.NewEncoder(cfg.EncoderConfig())
		if err != nil {
			return pipeline.Stats{}, err
		}
		defer closeComponent(enc)
		return pipeline.Encode(ctx, enc, frame, buf, in, out, opts)

	case modeCameraEncode:
		cam := newCamera()
		defer closeComponent(cam)
		enc, err := hwsim.NewEncoder(cfg.EncoderConfig())
		if err != nil {
			return pipeline.Stats{}, err
		}
		defer closeComponent(enc)

		tunnel := hwsim.NewTunnel(cam, enc, buf.TotalSize)
		tunnel.Start(context.Background())
		cam.StartCapture()
		stats, err := pipeline.CameraEncode(ctx, enc, out, opts)
		cam.StopCapture()
		if terr := tunnel.Stop(); err == nil {
			err = terr
		}
		return stats, err

	default:
		cam := newCamera()
		defer closeComponent(cam)
		renderer := hwsim.NewRenderer(frame, buf)
		defer closeComponent(renderer)

		tunnel := hwsim.NewTunnel(cam, renderer, buf.TotalSize)
		tunnel.Start(ctx)
		cam.StartCapture()
		stats, err := pipeline.Playback(ctx, opts)
		cam.StopCapture()
		if terr := tunnel.Stop(); err == nil {
			err = terr
		}
		stats.FramesOut, _ = renderer.FramesDisplayed()
		return stats, err
	}
}

// main is the entry point for yuvpipe.
func main() {
	cli, fs, err := parseCLIFlags(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(2)
	}
	if cli.help {
		printUsage(os.Stderr, fs)
		os.Exit(0)
	}
	if err := validateCLIConfig(cli); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		fmt.Fprintf(os.Stderr, "Use -help for usage information.\n")
		os.Exit(1)
	}

	cfg, err := loadStreamConfig(cli)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if err := config.ConfigureLogging(cfg.Log.Level, cfg.Log.Format, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	stats, err := run(ctx, cli, cfg, os.Stdin, os.Stdout)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "main",
			"mode":     cli.mode,
			"error":    err.Error(),
		}).Error("Pipeline failed")
		stop()
		os.Exit(1)
	}

	logrus.WithFields(logrus.Fields{
		"function": "main",
		"mode":     cli.mode,
		"frames":   stats.FramesOut,
	}).Info("Done")
}
