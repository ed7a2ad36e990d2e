package interfaces

import (
	"errors"
	"fmt"

	"github.com/opd-ai/yuvpipe/buffer"
)

// FillPort is an output port of a hardware component, such as the video
// output of a camera or the bitstream output of an encoder.
type FillPort interface {
	// FillBuffer hands buf to the component to be filled. done is called
	// exactly once with the filled span and its flags, possibly from
	// another goroutine, and possibly before FillBuffer returns.
	FillBuffer(buf []byte, done func(buffer.Chunk)) error
}

// EmptyPort is an input port of a hardware component, such as the raw
// frame input of an encoder.
type EmptyPort interface {
	// EmptyBuffer hands a filled chunk to the component. done is called
	// exactly once when the component no longer needs the chunk's storage.
	EmptyBuffer(c buffer.Chunk, done func()) error
}

// EncoderPorts is a component with a raw input port and an encoded
// output port.
type EncoderPorts interface {
	EmptyPort
	FillPort

	// InputBufferSize returns the size of the raw input buffers the
	// component allocated.
	InputBufferSize() int
}

// Component is the lifecycle surface shared by hardware components.
type Component interface {
	// Name identifies the component in logs.
	Name() string

	// Close releases the component. Outstanding requests never complete
	// after Close returns.
	Close() error

	// IsSimulation returns true if this is a simulated component
	IsSimulation() bool
}

// Configuration errors.
var (
	// ErrInvalidDimensions indicates a non-positive frame size.
	ErrInvalidDimensions = errors.New("invalid frame dimensions")

	// ErrInvalidFramerate indicates a non-positive frame rate.
	ErrInvalidFramerate = errors.New("invalid frame rate")

	// ErrInvalidBitrate indicates a non-positive bit rate.
	ErrInvalidBitrate = errors.New("invalid bit rate")
)

// EncoderConfig holds the settings a hardware encoder is configured with.
// They are forwarded as given: the core never interprets them.
type EncoderConfig struct {
	Width     int
	Height    int
	Framerate int
	Bitrate   int

	// Stride and SliceHeight describe the raw input buffers. A zero
	// stride is the width; a zero slice height puts a whole frame in
	// every buffer.
	Stride      int
	SliceHeight int

	// GOPSize is the distance between sync frames. Zero lets the
	// component decide; it must still emit sync frames periodically.
	GOPSize int
}

// Validate checks that the configuration can be handed to an encoder.
func (c EncoderConfig) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, c.Width, c.Height)
	}
	if c.Stride < 0 || c.SliceHeight < 0 {
		return fmt.Errorf("%w: stride %d, slice height %d", ErrInvalidDimensions, c.Stride, c.SliceHeight)
	}
	if c.Framerate <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidFramerate, c.Framerate)
	}
	if c.Bitrate <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBitrate, c.Bitrate)
	}
	return nil
}
