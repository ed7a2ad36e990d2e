// Package interfaces defines the narrow surface through which the
// pipelines talk to hardware components.
//
// A component is reached only through two requests and their
// completions: filling a buffer on an output port and emptying a buffer
// on an input port. Everything else about the hardware (state
// transitions, tunnelling, sensor and codec parameters) stays behind the
// implementation.
//
// # Core Interfaces
//
// [FillPort] is implemented by output ports. The component fills the
// buffer and reports the valid span and its boundary flags:
//
//	err := camera.FillBuffer(port.Buffer(), port.Complete)
//
// [EmptyPort] is implemented by input ports. The component consumes the
// chunk and acknowledges when the storage may be reused:
//
//	err := encoder.EmptyBuffer(chunk, port.Acknowledge)
//
// Completions may run on any goroutine, including the caller's before
// the request returns. Callers must therefore arm their completion state
// before submitting; buffer.Port does this.
//
// # Configuration
//
// [EncoderConfig] carries encoder settings from the configuration layer
// to the component unchanged:
//
//	cfg := interfaces.EncoderConfig{
//	    Width: 1920, Height: 1080, Stride: 1920, SliceHeight: 16,
//	    Framerate: 25, Bitrate: 10000000,
//	}
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//
// # Implementation Selection
//
// The hwsim package provides simulated components for tests and for
// running the pipelines without hardware. IsSimulation reports which
// kind a component is.
package interfaces
