// Package hwsim provides simulated camera and encoder components that
// speak the same fill/empty request protocol as the hardware, so the
// pipelines can run end to end without a device.
package hwsim

import "errors"

var (
	// ErrClosed indicates a request to a component that has been closed.
	ErrClosed = errors.New("component closed")

	// ErrFrameSize indicates a frame whose size does not match the codec.
	ErrFrameSize = errors.New("frame size mismatch")

	// ErrShortHeader indicates an access unit too short to carry a header.
	ErrShortHeader = errors.New("access unit shorter than header")
)

// ErrStreamEnded indicates input submitted after end of stream.
var ErrStreamEnded = errors.New("input after end of stream")
