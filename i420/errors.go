package i420

import "errors"

// Geometry errors.
var (
	// ErrInvalidGeometry indicates dimensions no I420 layout can be built from.
	ErrInvalidGeometry = errors.New("invalid frame geometry")
)

// Reassembly errors. All of them abort the stream.
var (
	// ErrSizeMismatch indicates the bytes accumulated for a frame do not
	// add up to the frame size at its end-of-frame chunk.
	ErrSizeMismatch = errors.New("frame size mismatch")

	// ErrChunkTooShort indicates a chunk ends before the plane spans its
	// geometry says it carries.
	ErrChunkTooShort = errors.New("chunk shorter than its plane spans")
)

// Packing errors.
var (
	// ErrBufferTooSmall indicates an outbound buffer cannot hold one
	// padded hardware buffer.
	ErrBufferTooSmall = errors.New("buffer smaller than hardware buffer size")
)
