// Package limits provides centralized size limits for frames and hardware
// buffers. This ensures consistent validation across the configuration
// layer and the pipelines.
package limits

import (
	"errors"
	"fmt"
)

const (
	// MaxDimension is the largest accepted frame width, height or stride
	// in pixels. 8K UHD fits with room for stride alignment.
	MaxDimension = 8192

	// MaxFrameSize is the largest canonical I420 frame, in bytes.
	// A MaxDimension square frame is MaxDimension^2 * 3/2.
	MaxFrameSize = MaxDimension * MaxDimension * 3 / 2

	// MaxChunkCapacity is the absolute maximum for any port buffer.
	// This prevents a bad configuration from allocating unbounded memory.
	MaxChunkCapacity = MaxFrameSize
)

var (
	// ErrDimensionTooLarge indicates a width, height or stride above MaxDimension
	ErrDimensionTooLarge = errors.New("dimension too large")

	// ErrBufferCapacity indicates a port buffer whose capacity does not
	// match what the layout requires
	ErrBufferCapacity = errors.New("buffer capacity mismatch")
)

// ValidateDimensions checks width, height and stride against MaxDimension.
// Non-positive values are left to the geometry layer to reject.
func ValidateDimensions(width, height, stride int) error {
	for _, d := range []struct {
		name  string
		value int
	}{
		{"width", width},
		{"height", height},
		{"stride", stride},
	} {
		if d.value > MaxDimension {
			return fmt.Errorf("%w: %s %d exceeds limit %d", ErrDimensionTooLarge, d.name, d.value, MaxDimension)
		}
	}
	return nil
}

// ValidateBufferCapacity checks that an allocated port buffer holds
// exactly the bytes one hardware buffer layout needs.
func ValidateBufferCapacity(capacity, required int) error {
	if capacity != required {
		return fmt.Errorf("%w: capacity %d, layout needs %d", ErrBufferCapacity, capacity, required)
	}
	return nil
}

// ValidateChunkCapacity checks a free-form port capacity, such as an
// encoder output buffer, against MaxChunkCapacity.
func ValidateChunkCapacity(capacity int) error {
	if capacity <= 0 {
		return fmt.Errorf("%w: capacity %d", ErrBufferCapacity, capacity)
	}
	if capacity > MaxChunkCapacity {
		return fmt.Errorf("%w: capacity %d exceeds limit %d", ErrBufferCapacity, capacity, MaxChunkCapacity)
	}
	return nil
}
