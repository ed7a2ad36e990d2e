// Package limits provides centralized size constants and validation
// functions for frames and hardware buffers.
//
// # Size Hierarchy
//
//   - MaxDimension (8192): the largest width, height or stride accepted
//     from configuration.
//
//   - MaxFrameSize: the canonical I420 size of a MaxDimension square
//     frame, 1.5 bytes per pixel.
//
//   - MaxChunkCapacity: the absolute maximum for any port buffer. This
//     prevents a bad configuration from exhausting memory.
//
// # Validation Functions
//
//	if err := limits.ValidateDimensions(w, h, stride); err != nil {
//	    // ErrDimensionTooLarge
//	}
//
// Before an encode loop starts, the allocated input buffer must match
// the hardware buffer layout exactly:
//
//	err := limits.ValidateBufferCapacity(port.Capacity(), buf.TotalSize)
//
// # Error Types
//
//   - ErrDimensionTooLarge: a dimension exceeds MaxDimension
//   - ErrBufferCapacity: a buffer capacity is out of range or does not
//     match its layout
package limits
