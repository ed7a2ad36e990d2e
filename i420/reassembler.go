package i420

import (
	"errors"
	"fmt"

	"github.com/opd-ai/yuvpipe/buffer"
	"github.com/sirupsen/logrus"
)

// FrameStatus is the outcome of ingesting one chunk.
type FrameStatus int

const (
	// FrameInProgress means the frame needs more chunks.
	FrameInProgress FrameStatus = iota
	// FrameComplete means the chunk finished a frame of the expected size.
	FrameComplete
	// FrameSizeMismatch means the frame did not add up to its expected size.
	FrameSizeMismatch
	// FrameDropped means the chunk could not be unpacked. The frame in
	// progress was discarded.
	FrameDropped
)

// String returns the status name.
func (s FrameStatus) String() string {
	switch s {
	case FrameInProgress:
		return "in_progress"
	case FrameComplete:
		return "complete"
	case FrameSizeMismatch:
		return "size_mismatch"
	case FrameDropped:
		return "dropped"
	default:
		return fmt.Sprintf("FrameStatus(%d)", int(s))
	}
}

// FrameHandler receives each completed canonical frame. The slice is
// reused for the next frame once the handler returns.
type FrameHandler func(frame []byte) error

// Reassembler unpacks padded, fragmented hardware buffers into canonical
// I420 frames.
//
// Each plane is rebuilt independently: buffer n of a frame lands
// n*stride*sliceRows bytes into the plane, and only the rows that are
// valid in that buffer are copied.
type Reassembler struct {
	frame   FrameGeometry
	buf     BufferGeometry
	handler FrameHandler

	data            []byte
	buffersConsumed int
	bytesCopied     int
	bytesRead       int
	framesCompleted int
}

// NewReassembler creates a reassembler. handler may be nil.
func NewReassembler(frame FrameGeometry, buf BufferGeometry, handler FrameHandler) *Reassembler {
	logrus.WithFields(logrus.Fields{
		"function":    "NewReassembler",
		"frame_size":  frame.TotalSize,
		"buffer_size": buf.TotalSize,
	}).Info("Creating I420 frame reassembler")

	return &Reassembler{
		frame:   frame,
		buf:     buf,
		handler: handler,
		data:    make([]byte, frame.TotalSize),
	}
}

// Ingest copies the valid plane spans of c into the frame being built.
//
// On an end-of-frame chunk the accumulated byte count must equal the
// frame size exactly: the frame is then passed to the handler, otherwise
// FrameSizeMismatch is returned with an ErrSizeMismatch error. A chunk
// too short for its plane spans returns FrameDropped with
// ErrChunkTooShort. Each of these outcomes resets the reassembler for
// the next frame.
func (r *Reassembler) Ingest(c buffer.Chunk) (FrameStatus, error) {
	terminal := c.EndOfFrame()
	validY, validUV := validRows(r.buf, terminal)
	maxY, maxUV := maxRows(r.buf)

	r.bytesRead += c.Len()
	copied := 0
	for p := 0; p < PlaneCount; p++ {
		valid, sliceRows := validY, maxY
		if p != PlaneY {
			valid, sliceRows = validUV, maxUV
		}

		n, err := r.unpackPlane(c.Data, p, valid, sliceRows)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function":     "Reassembler.Ingest",
				"plane":        p,
				"buffer_index": r.buffersConsumed,
				"chunk_len":    c.Len(),
				"error":        err.Error(),
			}).Error("Failed to unpack plane span")
			r.Reset()
			if errors.Is(err, ErrSizeMismatch) {
				return FrameSizeMismatch, err
			}
			return FrameDropped, err
		}
		copied += n
	}

	r.bytesCopied += copied
	r.buffersConsumed++

	logrus.WithFields(logrus.Fields{
		"function":       "Reassembler.Ingest",
		"frame":          r.framesCompleted + 1,
		"buffer":         r.buffersConsumed,
		"bytes_read":     c.Len(),
		"bytes_copied":   copied,
		"valid_spans_y":  validY,
		"valid_spans_uv": validUV,
	}).Trace("Unpacked buffer")

	if !terminal {
		return FrameInProgress, nil
	}

	if r.bytesCopied != r.frame.TotalSize {
		err := fmt.Errorf("%w: frame %d unpacked %d bytes, expected %d",
			ErrSizeMismatch, r.framesCompleted+1, r.bytesCopied, r.frame.TotalSize)
		logrus.WithFields(logrus.Fields{
			"function":     "Reassembler.Ingest",
			"frame":        r.framesCompleted + 1,
			"buffers":      r.buffersConsumed,
			"bytes_copied": r.bytesCopied,
			"frame_size":   r.frame.TotalSize,
		}).Error("Frame size mismatch")
		r.Reset()
		return FrameSizeMismatch, err
	}

	r.framesCompleted++
	logrus.WithFields(logrus.Fields{
		"function":     "Reassembler.Ingest",
		"frame":        r.framesCompleted,
		"buffers":      r.buffersConsumed,
		"packed_bytes": r.bytesRead,
		"frame_size":   r.frame.TotalSize,
	}).Debug("Captured frame")

	var err error
	if r.handler != nil {
		err = r.handler(r.data)
	}
	r.Reset()
	if err != nil {
		return FrameComplete, fmt.Errorf("frame handler: %w", err)
	}
	return FrameComplete, nil
}

// unpackPlane copies valid rows of plane p from src into the frame and
// returns the number of bytes copied.
func (r *Reassembler) unpackPlane(src []byte, p, valid, sliceRows int) (int, error) {
	fs := r.frame.PlaneStride[p]
	bs := r.buf.PlaneStride[p]
	dst := r.frame.PlaneOffset[p] + r.buffersConsumed*fs*sliceRows
	span := fs * valid

	if dst+span > r.frame.PlaneOffset[p]+r.frame.PlaneSize(p) {
		return 0, fmt.Errorf("%w: buffer %d overruns plane %d", ErrSizeMismatch, r.buffersConsumed, p)
	}
	if valid == 0 {
		return 0, nil
	}
	srcOff := r.buf.PlaneOffset[p]
	if need := srcOff + (valid-1)*bs + fs; need > len(src) {
		return 0, fmt.Errorf("%w: plane %d needs %d bytes, chunk has %d", ErrChunkTooShort, p, need, len(src))
	}

	if fs == bs {
		copy(r.data[dst:dst+span], src[srcOff:srcOff+span])
		return span, nil
	}
	for row := 0; row < valid; row++ {
		copy(r.data[dst+row*fs:dst+(row+1)*fs], src[srcOff+row*bs:srcOff+row*bs+fs])
	}
	return span, nil
}

// Reset discards the frame in progress and zero-fills the frame buffer.
func (r *Reassembler) Reset() {
	r.buffersConsumed = 0
	r.bytesCopied = 0
	r.bytesRead = 0
	clear(r.data)
}

// BuffersConsumed returns the number of chunks ingested for the current frame.
func (r *Reassembler) BuffersConsumed() int {
	return r.buffersConsumed
}

// BytesCopied returns the bytes unpacked so far for the current frame.
func (r *Reassembler) BytesCopied() int {
	return r.bytesCopied
}

// FramesCompleted returns the number of frames handed to the handler.
func (r *Reassembler) FramesCompleted() int {
	return r.framesCompleted
}
