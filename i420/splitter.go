package i420

import (
	"errors"
	"fmt"
	"io"

	"github.com/opd-ai/yuvpipe/buffer"
	"github.com/sirupsen/logrus"
)

// Splitter packs a stream of canonical I420 frames into padded hardware
// buffers. It is the mirror of Reassembler: buffer n of a frame carries
// rows n*sliceRows onwards of each plane, and the last buffer carries
// only the rows left after padding.
//
// A short read at the end of the source is not an error. The buffer
// being packed when the source runs dry is returned with
// FlagEndOfStream and the true number of bytes read, and every later
// Fill returns io.EOF.
type Splitter struct {
	frame FrameGeometry
	buf   BufferGeometry
	src   io.Reader

	data           []byte
	valid          int
	chunkIndex     int
	chunksPerFrame int
	framesRead     int
	done           bool
}

// NewSplitter creates a splitter reading canonical frames from src.
func NewSplitter(frame FrameGeometry, buf BufferGeometry, src io.Reader) *Splitter {
	chunks := ChunksPerFrame(frame, buf)

	logrus.WithFields(logrus.Fields{
		"function":         "NewSplitter",
		"frame_size":       frame.TotalSize,
		"buffer_size":      buf.TotalSize,
		"chunks_per_frame": chunks,
	}).Info("Creating I420 frame splitter")

	return &Splitter{
		frame:          frame,
		buf:            buf,
		src:            src,
		data:           make([]byte, frame.TotalSize),
		chunksPerFrame: chunks,
	}
}

// Fill zero-fills dst and packs the next hardware buffer into it. The
// returned chunk aliases dst.
//
// Fill returns io.EOF once the source is exhausted and nothing is left
// to pack.
func (s *Splitter) Fill(dst []byte) (buffer.Chunk, error) {
	if s.done {
		return buffer.Chunk{}, io.EOF
	}
	if len(dst) < s.buf.TotalSize {
		return buffer.Chunk{}, fmt.Errorf("%w: %d < %d", ErrBufferTooSmall, len(dst), s.buf.TotalSize)
	}

	if s.chunkIndex == 0 {
		if err := s.readFrame(); err != nil {
			return buffer.Chunk{}, err
		}
	}

	out := dst[:s.buf.TotalSize]
	clear(out)

	terminal := s.chunkIndex == s.chunksPerFrame-1
	validY, validUV := validRows(s.buf, terminal)
	maxY, maxUV := maxRows(s.buf)

	want, copied := 0, 0
	short := false
	for p := 0; p < PlaneCount; p++ {
		valid, sliceRows := validY, maxY
		if p != PlaneY {
			valid, sliceRows = validUV, maxUV
		}
		want += s.frame.PlaneStride[p] * valid
		if short {
			continue
		}
		n := s.packPlane(out, p, valid, sliceRows)
		copied += n
		short = n < s.frame.PlaneStride[p]*valid
	}

	if copied == 0 {
		s.done = true
		return buffer.Chunk{}, io.EOF
	}

	var flags buffer.Flags
	if short {
		flags = buffer.FlagEndOfStream
		s.done = true
		logrus.WithFields(logrus.Fields{
			"function":   "Splitter.Fill",
			"frame":      s.framesRead,
			"chunk":      s.chunkIndex,
			"bytes_read": copied,
			"bytes_want": want,
		}).Info("Input end of stream")
	} else if terminal {
		flags = buffer.FlagEndOfFrame
	}

	s.chunkIndex++
	if terminal {
		s.chunkIndex = 0
	}

	filled := s.buf.TotalSize - want + copied
	logrus.WithFields(logrus.Fields{
		"function": "Splitter.Fill",
		"frame":    s.framesRead,
		"filled":   filled,
		"capacity": len(dst),
		"flags":    flags.String(),
	}).Trace("Packed buffer")

	return buffer.Chunk{Data: dst[:filled], Flags: flags}, nil
}

// readFrame loads the next canonical frame. A partial frame is kept and
// packed until the data runs out.
func (s *Splitter) readFrame() error {
	clear(s.data)
	n, err := io.ReadFull(s.src, s.data)
	s.valid = n
	switch {
	case err == nil:
		s.framesRead++
		return nil
	case errors.Is(err, io.EOF):
		s.done = true
		return io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		s.framesRead++
		return nil
	default:
		logrus.WithFields(logrus.Fields{
			"function": "Splitter.readFrame",
			"error":    err.Error(),
		}).Error("Failed to read input frame")
		return fmt.Errorf("read frame %d: %w", s.framesRead+1, err)
	}
}

// packPlane copies the rows of plane p that belong to the current buffer
// into dst and returns the number of bytes available to copy.
func (s *Splitter) packPlane(dst []byte, p, valid, sliceRows int) int {
	fs := s.frame.PlaneStride[p]
	bs := s.buf.PlaneStride[p]
	src := s.frame.PlaneOffset[p] + s.chunkIndex*fs*sliceRows
	dstOff := s.buf.PlaneOffset[p]

	copied := 0
	for row := 0; row < valid; row++ {
		start := src + row*fs
		avail := s.valid - start
		if avail <= 0 {
			break
		}
		n := min(fs, avail)
		copy(dst[dstOff+row*bs:dstOff+row*bs+n], s.data[start:start+n])
		copied += n
		if n < fs {
			break
		}
	}
	return copied
}

// ChunksPerFrame returns the number of buffers each frame is split into.
func (s *Splitter) ChunksPerFrame() int {
	return s.chunksPerFrame
}

// AtFrameBoundary reports whether the next Fill starts a new frame.
func (s *Splitter) AtFrameBoundary() bool {
	return s.chunkIndex == 0
}

// FramesRead returns the number of frames, including a trailing partial
// frame, read from the source.
func (s *Splitter) FramesRead() int {
	return s.framesRead
}

// Done reports whether the source is exhausted.
func (s *Splitter) Done() bool {
	return s.done
}
