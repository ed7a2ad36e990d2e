package i420

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Plane indices.
const (
	PlaneY = iota
	PlaneU
	PlaneV

	// PlaneCount is the number of planes in an I420 frame.
	PlaneCount
)

// NoSlicePadding is the ExtraPaddingRows value used when the hardware
// supplied no slice height. No rows are stripped in that case.
const NoSlicePadding = -1

// RoundUp2 rounds n up to a multiple of 2.
func RoundUp2(n int) int {
	return (n + 1) &^ 1
}

// RoundUp4 rounds n up to a multiple of 4.
func RoundUp4(n int) int {
	return (n + 3) &^ 3
}

// FrameGeometry is the byte layout of one tightly packed I420 frame.
// It is immutable once computed.
type FrameGeometry struct {
	Width       int
	Height      int
	PlaneStride [PlaneCount]int
	PlaneOffset [PlaneCount]int
	TotalSize   int
}

// NewFrameGeometry computes the canonical layout for width x height.
func NewFrameGeometry(width, height int) (FrameGeometry, error) {
	if width <= 0 || height <= 0 {
		return FrameGeometry{}, fmt.Errorf("%w: %dx%d", ErrInvalidGeometry, width, height)
	}

	var g FrameGeometry
	g.Width = width
	g.Height = height

	rows := RoundUp2(height)
	g.PlaneStride[PlaneY] = RoundUp4(width)
	g.PlaneStride[PlaneU] = RoundUp4(RoundUp2(width) / 2)
	g.PlaneStride[PlaneV] = g.PlaneStride[PlaneU]
	g.PlaneOffset[PlaneY] = 0
	g.PlaneOffset[PlaneU] = g.PlaneStride[PlaneY] * rows
	g.PlaneOffset[PlaneV] = g.PlaneOffset[PlaneU] + g.PlaneStride[PlaneU]*(rows/2)
	g.TotalSize = g.PlaneOffset[PlaneV] + g.PlaneStride[PlaneV]*(rows/2)
	return g, nil
}

// PlaneRows returns the number of rows plane p occupies.
func (g FrameGeometry) PlaneRows(p int) int {
	if p == PlaneY {
		return RoundUp2(g.Height)
	}
	return RoundUp2(g.Height) / 2
}

// PlaneSize returns the number of bytes plane p occupies.
func (g FrameGeometry) PlaneSize(p int) int {
	return g.PlaneStride[p] * g.PlaneRows(p)
}

// Fields returns the layout as log fields.
func (g FrameGeometry) Fields() logrus.Fields {
	return logrus.Fields{
		"width":         g.Width,
		"height":        g.Height,
		"size":          g.TotalSize,
		"plane_strides": fmt.Sprintf("Y:%d U:%d V:%d", g.PlaneStride[PlaneY], g.PlaneStride[PlaneU], g.PlaneStride[PlaneV]),
		"plane_offsets": fmt.Sprintf("Y:%d U:%d V:%d", g.PlaneOffset[PlaneY], g.PlaneOffset[PlaneU], g.PlaneOffset[PlaneV]),
	}
}

// BufferGeometry is the layout of one padded hardware buffer: a
// FrameGeometry over the hardware's stride and slice height instead of
// the logical frame size.
type BufferGeometry struct {
	FrameGeometry

	// ExtraPaddingRows is the number of Y rows beyond the logical frame
	// height present in the last buffer of a frame, or NoSlicePadding.
	ExtraPaddingRows int
}

// Stride returns the hardware row stride the buffer was computed from.
func (b BufferGeometry) Stride() int {
	return b.Width
}

// SliceHeight returns the number of Y rows one buffer carries.
func (b BufferGeometry) SliceHeight() int {
	return b.Height
}

// PassThrough reports whether no slice height was supplied.
func (b BufferGeometry) PassThrough() bool {
	return b.ExtraPaddingRows == NoSlicePadding
}

// PaddingRows returns the Y rows to strip from a frame's last buffer.
func (b BufferGeometry) PaddingRows() int {
	if b.PassThrough() {
		return 0
	}
	return b.ExtraPaddingRows
}

// Fields returns the layout as log fields.
func (b BufferGeometry) Fields() logrus.Fields {
	fields := b.FrameGeometry.Fields()
	fields["buffer_stride"] = b.Stride()
	fields["buffer_slice_height"] = b.SliceHeight()
	fields["buffer_extra_padding"] = b.ExtraPaddingRows
	return fields
}

// Compute derives the canonical frame layout for width x height and the
// padded hardware buffer layout for hwStride x hwSliceHeight.
//
// hwStride must be at least width. A non-positive hwSliceHeight means the
// hardware supplied none: each buffer then carries a whole frame and no
// padding is stripped. A positive slice height must be even so U and V
// rows split evenly across buffers.
func Compute(width, height, hwStride, hwSliceHeight int) (FrameGeometry, BufferGeometry, error) {
	frame, err := NewFrameGeometry(width, height)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Compute",
			"width":    width,
			"height":   height,
			"error":    err.Error(),
		}).Error("Invalid frame dimensions")
		return FrameGeometry{}, BufferGeometry{}, err
	}

	if hwStride < width {
		logrus.WithFields(logrus.Fields{
			"function":  "Compute",
			"width":     width,
			"hw_stride": hwStride,
		}).Error("Hardware stride narrower than frame")
		return FrameGeometry{}, BufferGeometry{}, fmt.Errorf("%w: stride %d narrower than width %d", ErrInvalidGeometry, hwStride, width)
	}
	if hwSliceHeight > 0 && hwSliceHeight%2 != 0 {
		logrus.WithFields(logrus.Fields{
			"function":        "Compute",
			"hw_slice_height": hwSliceHeight,
		}).Error("Odd hardware slice height")
		return FrameGeometry{}, BufferGeometry{}, fmt.Errorf("%w: odd slice height %d", ErrInvalidGeometry, hwSliceHeight)
	}

	sliceHeight := hwSliceHeight
	padding := NoSlicePadding
	if hwSliceHeight > 0 {
		padding = 0
		if rem := height % hwSliceHeight; rem != 0 {
			padding = hwSliceHeight - rem
		}
	} else {
		sliceHeight = height
	}

	layout, err := NewFrameGeometry(hwStride, sliceHeight)
	if err != nil {
		return FrameGeometry{}, BufferGeometry{}, err
	}
	buf := BufferGeometry{FrameGeometry: layout, ExtraPaddingRows: padding}

	logrus.WithFields(logrus.Fields{
		"function":      "Compute",
		"width":         width,
		"height":        height,
		"frame_size":    frame.TotalSize,
		"buffer_size":   buf.TotalSize,
		"extra_padding": padding,
	}).Debug("Computed I420 frame and buffer geometry")

	return frame, buf, nil
}

// ChunksPerFrame returns how many hardware buffers carry one frame.
func ChunksPerFrame(frame FrameGeometry, buf BufferGeometry) int {
	if buf.PassThrough() {
		return 1
	}
	s := buf.SliceHeight()
	return (frame.Height + s - 1) / s
}

// validRows returns the Y and U/V rows a buffer carries. Only the last
// buffer of a frame carries padding. Its Y row count is rounded up to
// even so odd frame heights fill the round_up_2(height) rows of the
// canonical layout.
func validRows(buf BufferGeometry, terminal bool) (y, uv int) {
	y = buf.SliceHeight()
	if terminal {
		y = RoundUp2(y - buf.PaddingRows())
	}
	return y, y / 2
}

// maxRows returns the Y and U/V rows of an unpadded buffer, the stride
// multiplier for placing successive buffers within a plane.
func maxRows(buf BufferGeometry) (y, uv int) {
	y = buf.SliceHeight()
	return y, y / 2
}
