package hwsim

import (
	"io"

	"github.com/opd-ai/yuvpipe/i420"
)

// TestPattern is an io.Reader producing canonical I420 frames whose bytes
// depend on the frame number and position, so any misplaced span shows
// up when frames are compared.
type TestPattern struct {
	frame  i420.FrameGeometry
	frames int

	index int
	pos   int
}

// NewTestPattern returns a reader of frames canonical frames. A
// non-positive count never ends.
func NewTestPattern(frame i420.FrameGeometry, frames int) *TestPattern {
	return &TestPattern{frame: frame, frames: frames}
}

// Read implements io.Reader.
func (t *TestPattern) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if t.frames > 0 && t.index >= t.frames {
			if n == 0 {
				return 0, io.EOF
			}
			break
		}
		p[n] = PatternByte(t.index, t.pos)
		n++
		t.pos++
		if t.pos == t.frame.TotalSize {
			t.pos = 0
			t.index++
		}
	}
	return n, nil
}

// PatternByte returns the byte at offset pos of pattern frame index.
func PatternByte(index, pos int) byte {
	return byte(pos*7 + pos/251 + index*13)
}

// PatternFrame returns a whole pattern frame.
func PatternFrame(frame i420.FrameGeometry, index int) []byte {
	data := make([]byte, frame.TotalSize)
	for i := range data {
		data[i] = PatternByte(index, i)
	}
	return data
}
