package pipeline

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/opd-ai/yuvpipe/buffer"
	"github.com/opd-ai/yuvpipe/hwsim"
	"github.com/opd-ai/yuvpipe/i420"
	"github.com/stretchr/testify/require"
)

// mockTimeProvider provides deterministic time for testing.
type mockTimeProvider struct {
	currentTime time.Time
}

func (m *mockTimeProvider) Now() time.Time {
	return m.currentTime
}

func (m *mockTimeProvider) Since(t time.Time) time.Duration {
	return m.currentTime.Sub(t)
}

func (m *mockTimeProvider) advance(d time.Duration) {
	m.currentTime = m.currentTime.Add(d)
}

func newMockTimeProvider() *mockTimeProvider {
	return &mockTimeProvider{
		currentTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// scriptedSource is a FillPort completing every request synchronously
// with the chunk next returns. It cancels the pipeline while serving
// request cancelAt.
type scriptedSource struct {
	next     func(i int, buf []byte) buffer.Chunk
	cancelAt int
	cancel   context.CancelFunc
	calls    int
}

func (s *scriptedSource) FillBuffer(buf []byte, done func(buffer.Chunk)) error {
	i := s.calls
	s.calls++
	c := s.next(i, buf)
	if i == s.cancelAt && s.cancel != nil {
		s.cancel()
	}
	done(c)
	return nil
}

// rawSource returns a chunk generator packing endless test pattern frames.
func rawSource(frame i420.FrameGeometry, buf i420.BufferGeometry) func(int, []byte) buffer.Chunk {
	s := i420.NewSplitter(frame, buf, hwsim.NewTestPattern(frame, 0))
	return func(_ int, dst []byte) buffer.Chunk {
		c, err := s.Fill(dst)
		if err != nil {
			panic(err)
		}
		return c
	}
}

// encodedSource returns a chunk generator cycling through flags.
func encodedSource(flags []buffer.Flags) func(int, []byte) buffer.Chunk {
	return func(i int, dst []byte) buffer.Chunk {
		n := copy(dst, []byte{byte(i), 1, 2, 3})
		return buffer.Chunk{Data: dst[:n], Flags: flags[i%len(flags)]}
	}
}

func testGeometry(t *testing.T) (i420.FrameGeometry, i420.BufferGeometry) {
	t.Helper()
	frame, buf, err := i420.Compute(16, 12, 32, 4)
	require.NoError(t, err)
	return frame, buf
}

func patternStream(frame i420.FrameGeometry, frames int) []byte {
	var b bytes.Buffer
	for i := 0; i < frames; i++ {
		b.Write(hwsim.PatternFrame(frame, i))
	}
	return b.Bytes()
}

// shortWriter accepts one byte less than it is given.
type shortWriter struct{}

func (shortWriter) Write(p []byte) (int, error) {
	return len(p) - 1, nil
}

var errSinkClosed = errors.New("sink closed")

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errSinkClosed
}
