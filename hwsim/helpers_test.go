package hwsim

import (
	"testing"
	"time"

	"github.com/opd-ai/yuvpipe/buffer"
	"github.com/opd-ai/yuvpipe/i420"
	"github.com/opd-ai/yuvpipe/interfaces"
	"github.com/stretchr/testify/require"
)

const completionTimeout = 5 * time.Second

func testGeometry(t *testing.T) (i420.FrameGeometry, i420.BufferGeometry) {
	t.Helper()
	frame, buf, err := i420.Compute(16, 12, 32, 4)
	require.NoError(t, err)
	return frame, buf
}

func testEncoderConfig(frame i420.FrameGeometry, gop int) interfaces.EncoderConfig {
	return interfaces.EncoderConfig{
		Width:     frame.Width,
		Height:    frame.Height,
		Framerate:   25,
		Bitrate:     1000000,
		GOPSize:     gop,
		Stride:      32,
		SliceHeight: 4,
	}
}

// fill issues one fill request and waits for its completion.
func fill(t *testing.T, p interfaces.FillPort, buf []byte) buffer.Chunk {
	t.Helper()
	done := make(chan buffer.Chunk, 1)
	require.NoError(t, p.FillBuffer(buf, func(c buffer.Chunk) { done <- c }))
	select {
	case c := <-done:
		return c
	case <-time.After(completionTimeout):
		t.Fatal("fill request did not complete")
	}
	return buffer.Chunk{}
}

// empty issues one empty request and waits for its acknowledgement.
func empty(t *testing.T, p interfaces.EmptyPort, c buffer.Chunk) {
	t.Helper()
	done := make(chan struct{}, 1)
	require.NoError(t, p.EmptyBuffer(c, func() { done <- struct{}{} }))
	select {
	case <-done:
	case <-time.After(completionTimeout):
		t.Fatal("empty request was not acknowledged")
	}
}

// feedFrames packs frames pattern frames into the encoder's input.
func feedFrames(t *testing.T, enc *Encoder, frame i420.FrameGeometry, buf i420.BufferGeometry, frames int) {
	t.Helper()
	s := i420.NewSplitter(frame, buf, NewTestPattern(frame, frames))
	dst := make([]byte, buf.TotalSize)
	for i := 0; i < frames*i420.ChunksPerFrame(frame, buf); i++ {
		c, err := s.Fill(dst)
		require.NoError(t, err)
		empty(t, enc, c)
	}
}
