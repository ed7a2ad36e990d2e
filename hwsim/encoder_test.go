package hwsim

import (
	"bytes"
	"testing"
	"time"

	"github.com/opd-ai/yuvpipe/buffer"
	"github.com/opd-ai/yuvpipe/i420"
	"github.com/opd-ai/yuvpipe/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readUnit drains one access unit from the encoder output.
func readUnit(t *testing.T, enc *Encoder, capacity int) ([]byte, []buffer.Flags) {
	t.Helper()
	var data []byte
	var flags []buffer.Flags
	dst := make([]byte, capacity)
	for {
		c := fill(t, enc, dst)
		data = append(data, c.Data...)
		flags = append(flags, c.Flags)
		if c.EndOfFrame() || c.EndOfStream() {
			return data, flags
		}
	}
}

func TestNewEncoder(t *testing.T) {
	frame, buf := testGeometry(t)

	enc, err := NewEncoder(testEncoderConfig(frame, 2))
	require.NoError(t, err)
	defer enc.Close()
	assert.True(t, enc.IsSimulation())
	assert.Equal(t, "encoder", enc.Name())
	assert.Equal(t, 1000000, enc.Config().Bitrate)
	assert.Equal(t, buf.TotalSize, enc.InputBufferSize())

	_, err = NewEncoder(interfaces.EncoderConfig{})
	assert.ErrorIs(t, err, interfaces.ErrInvalidDimensions)

	cfg := testEncoderConfig(frame, 2)
	cfg.Width = 40
	_, err = NewEncoder(cfg)
	assert.ErrorIs(t, err, i420.ErrInvalidGeometry, "stride narrower than width")

	cfg = testEncoderConfig(frame, 2)
	cfg.SliceHeight = 3
	_, err = NewEncoder(cfg)
	assert.ErrorIs(t, err, i420.ErrInvalidGeometry, "odd slice height")
}

func TestEncoderInputBufferSize(t *testing.T) {
	frame, _ := testGeometry(t)

	tests := []struct {
		name        string
		stride      int
		sliceHeight int
		want        int
	}{
		{"padded slices", 32, 4, 32*4 + 2*16*2},
		{"whole frame per buffer", 32, 0, 32*12 + 2*16*6},
		{"stride defaults to width", 0, 0, frame.TotalSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testEncoderConfig(frame, 1)
			cfg.Stride = tt.stride
			cfg.SliceHeight = tt.sliceHeight
			enc, err := NewEncoder(cfg)
			require.NoError(t, err)
			defer enc.Close()
			assert.Equal(t, tt.want, enc.InputBufferSize())
		})
	}
}

func TestEncoderEncodesFrames(t *testing.T) {
	frame, buf := testGeometry(t)
	enc, err := NewEncoder(testEncoderConfig(frame, 2))
	require.NoError(t, err)
	defer enc.Close()

	feedFrames(t, enc, frame, buf, 3)
	assert.Equal(t, 3, enc.FramesEncoded())

	for i, wantSync := range []bool{true, false, true} {
		data, flags := readUnit(t, enc, 4096)
		require.Len(t, flags, 1)
		assert.True(t, flags[0].Has(buffer.FlagEndOfFrame))
		assert.Equal(t, wantSync, flags[0].Has(buffer.FlagSyncFrame), "frame %d", i)

		au, err := ParseAccessUnit(data)
		require.NoError(t, err)
		assert.Equal(t, uint32(i), au.Sequence)
		assert.Equal(t, wantSync, au.Sync)
		assert.Equal(t, PatternFrame(frame, i), au.Frame)
	}
}

func TestEncoderDefaultGOP(t *testing.T) {
	frame, buf := testGeometry(t)
	cfg := testEncoderConfig(frame, 0)
	cfg.Framerate = 2
	enc, err := NewEncoder(cfg)
	require.NoError(t, err)
	defer enc.Close()

	feedFrames(t, enc, frame, buf, 5)
	for i, wantSync := range []bool{true, false, true, false, true} {
		_, flags := readUnit(t, enc, 4096)
		require.Len(t, flags, 1)
		assert.Equal(t, wantSync, flags[0].Has(buffer.FlagSyncFrame), "frame %d", i)
	}
}

func TestEncoderSplitsOutput(t *testing.T) {
	frame, buf := testGeometry(t)
	enc, err := NewEncoder(testEncoderConfig(frame, 0))
	require.NoError(t, err)
	defer enc.Close()

	feedFrames(t, enc, frame, buf, 2)

	const capacity = 100
	unitSize := HeaderSize + frame.TotalSize
	pieces := (unitSize + capacity - 1) / capacity

	data, flags := readUnit(t, enc, capacity)
	assert.Len(t, data, unitSize)
	require.Len(t, flags, pieces)
	for i, f := range flags {
		assert.True(t, f.Has(buffer.FlagSyncFrame), "piece %d of key frame", i)
		assert.Equal(t, i == pieces-1, f.Has(buffer.FlagEndOfFrame), "piece %d", i)
	}

	// GOP size 0 at 25 fps: the next sync frame is frame 25.
	_, flags = readUnit(t, enc, capacity)
	for _, f := range flags {
		assert.False(t, f.Has(buffer.FlagSyncFrame))
	}
}

func TestEncoderEndOfStream(t *testing.T) {
	frame, buf := testGeometry(t)
	enc, err := NewEncoder(testEncoderConfig(frame, 1))
	require.NoError(t, err)
	defer enc.Close()

	// One whole frame, then a short buffer that ends the stream.
	src := bytes.NewReader(append(PatternFrame(frame, 0), PatternFrame(frame, 1)[:40]...))
	s := i420.NewSplitter(frame, buf, src)
	dst := make([]byte, buf.TotalSize)
	for {
		c, err := s.Fill(dst)
		require.NoError(t, err)
		empty(t, enc, c)
		if c.EndOfStream() {
			break
		}
	}
	assert.Equal(t, 1, enc.FramesEncoded())

	_, flags := readUnit(t, enc, 4096)
	assert.True(t, flags[len(flags)-1].Has(buffer.FlagEndOfFrame))

	c := fill(t, enc, dst)
	assert.True(t, c.EndOfStream())
	assert.Equal(t, 0, c.Len())

	err = enc.EmptyBuffer(buffer.Chunk{Data: dst}, func() {})
	assert.ErrorIs(t, err, ErrStreamEnded)
}

func TestEncoderHoldsOutputRequest(t *testing.T) {
	frame, buf := testGeometry(t)
	enc, err := NewEncoder(testEncoderConfig(frame, 1))
	require.NoError(t, err)
	defer enc.Close()

	done := make(chan buffer.Chunk, 1)
	require.NoError(t, enc.FillBuffer(make([]byte, 4096), func(c buffer.Chunk) { done <- c }))
	select {
	case <-done:
		t.Fatal("output completed without input")
	case <-time.After(20 * time.Millisecond):
	}

	feedFrames(t, enc, frame, buf, 1)
	select {
	case c := <-done:
		assert.True(t, c.EndOfFrame())
		assert.True(t, c.SyncFrame())
		assert.Equal(t, HeaderSize+frame.TotalSize, c.Len())
	case <-time.After(completionTimeout):
		t.Fatal("held output request not served")
	}
}

func TestEncoderRejectsBadInput(t *testing.T) {
	frame, buf := testGeometry(t)
	enc, err := NewEncoder(testEncoderConfig(frame, 1))
	require.NoError(t, err)

	// A lone end-of-frame buffer is a third of a frame.
	err = enc.EmptyBuffer(buffer.Chunk{Data: make([]byte, buf.TotalSize), Flags: buffer.FlagEndOfFrame}, func() {})
	assert.ErrorIs(t, err, i420.ErrSizeMismatch)

	err = enc.FillBuffer(nil, func(buffer.Chunk) {})
	assert.ErrorIs(t, err, buffer.ErrInvalidCapacity)

	require.NoError(t, enc.Close())
	err = enc.EmptyBuffer(buffer.Chunk{Data: make([]byte, buf.TotalSize)}, func() {})
	assert.ErrorIs(t, err, ErrClosed)
	err = enc.FillBuffer(make([]byte, 16), func(buffer.Chunk) {})
	assert.ErrorIs(t, err, ErrClosed)
}
