package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/opd-ai/yuvpipe/buffer"
	"github.com/opd-ai/yuvpipe/hwsim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCameraEncodeUntilEndOfStream(t *testing.T) {
	frame, buf := testGeometry(t)
	cam := hwsim.NewCamera(frame, buf, hwsim.NewTestPattern(frame, 4))
	defer cam.Close()
	enc := newTestEncoder(t, frame, buf, 2)

	tunnel := hwsim.NewTunnel(cam, enc, buf.TotalSize)
	tunnel.Start(context.Background())
	cam.StartCapture()

	var sink bytes.Buffer
	stats, err := CameraEncode(context.Background(), enc, &sink, Options{OutputCapacity: 128})
	require.NoError(t, err)
	require.NoError(t, tunnel.Stop())

	assert.Equal(t, 4, stats.FramesOut)
	units := splitUnits(t, frame, sink.Bytes())
	require.Len(t, units, 4)
	for i, au := range units {
		assert.Equal(t, hwsim.PatternFrame(frame, i), au.Frame)
	}
}

func TestCameraEncodeStopsOnKeyFrame(t *testing.T) {
	// Three frames per GOP, each split into two chunks.
	gop := []buffer.Flags{
		buffer.FlagSyncFrame, buffer.FlagSyncFrame | buffer.FlagEndOfFrame,
		0, buffer.FlagEndOfFrame,
		0, buffer.FlagEndOfFrame,
	}

	tests := []struct {
		name       string
		cancelAt   int
		wantChunks int
		wantFrames int
	}{
		{"inside delta frames", 2, 6, 3},
		{"inside key frame", 7, 8, 4},
		{"on last delta chunk", 5, 6, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			src := &scriptedSource{
				next:     encodedSource(gop),
				cancelAt: tt.cancelAt,
				cancel:   cancel,
			}

			var sink bytes.Buffer
			stats, err := CameraEncode(ctx, src, &sink, Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.wantChunks, stats.ChunksOut)
			assert.Equal(t, tt.wantFrames, stats.FramesOut)
			assert.Equal(t, int64(4*tt.wantChunks), stats.BytesOut)
		})
	}
}

func TestCameraEncodeStopsWhenEveryFrameIsKey(t *testing.T) {
	twoPieces := []buffer.Flags{buffer.FlagSyncFrame, buffer.FlagSyncFrame | buffer.FlagEndOfFrame}
	onePiece := []buffer.Flags{buffer.FlagSyncFrame | buffer.FlagEndOfFrame}

	tests := []struct {
		name       string
		flags      []buffer.Flags
		cancelAt   int
		wantChunks int
		wantFrames int
	}{
		{"inside key frame", twoPieces, 2, 4, 2},
		{"on last piece", twoPieces, 3, 4, 2},
		{"single piece units", onePiece, 1, 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			src := &scriptedSource{
				next:     encodedSource(tt.flags),
				cancelAt: tt.cancelAt,
				cancel:   cancel,
			}

			var sink bytes.Buffer
			stats, err := CameraEncode(ctx, src, &sink, Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.wantChunks, stats.ChunksOut)
			assert.Equal(t, tt.wantFrames, stats.FramesOut)
		})
	}
}

func TestCameraEncodeCancelEndlessCamera(t *testing.T) {
	frame, buf := testGeometry(t)

	for _, gop := range []int{0, 1} {
		t.Run(fmt.Sprintf("gop %d", gop), func(t *testing.T) {
			cam := hwsim.NewCamera(frame, buf, nil)
			defer cam.Close()
			enc := newTestEncoder(t, frame, buf, gop)

			tunnel := hwsim.NewTunnel(cam, enc, buf.TotalSize)
			tunnel.Start(context.Background())
			cam.StartCapture()

			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()

			var sink bytes.Buffer
			var stats Stats
			done := make(chan error, 1)
			go func() {
				var err error
				stats, err = CameraEncode(ctx, enc, &sink, Options{OutputCapacity: 128})
				done <- err
			}()

			select {
			case err := <-done:
				require.NoError(t, err)
			case <-time.After(2 * time.Second):
				t.Fatal("camera encode did not stop after cancellation")
			}
			cam.StopCapture()
			require.NoError(t, tunnel.Stop())

			units := splitUnits(t, frame, sink.Bytes())
			require.Len(t, units, stats.FramesOut)
			require.NotEmpty(t, units)
			assert.True(t, units[0].Sync)
		})
	}
}

func TestCameraEncodeWriteError(t *testing.T) {
	src := &scriptedSource{next: encodedSource([]buffer.Flags{buffer.FlagEndOfFrame}), cancelAt: -1}
	_, err := CameraEncode(context.Background(), src, failingWriter{}, Options{})
	assert.ErrorIs(t, err, errSinkClosed)
}
