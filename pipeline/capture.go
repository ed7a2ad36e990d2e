package pipeline

import (
	"context"
	"io"

	"github.com/opd-ai/yuvpipe/buffer"
	"github.com/opd-ai/yuvpipe/i420"
	"github.com/opd-ai/yuvpipe/interfaces"
	"github.com/opd-ai/yuvpipe/shutdown"
	"github.com/sirupsen/logrus"
)

// Capture requests raw buffers from camera, reassembles them into
// canonical frames and writes each complete frame to sink.
//
// It returns when ctx is cancelled and the stream reaches a frame
// boundary, when the camera ends the stream, or on the first error. A
// frame whose buffers do not add up to its size aborts the capture.
func Capture(ctx context.Context, camera interfaces.FillPort, frame i420.FrameGeometry, buf i420.BufferGeometry, sink io.Writer, opts Options) (Stats, error) {
	logGeometry("Capture", frame, buf)

	tp := opts.timeProvider()
	var stats Stats
	stats.start(tp)

	pump := buffer.NewPump(opts.PollInterval)
	port, err := pump.NewPort("camera.output", buf.TotalSize)
	if err != nil {
		return stats, err
	}

	r := i420.NewReassembler(frame, buf, func(f []byte) error {
		if err := writeAll(sink, f); err != nil {
			return err
		}
		stats.FramesOut++
		stats.BytesOut += int64(len(f))
		if opts.FrameDigests {
			logrus.WithFields(logrus.Fields{
				"function": "Capture",
				"frame":    stats.FramesOut,
				"digest":   i420.Digest(f),
			}).Info("Frame digest")
		}
		return nil
	})

	coord := shutdown.NewCoordinator(ctx, shutdown.FrameBoundary)

	logrus.WithFields(logrus.Fields{
		"function":         "Capture",
		"chunks_per_frame": i420.ChunksPerFrame(frame, buf),
	}).Info("Entering capture loop")

	err = captureLoop(ctx, camera, pump, port, r, coord, &stats)
	settle("Capture", pump)
	stats.finish("Capture", tp)
	return stats, err
}

func captureLoop(ctx context.Context, camera interfaces.FillPort, pump *buffer.Pump, port *buffer.Port, r *i420.Reassembler, coord *shutdown.Coordinator, stats *Stats) error {
	for {
		c, ok, err := port.Take()
		if err != nil {
			return err
		}
		if ok {
			if coord.Observe(c) {
				return nil
			}
			stats.ChunksIn++
			stats.BytesIn += int64(c.Len())

			if !c.EndOfStream() || c.EndOfFrame() {
				status, err := r.Ingest(c)
				if err != nil {
					logrus.WithFields(logrus.Fields{
						"function": "Capture",
						"status":   status.String(),
						"error":    err.Error(),
					}).Error("Aborting capture")
					return err
				}
				if status == i420.FrameComplete {
					stats.FramesIn++
				}
			}
			if c.EndOfStream() {
				logrus.WithFields(logrus.Fields{
					"function":       "Capture",
					"frames":         stats.FramesOut,
					"partial_chunks": r.BuffersConsumed(),
				}).Info("Camera end of stream")
				return nil
			}
		}

		if port.State() == buffer.PortIdle {
			err := port.Submit(func() error {
				return camera.FillBuffer(port.Buffer(), port.Complete)
			})
			if err != nil {
				return err
			}
		}

		pump.Wait(waitContext(ctx, coord))
	}
}
