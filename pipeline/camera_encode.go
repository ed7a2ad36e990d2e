package pipeline

import (
	"context"
	"io"

	"github.com/opd-ai/yuvpipe/buffer"
	"github.com/opd-ai/yuvpipe/interfaces"
	"github.com/opd-ai/yuvpipe/shutdown"
	"github.com/sirupsen/logrus"
)

// CameraEncode drains the output port of an encoder fed directly by a
// camera and writes the bitstream to sink.
//
// After ctx is cancelled the loop keeps draining until the sync frame
// flag changes, so the stream ends on a key frame boundary.
func CameraEncode(ctx context.Context, encoder interfaces.FillPort, sink io.Writer, opts Options) (Stats, error) {
	tp := opts.timeProvider()
	var stats Stats
	stats.start(tp)

	pump := buffer.NewPump(opts.PollInterval)
	out, err := pump.NewPort("encoder.output", opts.outputCapacity())
	if err != nil {
		return stats, err
	}
	coord := shutdown.NewCoordinator(ctx, shutdown.KeyFrameBoundary)

	logrus.WithFields(logrus.Fields{
		"function": "CameraEncode",
		"capacity": out.Capacity(),
	}).Info("Entering camera encode loop")

	err = cameraEncodeLoop(ctx, encoder, sink, pump, out, coord, &stats)
	settle("CameraEncode", pump)
	stats.finish("CameraEncode", tp)
	return stats, err
}

func cameraEncodeLoop(ctx context.Context, encoder interfaces.FillPort, sink io.Writer, pump *buffer.Pump, out *buffer.Port, coord *shutdown.Coordinator, stats *Stats) error {
	for {
		c, ok, err := out.Take()
		if err != nil {
			return err
		}
		if ok {
			if coord.Observe(c) {
				return nil
			}
			stats.ChunksOut++
			if c.Len() > 0 {
				if err := writeAll(sink, c.Data); err != nil {
					return err
				}
				stats.BytesOut += int64(c.Len())
			}
			if c.EndOfFrame() {
				stats.FramesOut++
			}
			if c.EndOfStream() {
				logrus.WithFields(logrus.Fields{
					"function": "CameraEncode",
					"frames":   stats.FramesOut,
				}).Info("Encoder end of stream")
				return nil
			}
		}

		if out.State() == buffer.PortIdle {
			err := out.Submit(func() error {
				return encoder.FillBuffer(out.Buffer(), out.Complete)
			})
			if err != nil {
				return err
			}
		}

		pump.Wait(waitContext(ctx, coord))
	}
}
