package pipeline

import (
	"context"

	"github.com/opd-ai/yuvpipe/buffer"
	"github.com/opd-ai/yuvpipe/shutdown"
	"github.com/sirupsen/logrus"
)

// Playback idles while tunnelled components move the video, and returns
// on the first poll after ctx is cancelled. There are no chunks to align
// the stop with.
func Playback(ctx context.Context, opts Options) (Stats, error) {
	tp := opts.timeProvider()
	var stats Stats
	stats.start(tp)

	pump := buffer.NewPump(opts.PollInterval)
	coord := shutdown.NewCoordinator(ctx, shutdown.Immediate)

	logrus.WithFields(logrus.Fields{
		"function": "Playback",
		"interval": pump.IterationInterval(),
	}).Info("Entering playback loop")

	for !coord.Poll() {
		pump.Wait(ctx)
	}

	stats.finish("Playback", tp)
	return stats, nil
}
