// Package pipeline contains the control loops that move video between
// hardware components and byte streams: raw capture, raw encode,
// camera encode and playback.
//
// Each loop owns its ports and drives them from a single goroutine.
// Component completions may arrive on any goroutine and only flip port
// state. Cancellation of ctx is consulted between iterations and turns
// into a boundary-aligned stop.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/opd-ai/yuvpipe/buffer"
	"github.com/opd-ai/yuvpipe/i420"
	"github.com/opd-ai/yuvpipe/shutdown"
	"github.com/sirupsen/logrus"
)

// ErrShortWrite indicates the sink accepted fewer bytes than it was given.
var ErrShortWrite = errors.New("short write")

// DefaultOutputCapacity is the encoded output buffer size used when
// Options leaves it unset.
const DefaultOutputCapacity = 65536

// teardownIterations bounds how many iteration intervals a loop waits
// for outstanding requests before handing its ports back.
const teardownIterations = 16

// Options tunes a control loop.
type Options struct {
	// PollInterval bounds how long the loop sleeps between polls.
	PollInterval time.Duration
	// OutputCapacity is the encoded output buffer size.
	OutputCapacity int
	// FrameDigests logs a BLAKE2b digest of every captured frame.
	FrameDigests bool
	// TimeProvider supplies time for statistics. Nil uses the wall clock.
	TimeProvider TimeProvider
}

func (o Options) outputCapacity() int {
	if o.OutputCapacity <= 0 {
		return DefaultOutputCapacity
	}
	return o.OutputCapacity
}

func (o Options) timeProvider() TimeProvider {
	if o.TimeProvider == nil {
		return DefaultTimeProvider{}
	}
	return o.TimeProvider
}

// logGeometry dumps both layouts before a loop starts.
func logGeometry(function string, frame i420.FrameGeometry, buf i420.BufferGeometry) {
	fields := frame.Fields()
	fields["function"] = function
	logrus.WithFields(fields).Info("Destination frame")

	fields = buf.Fields()
	fields["function"] = function
	logrus.WithFields(fields).Info("Source buffer")
}

// writeAll writes p to w as one unit.
func writeAll(w io.Writer, p []byte) error {
	n, err := w.Write(p)
	if err != nil {
		return fmt.Errorf("write %d bytes: %w", len(p), err)
	}
	if n < len(p) {
		return fmt.Errorf("%w: wrote %d of %d bytes", ErrShortWrite, n, len(p))
	}
	return nil
}

// waitContext returns the context a loop sleeps on. Once cancellation
// has been seen, the loop keeps pumping towards its boundary, so it
// must sleep on completions rather than on ctx.
func waitContext(ctx context.Context, coord *shutdown.Coordinator) context.Context {
	if coord.Requested() {
		return context.Background()
	}
	return ctx
}

// settle waits a bounded time for outstanding requests on the pump's
// ports. Whatever is still outstanding afterwards is left to the
// component's Close.
func settle(function string, pump *buffer.Pump) {
	for i := 0; i < teardownIterations && pump.Outstanding(); i++ {
		pump.Wait(context.Background())
	}
	for _, port := range pump.Ports() {
		if port.State() == buffer.PortRequested {
			logrus.WithFields(logrus.Fields{
				"function": function,
				"port":     port.Name(),
			}).Warn("Request still outstanding at teardown")
		}
	}
}
