// Package shutdown turns a cancellation request into a stop that lands on
// a frame or key frame boundary of the chunk stream.
package shutdown

import (
	"context"
	"fmt"

	"github.com/opd-ai/yuvpipe/buffer"
	"github.com/sirupsen/logrus"
)

// Mode selects the boundary a pipeline stops on.
type Mode int

const (
	// Immediate stops on the first poll after cancellation. Used by pure
	// sinks that see no chunks.
	Immediate Mode = iota
	// FrameBoundary stops on an end-of-frame boundary of raw frames.
	FrameBoundary
	// KeyFrameBoundary stops on a sync frame boundary of encoded output.
	KeyFrameBoundary
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case Immediate:
		return "immediate"
	case FrameBoundary:
		return "frame"
	case KeyFrameBoundary:
		return "keyframe"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

func (m Mode) flag() buffer.Flags {
	switch m {
	case FrameBoundary:
		return buffer.FlagEndOfFrame
	case KeyFrameBoundary:
		return buffer.FlagSyncFrame
	default:
		return 0
	}
}

// Coordinator defers a cancellation until the chunk stream crosses a
// boundary.
//
// When cancellation is first seen, the boundary flag of the chunk at
// hand is recorded. The stop happens on the first later chunk whose flag
// differs from the recorded value: mid-frame, that is the chunk ending
// the frame; on a frame's last chunk, it is the first chunk of the next
// frame. The chunk the stop lands on is not consumed.
//
// A recorded flag that is set means the unit in flight already carries
// the boundary, so the stop also happens on the first later chunk that
// starts a new unit, one following an EndOfFrame chunk. Streams where
// every chunk carries the flag, such as one buffer per frame or a sync
// frame every frame, still stop.
//
// The Coordinator is only used by the control loop. The context is the
// cancellation token and may be cancelled from any goroutine.
type Coordinator struct {
	ctx  context.Context
	mode Mode

	detected bool
	recorded bool
	stopped  bool
	// unitDone is set when the last observed chunk ended a unit.
	unitDone bool
}

// NewCoordinator creates a coordinator watching ctx.
func NewCoordinator(ctx context.Context, mode Mode) *Coordinator {
	return &Coordinator{ctx: ctx, mode: mode}
}

// Mode returns the boundary mode.
func (c *Coordinator) Mode() Mode {
	return c.mode
}

// Requested reports whether cancellation has been requested.
func (c *Coordinator) Requested() bool {
	return c.ctx.Err() != nil
}

// Detected reports whether cancellation has been seen on a chunk.
func (c *Coordinator) Detected() bool {
	return c.detected
}

// Stopped reports whether a boundary has been reached.
func (c *Coordinator) Stopped() bool {
	return c.stopped
}

// Poll reports whether a pipeline without chunks should stop now. For
// boundary modes it only reports a boundary already reached by Observe.
func (c *Coordinator) Poll() bool {
	if c.mode == Immediate && c.Requested() {
		c.stopped = true
	}
	return c.stopped
}

// Observe is called for every chunk before it is consumed. It returns
// true if the pipeline must stop without consuming ch.
func (c *Coordinator) Observe(ch buffer.Chunk) bool {
	if c.stopped {
		return true
	}
	if c.mode == Immediate {
		return c.Poll()
	}

	boundary := ch.Flags.Has(c.mode.flag())
	if !c.detected {
		if !c.Requested() {
			c.unitDone = ch.EndOfFrame()
			return false
		}
		c.detected = true
		c.recorded = boundary
		c.unitDone = ch.EndOfFrame()
		logrus.WithFields(logrus.Fields{
			"function": "Coordinator.Observe",
			"mode":     c.mode.String(),
			"boundary": boundary,
		}).Warn("Exit signal detected, waiting for next boundary before exiting")
		return false
	}

	if c.recorded != boundary || (c.recorded && c.unitDone) {
		c.stopped = true
		logrus.WithFields(logrus.Fields{
			"function": "Coordinator.Observe",
			"mode":     c.mode.String(),
		}).Info("Boundary reached, exiting loop")
	}
	c.unitDone = ch.EndOfFrame()
	return c.stopped
}
