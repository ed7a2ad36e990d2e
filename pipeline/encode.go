package pipeline

import (
	"context"
	"errors"
	"io"

	"github.com/opd-ai/yuvpipe/buffer"
	"github.com/opd-ai/yuvpipe/i420"
	"github.com/opd-ai/yuvpipe/interfaces"
	"github.com/opd-ai/yuvpipe/limits"
	"github.com/sirupsen/logrus"
)

// Encode reads canonical frames from src, packs them into the encoder's
// input buffers and writes every encoded output chunk to sink.
//
// The encoder's input buffers must hold exactly one buf layout. A
// mismatch fails with limits.ErrBufferCapacity before any I/O.
//
// Input ends when src is exhausted or, after ctx is cancelled, at the
// next frame boundary. A short final frame is submitted with
// FlagEndOfStream. The loop returns once the encoder has produced as
// many frames as were submitted.
func Encode(ctx context.Context, encoder interfaces.EncoderPorts, frame i420.FrameGeometry, buf i420.BufferGeometry, src io.Reader, sink io.Writer, opts Options) (Stats, error) {
	logGeometry("Encode", frame, buf)

	tp := opts.timeProvider()
	var stats Stats
	stats.start(tp)

	allocated := encoder.InputBufferSize()
	if err := limits.ValidateBufferCapacity(allocated, buf.TotalSize); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":  "Encode",
			"allocated": allocated,
			"required":  buf.TotalSize,
			"error":     err.Error(),
		}).Error("Encoder input buffer does not match layout")
		return stats, err
	}

	pump := buffer.NewPump(opts.PollInterval)
	in, err := pump.NewPort("encoder.input", allocated)
	if err != nil {
		return stats, err
	}
	out, err := pump.NewPort("encoder.output", opts.outputCapacity())
	if err != nil {
		return stats, err
	}

	logrus.WithFields(logrus.Fields{
		"function":         "Encode",
		"chunks_per_frame": i420.ChunksPerFrame(frame, buf),
	}).Info("Entering encode loop")

	e := &encodeLoop{
		encoder:  encoder,
		splitter: i420.NewSplitter(frame, buf, src),
		sink:     sink,
		pump:     pump,
		in:       in,
		out:      out,
		stats:    &stats,
	}
	err = e.run(ctx)
	settle("Encode", pump)
	stats.finish("Encode", tp)
	return stats, err
}

type encodeLoop struct {
	encoder  interfaces.EncoderPorts
	splitter *i420.Splitter
	sink     io.Writer
	pump     *buffer.Pump
	in       *buffer.Port
	out      *buffer.Port
	stats    *Stats

	inputDone bool
}

func (e *encodeLoop) run(ctx context.Context) error {
	for {
		if err := e.drainOutput(); err != nil {
			return err
		}
		if err := e.feedInput(ctx); err != nil {
			return err
		}

		if e.inputDone && e.stats.FramesOut >= e.stats.FramesIn {
			logrus.WithFields(logrus.Fields{
				"function":   "Encode",
				"frames_in":  e.stats.FramesIn,
				"frames_out": e.stats.FramesOut,
			}).Info("All submitted frames encoded")
			return nil
		}

		if e.out.State() == buffer.PortIdle {
			err := e.out.Submit(func() error {
				return e.encoder.FillBuffer(e.out.Buffer(), e.out.Complete)
			})
			if err != nil {
				return err
			}
		}

		wait := ctx
		if e.inputDone || ctx.Err() != nil {
			wait = context.Background()
		}
		e.pump.Wait(wait)
	}
}

// drainOutput writes a completed output chunk to the sink.
func (e *encodeLoop) drainOutput() error {
	c, ok, err := e.out.Take()
	if err != nil || !ok {
		return err
	}
	e.stats.ChunksOut++
	if c.Len() > 0 {
		if err := writeAll(e.sink, c.Data); err != nil {
			return err
		}
		e.stats.BytesOut += int64(c.Len())
	}
	if c.EndOfFrame() {
		e.stats.FramesOut++
		logrus.WithFields(logrus.Fields{
			"function": "Encode",
			"frame":    e.stats.FramesOut,
			"sync":     c.SyncFrame(),
		}).Debug("Encoded frame written")
	}
	if c.EndOfStream() {
		e.inputDone = true
	}
	return nil
}

// feedInput packs and submits the next input buffer once the previous
// one has been acknowledged.
func (e *encodeLoop) feedInput(ctx context.Context) error {
	if _, _, err := e.in.Take(); err != nil {
		return err
	}
	if e.inputDone || e.in.State() != buffer.PortIdle {
		return nil
	}

	if ctx.Err() != nil && e.splitter.AtFrameBoundary() {
		logrus.WithFields(logrus.Fields{
			"function":  "Encode",
			"frames_in": e.stats.FramesIn,
		}).Warn("Exit signal detected, no further input")
		e.inputDone = true
		return nil
	}

	c, err := e.splitter.Fill(e.in.Buffer())
	if errors.Is(err, io.EOF) {
		e.inputDone = true
		return nil
	}
	if err != nil {
		return err
	}
	if c.EndOfStream() {
		e.inputDone = true
	}
	if c.Len() == 0 {
		return nil
	}

	err = e.in.Submit(func() error {
		return e.encoder.EmptyBuffer(c, e.in.Acknowledge)
	})
	if err != nil {
		return err
	}
	e.stats.ChunksIn++
	e.stats.BytesIn += int64(c.Len())
	if c.EndOfFrame() {
		e.stats.FramesIn++
	}
	return nil
}
