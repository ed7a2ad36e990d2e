package hwsim

import (
	"fmt"
	"sync"

	"github.com/opd-ai/yuvpipe/buffer"
	"github.com/opd-ai/yuvpipe/i420"
	"github.com/opd-ai/yuvpipe/interfaces"
	"github.com/sirupsen/logrus"
)

// Encoder simulates a video encoder with a raw input port and a
// bitstream output port.
//
// Input buffers are reassembled into canonical frames and wrapped by a
// PassthroughCodec. Every GOPSize-th frame is a sync frame, or every
// Framerate-th frame when GOPSize is zero. Access units
// are served on the output port in pieces of at most the request's
// buffer size: every piece of a sync frame carries FlagSyncFrame and the
// last piece of each unit carries FlagEndOfFrame. An end-of-stream input
// produces an empty FlagEndOfStream output chunk after the last unit.
type Encoder struct {
	name        string
	config      interfaces.EncoderConfig
	reassembler *i420.Reassembler
	codec       *PassthroughCodec
	inputSize   int

	mu        sync.Mutex
	units     []accessUnit
	offset    int
	parked    *fillRequest
	framesIn  int
	framesOut int
	ended     bool
	closed    bool

	wg sync.WaitGroup
}

type accessUnit struct {
	data []byte
	sync bool
	eos  bool
}

// NewEncoder creates a simulated encoder. config is logged and kept as
// given. The raw input layout, and so the size of the input buffers the
// encoder expects, follows from the configured size, stride and slice
// height.
func NewEncoder(config interfaces.EncoderConfig) (*Encoder, error) {
	logrus.Warn("SIMULATION FUNCTION - NOT A REAL OPERATION")

	if err := config.Validate(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "NewEncoder",
			"error":    err.Error(),
		}).Error("Invalid encoder configuration")
		return nil, err
	}
	stride := config.Stride
	if stride == 0 {
		stride = config.Width
	}
	frame, buf, err := i420.Compute(config.Width, config.Height, stride, config.SliceHeight)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function":     "NewEncoder",
		"width":        config.Width,
		"height":       config.Height,
		"stride":       stride,
		"slice_height": config.SliceHeight,
		"framerate":    config.Framerate,
		"bitrate":      config.Bitrate,
		"gop_size":     config.GOPSize,
		"input_size":   buf.TotalSize,
	}).Info("Creating simulated encoder")

	e := &Encoder{
		name:      "encoder",
		config:    config,
		codec:     NewPassthroughCodec(frame),
		inputSize: buf.TotalSize,
	}
	e.reassembler = i420.NewReassembler(frame, buf, e.encodeFrame)
	return e, nil
}

// Name implements interfaces.Component.
func (e *Encoder) Name() string {
	return e.name
}

// IsSimulation implements interfaces.Component.
func (e *Encoder) IsSimulation() bool {
	return true
}

// Config returns the configuration the encoder was created with.
func (e *Encoder) Config() interfaces.EncoderConfig {
	return e.config
}

// InputBufferSize implements interfaces.EncoderPorts.
func (e *Encoder) InputBufferSize() int {
	return e.inputSize
}

// FramesEncoded returns the number of frames encoded so far.
func (e *Encoder) FramesEncoded() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.framesIn
}

// gopSize returns the sync frame interval. Without a configured GOP size
// there is one sync frame per second of video.
func (e *Encoder) gopSize() int {
	if e.config.GOPSize > 0 {
		return e.config.GOPSize
	}
	return e.config.Framerate
}

// encodeFrame is the reassembler's frame handler. It runs with e.mu held.
func (e *Encoder) encodeFrame(frame []byte) error {
	key := e.framesIn%e.gopSize() == 0
	data, err := e.codec.Encode(frame, key)
	if err != nil {
		return err
	}
	e.units = append(e.units, accessUnit{data: data, sync: key})
	e.framesIn++
	return nil
}

// EmptyBuffer implements interfaces.EmptyPort. The chunk is copied before
// EmptyBuffer returns and acknowledged asynchronously.
func (e *Encoder) EmptyBuffer(c buffer.Chunk, done func()) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.ended {
		e.mu.Unlock()
		return ErrStreamEnded
	}

	// A short end-of-stream buffer only carries part of a frame, which
	// is dropped below.
	if !c.EndOfStream() || c.EndOfFrame() {
		if _, err := e.reassembler.Ingest(c); err != nil {
			e.mu.Unlock()
			logrus.WithFields(logrus.Fields{
				"function": "Encoder.EmptyBuffer",
				"error":    err.Error(),
			}).Error("Encoder rejected input buffer")
			return err
		}
	}

	if c.EndOfStream() {
		e.ended = true
		if partial := e.reassembler.BuffersConsumed(); partial > 0 {
			logrus.WithFields(logrus.Fields{
				"function": "Encoder.EmptyBuffer",
				"buffers":  partial,
			}).Warn("Dropping incomplete frame at end of stream")
			e.reassembler.Reset()
		}
		e.units = append(e.units, accessUnit{eos: true})
		logrus.WithFields(logrus.Fields{
			"function": "Encoder.EmptyBuffer",
			"frames":   e.framesIn,
		}).Info("Encoder input end of stream")
	}

	var req *fillRequest
	if e.parked != nil && len(e.units) > 0 {
		req = e.parked
		e.parked = nil
	}
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		if !e.isClosed() {
			done()
		}
	}()

	if req != nil {
		e.serve(*req)
	}
	return nil
}

// FillBuffer implements interfaces.FillPort. A request made while no
// output is pending is held until the next access unit is ready.
func (e *Encoder) FillBuffer(buf []byte, done func(buffer.Chunk)) error {
	if len(buf) == 0 {
		return fmt.Errorf("%w: empty output buffer", buffer.ErrInvalidCapacity)
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if len(e.units) == 0 {
		e.parked = &fillRequest{buf: buf, done: done}
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	e.serve(fillRequest{buf: buf, done: done})
	return nil
}

// serve copies the next piece of output into req and completes it
// asynchronously.
func (e *Encoder) serve(req fillRequest) {
	e.mu.Lock()
	if len(e.units) == 0 {
		e.parked = &req
		e.mu.Unlock()
		return
	}

	u := e.units[0]
	n := copy(req.buf, u.data[e.offset:])
	e.offset += n

	var flags buffer.Flags
	if u.sync {
		flags |= buffer.FlagSyncFrame
	}
	if e.offset == len(u.data) {
		if u.eos {
			flags |= buffer.FlagEndOfStream
		} else {
			flags |= buffer.FlagEndOfFrame
			e.framesOut++
		}
		e.units = e.units[1:]
		e.offset = 0
	}
	chunk := buffer.Chunk{Data: req.buf[:n], Flags: flags}
	e.wg.Add(1)
	e.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "Encoder.serve",
		"length":   n,
		"flags":    flags.String(),
	}).Trace("Serving encoded output")

	go func() {
		defer e.wg.Done()
		if !e.isClosed() {
			req.done(chunk)
		}
	}()
}

func (e *Encoder) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Close implements interfaces.Component. Held and in-flight requests
// never complete.
func (e *Encoder) Close() error {
	e.mu.Lock()
	e.closed = true
	e.parked = nil
	framesIn, framesOut := e.framesIn, e.framesOut
	e.mu.Unlock()

	e.wg.Wait()

	logrus.WithFields(logrus.Fields{
		"function":   "Encoder.Close",
		"frames_in":  framesIn,
		"frames_out": framesOut,
	}).Info("Simulated encoder closed")
	return nil
}
