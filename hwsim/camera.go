package hwsim

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/opd-ai/yuvpipe/buffer"
	"github.com/opd-ai/yuvpipe/i420"
	"github.com/sirupsen/logrus"
)

// Camera simulates a camera's video output port. Frames read from a
// source are packed into padded slice-height buffers, and each fill
// request is completed from a separate goroutine.
//
// Requests made while capture is stopped are held until StartCapture.
type Camera struct {
	name     string
	frame    i420.FrameGeometry
	buf      i420.BufferGeometry
	splitter *i420.Splitter
	interval time.Duration

	mu        sync.Mutex
	capturing bool
	closed    bool
	parked    *fillRequest
	chunks    int

	wg sync.WaitGroup
}

type fillRequest struct {
	buf  []byte
	done func(buffer.Chunk)
}

// NewCamera creates a simulated camera delivering frames from src. A nil
// src delivers an endless TestPattern.
func NewCamera(frame i420.FrameGeometry, buf i420.BufferGeometry, src io.Reader) *Camera {
	logrus.Warn("SIMULATION FUNCTION - NOT A REAL OPERATION")
	logrus.WithFields(logrus.Fields{
		"function":     "NewCamera",
		"width":        frame.Width,
		"height":       frame.Height,
		"stride":       buf.Stride(),
		"slice_height": buf.SliceHeight(),
	}).Info("Creating simulated camera")

	if src == nil {
		src = NewTestPattern(frame, 0)
	}
	return &Camera{
		name:     "camera",
		frame:    frame,
		buf:      buf,
		splitter: i420.NewSplitter(frame, buf, src),
	}
}

// SetFrameInterval delays the completion of every end-of-frame buffer by
// d, pacing the camera at 1/d frames per second.
func (c *Camera) SetFrameInterval(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interval = d
}

// Name implements interfaces.Component.
func (c *Camera) Name() string {
	return c.name
}

// IsSimulation implements interfaces.Component.
func (c *Camera) IsSimulation() bool {
	return true
}

// StartCapture starts delivering frames. A request held while capture
// was stopped is served immediately.
func (c *Camera) StartCapture() {
	c.mu.Lock()
	c.capturing = true
	req := c.parked
	c.parked = nil
	c.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "Camera.StartCapture",
		"pending":  req != nil,
	}).Info("Simulated capture started")

	if req != nil {
		c.serve(*req)
	}
}

// StopCapture stops delivering frames. The next request is held.
func (c *Camera) StopCapture() {
	c.mu.Lock()
	c.capturing = false
	c.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "Camera.StopCapture",
	}).Info("Simulated capture stopped")
}

// FillBuffer implements interfaces.FillPort.
func (c *Camera) FillBuffer(buf []byte, done func(buffer.Chunk)) error {
	if len(buf) < c.buf.TotalSize {
		return fmt.Errorf("%w: %d < %d", i420.ErrBufferTooSmall, len(buf), c.buf.TotalSize)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if !c.capturing {
		c.parked = &fillRequest{buf: buf, done: done}
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	c.serve(fillRequest{buf: buf, done: done})
	return nil
}

// serve packs the next buffer and completes the request asynchronously.
func (c *Camera) serve(req fillRequest) {
	c.mu.Lock()
	chunk, err := c.splitter.Fill(req.buf)
	c.chunks++
	interval := c.interval
	c.mu.Unlock()

	switch {
	case errors.Is(err, io.EOF):
		chunk = buffer.Chunk{Data: req.buf[:0], Flags: buffer.FlagEndOfStream}
	case err != nil:
		// The sensor has nothing sensible to deliver. Ending the stream
		// lets the consumer finish its last frame.
		logrus.WithFields(logrus.Fields{
			"function": "Camera.serve",
			"error":    err.Error(),
		}).Error("Simulated camera source failed")
		chunk = buffer.Chunk{Data: req.buf[:0], Flags: buffer.FlagEndOfStream}
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if interval > 0 && chunk.EndOfFrame() {
			time.Sleep(interval)
		}
		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}
		req.done(chunk)
	}()
}

// ChunksDelivered returns the number of fill requests served.
func (c *Camera) ChunksDelivered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chunks
}

// Close implements interfaces.Component. Completions still in flight are
// dropped.
func (c *Camera) Close() error {
	c.mu.Lock()
	c.closed = true
	c.parked = nil
	c.mu.Unlock()

	c.wg.Wait()

	logrus.WithFields(logrus.Fields{
		"function": "Camera.Close",
	}).Info("Simulated camera closed")
	return nil
}
