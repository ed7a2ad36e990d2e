package hwsim

import (
	"context"
	"sync"

	"github.com/opd-ai/yuvpipe/buffer"
	"github.com/opd-ai/yuvpipe/interfaces"
	"github.com/sirupsen/logrus"
)

// Tunnel forwards buffers from an output port straight into an input
// port, the way hardware components are tunnelled without the control
// loop touching the data.
type Tunnel struct {
	src interfaces.FillPort
	dst interfaces.EmptyPort
	buf []byte

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	err    error
	chunks int
}

// NewTunnel creates a tunnel moving buffers of capacity bytes.
func NewTunnel(src interfaces.FillPort, dst interfaces.EmptyPort, capacity int) *Tunnel {
	logrus.Warn("SIMULATION FUNCTION - NOT A REAL OPERATION")
	return &Tunnel{
		src: src,
		dst: dst,
		buf: make([]byte, capacity),
	}
}

// Start runs the tunnel until ctx is done, Stop is called, a component
// fails, or an end-of-stream chunk has been forwarded.
func (t *Tunnel) Start(ctx context.Context) {
	ctx, t.cancel = context.WithCancel(ctx)
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.run(ctx)
	}()
}

func (t *Tunnel) run(ctx context.Context) {
	filled := make(chan buffer.Chunk, 1)
	emptied := make(chan struct{}, 1)

	for {
		if err := t.src.FillBuffer(t.buf, func(c buffer.Chunk) { filled <- c }); err != nil {
			t.fail(err)
			return
		}
		var c buffer.Chunk
		select {
		case c = <-filled:
		case <-ctx.Done():
			return
		}

		if err := t.dst.EmptyBuffer(c, func() { emptied <- struct{}{} }); err != nil {
			t.fail(err)
			return
		}
		select {
		case <-emptied:
		case <-ctx.Done():
			return
		}

		t.mu.Lock()
		t.chunks++
		t.mu.Unlock()

		if c.EndOfStream() {
			logrus.WithFields(logrus.Fields{
				"function": "Tunnel.run",
			}).Info("Tunnel reached end of stream")
			return
		}
	}
}

func (t *Tunnel) fail(err error) {
	logrus.WithFields(logrus.Fields{
		"function": "Tunnel.run",
		"error":    err.Error(),
	}).Error("Tunnel stopped on component error")
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()
}

// Chunks returns the number of buffers forwarded.
func (t *Tunnel) Chunks() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.chunks
}

// Stop stops the tunnel, waits for it to exit and returns the first
// component error it hit.
func (t *Tunnel) Stop() error {
	if t.cancel != nil {
		t.cancel()
	}
	t.wg.Wait()

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}
