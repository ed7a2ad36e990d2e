package hwsim

import (
	"sync"

	"github.com/opd-ai/yuvpipe/buffer"
	"github.com/opd-ai/yuvpipe/i420"
	"github.com/sirupsen/logrus"
)

// Renderer simulates a video render sink. It reassembles the raw
// buffers it is given and counts the frames it would have displayed.
type Renderer struct {
	name        string
	reassembler *i420.Reassembler

	mu     sync.Mutex
	frames int
	last   string
	closed bool

	wg sync.WaitGroup
}

// NewRenderer creates a simulated renderer for the given raw layout.
func NewRenderer(frame i420.FrameGeometry, buf i420.BufferGeometry) *Renderer {
	logrus.Warn("SIMULATION FUNCTION - NOT A REAL OPERATION")
	logrus.WithFields(logrus.Fields{
		"function": "NewRenderer",
		"width":    frame.Width,
		"height":   frame.Height,
	}).Info("Creating simulated renderer")

	r := &Renderer{name: "renderer"}
	r.reassembler = i420.NewReassembler(frame, buf, r.display)
	return r
}

// display runs with r.mu held.
func (r *Renderer) display(frame []byte) error {
	r.frames++
	r.last = i420.Digest(frame)
	logrus.WithFields(logrus.Fields{
		"function": "Renderer.display",
		"frame":    r.frames,
		"digest":   r.last,
	}).Debug("Displayed frame")
	return nil
}

// Name implements interfaces.Component.
func (r *Renderer) Name() string {
	return r.name
}

// IsSimulation implements interfaces.Component.
func (r *Renderer) IsSimulation() bool {
	return true
}

// EmptyBuffer implements interfaces.EmptyPort.
func (r *Renderer) EmptyBuffer(c buffer.Chunk, done func()) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	if !c.EndOfStream() || c.EndOfFrame() {
		if _, err := r.reassembler.Ingest(c); err != nil {
			r.mu.Unlock()
			return err
		}
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		done()
	}()
	return nil
}

// FramesDisplayed returns the number of frames displayed and the digest
// of the last one.
func (r *Renderer) FramesDisplayed() (int, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames, r.last
}

// Close implements interfaces.Component.
func (r *Renderer) Close() error {
	r.mu.Lock()
	r.closed = true
	frames := r.frames
	r.mu.Unlock()

	r.wg.Wait()

	logrus.WithFields(logrus.Fields{
		"function": "Renderer.Close",
		"frames":   frames,
	}).Info("Simulated renderer closed")
	return nil
}
