package buffer

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// PortState is the position of a port in its request cycle.
type PortState int32

const (
	// PortIdle means the buffer is owned by the core and no request is pending.
	PortIdle PortState = iota
	// PortRequested means the buffer has been handed to the component.
	PortRequested
	// PortReady means the component completed the request and the
	// buffer is back with the core.
	PortReady
)

// String returns the state name.
func (s PortState) String() string {
	switch s {
	case PortIdle:
		return "idle"
	case PortRequested:
		return "requested"
	case PortReady:
		return "ready"
	default:
		return fmt.Sprintf("PortState(%d)", int32(s))
	}
}

// SubmitFunc hands the port's buffer to the component.
// The component must later report completion through Port.Complete.
type SubmitFunc func() error

// Port is a single-slot handshake between the control loop and one
// directional port of an asynchronous component.
//
// Exactly one request may be outstanding:
//
//	Idle -> Requested -> (completion) -> Ready -> Take -> Idle
//
// All state is guarded by one mutex that is never held across a submit,
// a copy or any I/O.
type Port struct {
	name    string
	storage []byte

	mu          sync.Mutex
	state       PortState
	completed   Chunk
	violation   error
	requests    uint64
	completions uint64

	notify chan struct{}
}

// NewPort creates a port owning capacity bytes of buffer storage.
func NewPort(name string, capacity int) (*Port, error) {
	return newPort(name, capacity, make(chan struct{}, 1))
}

func newPort(name string, capacity int, notify chan struct{}) (*Port, error) {
	if capacity <= 0 {
		logrus.WithFields(logrus.Fields{
			"function": "NewPort",
			"port":     name,
			"capacity": capacity,
		}).Error("Refusing to create port without storage")
		return nil, fmt.Errorf("%w: %d bytes for port %s", ErrInvalidCapacity, capacity, name)
	}

	logrus.WithFields(logrus.Fields{
		"function": "NewPort",
		"port":     name,
		"capacity": capacity,
	}).Info("Created buffer port")

	return &Port{
		name:    name,
		storage: make([]byte, capacity),
		notify:  notify,
	}, nil
}

// Name returns the port name used in logs and errors.
func (p *Port) Name() string {
	return p.name
}

// Capacity returns the size of the port's buffer.
func (p *Port) Capacity() int {
	return len(p.storage)
}

// Buffer returns the port's storage. The core may only touch it while
// the port is not in the Requested state.
func (p *Port) Buffer() []byte {
	return p.storage
}

// State returns the current state.
func (p *Port) State() PortState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Needed reports whether the core holds the buffer and may refill and submit it.
func (p *Port) Needed() bool {
	return p.State() != PortRequested
}

// Available reports whether a completed chunk is waiting to be taken.
func (p *Port) Available() bool {
	return p.State() == PortReady
}

// Counts returns the number of submitted requests and received completions.
func (p *Port) Counts() (requests, completions uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests, p.completions
}

// Submit moves the port to Requested and calls fn to hand the buffer to
// the component. Submitting while a request is outstanding, or while a
// completion has not been taken, is a sequencing violation.
func (p *Port) Submit(fn SubmitFunc) error {
	p.mu.Lock()
	if p.violation != nil {
		err := p.violation
		p.mu.Unlock()
		return err
	}
	if p.state != PortIdle {
		state := p.state
		p.mu.Unlock()
		logrus.WithFields(logrus.Fields{
			"function": "Port.Submit",
			"port":     p.name,
			"state":    state.String(),
		}).Error("Submit while previous request outstanding")
		return fmt.Errorf("%w: %s in state %s", ErrRequestOutstanding, p.name, state)
	}
	p.state = PortRequested
	p.requests++
	p.mu.Unlock()

	if err := fn(); err != nil {
		p.mu.Lock()
		// The component refused the buffer, so it never left the core.
		if p.state == PortRequested {
			p.state = PortIdle
		}
		p.requests--
		p.mu.Unlock()
		return fmt.Errorf("submit on port %s: %w", p.name, err)
	}
	return nil
}

// Complete records the component's completion. It may be called from any
// goroutine and never blocks.
func (p *Port) Complete(c Chunk) {
	p.mu.Lock()
	if p.state != PortRequested {
		p.violation = fmt.Errorf("%w: %s in state %s", ErrUnexpectedCompletion, p.name, p.state)
		p.mu.Unlock()
		logrus.WithFields(logrus.Fields{
			"function": "Port.Complete",
			"port":     p.name,
		}).Error("Completion received without outstanding request")
		p.wake()
		return
	}
	p.state = PortReady
	p.completed = c
	p.completions++
	p.mu.Unlock()

	p.wake()
}

// Acknowledge is Complete for components that return no data.
func (p *Port) Acknowledge() {
	p.Complete(Chunk{})
}

// Take returns the completed chunk and moves the port back to Idle.
// ok is false if no completion is pending.
func (p *Port) Take() (c Chunk, ok bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.violation != nil {
		return Chunk{}, false, p.violation
	}
	if p.state != PortReady {
		return Chunk{}, false, nil
	}
	c = p.completed
	p.completed = Chunk{}
	p.state = PortIdle
	return c, true, nil
}

func (p *Port) wake() {
	select {
	case p.notify <- struct{}{}:
	default:
	}
}
