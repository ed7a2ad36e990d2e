package buffer

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultIterationInterval bounds how long the control loop waits for a
// completion before polling its flags again.
const DefaultIterationInterval = time.Millisecond

// Pump groups the ports driven by one control loop and lets the loop
// sleep until a completion arrives instead of spinning.
//
// The control loop still polls every port after each wake up, so a
// missed notification costs at most one iteration interval.
type Pump struct {
	interval time.Duration
	wakeup   chan struct{}
	ports    []*Port
}

// NewPump creates a pump. A non-positive interval selects
// DefaultIterationInterval.
func NewPump(interval time.Duration) *Pump {
	if interval <= 0 {
		interval = DefaultIterationInterval
	}

	logrus.WithFields(logrus.Fields{
		"function": "NewPump",
		"interval": interval,
	}).Debug("Created buffer pump")

	return &Pump{
		interval: interval,
		wakeup:   make(chan struct{}, 1),
	}
}

// NewPort creates a port whose completions wake this pump.
func (p *Pump) NewPort(name string, capacity int) (*Port, error) {
	port, err := newPort(name, capacity, p.wakeup)
	if err != nil {
		return nil, err
	}
	p.ports = append(p.ports, port)
	return port, nil
}

// Ports returns the ports created through this pump.
func (p *Pump) Ports() []*Port {
	return p.ports
}

// IterationInterval returns the maximum time Wait blocks.
func (p *Pump) IterationInterval() time.Duration {
	return p.interval
}

// Wait blocks until a port completes, the iteration interval elapses,
// or ctx is done. It never consumes port state.
func (p *Pump) Wait(ctx context.Context) {
	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	select {
	case <-p.wakeup:
	case <-timer.C:
	case <-ctx.Done():
	}
}

// Outstanding reports whether any port still has a request pending.
func (p *Pump) Outstanding() bool {
	for _, port := range p.ports {
		if port.State() == PortRequested {
			return true
		}
	}
	return false
}
