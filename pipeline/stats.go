package pipeline

import (
	"time"

	"github.com/sirupsen/logrus"
)

// TimeProvider abstracts time operations for deterministic testing.
type TimeProvider interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// DefaultTimeProvider uses the standard library time functions.
type DefaultTimeProvider struct{}

// Now returns the current time.
func (DefaultTimeProvider) Now() time.Time { return time.Now() }

// Since returns the duration since t.
func (DefaultTimeProvider) Since(t time.Time) time.Duration { return time.Since(t) }

// Stats summarizes one run of a control loop. Input is what the loop
// received or submitted, output is what it produced.
type Stats struct {
	FramesIn  int
	FramesOut int
	ChunksIn  int
	ChunksOut int
	BytesIn   int64
	BytesOut  int64

	Started time.Time
	Elapsed time.Duration
}

// FramesPerSecond returns the output frame rate over the run.
func (s Stats) FramesPerSecond() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.FramesOut) / s.Elapsed.Seconds()
}

// Fields returns the statistics as log fields.
func (s Stats) Fields() logrus.Fields {
	return logrus.Fields{
		"frames_in":  s.FramesIn,
		"frames_out": s.FramesOut,
		"chunks_in":  s.ChunksIn,
		"chunks_out": s.ChunksOut,
		"bytes_in":   s.BytesIn,
		"bytes_out":  s.BytesOut,
		"elapsed":    s.Elapsed,
		"fps":        s.FramesPerSecond(),
	}
}

func (s *Stats) start(tp TimeProvider) {
	s.Started = tp.Now()
}

func (s *Stats) finish(function string, tp TimeProvider) {
	s.Elapsed = tp.Since(s.Started)
	fields := s.Fields()
	fields["function"] = function
	logrus.WithFields(fields).Info("Pipeline finished")
}
