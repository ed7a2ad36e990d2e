package buffer

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPort(t *testing.T) {
	p, err := NewPort("camera.output", 128)
	require.NoError(t, err)
	assert.Equal(t, "camera.output", p.Name())
	assert.Equal(t, 128, p.Capacity())
	assert.Len(t, p.Buffer(), 128)
	assert.Equal(t, PortIdle, p.State())
	assert.True(t, p.Needed())
	assert.False(t, p.Available())

	_, err = NewPort("empty", 0)
	assert.ErrorIs(t, err, ErrInvalidCapacity)
}

func TestPortCycle(t *testing.T) {
	p, err := NewPort("test", 16)
	require.NoError(t, err)

	submitted := false
	require.NoError(t, p.Submit(func() error {
		submitted = true
		return nil
	}))
	assert.True(t, submitted)
	assert.Equal(t, PortRequested, p.State())
	assert.False(t, p.Needed())
	assert.False(t, p.Available())

	_, ok, err := p.Take()
	require.NoError(t, err)
	assert.False(t, ok)

	p.Complete(Chunk{Data: p.Buffer()[:4], Flags: FlagEndOfFrame})
	assert.Equal(t, PortReady, p.State())
	assert.True(t, p.Available())
	assert.True(t, p.Needed())

	c, ok, err := p.Take()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 4, c.Len())
	assert.True(t, c.EndOfFrame())
	assert.Equal(t, PortIdle, p.State())

	requests, completions := p.Counts()
	assert.Equal(t, uint64(1), requests)
	assert.Equal(t, uint64(1), completions)
}

func TestPortCompletionBeforeSubmitReturns(t *testing.T) {
	p, err := NewPort("sync", 8)
	require.NoError(t, err)

	require.NoError(t, p.Submit(func() error {
		p.Complete(Chunk{Data: p.Buffer()[:8]})
		return nil
	}))
	c, ok, err := p.Take()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 8, c.Len())
}

func TestPortSequencingViolations(t *testing.T) {
	t.Run("submit while requested", func(t *testing.T) {
		p, err := NewPort("dup", 8)
		require.NoError(t, err)
		require.NoError(t, p.Submit(func() error { return nil }))

		called := false
		err = p.Submit(func() error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, ErrRequestOutstanding)
		assert.False(t, called)
		assert.Equal(t, PortRequested, p.State())
	})

	t.Run("completion without request", func(t *testing.T) {
		p, err := NewPort("stray", 8)
		require.NoError(t, err)

		p.Acknowledge()
		_, _, err = p.Take()
		assert.ErrorIs(t, err, ErrUnexpectedCompletion)
		err = p.Submit(func() error { return nil })
		assert.ErrorIs(t, err, ErrUnexpectedCompletion)
	})

	t.Run("double completion", func(t *testing.T) {
		p, err := NewPort("twice", 8)
		require.NoError(t, err)
		require.NoError(t, p.Submit(func() error { return nil }))

		p.Acknowledge()
		p.Acknowledge()
		_, _, err = p.Take()
		assert.ErrorIs(t, err, ErrUnexpectedCompletion)
	})
}

func TestPortSubmitFromReady(t *testing.T) {
	p, err := NewPort("resubmit", 8)
	require.NoError(t, err)
	require.NoError(t, p.Submit(func() error { return nil }))
	p.Complete(Chunk{Data: []byte{7}, Flags: FlagEndOfFrame})

	called := false
	err = p.Submit(func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrRequestOutstanding)
	assert.False(t, called)
	assert.Equal(t, PortReady, p.State())

	// The completion is still there to be taken.
	c, ok, err := p.Take()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{7}, c.Data)
	require.NoError(t, p.Submit(func() error { return nil }))
}

func TestPortSubmitRefused(t *testing.T) {
	p, err := NewPort("refused", 8)
	require.NoError(t, err)

	refuse := errors.New("component busy")
	err = p.Submit(func() error { return refuse })
	assert.ErrorIs(t, err, refuse)
	assert.Equal(t, PortIdle, p.State())

	requests, _ := p.Counts()
	assert.Equal(t, uint64(0), requests)
}

func TestPortConcurrentCompletion(t *testing.T) {
	p, err := NewPort("async", 8)
	require.NoError(t, err)

	const cycles = 200
	var wg sync.WaitGroup
	received := 0
	for i := 0; i < cycles; i++ {
		wg.Add(1)
		require.NoError(t, p.Submit(func() error {
			go func() {
				defer wg.Done()
				p.Complete(Chunk{Data: p.Buffer()[:1]})
			}()
			return nil
		}))
		for {
			_, ok, err := p.Take()
			require.NoError(t, err)
			if ok {
				received++
				break
			}
			<-p.notify
		}
	}
	wg.Wait()

	assert.Equal(t, cycles, received)
	requests, completions := p.Counts()
	assert.Equal(t, uint64(cycles), requests)
	assert.Equal(t, uint64(cycles), completions)
}

func TestPortStateString(t *testing.T) {
	assert.Equal(t, "idle", PortIdle.String())
	assert.Equal(t, "requested", PortRequested.String())
	assert.Equal(t, "ready", PortReady.String())
	assert.Equal(t, "PortState(9)", PortState(9).String())
}
