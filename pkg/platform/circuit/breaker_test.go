package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBreaker_InitialState(t *testing.T) {
	b := New("cache")
	assert.False(t, b.IsOpen())
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "cache", b.Name())
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := New("redis", WithFailureThreshold(3))

	// First two failures don't open
	degraded, change := b.RecordFailure()
	assert.False(t, degraded)
	assert.False(t, change.Opened)

	degraded, change = b.RecordFailure()
	assert.False(t, degraded)
	assert.False(t, change.Opened)

	// Third failure opens the circuit
	degraded, change = b.RecordFailure()
	assert.True(t, degraded)
	assert.True(t, change.Opened)
	assert.True(t, b.IsOpen())
}

func TestBreaker_ClosesAfterSuccessThreshold(t *testing.T) {
	b := New("redis", WithFailureThreshold(1), WithSuccessThreshold(2))

	// Trip it
	b.RecordFailure()
	assert.True(t, b.IsOpen())

	// First success doesn't close
	healthy, change := b.RecordSuccess()
	assert.False(t, healthy)
	assert.False(t, change.Closed)
	assert.True(t, b.IsOpen())

	// Second success closes
	healthy, change = b.RecordSuccess()
	assert.True(t, healthy)
	assert.True(t, change.Closed)
	assert.False(t, b.IsOpen())
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := New("redis", WithFailureThreshold(3))

	// Two failures
	b.RecordFailure()
	b.RecordFailure()
	assert.False(t, b.IsOpen())

	// Success resets count
	b.RecordSuccess()

	// Two more failures don't open (count was reset)
	b.RecordFailure()
	b.RecordFailure()
	assert.False(t, b.IsOpen())

	// Third failure opens
	b.RecordFailure()
	assert.True(t, b.IsOpen())
}

func TestBreaker_FailureResetsSuccessCount(t *testing.T) {
	b := New("redis", WithFailureThreshold(1), WithSuccessThreshold(3))

	// Trip it
	b.RecordFailure()
	assert.True(t, b.IsOpen())

	// Two successes
	b.RecordSuccess()
	b.RecordSuccess()

	// Failure resets success count (stays open)
	b.RecordFailure()
	assert.True(t, b.IsOpen())

	// Need 3 successes again to close
	b.RecordSuccess()
	b.RecordSuccess()
	assert.True(t, b.IsOpen())
	b.RecordSuccess()
	assert.False(t, b.IsOpen())
}

func TestBreaker_Reset(t *testing.T) {
	b := New("redis", WithFailureThreshold(1))

	// Trip it
	b.RecordFailure()
	assert.True(t, b.IsOpen())

	// Reset closes it
	b.Reset()
	assert.False(t, b.IsOpen())
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_OpenCircuitReturnsFallback(t *testing.T) {
	b := New("redis", WithFailureThreshold(1))

	// Trip it
	b.RecordFailure()

	// Further failures stay degraded without a new transition
	degraded, change := b.RecordFailure()
	assert.True(t, degraded)
	assert.False(t, change.Opened) // Already open, no state change
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
}
