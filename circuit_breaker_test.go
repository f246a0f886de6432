package logicclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCircuitBreakerConfig(t *testing.T) {
	newBreaker := NewCircuitBreakerConfig(1, time.Minute, time.Minute)

	cb := newBreaker("logic.local")
	require.NotNil(t, cb)
	assert.Equal(t, "logic.local", cb.Name())
	assert.Equal(t, gobreaker.StateClosed, cb.State())

	for n := 0; n < 3; n++ {
		_, err := cb.Execute(func() (*Client, error) {
			return nil, errors.New("refused")
		})
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, cb.State())
}

func TestRegistry_CircuitBreakerOpens(t *testing.T) {
	addr := closedAddr(t)
	dialer := &gatedDialer{release: make(chan struct{})}
	close(dialer.release)

	r := NewRegistry(Config{
		dial:              dialer.dial,
		ConnectTimeout:    time.Second,
		NewCircuitBreaker: NewCircuitBreakerConfig(1, time.Minute, time.Minute),
	})
	ctx := context.Background()

	assert.Equal(t, gobreaker.StateClosed, r.CircuitBreakerState(addr))

	for n := 0; n < 3; n++ {
		_, err := r.Connect(ctx, addr)
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, r.CircuitBreakerState(addr))
	assert.Equal(t, 3, dialer.count())

	// An open breaker fails fast without dialing.
	_, err := r.Connect(ctx, addr)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "connect", connErr.Op)
	assert.Equal(t, 3, dialer.count())
}

func TestRegistry_CircuitBreakerSuccess(t *testing.T) {
	srv := newTestServer(t)
	r := NewRegistry(Config{
		NewCircuitBreaker: NewCircuitBreakerConfig(1, time.Minute, time.Minute),
	})
	t.Cleanup(func() { _ = r.Close() })

	_, err := r.Connect(context.Background(), srv.Addr())
	require.NoError(t, err)
	assert.Equal(t, gobreaker.StateClosed, r.CircuitBreakerState(srv.Addr()))
}
