package logicclient

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/nitrogenlogic/logicclient/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedDialer holds every dial until release is closed.
type gatedDialer struct {
	release chan struct{}
	mu      sync.Mutex
	dials   int
}

func (d *gatedDialer) dial(ctx context.Context, network, addr string) (net.Conn, error) {
	d.mu.Lock()
	d.dials++
	d.mu.Unlock()

	select {
	case <-d.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	var nd net.Dialer
	return nd.DialContext(ctx, network, addr)
}

func (d *gatedDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func closedAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestRegistry_Coalesces(t *testing.T) {
	srv := newTestServer(t)
	gate := &gatedDialer{release: make(chan struct{})}

	r := NewRegistry(Config{dial: gate.dial})
	t.Cleanup(func() { _ = r.Close() })

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		clients []*Client
	)
	wg.Add(2)
	for n := 0; n < 2; n++ {
		err := r.GetConnection(srv.Addr(), func(c *Client) {
			mu.Lock()
			clients = append(clients, c)
			mu.Unlock()
			wg.Done()
		}, func(err error) {
			t.Errorf("unexpected failure: %v", err)
			wg.Done()
		})
		require.NoError(t, err)
	}

	assert.Nil(t, r.GetClient(srv.Addr()))
	close(gate.release)
	wg.Wait()

	require.Len(t, clients, 2)
	assert.Same(t, clients[0], clients[1])
	assert.Equal(t, 1, gate.count())
	assert.Equal(t, 1, srv.Accepted())

	assert.Eventually(t, func() bool {
		return r.GetClient(srv.Addr()) == clients[0]
	}, time.Second, 5*time.Millisecond)

	stats := r.Stats()
	assert.Equal(t, uint64(2), stats.Requests)
	assert.Equal(t, uint64(1), stats.Coalesced)
	assert.Equal(t, uint64(1), stats.Dials)
	assert.Equal(t, int64(1), stats.ActiveRecords)
}

func TestRegistry_ConnectedCallsImmediately(t *testing.T) {
	srv := newTestServer(t)
	r := NewRegistry(Config{})
	t.Cleanup(func() { _ = r.Close() })

	first, err := r.Connect(context.Background(), srv.Addr())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return r.GetClient(srv.Addr()) != nil
	}, time.Second, 5*time.Millisecond)

	var got *Client
	require.NoError(t, r.GetConnection(srv.Addr(), func(c *Client) { got = c }, nil))
	assert.Same(t, first, got)
	assert.Equal(t, 1, srv.Accepted())
}

func TestRegistry_FailureFiresAllAndRetries(t *testing.T) {
	addr := closedAddr(t)
	gate := &gatedDialer{release: make(chan struct{})}

	r := NewRegistry(Config{dial: gate.dial, ConnectTimeout: time.Second})

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	wg.Add(2)
	for n := 0; n < 2; n++ {
		err := r.GetConnection(addr, func(*Client) {
			t.Error("unexpected success")
			wg.Done()
		}, func(err error) {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
			wg.Done()
		})
		require.NoError(t, err)
	}

	close(gate.release)
	wg.Wait()

	require.Len(t, errs, 2)
	for _, err := range errs {
		var connErr *ConnectionError
		assert.ErrorAs(t, err, &connErr)
	}
	assert.Equal(t, 1, gate.count())
	assert.Nil(t, r.GetClient(addr))

	// The failed record is gone, so the next request dials again.
	_, err := r.Connect(context.Background(), addr)
	require.Error(t, err)
	assert.Equal(t, 2, gate.count())

	stats := r.Stats()
	assert.Equal(t, uint64(2), stats.Dials)
	assert.Equal(t, uint64(2), stats.DialFailures)
	assert.Equal(t, int64(0), stats.ActiveRecords)
}

func TestRegistry_HandshakeFailure(t *testing.T) {
	srv := (&testutils.LogicServer{RejectVersion: true}).Start(t)
	r := NewRegistry(Config{})

	_, err := r.Connect(context.Background(), srv.Addr())
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "handshake", connErr.Op)
}

func TestRegistry_ForgetsClosedClient(t *testing.T) {
	srv := newTestServer(t)
	r := NewRegistry(Config{})

	c, err := r.Connect(context.Background(), srv.Addr())
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return r.GetClient(srv.Addr()) != nil
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, c.Close(context.Background()))
	require.Eventually(t, func() bool {
		return r.GetClient(srv.Addr()) == nil
	}, time.Second, 5*time.Millisecond)

	again, err := r.Connect(context.Background(), srv.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = again.Close(context.Background()) })

	assert.NotSame(t, c, again)
	assert.Equal(t, 2, srv.Accepted())
	assert.Equal(t, uint64(1), r.Stats().Disconnects)
}

func TestRegistry_SuccessCallbackMayRequestAgain(t *testing.T) {
	srv := newTestServer(t)
	r := NewRegistry(Config{})
	t.Cleanup(func() { _ = r.Close() })

	done := make(chan *Client, 1)
	err := r.GetConnection(srv.Addr(), func(c *Client) {
		err := r.GetConnection(srv.Addr(), func(c *Client) { done <- c }, nil)
		assert.NoError(t, err)
	}, nil)
	require.NoError(t, err)

	select {
	case c := <-done:
		assert.NotNil(t, c)
	case <-time.After(2 * time.Second):
		t.Fatal("nested request never completed")
	}
	assert.Equal(t, 1, srv.Accepted())
}

func TestRegistry_NilSuccess(t *testing.T) {
	r := NewRegistry(Config{})
	err := r.GetConnection("localhost", nil, nil)
	assert.True(t, errors.Is(err, ErrNilHandler))
}

func TestRegistry_ConnectContext(t *testing.T) {
	gate := &gatedDialer{release: make(chan struct{})}
	r := NewRegistry(Config{dial: gate.dial, ConnectTimeout: 50 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := r.Connect(ctx, closedAddr(t))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRegistry_Close(t *testing.T) {
	srv := newTestServer(t)
	r := NewRegistry(Config{})

	c, err := r.Connect(context.Background(), srv.Addr())
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return r.GetClient(srv.Addr()) != nil
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, r.Close())
	<-c.Done()
	assert.ErrorIs(t, c.Err(), ErrClientClosed)
}
