package logicclient

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nitrogenlogic/logicclient/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type update struct {
	objID, index int
	value        any
}

func TestSubscription_Update(t *testing.T) {
	srv := (&testutils.LogicServer{Handler: func(s *testutils.Session, line string) {
		switch line {
		case "poke":
			s.Send(
				"SUB - objid=1 index=0 type=int value=42",
				"SUB - objid=5 index=5 type=int value=1",
				"OK - poked",
			)
		case "poke-raw":
			s.Send(`SUB - objid=1 index=0 value="abc"`, "OK - poked")
		}
	}}).Start(t)

	c, err := Dial(testContext(t), srv.Addr(), Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(context.Background()) })

	updates := make(chan update, 4)
	sub, err := c.Subscribe(1, 0, func(objID, index int, value any) {
		updates <- update{objID, index, value}
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sub.ObjID())
	assert.Equal(t, 0, sub.Index())
	assert.Nil(t, sub.Value())

	require.NoError(t, c.Do("poke").Wait(testContext(t)))

	select {
	case u := <-updates:
		assert.Equal(t, update{1, 0, int64(42)}, u)
	case <-time.After(time.Second):
		t.Fatal("no update delivered")
	}
	assert.Equal(t, int64(42), sub.Value())

	// Without a type the raw value is kept.
	require.NoError(t, c.Do("poke-raw").Wait(testContext(t)))
	select {
	case u := <-updates:
		assert.Equal(t, "abc", u.value)
	case <-time.After(time.Second):
		t.Fatal("no update delivered")
	}

	c.Unsubscribe(sub)
	require.NoError(t, c.Do("poke").Wait(testContext(t)))
	select {
	case u := <-updates:
		t.Fatalf("update after unsubscribe: %+v", u)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, uint64(5), c.Stats().Unsolicited)
}

func TestSubscription_HandlerNotInline(t *testing.T) {
	srv := (&testutils.LogicServer{Handler: func(s *testutils.Session, line string) {
		s.Send("SUB - objid=2 index=1 type=float value=0.5", "OK - poked")
	}}).Start(t)

	c, err := Dial(testContext(t), srv.Addr(), Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(context.Background()) })

	release := make(chan struct{})
	handled := make(chan struct{})
	_, err = c.Subscribe(2, 1, func(int, int, any) {
		<-release
		close(handled)
	})
	require.NoError(t, err)

	// A blocked handler must not stall the reader.
	require.NoError(t, c.Do("poke").Wait(testContext(t)))

	close(release)
	select {
	case <-handled:
	case <-time.After(time.Second):
		t.Fatal("handler never ran")
	}
}

func TestSubscription_BurstWithBlockedHandler(t *testing.T) {
	const burst = 100

	srv := (&testutils.LogicServer{Handler: func(s *testutils.Session, line string) {
		lines := make([]string, 0, burst+1)
		for n := 0; n < burst; n++ {
			lines = append(lines, "SUB - objid=2 index=1 type=int value=1")
		}
		s.Send(append(lines, "OK - poked")...)
	}}).Start(t)

	c, err := Dial(testContext(t), srv.Addr(), Config{CommandTimeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(context.Background()) })

	release := make(chan struct{})
	var calls atomic.Int32
	_, err = c.Subscribe(2, 1, func(int, int, any) {
		<-release
		calls.Add(1)
	})
	require.NoError(t, err)

	poke := c.Do("poke")
	require.NoError(t, poke.Wait(testContext(t)))
	assert.Equal(t, StatusSucceeded, poke.Status())
	assert.Equal(t, uint64(burst), c.Stats().Unsolicited)

	close(release)
	assert.Eventually(t, func() bool { return calls.Load() == burst }, time.Second, 5*time.Millisecond)
}

func TestSubscribe_NilHandler(t *testing.T) {
	c, _ := newTestClient(t, Config{})
	_, err := c.Subscribe(1, 0, nil)
	assert.ErrorIs(t, err, ErrNilHandler)
}

// testContext returns a context canceled when the test finishes, standing in
// for testing.T.Context on Go toolchains older than 1.24.
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
