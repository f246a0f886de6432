package logicclient

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientStats(t *testing.T) {
	c, _ := newTestClient(t, Config{})
	ctx := context.Background()

	_, err := c.ListObjects(ctx)
	require.NoError(t, err)
	_ = c.Set(ctx, 99, 0, 1)
	_, err = c.Download(ctx)
	require.NoError(t, err)

	stats := c.Stats()
	assert.Equal(t, uint64(4), stats.Submitted)
	assert.Equal(t, uint64(3), stats.Succeeded)
	assert.Equal(t, uint64(1), stats.Failed)
	assert.Zero(t, stats.TimedOut)
	assert.Equal(t, uint64(2), stats.LinesReceived)
	assert.Equal(t, uint64(4), stats.BytesReceived)
	assert.Zero(t, stats.Unsolicited)
}

func TestClientStatsCollector_Concurrent(t *testing.T) {
	s := newClientStatsCollector()

	var wg sync.WaitGroup
	for n := 0; n < 10; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < 100; n++ {
				s.recordSubmit()
				s.recordLine()
				s.recordBytes(3)
			}
		}()
	}
	wg.Wait()

	snap := s.snapshot()
	assert.Equal(t, uint64(1000), snap.Submitted)
	assert.Equal(t, uint64(1000), snap.LinesReceived)
	assert.Equal(t, uint64(3000), snap.BytesReceived)
}

func TestRegistryStatsCollector(t *testing.T) {
	var s registryStatsCollector

	s.recordRequest(false)
	s.recordRequest(true)
	s.recordDial()
	s.recordDial()
	s.recordDialFailure()
	s.recordDisconnect()

	assert.Equal(t, RegistryStats{
		Requests:      2,
		Coalesced:     1,
		Dials:         2,
		DialFailures:  1,
		Disconnects:   1,
		ActiveRecords: 0,
	}, s.snapshot())
}
