package logicclient

import (
	"sync/atomic"
)

// ClientStats contains counters for one connection.
// All fields are safe for concurrent access.
//
// For Prometheus integration, expose these as counters; Submitted minus the
// three outcome counters is the number of commands still in flight.
type ClientStats struct {
	Submitted     uint64 // Commands written to the socket
	Succeeded     uint64 // OK responses, including their payload
	Failed        uint64 // ERR responses and connection failures
	TimedOut      uint64 // Commands that exceeded their wait budget
	LinesReceived uint64 // Payload text lines
	BytesReceived uint64 // Payload binary bytes
	Unsolicited   uint64 // Lines not answering a command (SUB and unknown)
}

// RegistryStats contains counters for a Registry.
type RegistryStats struct {
	Requests      uint64 // GetConnection calls
	Coalesced     uint64 // Requests that joined a connection attempt already in progress
	Dials         uint64 // Connection attempts started
	DialFailures  uint64 // Connection attempts that failed before the handshake completed
	Disconnects   uint64 // Established connections that closed
	ActiveRecords int64  // Hosts currently connecting or connected
}

// clientStatsCollector provides internal methods for updating client stats.
type clientStatsCollector struct {
	stats ClientStats
}

func newClientStatsCollector() *clientStatsCollector {
	return &clientStatsCollector{}
}

func (c *clientStatsCollector) recordSubmit() {
	atomic.AddUint64(&c.stats.Submitted, 1)
}

func (c *clientStatsCollector) recordOutcome(cmd *Command) {
	switch cmd.Status() {
	case StatusSucceeded:
		atomic.AddUint64(&c.stats.Succeeded, 1)
	case StatusTimedOut:
		atomic.AddUint64(&c.stats.TimedOut, 1)
	default:
		atomic.AddUint64(&c.stats.Failed, 1)
	}
}

func (c *clientStatsCollector) recordLine() {
	atomic.AddUint64(&c.stats.LinesReceived, 1)
}

func (c *clientStatsCollector) recordBytes(n int) {
	atomic.AddUint64(&c.stats.BytesReceived, uint64(n))
}

func (c *clientStatsCollector) recordUnsolicited() {
	atomic.AddUint64(&c.stats.Unsolicited, 1)
}

func (c *clientStatsCollector) snapshot() ClientStats {
	return ClientStats{
		Submitted:     atomic.LoadUint64(&c.stats.Submitted),
		Succeeded:     atomic.LoadUint64(&c.stats.Succeeded),
		Failed:        atomic.LoadUint64(&c.stats.Failed),
		TimedOut:      atomic.LoadUint64(&c.stats.TimedOut),
		LinesReceived: atomic.LoadUint64(&c.stats.LinesReceived),
		BytesReceived: atomic.LoadUint64(&c.stats.BytesReceived),
		Unsolicited:   atomic.LoadUint64(&c.stats.Unsolicited),
	}
}

// registryStatsCollector provides internal methods for updating registry stats.
type registryStatsCollector struct {
	stats RegistryStats
}

func (c *registryStatsCollector) recordRequest(coalesced bool) {
	atomic.AddUint64(&c.stats.Requests, 1)
	if coalesced {
		atomic.AddUint64(&c.stats.Coalesced, 1)
	}
}

func (c *registryStatsCollector) recordDial() {
	atomic.AddUint64(&c.stats.Dials, 1)
	atomic.AddInt64(&c.stats.ActiveRecords, 1)
}

func (c *registryStatsCollector) recordDialFailure() {
	atomic.AddUint64(&c.stats.DialFailures, 1)
	atomic.AddInt64(&c.stats.ActiveRecords, -1)
}

func (c *registryStatsCollector) recordDisconnect() {
	atomic.AddUint64(&c.stats.Disconnects, 1)
	atomic.AddInt64(&c.stats.ActiveRecords, -1)
}

func (c *registryStatsCollector) snapshot() RegistryStats {
	return RegistryStats{
		Requests:      atomic.LoadUint64(&c.stats.Requests),
		Coalesced:     atomic.LoadUint64(&c.stats.Coalesced),
		Dials:         atomic.LoadUint64(&c.stats.Dials),
		DialFailures:  atomic.LoadUint64(&c.stats.DialFailures),
		Disconnects:   atomic.LoadUint64(&c.stats.Disconnects),
		ActiveRecords: atomic.LoadInt64(&c.stats.ActiveRecords),
	}
}
