package logicclient

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// NewCircuitBreakerConfig returns a function that creates circuit breakers for hosts.
// This is a helper for common use cases; assign it to Config.NewCircuitBreaker.
// The breaker guards connection attempts only, so it trips on hosts that
// refuse connections or never answer the version handshake.
func NewCircuitBreakerConfig(maxRequests uint32, interval, timeout time.Duration) func(string) *gobreaker.CircuitBreaker[*Client] {
	return func(host string) *gobreaker.CircuitBreaker[*Client] {
		settings := gobreaker.Settings{
			Name:        host,
			MaxRequests: maxRequests,
			Interval:    interval,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}
		return gobreaker.NewCircuitBreaker[*Client](settings)
	}
}
