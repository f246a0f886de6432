package logicclient

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// Config holds settings shared by Dial and Registry. The zero value is usable.
type Config struct {
	// Port is used when a host has no explicit port.
	// Zero means DefaultPort.
	Port int

	// ConnectTimeout bounds the TCP connect and version handshake.
	// Zero means DefaultConnectTimeout.
	ConnectTimeout time.Duration

	// CommandTimeout is the wait budget of every command the client creates.
	// Zero means DefaultCommandTimeout; negative disables timeouts.
	CommandTimeout time.Duration

	// Dialer is the net.Dialer used to open connections.
	// If nil, the default net.Dialer is used.
	Dialer *net.Dialer

	// Logger receives connection and protocol diagnostics.
	// If nil, nothing is logged.
	Logger *zerolog.Logger

	// NewCircuitBreaker creates the circuit breaker guarding connection
	// attempts to a host. Called once per host by a Registry.
	// If nil, no circuit breaker is used.
	NewCircuitBreaker func(host string) *gobreaker.CircuitBreaker[*Client]

	// Shards is the number of lock shards in a Registry.
	// Zero means DefaultRegistryShards.
	Shards int

	// for testing purposes only
	dial func(ctx context.Context, network, addr string) (net.Conn, error)
}

func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = DefaultCommandTimeout
	}
	if c.Dialer == nil {
		c.Dialer = &net.Dialer{}
	}
	if c.Logger == nil {
		nop := zerolog.Nop()
		c.Logger = &nop
	}
	if c.Shards <= 0 {
		c.Shards = DefaultRegistryShards
	}
	if c.dial == nil {
		c.dial = c.Dialer.DialContext
	}
	return c
}

// commandTimeout converts the configured budget for newCommand, where zero
// means no timeout.
func (c Config) commandTimeout() time.Duration {
	if c.CommandTimeout < 0 {
		return 0
	}
	return c.CommandTimeout
}

// address adds the configured port to host unless it already has one.
func (c Config) address(host string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, strconv.Itoa(c.Port))
}
