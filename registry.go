package logicclient

import (
	"context"
	"errors"
	"sync"

	"github.com/nitrogenlogic/logicclient/internal"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

type connState int

const (
	stateConnecting connState = iota
	stateConnected
	stateFailed
)

// connRecord is the registry's entry for one host.
type connRecord struct {
	host      string
	state     connState
	client    *Client
	successes []func(*Client)
	failures  []func(error)
}

type registryShard struct {
	mu       sync.Mutex
	records  map[string]*connRecord
	breakers map[string]*gobreaker.CircuitBreaker[*Client]
}

// Registry is a directory of connections keyed by host name. Concurrent
// requests for a host that is still connecting share one connection attempt.
// Records are removed when their connection fails or closes, so the next
// request for the host starts over.
type Registry struct {
	config Config
	logger zerolog.Logger
	shards []*registryShard
	stats  registryStatsCollector
}

// NewRegistry creates an empty registry. Clients it opens use config.
func NewRegistry(config Config) *Registry {
	config = config.withDefaults()

	shards := make([]*registryShard, config.Shards)
	for i := range shards {
		shards[i] = &registryShard{
			records:  make(map[string]*connRecord),
			breakers: make(map[string]*gobreaker.CircuitBreaker[*Client]),
		}
	}

	return &Registry{
		config: config,
		logger: config.Logger.With().Str("component", "registry").Logger(),
		shards: shards,
	}
}

func (r *Registry) shard(host string) *registryShard {
	return r.shards[internal.ShardIndex(host, len(r.shards))]
}

// breaker returns the circuit breaker for host, creating it on first use.
// Must be called with s.mu held.
func (s *registryShard) breaker(host string, config Config) *gobreaker.CircuitBreaker[*Client] {
	if config.NewCircuitBreaker == nil {
		return nil
	}
	cb, ok := s.breakers[host]
	if !ok {
		cb = config.NewCircuitBreaker(host)
		s.breakers[host] = cb
	}
	return cb
}

// GetConnection calls onSuccess with the client for host. If the host is
// connected onSuccess runs before GetConnection returns. Otherwise the
// callbacks are queued on the host's connection attempt, starting one if
// none is in progress: once it completes every queued onSuccess runs in
// request order, or if it fails every queued onFailure runs with the cause.
// onFailure may be nil.
func (r *Registry) GetConnection(host string, onSuccess func(*Client), onFailure func(error)) error {
	if onSuccess == nil {
		return ErrNilHandler
	}

	s := r.shard(host)
	s.mu.Lock()
	rec := s.records[host]

	switch {
	case rec == nil:
		rec = &connRecord{host: host, state: stateConnecting}
		rec.add(onSuccess, onFailure)
		s.records[host] = rec
		cb := s.breaker(host, r.config)
		s.mu.Unlock()

		r.stats.recordRequest(false)
		r.stats.recordDial()
		go r.open(s, rec, cb)

	case rec.state == stateConnected:
		client := rec.client
		s.mu.Unlock()

		r.stats.recordRequest(false)
		onSuccess(client)

	default:
		rec.add(onSuccess, onFailure)
		s.mu.Unlock()

		r.stats.recordRequest(true)
	}

	return nil
}

func (rec *connRecord) add(onSuccess func(*Client), onFailure func(error)) {
	rec.successes = append(rec.successes, onSuccess)
	if onFailure != nil {
		rec.failures = append(rec.failures, onFailure)
	}
}

// open dials host and settles the record.
func (r *Registry) open(s *registryShard, rec *connRecord, cb *gobreaker.CircuitBreaker[*Client]) {
	dial := func() (*Client, error) {
		return Dial(context.Background(), rec.host, r.config)
	}

	var (
		client *Client
		err    error
	)
	if cb != nil {
		client, err = cb.Execute(dial)
	} else {
		client, err = dial()
	}

	if err != nil {
		var connErr *ConnectionError
		if !errors.As(err, &connErr) {
			err = &ConnectionError{Op: "connect", Addr: rec.host, Err: err}
		}
		r.fail(s, rec, err)
		return
	}

	r.logger.Debug().Str("host", rec.host).Str("version", client.Version()).Msg("connected")

	s.mu.Lock()
	rec.client = client
	s.mu.Unlock()

	client.onCloseHook(func(error) {
		s.mu.Lock()
		if s.records[rec.host] == rec {
			delete(s.records, rec.host)
		}
		s.mu.Unlock()
		r.stats.recordDisconnect()
	})

	// The record stays Connecting until the queue is empty so that requests
	// arriving while callbacks run are served after the ones before them.
	for {
		s.mu.Lock()
		successes := rec.successes
		rec.successes = nil
		rec.failures = nil
		if len(successes) == 0 {
			rec.state = stateConnected
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		for _, fn := range successes {
			fn(client)
		}
	}
}

func (r *Registry) fail(s *registryShard, rec *connRecord, err error) {
	s.mu.Lock()
	rec.state = stateFailed
	if s.records[rec.host] == rec {
		delete(s.records, rec.host)
	}
	failures := rec.failures
	rec.successes = nil
	rec.failures = nil
	s.mu.Unlock()

	r.stats.recordDialFailure()
	r.logger.Warn().Err(err).Str("host", rec.host).Int("waiting", len(failures)).Msg("connection failed")

	for _, fn := range failures {
		fn(err)
	}
}

// Connect returns the client for host, waiting for the connection attempt
// if needed.
func (r *Registry) Connect(ctx context.Context, host string) (*Client, error) {
	type result struct {
		client *Client
		err    error
	}
	ch := make(chan result, 1)

	err := r.GetConnection(host,
		func(c *Client) { ch <- result{client: c} },
		func(err error) { ch <- result{err: err} },
	)
	if err != nil {
		return nil, err
	}

	select {
	case res := <-ch:
		return res.client, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetClient returns the client for a connected host, or nil.
func (r *Registry) GetClient(host string) *Client {
	s := r.shard(host)
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.records[host]
	if rec == nil || rec.state != stateConnected {
		return nil
	}
	return rec.client
}

// Close closes every connected client. Connection attempts in progress are
// not interrupted.
func (r *Registry) Close() error {
	var clients []*Client
	for _, s := range r.shards {
		s.mu.Lock()
		for _, rec := range s.records {
			if rec.state == stateConnected {
				clients = append(clients, rec.client)
			}
		}
		s.mu.Unlock()
	}

	var errs []error
	for _, c := range clients {
		ctx, cancel := context.WithTimeout(context.Background(), r.config.ConnectTimeout)
		errs = append(errs, c.Close(ctx))
		cancel()
	}
	return errors.Join(errs...)
}

// Stats returns a snapshot of the registry counters.
func (r *Registry) Stats() RegistryStats {
	return r.stats.snapshot()
}

// CircuitBreakerState returns the state of host's circuit breaker, or
// gobreaker.StateClosed if the registry has none for it.
func (r *Registry) CircuitBreakerState(host string) gobreaker.State {
	s := r.shard(host)
	s.mu.Lock()
	defer s.mu.Unlock()
	if cb, ok := s.breakers[host]; ok {
		return cb.State()
	}
	return gobreaker.StateClosed
}
