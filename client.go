package logicclient

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/nitrogenlogic/logicclient/internal"
	"github.com/rs/zerolog"
)

var (
	versionPattern = regexp.MustCompile(`[0-9]+\.[0-9]+\.[0-9]+`)
	chunkPool      = internal.NewChunkPool(maxDataChunk)
)

// Submitter sends commands over a connection.
type Submitter interface {
	Do(name string, args ...any) *Command
}

// Client is one connection to a logic system.
//
// Commands are answered strictly in the order they were submitted, so the
// client keeps a FIFO of commands awaiting a response and hands every OK or
// ERR line to the oldest one. A single reader goroutine owns the framing
// state: when the command at the head declares text lines or binary bytes
// after its OK line, that command becomes the multi-part consumer and
// receives the following lines, or exactly the declared number of bytes,
// before normal dispatch resumes.
//
// Continuations of this client's commands run on the reader goroutine in
// submission order. They may submit further commands but must not block
// waiting for them.
type Client struct {
	addr   string
	conn   net.Conn
	reader *bufio.Reader
	config Config
	logger zerolog.Logger

	// writeMu makes queue append and socket write one step so the queue
	// order is the wire order.
	writeMu sync.Mutex

	mu            sync.Mutex
	queue         []*Command
	closed        bool
	closeErr      error
	onClose       []func(error)
	versionString string
	version       string
	subs          map[subscriptionKey]*Subscription

	// active is the multi-part consumer. Reader goroutine only.
	active *Command

	handshake  *Command
	stopped    chan struct{}
	readerDone chan struct{}

	// Notifications waiting for the notification goroutine. The reader
	// appends without blocking and signals notifyReady.
	notifyMu    sync.Mutex
	notifyQueue []func()
	notifyReady chan struct{}

	stats *clientStatsCollector
}

var _ Submitter = (*Client)(nil)

// Dial connects to the logic system at addr and waits for the version
// handshake. The configured port is used if addr has none.
func Dial(ctx context.Context, addr string, config Config) (*Client, error) {
	config = config.withDefaults()
	addr = config.address(addr)

	ctx, cancel := context.WithTimeout(ctx, config.ConnectTimeout)
	defer cancel()

	conn, err := config.dial(ctx, "tcp", addr)
	if err != nil {
		return nil, &ConnectionError{Op: "dial", Addr: addr, Err: err}
	}

	c := NewClient(conn, config)
	if err := c.handshake.Wait(ctx); err != nil {
		herr := &ConnectionError{Op: "handshake", Addr: addr, Err: err}
		c.shutdown(herr)
		return nil, herr
	}

	return c, nil
}

// NewClient starts the protocol on an established connection. The version
// handshake is sent immediately; Handshake returns its command. If the
// handshake fails the connection is closed.
func NewClient(conn net.Conn, config Config) *Client {
	config = config.withDefaults()

	addr := ""
	if ra := conn.RemoteAddr(); ra != nil {
		addr = ra.String()
	}

	c := &Client{
		addr:        addr,
		conn:        conn,
		reader:      bufio.NewReader(conn),
		config:      config,
		logger:      config.Logger.With().Str("addr", addr).Logger(),
		subs:        make(map[subscriptionKey]*Subscription),
		stopped:     make(chan struct{}),
		readerDone:  make(chan struct{}),
		notifyReady: make(chan struct{}, 1),
		stats:       newClientStatsCollector(),
	}

	go c.readLoop()
	go c.notifyLoop()

	c.handshake = c.Do(CmdVersion)
	c.handshake.OnSuccess(func(cmd *Command) {
		msg := cmd.Message()
		c.mu.Lock()
		c.versionString = msg
		c.version = versionPattern.FindString(msg)
		c.mu.Unlock()
	}).OnFailure(func(cmd *Command) {
		c.shutdown(&ConnectionError{Op: "handshake", Addr: c.addr, Err: cmd.Err()})
	})

	return c
}

// Addr returns the remote address.
func (c *Client) Addr() string {
	return c.addr
}

// Handshake returns the ver command sent when the client started.
func (c *Client) Handshake() *Command {
	return c.handshake
}

// VersionString returns the full message of the ver response.
func (c *Client) VersionString() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versionString
}

// Version returns the first N.N.N version number in the ver response.
func (c *Client) Version() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// Done is closed when the connection has been closed.
func (c *Client) Done() <-chan struct{} {
	return c.stopped
}

// Err returns why the connection closed, or nil while it is open.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeErr
}

// Stats returns a snapshot of the connection counters.
func (c *Client) Stats() ClientStats {
	return c.stats.snapshot()
}

// Pending returns the number of commands waiting for a response line.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Do creates a command with the client's wait budget and submits it.
func (c *Client) Do(name string, args ...any) *Command {
	return c.Submit(newCommand(name, c.config.commandTimeout(), args...))
}

// Submit queues cmd and writes its request line. On a closed connection the
// command fails immediately.
func (c *Client) Submit(cmd *Command) *Command {
	cmd.OnComplete(c.stats.recordOutcome)

	if err := c.write(cmd); err != nil {
		c.shutdown(err)
		cmd.fail(err)
	}
	return cmd
}

func (c *Client) write(cmd *Command) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return &ConnectionError{Op: "submit", Addr: c.addr, Err: ErrClientClosed}
	}
	c.queue = append(c.queue, cmd)
	c.mu.Unlock()

	c.stats.recordSubmit()

	if timeout := c.config.commandTimeout(); timeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	if _, err := io.WriteString(c.conn, cmd.String()+string(lineDelimiter)); err != nil {
		return &ConnectionError{Op: "write", Addr: c.addr, Err: err}
	}
	return nil
}

// Close ends the session with bye and closes the socket. It waits for the
// bye response until ctx is done. Close must not be called from a command
// continuation.
func (c *Client) Close(ctx context.Context) error {
	if c.Err() != nil {
		return nil
	}

	closeErr := &ConnectionError{Op: "close", Addr: c.addr, Err: ErrClientClosed}

	// Shut down from the reader before it sees the server hang up.
	bye := c.Do(CmdBye).OnComplete(func(*Command) { c.shutdown(closeErr) })
	err := bye.Wait(ctx)
	c.shutdown(closeErr)

	// The server may hang up without answering bye.
	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		return nil
	}
	return err
}

// onCloseHook registers fn to run once the connection closes. It runs
// immediately if the connection is already closed.
func (c *Client) onCloseHook(fn func(error)) {
	c.mu.Lock()
	if c.closed {
		err := c.closeErr
		c.mu.Unlock()
		fn(err)
		return
	}
	c.onClose = append(c.onClose, fn)
	c.mu.Unlock()
}

// shutdown closes the connection and fails every queued command with err.
func (c *Client) shutdown(err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.closeErr = err
	pending := c.queue
	c.queue = nil
	hooks := c.onClose
	c.onClose = nil
	c.mu.Unlock()

	close(c.stopped)
	_ = c.conn.Close()

	if errors.Is(err, ErrClientClosed) {
		c.logger.Debug().Int("pending", len(pending)).Msg("connection closed")
	} else {
		c.logger.Warn().Err(err).Int("pending", len(pending)).Msg("connection lost")
	}

	for _, cmd := range pending {
		cmd.fail(err)
	}
	for _, fn := range hooks {
		fn(err)
	}
}

// pop removes the oldest command awaiting a response line.
func (c *Client) pop() *Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return nil
	}
	cmd := c.queue[0]
	c.queue[0] = nil
	c.queue = c.queue[1:]
	return cmd
}

func (c *Client) readLoop() {
	defer close(c.readerDone)

	for {
		if err := c.readNext(); err != nil {
			var perr *ProtocolError
			if errors.As(err, &perr) {
				c.logger.Error().Err(err).Msg("protocol desynchronized")
			}
			c.shutdown(err)
			if c.active != nil {
				c.active.fail(c.Err())
				c.active = nil
			}
			return
		}
	}
}

// readNext consumes one framing unit: a chunk of binary payload while the
// multi-part consumer wants bytes, otherwise one line.
func (c *Client) readNext() error {
	if c.active != nil && c.active.wantsData() {
		buf := chunkPool.Get(min(c.active.remainingBytes, maxDataChunk))
		defer chunkPool.Put(buf)

		n, err := io.ReadAtLeast(c.reader, *buf, 1)
		if err != nil {
			return &ConnectionError{Op: "read", Addr: c.addr, Err: err}
		}
		c.stats.recordBytes(n)

		done, err := c.active.addData((*buf)[:n])
		if err != nil {
			return err
		}
		if done {
			c.active = nil
		}
		return nil
	}

	line, err := c.reader.ReadString(lineDelimiter)
	if err != nil {
		return &ConnectionError{Op: "read", Addr: c.addr, Err: err}
	}
	line = strings.TrimSuffix(line[:len(line)-1], "\r")

	if c.active != nil {
		c.stats.recordLine()
		if c.active.addLine(line) {
			c.active = nil
		}
		return nil
	}

	return c.dispatch(line)
}

// dispatch handles a line that starts a response or arrives unsolicited.
func (c *Client) dispatch(line string) error {
	typ, message, _ := strings.Cut(line, responseSeparator)

	switch typ {
	case ResponseOK:
		cmd := c.pop()
		if cmd == nil {
			return &ProtocolError{Message: "received OK when no command was waiting: " + line}
		}
		done, err := cmd.onStatusLine(message)
		if err != nil {
			return err
		}
		if !done {
			c.active = cmd
		}

	case ResponseErr:
		cmd := c.pop()
		if cmd == nil {
			return &ProtocolError{Message: "received ERR when no command was waiting: " + line}
		}
		cmd.onErrorLine(message)

	case ResponseSub:
		c.stats.recordUnsolicited()
		c.handleSubscription(message)

	default:
		c.stats.recordUnsolicited()
		c.logger.Warn().Str("line", line).Msg("unknown response")
	}

	return nil
}

func (c *Client) notifyLoop() {
	for {
		select {
		case <-c.notifyReady:
		case <-c.stopped:
			return
		}

		c.notifyMu.Lock()
		batch := c.notifyQueue
		c.notifyQueue = nil
		c.notifyMu.Unlock()

		for _, fn := range batch {
			select {
			case <-c.stopped:
				return
			default:
			}
			fn()
		}
	}
}

// enqueue schedules fn on the notification goroutine without blocking.
// Notifications pending when the connection closes are dropped.
func (c *Client) enqueue(fn func()) {
	select {
	case <-c.stopped:
		return
	default:
	}

	c.notifyMu.Lock()
	c.notifyQueue = append(c.notifyQueue, fn)
	c.notifyMu.Unlock()

	select {
	case c.notifyReady <- struct{}{}:
	default:
	}
}
