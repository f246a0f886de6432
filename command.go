package logicclient

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nitrogenlogic/logicclient/internal/coarsetime"
)

// ResponseKind describes what follows the OK line of a command's response.
type ResponseKind int

const (
	NoPayload ResponseKind = iota // OK line only
	LineCount                     // OK message is the number of text lines that follow
	ByteCount                     // OK message holds the number of raw bytes that follow
)

func (k ResponseKind) String() string {
	switch k {
	case NoPayload:
		return "NoPayload"
	case LineCount:
		return "LineCount"
	case ByteCount:
		return "ByteCount"
	default:
		return "ResponseKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// ResponseKindFor returns the response kind the server uses for a command name.
func ResponseKindFor(name string) ResponseKind {
	switch name {
	case CmdStats, CmdSubscriptions, CmdList, CmdListExports, CmdHelp:
		return LineCount
	case CmdDownload:
		return ByteCount
	default:
		return NoPayload
	}
}

// Status is the lifecycle state of a Command.
type Status int

const (
	StatusPending Status = iota
	StatusSucceeded
	StatusFailed
	StatusTimedOut
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusTimedOut:
		return "timed out"
	default:
		return "Status(" + strconv.Itoa(int(s)) + ")"
	}
}

// Command is one request to the logic system and the future for its response.
//
// Continuations registered with OnSuccess and OnFailure run exactly once, when
// the command leaves StatusPending. Registering on a finished command runs the
// continuation immediately. A command that is never answered times out after
// its wait budget, counted from creation.
type Command struct {
	name    string
	args    []string
	kind    ResponseKind
	created time.Time
	timeout time.Duration
	timer   *time.Timer

	// Framing counters, touched only by the owning Client's reader.
	remainingLines int
	remainingBytes int

	mu        sync.Mutex
	status    Status
	message   string
	lines     []string
	data      []byte
	err       error
	onSuccess []func(*Command)
	onFailure []func(*Command)
	done      chan struct{}
}

// NewCommand creates a command with the default wait budget. Arguments are
// formatted with fmt and stripped of commas.
func NewCommand(name string, args ...any) *Command {
	return newCommand(name, DefaultCommandTimeout, args...)
}

func newCommand(name string, timeout time.Duration, args ...any) *Command {
	cmd := &Command{
		name:    name,
		args:    formatArgs(args),
		kind:    ResponseKindFor(name),
		created: coarsetime.Now(),
		timeout: timeout,
		done:    make(chan struct{}),
	}
	if timeout > 0 {
		cmd.mu.Lock()
		cmd.timer = time.AfterFunc(timeout, cmd.expire)
		cmd.mu.Unlock()
	}
	return cmd
}

func formatArgs(args []any) []string {
	if len(args) == 0 {
		return nil
	}
	out := make([]string, len(args))
	for i, arg := range args {
		var s string
		switch v := arg.(type) {
		case nil:
		case string:
			s = v
		case float64:
			s = strconv.FormatFloat(v, 'g', -1, 64)
		default:
			s = fmt.Sprint(v)
		}
		out[i] = strings.ReplaceAll(s, ",", "")
	}
	return out
}

// Name returns the command name.
func (c *Command) Name() string { return c.name }

// Args returns the formatted arguments.
func (c *Command) Args() []string { return c.args }

// Kind returns the response kind chosen from the command name.
func (c *Command) Kind() ResponseKind { return c.kind }

// Created returns when the command was created, to within 50ms.
func (c *Command) Created() time.Time { return c.created }

// Deadline returns when the command times out. It is the zero time for
// commands without a wait budget.
func (c *Command) Deadline() time.Time {
	if c.timeout <= 0 {
		return time.Time{}
	}
	return c.created.Add(c.timeout)
}

// String returns the request line without its delimiter.
func (c *Command) String() string {
	if len(c.args) == 0 {
		return c.name
	}
	return c.name + " " + strings.Join(c.args, ",")
}

// GoString describes the command's progress for debugging.
func (c *Command) GoString() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("#<Command: cmd=%s status=%s n_lines=%d n_data=%d>", c.name, c.status, len(c.lines), len(c.data))
}

// Status returns the current lifecycle state.
func (c *Command) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Success reports true once succeeded, false once failed or timed out, and
// ok=false while pending.
func (c *Command) Success() (success, ok bool) {
	switch c.Status() {
	case StatusSucceeded:
		return true, true
	case StatusPending:
		return false, false
	default:
		return false, true
	}
}

// Message returns the text after "OK - " or "ERR - ".
func (c *Command) Message() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.message
}

// Lines returns a copy of the text lines received after the OK line.
func (c *Command) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lines == nil {
		return nil
	}
	return append([]string(nil), c.lines...)
}

// Data returns the binary payload received after the OK line.
func (c *Command) Data() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data
}

// Err returns the failure cause, or nil while pending or after success.
func (c *Command) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Done is closed after the command finishes and its continuations have run.
func (c *Command) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the command finishes or ctx is done. It returns the
// command's failure cause, or ctx.Err() if ctx ended first; in that case the
// command itself keeps waiting for its response.
func (c *Command) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OnSuccess registers fn to run when the command succeeds.
func (c *Command) OnSuccess(fn func(*Command)) *Command {
	c.mu.Lock()
	switch c.status {
	case StatusPending:
		c.onSuccess = append(c.onSuccess, fn)
		c.mu.Unlock()
	case StatusSucceeded:
		c.mu.Unlock()
		fn(c)
	default:
		c.mu.Unlock()
	}
	return c
}

// OnFailure registers fn to run when the command fails or times out.
func (c *Command) OnFailure(fn func(*Command)) *Command {
	c.mu.Lock()
	switch c.status {
	case StatusPending:
		c.onFailure = append(c.onFailure, fn)
		c.mu.Unlock()
	case StatusSucceeded:
		c.mu.Unlock()
	default:
		c.mu.Unlock()
		fn(c)
	}
	return c
}

// OnComplete registers fn to run when the command finishes either way.
func (c *Command) OnComplete(fn func(*Command)) *Command {
	return c.OnSuccess(fn).OnFailure(fn)
}

// resolve moves the command to a terminal status. It returns false if the
// command had already finished.
func (c *Command) resolve(status Status, err error) bool {
	c.mu.Lock()
	if c.status != StatusPending {
		c.mu.Unlock()
		return false
	}
	c.status = status
	c.err = err

	callbacks := c.onFailure
	if status == StatusSucceeded {
		callbacks = c.onSuccess
	}
	c.onSuccess = nil
	c.onFailure = nil
	timer := c.timer
	c.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	for _, fn := range callbacks {
		fn(c)
	}
	close(c.done)
	return true
}

func (c *Command) succeed() bool {
	return c.resolve(StatusSucceeded, nil)
}

func (c *Command) fail(err error) bool {
	return c.resolve(StatusFailed, err)
}

func (c *Command) expire() {
	c.resolve(StatusTimedOut, &TimeoutError{Command: c.name, Timeout: c.timeout})
}

// onStatusLine handles the OK line. It returns true if no payload follows.
// Payload counters are set even on a command that already timed out so the
// reader stays in step with the stream. A byte count that does not fit in an
// int is a protocol error: the payload length is unknown.
func (c *Command) onStatusLine(message string) (bool, error) {
	c.record(func() { c.message = message })

	switch c.kind {
	case LineCount:
		c.remainingLines = int(parseIntPrefix(message))
	case ByteCount:
		n, ok := parseFirstDigits(message)
		if !ok {
			err := &ProtocolError{Message: fmt.Sprintf("%s declared an unreadable byte count: %s", c.name, message)}
			c.fail(err)
			return true, err
		}
		c.remainingBytes = n
	}

	if c.remainingLines <= 0 && c.remainingBytes <= 0 {
		c.remainingLines = 0
		c.remainingBytes = 0
		c.succeed()
		return true, nil
	}
	return false, nil
}

// onErrorLine handles the ERR line.
func (c *Command) onErrorLine(message string) {
	c.record(func() { c.message = message })
	c.fail(&CommandError{Command: c.name, Message: message})
}

// record applies fn under the lock while the command is pending. Responses
// arriving after a timeout are consumed without being kept.
func (c *Command) record(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == StatusPending {
		fn()
	}
}

// wantsData reports whether the command is waiting for binary payload.
func (c *Command) wantsData() bool {
	return c.remainingBytes > 0
}

// addLine appends one payload line and returns true once all declared lines
// have arrived.
func (c *Command) addLine(line string) bool {
	c.record(func() { c.lines = append(c.lines, line) })

	c.remainingLines--
	if c.remainingLines == 0 {
		c.succeed()
	}
	return c.remainingLines <= 0
}

// addData appends binary payload and returns true once all declared bytes
// have arrived. Receiving more than declared is a protocol error.
func (c *Command) addData(p []byte) (bool, error) {
	c.record(func() { c.data = append(c.data, p...) })

	c.remainingBytes -= len(p)
	if c.remainingBytes < 0 {
		over := -c.remainingBytes
		c.remainingBytes = 0
		return true, &ProtocolError{Message: fmt.Sprintf("%s received %d bytes more than declared", c.name, over)}
	}
	if c.remainingBytes == 0 {
		c.succeed()
		return true, nil
	}
	return false, nil
}

// parseFirstDigits returns the first run of decimal digits in s, or 0 if
// there is none. ok is false if the digits overflow an int.
func parseFirstDigits(s string) (n int, ok bool) {
	start := strings.IndexAny(s, "0123456789")
	if start < 0 {
		return 0, true
	}
	end := start
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[start:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
