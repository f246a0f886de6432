package testutils

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

// DefaultVersion is the ver message LogicServer answers with.
const DefaultVersion = "Nitrogen Logic Test Server 0.18.2"

// LogicServer is a scripted logic system listening on a loopback port.
// It answers ver and bye itself and hands every other request line to
// Handler, one session at a time per connection.
type LogicServer struct {
	// Version is the message of the ver response. Empty means DefaultVersion.
	Version string

	// RejectVersion makes the server hang up when it receives ver, so the
	// client's handshake fails.
	RejectVersion bool

	// Handler answers requests other than ver and bye. If nil every such
	// request gets an ERR response.
	Handler func(s *Session, line string)

	listener net.Listener
	accepted atomic.Int64

	mu       sync.Mutex
	received []string
	sessions []*Session
}

// Session is one accepted connection.
type Session struct {
	conn net.Conn
	mu   sync.Mutex
}

// Start listens on 127.0.0.1:0 and serves until the test ends.
func (s *LogicServer) Start(tb testing.TB) *LogicServer {
	tb.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		tb.Fatalf("failed to start logic server: %v", err)
	}
	s.listener = l
	tb.Cleanup(s.Stop)

	go s.serve()
	return s
}

// Addr returns the host:port the server listens on.
func (s *LogicServer) Addr() string {
	return s.listener.Addr().String()
}

// Accepted returns the number of connections accepted so far.
func (s *LogicServer) Accepted() int {
	return int(s.accepted.Load())
}

// Received returns every request line received, across all connections.
func (s *LogicServer) Received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.received...)
}

// Stop closes the listener and every open session.
func (s *LogicServer) Stop() {
	_ = s.listener.Close()

	s.mu.Lock()
	sessions := s.sessions
	s.sessions = nil
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
}

func (s *LogicServer) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.accepted.Add(1)

		sess := &Session{conn: conn}
		s.mu.Lock()
		s.sessions = append(s.sessions, sess)
		s.mu.Unlock()

		go s.handle(sess)
	}
}

func (s *LogicServer) handle(sess *Session) {
	defer sess.Close()

	r := bufio.NewReader(sess.conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")

		s.mu.Lock()
		s.received = append(s.received, line)
		s.mu.Unlock()

		name, _, _ := strings.Cut(line, " ")
		switch {
		case name == "ver" && s.RejectVersion:
			return
		case name == "ver":
			version := s.Version
			if version == "" {
				version = DefaultVersion
			}
			sess.Send("OK - " + version)
		case name == "bye":
			sess.Send("OK - Goodbye")
			return
		case s.Handler != nil:
			s.Handler(sess, line)
		default:
			sess.Send("ERR - Unknown command " + name)
		}
	}
}

// Send writes each line followed by a newline.
func (sess *Session) Send(lines ...string) {
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	sess.SendRaw([]byte(b.String()))
}

// SendRaw writes p unchanged.
func (sess *Session) SendRaw(p []byte) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	_, _ = sess.conn.Write(p)
}

// Close hangs up.
func (sess *Session) Close() {
	_ = sess.conn.Close()
}
