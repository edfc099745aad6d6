package clamd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultChunkSize = 8192

	cmdPing     = "PING"
	cmdVersion  = "VERSION"
	cmdReload   = "RELOAD"
	cmdShutdown = "SHUTDOWN"
	cmdStats    = "STATS"
	cmdInstream = "INSTREAM"

	pongReply   = "PONG"
	reloadReply = "RELOADING"

	// errorSuffix is the trailing token marking a daemon error reply.
	errorSuffix = "ERROR"
)

// ContextDialer establishes network connections. *net.Dialer implements it.
type ContextDialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Client is a clamd protocol client bound to one daemon endpoint.
// It holds no live connection: every operation dials, runs one exchange, and
// closes, so a Client is safe for concurrent use from multiple goroutines.
type Client struct {
	network   string // "unix" or "tcp"
	address   string
	timeout   time.Duration
	chunkSize int
	framing   Framing
	dialer    ContextDialer
}

// NewClient creates a client for the daemon at the given address. Accepted
// forms are "unix:///path/to/clamd.ctl", "tcp://host:port", a bare absolute
// path (unix), or a bare "host:port" (tcp).
func NewClient(address string, opts ...ClientOption) (*Client, error) {
	network, addr, err := parseAddress(address)
	if err != nil {
		return nil, err
	}

	c := &Client{
		network:   network,
		address:   addr,
		timeout:   defaultTimeout,
		chunkSize: defaultChunkSize,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.dialer == nil {
		d := &net.Dialer{}
		if c.timeout > 0 {
			d.Timeout = c.timeout
		}
		c.dialer = d
	}

	return c, nil
}

// parseAddress resolves the endpoint string into exactly one transport kind.
func parseAddress(address string) (network, addr string, err error) {
	switch {
	case strings.HasPrefix(address, "unix://"):
		network, addr = "unix", strings.TrimPrefix(address, "unix://")
	case strings.HasPrefix(address, "tcp://"):
		network, addr = "tcp", strings.TrimPrefix(address, "tcp://")
	case strings.HasPrefix(address, "/"):
		network, addr = "unix", address
	case strings.Contains(address, ":"):
		network, addr = "tcp", address
	default:
		return "", "", NewValidationError(
			fmt.Sprintf("address must be a unix socket path or host:port: %q", address), nil)
	}

	if network == "unix" {
		if addr == "" {
			return "", "", NewValidationError("unix socket path must not be empty", nil)
		}
		return network, addr, nil
	}

	host, port, splitErr := net.SplitHostPort(addr)
	if splitErr != nil || host == "" || port == "" {
		return "", "", NewValidationError(
			fmt.Sprintf("tcp address must be host:port: %q", address), splitErr)
	}
	return network, addr, nil
}

// Address returns the endpoint in canonical "network://address" form.
func (c *Client) Address() string {
	return c.network + "://" + c.address
}

// Ping checks that the daemon is alive and answering.
func (c *Client) Ping(ctx context.Context) error {
	reply, err := c.simpleCommand(ctx, cmdPing)
	if err != nil {
		return err
	}
	if reply != pongReply {
		return NewProtocolError(fmt.Sprintf("unexpected PING reply %q", reply), nil)
	}
	return nil
}

// Version returns the daemon's version line, e.g.
// "ClamAV 1.3.0/27284/Tue Aug 25 08:31:12 2026".
func (c *Client) Version(ctx context.Context) (string, error) {
	return c.simpleCommand(ctx, cmdVersion)
}

// Reload asks the daemon to reload its virus databases.
func (c *Client) Reload(ctx context.Context) error {
	reply, err := c.simpleCommand(ctx, cmdReload)
	if err != nil {
		return err
	}
	if reply != reloadReply {
		return NewProtocolError(fmt.Sprintf("unexpected RELOAD reply %q", reply), nil)
	}
	return nil
}

// Shutdown asks the daemon to terminate. The daemon closes the connection
// without replying, so an empty response is success; subsequent operations
// fail with a connection error until the daemon is restarted externally.
func (c *Client) Shutdown(ctx context.Context) error {
	lines, err := c.roundTrip(ctx, cmdShutdown, "")
	if err != nil {
		return err
	}
	if len(lines) > 0 && strings.HasSuffix(lines[0], errorSuffix) {
		return NewProtocolError(lines[0], nil)
	}
	return nil
}

// Stats returns the daemon's internal counters (thread pool state, queue
// length, memory use) parsed from the STATS response.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	lines, err := c.roundTrip(ctx, cmdStats, "")
	if err != nil {
		return nil, err
	}
	return parseStats(lines)
}

// ScanPath asks the daemon to scan a file or directory it can read directly.
// The path must be absolute from the daemon's point of view. The mode picks
// SCAN, CONTSCAN, or MULTISCAN.
func (c *Client) ScanPath(ctx context.Context, path string, mode ScanMode) (*ScanOutcome, error) {
	if path == "" {
		return nil, NewValidationError("scan path must not be empty", nil)
	}
	lines, err := c.roundTrip(ctx, mode.command(), path)
	if err != nil {
		return nil, err
	}
	return parseScanOutcome(lines)
}

// ScanBytes scans in-memory content through the INSTREAM sub-protocol.
func (c *Client) ScanBytes(ctx context.Context, data []byte) (*ScanOutcome, error) {
	return c.ScanStream(ctx, bytes.NewReader(data))
}

// ScanStreamFile reads a local file and scans it through INSTREAM. Use this
// when the daemon cannot read the path itself (remote daemon, chroot).
func (c *Client) ScanStreamFile(ctx context.Context, filePath string) (*ScanOutcome, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("failed to open file: %s", filePath), err)
	}
	defer f.Close()

	return c.ScanStream(ctx, f)
}

// simpleCommand runs a command expecting a single response line. A line
// carrying the daemon's ERROR marker is surfaced as a protocol error.
func (c *Client) simpleCommand(ctx context.Context, name string) (string, error) {
	lines, err := c.roundTrip(ctx, name, "")
	if err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return "", NewProtocolError(fmt.Sprintf("%s: empty response", name), nil)
	}
	reply := lines[0]
	if strings.HasSuffix(reply, errorSuffix) {
		return "", NewProtocolError(reply, nil)
	}
	return reply, nil
}

// roundTrip performs one full protocol exchange on a fresh connection:
// encode, dial, send, receive until the daemon closes, decode into lines.
func (c *Client) roundTrip(ctx context.Context, name, arg string) ([]string, error) {
	wire, err := encodeCommand(c.framing, name, arg)
	if err != nil {
		return nil, err
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := conn.SetDeadline(c.opDeadline(ctx)); err != nil {
		return nil, NewIOError("set connection deadline", err)
	}

	if _, err := conn.Write(wire); err != nil {
		if isNetTimeout(err) {
			return nil, NewTimeoutError(fmt.Sprintf("%s: send timed out", name), err)
		}
		return nil, NewIOError(fmt.Sprintf("%s: send command", name), err)
	}

	raw, err := readUntilClose(conn)
	if err != nil {
		return nil, err
	}
	return splitResponse(c.framing, raw)
}

// dial opens the per-operation connection and classifies failures.
func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	conn, err := c.dialer.DialContext(ctx, c.network, c.address)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || isNetTimeout(err) {
			return nil, NewTimeoutError(
				fmt.Sprintf("timed out connecting to %s", c.Address()), err)
		}
		return nil, NewConnectionError(
			fmt.Sprintf("error connecting to %s", c.Address()), err)
	}
	return &socketConn{Conn: conn}, nil
}

// opDeadline picks the earlier of the configured timeout and the context
// deadline. The zero time means no deadline.
func (c *Client) opDeadline(ctx context.Context) time.Time {
	var deadline time.Time
	if c.timeout > 0 {
		deadline = time.Now().Add(c.timeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	return deadline
}

// readUntilClose drains the daemon's response. The daemon signals the end of
// a response by closing its side, so EOF is the normal stop condition.
func readUntilClose(conn net.Conn) ([]byte, error) {
	raw, err := io.ReadAll(conn)
	if err != nil {
		// The deferred close still runs, but the socket must be gone before
		// the timeout surfaces.
		conn.Close()
		if isNetTimeout(err) {
			return nil, NewTimeoutError("no response within the configured timeout", err)
		}
		return nil, NewIOError("read response", err)
	}
	return raw, nil
}

func isNetTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// socketConn makes Close idempotent: the descriptor is released exactly once
// and later calls return the first result.
type socketConn struct {
	net.Conn

	closeOnce sync.Once
	closeErr  error
}

func (s *socketConn) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.Conn.Close()
	})
	return s.closeErr
}
