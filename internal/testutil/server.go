// Package testutil provides a stub clamd daemon for tests. The stub speaks
// the real wire protocol over a unix or tcp listener: it decodes one framed
// command per connection, consumes INSTREAM chunks, writes the scripted
// response, and closes.
package testutil

import (
	"bufio"
	"encoding/binary"
	"io"
	"net"
	"strings"
	"sync"
)

// EICAR is the standard antivirus test file body. Every scanner flags it.
const EICAR = `X5O!P%@AP[4\PZX54(P^)7CC)7}$EICAR-STANDARD-ANTIVIRUS-TEST-FILE!$H+H*`

// SizeLimitReply is the daemon's INSTREAM rejection line.
const SizeLimitReply = "INSTREAM size limit exceeded. ERROR"

// sentinelCommand is the internal command Close dials to flush the accept
// queue; it is answered but never recorded.
const sentinelCommand = "_DRAIN"

// Request is one decoded command received by the daemon.
type Request struct {
	// Name and Arg are the decoded command parts.
	Name string
	Arg  string
	// Prefix is the framing prefix byte ('n' or 'z'), or 0 for the
	// old-style unprefixed form.
	Prefix byte
	// Body is the reassembled INSTREAM payload; nil for other commands.
	Body []byte
	// Chunks records the payload length of each non-terminal INSTREAM chunk
	// in arrival order.
	Chunks []int
	// Terminated is true once the zero-length INSTREAM terminator arrived.
	Terminated bool
}

// Handler produces the raw bytes the daemon writes before closing the
// connection. Returning nil writes nothing (the connection still closes,
// like a real SHUTDOWN).
type Handler func(req *Request) []byte

// Daemon is a scripted stub clamd daemon.
type Daemon struct {
	ln       net.Listener
	handlers map[string]Handler

	mu          sync.Mutex
	streamLimit int
	reqs        []*Request
	wg          sync.WaitGroup
}

// Listen starts a stub daemon on the given listener address. network is
// "unix" (address is a socket path) or "tcp" (address like "127.0.0.1:0").
func Listen(network, address string, handlers map[string]Handler) (*Daemon, error) {
	ln, err := net.Listen(network, address)
	if err != nil {
		return nil, err
	}
	d := &Daemon{ln: ln, handlers: handlers}
	d.wg.Add(1)
	go d.serve()
	return d, nil
}

// Addr returns the daemon endpoint in the client's address form.
func (d *Daemon) Addr() string {
	return d.ln.Addr().Network() + "://" + d.ln.Addr().String()
}

// Close stops the listener and waits for in-flight connections to finish.
func (d *Daemon) Close() {
	d.drain()
	d.ln.Close()
	d.wg.Wait()
}

// drain flushes the listener backlog before the listener closes. A client
// that aborts an exchange never waits for the daemon, so its connection may
// still be queued unaccepted when Close runs; closing the listener would
// discard it unrecorded. Connections are accepted in order, so once a
// sentinel dialed after them has been answered, every earlier connection has
// reached a handler goroutine covered by wg.Wait.
func (d *Daemon) drain() {
	addr := d.ln.Addr()
	conn, err := net.Dial(addr.Network(), addr.String())
	if err != nil {
		return
	}
	defer conn.Close()
	conn.Write([]byte(sentinelCommand + "\n"))
	io.Copy(io.Discard, conn)
}

// SetStreamLimit makes the daemon reject INSTREAM uploads whose accumulated
// payload exceeds limit bytes, replying mid-stream without consuming the
// rest. Zero (the default) accepts streams of any size.
func (d *Daemon) SetStreamLimit(limit int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.streamLimit = limit
}

func (d *Daemon) limit() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.streamLimit
}

// Requests returns the commands received so far. Call after the exchanges
// under test have completed.
func (d *Daemon) Requests() []*Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*Request, len(d.reqs))
	copy(out, d.reqs)
	return out
}

func (d *Daemon) serve() {
	defer d.wg.Done()
	for {
		conn, err := d.ln.Accept()
		if err != nil {
			return
		}
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			defer conn.Close()
			d.handle(conn)
		}()
	}
}

func (d *Daemon) handle(conn net.Conn) {
	br := bufio.NewReader(conn)
	req, err := readCommand(br)
	if err != nil {
		return
	}
	if req.Name == sentinelCommand {
		conn.Write(terminate(req.Prefix, "OK"))
		return
	}

	d.mu.Lock()
	d.reqs = append(d.reqs, req)
	d.mu.Unlock()

	if req.Name == "INSTREAM" {
		if rejected := d.consumeStream(br, req); rejected {
			conn.Write(terminate(req.Prefix, SizeLimitReply))
			// Closing with chunks still unread would reset the connection
			// and destroy the reply. Half-close and drain until the client
			// hangs up instead.
			if cw, ok := conn.(interface{ CloseWrite() error }); ok {
				cw.CloseWrite()
			}
			io.Copy(io.Discard, br)
			return
		}
		if !req.Terminated {
			// Stream aborted by the client; a real daemon logs and drops it.
			return
		}
	}

	handler := d.handlers[req.Name]
	if handler == nil {
		conn.Write(terminate(req.Prefix, "UNKNOWN COMMAND"))
		return
	}
	if resp := handler(req); len(resp) > 0 {
		conn.Write(resp)
	}
}

// readCommand decodes one framed command: an optional 'n'/'z' prefix, the
// command name, an optional argument, and the matching terminator.
func readCommand(br *bufio.Reader) (*Request, error) {
	first, err := br.ReadByte()
	if err != nil {
		return nil, err
	}

	req := &Request{}
	term := byte('\n')
	switch first {
	case 'n':
		req.Prefix = 'n'
	case 'z':
		req.Prefix = 'z'
		term = 0
	default:
		if err := br.UnreadByte(); err != nil {
			return nil, err
		}
	}

	line, err := br.ReadString(term)
	if err != nil {
		return nil, err
	}
	line = strings.TrimRight(line[:len(line)-1], "\r")

	if name, arg, ok := strings.Cut(line, " "); ok {
		req.Name, req.Arg = name, arg
	} else {
		req.Name = line
	}
	return req, nil
}

// consumeStream reads length-prefixed chunks until the zero terminator,
// recording sizes and payload. It reports true when the accumulated payload
// exceeds StreamLimit, leaving the rest of the stream unread.
func (d *Daemon) consumeStream(br *bufio.Reader, req *Request) (rejected bool) {
	limit := d.limit()
	var prefix [4]byte
	for {
		if _, err := io.ReadFull(br, prefix[:]); err != nil {
			return false
		}
		n := binary.BigEndian.Uint32(prefix[:])
		if n == 0 {
			req.Terminated = true
			return false
		}
		payload := make([]byte, n)
		if _, err := io.ReadFull(br, payload); err != nil {
			return false
		}
		req.Chunks = append(req.Chunks, int(n))
		req.Body = append(req.Body, payload...)
		if limit > 0 && len(req.Body) > limit {
			return true
		}
	}
}

// Lines builds a handler answering with newline-terminated response lines.
func Lines(lines ...string) Handler {
	return func(*Request) []byte {
		return []byte(strings.Join(lines, "\n") + "\n")
	}
}

// NullLines builds a handler answering with NUL-terminated response lines,
// the reply form matching 'z'-prefixed commands.
func NullLines(lines ...string) Handler {
	return func(*Request) []byte {
		return []byte(strings.Join(lines, "\x00") + "\x00")
	}
}

// Raw builds a handler answering with exact bytes, terminators included (or
// deliberately missing, for truncation tests).
func Raw(b []byte) Handler {
	return func(*Request) []byte { return b }
}

// Silent builds a handler that closes the connection without replying.
func Silent() Handler {
	return func(*Request) []byte { return nil }
}

// terminate appends the response terminator matching the request framing.
func terminate(prefix byte, line string) []byte {
	if prefix == 'z' {
		return append([]byte(line), 0)
	}
	return append([]byte(line), '\n')
}
