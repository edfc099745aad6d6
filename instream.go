package clamd

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"time"
)

// sizeLimitReply is the daemon's rejection for uploads exceeding its
// configured StreamMaxLength.
const sizeLimitReply = "INSTREAM size limit exceeded. ERROR"

// ScanStream submits the reader's content for scanning over the INSTREAM
// sub-protocol: each chunk is a 4-byte big-endian length prefix followed by
// that many payload bytes, and a zero-length prefix ends the stream. The
// zero prefix is strictly the terminator, so empty reads from src are
// skipped, never sent.
func (c *Client) ScanStream(ctx context.Context, src io.Reader) (*ScanOutcome, error) {
	wire, err := encodeCommand(c.framing, cmdInstream, "")
	if err != nil {
		return nil, err
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	sess := &streamSession{conn: conn, deadline: c.opDeadline(ctx)}
	if err := conn.SetDeadline(sess.deadline); err != nil {
		return nil, NewIOError("set connection deadline", err)
	}

	if _, err := conn.Write(wire); err != nil {
		if isNetTimeout(err) {
			return nil, NewTimeoutError("INSTREAM: send timed out", err)
		}
		return nil, NewIOError("INSTREAM: send command", err)
	}

	buf := make([]byte, c.chunkSize)
	var prefix [4]byte

	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			// The daemon answers mid-stream when a limit is hit. Polling
			// before each chunk bounds the wasted transfer on oversized
			// inputs instead of pushing the rest of the source.
			if sess.replyReady() {
				return c.finishStream(sess)
			}
			binary.BigEndian.PutUint32(prefix[:], uint32(n))
			if _, err := conn.Write(prefix[:]); err != nil {
				return c.streamWriteFailed(sess, err)
			}
			if _, err := conn.Write(buf[:n]); err != nil {
				return c.streamWriteFailed(sess, err)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			// Abort without the terminator: closing the connection tells the
			// daemon the stream is dead rather than complete.
			return nil, NewIOError("INSTREAM: read scan source", readErr)
		}
	}

	binary.BigEndian.PutUint32(prefix[:], 0)
	if _, err := conn.Write(prefix[:]); err != nil {
		return c.streamWriteFailed(sess, err)
	}

	return c.finishStream(sess)
}

// finishStream reads the verdict exactly as a normal command response.
func (c *Client) finishStream(sess *streamSession) (*ScanOutcome, error) {
	raw, err := sess.response()
	if err != nil {
		if isNetTimeout(err) {
			return nil, NewTimeoutError("no INSTREAM response within the configured timeout", err)
		}
		return nil, NewIOError("read INSTREAM response", err)
	}
	lines, err := splitResponse(c.framing, raw)
	if err != nil {
		return nil, err
	}
	for _, line := range lines {
		if line == sizeLimitReply {
			return nil, NewBufferTooLongError(
				"stream exceeds the daemon's StreamMaxLength", nil)
		}
	}
	return parseScanOutcome(lines)
}

// streamWriteFailed handles a chunk write error. A broken pipe usually means
// the daemon already sent its verdict and closed its read side, so drain
// that reply before falling back to a plain I/O error.
func (c *Client) streamWriteFailed(sess *streamSession, writeErr error) (*ScanOutcome, error) {
	if isNetTimeout(writeErr) {
		return nil, NewTimeoutError("INSTREAM: upload timed out", writeErr)
	}
	if sess.replyReady() {
		outcome, err := c.finishStream(sess)
		if err == nil || IsBufferTooLong(err) {
			return outcome, err
		}
	}
	return nil, NewIOError("INSTREAM: send chunk", writeErr)
}

// streamSession tracks one INSTREAM exchange. Polling for an early reply may
// pull a byte off the socket; pending keeps it so the final response read
// sees the complete bytes.
type streamSession struct {
	conn     net.Conn
	deadline time.Time
	pending  []byte
	closed   bool
}

// replyReady reports whether response bytes are already waiting (or the
// daemon closed its side) without blocking: it reads under an immediate
// deadline and restores the operation deadline afterwards.
func (s *streamSession) replyReady() bool {
	if len(s.pending) > 0 || s.closed {
		return true
	}
	if err := s.conn.SetReadDeadline(time.Now()); err != nil {
		return false
	}
	var b [1]byte
	n, err := s.conn.Read(b[:])
	if restoreErr := s.conn.SetReadDeadline(s.deadline); restoreErr != nil {
		return true
	}
	if n > 0 {
		s.pending = append(s.pending, b[0])
		return true
	}
	if errors.Is(err, io.EOF) {
		s.closed = true
		return true
	}
	return false
}

// response drains the daemon's reply, including any byte captured while
// polling.
func (s *streamSession) response() ([]byte, error) {
	var rest []byte
	if !s.closed {
		var err error
		rest, err = io.ReadAll(s.conn)
		if err != nil {
			return nil, err
		}
	}
	return append(s.pending, rest...), nil
}
