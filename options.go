package clamd

import "time"

// ClientOption configures the client.
type ClientOption func(*Client)

// WithTimeout sets the connect and read/write deadline applied to every
// operation. If a context with a shorter deadline is provided to a method,
// that deadline takes precedence. Non-positive durations mean no client-side
// deadline (operations block until the daemon or the context ends them).
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithChunkSize sets the INSTREAM upload chunk size in bytes. It must stay
// below the daemon's StreamMaxLength. Non-positive values are ignored
// (no-op).
func WithChunkSize(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.chunkSize = n
		}
	}
}

// WithFraming selects the command framing the daemon is configured to
// accept. The default is FramingNewline.
func WithFraming(f Framing) ClientOption {
	return func(c *Client) {
		c.framing = f
	}
}

// WithDialer sets a custom dialer for establishing connections. This allows
// full control over source addresses, keep-alives, or proxying. The dialer
// is responsible for honoring its own connect timeout.
func WithDialer(d ContextDialer) ClientOption {
	return func(c *Client) {
		c.dialer = d
	}
}
