package clamd

import (
	"bytes"
	"fmt"
	"strings"
)

// Framing selects how commands are terminated on the wire and how response
// lines are delimited. clamd accepts newline-terminated commands prefixed
// with 'n' and NUL-terminated commands prefixed with 'z'; the daemon's
// response uses the matching delimiter. Which form a deployment accepts is a
// daemon configuration detail, so the framing is fixed once per Client.
type Framing int

const (
	// FramingNewline frames commands as "nCMD args\n" with '\n'-delimited
	// responses. This is the default.
	FramingNewline Framing = iota
	// FramingNull frames commands as "zCMD args\x00" with NUL-delimited
	// responses.
	FramingNull
)

// String returns the framing name used in configuration.
func (f Framing) String() string {
	if f == FramingNull {
		return "null"
	}
	return "newline"
}

func (f Framing) prefix() byte {
	if f == FramingNull {
		return 'z'
	}
	return 'n'
}

func (f Framing) terminator() byte {
	if f == FramingNull {
		return 0
	}
	return '\n'
}

// encodeCommand wraps a command name and optional argument in the wire
// framing. It fails before any bytes are sent if the input contains a
// protocol-reserved byte, so a corrupt command is never partially
// transmitted.
func encodeCommand(f Framing, name, arg string) ([]byte, error) {
	if name == "" {
		return nil, NewEncodeError("command name must not be empty", nil)
	}
	for _, s := range [2]string{name, arg} {
		if strings.IndexByte(s, '\n') >= 0 || strings.IndexByte(s, 0) >= 0 {
			return nil, NewEncodeError(
				fmt.Sprintf("command %q: input contains protocol-reserved bytes", name), nil)
		}
	}

	buf := make([]byte, 0, 2+len(name)+1+len(arg))
	buf = append(buf, f.prefix())
	buf = append(buf, name...)
	if arg != "" {
		buf = append(buf, ' ')
		buf = append(buf, arg...)
	}
	buf = append(buf, f.terminator())
	return buf, nil
}

// splitResponse breaks raw response bytes into complete lines on the
// framing's delimiter. A non-empty trailing fragment with no delimiter means
// the daemon's response was cut off, which is a protocol error rather than
// data. Blank lines are dropped.
func splitResponse(f Framing, raw []byte) ([]string, error) {
	term := f.terminator()
	var lines []string
	rest := raw
	for {
		i := bytes.IndexByte(rest, term)
		if i < 0 {
			break
		}
		if line := strings.TrimSpace(string(rest[:i])); line != "" {
			lines = append(lines, line)
		}
		rest = rest[i+1:]
	}
	if len(bytes.TrimSpace(rest)) > 0 {
		return nil, NewProtocolError(
			fmt.Sprintf("truncated response: %q has no terminator", rest), nil)
	}
	return lines, nil
}

// splitLabel splits a response line on the first ": " into a label and a
// message. Lines not matching this shape come back as a single unstructured
// message with an empty label.
func splitLabel(line string) (label, message string) {
	if i := strings.Index(line, ": "); i >= 0 {
		return line[:i], line[i+2:]
	}
	return "", line
}
