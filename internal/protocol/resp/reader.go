package resp

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Protocol limits.
const (
	// MaxArrayLen limits the number of elements in a request array.
	MaxArrayLen = 1024

	// MaxBulkLen limits the size of a single bulk string (512KB).
	MaxBulkLen = 512 * 1024

	// MaxInlineLen limits inline command line length (4KB).
	MaxInlineLen = 4 * 1024
)

// ReadCommand reads the next command off a stream.
//
// It returns (nil, nil) for a blank inline line and ErrEmptyCommand for an
// empty or null array; in both cases the stream is still in sync. Errors
// from the underlying reader (io.EOF, timeouts) are returned unwrapped.
func ReadCommand(br *bufio.Reader) (*Command, error) {
	b, err := br.Peek(1)
	if err != nil {
		return nil, err
	}

	r := newReader(br)
	if b[0] != '*' {
		// Inline command (rare, but used by some clients): "PING\r\n"
		line, err := r.readLine(MaxInlineLen)
		if err != nil {
			return nil, err
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			return nil, nil
		}
		return newCommand(r.raw.String(), parts), nil
	}

	args, err := r.readArray()
	if err != nil {
		return nil, err
	}
	return newCommand(r.raw.String(), args), nil
}

// reader reads protocol elements and keeps a copy of every byte consumed.
type reader struct {
	br  *bufio.Reader
	raw strings.Builder
}

func newReader(br *bufio.Reader) *reader {
	return &reader{br: br}
}

func (r *reader) readArray() ([]string, error) {
	// "*<n>\r\n"
	line, err := r.readLine(64)
	if err != nil {
		return nil, err
	}
	if len(line) < 2 || line[0] != '*' {
		return nil, fmt.Errorf("%w: expected array", ErrDecode)
	}
	n, ok := parseLength(line[1:])
	if !ok {
		return nil, fmt.Errorf("%w: invalid array length %q", ErrDecode, line[1:])
	}
	if n <= 0 {
		return nil, ErrEmptyCommand
	}
	if n > MaxArrayLen {
		return nil, fmt.Errorf("%w: array length %d exceeds limit %d", ErrLimitExceeded, n, MaxArrayLen)
	}

	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		arg, err := r.readBulkString()
		if err != nil {
			return nil, err
		}
		out = append(out, arg)
	}
	return out, nil
}

func (r *reader) readBulkString() (string, error) {
	// "$<len>\r\n"
	line, err := r.readLine(64)
	if err != nil {
		return "", err
	}
	if len(line) < 2 || line[0] != '$' {
		return "", fmt.Errorf("%w: expected bulk string", ErrDecode)
	}
	n, ok := parseLength(line[1:])
	if !ok || n < 0 {
		return "", fmt.Errorf("%w: invalid bulk length %q", ErrDecode, line[1:])
	}
	if n > MaxBulkLen {
		return "", fmt.Errorf("%w: bulk length %d exceeds limit %d", ErrLimitExceeded, n, MaxBulkLen)
	}

	buf := make([]byte, n+2)
	if _, err := io.ReadFull(r.br, buf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return "", fmt.Errorf("%w: truncated bulk string", ErrDecode)
		}
		return "", err
	}
	r.raw.Write(buf)
	if !bytes.HasSuffix(buf, []byte("\r\n")) {
		return "", fmt.Errorf("%w: invalid bulk terminator", ErrDecode)
	}
	return string(buf[:n]), nil
}

// parseLength parses a header length. An explicit '+' sign and a negative
// zero are rejected.
func parseLength(s string) (int, bool) {
	if s == "" || s[0] == '+' {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || (n == 0 && s[0] == '-') {
		return 0, false
	}
	return n, true
}

func (r *reader) readLine(maxLen int) (string, error) {
	var buf []byte
	for {
		frag, err := r.br.ReadSlice('\n')
		if err == nil {
			buf = append(buf, frag...)
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			buf = append(buf, frag...)
			if len(buf) > maxLen {
				return "", fmt.Errorf("%w: line length exceeds limit %d", ErrLimitExceeded, maxLen)
			}
			continue
		}
		if errors.Is(err, io.EOF) && len(buf)+len(frag) > 0 {
			return "", fmt.Errorf("%w: missing CRLF", ErrDecode)
		}
		return "", err
	}

	if len(buf) > maxLen {
		return "", fmt.Errorf("%w: line length exceeds limit %d", ErrLimitExceeded, maxLen)
	}
	r.raw.Write(buf)
	if !bytes.HasSuffix(buf, []byte("\r\n")) {
		return "", fmt.Errorf("%w: missing CRLF", ErrDecode)
	}
	return string(buf[:len(buf)-2]), nil
}
