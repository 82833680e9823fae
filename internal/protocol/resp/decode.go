package resp

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDecode is the root of every malformed-frame failure.
	ErrDecode = errors.New("resp: malformed frame")

	// ErrEmptyCommand is returned for frames that carry no arguments.
	ErrEmptyCommand = fmt.Errorf("%w: no arguments", ErrDecode)

	// ErrLimitExceeded is returned when a frame exceeds a protocol limit.
	ErrLimitExceeded = fmt.Errorf("%w: limit exceeded", ErrDecode)
)

// Decode decodes one complete request frame.
//
// The frame must be a non-empty array of bulk strings with nothing after
// the last argument. Any structural problem, including a truncated payload,
// yields an error wrapping ErrDecode.
func Decode(frame string) (*Command, error) {
	if frame == "" {
		return nil, fmt.Errorf("%w: empty frame", ErrDecode)
	}
	if frame[0] != '*' {
		return nil, fmt.Errorf("%w: expected array", ErrDecode)
	}

	sr := strings.NewReader(frame)
	r := newReader(bufio.NewReaderSize(sr, len(frame)+16))

	args, err := r.readArray()
	if err != nil {
		if !errors.Is(err, ErrDecode) {
			err = fmt.Errorf("%w: %v", ErrDecode, err)
		}
		return nil, err
	}
	if r.br.Buffered() > 0 || sr.Len() > 0 {
		return nil, fmt.Errorf("%w: trailing bytes after argument %d", ErrDecode, len(args))
	}
	return newCommand(frame, args), nil
}

// ParseArguments returns the arguments of frame in protocol order.
func ParseArguments(frame string) ([]string, error) {
	cmd, err := Decode(frame)
	if err != nil {
		return nil, err
	}
	return cmd.args, nil
}

// CommandName returns the first argument of frame, lowercased.
func CommandName(frame string) (string, error) {
	cmd, err := Decode(frame)
	if err != nil {
		return "", err
	}
	return cmd.name, nil
}
