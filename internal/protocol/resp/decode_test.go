package resp

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

const setFrame = "*3\r\n$3\r\nSET\r\n$3\r\nkey\r\n$11\r\nHello World\r\n"

func TestParseArguments(t *testing.T) {
	got, err := ParseArguments(setFrame)
	if err != nil {
		t.Fatalf("ParseArguments() error = %v", err)
	}
	want := []string{"SET", "key", "Hello World"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("arg[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCommandName(t *testing.T) {
	name, err := CommandName(setFrame)
	if err != nil {
		t.Fatalf("CommandName() error = %v", err)
	}
	if name != "set" {
		t.Errorf("CommandName() = %q, want %q", name, "set")
	}
}

func TestDecode_Command(t *testing.T) {
	cmd, err := Decode(setFrame)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if cmd.Raw() != setFrame {
		t.Errorf("Raw() = %q, want original frame", cmd.Raw())
	}
	if cmd.Name() != "set" || cmd.Len() != 3 {
		t.Errorf("Name() = %q, Len() = %d", cmd.Name(), cmd.Len())
	}
	if cmd.Arg(2) != "Hello World" || cmd.Arg(3) != "" || cmd.Arg(-1) != "" {
		t.Errorf("Arg() out of expectation: %q %q %q", cmd.Arg(2), cmd.Arg(3), cmd.Arg(-1))
	}

	args := cmd.Args()
	args[0] = "GET"
	if cmd.Arg(0) != "SET" || cmd.Name() != "set" {
		t.Error("mutating Args() result changed the command")
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	tests := [][]string{
		{"PING"},
		{"get", "k"},
		{"SET", "key", "Hello World"},
		{"SET", "k", "line1\r\nline2"},
		{"SET", "k", "\r\n"},
		{"SET", "k", ""},
		{"RPUSH", "list", "a", "b", "c", "d", "e", "f", "g"},
		{"Json.Set", "doc", `{"a":"$3\r\n"}`},
	}

	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			frame := EncodeCommand(args...)
			got, err := ParseArguments(frame)
			if err != nil {
				t.Fatalf("ParseArguments(%q) error = %v", frame, err)
			}
			if len(got) != len(args) {
				t.Fatalf("len = %d, want %d", len(got), len(args))
			}
			for i := range args {
				if got[i] != args[i] {
					t.Errorf("arg[%d] = %q, want %q", i, got[i], args[i])
				}
			}

			name, err := CommandName(frame)
			if err != nil {
				t.Fatalf("CommandName() error = %v", err)
			}
			if name != strings.ToLower(args[0]) {
				t.Errorf("CommandName() = %q, want %q", name, strings.ToLower(args[0]))
			}
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		frame string
	}{
		{"empty frame", ""},
		{"zero arguments", "*0\r\n"},
		{"null array", "*-1\r\n"},
		{"not an array", "+OK\r\n"},
		{"inline", "PING\r\n"},
		{"non-numeric array length", "*x\r\n$1\r\na\r\n"},
		{"non-numeric bulk length", "*1\r\n$x\r\na\r\n"},
		{"negative bulk length", "*1\r\n$-1\r\n"},
		{"signed bulk length", "*1\r\n$+1\r\na\r\n"},
		{"negative zero bulk length", "*1\r\n$-0\r\n\r\n"},
		{"signed array length", "*+1\r\n$4\r\nPING\r\n"},
		{"negative zero array length", "*-0\r\n"},
		{"missing header CRLF", "*1"},
		{"fewer arguments than declared", "*2\r\n$3\r\nGET\r\n"},
		{"truncated payload", "*1\r\n$10\r\nshort\r\n"},
		{"payload longer than declared", "*1\r\n$2\r\nabc\r\n"},
		{"missing bulk terminator", "*1\r\n$4\r\nPING"},
		{"trailing bytes", "*1\r\n$4\r\nPING\r\nextra"},
		{"array length over limit", fmt.Sprintf("*%d\r\n", MaxArrayLen+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.frame)
			if err == nil {
				t.Fatalf("Decode(%q) error = nil, want ErrDecode", tt.frame)
			}
			if !errors.Is(err, ErrDecode) {
				t.Errorf("Decode(%q) error = %v, want ErrDecode", tt.frame, err)
			}

			if _, err := CommandName(tt.frame); !errors.Is(err, ErrDecode) {
				t.Errorf("CommandName(%q) error = %v, want ErrDecode", tt.frame, err)
			}
		})
	}
}

func TestDecode_EmptyCommand(t *testing.T) {
	_, err := Decode("*0\r\n")
	if !errors.Is(err, ErrEmptyCommand) {
		t.Errorf("error = %v, want ErrEmptyCommand", err)
	}
}
