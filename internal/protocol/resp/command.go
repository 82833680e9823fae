package resp

import "strings"

// Command is one decoded request. It is read-only after decode.
type Command struct {
	raw  string
	args []string
	name string
}

func newCommand(raw string, args []string) *Command {
	return &Command{
		raw:  raw,
		args: args,
		name: strings.ToLower(args[0]),
	}
}

// Raw returns the frame the command was decoded from.
func (c *Command) Raw() string {
	return c.raw
}

// Name returns the first argument, lowercased.
func (c *Command) Name() string {
	return c.name
}

// Args returns a copy of the arguments in protocol order, name included.
func (c *Command) Args() []string {
	out := make([]string, len(c.args))
	copy(out, c.args)
	return out
}

// Arg returns argument i, or "" when out of range.
func (c *Command) Arg(i int) string {
	if i < 0 || i >= len(c.args) {
		return ""
	}
	return c.args[i]
}

// Len returns the number of arguments, name included.
func (c *Command) Len() int {
	return len(c.args)
}
