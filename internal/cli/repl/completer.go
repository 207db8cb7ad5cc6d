package repl

import (
	"sort"
	"strings"
)

// Completer suggests commands for a typed prefix.
type Completer struct {
	commands []string
}

// NewCompleter creates a completer over commands. Entries may contain
// spaces for subcommands, e.g. "config show".
func NewCompleter(commands ...string) *Completer {
	seen := make(map[string]bool, len(commands))
	c := &Completer{}
	for _, cmd := range commands {
		if !seen[cmd] {
			seen[cmd] = true
			c.commands = append(c.commands, cmd)
		}
	}
	sort.Strings(c.commands)
	return c
}

// Complete returns the commands starting with prefix, sorted.
func (c *Completer) Complete(prefix string) []string {
	var suggestions []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			suggestions = append(suggestions, cmd)
		}
	}
	return suggestions
}

// Known reports whether name is a top-level command.
func (c *Completer) Known(name string) bool {
	for _, cmd := range c.commands {
		if cmd == name || strings.HasPrefix(cmd, name+" ") {
			return true
		}
	}
	return false
}
