// Package command parses slash commands and dispatches them to registered
// handlers.
package command

import (
	"regexp"
	"strings"
)

// commandRe matches "/<name>" with an optional whitespace-separated
// remainder. The name is any run of non-whitespace characters.
var commandRe = regexp.MustCompile(`^/(\S+)(?:\s+(.+))?$`)

// Parsed is the result of parsing one line of input.
type Parsed struct {
	// IsCommand is false when the line is plain conversational text.
	IsCommand bool
	Name      string
	Remainder string
}

// Parse recognizes a trimmed line as either a slash-command invocation or
// plain text. It has no side effects.
func Parse(line string) Parsed {
	line = strings.TrimSpace(line)
	m := commandRe.FindStringSubmatch(line)
	if m == nil {
		return Parsed{}
	}
	return Parsed{
		IsCommand: true,
		Name:      m[1],
		Remainder: m[2],
	}
}
