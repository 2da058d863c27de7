package command

import "testing"

func TestParse(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		input     string
		isCommand bool
		cmdName   string
		remainder string
	}{
		{name: "bare command", input: "/new", isCommand: true, cmdName: "new"},
		{name: "command with remainder", input: "/me extra args", isCommand: true, cmdName: "me", remainder: "extra args"},
		{name: "command with extra whitespace", input: "  /help  ", isCommand: true, cmdName: "help"},
		{name: "plain text", input: "hello"},
		{name: "slash only", input: "/"},
		{name: "slash with leading space in name", input: "/ model"},
		{name: "empty", input: ""},
		{name: "text containing slash", input: "use /model please"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Parse(tc.input)
			if got.IsCommand != tc.isCommand {
				t.Fatalf("IsCommand = %v, want %v", got.IsCommand, tc.isCommand)
			}
			if got.Name != tc.cmdName {
				t.Errorf("Name = %q, want %q", got.Name, tc.cmdName)
			}
			if got.Remainder != tc.remainder {
				t.Errorf("Remainder = %q, want %q", got.Remainder, tc.remainder)
			}
		})
	}
}

func TestParseRemainderKeepsInnerWhitespace(t *testing.T) {
	t.Parallel()

	got := Parse("/model  gpt 4o  turbo")
	if !got.IsCommand || got.Name != "model" {
		t.Fatalf("unexpected parse: %+v", got)
	}
	if got.Remainder != "gpt 4o  turbo" {
		t.Errorf("Remainder = %q", got.Remainder)
	}
}
