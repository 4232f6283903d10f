package wire

import (
	"errors"
	"fmt"
)

// Sentinel errors, matched with errors.Is.
var (
	// ErrParse is matched by every *ParseError.
	ErrParse = errors.New("malformed reply")

	// ErrUnknownCommand is matched by every *CommandError.
	ErrUnknownCommand = errors.New("command not found")

	// ErrCommit is matched by every *CommitError.
	ErrCommit = errors.New("commit failed")

	// ErrNoConfiguration is returned by load when flash holds no
	// configuration.
	ErrNoConfiguration = errors.New("no configuration")

	// ErrInvalidIndex is returned by get_cfg for an out-of-range index.
	ErrInvalidIndex = errors.New("configuration index out of range")
)

// ParseError reports a reply line that did not fit the grammar expected at
// its position.
type ParseError struct {
	// Command is the keyword of the request whose reply failed.
	Command string

	// LineNo is the 1-based reply line number. It is one past the last line
	// when the reply ended early.
	LineNo int

	// Line is the offending raw line, empty when the reply ended early.
	Line string

	// Expected describes the grammar expected at this position.
	Expected string
}

func (e *ParseError) Error() string {
	if e.Line == "" {
		return fmt.Sprintf("%s: reply line %d: missing, expected %s", e.Command, e.LineNo, e.Expected)
	}
	return fmt.Sprintf("%s: reply line %d %q: expected %s", e.Command, e.LineNo, e.Line, e.Expected)
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// CommandError reports a command the firmware did not recognize.
type CommandError struct {
	Command string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: command not found", e.Command)
}

func (e *CommandError) Is(target error) bool { return target == ErrUnknownCommand }

// CommitError reports a write the device refused.
type CommitError struct {
	// Reason is the text the device printed.
	Reason string
}

func (e *CommitError) Error() string {
	return "commit failed: " + e.Reason
}

func (e *CommitError) Is(target error) bool { return target == ErrCommit }
