package transport

import (
	"errors"
	"fmt"
)

// Kind classifies a transport failure.
type Kind uint8

const (
	// KindTimeout means the prompt was not seen before the deadline.
	KindTimeout Kind = iota
	// KindClosed means the port was closed, locally or by the device.
	KindClosed
	// KindIOFailure means a read or write failed, or the reply overflowed.
	KindIOFailure
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindClosed:
		return "closed"
	case KindIOFailure:
		return "io"
	default:
		return "unknown"
	}
}

// Sentinel errors, one per Kind, matched with errors.Is.
var (
	ErrTimeout   = errors.New("timed out waiting for prompt")
	ErrClosed    = errors.New("port closed")
	ErrIOFailure = errors.New("i/o failure")

	// ErrReplyTooLarge is wrapped in an IOFailure when a reply exceeds
	// Config.MaxReplySize.
	ErrReplyTooLarge = errors.New("reply too large")

	// ErrInvalidLine is returned for command lines containing line breaks.
	ErrInvalidLine = errors.New("command line contains a line break")
)

// TransportError reports a failed exchange.
type TransportError struct {
	Kind Kind

	// Op is the operation that failed ("write", "read", "sync").
	Op string

	// Err is the underlying cause, if any.
	Err error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("transport %s: %s", e.Op, e.Kind)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind.
func (e *TransportError) Is(target error) bool {
	switch e.Kind {
	case KindTimeout:
		return target == ErrTimeout
	case KindClosed:
		return target == ErrClosed
	case KindIOFailure:
		return target == ErrIOFailure
	}
	return false
}
