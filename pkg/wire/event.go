package wire

import (
	"errors"
	"time"

	"github.com/pd-buddy/pdbuddy-go/pkg/log"
)

// ResultOK is the CommandEvent result of a successful decode.
const ResultOK = "ok"

// ErrorClass returns a short class name for an error from this package,
// used as the Result of protocol log events.
func ErrorClass(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, ErrUnknownCommand):
		return "unknown_command"
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, ErrCommit):
		return "commit"
	case errors.Is(err, ErrNoConfiguration):
		return "no_configuration"
	case errors.Is(err, ErrInvalidIndex):
		return "invalid_index"
	default:
		return "error"
	}
}

// NewCommandEvent builds the WIRE layer event for a decoded reply. payload
// should be CBOR and JSON friendly (strings, numbers, slices, maps).
func NewCommandEvent(sessionID string, req Request, err error, payload any) log.Event {
	category := log.CategoryMessage
	if err != nil {
		category = log.CategoryError
	}
	return log.Event{
		Timestamp: time.Now(),
		SessionID: sessionID,
		Direction: log.DirectionIn,
		Layer:     log.LayerWire,
		Category:  category,
		Command: &log.CommandEvent{
			Name:    req.Keyword(),
			Args:    req.Args,
			Result:  ErrorClass(err),
			Payload: payload,
		},
	}
}
