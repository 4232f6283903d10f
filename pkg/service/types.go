package service

import (
	"errors"
	"log/slog"

	"github.com/pd-buddy/pdbuddy-go/pkg/log"
	"github.com/pd-buddy/pdbuddy-go/pkg/model"
	"github.com/pd-buddy/pdbuddy-go/pkg/pdo"
	"github.com/pd-buddy/pdbuddy-go/pkg/transport"
)

// Service errors.
var (
	ErrSessionClosed = errors.New("session closed")
)

// SessionState represents the session state.
type SessionState uint8

const (
	// StateDisconnected - the port is closed.
	StateDisconnected SessionState = iota

	// StateConnected - idle and ready for an operation.
	StateConnected

	// StateBusy - an exchange is in flight.
	StateBusy
)

// String returns the state name.
func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnected:
		return "CONNECTED"
	case StateBusy:
		return "BUSY"
	default:
		return "UNKNOWN"
	}
}

// SessionConfig configures a SinkSession.
type SessionConfig struct {
	// Limits bounds locally constructed configurations checked by
	// StageConfig. Zero means model.DefaultLimits().
	Limits model.Limits

	// Caps bounds the offers checked by CheckOffers.
	// Zero means pdo.DefaultCaps().
	Caps pdo.Caps

	// Transport configures the line transport.
	Transport transport.Config

	// Sync sends Ctrl-D when the session opens, discarding any partially
	// typed command left in the shell.
	Sync bool

	// Logger receives debug and error messages. Nil disables them.
	Logger *slog.Logger

	// ProtocolLogger captures transport, wire and session events.
	// Nil disables capture.
	ProtocolLogger log.Logger
}

// DefaultSessionConfig returns a config with firmware 1.x limits and
// sync enabled.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Limits: model.DefaultLimits(),
		Caps:   pdo.DefaultCaps(),
		Sync:   true,
	}
}

func (c *SessionConfig) applyDefaults() {
	if c.Limits == (model.Limits{}) {
		c.Limits = model.DefaultLimits()
	}
	if c.Caps == (pdo.Caps{}) {
		c.Caps = pdo.DefaultCaps()
	}
}
