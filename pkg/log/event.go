package log

import "time"

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID uniquely identifies the sink session (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Direction indicates data flow relative to the host.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// Port is the serial device the session talks to (e.g. /dev/ttyACM0).
	Port string `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Line        *LineEvent        `cbor:"10,keyasint,omitempty"` // Transport layer
	Command     *CommandEvent     `cbor:"11,keyasint,omitempty"` // Wire layer (decoded)
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"` // Session state
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of data flow.
type Direction uint8

const (
	// DirectionIn indicates data read from the device.
	DirectionIn Direction = 0
	// DirectionOut indicates data written to the device.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which protocol layer captured the event.
type Layer uint8

const (
	// LayerTransport is the line layer (raw text).
	LayerTransport Layer = 0
	// LayerWire is the command codec layer.
	LayerWire Layer = 1
	// LayerService is the session layer.
	LayerService Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerService:
		return "SERVICE"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a command line or reply.
	CategoryMessage Category = 0
	// CategoryState indicates a state change.
	CategoryState Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LineEvent captures raw shell text at the transport layer.
type LineEvent struct {
	// Text is the command line written (OUT events).
	Text string `cbor:"1,keyasint,omitempty"`

	// Lines are the reply lines read before the prompt (IN events).
	Lines []string `cbor:"2,keyasint,omitempty"`

	// Size is the number of bytes written or read, terminators included.
	Size int `cbor:"3,keyasint"`

	// Truncated indicates Lines was cut to MaxLogLines.
	Truncated bool `cbor:"4,keyasint,omitempty"`

	// Duration is the time from write to prompt (IN events only).
	Duration *time.Duration `cbor:"5,keyasint,omitempty"`
}

// CommandEvent captures a shell command at the wire layer.
type CommandEvent struct {
	// Name is the logical command (e.g. "get_tmpcfg").
	Name string `cbor:"1,keyasint"`

	// Args are the encoded arguments.
	Args []string `cbor:"2,keyasint,omitempty"`

	// Result summarizes the decode outcome ("ok" or an error class).
	Result string `cbor:"3,keyasint,omitempty"`

	// Payload is a decoded representation of the result, if any.
	Payload any `cbor:"4,keyasint,omitempty"`
}

// StateChangeEvent captures session lifecycle events.
type StateChangeEvent struct {
	// OldState is the previous state (may be empty).
	OldState string `cbor:"1,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"2,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"3,keyasint,omitempty"`
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Kind is the error class (timeout, parse, validation, ...).
	Kind string `cbor:"3,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"4,keyasint,omitempty"`
}

// MaxLogLines bounds the reply lines kept in a single LineEvent.
const MaxLogLines = 256

// NewLineOut builds a transport event for a command line written to the device.
func NewLineOut(sessionID, text string, size int) Event {
	return Event{
		Timestamp: time.Now(),
		SessionID: sessionID,
		Direction: DirectionOut,
		Layer:     LayerTransport,
		Category:  CategoryMessage,
		Line:      &LineEvent{Text: text, Size: size},
	}
}

// NewLinesIn builds a transport event for a reply read from the device.
func NewLinesIn(sessionID string, lines []string, size int, took time.Duration) Event {
	truncated := false
	if len(lines) > MaxLogLines {
		lines = lines[:MaxLogLines]
		truncated = true
	}
	kept := make([]string, len(lines))
	copy(kept, lines)
	return Event{
		Timestamp: time.Now(),
		SessionID: sessionID,
		Direction: DirectionIn,
		Layer:     LayerTransport,
		Category:  CategoryMessage,
		Line: &LineEvent{
			Lines:     kept,
			Size:      size,
			Truncated: truncated,
			Duration:  &took,
		},
	}
}

// NewError builds an error event.
func NewError(sessionID string, layer Layer, kind, context string, err error) Event {
	return Event{
		Timestamp: time.Now(),
		SessionID: sessionID,
		Direction: DirectionIn,
		Layer:     layer,
		Category:  CategoryError,
		Error: &ErrorEventData{
			Layer:   layer,
			Message: err.Error(),
			Kind:    kind,
			Context: context,
		},
	}
}
