package transport

import (
	"context"
	"io"
	"time"
)

// Port is the byte channel to the device.
// Implemented by go.bug.st/serial ports and by the simulated sink in tests.
type Port interface {
	io.ReadWriteCloser

	// SetReadTimeout bounds the next Read calls. A Read that times out
	// returns (0, nil).
	SetReadTimeout(t time.Duration) error
}

// Exchanger sends one command line and returns the reply lines.
// Implemented by LineTransport.
type Exchanger interface {
	// Exchange writes line and returns the reply lines preceding the prompt.
	Exchange(ctx context.Context, line string) ([]string, error)

	// Sync cancels any partially entered command and waits for the prompt.
	Sync(ctx context.Context) error

	// Close closes the underlying port.
	Close() error
}

// Compile-time interface satisfaction checks.
var _ Exchanger = (*LineTransport)(nil)
