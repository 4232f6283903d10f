package transport

import (
	"fmt"

	"go.bug.st/serial"
)

// DefaultBaudRate is the baud rate of the sink's shell. The port is USB
// CDC-ACM, so the value is nominal, but some hosts insist on one.
const DefaultBaudRate = 115200

// SerialConfig configures OpenSerial.
type SerialConfig struct {
	// BaudRate defaults to DefaultBaudRate.
	BaudRate int
}

// OpenSerial opens a serial port as a Port, 8N1.
func OpenSerial(name string, config SerialConfig) (Port, error) {
	if config.BaudRate <= 0 {
		config.BaudRate = DefaultBaudRate
	}
	mode := &serial.Mode{
		BaudRate: config.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	// Drop anything the shell printed before we arrived.
	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, fmt.Errorf("reset %s: %w", name, err)
	}
	return port, nil
}

// Compile-time interface satisfaction check.
var _ Port = (serial.Port)(nil)
