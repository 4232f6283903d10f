package mock

import "errors"

// Mock package errors.
var (
	// ErrPortClosed is returned by Write after Close.
	ErrPortClosed = errors.New("mock port closed")
)
