package commands

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/pd-buddy/pdbuddy-go/pkg/log"
)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.plog")

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()

	return path
}

// sampleSession returns the events of a short get_cfg exchange.
func sampleSession() []log.Event {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC)
	took := 12 * time.Millisecond
	return []log.Event{
		{
			Timestamp: ts,
			SessionID: "abc12345-6789-0123-4567-890abcdef012",
			Direction: log.DirectionOut,
			Layer:     log.LayerService,
			Category:  log.CategoryState,
			StateChange: &log.StateChangeEvent{
				OldState: "CONNECTED",
				NewState: "BUSY",
				Reason:   "get_cfg",
			},
		},
		{
			Timestamp: ts.Add(time.Millisecond),
			SessionID: "abc12345-6789-0123-4567-890abcdef012",
			Direction: log.DirectionOut,
			Layer:     log.LayerTransport,
			Category:  log.CategoryMessage,
			Port:      "/dev/ttyACM0",
			Line:      &log.LineEvent{Text: "get_cfg", Size: 9},
		},
		{
			Timestamp: ts.Add(13 * time.Millisecond),
			SessionID: "abc12345-6789-0123-4567-890abcdef012",
			Direction: log.DirectionIn,
			Layer:     log.LayerTransport,
			Category:  log.CategoryMessage,
			Port:      "/dev/ttyACM0",
			Line: &log.LineEvent{
				Lines:    []string{"status: valid", "flags: (none)", "v: 9.00 V", "i: 3.00 A"},
				Size:     62,
				Duration: &took,
			},
		},
		{
			Timestamp: ts.Add(14 * time.Millisecond),
			SessionID: "abc12345-6789-0123-4567-890abcdef012",
			Direction: log.DirectionIn,
			Layer:     log.LayerWire,
			Category:  log.CategoryMessage,
			Command: &log.CommandEvent{
				Name:    "get_cfg",
				Result:  "ok",
				Payload: map[string]any{"v_mv": 9000},
			},
		},
		{
			Timestamp: ts.Add(2 * time.Second),
			SessionID: "fff00000-0000-0000-0000-000000000000",
			Direction: log.DirectionIn,
			Layer:     log.LayerTransport,
			Category:  log.CategoryError,
			Port:      "/dev/ttyACM1",
			Error: &log.ErrorEventData{
				Layer:   log.LayerTransport,
				Message: "transport read: timeout",
				Kind:    "timeout",
				Context: "read",
			},
		},
	}
}
