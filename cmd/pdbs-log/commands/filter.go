package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/pd-buddy/pdbuddy-go/pkg/log"
)

// scan calls fn for every event in path that f matches. A capture cut off
// mid-event ends the scan with an error wrapping log.ErrTruncated, after fn
// has seen every complete event.
func scan(path string, f log.Filter, fn func(log.Event) error) error {
	reader, err := log.NewFilteredReader(path, f)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(event); err != nil {
			return err
		}
	}
}

// RunFilter copies the selected events of path into a new capture file and
// returns how many were written. The complete events of a truncated capture
// are kept.
func RunFilter(path, output string, sel Selection) (int, error) {
	if output == "" {
		return 0, ErrOutputRequired
	}
	f, err := sel.Filter()
	if err != nil {
		return 0, err
	}

	logger, err := log.NewFileLogger(output)
	if err != nil {
		return 0, fmt.Errorf("failed to create output logger: %w", err)
	}
	defer logger.Close()

	err = scan(path, f, func(event log.Event) error {
		logger.Log(event)
		return nil
	})
	if err != nil && !errors.Is(err, log.ErrTruncated) {
		return logger.Count(), err
	}
	if err := logger.Err(); err != nil {
		return logger.Count(), fmt.Errorf("failed to write %s: %w", output, err)
	}
	return logger.Count(), nil
}
