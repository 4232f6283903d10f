package commands

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/pd-buddy/pdbuddy-go/pkg/log"
)

// Selection holds the event filter flags shared by view, filter and export.
// Empty fields match everything.
type Selection struct {
	SessionID string
	Port      string
	TimeStart string // RFC3339
	TimeEnd   string // RFC3339
	Layer     string
	Direction string
	Category  string
	Command   string
}

// Bind registers the selection flags on fs.
func (s *Selection) Bind(fs *flag.FlagSet) {
	fs.StringVar(&s.SessionID, "session", "", "Filter by session ID")
	fs.StringVar(&s.Port, "port", "", "Filter by serial port")
	fs.StringVar(&s.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
	fs.StringVar(&s.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
	fs.StringVar(&s.Layer, "layer", "", "Filter by layer (transport, wire, service)")
	fs.StringVar(&s.Direction, "direction", "", "Filter by direction (in, out)")
	fs.StringVar(&s.Category, "category", "", "Filter by category (message, state, error)")
	fs.StringVar(&s.Command, "command", "", "Filter by decoded command keyword (e.g. get_cfg)")
}

// Filter parses the selection into a log.Filter.
func (s Selection) Filter() (log.Filter, error) {
	f := log.Filter{SessionID: s.SessionID, Port: s.Port, Command: s.Command}

	var err error
	if f.TimeStart, err = parseTime("time-start", s.TimeStart); err != nil {
		return log.Filter{}, err
	}
	if f.TimeEnd, err = parseTime("time-end", s.TimeEnd); err != nil {
		return log.Filter{}, err
	}
	if f.Layer, err = parseEnum("layer", s.Layer, log.LayerTransport, log.LayerWire, log.LayerService); err != nil {
		return log.Filter{}, err
	}
	if f.Direction, err = parseEnum("direction", s.Direction, log.DirectionIn, log.DirectionOut); err != nil {
		return log.Filter{}, err
	}
	if f.Category, err = parseEnum("category", s.Category, log.CategoryMessage, log.CategoryState, log.CategoryError); err != nil {
		return log.Filter{}, err
	}
	return f, nil
}

func parseTime(name, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	return &t, nil
}

// parseEnum matches s case-insensitively against the String form of values.
func parseEnum[T fmt.Stringer](name, s string, values ...T) (*T, error) {
	if s == "" {
		return nil, nil
	}
	names := make([]string, len(values))
	for i, v := range values {
		if strings.EqualFold(v.String(), s) {
			return &v, nil
		}
		names[i] = strings.ToLower(v.String())
	}
	return nil, fmt.Errorf("invalid %s: %s (must be one of %s)", name, s, strings.Join(names, ", "))
}
