package commands

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/pd-buddy/pdbuddy-go/pkg/log"
)

// Stats aggregates a capture file.
type Stats struct {
	TotalEvents int
	Layers      map[log.Layer]int
	Categories  map[log.Category]int
	Directions  map[log.Direction]int
	Sessions    map[string]*SessionStats

	// Commands counts decoded wire commands by keyword, Results by outcome.
	Commands map[string]int
	Results  map[string]int

	// ErrorKinds counts error events by kind ("timeout", "closed", ...).
	ErrorKinds map[string]int

	Start, End time.Time

	// Truncated is set when the capture ends inside an event.
	Truncated bool
}

// SessionStats describes one session in the capture.
type SessionStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	Port      string

	// Exchanges counts replies with a measured write-to-prompt time.
	Exchanges int
	Slowest   time.Duration
	total     time.Duration
}

// Mean returns the average write-to-prompt time.
func (s *SessionStats) Mean() time.Duration {
	if s.Exchanges == 0 {
		return 0
	}
	return s.total / time.Duration(s.Exchanges)
}

func newStats() *Stats {
	return &Stats{
		Layers:     map[log.Layer]int{},
		Categories: map[log.Category]int{},
		Directions: map[log.Direction]int{},
		Sessions:   map[string]*SessionStats{},
		Commands:   map[string]int{},
		Results:    map[string]int{},
		ErrorKinds: map[string]int{},
	}
}

// Errors returns the number of error events.
func (s *Stats) Errors() int {
	n := 0
	for _, c := range s.ErrorKinds {
		n += c
	}
	return n
}

func (s *Stats) add(event log.Event) {
	ts := event.Timestamp
	s.TotalEvents++
	s.Layers[event.Layer]++
	s.Categories[event.Category]++
	s.Directions[event.Direction]++
	if s.Start.IsZero() || ts.Before(s.Start) {
		s.Start = ts
	}
	if ts.After(s.End) {
		s.End = ts
	}

	sess := s.Sessions[event.SessionID]
	if sess == nil {
		sess = &SessionStats{FirstSeen: ts, LastSeen: ts}
		s.Sessions[event.SessionID] = sess
	}
	sess.Events++
	if ts.After(sess.LastSeen) {
		sess.LastSeen = ts
	}
	if sess.Port == "" {
		sess.Port = event.Port
	}

	switch {
	case event.Line != nil && event.Line.Duration != nil:
		d := *event.Line.Duration
		sess.Exchanges++
		sess.total += d
		sess.Slowest = max(sess.Slowest, d)
	case event.Command != nil:
		s.Commands[event.Command.Name]++
		s.Results[event.Command.Result]++
	case event.Error != nil:
		kind := event.Error.Kind
		if kind == "" {
			kind = "other"
		}
		s.ErrorKinds[kind]++
	}
}

// CollectStats reads every event of path. A truncated capture is counted up
// to its last complete event and flagged rather than failing.
func CollectStats(path string) (*Stats, error) {
	stats := newStats()
	err := scan(path, log.Filter{}, func(event log.Event) error {
		stats.add(event)
		return nil
	})
	if errors.Is(err, log.ErrTruncated) {
		stats.Truncated = true
		err = nil
	}
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// RunStats prints the statistics of path to w.
func RunStats(path string, w io.Writer) error {
	stats, err := CollectStats(path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

type count struct {
	name string
	n    int
}

// section prints a titled list of non-zero counts.
func section(w io.Writer, title string, counts []count) {
	var rows []string
	for _, c := range counts {
		if c.n > 0 {
			rows = append(rows, fmt.Sprintf("  %-16s %d", c.name+":", c.n))
		}
	}
	if len(rows) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n%s\n\n", title, strings.Join(rows, "\n"))
}

func byName(m map[string]int) []count {
	counts := make([]count, 0, len(m))
	for name, n := range m {
		counts = append(counts, count{name, n})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].name < counts[j].name })
	return counts
}

func printStats(w io.Writer, s *Stats) {
	fmt.Fprint(w, "=== PD Buddy Protocol Log Statistics ===\n\n")
	if s.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n", s.Start.Format(time.RFC3339), s.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n\n", s.End.Sub(s.Start).Round(time.Second))
	}
	fmt.Fprintf(w, "Total Events: %d\n", s.TotalEvents)
	if s.Truncated {
		fmt.Fprintln(w, "Capture is truncated after the last event.")
	}
	fmt.Fprintln(w)

	section(w, "Events by Layer", []count{
		{log.LayerTransport.String(), s.Layers[log.LayerTransport]},
		{log.LayerWire.String(), s.Layers[log.LayerWire]},
		{log.LayerService.String(), s.Layers[log.LayerService]},
	})
	section(w, "Events by Category", []count{
		{log.CategoryMessage.String(), s.Categories[log.CategoryMessage]},
		{log.CategoryState.String(), s.Categories[log.CategoryState]},
		{log.CategoryError.String(), s.Categories[log.CategoryError]},
	})
	section(w, "Events by Direction", []count{
		{log.DirectionIn.String(), s.Directions[log.DirectionIn]},
		{log.DirectionOut.String(), s.Directions[log.DirectionOut]},
	})
	section(w, "Commands", byName(s.Commands))
	section(w, "Results", byName(s.Results))

	ids := make([]string, 0, len(s.Sessions))
	for id := range s.Sessions {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		return s.Sessions[a].FirstSeen.Compare(s.Sessions[b].FirstSeen)
	})

	fmt.Fprintf(w, "Sessions: %d\n", len(ids))
	for _, id := range ids {
		ss := s.Sessions[id]
		short := id
		if len(short) > 8 {
			short = short[:8]
		}
		fmt.Fprintf(w, "  [%s] %d events, duration %s\n", short, ss.Events, ss.LastSeen.Sub(ss.FirstSeen).Round(time.Millisecond))
		if ss.Port != "" {
			fmt.Fprintf(w, "           Port: %s\n", ss.Port)
		}
		if ss.Exchanges > 0 {
			fmt.Fprintf(w, "           Exchanges: %d (mean %s, slowest %s)\n", ss.Exchanges, shortDuration(ss.Mean()), shortDuration(ss.Slowest))
		}
	}

	if n := s.Errors(); n > 0 {
		fmt.Fprintf(w, "\nErrors: %d\n", n)
		section(w, "Errors by Kind", byName(s.ErrorKinds))
	}
}
