// Package commands implements the pdbs-log CLI commands.
package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pd-buddy/pdbuddy-go/pkg/log"
)

const timestampLayout = "2006-01-02T15:04:05.000000Z"

// RunView prints the selected events of path to w, one block per event.
// A truncated capture prints its complete events followed by a notice.
func RunView(path string, sel Selection, w io.Writer) error {
	f, err := sel.Filter()
	if err != nil {
		return err
	}
	err = scan(path, f, func(event log.Event) error {
		printEvent(w, event)
		return nil
	})
	if errors.Is(err, log.ErrTruncated) {
		fmt.Fprintf(w, "-- %v\n", err)
		return nil
	}
	return err
}

// kindOf names the payload an event carries.
func kindOf(event log.Event) string {
	switch {
	case event.Line != nil:
		return "line"
	case event.Command != nil:
		return "command"
	case event.StateChange != nil:
		return "state"
	case event.Error != nil:
		return "error"
	}
	return "unknown"
}

// printEvent writes a header line followed by indented details:
//
//	2026-01-28T10:15:32.124456Z abc12345 OUT transport/line /dev/ttyACM0
//	    > get_cfg
//	    9 bytes
func printEvent(w io.Writer, event log.Event) {
	session := event.SessionID
	if len(session) > 8 {
		session = session[:8]
	}
	header := []string{
		event.Timestamp.UTC().Format(timestampLayout),
		session,
		fmt.Sprintf("%-3s", event.Direction),
		strings.ToLower(event.Layer.String()) + "/" + kindOf(event),
	}
	if event.Port != "" {
		header = append(header, event.Port)
	}
	fmt.Fprintln(w, strings.Join(header, " "))

	detail := func(format string, args ...any) {
		fmt.Fprintf(w, "    "+format+"\n", args...)
	}

	switch {
	case event.Line != nil:
		l := event.Line
		if l.Text != "" {
			detail("> %s", l.Text)
		}
		for _, text := range l.Lines {
			detail("< %s", text)
		}
		if l.Truncated {
			detail("< ...")
		}
		if l.Duration != nil {
			detail("%d bytes in %s", l.Size, shortDuration(*l.Duration))
		} else {
			detail("%d bytes", l.Size)
		}

	case event.Command != nil:
		c := event.Command
		detail("%s => %s", strings.TrimSpace(c.Name+" "+strings.Join(c.Args, " ")), orDash(c.Result))
		if c.Payload != nil {
			if b, err := json.Marshal(c.Payload); err == nil {
				detail("%s", b)
			}
		}

	case event.StateChange != nil:
		sc := event.StateChange
		detail("%s -> %s (%s)", orDash(sc.OldState), sc.NewState, orDash(sc.Reason))

	case event.Error != nil:
		e := event.Error
		detail("%s error during %s: %s", orDash(e.Kind), orDash(e.Context), e.Message)
	}
	fmt.Fprintln(w)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// shortDuration prints d with three decimals in the largest unit below it.
func shortDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%.3fus", float64(d)/float64(time.Microsecond))
	case d < time.Second:
		return fmt.Sprintf("%.3fms", float64(d)/float64(time.Millisecond))
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}
