package log

import (
	"context"
	"log/slog"
)

// SlogAdapter mirrors capture events into an slog.Logger at debug level,
// for watching shell traffic on the console while a session runs.
type SlogAdapter struct {
	logger *slog.Logger
}

func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// attrs collects slog attributes, skipping empty strings.
type attrs []slog.Attr

func (a *attrs) str(key, val string) {
	if val != "" {
		*a = append(*a, slog.String(key, val))
	}
}

func (a *attrs) add(as ...slog.Attr) { *a = append(*a, as...) }

func (s *SlogAdapter) Log(event Event) {
	a := attrs{
		slog.String("session_id", event.SessionID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}
	a.str("port", event.Port)

	msg := "protocol"
	switch {
	case event.Line != nil:
		l := event.Line
		msg = "shell line"
		a.str("line", l.Text)
		if len(l.Lines) > 0 {
			msg = "shell reply"
			a.add(slog.Any("reply", l.Lines))
		}
		a.add(slog.Int("size", l.Size))
		if l.Truncated {
			a.add(slog.Bool("truncated", true))
		}
		if l.Duration != nil {
			a.add(slog.Duration("took", *l.Duration))
		}
	case event.Command != nil:
		c := event.Command
		msg = "shell command"
		a.str("command", c.Name)
		if len(c.Args) > 0 {
			a.add(slog.Any("args", c.Args))
		}
		a.str("result", c.Result)
	case event.StateChange != nil:
		sc := event.StateChange
		msg = "session state"
		a.add(slog.String("old_state", sc.OldState), slog.String("new_state", sc.NewState))
		a.str("reason", sc.Reason)
	case event.Error != nil:
		e := event.Error
		msg = "protocol error"
		a.add(slog.String("error_layer", e.Layer.String()), slog.String("error_msg", e.Message))
		a.str("error_kind", e.Kind)
		a.str("error_context", e.Context)
	}

	s.logger.LogAttrs(context.Background(), slog.LevelDebug, msg, a...)
}

var _ Logger = (*SlogAdapter)(nil)
