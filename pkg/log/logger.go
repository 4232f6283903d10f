package log

// Logger receives protocol capture events from the transport, wire and
// service layers. Log is called on the exchange path, so implementations
// must be safe for concurrent use and must not block.
type Logger interface {
	Log(event Event)
}

// NoopLogger drops every event. The zero value is ready to use.
type NoopLogger struct{}

func (NoopLogger) Log(Event) {}

// MultiLogger fans each event out to several loggers in order, typically a
// FileLogger plus a SlogAdapter.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger skips nil entries and flattens nested MultiLoggers.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	m := &MultiLogger{}
	for _, l := range loggers {
		switch l := l.(type) {
		case nil:
		case *MultiLogger:
			m.loggers = append(m.loggers, l.loggers...)
		default:
			m.loggers = append(m.loggers, l)
		}
	}
	return m
}

func (m *MultiLogger) Log(event Event) {
	for _, l := range m.loggers {
		l.Log(event)
	}
}

// Len reports how many loggers receive events.
func (m *MultiLogger) Len() int { return len(m.loggers) }

var (
	_ Logger = NoopLogger{}
	_ Logger = (*MultiLogger)(nil)
)
