package commands

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/pd-buddy/pdbuddy-go/pkg/log"
)

// ErrOutputRequired is returned when a command needs an output file and
// none was given.
var ErrOutputRequired = errors.New("output file (-o) required")

// Formats lists the export formats.
var Formats = []string{"jsonl", "csv", "sqlite"}

// exporter receives the selected events one at a time.
type exporter interface {
	write(event log.Event) error
	close() error
}

// RunExport writes the selected events of path in format to output. jsonl
// and csv go to stdout when output is empty; sqlite needs a file. A
// truncated capture exports its complete events and still reports the
// truncation.
func RunExport(path, format, output string, sel Selection) error {
	f, err := sel.Filter()
	if err != nil {
		return err
	}
	exp, err := openExporter(format, output)
	if err != nil {
		return err
	}
	if err := scan(path, f, exp.write); err != nil {
		exp.close()
		return err
	}
	return exp.close()
}

func openExporter(format, output string) (exporter, error) {
	if format == "sqlite" {
		if output == "" {
			return nil, ErrOutputRequired
		}
		return openSQLite(output)
	}

	var newExp func(io.Writer) (exporter, error)
	switch format {
	case "jsonl":
		newExp = func(w io.Writer) (exporter, error) { return &jsonlExporter{enc: json.NewEncoder(w)}, nil }
	case "csv":
		newExp = newCSVExporter
	default:
		return nil, fmt.Errorf("unknown format: %s (supported: %s)", format, strings.Join(Formats, ", "))
	}

	if output == "" {
		return newExp(os.Stdout)
	}
	file, err := os.Create(output)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	exp, err := newExp(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	return closingExporter{exp, file}, nil
}

// closingExporter closes the output file after the wrapped exporter.
type closingExporter struct {
	exporter
	file *os.File
}

func (c closingExporter) close() error {
	return errors.Join(c.exporter.close(), c.file.Close())
}

type jsonlExporter struct{ enc *json.Encoder }

func (e *jsonlExporter) write(event log.Event) error {
	if err := e.enc.Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return nil
}

func (e *jsonlExporter) close() error { return nil }

// row is the flat form of an event shared by the CSV and SQLite exports.
type row struct {
	Timestamp  string
	SessionID  string
	Port       string
	Direction  string
	Layer      string
	Category   string
	Type       string
	Command    string
	Result     string
	Text       string
	DurationUS int64
	Error      string
}

var columns = []string{"timestamp", "session_id", "port", "direction", "layer", "category", "type", "command", "result", "text", "duration_us", "error"}

func flatten(event log.Event) row {
	r := row{
		Timestamp: event.Timestamp.UTC().Format(timestampLayout),
		SessionID: event.SessionID,
		Port:      event.Port,
		Direction: event.Direction.String(),
		Layer:     event.Layer.String(),
		Category:  event.Category.String(),
		Type:      kindOf(event),
	}

	switch {
	case event.Line != nil:
		r.Text = event.Line.Text
		if r.Text == "" {
			r.Text = strings.Join(event.Line.Lines, "\n")
		}
		if event.Line.Duration != nil {
			r.DurationUS = event.Line.Duration.Microseconds()
		}
	case event.Command != nil:
		r.Command = strings.TrimSpace(event.Command.Name + " " + strings.Join(event.Command.Args, " "))
		r.Result = event.Command.Result
	case event.StateChange != nil:
		r.Text = event.StateChange.OldState + " -> " + event.StateChange.NewState
		r.Result = event.StateChange.Reason
	case event.Error != nil:
		r.Error = event.Error.Message
		r.Result = event.Error.Kind
		r.Command = event.Error.Context
	}
	return r
}

// values returns the row in column order; a zero duration is nil.
func (r row) values() []any {
	var duration any
	if r.DurationUS != 0 {
		duration = r.DurationUS
	}
	return []any{r.Timestamp, r.SessionID, r.Port, r.Direction, r.Layer, r.Category, r.Type, r.Command, r.Result, r.Text, duration, r.Error}
}

type csvExporter struct{ w *csv.Writer }

func newCSVExporter(w io.Writer) (exporter, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	return &csvExporter{w: cw}, nil
}

func (e *csvExporter) write(event log.Event) error {
	vals := flatten(event).values()
	record := make([]string, len(vals))
	for i, v := range vals {
		switch v := v.(type) {
		case string:
			record[i] = v
		case int64:
			record[i] = strconv.FormatInt(v, 10)
		}
	}
	if err := e.w.Write(record); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	return nil
}

func (e *csvExporter) close() error {
	e.w.Flush()
	return e.w.Error()
}

const createEventsSQL = `CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT NOT NULL,
	session_id TEXT,
	port TEXT,
	direction TEXT,
	layer TEXT,
	category TEXT,
	type TEXT,
	command TEXT,
	result TEXT,
	text TEXT,
	duration_us INTEGER,
	error TEXT
)`

// sqliteExporter appends events to an "events" table inside one
// transaction, committed on close.
type sqliteExporter struct {
	db   *sql.DB
	tx   *sql.Tx
	stmt *sql.Stmt
	err  error
}

func openSQLite(output string) (exporter, error) {
	db, err := sql.Open("sqlite", output)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	fail := func(msg string, err error) (exporter, error) {
		db.Close()
		return nil, fmt.Errorf("%s: %w", msg, err)
	}

	if _, err := db.Exec(createEventsSQL); err != nil {
		return fail("could not create events table", err)
	}
	tx, err := db.Begin()
	if err != nil {
		return fail("could not begin transaction", err)
	}
	insert := "INSERT INTO events(" + strings.Join(columns, ", ") + ") VALUES(?" + strings.Repeat(", ?", len(columns)-1) + ")"
	stmt, err := tx.Prepare(insert)
	if err != nil {
		tx.Rollback()
		return fail("could not prepare insert", err)
	}
	return &sqliteExporter{db: db, tx: tx, stmt: stmt}, nil
}

func (e *sqliteExporter) write(event log.Event) error {
	if _, err := e.stmt.Exec(flatten(event).values()...); err != nil {
		e.err = fmt.Errorf("failed to insert event: %w", err)
		return e.err
	}
	return nil
}

// close commits unless an insert failed. Rows written before a read error
// are kept.
func (e *sqliteExporter) close() error {
	defer e.db.Close()
	e.stmt.Close()
	if e.err != nil {
		e.tx.Rollback()
		return e.err
	}
	return e.tx.Commit()
}
