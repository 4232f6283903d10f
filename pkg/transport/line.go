package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pd-buddy/pdbuddy-go/pkg/log"
)

// Defaults for Config.
const (
	DefaultPrompt       = "PDBS) "
	DefaultLineEnding   = "\r\n"
	DefaultTimeout      = time.Second
	DefaultPollInterval = 50 * time.Millisecond

	// DefaultMaxReplySize is the default maximum reply size (64 KB).
	DefaultMaxReplySize = 65536
)

// syncByte is Ctrl-D, which makes the shell drop a partially typed line.
const syncByte = "\x04"

// Config configures a LineTransport.
type Config struct {
	// Name identifies the port in protocol logs (e.g. /dev/ttyACM0).
	Name string

	// Prompt terminates every reply (default: "PDBS) ").
	Prompt string

	// LineEnding is appended to every command (default: "\r\n").
	LineEnding string

	// Timeout bounds a whole exchange (default: 1s).
	Timeout time.Duration

	// PollInterval is the per-read timeout slice (default: 50ms).
	PollInterval time.Duration

	// MaxReplySize bounds the bytes read for a single reply (default: 64KB).
	MaxReplySize int

	// KeepEcho keeps the echoed command as the first reply line.
	KeepEcho bool
}

func (c *Config) applyDefaults() {
	if c.Prompt == "" {
		c.Prompt = DefaultPrompt
	}
	if c.LineEnding == "" {
		c.LineEnding = DefaultLineEnding
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.MaxReplySize <= 0 {
		c.MaxReplySize = DefaultMaxReplySize
	}
}

// LineTransport exchanges command lines with the shell over a Port.
// It is safe for concurrent use; exchanges are serialized.
type LineTransport struct {
	port   Port
	config Config
	mu     sync.Mutex
	closed atomic.Bool

	// stale is set when an exchange gave up before its prompt. The shell
	// may still print that reply, so the next exchange resyncs first.
	stale bool

	// Logging support (optional)
	logger    log.Logger
	sessionID string
}

// New creates a LineTransport that owns port.
func New(port Port, config Config) *LineTransport {
	config.applyDefaults()
	return &LineTransport{port: port, config: config}
}

// Config returns the effective configuration.
func (t *LineTransport) Config() Config { return t.config }

// SetLogger configures protocol capture for this transport.
// Pass nil to disable logging.
func (t *LineTransport) SetLogger(logger log.Logger, sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.logger = logger
	t.sessionID = sessionID
}

// Exchange writes line followed by the line ending and returns the reply
// lines preceding the prompt, with trailing whitespace removed. The echoed
// command is dropped unless KeepEcho is set. An empty reply is an empty,
// non-nil slice.
//
// The wait is bounded by Config.Timeout and by ctx, whichever ends first.
func (t *LineTransport) Exchange(ctx context.Context, line string) ([]string, error) {
	if strings.ContainsAny(line, "\r\n") {
		return nil, ErrInvalidLine
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stale {
		if err := t.resync(ctx); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	if err := t.write(line + t.config.LineEnding); err != nil {
		t.logError("write", line, err)
		return nil, err
	}
	t.logOut(line, len(line)+len(t.config.LineEnding))

	raw, err := t.readReply(ctx, "read", start, t.atPrompt)
	if err != nil {
		t.markStale(err)
		t.logError("read", line, err)
		return nil, err
	}

	lines := t.splitReply(raw, line)
	t.logIn(lines, len(raw), time.Since(start))
	return lines, nil
}

// Sync writes Ctrl-D to cancel any partially entered command and discards
// output up to the blank prompt Ctrl-D produces. The shell handles input in
// order, so replies still owed to earlier commands are discarded with it.
func (t *LineTransport) Sync(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.resync(ctx)
}

// resync is Sync with mu held. Output that keeps arriving within one poll
// interval after the blank prompt is dropped too. On failure the transport
// stays stale.
func (t *LineTransport) resync(ctx context.Context) error {
	start := time.Now()
	if err := t.write(syncByte); err != nil {
		t.logError("sync", "^D", err)
		return err
	}
	t.logOut("^D", len(syncByte))

	raw, err := t.readReply(ctx, "sync", start, t.atBlankPrompt)
	if err != nil {
		t.markStale(err)
		t.logError("sync", "^D", err)
		return err
	}
	extra, err := t.drain(ctx)
	if err != nil {
		t.markStale(err)
		t.logError("sync", "^D", err)
		return err
	}
	t.stale = false
	t.logIn(nil, len(raw)+extra, time.Since(start))
	return nil
}

// markStale records that a reply may still be in flight. A closed port
// needs no resync.
func (t *LineTransport) markStale(err error) {
	var te *TransportError
	if errors.As(err, &te) && te.Kind == KindClosed {
		return
	}
	t.stale = true
}

// drain reads and discards input until one poll interval passes without
// any, returning the number of bytes dropped.
func (t *LineTransport) drain(ctx context.Context) (int, error) {
	if err := t.port.SetReadTimeout(t.config.PollInterval); err != nil {
		return 0, t.ioError("sync", err)
	}
	deadline := time.Now().Add(t.config.Timeout)
	buf := make([]byte, 256)
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, &TransportError{Kind: KindTimeout, Op: "sync", Err: err}
		}
		if time.Now().After(deadline) {
			return total, &TransportError{Kind: KindTimeout, Op: "sync", Err: ErrTimeout}
		}
		n, err := t.port.Read(buf)
		total += n
		if err != nil {
			return total, t.ioError("sync", err)
		}
		if n == 0 {
			return total, nil
		}
	}
}

func (t *LineTransport) atPrompt(acc []byte) bool {
	return bytes.HasSuffix(acc, []byte(t.config.Prompt))
}

// atBlankPrompt reports whether acc ends with a prompt that has nothing but
// whitespace, or the shell's rendering of Ctrl-D, between it and the
// previous prompt.
func (t *LineTransport) atBlankPrompt(acc []byte) bool {
	prompt := []byte(t.config.Prompt)
	if !bytes.HasSuffix(acc, prompt) {
		return false
	}
	body := acc[:len(acc)-len(prompt)]
	if i := bytes.LastIndex(body, prompt); i >= 0 {
		body = body[i+len(prompt):]
	}
	body = bytes.ReplaceAll(body, []byte("^D"), nil)
	body = bytes.ReplaceAll(body, []byte(syncByte), nil)
	return len(bytes.TrimSpace(body)) == 0
}

// Close closes the port. Exchanges in progress fail with KindClosed.
// It is safe to call Close multiple times.
func (t *LineTransport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	return t.port.Close()
}

func (t *LineTransport) write(s string) error {
	if t.closed.Load() {
		return &TransportError{Kind: KindClosed, Op: "write", Err: ErrClosed}
	}
	if _, err := t.port.Write([]byte(s)); err != nil {
		return t.ioError("write", err)
	}
	return nil
}

// readReply reads until done reports the accumulated input complete.
func (t *LineTransport) readReply(ctx context.Context, op string, start time.Time, done func([]byte) bool) ([]byte, error) {
	deadline := start.Add(t.config.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	var acc []byte
	buf := make([]byte, 256)
	slice := time.Duration(0)

	for {
		if err := ctx.Err(); err != nil {
			return nil, &TransportError{Kind: KindTimeout, Op: op, Err: err}
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, &TransportError{Kind: KindTimeout, Op: op, Err: ErrTimeout}
		}

		next := min(t.config.PollInterval, remaining)
		if next != slice {
			if err := t.port.SetReadTimeout(next); err != nil {
				return nil, t.ioError(op, err)
			}
			slice = next
		}

		n, err := t.port.Read(buf)
		if n > 0 {
			acc = append(acc, buf[:n]...)
			if len(acc) > t.config.MaxReplySize {
				return nil, &TransportError{Kind: KindIOFailure, Op: op,
					Err: fmt.Errorf("%w: more than %d bytes", ErrReplyTooLarge, t.config.MaxReplySize)}
			}
			if done(acc) {
				return acc, nil
			}
		}
		if err != nil {
			return nil, t.ioError(op, err)
		}
	}
}

// ioError classifies a port error.
func (t *LineTransport) ioError(op string, err error) error {
	if t.closed.Load() || errors.Is(err, io.EOF) {
		return &TransportError{Kind: KindClosed, Op: op, Err: err}
	}
	return &TransportError{Kind: KindIOFailure, Op: op, Err: err}
}

// splitReply removes the prompt and the echo and splits the rest into lines.
func (t *LineTransport) splitReply(raw []byte, sent string) []string {
	text := string(raw[:len(raw)-len(t.config.Prompt)])
	parts := strings.Split(text, "\n")

	// The prompt follows the last line ending, leaving an empty tail.
	if len(parts) > 0 && strings.TrimRight(parts[len(parts)-1], " \t\r") == "" {
		parts = parts[:len(parts)-1]
	}

	lines := make([]string, 0, len(parts))
	for _, p := range parts {
		lines = append(lines, strings.TrimRight(p, " \t\r"))
	}

	if !t.config.KeepEcho && len(lines) > 0 && lines[0] == strings.TrimRight(sent, " \t") {
		lines = lines[1:]
	}
	return lines
}

func (t *LineTransport) logOut(text string, size int) {
	if t.logger == nil {
		return
	}
	ev := log.NewLineOut(t.sessionID, text, size)
	ev.Port = t.config.Name
	t.logger.Log(ev)
}

func (t *LineTransport) logIn(lines []string, size int, took time.Duration) {
	if t.logger == nil {
		return
	}
	ev := log.NewLinesIn(t.sessionID, lines, size, took)
	ev.Port = t.config.Name
	t.logger.Log(ev)
}

func (t *LineTransport) logError(op, line string, err error) {
	if t.logger == nil {
		return
	}
	kind := "error"
	var te *TransportError
	if errors.As(err, &te) {
		kind = te.Kind.String()
	}
	ev := log.NewError(t.sessionID, log.LayerTransport, kind, op+" "+line, err)
	ev.Port = t.config.Name
	t.logger.Log(ev)
}
