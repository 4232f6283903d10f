package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pd-buddy/pdbuddy-go/pkg/log"
	"github.com/pd-buddy/pdbuddy-go/pkg/model"
	"github.com/pd-buddy/pdbuddy-go/pkg/pdo"
	"github.com/pd-buddy/pdbuddy-go/pkg/transport"
	"github.com/pd-buddy/pdbuddy-go/pkg/wire"
)

// SinkSession is a host-side session with one PD Buddy Sink. It owns the
// port exclusively. It is safe for concurrent use; operations are
// serialized.
type SinkSession struct {
	// opMu serializes operations. It is held for a whole operation,
	// including multi-command staging.
	opMu sync.Mutex

	mu    sync.RWMutex
	state SessionState

	id     string
	tr     transport.Exchanger
	config SessionConfig
	rules  *pdo.RuleRegistry
	logger *slog.Logger

	// Protocol logging (optional)
	protocolLogger log.Logger
}

// Open opens the serial port at name and starts a session on it.
func Open(ctx context.Context, name string, config SessionConfig) (*SinkSession, error) {
	port, err := transport.OpenSerial(name, transport.SerialConfig{})
	if err != nil {
		return nil, err
	}
	if config.Transport.Name == "" {
		config.Transport.Name = name
	}
	return NewSinkSession(ctx, port, config)
}

// NewSinkSession starts a session on an open port. The session takes
// ownership of port. When config.Sync is set the shell is synchronized
// first; on failure the port is closed.
func NewSinkSession(ctx context.Context, port transport.Port, config SessionConfig) (*SinkSession, error) {
	id := uuid.NewString()

	tr := transport.New(port, config.Transport)
	if config.ProtocolLogger != nil {
		tr.SetLogger(config.ProtocolLogger, id)
	}

	s := newSession(id, tr, config)
	s.setState(StateConnected, "opened")

	if config.Sync {
		if err := tr.Sync(ctx); err != nil {
			s.debug("sync failed", "error", err)
			_ = s.Close()
			return nil, err
		}
	}
	return s, nil
}

// NewSinkSessionWithExchanger starts a session on an existing exchanger.
// Protocol capture then only covers wire and session events.
func NewSinkSessionWithExchanger(ex transport.Exchanger, config SessionConfig) *SinkSession {
	s := newSession(uuid.NewString(), ex, config)
	s.setState(StateConnected, "opened")
	return s
}

func newSession(id string, ex transport.Exchanger, config SessionConfig) *SinkSession {
	config.applyDefaults()
	return &SinkSession{
		id:             id,
		tr:             ex,
		config:         config,
		rules:          pdo.NewDefaultRegistry(config.Caps),
		logger:         config.Logger,
		protocolLogger: config.ProtocolLogger,
		state:          StateDisconnected,
	}
}

// ID returns the session ID used in protocol logs.
func (s *SinkSession) ID() string { return s.id }

// Config returns the effective session configuration.
func (s *SinkSession) Config() SessionConfig { return s.config }

// Rules returns the registry used by CheckOffers. Rules may be disabled
// on it before checking.
func (s *SinkSession) Rules() *pdo.RuleRegistry { return s.rules }

// State returns the current session state.
func (s *SinkSession) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Close closes the port. It is safe to call Close multiple times.
func (s *SinkSession) Close() error {
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	err := s.tr.Close()
	s.setState(StateDisconnected, "closed")
	return err
}

// GetConfig returns the configuration stored in flash. An empty flash
// yields a Config with StatusUninitialized.
func (s *SinkSession) GetConfig(ctx context.Context) (model.Config, error) {
	return s.getConfig(ctx, wire.NewRequest(wire.CmdGetConfig))
}

// GetConfigAt returns the configuration at a flash index. Out-of-range
// indices fail with wire.ErrInvalidIndex.
func (s *SinkSession) GetConfigAt(ctx context.Context, index int) (model.Config, error) {
	if index < 0 {
		return model.Config{}, wire.ErrInvalidIndex
	}
	return s.getConfig(ctx, wire.GetConfigAt(index))
}

// GetTmpConfig returns the configuration buffer.
func (s *SinkSession) GetTmpConfig(ctx context.Context) (model.Config, error) {
	return s.getConfig(ctx, wire.NewRequest(wire.CmdGetTmpConfig))
}

func (s *SinkSession) getConfig(ctx context.Context, req wire.Request) (model.Config, error) {
	var cfg model.Config
	err := s.run(req.Keyword(), func() error {
		lines, err := s.tr.Exchange(ctx, req.Line())
		if err != nil {
			return err
		}
		cfg, err = wire.DecodeConfig(req, lines)
		s.capture(req, err, configPayload(cfg))
		return err
	})
	return cfg, err
}

// StageConfig validates cfg against the session limits and writes it to
// the configuration buffer. A validation failure returns a
// *model.ValidationError without touching the port.
//
// Staging stops at the first failing command; the buffer then holds a
// partial update.
func (s *SinkSession) StageConfig(ctx context.Context, cfg model.Config) error {
	if err := model.Validate(cfg, s.config.Limits); err != nil {
		s.captureError("validation", "stage_config", err)
		return err
	}
	reqs, err := wire.EncodeSetTmpConfig(cfg)
	if err != nil {
		return err
	}

	return s.run("stage_config", func() error {
		for _, req := range reqs {
			if err := s.ack(ctx, req, wire.DecodeAck); err != nil {
				return err
			}
		}
		return nil
	})
}

// Commit writes the configuration buffer to flash. A device refusal is a
// *wire.CommitError.
func (s *SinkSession) Commit(ctx context.Context) error {
	return s.simple(ctx, wire.NewRequest(wire.CmdWrite), wire.DecodeWrite)
}

// Erase erases the flash configuration storage.
func (s *SinkSession) Erase(ctx context.Context) error {
	return s.simple(ctx, wire.NewRequest(wire.CmdErase), wire.DecodeAck)
}

// Load copies the flash configuration into the buffer. It fails with
// wire.ErrNoConfiguration when flash is empty.
func (s *SinkSession) Load(ctx context.Context) error {
	return s.simple(ctx, wire.NewRequest(wire.CmdLoad), wire.DecodeLoad)
}

// SetOutput enables or disables the power output.
func (s *SinkSession) SetOutput(ctx context.Context, enable bool) error {
	return s.simple(ctx, wire.SetOutput(enable), wire.DecodeAck)
}

// Output returns whether the power output is enabled.
func (s *SinkSession) Output(ctx context.Context) (bool, error) {
	req := wire.NewRequest(wire.CmdOutput)
	var enabled bool
	err := s.run(req.Keyword(), func() error {
		lines, err := s.tr.Exchange(ctx, req.Line())
		if err != nil {
			return err
		}
		enabled, err = wire.DecodeOutput(req, lines)
		s.capture(req, err, enabled)
		return err
	})
	return enabled, err
}

// ListOffers returns the source capabilities of the attached power
// supply, in device order. No source yields an empty list.
func (s *SinkSession) ListOffers(ctx context.Context) ([]pdo.Offer, error) {
	req := wire.NewRequest(wire.CmdGetSourceCap)
	var offers []pdo.Offer
	err := s.run(req.Keyword(), func() error {
		lines, err := s.tr.Exchange(ctx, req.Line())
		if err != nil {
			return err
		}
		offers, err = wire.DecodeOffers(req, lines)
		s.capture(req, err, offersPayload(offers))
		return err
	})
	return offers, err
}

// CheckOffers lists the offers and runs the enabled power rules over them.
// Violations are advisory and returned alongside the offers.
func (s *SinkSession) CheckOffers(ctx context.Context) ([]pdo.Offer, []pdo.Violation, error) {
	offers, err := s.ListOffers(ctx)
	if err != nil {
		return nil, nil, err
	}
	violations := s.rules.RunRules(offers)
	for _, v := range violations {
		s.debug("power rule violation", "rule", v.RuleID, "pdo", v.OfferIndex, "message", v.Message)
	}
	return offers, violations, nil
}

// Identify blinks the LED.
func (s *SinkSession) Identify(ctx context.Context) error {
	return s.simple(ctx, wire.NewRequest(wire.CmdIdentify), wire.DecodeIdentify)
}

// Help returns the shell's command list.
func (s *SinkSession) Help(ctx context.Context) ([]string, error) {
	return s.text(ctx, wire.NewRequest(wire.CmdHelp))
}

// License returns the firmware license text.
func (s *SinkSession) License(ctx context.Context) ([]string, error) {
	return s.text(ctx, wire.NewRequest(wire.CmdLicense))
}

// Exec sends a raw command line and returns the reply lines undecoded.
// It backs the interactive shell.
func (s *SinkSession) Exec(ctx context.Context, line string) ([]string, error) {
	var lines []string
	err := s.run("exec", func() error {
		var err error
		lines, err = s.tr.Exchange(ctx, line)
		return err
	})
	return lines, err
}

func (s *SinkSession) text(ctx context.Context, req wire.Request) ([]string, error) {
	var lines []string
	err := s.run(req.Keyword(), func() error {
		raw, err := s.tr.Exchange(ctx, req.Line())
		if err != nil {
			return err
		}
		lines, err = wire.DecodeText(req, raw)
		s.capture(req, err, nil)
		return err
	})
	return lines, err
}

// simple runs a single command whose reply carries no value.
func (s *SinkSession) simple(ctx context.Context, req wire.Request, decode func(wire.Request, []string) error) error {
	return s.run(req.Keyword(), func() error {
		return s.ack(ctx, req, decode)
	})
}

// ack exchanges req and decodes a value-less reply. Caller holds opMu.
func (s *SinkSession) ack(ctx context.Context, req wire.Request, decode func(wire.Request, []string) error) error {
	lines, err := s.tr.Exchange(ctx, req.Line())
	if err != nil {
		return err
	}
	err = decode(req, lines)
	s.capture(req, err, nil)
	return err
}

// run executes fn as one operation: Connected → Busy → Connected.
// A closed port ends the session.
func (s *SinkSession) run(op string, fn func() error) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if s.State() == StateDisconnected {
		return ErrSessionClosed
	}

	s.setState(StateBusy, op)
	start := time.Now()
	err := fn()

	if errors.Is(err, transport.ErrClosed) {
		s.debug("port closed", "op", op, "error", err)
		_ = s.tr.Close()
		s.setState(StateDisconnected, "port closed")
		return err
	}
	s.finish(op)

	if err != nil {
		s.debug("operation failed", "op", op, "error", err, "took", time.Since(start))
	}
	return err
}

// finish returns a Busy session to Connected. A session closed during
// the operation stays Disconnected.
func (s *SinkSession) finish(op string) {
	s.mu.Lock()
	if s.state != StateBusy {
		s.mu.Unlock()
		return
	}
	s.state = StateConnected
	s.mu.Unlock()
	s.logState(StateBusy, StateConnected, op)
}

func (s *SinkSession) setState(state SessionState, reason string) {
	s.mu.Lock()
	old := s.state
	s.state = state
	s.mu.Unlock()

	if old != state {
		s.logState(old, state, reason)
	}
}

func (s *SinkSession) logState(old, state SessionState, reason string) {
	if s.protocolLogger != nil {
		s.protocolLogger.Log(log.Event{
			Timestamp: time.Now(),
			SessionID: s.id,
			Direction: log.DirectionOut,
			Layer:     log.LayerService,
			Category:  log.CategoryState,
			StateChange: &log.StateChangeEvent{
				OldState: old.String(),
				NewState: state.String(),
				Reason:   reason,
			},
		})
	}
}

// capture records a decoded command in the protocol log.
func (s *SinkSession) capture(req wire.Request, err error, payload any) {
	if s.protocolLogger == nil {
		return
	}
	s.protocolLogger.Log(wire.NewCommandEvent(s.id, req, err, payload))
}

func (s *SinkSession) captureError(kind, op string, err error) {
	s.debug("rejected", "op", op, "error", err)
	if s.protocolLogger == nil {
		return
	}
	s.protocolLogger.Log(log.NewError(s.id, log.LayerService, kind, op, err))
}

func (s *SinkSession) debug(msg string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Debug(msg, append([]any{"session", s.id}, args...)...)
}

func configPayload(cfg model.Config) any {
	if cfg.IsEmpty() {
		return nil
	}
	return map[string]any{
		"status": cfg.Status.String(),
		"flags":  cfg.Flags.String(),
		"v_mv":   cfg.VoltageMV,
		"vmin":   cfg.MinVoltageMV,
		"vmax":   cfg.MaxVoltageMV,
		"mode":   cfg.CurrentMode.String(),
		"value":  cfg.Current,
	}
}

func offersPayload(offers []pdo.Offer) any {
	if len(offers) == 0 {
		return nil
	}
	out := make([]string, len(offers))
	for i, o := range offers {
		out[i] = o.Summary()
	}
	return out
}
