// Package mock provides a simulated PD Buddy Sink for testing.
//
// Sink implements the byte-level side of the shell (echo, replies, prompt)
// and a model of the firmware's configuration buffer, flash and output
// switch. It satisfies transport.Port, so sessions can run against it
// unchanged. Faults (silence, unknown commands, canned replies, device
// disconnect) are injected through setters.
package mock

import (
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pd-buddy/pdbuddy-go/pkg/model"
	"github.com/pd-buddy/pdbuddy-go/pkg/pdo"
)

// Prompt is printed after every reply.
const Prompt = "PDBS) "

// Sink is a simulated PD Buddy Sink.
type Sink struct {
	mu sync.Mutex

	// Device state.
	tmp        model.Config
	flash      []model.Config
	output     bool
	offers     []pdo.Offer
	identified int
	limits     model.Limits

	// Fault injection.
	silent  bool
	unknown map[string]bool
	replies map[string][]string
	delays  map[string]time.Duration

	// busy is set while a delayed reply is outstanding; input written
	// meanwhile waits in queued, as it would in the firmware's UART buffer.
	busy   bool
	queued []byte

	// Port state.
	input       []byte
	out         []byte
	readTimeout time.Duration
	closed      bool
	notify      chan struct{}

	// received holds every complete command line, in order.
	received []string
}

// NewSink creates a sink with an empty buffer, empty flash, output enabled
// and no source attached.
func NewSink() *Sink {
	return &Sink{
		output:  true,
		limits:  model.DefaultLimits(),
		unknown: make(map[string]bool),
		replies: make(map[string][]string),
		delays:  make(map[string]time.Duration),
		notify:  make(chan struct{}, 1),
	}
}

// Read implements transport.Port. It waits up to the read timeout for
// output and returns (0, nil) when none arrives.
func (s *Sink) Read(p []byte) (int, error) {
	s.mu.Lock()
	timeout := s.readTimeout
	s.mu.Unlock()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	for {
		s.mu.Lock()
		if len(s.out) > 0 {
			n := copy(p, s.out)
			s.out = s.out[n:]
			s.mu.Unlock()
			return n, nil
		}
		if s.closed {
			s.mu.Unlock()
			return 0, io.EOF
		}
		s.mu.Unlock()

		select {
		case <-s.notify:
		case <-expired:
			return 0, nil
		}
	}
}

// Write implements transport.Port. Complete lines are executed as shell
// commands; Ctrl-D discards the partial line.
func (s *Sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrPortClosed
	}
	if s.busy {
		s.queued = append(s.queued, p...)
		return len(p), nil
	}
	s.feed(p)
	return len(p), nil
}

// feed processes input bytes until a command goes busy; the rest is
// queued. Caller holds mu.
func (s *Sink) feed(p []byte) {
	for i, b := range p {
		switch b {
		case 0x04:
			s.input = s.input[:0]
			if !s.silent {
				s.emit("\r\n" + Prompt)
			}
		case '\r':
		case '\n':
			line := string(s.input)
			s.input = s.input[:0]
			s.execute(line)
			if s.busy {
				s.queued = append(s.queued, p[i+1:]...)
				return
			}
		default:
			s.input = append(s.input, b)
		}
	}
}

// Close implements transport.Port.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.signal()
	return nil
}

// SetReadTimeout implements transport.Port.
func (s *Sink) SetReadTimeout(t time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readTimeout = t
	return nil
}

// Disconnect simulates the device going away: pending reads return io.EOF.
func (s *Sink) Disconnect() { _ = s.Close() }

// SetSilent makes the sink swallow commands without echo or prompt.
func (s *Sink) SetSilent(silent bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.silent = silent
}

// SetUnknown makes the sink answer "<keyword> ?" for a command keyword,
// like firmware that lacks it.
func (s *Sink) SetUnknown(keyword string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unknown[keyword] = true
}

// SetReply overrides the reply lines for a command keyword. The command
// has no effect on the device state.
func (s *Sink) SetReply(keyword string, lines []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[keyword] = lines
}

// SetDelay holds back the reply to the next command with this keyword by d.
// The echo is immediate. Input written while the reply is outstanding is
// processed after it.
func (s *Sink) SetDelay(keyword string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays[keyword] = d
}

// ClearReply removes an override set by SetReply.
func (s *Sink) ClearReply(keyword string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.replies, keyword)
}

// SetOffers sets the source capabilities the sink reports.
func (s *Sink) SetOffers(offers []pdo.Offer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offers = append([]pdo.Offer(nil), offers...)
}

// SetFlash replaces the flash contents; the last entry is the active one.
func (s *Sink) SetFlash(cfgs ...model.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flash = append([]model.Config(nil), cfgs...)
}

// SetTmpConfig replaces the configuration buffer.
func (s *Sink) SetTmpConfig(cfg model.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tmp = cfg
}

// TmpConfig returns the configuration buffer.
func (s *Sink) TmpConfig() model.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tmp
}

// ActiveConfig returns the configuration in flash, if any.
func (s *Sink) ActiveConfig() (model.Config, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.flash) == 0 {
		return model.Config{}, false
	}
	return s.flash[len(s.flash)-1], true
}

// Output returns the output switch state.
func (s *Sink) Output() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.output
}

// Identified returns how many times identify ran.
func (s *Sink) Identified() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identified
}

// ReceivedCommands returns every command line received, in order.
func (s *Sink) ReceivedCommands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.received...)
}

// ResetReceived clears the received command log.
func (s *Sink) ResetReceived() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = nil
}

// emit queues device output. Caller holds mu.
func (s *Sink) emit(text string) {
	s.out = append(s.out, text...)
	s.signal()
}

func (s *Sink) signal() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// execute runs one command line. Caller holds mu.
func (s *Sink) execute(line string) {
	s.received = append(s.received, line)
	if s.silent {
		return
	}

	s.emit(line + "\r\n")
	words := strings.Fields(line)
	lines := s.reply(words)

	if len(words) > 0 {
		if d, ok := s.delays[words[0]]; ok {
			delete(s.delays, words[0])
			s.busy = true
			time.AfterFunc(d, func() { s.finish(lines) })
			return
		}
	}
	s.emitReply(lines)
}

// finish emits a delayed reply and then runs the input queued behind it.
func (s *Sink) finish(lines []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	if s.closed {
		return
	}
	s.emitReply(lines)
	queued := s.queued
	s.queued = nil
	s.feed(queued)
}

// emitReply queues reply lines and the prompt. Caller holds mu.
func (s *Sink) emitReply(lines []string) {
	for _, l := range lines {
		s.emit(l + "\r\n")
	}
	s.emit(Prompt)
}

// reply computes the reply lines of a command. Caller holds mu.
func (s *Sink) reply(words []string) []string {
	if len(words) == 0 {
		return nil
	}
	cmd, args := words[0], words[1:]

	if s.unknown[cmd] {
		return []string{cmd + " ?"}
	}
	if lines, ok := s.replies[cmd]; ok {
		return lines
	}

	switch cmd {
	case "help":
		return helpText
	case "license":
		return licenseText
	case "identify":
		s.identified++
		return nil
	case "erase":
		s.flash = nil
		return nil
	case "write":
		s.tmp.Status = model.StatusValid
		s.flash = append(s.flash, s.tmp)
		return nil
	case "load":
		if len(s.flash) == 0 {
			return []string{"No configuration"}
		}
		s.tmp = s.flash[len(s.flash)-1]
		return nil
	case "get_cfg":
		return s.getCfg(args)
	case "get_tmpcfg":
		if s.tmp.IsEmpty() {
			return []string{"status: empty"}
		}
		return strings.Split(s.tmp.String(), "\n")
	case "clear_flags":
		s.touch()
		s.tmp.Flags = 0
		return nil
	case "toggle_giveback":
		s.touch()
		s.tmp.Flags ^= model.FlagGiveBack
		return nil
	case "set_v":
		return s.setQuantity(args, "Invalid voltage", s.limits.MinVoltageMV, s.limits.MaxVoltageMV, func(v int) {
			// A single voltage replaces any range.
			s.tmp.VoltageMV = v
			s.tmp.MinVoltageMV, s.tmp.MaxVoltageMV = 0, 0
		})
	case "set_vrange":
		return s.setRange(args)
	case "set_i":
		return s.setQuantity(args, "Invalid current", s.limits.MinCurrentMA, s.limits.MaxCurrentMA, func(v int) {
			s.tmp.Current = v
			s.tmp.CurrentMode = model.CurrentModeCurrent
		})
	case "set_p":
		return s.setQuantity(args, "Invalid power", s.limits.MinPowerMW, s.limits.MaxPowerMW, func(v int) {
			s.tmp.Current = v
			s.tmp.CurrentMode = model.CurrentModePower
		})
	case "output":
		return s.outputCmd(args)
	case "get_source_cap":
		if len(s.offers) == 0 {
			return []string{"No Source_Capabilities"}
		}
		var lines []string
		for _, o := range s.offers {
			lines = append(lines, strings.Split(o.String(), "\n")...)
		}
		return lines
	default:
		return []string{cmd + " ?"}
	}
}

// touch marks the buffer valid once it is edited.
func (s *Sink) touch() {
	if s.tmp.IsEmpty() {
		s.tmp.Status = model.StatusValid
	}
}

func (s *Sink) getCfg(args []string) []string {
	cfg := model.Config{}
	if len(args) == 0 {
		if len(s.flash) > 0 {
			cfg = s.flash[len(s.flash)-1]
		}
	} else {
		i, err := strconv.Atoi(args[0])
		if err != nil || i < 0 || i >= len(s.flash) {
			return []string{"Invalid index"}
		}
		cfg = s.flash[i]
	}
	if cfg.IsEmpty() {
		return []string{"No configuration"}
	}
	return strings.Split(cfg.String(), "\n")
}

func (s *Sink) setQuantity(args []string, msg string, lo, hi int, apply func(int)) []string {
	if len(args) != 1 {
		return []string{msg}
	}
	v, err := strconv.Atoi(args[0])
	if err != nil || v < lo || v > hi {
		return []string{msg}
	}
	s.touch()
	apply(v)
	return nil
}

func (s *Sink) setRange(args []string) []string {
	const msg = "Invalid voltage range"
	if len(args) != 2 {
		return []string{msg}
	}
	lo, err1 := strconv.Atoi(args[0])
	hi, err2 := strconv.Atoi(args[1])
	if err1 != nil || err2 != nil || lo > hi || lo < s.limits.MinVoltageMV || hi > s.limits.MaxVoltageMV {
		return []string{msg}
	}
	s.touch()
	s.tmp.MinVoltageMV, s.tmp.MaxVoltageMV = lo, hi
	return nil
}

func (s *Sink) outputCmd(args []string) []string {
	if len(args) == 0 {
		if s.output {
			return []string{"enabled"}
		}
		return []string{"disabled"}
	}
	switch args[0] {
	case "enable":
		s.output = true
	case "disable":
		s.output = false
	default:
		return []string{"Usage: output [enable|disable]"}
	}
	return nil
}

var helpText = []string{
	"PD Buddy Sink Shell",
	"Commands:",
	"  license",
	"  erase",
	"  write",
	"  load",
	"  get_cfg [index]",
	"  get_tmpcfg",
	"  clear_flags",
	"  toggle_giveback",
	"  set_v voltage_in_mV",
	"  set_vrange min_mV max_mV",
	"  set_i current_in_mA",
	"  set_p power_in_mW",
	"  identify",
	"  output [enable|disable]",
	"  get_source_cap",
	"  help",
}

var licenseText = []string{
	"PD Buddy Sink Firmware (simulated)",
	"This program is free software: you can redistribute it and/or modify",
	"it under the terms of the GNU General Public License version 3.",
}
