package wire

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pd-buddy/pdbuddy-go/pkg/model"
	"github.com/pd-buddy/pdbuddy-go/pkg/pdo"
)

// Device messages recognized in replies.
const (
	msgNoConfiguration = "No configuration"
	msgInvalidIndex    = "Invalid index"
	msgNoSourceCaps    = "No Source_Capabilities"
)

// replyReader walks reply lines in order.
type replyReader struct {
	cmd   string
	lines []string
	pos   int
}

func newReplyReader(req Request, lines []string) *replyReader {
	return &replyReader{cmd: req.Keyword(), lines: lines}
}

func (r *replyReader) done() bool { return r.pos >= len(r.lines) }

// failAt builds a ParseError for the line at index i.
func (r *replyReader) failAt(i int, expected string) error {
	e := &ParseError{Command: r.cmd, LineNo: i + 1, Expected: expected}
	if i < len(r.lines) {
		e.Line = r.lines[i]
	}
	return e
}

// fail builds a ParseError for the current line.
func (r *replyReader) fail(expected string) error { return r.failAt(r.pos, expected) }

// field consumes the current line if it reads "<label>: <value>".
func (r *replyReader) field(label string) (string, bool) {
	if r.done() {
		return "", false
	}
	v, ok := strings.CutPrefix(r.lines[r.pos], label+": ")
	if !ok {
		return "", false
	}
	r.pos++
	return v, true
}

// indented consumes the current line if it is indented and reads
// "<label>: <value>".
func (r *replyReader) indented(label string) (string, bool) {
	if r.done() || !isIndented(r.lines[r.pos]) {
		return "", false
	}
	v, ok := strings.CutPrefix(strings.TrimLeft(r.lines[r.pos], " \t"), label+": ")
	if !ok {
		return "", false
	}
	r.pos++
	return v, true
}

// quantity consumes a required "<label>: <decimal> <unit>" line.
func (r *replyReader) quantity(label, base string, indent bool) (int, error) {
	expected := label + ": <decimal> " + base
	if indent {
		expected = "indented " + expected
	}
	at := r.pos
	var v string
	var ok bool
	if indent {
		v, ok = r.indented(label)
	} else {
		v, ok = r.field(label)
	}
	if !ok {
		return 0, r.fail(expected)
	}
	q, err := model.ParseQuantity(v, base)
	if err != nil {
		return 0, r.failAt(at, expected)
	}
	return q, nil
}

func isIndented(line string) bool {
	return strings.HasPrefix(line, "\t") || strings.HasPrefix(line, " ")
}

// checkUnknown reports a "<cmd> ?" reply.
func checkUnknown(req Request, lines []string) error {
	if len(lines) > 0 && lines[0] == req.Keyword()+" ?" {
		return &CommandError{Command: req.Keyword()}
	}
	return nil
}

// DecodeAck decodes the reply of a command that prints nothing on success
// (clear_flags, toggles, set_*, erase, output enable|disable).
func DecodeAck(req Request, lines []string) error {
	if err := checkUnknown(req, lines); err != nil {
		return err
	}
	if len(lines) > 0 {
		return newReplyReader(req, lines).fail("empty reply")
	}
	return nil
}

// DecodeIdentify decodes the identify reply. Identify only blinks the LED,
// so any reply other than an unknown command counts as success.
func DecodeIdentify(req Request, lines []string) error {
	return checkUnknown(req, lines)
}

// DecodeWrite decodes the write reply. Any output means the device refused
// the commit.
func DecodeWrite(req Request, lines []string) error {
	if err := checkUnknown(req, lines); err != nil {
		return err
	}
	if len(lines) > 0 {
		return &CommitError{Reason: strings.Join(lines, "; ")}
	}
	return nil
}

// DecodeLoad decodes the load reply.
func DecodeLoad(req Request, lines []string) error {
	if err := checkUnknown(req, lines); err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	if strings.HasPrefix(lines[0], msgNoConfiguration) {
		return ErrNoConfiguration
	}
	return newReplyReader(req, lines).fail("empty reply or " + msgNoConfiguration)
}

// DecodeConfig decodes a get_cfg or get_tmpcfg reply.
//
// "No configuration" and "status: empty" both decode to an uninitialized
// Config. "Invalid index" and "No configuration" are recognized on any line,
// and lines before "status:" are skipped; from "status:" on the fields must
// follow in shell order. Unknown flag tokens are skipped. The result has
// passed model.ValidateDecoded.
func DecodeConfig(req Request, lines []string) (model.Config, error) {
	if err := checkUnknown(req, lines); err != nil {
		return model.Config{}, err
	}
	r := newReplyReader(req, lines)

	start := -1
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, msgInvalidIndex):
			return model.Config{}, ErrInvalidIndex
		case strings.HasPrefix(line, msgNoConfiguration):
			return model.Config{}, nil
		case strings.HasPrefix(line, "status: ") && start < 0:
			start = i
		}
	}
	if start > 0 {
		r.pos = start
	}

	var cfg model.Config

	v, ok := r.field("status")
	if !ok {
		return model.Config{}, r.fail("status: <empty|valid|invalid>")
	}
	status, ok := model.ParseStatus(v)
	if !ok {
		return model.Config{}, r.failAt(r.pos-1, "status: <empty|valid|invalid>")
	}
	if status == model.StatusUninitialized {
		return model.Config{}, nil
	}
	cfg.Status = status

	v, ok = r.field("flags")
	if !ok {
		return model.Config{}, r.fail("flags: <(none)|flag...>")
	}
	for _, tok := range strings.Fields(v) {
		if tok == "(none)" {
			break
		}
		if f, known := model.ParseFlagToken(tok); known {
			cfg.Flags |= f
		}
	}

	var err error
	if cfg.VoltageMV, err = r.quantity("v", "V", false); err != nil {
		return model.Config{}, err
	}

	if vmin, ok := r.field("vmin"); ok {
		if cfg.MinVoltageMV, err = model.ParseQuantity(vmin, "V"); err != nil {
			return model.Config{}, r.failAt(r.pos-1, "vmin: <decimal> V")
		}
		if cfg.MaxVoltageMV, err = r.quantity("vmax", "V", false); err != nil {
			return model.Config{}, err
		}
	}

	switch {
	case !r.done() && strings.HasPrefix(r.lines[r.pos], "p: "):
		cfg.CurrentMode = model.CurrentModePower
		cfg.Current, err = r.quantity("p", "W", false)
	default:
		cfg.CurrentMode = model.CurrentModeCurrent
		cfg.Current, err = r.quantity("i", "A", false)
	}
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Expected = "i: <decimal> A or p: <decimal> W"
		}
		return model.Config{}, err
	}

	if !r.done() {
		return model.Config{}, r.fail("end of reply")
	}
	if err := model.ValidateDecoded(cfg); err != nil {
		return model.Config{}, fmt.Errorf("%s: %w", r.cmd, err)
	}
	return cfg, nil
}

// DecodeOutput decodes the reply of the bare output query.
func DecodeOutput(req Request, lines []string) (bool, error) {
	if err := checkUnknown(req, lines); err != nil {
		return false, err
	}
	r := newReplyReader(req, lines)
	if len(lines) != 1 {
		if len(lines) == 0 {
			return false, r.fail("enabled or disabled")
		}
		return false, r.failAt(1, "end of reply")
	}
	switch lines[0] {
	case "enabled":
		return true, nil
	case "disabled":
		return false, nil
	default:
		return false, r.fail("enabled or disabled")
	}
}

// DecodeText returns the reply lines of help and license unchanged.
func DecodeText(req Request, lines []string) ([]string, error) {
	if err := checkUnknown(req, lines); err != nil {
		return nil, err
	}
	out := make([]string, len(lines))
	copy(out, lines)
	return out, nil
}

// DecodeOffers decodes a get_source_cap reply. The list is all or nothing:
// any line that fits no grammar fails the whole decode.
func DecodeOffers(req Request, lines []string) ([]pdo.Offer, error) {
	if err := checkUnknown(req, lines); err != nil {
		return nil, err
	}
	if len(lines) == 1 && lines[0] == msgNoSourceCaps {
		return []pdo.Offer{}, nil
	}

	r := newReplyReader(req, lines)
	offers := []pdo.Offer{}
	for {
		o, err := r.offer(len(offers) + 1)
		if err != nil {
			return nil, err
		}
		offers = append(offers, o)
		if r.done() {
			return offers, nil
		}
	}
}

// offer decodes one "PDO <n>: <kind>" block.
func (r *replyReader) offer(index int) (pdo.Offer, error) {
	expected := "PDO " + strconv.Itoa(index) + ": <fixed|battery|variable|pps>"
	if r.done() {
		return pdo.Offer{}, r.fail(expected)
	}

	rest, ok := strings.CutPrefix(r.lines[r.pos], "PDO ")
	if !ok {
		return pdo.Offer{}, r.fail(expected)
	}
	num, kindText, ok := strings.Cut(rest, ": ")
	if !ok {
		return pdo.Offer{}, r.fail(expected)
	}
	n, err := strconv.Atoi(num)
	if err != nil || n != index {
		return pdo.Offer{}, r.fail(expected)
	}
	kind, ok := pdo.ParseKind(kindText)
	if !ok {
		return pdo.Offer{}, r.fail(expected)
	}
	r.pos++

	o := pdo.Offer{Index: index, Kind: kind}
	switch kind {
	case pdo.KindFixed:
		if err := r.fixedAttributes(&o); err != nil {
			return pdo.Offer{}, err
		}
		if o.VoltageMV, err = r.quantity("v", "V", true); err != nil {
			return pdo.Offer{}, err
		}
		if o.CurrentMA, err = r.quantity("i", "A", true); err != nil {
			return pdo.Offer{}, err
		}
	case pdo.KindBattery:
		if o.MinVoltageMV, err = r.quantity("vmin", "V", true); err != nil {
			return pdo.Offer{}, err
		}
		if o.MaxVoltageMV, err = r.quantity("vmax", "V", true); err != nil {
			return pdo.Offer{}, err
		}
		if o.PowerMW, err = r.quantity("p", "W", true); err != nil {
			return pdo.Offer{}, err
		}
	default:
		if o.MinVoltageMV, err = r.quantity("vmin", "V", true); err != nil {
			return pdo.Offer{}, err
		}
		if o.MaxVoltageMV, err = r.quantity("vmax", "V", true); err != nil {
			return pdo.Offer{}, err
		}
		if o.CurrentMA, err = r.quantity("i", "A", true); err != nil {
			return pdo.Offer{}, err
		}
	}
	return o, nil
}

// fixedAttributes consumes the optional flag and peak_i lines that precede
// the voltage of a fixed offer.
func (r *replyReader) fixedAttributes(o *pdo.Offer) error {
	const expected = "indented <flag>: <0|1>, peak_i: <n> or v: <decimal> V"
	for !r.done() && isIndented(r.lines[r.pos]) {
		label, value, ok := strings.Cut(strings.TrimLeft(r.lines[r.pos], " \t"), ": ")
		if !ok {
			return r.fail(expected)
		}
		if label == "v" {
			return nil
		}
		if label == "peak_i" {
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return r.fail(expected)
			}
			o.PeakCurrent = n
			r.pos++
			continue
		}
		f, known := pdo.ParseFixedFlag(label)
		if !known {
			return r.fail(expected)
		}
		switch value {
		case "1":
			o.Flags |= f
		case "0":
		default:
			return r.fail(expected)
		}
		r.pos++
	}
	return nil
}
