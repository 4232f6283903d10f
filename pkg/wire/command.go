package wire

import (
	"errors"
	"strconv"
	"strings"

	"github.com/pd-buddy/pdbuddy-go/pkg/model"
)

// Command identifies a shell command.
type Command uint8

const (
	CmdIdentify Command = iota
	CmdGetConfig
	CmdGetTmpConfig
	CmdClearFlags
	CmdToggleFlag
	CmdSetVoltage
	CmdSetVoltageRange
	CmdSetCurrent
	CmdSetPower
	CmdWrite
	CmdErase
	CmdLoad
	CmdOutput
	CmdGetSourceCap
	CmdHelp
	CmdLicense
)

var commandNames = []string{
	"identify",
	"get_cfg",
	"get_tmpcfg",
	"clear_flags",
	"toggle",
	"set_v",
	"set_vrange",
	"set_i",
	"set_p",
	"write",
	"erase",
	"load",
	"output",
	"get_source_cap",
	"help",
	"license",
}

// String returns the command keyword. CmdToggleFlag has no keyword of its
// own; its request line names the flag.
func (c Command) String() string {
	if int(c) < len(commandNames) {
		return commandNames[c]
	}
	return "unknown"
}

// ErrUnknownFlag is returned when asked to toggle a flag with no command.
var ErrUnknownFlag = errors.New("no toggle command for flag")

// Request is one encoded command.
type Request struct {
	Command Command

	// Args are the encoded arguments, in order.
	Args []string

	// Flag is set for CmdToggleFlag.
	Flag model.Flags
}

// Keyword returns the first word of the request line.
func (r Request) Keyword() string {
	if r.Command == CmdToggleFlag {
		cmd, _ := model.ToggleCommand(r.Flag)
		return cmd
	}
	return r.Command.String()
}

// Line returns the exact text sent to the device, without line ending.
func (r Request) Line() string {
	if len(r.Args) == 0 {
		return r.Keyword()
	}
	return r.Keyword() + " " + strings.Join(r.Args, " ")
}

// String implements fmt.Stringer.
func (r Request) String() string { return r.Line() }

// NewRequest builds a request with integer arguments.
func NewRequest(cmd Command, args ...int) Request {
	req := Request{Command: cmd}
	for _, a := range args {
		req.Args = append(req.Args, strconv.Itoa(a))
	}
	return req
}

// GetConfigAt builds "get_cfg <index>".
func GetConfigAt(index int) Request { return NewRequest(CmdGetConfig, index) }

// SetOutput builds "output enable" or "output disable".
func SetOutput(enable bool) Request {
	if enable {
		return Request{Command: CmdOutput, Args: []string{"enable"}}
	}
	return Request{Command: CmdOutput, Args: []string{"disable"}}
}

// ToggleFlag builds the toggle command for a single known flag.
func ToggleFlag(f model.Flags) (Request, error) {
	if _, ok := model.ToggleCommand(f); !ok {
		return Request{}, ErrUnknownFlag
	}
	return Request{Command: CmdToggleFlag, Flag: f}, nil
}

// EncodeSetTmpConfig returns the ordered requests that stage cfg into the
// device's temporary buffer: clear_flags, one toggle per set flag in bit
// order, set_v, set_vrange when a range is present, then set_i or set_p.
// The status field is not encoded; the device decides it.
//
// cfg is expected to have passed model.Validate. Identical configurations
// always produce identical requests.
func EncodeSetTmpConfig(cfg model.Config) ([]Request, error) {
	if cfg.Flags.Unknown() != 0 {
		return nil, ErrUnknownFlag
	}

	reqs := []Request{NewRequest(CmdClearFlags)}
	cfg.Flags.Each(func(f model.Flags) {
		reqs = append(reqs, Request{Command: CmdToggleFlag, Flag: f})
	})

	reqs = append(reqs, NewRequest(CmdSetVoltage, cfg.VoltageMV))
	if cfg.HasRange() {
		reqs = append(reqs, NewRequest(CmdSetVoltageRange, cfg.MinVoltageMV, cfg.MaxVoltageMV))
	}
	if cfg.CurrentMode == model.CurrentModePower {
		reqs = append(reqs, NewRequest(CmdSetPower, cfg.Current))
	} else {
		reqs = append(reqs, NewRequest(CmdSetCurrent, cfg.Current))
	}
	return reqs, nil
}

// Lines returns the request lines of reqs.
func Lines(reqs []Request) []string {
	out := make([]string, len(reqs))
	for i, r := range reqs {
		out[i] = r.Line()
	}
	return out
}
