package wire

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pd-buddy/pdbuddy-go/pkg/model"
	"github.com/pd-buddy/pdbuddy-go/pkg/pdo"
)

var getTmp = NewRequest(CmdGetTmpConfig)

func requireParseError(t *testing.T, err error, lineNo int) *ParseError {
	t.Helper()
	var pe *ParseError
	require.True(t, errors.As(err, &pe), "expected *ParseError, got %v", err)
	assert.Equal(t, lineNo, pe.LineNo)
	assert.ErrorIs(t, err, ErrParse)
	return pe
}

func TestDecodeConfig(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  model.Config
	}{
		{
			name:  "valid",
			lines: []string{"status: valid", "flags: (none)", "v: 15.00 V", "i: 3.00 A"},
			want:  model.NewConfig(15000, 3000),
		},
		{
			name:  "invalid with giveback",
			lines: []string{"status: invalid", "flags: GiveBack", "v: 20.00 V", "i: 2.25 A"},
			want:  model.NewConfig(20000, 2250).WithStatus(model.StatusInvalid).WithFlags(model.FlagGiveBack),
		},
		{
			name:  "unknown flags ignored",
			lines: []string{"status: valid", "flags: GiveBack HV_Preferred", "v: 9.00 V", "i: 1.00 A"},
			want:  model.NewConfig(9000, 1000).WithFlags(model.FlagGiveBack),
		},
		{
			name:  "range and power",
			lines: []string{"status: valid", "flags: (none)", "v: 15.00 V", "vmin: 12.00 V", "vmax: 20.00 V", "p: 60.00 W"},
			want:  model.NewConfig(15000, 0).WithVoltageRange(12000, 20000).WithPower(60000),
		},
		{
			name:  "millivolt units",
			lines: []string{"status: valid", "flags: (none)", "v: 9000 mV", "i: 500 mA"},
			want:  model.NewConfig(9000, 500),
		},
		{
			name:  "empty status short-circuits",
			lines: []string{"status: empty"},
			want:  model.Config{},
		},
		{
			name:  "no configuration",
			lines: []string{"No configuration"},
			want:  model.Config{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeConfig(getTmp, tt.lines)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeConfigRoundTrip(t *testing.T) {
	cfgs := []model.Config{
		model.NewConfig(5000, 0),
		model.NewConfig(20000, 5000).WithFlags(model.FlagGiveBack),
		model.NewConfig(12050, 1230).WithVoltageRange(9000, 15000),
		model.NewConfig(9000, 0).WithPower(27000),
	}
	for _, cfg := range cfgs {
		lines := splitLines(cfg.String())
		got, err := DecodeConfig(getTmp, lines)
		require.NoError(t, err)
		assert.Equal(t, cfg, got)
	}
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return append(out, s[start:])
}

func TestDecodeConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		lines  []string
		lineNo int
		line   string
	}{
		{"empty reply", nil, 1, ""},
		{"bad status", []string{"status: great"}, 1, "status: great"},
		{"missing flags", []string{"status: valid", "v: 5.00 V"}, 2, "v: 5.00 V"},
		{"missing current", []string{"status: valid", "flags: (none)", "v: 15.00 V"}, 4, ""},
		{"bad voltage", []string{"status: valid", "flags: (none)", "v: lots", "i: 1.00 A"}, 3, "v: lots"},
		{"vmin without vmax", []string{"status: valid", "flags: (none)", "v: 9.00 V", "vmin: 5.00 V", "i: 1.00 A"}, 5, "i: 1.00 A"},
		{"misplaced field", []string{"status: valid", "v: 9.00 V", "flags: (none)", "i: 1.00 A"}, 2, "v: 9.00 V"},
		{"trailing garbage", []string{"status: valid", "flags: (none)", "v: 9.00 V", "i: 1.00 A", "zap"}, 5, "zap"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeConfig(getTmp, tt.lines)
			pe := requireParseError(t, err, tt.lineNo)
			assert.Equal(t, tt.line, pe.Line)
			assert.Equal(t, "get_tmpcfg", pe.Command)
		})
	}
}

func TestDecodeConfigDeviceErrors(t *testing.T) {
	_, err := DecodeConfig(GetConfigAt(9), []string{"Invalid index"})
	assert.ErrorIs(t, err, ErrInvalidIndex)

	_, err = DecodeConfig(getTmp, []string{"get_tmpcfg ?"})
	var ce *CommandError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "get_tmpcfg", ce.Command)
	assert.ErrorIs(t, err, ErrUnknownCommand)

	_, err = DecodeConfig(getTmp, []string{"status: valid", "flags: (none)", "v: 9.00 V", "vmin: 15.00 V", "vmax: 5.00 V", "i: 1.00 A"})
	assert.ErrorIs(t, err, model.ErrInvalidConfig)
}

func TestDecodeConfigPreamble(t *testing.T) {
	_, err := DecodeConfig(GetConfigAt(3), []string{"Reading flash", "Invalid index"})
	assert.ErrorIs(t, err, ErrInvalidIndex)

	cfg, err := DecodeConfig(GetConfigAt(0), []string{"Reading flash", "No configuration"})
	require.NoError(t, err)
	assert.Equal(t, model.Config{}, cfg)

	cfg, err = DecodeConfig(getTmp, []string{"Reading buffer", "status: valid", "flags: (none)", "v: 9.00 V", "i: 3.00 A"})
	require.NoError(t, err)
	assert.Equal(t, model.NewConfig(9000, 3000), cfg)

	_, err = DecodeConfig(getTmp, []string{"Reading buffer", "v: 9.00 V"})
	pe := requireParseError(t, err, 1)
	assert.Equal(t, "Reading buffer", pe.Line)
}

func TestDecodeAck(t *testing.T) {
	req := NewRequest(CmdSetVoltage, 9000)
	assert.NoError(t, DecodeAck(req, nil))
	assert.NoError(t, DecodeAck(req, []string{}))

	err := DecodeAck(req, []string{"Invalid voltage"})
	pe := requireParseError(t, err, 1)
	assert.Equal(t, "Invalid voltage", pe.Line)

	assert.ErrorIs(t, DecodeAck(NewRequest(CmdSetPower, 1000), []string{"set_p ?"}), ErrUnknownCommand)

	toggle, _ := ToggleFlag(model.FlagGiveBack)
	assert.ErrorIs(t, DecodeAck(toggle, []string{"toggle_giveback ?"}), ErrUnknownCommand)
}

func TestDecodeIdentify(t *testing.T) {
	req := NewRequest(CmdIdentify)
	assert.NoError(t, DecodeIdentify(req, nil))
	assert.NoError(t, DecodeIdentify(req, []string{"blink"}))
	assert.ErrorIs(t, DecodeIdentify(req, []string{"identify ?"}), ErrUnknownCommand)
}

func TestDecodeWriteAndLoad(t *testing.T) {
	assert.NoError(t, DecodeWrite(NewRequest(CmdWrite), nil))

	err := DecodeWrite(NewRequest(CmdWrite), []string{"Flash full"})
	var ce *CommitError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "Flash full", ce.Reason)
	assert.ErrorIs(t, err, ErrCommit)

	assert.NoError(t, DecodeLoad(NewRequest(CmdLoad), nil))
	assert.ErrorIs(t, DecodeLoad(NewRequest(CmdLoad), []string{"No configuration"}), ErrNoConfiguration)
	requireParseError(t, DecodeLoad(NewRequest(CmdLoad), []string{"???"}), 1)
}

func TestDecodeOutput(t *testing.T) {
	req := NewRequest(CmdOutput)

	on, err := DecodeOutput(req, []string{"enabled"})
	require.NoError(t, err)
	assert.True(t, on)

	on, err = DecodeOutput(req, []string{"disabled"})
	require.NoError(t, err)
	assert.False(t, on)

	_, err = DecodeOutput(req, []string{"maybe"})
	requireParseError(t, err, 1)
	_, err = DecodeOutput(req, nil)
	requireParseError(t, err, 1)
	_, err = DecodeOutput(req, []string{"enabled", "extra"})
	requireParseError(t, err, 2)
}

func TestDecodeText(t *testing.T) {
	lines := []string{"PD Buddy Sink Shell", "Copyright"}
	got, err := DecodeText(NewRequest(CmdLicense), lines)
	require.NoError(t, err)
	assert.Equal(t, lines, got)

	got[0] = "changed"
	assert.Equal(t, "PD Buddy Sink Shell", lines[0])
}

func TestDecodeOffers(t *testing.T) {
	lines := []string{
		"PDO 1: fixed",
		"\tdual_role_pwr: 1",
		"\tusb_comms: 1",
		"\tunchunked_ext_msg: 0",
		"\tpeak_i: 1",
		"\tv: 5.00 V",
		"\ti: 3.00 A",
		"PDO 2: fixed",
		"\tv: 9.00 V",
		"\ti: 3.00 A",
		"PDO 3: variable",
		"\tvmin: 5.00 V",
		"\tvmax: 15.00 V",
		"\ti: 2.00 A",
		"PDO 4: battery",
		"\tvmin: 5.00 V",
		"\tvmax: 20.00 V",
		"\tp: 45.00 W",
		"PDO 5: pps",
		"\tvmin: 3.30 V",
		"\tvmax: 11.00 V",
		"\ti: 5.00 A",
	}

	offers, err := DecodeOffers(NewRequest(CmdGetSourceCap), lines)
	require.NoError(t, err)
	require.Len(t, offers, 5)

	assert.Equal(t, pdo.Offer{
		Index: 1, Kind: pdo.KindFixed, VoltageMV: 5000, CurrentMA: 3000,
		PeakCurrent: 1, Flags: pdo.FlagDualRolePower | pdo.FlagUSBComms,
	}, offers[0])
	assert.Equal(t, pdo.Offer{Index: 3, Kind: pdo.KindVariable, MinVoltageMV: 5000, MaxVoltageMV: 15000, CurrentMA: 2000}, offers[2])
	assert.Equal(t, pdo.Offer{Index: 4, Kind: pdo.KindBattery, MinVoltageMV: 5000, MaxVoltageMV: 20000, PowerMW: 45000}, offers[3])
	assert.Equal(t, pdo.KindAugmented, offers[4].Kind)
}

func TestDecodeOffersRoundTrip(t *testing.T) {
	offers := []pdo.Offer{
		{Index: 1, Kind: pdo.KindFixed, VoltageMV: 5000, CurrentMA: 3000, Flags: pdo.FlagUSBComms},
		{Index: 2, Kind: pdo.KindAugmented, MinVoltageMV: 3300, MaxVoltageMV: 21000, CurrentMA: 3000},
	}
	var lines []string
	for _, o := range offers {
		lines = append(lines, splitLines(o.String())...)
	}
	got, err := DecodeOffers(NewRequest(CmdGetSourceCap), lines)
	require.NoError(t, err)
	assert.Equal(t, offers, got)
}

func TestDecodeOffersEmpty(t *testing.T) {
	offers, err := DecodeOffers(NewRequest(CmdGetSourceCap), []string{"No Source_Capabilities"})
	require.NoError(t, err)
	assert.NotNil(t, offers)
	assert.Empty(t, offers)
}

func TestDecodeOffersAllOrNothing(t *testing.T) {
	tests := []struct {
		name   string
		lines  []string
		lineNo int
	}{
		{"empty reply", nil, 1},
		{"unknown kind", []string{"PDO 1: epr", "\tv: 5.00 V"}, 1},
		{"wrong index", []string{"PDO 2: fixed", "\tv: 5.00 V", "\ti: 3.00 A"}, 1},
		{"unknown fixed attribute", []string{"PDO 1: fixed", "\tturbo: 1", "\tv: 5.00 V", "\ti: 3.00 A"}, 2},
		{"bad flag value", []string{"PDO 1: fixed", "\tusb_comms: yes", "\tv: 5.00 V", "\ti: 3.00 A"}, 2},
		{"missing current", []string{"PDO 1: fixed", "\tv: 5.00 V"}, 3},
		{"unindented field", []string{"PDO 1: fixed", "v: 5.00 V", "i: 3.00 A"}, 2},
		{
			"bad second offer",
			[]string{"PDO 1: fixed", "\tv: 5.00 V", "\ti: 3.00 A", "PDO 2: variable", "\tvmin: 5.00 V", "\ti: 3.00 A"},
			6,
		},
		{"stray line", []string{"PDO 1: fixed", "\tv: 5.00 V", "\ti: 3.00 A", "garbage"}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offers, err := DecodeOffers(NewRequest(CmdGetSourceCap), tt.lines)
			assert.Nil(t, offers)
			requireParseError(t, err, tt.lineNo)
		})
	}
}

func TestErrorClass(t *testing.T) {
	assert.Equal(t, "ok", ErrorClass(nil))
	assert.Equal(t, "parse", ErrorClass(&ParseError{}))
	assert.Equal(t, "unknown_command", ErrorClass(&CommandError{}))
	assert.Equal(t, "commit", ErrorClass(&CommitError{}))
	assert.Equal(t, "no_configuration", ErrorClass(ErrNoConfiguration))
	assert.Equal(t, "invalid_index", ErrorClass(ErrInvalidIndex))
	assert.Equal(t, "error", ErrorClass(errors.New("x")))
}
