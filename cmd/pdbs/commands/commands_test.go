package commands

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial/enumerator"

	"github.com/pd-buddy/pdbuddy-go/internal/testharness/mock"
	"github.com/pd-buddy/pdbuddy-go/pkg/discovery"
	"github.com/pd-buddy/pdbuddy-go/pkg/model"
	"github.com/pd-buddy/pdbuddy-go/pkg/pdo"
	"github.com/pd-buddy/pdbuddy-go/pkg/profile"
	"github.com/pd-buddy/pdbuddy-go/pkg/service"
	"github.com/pd-buddy/pdbuddy-go/pkg/transport"
)

func newTestRunner(t *testing.T, p *profile.Profile) (*Runner, *mock.Sink, *bytes.Buffer) {
	t.Helper()
	sink := mock.NewSink()
	cfg := service.DefaultSessionConfig()
	cfg.Transport = transport.Config{
		Name:         "mock",
		Timeout:      150 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
	}
	sess, err := service.NewSinkSession(context.Background(), sink, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })

	var out bytes.Buffer
	return NewRunner(sess, p, &out), sink, &out
}

func TestParseArg(t *testing.T) {
	tests := []struct {
		in   string
		base string
		want int
	}{
		{"9000", "V", 9000},
		{"15V", "V", 15000},
		{"15.5 V", "V", 15500},
		{"9000mV", "V", 9000},
		{"2.25A", "A", 2250},
		{"60W", "W", 60000},
	}
	for _, tt := range tests {
		got, err := parseArg(tt.in, tt.base)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "V", "15X", "1.2345V", "-5V"} {
		_, err := parseArg(bad, "V")
		assert.Error(t, err, bad)
	}
}

func TestSetAndWrite(t *testing.T) {
	r, sink, out := newTestRunner(t, nil)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, []string{"-v", "15V", "-i", "3A", "-write"}))

	active, ok := sink.ActiveConfig()
	require.True(t, ok)
	assert.Equal(t, model.NewConfig(15000, 3000), active)
	assert.Contains(t, out.String(), "v: 15.00 V")
	assert.Contains(t, out.String(), "i: 3.00 A")

	out.Reset()
	require.NoError(t, r.Get(ctx, nil))
	assert.Contains(t, out.String(), "status: valid")
}

func TestSetRangePowerGiveBack(t *testing.T) {
	r, sink, _ := newTestRunner(t, nil)

	require.NoError(t, r.Set(context.Background(),
		[]string{"-v", "20V", "-vmin", "12V", "-vmax", "20V", "-p", "60W", "-giveback"}))

	want := model.NewConfig(20000, 0).
		WithVoltageRange(12000, 20000).
		WithPower(60000).
		WithFlags(model.FlagGiveBack)
	assert.Equal(t, want, sink.TmpConfig())
	_, ok := sink.ActiveConfig()
	assert.False(t, ok, "set without -write must not touch flash")
}

func TestSetUsage(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want error
	}{
		{"no voltage", []string{"-i", "1A"}, ErrUsage},
		{"no current", []string{"-v", "5V"}, ErrUsage},
		{"current and power", []string{"-v", "5V", "-i", "1A", "-p", "5W"}, ErrUsage},
		{"half range", []string{"-v", "5V", "-i", "1A", "-vmin", "5V"}, ErrUsage},
		{"bad quantity", []string{"-v", "5X", "-i", "1A"}, model.ErrBadQuantity},
		{"unknown preset", []string{"-preset", "nope"}, ErrUsage},
		{"out of range", []string{"-v", "25V", "-i", "1A"}, model.ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, sink, _ := newTestRunner(t, nil)
			sink.ResetReceived()

			err := r.Set(context.Background(), tt.args)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, sink.ReceivedCommands())
		})
	}
}

func TestSetPreset(t *testing.T) {
	p := profile.Default()
	p.Presets = map[string]profile.Preset{
		"laptop": {VoltageMV: 20000, CurrentMA: 3250},
	}
	r, sink, _ := newTestRunner(t, p)

	require.NoError(t, r.Set(context.Background(), []string{"-preset", "laptop", "-write"}))
	active, ok := sink.ActiveConfig()
	require.True(t, ok)
	assert.Equal(t, model.NewConfig(20000, 3250), active)
}

func TestGetIndex(t *testing.T) {
	r, sink, out := newTestRunner(t, nil)
	sink.SetFlash(model.NewConfig(5000, 1000), model.NewConfig(9000, 2000))
	ctx := context.Background()

	require.NoError(t, r.Get(ctx, []string{"0"}))
	assert.Contains(t, out.String(), "v: 5.00 V")

	assert.ErrorIs(t, r.Get(ctx, []string{"x"}), ErrUsage)
	assert.ErrorIs(t, r.Get(ctx, []string{"1", "2"}), ErrUsage)
}

func TestOutput(t *testing.T) {
	r, sink, out := newTestRunner(t, nil)
	ctx := context.Background()

	require.NoError(t, r.Output(ctx, []string{"off"}))
	assert.False(t, sink.Output())
	require.NoError(t, r.Output(ctx, nil))
	assert.Contains(t, out.String(), "disabled")

	out.Reset()
	require.NoError(t, r.Output(ctx, []string{"on"}))
	assert.True(t, sink.Output())
	require.NoError(t, r.Output(ctx, nil))
	assert.Contains(t, out.String(), "enabled")

	assert.ErrorIs(t, r.Output(ctx, []string{"maybe"}), ErrUsage)
}

var testOffers = []pdo.Offer{
	{Index: 1, Kind: pdo.KindFixed, VoltageMV: 5000, CurrentMA: 3000},
	{Index: 2, Kind: pdo.KindFixed, VoltageMV: 9000, CurrentMA: 3000},
	{Index: 3, Kind: pdo.KindFixed, VoltageMV: 20000, CurrentMA: 2250},
}

func TestPdosMarksSelectedOffer(t *testing.T) {
	r, sink, out := newTestRunner(t, nil)
	sink.SetOffers(testOffers)
	sink.SetFlash(model.NewConfig(9000, 2000))

	require.NoError(t, r.Pdos(context.Background(), nil))
	text := out.String()
	assert.Contains(t, text, "* PDO 2: fixed 9.00 V 3.00 A")
	assert.Contains(t, text, "  PDO 1: fixed 5.00 V 3.00 A")
	assert.NotContains(t, text, "No offer satisfies")
}

func TestPdosNoMatch(t *testing.T) {
	r, sink, out := newTestRunner(t, nil)
	sink.SetOffers(testOffers)
	sink.SetFlash(model.NewConfig(15000, 1000))

	require.NoError(t, r.Pdos(context.Background(), nil))
	assert.Contains(t, out.String(), "No offer satisfies the flash configuration")
}

func TestPdosNoSource(t *testing.T) {
	r, _, out := newTestRunner(t, nil)

	require.NoError(t, r.Pdos(context.Background(), nil))
	assert.Contains(t, out.String(), "No source capabilities")
}

func TestCheck(t *testing.T) {
	violating := []pdo.Offer{
		{Index: 1, Kind: pdo.KindFixed, VoltageMV: 5000, CurrentMA: 3000},
		{Index: 2, Kind: pdo.KindVariable, MinVoltageMV: 5000, MaxVoltageMV: 15000, CurrentMA: 6000},
	}

	t.Run("pass", func(t *testing.T) {
		r, sink, out := newTestRunner(t, nil)
		sink.SetOffers(testOffers)
		require.NoError(t, r.Check(context.Background(), nil))
		assert.Contains(t, out.String(), "PASS")
	})

	t.Run("fail", func(t *testing.T) {
		r, sink, out := newTestRunner(t, nil)
		sink.SetOffers(violating)
		err := r.Check(context.Background(), nil)
		assert.ErrorIs(t, err, ErrRuleViolations)
		assert.Contains(t, out.String(), "PDO-003")
	})

	t.Run("disabled rule", func(t *testing.T) {
		p := profile.Default()
		p.DisabledRules = []string{"PDO-003"}
		r, sink, out := newTestRunner(t, p)
		sink.SetOffers(violating)
		require.NoError(t, r.Check(context.Background(), nil))
		assert.Contains(t, out.String(), "4 rules")
	})
}

func TestCheckOfferFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "offers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`offers:
  - kind: fixed
    v: 9000
    i: 3000
  - kind: fixed
    v: 5000
    i: 3000
`), 0o644))

	var out bytes.Buffer
	r := NewRunner(nil, nil, &out)
	err := r.Check(context.Background(), []string{"-file", path})
	assert.ErrorIs(t, err, ErrRuleViolations)
	assert.Contains(t, out.String(), "PDO-001")

	assert.ErrorIs(t, r.Check(context.Background(), []string{"-bogus"}), ErrUsage)
}

func TestHelpLicenseIdentify(t *testing.T) {
	r, sink, out := newTestRunner(t, nil)
	ctx := context.Background()

	require.NoError(t, r.Help(ctx, nil))
	assert.Contains(t, out.String(), "get_cfg")

	out.Reset()
	require.NoError(t, r.License(ctx, nil))
	assert.NotEmpty(t, out.String())

	require.NoError(t, r.Identify(ctx, nil))
	assert.Equal(t, 1, sink.Identified())
}

func TestWriteEraseLoad(t *testing.T) {
	r, sink, _ := newTestRunner(t, nil)
	ctx := context.Background()

	sink.SetTmpConfig(model.NewConfig(12000, 1500))
	require.NoError(t, r.Write(ctx, nil))
	active, ok := sink.ActiveConfig()
	require.True(t, ok)
	assert.Equal(t, 12000, active.VoltageMV)

	sink.SetTmpConfig(model.Config{})
	require.NoError(t, r.Load(ctx, nil))
	assert.Equal(t, 12000, sink.TmpConfig().VoltageMV)

	require.NoError(t, r.Erase(ctx, nil))
	_, ok = sink.ActiveConfig()
	assert.False(t, ok)
}

func TestTableCoversRunnerCommands(t *testing.T) {
	for _, name := range []string{"get", "tmpcfg", "set", "write", "erase", "load", "output", "pdos", "check", "identify", "help", "license"} {
		assert.Contains(t, Table, name)
	}
}

// scriptedConfirm answers from a list and records the questions.
type scriptedConfirm struct {
	answers   []bool
	questions []string
}

func (s *scriptedConfirm) confirm(q string) (bool, error) {
	s.questions = append(s.questions, q)
	if len(s.answers) == 0 {
		return true, nil
	}
	a := s.answers[0]
	s.answers = s.answers[1:]
	return a, nil
}

func TestVerify(t *testing.T) {
	r, sink, out := newTestRunner(t, nil)
	c := &scriptedConfirm{}

	require.NoError(t, r.Verify(context.Background(), c.confirm))

	var volts []string
	for _, q := range c.questions {
		volts = append(volts, q[strings.LastIndex(q, " at ")+4:])
	}
	assert.Equal(t, []string{"20.0 V", "0.0 V", "20.0 V", "9.0 V", "0.0 V"}, volts)
	assert.Contains(t, out.String(), "Test successful!")

	_, ok := sink.ActiveConfig()
	assert.False(t, ok, "flash must be erased")
	assert.True(t, sink.Output())
}

func TestVerifyWrongOutput(t *testing.T) {
	r, _, out := newTestRunner(t, nil)
	c := &scriptedConfirm{answers: []bool{true, false}}

	err := r.Verify(context.Background(), c.confirm)
	var verr *VerifyError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, ExitWrongOutput, verr.Code)
	assert.Len(t, c.questions, 2)
	assert.Contains(t, out.String(), "Wrong output")
}

func TestVerifyConfigMismatch(t *testing.T) {
	r, sink, out := newTestRunner(t, nil)
	sink.SetReply("get_cfg", strings.Split(model.NewConfig(12000, 1000).String(), "\n"))
	c := &scriptedConfirm{}

	err := r.Verify(context.Background(), c.confirm)
	var verr *VerifyError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, ExitConfigMismatch, verr.Code)
	assert.Empty(t, c.questions)
	assert.Contains(t, out.String(), "Configuration error")
}

func TestPromptConfirm(t *testing.T) {
	var out bytes.Buffer
	confirm := PromptConfirm(strings.NewReader("\ny\nNo\n"), &out)

	for _, want := range []bool{true, true, false, true} {
		got, err := confirm("Stable")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Contains(t, out.String(), "Stable [Y,n]? ")
}

func TestList(t *testing.T) {
	finder := discovery.NewFinderWithLister(func() ([]*enumerator.PortDetails, error) {
		return []*enumerator.PortDetails{
			{Name: "/dev/ttyACM0", IsUSB: true, VID: "1209", PID: "9DB5", SerialNumber: "ABC", Product: "PD Buddy Sink"},
			{Name: "/dev/ttyUSB0", IsUSB: true, VID: "0403", PID: "6001"},
		}, nil
	})

	var out bytes.Buffer
	require.NoError(t, List(finder, &out))
	assert.Contains(t, out.String(), "/dev/ttyACM0\t1209:9DB5\tABC\tPD Buddy Sink")
	assert.NotContains(t, out.String(), "ttyUSB0")

	empty := discovery.NewFinderWithLister(func() ([]*enumerator.PortDetails, error) { return nil, nil })
	out.Reset()
	require.NoError(t, List(empty, &out))
	assert.Contains(t, out.String(), "No PD Buddy Sink found")
}
