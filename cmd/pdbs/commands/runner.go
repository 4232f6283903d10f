// Package commands implements the pdbs subcommands against a service.Sink.
package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pd-buddy/pdbuddy-go/pkg/model"
	"github.com/pd-buddy/pdbuddy-go/pkg/pdo"
	"github.com/pd-buddy/pdbuddy-go/pkg/profile"
	"github.com/pd-buddy/pdbuddy-go/pkg/service"
)

// Command errors.
var (
	// ErrUsage is returned for malformed arguments.
	ErrUsage = errors.New("usage error")

	// ErrRuleViolations is returned by check when any power rule fails.
	ErrRuleViolations = errors.New("power rule violations found")
)

// Runner executes subcommands.
type Runner struct {
	Sink    service.Sink
	Out     io.Writer
	Profile *profile.Profile
	Styles  Styles
}

// NewRunner creates a runner writing to out.
func NewRunner(sink service.Sink, p *profile.Profile, out io.Writer) *Runner {
	if p == nil {
		p = profile.Default()
	}
	return &Runner{
		Sink:    sink,
		Out:     out,
		Profile: p,
		Styles:  NewStyles(out),
	}
}

func usage(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUsage, fmt.Sprintf(format, args...))
}

// Get prints the flash configuration, or the one at an index.
func (r *Runner) Get(ctx context.Context, args []string) error {
	var (
		cfg model.Config
		err error
	)
	switch len(args) {
	case 0:
		cfg, err = r.Sink.GetConfig(ctx)
	case 1:
		index, convErr := strconv.Atoi(args[0])
		if convErr != nil {
			return usage("get [index]: index must be an integer")
		}
		cfg, err = r.Sink.GetConfigAt(ctx, index)
	default:
		return usage("get [index]")
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(r.Out, cfg.String())
	return nil
}

// TmpCfg prints the configuration buffer.
func (r *Runner) TmpCfg(ctx context.Context, _ []string) error {
	cfg, err := r.Sink.GetTmpConfig(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.Out, cfg.String())
	return nil
}

// Set builds a configuration from flags or a preset, stages it and
// optionally commits it.
//
//	set -v 15V -i 3A [-vmin 12V -vmax 20V] [-giveback] [-write]
//	set -v 20V -p 60W
//	set -preset laptop [-write]
func (r *Runner) Set(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("set", flag.ContinueOnError)
	fs.SetOutput(r.Out)
	v := fs.String("v", "", "Voltage (e.g. 15V, 9000mV, 9000)")
	vmin := fs.String("vmin", "", "Minimum voltage of the range")
	vmax := fs.String("vmax", "", "Maximum voltage of the range")
	i := fs.String("i", "", "Current (e.g. 3A, 2250mA)")
	p := fs.String("p", "", "Power (e.g. 60W)")
	giveback := fs.Bool("giveback", false, "Set the GiveBack flag")
	preset := fs.String("preset", "", "Use a named preset from the profile")
	write := fs.Bool("write", false, "Write the configuration to flash")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	cfg, err := r.buildConfig(*preset, *v, *vmin, *vmax, *i, *p, *giveback)
	if err != nil {
		return err
	}

	if err := r.Sink.StageConfig(ctx, cfg); err != nil {
		return err
	}
	if *write {
		if err := r.Sink.Commit(ctx); err != nil {
			return err
		}
	}

	staged, err := r.Sink.GetTmpConfig(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.Out, staged.String())
	return nil
}

func (r *Runner) buildConfig(preset, v, vmin, vmax, i, p string, giveback bool) (model.Config, error) {
	if preset != "" {
		pr, ok := r.Profile.Preset(preset)
		if !ok {
			return model.Config{}, usage("unknown preset %q (have: %s)", preset, strings.Join(r.Profile.PresetNames(), ", "))
		}
		return pr.Config(), nil
	}

	if v == "" {
		return model.Config{}, usage("set: -v or -preset is required")
	}
	if (i == "") == (p == "") {
		return model.Config{}, usage("set: exactly one of -i and -p is required")
	}
	if (vmin == "") != (vmax == "") {
		return model.Config{}, usage("set: -vmin and -vmax go together")
	}

	mv, err := parseArg(v, "V")
	if err != nil {
		return model.Config{}, err
	}
	cfg := model.NewConfig(mv, 0)

	if vmin != "" {
		lo, err := parseArg(vmin, "V")
		if err != nil {
			return model.Config{}, err
		}
		hi, err := parseArg(vmax, "V")
		if err != nil {
			return model.Config{}, err
		}
		cfg = cfg.WithVoltageRange(lo, hi)
	}

	if i != "" {
		ma, err := parseArg(i, "A")
		if err != nil {
			return model.Config{}, err
		}
		cfg = cfg.WithCurrent(ma)
	} else {
		mw, err := parseArg(p, "W")
		if err != nil {
			return model.Config{}, err
		}
		cfg = cfg.WithPower(mw)
	}

	if giveback {
		cfg = cfg.WithFlags(model.FlagGiveBack)
	}
	return cfg, nil
}

// Write commits the configuration buffer to flash.
func (r *Runner) Write(ctx context.Context, _ []string) error {
	return r.Sink.Commit(ctx)
}

// Erase erases the flash configuration.
func (r *Runner) Erase(ctx context.Context, _ []string) error {
	return r.Sink.Erase(ctx)
}

// Load copies the flash configuration into the buffer.
func (r *Runner) Load(ctx context.Context, _ []string) error {
	return r.Sink.Load(ctx)
}

// Identify blinks the LED.
func (r *Runner) Identify(ctx context.Context, _ []string) error {
	return r.Sink.Identify(ctx)
}

// Output queries or sets the output switch: output [on|off].
func (r *Runner) Output(ctx context.Context, args []string) error {
	if len(args) == 0 {
		on, err := r.Sink.Output(ctx)
		if err != nil {
			return err
		}
		if on {
			fmt.Fprintln(r.Out, r.Styles.OK.Render("enabled"))
		} else {
			fmt.Fprintln(r.Out, r.Styles.Dim.Render("disabled"))
		}
		return nil
	}

	switch strings.ToLower(args[0]) {
	case "on", "enable", "1", "true":
		return r.Sink.SetOutput(ctx, true)
	case "off", "disable", "0", "false":
		return r.Sink.SetOutput(ctx, false)
	default:
		return usage("output [on|off]")
	}
}

// Pdos prints the source capabilities, marking the offer the flash
// configuration would select.
func (r *Runner) Pdos(ctx context.Context, _ []string) error {
	offers, err := r.Sink.ListOffers(ctx)
	if err != nil {
		return err
	}
	if len(offers) == 0 {
		fmt.Fprintln(r.Out, r.Styles.Dim.Render("No source capabilities (no PD source attached)"))
		return nil
	}

	cfg, err := r.Sink.GetConfig(ctx)
	if err != nil {
		return err
	}
	selected, haveSelected := pdo.Select(cfg, offers)

	fmt.Fprintln(r.Out, r.Styles.Header.Render("Source capabilities"))
	for _, o := range offers {
		mark := " "
		if haveSelected && o.Index == selected.Index {
			mark = r.Styles.Mark.Render("*")
		}
		fmt.Fprintf(r.Out, "%s PDO %d: %s", mark, o.Index, o.Summary())
		if o.Kind == pdo.KindFixed && o.Flags != 0 {
			fmt.Fprintf(r.Out, " %s", r.Styles.Dim.Render("["+strings.Join(o.Flags.Tokens(), " ")+"]"))
		}
		fmt.Fprintln(r.Out)
	}
	if !cfg.IsEmpty() && !haveSelected {
		fmt.Fprintln(r.Out, r.Styles.Bad.Render("No offer satisfies the flash configuration"))
	}
	return nil
}

// Check runs the power rules over the source capabilities, or over an
// offer file given with -file (no device needed).
func (r *Runner) Check(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(r.Out)
	file := fs.String("file", "", "Check offers from a YAML file instead of the device")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	var (
		offers []pdo.Offer
		err    error
	)
	if *file != "" {
		offers, err = pdo.LoadOffers(*file)
	} else {
		offers, err = r.Sink.ListOffers(ctx)
	}
	if err != nil {
		return err
	}

	registry := pdo.NewDefaultRegistry(r.Profile.Caps)
	for _, id := range r.Profile.DisabledRules {
		registry.Disable(id)
	}
	violations := registry.RunRules(offers)

	fmt.Fprintf(r.Out, "%s %d offers, %d rules\n", r.Styles.Label.Render("Checked"), len(offers), len(registry.EnabledRules()))
	if len(violations) == 0 {
		fmt.Fprintln(r.Out, r.Styles.OK.Render("PASS"))
		return nil
	}
	for _, v := range violations {
		fmt.Fprintln(r.Out, r.Styles.Bad.Render("FAIL")+" "+v.Error())
	}
	return fmt.Errorf("%w: %d", ErrRuleViolations, len(violations))
}

// Help prints the shell's command list.
func (r *Runner) Help(ctx context.Context, _ []string) error {
	lines, err := r.Sink.Help(ctx)
	if err != nil {
		return err
	}
	r.printLines(lines)
	return nil
}

// License prints the firmware license.
func (r *Runner) License(ctx context.Context, _ []string) error {
	lines, err := r.Sink.License(ctx)
	if err != nil {
		return err
	}
	r.printLines(lines)
	return nil
}

func (r *Runner) printLines(lines []string) {
	for _, l := range lines {
		fmt.Fprintln(r.Out, l)
	}
}

// Func is the signature shared by all subcommands.
type Func func(r *Runner, ctx context.Context, args []string) error

// Table maps subcommand names to their implementation. verify, list,
// shell and monitor are handled by the caller since they need more than a
// Runner.
var Table = map[string]Func{
	"get":      (*Runner).Get,
	"tmpcfg":   (*Runner).TmpCfg,
	"set":      (*Runner).Set,
	"write":    (*Runner).Write,
	"erase":    (*Runner).Erase,
	"load":     (*Runner).Load,
	"output":   (*Runner).Output,
	"pdos":     (*Runner).Pdos,
	"check":    (*Runner).Check,
	"identify": (*Runner).Identify,
	"help":     (*Runner).Help,
	"license":  (*Runner).License,
}
