package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pd-buddy/pdbuddy-go/pkg/model"
)

// Verify exit codes.
const (
	ExitConfigMismatch = 1
	ExitWrongOutput    = 2
)

// VerifyError reports a failed verification step.
type VerifyError struct {
	Code    int
	Message string
}

func (e *VerifyError) Error() string { return e.Message }

// ConfirmFunc asks the operator a yes/no question. It returns false only
// for an explicit no.
type ConfirmFunc func(question string) (bool, error)

// PromptConfirm returns a ConfirmFunc reading answers from in. An empty
// answer counts as yes.
func PromptConfirm(in io.Reader, out io.Writer) ConfirmFunc {
	reader := bufio.NewReader(in)
	return func(question string) (bool, error) {
		fmt.Fprintf(out, "%s [Y,n]? ", question)
		answer, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, err
		}
		answer = strings.ToLower(strings.TrimSpace(answer))
		return !strings.HasPrefix(answer, "n"), nil
	}
}

// Verify runs the bench test for a freshly flashed sink: it writes and
// reads back two configurations, toggles the output and asks the operator
// to confirm the measured voltage after each step. The flash is erased at
// the end.
func (r *Runner) Verify(ctx context.Context, confirm ConfirmFunc) error {
	cfg20 := model.NewConfig(20000, 1000)
	cfg9 := model.NewConfig(9000, 1000)

	if err := r.Sink.SetOutput(ctx, false); err != nil {
		return err
	}

	fmt.Fprintln(r.Out, "Writing 20 V configuration object...")
	if err := r.writeVerify(ctx, cfg20); err != nil {
		return err
	}
	fmt.Fprintln(r.Out, "Done.")

	for _, on := range []bool{true, false, true} {
		if err := r.Sink.SetOutput(ctx, on); err != nil {
			return err
		}
		if err := r.outputVerify(ctx, confirm); err != nil {
			return err
		}
	}

	fmt.Fprintln(r.Out, "Writing 9 V configuration object...")
	if err := r.writeVerify(ctx, cfg9); err != nil {
		return err
	}
	fmt.Fprintln(r.Out, "Done.")
	if err := r.outputVerify(ctx, confirm); err != nil {
		return err
	}

	if err := r.Sink.Erase(ctx); err != nil {
		return err
	}
	// No output is expected despite it being enabled.
	if err := r.Sink.SetOutput(ctx, true); err != nil {
		return err
	}
	if err := r.outputVerify(ctx, confirm); err != nil {
		return err
	}

	fmt.Fprintln(r.Out, r.Styles.OK.Render("Test successful!"))
	return nil
}

func (r *Runner) writeVerify(ctx context.Context, cfg model.Config) error {
	if err := r.Sink.StageConfig(ctx, cfg); err != nil {
		return err
	}
	if err := r.Sink.Commit(ctx); err != nil {
		return err
	}

	actual, err := r.Sink.GetConfig(ctx)
	if err != nil {
		return err
	}
	if actual != cfg {
		fmt.Fprintln(r.Out, r.Styles.Bad.Render("Configuration error; expected config:"))
		fmt.Fprintln(r.Out, cfg.String())
		fmt.Fprintln(r.Out, r.Styles.Bad.Render("actual config:"))
		fmt.Fprintln(r.Out, actual.String())
		return &VerifyError{Code: ExitConfigMismatch, Message: "configuration mismatch"}
	}
	return nil
}

func (r *Runner) outputVerify(ctx context.Context, confirm ConfirmFunc) error {
	cfg, err := r.Sink.GetConfig(ctx)
	if err != nil {
		return err
	}
	on, err := r.Sink.Output(ctx)
	if err != nil {
		return err
	}

	expected := 0
	if on && !cfg.IsEmpty() {
		expected = cfg.VoltageMV
	}

	ok, err := confirm(fmt.Sprintf("Is the Sink's output stable at %.1f V", float64(expected)/1000))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(r.Out, r.Styles.Bad.Render("Wrong output, exiting."))
		return &VerifyError{Code: ExitWrongOutput, Message: "wrong output"}
	}
	return nil
}
