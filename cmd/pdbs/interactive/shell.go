// Package interactive provides the interactive shell of pdbs.
//
// Lines are sent to the sink verbatim and the reply is printed, so the
// firmware's own commands work as they do in a terminal emulator. Lines
// starting with '/' run the pdbs subcommands instead (e.g. "/pdos",
// "/set -v 9V -i 2A -write").
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/chzyer/readline"
	"github.com/pd-buddy/pdbuddy-go/cmd/pdbs/commands"
	"github.com/pd-buddy/pdbuddy-go/pkg/profile"
	"github.com/pd-buddy/pdbuddy-go/pkg/service"
	"github.com/pd-buddy/pdbuddy-go/pkg/transport"
)

// firmwareCommands are completed at the prompt.
var firmwareCommands = []string{
	"license", "erase", "write", "load", "get_cfg", "get_tmpcfg",
	"clear_flags", "toggle_giveback", "set_v", "set_vrange", "set_i",
	"set_p", "identify", "output", "get_source_cap", "help",
}

// Shell handles interactive mode for pdbs.
type Shell struct {
	sink   service.Sink
	runner *commands.Runner
	out    io.Writer
}

// New creates a shell writing to out until Run replaces it with the
// readline terminal.
func New(sink service.Sink, p *profile.Profile, out io.Writer) *Shell {
	return &Shell{
		sink:   sink,
		runner: commands.NewRunner(sink, p, out),
		out:    out,
	}
}

func completer() *readline.PrefixCompleter {
	var items []readline.PrefixCompleterInterface
	for _, c := range firmwareCommands {
		items = append(items, readline.PcItem(c))
	}
	local := make([]string, 0, len(commands.Table)+2)
	for name := range commands.Table {
		local = append(local, name)
	}
	local = append(local, "quit", "exit")
	sort.Strings(local)
	for _, c := range local {
		items = append(items, readline.PcItem("/"+c))
	}
	return readline.NewPrefixCompleter(items...)
}

// Run starts the interactive command loop. It returns when the user quits,
// input ends or ctx is cancelled.
func (s *Shell) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          transport.DefaultPrompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer(),
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	s.out = rl.Stdout()
	s.runner = commands.NewRunner(s.sink, s.runner.Profile, s.out)

	fmt.Fprintln(s.out, "Connected. Type firmware commands, /help for pdbs commands, /quit to exit.")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			return nil
		}

		if s.Handle(ctx, line) {
			return nil
		}
	}
}

// Handle executes one input line and reports whether the shell should
// exit.
func (s *Shell) Handle(ctx context.Context, line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}

	if strings.HasPrefix(input, "/") {
		return s.local(ctx, strings.Fields(input[1:]))
	}

	lines, err := s.sink.Exec(ctx, input)
	for _, l := range lines {
		fmt.Fprintln(s.out, l)
	}
	switch {
	case disconnected(err):
		fmt.Fprintln(s.out, "Sink disconnected.")
		return true
	case err != nil:
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
	return false
}

func (s *Shell) local(ctx context.Context, parts []string) bool {
	if len(parts) == 0 {
		s.printHelp()
		return false
	}
	cmd, args := strings.ToLower(parts[0]), parts[1:]

	switch cmd {
	case "quit", "exit", "q":
		return true
	case "help", "?":
		s.printHelp()
		return false
	}

	fn, ok := commands.Table[cmd]
	if !ok {
		fmt.Fprintf(s.out, "Unknown command: /%s (type /help for commands)\n", cmd)
		return false
	}
	if err := fn(s.runner, ctx, args); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		if disconnected(err) {
			return true
		}
	}
	return false
}

func disconnected(err error) bool {
	return errors.Is(err, transport.ErrClosed) || errors.Is(err, service.ErrSessionClosed)
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
pdbs shell commands:
  Firmware:
    <line>               - Sent to the sink as typed (try "help")

  Configuration:
    /get [index]         - Show the flash configuration
    /tmpcfg              - Show the configuration buffer
    /set <flags>         - Stage a configuration (-v -i -p -vmin -vmax -giveback -preset -write)
    /write /erase /load  - Flash operations

  Source:
    /pdos                - List source capabilities
    /check               - Run the power rules

  Device:
    /output [on|off]     - Query or switch the output
    /identify            - Blink the LED

  General:
    /help                - Show this help
    /quit                - Exit the shell`)
}
