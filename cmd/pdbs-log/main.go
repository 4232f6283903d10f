// Command pdbs-log reads the protocol capture files pdbs writes with
// -protocol-log.
//
// Usage:
//
//	pdbs-log <command> [flags] <file.plog>
//
// The view, filter and export commands share the selection flags -session,
// -port, -time-start, -time-end, -layer, -direction, -category and
// -command.
//
// Examples:
//
//	pdbs-log view -layer transport sink.plog
//	pdbs-log view -command get_cfg sink.plog
//	pdbs-log export -format sqlite -o sink.db sink.plog
//	pdbs-log filter -session 3f2a9c1e-... -category error -o errors.plog sink.plog
//	pdbs-log stats sink.plog
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pd-buddy/pdbuddy-go/cmd/pdbs-log/commands"
)

// subcommand binds its flags on fs and returns the action to run once
// the flags are parsed and the capture path is known.
type subcommand struct {
	name    string
	summary string
	setup   func(fs *flag.FlagSet, stdout io.Writer) func(path string) error
}

var subcommands = []subcommand{
	{"view", "Print events in human-readable form", setupView},
	{"export", "Export events to " + strings.Join(commands.Formats, ", "), setupExport},
	{"filter", "Copy selected events into a new capture file", setupFilter},
	{"stats", "Summarize a capture file", setupStats},
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return 1
	}
	switch args[0] {
	case "-h", "-help", "--help", "help":
		printUsage(stdout)
		return 0
	}

	for _, sc := range subcommands {
		if sc.name != args[0] {
			continue
		}
		fs := flag.NewFlagSet(sc.name, flag.ContinueOnError)
		fs.SetOutput(stderr)
		fs.Usage = func() {
			fmt.Fprintf(stderr, "pdbs-log %s - %s\n\nUsage:\n  pdbs-log %s [flags] <file.plog>\n\nFlags:\n", sc.name, sc.summary, sc.name)
			fs.PrintDefaults()
		}
		action := sc.setup(fs, stdout)
		if err := fs.Parse(args[1:]); err != nil {
			if err == flag.ErrHelp {
				return 0
			}
			return 1
		}
		if fs.NArg() != 1 {
			fmt.Fprintln(stderr, "Error: exactly one log file path required")
			fs.Usage()
			return 1
		}
		if err := action(fs.Arg(0)); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
	printUsage(stderr)
	return 1
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, "pdbs-log - PD Buddy protocol capture tool\n\nUsage:\n  pdbs-log <command> [flags] <file.plog>\n\nCommands:\n")
	for _, sc := range subcommands {
		fmt.Fprintf(w, "  %-8s %s\n", sc.name, sc.summary)
	}
	fmt.Fprint(w, "\nUse \"pdbs-log <command> -help\" for the flags of a command.\n")
}

func setupView(fs *flag.FlagSet, stdout io.Writer) func(string) error {
	var sel commands.Selection
	sel.Bind(fs)
	return func(path string) error {
		return commands.RunView(path, sel, stdout)
	}
}

func setupExport(fs *flag.FlagSet, stdout io.Writer) func(string) error {
	var sel commands.Selection
	sel.Bind(fs)
	format := fs.String("format", "jsonl", "Output format ("+strings.Join(commands.Formats, ", ")+")")
	output := fs.String("o", "", "Output file (default: stdout; required for sqlite)")
	return func(path string) error {
		return commands.RunExport(path, *format, *output, sel)
	}
}

func setupFilter(fs *flag.FlagSet, stdout io.Writer) func(string) error {
	var sel commands.Selection
	sel.Bind(fs)
	output := fs.String("o", "", "Output file (required)")
	return func(path string) error {
		n, err := commands.RunFilter(path, *output, sel)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Filtered %d events to %s\n", n, *output)
		return nil
	}
}

func setupStats(fs *flag.FlagSet, stdout io.Writer) func(string) error {
	return func(path string) error {
		return commands.RunStats(path, stdout)
	}
}
