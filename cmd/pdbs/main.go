// Command pdbs configures and inspects a PD Buddy Sink over its USB serial
// shell.
//
// Usage:
//
//	pdbs [flags] <command> [args]
//
// Flags:
//
//	-port string          Serial port (default: discover by USB ID)
//	-serial string        Select a sink by USB serial number during discovery
//	-profile string       Profile file, YAML or TOML (default ~/.config/pdbuddy/profile.yaml)
//	-timeout duration     Reply timeout for one command (default 1s)
//	-protocol-log string  Write a CBOR protocol capture to this file
//	-log-level string     Log level: debug, info, warn, error (default "warn")
//	-no-sync              Do not send Ctrl-D when connecting
//	-interval duration    Monitor polling interval (default 1s)
//
// Commands:
//
//	list                  List attached sinks
//	get [index]           Show the flash configuration
//	tmpcfg                Show the configuration buffer
//	set <flags>           Stage a configuration (see pdbs set -h)
//	write                 Write the buffer to flash
//	erase                 Erase the flash configuration
//	load                  Load the flash configuration into the buffer
//	output [on|off]       Query or switch the output
//	pdos                  List the source capabilities
//	check [-file f.yaml]  Run the power rules over the source capabilities
//	identify              Blink the LED
//	help                  Show the firmware's command list
//	license               Show the firmware license
//	verify                Bench test a freshly flashed sink
//	shell                 Interactive shell
//	monitor               Full-screen monitor
//	version               Print the pdbs version
//
// Examples:
//
//	# Request 20 V at up to 3.25 A and keep it across power cycles
//	pdbs set -v 20V -i 3.25A -write
//
//	# Capture a session for a bug report
//	pdbs -protocol-log sink.plog -log-level debug pdos
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pd-buddy/pdbuddy-go/cmd/pdbs/commands"
	"github.com/pd-buddy/pdbuddy-go/cmd/pdbs/interactive"
	"github.com/pd-buddy/pdbuddy-go/cmd/pdbs/monitor"
	"github.com/pd-buddy/pdbuddy-go/pkg/discovery"
	pdlog "github.com/pd-buddy/pdbuddy-go/pkg/log"
	"github.com/pd-buddy/pdbuddy-go/pkg/profile"
	"github.com/pd-buddy/pdbuddy-go/pkg/service"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

var (
	portFlag     = flag.String("port", "", "Serial port (default: discover by USB ID)")
	serialFlag   = flag.String("serial", "", "Select a sink by USB serial number")
	profileFlag  = flag.String("profile", "", "Profile file, YAML or TOML")
	timeoutFlag  = flag.Duration("timeout", 0, "Reply timeout for one command (default from profile, 1s)")
	protocolLog  = flag.String("protocol-log", "", "Write a CBOR protocol capture to this file")
	logLevel     = flag.String("log-level", "warn", "Log level: debug, info, warn, error")
	noSync       = flag.Bool("no-sync", false, "Do not send Ctrl-D when connecting")
	intervalFlag = flag.Duration("interval", monitor.DefaultInterval, "Monitor polling interval")
)

func main() {
	flag.Usage = usage
	flag.Parse()
	os.Exit(run(flag.Args()))
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: pdbs [flags] <command> [args]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands: list, get, tmpcfg, set, write, erase, load, output, pdos,")
	fmt.Fprintln(os.Stderr, "          check, identify, help, license, verify, shell, monitor, version")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Flags:")
	flag.PrintDefaults()
}

func run(args []string) int {
	if len(args) == 0 {
		flag.Usage()
		return exitUsage
	}
	name, args := args[0], args[1:]

	switch name {
	case "version":
		fmt.Println("pdbs", version)
		return exitOK
	case "list":
		return exitCode(commands.List(discovery.NewFinder(), os.Stdout))
	}

	fn, known := commands.Table[name]
	if !known && name != "verify" && name != "shell" && name != "monitor" {
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", name)
		flag.Usage()
		return exitUsage
	}

	logger := setupLogging(*logLevel)

	p, err := profile.LoadOrDefault(*profileFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitError
	}
	applyFlags(p)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := p.SessionConfig()
	cfg.Logger = logger

	if p.ProtocolLog != "" {
		fileLogger, err := pdlog.NewFileLogger(p.ProtocolLog)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create protocol logger: %v\n", err)
			return exitError
		}
		defer func() {
			fileLogger.Close()
			if err := fileLogger.Err(); err != nil {
				logger.Warn("protocol log incomplete", "path", fileLogger.Path(), "events", fileLogger.Count(), "error", err)
				return
			}
			logger.Info("protocol log written", "path", fileLogger.Path(), "events", fileLogger.Count())
		}()
		cfg.ProtocolLogger = fileLogger
		if *logLevel == "debug" {
			cfg.ProtocolLogger = pdlog.NewMultiLogger(pdlog.NewSlogAdapter(logger), fileLogger)
		}
		logger.Info("protocol logging", "path", p.ProtocolLog)
	}

	if name == "check" && offline(args) {
		return exitCode(commands.NewRunner(nil, p, os.Stdout).Check(ctx, args))
	}

	port, err := resolvePort(p)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitError
	}
	logger.Debug("connecting", "port", port)

	sess, err := service.Open(ctx, port, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to connect to %s: %v\n", port, err)
		return exitError
	}
	defer sess.Close()
	logger.Debug("connected", "port", port, "session", sess.ID())

	runner := commands.NewRunner(sess, p, os.Stdout)

	switch name {
	case "verify":
		err = runner.Verify(ctx, commands.PromptConfirm(os.Stdin, os.Stdout))
	case "shell":
		err = interactive.New(sess, p, os.Stdout).Run(ctx)
	case "monitor":
		err = monitor.Run(ctx, sess, *intervalFlag)
	default:
		err = fn(runner, ctx, args)
	}
	return exitCode(err)
}

// applyFlags overrides profile settings with flags given on the command
// line.
func applyFlags(p *profile.Profile) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			p.Port = *portFlag
		case "serial":
			p.Serial = *serialFlag
		case "timeout":
			p.Timeout = timeoutFlag.String()
		case "protocol-log":
			p.ProtocolLog = *protocolLog
		case "no-sync":
			p.NoSync = *noSync
		}
	})
}

// offline reports whether check was given an offer file.
func offline(args []string) bool {
	for _, a := range args {
		if a == "-file" || a == "--file" || strings.HasPrefix(a, "-file=") || strings.HasPrefix(a, "--file=") {
			return true
		}
	}
	return false
}

func resolvePort(p *profile.Profile) (string, error) {
	if p.Port != "" {
		return p.Port, nil
	}
	var filters []discovery.FilterFunc
	if p.Serial != "" {
		filters = append(filters, discovery.FilterBySerial(p.Serial))
	}
	d, err := discovery.NewFinder().FindOne(filters...)
	if err != nil {
		return "", fmt.Errorf("%w (use -port to pick one)", err)
	}
	return d.Port, nil
}

func setupLogging(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}

// exitCode maps a command error to the process exit status and reports it.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}

	var verr *commands.VerifyError
	switch {
	case errors.As(err, &verr):
		return verr.Code
	case errors.Is(err, context.Canceled):
		return exitError
	case errors.Is(err, commands.ErrUsage):
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitUsage
	case errors.Is(err, commands.ErrRuleViolations):
		return exitError
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return exitError
}
