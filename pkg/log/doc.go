// Package log records protocol captures of PD Buddy Sink sessions: every
// command line, reply, decoded command, state change and error, tagged with
// the session ID and serial port. Operational logging goes through slog;
// a capture is the machine-readable trace you attach to a bug report.
//
// A session takes any Logger:
//
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	fl, err := log.NewFileLogger("captures/sink.plog")
//	cfg.ProtocolLogger = log.NewMultiLogger(fl, log.NewSlogAdapter(slog.Default()))
//
// Events come from three layers. Transport events carry raw text
// (LineEvent), wire events the decoded command (CommandEvent) and service
// events session transitions (StateChangeEvent). Any layer may emit an
// ErrorEventData.
//
// Capture files (.plog) are concatenated CBOR events. FileLogger flushes
// after each event, so a killed process leaves every complete event
// readable; Reader reports the cut-off tail as ErrTruncated. The pdbs-log
// command views, filters, exports and summarizes them.
package log
