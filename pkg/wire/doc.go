// Package wire encodes PD Buddy Sink shell commands and decodes their
// replies into typed values.
//
// The shell is line oriented. A command is a single line of words separated
// by one space; quantities are integers in mV, mA or mW. The reply is zero
// or more lines followed by the "PDBS) " prompt. This package only ever sees
// the reply lines: the transport has already dropped the echoed command and
// the prompt.
//
// # Decoding
//
// Decoding is line anchored and field order is fixed per command. A line
// that does not fit the grammar expected at its position yields a
// *ParseError carrying the line, its 1-based number and what was expected.
// Replies whose first line is "<cmd> ?" mean the firmware does not know the
// command; every decoder reports that as a *CommandError.
//
// Configuration replies:
//
//	status: valid
//	flags: (none)
//	v: 15.00 V
//	i: 3.00 A
//
// Source capability replies:
//
//	PDO 1: fixed
//		usb_comms: 1
//		v: 5.00 V
//		i: 3.00 A
//	PDO 2: pps
//		vmin: 3.30 V
//		vmax: 11.00 V
//		i: 3.00 A
package wire
