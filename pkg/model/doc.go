// Package model implements the PD Buddy Sink configuration model.
//
// # Configuration
//
// A Config mirrors the configuration object the sink keeps in its
// temporary buffer and in flash:
//
//	status: valid
//	flags: GiveBack
//	v: 15.00 V
//	vmin: 12.00 V
//	vmax: 20.00 V
//	i: 3.00 A
//
// All quantities are held as integers in the device's native units
// (mV, mA, mW). Config is a comparable value type; the With* methods
// return edited copies and never touch the receiver.
//
// # Validation
//
// There are two entry points:
//   - Validate: strict, for locally constructed configurations before they
//     are staged. Checks bounds, step sizes, range consistency and flags.
//   - ValidateDecoded: lenient, for configurations decoded from a device
//     reply. Only structural invariants are checked so that newer firmware
//     (new flags, wider ranges) can still be read.
//
// Bounds come from Limits, which is injectable since they depend on the
// firmware generation. DefaultLimits matches the 1.x firmware.
package model
