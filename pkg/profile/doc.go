// Package profile loads user profiles for the pdbs tools.
//
// A profile names the default port, the transport timing, the
// configuration limits of the firmware in use, the power rule caps and a
// set of named configuration presets. Profiles are YAML (.yaml, .yml) or
// TOML (.toml); the format is chosen by file extension. Keys left out of
// a file keep their Default values.
//
// Example YAML profile:
//
//	port: /dev/ttyACM0
//	timeout: 2s
//	limits:
//	  max_voltage_mv: 20000
//	disabled_rules: [PDO-002]
//	presets:
//	  laptop:
//	    voltage_mv: 20000
//	    current_ma: 3250
//	    giveback: true
package profile
