package model

import "strings"

// Status is the device-reported validity of a configuration object.
type Status uint8

const (
	// StatusUninitialized means no configuration is present ("status: empty"
	// or "No configuration").
	StatusUninitialized Status = iota

	// StatusInvalid means the object exists but failed the device's checks.
	StatusInvalid

	// StatusValid means the object is usable.
	StatusValid
)

// String returns the status as printed by the shell.
func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "empty"
	case StatusInvalid:
		return "invalid"
	case StatusValid:
		return "valid"
	default:
		return "unknown"
	}
}

// ParseStatus parses the value of a "status:" line.
func ParseStatus(s string) (Status, bool) {
	switch s {
	case "empty":
		return StatusUninitialized, true
	case "invalid":
		return StatusInvalid, true
	case "valid":
		return StatusValid, true
	default:
		return StatusUninitialized, false
	}
}

// Flags is the set of behavioral options of a configuration.
type Flags uint8

const (
	// FlagGiveBack allows the source to temporarily reduce the power it
	// supplies.
	FlagGiveBack Flags = 1 << iota
)

// KnownFlags is the mask of all flags this package knows how to encode.
const KnownFlags = FlagGiveBack

// flagInfo lists known flags in bit order with their shell spelling.
var flagInfo = []struct {
	flag  Flags
	token string
	cmd   string
}{
	{FlagGiveBack, "GiveBack", "toggle_giveback"},
}

// Has returns true if every bit of f2 is set in f.
func (f Flags) Has(f2 Flags) bool { return f&f2 == f2 }

// Unknown returns the bits not covered by KnownFlags.
func (f Flags) Unknown() Flags { return f &^ KnownFlags }

// String renders the flags the way the shell does: space separated tokens,
// or "(none)".
func (f Flags) String() string {
	var parts []string
	for _, fi := range flagInfo {
		if f.Has(fi.flag) {
			parts = append(parts, fi.token)
		}
	}
	if len(parts) == 0 {
		return "(none)"
	}
	return strings.Join(parts, " ")
}

// ParseFlagToken maps a shell flag token to its flag. Unknown tokens
// return false and should be ignored by readers.
func ParseFlagToken(token string) (Flags, bool) {
	for _, fi := range flagInfo {
		if fi.token == token {
			return fi.flag, true
		}
	}
	return 0, false
}

// ToggleCommand returns the shell command that toggles a single known flag.
func ToggleCommand(f Flags) (string, bool) {
	for _, fi := range flagInfo {
		if fi.flag == f {
			return fi.cmd, true
		}
	}
	return "", false
}

// Each calls fn for every known flag set in f, in bit order.
func (f Flags) Each(fn func(Flags)) {
	for _, fi := range flagInfo {
		if f.Has(fi.flag) {
			fn(fi.flag)
		}
	}
}

// CurrentMode tells how Config.Current is interpreted.
type CurrentMode uint8

const (
	// CurrentModeCurrent means Current is a current in mA.
	CurrentModeCurrent CurrentMode = iota

	// CurrentModePower means Current is a power budget in mW.
	CurrentModePower
)

// String returns the mode name.
func (m CurrentMode) String() string {
	switch m {
	case CurrentModeCurrent:
		return "current"
	case CurrentModePower:
		return "power"
	default:
		return "unknown"
	}
}
