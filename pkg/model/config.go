package model

import "strings"

// Config is a sink configuration object.
//
// MinVoltageMV and MaxVoltageMV are zero when the configuration carries no
// voltage range. Current holds mA under CurrentModeCurrent and mW under
// CurrentModePower.
type Config struct {
	Status       Status
	Flags        Flags
	VoltageMV    int
	MinVoltageMV int
	MaxVoltageMV int
	Current      int
	CurrentMode  CurrentMode
}

// NewConfig returns a valid configuration requesting a fixed voltage and
// current, with no flags.
func NewConfig(voltageMV, currentMA int) Config {
	return Config{
		Status:      StatusValid,
		VoltageMV:   voltageMV,
		Current:     currentMA,
		CurrentMode: CurrentModeCurrent,
	}
}

// IsEmpty returns true if the configuration is uninitialized.
func (c Config) IsEmpty() bool { return c.Status == StatusUninitialized }

// HasRange returns true if both range bounds are present.
func (c Config) HasRange() bool { return c.MinVoltageMV != 0 && c.MaxVoltageMV != 0 }

// WithVoltage returns a copy with the target voltage replaced.
func (c Config) WithVoltage(mv int) Config {
	c.VoltageMV = mv
	return c
}

// WithVoltageRange returns a copy with the voltage range replaced.
// Passing zeros removes the range.
func (c Config) WithVoltageRange(minMV, maxMV int) Config {
	c.MinVoltageMV = minMV
	c.MaxVoltageMV = maxMV
	return c
}

// WithCurrent returns a copy requesting a current in mA.
func (c Config) WithCurrent(ma int) Config {
	c.Current = ma
	c.CurrentMode = CurrentModeCurrent
	return c
}

// WithPower returns a copy requesting a power budget in mW.
func (c Config) WithPower(mw int) Config {
	c.Current = mw
	c.CurrentMode = CurrentModePower
	return c
}

// WithFlags returns a copy with the flag set replaced.
func (c Config) WithFlags(f Flags) Config {
	c.Flags = f
	return c
}

// WithStatus returns a copy with the status replaced.
func (c Config) WithStatus(s Status) Config {
	c.Status = s
	return c
}

// String renders the configuration the way the shell prints it.
func (c Config) String() string {
	if c.Status == StatusUninitialized {
		return "No configuration"
	}

	var b strings.Builder
	b.WriteString("status: " + c.Status.String() + "\n")
	b.WriteString("flags: " + c.Flags.String() + "\n")
	b.WriteString("v: " + FormatQuantity(c.VoltageMV, "V") + "\n")
	if c.HasRange() {
		b.WriteString("vmin: " + FormatQuantity(c.MinVoltageMV, "V") + "\n")
		b.WriteString("vmax: " + FormatQuantity(c.MaxVoltageMV, "V") + "\n")
	}
	if c.CurrentMode == CurrentModePower {
		b.WriteString("p: " + FormatQuantity(c.Current, "W"))
	} else {
		b.WriteString("i: " + FormatQuantity(c.Current, "A"))
	}
	return b.String()
}
