package model

// Limits bounds the values a locally constructed configuration may carry.
// The bounds depend on the firmware generation, so callers can supply their
// own.
type Limits struct {
	MinVoltageMV  int `yaml:"min_voltage_mv" toml:"min_voltage_mv"`
	MaxVoltageMV  int `yaml:"max_voltage_mv" toml:"max_voltage_mv"`
	VoltageStepMV int `yaml:"voltage_step_mv" toml:"voltage_step_mv"`

	MinCurrentMA  int `yaml:"min_current_ma" toml:"min_current_ma"`
	MaxCurrentMA  int `yaml:"max_current_ma" toml:"max_current_ma"`
	CurrentStepMA int `yaml:"current_step_ma" toml:"current_step_ma"`

	MinPowerMW  int `yaml:"min_power_mw" toml:"min_power_mw"`
	MaxPowerMW  int `yaml:"max_power_mw" toml:"max_power_mw"`
	PowerStepMW int `yaml:"power_step_mw" toml:"power_step_mw"`
}

// DefaultLimits returns the bounds of the 1.x firmware.
func DefaultLimits() Limits {
	return Limits{
		MinVoltageMV:  5000,
		MaxVoltageMV:  20000,
		VoltageStepMV: 50,
		MinCurrentMA:  0,
		MaxCurrentMA:  5000,
		CurrentStepMA: 10,
		MinPowerMW:    0,
		MaxPowerMW:    100000,
		PowerStepMW:   10,
	}
}
