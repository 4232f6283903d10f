package model

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is matched by every *ValidationError.
var ErrInvalidConfig = errors.New("invalid configuration")

// Field names reported in ValidationError.
const (
	FieldVoltage      = "voltage"
	FieldMinVoltage   = "voltage_min"
	FieldMaxVoltage   = "voltage_max"
	FieldVoltageRange = "voltage_range"
	FieldCurrent      = "current"
	FieldPower        = "power"
	FieldCurrentMode  = "current_mode"
	FieldFlags        = "flags"
	FieldStatus       = "status"
)

// ValidationError reports the first field of a configuration that failed
// validation.
type ValidationError struct {
	// Field is one of the Field* constants.
	Field string

	// Reason describes the failure.
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}

// Is reports whether target is ErrInvalidConfig.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidConfig
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Validate strictly checks a locally constructed configuration against
// limits. It returns the first failure found, in this order: voltage,
// current or power, voltage range, flags.
func Validate(c Config, limits Limits) error {
	if err := checkQuantity(FieldVoltage, c.VoltageMV, limits.MinVoltageMV, limits.MaxVoltageMV, limits.VoltageStepMV, "mV"); err != nil {
		return err
	}

	switch c.CurrentMode {
	case CurrentModeCurrent:
		if err := checkQuantity(FieldCurrent, c.Current, limits.MinCurrentMA, limits.MaxCurrentMA, limits.CurrentStepMA, "mA"); err != nil {
			return err
		}
	case CurrentModePower:
		if err := checkQuantity(FieldPower, c.Current, limits.MinPowerMW, limits.MaxPowerMW, limits.PowerStepMW, "mW"); err != nil {
			return err
		}
	default:
		return invalid(FieldCurrentMode, "unknown mode %d", c.CurrentMode)
	}

	hasMin, hasMax := c.MinVoltageMV != 0, c.MaxVoltageMV != 0
	if hasMin != hasMax {
		return invalid(FieldVoltageRange, "min and max must be given together")
	}
	if hasMin {
		if err := checkQuantity(FieldMinVoltage, c.MinVoltageMV, limits.MinVoltageMV, limits.MaxVoltageMV, limits.VoltageStepMV, "mV"); err != nil {
			return err
		}
		if err := checkQuantity(FieldMaxVoltage, c.MaxVoltageMV, limits.MinVoltageMV, limits.MaxVoltageMV, limits.VoltageStepMV, "mV"); err != nil {
			return err
		}
		if c.MinVoltageMV > c.MaxVoltageMV {
			return invalid(FieldVoltageRange, "min %d mV exceeds max %d mV", c.MinVoltageMV, c.MaxVoltageMV)
		}
	}

	if unknown := c.Flags.Unknown(); unknown != 0 {
		return invalid(FieldFlags, "unknown flag bits 0x%02x", uint8(unknown))
	}
	return nil
}

// ValidateDecoded checks only the structural invariants of a configuration
// read from the device. Unknown flags and out-of-range values are accepted.
func ValidateDecoded(c Config) error {
	if c.Status == StatusUninitialized {
		if c != (Config{}) {
			return invalid(FieldStatus, "uninitialized configuration carries values")
		}
		return nil
	}
	if c.MinVoltageMV != 0 && c.MaxVoltageMV != 0 && c.MinVoltageMV > c.MaxVoltageMV {
		return invalid(FieldVoltageRange, "min %d mV exceeds max %d mV", c.MinVoltageMV, c.MaxVoltageMV)
	}
	return nil
}

func checkQuantity(field string, v, lo, hi, step int, unit string) error {
	if v < lo || v > hi {
		return invalid(field, "%d %s outside [%d, %d]", v, unit, lo, hi)
	}
	if step > 0 && (v-lo)%step != 0 {
		return invalid(field, "%d %s is not a multiple of %d %s", v, unit, step, unit)
	}
	return nil
}
