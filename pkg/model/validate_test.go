package model

import (
	"errors"
	"testing"
)

func TestValidateBounds(t *testing.T) {
	limits := DefaultLimits()

	tests := []struct {
		name  string
		cfg   Config
		field string
	}{
		{"voltage at min", NewConfig(5000, 1000), ""},
		{"voltage at max", NewConfig(20000, 1000), ""},
		{"voltage below min", NewConfig(4950, 1000), FieldVoltage},
		{"voltage one below min", NewConfig(4999, 1000), FieldVoltage},
		{"voltage above max", NewConfig(20001, 1000), FieldVoltage},
		{"voltage off step", NewConfig(9025, 1000), FieldVoltage},
		{"current at min", NewConfig(9000, 0), ""},
		{"current at max", NewConfig(9000, 5000), ""},
		{"current above max", NewConfig(9000, 5001), FieldCurrent},
		{"current below min", NewConfig(9000, -1), FieldCurrent},
		{"current off step", NewConfig(9000, 1005), FieldCurrent},
		{"power at max", NewConfig(9000, 0).WithPower(100000), ""},
		{"power above max", NewConfig(9000, 0).WithPower(100001), FieldPower},
		{"mode unknown", Config{Status: StatusValid, VoltageMV: 9000, CurrentMode: 7}, FieldCurrentMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.cfg, limits)
			checkField(t, err, tt.field)
		})
	}
}

func TestValidateRange(t *testing.T) {
	limits := DefaultLimits()
	base := NewConfig(12000, 2000)

	tests := []struct {
		name  string
		cfg   Config
		field string
	}{
		{"ok", base.WithVoltageRange(9000, 15000), ""},
		{"equal", base.WithVoltageRange(9000, 9000), ""},
		{"only min", base.WithVoltageRange(9000, 0), FieldVoltageRange},
		{"only max", base.WithVoltageRange(0, 9000), FieldVoltageRange},
		{"min above max", base.WithVoltageRange(15000, 9000), FieldVoltageRange},
		{"min out of bounds", base.WithVoltageRange(3000, 9000), FieldMinVoltage},
		{"max out of bounds", base.WithVoltageRange(9000, 21000), FieldMaxVoltage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkField(t, Validate(tt.cfg, limits), tt.field)
		})
	}
}

func TestValidateFlags(t *testing.T) {
	limits := DefaultLimits()
	if err := Validate(NewConfig(9000, 1000).WithFlags(FlagGiveBack), limits); err != nil {
		t.Errorf("GiveBack rejected: %v", err)
	}
	checkField(t, Validate(NewConfig(9000, 1000).WithFlags(0x80), limits), FieldFlags)
}

func TestValidateInjectedLimits(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxVoltageMV = 48000

	if err := Validate(NewConfig(28000, 5000), limits); err != nil {
		t.Errorf("28 V should pass with raised limit: %v", err)
	}
	checkField(t, Validate(NewConfig(28000, 5000), DefaultLimits()), FieldVoltage)
}

func TestValidateDecoded(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		field string
	}{
		{"empty", Config{}, ""},
		{"unknown flags tolerated", NewConfig(9000, 1000).WithFlags(0x80), ""},
		{"out of range tolerated", NewConfig(48000, 9000), ""},
		{"half range tolerated", NewConfig(9000, 1000).WithVoltageRange(5000, 0), ""},
		{"inverted range", NewConfig(9000, 1000).WithVoltageRange(15000, 5000), FieldVoltageRange},
		{"empty with values", Config{VoltageMV: 5000}, FieldStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkField(t, ValidateDecoded(tt.cfg), tt.field)
		})
	}
}

func TestValidationErrorIs(t *testing.T) {
	err := Validate(NewConfig(1000, 0), DefaultLimits())
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("errors.Is(%v, ErrInvalidConfig) = false", err)
	}
}

func checkField(t *testing.T, err error, field string) {
	t.Helper()
	if field == "" {
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		return
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError for %s, got %v", field, err)
	}
	if ve.Field != field {
		t.Errorf("Field = %q, want %q (%v)", ve.Field, field, err)
	}
}
