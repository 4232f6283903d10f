package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrBadQuantity is returned when a quantity cannot be parsed.
var ErrBadQuantity = errors.New("malformed quantity")

// ParseQuantity parses a shell quantity such as "15.00 V" or "900 mA" into
// milli-units. base is the whole unit ("V", "A" or "W"); both base and
// "m"+base are accepted. Decimals are converted exactly, without floating
// point. More than three fractional digits are only accepted when the extra
// digits are zero.
func ParseQuantity(s, base string) (int, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrBadQuantity, s)
	}
	number, unit := fields[0], fields[1]

	var scale int
	switch unit {
	case base:
		scale = 3
	case "m" + base:
		scale = 0
	default:
		return 0, fmt.Errorf("%w: unit %q, want %s or m%s", ErrBadQuantity, unit, base, base)
	}

	v, err := parseFixed(number, scale)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadQuantity, s)
	}
	return v, nil
}

// parseFixed parses an unsigned decimal and multiplies it by 10^scale.
func parseFixed(s string, scale int) (int, error) {
	intPart, frac, hasDot := strings.Cut(s, ".")
	if intPart == "" || (hasDot && frac == "") {
		return 0, ErrBadQuantity
	}
	for _, r := range intPart + frac {
		if r < '0' || r > '9' {
			return 0, ErrBadQuantity
		}
	}

	// Any digit past the representable precision must be zero.
	if len(frac) > scale {
		if strings.Trim(frac[scale:], "0") != "" {
			return 0, ErrBadQuantity
		}
		frac = frac[:scale]
	}
	frac += strings.Repeat("0", scale-len(frac))

	v, err := strconv.Atoi(intPart + frac)
	if err != nil {
		return 0, err
	}
	return v, nil
}

// FormatQuantity renders a milli-unit value with two decimals, the way the
// shell prints it (e.g. 15000, "V" -> "15.00 V").
func FormatQuantity(milli int, base string) string {
	sign := ""
	if milli < 0 {
		sign = "-"
		milli = -milli
	}
	// Round half up to hundredths.
	hundredths := (milli + 5) / 10
	return fmt.Sprintf("%s%d.%02d %s", sign, hundredths/100, hundredths%100, base)
}
