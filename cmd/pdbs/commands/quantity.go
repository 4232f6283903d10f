package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pd-buddy/pdbuddy-go/pkg/model"
)

// parseArg parses a command-line quantity in the given base unit
// ("V", "A", "W") and returns it in milli-units. Accepted forms:
// "15000" (milli-units), "15V", "15.5 V", "15000mV".
func parseArg(s, base string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty %s value", base)
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}

	// Split the numeric prefix from the unit so "15V" and "15 V" read alike.
	i := strings.IndexFunc(s, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.'
	})
	if i <= 0 {
		return 0, fmt.Errorf("%w: %q", model.ErrBadQuantity, s)
	}
	num, unit := s[:i], strings.TrimSpace(s[i:])
	return model.ParseQuantity(num+" "+unit, base)
}
