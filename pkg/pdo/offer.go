package pdo

import (
	"fmt"
	"strings"

	"github.com/pd-buddy/pdbuddy-go/pkg/model"
)

// BaselineVoltageMV is the USB default voltage every source must offer.
const BaselineVoltageMV = 5000

// MaxOffers is the largest number of PDOs a Source_Capabilities message can
// carry.
const MaxOffers = 7

// Kind is the PDO type.
type Kind uint8

const (
	// KindFixed is a fixed supply at a single voltage.
	KindFixed Kind = iota
	// KindBattery is a battery supply over a voltage range, power limited.
	KindBattery
	// KindVariable is a variable supply over a voltage range, current limited.
	KindVariable
	// KindAugmented is a programmable power supply (PPS) APDO.
	KindAugmented
)

var kindNames = []string{"fixed", "battery", "variable", "pps"}

// String returns the kind as printed by the shell.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// ParseKind parses a shell kind token.
func ParseKind(s string) (Kind, bool) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), true
		}
	}
	return 0, false
}

// IsRange returns true for kinds described by a voltage range.
func (k Kind) IsRange() bool { return k != KindFixed }

// FixedFlags holds the capability bits of a fixed supply PDO.
type FixedFlags uint8

const (
	FlagDualRolePower FixedFlags = 1 << iota
	FlagUSBSuspend
	FlagUnconstrainedPower
	FlagUSBComms
	FlagDualRoleData
	FlagUnchunkedExtMsg
)

// fixedFlagTokens lists the flags in the order the shell prints them.
var fixedFlagTokens = []struct {
	flag  FixedFlags
	token string
}{
	{FlagDualRolePower, "dual_role_pwr"},
	{FlagUSBSuspend, "usb_suspend"},
	{FlagUnconstrainedPower, "unconstrained_pwr"},
	{FlagUSBComms, "usb_comms"},
	{FlagDualRoleData, "dual_role_data"},
	{FlagUnchunkedExtMsg, "unchunked_ext_msg"},
}

// ParseFixedFlag maps a shell token to its flag.
func ParseFixedFlag(token string) (FixedFlags, bool) {
	for _, ft := range fixedFlagTokens {
		if ft.token == token {
			return ft.flag, true
		}
	}
	return 0, false
}

// Tokens returns the shell tokens of the set flags, in shell order.
func (f FixedFlags) Tokens() []string {
	var out []string
	for _, ft := range fixedFlagTokens {
		if f&ft.flag != 0 {
			out = append(out, ft.token)
		}
	}
	return out
}

// Offer is one advertised power offer.
//
// Fixed offers use VoltageMV and CurrentMA. Variable and augmented offers
// use MinVoltageMV, MaxVoltageMV and CurrentMA. Battery offers use
// MinVoltageMV, MaxVoltageMV and PowerMW.
type Offer struct {
	Index        int
	Kind         Kind
	VoltageMV    int
	MinVoltageMV int
	MaxVoltageMV int
	CurrentMA    int
	PowerMW      int

	// PeakCurrent is the raw peak current field of a fixed offer.
	PeakCurrent int

	// Flags are only meaningful for fixed offers.
	Flags FixedFlags
}

// MaxPowerMW returns the most power the offer can deliver.
func (o Offer) MaxPowerMW() int {
	switch o.Kind {
	case KindFixed:
		return o.VoltageMV * o.CurrentMA / 1000
	case KindBattery:
		return o.PowerMW
	default:
		return o.MaxVoltageMV * o.CurrentMA / 1000
	}
}

// String renders the offer the way get_source_cap prints it.
func (o Offer) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "PDO %d: %s", o.Index, o.Kind)
	switch o.Kind {
	case KindFixed:
		for _, tok := range o.Flags.Tokens() {
			fmt.Fprintf(&b, "\n\t%s: 1", tok)
		}
		if o.PeakCurrent != 0 {
			fmt.Fprintf(&b, "\n\tpeak_i: %d", o.PeakCurrent)
		}
		fmt.Fprintf(&b, "\n\tv: %s", model.FormatQuantity(o.VoltageMV, "V"))
		fmt.Fprintf(&b, "\n\ti: %s", model.FormatQuantity(o.CurrentMA, "A"))
	case KindBattery:
		fmt.Fprintf(&b, "\n\tvmin: %s", model.FormatQuantity(o.MinVoltageMV, "V"))
		fmt.Fprintf(&b, "\n\tvmax: %s", model.FormatQuantity(o.MaxVoltageMV, "V"))
		fmt.Fprintf(&b, "\n\tp: %s", model.FormatQuantity(o.PowerMW, "W"))
	default:
		fmt.Fprintf(&b, "\n\tvmin: %s", model.FormatQuantity(o.MinVoltageMV, "V"))
		fmt.Fprintf(&b, "\n\tvmax: %s", model.FormatQuantity(o.MaxVoltageMV, "V"))
		fmt.Fprintf(&b, "\n\ti: %s", model.FormatQuantity(o.CurrentMA, "A"))
	}
	return b.String()
}

// Summary is a one-line description, e.g. "fixed 9.00 V 3.00 A".
func (o Offer) Summary() string {
	switch o.Kind {
	case KindFixed:
		return fmt.Sprintf("fixed %s %s", model.FormatQuantity(o.VoltageMV, "V"), model.FormatQuantity(o.CurrentMA, "A"))
	case KindBattery:
		return fmt.Sprintf("battery %s-%s %s", model.FormatQuantity(o.MinVoltageMV, "V"), model.FormatQuantity(o.MaxVoltageMV, "V"), model.FormatQuantity(o.PowerMW, "W"))
	default:
		return fmt.Sprintf("%s %s-%s %s", o.Kind, model.FormatQuantity(o.MinVoltageMV, "V"), model.FormatQuantity(o.MaxVoltageMV, "V"), model.FormatQuantity(o.CurrentMA, "A"))
	}
}
