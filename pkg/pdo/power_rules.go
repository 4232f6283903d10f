package pdo

import "github.com/pd-buddy/pdbuddy-go/pkg/model"

// Caps bounds battery and variable offers (PDO-003).
type Caps struct {
	MaxCurrentMA int `yaml:"max_current_ma" toml:"max_current_ma"`
	MaxPowerMW   int `yaml:"max_power_mw" toml:"max_power_mw"`
}

// DefaultCaps returns the USB PD limits without an EPR cable: 5 A, 100 W.
func DefaultCaps() Caps {
	return Caps{MaxCurrentMA: 5000, MaxPowerMW: 100000}
}

// RegisterPowerRules registers PDO-001 through PDO-005 with the registry.
func RegisterPowerRules(registry *RuleRegistry, caps Caps) {
	registry.Register(NewPDO001())
	registry.Register(NewPDO002())
	registry.Register(NewPDO003(caps))
	registry.Register(NewPDO004(MaxOffers))
	registry.Register(NewPDO005())
}

// NewDefaultRegistry creates a registry with all Power Rules registered.
func NewDefaultRegistry(caps Caps) *RuleRegistry {
	registry := NewRuleRegistry()
	RegisterPowerRules(registry, caps)
	return registry
}

// Check runs every Power Rule with the default caps and returns all
// violations, ordered by rule and then by offer. A compliant list yields nil.
func Check(offers []Offer) []Violation {
	return NewDefaultRegistry(DefaultCaps()).RunRules(offers)
}

// PDO001 checks that the 5 V fixed baseline is present exactly once, first.
type PDO001 struct {
	*BaseRule
}

func NewPDO001() *PDO001 {
	return &PDO001{BaseRule: NewBaseRule("PDO-001", "Baseline 5 V fixed offer first")}
}

func (r *PDO001) Check(offers []Offer) []Violation {
	if len(offers) == 0 {
		return []Violation{r.violation(0, "no offers; the 5.00 V fixed baseline is missing")}
	}

	var violations []Violation
	first := offers[0]
	seen := isBaseline(first)
	if !seen || first.Index != 1 {
		violations = append(violations, r.violation(first.Index,
			"first offer must be the 5.00 V fixed baseline at index 1, got %s", first.Summary()))
	}
	for _, o := range offers[1:] {
		switch {
		case !isBaseline(o):
		case seen:
			violations = append(violations, r.violation(o.Index, "5.00 V fixed offer repeated"))
		default:
			seen = true
			violations = append(violations, r.violation(o.Index, "5.00 V fixed offer out of position"))
		}
	}
	return violations
}

func isBaseline(o Offer) bool {
	return o.Kind == KindFixed && o.VoltageMV == BaselineVoltageMV
}

// PDO002 checks that fixed offers are in strictly ascending voltage order.
type PDO002 struct {
	*BaseRule
}

func NewPDO002() *PDO002 {
	return &PDO002{BaseRule: NewBaseRule("PDO-002", "Fixed offers ascending")}
}

func (r *PDO002) Check(offers []Offer) []Violation {
	var violations []Violation
	prev := -1
	for _, o := range offers {
		if o.Kind != KindFixed {
			continue
		}
		if prev >= 0 && o.VoltageMV <= prev {
			if o.VoltageMV == prev {
				violations = append(violations, r.violation(o.Index,
					"duplicate fixed voltage %s", model.FormatQuantity(o.VoltageMV, "V")))
			} else {
				violations = append(violations, r.violation(o.Index,
					"fixed %s follows %s", model.FormatQuantity(o.VoltageMV, "V"), model.FormatQuantity(prev, "V")))
			}
		}
		if o.VoltageMV > prev {
			prev = o.VoltageMV
		}
	}
	return violations
}

// PDO003 checks battery and variable offers against the caps.
type PDO003 struct {
	*BaseRule
	caps Caps
}

func NewPDO003(caps Caps) *PDO003 {
	return &PDO003{BaseRule: NewBaseRule("PDO-003", "Battery/variable within caps"), caps: caps}
}

func (r *PDO003) Check(offers []Offer) []Violation {
	var violations []Violation
	for _, o := range offers {
		switch o.Kind {
		case KindBattery:
			if o.PowerMW > r.caps.MaxPowerMW {
				violations = append(violations, r.violation(o.Index, "power %s exceeds cap %s",
					model.FormatQuantity(o.PowerMW, "W"), model.FormatQuantity(r.caps.MaxPowerMW, "W")))
			}
		case KindVariable:
			if o.CurrentMA > r.caps.MaxCurrentMA {
				violations = append(violations, r.violation(o.Index, "current %s exceeds cap %s",
					model.FormatQuantity(o.CurrentMA, "A"), model.FormatQuantity(r.caps.MaxCurrentMA, "A")))
			}
		}
	}
	return violations
}

// PDO004 checks the number of offers.
type PDO004 struct {
	*BaseRule
	max int
}

func NewPDO004(max int) *PDO004 {
	return &PDO004{BaseRule: NewBaseRule("PDO-004", "Offer count"), max: max}
}

func (r *PDO004) Check(offers []Offer) []Violation {
	if len(offers) > r.max {
		return []Violation{r.violation(0, "%d offers exceed the maximum of %d", len(offers), r.max)}
	}
	return nil
}

// PDO005 checks that range offers have min <= max.
type PDO005 struct {
	*BaseRule
}

func NewPDO005() *PDO005 {
	return &PDO005{BaseRule: NewBaseRule("PDO-005", "Range offers ordered")}
}

func (r *PDO005) Check(offers []Offer) []Violation {
	var violations []Violation
	for _, o := range offers {
		if o.Kind.IsRange() && o.MinVoltageMV > o.MaxVoltageMV {
			violations = append(violations, r.violation(o.Index, "vmin %s above vmax %s",
				model.FormatQuantity(o.MinVoltageMV, "V"), model.FormatQuantity(o.MaxVoltageMV, "V")))
		}
	}
	return violations
}
