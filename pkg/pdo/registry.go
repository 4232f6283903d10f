package pdo

import "sync"

// RuleRegistry holds the power rules check runs, in report order. Rules can
// be switched off by ID, which is how a profile's disabled_rules apply.
type RuleRegistry struct {
	mu      sync.RWMutex
	entries []ruleEntry
}

type ruleEntry struct {
	rule Rule
	on   bool
}

// NewRuleRegistry returns an empty registry.
func NewRuleRegistry() *RuleRegistry {
	return &RuleRegistry{}
}

func (r *RuleRegistry) find(id string) int {
	for i, e := range r.entries {
		if e.rule.ID() == id {
			return i
		}
	}
	return -1
}

// Register appends rule, enabled. A rule with an ID already present
// replaces it and keeps its position.
func (r *RuleRegistry) Register(rule Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.find(rule.ID()); i >= 0 {
		r.entries[i] = ruleEntry{rule: rule, on: true}
		return
	}
	r.entries = append(r.entries, ruleEntry{rule: rule, on: true})
}

// SetEnabled switches a rule on or off and reports whether the ID exists.
func (r *RuleRegistry) SetEnabled(id string, on bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.find(id)
	if i < 0 {
		return false
	}
	r.entries[i].on = on
	return true
}

func (r *RuleRegistry) Enable(id string) bool  { return r.SetEnabled(id, true) }
func (r *RuleRegistry) Disable(id string) bool { return r.SetEnabled(id, false) }

// IsEnabled is false for unknown IDs.
func (r *RuleRegistry) IsEnabled(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.find(id)
	return i >= 0 && r.entries[i].on
}

// Lookup returns the rule registered under id.
func (r *RuleRegistry) Lookup(id string) (Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i := r.find(id); i >= 0 {
		return r.entries[i].rule, true
	}
	return nil, false
}

// Rules returns the registered rules. With enabledOnly set, disabled rules
// are left out.
func (r *RuleRegistry) Rules(enabledOnly bool) []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Rule, 0, len(r.entries))
	for _, e := range r.entries {
		if e.on || !enabledOnly {
			out = append(out, e.rule)
		}
	}
	return out
}

// EnabledRules is Rules(true).
func (r *RuleRegistry) EnabledRules() []Rule { return r.Rules(true) }

// Count returns the number of registered rules, enabled or not.
func (r *RuleRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// RunRules checks offers against every enabled rule. Violations come back
// grouped by rule, in registration order.
func (r *RuleRegistry) RunRules(offers []Offer) []Violation {
	var violations []Violation
	for _, rule := range r.Rules(true) {
		violations = append(violations, rule.Check(offers)...)
	}
	return violations
}
