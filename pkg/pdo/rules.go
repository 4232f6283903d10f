package pdo

import "fmt"

// Rule is a Power Rules check over a full offer list.
type Rule interface {
	// ID returns the unique identifier for this rule (e.g., "PDO-001").
	ID() string
	// Name returns a human-readable name for the rule.
	Name() string
	// Check applies the rule and returns any violations, in offer order.
	Check(offers []Offer) []Violation
}

// Violation is a single rule violation.
type Violation struct {
	// RuleID is the ID of the rule that was violated.
	RuleID string
	// OfferIndex is the device index of the offending offer, or 0 when the
	// violation concerns the list as a whole.
	OfferIndex int
	// Message describes what went wrong.
	Message string
}

// Error implements the error interface.
func (v Violation) Error() string {
	if v.OfferIndex > 0 {
		return fmt.Sprintf("[%s] PDO %d: %s", v.RuleID, v.OfferIndex, v.Message)
	}
	return fmt.Sprintf("[%s] %s", v.RuleID, v.Message)
}

// BaseRule provides the ID and Name methods of a Rule.
type BaseRule struct {
	id   string
	name string
}

// ID returns the rule ID.
func (r *BaseRule) ID() string { return r.id }

// Name returns the rule name.
func (r *BaseRule) Name() string { return r.name }

// NewBaseRule creates a new BaseRule with the given properties.
func NewBaseRule(id, name string) *BaseRule {
	return &BaseRule{id: id, name: name}
}

func (r *BaseRule) violation(index int, format string, args ...any) Violation {
	return Violation{RuleID: r.id, OfferIndex: index, Message: fmt.Sprintf(format, args...)}
}
