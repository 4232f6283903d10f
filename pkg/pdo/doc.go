// Package pdo models the power data objects (PDOs) a USB PD source
// advertises and checks offer lists against the USB PD Power Rules.
//
// # Offers
//
// An Offer is one entry of the Source_Capabilities list reported by the
// sink's get_source_cap command. Offers are indexed from 1 in the order the
// source sent them; that order matters, because a sink requests the first
// offer that satisfies its configuration (see Select).
//
// # Power Rules
//
// Rules implement the Rule interface and are run through a RuleRegistry,
// which keeps registration order and lets individual rules be disabled:
//
//	PDO-001  exactly one fixed 5 V offer, at index 1
//	PDO-002  fixed offers in strictly ascending voltage
//	PDO-003  battery/variable offers within the current/power caps
//	PDO-004  at most MaxOffers offers
//	PDO-005  range offers with min <= max
//
// Check runs the default registry and returns every violation, ordered by
// rule and then by offer. Violations are advisory; nothing in this module
// blocks a commit on them.
package pdo
