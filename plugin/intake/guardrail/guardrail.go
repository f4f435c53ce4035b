// Package guardrail decides whether an extracted appointment is safe to finalize.
package guardrail

import (
	"github.com/hrygo/medibook/plugin/intake/entity"
	"github.com/hrygo/medibook/plugin/intake/temporal"
)

// StatusNeedsClarification marks a result that must go back to the requester.
const StatusNeedsClarification = "needs_clarification"

// Clarification messages, in check order.
const (
	MessageAmbiguousDepartment = "Ambiguous department"
	MessageAmbiguousDateTime   = "Ambiguous date/time"
	MessageAmbiguousTime       = "Ambiguous time"
)

// Clarification is a failed guardrail. It is a valid outcome, not an error.
type Clarification struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Check is a single guardrail. It returns false when the input fails it.
type Check struct {
	Message string
	Pass    func(e entity.Entities, n temporal.Normalized) bool
}

// Checks are evaluated in order; the first failing check wins.
//
// Only the presence of raw phrases is inspected. A phrase that was present but
// fell back to a default during normalization still passes.
var Checks = []Check{
	{MessageAmbiguousDepartment, func(e entity.Entities, _ temporal.Normalized) bool { return e.DepartmentKeyword != nil }},
	{MessageAmbiguousDateTime, func(e entity.Entities, _ temporal.Normalized) bool { return e.DatePhrase != nil }},
	{MessageAmbiguousTime, func(e entity.Entities, _ temporal.Normalized) bool { return e.TimePhrase != nil }},
}

// Evaluate runs the checks and returns the first failure, or nil when all pass.
func Evaluate(e entity.Entities, n temporal.Normalized) *Clarification {
	for _, c := range Checks {
		if !c.Pass(e, n) {
			return &Clarification{Status: StatusNeedsClarification, Message: c.Message}
		}
	}
	return nil
}
