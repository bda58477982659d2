// Package rule defines the business rules evaluated before a workflow runs.
// A rule pairs a condition over request facts with an accept/reject action;
// the first enabled rule whose condition matches decides.
package rule

// Action is what a matching rule does with the request.
type Action string

const (
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
)

// Op is a comparison operator in a leaf condition.
type Op string

const (
	OpEq       Op = "eq"
	OpNe       Op = "ne"
	OpGt       Op = "gt"
	OpGte      Op = "gte"
	OpLt       Op = "lt"
	OpLte      Op = "lte"
	OpContains Op = "contains"
	OpIn       Op = "in"
	OpExists   Op = "exists"
)

// Condition is a predicate over request facts. Exactly one of the leaf
// (Field+Op), All, Any or Not forms is set.
type Condition struct {
	Field string      `json:"field,omitempty" yaml:"field,omitempty"`
	Op    Op          `json:"op,omitempty" yaml:"op,omitempty"`
	Value any         `json:"value,omitempty" yaml:"value,omitempty"`
	All   []Condition `json:"all,omitempty" yaml:"all,omitempty"`
	Any   []Condition `json:"any,omitempty" yaml:"any,omitempty"`
	Not   *Condition  `json:"not,omitempty" yaml:"not,omitempty"`
}

// Rule is a single business rule.
type Rule struct {
	ID          string         `json:"rule_id" yaml:"rule_id"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Condition   Condition      `json:"condition" yaml:"condition"`
	Action      Action         `json:"action" yaml:"action"`
	Parameters  map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Enabled     *bool          `json:"enabled,omitempty" yaml:"enabled,omitempty"` // nil means enabled
}

// IsEnabled reports whether the rule takes part in evaluation.
func (r *Rule) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// Set is an ordered list of rules.
type Set struct {
	Name  string `json:"name" yaml:"name"`
	Rules []Rule `json:"rules" yaml:"rules"`
}

// Decision is the outcome of evaluating a request against a Set.
type Decision struct {
	Accepted  bool     `json:"accepted"`
	RuleID    string   `json:"rule_id,omitempty"` // empty if no rule matched
	Action    Action   `json:"action,omitempty"`
	Reason    string   `json:"reason"`
	Skipped   []string `json:"skipped,omitempty"`   // rules whose condition could not be evaluated
	EvalError []string `json:"eval_errors,omitempty"`
}
