package rule

import "fmt"

// Validate checks that a Set is well-formed: every rule has a unique id.
func (s *Set) Validate() error {
	seen := make(map[string]bool, len(s.Rules))
	for i := range s.Rules {
		if err := s.Rules[i].Validate(); err != nil {
			return fmt.Errorf("rules: rule[%d]: %w", i, err)
		}
		if seen[s.Rules[i].ID] {
			return fmt.Errorf("rules: duplicate rule_id %q", s.Rules[i].ID)
		}
		seen[s.Rules[i].ID] = true
	}
	return nil
}

// Validate checks that a Rule is well-formed. Unknown actions are allowed
// and behave like accept; see Warnings.
func (r *Rule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("rule_id is required")
	}
	return nil
}

// Warnings lists suspicious but loadable rule definitions: unknown actions,
// fields and operators. They do not stop loading.
func (s *Set) Warnings() []string {
	var out []string
	for i := range s.Rules {
		r := &s.Rules[i]
		if r.Action != ActionAccept && r.Action != ActionReject {
			out = append(out, fmt.Sprintf("rule %s: unknown action %q treated as accept", r.ID, r.Action))
		}
		for _, w := range r.Condition.lint() {
			out = append(out, fmt.Sprintf("rule %s: %s", r.ID, w))
		}
	}
	return out
}

var knownFields = map[string]bool{
	FieldType: true, FieldCustomerID: true, FieldPaymentMethod: true, FieldEventType: true,
	FieldJobType: true, FieldNeedSize: true, FieldQuestion: true, FieldDeliveryDate: true,
	FieldItemCount: true, FieldTotalQuantity: true, FieldMaxQuantity: true, FieldItemNames: true,
}

func (c *Condition) lint() []string {
	var out []string
	switch {
	case c.Not != nil:
		out = append(out, c.Not.lint()...)
	case len(c.All) > 0 || len(c.Any) > 0:
		for i := range c.All {
			out = append(out, c.All[i].lint()...)
		}
		for i := range c.Any {
			out = append(out, c.Any[i].lint()...)
		}
	case c.Field != "":
		if !knownFields[c.Field] {
			out = append(out, fmt.Sprintf("unknown field %q", c.Field))
		}
		switch c.Op {
		case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpContains, OpIn, OpExists:
		default:
			out = append(out, fmt.Sprintf("unknown operator %q", c.Op))
		}
	default:
		out = append(out, "empty condition")
	}
	return out
}
