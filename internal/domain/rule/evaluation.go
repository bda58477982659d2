package rule

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Strob0t/PaperDesk/internal/domain/workflow"
)

// Evaluation errors. A condition that fails to evaluate counts as not matched.
var (
	ErrUnknownField = errors.New("unknown field")
	ErrUnknownOp    = errors.New("unknown operator")
	ErrTypeMismatch = errors.New("type mismatch")
	ErrMalformed    = errors.New("malformed condition")
)

// Evaluate reports whether req is accepted.
func (s *Set) Evaluate(req *workflow.Request) bool {
	return s.Decide(req).Accepted
}

// Decide evaluates enabled rules in order; the first match decides.
// Reject yields false, any other action yields true. No match accepts.
func (s *Set) Decide(req *workflow.Request) Decision {
	facts := Facts(req)
	var d Decision

	for i := range s.Rules {
		r := &s.Rules[i]
		if !r.IsEnabled() {
			continue
		}
		ok, err := r.Condition.Match(facts)
		if err != nil {
			d.Skipped = append(d.Skipped, r.ID)
			d.EvalError = append(d.EvalError, fmt.Sprintf("%s: %v", r.ID, err))
			continue
		}
		if !ok {
			continue
		}
		d.RuleID = r.ID
		d.Action = r.Action
		d.Accepted = r.Action != ActionReject
		if d.Accepted {
			d.Reason = fmt.Sprintf("accepted by rule %s", r.ID)
		} else {
			d.Reason = rejectReason(r)
		}
		return d
	}

	d.Accepted = true
	d.Reason = "no matching rule; accept by default"
	return d
}

func rejectReason(r *Rule) string {
	if msg, ok := r.Parameters["message"].(string); ok && msg != "" {
		return msg
	}
	if r.Description != "" {
		return fmt.Sprintf("rejected by rule %s: %s", r.ID, r.Description)
	}
	return fmt.Sprintf("rejected by rule %s", r.ID)
}

// Match evaluates c against facts.
func (c *Condition) Match(facts map[string]any) (bool, error) {
	switch {
	case c.Not != nil:
		ok, err := c.Not.Match(facts)
		return !ok, err
	case len(c.All) > 0:
		for i := range c.All {
			ok, err := c.All[i].Match(facts)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case len(c.Any) > 0:
		for i := range c.Any {
			ok, err := c.Any[i].Match(facts)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case c.Field != "":
		return c.matchLeaf(facts)
	default:
		return false, ErrMalformed
	}
}

func (c *Condition) matchLeaf(facts map[string]any) (bool, error) {
	actual, ok := facts[c.Field]
	if !ok {
		return false, fmt.Errorf("%w %q", ErrUnknownField, c.Field)
	}

	switch c.Op {
	case OpExists:
		return !isZero(actual), nil
	case OpEq, OpNe:
		eq, err := equal(actual, c.Value)
		if err != nil {
			return false, fmt.Errorf("%s %s: %w", c.Field, c.Op, err)
		}
		return eq == (c.Op == OpEq), nil
	case OpGt, OpGte, OpLt, OpLte:
		a, aok := toFloat(actual)
		b, bok := toFloat(c.Value)
		if !aok || !bok {
			return false, fmt.Errorf("%s %s: %w: need numbers", c.Field, c.Op, ErrTypeMismatch)
		}
		switch c.Op {
		case OpGt:
			return a > b, nil
		case OpGte:
			return a >= b, nil
		case OpLt:
			return a < b, nil
		default:
			return a <= b, nil
		}
	case OpContains:
		return contains(actual, c.Value)
	case OpIn:
		list, ok := asList(c.Value)
		if !ok {
			return false, fmt.Errorf("%s in: %w: value must be a list", c.Field, ErrTypeMismatch)
		}
		for _, v := range list {
			if eq, err := equal(actual, v); err == nil && eq {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("%w %q", ErrUnknownOp, c.Op)
	}
}

func equal(actual, want any) (bool, error) {
	if a, ok := toFloat(actual); ok {
		b, ok := toFloat(want)
		if !ok {
			return false, fmt.Errorf("%w: cannot compare number with %T", ErrTypeMismatch, want)
		}
		return a == b, nil
	}
	s, ok := actual.(string)
	if !ok {
		return false, fmt.Errorf("%w: cannot compare %T", ErrTypeMismatch, actual)
	}
	w, ok := want.(string)
	if !ok {
		return false, fmt.Errorf("%w: cannot compare string with %T", ErrTypeMismatch, want)
	}
	return strings.EqualFold(s, w), nil
}

func contains(actual, want any) (bool, error) {
	w, ok := want.(string)
	if !ok {
		return false, fmt.Errorf("contains: %w: value must be a string", ErrTypeMismatch)
	}
	switch a := actual.(type) {
	case string:
		return strings.Contains(strings.ToLower(a), strings.ToLower(w)), nil
	case []string:
		for _, s := range a {
			if strings.EqualFold(s, w) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("contains: %w: field is %T", ErrTypeMismatch, actual)
	}
}

func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

func isZero(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case float64:
		return x == 0
	case []string:
		return len(x) == 0
	default:
		return false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
