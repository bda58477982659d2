package service

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/Strob0t/PaperDesk/internal/domain/rule"
	"github.com/Strob0t/PaperDesk/internal/domain/workflow"
)

// RuleService evaluates requests against the active business rule set.
// The set can be swapped at runtime.
type RuleService struct {
	mu   sync.RWMutex
	set  *rule.Set
	path string
}

// NewRuleService creates a RuleService over set.
func NewRuleService(set *rule.Set) *RuleService {
	logWarnings(set)
	return &RuleService{set: set}
}

// LoadRuleService loads rules from path, falling back to the built-in preset
// when the file does not exist.
func LoadRuleService(path string) (*RuleService, error) {
	set, err := rule.LoadOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	svc := NewRuleService(set)
	svc.path = path
	slog.Info("business rules loaded", "set", set.Name, "rules", len(set.Rules), "path", path)
	return svc, nil
}

// Decide evaluates req. Rules whose condition cannot be evaluated are
// skipped and logged.
func (s *RuleService) Decide(req *workflow.Request) rule.Decision {
	s.mu.RLock()
	set := s.set
	s.mu.RUnlock()

	d := set.Decide(req)
	for _, e := range d.EvalError {
		slog.Warn("business rule evaluation failed, treating as no match", "detail", e)
	}
	return d
}

// Evaluate reports whether req is accepted.
func (s *RuleService) Evaluate(req *workflow.Request) bool {
	return s.Decide(req).Accepted
}

// Rules returns the active rule set.
func (s *RuleService) Rules() rule.Set {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.set
}

// Replace validates and installs set.
func (s *RuleService) Replace(set *rule.Set) error {
	if err := set.Validate(); err != nil {
		return err
	}
	logWarnings(set)
	s.mu.Lock()
	s.set = set
	s.mu.Unlock()
	slog.Info("business rules replaced", "set", set.Name, "rules", len(set.Rules))
	return nil
}

// Reload re-reads the file the service was loaded from.
func (s *RuleService) Reload() error {
	set, err := rule.LoadOrDefault(s.path)
	if err != nil {
		return fmt.Errorf("reload rules: %w", err)
	}
	return s.Replace(set)
}

func logWarnings(set *rule.Set) {
	for _, w := range set.Warnings() {
		slog.Warn("business rule warning", "set", set.Name, "detail", w)
	}
}
