package rule

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFromFile reads a rule Set from a YAML file.
func LoadFromFile(path string) (*Set, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from config
	if err != nil {
		return nil, fmt.Errorf("read rules file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a rule Set from YAML bytes.
func Parse(data []byte) (*Set, error) {
	var s Set
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadOrDefault loads path, falling back to the Default preset when the
// file does not exist or path is empty.
func LoadOrDefault(path string) (*Set, error) {
	if path == "" {
		d := Default()
		return &d, nil
	}
	s, err := LoadFromFile(path)
	if errors.Is(err, os.ErrNotExist) {
		d := Default()
		return &d, nil
	}
	return s, err
}
