// Package modulematch maps module ids to chunk names via ordered path glob rules.
package modulematch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// ErrInvalidRule is returned by Validate for malformed rule sets.
var ErrInvalidRule = errors.New("invalid chunk rule")

// Rule assigns every module matching one of Paths to the chunk Name.
type Rule struct {
	Name  string   `yaml:"name" json:"name"`
	Paths []string `yaml:"paths" json:"paths"`
}

// RulesConfig is the on-disk form of a rule set.
type RulesConfig struct {
	Chunks []Rule `yaml:"chunks"`
}

// Matcher evaluates rules in declaration order.
type Matcher struct {
	rules []Rule
}

// NewMatcher creates a matcher from a list of rules.
func NewMatcher(rules []Rule) *Matcher {
	return &Matcher{rules: rules}
}

// Load reads a rule set from a YAML file.
func Load(path string) (*Matcher, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	return parse(data)
}

// LoadOrEmpty loads rules from path, or returns an empty matcher if the file
// doesn't exist.
func LoadOrEmpty(path string) (*Matcher, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Matcher{rules: []Rule{}}, nil
		}
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Matcher, error) {
	var config RulesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing rules file: %w", err)
	}
	m := &Matcher{rules: config.Chunks}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Save writes the rule set to a YAML file, creating the parent directory.
func (m *Matcher) Save(path string) error {
	data, err := yaml.Marshal(&RulesConfig{Chunks: m.rules})
	if err != nil {
		return fmt.Errorf("marshaling rules: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing rules file: %w", err)
	}
	return nil
}

// Validate checks that every rule has a unique non-empty name and at least
// one well-formed pattern.
func (m *Matcher) Validate() error {
	seen := make(map[string]bool, len(m.rules))
	for i, r := range m.rules {
		if strings.TrimSpace(r.Name) == "" {
			return fmt.Errorf("%w: rule %d has no name", ErrInvalidRule, i)
		}
		if seen[r.Name] {
			return fmt.Errorf("%w: duplicate rule %q", ErrInvalidRule, r.Name)
		}
		seen[r.Name] = true
		if len(r.Paths) == 0 {
			return fmt.Errorf("%w: rule %q has no paths", ErrInvalidRule, r.Name)
		}
		for _, p := range r.Paths {
			if !doublestar.ValidatePattern(expand(p)) {
				return fmt.Errorf("%w: rule %q has bad pattern %q", ErrInvalidRule, r.Name, p)
			}
		}
	}
	return nil
}

// Match returns the name of the first rule with a pattern matching id.
func (m *Matcher) Match(id string) (string, bool) {
	if m == nil {
		return "", false
	}
	target := normalize(id)
	for _, r := range m.rules {
		if r.matches(target) {
			return r.Name, true
		}
	}
	return "", false
}

// MatchAll returns the names of every rule matching id, in rule order.
func (m *Matcher) MatchAll(id string) []string {
	if m == nil {
		return nil
	}
	target := normalize(id)
	var matched []string
	for _, r := range m.rules {
		if r.matches(target) {
			matched = append(matched, r.Name)
		}
	}
	return matched
}

func (r Rule) matches(target string) bool {
	for _, pattern := range r.Paths {
		ok, err := doublestar.Match(expand(pattern), target)
		if err != nil {
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

// Rules returns all rules.
func (m *Matcher) Rules() []Rule {
	if m == nil {
		return nil
	}
	return m.rules
}

// Len returns the number of rules.
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.rules)
}

// Rule returns a rule by name.
func (m *Matcher) Rule(name string) *Rule {
	for i := range m.rules {
		if m.rules[i].Name == name {
			return &m.rules[i]
		}
	}
	return nil
}

// Add adds a rule, or replaces the paths of an existing one in place so its
// precedence is kept.
func (m *Matcher) Add(name string, paths []string) {
	for i := range m.rules {
		if m.rules[i].Name == name {
			m.rules[i].Paths = paths
			return
		}
	}
	m.rules = append(m.rules, Rule{Name: name, Paths: paths})
}

// Remove removes a rule by name.
func (m *Matcher) Remove(name string) bool {
	for i := range m.rules {
		if m.rules[i].Name == name {
			m.rules = append(m.rules[:i], m.rules[i+1:]...)
			return true
		}
	}
	return false
}

// normalize turns a module id into a slash-separated relative path.
func normalize(id string) string {
	id = strings.ReplaceAll(id, "\\", "/")
	id = strings.TrimPrefix(id, "./")
	return strings.TrimLeft(id, "/")
}

// expand anchors patterns starting with "/" at the id root and lets every
// other pattern match at any depth.
func expand(pattern string) string {
	switch {
	case strings.HasPrefix(pattern, "/"):
		return strings.TrimLeft(pattern, "/")
	case strings.HasPrefix(pattern, "**"):
		return pattern
	default:
		return "**/" + pattern
	}
}
