// Package rules holds the declarative correction rules and the engine that
// turns a failed command into suggestions: guard conditions, placeholder
// substitution and rule dispatch.
package rules

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Sentinel rule names consulted for every command.
const (
	General   = "_general"
	Privilege = "_privilege"
)

const (
	SourceBuiltin = "builtin"
	SourceRuntime = "runtime"
)

// Rule groups the error patterns known for one executable.
type Rule struct {
	Command  string       `toml:"command" yaml:"command"`
	MatchErr []MatchError `toml:"match_err" yaml:"match_err"`

	Source string `toml:"-" yaml:"-"`
	blocks []block
}

// MatchError pairs lowercase error substrings with the suggestions to try
// when any of them appears in the error text.
type MatchError struct {
	Pattern []string `toml:"pattern" yaml:"pattern"`
	Suggest []string `toml:"suggest" yaml:"suggest"`
}

type block struct {
	patterns  []string
	templates []Template
}

// Template is one suggestion: an optional guard and a body with placeholders.
type Template struct {
	Guard []Condition
	Body  string
}

// RuleError reports a defect in a rule definition. It is never a property of
// the user's command and callers treat it as fatal.
type RuleError struct {
	Rule     string
	Template string
	Err      error
}

func (e *RuleError) Error() string {
	if e.Template == "" {
		return fmt.Sprintf("malformed rule %q: %v", e.Rule, e.Err)
	}
	return fmt.Sprintf("malformed rule %q in suggestion %q: %v", e.Rule, e.Template, e.Err)
}

func (e *RuleError) Unwrap() error { return e.Err }

// ParseTOML decodes a rule file in TOML form.
func ParseTOML(name string, data []byte) (*Rule, error) {
	var r Rule
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&r); err != nil {
		return nil, &RuleError{Rule: name, Err: err}
	}
	return r.compile(name)
}

// ParseYAML decodes a rule file in YAML form. It uses the same keys as TOML.
func ParseYAML(name string, data []byte) (*Rule, error) {
	var r Rule
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&r); err != nil {
		return nil, &RuleError{Rule: name, Err: err}
	}
	return r.compile(name)
}

func (r *Rule) compile(name string) (*Rule, error) {
	if r.Command == "" {
		r.Command = name
	}
	if len(r.MatchErr) == 0 {
		return nil, &RuleError{Rule: r.Command, Err: fmt.Errorf("no match_err blocks")}
	}
	r.blocks = make([]block, 0, len(r.MatchErr))
	for i, m := range r.MatchErr {
		if len(m.Pattern) == 0 {
			return nil, &RuleError{Rule: r.Command, Err: fmt.Errorf("match_err %d has no pattern", i)}
		}
		b := block{}
		for _, p := range m.Pattern {
			p = strings.ToLower(strings.TrimSpace(p))
			if p == "" {
				return nil, &RuleError{Rule: r.Command, Err: fmt.Errorf("match_err %d has an empty pattern", i)}
			}
			b.patterns = append(b.patterns, p)
		}
		for _, raw := range m.Suggest {
			tmpl, err := ParseTemplate(raw)
			if err != nil {
				return nil, &RuleError{Rule: r.Command, Template: raw, Err: err}
			}
			b.templates = append(b.templates, tmpl)
		}
		r.blocks = append(r.blocks, b)
	}
	return r, nil
}

// match returns the templates of the first block with a pattern contained
// in the error text.
func (r *Rule) match(errText string) ([]Template, bool) {
	for _, b := range r.blocks {
		for _, p := range b.patterns {
			if strings.Contains(errText, p) {
				return b.templates, true
			}
		}
	}
	return nil, false
}

// ParseTemplate splits a suggestion into its guard and body. A guard starts
// with `#[` and may span lines until one ends with `]`.
func ParseTemplate(raw string) (Template, error) {
	text := strings.TrimLeft(raw, " \t\r\n")
	if !strings.HasPrefix(text, "#") {
		return Template{Body: strings.TrimSpace(text)}, nil
	}

	lines := strings.Split(text, "\n")
	end := -1
	for i, line := range lines {
		if strings.HasSuffix(strings.TrimSpace(line), "]") {
			end = i
			break
		}
	}
	if end < 0 {
		if first := strings.TrimSpace(lines[0]); strings.Contains(first, "]") {
			return Template{}, fmt.Errorf("guard must end its line: %q", first)
		}
		return Template{}, fmt.Errorf("unterminated guard")
	}

	guardText := strings.TrimSpace(strings.Join(lines[:end+1], "\n"))
	if !strings.HasPrefix(guardText, "#[") {
		return Template{}, fmt.Errorf("guard must start with #[")
	}
	guardText = strings.TrimSuffix(strings.TrimPrefix(guardText, "#["), "]")
	guard, err := parseGuard(guardText)
	if err != nil {
		return Template{}, err
	}
	body := strings.TrimSpace(strings.Join(lines[end+1:], "\n"))
	if body == "" {
		return Template{}, fmt.Errorf("empty suggestion body")
	}
	return Template{Guard: guard, Body: body}, nil
}
