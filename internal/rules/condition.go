package rules

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Condition is one guard predicate, optionally negated.
type Condition struct {
	Name   string
	Arg    string
	Negate bool

	re *regexp.Regexp
	n  int
}

func parseGuard(text string) ([]Condition, error) {
	var conds []Condition
	for _, part := range splitTopLevel(text, ',') {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		cond, err := parseCondition(part)
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)
	}
	if len(conds) == 0 {
		return nil, fmt.Errorf("empty guard")
	}
	return conds, nil
}

func parseCondition(text string) (Condition, error) {
	cond := Condition{}
	if strings.HasPrefix(text, "!") {
		cond.Negate = true
		text = strings.TrimSpace(text[1:])
	}
	open := strings.Index(text, "(")
	if open <= 0 || !strings.HasSuffix(text, ")") {
		return Condition{}, fmt.Errorf("malformed condition %q", text)
	}
	cond.Name = strings.TrimSpace(text[:open])
	cond.Arg = strings.TrimSpace(text[open+1 : len(text)-1])

	switch cond.Name {
	case "executable", "exe_contains", "shell":
	case "err_contains", "cmd_contains":
		re, err := regexp.Compile(cond.Arg)
		if err != nil {
			return Condition{}, fmt.Errorf("condition %s: %w", cond.Name, err)
		}
		cond.re = re
	case "min_length", "length", "max_length":
		n, err := strconv.Atoi(cond.Arg)
		if err != nil {
			return Condition{}, fmt.Errorf("condition %s needs a number, got %q", cond.Name, cond.Arg)
		}
		cond.n = n
	default:
		return Condition{}, fmt.Errorf("unknown condition %q", cond.Name)
	}
	return cond, nil
}

// splitTopLevel splits on sep outside of parentheses, so regex arguments may
// contain commas.
func splitTopLevel(text string, sep rune) []string {
	var parts []string
	depth := 0
	start := 0
	for i, r := range text {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case sep:
			if depth == 0 {
				parts = append(parts, text[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, text[start:])
}

// conditionEnv answers predicates against one invocation.
type conditionEnv struct {
	ctx   context.Context
	in    Input
	shell Shell
	// probe lets executable() fall back to asking the shell, which runtime
	// rules rely on for names missing from PATH.
	probe bool
}

func (e conditionEnv) holds(c Condition) bool {
	var ok bool
	switch c.Name {
	case "executable":
		ok = e.in.Executables.Contains(c.Arg)
		if !ok && e.probe && e.shell != nil {
			ok = e.shell.Has(e.ctx, c.Arg)
		}
	case "err_contains":
		ok = c.re.MatchString(e.in.Error)
	case "cmd_contains":
		ok = c.re.MatchString(e.in.Command)
	case "exe_contains":
		ok = len(e.in.Tokens) > 0 && strings.Contains(e.in.Tokens[0], c.Arg)
	case "min_length":
		ok = len(e.in.Tokens) >= c.n
	case "length":
		ok = len(e.in.Tokens) == c.n
	case "max_length":
		ok = len(e.in.Tokens) <= c.n+1
	case "shell":
		ok = e.in.Shell == c.Arg
	}
	return ok != c.Negate
}

// passes reports whether every condition of the guard holds.
func (e conditionEnv) passes(guard []Condition) bool {
	for _, c := range guard {
		if !e.holds(c) {
			return false
		}
	}
	return true
}
