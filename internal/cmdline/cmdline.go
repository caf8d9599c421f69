// Package cmdline turns the raw text of a failed command into the facts the
// rule engine matches on: shell words, privilege prefix, environment prefix
// and alias expansion.
package cmdline

import (
	"errors"
	"regexp"
	"strings"
)

// DefaultPrivileges are the privilege escalation commands recognised when no
// explicit one is configured.
var DefaultPrivileges = []string{"sudo", "doas"}

var ErrEmpty = errors.New("empty command")

// wordPattern keeps quotes and backslash escapes inside the word they belong
// to. A newline is a word of its own.
var wordPattern = regexp.MustCompile(`([^\s"'\\]+|"(?:\\.|[^"\\])*"|'(?:\\.|[^'\\])*'|\\ )+|\\|\n`)

// Split breaks a command into shell words. Quotes are not removed.
func Split(command string) []string {
	return wordPattern.FindAllString(command, -1)
}

// Command is a failed command prepared for matching.
type Command struct {
	// Text is the command without privilege and environment prefixes.
	Text      string
	Tokens    []string
	Privilege string
	Env       string
}

// Parser holds the per-invocation settings used to prepare commands.
type Parser struct {
	Privileges []string
	Aliases    Aliases
}

// Parse strips the privilege prefix and leading environment assignments, then
// expands aliases. It fails with ErrEmpty when nothing is left to match.
func (p Parser) Parse(raw string) (Command, error) {
	cmd := Command{}
	if err := p.update(&cmd, strings.TrimSpace(raw)); err != nil {
		return Command{}, err
	}

	env, rest := splitEnv(cmd.Tokens)
	if len(env) > 0 {
		if len(rest) == 0 {
			return Command{}, ErrEmpty
		}
		cmd.Env = strings.Join(env, " ")
		cmd.Text = strings.Join(rest, " ")
		cmd.Tokens = rest
	}

	if expanded, ok := p.Aliases.Expand(cmd.Text); ok {
		if err := p.update(&cmd, expanded); err != nil {
			return Command{}, err
		}
	}
	return cmd, nil
}

// Update replaces the command text, keeping the environment prefix. A
// privilege prefix found in the new text replaces the current one.
func (p Parser) Update(cmd *Command, text string) error {
	return p.update(cmd, strings.TrimSpace(text))
}

func (p Parser) update(cmd *Command, text string) error {
	if priv, rest, ok := p.StripPrivilege(text); ok {
		cmd.Privilege = priv
		text = rest
	}
	tokens := Split(text)
	if len(tokens) == 0 {
		return ErrEmpty
	}
	cmd.Text = text
	cmd.Tokens = tokens
	return nil
}

// StripPrivilege removes a leading privilege command from text.
func (p Parser) StripPrivilege(text string) (string, string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", text, false
	}
	first := fields[0]
	for _, priv := range p.privileges() {
		if first == priv {
			rest := strings.TrimSpace(strings.Replace(text, priv, "", 1))
			return priv, rest, true
		}
	}
	return "", text, false
}

// IsPrivilege reports whether word is one of the recognised privilege commands.
func (p Parser) IsPrivilege(word string) bool {
	for _, priv := range p.privileges() {
		if word == priv {
			return true
		}
	}
	return false
}

func (p Parser) privileges() []string {
	if len(p.Privileges) > 0 {
		return p.Privileges
	}
	return DefaultPrivileges
}

// splitEnv separates leading VAR=value words. The first character is skipped
// so a word that starts with '=' is not mistaken for an assignment.
func splitEnv(tokens []string) ([]string, []string) {
	i := 0
	for i < len(tokens) {
		token := tokens[i]
		if len(token) < 2 || !strings.Contains(token[1:], "=") {
			break
		}
		i++
	}
	return tokens[:i], tokens[i:]
}
