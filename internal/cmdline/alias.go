package cmdline

import (
	"sort"
	"strings"
)

// Aliases maps an alias name to its expansion.
type Aliases map[string]string

// ParseAliases reads the alias dump a shell wrapper exports. Each shell prints
// aliases differently: bash as `alias name='value'` blocks, zsh as
// `name='value'` lines, fish as `alias name 'value'` lines. Anything else is
// read as plain `name=value` lines. Malformed lines are skipped.
func ParseAliases(shell, dump string) Aliases {
	if strings.TrimSpace(dump) == "" {
		return nil
	}
	aliases := Aliases{}
	switch shell {
	case "bash":
		for _, block := range strings.Split(dump, "\nalias ") {
			block = strings.TrimPrefix(block, "alias ")
			name, value, ok := strings.Cut(block, "=")
			if !ok {
				continue
			}
			aliases.set(name, strings.Trim(strings.TrimSpace(value), "'"))
		}
	case "zsh":
		for _, line := range strings.Split(dump, "\n") {
			name, value, ok := strings.Cut(line, "=")
			if !ok {
				continue
			}
			aliases.set(name, strings.Trim(strings.TrimSpace(value), "'"))
		}
	case "fish":
		for _, line := range strings.Split(dump, "\n") {
			line = strings.TrimPrefix(strings.TrimSpace(line), "alias ")
			name, value, ok := strings.Cut(line, " ")
			if !ok {
				continue
			}
			aliases.set(name, strings.Trim(strings.TrimSpace(value), "'"))
		}
	default:
		for _, line := range strings.Split(dump, "\n") {
			name, value, ok := strings.Cut(line, "=")
			if !ok {
				continue
			}
			aliases.set(name, value)
		}
	}
	if len(aliases) == 0 {
		return nil
	}
	return aliases
}

func (a Aliases) set(name, value string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	a[name] = value
}

// Names returns the alias names in sorted order.
func (a Aliases) Names() []string {
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Expand replaces the first word of every line that names an alias. It
// reports false when no line changed.
func (a Aliases) Expand(command string) (string, bool) {
	if len(a) == 0 {
		return command, false
	}
	lines := strings.Split(command, "\n")
	expanded := false
	for i, line := range lines {
		name, args, _ := strings.Cut(line, " ")
		value, ok := a[name]
		if !ok {
			continue
		}
		lines[i] = strings.TrimSpace(value + " " + args)
		expanded = true
	}
	if !expanded {
		return command, false
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), true
}
