// Package shellinit renders the shell integration scripts and the lines the
// integration evaluates after a suggestion ran.
package shellinit

import (
	"embed"
	"errors"
	"fmt"
	"strings"
)

//go:embed shell/respects.bash
//go:embed shell/respects.zsh
//go:embed shell/respects.fish
var shellScripts embed.FS

const DefaultAlias = "f"

var ErrUnknownShell = errors.New("unsupported shell")

const (
	cnfBegin = "# cnf-begin\n"
	cnfEnd   = "# cnf-end\n"
)

type Options struct {
	Shell  string
	Alias  string
	Binary string
	// CommandNotFound installs the shell's command-not-found hook.
	CommandNotFound bool
}

// Supported lists the shells that have an integration script.
func Supported() []string {
	return []string{"bash", "zsh", "fish"}
}

// Script returns the integration script for opts.Shell.
func Script(opts Options) (string, error) {
	var filename string
	switch opts.Shell {
	case "bash":
		filename = "shell/respects.bash"
	case "zsh":
		filename = "shell/respects.zsh"
	case "fish":
		filename = "shell/respects.fish"
	default:
		return "", fmt.Errorf("%w: %s (supported: %s)", ErrUnknownShell, opts.Shell, strings.Join(Supported(), ", "))
	}

	content, err := shellScripts.ReadFile(filename)
	if err != nil {
		return "", fmt.Errorf("could not read shell script: %w", err)
	}

	alias := strings.TrimSpace(opts.Alias)
	if alias == "" {
		alias = DefaultAlias
	}
	binary := opts.Binary
	if binary == "" {
		binary = "respects"
	}

	script := string(content)
	if opts.CommandNotFound {
		script = strings.ReplaceAll(script, cnfBegin, "")
		script = strings.ReplaceAll(script, cnfEnd, "")
	} else {
		script = stripBlock(script)
	}
	script = strings.ReplaceAll(script, "{{RESPECTS_ALIAS}}", alias)
	script = strings.ReplaceAll(script, "{{RESPECTS_BINARY}}", quote(opts.Shell, binary))
	return script, nil
}

func stripBlock(script string) string {
	start := strings.Index(script, cnfBegin)
	end := strings.Index(script, cnfEnd)
	if start < 0 || end < start {
		return script
	}
	return script[:start] + script[end+len(cnfEnd):]
}

func quote(shell, s string) string {
	if shell == "fish" {
		return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s) + "'"
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Eval returns the text the integration evaluates after a cycle. command is
// set when the shell, not respects, runs the chosen suggestion; it is then
// also added to the shell history. cd is the directory the command moved
// into, if any.
func Eval(shell, command, cd string) string {
	var lines []string
	if command != "" {
		escaped := strings.NewReplacer(`\`, `\\`, `$`, `\$`, "`", "\\`", `"`, `\"`).Replace(command)
		switch shell {
		case "bash":
			lines = append(lines, command, `history -s "`+escaped+`"`)
		case "zsh":
			lines = append(lines, command, `print -s "`+escaped+`"`)
		default:
			lines = append(lines, command)
		}
	}
	if cd != "" {
		lines = append(lines, "cd "+cd)
	}
	return strings.Join(lines, "\n")
}
