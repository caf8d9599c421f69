package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// ErrTimeout is returned when replaying a command takes longer than allowed.
var ErrTimeout = errors.New("timeout while executing command")

// Shell runs commands through the user's shell.
type Shell struct {
	// Name is the shell reported by the wrapper, e.g. bash, zsh, fish.
	Name string
	// Path overrides the resolved executable.
	Path string
}

// Invocation is a command together with the prefixes removed from it while
// matching.
type Invocation struct {
	Command   string
	Env       string
	Privilege string
}

func (inv Invocation) text() string {
	if inv.Env == "" {
		return inv.Command
	}
	return inv.Env + " " + inv.Command
}

func (s Shell) binary() string {
	if s.Path != "" {
		return s.Path
	}
	if s.Name != "" {
		if resolved, err := exec.LookPath(s.Name); err == nil {
			return resolved
		}
	}
	shell := strings.TrimSpace(os.Getenv("SHELL"))
	if shell != "" {
		if filepath.IsAbs(shell) {
			if _, err := os.Stat(shell); err == nil {
				return shell
			}
		} else if resolved, err := exec.LookPath(shell); err == nil {
			return resolved
		}
	}
	return "sh"
}

func (s Shell) invocation(command string) (string, []string) {
	if runtime.GOOS == "windows" && (s.Name == "" || s.Name == "cmd") && s.Path == "" {
		comspec := strings.TrimSpace(os.Getenv("COMSPEC"))
		if comspec == "" {
			comspec = "cmd"
		}
		return comspec, []string{"/C", command}
	}

	bin := s.binary()
	switch strings.TrimSuffix(filepath.Base(bin), ".exe") {
	case "pwsh", "powershell":
		return bin, []string{"-NoProfile", "-Command", command}
	default:
		return bin, []string{"-c", command}
	}
}

func (s Shell) command(ctx context.Context, inv Invocation) *exec.Cmd {
	bin, args := s.invocation(inv.text())
	if inv.Privilege != "" {
		return exec.CommandContext(ctx, inv.Privilege, append([]string{bin}, args...)...)
	}
	return exec.CommandContext(ctx, bin, args...)
}

// CaptureError replays a command with a C locale and returns what it
// printed, preferring stderr and falling back to stdout. The text is
// normalised with NormalizeError. Exceeding timeout yields ErrTimeout.
func (s Shell) CaptureError(ctx context.Context, inv Invocation, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := s.command(ctx, inv)
	cmd.Env = append(os.Environ(), "LC_ALL=C")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 100 * time.Millisecond

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %s", ErrTimeout, inv.Command)
		}
		return "", ctxErr
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return "", fmt.Errorf("could not run %q: %w", inv.Command, err)
	}

	if stderr.Len() > 0 {
		return NormalizeError(stderr.String()), nil
	}
	return NormalizeError(stdout.String()), nil
}

// NormalizeError lowercases error text and collapses all whitespace runs to
// single spaces.
func NormalizeError(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Output runs expr and returns its stdout. A non-zero exit status is not an
// error; whatever was printed is returned.
func (s Shell) Output(ctx context.Context, expr string) (string, error) {
	cmd := s.command(ctx, Invocation{Command: expr})
	cmd.Env = append(os.Environ(), "LC_ALL=C")
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = io.Discard

	err := cmd.Run()
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return "", fmt.Errorf("could not run %q: %w", expr, err)
	}
	return stdout.String(), nil
}

// Has reports whether the shell can resolve name as a command, which also
// covers functions and aliases defined in its startup files.
func (s Shell) Has(ctx context.Context, name string) bool {
	if name == "" || strings.ContainsAny(name, " \t\n;&|`$()<>'\"") {
		return false
	}
	probe := "command -v " + name
	switch s.Name {
	case "fish":
		probe = "type -q " + name
	case "pwsh", "powershell":
		probe = "Get-Command " + name
	case "nu":
		probe = "which " + name
	}
	cmd := s.command(ctx, Invocation{Command: probe})
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	return cmd.Run() == nil
}

// Run executes a chosen suggestion with the terminal attached. The command's
// stdout is written to stdout, which callers point at stderr so that only
// shell directives reach the wrapper's eval.
func (s Shell) Run(ctx context.Context, inv Invocation, stdout, stderr io.Writer) error {
	cmd := s.command(ctx, inv)
	cmd.Stdin = os.Stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// AddPrivilege prefixes command with privilege. Compound commands are
// wrapped in a nested shell so the privilege covers every part.
func AddPrivilege(shell, privilege, command string) string {
	if privilege == "" {
		return command
	}
	if strings.Contains(command, "&&") || strings.Contains(command, "||") || strings.Contains(command, ">") {
		return fmt.Sprintf("%s %s -c \"%s\"", privilege, shell, strings.ReplaceAll(command, `"`, `\"`))
	}
	return privilege + " " + command
}

// Syntax adapts generated command text to the target shell.
func Syntax(shell, command string) string {
	if shell == "nu" {
		return strings.ReplaceAll(command, "&&\n", ";\n")
	}
	return command
}

// ChangedDirectory returns the directory a successful command ends up in
// when it contains cd steps. The process cannot change the caller's
// directory, so the shell wrapper evaluates the returned path.
func ChangedDirectory(command string) string {
	dir := ""
	replacer := strings.NewReplacer("&&", "\n", "||", "\n", ";", "\n")
	for _, step := range strings.Split(replacer.Replace(command), "\n") {
		step = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(step), `\|&`))
		target, ok := strings.CutPrefix(step, "cd ")
		if !ok {
			continue
		}
		target = strings.TrimSpace(target)
		switch {
		case dir == "", filepath.IsAbs(target), strings.HasPrefix(target, "~"), target == "-":
			dir = target
		default:
			dir = filepath.Join(dir, target)
		}
	}
	return dir
}

// HighRisk flags commands that are never run without an explicit
// confirmation.
func HighRisk(command string) bool {
	low := strings.ToLower(strings.TrimSpace(command))
	highRiskPatterns := []string{
		"rm -rf",
		"rm -r /",
		"mkfs",
		"dd if=",
		"shutdown",
		"reboot",
		"userdel",
		"chmod 777 /",
		"--break-system-packages",
		"git push --force",
		"git reset --hard",
	}
	for _, pattern := range highRiskPatterns {
		if strings.Contains(low, pattern) {
			return true
		}
	}
	return false
}
