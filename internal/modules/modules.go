// Package modules runs external suggestion plugins. A plugin is any program
// that reads the failed command from its environment and prints candidate
// fixes separated by <_PR_BR>.
package modules

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/shlex"
	"golang.org/x/sync/errgroup"
)

// Separator delimits candidates in plugin output.
const Separator = "<_PR_BR>"

// maxExecutablesEnv is the size at which _PR_EXECUTABLES is left out of a
// plugin's environment.
const maxExecutablesEnv = 100000

// Module is one plugin invocation: either an executable discovered by name
// or a command line from the config file.
type Module struct {
	Name string
	Argv []string
}

// Input is what a plugin gets to see about the failure.
type Input struct {
	Shell       string
	Command     string
	LastCommand string
	Error       string
	Executables []string
}

// FromPaths turns discovered plugin executables into modules.
func FromPaths(paths []string) []Module {
	out := make([]Module, 0, len(paths))
	for _, p := range paths {
		out = append(out, Module{Name: filepath.Base(p), Argv: []string{p}})
	}
	return out
}

// FromConfig splits configured command lines with shell quoting rules.
func FromConfig(lines []string) ([]Module, error) {
	out := make([]Module, 0, len(lines))
	for _, line := range lines {
		argv, err := shlex.Split(line)
		if err != nil {
			return nil, fmt.Errorf("invalid module command %q: %w", line, err)
		}
		if len(argv) == 0 {
			continue
		}
		out = append(out, Module{Name: line, Argv: argv})
	}
	return out, nil
}

// Runner executes plugins.
type Runner struct {
	// Stderr receives the plugins' own stderr. Defaults to os.Stderr.
	Stderr io.Writer
	Logger *slog.Logger
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r.Logger
}

// Run executes one plugin and returns its candidates. The exit status is
// ignored; a plugin that cannot be started contributes nothing.
func (r *Runner) Run(ctx context.Context, m Module, in Input) []string {
	if len(m.Argv) == 0 {
		return nil
	}
	cmd := exec.CommandContext(ctx, m.Argv[0], m.Argv[1:]...)
	cmd.Env = append(os.Environ(), environment(in)...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = r.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			r.logger().Debug("module failed to start", "module", m.Name, "error", err)
			return nil
		}
	}
	out := Split(stdout.String())
	r.logger().Debug("module finished", "module", m.Name, "candidates", len(out))
	return out
}

// RunAll runs every module concurrently. Results keep the order of mods.
func (r *Runner) RunAll(ctx context.Context, mods []Module, in Input) []string {
	results := make([][]string, len(mods))
	g, ctx := errgroup.WithContext(ctx)
	for i, m := range mods {
		g.Go(func() error {
			results[i] = r.Run(ctx, m, in)
			return nil
		})
	}
	_ = g.Wait()

	var out []string
	for _, res := range results {
		out = append(out, res...)
	}
	return out
}

// FirstNonEmpty runs fallback modules one at a time and stops at the first
// that produces a candidate.
func (r *Runner) FirstNonEmpty(ctx context.Context, mods []Module, in Input) []string {
	for _, m := range mods {
		if out := r.Run(ctx, m, in); len(out) > 0 {
			return out
		}
	}
	return nil
}

// Split breaks plugin output into trimmed, non-empty candidates.
func Split(output string) []string {
	var out []string
	for _, part := range strings.Split(output, Separator) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func environment(in Input) []string {
	env := []string{
		"_PR_COMMAND=" + in.Command,
		"_PR_SHELL=" + in.Shell,
		"_PR_LAST_COMMAND=" + in.LastCommand,
		"_PR_ERROR_MSG=" + in.Error,
	}
	if exes := strings.Join(in.Executables, " "); len(exes) < maxExecutablesEnv {
		env = append(env, "_PR_EXECUTABLES="+exes)
	}
	return env
}
