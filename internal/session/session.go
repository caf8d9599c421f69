// Package session runs one suggestion cycle: it gathers candidates for the
// failed command, lets the user pick one, runs it and starts over with the
// new error when the pick fails too.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/respects-sh/respects/internal/candidates"
	"github.com/respects-sh/respects/internal/config"
	"github.com/respects-sh/respects/internal/fuzzy"
	"github.com/respects-sh/respects/internal/i18n"
	"github.com/respects-sh/respects/internal/modules"
	"github.com/respects-sh/respects/internal/provider"
	"github.com/respects-sh/respects/internal/rules"
	"github.com/respects-sh/respects/internal/runtime"
	"github.com/respects-sh/respects/internal/shellinit"
	"github.com/respects-sh/respects/internal/style"
	"github.com/respects-sh/respects/internal/ui"
)

const Repository = "https://github.com/respects-sh/respects"

// cnfThreshold is stricter than the typo default: a wrong program name is
// replaced without asking about the arguments.
const cnfThreshold = 3

var (
	// ErrAborted is returned when the user leaves the picker.
	ErrAborted = ui.ErrAborted
	// ErrSlowFailure is returned when a chosen command failed after running
	// longer than the replay timeout. Replaying it for its error would take
	// just as long.
	ErrSlowFailure = errors.New("command failed after the replay timeout")
)

// Runner is the part of runtime.Shell the session needs.
type Runner interface {
	rules.Shell
	CaptureError(ctx context.Context, inv runtime.Invocation, timeout time.Duration) (string, error)
	Run(ctx context.Context, inv runtime.Invocation, stdout, stderr io.Writer) error
}

// Picker asks the user to choose.
type Picker interface {
	Select(title string, options []ui.Option) (int, error)
	Confirm(title, command string) (bool, error)
}

// Advisor is the AI fallback.
type Advisor interface {
	Suggest(ctx context.Context, cfg config.Config, req provider.Request) (provider.Suggestion, string, error)
}

type Session struct {
	Config  config.Config
	Catalog i18n.Catalog
	Store   *rules.Store
	Runner  Runner
	Picker  Picker
	// Advisor is consulted on every pass while the AI is enabled. Nil
	// disables it.
	Advisor Advisor
	Modules *modules.Runner
	Styler  *style.Styler
	// Stdout is evaluated by the shell integration. Everything meant for
	// the user goes to Stderr.
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func (s *Session) stdout() io.Writer {
	if s.Stdout != nil {
		return s.Stdout
	}
	return os.Stdout
}

func (s *Session) stderr() io.Writer {
	if s.Stderr != nil {
		return s.Stderr
	}
	return os.Stderr
}

func (s *Session) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *Session) styler() *style.Styler {
	if s.Styler == nil {
		s.Styler = style.New(s.stderr())
	}
	return s.Styler
}

// Run dispatches on the mode read from the environment.
func (s *Session) Run(ctx context.Context, d *Data) error {
	switch d.Mode {
	case ModeEcho:
		return s.echo(ctx, d)
	case ModeNoConfirm:
		return s.noConfirm(ctx, d)
	case ModeCnf:
		return s.cnf(ctx, d)
	default:
		return s.suggestion(ctx, d)
	}
}

// Suggest collects the candidates for the current command and error.
// Module output comes first, then rule output. Fallback modules are only
// asked when both are empty. AI answers, when enabled, are appended last.
func (s *Session) Suggest(ctx context.Context, d *Data) ([]string, error) {
	executable := d.executable()
	if executable == "" {
		return nil, nil
	}
	log := s.logger()
	log.Debug("suggesting", "command", d.Command.Text, "privilege", d.Command.Privilege, "error", d.Error)

	in := rules.Input{
		Shell:       d.Shell,
		Command:     d.Command.Text,
		Tokens:      d.Command.Tokens,
		Error:       d.Error,
		Executables: d.Executables,
	}
	modIn := modules.Input{
		Shell:       d.Shell,
		Command:     executable,
		LastCommand: d.Command.Text,
		Error:       d.Error,
	}
	if len(d.Modules) > 0 || len(d.Fallbacks) > 0 {
		modIn.Executables = d.Executables.Names()
	}

	var moduleOut []string
	var g errgroup.Group
	if len(d.Modules) > 0 {
		g.Go(func() error {
			moduleOut = s.moduleRunner().RunAll(ctx, d.Modules, modIn)
			return nil
		})
	}

	fromRules := candidates.NewList(d.Command.Text)
	dispatcher := &rules.Dispatcher{Store: s.Store, Shell: s.Runner, Logger: log}
	names := []string{rules.General, executable}
	if d.Command.Privilege == "" {
		names = append([]string{rules.Privilege}, names...)
	}
	var dispatchErr error
	for _, name := range names {
		if dispatchErr = dispatcher.Dispatch(ctx, name, in, fromRules); dispatchErr != nil {
			break
		}
	}
	_ = g.Wait()
	if dispatchErr != nil {
		return nil, dispatchErr
	}

	merged := candidates.NewList(d.Command.Text)
	merged.Add(moduleOut...)
	merged.Merge(fromRules)

	if merged.Empty() && len(d.Fallbacks) > 0 {
		merged.Add(s.moduleRunner().FirstNonEmpty(ctx, d.Fallbacks, modIn)...)
	}
	merged.Add(s.advise(ctx, d)...)

	out := merged.Items()
	for i, c := range out {
		out[i] = runtime.Syntax(d.Shell, c)
	}
	log.Debug("candidates", "count", len(out))
	return out, nil
}

func (s *Session) moduleRunner() *modules.Runner {
	if s.Modules == nil {
		s.Modules = &modules.Runner{Stderr: s.stderr(), Logger: s.logger()}
	}
	return s.Modules
}

// advise asks the AI fallback. Failures are logged and yield nothing.
func (s *Session) advise(ctx context.Context, d *Data) []string {
	if s.Advisor == nil || !s.Config.AI.Enabled || d.AIDisabled {
		return nil
	}
	locale := d.AILocale
	if locale == "" {
		locale = s.Catalog.Locale
	}
	if thinking := s.Catalog.Thinking; len(thinking) > 0 {
		fmt.Fprintln(s.stderr(), s.styler().Note(thinking[rand.IntN(len(thinking))]+"..."))
	}

	command := d.Command.Text
	if d.Command.Privilege != "" {
		command = d.Command.Privilege + " " + command
	}
	suggestion, name, err := s.Advisor.Suggest(ctx, s.Config, provider.Request{
		Shell:   d.Shell,
		Command: command,
		Error:   d.Error,
		Locale:  locale,
		Extra:   d.AIExtra,
	})
	if err != nil {
		s.logger().Debug("ai fallback produced nothing", "error", err)
		return nil
	}
	if suggestion.Note != "" {
		fmt.Fprintf(s.stderr(), "%s (%s): %s\n\n", s.styler().Bold(s.Catalog.Messages.AISuggestion), name, suggestion.Note)
	}
	return suggestion.Commands
}

func (s *Session) suggestion(ctx context.Context, d *Data) error {
	var last string
	for {
		last = d.Command.Text
		found, err := s.Suggest(ctx, d)
		if err != nil {
			return err
		}
		if len(found) == 0 {
			break
		}

		chosen, err := s.pick(d, found)
		if err != nil {
			return err
		}
		ok, err := s.execute(ctx, d, chosen)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		fmt.Fprintf(s.stderr(), "\n%s\n\n", s.styler().Bold(s.Catalog.Messages.Retry+"..."))
	}
	s.noSuggestion(last)
	return nil
}

func (s *Session) pick(d *Data, found []string) (string, error) {
	msgs := s.Catalog.Messages
	title := i18n.Format(msgs.MultiSuggest, map[string]string{"num": fmt.Sprint(len(found))})
	options := make([]ui.Option, 0, len(found))
	for _, c := range found {
		options = append(options, ui.Option{Label: s.styler().Highlight(d.Command.Text, c), Value: c})
	}
	index, err := s.Picker.Select(title, options)
	if err != nil {
		return "", err
	}
	return found[index], nil
}

func (s *Session) noSuggestion(last string) {
	msgs := s.Catalog.Messages
	fmt.Fprintf(s.stderr(), "%s: %s\n\n", msgs.NoSuggestion, s.styler().Warn(last))
	fmt.Fprintf(s.stderr(), "%s\n%s\n", msgs.Contribute, Repository)
}

// execute runs a chosen suggestion. It reports false when the command
// failed; Command and Error then describe the new failure.
func (s *Session) execute(ctx context.Context, d *Data, chosen string) (bool, error) {
	if expanded, ok := d.Parser.Aliases.Expand(chosen); ok {
		chosen = expanded
	}
	if priv, rest, ok := d.Parser.StripPrivilege(chosen); ok {
		d.Command.Privilege = priv
		chosen = rest
	}
	inv := runtime.Invocation{Command: chosen, Env: d.Command.Env, Privilege: d.Command.Privilege}

	if s.Config.EvalMethod == config.EvalShell {
		text := chosen
		if inv.Env != "" {
			text = inv.Env + " " + text
		}
		fmt.Fprintln(s.stdout(), shellinit.Eval(d.Shell, runtime.AddPrivilege(d.Shell, inv.Privilege, text), ""))
		return true, nil
	}

	s.logger().Debug("running", "command", chosen, "privilege", inv.Privilege)
	started := time.Now()
	err := s.Runner.Run(ctx, inv, s.stderr(), s.stderr())
	if err == nil {
		if dir := runtime.ChangedDirectory(chosen); dir != "" {
			fmt.Fprintln(s.stdout(), shellinit.Eval(d.Shell, "", dir))
		}
		return true, nil
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false, fmt.Errorf("could not run %q: %w", chosen, err)
	}
	if time.Since(started) > s.Config.ReplayTimeout() {
		return false, ErrSlowFailure
	}

	if err := d.Parser.Update(&d.Command, chosen); err != nil {
		return false, err
	}
	d.Error, err = s.Runner.CaptureError(ctx, inv, s.Config.ReplayTimeout())
	if err != nil {
		return false, err
	}
	return false, nil
}

// echo prints the candidates for a caller that runs them itself.
func (s *Session) echo(ctx context.Context, d *Data) error {
	found, err := s.Suggest(ctx, d)
	if err != nil {
		return err
	}
	if len(found) > 0 {
		fmt.Fprintln(s.stdout(), strings.Join(found, modules.Separator))
	}
	return nil
}

// noConfirm runs the first candidate of every round. Destructive commands
// still ask, and a candidate that already failed ends the cycle.
func (s *Session) noConfirm(ctx context.Context, d *Data) error {
	tried := map[string]struct{}{}
	var last string
	for {
		last = d.Command.Text
		found, err := s.Suggest(ctx, d)
		if err != nil {
			return err
		}
		if len(found) == 0 {
			break
		}
		first := found[0]
		if _, ok := tried[first]; ok {
			break
		}
		tried[first] = struct{}{}

		if runtime.HighRisk(first) {
			ok, err := s.Picker.Confirm(s.Catalog.Messages.HighRisk, s.styler().Highlight(d.Command.Text, first))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(s.stderr(), s.Catalog.Messages.Aborted)
				return nil
			}
		} else {
			fmt.Fprintln(s.stderr(), s.styler().Highlight(d.Command.Text, first))
		}

		ok, err := s.execute(ctx, d, first)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		fmt.Fprintf(s.stderr(), "\n%s\n\n", s.styler().Bold(s.Catalog.Messages.Retry+"..."))
	}
	s.noSuggestion(last)
	return nil
}

// cnf handles a command the shell could not find. Every executable name
// tied at the closest distance is offered; if the pick fails the regular
// cycle takes over.
func (s *Session) cnf(ctx context.Context, d *Data) error {
	executable := d.Command.Tokens[0]
	fmt.Fprintf(s.stderr(), "%s %s: %s\n\n", s.styler().Warn(d.Shell+":"), s.Catalog.Messages.CommandNotFound, executable)

	matches := fuzzy.FindAllSimilar(executable, d.Executables.Names(), cnfThreshold)
	if len(matches) == 0 {
		return nil
	}
	fixes := make([]string, 0, len(matches))
	for _, match := range matches {
		tokens := append([]string{match}, d.Command.Tokens[1:]...)
		fixes = append(fixes, strings.Join(tokens, " "))
	}

	chosen, err := s.pick(d, fixes)
	if err != nil {
		return err
	}
	done, err := s.execute(ctx, d, chosen)
	if err != nil || done {
		return err
	}
	fmt.Fprintf(s.stderr(), "\n%s\n\n", s.styler().Bold(s.Catalog.Messages.Retry+"..."))
	return s.suggestion(ctx, d)
}
