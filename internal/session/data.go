package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/respects-sh/respects/internal/cmdline"
	"github.com/respects-sh/respects/internal/executables"
	"github.com/respects-sh/respects/internal/modules"
	"github.com/respects-sh/respects/internal/runtime"
)

const (
	ModulePrefix   = "_respects-module-"
	FallbackPrefix = "_respects-fallback-"
)

type Mode string

const (
	ModeSuggestion Mode = "suggestion"
	ModeEcho       Mode = "echo"
	ModeNoConfirm  Mode = "noconfirm"
	ModeCnf        Mode = "cnf"
)

var ErrInvalidMode = errors.New("invalid mode")

// ParseMode reads _PR_MODE. An empty value is the interactive default.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.TrimSpace(raw)) {
	case "", ModeSuggestion:
		return ModeSuggestion, nil
	case ModeEcho:
		return ModeEcho, nil
	case ModeNoConfirm:
		return ModeNoConfirm, nil
	case ModeCnf:
		return ModeCnf, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidMode, raw)
	}
}

// SetupError reports a variable the shell integration should have set.
type SetupError struct {
	Var string
}

func (e *SetupError) Error() string {
	return e.Var + " is not set"
}

// Env looks up an environment variable.
type Env func(key string) (string, bool)

// Data is everything known about the failed command. Command and Error
// change when a chosen suggestion fails and the cycle starts over.
type Data struct {
	Shell string
	Mode  Mode

	Command cmdline.Command
	Error   string

	Parser      cmdline.Parser
	Executables *executables.Set
	Modules     []modules.Module
	Fallbacks   []modules.Module

	AIDisabled bool
	AILocale   string
	AIExtra    string
}

// Prepare reads the integration's environment, parses the failed command
// and, outside cnf mode, obtains its error text: from _PR_ERROR_MSG when
// the wrapper captured it, otherwise by replaying the command.
func (s *Session) Prepare(ctx context.Context, env Env) (*Data, error) {
	if env == nil {
		env = os.LookupEnv
	}
	shell, ok := env("_PR_SHELL")
	if !ok || strings.TrimSpace(shell) == "" {
		return nil, &SetupError{Var: "_PR_SHELL"}
	}
	last, ok := env("_PR_LAST_COMMAND")
	if !ok {
		return nil, &SetupError{Var: "_PR_LAST_COMMAND"}
	}
	rawMode, _ := env("_PR_MODE")
	mode, err := ParseMode(rawMode)
	if err != nil {
		return nil, err
	}

	aliasDump, _ := env("_PR_ALIAS")
	parser := cmdline.Parser{Aliases: cmdline.ParseAliases(shell, aliasDump)}
	if sudo := strings.TrimSpace(s.Config.Sudo); sudo != "" {
		parser.Privileges = []string{sudo}
	}
	command, err := parser.Parse(last)
	if err != nil {
		return nil, err
	}

	path, _ := env("PATH")
	lib, _ := env("_PR_LIB")
	var libDirs []string
	for _, dir := range filepath.SplitList(lib) {
		if dir != "" {
			libDirs = append(libDirs, dir)
		}
	}
	set := executables.Load(executables.Options{
		Path:           path,
		LibDirs:        libDirs,
		Aliases:        parser.Aliases.Names(),
		ModulePrefix:   ModulePrefix,
		FallbackPrefix: FallbackPrefix,
	})

	configured, err := modules.FromConfig(s.Config.Modules)
	if err != nil {
		return nil, fmt.Errorf("could not read configured modules: %w", err)
	}
	configuredFallbacks, err := modules.FromConfig(s.Config.Fallbacks)
	if err != nil {
		return nil, fmt.Errorf("could not read configured fallbacks: %w", err)
	}

	d := &Data{
		Shell:       shell,
		Mode:        mode,
		Command:     command,
		Parser:      parser,
		Executables: set,
		Modules:     append(modules.FromPaths(set.Modules), configured...),
		Fallbacks:   append(modules.FromPaths(set.Fallbacks), configuredFallbacks...),
	}
	_, d.AIDisabled = env("_PR_AI_DISABLE")
	d.AILocale, _ = env("_PR_AI_LOCALE")
	d.AIExtra, _ = env("_PR_AI_ADDITIONAL_PROMPT")

	if mode == ModeCnf {
		return d, nil
	}
	if msg, ok := env("_PR_ERROR_MSG"); ok {
		d.Error = runtime.NormalizeError(msg)
		return d, nil
	}
	d.Error, err = s.Runner.CaptureError(ctx, runtime.Invocation{
		Command: command.Text,
		Env:     command.Env,
	}, s.Config.ReplayTimeout())
	if err != nil {
		return nil, err
	}
	return d, nil
}

// executable is the rule name of the current command: its first word
// without any directory part.
func (d *Data) executable() string {
	if len(d.Command.Tokens) == 0 {
		return ""
	}
	first := d.Command.Tokens[0]
	if i := strings.LastIndexAny(first, `/\`); i >= 0 {
		first = first[i+1:]
	}
	return first
}
