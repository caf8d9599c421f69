package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/respects-sh/respects/internal/appdirs"
	"github.com/respects-sh/respects/internal/cmdline"
	"github.com/respects-sh/respects/internal/config"
	"github.com/respects-sh/respects/internal/i18n"
	"github.com/respects-sh/respects/internal/provider"
	"github.com/respects-sh/respects/internal/rules"
	"github.com/respects-sh/respects/internal/runtime"
	"github.com/respects-sh/respects/internal/session"
	"github.com/respects-sh/respects/internal/style"
	"github.com/respects-sh/respects/internal/ui"
)

var version = "dev"

const (
	exitFailure = 1
	exitAborted = 130
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var cycle bool
	root := newRootCmd(stdout, stderr, func() { cycle = true })
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "respects: %v\n", err)
		return exitFailure
	}
	if !cycle {
		return 0
	}
	return runCycle(ctx, stdout, stderr)
}

func newLogger(stderr io.Writer) *slog.Logger {
	if _, ok := os.LookupEnv("_PR_DEBUG"); ok {
		return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// runCycle fixes the last command the shell integration handed over.
func runCycle(ctx context.Context, stdout, stderr io.Writer) int {
	cfg, _, err := config.Load(stderr)
	if err != nil {
		fmt.Fprintf(stderr, "respects: %v\n", err)
		cfg = config.Default()
	}
	catalog := i18n.LoadCatalog(cfg.Locale)
	logger := newLogger(stderr)

	builtin, err := rules.LoadBuiltin()
	if err != nil {
		fmt.Fprintf(stderr, "respects: could not load builtin rules: %v\n", err)
		return exitFailure
	}

	s := &session.Session{
		Config:  cfg,
		Catalog: catalog,
		Store:   rules.NewStore(builtin, appdirs.RuleDirs(cfg.RulesDir)),
		Runner:  runtime.Shell{Name: os.Getenv("_PR_SHELL")},
		Picker: session.PromptPicker{
			Prompt: ui.Prompt{
				Backend:  cfg.UI.Backend,
				Out:      stderr,
				Terminal: ui.StdinIsTerminal(),
			},
			ConfirmYes: catalog.Messages.ConfirmYes,
		},
		Advisor: provider.NewService(nil, logger),
		Styler:  style.New(stderr),
		Stdout:  stdout,
		Stderr:  stderr,
		Logger:  logger,
	}

	data, err := s.Prepare(ctx, nil)
	if err == nil {
		err = s.Run(ctx, data)
	}
	return report(err, catalog, stderr)
}

// report prints err for the user and picks the exit status.
func report(err error, catalog i18n.Catalog, stderr io.Writer) int {
	var setup *session.SetupError
	switch {
	case err == nil:
		return 0
	case errors.Is(err, session.ErrAborted), errors.Is(err, context.Canceled):
		return exitAborted
	case errors.Is(err, session.ErrSlowFailure):
		return exitFailure
	case errors.As(err, &setup):
		fmt.Fprintln(stderr, i18n.Format(catalog.Messages.NoEnvSetup, map[string]string{
			"var":  setup.Var,
			"help": "respects --help",
		}))
		return exitFailure
	case errors.Is(err, cmdline.ErrEmpty):
		fmt.Fprintln(stderr, catalog.Messages.EmptyCommand)
		return exitFailure
	default:
		fmt.Fprintf(stderr, "respects: %v\n", err)
		return exitFailure
	}
}
