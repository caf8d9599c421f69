package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/respects-sh/respects/internal/config"
	"github.com/respects-sh/respects/internal/i18n"
	"github.com/respects-sh/respects/internal/shellinit"
)

const rootLong = `respects - fix the last failed command

Set up the integration by evaluating the script for your shell:
  bash:  eval "$(respects bash)"
  zsh:   eval "$(respects zsh)"
  fish:  respects fish | source

Then type the alias (f by default) after a command fails.
  --alias [name]  use another alias
  --nocnf         leave the command-not-found hook out`

// newRootCmd builds the command tree. Called with no shell and with the
// integration variables set, it leaves the suggestion cycle to the caller
// through cycle.
func newRootCmd(stdout, stderr io.Writer, cycle func()) *cobra.Command {
	var (
		alias string
		noCnf bool
	)
	root := &cobra.Command{
		Use:           "respects [shell]",
		Short:         "fix the last failed command",
		Long:          rootLong,
		Version:       version,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				if _, ok := os.LookupEnv("_PR_LAST_COMMAND"); ok {
					cycle()
					return nil
				}
				return printNoShell(cmd)
			}
			if len(args) == 2 {
				// pflag does not take a separate value for an optional flag
				if !cmd.Flags().Changed("alias") || alias != shellinit.DefaultAlias {
					return fmt.Errorf("unexpected argument %q", args[1])
				}
				alias = args[1]
			}
			return printInit(cmd.OutOrStdout(), args[0], alias, !noCnf)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.Flags()
	flags.StringVar(&alias, "alias", shellinit.DefaultAlias, "name of the alias the integration defines")
	flags.Lookup("alias").NoOptDefVal = shellinit.DefaultAlias
	flags.BoolVar(&noCnf, "nocnf", false, "do not install the command-not-found hook")

	root.AddCommand(newConfigCmd())
	return root
}

func printNoShell(cmd *cobra.Command) error {
	catalog := loadCatalog()
	fmt.Fprintln(cmd.ErrOrStderr(), catalog.Messages.NoShell)
	return cmd.Help()
}

func printInit(out io.Writer, shell, alias string, cnf bool) error {
	binary, err := os.Executable()
	if err != nil {
		binary = "respects"
	}
	script, err := shellinit.Script(shellinit.Options{
		Shell:           shell,
		Alias:           alias,
		Binary:          binary,
		CommandNotFound: cnf,
	})
	if errors.Is(err, shellinit.ErrUnknownShell) {
		catalog := loadCatalog()
		return fmt.Errorf("%s: %s (%s)", catalog.Messages.UnknownShell, shell, strings.Join(shellinit.Supported(), ", "))
	}
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, script)
	return err
}

func loadCatalog() i18n.Catalog {
	cfg, _, err := config.Load(nil)
	if err != nil {
		cfg = config.Default()
	}
	return i18n.LoadCatalog(cfg.Locale)
}
