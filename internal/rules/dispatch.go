package rules

import (
	"context"
	"io"
	"log/slog"

	"github.com/respects-sh/respects/internal/candidates"
)

// Dispatcher evaluates the rules registered for a name against a failed
// command.
type Dispatcher struct {
	Store  *Store
	Shell  Shell
	Logger *slog.Logger
}

// Dispatch adds the suggestions of every rule registered under name to out.
// Within a rule only the first block whose pattern occurs in the error is
// used, and every template of that block whose guard passes contributes.
// Rule defects are returned as *RuleError.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, in Input, out *candidates.List) error {
	found, err := d.Store.Lookup(name)
	if err != nil {
		return err
	}
	log := d.logger()
	for _, rule := range found {
		templates, ok := rule.match(in.Error)
		if !ok {
			continue
		}
		log.Debug("rule matched", "rule", rule.Command, "source", rule.Source, "templates", len(templates))

		env := conditionEnv{ctx: ctx, in: in, shell: d.Shell, probe: rule.Source == SourceRuntime}
		for _, tmpl := range templates {
			if !env.passes(tmpl.Guard) {
				continue
			}
			suggestions, err := Render(ctx, tmpl.Body, in, d.Shell)
			if err != nil {
				return &RuleError{Rule: rule.Command, Template: tmpl.Body, Err: err}
			}
			out.Add(suggestions...)
		}
	}
	return nil
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
