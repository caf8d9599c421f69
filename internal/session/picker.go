package session

import (
	"fmt"

	"github.com/respects-sh/respects/internal/ui"
)

// PromptPicker shows choices through the configured ui backend.
type PromptPicker struct {
	Prompt     ui.Prompt
	ConfirmYes string
}

func (p PromptPicker) hint() string {
	yes := p.ConfirmYes
	if yes == "" {
		yes = "Enter"
	}
	return fmt.Sprintf("[↑/↓/j/k] [%s] [ESC]", yes)
}

func (p PromptPicker) Select(title string, options []ui.Option) (int, error) {
	prompt := p.Prompt
	prompt.Title = title
	prompt.Hint = p.hint()
	return prompt.Select(options)
}

func (p PromptPicker) Confirm(title, command string) (bool, error) {
	prompt := p.Prompt
	prompt.Title = title
	return prompt.Confirm(command)
}
