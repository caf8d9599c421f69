package ui

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/rivo/tview"
)

// Confirm asks whether command should run. Enter or y accepts, n or Esc
// declines, Ctrl-C aborts the whole cycle with ErrAborted.
func (p Prompt) Confirm(command string) (bool, error) {
	var firstErr error
	for _, candidate := range p.backends() {
		var (
			approved bool
			err      error
		)
		switch candidate {
		case BackendBubbleTea:
			approved, err = p.confirmWithBubbleTea(command)
		case BackendHuh:
			approved, err = p.confirmWithHuh(command)
		case BackendTView:
			approved, err = p.confirmWithTView(command)
		case BackendPlain:
			approved, err = p.confirmPlain(command)
		default:
			continue
		}
		if errors.Is(err, ErrAborted) {
			return false, err
		}
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		return approved, nil
	}
	return false, firstErr
}

func (p Prompt) confirmPlain(command string) (bool, error) {
	out := p.out()
	fmt.Fprintf(out, "%s\n%s\n[Y/n]: ", strings.TrimSpace(command), p.Title)
	line, err := bufio.NewReader(p.in()).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	if answer == "" && err != nil {
		fmt.Fprintln(out)
		return false, ErrAborted
	}
	switch answer {
	case "", "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

type bubbleConfirmModel struct {
	title    string
	command  string
	hint     string
	approved bool
	aborted  bool
	done     bool
}

func (m bubbleConfirmModel) Init() tea.Cmd { return nil }

func (m bubbleConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch k := msg.(type) {
	case tea.KeyMsg:
		switch strings.ToLower(k.String()) {
		case "y", "enter":
			m.approved = true
			m.done = true
			return m, tea.Quit
		case "n", "esc":
			m.done = true
			return m, tea.Quit
		case "ctrl+c":
			m.aborted = true
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m bubbleConfirmModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s\n\n%s\n\n%s\n", m.command, m.title, m.hint)
}

func (p Prompt) confirmWithBubbleTea(command string) (bool, error) {
	hint := p.Hint
	if hint == "" {
		hint = "[Enter/y] [n/ESC]"
	}
	model := bubbleConfirmModel{title: p.Title, command: strings.TrimSpace(command), hint: hint}
	final, err := tea.NewProgram(model, tea.WithInput(p.in()), tea.WithOutput(p.out())).Run()
	if err != nil {
		return false, err
	}
	out, ok := final.(bubbleConfirmModel)
	if !ok || !out.done {
		return false, nil
	}
	if out.aborted {
		return false, ErrAborted
	}
	return out.approved, nil
}

func (p Prompt) confirmWithHuh(command string) (bool, error) {
	approved := true
	field := huh.NewConfirm().
		Title(p.Title).
		Description(strings.TrimSpace(command)).
		Affirmative("Run").
		Negative("Cancel").
		Value(&approved)
	err := huh.NewForm(huh.NewGroup(field)).
		WithTheme(huh.ThemeCharm()).
		WithOutput(p.out()).
		Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, ErrAborted
		}
		return false, err
	}
	return approved, nil
}

func (p Prompt) confirmWithTView(command string) (bool, error) {
	app := tview.NewApplication()
	approved := false
	done := false

	text := fmt.Sprintf("%s\n\n%s", tview.TranslateANSI(strings.TrimSpace(command)), p.Title)
	modal := tview.NewModal().
		SetText(text).
		AddButtons([]string{"Run", "Cancel"}).
		SetDoneFunc(func(_ int, label string) {
			done = true
			approved = strings.EqualFold(strings.TrimSpace(label), "run")
			app.Stop()
		})

	if err := app.SetRoot(modal, true).Run(); err != nil {
		return false, err
	}
	if !done {
		return false, ErrAborted
	}
	return approved, nil
}
