package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/rivo/tview"
	"golang.org/x/term"
)

// ErrAborted is returned when the user leaves the picker without choosing.
var ErrAborted = errors.New("selection aborted")

// Option is one entry of the picker. Label is what is shown, possibly
// styled; Value is the command that is returned.
type Option struct {
	Label string
	Value string
}

// Prompt holds the settings shared by Select and Confirm. Interactive
// backends draw on the terminal; the plain backend reads lines from In and
// writes to Out.
type Prompt struct {
	Backend string
	Title   string
	Hint    string
	In      io.Reader
	Out     io.Writer
	// Terminal is false when stdin is not a terminal. Only the plain
	// backend is used then.
	Terminal bool
}

// StdinIsTerminal reports whether the interactive backends can be used.
func StdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func (p Prompt) in() io.Reader {
	if p.In != nil {
		return p.In
	}
	return os.Stdin
}

func (p Prompt) out() io.Writer {
	if p.Out != nil {
		return p.Out
	}
	return os.Stderr
}

func (p Prompt) backends() []string {
	return backendOrder(p.Backend, p.Terminal)
}

// Select shows the options and returns the index of the chosen one. An
// interactive backend that fails to start falls through to the next one.
func (p Prompt) Select(options []Option) (int, error) {
	if len(options) == 0 {
		return 0, fmt.Errorf("nothing to select")
	}
	options = layoutOptions(options)

	var firstErr error
	for _, candidate := range p.backends() {
		var (
			index int
			err   error
		)
		switch candidate {
		case BackendBubbleTea:
			index, err = p.selectWithBubbleTea(options)
		case BackendHuh:
			index, err = p.selectWithHuh(options)
		case BackendTView:
			index, err = p.selectWithTView(options)
		case BackendPlain:
			index, err = p.selectPlain(options)
		default:
			continue
		}
		if errors.Is(err, ErrAborted) {
			return 0, err
		}
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		return index, nil
	}
	return 0, firstErr
}

// layoutOptions prefixes every label with "* " and indents continuation
// lines once any option spans several lines.
func layoutOptions(options []Option) []Option {
	multiline := false
	for _, option := range options {
		if strings.Contains(option.Label, "\n") {
			multiline = true
			break
		}
	}
	if !multiline {
		return options
	}
	out := make([]Option, len(options))
	for i, option := range options {
		out[i] = Option{
			Label: "* " + strings.ReplaceAll(option.Label, "\n", "\n    "),
			Value: option.Value,
		}
	}
	return out
}

func (p Prompt) header() string {
	if p.Hint == "" {
		return p.Title
	}
	return p.Title + " " + p.Hint
}

func (p Prompt) selectPlain(options []Option) (int, error) {
	out := p.out()
	reader := bufio.NewReader(p.in())
	fmt.Fprintln(out, p.Title)
	for i, option := range options {
		fmt.Fprintf(out, "%d) %s\n", i+1, option.Label)
	}
	for {
		fmt.Fprintf(out, "[1-%d, Enter for 1, q to quit]: ", len(options))
		line, err := reader.ReadString('\n')
		answer := strings.TrimSpace(line)
		if answer == "" && err == nil {
			return 0, nil
		}
		if answer == "q" || (answer == "" && err != nil) {
			fmt.Fprintln(out)
			return 0, ErrAborted
		}
		if n, convErr := strconv.Atoi(answer); convErr == nil && n >= 1 && n <= len(options) {
			return n - 1, nil
		}
		if err != nil {
			return 0, ErrAborted
		}
	}
}

func (p Prompt) selectWithHuh(options []Option) (int, error) {
	huhOptions := make([]huh.Option[int], 0, len(options))
	for i, option := range options {
		huhOptions = append(huhOptions, huh.NewOption(option.Label, i))
	}

	choice := 0
	field := huh.NewSelect[int]().
		Title(p.Title).
		Description(p.Hint).
		Options(huhOptions...).
		Height(huhSelectHeight(len(huhOptions), maxLines(options))).
		Value(&choice)

	err := huh.NewForm(huh.NewGroup(field)).
		WithTheme(huh.ThemeCharm()).
		WithOutput(p.out()).
		Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return 0, ErrAborted
		}
		return 0, err
	}
	return choice, nil
}

type bubbleSelectorItem struct {
	label string
	index int
}

func (i bubbleSelectorItem) FilterValue() string { return i.label }

// bubbleSelectorDelegate draws items that may span several lines.
type bubbleSelectorDelegate struct {
	height int
}

func (d bubbleSelectorDelegate) Height() int                             { return d.height }
func (d bubbleSelectorDelegate) Spacing() int                            { return 0 }
func (d bubbleSelectorDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d bubbleSelectorDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(bubbleSelectorItem)
	if !ok {
		return
	}
	cursor := "  "
	if index == m.Index() {
		cursor = "> "
	}
	lines := strings.Split(it.label, "\n")
	for i, line := range lines {
		if i > 0 {
			fmt.Fprint(w, "\n  ")
		} else {
			fmt.Fprint(w, cursor)
		}
		fmt.Fprint(w, line)
	}
	for i := len(lines); i < d.height; i++ {
		fmt.Fprint(w, "\n")
	}
}

type bubbleSelectorModel struct {
	list      list.Model
	selection int
	chosen    bool
	cancelled bool
	options   int
	lines     int
}

func (m bubbleSelectorModel) Init() tea.Cmd { return nil }

func (m bubbleSelectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch k := msg.(type) {
	case tea.WindowSizeMsg:
		width, height := bubblePickerSize(k.Width, k.Height, m.options*m.lines)
		m.list.SetSize(width, height)
		return m, nil
	case tea.KeyMsg:
		switch k.String() {
		case "q", "esc", "ctrl+c":
			m.cancelled = true
			return m, tea.Quit
		case "enter":
			if item, ok := m.list.SelectedItem().(bubbleSelectorItem); ok {
				m.selection = item.index
				m.chosen = true
			}
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m bubbleSelectorModel) View() string {
	if m.chosen || m.cancelled {
		return ""
	}
	return m.list.View()
}

func (p Prompt) selectWithBubbleTea(options []Option) (int, error) {
	items := make([]list.Item, 0, len(options))
	for i, option := range options {
		items = append(items, bubbleSelectorItem{label: option.Label, index: i})
	}
	lines := maxLines(options)

	initialWidth, initialHeight := bubblePickerSize(80, 24, len(items)*lines)
	picker := list.New(items, bubbleSelectorDelegate{height: lines}, initialWidth, initialHeight)
	picker.Title = p.header()
	picker.SetShowHelp(false)
	picker.SetShowStatusBar(false)
	picker.SetFilteringEnabled(false)

	model := bubbleSelectorModel{list: picker, options: len(items), lines: lines}
	final, err := tea.NewProgram(model, tea.WithInput(p.in()), tea.WithOutput(p.out())).Run()
	if err != nil {
		return 0, err
	}
	out, ok := final.(bubbleSelectorModel)
	if !ok || out.cancelled || !out.chosen {
		return 0, ErrAborted
	}
	return out.selection, nil
}

func (p Prompt) selectWithTView(options []Option) (int, error) {
	app := tview.NewApplication()
	listView := tview.NewList()
	listView.SetBorder(true)
	listView.SetTitle(" " + p.header() + " ")
	listView.ShowSecondaryText(false)

	selected := -1
	for i, option := range options {
		label := tview.TranslateANSI(strings.ReplaceAll(option.Label, "\n", " ; "))
		listView.AddItem(label, "", 0, func() {
			selected = i
			app.Stop()
		})
	}
	listView.SetDoneFunc(func() {
		app.Stop()
	})

	if err := app.SetRoot(listView, true).SetFocus(listView).Run(); err != nil {
		return 0, err
	}
	if selected < 0 {
		return 0, ErrAborted
	}
	return selected, nil
}

func maxLines(options []Option) int {
	n := 1
	for _, option := range options {
		if lines := strings.Count(option.Label, "\n") + 1; lines > n {
			n = lines
		}
	}
	return n
}

func clampInt(v, minV, maxV int) int {
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

func bubblePickerSize(termWidth, termHeight, rowCount int) (int, int) {
	if termWidth <= 0 {
		termWidth = 80
	}
	if termHeight <= 0 {
		termHeight = 24
	}
	if rowCount < 1 {
		rowCount = 1
	}

	maxWidth := termWidth
	minWidth := 32
	if maxWidth < minWidth {
		minWidth = maxWidth
	}
	width := clampInt(termWidth-4, minWidth, maxWidth)

	visibleRows := clampInt(rowCount, 3, 12)
	desiredHeight := visibleRows + 4

	maxHeight := termHeight - 2
	if maxHeight <= 0 {
		maxHeight = termHeight
	}
	if maxHeight <= 0 {
		maxHeight = 1
	}
	minHeight := 6
	if maxHeight < minHeight {
		minHeight = maxHeight
	}
	height := clampInt(desiredHeight, minHeight, maxHeight)
	return width, height
}

func huhSelectHeight(optionCount, linesPerOption int) int {
	if optionCount < 1 {
		optionCount = 1
	}
	if linesPerOption < 1 {
		linesPerOption = 1
	}
	return clampInt(optionCount*linesPerOption+1, 4, 12)
}
