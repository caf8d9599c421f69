// Package style renders candidates and messages for the terminal.
package style

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/respects-sh/respects/internal/cmdline"
)

type Styler struct {
	renderer  *lipgloss.Renderer
	unchanged lipgloss.Style
	changed   lipgloss.Style
	warn      lipgloss.Style
	note      lipgloss.Style
	bold      lipgloss.Style
}

// New picks the colour profile from w. Output that is not a terminal, or a
// set NO_COLOR, gets plain text.
func New(w io.Writer) *Styler {
	return WithProfile(w, Detect(w))
}

func Detect(w io.Writer) termenv.Profile {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return termenv.Ascii
	}
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return termenv.Ascii
	}
	return termenv.NewOutput(f).EnvColorProfile()
}

func WithProfile(w io.Writer, profile termenv.Profile) *Styler {
	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(profile)
	return &Styler{
		renderer:  r,
		unchanged: r.NewStyle().Foreground(lipgloss.Color("4")),
		changed:   r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		warn:      r.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
		note:      r.NewStyle().Foreground(lipgloss.Color("8")),
		bold:      r.NewStyle().Bold(true),
	}
}

// Highlight marks the words of suggestion that do not occur in original.
// Words kept from the original are dimmed to blue, new ones are red and
// bold.
func (s *Styler) Highlight(original, suggestion string) string {
	known := map[string]struct{}{}
	for _, word := range cmdline.Split(original) {
		known[word] = struct{}{}
	}

	var b strings.Builder
	lineStart := true
	for _, word := range cmdline.Split(suggestion) {
		if word == "\n" {
			b.WriteString("\n")
			lineStart = true
			continue
		}
		if !lineStart {
			b.WriteByte(' ')
		}
		lineStart = false
		if _, ok := known[word]; ok {
			b.WriteString(s.unchanged.Render(word))
		} else {
			b.WriteString(s.changed.Render(word))
		}
	}
	return b.String()
}

func (s *Styler) Warn(text string) string {
	return s.warn.Render(text)
}

func (s *Styler) Note(text string) string {
	return s.note.Render(text)
}

func (s *Styler) Bold(text string) string {
	return s.bold.Render(text)
}
