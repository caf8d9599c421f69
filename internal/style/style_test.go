package style

import (
	"bytes"
	"strings"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

func TestHighlightPlainProfileKeepsWords(t *testing.T) {
	s := WithProfile(&bytes.Buffer{}, termenv.Ascii)

	assert.Equal(t, "git status", s.Highlight("gti status", "git status"))
	assert.Equal(t, "mkdir -p a/b", s.Highlight("mkdir a/b", "mkdir   -p a/b"))
	assert.Equal(t, "cd /srv\nls", s.Highlight("cd /sr", "cd /srv \n ls"))
}

func TestHighlightMarksChangedWords(t *testing.T) {
	s := WithProfile(&bytes.Buffer{}, termenv.ANSI)

	out := s.Highlight("gti status", "git status")
	assert.Contains(t, out, "\x1b[")
	assert.Contains(t, out, s.changed.Render("git"))
	assert.Contains(t, out, s.unchanged.Render("status"))
	assert.NotEqual(t, s.changed.Render("git"), s.unchanged.Render("git"))
}

func TestDetectNonTerminalIsPlain(t *testing.T) {
	assert.Equal(t, termenv.Ascii, Detect(&bytes.Buffer{}))

	t.Setenv("NO_COLOR", "1")
	assert.Equal(t, termenv.Ascii, Detect(&bytes.Buffer{}))
}

func TestMessageStylesWithoutColour(t *testing.T) {
	s := WithProfile(&bytes.Buffer{}, termenv.Ascii)
	for _, got := range []string{s.Warn("careful"), s.Note("careful"), s.Bold("careful")} {
		assert.Equal(t, "careful", strings.TrimSpace(got))
	}
}
