package i18n

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/respects-sh/respects/internal/appdirs"
)

func TestNormalizeLocale(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "en_US.UTF-8", want: "en-US"},
		{in: "es-ES", want: "es-ES"},
		{in: "fr", want: "fr"},
		{in: "pt_BR@latin", want: "pt-BR"},
		{in: "", want: ""},
		{in: "C", want: ""},
	}
	for _, tc := range cases {
		if got := NormalizeLocale(tc.in); got != tc.want {
			t.Fatalf("NormalizeLocale(%q)=%q want=%q", tc.in, got, tc.want)
		}
	}
}

func TestFormat(t *testing.T) {
	got := Format("Found {num} suggestions", map[string]string{"num": "3"})
	if got != "Found 3 suggestions" {
		t.Fatalf("unexpected format %q", got)
	}
	got = Format(defaultEnglishCatalog().Messages.NoEnvSetup, map[string]string{"var": "_PR_SHELL", "help": "respects --help"})
	if !strings.Contains(got, "_PR_SHELL") || !strings.Contains(got, "respects --help") {
		t.Fatalf("expected parameters to be filled, got %q", got)
	}
}

func TestDetectLocaleSkipsPosixLocale(t *testing.T) {
	t.Setenv("_PR_LOCALE", "")
	t.Setenv("LC_ALL", "C")
	t.Setenv("LC_MESSAGES", "")
	t.Setenv("LANG", "hi_IN.UTF-8")
	if got := DetectLocale(); got != "hi-IN" {
		t.Fatalf("expected hi-IN, got %q", got)
	}
}

func TestLoadCatalogMergesCommunityOverrides(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("_PR_LOCALE", "es-ES")

	configDir, err := appdirs.ConfigDir()
	if err != nil {
		t.Fatalf("config dir failed: %v", err)
	}
	localesDir := filepath.Join(configDir, "locales")
	if err := os.MkdirAll(localesDir, 0o755); err != nil {
		t.Fatalf("mkdir locales failed: %v", err)
	}

	override := `{
	  "locale": "es-ES",
	  "messages": {
	    "no_suggestion": "No se encontraron sugerencias"
	  },
	  "thinking": ["pensando en un comando"]
	}`
	if err := os.WriteFile(filepath.Join(localesDir, "es.json"), []byte(override), 0o644); err != nil {
		t.Fatalf("write locale override failed: %v", err)
	}

	catalog := LoadCatalog("auto")
	if !strings.EqualFold(catalog.Locale, "es-ES") {
		t.Fatalf("expected merged locale es-ES, got %q", catalog.Locale)
	}
	if catalog.Messages.NoSuggestion != "No se encontraron sugerencias" {
		t.Fatalf("expected Spanish override, got %q", catalog.Messages.NoSuggestion)
	}
	// English fallback should remain present for untranslated messages.
	if catalog.Messages.Retry != defaultEnglishCatalog().Messages.Retry {
		t.Fatalf("expected english fallback for retry, got %q", catalog.Messages.Retry)
	}
	if len(catalog.Thinking) == 0 || catalog.Thinking[0] != "pensando en un comando" {
		t.Fatalf("expected override thinking messages first, got %v", catalog.Thinking)
	}
}

func TestLoadCatalogHindi(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	catalog := LoadCatalog("hi-IN")
	if catalog.Locale != "hi-IN" {
		t.Fatalf("expected hi-IN locale, got %q", catalog.Locale)
	}
	if catalog.Messages.NoSuggestion != defaultHindiCatalog().Messages.NoSuggestion {
		t.Fatalf("expected Hindi message, got %q", catalog.Messages.NoSuggestion)
	}
	if len(catalog.Thinking) < len(defaultHindiCatalog().Thinking) {
		t.Fatalf("expected Hindi thinking coverage")
	}
}
