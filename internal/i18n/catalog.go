package i18n

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/respects-sh/respects/internal/appdirs"
)

// Catalog holds every user-facing string. Fields left empty in a community
// override keep the built-in text.
type Catalog struct {
	Locale   string   `json:"locale"`
	Messages Messages `json:"messages"`
	// Thinking is shown while the AI fallback is waiting for an answer.
	Thinking []string `json:"thinking"`
}

type Messages struct {
	NoSuggestion    string `json:"no_suggestion"`
	Contribute      string `json:"contribute"`
	Retry           string `json:"retry"`
	MultiSuggest    string `json:"multi_suggest"`
	Confirm         string `json:"confirm"`
	ConfirmYes      string `json:"confirm_yes"`
	HighRisk        string `json:"high_risk"`
	CommandNotFound string `json:"command_not_found"`
	EmptyCommand    string `json:"empty_command"`
	NoEnvSetup      string `json:"no_env_setup"`
	NoShell         string `json:"no_shell"`
	UnknownShell    string `json:"unknown_shell"`
	AISuggestion    string `json:"ai_suggestion"`
	Aborted         string `json:"aborted"`
}

// Format fills {name} parameters in a message.
func Format(message string, params map[string]string) string {
	if len(params) == 0 {
		return message
	}
	pairs := make([]string, 0, len(params)*2)
	for key, value := range params {
		pairs = append(pairs, "{"+key+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(message)
}

func LoadCatalog(requestedLocale string) Catalog {
	locale := ""
	if !strings.EqualFold(strings.TrimSpace(requestedLocale), "auto") {
		locale = NormalizeLocale(requestedLocale)
	}
	if locale == "" {
		locale = DetectLocale()
	}
	base := baseCatalogForLocale(locale)

	if override, ok := loadCommunityCatalog(locale); ok {
		merged := mergeCatalog(base, override)
		if strings.TrimSpace(override.Locale) != "" {
			merged.Locale = NormalizeLocale(override.Locale)
		} else {
			merged.Locale = locale
		}
		return merged
	}

	base.Locale = locale
	return base
}

func baseCatalogForLocale(locale string) Catalog {
	normalized := strings.ToLower(NormalizeLocale(locale))
	switch {
	case strings.HasPrefix(normalized, "hi"):
		// Hindi first, English fallback retained.
		base := mergeCatalog(defaultEnglishCatalog(), defaultHindiCatalog())
		base.Locale = "hi"
		return base
	default:
		base := defaultEnglishCatalog()
		base.Locale = "en"
		return base
	}
}

func DetectLocale() string {
	candidates := []string{
		os.Getenv("_PR_LOCALE"),
		os.Getenv("LC_ALL"),
		os.Getenv("LC_MESSAGES"),
		os.Getenv("LANG"),
	}
	for _, candidate := range candidates {
		if strings.EqualFold(candidate, "C") || strings.EqualFold(candidate, "POSIX") {
			continue
		}
		if normalized := NormalizeLocale(candidate); normalized != "" {
			return normalized
		}
	}
	return "en"
}

func NormalizeLocale(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	trimmed = strings.Split(trimmed, ".")[0]
	trimmed = strings.Split(trimmed, "@")[0]
	trimmed = strings.ReplaceAll(trimmed, "_", "-")

	parts := strings.Split(trimmed, "-")
	lang := strings.ToLower(parts[0])
	if !isValidLocaleToken(lang, true) {
		return ""
	}
	if len(parts) == 1 || parts[1] == "" {
		return lang
	}
	region := strings.ToUpper(parts[1])
	if !isValidLocaleToken(strings.ToLower(region), false) {
		return ""
	}
	return lang + "-" + region
}

func isValidLocaleToken(token string, lettersOnly bool) bool {
	if len(token) < 2 || len(token) > 8 {
		return false
	}
	for _, r := range token {
		if r >= 'a' && r <= 'z' {
			continue
		}
		if !lettersOnly && r >= '0' && r <= '9' {
			continue
		}
		return false
	}
	return true
}

func loadCommunityCatalog(locale string) (Catalog, bool) {
	configDir, err := appdirs.ConfigDir()
	if err != nil {
		return Catalog{}, false
	}

	normalized := NormalizeLocale(locale)
	if normalized == "" {
		return Catalog{}, false
	}
	lang := normalized
	if idx := strings.Index(lang, "-"); idx > 0 {
		lang = lang[:idx]
	}

	paths := []string{
		filepath.Join(configDir, "locales", normalized+".json"),
	}
	if lang != normalized {
		paths = append(paths, filepath.Join(configDir, "locales", lang+".json"))
	}

	for _, path := range paths {
		if loaded, ok := loadCatalogFile(path); ok {
			return loaded, true
		}
	}
	return Catalog{}, false
}

func loadCatalogFile(path string) (Catalog, bool) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, false
	}
	var catalog Catalog
	if err := json.Unmarshal(bytes, &catalog); err != nil {
		return Catalog{}, false
	}
	return catalog, true
}

// mergeCatalog lays override on top of base.
func mergeCatalog(base Catalog, override Catalog) Catalog {
	merged := base
	m := &merged.Messages
	o := override.Messages
	pick := func(dst *string, src string) {
		if strings.TrimSpace(src) != "" {
			*dst = src
		}
	}
	pick(&m.NoSuggestion, o.NoSuggestion)
	pick(&m.Contribute, o.Contribute)
	pick(&m.Retry, o.Retry)
	pick(&m.MultiSuggest, o.MultiSuggest)
	pick(&m.Confirm, o.Confirm)
	pick(&m.ConfirmYes, o.ConfirmYes)
	pick(&m.HighRisk, o.HighRisk)
	pick(&m.CommandNotFound, o.CommandNotFound)
	pick(&m.EmptyCommand, o.EmptyCommand)
	pick(&m.NoEnvSetup, o.NoEnvSetup)
	pick(&m.NoShell, o.NoShell)
	pick(&m.UnknownShell, o.UnknownShell)
	pick(&m.AISuggestion, o.AISuggestion)
	pick(&m.Aborted, o.Aborted)

	merged.Thinking = mergeStringSlices(override.Thinking, base.Thinking)
	return merged
}

func mergeStringSlices(first []string, second []string) []string {
	if len(first) == 0 && len(second) == 0 {
		return nil
	}
	seen := map[string]struct{}{}
	merged := make([]string, 0, len(first)+len(second))
	appendUnique := func(items []string) {
		for _, item := range items {
			trimmed := strings.TrimSpace(item)
			if trimmed == "" {
				continue
			}
			if _, exists := seen[trimmed]; exists {
				continue
			}
			seen[trimmed] = struct{}{}
			merged = append(merged, trimmed)
		}
	}
	appendUnique(first)
	appendUnique(second)
	return merged
}

func defaultEnglishCatalog() Catalog {
	return Catalog{
		Locale: "en",
		Messages: Messages{
			NoSuggestion:    "No suggestion found for the command",
			Contribute:      "Missing a fix? Rule files are plain TOML and contributions are welcome:",
			Retry:           "Looks like it didn't work, trying again",
			MultiSuggest:    "Found {num} suggestions",
			Confirm:         "Run the suggestion?",
			ConfirmYes:      "Enter",
			HighRisk:        "This command looks destructive, run it anyway?",
			CommandNotFound: "command not found",
			EmptyCommand:    "Nothing to fix: the last command is empty",
			NoEnvSetup:      "Environment variable {var} is not set. Set up the shell integration first, see: {help}",
			NoShell:         "No shell given, expected one of bash, zsh, fish",
			UnknownShell:    "Unsupported shell",
			AISuggestion:    "AI suggestion",
			Aborted:         "Aborted",
		},
		Thinking: []string{
			"thinking of a command that fits",
			"thinking of a command that just works",
			"thinking of a command your future self approves",
			"asking for a second opinion",
			"reading the error twice",
		},
	}
}

func defaultHindiCatalog() Catalog {
	return Catalog{
		Locale: "hi",
		Messages: Messages{
			NoSuggestion:    "इस कमांड के लिए कोई सुझाव नहीं मिला",
			Contribute:      "कोई सुधार छूट गया? नियम फ़ाइलें सादा TOML हैं, योगदान का स्वागत है:",
			Retry:           "लगता है यह काम नहीं किया, फिर से कोशिश कर रहे हैं",
			MultiSuggest:    "{num} सुझाव मिले",
			Confirm:         "सुझाव चलाएँ?",
			ConfirmYes:      "Enter",
			HighRisk:        "यह कमांड खतरनाक लगती है, फिर भी चलाएँ?",
			CommandNotFound: "कमांड नहीं मिली",
			EmptyCommand:    "सुधारने को कुछ नहीं: पिछली कमांड खाली है",
			NoEnvSetup:      "एनवायरनमेंट वेरिएबल {var} सेट नहीं है। पहले शेल इंटीग्रेशन सेट करें, देखें: {help}",
			NoShell:         "कोई शेल नहीं दिया गया, bash, zsh या fish में से एक दें",
			UnknownShell:    "यह शेल समर्थित नहीं है",
			AISuggestion:    "AI सुझाव",
			Aborted:         "रद्द किया गया",
		},
		Thinking: []string{
			"सही कमांड सोच रहे हैं",
			"एरर को दोबारा पढ़ रहे हैं",
			"दूसरी राय ले रहे हैं",
		},
	}
}
