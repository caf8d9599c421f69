package provider

import (
	_ "embed"
	"strings"
)

//go:embed prompt.txt
var promptTemplate string

// BuildPrompt renders the instruction text for req. Values are substituted
// in a single pass, so braces inside the command or error are left alone.
func BuildPrompt(req Request) string {
	locale := ""
	if l := strings.TrimSpace(req.Locale); l != "" && !strings.HasPrefix(strings.ToLower(l), "en") {
		locale = "\n- Write the note in the language of locale " + l + "."
	}
	extra := ""
	if e := strings.TrimSpace(req.Extra); e != "" {
		extra = "\n" + e
	}
	shell := req.Shell
	if shell == "" {
		shell = "sh"
	}
	return strings.TrimSpace(strings.NewReplacer(
		"{shell}", shell,
		"{command}", req.Command,
		"{error}", req.Error,
		"{locale}", locale,
		"{extra}", extra,
	).Replace(promptTemplate))
}
