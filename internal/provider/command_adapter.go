package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/respects-sh/respects/internal/config"
)

var placeholderRegex = regexp.MustCompile(`\{([a-z_]+)\}`)

// CommandAdapter runs a local model CLI such as claude or codex.
type CommandAdapter struct {
	name string
	cfg  config.ProviderConfig
}

func NewCommandAdapter(name string, cfg config.ProviderConfig) (Adapter, error) {
	if strings.TrimSpace(cfg.Command) == "" {
		cfg.Command = name
	}
	if strings.TrimSpace(cfg.ModelFlag) == "" && len(cfg.Args) == 0 {
		cfg.ModelFlag = "--model"
	}
	return &CommandAdapter{name: name, cfg: cfg}, nil
}

func (a *CommandAdapter) Name() string {
	return a.name
}

func (a *CommandAdapter) Type() string {
	return "command"
}

func (a *CommandAdapter) Suggest(ctx context.Context, req Request) (Suggestion, error) {
	invocation, err := a.BuildInvocation(req)
	if err != nil {
		return Suggestion{}, err
	}

	cmd := exec.CommandContext(ctx, invocation[0], invocation[1:]...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return Suggestion{}, fmt.Errorf("provider command failed (%s): %w; stderr=%s", a.cfg.Command, err, truncate(stderr.String(), 800))
	}

	raw := strings.TrimSpace(stdout.String())
	suggestion, err := parseSuggestion(raw)
	if err != nil {
		return Suggestion{}, fmt.Errorf("provider returned unparseable output: %s", truncate(raw, 800))
	}
	return suggestion, nil
}

// BuildInvocation renders argv for req. Arguments whose placeholders have no
// value are dropped; the prompt is appended when no argument asks for it.
func (a *CommandAdapter) BuildInvocation(req Request) ([]string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("prompt cannot be empty")
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = a.cfg.Model
	}
	values := map[string]string{
		"model":  model,
		"prompt": req.Prompt,
		"shell":  req.Shell,
	}

	if len(a.cfg.Args) > 0 {
		args := make([]string, 0, len(a.cfg.Args)+1)
		hasPromptPlaceholder := false
		for _, templateArg := range a.cfg.Args {
			if strings.Contains(templateArg, "{prompt}") {
				hasPromptPlaceholder = true
			}
			rendered, ok := renderTemplateArg(templateArg, values)
			if !ok {
				// A flag whose value was dropped goes too.
				if n := len(args); n > 0 && strings.HasPrefix(args[n-1], "-") && !strings.Contains(args[n-1], "=") && strings.Contains(templateArg, "{") {
					args = args[:n-1]
				}
				continue
			}
			args = append(args, rendered)
		}
		if !hasPromptPlaceholder {
			args = append(args, req.Prompt)
		}
		return append([]string{a.cfg.Command}, args...), nil
	}

	args := make([]string, 0, 3)
	if a.cfg.ModelFlag != "" && model != "" {
		args = append(args, a.cfg.ModelFlag, model)
	}
	args = append(args, req.Prompt)
	return append([]string{a.cfg.Command}, args...), nil
}

func (a *CommandAdapter) HealthCheck() error {
	if _, err := exec.LookPath(a.cfg.Command); err != nil {
		return fmt.Errorf("command not found in PATH: %s", a.cfg.Command)
	}
	return nil
}

func renderTemplateArg(template string, values map[string]string) (string, bool) {
	matches := placeholderRegex.FindAllStringSubmatch(template, -1)
	rendered := template
	for _, match := range matches {
		key := match[1]
		value, ok := values[key]
		if !ok || strings.TrimSpace(value) == "" {
			return "", false
		}
		rendered = strings.ReplaceAll(rendered, "{"+key+"}", value)
	}
	rendered = strings.TrimSpace(rendered)
	if rendered == "" {
		return "", false
	}
	return rendered, true
}

// parseSuggestion accepts the bare JSON answer, a fenced block, or a CLI
// wrapper object carrying the answer under "result" or "content".
func parseSuggestion(raw string) (Suggestion, error) {
	trimmed := preprocessStructuredText(raw)
	if trimmed == "" {
		return Suggestion{}, fmt.Errorf("empty response")
	}

	if parsed, err := decodeSuggestionJSON(trimmed); err == nil {
		return parsed, nil
	}

	var wrapper map[string]any
	if err := json.Unmarshal([]byte(trimmed), &wrapper); err == nil {
		switch result := wrapper["result"].(type) {
		case string:
			if parsed, err := parseSuggestion(result); err == nil {
				return parsed, nil
			}
		case map[string]any:
			if bytes, err := json.Marshal(result); err == nil {
				if parsed, err := parseSuggestion(string(bytes)); err == nil {
					return parsed, nil
				}
			}
		}
		switch content := wrapper["content"].(type) {
		case string:
			if parsed, err := parseSuggestion(content); err == nil {
				return parsed, nil
			}
		case []any:
			for _, item := range content {
				obj, ok := item.(map[string]any)
				if !ok {
					continue
				}
				if text, ok := obj["text"].(string); ok {
					if parsed, err := parseSuggestion(text); err == nil {
						return parsed, nil
					}
				}
			}
		}
	}

	if extracted, ok := extractJSONObject(trimmed); ok && extracted != trimmed {
		if parsed, err := decodeSuggestionJSON(extracted); err == nil {
			return parsed, nil
		}
	}

	return Suggestion{}, fmt.Errorf("could not parse structured suggestion")
}

func decodeSuggestionJSON(raw string) (Suggestion, error) {
	var payload struct {
		Commands []string `json:"commands"`
		Command  string   `json:"command"`
		Note     string   `json:"note"`
		Reason   string   `json:"reason"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return Suggestion{}, err
	}
	if payload.Commands == nil && payload.Command == "" {
		return Suggestion{}, fmt.Errorf("missing commands field")
	}
	out := Suggestion{Note: strings.TrimSpace(payload.Note)}
	if out.Note == "" {
		out.Note = strings.TrimSpace(payload.Reason)
	}
	for _, command := range append(payload.Commands, payload.Command) {
		if command = strings.TrimSpace(command); command != "" {
			out.Commands = append(out.Commands, command)
		}
	}
	return out, nil
}

func extractJSONObject(raw string) (string, bool) {
	inString := false
	escape := false
	depth := 0
	start := -1
	for i, r := range raw {
		if escape {
			escape = false
			continue
		}
		if r == '\\' {
			escape = true
			continue
		}
		if r == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		if r == '{' {
			if depth == 0 {
				start = i
			}
			depth++
		} else if r == '}' {
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					return raw[start : i+1], true
				}
			}
		}
	}
	return "", false
}

func preprocessStructuredText(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	withoutFence := strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
	if idx := strings.IndexRune(withoutFence, '\n'); idx >= 0 {
		firstLine := strings.TrimSpace(withoutFence[:idx])
		if !strings.HasPrefix(firstLine, "{") && !strings.HasPrefix(firstLine, "[") {
			withoutFence = withoutFence[idx+1:]
		}
	}

	if idx := strings.LastIndex(withoutFence, "```"); idx >= 0 {
		withoutFence = withoutFence[:idx]
	}
	return strings.TrimSpace(withoutFence)
}

func truncate(text string, max int) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= max {
		return trimmed
	}
	return trimmed[:max] + "..."
}
