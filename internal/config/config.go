package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/respects-sh/respects/internal/appdirs"
	"github.com/respects-sh/respects/internal/i18n"
)

const (
	EvalInternal = "internal"
	EvalShell    = "shell"
)

type ProviderConfig struct {
	Type      string   `toml:"type,omitempty" json:"type,omitempty"`
	Command   string   `toml:"command,omitempty" json:"command,omitempty"`
	Enabled   *bool    `toml:"enabled,omitempty" json:"enabled,omitempty"`
	Model     string   `toml:"model,omitempty" json:"model,omitempty"`
	ModelFlag string   `toml:"model_flag,omitempty" json:"model_flag,omitempty"`
	Args      []string `toml:"args,omitempty" json:"args,omitempty"`
	URL       string   `toml:"url,omitempty" json:"url,omitempty"`
	APIKeyEnv string   `toml:"api_key_env,omitempty" json:"api_key_env,omitempty"`
}

type AIConfig struct {
	Enabled       bool   `toml:"enabled" json:"enabled"`
	Provider      string `toml:"provider" json:"provider"`
	MaxErrorBytes int    `toml:"max_error_bytes" json:"max_error_bytes"`
	RedactSecrets bool   `toml:"redact_secrets" json:"redact_secrets"`
}

type UIConfig struct {
	Backend string `toml:"backend" json:"backend"`
}

type Config struct {
	// Sudo replaces the builtin sudo/doas pair as the privilege command.
	Sudo string `toml:"sudo,omitempty" json:"sudo,omitempty"`
	// Timeout bounds the replay of the failed command, in milliseconds.
	Timeout    int                       `toml:"timeout" json:"timeout"`
	EvalMethod string                    `toml:"eval_method" json:"eval_method"`
	RulesDir   string                    `toml:"rules_dir,omitempty" json:"rules_dir,omitempty"`
	Locale     string                    `toml:"locale" json:"locale"`
	Modules    []string                  `toml:"modules,omitempty" json:"modules,omitempty"`
	Fallbacks  []string                  `toml:"fallbacks,omitempty" json:"fallbacks,omitempty"`
	UI         UIConfig                  `toml:"ui" json:"ui"`
	AI         AIConfig                  `toml:"ai" json:"ai"`
	Providers  map[string]ProviderConfig `toml:"providers" json:"providers"`
}

func Default() Config {
	return Config{
		Timeout:    3000,
		EvalMethod: EvalInternal,
		Locale:     "auto",
		UI: UIConfig{
			Backend: "bubbletea",
		},
		AI: AIConfig{
			Enabled:       false,
			Provider:      "auto",
			MaxErrorBytes: 4000,
			RedactSecrets: true,
		},
		Providers: defaultProviderCatalog(),
	}
}

func defaultProviderCatalog() map[string]ProviderConfig {
	return map[string]ProviderConfig{
		"openai": {
			Type:      "http",
			Enabled:   boolPtr(true),
			URL:       "https://api.openai.com/v1/chat/completions",
			Model:     "gpt-4o-mini",
			APIKeyEnv: "_PR_AI_API_KEY",
		},
		"claude": {
			Type:    "command",
			Command: "claude",
			Enabled: boolPtr(true),
			Model:   "haiku",
			Args: []string{
				"-p",
				"--output-format",
				"json",
				"--model",
				"{model}",
				"{prompt}",
			},
		},
		"codex": {
			Type:    "command",
			Command: "codex",
			Enabled: boolPtr(true),
			Model:   "gpt-5-mini",
			Args: []string{
				"exec",
				"--skip-git-repo-check",
				"--sandbox",
				"read-only",
				"--model",
				"{model}",
				"{prompt}",
			},
		},
	}
}

// ReplayTimeout returns the configured timeout as a duration.
func (c Config) ReplayTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

// Load applies the system config files and then the user's file on top of
// the defaults. Files that fail to parse are reported on warn and skipped.
func Load(warn io.Writer) (Config, string, error) {
	path, err := appdirs.ConfigFilePath()
	if err != nil {
		return Config{}, "", err
	}

	cfg := Default()
	for _, file := range append(appdirs.SystemConfigFiles(), path) {
		next, err := overlay(cfg, file)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			if warn != nil {
				fmt.Fprintf(warn, "respects: skipping %s: %v\n", file, err)
			}
			continue
		}
		cfg = next
	}
	cfg.normalize()
	return cfg, path, nil
}

// LoadFile reads a single config file over the defaults. A missing file is
// not an error.
func LoadFile(path string) (Config, error) {
	cfg, err := overlay(Default(), path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = Default()
	} else if err != nil {
		return Config{}, fmt.Errorf("could not parse config file: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func overlay(base Config, path string) (Config, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	next := base.clone()
	if err := toml.Unmarshal(bytes, &next); err != nil {
		return Config{}, err
	}
	return next, nil
}

func (c Config) clone() Config {
	out := c
	out.Modules = append([]string(nil), c.Modules...)
	out.Fallbacks = append([]string(nil), c.Fallbacks...)
	out.Providers = make(map[string]ProviderConfig, len(c.Providers))
	for name, p := range c.Providers {
		p.Args = append([]string(nil), p.Args...)
		out.Providers[name] = p
	}
	return out
}

func Save(path string, cfg Config) error {
	cfg.normalize()
	payload, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("could not serialize config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("could not create config dir: %w", err)
	}
	tempFile, err := os.CreateTemp(dir, ".respects-config-*.toml")
	if err != nil {
		return fmt.Errorf("could not create temp config file: %w", err)
	}
	tempPath := tempFile.Name()
	cleanup := func() {
		_ = os.Remove(tempPath)
	}

	if _, err := tempFile.Write(payload); err != nil {
		_ = tempFile.Close()
		cleanup()
		return fmt.Errorf("could not write temp config file: %w", err)
	}
	if err := tempFile.Chmod(0o600); err != nil {
		_ = tempFile.Close()
		cleanup()
		return fmt.Errorf("could not secure temp config file permissions: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		cleanup()
		return fmt.Errorf("could not close temp config file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		cleanup()
		return fmt.Errorf("could not atomically replace config file: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("could not secure config file permissions: %w", err)
	}
	return nil
}

func (c *Config) normalize() {
	defaults := Default()
	if c.Timeout <= 0 {
		c.Timeout = defaults.Timeout
	}
	c.EvalMethod = strings.ToLower(strings.TrimSpace(c.EvalMethod))
	if c.EvalMethod != EvalShell {
		c.EvalMethod = EvalInternal
	}
	c.Sudo = strings.TrimSpace(c.Sudo)
	c.RulesDir = strings.TrimSpace(c.RulesDir)
	c.Locale = normalizeLocaleSetting(c.Locale, defaults.Locale)
	if c.Locale == "" {
		c.Locale = defaults.Locale
	}
	c.UI.Backend = normalizeUIBackend(c.UI.Backend, defaults.UI.Backend)
	if c.AI.Provider == "" {
		c.AI.Provider = defaults.AI.Provider
	}
	if c.AI.MaxErrorBytes <= 0 {
		c.AI.MaxErrorBytes = defaults.AI.MaxErrorBytes
	}
	if c.Providers == nil {
		c.Providers = map[string]ProviderConfig{}
	}

	for name, def := range defaultProviderCatalog() {
		current, ok := c.Providers[name]
		if !ok {
			c.Providers[name] = def
			continue
		}
		mergeProviderDefaults(&current, def)
		c.Providers[name] = current
	}

	for name, provider := range c.Providers {
		if provider.Type == "" {
			provider.Type = "command"
		}
		if provider.Type == "command" && provider.Command == "" {
			provider.Command = name
		}
		if provider.Enabled == nil {
			provider.Enabled = boolPtr(true)
		}
		if provider.Type == "command" && provider.ModelFlag == "" && len(provider.Args) == 0 {
			provider.ModelFlag = "--model"
		}
		c.Providers[name] = provider
	}
}

func mergeProviderDefaults(target *ProviderConfig, defaults ProviderConfig) {
	if target.Type == "" {
		target.Type = defaults.Type
	}
	if target.Command == "" {
		target.Command = defaults.Command
	}
	if target.Enabled == nil {
		target.Enabled = defaults.Enabled
	}
	if target.Model == "" {
		target.Model = defaults.Model
	}
	if target.ModelFlag == "" {
		target.ModelFlag = defaults.ModelFlag
	}
	if len(target.Args) == 0 {
		target.Args = append([]string(nil), defaults.Args...)
	}
	if target.URL == "" {
		target.URL = defaults.URL
	}
	if target.APIKeyEnv == "" {
		target.APIKeyEnv = defaults.APIKeyEnv
	}
}

func (c *Config) Set(key, value string) error {
	key = strings.TrimSpace(strings.ToLower(key))
	value = strings.TrimSpace(value)

	if strings.HasPrefix(key, "providers.") {
		if err := c.setProviderKey(key, value); err != nil {
			return err
		}
		c.normalize()
		return nil
	}

	switch key {
	case "sudo":
		c.Sudo = value
	case "timeout":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("timeout must be a positive number of milliseconds")
		}
		c.Timeout = n
	case "eval_method":
		method := strings.ToLower(value)
		if method != EvalInternal && method != EvalShell {
			return fmt.Errorf("eval_method must be one of internal|shell")
		}
		c.EvalMethod = method
	case "rules_dir":
		c.RulesDir = value
	case "locale":
		c.Locale = normalizeLocaleSetting(value, "")
		if c.Locale == "" {
			return fmt.Errorf("locale must be 'auto' or a locale like en, en-US, hi, hi-IN")
		}
	case "modules":
		c.Modules = splitCommaList(value)
	case "fallbacks":
		c.Fallbacks = splitCommaList(value)
	case "ui.backend":
		c.UI.Backend = normalizeUIBackend(value, "")
		if c.UI.Backend == "" {
			return fmt.Errorf("ui.backend must be one of auto|bubbletea|huh|tview|plain")
		}
	case "ai.enabled":
		b, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("ai.enabled must be boolean")
		}
		c.AI.Enabled = b
	case "ai.provider":
		c.AI.Provider = strings.ToLower(value)
	case "ai.max_error_bytes":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("ai.max_error_bytes must be a positive number")
		}
		c.AI.MaxErrorBytes = n
	case "ai.redact_secrets":
		b, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("ai.redact_secrets must be boolean")
		}
		c.AI.RedactSecrets = b
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	c.normalize()
	return nil
}

func (c *Config) setProviderKey(key, value string) error {
	parts := strings.Split(key, ".")
	if len(parts) != 3 {
		return fmt.Errorf("invalid provider key: %s", key)
	}
	providerName := parts[1]
	provider := c.ensureProvider(providerName)

	switch parts[2] {
	case "type":
		if value != "command" && value != "http" {
			return fmt.Errorf("providers.%s.type must be command or http", providerName)
		}
		provider.Type = value
	case "command":
		provider.Command = value
	case "model":
		provider.Model = value
	case "model_flag":
		provider.ModelFlag = value
	case "url":
		provider.URL = value
	case "api_key_env":
		provider.APIKeyEnv = value
	case "enabled":
		b, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("providers.%s.enabled must be boolean", providerName)
		}
		provider.Enabled = boolPtr(b)
	case "args":
		provider.Args = splitCommaList(value)
	default:
		return fmt.Errorf("unknown provider field: %s", parts[2])
	}
	c.Providers[providerName] = provider
	return nil
}

func (c *Config) ensureProvider(name string) ProviderConfig {
	if c.Providers == nil {
		c.Providers = map[string]ProviderConfig{}
	}
	provider, ok := c.Providers[name]
	if !ok {
		provider = ProviderConfig{
			Type:    "command",
			Command: name,
			Enabled: boolPtr(true),
		}
		c.Providers[name] = provider
	}
	return provider
}

func (c Config) Get(key string) (string, error) {
	key = strings.TrimSpace(strings.ToLower(key))

	if strings.HasPrefix(key, "providers.") {
		return c.getProviderKey(key)
	}

	switch key {
	case "sudo":
		return c.Sudo, nil
	case "timeout":
		return strconv.Itoa(c.Timeout), nil
	case "eval_method":
		return c.EvalMethod, nil
	case "rules_dir":
		return c.RulesDir, nil
	case "locale":
		return c.Locale, nil
	case "modules":
		return strings.Join(c.Modules, ","), nil
	case "fallbacks":
		return strings.Join(c.Fallbacks, ","), nil
	case "ui.backend":
		return c.UI.Backend, nil
	case "ai.enabled":
		return strconv.FormatBool(c.AI.Enabled), nil
	case "ai.provider":
		return c.AI.Provider, nil
	case "ai.max_error_bytes":
		return strconv.Itoa(c.AI.MaxErrorBytes), nil
	case "ai.redact_secrets":
		return strconv.FormatBool(c.AI.RedactSecrets), nil
	default:
		return "", fmt.Errorf("unknown config key: %s", key)
	}
}

func (c Config) getProviderKey(key string) (string, error) {
	parts := strings.Split(key, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("invalid provider key: %s", key)
	}
	providerName := parts[1]
	provider, ok := c.Providers[providerName]
	if !ok {
		return "", fmt.Errorf("unknown provider: %s", providerName)
	}

	switch parts[2] {
	case "type":
		return provider.Type, nil
	case "command":
		return provider.Command, nil
	case "model":
		return provider.Model, nil
	case "model_flag":
		return provider.ModelFlag, nil
	case "url":
		return provider.URL, nil
	case "api_key_env":
		return provider.APIKeyEnv, nil
	case "enabled":
		return strconv.FormatBool(provider.Enabled == nil || *provider.Enabled), nil
	case "args":
		return strings.Join(provider.Args, ","), nil
	default:
		return "", fmt.Errorf("unknown provider field: %s", parts[2])
	}
}

func (c Config) ProviderNames() []string {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool: %s", value)
	}
}

func splitCommaList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

func boolPtr(v bool) *bool {
	b := v
	return &b
}

func normalizeUIBackend(value string, fallback string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "auto", "bubbletea", "huh", "tview", "plain":
		return normalized
	default:
		return strings.ToLower(strings.TrimSpace(fallback))
	}
}

func normalizeLocaleSetting(value string, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		trimmed = strings.TrimSpace(fallback)
	}
	if strings.EqualFold(trimmed, "auto") {
		return "auto"
	}
	return i18n.NormalizeLocale(trimmed)
}
