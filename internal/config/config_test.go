package config

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
)

func TestSetGetRoundTrip(t *testing.T) {
	cfg := Default()

	settings := map[string]string{
		"sudo":                   "run0",
		"timeout":                "1500",
		"eval_method":            "shell",
		"rules_dir":              "/srv/rules",
		"modules":                "my-plugin --fast, other",
		"ui.backend":             "huh",
		"ai.enabled":             "true",
		"ai.provider":            "Claude",
		"ai.max_error_bytes":     "200",
		"ai.redact_secrets":      "false",
		"providers.openai.model": "gpt-4.1-mini",
		"providers.openai.url":   "http://localhost:8080/v1/chat/completions",
	}
	for key, value := range settings {
		if err := cfg.Set(key, value); err != nil {
			t.Fatalf("set %s failed: %v", key, err)
		}
	}

	expected := map[string]string{
		"sudo":                   "run0",
		"timeout":                "1500",
		"eval_method":            "shell",
		"rules_dir":              "/srv/rules",
		"modules":                "my-plugin --fast,other",
		"ui.backend":             "huh",
		"ai.enabled":             "true",
		"ai.provider":            "claude",
		"ai.max_error_bytes":     "200",
		"ai.redact_secrets":      "false",
		"providers.openai.model": "gpt-4.1-mini",
		"providers.openai.url":   "http://localhost:8080/v1/chat/completions",
		"providers.openai.type":  "http",
	}
	for key, want := range expected {
		got, err := cfg.Get(key)
		if err != nil {
			t.Fatalf("get %s failed: %v", key, err)
		}
		if got != want {
			t.Fatalf("%s: expected %q, got %q", key, want, got)
		}
	}
	if cfg.ReplayTimeout() != 1500*time.Millisecond {
		t.Fatalf("unexpected replay timeout %s", cfg.ReplayTimeout())
	}
}

func TestSetRejectsInvalidValues(t *testing.T) {
	cfg := Default()
	bad := map[string]string{
		"timeout":               "0",
		"eval_method":           "magic",
		"ui.backend":            "neon-ui",
		"locale":                "%%bad-locale",
		"ai.enabled":            "maybe",
		"ai.max_error_bytes":    "-1",
		"providers.openai.type": "grpc",
		"providers.x.y.z":       "1",
		"no.such.key":           "1",
	}
	for key, value := range bad {
		if err := cfg.Set(key, value); err == nil {
			t.Fatalf("expected %s=%q to be rejected", key, value)
		}
	}
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.UI.Backend != "bubbletea" {
		t.Fatalf("expected default ui backend bubbletea, got %q", cfg.UI.Backend)
	}
	if cfg.Timeout != 3000 {
		t.Fatalf("expected default timeout 3000ms, got %d", cfg.Timeout)
	}
	if cfg.EvalMethod != EvalInternal {
		t.Fatalf("expected internal eval method, got %q", cfg.EvalMethod)
	}
	if cfg.AI.Enabled {
		t.Fatalf("expected ai fallback to be opt-in")
	}
	for _, name := range []string{"openai", "claude", "codex"} {
		if _, ok := cfg.Providers[name]; !ok {
			t.Fatalf("expected default provider %s", name)
		}
	}
}

func TestNormalizeFillsProviderDefaults(t *testing.T) {
	cfg := Config{Providers: map[string]ProviderConfig{
		"openai": {Model: "local-model"},
		"ollama": {},
	}}
	cfg.normalize()

	openai := cfg.Providers["openai"]
	if openai.Type != "http" || openai.Model != "local-model" || openai.APIKeyEnv == "" {
		t.Fatalf("expected openai defaults merged, got %+v", openai)
	}
	ollama := cfg.Providers["ollama"]
	if ollama.Type != "command" || ollama.Command != "ollama" || ollama.ModelFlag != "--model" {
		t.Fatalf("expected custom provider defaults, got %+v", ollama)
	}
	if ollama.Enabled == nil || !*ollama.Enabled {
		t.Fatalf("expected custom provider enabled by default")
	}
}

func TestLoadLayersSystemThenUserAndSkipsMalformed(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("xdg layout only")
	}

	root := t.TempDir()
	system := filepath.Join(root, "system")
	broken := filepath.Join(root, "broken")
	user := filepath.Join(root, "user")
	t.Setenv("XDG_CONFIG_DIRS", broken+":"+system)
	t.Setenv("XDG_CONFIG_HOME", user)
	t.Setenv("HOME", root)

	writeConfig(t, filepath.Join(system, "respects", "config.toml"), "timeout = 9000\nsudo = \"doas\"\nmodules = [\"sys-plugin\"]\n")
	writeConfig(t, filepath.Join(broken, "respects", "config.toml"), "timeout = = =\n")
	writeConfig(t, filepath.Join(user, "respects", "config.toml"), "timeout = 1200\n[ui]\nbackend = \"plain\"\n")

	var warn bytes.Buffer
	cfg, path, err := Load(&warn)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if path != filepath.Join(user, "respects", "config.toml") {
		t.Fatalf("unexpected user config path %q", path)
	}
	if cfg.Timeout != 1200 {
		t.Fatalf("expected user timeout to win, got %d", cfg.Timeout)
	}
	if cfg.Sudo != "doas" || len(cfg.Modules) != 1 || cfg.Modules[0] != "sys-plugin" {
		t.Fatalf("expected system values to survive, got sudo=%q modules=%v", cfg.Sudo, cfg.Modules)
	}
	if cfg.UI.Backend != "plain" {
		t.Fatalf("expected plain backend, got %q", cfg.UI.Backend)
	}
	if !strings.Contains(warn.String(), broken) {
		t.Fatalf("expected malformed file to be reported, got %q", warn.String())
	}
}

func TestLoadFileMissingUsesDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Timeout != Default().Timeout {
		t.Fatalf("expected default timeout, got %d", cfg.Timeout)
	}
}

func TestSaveUsesPrivateFileMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not portable on windows")
	}

	cfg := Default()
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat config failed: %v", err)
	}
	if perms := info.Mode().Perm(); perms&0o077 != 0 {
		t.Fatalf("expected private permissions, got %o", perms)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if loaded.Timeout != cfg.Timeout || loaded.UI.Backend != cfg.UI.Backend {
		t.Fatalf("expected saved config to round trip, got %+v", loaded)
	}
}

func TestSaveAtomicWriteProducesParseableConfigUnderConcurrentSaves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			cfg := Default()
			if idx%2 == 0 {
				cfg.AI.Provider = "claude"
			} else {
				cfg.AI.Provider = "codex"
			}
			if err := Save(path, cfg); err != nil {
				t.Errorf("save failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	bytes, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config failed: %v", err)
	}
	var parsed Config
	if err := toml.Unmarshal(bytes, &parsed); err != nil {
		t.Fatalf("expected final config to be parseable TOML, got error: %v\ncontent:\n%s", err, string(bytes))
	}
}

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}
