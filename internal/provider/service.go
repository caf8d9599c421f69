package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/respects-sh/respects/internal/config"
	"github.com/respects-sh/respects/internal/safety"
)

// ErrSkipped is returned when the failure is not worth a model call.
var ErrSkipped = errors.New("ai fallback skipped")

const defaultTimeout = 30 * time.Second

type Service struct {
	registry *Registry
	// Timeout bounds each provider attempt. Zero means 30s.
	Timeout time.Duration
	Logger  *slog.Logger
}

func NewService(registry *Registry, logger *slog.Logger) *Service {
	if registry == nil {
		registry = NewRegistry()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{registry: registry, Logger: logger}
}

// Suggest tries the configured providers in order and returns the first
// answer together with the provider's name. Commands without arguments are
// skipped: their error is almost always a usage message.
func (s *Service) Suggest(ctx context.Context, cfg config.Config, req Request) (Suggestion, string, error) {
	if len(strings.Fields(req.Command)) < 2 {
		return Suggestion{}, "", ErrSkipped
	}

	if cfg.AI.RedactSecrets {
		req.Command = safety.RedactText(req.Command)
		req.Error = safety.RedactText(req.Error)
	}
	req.Error = safety.Truncate(req.Error, cfg.AI.MaxErrorBytes)
	req.Prompt = BuildPrompt(req)

	order := providerOrder(cfg)
	if len(order) == 0 {
		return Suggestion{}, "", fmt.Errorf("no providers configured")
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	issues := make([]string, 0, len(order))
	for _, name := range order {
		providerCfg := cfg.Providers[name]
		if providerCfg.Enabled != nil && !*providerCfg.Enabled {
			continue
		}

		adapter, err := s.registry.Build(name, providerCfg)
		if err != nil {
			issues = append(issues, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		if checker, ok := adapter.(HealthChecker); ok {
			if err := checker.HealthCheck(); err != nil {
				issues = append(issues, fmt.Sprintf("%s: %v", name, err))
				continue
			}
		}

		providerCtx, cancel := context.WithTimeout(ctx, timeout)
		suggestion, err := adapter.Suggest(providerCtx, req)
		cancel()
		if err != nil {
			s.Logger.Debug("provider failed", "provider", name, "error", err)
			issues = append(issues, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		s.Logger.Debug("provider answered", "provider", name, "commands", len(suggestion.Commands))
		return suggestion, name, nil
	}

	if len(issues) == 0 {
		return Suggestion{}, "", fmt.Errorf("no enabled provider was available")
	}
	return Suggestion{}, "", fmt.Errorf("all providers failed: %s", strings.Join(issues, " | "))
}

// providerOrder puts the preferred provider first when one is set, then
// the remote endpoint, then the local CLIs, then anything else by name.
func providerOrder(cfg config.Config) []string {
	seen := map[string]struct{}{}
	order := make([]string, 0, len(cfg.Providers))

	add := func(name string) {
		name = strings.TrimSpace(strings.ToLower(name))
		if name == "" || name == "auto" {
			return
		}
		if _, ok := cfg.Providers[name]; !ok {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		order = append(order, name)
	}

	preferred := strings.TrimSpace(strings.ToLower(cfg.AI.Provider))
	add(preferred)
	if preferred != "" && preferred != "auto" {
		return order
	}
	add("openai")
	add("claude")
	add("codex")
	for _, name := range cfg.ProviderNames() {
		add(name)
	}
	return order
}
