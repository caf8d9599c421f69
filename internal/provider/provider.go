// Package provider asks a language model for a corrected command when no
// rule or plugin had an answer.
package provider

import (
	"context"
	"fmt"

	"github.com/respects-sh/respects/internal/config"
)

// Request carries the failure facts and the rendered prompt.
type Request struct {
	Shell   string
	Command string
	Error   string
	Locale  string
	// Extra is appended to the prompt verbatim.
	Extra  string
	Prompt string
	Model  string
}

// Suggestion is the structured answer every adapter produces.
type Suggestion struct {
	Commands []string `json:"commands"`
	Note     string   `json:"note"`
}

type Adapter interface {
	Name() string
	Type() string
	Suggest(ctx context.Context, req Request) (Suggestion, error)
}

type HealthChecker interface {
	HealthCheck() error
}

type Factory func(name string, cfg config.ProviderConfig) (Adapter, error)

type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	r := &Registry{factories: map[string]Factory{}}
	r.Register("command", NewCommandAdapter)
	r.Register("http", NewHTTPAdapter)
	return r
}

func (r *Registry) Register(providerType string, factory Factory) {
	if r.factories == nil {
		r.factories = map[string]Factory{}
	}
	r.factories[providerType] = factory
}

func (r *Registry) Build(name string, cfg config.ProviderConfig) (Adapter, error) {
	providerType := cfg.Type
	if providerType == "" {
		providerType = "command"
	}
	factory, ok := r.factories[providerType]
	if !ok {
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
	return factory(name, cfg)
}
