package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/respects-sh/respects/internal/config"
)

// HTTPAdapter talks to an OpenAI-compatible chat completions endpoint.
// _PR_AI_URL, _PR_AI_MODEL and _PR_AI_API_KEY override the configured values.
type HTTPAdapter struct {
	name   string
	url    string
	model  string
	key    string
	client *http.Client
}

func NewHTTPAdapter(name string, cfg config.ProviderConfig) (Adapter, error) {
	a := &HTTPAdapter{
		name:   name,
		url:    firstNonEmpty(os.Getenv("_PR_AI_URL"), cfg.URL),
		model:  firstNonEmpty(os.Getenv("_PR_AI_MODEL"), cfg.Model),
		client: http.DefaultClient,
	}
	if a.url == "" {
		return nil, fmt.Errorf("provider %s has no url", name)
	}
	if _, err := url.ParseRequestURI(a.url); err != nil {
		return nil, fmt.Errorf("provider %s has an invalid url: %w", name, err)
	}
	a.key = os.Getenv("_PR_AI_API_KEY")
	if a.key == "" && cfg.APIKeyEnv != "" {
		a.key = os.Getenv(cfg.APIKeyEnv)
	}
	return a, nil
}

func (a *HTTPAdapter) Name() string {
	return a.name
}

func (a *HTTPAdapter) Type() string {
	return "http"
}

// HealthCheck requires an API key unless the endpoint is on this machine.
func (a *HTTPAdapter) HealthCheck() error {
	if a.key != "" {
		return nil
	}
	u, err := url.Parse(a.url)
	if err == nil {
		switch u.Hostname() {
		case "localhost", "127.0.0.1", "::1":
			return nil
		}
	}
	return fmt.Errorf("no API key set for %s", a.name)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (a *HTTPAdapter) Suggest(ctx context.Context, req Request) (Suggestion, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return Suggestion{}, fmt.Errorf("prompt cannot be empty")
	}
	model := firstNonEmpty(req.Model, a.model)
	body, err := json.Marshal(chatRequest{
		Model:    model,
		Messages: []chatMessage{{Role: "user", Content: req.Prompt}},
	})
	if err != nil {
		return Suggestion{}, fmt.Errorf("could not encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return Suggestion{}, fmt.Errorf("could not build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if a.key != "" {
		httpReq.Header.Set("Authorization", "Bearer "+a.key)
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return Suggestion{}, fmt.Errorf("request to %s failed: %w", a.name, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Suggestion{}, fmt.Errorf("could not read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Suggestion{}, fmt.Errorf("%s returned %s: %s", a.name, resp.Status, truncate(string(payload), 400))
	}

	var decoded chatResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return Suggestion{}, fmt.Errorf("could not decode response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return Suggestion{}, fmt.Errorf("%s returned no choices", a.name)
	}
	suggestion, err := parseSuggestion(decoded.Choices[0].Message.Content)
	if err != nil {
		return Suggestion{}, fmt.Errorf("provider returned unparseable output: %s", truncate(decoded.Choices[0].Message.Content, 400))
	}
	return suggestion, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
