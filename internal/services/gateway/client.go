package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

const defaultHTTPTimeout = 60 * time.Second

// AuthModeBearer and AuthModeAPIKey name the supported ways of attaching
// the gateway token to a request.
const (
	AuthModeBearer = "bearer"
	AuthModeAPIKey = "api-key"
)

// Config captures the runtime settings required to talk to a
// prompt-forwarding gateway endpoint.
type Config struct {
	URL            string
	Token          string
	AuthMode       string
	TimeoutSeconds int
}

// Client forwards prompts to a deployed gateway app. The wire contract is
// a POST of {"prompt": ...} answered by JSON whose text lives under one of
// several provider-dependent keys.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a gateway client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			URL:            strings.TrimSpace(cfg.URL),
			Token:          strings.TrimSpace(cfg.Token),
			AuthMode:       strings.ToLower(strings.TrimSpace(cfg.AuthMode)),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// Complete forwards prompt to the gateway and returns the generated text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("gateway complete: prompt required")
	}
	if c.cfg.URL == "" {
		return "", errors.New("gateway complete: url required")
	}

	encoded, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return "", fmt.Errorf("gateway request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("gateway request: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Token != "" {
		switch c.cfg.AuthMode {
		case AuthModeBearer, "":
			req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
		case AuthModeAPIKey:
			req.Header.Set("X-API-Key", c.cfg.Token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway request: http error (timeout=%s): %w", c.timeoutDuration(), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("gateway request: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gateway request: http %d: %s", resp.StatusCode, bodySnippet(body))
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("gateway request: invalid json response: %s", bodySnippet(body))
	}
	text, ok := extractText(payload)
	if !ok {
		return "", fmt.Errorf("gateway request: no text in response (keys=%s)", payloadKeys(payload))
	}
	return strings.TrimSpace(text), nil
}

// extractText tries the response shapes the gateway deployments are known
// to produce. Key presence decides the branch, not value emptiness, so an
// explicitly empty "text" field wins over a populated fallback key.
func extractText(payload map[string]any) (string, bool) {
	for _, key := range []string{"text", "output"} {
		if raw, ok := payload[key]; ok {
			return asString(raw)
		}
	}
	if candidates, ok := payload["candidates"].([]any); ok && len(candidates) > 0 {
		first, ok := candidates[0].(map[string]any)
		if !ok {
			return "", false
		}
		if raw, ok := first["content"]; ok {
			return asString(raw)
		}
		if raw, ok := first["text"]; ok {
			return asString(raw)
		}
		return "", false
	}
	for _, key := range []string{"response", "message"} {
		if raw, ok := payload[key]; ok {
			return asString(raw)
		}
	}
	return "", false
}

func asString(raw any) (string, bool) {
	value, ok := raw.(string)
	return value, ok
}

func payloadKeys(payload map[string]any) string {
	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

func (c *Client) timeoutDuration() time.Duration {
	if c == nil || c.httpClient == nil || c.httpClient.Timeout <= 0 {
		return defaultHTTPTimeout
	}
	return c.httpClient.Timeout
}

func bodySnippet(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "<empty>"
	}
	const limit = 500
	runes := []rune(trimmed)
	if len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return trimmed
}
