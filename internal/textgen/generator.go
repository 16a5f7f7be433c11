package textgen

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"retell/internal/config"
	"retell/internal/logging"
	"retell/internal/services"
	"retell/internal/services/gateway"
	"retell/internal/services/llm"
)

// Backend names accepted in [llm].backend.
const (
	BackendOpenAI  = "openai"
	BackendGateway = "gateway"
)

// Generator produces text for a prompt. Both generation backends satisfy
// it, as do the fakes in testsupport.
type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	Name() string
}

type completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type backendGenerator struct {
	name   string
	client completer
	logger *slog.Logger
}

// New selects and constructs the generation backend named by the
// configuration.
func New(cfg *config.Config, logger *slog.Logger) (Generator, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "textgen", "new", "configuration unavailable", nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	backend := strings.ToLower(strings.TrimSpace(cfg.LLM.Backend))
	switch backend {
	case "", BackendOpenAI:
		if strings.TrimSpace(cfg.LLM.APIKey) == "" {
			return nil, services.Wrap(services.ErrConfiguration, "textgen", "new",
				"llm api key is not set (set [llm].api_key or the RETELL_LLM_API_KEY environment variable)", nil)
		}
		client := llm.NewClient(llm.Config{
			APIKey:           cfg.LLM.APIKey,
			BaseURL:          cfg.LLM.BaseURL,
			Model:            cfg.LLM.Model,
			Temperature:      cfg.LLM.Temperature,
			TimeoutSeconds:   cfg.LLM.TimeoutSeconds,
			RetryMaxAttempts: cfg.LLM.RetryMaxAttempts,
		})
		return newBackendGenerator(BackendOpenAI, client, logger), nil
	case BackendGateway:
		if strings.TrimSpace(cfg.Gateway.URL) == "" {
			return nil, services.Wrap(services.ErrConfiguration, "textgen", "new",
				"gateway url is not set (set [gateway].url)", nil)
		}
		client := gateway.NewClient(gateway.Config{
			URL:            cfg.Gateway.URL,
			Token:          cfg.Gateway.Token,
			AuthMode:       cfg.Gateway.AuthMode,
			TimeoutSeconds: cfg.Gateway.TimeoutSeconds,
		})
		return newBackendGenerator(BackendGateway, client, logger), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "textgen", "new",
			fmt.Sprintf("unknown backend %q (use %q or %q)", cfg.LLM.Backend, BackendOpenAI, BackendGateway), nil)
	}
}

func newBackendGenerator(name string, client completer, logger *slog.Logger) *backendGenerator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &backendGenerator{
		name:   name,
		client: client,
		logger: logger.With(logging.String(logging.FieldBackend, name)),
	}
}

func (g *backendGenerator) Name() string {
	return g.name
}

func (g *backendGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	if g == nil || g.client == nil {
		return "", services.Wrap(services.ErrConfiguration, "textgen", "generate", "generator not initialized", nil)
	}
	started := time.Now()
	text, err := g.client.Complete(ctx, prompt)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "textgen", "generate", g.name+" backend request failed", err)
	}
	g.logger.Debug("generated text",
		logging.Int("prompt_chars", len(prompt)),
		logging.Int("output_chars", len(text)),
		logging.Duration("elapsed", time.Since(started)))
	return text, nil
}

// Probe sends a minimal prompt through the generator to confirm the
// backend is reachable and authorized. Callers supply the deadline.
func Probe(ctx context.Context, gen Generator) error {
	if gen == nil {
		return services.Wrap(services.ErrConfiguration, "textgen", "probe", "generator not initialized", nil)
	}
	_, err := gen.GenerateText(ctx, "Reply with the single word: ok")
	return err
}
