package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSubtitles(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateGateway(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSubtitles() error {
	if len(c.Subtitles.Languages) == 0 {
		return errors.New("subtitles.languages must include at least one language")
	}
	if c.Subtitles.MaxChars <= 0 {
		return errors.New("subtitles.max_chars must be positive")
	}
	return nil
}

func (c *Config) validateLLM() error {
	switch c.LLM.Backend {
	case "openai", "gateway":
	default:
		return fmt.Errorf("llm.backend must be %q or %q, got %q", "openai", "gateway", c.LLM.Backend)
	}
	if c.LLM.Backend == "openai" && c.LLM.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/retell/config.toml"
		}
		return fmt.Errorf("llm.api_key is required for the openai backend. Set OPENAI_API_KEY env var or edit %s (create with 'retell config init')", defaultPath)
	}
	if c.LLM.Temperature > 2 {
		return errors.New("llm.temperature must be between 0 and 2")
	}
	return nil
}

func (c *Config) validateGateway() error {
	if c.LLM.Backend == "gateway" && strings.TrimSpace(c.Gateway.URL) == "" {
		return errors.New("gateway.url must be set when llm.backend is \"gateway\" (or set GENAI_APP_URL)")
	}
	switch c.Gateway.AuthMode {
	case "bearer", "api-key":
	default:
		return fmt.Errorf("gateway.auth_mode must be %q or %q, got %q", "bearer", "api-key", c.Gateway.AuthMode)
	}
	return nil
}
