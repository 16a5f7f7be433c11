package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeSubtitles(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeGateway()
	c.normalizeStory()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.TemplateDir) == "" {
		c.Paths.TemplateDir = defaultTemplateDir
	}
	if c.Paths.TemplateDir, err = expandPath(c.Paths.TemplateDir); err != nil {
		return fmt.Errorf("paths.template_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSubtitles() error {
	langs := make([]string, 0, len(c.Subtitles.Languages))
	seen := make(map[string]struct{}, len(c.Subtitles.Languages))
	for _, lang := range c.Subtitles.Languages {
		normalized := strings.ToLower(strings.TrimSpace(lang))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		langs = append(langs, normalized)
	}
	if len(langs) == 0 {
		langs = defaultLanguages()
	}
	c.Subtitles.Languages = langs

	if c.Subtitles.MaxChars <= 0 {
		c.Subtitles.MaxChars = defaultMaxSubtitleChars
	}

	c.Subtitles.CookiesFile = strings.TrimSpace(c.Subtitles.CookiesFile)
	if c.Subtitles.CookiesFile != "" {
		expanded, err := expandPath(c.Subtitles.CookiesFile)
		if err != nil {
			return fmt.Errorf("subtitles.cookies_file: %w", err)
		}
		c.Subtitles.CookiesFile = expanded
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.Backend = strings.ToLower(strings.TrimSpace(c.LLM.Backend))
	if c.LLM.Backend == "" {
		c.LLM.Backend = defaultLLMBackend
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.Temperature < 0 {
		c.LLM.Temperature = defaultLLMTemperature
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeout
	}
	if c.LLM.RetryMaxAttempts <= 0 {
		c.LLM.RetryMaxAttempts = defaultLLMRetryAttempts
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = firstEnv("RETELL_LLM_API_KEY", "OPENAI_API_KEY")
	}
}

func (c *Config) normalizeGateway() {
	c.Gateway.URL = strings.TrimSpace(c.Gateway.URL)
	if c.Gateway.URL == "" {
		c.Gateway.URL = firstEnv("GENAI_APP_URL")
	}
	c.Gateway.Token = strings.TrimSpace(c.Gateway.Token)
	if c.Gateway.Token == "" {
		c.Gateway.Token = firstEnv("GENAI_APP_TOKEN")
	}
	c.Gateway.AuthMode = strings.ToLower(strings.TrimSpace(c.Gateway.AuthMode))
	if c.Gateway.AuthMode == "" {
		c.Gateway.AuthMode = strings.ToLower(firstEnv("GENAI_APP_AUTH_MODE"))
	}
	if c.Gateway.AuthMode == "" {
		c.Gateway.AuthMode = defaultGatewayAuthMode
	}
	if c.Gateway.TimeoutSeconds <= 0 {
		c.Gateway.TimeoutSeconds = defaultGatewayTimeout
	}
}

// firstEnv returns the first non-empty value among the named environment
// variables.
func firstEnv(names ...string) string {
	for _, name := range names {
		if value := strings.TrimSpace(os.Getenv(name)); value != "" {
			return value
		}
	}
	return ""
}

func (c *Config) normalizeStory() {
	if c.Story.CharTolerance <= 0 {
		c.Story.CharTolerance = defaultCharTolerance
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
