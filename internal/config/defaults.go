package config

const (
	defaultDataDir     = "~/.local/share/retell"
	defaultTemplateDir = "~/.config/retell/templates"
	defaultLogDir      = "~/.local/share/retell/logs"

	defaultMaxSubtitleChars = 200000

	defaultLLMBackend       = "openai"
	defaultLLMBaseURL       = "https://api.openai.com/v1/chat/completions"
	defaultLLMModel         = "gpt-5.2-chat-latest"
	defaultLLMTemperature   = 1.0
	defaultLLMTimeout       = 120
	defaultLLMRetryAttempts = 3

	defaultGatewayAuthMode = "bearer"
	defaultGatewayTimeout  = 60

	defaultCharTolerance = 100

	defaultLogFormat = "console"
	defaultLogLevel  = "info"

	// StoryCorePromptFilename is the fixed story-core template file name.
	StoryCorePromptFilename = "story_core_prompt.txt"
	// StoryPromptFilename is the fixed story template file name.
	StoryPromptFilename = "prompt_story.txt"
)

func defaultLanguages() []string {
	return []string{"en", "uk", "ru"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:     defaultDataDir,
			TemplateDir: defaultTemplateDir,
			LogDir:      defaultLogDir,
		},
		Subtitles: Subtitles{
			Languages:    defaultLanguages(),
			PreferManual: true,
			MaxChars:     defaultMaxSubtitleChars,
		},
		LLM: LLM{
			Backend:          defaultLLMBackend,
			BaseURL:          defaultLLMBaseURL,
			Model:            defaultLLMModel,
			Temperature:      defaultLLMTemperature,
			TimeoutSeconds:   defaultLLMTimeout,
			RetryMaxAttempts: defaultLLMRetryAttempts,
		},
		Gateway: Gateway{
			AuthMode:       defaultGatewayAuthMode,
			TimeoutSeconds: defaultGatewayTimeout,
		},
		Story: Story{
			CharTolerance: defaultCharTolerance,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
