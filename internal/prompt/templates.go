package prompt

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"retell/internal/config"
	"retell/internal/services"
)

//go:embed story_core_prompt.txt
var starterStoryCoreTemplate string

//go:embed prompt_story.txt
var starterStoryTemplate string

// LoadStoryCoreTemplate reads the story-core prompt template from path.
// There is no built-in fallback: the pipeline cannot distill a story core
// without the operator-authored template, so a missing or empty file is a
// configuration error.
func LoadStoryCoreTemplate(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "prompt", "load_story_core_template",
			fmt.Sprintf("story core template %s is not readable (create with 'retell config init')", path), err)
	}
	text := string(data)
	if strings.TrimSpace(text) == "" {
		return "", services.Wrap(services.ErrConfiguration, "prompt", "load_story_core_template",
			fmt.Sprintf("story core template %s is empty (create with 'retell config init')", path), nil)
	}
	return text, nil
}

// LoadStoryTemplate reads the story prompt template from path, falling back
// to the built-in default when the file is missing, unreadable, or empty.
func LoadStoryTemplate(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultStoryTemplate()
	}
	text := string(data)
	if strings.TrimSpace(text) == "" {
		return DefaultStoryTemplate()
	}
	return text
}

// DefaultStoryTemplate returns the built-in story prompt. It is the same
// text 'retell config init' writes as the starter prompt_story.txt, so a
// fresh install behaves identically with or without the file on disk.
func DefaultStoryTemplate() string {
	return starterStoryTemplate
}

// WriteStarterTemplates materializes the embedded starter templates in dir,
// leaving existing files untouched. It returns the paths it wrote.
func WriteStarterTemplates(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "prompt", "write_starter_templates",
			fmt.Sprintf("cannot create template directory %s", dir), err)
	}
	starters := []struct {
		name string
		body string
	}{
		{config.StoryCorePromptFilename, starterStoryCoreTemplate},
		{config.StoryPromptFilename, starterStoryTemplate},
	}
	var written []string
	for _, starter := range starters {
		path := filepath.Join(dir, starter.name)
		if _, err := os.Stat(path); err == nil {
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			return written, services.Wrap(services.ErrConfiguration, "prompt", "write_starter_templates",
				fmt.Sprintf("cannot inspect %s", path), err)
		}
		if err := os.WriteFile(path, []byte(starter.body), 0o644); err != nil {
			return written, services.Wrap(services.ErrConfiguration, "prompt", "write_starter_templates",
				fmt.Sprintf("cannot write starter template %s", path), err)
		}
		written = append(written, path)
	}
	return written, nil
}
