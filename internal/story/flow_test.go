package story_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"retell/internal/logging"
	"retell/internal/services"
	"retell/internal/story"
)

const coreTemplate = "Analyze.\n\nORIGINAL_STORY:\n{PASTE HERE}\n\nCORE OBJECTIVE\nCondense it.\n"

const storyTemplate = "STORY_CORE:\n{STORY_CORE}\n\nTARGET_LENGTH_CHARS: {TARGET_LENGTH_CHARS}\n\nWrite the story.\n"

type scriptedGenerator struct {
	t       *testing.T
	replies []string
	prompts []string
}

func newScriptedGenerator(t *testing.T, replies ...string) *scriptedGenerator {
	t.Helper()
	return &scriptedGenerator{t: t, replies: replies}
}

func (g *scriptedGenerator) GenerateText(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if len(g.prompts) > len(g.replies) {
		g.t.Fatalf("unexpected generation call %d", len(g.prompts))
	}
	return g.replies[len(g.prompts)-1], nil
}

type failingGenerator struct{ err error }

func (g failingGenerator) GenerateText(context.Context, string) (string, error) {
	return "", g.err
}

func TestGenerateCore(t *testing.T) {
	gen := newScriptedGenerator(t, "CORE: a debt, a letter, a way out")
	flow := story.NewFlow(gen, logging.NewNop())

	res, err := flow.GenerateCore(context.Background(), coreTemplate, "the full story")
	if err != nil {
		t.Fatalf("GenerateCore failed: %v", err)
	}
	if res.Core != "CORE: a debt, a letter, a way out" {
		t.Fatalf("Core = %q", res.Core)
	}
	if !strings.Contains(res.FilledPrompt, "{the full story}") {
		t.Fatalf("filled prompt missing the story: %q", res.FilledPrompt)
	}
	if len(gen.prompts) != 1 || gen.prompts[0] != res.FilledPrompt {
		t.Fatal("generator did not receive the filled prompt")
	}
}

func TestGenerateCoreBrokenTemplate(t *testing.T) {
	gen := newScriptedGenerator(t)
	flow := story.NewFlow(gen, logging.NewNop())

	_, err := flow.GenerateCore(context.Background(), "ORIGINAL_STORY:\n{x}\nno terminator\n", "story text")
	if !errors.Is(err, services.ErrContract) {
		t.Fatalf("error = %v, want contract violation", err)
	}
	if len(gen.prompts) != 0 {
		t.Fatal("generation must not run with a broken template")
	}
}

func TestGenerateStory(t *testing.T) {
	reply := "Text:\n{slide one}\n\nPrompt:\n{calm}"
	gen := newScriptedGenerator(t, reply)
	flow := story.NewFlow(gen, logging.NewNop())

	res, err := flow.GenerateStory(context.Background(), storyTemplate, "the core", 9000)
	if err != nil {
		t.Fatalf("GenerateStory failed: %v", err)
	}
	if res.Story != reply {
		t.Fatalf("Story = %q", res.Story)
	}
	if !strings.Contains(res.FilledPrompt, "STORY_CORE:\n{the core}") {
		t.Fatalf("filled prompt missing the core: %q", res.FilledPrompt)
	}
	if !strings.Contains(res.FilledPrompt, "TARGET_LENGTH_CHARS: 9000") {
		t.Fatalf("filled prompt missing the target: %q", res.FilledPrompt)
	}
	if len(res.LeftoverPlaceholders) != 0 {
		t.Fatalf("LeftoverPlaceholders = %v", res.LeftoverPlaceholders)
	}
}

func TestGenerateStoryReportsLeftoverPlaceholders(t *testing.T) {
	template := "TARGET_LENGTH_CHARS: {never closed\n\nSTORY_CORE:\n{STORY_CORE}\n"
	gen := newScriptedGenerator(t, "some story")
	flow := story.NewFlow(gen, logging.NewNop())

	res, err := flow.GenerateStory(context.Background(), template, "the core", 500)
	if err != nil {
		t.Fatalf("GenerateStory failed: %v", err)
	}
	if len(res.LeftoverPlaceholders) != 1 || res.LeftoverPlaceholders[0] != "TARGET_LENGTH_CHARS" {
		t.Fatalf("LeftoverPlaceholders = %v", res.LeftoverPlaceholders)
	}
	if res.Story != "some story" {
		t.Fatal("generation should continue despite leftovers")
	}
}

func TestGenerateStoryValidation(t *testing.T) {
	gen := newScriptedGenerator(t)
	flow := story.NewFlow(gen, logging.NewNop())

	if _, err := flow.GenerateStory(context.Background(), "  ", "core", 100); !errors.Is(err, services.ErrInvalidInput) {
		t.Fatalf("empty template error = %v", err)
	}
	if _, err := flow.GenerateStory(context.Background(), storyTemplate, " \n", 100); !errors.Is(err, services.ErrInvalidInput) {
		t.Fatalf("empty core error = %v", err)
	}
	if len(gen.prompts) != 0 {
		t.Fatal("no generation expected")
	}
}

func TestGenerateStoryRefusal(t *testing.T) {
	gen := newScriptedGenerator(t, "I'm sorry, but I can't assist with that request.")
	flow := story.NewFlow(gen, logging.NewNop())

	_, err := flow.GenerateStory(context.Background(), storyTemplate, "the core", 100)
	if !errors.Is(err, services.ErrNotAvailable) {
		t.Fatalf("error = %v, want not available", err)
	}
	if !strings.Contains(err.Error(), "refused") {
		t.Fatalf("error = %v", err)
	}
}

func TestGenerateStoryPropagatesBackendError(t *testing.T) {
	errBoom := errors.New("backend down")
	flow := story.NewFlow(failingGenerator{err: errBoom}, logging.NewNop())

	_, err := flow.GenerateStory(context.Background(), storyTemplate, "the core", 100)
	if !errors.Is(err, errBoom) {
		t.Fatalf("error = %v, want the backend error unchanged", err)
	}
}

func TestIsRefusal(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"I'm sorry, but no.", true},
		{"i'm sorry, i cannot do this", true},
		{"I can't assist with that.", true},
		{"I CANNOT ASSIST WITH THIS REQUEST", true},
		{"Sure, here's the story you asked for.", false},
		{"", false},
		{"   ", false},
	}
	for _, tc := range cases {
		if got := story.IsRefusal(tc.text); got != tc.want {
			t.Errorf("IsRefusal(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}
