package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"retell/internal/cache"
	"retell/internal/fetch"
	"retell/internal/pipeline"
	"retell/internal/services"
	"retell/internal/testsupport"
)

const videoURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

const coreTemplate = "Extract the core.\n\nORIGINAL_STORY:\n{PASTE}\n\nCORE OBJECTIVE\nFind the heart of the story.\n"

const rawTrack = "WEBVTT\n\n00:00:01.000 --> 00:00:03.000\nThe fox ran into the field.\n\n00:00:03.000 --> 00:00:05.000\nIt found a hidden burrow.\n"

const analysisReply = "## REPORT\nThe story keeps the core events.\n\n" +
	"## COMPARISON TABLE\n| Criterion | Original | Generated | Comment |\n\n" +
	"## IMPROVEMENT PROMPT\nSharpen the opening and cut repeats."

type fakeFetcher struct {
	res     *fetch.Result
	err     error
	calls   int
	gotURL  string
	gotOpts fetch.Options
}

func (f *fakeFetcher) Fetch(_ context.Context, url string, opts fetch.Options) (*fetch.Result, error) {
	f.calls++
	f.gotURL = url
	f.gotOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

func manualFetcher() *fakeFetcher {
	return &fakeFetcher{res: &fetch.Result{
		VideoID:  "dQw4w9WgXcQ",
		Source:   fetch.SourceManual,
		Language: "en",
		RawTrack: rawTrack,
	}}
}

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

func mustReadArtifact(t *testing.T, path string) string {
	t.Helper()
	if path == "" {
		t.Fatal("artifact path not recorded")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	return string(data)
}

func TestRunClassic(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStoryCoreTemplate(coreTemplate))
	store := testsupport.MustOpenStore(t, cfg)
	fetcher := manualFetcher()
	gen := newScriptedGenerator(t, "a fox, a debt, a burrow", "The final story.")

	runner, err := pipeline.New(cfg, fetcher, store, gen, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	res, err := runner.Run(context.Background(), pipeline.Options{URL: videoURL})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.RunID == "" {
		t.Fatal("run id not assigned")
	}
	if res.Mode != pipeline.ModeClassic {
		t.Fatalf("Mode = %q, want classic", res.Mode)
	}
	if res.VideoID != "dQw4w9WgXcQ" || res.Source != fetch.SourceManual || res.Language != "en" {
		t.Fatalf("provenance = %q/%q/%q", res.VideoID, res.Source, res.Language)
	}
	if res.Core != "a fox, a debt, a burrow" || res.Story != "The final story." {
		t.Fatalf("Core = %q, Story = %q", res.Core, res.Story)
	}
	if res.CleanChars == 0 || res.Stats.CharsBefore == 0 {
		t.Fatalf("clean stats missing: %+v", res.Stats)
	}

	if len(gen.prompts) != 2 {
		t.Fatalf("generation calls = %d, want 2", len(gen.prompts))
	}
	if !strings.Contains(gen.prompts[0], "The fox ran into the field.") {
		t.Fatalf("core prompt missing clean text: %q", gen.prompts[0])
	}
	wantTarget := fmt.Sprintf("TARGET_LENGTH_CHARS: %d", res.CleanChars)
	if !strings.Contains(gen.prompts[1], wantTarget) {
		t.Fatalf("story prompt missing %q: %q", wantTarget, gen.prompts[1])
	}

	if got := mustReadArtifact(t, res.Artifacts.RawTrack); got != rawTrack {
		t.Fatalf("raw artifact = %q", got)
	}
	if got := mustReadArtifact(t, res.Artifacts.CleanText); !strings.Contains(got, "hidden burrow") {
		t.Fatalf("clean artifact = %q", got)
	}
	if got := mustReadArtifact(t, res.Artifacts.StoryCore); got != "a fox, a debt, a burrow" {
		t.Fatalf("core artifact = %q", got)
	}
	if got := mustReadArtifact(t, res.Artifacts.Story); got != "The final story." {
		t.Fatalf("story artifact = %q", got)
	}
	if res.Artifacts.Analysis != "" {
		t.Fatal("analysis artifact written without the analyze flag")
	}
	if !strings.HasPrefix(res.Artifacts.Dir, cfg.RunsDir()) {
		t.Fatalf("artifact dir %q outside runs dir %q", res.Artifacts.Dir, cfg.RunsDir())
	}

	clean, ok, err := store.Get(context.Background(), "dQw4w9WgXcQ", cache.KindCleanText)
	if err != nil || !ok {
		t.Fatalf("clean text not cached: ok=%v err=%v", ok, err)
	}
	if !strings.Contains(clean, "The fox ran into the field.") {
		t.Fatalf("cached clean text = %q", clean)
	}
}

func TestRunUsesCleanCacheFastPath(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStoryCoreTemplate(coreTemplate))
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedArtifact(t, store, "dQw4w9WgXcQ", cache.KindRawTrack, rawTrack)
	testsupport.SeedArtifact(t, store, "dQw4w9WgXcQ", cache.KindCleanText, "Cached clean prose.")
	fetcher := &fakeFetcher{err: errors.New("network must not be touched")}
	gen := newScriptedGenerator(t, "core", "story")

	runner, err := pipeline.New(cfg, fetcher, store, gen, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	res, err := runner.Run(context.Background(), pipeline.Options{URL: videoURL})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if fetcher.calls != 0 {
		t.Fatalf("fetcher called %d times on a full cache hit", fetcher.calls)
	}
	if res.Source != fetch.SourceCache || res.Language != "unknown" {
		t.Fatalf("Source = %q, Language = %q", res.Source, res.Language)
	}
	if res.Stats.CharsBefore != res.Stats.CharsAfter || res.Stats.Ratio != 1.0 || res.Stats.Removed != 0 {
		t.Fatalf("stats not synthetic on cache hit: %+v", res.Stats)
	}
	if !strings.Contains(gen.prompts[0], "Cached clean prose.") {
		t.Fatalf("core prompt missing cached text: %q", gen.prompts[0])
	}
	if got := mustReadArtifact(t, res.Artifacts.RawTrack); got != rawTrack {
		t.Fatalf("raw artifact = %q", got)
	}
}

func TestRunSkipCacheForcesFetch(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStoryCoreTemplate(coreTemplate))
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedArtifact(t, store, "dQw4w9WgXcQ", cache.KindRawTrack, rawTrack)
	testsupport.SeedArtifact(t, store, "dQw4w9WgXcQ", cache.KindCleanText, "stale clean text")
	fetcher := manualFetcher()
	gen := newScriptedGenerator(t, "core", "story")

	runner, err := pipeline.New(cfg, fetcher, store, gen, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	res, err := runner.Run(context.Background(), pipeline.Options{
		URL:        videoURL,
		SkipCache:  true,
		Languages:  []string{"en"},
		PreferAuto: true,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if fetcher.calls != 1 {
		t.Fatalf("fetcher calls = %d, want 1", fetcher.calls)
	}
	if !fetcher.gotOpts.SkipCache || !fetcher.gotOpts.PreferAuto {
		t.Fatalf("fetch options not forwarded: %+v", fetcher.gotOpts)
	}
	if len(fetcher.gotOpts.Languages) != 1 || fetcher.gotOpts.Languages[0] != "en" {
		t.Fatalf("languages not forwarded: %v", fetcher.gotOpts.Languages)
	}
	if res.Source != fetch.SourceManual {
		t.Fatalf("Source = %q, want manual", res.Source)
	}
	if strings.Contains(gen.prompts[0], "stale clean text") {
		t.Fatal("stale cached text used despite skip-cache")
	}
}

func TestRunReusesCleanAfterRawCacheHit(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStoryCoreTemplate(coreTemplate))
	store := testsupport.MustOpenStore(t, cfg)
	// Clean text cached, raw track absent locally: the fetch layer reports
	// its own raw hit and the clean text is picked up on the second try.
	testsupport.SeedArtifact(t, store, "dQw4w9WgXcQ", cache.KindCleanText, "Cached clean prose.")
	fetcher := &fakeFetcher{res: &fetch.Result{
		VideoID:  "dQw4w9WgXcQ",
		Source:   fetch.SourceCache,
		Language: "unknown",
		RawTrack: rawTrack,
	}}
	gen := newScriptedGenerator(t, "core", "story")

	runner, err := pipeline.New(cfg, fetcher, store, gen, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	res, err := runner.Run(context.Background(), pipeline.Options{URL: videoURL})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if fetcher.calls != 1 {
		t.Fatalf("fetcher calls = %d, want 1", fetcher.calls)
	}
	if res.Source != fetch.SourceCache {
		t.Fatalf("Source = %q, want cache", res.Source)
	}
	if !strings.Contains(gen.prompts[0], "Cached clean prose.") {
		t.Fatalf("core prompt missing cached text: %q", gen.prompts[0])
	}
	if res.Stats.Ratio != 1.0 {
		t.Fatalf("stats not synthetic: %+v", res.Stats)
	}
}

func TestRunClassicAnalyze(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStoryCoreTemplate(coreTemplate))
	store := testsupport.MustOpenStore(t, cfg)
	gen := newScriptedGenerator(t, "the core", "The final story.", analysisReply)

	runner, err := pipeline.New(cfg, manualFetcher(), store, gen, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	res, err := runner.Run(context.Background(), pipeline.Options{URL: videoURL, Analyze: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.Analysis == nil {
		t.Fatal("analysis missing from result")
	}
	if res.Analysis.ImprovementPrompt != "Sharpen the opening and cut repeats." {
		t.Fatalf("ImprovementPrompt = %q", res.Analysis.ImprovementPrompt)
	}
	if res.Improved {
		t.Fatal("Improved set without the improve flag")
	}
	if res.Story != "The final story." {
		t.Fatalf("Story = %q", res.Story)
	}

	var artifact struct {
		Report            string `json:"report"`
		ImprovementPrompt string `json:"improvement_prompt"`
		Improved          bool   `json:"improved"`
	}
	if err := json.Unmarshal([]byte(mustReadArtifact(t, res.Artifacts.Analysis)), &artifact); err != nil {
		t.Fatalf("analysis artifact not json: %v", err)
	}
	if !strings.Contains(artifact.Report, "keeps the core events") {
		t.Fatalf("report = %q", artifact.Report)
	}
	if artifact.Improved {
		t.Fatal("artifact claims an improvement that never ran")
	}
}

func TestRunClassicImprove(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStoryCoreTemplate(coreTemplate))
	store := testsupport.MustOpenStore(t, cfg)
	gen := newScriptedGenerator(t,
		"the core",
		"The final story.",
		analysisReply,
		"A leaner rewrite with real punch.")

	runner, err := pipeline.New(cfg, manualFetcher(), store, gen, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	res, err := runner.Run(context.Background(), pipeline.Options{URL: videoURL, Improve: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !res.Improved {
		t.Fatal("Improved not set")
	}
	if res.Story != "A leaner rewrite with real punch." {
		t.Fatalf("Story = %q", res.Story)
	}
	if res.Similarity >= 0.97 {
		t.Fatalf("Similarity = %v", res.Similarity)
	}
	if got := mustReadArtifact(t, res.Artifacts.Story); got != "A leaner rewrite with real punch." {
		t.Fatalf("story artifact = %q", got)
	}
	if !strings.Contains(gen.prompts[3], "Sharpen the opening and cut repeats.") {
		t.Fatalf("improve prompt missing instructions: %q", gen.prompts[3])
	}
}

func TestRunClassicImproveRejectedKeepsOriginal(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStoryCoreTemplate(coreTemplate))
	store := testsupport.MustOpenStore(t, cfg)
	// The rewrite comes back identical, so the improvement is rejected and
	// the original story stands.
	gen := newScriptedGenerator(t,
		"the core",
		"The final story stays as written.",
		analysisReply,
		"The final story stays as written.")

	runner, err := pipeline.New(cfg, manualFetcher(), store, gen, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	res, err := runner.Run(context.Background(), pipeline.Options{URL: videoURL, Improve: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.Improved {
		t.Fatal("rejected rewrite marked as improvement")
	}
	if res.Story != "The final story stays as written." {
		t.Fatalf("Story = %q", res.Story)
	}
	if got := mustReadArtifact(t, res.Artifacts.Story); got != "The final story stays as written." {
		t.Fatalf("story artifact = %q", got)
	}
}

func TestRunMultipass(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	gen := newScriptedGenerator(t,
		`{"summary":"a fox escapes","recommended_slide_count":2,"tone":"tense"}`,
		`{"premise":"a fox flees into a burrow"}`,
		`[{"beat":"the chase"},{"beat":"the escape"}]`,
		`[{"Text":"one","Prompt":"calm"},{"Text":"two","Prompt":"cold"}]`,
		`{"status":"pass"}`)

	runner, err := pipeline.New(cfg, manualFetcher(), store, gen, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	res, err := runner.Run(context.Background(), pipeline.Options{URL: videoURL, Mode: pipeline.ModeMultipass})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.Mode != pipeline.ModeMultipass {
		t.Fatalf("Mode = %q", res.Mode)
	}
	if len(res.Slides) != 2 || res.Slides[0].Text != "one" || res.Slides[1].Prompt != "cold" {
		t.Fatalf("Slides = %+v", res.Slides)
	}
	want := "Text:\n{one}\n\nPrompt:\n{calm}\nText:\n{two}\n\nPrompt:\n{cold}"
	if res.Story != want {
		t.Fatalf("Story = %q, want %q", res.Story, want)
	}
	if got := mustReadArtifact(t, res.Artifacts.Slides); got != want {
		t.Fatalf("slides artifact = %q", got)
	}
	if res.Artifacts.StoryCore != "" || res.Artifacts.Story != "" {
		t.Fatal("classic artifacts recorded for a multipass run")
	}

	var bundle map[string]json.RawMessage
	if err := json.Unmarshal([]byte(mustReadArtifact(t, res.Artifacts.Analysis)), &bundle); err != nil {
		t.Fatalf("analysis artifact not json: %v", err)
	}
	for _, key := range []string{"analysis", "core", "beats", "quality_report"} {
		if _, ok := bundle[key]; !ok {
			t.Fatalf("analysis artifact missing %q", key)
		}
	}
}

func TestRunExportsStory(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStoryCoreTemplate(coreTemplate))
	store := testsupport.MustOpenStore(t, cfg)
	gen := newScriptedGenerator(t, "the core", "The exported story.")
	dest := filepath.Join(t.TempDir(), "out", "story.txt")

	runner, err := pipeline.New(cfg, manualFetcher(), store, gen, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	res, err := runner.Run(context.Background(), pipeline.Options{URL: videoURL, OutputPath: dest})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.Artifacts.Output != dest {
		t.Fatalf("Output = %q, want %q", res.Artifacts.Output, dest)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if string(data) != "The exported story." {
		t.Fatalf("export = %q", string(data))
	}
}

func TestRunWithoutStoreFetchesEveryTime(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStoryCoreTemplate(coreTemplate))
	fetcher := manualFetcher()
	gen := newScriptedGenerator(t, "the core", "The final story.")

	runner, err := pipeline.New(cfg, fetcher, nil, gen, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := runner.Run(context.Background(), pipeline.Options{URL: videoURL}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if fetcher.calls != 1 {
		t.Fatalf("fetcher calls = %d, want 1", fetcher.calls)
	}
}

func TestRunRejectsUnknownMode(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	gen := newScriptedGenerator(t)

	runner, err := pipeline.New(cfg, manualFetcher(), nil, gen, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	_, err = runner.Run(context.Background(), pipeline.Options{URL: videoURL, Mode: pipeline.Mode("sideways")})
	if !errors.Is(err, services.ErrInvalidInput) {
		t.Fatalf("error = %v, want invalid input", err)
	}
}

func TestRunMissingCoreTemplate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	gen := newScriptedGenerator(t)

	runner, err := pipeline.New(cfg, manualFetcher(), nil, gen, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	_, err = runner.Run(context.Background(), pipeline.Options{URL: videoURL})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("error = %v, want configuration", err)
	}
	if len(gen.prompts) != 0 {
		t.Fatal("generation ran without a core template")
	}
}

func TestRunLockHeld(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStoryCoreTemplate(coreTemplate))
	if err := os.MkdirAll(cfg.Paths.DataDir, 0o755); err != nil {
		t.Fatal(err)
	}
	held := flock.New(cfg.LockFilePath())
	locked, err := held.TryLock()
	if err != nil || !locked {
		t.Fatalf("could not pre-acquire lock: locked=%v err=%v", locked, err)
	}
	defer func() {
		if err := held.Unlock(); err != nil {
			t.Errorf("unlock: %v", err)
		}
	}()

	gen := newScriptedGenerator(t)
	runner, err := pipeline.New(cfg, manualFetcher(), nil, gen, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	_, err = runner.Run(context.Background(), pipeline.Options{URL: videoURL})
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("error = %v, want transient", err)
	}
}

func TestFetchCleanNormalizesAndCaches(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	fetcher := manualFetcher()

	res, err := pipeline.FetchClean(context.Background(), fetcher, store, 0, nil, pipeline.FetchOptions{URL: videoURL})
	if err != nil {
		t.Fatalf("FetchClean failed: %v", err)
	}
	if res.Fetched.Source != fetch.SourceManual {
		t.Fatalf("Source = %q", res.Fetched.Source)
	}
	if !strings.Contains(res.Clean, "The fox ran into the field.") {
		t.Fatalf("Clean = %q", res.Clean)
	}
	if res.Stats.CharsAfter == 0 {
		t.Fatalf("stats = %+v", res.Stats)
	}

	cached, ok, err := store.Get(context.Background(), "dQw4w9WgXcQ", cache.KindCleanText)
	if err != nil || !ok {
		t.Fatalf("clean text not cached: ok=%v err=%v", ok, err)
	}
	if cached != res.Clean {
		t.Fatalf("cached = %q, want %q", cached, res.Clean)
	}
}

func TestNewValidation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	gen := newScriptedGenerator(t)

	if _, err := pipeline.New(nil, manualFetcher(), nil, gen, nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("nil config: error = %v", err)
	}
	if _, err := pipeline.New(cfg, nil, nil, gen, nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("nil fetcher: error = %v", err)
	}
	if _, err := pipeline.New(cfg, manualFetcher(), nil, nil, nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("nil generator: error = %v", err)
	}
}
