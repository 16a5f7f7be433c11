package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"retell/internal/cache"
	"retell/internal/config"
	"retell/internal/fetch"
	"retell/internal/logging"
	"retell/internal/multipass"
	"retell/internal/prompt"
	"retell/internal/services"
	"retell/internal/story"
	"retell/internal/subtitles"
)

// Mode selects which story flow a run executes.
type Mode string

const (
	// ModeClassic is the two-step core-then-story flow.
	ModeClassic Mode = "classic"
	// ModeMultipass is the five-stage slide flow.
	ModeMultipass Mode = "multipass"
)

// Fetcher provides raw subtitle tracks. fetch.Service satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts fetch.Options) (*fetch.Result, error)
}

// Generator produces text for a prompt.
type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Options tunes a single pipeline run.
type Options struct {
	URL         string
	Mode        Mode
	TargetChars int
	SlidesHint  int
	Languages   []string
	PreferAuto  bool
	SkipCache   bool
	Analyze     bool
	Improve     bool
	OutputPath  string
}

// Result is the outcome of a run.
type Result struct {
	RunID      string
	VideoID    string
	Mode       Mode
	Source     string
	Language   string
	CleanChars int
	Stats      subtitles.Stats
	Core       string
	Story      string
	Slides     []multipass.Slide
	Analysis   *story.Analysis
	Improved   bool
	Similarity float64
	Artifacts  Artifacts
	Elapsed    time.Duration
}

// Runner composes fetch, normalize, and generation into complete runs. A
// file lock under the data directory keeps runs on one host serial.
type Runner struct {
	cfg     *config.Config
	fetcher Fetcher
	store   *cache.Store
	gen     Generator
	logger  *slog.Logger
	lock    *flock.Flock
}

// New constructs a runner. The cache store may be nil, in which case every
// run fetches and cleans from scratch.
func New(cfg *config.Config, fetcher Fetcher, store *cache.Store, gen Generator, logger *slog.Logger) (*Runner, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "configuration unavailable", nil)
	}
	if fetcher == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "no fetcher configured", nil)
	}
	if gen == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "no text generator configured", nil)
	}
	return &Runner{
		cfg:     cfg,
		fetcher: fetcher,
		store:   store,
		gen:     gen,
		logger:  logging.NewComponentLogger(logger, "pipeline"),
		lock:    flock.New(cfg.LockFilePath()),
	}, nil
}

// Run executes one complete pipeline run.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	if r == nil || r.cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "run", "runner not initialized", nil)
	}
	mode := opts.Mode
	if mode == "" {
		mode = ModeClassic
	}
	if mode != ModeClassic && mode != ModeMultipass {
		return nil, services.Wrap(services.ErrInvalidInput, "pipeline", "run",
			"unknown mode "+string(mode), nil)
	}

	if err := r.cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "run", "prepare directories", err)
	}

	locked, err := r.lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "pipeline", "run", "acquire run lock", err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrTransient, "pipeline", "run",
			"another retell run is in progress (lock "+r.cfg.LockFilePath()+")", nil)
	}
	defer func() {
		if unlockErr := r.lock.Unlock(); unlockErr != nil {
			r.logger.Warn("failed to release run lock", logging.Error(unlockErr))
		}
	}()

	started := time.Now()
	runID := uuid.NewString()
	logger := r.logger.With(logging.String(logging.FieldRunID, runID))
	logger.Info("run started", logging.String("mode", string(mode)), logging.String("url", opts.URL))

	cleanRes, err := FetchClean(ctx, r.fetcher, r.store, r.cfg.Subtitles.MaxChars, logger, FetchOptions{
		URL:        opts.URL,
		Languages:  opts.Languages,
		PreferAuto: opts.PreferAuto,
		SkipCache:  opts.SkipCache,
	})
	if err != nil {
		return nil, err
	}
	fetched, clean, stats := cleanRes.Fetched, cleanRes.Clean, cleanRes.Stats
	logger = logger.With(logging.String(logging.FieldVideoID, fetched.VideoID))
	cleanChars := utf8.RuneCountInString(clean)
	logger.Info("subtitles ready",
		logging.String("source", fetched.Source),
		logging.String("lang", fetched.Language),
		logging.Int("clean_chars", cleanChars))

	writer := newArtifactWriter(r.cfg.RunsDir(), runID)
	if err := writer.init(); err != nil {
		return nil, err
	}
	result := &Result{
		RunID:      runID,
		VideoID:    fetched.VideoID,
		Mode:       mode,
		Source:     fetched.Source,
		Language:   fetched.Language,
		CleanChars: cleanChars,
		Stats:      stats,
	}
	if err := writer.writeText(artifactRawTrack, fetched.RawTrack); err != nil {
		return nil, err
	}
	if err := writer.writeText(artifactCleanText, clean); err != nil {
		return nil, err
	}

	switch mode {
	case ModeClassic:
		err = r.runClassic(ctx, logger, writer, opts, clean, result)
	case ModeMultipass:
		err = r.runMultipass(ctx, logger, writer, opts, clean, result)
	}
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(opts.OutputPath) != "" {
		if err := writer.export(result.storyArtifact(), opts.OutputPath); err != nil {
			return nil, err
		}
	}

	result.Artifacts = writer.artifacts
	result.Elapsed = time.Since(started)
	logger.Info("run complete",
		logging.String("mode", string(mode)),
		logging.Int("story_chars", utf8.RuneCountInString(result.Story)),
		logging.Int("slides", len(result.Slides)),
		logging.Duration("elapsed", result.Elapsed))
	return result, nil
}

// FetchOptions tune a single fetch-and-clean call.
type FetchOptions struct {
	URL        string
	Languages  []string
	PreferAuto bool
	SkipCache  bool
}

// CleanResult pairs a fetched raw track with its normalized prose.
type CleanResult struct {
	Fetched *fetch.Result
	Clean   string
	Stats   subtitles.Stats
}

// FetchClean resolves the clean prose for a video, cheapest source first:
// cached clean text, then cached raw track, then a fresh download. Cached
// clean text carries synthetic stats since the original dedupe pass is
// gone. The store may be nil to disable caching; the logger is used as
// given.
func FetchClean(ctx context.Context, fetcher Fetcher, store *cache.Store, maxChars int, logger *slog.Logger, opts FetchOptions) (*CleanResult, error) {
	if fetcher == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "fetch clean", "no fetcher configured", nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	useCache := !opts.SkipCache && store != nil

	if useCache {
		videoID, err := fetch.ParseVideoID(opts.URL)
		if err != nil {
			return nil, err
		}
		clean, cleanHit, err := store.Get(ctx, videoID, cache.KindCleanText)
		if err != nil {
			logger.Warn("clean text cache read failed", logging.Error(err))
		} else if cleanHit {
			raw, rawHit, rawErr := store.Get(ctx, videoID, cache.KindRawTrack)
			if rawErr == nil && rawHit {
				fetched := &fetch.Result{
					VideoID:  videoID,
					Source:   fetch.SourceCache,
					Language: "unknown",
					RawTrack: raw,
				}
				return &CleanResult{Fetched: fetched, Clean: clean, Stats: syntheticStats(clean)}, nil
			}
		}
	}

	fetched, err := fetcher.Fetch(ctx, opts.URL, fetch.Options{
		Languages:  opts.Languages,
		PreferAuto: opts.PreferAuto,
		SkipCache:  opts.SkipCache,
	})
	if err != nil {
		return nil, err
	}

	if useCache && fetched.Source == fetch.SourceCache {
		clean, cleanHit, err := store.Get(ctx, fetched.VideoID, cache.KindCleanText)
		if err == nil && cleanHit {
			return &CleanResult{Fetched: fetched, Clean: clean, Stats: syntheticStats(clean)}, nil
		}
	}

	clean, stats := subtitles.NormalizeWithLimit(fetched.RawTrack, maxChars)
	if useCache {
		if err := store.Put(ctx, fetched.VideoID, cache.KindCleanText, clean); err != nil {
			logger.Warn("clean text cache write failed", logging.Error(err))
		}
	}
	return &CleanResult{Fetched: fetched, Clean: clean, Stats: stats}, nil
}

func (r *Runner) runClassic(ctx context.Context, logger *slog.Logger, writer *artifactWriter, opts Options, clean string, result *Result) error {
	coreTemplate, err := prompt.LoadStoryCoreTemplate(r.cfg.StoryCorePromptPath())
	if err != nil {
		return err
	}
	storyTemplate := prompt.LoadStoryTemplate(r.cfg.StoryPromptPath())

	flow := story.NewFlow(r.gen, logger)

	coreRes, err := flow.GenerateCore(ctx, coreTemplate, clean)
	if err != nil {
		return err
	}
	result.Core = coreRes.Core
	if err := writer.writeText(artifactStoryCore, coreRes.Core); err != nil {
		return err
	}
	logger.Info("story core ready", logging.Int("core_chars", utf8.RuneCountInString(coreRes.Core)))

	targetChars := opts.TargetChars
	if targetChars <= 0 {
		targetChars = utf8.RuneCountInString(clean)
	}
	storyRes, err := flow.GenerateStory(ctx, storyTemplate, coreRes.Core, targetChars)
	if err != nil {
		return err
	}
	result.Story = storyRes.Story
	if err := writer.writeText(artifactStory, storyRes.Story); err != nil {
		return err
	}
	logger.Info("story ready",
		logging.Int("target_chars", targetChars),
		logging.Int("story_chars", utf8.RuneCountInString(storyRes.Story)))

	if !opts.Analyze && !opts.Improve {
		return nil
	}

	analysis, err := flow.Analyze(ctx, clean, storyRes.Story)
	if err != nil {
		return err
	}
	result.Analysis = analysis

	if opts.Improve && strings.TrimSpace(analysis.ImprovementPrompt) != "" {
		improved, similarity, err := flow.Improve(ctx, storyRes.Story, analysis.ImprovementPrompt)
		switch {
		case err == nil:
			result.Story = improved
			result.Improved = true
			result.Similarity = similarity
			if err := writer.writeText(artifactStory, improved); err != nil {
				return err
			}
		case errors.Is(err, services.ErrContract):
			// A rejected rewrite keeps the original story.
			result.Similarity = similarity
			logger.Warn("improvement rejected, keeping original story", logging.Error(err))
		default:
			return err
		}
	}

	return writer.writeJSON(artifactAnalysis, classicAnalysisArtifact{
		Report:            analysis.Report,
		ComparisonTable:   analysis.ComparisonTable,
		ImprovementPrompt: analysis.ImprovementPrompt,
		Improved:          result.Improved,
		Similarity:        result.Similarity,
	})
}

func (r *Runner) runMultipass(ctx context.Context, logger *slog.Logger, writer *artifactWriter, opts Options, clean string, result *Result) error {
	runner := multipass.NewRunner(r.gen, logger)
	mpRes, err := runner.Run(ctx, clean, multipass.Options{
		TargetChars: opts.TargetChars,
		SlidesHint:  opts.SlidesHint,
	})
	if err != nil {
		return err
	}

	result.Slides = mpRes.Slides
	result.Story = story.RenderSlides(mpRes.Slides)
	if err := writer.writeText(artifactSlides, result.Story); err != nil {
		return err
	}
	return writer.writeJSON(artifactAnalysis, multipassAnalysisArtifact{
		Analysis:      mpRes.Analysis,
		Core:          mpRes.Core,
		Beats:         mpRes.Beats,
		QualityReport: mpRes.QualityReport,
	})
}

func (res *Result) storyArtifact() string {
	if res.Mode == ModeMultipass {
		return artifactSlides
	}
	return artifactStory
}

func syntheticStats(clean string) subtitles.Stats {
	n := utf8.RuneCountInString(clean)
	return subtitles.Stats{CharsBefore: n, CharsAfter: n, Ratio: 1.0}
}

type classicAnalysisArtifact struct {
	Report            string  `json:"report"`
	ComparisonTable   string  `json:"comparison_table"`
	ImprovementPrompt string  `json:"improvement_prompt"`
	Improved          bool    `json:"improved"`
	Similarity        float64 `json:"similarity,omitempty"`
}

type multipassAnalysisArtifact struct {
	Analysis      map[string]any `json:"analysis"`
	Core          map[string]any `json:"core"`
	Beats         []any          `json:"beats"`
	QualityReport map[string]any `json:"quality_report"`
}
