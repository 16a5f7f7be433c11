package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"retell/internal/cache"
	"retell/internal/config"
	"retell/internal/logging"
	"retell/internal/services"
	"retell/internal/services/ytdlp"
	"retell/internal/textutil"
)

// Track sources reported in Result.Source.
const (
	SourceCache  = "cache"
	SourceManual = "manual"
	SourceAuto   = "auto"
)

// Downloader abstracts the subtitle tool so tests can script probe and
// download results.
type Downloader interface {
	Probe(ctx context.Context, url string) (*ytdlp.VideoInfo, error)
	Download(ctx context.Context, url, lang string, auto bool, destDir string) (string, error)
}

// Options adjust a single fetch call. Zero values mean "use the configured
// defaults".
type Options struct {
	Languages  []string
	PreferAuto bool
	SkipCache  bool
}

// Result carries the fetched raw subtitle track and its provenance.
type Result struct {
	VideoID        string
	Source         string
	Language       string
	RawTrack       string
	CookiesUsed    bool
	RequestedLangs []string
	ManualLangs    []string
	AutoLangs      []string
}

// Service fetches raw subtitle tracks, cache first.
type Service struct {
	downloader   Downloader
	store        *cache.Store
	languages    []string
	preferManual bool
	cookiesSet   bool
	logger       *slog.Logger
}

// NewService builds a fetch service from configuration. store may be nil
// to disable caching entirely.
func NewService(downloader Downloader, store *cache.Store, cfg *config.Config, logger *slog.Logger) *Service {
	svc := &Service{
		downloader:   downloader,
		store:        store,
		preferManual: true,
		logger:       logging.NewComponentLogger(logger, "fetch"),
	}
	if cfg != nil {
		svc.languages = append([]string(nil), cfg.Subtitles.Languages...)
		svc.preferManual = cfg.Subtitles.PreferManual
		svc.cookiesSet = strings.TrimSpace(cfg.Subtitles.CookiesFile) != ""
	}
	return svc
}

// Fetch resolves url to a raw subtitle track, consulting the cache before
// probing and downloading.
func (s *Service) Fetch(ctx context.Context, url string, opts Options) (*Result, error) {
	if s == nil || s.downloader == nil {
		return nil, services.Wrap(services.ErrConfiguration, "fetch", "fetch", "fetch service not initialized", nil)
	}

	videoID, err := ParseVideoID(url)
	if err != nil {
		return nil, err
	}

	langs := opts.Languages
	if len(langs) == 0 {
		langs = s.languages
	}
	preferManual := s.preferManual
	if opts.PreferAuto {
		preferManual = false
	}

	if !opts.SkipCache && s.store != nil {
		raw, found, err := s.store.Get(ctx, videoID, cache.KindRawTrack)
		if err != nil {
			// A broken cache read degrades to a fresh download.
			s.logger.Warn("cache read failed", logging.String(logging.FieldVideoID, videoID), logging.Error(err))
		} else if found {
			s.logger.Info("raw track served from cache",
				logging.String(logging.FieldVideoID, videoID),
				logging.Int("bytes", len(raw)))
			return &Result{
				VideoID:        videoID,
				Source:         SourceCache,
				Language:       "unknown",
				RawTrack:       raw,
				RequestedLangs: langs,
			}, nil
		}
	}

	info, err := s.downloader.Probe(ctx, url)
	if err != nil {
		return nil, classifyToolError("probe video", err)
	}

	lang, auto, found := selectTrack(info, langs, preferManual)
	if !found {
		return nil, services.Wrap(services.ErrNotAvailable, "fetch", "select track",
			fmt.Sprintf("no subtitle track matches languages %v (manual: %v, auto: %v)",
				langs, info.ManualLangs, info.AutoLangs), nil)
	}

	tempDir, err := os.MkdirTemp("", "retell-subs-")
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "fetch", "download", "create download directory", err)
	}
	defer os.RemoveAll(tempDir)

	raw, err := s.downloader.Download(ctx, url, lang, auto, tempDir)
	if err != nil {
		if errors.Is(err, ytdlp.ErrNoSubtitleFile) {
			return nil, services.Wrap(services.ErrNotAvailable, "fetch", "download", "subtitle download produced no captions", err)
		}
		return nil, classifyToolError("download track", err)
	}

	if s.store != nil {
		if err := s.store.Put(ctx, videoID, cache.KindRawTrack, raw); err != nil {
			return nil, services.Wrap(services.ErrTransient, "fetch", "cache raw track", "persist downloaded track", err)
		}
	}

	source := textutil.Ternary(auto, SourceAuto, SourceManual)
	s.logger.Info("raw track downloaded",
		logging.String(logging.FieldVideoID, videoID),
		logging.String("source", source),
		logging.String("lang", lang),
		logging.Int("bytes", len(raw)))

	return &Result{
		VideoID:        videoID,
		Source:         source,
		Language:       lang,
		RawTrack:       raw,
		CookiesUsed:    s.cookiesSet,
		RequestedLangs: langs,
		ManualLangs:    info.ManualLangs,
		AutoLangs:      info.AutoLangs,
	}, nil
}

// classifyToolError sorts raw tool failures into the error taxonomy:
// rate limiting and transport problems are transient, explicit caption
// complaints mean the video has nothing to offer.
func classifyToolError(op string, err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit"):
		return services.Wrap(services.ErrTransient, "fetch", op,
			"youtube is rate limiting requests (try again later or rely on the cache)", err)
	case strings.Contains(msg, "subtitle") || strings.Contains(msg, "caption"):
		return services.Wrap(services.ErrNotAvailable, "fetch", op, "no subtitles available for this video", err)
	default:
		return services.Wrap(services.ErrTransient, "fetch", op, "yt-dlp call failed", err)
	}
}
