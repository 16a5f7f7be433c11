package main

import (
	"context"
	"log/slog"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"retell/internal/cache"
	"retell/internal/config"
	"retell/internal/fetch"
	"retell/internal/logging"
	"retell/internal/pipeline"
	"retell/internal/services/ytdlp"
	"retell/internal/textgen"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configSeen = exists
	})
	return c.config, c.configErr
}

// buildLogger creates the CLI logger: stderr plus the configured log file,
// keeping stdout free for command output.
func (c *commandContext) buildLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.NewFromConfig(cfg)
}

func (c *commandContext) openStore() (*cache.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return cache.Open(cfg)
}

func (c *commandContext) buildFetchService(store *cache.Store, logger *slog.Logger) (*fetch.Service, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	downloader, err := ytdlp.New(cfg.YtDlpBinary(), cfg.Subtitles.CookiesFile)
	if err != nil {
		return nil, err
	}
	return fetch.NewService(downloader, store, cfg, logger), nil
}

// buildRunner assembles a full pipeline runner; the caller owns the
// returned store and must close it.
func (c *commandContext) buildRunner(logger *slog.Logger) (*pipeline.Runner, *cache.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := c.openStore()
	if err != nil {
		return nil, nil, err
	}
	fetcher, err := c.buildFetchService(store, logger)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	gen, err := textgen.New(cfg, logger)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	runner, err := pipeline.New(cfg, fetcher, store, gen, logger)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return runner, store, nil
}

// signalContext derives a command context cancelled by SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
