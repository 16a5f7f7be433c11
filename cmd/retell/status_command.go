package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"retell/internal/config"
	"retell/internal/deps"
	"retell/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var probe bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check configuration, templates, backend, cache, and tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, cancel := signalContext(cmd)
			defer cancel()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			entries := collectStatus(runCtx, cfg, probe)

			if asJSON {
				view := statusView{
					ConfigPath:   ctx.configPath,
					ConfigExists: ctx.configSeen,
					Probed:       probe,
					Healthy:      true,
				}
				for _, entry := range entries {
					if entry.Kind == statusFail {
						view.Healthy = false
					}
					view.Checks = append(view.Checks, statusCheckView{
						Section: entry.Section,
						Name:    entry.Label,
						Status:  entry.Kind.String(),
						Detail:  entry.Detail,
					})
				}
				return writeJSON(cmd, view)
			}

			printer := newStatusPrinter(cmd.OutOrStdout())
			printer.header(ctx.configPath, ctx.configSeen)
			printer.entries(entries)
			if !probe {
				fmt.Fprintln(printer.out)
				fmt.Fprintln(printer.out, "Run 'retell status --probe' to test the backend connection.")
			}
			if hasFailures(entries) {
				fmt.Fprintln(printer.out)
				fmt.Fprintln(printer.out, "Some checks failed; fix them before running retell.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&probe, "probe", false, "Send a test prompt to the generation backend")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the checks as JSON")
	return cmd
}

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusFail
)

func (k statusKind) String() string {
	switch k {
	case statusOK:
		return "ok"
	case statusWarn:
		return "warn"
	case statusFail:
		return "fail"
	default:
		return "info"
	}
}

type statusEntry struct {
	Section string
	Kind    statusKind
	Label   string
	Detail  string
}

// collectStatus gathers every check in display order. Only the backend
// probe touches the network, and only when probe is set.
func collectStatus(ctx context.Context, cfg *config.Config, probe bool) []statusEntry {
	var entries []statusEntry
	add := func(section string, kind statusKind, label, detail string) {
		entries = append(entries, statusEntry{Section: section, Kind: kind, Label: label, Detail: detail})
	}
	fromResult := func(section string, res preflight.Result) {
		kind := statusFail
		if res.Passed {
			kind = statusOK
		}
		add(section, kind, res.Name, res.Detail)
	}

	fromResult("Directories", preflight.CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))
	if cfg.Paths.TemplateDir != "" {
		fromResult("Directories", preflight.CheckDirectoryAccess("Template directory", cfg.Paths.TemplateDir))
	}

	fromResult("Templates", preflight.CheckStoryCoreTemplate(cfg.StoryCorePromptPath()))
	if _, err := os.Stat(cfg.StoryPromptPath()); err == nil {
		add("Templates", statusOK, "Story template", cfg.StoryPromptPath())
	} else {
		add("Templates", statusInfo, "Story template", "using the built-in default")
	}

	if probe {
		fromResult("Backend", preflight.CheckBackend(ctx, cfg))
	} else {
		fromResult("Backend", preflight.CheckBackendFromConfig(cfg))
	}
	fromResult("Backend", preflight.CheckCookiesFromConfig(cfg))

	cacheProbe := preflight.ProbeCache(cfg.CacheDBPath())
	cacheKind := statusInfo
	if cacheProbe.Present {
		cacheKind = statusOK
	}
	add("Cache", cacheKind, "Subtitle cache", cacheProbe.CacheDetail())

	tool := deps.ToolVersion(ctx, "yt-dlp", cfg.YtDlpBinary(), "Required for subtitle download", "--version")
	toolKind := statusFail
	detail := tool.Detail
	if tool.Available {
		toolKind = statusOK
		if detail == "" {
			detail = tool.Command
		}
	}
	add("Tools", toolKind, tool.Name, detail)

	return entries
}

func hasFailures(entries []statusEntry) bool {
	for _, entry := range entries {
		if entry.Kind == statusFail {
			return true
		}
	}
	return false
}

type statusPrinter struct {
	out   io.Writer
	color bool
}

func newStatusPrinter(out io.Writer) *statusPrinter {
	return &statusPrinter{out: out, color: shouldColorize(out)}
}

func (p *statusPrinter) header(configPath string, exists bool) {
	fmt.Fprintf(p.out, "Config: %s\n", configPath)
	if !exists {
		fmt.Fprintln(p.out, "Config file does not exist; defaults in effect")
	}
}

func (p *statusPrinter) entries(entries []statusEntry) {
	section := ""
	for _, entry := range entries {
		if entry.Section != section {
			section = entry.Section
			fmt.Fprintln(p.out)
			fmt.Fprintln(p.out, p.paint(ansiBlue, section))
		}
		fmt.Fprintf(p.out, "  %s %-20s %s\n", p.badge(entry.Kind), entry.Label, entry.Detail)
	}
}

func (p *statusPrinter) badge(kind statusKind) string {
	switch kind {
	case statusOK:
		return p.paint(ansiGreen, "[ ok ]")
	case statusWarn:
		return p.paint(ansiYellow, "[warn]")
	case statusFail:
		return p.paint(ansiRed, "[fail]")
	default:
		return "[ -- ]"
	}
}

func (p *statusPrinter) paint(color, text string) string {
	if !p.color {
		return text
	}
	return color + text + ansiReset
}

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

type statusCheckView struct {
	Section string `json:"section"`
	Name    string `json:"name"`
	Status  string `json:"status"`
	Detail  string `json:"detail,omitempty"`
}

type statusView struct {
	ConfigPath   string            `json:"config_path"`
	ConfigExists bool              `json:"config_exists"`
	Probed       bool              `json:"probed"`
	Checks       []statusCheckView `json:"checks"`
	Healthy      bool              `json:"healthy"`
}
