package preflight

import (
	"fmt"
	"os"
	"strings"

	"retell/internal/config"
	"retell/internal/textgen"
)

// CheckBackendFromConfig evaluates backend status from config alone,
// without touching the network.
func CheckBackendFromConfig(cfg *config.Config) Result {
	const name = "Generation backend"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	backend := strings.ToLower(strings.TrimSpace(cfg.LLM.Backend))
	switch backend {
	case "", textgen.BackendOpenAI:
		if strings.TrimSpace(cfg.LLM.APIKey) == "" {
			return Result{Name: name, Detail: "Missing API key"}
		}
		model := strings.TrimSpace(cfg.LLM.Model)
		if model == "" {
			model = "default model"
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("openai (%s)", model)}
	case textgen.BackendGateway:
		if strings.TrimSpace(cfg.Gateway.URL) == "" {
			return Result{Name: name, Detail: "Missing gateway URL"}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("gateway (%s)", strings.TrimSpace(cfg.Gateway.URL))}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("Unknown backend %q", cfg.LLM.Backend)}
	}
}

// CheckCookiesFromConfig reports whether the configured cookies file is
// usable. An unset path passes: cookies are optional.
func CheckCookiesFromConfig(cfg *config.Config) Result {
	const name = "Cookies file"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	path := strings.TrimSpace(cfg.Subtitles.CookiesFile)
	if path == "" {
		return Result{Name: name, Passed: true, Detail: "Not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CacheProbe reports the current subtitle-cache database snapshot.
type CacheProbe struct {
	Present bool
	Path    string
	Bytes   int64
}

// ProbeCache stats the cache database file without opening it.
func ProbeCache(path string) CacheProbe {
	path = strings.TrimSpace(path)
	if path == "" {
		return CacheProbe{}
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return CacheProbe{Path: path}
	}
	return CacheProbe{Present: true, Path: path, Bytes: info.Size()}
}

// CacheDetail renders a display-friendly summary for status UIs.
func (p CacheProbe) CacheDetail() string {
	if !p.Present {
		return "No cache database"
	}
	return fmt.Sprintf("%s (%s)", p.Path, formatBytes(p.Bytes))
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
