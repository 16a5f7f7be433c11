package preflight

import (
	"context"

	"retell/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Data directory (always checked)
	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))

	// Template directory (when configured)
	if cfg.Paths.TemplateDir != "" {
		results = append(results, CheckDirectoryAccess("Template directory", cfg.Paths.TemplateDir))
	}

	results = append(results, CheckStoryCoreTemplate(cfg.StoryCorePromptPath()))
	results = append(results, CheckBackend(ctx, cfg))

	return results
}

// AllPassed reports whether every result in the set passed.
func AllPassed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}
