package preflight

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"retell/internal/config"
	"retell/internal/deps"
	"retell/internal/logging"
	"retell/internal/prompt"
	"retell/internal/textgen"
)

// CheckBackend verifies that the configured generation backend answers a
// minimal prompt. It uses a 30-second timeout and a single attempt (no
// retries).
func CheckBackend(ctx context.Context, cfg *config.Config) Result {
	const name = "Generation backend"
	if cfg == nil {
		return Result{Name: name, Detail: "configuration unavailable"}
	}

	probeCfg := *cfg
	probeCfg.LLM.RetryMaxAttempts = 1
	gen, err := textgen.New(&probeCfg, logging.NewNop())
	if err != nil {
		return Result{Name: name, Detail: summarizeBackendError(err)}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := textgen.Probe(checkCtx, gen); err != nil {
		return Result{Name: name, Detail: summarizeBackendError(err)}
	}
	return Result{Name: name, Passed: true, Detail: gen.Name() + " backend reachable"}
}

// CheckStoryCoreTemplate verifies the story-core template exists and can
// be filled.
func CheckStoryCoreTemplate(path string) Result {
	const name = "Story core template"

	template, err := prompt.LoadStoryCoreTemplate(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist, create with 'retell config init')", path)}
		}
		return Result{Name: name, Detail: err.Error()}
	}
	if _, err := prompt.FillStoryCore(template, "probe text"); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (fillable)", path)}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the external binaries a run needs. Both the
// status command and the pipeline preflight use this to avoid duplicating
// the requirements list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	command := "yt-dlp"
	if cfg != nil {
		command = cfg.YtDlpBinary()
	}
	requirements := []deps.Requirement{
		{
			Name:        "yt-dlp",
			Command:     command,
			Description: "Required for subtitle download",
		},
	}
	return deps.CheckBinaries(requirements)
}

// summarizeBackendError produces a human-readable summary for backend probe failures.
func summarizeBackendError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "probe timed out (backend unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "probe timed out (backend unreachable)"
	}
	return err.Error()
}
