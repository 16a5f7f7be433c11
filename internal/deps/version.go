package deps

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

const versionProbeTimeout = 5 * time.Second

// ToolVersion resolves command on PATH and asks it for its version.
// Status output uses this so version drift is visible when downloads
// start failing. A binary that resolves but refuses the version probe is
// still reported as available.
func ToolVersion(ctx context.Context, name, command, description string, args ...string) Status {
	status := Status{
		Name:        name,
		Command:     strings.TrimSpace(command),
		Description: strings.TrimSpace(description),
	}
	resolve(&status)
	if !status.Available {
		return status
	}

	runCtx, cancel := context.WithTimeout(ctx, versionProbeTimeout)
	defer cancel()
	output, err := exec.CommandContext(runCtx, status.Command, args...).Output()
	if err != nil {
		status.Detail = "version probe failed"
		return status
	}
	if line := firstLine(string(output)); line != "" {
		status.Detail = line
	}
	return status
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
