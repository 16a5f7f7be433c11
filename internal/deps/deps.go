package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement names an external binary and why a run needs it.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status is the outcome of checking a single requirement.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries reports availability for each requirement in order.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		status := Status{
			Name:        req.Name,
			Command:     strings.TrimSpace(req.Command),
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		resolve(&status)
		results = append(results, status)
	}
	return results
}

// resolve looks the command up on PATH and marks the status available.
// On success Command is rewritten to the resolved path; on failure the
// original command is kept so the detail message stays actionable.
func resolve(status *Status) {
	if status.Command == "" {
		status.Detail = "command not configured"
		return
	}
	path, err := exec.LookPath(status.Command)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", status.Command)
		return
	}
	status.Command = path
	status.Available = true
}
