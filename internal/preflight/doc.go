// Package preflight provides readiness checks for the external tools,
// templates, and filesystem paths that retell depends on.
//
// These checks run in two contexts:
//   - The pipeline calls RunAll before starting a run. If any check fails,
//     the run stops before spending generation calls on a doomed setup.
//   - The CLI "retell status" command uses individual check functions
//     (CheckBackend, CheckDirectoryAccess) to display health.
//
// Network checks fail fast on configuration problems, so a misconfigured
// install still gets a useful report offline.
package preflight
