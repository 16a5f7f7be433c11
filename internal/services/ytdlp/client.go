package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoSubtitleFile indicates a download run completed without producing a
// subtitle file.
var ErrNoSubtitleFile = errors.New("no subtitle file produced")

// VideoInfo describes the subtitle tracks a video offers.
type VideoInfo struct {
	ID          string
	Title       string
	ManualLangs []string
	AutoLangs   []string
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) (stdout, stderr string, err error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps yt-dlp CLI interactions.
type Client struct {
	binary      string
	cookiesFile string
	exec        Executor
}

// New constructs a yt-dlp client. cookiesFile may be empty.
func New(binary, cookiesFile string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("yt-dlp binary required")
	}
	client := &Client{
		binary:      binary,
		cookiesFile: strings.TrimSpace(cookiesFile),
		exec:        commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// RunError carries the trailing tool output alongside the execution error
// so callers can classify failures (rate limits, missing captions).
type RunError struct {
	Op     string
	Output string
	Err    error
}

func (e *RunError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("yt-dlp %s: %v: %s", e.Op, e.Err, e.Output)
	}
	return fmt.Sprintf("yt-dlp %s: %v", e.Op, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// Probe lists the manual and automatic subtitle tracks for url without
// downloading anything.
func (c *Client) Probe(ctx context.Context, url string) (*VideoInfo, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("url required")
	}
	args := c.commonArgs()
	args = append(args, "-J", "--skip-download", url)

	stdout, stderr, err := c.exec.Run(ctx, c.binary, args)
	if err != nil {
		return nil, &RunError{Op: "probe", Output: trailingOutput(stderr), Err: err}
	}

	var payload struct {
		ID                string                     `json:"id"`
		Title             string                     `json:"title"`
		Subtitles         map[string]json.RawMessage `json:"subtitles"`
		AutomaticCaptions map[string]json.RawMessage `json:"automatic_captions"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(stdout)), &payload); err != nil {
		return nil, fmt.Errorf("yt-dlp probe: parse video metadata: %w", err)
	}

	return &VideoInfo{
		ID:          payload.ID,
		Title:       payload.Title,
		ManualLangs: sortedKeys(payload.Subtitles),
		AutoLangs:   sortedKeys(payload.AutomaticCaptions),
	}, nil
}

// Download fetches one subtitle track as VTT into destDir and returns its
// content. auto selects automatic captions instead of manual subtitles.
func (c *Client) Download(ctx context.Context, url, lang string, auto bool, destDir string) (string, error) {
	url = strings.TrimSpace(url)
	lang = strings.TrimSpace(lang)
	if url == "" {
		return "", errors.New("url required")
	}
	if lang == "" {
		return "", errors.New("language required")
	}
	if strings.TrimSpace(destDir) == "" {
		return "", errors.New("destination directory required")
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create destination: %w", err)
	}

	args := c.commonArgs()
	if auto {
		args = append(args, "--write-auto-subs")
	} else {
		args = append(args, "--write-subs")
	}
	args = append(args,
		"--sub-langs", lang,
		"--sub-format", "vtt",
		"--skip-download",
		"-o", filepath.Join(destDir, "%(id)s.%(ext)s"),
		url,
	)

	if _, stderr, err := c.exec.Run(ctx, c.binary, args); err != nil {
		return "", &RunError{Op: "download", Output: trailingOutput(stderr), Err: err}
	}

	path, err := findSubtitleFile(destDir)
	if err != nil {
		return "", err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read subtitle file: %w", err)
	}
	return string(content), nil
}

func (c *Client) commonArgs() []string {
	args := []string{"--quiet", "--no-warnings"}
	if c.cookiesFile != "" {
		args = append(args, "--cookies", c.cookiesFile)
	}
	return args
}

func findSubtitleFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("inspect download outputs: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(entry.Name()), ".vtt") {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return "", ErrNoSubtitleFile
	}
	sort.Strings(names)
	return filepath.Join(dir, names[0]), nil
}

func sortedKeys(m map[string]json.RawMessage) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func trailingOutput(output string) string {
	clean := strings.Join(strings.Fields(output), " ")
	const limit = 300
	runes := []rune(clean)
	if len(runes) > limit {
		return "..." + string(runes[len(runes)-limit:])
	}
	return clean
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) (string, string, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}
