package ytdlp_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"retell/internal/services/ytdlp"
)

type stubExecutor struct {
	stdout string
	stderr string
	err    error
	calls  int
	args   [][]string
}

func (s *stubExecutor) Run(ctx context.Context, binary string, args []string) (string, string, error) {
	s.calls++
	s.args = append(s.args, append([]string(nil), args...))
	return s.stdout, s.stderr, s.err
}

const probePayload = `{
  "id": "dQw4w9WgXcQ",
  "title": "Sample Video",
  "subtitles": {"en": [], "uk": []},
  "automatic_captions": {"en": [], "ru": []}
}`

func TestProbeParsesTrackLists(t *testing.T) {
	exec := &stubExecutor{stdout: probePayload}
	client, err := ytdlp.New("yt-dlp", "", ytdlp.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	info, err := client.Probe(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
	if info.ID != "dQw4w9WgXcQ" || info.Title != "Sample Video" {
		t.Fatalf("unexpected info %+v", info)
	}
	if !equalStrings(info.ManualLangs, []string{"en", "uk"}) {
		t.Fatalf("unexpected manual langs %v", info.ManualLangs)
	}
	if !equalStrings(info.AutoLangs, []string{"en", "ru"}) {
		t.Fatalf("unexpected auto langs %v", info.AutoLangs)
	}

	if exec.calls != 1 {
		t.Fatalf("expected one invocation, got %d", exec.calls)
	}
	gotArgs := exec.args[0]
	wantArgs := []string{"--quiet", "--no-warnings", "-J", "--skip-download", "https://youtu.be/dQw4w9WgXcQ"}
	if !equalStrings(gotArgs, wantArgs) {
		t.Fatalf("unexpected args: got %v want %v", gotArgs, wantArgs)
	}
}

func TestProbePassesCookiesFile(t *testing.T) {
	exec := &stubExecutor{stdout: probePayload}
	client, err := ytdlp.New("yt-dlp", "/tmp/cookies.txt", ytdlp.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.Probe(context.Background(), "https://youtu.be/dQw4w9WgXcQ"); err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
	joined := strings.Join(exec.args[0], " ")
	if !strings.Contains(joined, "--cookies /tmp/cookies.txt") {
		t.Fatalf("expected cookies flag in args %v", exec.args[0])
	}
}

func TestProbeSurfacesToolError(t *testing.T) {
	exec := &stubExecutor{
		stderr: "WARNING: something\nERROR: HTTP Error 429: Too Many Requests",
		err:    errors.New("exit status 1"),
	}
	client, err := ytdlp.New("yt-dlp", "", ytdlp.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	_, err = client.Probe(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	if err == nil {
		t.Fatal("expected probe failure")
	}
	var runErr *ytdlp.RunError
	if !errors.As(err, &runErr) {
		t.Fatalf("expected RunError, got %T (%v)", err, err)
	}
	if runErr.Op != "probe" {
		t.Fatalf("unexpected op %q", runErr.Op)
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected stderr tail in error, got %v", err)
	}
}

type fileCreatingExecutor struct {
	args     [][]string
	filename string
	content  string
}

func (f *fileCreatingExecutor) Run(ctx context.Context, binary string, args []string) (string, string, error) {
	f.args = append(f.args, append([]string(nil), args...))
	for i, arg := range args {
		if arg == "-o" && i+1 < len(args) {
			dir := filepath.Dir(args[i+1])
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", "", err
			}
			return "", "", os.WriteFile(filepath.Join(dir, f.filename), []byte(f.content), 0o644)
		}
	}
	return "", "", errors.New("no output template in args")
}

func TestDownloadManualTrack(t *testing.T) {
	exec := &fileCreatingExecutor{filename: "dQw4w9WgXcQ.en.vtt", content: "WEBVTT\n\nhello"}
	client, err := ytdlp.New("yt-dlp", "", ytdlp.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	destDir := filepath.Join(t.TempDir(), "subs")
	content, err := client.Download(context.Background(), "https://youtu.be/dQw4w9WgXcQ", "en", false, destDir)
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	if content != "WEBVTT\n\nhello" {
		t.Fatalf("unexpected content %q", content)
	}

	joined := strings.Join(exec.args[0], " ")
	if !strings.Contains(joined, "--write-subs") {
		t.Fatalf("expected --write-subs in args %v", exec.args[0])
	}
	if strings.Contains(joined, "--write-auto-subs") {
		t.Fatalf("did not expect auto flag in args %v", exec.args[0])
	}
	if !strings.Contains(joined, "--sub-langs en") || !strings.Contains(joined, "--sub-format vtt") {
		t.Fatalf("expected subtitle selection flags in args %v", exec.args[0])
	}
}

func TestDownloadAutoTrack(t *testing.T) {
	exec := &fileCreatingExecutor{filename: "video.uk.vtt", content: "WEBVTT"}
	client, err := ytdlp.New("yt-dlp", "", ytdlp.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if _, err := client.Download(context.Background(), "https://youtu.be/dQw4w9WgXcQ", "uk", true, t.TempDir()); err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	joined := strings.Join(exec.args[0], " ")
	if !strings.Contains(joined, "--write-auto-subs") {
		t.Fatalf("expected --write-auto-subs in args %v", exec.args[0])
	}
}

func TestDownloadWithoutOutputFileFails(t *testing.T) {
	exec := &stubExecutor{}
	client, err := ytdlp.New("yt-dlp", "", ytdlp.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	_, err = client.Download(context.Background(), "https://youtu.be/dQw4w9WgXcQ", "en", false, t.TempDir())
	if !errors.Is(err, ytdlp.ErrNoSubtitleFile) {
		t.Fatalf("expected ErrNoSubtitleFile, got %v", err)
	}
}

func TestNewRequiresBinary(t *testing.T) {
	if _, err := ytdlp.New("   ", ""); err == nil {
		t.Fatal("expected error for missing binary")
	}
}

func equalStrings(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
