package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"

	"retell/internal/fileutil"
	"retell/internal/services"
)

const (
	artifactRawTrack  = "raw.vtt"
	artifactCleanText = "clean.txt"
	artifactStoryCore = "story_core.txt"
	artifactStory     = "story.txt"
	artifactSlides    = "slides.txt"
	artifactAnalysis  = "analysis.json"
)

// Artifacts lists the files a run left on disk. Paths are absolute; empty
// fields mean the run did not produce that artifact.
type Artifacts struct {
	Dir       string `json:"dir"`
	RawTrack  string `json:"raw_track,omitempty"`
	CleanText string `json:"clean_text,omitempty"`
	StoryCore string `json:"story_core,omitempty"`
	Story     string `json:"story,omitempty"`
	Slides    string `json:"slides,omitempty"`
	Analysis  string `json:"analysis,omitempty"`
	Output    string `json:"output,omitempty"`
}

type artifactWriter struct {
	dir       string
	artifacts Artifacts
}

func newArtifactWriter(runsDir, runID string) *artifactWriter {
	dir := filepath.Join(runsDir, runID)
	return &artifactWriter{dir: dir, artifacts: Artifacts{Dir: dir}}
}

func (w *artifactWriter) init() error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "pipeline", "artifacts", "create run directory", err)
	}
	return nil
}

func (w *artifactWriter) writeText(name, content string) error {
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return services.Wrap(services.ErrConfiguration, "pipeline", "artifacts", "write "+name, err)
	}
	w.record(name, path)
	return nil
}

func (w *artifactWriter) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrContract, "pipeline", "artifacts", "encode "+name, err)
	}
	return w.writeText(name, string(data)+"\n")
}

// export copies a finished artifact to a caller-chosen path. The copy is
// verified; dest never holds a partial result.
func (w *artifactWriter) export(name, dest string) error {
	src := filepath.Join(w.dir, name)
	if dir := filepath.Dir(dest); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return services.Wrap(services.ErrInvalidInput, "pipeline", "export", "create output directory", err)
		}
	}
	if err := fileutil.CopyFileVerified(src, dest); err != nil {
		return services.Wrap(services.ErrInvalidInput, "pipeline", "export", "copy "+name+" to "+dest, err)
	}
	w.artifacts.Output = dest
	return nil
}

func (w *artifactWriter) record(name, path string) {
	switch name {
	case artifactRawTrack:
		w.artifacts.RawTrack = path
	case artifactCleanText:
		w.artifacts.CleanText = path
	case artifactStoryCore:
		w.artifacts.StoryCore = path
	case artifactStory:
		w.artifacts.Story = path
	case artifactSlides:
		w.artifacts.Slides = path
	case artifactAnalysis:
		w.artifacts.Analysis = path
	}
}
