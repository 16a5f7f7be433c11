package main

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"retell/internal/multipass"
	"retell/internal/pipeline"
	"retell/internal/story"
	"retell/internal/subtitles"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags fetchFlags
	var targetChars int
	var analyze bool
	var improve bool
	var outputPath string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "run <url>",
		Short: "Generate a story from a video's subtitles (classic two-step flow)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := executeRun(cmd, ctx, pipeline.Options{
				URL:         args[0],
				Mode:        pipeline.ModeClassic,
				TargetChars: targetChars,
				Languages:   flags.langs,
				PreferAuto:  flags.autoOK,
				SkipCache:   flags.noCache,
				Analyze:     analyze,
				Improve:     improve,
				OutputPath:  outputPath,
			})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, newRunView(res))
			}
			printRunResult(cmd, res)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&targetChars, "target-chars", 0, "Target story length in characters (default: clean text length)")
	cmd.Flags().BoolVar(&analyze, "analyze", false, "Compare the story against the original and keep the report")
	cmd.Flags().BoolVar(&improve, "improve", false, "Rewrite the story once using the analysis (implies --analyze)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Copy the finished story to this file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the result as JSON")
	return cmd
}

func executeRun(cmd *cobra.Command, ctx *commandContext, opts pipeline.Options) (*pipeline.Result, error) {
	runCtx, cancel := signalContext(cmd)
	defer cancel()

	logger, err := ctx.buildLogger()
	if err != nil {
		return nil, err
	}
	runner, store, err := ctx.buildRunner(logger)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	return runner.Run(runCtx, opts)
}

func printRunResult(cmd *cobra.Command, res *pipeline.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run:       %s\n", res.RunID)
	fmt.Fprintf(out, "Video:     %s (%s)\n", res.VideoID, res.Source)
	fmt.Fprintf(out, "Story:     %d chars from %d clean chars\n",
		utf8.RuneCountInString(res.Story), res.CleanChars)
	if res.Improved {
		fmt.Fprintf(out, "Improved:  yes (similarity %.2f)\n", res.Similarity)
	}
	fmt.Fprintf(out, "Artifacts: %s\n", res.Artifacts.Dir)
	if res.Artifacts.Output != "" {
		fmt.Fprintf(out, "Output:    %s\n", res.Artifacts.Output)
	}
	fmt.Fprintf(out, "Elapsed:   %s\n", res.Elapsed.Round(timeRounding))
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.TrimSpace(res.Story))
	if res.Analysis != nil && strings.TrimSpace(res.Analysis.Report) != "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "-- Analysis --")
		fmt.Fprintln(out, strings.TrimSpace(res.Analysis.Report))
	}
}

type runView struct {
	RunID      string             `json:"run_id"`
	VideoID    string             `json:"video_id"`
	Mode       string             `json:"mode"`
	Source     string             `json:"source"`
	Language   string             `json:"language"`
	CleanChars int                `json:"clean_chars"`
	Stats      subtitles.Stats    `json:"stats"`
	Core       string             `json:"core,omitempty"`
	Story      string             `json:"story"`
	Slides     []multipass.Slide  `json:"slides,omitempty"`
	Analysis   *story.Analysis    `json:"analysis,omitempty"`
	Improved   bool               `json:"improved,omitempty"`
	Similarity float64            `json:"similarity,omitempty"`
	Artifacts  pipeline.Artifacts `json:"artifacts"`
	ElapsedSec float64            `json:"elapsed_seconds"`
}

func newRunView(res *pipeline.Result) runView {
	return runView{
		RunID:      res.RunID,
		VideoID:    res.VideoID,
		Mode:       string(res.Mode),
		Source:     res.Source,
		Language:   res.Language,
		CleanChars: res.CleanChars,
		Stats:      res.Stats,
		Core:       res.Core,
		Story:      res.Story,
		Slides:     res.Slides,
		Analysis:   res.Analysis,
		Improved:   res.Improved,
		Similarity: res.Similarity,
		Artifacts:  res.Artifacts,
		ElapsedSec: res.Elapsed.Seconds(),
	}
}
