package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"retell/internal/pipeline"
)

func newMultipassCommand(ctx *commandContext) *cobra.Command {
	var flags fetchFlags
	var targetChars int
	var slidesHint int
	var outputPath string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "multipass <url>",
		Short: "Generate narrated slides through the staged multi-pass flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := executeRun(cmd, ctx, pipeline.Options{
				URL:         args[0],
				Mode:        pipeline.ModeMultipass,
				TargetChars: targetChars,
				SlidesHint:  slidesHint,
				Languages:   flags.langs,
				PreferAuto:  flags.autoOK,
				SkipCache:   flags.noCache,
				OutputPath:  outputPath,
			})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, newRunView(res))
			}
			printMultipassResult(cmd, res)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&targetChars, "target-chars", 0, "Target story length in characters (default: clean text length)")
	cmd.Flags().IntVar(&slidesHint, "slides-hint", 0, "Suggested slide count (default: model's choice)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Copy the rendered slides to this file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the result as JSON")
	return cmd
}

func printMultipassResult(cmd *cobra.Command, res *pipeline.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run:       %s\n", res.RunID)
	fmt.Fprintf(out, "Video:     %s (%s)\n", res.VideoID, res.Source)
	fmt.Fprintf(out, "Slides:    %d from %d clean chars\n", len(res.Slides), res.CleanChars)
	fmt.Fprintf(out, "Artifacts: %s\n", res.Artifacts.Dir)
	if res.Artifacts.Output != "" {
		fmt.Fprintf(out, "Output:    %s\n", res.Artifacts.Output)
	}
	fmt.Fprintf(out, "Elapsed:   %s\n", res.Elapsed.Round(timeRounding))
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.TrimSpace(res.Story))
}
