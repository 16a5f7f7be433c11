package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"retell/internal/fetch"
	"retell/internal/pipeline"
	"retell/internal/subtitles"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var flags fetchFlags
	var outputPath string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Fetch and clean the subtitle track for a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, cancel := signalContext(cmd)
			defer cancel()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.buildLogger()
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			fetcher, err := ctx.buildFetchService(store, logger)
			if err != nil {
				return err
			}

			res, err := pipeline.FetchClean(runCtx, fetcher, store, cfg.Subtitles.MaxChars, logger, pipeline.FetchOptions{
				URL:        args[0],
				Languages:  flags.langs,
				PreferAuto: flags.autoOK,
				SkipCache:  flags.noCache,
			})
			if err != nil {
				return err
			}

			if outputPath != "" {
				if err := os.WriteFile(outputPath, []byte(res.Clean), 0o644); err != nil {
					return fmt.Errorf("write clean text: %w", err)
				}
			}

			if asJSON {
				return writeJSON(cmd, fetchView{
					VideoID:  res.Fetched.VideoID,
					Source:   res.Fetched.Source,
					Language: res.Fetched.Language,
					Stats:    res.Stats,
					Text:     res.Clean,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Video:    %s\n", res.Fetched.VideoID)
			fmt.Fprintf(out, "Source:   %s\n", describeSource(res.Fetched))
			fmt.Fprintln(out, renderTable(
				[]string{"METRIC", "VALUE"},
				[][]string{
					{"Chars before dedupe", strconv.Itoa(res.Stats.CharsBefore)},
					{"Chars after dedupe", strconv.Itoa(res.Stats.CharsAfter)},
					{"Removed", strconv.Itoa(res.Stats.Removed)},
					{"Dedupe ratio", fmt.Sprintf("%.3f", res.Stats.Ratio)},
				},
				2,
			))
			if outputPath != "" {
				fmt.Fprintf(out, "Clean text written to %s\n", outputPath)
			} else {
				fmt.Fprintf(out, "Clean text cached; view with 'retell cache show %s'\n", res.Fetched.VideoID)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the clean text to this file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the result as JSON")
	return cmd
}

type fetchView struct {
	VideoID  string          `json:"video_id"`
	Source   string          `json:"source"`
	Language string          `json:"language"`
	Stats    subtitles.Stats `json:"stats"`
	Text     string          `json:"text"`
}

func describeSource(res *fetch.Result) string {
	if res.Language != "" && res.Language != "unknown" {
		return fmt.Sprintf("%s (%s)", res.Source, res.Language)
	}
	return res.Source
}
