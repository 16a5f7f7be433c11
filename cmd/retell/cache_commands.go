package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"retell/internal/cache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the subtitle cache",
	}

	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCacheShowCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))

	return cacheCmd
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached subtitle artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON {
				view := cacheListView{
					Path:       store.Path(),
					Entries:    make([]cacheEntryView, 0, len(entries)),
					Videos:     stats.Videos,
					TotalBytes: stats.TotalBytes,
				}
				for _, entry := range entries {
					view.Entries = append(view.Entries, cacheEntryView{
						VideoID:   entry.VideoID,
						Kind:      string(entry.Kind),
						Bytes:     entry.Bytes,
						UpdatedAt: entry.UpdatedAt.UTC().Format(time.RFC3339),
					})
				}
				return writeJSON(cmd, view)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "Cache is empty")
				return nil
			}
			const stampLayout = "2006-01-02 15:04"
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					entry.VideoID,
					string(entry.Kind),
					humanBytes(entry.Bytes),
					entry.UpdatedAt.Local().Format(stampLayout),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"VIDEO", "KIND", "SIZE", "UPDATED"}, rows, 3))
			fmt.Fprintf(out, "%d entries for %d videos, %s total\n",
				stats.Entries, stats.Videos, humanBytes(stats.TotalBytes))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the listing as JSON")
	return cmd
}

func newCacheShowCommand(ctx *commandContext) *cobra.Command {
	var kindFlag string

	cmd := &cobra.Command{
		Use:   "show <video-id>",
		Short: "Print a cached artifact to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(kindFlag)
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			content, ok, err := store.Get(cmd.Context(), args[0], kind)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no cached %s for %s", kind, args[0])
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, content)
			if !strings.HasSuffix(content, "\n") {
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kindFlag, "kind", string(cache.KindCleanText), "Artifact kind (raw_track or clean_text)")
	return cmd
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "clear [video-id]",
		Short: "Remove cached artifacts for one video, or everything",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all && len(args) > 0 {
				return errors.New("pass a video id or --all, not both")
			}
			if !all && len(args) == 0 {
				return errors.New("pass a video id, or --all to clear everything")
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if all {
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %d cache entries\n", removed)
				return nil
			}
			removed, err := store.Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if removed == 0 {
				fmt.Fprintf(out, "No cache entries for %s\n", args[0])
				return nil
			}
			fmt.Fprintf(out, "Removed %d cache entries for %s\n", removed, args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Clear every cached artifact")
	return cmd
}

func parseKind(value string) (cache.Kind, error) {
	kind := cache.Kind(strings.TrimSpace(value))
	for _, known := range cache.Kinds() {
		if kind == known {
			return kind, nil
		}
	}
	return "", fmt.Errorf("unknown cache kind %q (expected raw_track or clean_text)", value)
}

type cacheEntryView struct {
	VideoID   string `json:"video_id"`
	Kind      string `json:"kind"`
	Bytes     int64  `json:"bytes"`
	UpdatedAt string `json:"updated_at"`
}

type cacheListView struct {
	Path       string           `json:"path"`
	Entries    []cacheEntryView `json:"entries"`
	Videos     int64            `json:"videos"`
	TotalBytes int64            `json:"total_bytes"`
}
