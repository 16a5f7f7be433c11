package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// timeRounding keeps elapsed durations readable in command output.
const timeRounding = 10 * time.Millisecond

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func humanBytes(v int64) string {
	const unit = 1024
	if v < unit {
		return fmt.Sprintf("%d B", v)
	}
	div := int64(unit)
	exp := 0
	for n := v / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	value := float64(v) / float64(div)
	return fmt.Sprintf("%.1f %ciB", value, "KMGTPEZY"[exp])
}

// fetchFlags are shared by every command that pulls subtitles.
type fetchFlags struct {
	noCache bool
	langs   []string
	autoOK  bool
}

func (f *fetchFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "Bypass the subtitle cache and download fresh")
	cmd.Flags().StringSliceVar(&f.langs, "langs", nil, "Preferred subtitle languages, best first (default from config)")
	cmd.Flags().BoolVar(&f.autoOK, "auto-ok", false, "Accept auto-generated captions before manual ones")
}
