package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"chunksplit/internal/manifest"
)

var diffJSON bool

var diffCmd = &cobra.Command{
	Use:   "diff <old.manifest> <new.manifest>",
	Short: "Compare the chunk assignments of two builds",
	Long: `Reports which modules were added, removed, or moved to another chunk
between two builds, which chunks get new hashed file names as a result, and
the share of modules that kept their chunk.

Examples:
  chunksplit diff release-1.manifest release-2.manifest
  chunksplit diff a.manifest b.manifest --json`,
	Args: cobra.ExactArgs(2),
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().BoolVar(&diffJSON, "json", false, "Output diff as JSON")
}

func runDiff(cmd *cobra.Command, args []string) error {
	prev, err := manifest.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	next, err := manifest.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("%s: %w", args[1], err)
	}

	d := manifest.Compare(prev, next)
	log.Debug().
		Str("from", prev.BuildID).
		Str("to", next.BuildID).
		Int("chunks", len(next.Chunks())).
		Float64("stability", d.Stability).
		Msg("manifests compared")

	out := cmd.OutOrStdout()
	if diffJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	}

	if d.RulesChanged {
		fmt.Fprintln(out, "note: builds used different chunk rules")
	}
	if d.Empty() {
		fmt.Fprintln(out, "No chunk assignment changes.")
		return nil
	}
	for _, id := range d.Added {
		fmt.Fprintf(out, "A  %s\n", id)
	}
	for _, id := range d.Removed {
		fmt.Fprintf(out, "D  %s\n", id)
	}
	for _, m := range d.Moved {
		fmt.Fprintf(out, "M  %s  %s -> %s\n", m.ID, m.From, m.To)
	}
	fmt.Fprintf(out, "\n%d added, %d removed, %d moved; %.1f%% of %d common modules kept their chunk\n",
		len(d.Added), len(d.Removed), len(d.Moved), d.Stability*100, d.Common)
	if len(d.Invalidated) > 0 {
		fmt.Fprintf(out, "Chunks with new file names: %v\n", d.Invalidated)
	}
	return nil
}
