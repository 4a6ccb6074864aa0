package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"chunksplit/internal/manifest"
	"chunksplit/internal/metafile"
	"chunksplit/internal/plan"
)

var (
	planIDs         bool
	planOut         string
	planJSON        bool
	planSizeLimitKB int64
)

var planCmd = &cobra.Command{
	Use:   "plan <metafile|ids-file|->",
	Short: "Group a module graph into chunks",
	Long: `Classifies every module of a build and groups them into chunks.

The input is an esbuild metafile (JSON) by default, or a newline-separated
list of module ids with --ids. Use "-" to read from stdin.

Chunks larger than the size limit are reported as warnings. With --out the
assignment is saved as a compressed manifest for 'chunksplit diff'.

Examples:
  chunksplit plan dist/meta.json
  chunksplit plan --ids modules.txt --out build.manifest
  chunksplit plan dist/meta.json --json --size-limit-kb 500`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

func init() {
	planCmd.Flags().BoolVar(&planIDs, "ids", false, "Treat input as a newline-separated id list")
	planCmd.Flags().StringVarP(&planOut, "out", "o", "", "Write a chunk manifest to this path")
	planCmd.Flags().BoolVar(&planJSON, "json", false, "Output the plan as JSON")
	planCmd.Flags().Int64Var(&planSizeLimitKB, "size-limit-kb", 0, "Chunk size warning limit in KiB (default from config)")
}

func runPlan(cmd *cobra.Command, args []string) error {
	modules, err := readModules(cmd, args[0], planIDs)
	if err != nil {
		return err
	}

	classifier, err := loadClassifier()
	if err != nil {
		return err
	}
	store, err := openCache()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	mode := buildMode()
	classify := plan.Direct(classifier, mode)
	if store != nil {
		classify = plan.Cached(store, classifier, mode)
	}

	limit := cfg.Plan.SizeLimit()
	if planSizeLimitKB > 0 {
		limit = planSizeLimitKB * 1024
	}

	p, err := plan.Build(modules, classify, plan.Options{SizeLimit: limit})
	if err != nil {
		return err
	}

	log.Info().
		Int("modules", p.Modules()).
		Int("chunks", len(p.Chunks)).
		Int("deferred", len(p.Deferred)).
		Str("mode", string(mode)).
		Msg("plan built")
	for _, w := range p.Warnings {
		log.Warn().Msg(w)
	}

	if planOut != "" {
		m := manifest.FromPlan(p, mode, classifier.Digest())
		if err := manifest.WriteFile(planOut, m); err != nil {
			return err
		}
		log.Info().Str("path", planOut).Str("build", m.BuildID).Msg("manifest written")
	}

	out := cmd.OutOrStdout()
	if planJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}
	printPlan(out, p)
	return nil
}

func readModules(cmd *cobra.Command, input string, ids bool) ([]metafile.Module, error) {
	var r io.Reader = cmd.InOrStdin()
	if input != "-" {
		f, err := os.Open(input)
		if err != nil {
			return nil, fmt.Errorf("opening input: %w", err)
		}
		defer f.Close()
		r = f
	}

	if ids {
		return metafile.ReadIDs(r)
	}
	mf, err := metafile.Load(r)
	if err != nil {
		return nil, err
	}
	if ext := mf.ExternalImports(); len(ext) > 0 {
		log.Debug().Strs("external", ext).Msg("external imports are not planned")
	}
	return mf.Modules(), nil
}

func printPlan(w io.Writer, p *plan.Plan) {
	width := len("CHUNK")
	for _, c := range p.Chunks {
		if len(c.Name) > width {
			width = len(c.Name)
		}
	}

	fmt.Fprintf(w, "%-*s  %7s  %10s  %s\n", width, "CHUNK", "MODULES", "SIZE", "FILE")
	for _, c := range p.Chunks {
		marker := ""
		if c.OverLimit {
			marker = "  (over limit)"
		}
		fmt.Fprintf(w, "%-*s  %7d  %10s  %s%s\n", width, c.Name, len(c.Modules), formatBytes(c.Bytes), c.FileName, marker)
	}
	fmt.Fprintln(w, strings.Repeat("-", width+33))
	fmt.Fprintf(w, "%d chunks, %d modules, %s total; %d deferred to the bundler (%s)\n",
		len(p.Chunks), p.Modules()-len(p.Deferred), formatBytes(p.TotalBytes-p.DeferredBytes),
		len(p.Deferred), formatBytes(p.DeferredBytes))
}

func formatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}
