package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"chunksplit/chunk"
	"chunksplit/internal/metafile"
	"chunksplit/internal/plan"
)

var classifyExplain bool

var classifyCmd = &cobra.Command{
	Use:   "classify [module-id...]",
	Short: "Print the chunk for each module id",
	Long: `Classifies module ids as the bundler would during the chunking phase.

Ids are read from the arguments, or one per line from stdin when no
arguments are given. Each line of output is "<id><TAB><chunk>", with "-"
when the module is left to the bundler's default chunking.

Examples:
  chunksplit classify /repo/node_modules/axe-core/axe.js
  vite-module-dump | chunksplit classify --explain
  chunksplit classify --mode development /repo/src/index.ts`,
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().BoolVar(&classifyExplain, "explain", false, "Also print which rule decided each module")
}

func runClassify(cmd *cobra.Command, args []string) error {
	var ids []string
	if len(args) > 0 {
		ids = args
	} else {
		modules, err := metafile.ReadIDs(cmd.InOrStdin())
		if err != nil {
			return err
		}
		for _, m := range modules {
			ids = append(ids, m.ID)
		}
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

	out := cmd.OutOrStdout()
	for _, id := range ids {
		res, err := classify(id)
		if err != nil {
			return err
		}
		if classifyExplain {
			fmt.Fprintf(out, "%s\t%s\t%s\n", id, res, explain(classifier, id, mode))
			continue
		}
		fmt.Fprintf(out, "%s\t%s\n", id, res)
	}

	log.Debug().Int("modules", len(ids)).Str("mode", string(mode)).Msg("classified")
	return nil
}

// explain names what decided the result for id.
func explain(c *chunk.Classifier, id string, mode chunk.Mode) string {
	if mode != chunk.Production {
		return "mode:" + string(mode)
	}
	if chunk.Rule(id) == "internal" {
		return "rule:internal"
	}
	if name, ok := c.Overrides().Match(id); ok {
		return "override:" + name
	}
	if r := chunk.Rule(id); r != "" {
		return "rule:" + r
	}
	return "default"
}
