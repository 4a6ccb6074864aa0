package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"chunksplit/naming"
)

var nameCmd = &cobra.Command{
	Use:   "name",
	Short: "Compute content-hashed output file names",
}

var nameChunkCmd = &cobra.Command{
	Use:   "chunk <chunk-name> <file>",
	Short: "Print chunks/<name>-<hash>.js for a chunk's content",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("reading chunk: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), naming.ChunkFile(args[0], content))
		return nil
	},
}

var nameEntryCmd = &cobra.Command{
	Use:   "entry <file>",
	Short: "Print entry-<hash>.js for an entry's content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading entry: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), naming.EntryFile(content))
		return nil
	},
}

var nameAssetCmd = &cobra.Command{
	Use:   "asset <file...>",
	Short: "Print the output path of each asset, or 'inline' for small assets",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, path := range args {
			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading asset: %w", err)
			}
			if naming.Inline(int64(len(content))) {
				fmt.Fprintf(out, "%s\tinline\n", path)
				continue
			}
			fmt.Fprintf(out, "%s\t%s\n", path, naming.AssetFile(path, content))
		}
		return nil
	},
}

func init() {
	nameCmd.AddCommand(nameChunkCmd, nameEntryCmd, nameAssetCmd)
}
