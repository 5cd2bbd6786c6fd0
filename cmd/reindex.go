package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/healthbridge/healthbridge/internal/rag"
)

var reindexDir string

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the evidence collection from seeds and the corpus",
	Long: `Reindex clears the evidence collection and repopulates it from the
built-in seed guidelines plus every document in the guidelines directory.
The swap is atomic: readers see either the old index or the new one.
Only one reindex may run at a time.`,
	Args: cobra.NoArgs,
	RunE: runReindex,
}

func init() {
	reindexCmd.Flags().StringVar(&reindexDir, "dir", "", "guidelines directory (default: configured guidelines_dir)")
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	dir := reindexDir
	if dir == "" {
		dir = a.Config.GuidelinesDir
	}

	report, err := a.Indexer.ReindexAll(ctx, dir)
	if errors.Is(err, rag.ErrReindexInProgress) {
		return fmt.Errorf("another reindex is already running, try again later")
	}
	if err != nil {
		return fmt.Errorf("reindexing: %w", err)
	}

	printIndexReport(cmd.OutOrStdout(), report)
	return nil
}
