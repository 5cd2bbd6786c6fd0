package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/healthbridge/healthbridge/internal/memory"
)

var (
	memoryUser     string
	memorySaveType string
	memoryListType string
	memoryTopK     int
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect and manage per-user memories",
}

var memorySaveCmd = &cobra.Command{
	Use:   "save <text>",
	Short: "Save a memory for a user",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMemorySave,
}

var memoryRecallCmd = &cobra.Command{
	Use:   "recall <query>",
	Short: "Recall a user's memories relevant to a query",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMemoryRecall,
}

var memoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's memories, newest first",
	Args:  cobra.NoArgs,
	RunE:  runMemoryList,
}

func init() {
	memoryCmd.PersistentFlags().StringVar(&memoryUser, "user", "", "user ID (required)")
	_ = memoryCmd.MarkPersistentFlagRequired("user")

	memorySaveCmd.Flags().StringVar(&memorySaveType, "type", string(memory.TypeConstraint), "memory type (profile, constraint, habit_plan, outcome)")
	memoryRecallCmd.Flags().IntVar(&memoryTopK, "top-k", memory.DefaultTopK, "number of memories to recall")
	memoryListCmd.Flags().StringVar(&memoryListType, "type", "", "filter by memory type")

	memoryCmd.AddCommand(memorySaveCmd, memoryRecallCmd, memoryListCmd)
	rootCmd.AddCommand(memoryCmd)
}

func runMemorySave(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	id, err := a.Memories.Save(ctx, memoryUser, strings.Join(args, " "),
		memory.Type(memorySaveType), map[string]string{"origin": "cli"})
	if err != nil {
		return fmt.Errorf("saving memory: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Saved memory %s for user %s\n", id, memoryUser)
	return nil
}

func runMemoryRecall(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	records, err := a.Memories.Recall(ctx, memoryUser, strings.Join(args, " "), memoryTopK)
	if err != nil {
		return fmt.Errorf("recalling memories: %w", err)
	}

	printMemories(cmd.OutOrStdout(), memoryUser, records)
	return nil
}

func runMemoryList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	records, err := a.Memories.All(ctx, memoryUser, memory.Type(memoryListType))
	if err != nil {
		return fmt.Errorf("listing memories: %w", err)
	}

	printMemories(cmd.OutOrStdout(), memoryUser, records)
	return nil
}

func printMemories(w io.Writer, userID string, records []*memory.Record) {
	if len(records) == 0 {
		fmt.Fprintf(w, "No memories for user %s\n", userID)
		return
	}

	fmt.Fprintf(w, "%d memories for user %s:\n", len(records), userID)
	for _, r := range records {
		fmt.Fprintf(w, "  [%s, %s] %s\n", r.Type, r.CreatedAt.Format("2006-01-02"), r.Content)
	}
}
