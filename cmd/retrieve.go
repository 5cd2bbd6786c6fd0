package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/healthbridge/healthbridge/internal/rag"
)

var (
	retrieveCondition string
	retrieveTopic     string
	retrieveTopK      int
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve <query>",
	Short: "Search indexed guideline evidence",
	Long: `Retrieve embeds the query and returns the closest guideline chunks,
ranked by relevance. Condition and topic filters narrow the search; when
omitted they are inferred from the query wording.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRetrieve,
}

func init() {
	retrieveCmd.Flags().StringVar(&retrieveCondition, "condition", "", "filter by condition (hypertension, diabetes, general_ncd)")
	retrieveCmd.Flags().StringVar(&retrieveTopic, "topic", "", "filter by topic (diet, activity, red_flags, sdoh)")
	retrieveCmd.Flags().IntVar(&retrieveTopK, "top-k", 0, "number of results (default: configured retrieval_top_k)")
	rootCmd.AddCommand(retrieveCmd)
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	query := strings.Join(args, " ")

	condition := retrieveCondition
	if condition == "" {
		condition = rag.DetectCondition(query)
	}
	topic := retrieveTopic
	if topic == "" {
		topic = rag.DetectTopic(query)
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	opts := []rag.RetrieveOption{}
	if condition != "" {
		opts = append(opts, rag.WithCondition(condition))
	}
	if topic != "" {
		opts = append(opts, rag.WithTopic(topic))
	}
	if retrieveTopK > 0 {
		opts = append(opts, rag.WithTopK(retrieveTopK))
	}

	results, err := a.Retriever.Retrieve(ctx, query, opts...)
	if err != nil {
		return fmt.Errorf("retrieving evidence: %w", err)
	}

	printResults(cmd.OutOrStdout(), query, condition, topic, results)
	return nil
}

func printResults(w io.Writer, query, condition, topic string, results []rag.Result) {
	fmt.Fprintf(w, "Query: %s", query)
	if condition != "" {
		fmt.Fprintf(w, " [condition=%s]", condition)
	}
	if topic != "" {
		fmt.Fprintf(w, " [topic=%s]", topic)
	}
	fmt.Fprintln(w)

	if len(results) == 0 {
		fmt.Fprintln(w, "No matching evidence found.")
		return
	}

	for i, r := range results {
		fmt.Fprintf(w, "\n%d. [%s | %s | %s] relevance %.2f\n", i+1, r.Source, r.Condition, r.Topic, r.Score)
		fmt.Fprintln(w, r.Content)
	}
}
