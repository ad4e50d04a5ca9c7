package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
)

var (
	recommendLimit   int
	recommendDiverse bool
	recommendJSON    bool
)

var recommendCmd = &cobra.Command{
	Use:   "recommend [item-id]",
	Short: "Recommend items similar to a catalog item",
	Long: `Returns the content-based neighbours of a catalog item, ranked by
similarity. With --diverse, results are re-ranked to trade a little
relevance for variety.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecommend,
}

func init() {
	recommendCmd.Flags().IntVarP(&recommendLimit, "limit", "n", 0, "maximum number of results")
	recommendCmd.Flags().BoolVar(&recommendDiverse, "diverse", false, "re-rank for diversity")
	recommendCmd.Flags().BoolVar(&recommendJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(recommendCmd)
}

func runRecommend(cmd *cobra.Command, args []string) error {
	itemID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid item id %q", args[0])
	}

	recs, err := recommendService.Recommend(context.Background(), itemID, recommendLimit, recommendDiverse)
	if err != nil {
		return fmt.Errorf("recommend failed: %w", err)
	}

	if recommendJSON {
		return printJSON(cmd, recs)
	}
	return printRecommendations(cmd, itemID, recs)
}

func printRecommendations(cmd *cobra.Command, itemID int64, recs []domain.Recommendation) error {
	if len(recs) == 0 {
		cmd.Printf("No recommendations for item %d.\n", itemID)
		return nil
	}

	cmd.Printf("Recommendations for item %d:\n\n", itemID)
	for i, rec := range recs {
		cmd.Printf("  [%d] item %d (%.3f) - %s\n", i+1, rec.ItemID, rec.Score, rec.Reason)
	}
	return nil
}

// printJSON renders any payload as indented JSON on the command output.
func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
