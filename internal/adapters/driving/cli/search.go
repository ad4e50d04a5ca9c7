package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
)

var (
	searchLimit      int
	searchJSON       bool
	searchCategories []int64
	searchMinPrice   float64
	searchMaxPrice   float64
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the catalog semantically",
	Long: `Embeds the query and ranks catalog items by similarity.
Category and price filters are applied on the current catalog data,
so recently deactivated items never surface.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().Int64SliceVar(&searchCategories, "category", nil, "restrict to category ids")
	searchCmd.Flags().Float64Var(&searchMinPrice, "min-price", 0, "minimum price")
	searchCmd.Flags().Float64Var(&searchMaxPrice, "max-price", 0, "maximum price")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	filters := domain.SearchFilters{CategoryIDs: searchCategories}
	if cmd.Flags().Changed("min-price") {
		filters.MinPrice = &searchMinPrice
	}
	if cmd.Flags().Changed("max-price") {
		filters.MaxPrice = &searchMaxPrice
	}

	results, err := searchService.Search(context.Background(), args[0], searchLimit, filters)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return printJSON(cmd, results)
	}
	return printSearchResults(cmd, results)
}

func printSearchResults(cmd *cobra.Command, results []domain.SearchResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, r := range results {
		cmd.Printf("  [%d] item %d (%.3f)\n", i+1, r.ItemID, r.Score)
		cmd.Printf("      %s\n", r.Reason)
	}
	return nil
}
