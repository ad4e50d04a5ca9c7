package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
)

var rebuildForce bool

var rebuildCmd = &cobra.Command{
	Use:   "rebuild [catalog|knowledge|all]",
	Short: "Rebuild the serving artifacts",
	Long: `Refits the models and rebuilds the vector indexes from the current
catalog and knowledge base. A rebuild that follows a recent successful
one is skipped unless --force is given.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"catalog", "knowledge", "all"},
	RunE:      runRebuild,
}

var purgeCacheCmd = &cobra.Command{
	Use:   "purge-cache",
	Short: "Drop every cached serving result",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := rebuildService.PurgeCache(context.Background()); err != nil {
			return fmt.Errorf("purge failed: %w", err)
		}
		cmd.Println("Cache purged.")
		return nil
	},
}

func init() {
	rebuildCmd.Flags().BoolVarP(&rebuildForce, "force", "f", false, "rebuild even after a recent success")
	rootCmd.AddCommand(rebuildCmd)
	rootCmd.AddCommand(purgeCacheCmd)
}

func runRebuild(cmd *cobra.Command, args []string) error {
	target := "all"
	if len(args) > 0 {
		target = args[0]
	}

	ctx := context.Background()
	if target == "catalog" || target == "all" {
		report, err := rebuildService.RebuildCatalogIndex(ctx, rebuildForce)
		if err != nil {
			return fmt.Errorf("catalog rebuild failed: %w", err)
		}
		printReport(cmd, report)
	}
	if target == "knowledge" || target == "all" {
		report, err := rebuildService.RebuildKnowledgeIndex(ctx, rebuildForce)
		if err != nil {
			return fmt.Errorf("knowledge rebuild failed: %w", err)
		}
		printReport(cmd, report)
	}
	return nil
}

func printReport(cmd *cobra.Command, report *domain.RebuildReport) {
	switch report.Status {
	case domain.RebuildSkipped:
		cmd.Printf("%s: skipped, a recent rebuild is still fresh\n", report.Task)
	default:
		cmd.Printf("%s: %s, %d items in %s\n", report.Task, report.Status, report.Items, report.Duration)
	}
}
