package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show engine readiness and health",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output status as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	status, err := statusService.Status(context.Background())
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}

	if statusJSON {
		return printJSON(cmd, status)
	}
	printStatus(cmd, status)
	return nil
}

func printStatus(cmd *cobra.Command, status *domain.EngineStatus) {
	cmd.Printf("Embedding model: %s (%s)\n", status.EmbeddingModel, onlineState(status.EmbeddingOnline))
	cmd.Println()
	cmd.Printf("Recommend: %s\n", readiness(status.RecommendReady))
	cmd.Printf("Search:    %s\n", readiness(status.SearchReady))
	cmd.Printf("Assistant: %s\n", readiness(status.AskReady))
	cmd.Println()

	cmd.Printf("Cache: %s", status.Cache.Status)
	if status.Cache.Entries >= 0 {
		cmd.Printf(", %d entries, %d hits / %d misses",
			status.Cache.Entries, status.Cache.Hits, status.Cache.Misses)
	}
	cmd.Println()

	cmd.Printf("Artifacts: %d registered", len(status.Manifest.Artifacts)+
		len(status.Manifest.Models)+len(status.Manifest.Indexes))
	if status.Validation.Valid {
		cmd.Printf(", all present (%d bytes)\n", status.Validation.TotalSize)
	} else {
		cmd.Printf(", missing: %s\n", strings.Join(status.Validation.MissingFiles, ", "))
	}
}

func readiness(ready bool) string {
	if ready {
		return "ready"
	}
	return "not ready"
}

func onlineState(online bool) string {
	if online {
		return "online"
	}
	return "offline"
}
