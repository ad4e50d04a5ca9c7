package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	catalogsqlite "github.com/smartmarket-labs/retrieval-engine/internal/adapters/driven/catalog/sqlite"
	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the catalog with demo data",
	Long: `Populates the configured catalog database with a small demo
catalog, useful for trying the engine without a storefront export.
Existing rows with the same ids are overwritten.`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

type seedCategory struct {
	id   int64
	name string
}

var demoCategories = []seedCategory{
	{1, "Sport"},
	{2, "Auto"},
	{3, "Maison"},
}

var demoItems = []domain.Item{
	{ID: 1, Name: "Chaussures de running rouges", Description: "Chaussures légères pour la course sur route", CategoryID: 1, Price: 89.90, Stock: 12, Active: true},
	{ID: 2, Name: "Chaussures de running bleues", Description: "Chaussures amorties pour les longues distances", CategoryID: 1, Price: 99.90, Stock: 8, Active: true},
	{ID: 3, Name: "Tapis de yoga", Description: "Tapis antidérapant pour le yoga et le fitness", CategoryID: 1, Price: 24.90, Stock: 30, Active: true},
	{ID: 4, Name: "Pneu hiver 205/55 R16", Description: "Pneu hiver pour berline compacte", CategoryID: 2, Price: 74.50, Stock: 40, Active: true},
	{ID: 5, Name: "Balai d'essuie-glace", Description: "Essuie-glace plat pour pare-brise avant", CategoryID: 2, Price: 14.90, Stock: 60, Active: true},
	{ID: 6, Name: "Cafetière à piston", Description: "Cafetière en verre borosilicate, huit tasses", CategoryID: 3, Price: 29.90, Stock: 15, Active: true},
	{ID: 7, Name: "Lampe de bureau", Description: "Lampe LED à intensité réglable", CategoryID: 3, Price: 39.90, Stock: 20, Active: true},
}

func runSeed(cmd *cobra.Command, _ []string) error {
	catalog, err := catalogsqlite.Open(cfg.Engine.CatalogDB)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer catalog.Close()

	ctx := context.Background()
	for _, cat := range demoCategories {
		if err := catalog.UpsertCategory(ctx, cat.id, cat.name); err != nil {
			return fmt.Errorf("seed failed: %w", err)
		}
	}
	for _, item := range demoItems {
		if err := catalog.UpsertItem(ctx, item); err != nil {
			return fmt.Errorf("seed failed: %w", err)
		}
	}

	cmd.Printf("Seeded %d categories and %d items into %s.\n",
		len(demoCategories), len(demoItems), cfg.Engine.CatalogDB)
	cmd.Println("Run 'retrieval rebuild catalog' to build the serving artifacts.")
	return nil
}
