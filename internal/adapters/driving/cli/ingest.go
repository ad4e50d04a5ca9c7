package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/smartmarket-labs/retrieval-engine/internal/adapters/driven/knowledge/file"
	"github.com/smartmarket-labs/retrieval-engine/internal/logger"
)

var ingestWatch bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Ingest knowledge documents into the assistant",
	Long: `Reads markdown and text documents from the knowledge directory and
adds them to the retrieval index. With --watch, the directory is
monitored and re-ingested whenever a document changes, until
interrupted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestWatch, "watch", false, "re-ingest on file changes")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	src := knowledgeSource
	if len(args) > 0 {
		var err error
		src, err = file.NewSource(args[0])
		if err != nil {
			return fmt.Errorf("open knowledge directory: %w", err)
		}
	}
	if src == nil {
		return errors.New("no knowledge directory configured")
	}

	ctx := context.Background()
	if err := ingestOnce(ctx, cmd, src); err != nil {
		return err
	}
	if !ingestWatch {
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd.Println("Watching for changes. Press Ctrl+C to stop.")
	err := src.Watch(ctx, func() {
		if err := ingestOnce(ctx, cmd, src); err != nil {
			logger.Warn("re-ingest: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	<-ctx.Done()
	return nil
}

func ingestOnce(ctx context.Context, cmd *cobra.Command, src *file.Source) error {
	docs, err := src.Load(ctx)
	if err != nil {
		return fmt.Errorf("load documents: %w", err)
	}
	if err := assistantService.Ingest(ctx, docs); err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	cmd.Printf("Ingested %d documents.\n", len(docs))
	return nil
}
