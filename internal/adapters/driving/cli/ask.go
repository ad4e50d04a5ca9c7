package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
)

var (
	askJSON    bool
	askContext []string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the shopping assistant a question",
	Long: `Answers a question grounded in the ingested knowledge base.
When a generation backend is configured the answer is generated from
the retrieved sources; otherwise a deterministic fallback quotes or
summarises the best match.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	askCmd.Flags().StringArrayVar(&askContext, "context", nil, "user context as key=value, repeatable")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	userContext, err := parseUserContext(askContext)
	if err != nil {
		return err
	}

	answer, err := assistantService.Ask(context.Background(), args[0], userContext)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		return printJSON(cmd, answer)
	}
	return printAnswer(cmd, answer)
}

func parseUserContext(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid context %q, expected key=value", pair)
		}
		out[key] = value
	}
	return out, nil
}

func printAnswer(cmd *cobra.Command, answer *domain.Answer) error {
	cmd.Println(answer.Text)

	if len(answer.Sources) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for i, src := range answer.Sources {
			name := src.Metadata[domain.MetaParentID]
			if name == "" {
				name = "unknown"
			}
			cmd.Printf("  [%d] %s (%.3f)\n", i+1, name, src.Score)
		}
	}

	cmd.Println()
	cmd.Printf("trace: %s  confidence: %.3f  status: %s\n",
		answer.TraceID, answer.Confidence, answer.Status)
	return nil
}
