package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/cloo-solutions/finsight/internal/cli"
	"github.com/cloo-solutions/finsight/internal/config"
	"github.com/cloo-solutions/finsight/internal/service"
	"github.com/spf13/cobra"
)

// QueryCmd answers one question against the local corpus without starting
// the server.
func QueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Retrieve context for a question locally",
		Long:  "Loads the configured corpus, retrieves the best passages for the question and prints the joined context.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runQuery,
	}

	cmd.Flags().IntP("top-k", "k", 0, "Number of passages to retrieve (FINSIGHT_TOP_K when 0)")
	cmd.Flags().Bool("keyword-only", false, "Skip the embedding provider")
	cmd.Flags().Bool("output", false, "Output matches as JSON")

	cli.SetEnv(cmd, retrievalEnv...)
	return cmd
}

type queryMatch struct {
	ChunkID string  `json:"chunk_id"`
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet"`
}

type queryResult struct {
	Path    string       `json:"path"`
	NoMatch bool         `json:"no_match"`
	Context string       `json:"context"`
	Matches []queryMatch `json:"matches"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	k, _ := cmd.Flags().GetInt("top-k")
	keywordOnly, _ := cmd.Flags().GetBool("keyword-only")
	outputJSON, _ := cmd.Flags().GetBool("output")

	a, err := newApp(ctx, cfg, appOptions{keywordOnly: keywordOnly})
	if err != nil {
		return err
	}
	defer a.Close()

	question := strings.Join(args, " ")
	out, err := a.svc.Search(ctx, question, k)
	if err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), service.InvalidQueryMessage)
		return nil
	}

	return writeQueryResult(cmd.OutOrStdout(), out, outputJSON)
}

func writeQueryResult(w io.Writer, out *service.RetrievalOutput, outputJSON bool) error {
	if !outputJSON {
		fmt.Fprintln(w, out.Context)
		return nil
	}

	result := queryResult{
		Path:    string(out.Path),
		NoMatch: out.NoMatch,
		Context: out.Context,
		Matches: make([]queryMatch, len(out.Matches)),
	}
	for i, m := range out.Matches {
		result.Matches[i] = queryMatch{
			ChunkID: m.ID(),
			Source:  m.Source,
			Score:   m.Score,
			Snippet: out.Snippets[i],
		}
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}
