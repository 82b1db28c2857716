package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/cloo-solutions/finsight/internal/cli"
	"github.com/cloo-solutions/finsight/internal/config"
	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/spf13/cobra"
)

// ChunksCmd prints the chunk set built from the configured corpus.
func ChunksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chunks",
		Short: "List the chunks built from the corpus",
		RunE:  runChunks,
	}

	cmd.Flags().Bool("output", false, "Output as JSON")
	cmd.Flags().IntP("limit", "n", 0, "Show at most n chunks (0 for all)")

	cli.SetEnv(cmd, retrievalEnv...)
	return cmd
}

type chunkView struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Type   string `json:"type"`
	Offset int    `json:"offset"`
	Text   string `json:"text"`
}

func runChunks(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	outputJSON, _ := cmd.Flags().GetBool("output")
	limit, _ := cmd.Flags().GetInt("limit")

	a, err := newApp(context.Background(), cfg, appOptions{keywordOnly: true})
	if err != nil {
		return err
	}
	defer a.Close()

	chunks := a.svc.Chunks()
	if limit > 0 && len(chunks) > limit {
		chunks = chunks[:limit]
	}
	return writeChunks(cmd.OutOrStdout(), chunks, outputJSON)
}

func writeChunks(w io.Writer, chunks []domain.Chunk, outputJSON bool) error {
	if outputJSON {
		views := make([]chunkView, len(chunks))
		for i, c := range chunks {
			views[i] = chunkView{ID: c.ID(), Source: c.Source, Type: c.Type, Offset: c.Offset, Text: c.Text}
		}
		data, err := json.MarshalIndent(views, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal chunks: %w", err)
		}
		fmt.Fprintln(w, string(data))
		return nil
	}

	for _, c := range chunks {
		preview := strings.ReplaceAll(c.Text, "\n", " ")
		if r := []rune(preview); len(r) > 60 {
			preview = string(r[:57]) + "..."
		}
		fmt.Fprintf(w, "%-24s offset=%-5d %s\n", c.ID(), c.Offset, preview)
	}
	return nil
}
