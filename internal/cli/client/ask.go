package client

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

type retrieveRequest struct {
	Question string `json:"question"`
	K        int    `json:"k,omitempty"`
}

type retrieveMatch struct {
	ChunkID string  `json:"chunk_id"`
	Source  string  `json:"source"`
	Type    string  `json:"type"`
	Offset  int     `json:"offset"`
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet"`
}

// RetrieveResult mirrors the server's POST /retrieve payload.
type RetrieveResult struct {
	Context string           `json:"context"`
	Path    string           `json:"path"`
	NoMatch bool             `json:"no_match"`
	Matches []*retrieveMatch `json:"matches"`
	QueryID string           `json:"query_id,omitempty"`
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var k int
	var showMatches bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Retrieve context for a question",
		Long:  "Sends the question to the finsight server and prints the retrieved context.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")
			result, err := Ask(api, strings.Join(args, " "), k)
			if err != nil {
				return err
			}
			return writeRetrieveResult(cmd.OutOrStdout(), result, outputJSON, showMatches)
		},
	}

	cmd.Flags().IntVarP(&k, "top-k", "k", 0, "Number of passages to retrieve (server default when 0)")
	cmd.Flags().BoolVar(&showMatches, "matches", false, "Print per-passage sources and scores")

	return cmd
}

func Ask(api *APIClient, question string, k int) (*RetrieveResult, error) {
	resp, err := api.Post("/retrieve", retrieveRequest{Question: question, K: k})
	if err != nil {
		return nil, fmt.Errorf("retrieve failed: %w", err)
	}

	var result RetrieveResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse retrieve response: %w", err)
	}
	return &result, nil
}

func writeRetrieveResult(w io.Writer, result *RetrieveResult, outputJSON, showMatches bool) error {
	if outputJSON {
		output, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		fmt.Fprintln(w, string(output))
		return nil
	}

	fmt.Fprintln(w, result.Context)
	if !showMatches || result.NoMatch {
		return nil
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("-", 40))
	fmt.Fprintf(w, "path: %s\n", result.Path)
	for i, m := range result.Matches {
		fmt.Fprintf(w, "%d. %s (%s, offset %d) %.3f\n", i+1, m.Source, m.Type, m.Offset, m.Score)
	}
	return nil
}
