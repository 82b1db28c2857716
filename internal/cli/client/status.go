package client

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// IndexStatus mirrors the server's GET /index/status payload.
type IndexStatus struct {
	Enabled     bool           `json:"enabled"`
	Built       bool           `json:"built"`
	BuildID     string         `json:"build_id,omitempty"`
	Model       string         `json:"model,omitempty"`
	Dimensions  int            `json:"dimensions,omitempty"`
	Builds      int64          `json:"builds"`
	Documents   int            `json:"documents"`
	Chunks      int            `json:"chunks"`
	LastError   string         `json:"last_error,omitempty"`
	LastErrorAt string         `json:"last_error_at,omitempty"`
	Queries     map[string]int `json:"queries,omitempty"`
}

// StatusCmd creates the status command.
func StatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the server's retrieval index status",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			status, err := FetchIndexStatus(api)
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")
			return writeIndexStatus(cmd.OutOrStdout(), status, outputJSON)
		},
	}
}

func FetchIndexStatus(api *APIClient) (*IndexStatus, error) {
	resp, err := api.Get("/index/status")
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}

	var status IndexStatus
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status: %w", err)
	}
	return &status, nil
}

func writeIndexStatus(w io.Writer, status *IndexStatus, outputJSON bool) error {
	if outputJSON {
		output, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		fmt.Fprintln(w, string(output))
		return nil
	}

	fmt.Fprintf(w, "Corpus: %d documents, %d chunks\n", status.Documents, status.Chunks)
	if status.Queries != nil {
		fmt.Fprintf(w, "Queries answered: %d vector, %d keyword\n", status.Queries["vector"], status.Queries["keyword"])
	}
	if !status.Enabled {
		fmt.Fprintln(w, "Vector search: disabled (keyword only)")
		return nil
	}

	if status.Built {
		fmt.Fprintf(w, "Vector index: built (%s, %d dims, build %s)\n", status.Model, status.Dimensions, status.BuildID)
	} else {
		fmt.Fprintln(w, "Vector index: not built")
	}
	fmt.Fprintf(w, "Build attempts: %d\n", status.Builds)
	if status.LastError != "" {
		fmt.Fprintf(w, "Last error: %s (%s)\n", status.LastError, status.LastErrorAt)
	}
	return nil
}
