package daemon

import (
	"encoding/json"
	"fmt"

	"github.com/cloo-solutions/finsight/internal/service"
	"github.com/spf13/cobra"
)

// KeygenCmd generates an API key for FINSIGHT_API_KEYS.
func KeygenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an API key",
		Long:  "Generate a new API key. Add it to FINSIGHT_API_KEYS on the server and hand it to the client.",
		RunE:  runKeygen,
	}

	cmd.Flags().String("output", "text", "Output format (text or json)")

	return cmd
}

func runKeygen(cmd *cobra.Command, args []string) error {
	outputFormat, _ := cmd.Flags().GetString("output")

	token, err := service.GenerateAPIToken()
	if err != nil {
		return fmt.Errorf("failed to generate API key: %w", err)
	}

	out := cmd.OutOrStdout()
	if outputFormat == "json" {
		data, _ := json.MarshalIndent(map[string]string{
			"token":     token,
			"client_id": service.ClientID(token),
		}, "", "  ")
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintf(out, "API key:   %s\n", token)
	fmt.Fprintf(out, "Client ID: %s\n", service.ClientID(token))
	fmt.Fprintln(out, "\nThe key is not stored anywhere. Save it now.")
	return nil
}
