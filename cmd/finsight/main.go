package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/finsight/internal/cli"
	"github.com/cloo-solutions/finsight/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "finsight",
		Short: "Finsight CLI - financial context retrieval",
		Long: `Finsight CLI asks a finsight server for the passages that answer a question.

Environment variables:
  FINSIGHT_API_KEY   API key for authentication
  FINSIGHT_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-key", "", "API key for authentication (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)
	cli.SetEnv(rootCmd, "FINSIGHT_API_KEY", "FINSIGHT_API_URL")

	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.StatusCmd())
	rootCmd.AddCommand(client.AuthCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
