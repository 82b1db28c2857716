package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/finsight/internal/cli"
	"github.com/cloo-solutions/finsight/internal/cli/daemon"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "finsightd",
		Short: "Finsight retrieval daemon and tools",
		Long:  "Finsight daemon for serving financial context retrieval and maintaining its corpus, index and API keys",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(daemon.ServeCmd())
	rootCmd.AddCommand(daemon.QueryCmd())
	rootCmd.AddCommand(daemon.ChunksCmd())
	rootCmd.AddCommand(daemon.CorpusCmd())
	rootCmd.AddCommand(daemon.MigrateCmd())
	rootCmd.AddCommand(daemon.KeygenCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
