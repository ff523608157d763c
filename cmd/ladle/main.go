package main

import (
	"fmt"
	"os"

	"github.com/ladlehq/ladle/internal/cli"
	"github.com/ladlehq/ladle/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "ladle",
		Short: "Ladle CLI - Semantic recipe search",
		Long: `Ladle CLI provides commands to manage and search versioned recipes.

Environment variables:
  LADLE_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.StatsCmd())
	rootCmd.AddCommand(client.AddCmd())
	rootCmd.AddCommand(client.GetCmd())
	rootCmd.AddCommand(client.ListCmd())
	rootCmd.AddCommand(client.DeleteCmd())
	rootCmd.AddCommand(client.VersionsCmd())
	rootCmd.AddCommand(client.ProjectCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
