package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// StatsResponse represents the document stats API response.
type StatsResponse struct {
	Total   int64 `json:"total"`
	Current int64 `json:"current"`
	Deleted int64 `json:"deleted"`
}

// StatsCmd creates the stats command.
func StatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show document store statistics",
		Long:  "Shows how many vector documents the store holds, split by current, historical and deleted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runStats(cmd, outputJSON)
		},
	}
}

func runStats(cmd *cobra.Command, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/documents/stats")
	if err != nil {
		return fmt.Errorf("failed to fetch stats: %w", err)
	}

	var stats StatsResponse
	if err := json.Unmarshal(resp.Data, &stats); err != nil {
		return fmt.Errorf("failed to parse stats: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(stats, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Documents: %d total, %d current, %d deleted\n", stats.Total, stats.Current, stats.Deleted)
	return nil
}
