package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// SearchRequest represents the search API request.
type SearchRequest struct {
	Query      string   `json:"query"`
	Limit      int      `json:"limit,omitempty"`
	Threshold  *float64 `json:"threshold,omitempty"`
	ProjectIDs []string `json:"project_ids,omitempty"`
}

// SearchResult represents a search result.
type SearchResult struct {
	ID         int64   `json:"id"`
	Title      string  `json:"title"`
	ShortID    string  `json:"short_id"`
	VersionID  string  `json:"version_id"`
	RecipeID   string  `json:"recipe_id"`
	Similarity float64 `json:"similarity"`
}

// SearchResponse represents the search API response.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var (
		limit      int
		threshold  float64
		projectIDs []string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search recipes",
		Long:  "Searches recipes by meaning using semantic similarity over the current recipe versions.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			var th *float64
			if cmd.Flags().Changed("threshold") {
				th = &threshold
			}
			return runSearch(cmd, args[0], limit, th, projectIDs, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of results (server default: 10)")
	cmd.Flags().Float64VarP(&threshold, "threshold", "t", 0, "Minimum similarity, exclusive (server default: 0.3)")
	cmd.Flags().StringSliceVarP(&projectIDs, "project", "p", nil, "Restrict search to project IDs")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, limit int, threshold *float64, projectIDs []string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	req := SearchRequest{
		Query:      query,
		Limit:      limit,
		Threshold:  threshold,
		ProjectIDs: projectIDs,
	}

	resp, err := api.Post("/search", req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	var searchResp SearchResponse
	if err := json.Unmarshal(resp.Data, &searchResp); err != nil {
		return fmt.Errorf("failed to parse search results: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(searchResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(searchResp.Results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results:\n\n", searchResp.Count)
	for i, result := range searchResp.Results {
		fmt.Printf("%d. %s (%.2f)\n", i+1, result.Title, result.Similarity)
		fmt.Printf("   Recipe: %s  Version: %s\n", result.RecipeID, result.VersionID)
		if i < len(searchResp.Results)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}

	return nil
}
