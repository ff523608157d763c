package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// Recipe represents a recipe from the API.
type Recipe struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id,omitempty"`
	ShortID   string `json:"short_id"`
	Title     string `json:"title"`
	PhotoKey  string `json:"photo_key,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// RecipeVersion represents a recipe version from the API.
type RecipeVersion struct {
	ID            string `json:"id"`
	RecipeID      string `json:"recipe_id"`
	VersionNumber int64  `json:"version_number"`
	Title         string `json:"title"`
	BodyMD        string `json:"body_md"`
	CreatedAt     string `json:"created_at"`
}

// ListRecipesResponse represents the recipe list API response.
type ListRecipesResponse struct {
	Items   []Recipe `json:"items"`
	Cursor  string   `json:"cursor,omitempty"`
	HasMore bool     `json:"has_more"`
}

// AddCmd creates the add command.
func AddCmd() *cobra.Command {
	var (
		projectID string
		bodyFile  string
	)

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a recipe",
		Long:  "Creates a recipe with an initial version. The body is read from --file or stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAdd(cmd, args[0], projectID, bodyFile, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project to add the recipe to")
	cmd.Flags().StringVarP(&bodyFile, "file", "f", "", "Markdown file with the recipe body (default: stdin)")

	return cmd
}

func runAdd(cmd *cobra.Command, title, projectID, bodyFile string, outputJSON bool) error {
	body, err := readBody(bodyFile)
	if err != nil {
		return err
	}

	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/recipes", map[string]string{
		"project_id": projectID,
		"title":      title,
		"body_md":    body,
	})
	if err != nil {
		return fmt.Errorf("failed to add recipe: %w", err)
	}

	var recipe Recipe
	if err := json.Unmarshal(resp.Data, &recipe); err != nil {
		return fmt.Errorf("failed to parse recipe: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(recipe, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("Added recipe '%s' (id: %s)\n", recipe.Title, recipe.ID)
	}

	return nil
}

func readBody(bodyFile string) (string, error) {
	if bodyFile != "" {
		content, err := os.ReadFile(bodyFile)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", bodyFile, err)
		}
		return string(content), nil
	}

	content, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(content), nil
}

// GetCmd creates the get command.
func GetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "get <recipe_id>",
		Short:   "Get a recipe by ID",
		Long:    "Retrieves a recipe and its latest version body.",
		Aliases: []string{"view"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runGet(cmd, args[0], outputJSON)
		},
	}
}

func runGet(cmd *cobra.Command, recipeID string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get(fmt.Sprintf("/recipes/%s", recipeID))
	if err != nil {
		return fmt.Errorf("failed to get recipe: %w", err)
	}

	var recipe Recipe
	if err := json.Unmarshal(resp.Data, &recipe); err != nil {
		return fmt.Errorf("failed to parse recipe: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(recipe, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Title: %s\n", recipe.Title)
	if recipe.ProjectID != "" {
		fmt.Printf("Project: %s\n", recipe.ProjectID)
	}
	fmt.Printf("Created: %s\n", recipe.CreatedAt)
	fmt.Printf("Updated: %s\n", recipe.UpdatedAt)

	versions, err := fetchVersions(api, recipeID)
	if err == nil && len(versions) > 0 {
		fmt.Println()
		fmt.Println("--- Content ---")
		fmt.Println(versions[0].BodyMD)
	}

	return nil
}

// ListCmd creates the list command.
func ListCmd() *cobra.Command {
	var (
		projectID string
		limit     int
		cursor    string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recipes",
		Long:  "Lists recipes with cursor pagination, newest first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runList(cmd, projectID, limit, cursor, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Filter by project ID")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func runList(cmd *cobra.Command, projectID string, limit int, cursor string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	params := url.Values{}
	if projectID != "" {
		params.Set("project_id", projectID)
	}
	if limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	path := "/recipes"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	resp, err := api.Get(path)
	if err != nil {
		return fmt.Errorf("failed to list recipes: %w", err)
	}

	var listResp ListRecipesResponse
	if err := json.Unmarshal(resp.Data, &listResp); err != nil {
		return fmt.Errorf("failed to parse recipes: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(listResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(listResp.Items) == 0 {
		fmt.Println("No recipes found.")
		return nil
	}

	for _, recipe := range listResp.Items {
		fmt.Printf("%s  %s\n", recipe.ID, recipe.Title)
	}
	if listResp.HasMore && listResp.Cursor != "" {
		fmt.Printf("\nMore results available. Use --cursor %s\n", listResp.Cursor)
	}

	return nil
}

// DeleteCmd creates the delete command.
func DeleteCmd() *cobra.Command {
	var versionID string

	cmd := &cobra.Command{
		Use:   "delete <recipe_id>",
		Short: "Delete a recipe",
		Long:  "Soft deletes a recipe and removes it from search. With --version, deletes only that version.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd, args[0], versionID)
		},
	}

	cmd.Flags().StringVar(&versionID, "version", "", "Delete a single version instead of the whole recipe")

	return cmd
}

func runDelete(cmd *cobra.Command, recipeID, versionID string) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	if versionID != "" {
		if _, err := api.Delete(fmt.Sprintf("/versions/%s", versionID)); err != nil {
			return fmt.Errorf("failed to delete version: %w", err)
		}
		fmt.Printf("Deleted version %s\n", versionID)
		return nil
	}

	if _, err := api.Delete(fmt.Sprintf("/recipes/%s", recipeID)); err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}

	fmt.Printf("Deleted recipe %s\n", recipeID)
	return nil
}

// VersionsCmd creates the versions command.
func VersionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "versions <recipe_id>",
		Short: "List versions of a recipe",
		Long:  "Lists the version history of a recipe, newest first.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runVersions(cmd, args[0], outputJSON)
		},
	}
}

func runVersions(cmd *cobra.Command, recipeID string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	versions, err := fetchVersions(api, recipeID)
	if err != nil {
		return err
	}

	if outputJSON {
		output, _ := json.MarshalIndent(versions, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(versions) == 0 {
		fmt.Println("No versions found.")
		return nil
	}

	for i, v := range versions {
		fmt.Printf("v%d  %s  %s\n", v.VersionNumber, v.ID, v.Title)
		if i < len(versions)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}

	return nil
}

func fetchVersions(api *APIClient, recipeID string) ([]RecipeVersion, error) {
	resp, err := api.Get(fmt.Sprintf("/recipes/%s/versions", recipeID))
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}

	var versions []RecipeVersion
	if err := json.Unmarshal(resp.Data, &versions); err != nil {
		return nil, fmt.Errorf("failed to parse versions: %w", err)
	}
	return versions, nil
}
