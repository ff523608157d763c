package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// Project represents a project from the API.
type Project struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// ProjectCmd creates the project command group.
func ProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
		Long:  "Create, list and delete projects that group recipes.",
	}

	cmd.AddCommand(projectCreateCmd())
	cmd.AddCommand(projectListCmd())
	cmd.AddCommand(projectDeleteCmd())

	return cmd
}

func projectCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runProjectCreate(cmd, args[0], outputJSON)
		},
	}
}

func runProjectCreate(cmd *cobra.Command, name string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/projects", map[string]string{"name": name})
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	var project Project
	if err := json.Unmarshal(resp.Data, &project); err != nil {
		return fmt.Errorf("failed to parse project: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(project, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("Created project '%s' (id: %s)\n", project.Name, project.ID)
	}

	return nil
}

func projectListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runProjectList(cmd, outputJSON)
		},
	}
}

func runProjectList(cmd *cobra.Command, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/projects")
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}

	var projects []Project
	if err := json.Unmarshal(resp.Data, &projects); err != nil {
		return fmt.Errorf("failed to parse projects: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(projects, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(projects) == 0 {
		fmt.Println("No projects found.")
		return nil
	}

	for _, p := range projects {
		fmt.Printf("%s  %s\n", p.ID, p.Name)
	}

	return nil
}

func projectDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <project_id>",
		Short: "Delete a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectDelete(cmd, args[0])
		},
	}
}

func runProjectDelete(cmd *cobra.Command, id string) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	if _, err := api.Delete(fmt.Sprintf("/projects/%s", id)); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	fmt.Printf("Deleted project %s\n", id)
	return nil
}
