package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hkogrunt/grunt/constants/lipgloss"
	"github.com/hkogrunt/grunt/models"
	"github.com/hkogrunt/grunt/schema"
	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Keep the Desktop limited to the authorized folders",
	Long: `The 'schema' commands work on the authorized_folders list of the
configuration. 'init' creates the folders, 'check' lists folders that are
missing or not authorized, and 'clean' moves unauthorized folders into the
quarantine.`,
}

func init() {
	schemaCmd.PersistentFlags().String("base", "", "Folder the schema applies to (default ~/Desktop)")

	schemaCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the authorized folders",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps := handleRootCommand(cmd)
			created, err := newSchema(cmd, deps).Init()
			if err != nil {
				return err
			}
			fmt.Println(lipgloss.Green.Render(fmt.Sprintf("✓ Created %d folders.", len(created))))
			return nil
		},
	})

	schemaCmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "List missing and unauthorized folders",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps := handleRootCommand(cmd)
			s := newSchema(cmd, deps)
			unauthorized, err := s.Unauthorized()
			if err != nil {
				return err
			}
			var rows [][]string
			for _, p := range s.Missing() {
				rows = append(rows, []string{"missing", p})
			}
			for _, p := range unauthorized {
				rows = append(rows, []string{"unauthorized", p})
			}
			if len(rows) == 0 {
				fmt.Println(lipgloss.Green.Render("The folder structure matches the schema."))
				return nil
			}
			fmt.Println(renderTable([]string{"State", "Folder"}, rows, nil))
			return nil
		},
	})

	cleanCmd := &cobra.Command{
		Use:   "clean",
		Short: "Move unauthorized folders into the quarantine",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps := handleRootCommand(cmd)
			s := newSchema(cmd, deps)
			unauthorized, err := s.Unauthorized()
			if err != nil {
				return err
			}
			if len(unauthorized) == 0 {
				fmt.Println(lipgloss.Green.Render("No unauthorized folders."))
				return nil
			}
			for _, p := range unauthorized {
				fmt.Println("  " + p)
			}
			assumeYes, _ := cmd.Flags().GetBool("yes")
			question := fmt.Sprintf("Move %d folders to %s?", len(unauthorized), deps.Config.Quarantine)
			if !assumeYes && !confirm(os.Stdin, os.Stdout, question) {
				fmt.Println(lipgloss.Yellow.Render("Nothing was moved."))
				return nil
			}

			result, err := runOperation(cmd.Context(), deps, models.OpSchemaClean, "Cleaning",
				func(ctx context.Context, progress models.ProgressFunc) (any, error) {
					return s.Clean(ctx, deps.Quarantine, progress)
				})
			if err != nil {
				return err
			}
			fmt.Println(renderSummary("Schema clean", result.(*models.OperationReport)))
			return nil
		},
	}
	cleanCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	schemaCmd.AddCommand(cleanCmd)

	rootCmd.AddCommand(schemaCmd)
}

func newSchema(cmd *cobra.Command, deps *RootDependencies) *schema.Schema {
	base, _ := cmd.Flags().GetString("base")
	if base == "" {
		base = filepath.Join(deps.Home, "Desktop")
	}
	folders := make([]schema.Folder, 0, len(deps.Config.AuthorizedFolders))
	for _, f := range deps.Config.AuthorizedFolders {
		folders = append(folders, schema.Folder{Name: f.Name, Subfolders: f.Subfolders})
	}
	return &schema.Schema{
		Base:    base,
		Folders: folders,
		Exclude: []string{deps.Layout.Root, deps.Config.Quarantine},
		Logger:  deps.Logger,
	}
}
