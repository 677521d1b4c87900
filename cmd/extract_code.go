package cmd

import (
	"context"
	"fmt"

	"github.com/hkogrunt/grunt/constants/lipgloss"
	"github.com/hkogrunt/grunt/models"
	"github.com/spf13/cobra"
)

var extractCodeCmd = &cobra.Command{
	Use:   "extract-code <folder>",
	Short: "Copy source code files into the code repository",
	Long: `The 'extract-code' command copies every file whose extension is listed in
code_extensions from <folder> into METAVERSE_LIBRARY/Code_Repository, keeping
the relative folder structure. Directories such as .git and node_modules and
patterns from a .gruntignore file at the folder root are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps := handleRootCommand(cmd)
		dest, _ := cmd.Flags().GetString("dest")
		if dest == "" {
			dest = deps.Layout.CodeRepository
		}

		result, err := runOperation(cmd.Context(), deps, models.OpExtractCode, "Extracting code",
			func(ctx context.Context, progress models.ProgressFunc) (any, error) {
				deps.Analyzer.OnProgress = progress
				return deps.Analyzer.Extract(ctx, args[0], dest, deps.Config.CodeExtensions)
			})
		if err != nil {
			return err
		}

		report := result.(*models.OperationReport)
		deps.Logger.Info("Code extraction %s: %d succeeded, %d failed, %d skipped", report.Status, report.Succeeded, report.Failed, report.Skipped)
		fmt.Println(renderSummary("Extract code", report))
		if report.Succeeded > 0 {
			fmt.Println(lipgloss.Gray.Render("Repository: " + dest))
		}
		return nil
	},
}

func init() {
	extractCodeCmd.Flags().String("dest", "", "Destination repository (default METAVERSE_LIBRARY/Code_Repository)")
	rootCmd.AddCommand(extractCodeCmd)
}
