package cmd

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/hkogrunt/grunt/constants/lipgloss"
	"github.com/hkogrunt/grunt/models"
	"github.com/spf13/cobra"
)

var aiPrepCmd = &cobra.Command{
	Use:   "ai-prep <folder>",
	Short: "Bundle source code into one text file for an AI assistant",
	Long: `The 'ai-prep' command concatenates every code file under <folder> into
METAVERSE_LIBRARY/AI_PREP_<timestamp>.txt, each preceded by a header naming
the file and its language. With --mode outline only the declarations of each
file (functions, classes, methods, types) are written.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps := handleRootCommand(cmd)

		modeFlag, _ := cmd.Flags().GetString("mode")
		mode, ok := models.ParsePrepMode(modeFlag)
		if !ok {
			return fmt.Errorf("invalid --mode %q: use full or outline", modeFlag)
		}
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = deps.Layout.Library
		}

		result, err := runOperation(cmd.Context(), deps, models.OpAIPrep, "Preparing AI bundle",
			func(ctx context.Context, progress models.ProgressFunc) (any, error) {
				deps.Analyzer.OnProgress = progress
				return deps.Analyzer.PrepareForAI(ctx, args[0], out, deps.Config.CodeExtensions, mode)
			})
		if err != nil {
			return err
		}

		prep := result.(*models.AIPrepResult)
		if prep.Status == models.StatusCancelled {
			fmt.Println(lipgloss.Yellow.Render("AI prep cancelled; nothing was written."))
			return nil
		}
		fmt.Println(lipgloss.BoxStyle.Render(fmt.Sprintf("%d files (%d skipped), %s\n%s",
			prep.Files, prep.Skipped, humanize.Bytes(uint64(prep.Bytes)), prep.Path)))
		return nil
	},
}

func init() {
	aiPrepCmd.Flags().String("mode", string(models.PrepFull), "full or outline")
	aiPrepCmd.Flags().String("out", "", "Output folder (default METAVERSE_LIBRARY)")
	rootCmd.AddCommand(aiPrepCmd)
}
