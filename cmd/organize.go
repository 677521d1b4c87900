package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hkogrunt/grunt/constants/lipgloss"
	"github.com/hkogrunt/grunt/models"
	"github.com/hkogrunt/grunt/organizer"
	"github.com/spf13/cobra"
)

var organizeCmd = &cobra.Command{
	Use:   "organize [folders...]",
	Short: "Sort files into category folders",
	Long: `The 'organize' command classifies every file of the given folders (by
default the folders selected by scan_mode) and shows where each category
would go. Nothing is touched until --execute is given. Files are copied by
default; --mode move moves them. Existing files are never overwritten: a
taken name gets a _1, _2, ... suffix.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return handleOrganizeCommand(cmd, args)
	},
}

func init() {
	organizeCmd.Flags().Bool("execute", false, "Apply the plan instead of only previewing it")
	organizeCmd.Flags().StringP("mode", "m", string(models.ModeCopy), "copy or move")
	organizeCmd.Flags().StringSlice("categories", nil, "Only organize these categories (default enabled_categories)")
	organizeCmd.Flags().Bool("details", false, "List every planned file")
	organizeCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	rootCmd.AddCommand(organizeCmd)
}

func handleOrganizeCommand(cmd *cobra.Command, args []string) error {
	deps := handleRootCommand(cmd)
	ctx := cmd.Context()

	execute, _ := cmd.Flags().GetBool("execute")
	details, _ := cmd.Flags().GetBool("details")
	assumeYes, _ := cmd.Flags().GetBool("yes")
	modeFlag, _ := cmd.Flags().GetString("mode")
	mode, ok := models.ParseMode(strings.ToLower(modeFlag))
	if !ok {
		return fmt.Errorf("invalid --mode %q: use copy or move", modeFlag)
	}

	enabled := deps.Config.Enabled()
	if names, _ := cmd.Flags().GetStringSlice("categories"); len(names) > 0 {
		enabled = nil
		for _, name := range names {
			c, ok := models.ParseCategory(name)
			if !ok {
				return fmt.Errorf("unknown category %q", name)
			}
			enabled = append(enabled, c)
		}
	}

	org := &organizer.Organizer{
		Classifier: deps.Classifier,
		OutputDir:  deps.Layout.Organized,
		DeepScan:   deps.Config.DeepScan,
		Exclude:    []string{deps.Layout.Root, deps.Config.Quarantine},
		Logger:     deps.Logger,
	}

	roots := deps.scanRoots(args)
	result, err := runOperation(ctx, deps, models.OpOrganizePreview, "Classifying",
		func(ctx context.Context, progress models.ProgressFunc) (any, error) {
			return org.Preview(ctx, roots, enabled)
		})
	if err != nil {
		return err
	}
	plan := result.(*models.OrganizePlan)
	if plan.Status == models.StatusCancelled {
		fmt.Println(lipgloss.Yellow.Render("Preview cancelled."))
		return nil
	}

	printPlan(plan, details)
	if len(plan.Entries) == 0 {
		return nil
	}
	if !execute {
		fmt.Println(lipgloss.Gray.Render("Preview only. Run again with --execute to apply."))
		return nil
	}

	verb := "Copy"
	if mode == models.ModeMove {
		verb = "Move"
	}
	question := fmt.Sprintf("%s %d files into %s?", verb, len(plan.Entries), deps.Layout.Organized)
	if !assumeYes && !confirm(os.Stdin, os.Stdout, question) {
		fmt.Println(lipgloss.Yellow.Render("Nothing was changed."))
		return nil
	}

	result, err = runOperation(ctx, deps, models.OpOrganize, "Organizing",
		func(ctx context.Context, progress models.ProgressFunc) (any, error) {
			org.OnProgress = progress
			return org.Execute(ctx, plan, mode), nil
		})
	if err != nil {
		return err
	}
	report := result.(*models.OperationReport)
	deps.Logger.Info("Organize %s: %d succeeded, %d failed, %d skipped", report.Status, report.Succeeded, report.Failed, report.Skipped)
	fmt.Println(renderSummary("Organize", report))
	return nil
}

func printPlan(plan *models.OrganizePlan, details bool) {
	if len(plan.Entries) == 0 {
		fmt.Println(lipgloss.Green.Render("Nothing to organize."))
		return
	}

	if details {
		rows := make([][]string, 0, len(plan.Entries))
		for _, e := range plan.Entries {
			rows = append(rows, []string{e.Source, e.Destination, e.Reason})
		}
		fmt.Println(renderTable([]string{"Source", "Destination", "Reason"}, rows, nil))
	}

	counts := plan.CountByCategory()
	var rows [][]string
	for _, c := range models.AllCategories {
		if n := counts[c]; n > 0 {
			rows = append(rows, []string{string(c), strconv.Itoa(n)})
		}
	}
	rows = append(rows, []string{"Total", strconv.Itoa(len(plan.Entries))})
	fmt.Println(renderTable([]string{"Category", "Files"}, rows, []columnAlignment{alignLeft, alignRight}))
}
