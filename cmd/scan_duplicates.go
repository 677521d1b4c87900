package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/hkogrunt/grunt/constants/lipgloss"
	"github.com/hkogrunt/grunt/duplicates"
	"github.com/hkogrunt/grunt/models"
	"github.com/spf13/cobra"
)

var scanDuplicatesCmd = &cobra.Command{
	Use:   "scan-duplicates [folders...]",
	Short: "Find files with identical content",
	Long: `The 'scan-duplicates' command walks the given folders (by default the
folders selected by scan_mode) and reports groups of files with identical
content. Only files sharing a size are hashed. With --quarantine every copy
except the oldest is moved into the quarantine folder, from where it can be
restored.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return handleScanDuplicatesCommand(cmd, args)
	},
}

func init() {
	scanDuplicatesCmd.Flags().Bool("quarantine", false, "Move every duplicate except the original into the quarantine")
	scanDuplicatesCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	scanDuplicatesCmd.Flags().Bool("reset-cache", false, "Clear cached digests before scanning")
	scanDuplicatesCmd.Flags().Int("limit", 20, "Number of groups listed (0 lists all)")
	rootCmd.AddCommand(scanDuplicatesCmd)
}

func handleScanDuplicatesCommand(cmd *cobra.Command, args []string) error {
	deps := handleRootCommand(cmd)
	ctx := cmd.Context()

	resetCache, _ := cmd.Flags().GetBool("reset-cache")
	moveToQuarantine, _ := cmd.Flags().GetBool("quarantine")
	assumeYes, _ := cmd.Flags().GetBool("yes")
	limit, _ := cmd.Flags().GetInt("limit")

	if resetCache && deps.Cache != nil {
		removed, err := deps.Cache.ClearCache()
		if err != nil {
			return fmt.Errorf("failed to reset digest cache: %w", err)
		}
		deps.Logger.System("Digest cache cleared (%d entries)", removed)
	}

	detector := &duplicates.Detector{
		Hasher:  deps.Hasher,
		Logger:  deps.Logger,
		MinSize: deps.Config.MinSizeBytes(),
		Exclude: []string{deps.Layout.Root, deps.Config.Quarantine},
	}
	if deps.Cache != nil {
		detector.Cache = deps.Cache
	}

	roots := deps.scanRoots(args)
	deps.Logger.Info("Duplicate scan of %v (%s, min %d KB)", roots, deps.Hasher.Algorithm(), deps.Config.MinFileSizeKB)

	result, err := runOperation(ctx, deps, models.OpScanDuplicates, "Hashing candidates",
		func(ctx context.Context, progress models.ProgressFunc) (any, error) {
			detector.OnProgress = progress
			return detector.Find(ctx, roots)
		})
	if err != nil {
		return err
	}
	scan := result.(*models.DuplicateScan)

	if scan.Status == models.StatusCancelled {
		deps.Logger.Warning("Duplicate scan cancelled")
		fmt.Println(lipgloss.Yellow.Render("Duplicate scan cancelled; no results."))
		return nil
	}

	printDuplicateScan(scan, limit)
	deps.Logger.Info("Duplicate scan: %d files, %d groups, %d bytes reclaimable", scan.FilesScanned, len(scan.Groups), scan.Reclaimable())

	if !moveToQuarantine || len(scan.Groups) == 0 {
		return nil
	}

	duplicateCount := 0
	for _, g := range scan.Groups {
		duplicateCount += len(g.Duplicates())
	}
	question := fmt.Sprintf("Move %d duplicates to %s?", duplicateCount, deps.Config.Quarantine)
	if !assumeYes && !confirm(os.Stdin, os.Stdout, question) {
		fmt.Println(lipgloss.Yellow.Render("Nothing was moved."))
		return nil
	}

	result, err = runOperation(ctx, deps, models.OpQuarantineDuplicates, "Quarantining duplicates",
		func(ctx context.Context, progress models.ProgressFunc) (any, error) {
			detector.OnProgress = progress
			return detector.QuarantineDuplicates(ctx, scan.Groups, deps.Quarantine), nil
		})
	if err != nil {
		return err
	}
	fmt.Println(renderSummary("Quarantine duplicates", result.(*models.OperationReport)))
	return nil
}

func printDuplicateScan(scan *models.DuplicateScan, limit int) {
	if len(scan.Groups) == 0 {
		fmt.Println(lipgloss.Green.Render(fmt.Sprintf("No duplicates among %d files.", scan.FilesScanned)))
		return
	}

	groups := scan.Groups
	if limit > 0 && len(groups) > limit {
		groups = groups[:limit]
	}

	rows := make([][]string, 0, len(groups))
	for i, g := range groups {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			humanize.IBytes(uint64(g.Size)),
			strconv.Itoa(len(g.Members)),
			g.Original().Path,
			humanize.IBytes(uint64(g.Reclaimable())),
		})
	}
	fmt.Println(renderTable(
		[]string{"#", "Size", "Copies", "Original (kept)", "Reclaimable"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignLeft, alignRight},
	))
	if len(groups) < len(scan.Groups) {
		fmt.Println(lipgloss.Gray.Render(fmt.Sprintf("... %d more groups (use --limit 0 to list all)", len(scan.Groups)-len(groups))))
	}

	summary := fmt.Sprintf("%d files scanned, %d hashed, %d unreadable\n%d duplicate groups, %s reclaimable",
		scan.FilesScanned, scan.FilesHashed, scan.Unreadable, len(scan.Groups), humanize.IBytes(uint64(scan.Reclaimable())))
	fmt.Println(lipgloss.BoxStyle.Render(summary))
}
