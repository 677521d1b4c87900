package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hkogrunt/grunt/constants/lipgloss"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// resetCacheCmd represents the reset-cache command
var resetCacheCmd = &cobra.Command{
	Use:   "reset-cache",
	Short: "Reset the digest cache used by scan-duplicates",
	Long: `The 'reset-cache' command removes the cached file digests kept in
METAVERSE_LIBRARY/.cache. Digests are recomputed on the next duplicate scan.
With --older-than only entries older than the given age are removed.`,
	Run: func(cmd *cobra.Command, args []string) {
		force, _ := cmd.Flags().GetBool("force")
		stats, _ := cmd.Flags().GetBool("stats")
		olderThan, _ := cmd.Flags().GetDuration("older-than")

		handleResetCacheCommand(cmd, force, stats, olderThan)
	},
}

func init() {
	resetCacheCmd.Flags().BoolP("force", "f", false, "Force cache reset without confirmation")
	resetCacheCmd.Flags().BoolP("stats", "s", false, "Show cache statistics instead of resetting")
	resetCacheCmd.Flags().Duration("older-than", 0, "Only remove entries older than this age, e.g. 720h")

	rootCmd.AddCommand(resetCacheCmd)
}

func handleResetCacheCommand(cmd *cobra.Command, force bool, showStats bool, olderThan time.Duration) {
	rootDependencies := handleRootCommand(cmd)

	if rootDependencies.Cache == nil {
		fmt.Println(lipgloss.Yellow.Render("Cache is disabled. No cache to reset."))
		return
	}

	if showStats {
		fmt.Println(lipgloss.Info.Render("Cache Statistics:"))
		cacheStats, err := rootDependencies.Cache.GetCacheStats()
		if err != nil {
			fmt.Println(lipgloss.Yellow.Render(fmt.Sprintf("Warning: Could not show statistics: %v", err)))
			return
		}
		if dir, ok := cacheStats["cache_dir"].(string); ok {
			fmt.Printf("  Cache Directory: %s\n", dir)
		}
		if files, ok := cacheStats["cache_files"].(int); ok {
			fmt.Printf("  Cached Digests: %d\n", files)
		}
		if size, ok := cacheStats["total_size"].(int64); ok {
			fmt.Printf("  Total Size: %s\n", humanize.IBytes(uint64(size)))
		}
		return
	}

	if !force && !confirm(os.Stdin, os.Stdout, "Are you sure you want to reset the digest cache?") {
		fmt.Println(lipgloss.Yellow.Render("Cache reset cancelled."))
		return
	}

	spinner := pterm.DefaultSpinner.WithStyle(pterm.NewStyle(pterm.FgCyan)).
		WithSequence("⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏").
		WithDelay(100 * time.Millisecond).WithRemoveWhenDone(true)

	spinnerInstance, _ := spinner.Start("Resetting digest cache...")

	var removed int
	var err error
	if olderThan > 0 {
		removed, err = rootDependencies.Cache.CleanExpiredCache(olderThan)
	} else {
		removed, err = rootDependencies.Cache.ClearCache()
	}

	_ = spinnerInstance.Stop()
	fmt.Print("\r")
	if err != nil {
		rootDependencies.Logger.Error("Failed to reset digest cache: %v", err)
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Error resetting cache: %v", err)))
		return
	}

	rootDependencies.Logger.System("Digest cache reset: %d entries removed", removed)
	fmt.Println(lipgloss.Green.Render(fmt.Sprintf("✓ Removed %d cached digests.", removed)))
}
