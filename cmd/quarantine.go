package cmd

import (
	"errors"
	"fmt"

	"github.com/hkogrunt/grunt/constants/lipgloss"
	"github.com/hkogrunt/grunt/quarantine"
	"github.com/spf13/cobra"
)

var quarantineCmd = &cobra.Command{
	Use:   "quarantine",
	Short: "List or restore quarantined files and folders",
}

var quarantineListCmd = &cobra.Command{
	Use:   "list",
	Short: "List quarantined entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps := handleRootCommand(cmd)
		entries, err := deps.Quarantine.List()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println(lipgloss.Green.Render("The quarantine is empty."))
			return nil
		}

		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			kind := "file"
			if e.IsDir {
				kind = "folder"
			}
			rows = append(rows, []string{e.ID, e.Timestamp.Format("2006-01-02 15:04"), kind, e.From, e.Reason})
		}
		fmt.Println(renderTable([]string{"ID", "When", "Type", "Original path", "Reason"}, rows, nil))
		return nil
	},
}

var quarantineRestoreCmd = &cobra.Command{
	Use:   "restore <id>...",
	Short: "Move quarantined entries back to where they came from",
	Long: `The 'quarantine restore' command moves entries back to their original
path. An entry is not restored when something already exists at that path.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps := handleRootCommand(cmd)
		failed := 0
		for _, id := range args {
			entry, err := deps.Quarantine.Restore(id)
			switch {
			case err == nil:
				deps.Logger.Info("Restored %s", entry.From)
				fmt.Println(lipgloss.Green.Render("✓ Restored " + entry.From))
			case errors.Is(err, quarantine.ErrOccupied):
				failed++
				deps.Logger.Warning("Not restoring %s: %v", id, err)
				fmt.Println(lipgloss.Yellow.Render(err.Error()))
			default:
				failed++
				deps.Logger.Error("Failed to restore %s: %v", id, err)
				fmt.Println(lipgloss.Red.Render(err.Error()))
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d entries were not restored", failed, len(args))
		}
		return nil
	},
}

func init() {
	quarantineCmd.AddCommand(quarantineListCmd, quarantineRestoreCmd)
	rootCmd.AddCommand(quarantineCmd)
}
