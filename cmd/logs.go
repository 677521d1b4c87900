package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/hkogrunt/grunt/constants/lipgloss"
	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Inspect or rotate the activity log",
}

func init() {
	logsCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the path of the active log file",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(handleRootCommand(cmd).Logger.Path())
		},
	})
	rotateCmd := &cobra.Command{
		Use:   "rotate",
		Short: "Start a new log file once the current one has reached log_max_size_mb",
		Long: `The 'logs rotate' command renames the active log with a timestamp suffix
and starts a fresh file when it has reached the configured size. Use --force to
rotate regardless of size.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps := handleRootCommand(cmd)
			force, _ := cmd.Flags().GetBool("force")
			if force {
				if err := deps.Logger.Rotate(); err != nil {
					return err
				}
				fmt.Println(lipgloss.Green.Render("✓ Log rotated."))
				return nil
			}

			rotated, err := deps.Logger.RotateIfNeeded()
			if err != nil {
				return err
			}
			if rotated {
				fmt.Println(lipgloss.Green.Render("✓ Log rotated."))
				return nil
			}
			size, limit := deps.Logger.Size()
			fmt.Println(lipgloss.Gray.Render(fmt.Sprintf("Log is %s of %s; not rotated (use --force).",
				humanize.IBytes(uint64(size)), humanize.IBytes(uint64(limit)))))
			return nil
		},
	}
	rotateCmd.Flags().Bool("force", false, "Rotate even when the log is below the size threshold")
	logsCmd.AddCommand(rotateCmd)
	rootCmd.AddCommand(logsCmd)
}
