package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/hkogrunt/grunt/config"
	"github.com/hkogrunt/grunt/constants/lipgloss"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or write the configuration",
}

func init() {
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps := handleRootCommand(cmd)
			data, err := json.MarshalIndent(deps.Config, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(lipgloss.Gray.Render("# " + deps.ConfigPath))
			fmt.Println(string(data))
			return nil
		},
	})
	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration, keeping unknown keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps := handleRootCommand(cmd)
			if err := config.Save(deps.ConfigPath, deps.Config); err != nil {
				return err
			}
			deps.Logger.System("Configuration written to %s", deps.ConfigPath)
			fmt.Println(lipgloss.Green.Render("✓ Wrote " + deps.ConfigPath))
			return nil
		},
	})
	rootCmd.AddCommand(configCmd)
}
