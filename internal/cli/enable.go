package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var enableCmd = &cobra.Command{
	Use:   "enable <name>",
	Short: "Enable an installed extension's commands",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEnabled(cmd, args[0], true)
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable <name>",
	Short: "Disable an extension without uninstalling it",
	Long: `Disabled extensions stay installed but contribute no commands until
re-enabled.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEnabled(cmd, args[0], false)
	},
}

func init() {
	rootCmd.AddCommand(enableCmd)
	rootCmd.AddCommand(disableCmd)
}

func setEnabled(cmd *cobra.Command, name string, enabled bool) error {
	a, err := newApp(cmd.ErrOrStderr(), false)
	if err != nil {
		return err
	}
	if err := a.manager.SetEnabled(name, enabled); err != nil {
		return err
	}
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s %s\n", name, state)
	return nil
}
