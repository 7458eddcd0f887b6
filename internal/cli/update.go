package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	updateType   string
	updateRef    string
	updateSHA256 string
	updateYes    bool
)

var updateCmd = &cobra.Command{
	Use:   "update <source>",
	Short: "Update an installed extension, or install it if absent",
	Long: `Acquire the extension from its source again and replace the installed
version. The previous version is kept until the new content validates;
a failed update leaves the old version installed and untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().StringVar(&updateType, "type", "", "Source type: local, git, or release")
	updateCmd.Flags().StringVar(&updateRef, "ref", "", "Git branch, tag, or commit to check out")
	updateCmd.Flags().StringVar(&updateSHA256, "sha256", "", "Expected SHA-256 of a release archive")
	updateCmd.Flags().BoolVarP(&updateYes, "yes", "y", false, "Skip confirmation prompts")
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ref, err := sourceRef(args[0], updateType, updateRef, updateSHA256)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.ErrOrStderr(), !updateYes)
	if err != nil {
		return err
	}

	ext, err := a.manager.InstallOrUpdate(cmd.Context(), ref, nil)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s is now at %s\n", ext.Name, ext.Version)
	return nil
}
