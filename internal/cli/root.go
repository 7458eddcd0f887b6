package cli

import (
	"github.com/spf13/cobra"

	"github.com/slashkit-labs/slashkit/internal/branding"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` manages the extensions of an interactive CLI agent and the
slash-command surface they contribute: install, update, enable/disable,
and uninstall extensions from local directories, git repositories, or
release archives, and inspect the aggregated command set.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	return rootCmd.Execute()
}
