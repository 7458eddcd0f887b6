package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/slashkit-labs/slashkit/internal/extension"
)

var (
	installType   string
	installRef    string
	installSHA256 string
	installYes    bool
)

var installCmd = &cobra.Command{
	Use:   "install <source>",
	Short: "Install an extension",
	Long: `Install an extension from a local directory, a git repository, or a
release archive URL. The source type is detected from the source string
unless --type is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runInstall,
}

func init() {
	installCmd.Flags().StringVar(&installType, "type", "", "Source type: local, git, or release")
	installCmd.Flags().StringVar(&installRef, "ref", "", "Git branch, tag, or commit to check out")
	installCmd.Flags().StringVar(&installSHA256, "sha256", "", "Expected SHA-256 of a release archive")
	installCmd.Flags().BoolVarP(&installYes, "yes", "y", false, "Skip confirmation prompts")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	ref, err := sourceRef(args[0], installType, installRef, installSHA256)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.ErrOrStderr(), !installYes)
	if err != nil {
		return err
	}

	ext, err := a.manager.Install(cmd.Context(), ref, nil)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Installed %s %s\n", ext.Name, ext.Version)
	if ext.Config != nil && len(ext.Config.Commands) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "  %d command(s) contributed.\n", len(ext.Config.Commands))
	}
	return nil
}

// sourceRef builds a source descriptor, detecting the type when not
// explicitly given.
func sourceRef(source, explicitType, gitRef, sha256 string) (extension.SourceRef, error) {
	t := extension.SourceType(explicitType)
	if explicitType == "" {
		t = detectSourceType(source)
	}
	switch t {
	case extension.SourceLocal, extension.SourceGit, extension.SourceRelease:
	default:
		return extension.SourceRef{}, fmt.Errorf("unknown source type %q (want local, git, or release)", explicitType)
	}
	return extension.SourceRef{Type: t, Source: source, Ref: gitRef, SHA256: sha256}, nil
}

func detectSourceType(source string) extension.SourceType {
	if info, err := os.Stat(source); err == nil && info.IsDir() {
		return extension.SourceLocal
	}
	lower := strings.ToLower(source)
	for _, suffix := range []string{".tar.gz", ".tgz", ".zip"} {
		if strings.HasSuffix(lower, suffix) {
			return extension.SourceRelease
		}
	}
	if strings.HasPrefix(source, "git@") || strings.HasSuffix(lower, ".git") ||
		strings.HasPrefix(lower, "git://") || strings.HasPrefix(lower, "ssh://") {
		return extension.SourceGit
	}
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return extension.SourceGit
	}
	return extension.SourceLocal
}
