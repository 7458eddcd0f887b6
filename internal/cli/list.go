package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed extensions",
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(listCmd)
}

// listEntry represents an installed extension for display.
type listEntry struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Enabled  bool   `json:"enabled"`
	Source   string `json:"source,omitempty"`
	Commands int    `json:"commands"`
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.ErrOrStderr(), false)
	if err != nil {
		return err
	}

	exts := a.manager.Extensions()
	if len(exts) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No extensions installed yet (store: %s).\n", a.cfg.ExtensionsRoot())
		return nil
	}

	entries := make([]listEntry, 0, len(exts))
	for _, ext := range exts {
		entry := listEntry{
			Name:    ext.Name,
			Version: ext.Version,
			Enabled: ext.Enabled,
			Source:  ext.Source.String(),
		}
		if ext.Config != nil {
			entry.Commands = len(ext.Config.Commands)
		}
		entries = append(entries, entry)
	}

	if listJSON {
		out, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling extension list: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tVERSION\tSTATUS\tCOMMANDS\tSOURCE")
	for _, e := range entries {
		status := "enabled"
		if !e.Enabled {
			status = "disabled"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", e.Name, e.Version, status, e.Commands, e.Source)
	}
	return w.Flush()
}
