package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/slashkit-labs/slashkit/internal/command"
)

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "Show the aggregated slash-command surface",
	RunE:  runCommands,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <input>",
	Short: "Show how raw input resolves against the command tree",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runResolve,
}

var execCmd = &cobra.Command{
	Use:   "exec <input>",
	Short: "Resolve raw input and run the matched command",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runExec,
}

func init() {
	commandsCmd.AddCommand(resolveCmd)
	commandsCmd.AddCommand(execCmd)
	rootCmd.AddCommand(commandsCmd)
}

// loadedService builds the app and performs the initial command reload.
func loadedService(cmd *cobra.Command) (*command.Service, error) {
	a, err := newApp(cmd.ErrOrStderr(), false)
	if err != nil {
		return nil, err
	}
	if _, err := a.service.Reload(cmd.Context()); err != nil {
		return nil, fmt.Errorf("loading commands: %w", err)
	}
	for _, issue := range a.service.Issues() {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", issue)
	}
	return a.service, nil
}

func runCommands(cmd *cobra.Command, args []string) error {
	svc, err := loadedService(cmd)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "COMMAND\tKIND\tALIASES\tDESCRIPTION")
	for _, c := range svc.Commands() {
		printCommand(w, c, "")
	}
	return w.Flush()
}

func printCommand(w *tabwriter.Writer, c *command.SlashCommand, indent string) {
	fmt.Fprintf(w, "%s%s%s\t%s\t%s\t%s\n",
		indent, command.Prefix, c.Name, c.Kind, strings.Join(c.AltNames, ", "), c.Description)
	for _, sub := range c.SubCommands {
		printCommand(w, sub, indent+"  ")
	}
}

func runResolve(cmd *cobra.Command, args []string) error {
	svc, err := loadedService(cmd)
	if err != nil {
		return err
	}

	res := svc.Resolve(strings.Join(args, " "))
	if res.Command == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "no command matched; args: %q\n", res.Args)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "command: %s\npath:    %s\nargs:    %q\n",
		res.Command.Name, strings.Join(res.Path, " "), res.Args)
	return nil
}

func runExec(cmd *cobra.Command, args []string) error {
	svc, err := loadedService(cmd)
	if err != nil {
		return err
	}

	input := strings.Join(args, " ")
	res := svc.Resolve(input)
	if res.Command == nil {
		return fmt.Errorf("no command matches %q", input)
	}
	if res.Command.Action == nil {
		return fmt.Errorf("%s%s has no action; try one of its sub-commands",
			command.Prefix, strings.Join(res.Path, " "))
	}
	return res.Command.Action(cmd.Context(), &command.Invocation{
		Args: res.Args,
		Out:  cmd.OutOrStdout(),
	})
}
