package command

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/slashkit-labs/slashkit/internal/manifest"
)

// argsPlaceholder marks where the argument text is spliced into a
// declared prompt. Prompts without it get the arguments appended.
const argsPlaceholder = "{{args}}"

// fromDecl converts a manifest command declaration into a SlashCommand.
// baseDir anchors file-backed prompts; extName tags extension origin and
// is empty for file-defined commands.
func fromDecl(decl manifest.CommandDecl, kind Kind, extName, baseDir string) *SlashCommand {
	cmd := &SlashCommand{
		Name:          decl.Name,
		Description:   decl.Description,
		Kind:          kind,
		AltNames:      append([]string(nil), decl.AltNames...),
		ExtensionName: extName,
	}

	switch {
	case decl.Prompt != "":
		cmd.Action = promptAction(decl.Prompt)
	case decl.File != "":
		cmd.Action = fileAction(filepath.Join(baseDir, decl.File))
	}

	for _, sub := range decl.SubCommands {
		cmd.SubCommands = append(cmd.SubCommands, fromDecl(sub, kind, extName, baseDir))
	}
	return cmd
}

// promptAction expands a declared prompt with the invocation arguments
// and writes it out for the shell to hand to the model.
func promptAction(prompt string) Action {
	return func(ctx context.Context, inv *Invocation) error {
		_, err := fmt.Fprintln(inv.Out, expandPrompt(prompt, inv.Args))
		return err
	}
}

// fileAction reads the prompt from disk at invocation time, so an
// updated extension takes effect without re-publishing the command.
func fileAction(path string) Action {
	return func(ctx context.Context, inv *Invocation) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading command prompt: %w", err)
		}
		_, err = fmt.Fprintln(inv.Out, expandPrompt(string(data), inv.Args))
		return err
	}
}

func expandPrompt(prompt, args string) string {
	prompt = strings.TrimRight(prompt, "\n")
	if strings.Contains(prompt, argsPlaceholder) {
		return strings.ReplaceAll(prompt, argsPlaceholder, args)
	}
	if args == "" {
		return prompt
	}
	return prompt + "\n\n" + args
}
