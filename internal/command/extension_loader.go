package command

import (
	"context"

	"github.com/slashkit-labs/slashkit/internal/extension"
)

// ExtensionLoader derives commands from the currently installed, enabled
// extensions. It reads through a provider function instead of holding
// the lifecycle manager itself, so the command layer stays decoupled
// from lifecycle orchestration.
type ExtensionLoader struct {
	extensions func() []extension.Extension
}

// NewExtensionLoader creates a loader over an extensions provider,
// typically Manager.Extensions.
func NewExtensionLoader(provider func() []extension.Extension) *ExtensionLoader {
	return &ExtensionLoader{extensions: provider}
}

func (l *ExtensionLoader) LoadCommands(ctx context.Context) ([]*SlashCommand, error) {
	var cmds []*SlashCommand
	for _, ext := range l.extensions() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !ext.Enabled || ext.Config == nil {
			continue
		}
		for _, decl := range ext.Config.Commands {
			cmds = append(cmds, fromDecl(decl, KindExtension, ext.Name, ext.InstalledPath))
		}
	}
	return cmds, nil
}
