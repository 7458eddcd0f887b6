package command

import (
	"context"
	"io"
)

// Kind identifies where a command came from. Conflict precedence follows
// loader order, with extension-provided commands renamed rather than
// dropped on collision.
type Kind string

const (
	KindBuiltin   Kind = "built-in"
	KindFile      Kind = "file"
	KindExtension Kind = "extension"
)

// Invocation carries the runtime inputs of a command action.
type Invocation struct {
	// Args is the unconsumed argument text after command resolution.
	Args string
	// Out receives the command's output.
	Out io.Writer
}

// Action is the behavior invoked when a resolved command runs.
type Action func(ctx context.Context, inv *Invocation) error

// SlashCommand is a single entry in the aggregated command surface.
// Commands are immutable once published in a snapshot; a reload builds a
// fresh tree instead of mutating published commands.
type SlashCommand struct {
	Name        string
	Description string
	Kind        Kind
	// AltNames are aliases resolving to the same command.
	AltNames []string
	// ExtensionName tags extension-provided commands with their origin.
	// Empty for built-in and file-defined commands.
	ExtensionName string
	// SubCommands form a nested tree resolved token by token.
	SubCommands []*SlashCommand
	Action      Action
}

// Clone returns a deep copy of the command tree. Actions are shared; they
// are stateless closures from the command's point of view.
func (c *SlashCommand) Clone() *SlashCommand {
	if c == nil {
		return nil
	}
	out := *c
	if c.AltNames != nil {
		out.AltNames = append([]string(nil), c.AltNames...)
	}
	if c.SubCommands != nil {
		out.SubCommands = make([]*SlashCommand, len(c.SubCommands))
		for i, sub := range c.SubCommands {
			out.SubCommands[i] = sub.Clone()
		}
	}
	return &out
}

// Loader is an asynchronous, independently failing source of commands.
// Implementations must honor ctx and return a cancellation-flavored error
// when interrupted.
type Loader interface {
	LoadCommands(ctx context.Context) ([]*SlashCommand, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context) ([]*SlashCommand, error)

func (f LoaderFunc) LoadCommands(ctx context.Context) ([]*SlashCommand, error) {
	return f(ctx)
}
