package command

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// BuiltinLoader supplies the host's own command table. It is always the
// first loader so built-ins keep naming priority over everything else.
type BuiltinLoader struct {
	// snapshot provides the current published snapshot for commands that
	// introspect the command surface, such as help.
	snapshot func() *Snapshot

	mu    sync.Mutex
	notes []string
}

// NewBuiltinLoader creates the built-in table. snapshot may be nil when
// introspective commands are not needed, as in some tests.
func NewBuiltinLoader(snapshot func() *Snapshot) *BuiltinLoader {
	if snapshot == nil {
		snapshot = func() *Snapshot { return emptySnapshot }
	}
	return &BuiltinLoader{snapshot: snapshot}
}

func (b *BuiltinLoader) LoadCommands(ctx context.Context) ([]*SlashCommand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []*SlashCommand{
		{
			Name:        "help",
			Description: "List available commands",
			Kind:        KindBuiltin,
			AltNames:    []string{"?"},
			Action:      b.helpAction,
		},
		{
			Name:        "memory",
			Description: "Manage session memory",
			Kind:        KindBuiltin,
			AltNames:    []string{"mem"},
			SubCommands: []*SlashCommand{
				{
					Name:        "add",
					Description: "Append a note to session memory",
					Kind:        KindBuiltin,
					Action:      b.memoryAdd,
				},
				{
					Name:        "show",
					Description: "Print session memory",
					Kind:        KindBuiltin,
					Action:      b.memoryShow,
				},
			},
		},
	}, nil
}

func (b *BuiltinLoader) helpAction(ctx context.Context, inv *Invocation) error {
	snap := b.snapshot()
	cmds := snap.Commands()
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })

	for _, c := range cmds {
		line := Prefix + c.Name
		if len(c.AltNames) > 0 {
			line += " (" + strings.Join(c.AltNames, ", ") + ")"
		}
		if c.Description != "" {
			line += "  " + c.Description
		}
		if _, err := fmt.Fprintln(inv.Out, line); err != nil {
			return err
		}
	}
	return nil
}

func (b *BuiltinLoader) memoryAdd(ctx context.Context, inv *Invocation) error {
	text := strings.TrimSpace(inv.Args)
	if text == "" {
		return fmt.Errorf("memory add: nothing to remember")
	}
	b.mu.Lock()
	b.notes = append(b.notes, text)
	n := len(b.notes)
	b.mu.Unlock()

	_, err := fmt.Fprintf(inv.Out, "Remembered (%d notes)\n", n)
	return err
}

func (b *BuiltinLoader) memoryShow(ctx context.Context, inv *Invocation) error {
	b.mu.Lock()
	notes := append([]string(nil), b.notes...)
	b.mu.Unlock()

	if len(notes) == 0 {
		_, err := fmt.Fprintln(inv.Out, "Session memory is empty")
		return err
	}
	for i, note := range notes {
		if _, err := fmt.Fprintf(inv.Out, "%d. %s\n", i+1, note); err != nil {
			return err
		}
	}
	return nil
}
