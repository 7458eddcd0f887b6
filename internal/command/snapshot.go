package command

import (
	"sort"
	"strconv"
	"strings"
)

// Entry is a lookup hit: the owning command plus the canonical path of
// names from the root to it.
type Entry struct {
	Command *SlashCommand
	Path    []string
}

// Snapshot is an immutable, fully built view of the aggregated command
// set. It is replaced atomically by the service; readers never observe a
// snapshot under construction.
type Snapshot struct {
	commands []*SlashCommand
	// lookup maps every name and alias at every depth, keyed by the
	// space-joined canonical path with the final segment replaced by the
	// name or alias in question.
	lookup map[string]Entry
	// children indexes each node's sub-commands by name and alias for
	// O(1) descent during resolution. Keys are node pointers, which is
	// safe because every snapshot owns a freshly cloned tree.
	children map[*SlashCommand]map[string]*SlashCommand
}

// emptySnapshot backs queries issued before the first reload completes.
var emptySnapshot = &Snapshot{
	lookup:   map[string]Entry{},
	children: map[*SlashCommand]map[string]*SlashCommand{},
}

// Commands returns the snapshot's deduplicated top-level commands.
func (s *Snapshot) Commands() []*SlashCommand {
	out := make([]*SlashCommand, len(s.commands))
	copy(out, s.commands)
	return out
}

// Lookup returns the entry for a name, alias, or space-joined path.
func (s *Snapshot) Lookup(key string) (Entry, bool) {
	e, ok := s.lookup[key]
	return e, ok
}

// Names returns every top-level primary name, sorted.
func (s *Snapshot) Names() []string {
	names := make([]string, 0, len(s.commands))
	for _, c := range s.commands {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return names
}

// buildSnapshot merges loader outputs, in loader order, into a frozen
// snapshot. Collision policy: non-extension commands are never renamed
// and a later one replaces an earlier command of the same name; an
// extension-provided command whose name or alias is already taken is
// renamed to extensionName.name, then extensionName.name1, and so on,
// dropping its aliases.
func buildSnapshot(loaded [][]*SlashCommand) *Snapshot {
	var order []string
	byName := make(map[string]*SlashCommand)
	taken := make(map[string]bool)

	for _, cmds := range loaded {
		for _, cmd := range cmds {
			c := cmd.Clone()

			if c.Kind == KindExtension && collides(c, taken) {
				c.Name = renamed(c, taken)
				c.AltNames = nil
			}

			if prev, ok := byName[c.Name]; ok {
				releaseAliases(prev, taken)
				byName[c.Name] = c
			} else {
				byName[c.Name] = c
				order = append(order, c.Name)
				taken[c.Name] = true
			}

			kept := c.AltNames[:0]
			for _, alias := range c.AltNames {
				if taken[alias] {
					continue
				}
				taken[alias] = true
				kept = append(kept, alias)
			}
			c.AltNames = kept
		}
	}

	snap := &Snapshot{
		commands: make([]*SlashCommand, 0, len(order)),
		lookup:   make(map[string]Entry),
		children: make(map[*SlashCommand]map[string]*SlashCommand),
	}
	for _, name := range order {
		snap.commands = append(snap.commands, byName[name])
	}
	for _, c := range snap.commands {
		snap.index(c, nil)
	}
	return snap
}

// collides reports whether the command's name or any alias is taken.
func collides(c *SlashCommand, taken map[string]bool) bool {
	if taken[c.Name] {
		return true
	}
	for _, alias := range c.AltNames {
		if taken[alias] {
			return true
		}
	}
	return false
}

// renamed picks the first unused extensionName.name variant.
func renamed(c *SlashCommand, taken map[string]bool) string {
	base := c.ExtensionName + "." + c.Name
	candidate := base
	for i := 1; taken[candidate]; i++ {
		candidate = base + strconv.Itoa(i)
	}
	return candidate
}

// releaseAliases frees a replaced command's aliases for reuse.
func releaseAliases(c *SlashCommand, taken map[string]bool) {
	for _, alias := range c.AltNames {
		delete(taken, alias)
	}
}

// index registers a node and its subtree in the lookup and child maps.
func (s *Snapshot) index(c *SlashCommand, parentPath []string) {
	path := append(append([]string(nil), parentPath...), c.Name)
	entry := Entry{Command: c, Path: path}

	s.lookup[joinPath(parentPath, c.Name)] = entry
	for _, alias := range c.AltNames {
		s.lookup[joinPath(parentPath, alias)] = entry
	}

	if len(c.SubCommands) == 0 {
		return
	}
	kids := make(map[string]*SlashCommand, len(c.SubCommands))
	for _, sub := range c.SubCommands {
		if _, ok := kids[sub.Name]; !ok {
			kids[sub.Name] = sub
		}
		for _, alias := range sub.AltNames {
			if _, ok := kids[alias]; !ok {
				kids[alias] = sub
			}
		}
	}
	s.children[c] = kids
	for _, sub := range c.SubCommands {
		s.index(sub, path)
	}
}

func joinPath(parentPath []string, name string) string {
	if len(parentPath) == 0 {
		return name
	}
	return strings.Join(parentPath, " ") + " " + name
}
