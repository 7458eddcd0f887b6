package command

import "strings"

// Prefix introduces a command in raw shell input.
const Prefix = "/"

// Resolution is the outcome of resolving raw input against a snapshot.
// Command is nil when even the first token matched nothing; Args then
// carries the whole input after the prefix, whitespace-collapsed.
type Resolution struct {
	Command *SlashCommand
	// Path is the canonical name path from the root to Command.
	Path []string
	// Args is the unconsumed remainder of the input, trimmed.
	Args string
}

// Resolve matches raw input against the snapshot's command tree. The
// first token is resolved against the top-level lookup by name or alias;
// subsequent tokens descend into sub-command lookups until a token fails
// to match, a command has no sub-commands, or input ends. The deepest
// resolved command wins and the remaining tokens become the argument
// string.
func (s *Snapshot) Resolve(input string) Resolution {
	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, Prefix) {
		return Resolution{}
	}
	tokens := strings.Fields(trimmed[len(Prefix):])
	if len(tokens) == 0 {
		return Resolution{}
	}

	entry, ok := s.lookup[tokens[0]]
	if !ok {
		return Resolution{Args: strings.Join(tokens, " ")}
	}

	current := entry.Command
	path := append([]string(nil), entry.Path...)
	consumed := 1
	for consumed < len(tokens) {
		kids, ok := s.children[current]
		if !ok {
			break
		}
		next, ok := kids[tokens[consumed]]
		if !ok {
			break
		}
		current = next
		path = append(path, next.Name)
		consumed++
	}

	return Resolution{
		Command: current,
		Path:    path,
		Args:    strings.Join(tokens[consumed:], " "),
	}
}
