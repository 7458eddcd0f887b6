package command

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/slashkit-labs/slashkit/internal/manifest"
)

// FileLoader reads user-defined commands from YAML files in a single
// directory. Each .yaml file declares one top-level command; the file
// base name is the command name unless the declaration overrides it.
type FileLoader struct {
	dir string
}

// NewFileLoader creates a loader over the user commands directory. A
// missing directory yields no commands rather than an error.
func NewFileLoader(dir string) *FileLoader {
	return &FileLoader{dir: dir}
}

func (l *FileLoader) LoadCommands(ctx context.Context) ([]*SlashCommand, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading commands directory: %w", err)
	}

	var cmds []*SlashCommand
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".yaml") {
			continue
		}

		decl, err := l.parseFile(filepath.Join(l.dir, name))
		if err != nil {
			return nil, err
		}
		if decl.Name == "" {
			decl.Name = strings.TrimSuffix(name, ".yaml")
		}
		cmds = append(cmds, fromDecl(*decl, KindFile, "", l.dir))
	}
	return cmds, nil
}

func (l *FileLoader) parseFile(path string) (*manifest.CommandDecl, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading command file: %w", err)
	}
	var decl manifest.CommandDecl
	if err := yaml.Unmarshal(data, &decl); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return &decl, nil
}
