//go:build integration

package integration_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/slashkit-labs/slashkit/internal/command"
	"github.com/slashkit-labs/slashkit/internal/extension"
	"github.com/slashkit-labs/slashkit/internal/trust"
)

// testEnv is a fully wired application over isolated temp directories.
type testEnv struct {
	Root    string // extensions store root
	Sources string // where test fixtures live, marked trusted
	Manager *extension.Manager
	Service *command.Service
}

// setupTestEnv wires a store, lifecycle manager, and command service the
// same way the CLI does, sandboxed under temp directories.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		Root:    filepath.Join(t.TempDir(), "extensions"),
		Sources: t.TempDir(),
	}

	store := extension.NewStore(env.Root)
	store.Load()

	var svc *command.Service
	builtin := command.NewBuiltinLoader(func() *command.Snapshot { return svc.Snapshot() })

	env.Manager = extension.NewManager(store,
		extension.WithTrustOracle(trust.NewFolderOracle([]string{env.Sources})),
		extension.WithRefresh(func() { svc.Refresh() }),
	)

	svc = command.NewService(
		builtin,
		command.NewExtensionLoader(env.Manager.Extensions),
	)
	env.Service = svc
	return env
}

// restartEnv rebuilds the full wiring over an existing store root, as a
// process restart would, and performs the startup command reload.
func restartEnv(t *testing.T, old *testEnv) *testEnv {
	t.Helper()

	env := &testEnv{Root: old.Root, Sources: old.Sources}

	store := extension.NewStore(env.Root)
	var svc *command.Service
	builtin := command.NewBuiltinLoader(func() *command.Snapshot { return svc.Snapshot() })

	env.Manager = extension.NewManager(store,
		extension.WithTrustOracle(trust.NewFolderOracle([]string{env.Sources})),
		extension.WithRefresh(func() { svc.Refresh() }),
	)
	svc = command.NewService(
		builtin,
		command.NewExtensionLoader(env.Manager.Extensions),
	)
	env.Service = svc

	if issues := env.Manager.Load(); len(issues) != 0 {
		t.Fatalf("restart load issues: %v", issues)
	}
	if _, err := svc.Reload(context.Background()); err != nil {
		t.Fatalf("restart reload: %v", err)
	}
	return env
}

func localRef(src string) extension.SourceRef {
	return extension.SourceRef{Type: extension.SourceLocal, Source: src}
}

// writeSource lays out an extension source directory under env.Sources.
func (env *testEnv) writeSource(t *testing.T, dir, manifestYAML string, files map[string]string) string {
	t.Helper()

	src := filepath.Join(env.Sources, dir)
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "extension.yaml"), []byte(manifestYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	for rel, content := range files {
		path := filepath.Join(src, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return src
}

func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected %s to exist: %v", path, err)
	}
}

func assertNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected %s to be absent", path)
	}
}
