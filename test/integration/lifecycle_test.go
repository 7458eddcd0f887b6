//go:build integration

package integration_test

import (
	"context"
	"path/filepath"
	"testing"
)

// TestExtensionLifecycle walks the full flow: install -> commands appear
// -> failed update rolls back -> successful update -> disable/enable ->
// uninstall, verifying disk and the command surface at every step.
func TestExtensionLifecycle(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	srcV1 := env.writeSource(t, "greeter-v1", `name: greeter
version: 1.0.0
commands:
  - name: greet
    description: Say hello
    prompt: "Hello, {{args}}!"
  - name: help
    prompt: "greeter help"
`, map[string]string{"v1.txt": "one"})

	// Step 1: install v1 and confirm disk plus command surface.
	ext, err := env.Manager.Install(ctx, localRef(srcV1), nil)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if ext.Version != "1.0.0" {
		t.Fatalf("version = %q, want 1.0.0", ext.Version)
	}
	assertFileExists(t, filepath.Join(env.Root, "greeter", "v1.txt"))

	res := env.Service.Resolve("/greet world")
	if res.Command == nil || res.Command.ExtensionName != "greeter" {
		t.Fatalf("resolve /greet = %+v, want the greeter command", res)
	}
	if res.Args != "world" {
		t.Errorf("args = %q, want world", res.Args)
	}

	// The colliding help command is renamed; the built-in keeps the name.
	snap := env.Service.Snapshot()
	if entry, ok := snap.Lookup("help"); !ok || entry.Command.ExtensionName != "" {
		t.Error("built-in help lost its name to an extension")
	}
	if _, ok := snap.Lookup("greeter.help"); !ok {
		t.Errorf("names = %v, want greeter.help", snap.Names())
	}

	// Step 2: an update whose new content fails validation must reject
	// and leave v1 fully intact.
	srcBroken := env.writeSource(t, "greeter-broken", `name: greeter
version: not-a-version
`, map[string]string{"v2.txt": "two"})

	if _, err := env.Manager.InstallOrUpdate(ctx, localRef(srcBroken), nil); err == nil {
		t.Fatal("update with invalid manifest should fail")
	}
	assertFileExists(t, filepath.Join(env.Root, "greeter", "v1.txt"))
	assertNotExists(t, filepath.Join(env.Root, "greeter", "v2.txt"))
	if ext, _ := env.Manager.Store().Get("greeter"); ext.Version != "1.0.0" {
		t.Fatalf("version after failed update = %q, want 1.0.0", ext.Version)
	}

	// Step 3: a valid update replaces the payload wholesale.
	srcV2 := env.writeSource(t, "greeter-v2", `name: greeter
version: 2.0.0
commands:
  - name: greet
    prompt: "Howdy, {{args}}!"
`, map[string]string{"v2.txt": "two"})

	updated, err := env.Manager.InstallOrUpdate(ctx, localRef(srcV2), nil)
	if err != nil {
		t.Fatalf("InstallOrUpdate: %v", err)
	}
	if updated.Version != "2.0.0" {
		t.Fatalf("version = %q, want 2.0.0", updated.Version)
	}
	assertFileExists(t, filepath.Join(env.Root, "greeter", "v2.txt"))
	assertNotExists(t, filepath.Join(env.Root, "greeter", "v1.txt"))

	// Step 4: disabling removes the commands but keeps the files.
	if err := env.Manager.SetEnabled("greeter", false); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}
	if res := env.Service.Resolve("/greet again"); res.Command != nil {
		t.Error("disabled extension still contributes commands")
	}
	assertFileExists(t, filepath.Join(env.Root, "greeter", "v2.txt"))

	if err := env.Manager.SetEnabled("greeter", true); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}
	if res := env.Service.Resolve("/greet again"); res.Command == nil {
		t.Error("re-enabled extension contributes no commands")
	}

	// Step 5: uninstall clears disk, record, and command surface.
	if err := env.Manager.Uninstall("greeter"); err != nil {
		t.Fatalf("Uninstall: %v", err)
	}
	assertNotExists(t, filepath.Join(env.Root, "greeter"))
	if res := env.Service.Resolve("/greet gone"); res.Command != nil {
		t.Error("uninstalled extension still contributes commands")
	}
	if exts := env.Manager.Extensions(); len(exts) != 0 {
		t.Errorf("Extensions() = %v, want empty", exts)
	}
}

// TestDisabledStateSurvivesRestart re-wires a fresh environment over the
// same store root and checks the persisted flag is honored.
func TestDisabledStateSurvivesRestart(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	src := env.writeSource(t, "sticky", `name: sticky
version: 1.0.0
commands:
  - name: stick
    prompt: stuck
`, nil)

	if _, err := env.Manager.Install(ctx, localRef(src), nil); err != nil {
		t.Fatal(err)
	}
	if err := env.Manager.SetEnabled("sticky", false); err != nil {
		t.Fatal(err)
	}

	restarted := restartEnv(t, env)
	ext, ok := restarted.Manager.Store().Get("sticky")
	if !ok {
		t.Fatal("extension missing after restart")
	}
	if ext.Enabled {
		t.Error("disabled flag lost across restart")
	}
	if res := restarted.Service.Resolve("/stick"); res.Command != nil {
		t.Error("disabled extension resolved after restart")
	}
}
