package extension

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStoreLoad_ScansValidExtensions(t *testing.T) {
	root := t.TempDir()
	writeExtensionDir(t, filepath.Join(root, "alpha"), "alpha", "1.0.0", nil)
	writeExtensionDir(t, filepath.Join(root, "beta"), "beta", "2.1.0", nil)

	s := NewStore(root)
	issues := s.Load()
	if len(issues) != 0 {
		t.Fatalf("issues = %v, want none", issues)
	}

	exts := s.List()
	if len(exts) != 2 {
		t.Fatalf("len(List()) = %d, want 2", len(exts))
	}
	if exts[0].Name != "alpha" || exts[1].Name != "beta" {
		t.Errorf("List() order = %s, %s, want alpha, beta", exts[0].Name, exts[1].Name)
	}
	if !exts[0].Enabled {
		t.Error("freshly scanned extensions should default to enabled")
	}
}

func TestStoreLoad_SkipsBrokenDirectories(t *testing.T) {
	root := t.TempDir()
	writeExtensionDir(t, filepath.Join(root, "good"), "good", "1.0.0", nil)

	// Directory without a manifest.
	if err := os.MkdirAll(filepath.Join(root, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}
	// Manifest whose name does not match the directory.
	writeExtensionDir(t, filepath.Join(root, "mismatch"), "other", "1.0.0", nil)
	// Malformed version.
	writeExtensionDir(t, filepath.Join(root, "badver"), "badver", "not-semver", nil)

	s := NewStore(root)
	issues := s.Load()
	if len(issues) != 3 {
		t.Fatalf("len(issues) = %d (%v), want 3", len(issues), issues)
	}

	exts := s.List()
	if len(exts) != 1 || exts[0].Name != "good" {
		t.Errorf("List() = %v, want only 'good'", exts)
	}
}

func TestStoreLoad_IgnoresDotDirectories(t *testing.T) {
	root := t.TempDir()
	writeExtensionDir(t, filepath.Join(root, "live"), "live", "1.0.0", nil)
	writeExtensionDir(t, filepath.Join(root, ".bak-live"), "live", "0.9.0", nil)
	writeExtensionDir(t, filepath.Join(root, ".staging"), "stage", "0.0.1", nil)

	s := NewStore(root)
	s.Load()

	exts := s.List()
	if len(exts) != 1 || exts[0].Version != "1.0.0" {
		t.Errorf("List() = %v, want only live@1.0.0", exts)
	}
}

func TestStore_DisabledFlagPersists(t *testing.T) {
	root := t.TempDir()
	writeExtensionDir(t, filepath.Join(root, "togglable"), "togglable", "1.0.0", nil)

	s := NewStore(root)
	s.Load()
	if err := s.setEnabled("togglable", false); err != nil {
		t.Fatalf("setEnabled: %v", err)
	}

	// A fresh store over the same root must observe the flag.
	s2 := NewStore(root)
	s2.Load()
	ext, ok := s2.Get("togglable")
	if !ok {
		t.Fatal("extension missing after reload")
	}
	if ext.Enabled {
		t.Error("disabled flag did not survive reload")
	}

	if err := s2.setEnabled("togglable", true); err != nil {
		t.Fatalf("setEnabled: %v", err)
	}
	s3 := NewStore(root)
	s3.Load()
	if ext, _ := s3.Get("togglable"); !ext.Enabled {
		t.Error("re-enabled flag did not survive reload")
	}
}

func TestStore_SetEnabledUnknownName(t *testing.T) {
	s := NewStore(t.TempDir())
	s.Load()

	err := s.setEnabled("ghost", false)
	if _, ok := err.(*NotFoundError); !ok {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
}

func TestStore_ListReturnsCopies(t *testing.T) {
	root := t.TempDir()
	writeExtensionDir(t, filepath.Join(root, "immutable"), "immutable", "1.0.0", nil)

	s := NewStore(root)
	s.Load()

	exts := s.List()
	exts[0].Version = "tampered"

	fresh, _ := s.Get("immutable")
	if fresh.Version != "1.0.0" {
		t.Error("List() exposed internal state to mutation")
	}
}

// blockStateWrite plants a directory where saveStateLocked writes its
// temp file, so the next state save fails.
func blockStateWrite(t *testing.T, root string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(root, StateFileName+".tmp"), 0o755); err != nil {
		t.Fatal(err)
	}
}

// A record becomes visible only once its state is on disk. When the
// state write fails, the in-memory mirror must not diverge from disk.
func TestStore_PutRollsBackOnSaveFailure(t *testing.T) {
	root := t.TempDir()
	writeExtensionDir(t, filepath.Join(root, "old"), "old", "1.0.0", nil)

	s := NewStore(root)
	s.Load()
	blockStateWrite(t, root)

	err := s.put(&Extension{Name: "fresh", Version: "1.0.0", Enabled: true})
	if err == nil {
		t.Fatal("put succeeded despite the state write failing")
	}
	if _, ok := s.Get("fresh"); ok {
		t.Error("failed put left an in-memory record")
	}
	if exts := s.List(); len(exts) != 1 || exts[0].Name != "old" {
		t.Errorf("List() = %v, want only the pre-existing 'old'", exts)
	}
}

func TestStore_PutRestoresPriorRecordOnSaveFailure(t *testing.T) {
	root := t.TempDir()
	writeExtensionDir(t, filepath.Join(root, "keep"), "keep", "1.0.0", nil)

	s := NewStore(root)
	s.Load()
	blockStateWrite(t, root)

	updated, _ := s.Get("keep")
	updated.Version = "2.0.0"
	updated.Settings = map[string]any{"theme": "dark"}
	if err := s.put(&updated); err == nil {
		t.Fatal("put succeeded despite the state write failing")
	}

	ext, ok := s.Get("keep")
	if !ok {
		t.Fatal("prior record lost after failed put")
	}
	if ext.Version != "1.0.0" {
		t.Errorf("Version = %q, want the prior 1.0.0", ext.Version)
	}
	if ext.Settings != nil {
		t.Errorf("Settings = %v, want the prior nil", ext.Settings)
	}
}

func TestStore_SetEnabledRollsBackOnSaveFailure(t *testing.T) {
	root := t.TempDir()
	writeExtensionDir(t, filepath.Join(root, "stay"), "stay", "1.0.0", nil)

	s := NewStore(root)
	s.Load()
	blockStateWrite(t, root)

	if err := s.setEnabled("stay", false); err == nil {
		t.Fatal("setEnabled succeeded despite the state write failing")
	}
	ext, _ := s.Get("stay")
	if !ext.Enabled {
		t.Error("failed disable flipped the in-memory flag")
	}
}

// An unscannable root must yield an empty list, not the previous scan's.
func TestStoreLoad_UnscannableRootClearsList(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "extensions")
	writeExtensionDir(t, filepath.Join(root, "stale"), "stale", "1.0.0", nil)

	s := NewStore(root)
	if issues := s.Load(); len(issues) != 0 {
		t.Fatalf("first Load issues = %v, want none", issues)
	}
	if len(s.List()) != 1 {
		t.Fatal("first Load did not pick up the extension")
	}

	// Replace the root with a plain file so the rescan cannot read it.
	if err := os.RemoveAll(root); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(root, []byte("not a directory"), 0o644); err != nil {
		t.Fatal(err)
	}

	issues := s.Load()
	if len(issues) != 1 {
		t.Fatalf("issues = %v, want the root scan failure", issues)
	}
	if exts := s.List(); len(exts) != 0 {
		t.Errorf("List() = %v, want empty after failed rescan", exts)
	}
}

func TestStore_SettingsPersist(t *testing.T) {
	root := t.TempDir()
	writeExtensionDir(t, filepath.Join(root, "cfg"), "cfg", "1.0.0", nil)

	s := NewStore(root)
	s.Load()
	ext, _ := s.Get("cfg")
	ext.Settings = map[string]any{"region": "eu-west-1"}
	if err := s.put(&ext); err != nil {
		t.Fatalf("put: %v", err)
	}

	s2 := NewStore(root)
	s2.Load()
	reloaded, _ := s2.Get("cfg")
	if reloaded.Settings["region"] != "eu-west-1" {
		t.Errorf("Settings = %v, want region eu-west-1", reloaded.Settings)
	}
}
