package extension

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"

	"github.com/slashkit-labs/slashkit/internal/manifest"
)

// StateFileName is the store-level state file holding flags that live
// outside any single extension directory.
const StateFileName = "state.yaml"

// backupPrefix marks sibling directories that hold the previous version
// of an extension during an update transaction. They are never listed as
// installed extensions.
const backupPrefix = ".bak-"

// storeState is the persisted shape of state.yaml.
type storeState struct {
	Disabled []string                  `yaml:"disabled,omitempty"`
	Settings map[string]map[string]any `yaml:"settings,omitempty"`
	Sources  map[string]SourceRef      `yaml:"sources,omitempty"`
}

// LoadIssue reports a store subdirectory that could not be loaded as an
// extension. Issues are not fatal to a scan.
type LoadIssue struct {
	Dir string
	Err error
}

// Store is the on-disk extension store plus its in-memory mirror.
// All mutation goes through the lifecycle manager; readers always get
// copies of the current list.
type Store struct {
	root string

	mu   sync.RWMutex
	exts map[string]*Extension

	disabled map[string]bool
	settings map[string]map[string]any
	sources  map[string]SourceRef
}

// NewStore creates a store rooted at root. Call Load to populate it from
// disk.
func NewStore(root string) *Store {
	return &Store{
		root:     root,
		exts:     make(map[string]*Extension),
		disabled: make(map[string]bool),
		settings: make(map[string]map[string]any),
		sources:  make(map[string]SourceRef),
	}
}

// Root returns the extensions root directory.
func (s *Store) Root() string { return s.root }

// Dir returns the canonical installed path for an extension name.
func (s *Store) Dir(name string) string {
	return filepath.Join(s.root, name)
}

// Load scans the store root and rebuilds the in-memory list from disk.
// Subdirectories that fail to load are skipped and reported individually.
func (s *Store) Load() []LoadIssue {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadStateLocked()

	exts := make(map[string]*Extension)
	var issues []LoadIssue

	entries, err := os.ReadDir(s.root)
	if err != nil {
		// An unscannable root yields an empty list, never a stale one.
		s.exts = exts
		if os.IsNotExist(err) {
			return nil
		}
		return []LoadIssue{{Dir: s.root, Err: err}}
	}

	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		dir := filepath.Join(s.root, name)

		m, err := loadExtensionDir(dir)
		if err != nil {
			issues = append(issues, LoadIssue{Dir: dir, Err: err})
			continue
		}
		if m.Name != name {
			issues = append(issues, LoadIssue{Dir: dir,
				Err: fmt.Errorf("manifest name %q does not match directory %q", m.Name, name)})
			continue
		}

		exts[m.Name] = &Extension{
			Name:          m.Name,
			Version:       m.Version,
			Source:        s.sources[m.Name],
			InstalledPath: dir,
			Config:        m,
			Settings:      s.settings[m.Name],
			Enabled:       !s.disabled[m.Name],
		}
	}

	s.exts = exts
	return issues
}

// loadExtensionDir parses and structurally checks a manifest in dir. This
// is the load step performed at startup and re-run to validate freshly
// installed content.
func loadExtensionDir(dir string) (*manifest.Manifest, error) {
	m, err := manifest.ParseDir(dir)
	if err != nil {
		return nil, err
	}
	if err := m.Check(); err != nil {
		return nil, err
	}
	return m, nil
}

// List returns a snapshot of installed extensions, sorted by name.
func (s *Store) List() []Extension {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Extension, 0, len(s.exts))
	for _, ext := range s.exts {
		out = append(out, *ext)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Get returns a copy of the named extension.
func (s *Store) Get(name string) (Extension, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ext, ok := s.exts[name]
	if !ok {
		return Extension{}, false
	}
	return *ext, true
}

// put records an extension and persists its per-name state. The record
// becomes visible only if the state write succeeds; a failed write
// restores the previous in-memory state so readers never see a record
// that disk does not back.
func (s *Store) put(ext *Extension) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevExt, hadExt := s.exts[ext.Name]
	prevSettings, hadSettings := s.settings[ext.Name]
	prevSource, hadSource := s.sources[ext.Name]
	prevDisabled := s.disabled[ext.Name]

	s.exts[ext.Name] = ext
	if ext.Settings != nil {
		s.settings[ext.Name] = ext.Settings
	} else {
		delete(s.settings, ext.Name)
	}
	s.sources[ext.Name] = ext.Source
	if ext.Enabled {
		delete(s.disabled, ext.Name)
	} else {
		s.disabled[ext.Name] = true
	}

	if err := s.saveStateLocked(); err != nil {
		restoreEntry(s.exts, ext.Name, prevExt, hadExt)
		restoreEntry(s.settings, ext.Name, prevSettings, hadSettings)
		restoreEntry(s.sources, ext.Name, prevSource, hadSource)
		restoreEntry(s.disabled, ext.Name, prevDisabled, prevDisabled)
		return err
	}
	return nil
}

// restoreEntry puts a map entry back to its pre-mutation state.
func restoreEntry[V any](m map[string]V, key string, prev V, had bool) {
	if had {
		m[key] = prev
	} else {
		delete(m, key)
	}
}

// remove drops an extension record and its persisted state.
func (s *Store) remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.exts, name)
	delete(s.disabled, name)
	delete(s.settings, name)
	delete(s.sources, name)
	return s.saveStateLocked()
}

// setEnabled flips the enabled flag and persists it. Disk content is not
// touched.
func (s *Store) setEnabled(name string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ext, ok := s.exts[name]
	if !ok {
		return &NotFoundError{Name: name}
	}
	prevEnabled := ext.Enabled
	ext.Enabled = enabled
	if enabled {
		delete(s.disabled, name)
	} else {
		s.disabled[name] = true
	}
	if err := s.saveStateLocked(); err != nil {
		ext.Enabled = prevEnabled
		restoreEntry(s.disabled, name, !prevEnabled, !prevEnabled)
		return err
	}
	return nil
}

// loadStateLocked reads state.yaml, tolerating a missing file.
func (s *Store) loadStateLocked() {
	s.disabled = make(map[string]bool)
	s.settings = make(map[string]map[string]any)
	s.sources = make(map[string]SourceRef)

	data, err := os.ReadFile(filepath.Join(s.root, StateFileName))
	if err != nil {
		return
	}
	var state storeState
	if err := yaml.Unmarshal(data, &state); err != nil {
		return
	}
	for _, name := range state.Disabled {
		s.disabled[name] = true
	}
	if state.Settings != nil {
		s.settings = state.Settings
	}
	if state.Sources != nil {
		s.sources = state.Sources
	}
}

// saveStateLocked writes state.yaml atomically (write-then-rename).
func (s *Store) saveStateLocked() error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("creating extensions root: %w", err)
	}

	state := storeState{
		Settings: s.settings,
		Sources:  s.sources,
	}
	for name := range s.disabled {
		state.Disabled = append(state.Disabled, name)
	}
	sort.Strings(state.Disabled)

	data, err := yaml.Marshal(&state)
	if err != nil {
		return fmt.Errorf("marshaling store state: %w", err)
	}

	path := filepath.Join(s.root, StateFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing store state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing store state: %w", err)
	}
	return nil
}
