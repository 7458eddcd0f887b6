package extension

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/slashkit-labs/slashkit/internal/manifest"
	"github.com/slashkit-labs/slashkit/internal/settings"
)

// stagingDirName is the staging area inside the extensions root. Keeping
// staging on the same filesystem as the store makes the final commit a
// single rename.
const stagingDirName = ".staging"

// allowAll is the default trust oracle when none is configured.
type allowAll struct{}

func (allowAll) IsTrusted(string) TrustResult {
	return TrustResult{Trusted: true, Source: "default"}
}

// Manager orchestrates install, update, enable/disable, and uninstall as
// atomic transitions over the store. Operations on the same extension
// name fail fast with ErrBusy while another is in flight; operations on
// different names may run concurrently.
type Manager struct {
	store    *Store
	acquirer *Acquirer
	trust    TrustOracle
	consent  ConsentPrompter
	refresh  func()

	opMu     sync.Mutex
	inFlight map[string]bool

	// loadLive validates freshly committed content the same way startup
	// does. Swappable in tests to force post-commit validation failure.
	loadLive func(dir string) (*manifest.Manifest, error)
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithTrustOracle sets the workspace trust oracle.
func WithTrustOracle(o TrustOracle) ManagerOption {
	return func(m *Manager) { m.trust = o }
}

// WithConsent sets the optional user consent prompter.
func WithConsent(c ConsentPrompter) ManagerOption {
	return func(m *Manager) { m.consent = c }
}

// WithRefresh sets the hook invoked after every state-changing operation,
// typically the command aggregator's reload trigger.
func WithRefresh(fn func()) ManagerOption {
	return func(m *Manager) { m.refresh = fn }
}

// WithAcquirer overrides the default acquirer.
func WithAcquirer(a *Acquirer) ManagerOption {
	return func(m *Manager) { m.acquirer = a }
}

// NewManager creates a lifecycle manager over store.
func NewManager(store *Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:    store,
		trust:    allowAll{},
		refresh:  func() {},
		inFlight: make(map[string]bool),
		loadLive: loadExtensionDir,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.acquirer == nil {
		m.acquirer = NewAcquirer(filepath.Join(store.Root(), stagingDirName))
	}
	return m
}

// Store exposes the underlying store for read-only collaborators.
func (m *Manager) Store() *Store { return m.store }

// Extensions returns the current in-memory snapshot of installed
// extensions.
func (m *Manager) Extensions() []Extension {
	return m.store.List()
}

// Load scans the store root and populates the in-memory list. Directories
// that fail to load are reported, not fatal.
func (m *Manager) Load() []LoadIssue {
	return m.store.Load()
}

// Install acquires, validates, and installs a new extension. It fails
// with a ConflictError when the resolved name is already installed.
func (m *Manager) Install(ctx context.Context, ref SourceRef, userSettings map[string]any) (*Extension, error) {
	return m.install(ctx, ref, userSettings, false)
}

// InstallOrUpdate installs the extension when absent, and otherwise runs
// an update transaction: the previous installed directory is preserved
// until the new content passes the startup load check, and restored
// intact if it does not. The previously stored settings serve as the
// baseline that the new manifest defaults are merged under.
func (m *Manager) InstallOrUpdate(ctx context.Context, ref SourceRef, userSettings map[string]any) (*Extension, error) {
	return m.install(ctx, ref, userSettings, true)
}

func (m *Manager) install(ctx context.Context, ref SourceRef, userSettings map[string]any, allowUpdate bool) (*Extension, error) {
	staged, newManifest, err := m.acquirer.Acquire(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer cleanupStaged(staged)

	if err := validateStaged(staged, newManifest); err != nil {
		return nil, err
	}

	name := newManifest.Name
	if err := m.begin(name); err != nil {
		return nil, err
	}
	defer m.end(name)

	if err := ctx.Err(); err != nil {
		return nil, &AcquisitionError{Kind: AcquireCancelled, Source: ref.Source, Err: err}
	}

	prior, installed := m.store.Get(name)
	if installed && !allowUpdate {
		return nil, &ConflictError{Name: name}
	}

	if err := m.gateTrust(newManifest, ref); err != nil {
		return nil, err
	}

	merged := m.reconcileSettings(newManifest, prior, installed, userSettings)

	if installed {
		return m.commitUpdate(ref, staged, newManifest, prior, merged)
	}
	return m.commitInstall(ref, staged, newManifest, merged)
}

// commitInstall adopts staged content as a new extension directory.
func (m *Manager) commitInstall(ref SourceRef, staged string, mf *manifest.Manifest, merged map[string]any) (*Extension, error) {
	if err := os.MkdirAll(m.store.Root(), 0o755); err != nil {
		return nil, fmt.Errorf("creating extensions root: %w", err)
	}

	live := m.store.Dir(mf.Name)
	if err := renameOrCopy(staged, live); err != nil {
		return nil, fmt.Errorf("adopting staged content: %w", err)
	}

	ext := &Extension{
		Name:          mf.Name,
		Version:       mf.Version,
		Source:        ref,
		InstalledPath: live,
		Config:        mf,
		Settings:      merged,
		Enabled:       true,
	}
	if err := m.store.put(ext); err != nil {
		os.RemoveAll(live)
		return nil, err
	}

	m.refresh()
	return ext, nil
}

// commitUpdate swaps staged content in place of the live directory. The
// previous directory is moved aside by rename, the staged content is
// renamed in, and only after the new content passes the startup load
// check is the previous directory discarded. A failed load swaps the
// previous directory back, so disk and record always agree on the old
// version after a failed update.
func (m *Manager) commitUpdate(ref SourceRef, staged string, mf *manifest.Manifest, prior Extension, merged map[string]any) (*Extension, error) {
	live := m.store.Dir(mf.Name)
	backup := filepath.Join(m.store.Root(), backupPrefix+mf.Name)

	os.RemoveAll(backup)
	if err := os.Rename(live, backup); err != nil {
		return nil, fmt.Errorf("preserving previous version: %w", err)
	}

	if err := renameOrCopy(staged, live); err != nil {
		// The new content never made it in; restore the old directory.
		os.RemoveAll(live)
		if restoreErr := os.Rename(backup, live); restoreErr != nil {
			return nil, fmt.Errorf("adopting staged content: %v (restore failed: %w)", err, restoreErr)
		}
		return nil, fmt.Errorf("adopting staged content: %w", err)
	}

	loaded, err := m.loadLive(live)
	if err != nil {
		os.RemoveAll(live)
		if restoreErr := os.Rename(backup, live); restoreErr != nil {
			return nil, fmt.Errorf("update validation failed: %v (restore failed: %w)", err, restoreErr)
		}
		return nil, &ValidationError{Name: mf.Name, Err: err}
	}
	os.RemoveAll(backup)

	ext := &Extension{
		Name:          loaded.Name,
		Version:       loaded.Version,
		Source:        ref,
		InstalledPath: live,
		Config:        loaded,
		Settings:      merged,
		Enabled:       prior.Enabled,
	}
	if err := m.store.put(ext); err != nil {
		return nil, err
	}

	m.refresh()
	return ext, nil
}

// Uninstall removes the on-disk directory and the in-memory record.
func (m *Manager) Uninstall(name string) error {
	if err := m.begin(name); err != nil {
		return err
	}
	defer m.end(name)

	ext, ok := m.store.Get(name)
	if !ok {
		return &NotFoundError{Name: name}
	}

	if err := os.RemoveAll(ext.InstalledPath); err != nil {
		return fmt.Errorf("removing %s: %w", ext.InstalledPath, err)
	}
	if err := m.store.remove(name); err != nil {
		return err
	}

	m.refresh()
	return nil
}

// SetEnabled toggles whether an extension contributes commands. Disabled
// extensions stay installed; only the persisted flag changes.
func (m *Manager) SetEnabled(name string, enabled bool) error {
	if err := m.begin(name); err != nil {
		return err
	}
	defer m.end(name)

	if err := m.store.setEnabled(name, enabled); err != nil {
		return err
	}

	m.refresh()
	return nil
}

// begin reserves an extension name for a single writer, failing fast when
// an operation is already in flight for it.
func (m *Manager) begin(name string) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	if m.inFlight[name] {
		return fmt.Errorf("extension %q: %w", name, ErrBusy)
	}
	m.inFlight[name] = true
	return nil
}

func (m *Manager) end(name string) {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	delete(m.inFlight, name)
}

// gateTrust applies the trust policy before any store write. The oracle
// is asked about the content's origin, so a local source inside a
// trusted folder installs without prompting; remote sources have no
// trusted path and fall through to the manifest's trust level. Refused
// consent aborts the whole operation.
func (m *Manager) gateTrust(mf *manifest.Manifest, ref SourceRef) error {
	res := m.trust.IsTrusted(ref.Source)
	if res.Trusted {
		return nil
	}

	switch mf.Trust {
	case manifest.TrustNone:
		return nil
	case manifest.TrustRequired:
		return fmt.Errorf("extension %q requires a trusted workspace (trust source: %s): %w",
			mf.Name, res.Source, ErrTrustDenied)
	default:
		// Weak or unset trust: ask the user when a consent capability is
		// available, otherwise proceed; the oracle is advisory here.
		if m.consent == nil {
			return nil
		}
		desc := fmt.Sprintf("Extension %q (version %s) is not from a trusted location. Install anyway?",
			mf.Name, mf.Version)
		if !m.consent.RequestConsent(desc) {
			return fmt.Errorf("consent refused for extension %q: %w", mf.Name, ErrTrustDenied)
		}
		return nil
	}
}

// reconcileSettings merges manifest-declared defaults under the caller's
// settings, carrying previously stored settings forward on update, then
// prompts for declared-but-missing keys when a consent capability exists.
// Merge order: defaults → stored → caller.
func (m *Manager) reconcileSettings(mf *manifest.Manifest, prior Extension, installed bool, userSettings map[string]any) map[string]any {
	var defaults map[string]any
	if mf.Settings != nil {
		defaults = mf.Settings.Defaults
	}

	merged := settings.Merge(defaults, nil)
	if installed && prior.Settings != nil {
		merged = settings.Merge(merged, prior.Settings)
	}
	if userSettings != nil {
		merged = settings.Merge(merged, userSettings)
	}

	if m.consent != nil && mf.Settings != nil {
		for _, key := range requiredSettingKeys(mf.Settings.Schema) {
			if _, ok := merged[key]; ok {
				continue
			}
			value, err := m.consent.RequestSetting(fmt.Sprintf("Extension %q needs a value for %q", mf.Name, key))
			if err != nil || strings.TrimSpace(value) == "" {
				continue
			}
			merged[key] = value
		}
	}

	if len(merged) == 0 {
		return nil
	}
	return merged
}

// requiredSettingKeys pulls the "required" key list out of a declared
// settings schema, if present.
func requiredSettingKeys(schema map[string]any) []string {
	if schema == nil {
		return nil
	}
	raw, ok := schema["required"].([]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			keys = append(keys, s)
		}
	}
	return keys
}

// validateStaged runs the structural check plus the JSON-schema
// validation over staged content.
func validateStaged(dir string, mf *manifest.Manifest) error {
	if err := mf.Check(); err != nil {
		return &ValidationError{Name: mf.Name, Err: err}
	}

	data, err := os.ReadFile(filepath.Join(dir, manifest.FileName))
	if err != nil {
		return &ValidationError{Name: mf.Name, Err: err}
	}
	result, err := manifest.Validate(data)
	if err != nil {
		return &ValidationError{Name: mf.Name, Err: err}
	}
	if !result.Valid {
		return &ValidationError{Name: mf.Name, Err: errors.New(result.Error())}
	}
	return nil
}

// renameOrCopy moves src to dst, falling back to a recursive copy when
// rename crosses filesystems.
func renameOrCopy(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyDir(src, dst); err != nil {
		os.RemoveAll(dst)
		return err
	}
	return os.RemoveAll(src)
}

// cleanupStaged removes a staged tree, including the wrapping temp
// directory when the content root was nested inside it.
func cleanupStaged(dir string) {
	if dir == "" {
		return
	}
	parent := filepath.Dir(dir)
	if strings.HasPrefix(filepath.Base(parent), "slashkit-stage-") {
		os.RemoveAll(parent)
		return
	}
	os.RemoveAll(dir)
}
