package extension

import (
	"fmt"

	"github.com/slashkit-labs/slashkit/internal/manifest"
)

// SourceType identifies how extension content is acquired.
type SourceType string

const (
	SourceLocal   SourceType = "local"   // copy of a local directory
	SourceGit     SourceType = "git"     // clone of a git repository
	SourceRelease SourceType = "release" // downloaded release archive
)

// SourceRef describes where an extension's content comes from.
type SourceRef struct {
	Type   SourceType `yaml:"type"`
	Source string     `yaml:"source"`             // path or URL
	Ref    string     `yaml:"ref,omitempty"`      // git branch, tag, or commit
	SHA256 string     `yaml:"sha256,omitempty"`   // optional archive checksum
}

// String renders the ref for error messages and listings.
func (r SourceRef) String() string {
	if r.Source == "" {
		return ""
	}
	if r.Ref != "" {
		return fmt.Sprintf("%s:%s@%s", r.Type, r.Source, r.Ref)
	}
	return fmt.Sprintf("%s:%s", r.Type, r.Source)
}

// Extension is one installed extension: its identity, origin, parsed
// manifest, and the store directory that holds its files. The record and
// the directory are always updated together.
type Extension struct {
	Name          string
	Version       string
	Source        SourceRef
	InstalledPath string
	Config        *manifest.Manifest
	Settings      map[string]any
	Enabled       bool
}

// TrustResult is the trust oracle's verdict for a path.
type TrustResult struct {
	Trusted bool
	Source  string // where the verdict came from, e.g. "config", "policy"
}

// TrustOracle decides whether a workspace or staged directory is trusted
// enough to install and execute extension content. Consulted, never
// mutated, by install and update.
type TrustOracle interface {
	IsTrusted(path string) TrustResult
}

// ConsentPrompter is the optional user-facing consent boundary. Both
// calls block until the user answers.
type ConsentPrompter interface {
	RequestConsent(description string) bool
	RequestSetting(prompt string) (string, error)
}
