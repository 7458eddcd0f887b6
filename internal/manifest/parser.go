package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"go.yaml.in/yaml/v3"
)

// Parse unmarshals raw manifest YAML into a Manifest.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}

// ParseFile reads and parses a manifest file.
func ParseFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ParseDir reads and parses the extension.yaml at the root of dir.
func ParseDir(dir string) (*Manifest, error) {
	return ParseFile(filepath.Join(dir, FileName))
}

// SemVersion returns the manifest version parsed as a semantic version.
func (m *Manifest) SemVersion() (*semver.Version, error) {
	v, err := semver.NewVersion(m.Version)
	if err != nil {
		return nil, fmt.Errorf("manifest version %q: %w", m.Version, err)
	}
	return v, nil
}

// Check performs the structural validation applied on every load: required
// fields present, version parses as semver, trust level recognized, and
// declared commands well-formed. Schema validation (Validate) is stricter
// and only runs at install/update time.
func (m *Manifest) Check() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("manifest missing required field 'name'")
	}
	if strings.ContainsAny(m.Name, "/\\ ") {
		return fmt.Errorf("manifest name %q contains path separators or spaces", m.Name)
	}
	if strings.TrimSpace(m.Version) == "" {
		return fmt.Errorf("manifest missing required field 'version'")
	}
	if _, err := m.SemVersion(); err != nil {
		return err
	}
	if m.Trust != "" && !validTrust(m.Trust) {
		return fmt.Errorf("manifest trust level %q is not one of %v", m.Trust, ValidTrustLevels)
	}
	for i := range m.Commands {
		if err := checkCommandDecl(&m.Commands[i]); err != nil {
			return err
		}
	}
	for _, p := range m.Processes {
		if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Command) == "" {
			return fmt.Errorf("process declarations require both 'name' and 'command'")
		}
	}
	return nil
}

func checkCommandDecl(c *CommandDecl) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("command declaration missing 'name'")
	}
	if c.File != "" && filepath.IsAbs(c.File) {
		return fmt.Errorf("command %q: file must be a relative path", c.Name)
	}
	if c.File != "" && strings.Contains(c.File, "..") {
		return fmt.Errorf("command %q: file must not escape the extension directory", c.Name)
	}
	for i := range c.SubCommands {
		if err := checkCommandDecl(&c.SubCommands[i]); err != nil {
			return fmt.Errorf("subcommand of %q: %w", c.Name, err)
		}
	}
	return nil
}

func validTrust(level string) bool {
	for _, v := range ValidTrustLevels {
		if v == level {
			return true
		}
	}
	return false
}
