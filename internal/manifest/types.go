package manifest

// FileName is the manifest filename expected at the root of every
// extension directory. Its format is a published contract with extension
// authors and must not change between releases.
const FileName = "extension.yaml"

// Manifest is the parsed extension.yaml of a single extension.
type Manifest struct {
	Name        string         `yaml:"name" json:"name"`
	Version     string         `yaml:"version" json:"version"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty"`
	Author      string         `yaml:"author,omitempty" json:"author,omitempty"`
	Trust       string         `yaml:"trust,omitempty" json:"trust,omitempty"`
	Commands    []CommandDecl  `yaml:"commands,omitempty" json:"commands,omitempty"`
	Settings    *SettingsBlock `yaml:"settings,omitempty" json:"settings,omitempty"`
	Processes   []ProcessDecl  `yaml:"processes,omitempty" json:"processes,omitempty"`
}

// CommandDecl declares a slash command contributed by an extension.
// A declaration either carries an inline prompt or points at a command
// definition file inside the extension directory.
type CommandDecl struct {
	Name        string        `yaml:"name" json:"name"`
	Description string        `yaml:"description,omitempty" json:"description,omitempty"`
	AltNames    []string      `yaml:"alt_names,omitempty" json:"alt_names,omitempty"`
	Prompt      string        `yaml:"prompt,omitempty" json:"prompt,omitempty"`
	File        string        `yaml:"file,omitempty" json:"file,omitempty"`
	SubCommands []CommandDecl `yaml:"subcommands,omitempty" json:"subcommands,omitempty"`
}

// SettingsBlock declares an extension's default settings and, optionally,
// a schema describing the keys users may override.
type SettingsBlock struct {
	Defaults map[string]any `yaml:"defaults,omitempty" json:"defaults,omitempty"`
	Schema   map[string]any `yaml:"schema,omitempty" json:"schema,omitempty"`
}

// ProcessDecl declares a long-running helper process an extension may ask
// the host to spawn. The host decides whether and when to start it.
type ProcessDecl struct {
	Name    string            `yaml:"name" json:"name"`
	Command string            `yaml:"command" json:"command"`
	Args    []string          `yaml:"args,omitempty" json:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	Cwd     string            `yaml:"cwd,omitempty" json:"cwd,omitempty"`
}

// Trust requirement values for the manifest trust field.
const (
	TrustNone     = "none"     // no trust gating required
	TrustRequired = "required" // install only into trusted workspaces
	TrustPrompt   = "prompt"   // ask the user when trust is weak or unset
)

// ValidTrustLevels contains all accepted trust field values.
var ValidTrustLevels = []string{TrustNone, TrustRequired, TrustPrompt}
