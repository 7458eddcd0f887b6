package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/slashkit-labs/slashkit/internal/branding"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Viper keys.
const (
	KeyExtensionsRoot = "extensions_root"
	KeyCommandsDir    = "commands_dir"
	KeyTrustedFolders = "trusted_folders"
)

// Config is the application configuration, loaded from ~/.slashkit and
// the SLASHKIT_* environment. Each instance owns its viper; tests build
// fresh instances over a temp home instead of resetting shared state.
type Config struct {
	home string
	v    *viper.Viper
}

// Dir returns the path to the config directory (~/.slashkit/).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// Load reads configuration from dir, overlaying SLASHKIT_* environment
// variables. A missing config file is fine; defaults apply.
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(filepath.Join(dir, fileName+"."+fileType))
	v.SetConfigType(fileType)
	v.SetEnvPrefix(branding.EnvPrefix())
	v.AutomaticEnv()

	v.SetDefault(KeyExtensionsRoot, filepath.Join(dir, "extensions"))
	v.SetDefault(KeyCommandsDir, filepath.Join(dir, "commands"))
	v.SetDefault(KeyTrustedFolders, []string{})

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	return &Config{home: dir, v: v}, nil
}

// LoadDefault loads configuration from the default directory.
func LoadDefault() (*Config, error) {
	return Load(Dir())
}

// ExtensionsRoot is the store root holding one directory per installed
// extension.
func (c *Config) ExtensionsRoot() string {
	return c.v.GetString(KeyExtensionsRoot)
}

// CommandsDir holds user-defined command files.
func (c *Config) CommandsDir() string {
	return c.v.GetString(KeyCommandsDir)
}

// TrustedFolders lists directories whose content is trusted for
// extension installs without prompting.
func (c *Config) TrustedFolders() []string {
	return c.v.GetStringSlice(KeyTrustedFolders)
}

// Set writes a key and persists the config file.
func (c *Config) Set(key string, value any) error {
	if err := os.MkdirAll(c.home, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", c.home, err)
	}
	c.v.Set(key, value)
	if err := c.v.WriteConfigAs(filepath.Join(c.home, fileName+"."+fileType)); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
