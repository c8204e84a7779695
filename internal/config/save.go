package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configFileName = "config.yaml"

const configHeader = "# CurtainFire configuration\n# Flags (-script, -scene, -out, -frames, -debug) override these values.\n\n"

// ErrConfigExists is returned instead of overwriting a config file.
var ErrConfigExists = errors.New("config file already exists")

// UserConfigPath is the config file in the user's config directory.
func UserConfigPath() string {
	return filepath.Join(ConfigDir(), configFileName)
}

// Save creates the user config file and returns its path. An existing file
// is left untouched.
func (c *Config) Save() (string, error) {
	path := UserConfigPath()
	return path, c.Create(path)
}

// Create writes the config to path unless a file is already there.
func (c *Config) Create(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s: %w", path, ErrConfigExists)
	}
	return c.SaveTo(path)
}

// SaveTo validates the config and writes it to path as YAML, creating the
// parent directory.
func (c *Config) SaveTo(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.WriteString(configHeader)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
