// Package config loads the optional per-project .codegraph.yaml file, which
// lets a repository declare extra directories or glob patterns to exclude
// from indexing beyond the built-in defaults in internal/discover.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the conventional config file name, resolved relative to a
// repository's root.
const FileName = ".codegraph.yaml"

// Config is the parsed contents of a .codegraph.yaml file.
type Config struct {
	// Ignore lists additional glob patterns (matched against a directory's
	// base name or its path relative to the repo root) to skip during
	// discovery, on top of internal/discover's built-in IgnorePatterns.
	Ignore []string `yaml:"ignore"`

	// Project optionally overrides the project name the pipeline would
	// otherwise derive from the repository's absolute path.
	Project string `yaml:"project"`
}

// Load reads and parses path. A missing file is not an error: it returns a
// zero-value Config, since .codegraph.yaml is entirely optional.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &c, nil
}

// LoadFromRepo loads the .codegraph.yaml file at the root of repoPath, if
// present.
func LoadFromRepo(repoPath string) (*Config, error) {
	return Load(filepath.Join(repoPath, FileName))
}
