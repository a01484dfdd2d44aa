package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".hitscan"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadConfigFile loads site configurations from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}
	cf, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cf, nil
}

// ParseConfig decodes a configuration file and checks every site entry.
// Unknown keys are rejected so that a misspelled setting does not silently
// fall back to its default. An empty document yields an empty File.
func ParseConfig(data []byte) (*File, error) {
	var cf File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cf.Sites == nil {
		cf.Sites = make(map[string]SiteConfig)
	}
	if err := cf.Defaults.validate(); err != nil {
		return nil, fmt.Errorf("defaults: %w", err)
	}
	for host, site := range cf.Sites {
		if err := site.validate(); err != nil {
			return nil, fmt.Errorf("site %s: %w", host, err)
		}
	}
	return &cf, nil
}

// validate checks the values a site entry may override.
func (s SiteConfig) validate() error {
	if s.PerCardLimit < 0 {
		return ErrInvalidPerCardLimit
	}
	if s.MaxCards < 0 {
		return ErrInvalidMaxCards
	}
	if s.CanonicalTemplate != "" && !strings.Contains(s.CanonicalTemplate, "{id}") {
		return ErrInvalidCanonicalTemplate
	}
	for _, p := range append(append([]string{}, s.IgnorePatterns...), s.FollowPatterns...) {
		if _, err := filepath.Match(p, ""); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidPattern, p)
		}
	}
	return nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .hitscan in the current directory
// 3. Look for .hitscan in the user's home directory
//
// Returns the path to the configuration file if found, or "" if not.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	dirs := make([]string, 0, 2)
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, home)
	}
	for _, dir := range dirs {
		candidate := filepath.Join(dir, DefaultConfigFile)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}
