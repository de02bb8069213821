// Package preset stores named report configurations as YAML files under
// ~/.siteinsight/presets, so recurring analyses can be re-run by name.
package preset

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configDirName  = ".siteinsight"
	presetsDirName = "presets"
	presetFileExt  = ".yaml"
)

// Valid preset names: alphanumeric, underscores, hyphens only.
var validPresetName = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Preset is a saved report configuration.
type Preset struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Report      string    `yaml:"report"` // named report, or "custom"
	Dimensions  []string  `yaml:"dimensions,omitempty"`
	Metrics     []string  `yaml:"metrics,omitempty"`
	DateRange   string    `yaml:"date_range,omitempty"` // shorthand token, e.g. "7d"
	Limit       int64     `yaml:"limit,omitempty"`
	CreatedAt   time.Time `yaml:"created_at"`
	LastUsed    time.Time `yaml:"last_used,omitempty"`
}

// Dir returns the presets directory (~/.siteinsight/presets).
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, configDirName, presetsDirName), nil
}

// IsValidName validates a preset name.
func IsValidName(name string) bool {
	return name != "" && len(name) <= 50 && validPresetName.MatchString(name)
}

func path(name string) (string, error) {
	if !IsValidName(name) {
		return "", fmt.Errorf("invalid preset name: must contain only letters, numbers, underscores, and hyphens")
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name+presetFileExt), nil
}

// Save writes a preset, creating the presets directory if needed.
func Save(p *Preset) error {
	filePath, err := path(p.Name)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0700); err != nil {
		return fmt.Errorf("failed to create presets directory: %w", err)
	}

	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal preset: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0600); err != nil {
		return fmt.Errorf("failed to write preset file: %w", err)
	}
	return nil
}

// Load reads a preset by name. A missing preset is an error; the caller
// asked for it explicitly.
func Load(name string) (*Preset, error) {
	filePath, err := path(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("preset %q not found", name)
		}
		return nil, fmt.Errorf("failed to read preset file: %w", err)
	}

	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse preset file: %w", err)
	}
	return &p, nil
}

// List returns all preset names, sorted.
func List() ([]string, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list presets: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), presetFileExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), presetFileExt))
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes a preset by name.
func Delete(name string) error {
	filePath, err := path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("preset %q not found", name)
		}
		return fmt.Errorf("failed to delete preset: %w", err)
	}
	return nil
}

// Touch records that a preset was just used.
func Touch(name string) error {
	p, err := Load(name)
	if err != nil {
		return err
	}
	p.LastUsed = time.Now()
	return Save(p)
}
