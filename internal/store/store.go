// Package store persists raw API responses as timestamped JSON artifacts.
// Every saved file is an Envelope: the payload wrapped in metadata naming
// when it was saved, which category and operation produced it, and the
// property it belongs to. Files are never mutated or deleted by this layer.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"siteinsight/internal/settings"
)

// Result categories, each mapping to a subdirectory of the results root.
const (
	CategoryReports       = "reports"
	CategoryRealtime      = "realtime"
	CategorySearchConsole = "searchconsole"
	CategoryIndexing      = "indexing"
)

// Metadata describes a saved result.
type Metadata struct {
	SavedAt    string `json:"savedAt"`
	Category   string `json:"category"`
	Operation  string `json:"operation"`
	PropertyID string `json:"propertyId"`
}

// Envelope is the persisted wrapper around an arbitrary payload.
type Envelope struct {
	Metadata Metadata        `json:"metadata"`
	Data     json.RawMessage `json:"data"`
}

// Store writes and reads result envelopes under a root directory.
type Store struct {
	root string
}

// New creates a Store rooted at dir.
func New(dir string) *Store {
	return &Store{root: dir}
}

// Root returns the results root directory.
func (s *Store) Root() string {
	return s.root
}

// Save wraps data in an envelope and writes it to
// <root>/<category>/<YYYYMMDD>_<HHMMSS>__<operation>[__<extraInfo>].json,
// returning the absolute file path. Two saves of the same
// category/operation/extraInfo within one wall-clock second collide on the
// filename and the later write wins; writes are human-paced, so this is
// accepted rather than locked against.
func (s *Store) Save(data interface{}, category, operation, extraInfo string) (string, error) {
	now := time.Now()

	dir := filepath.Join(s.root, category)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create results directory: %w", err)
	}

	name := fmt.Sprintf("%s__%s", now.Format("20060102_150405"), operation)
	if extraInfo != "" {
		name += "__" + extraInfo
	}
	path := filepath.Join(dir, name+".json")

	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal result data: %w", err)
	}

	envelope := Envelope{
		Metadata: Metadata{
			SavedAt:    now.Format("2006-01-02T15:04:05.000Z07:00"),
			Category:   category,
			Operation:  operation,
			PropertyID: settings.Load().PropertyID,
		},
		Data: payload,
	}

	out, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal envelope: %w", err)
	}

	if err := os.WriteFile(path, out, 0644); err != nil {
		return "", fmt.Errorf("failed to write result file: %w", err)
	}

	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return path, nil
}

// Load reads and parses the envelope at path. A missing file is a normal
// outcome and returns (nil, nil); a file that exists but holds invalid JSON
// is a failure.
func (s *Store) Load(path string) (*Envelope, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read result file: %w", err)
	}

	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse result file %s: %w", path, err)
	}
	return &envelope, nil
}

// List returns the paths of all .json artifacts in a category, sorted by
// filename descending. Filenames are zero-padded date-then-time, so the
// order is newest-saved-first. limit <= 0 means no limit. A category
// directory that does not exist yields an empty list, not an error.
func (s *Store) List(category string, limit int) ([]string, error) {
	dir := filepath.Join(s.root, category)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list results: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}

	sort.Sort(sort.Reverse(sort.StringSlice(paths)))

	if limit > 0 && len(paths) > limit {
		paths = paths[:limit]
	}
	return paths, nil
}

// Latest loads the newest envelope in a category whose filename contains
// operationFilter (every entry matches when the filter is empty). Returns
// (nil, nil) when nothing matches.
func (s *Store) Latest(category, operationFilter string) (*Envelope, error) {
	paths, err := s.List(category, 0)
	if err != nil {
		return nil, err
	}

	for _, path := range paths {
		if operationFilter != "" && !strings.Contains(filepath.Base(path), operationFilter) {
			continue
		}
		return s.Load(path)
	}
	return nil, nil
}
