package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"siteinsight/internal/settings"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	t.Setenv(settings.EnvPropertyID, "123456")
	return New(t.TempDir())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	st := newTestStore(t)

	path, err := st.Save(map[string]int{"sessions": 100}, CategoryReports, "traffic_sources", "")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if !filepath.IsAbs(path) {
		t.Errorf("Save returned non-absolute path %q", path)
	}

	pattern := regexp.MustCompile(`reports/\d{8}_\d{6}__traffic_sources\.json$`)
	if !pattern.MatchString(filepath.ToSlash(path)) {
		t.Errorf("path %q does not match expected filename layout", path)
	}

	envelope, err := st.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if envelope == nil {
		t.Fatal("Load returned nil for an existing file")
	}

	if envelope.Metadata.Category != CategoryReports {
		t.Errorf("Category = %q, want %q", envelope.Metadata.Category, CategoryReports)
	}
	if envelope.Metadata.Operation != "traffic_sources" {
		t.Errorf("Operation = %q, want traffic_sources", envelope.Metadata.Operation)
	}
	if envelope.Metadata.PropertyID != "123456" {
		t.Errorf("PropertyID = %q, want 123456", envelope.Metadata.PropertyID)
	}
	if envelope.Metadata.SavedAt == "" {
		t.Error("SavedAt is empty")
	}

	var data map[string]int
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if data["sessions"] != 100 {
		t.Errorf("data = %v, want sessions=100", data)
	}
}

func TestSave_ExtraInfoInFilename(t *testing.T) {
	st := newTestStore(t)

	path, err := st.Save("payload", CategorySearchConsole, "top_queries", "weekly")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	pattern := regexp.MustCompile(`searchconsole/\d{8}_\d{6}__top_queries__weekly\.json$`)
	if !pattern.MatchString(filepath.ToSlash(path)) {
		t.Errorf("path %q does not include the extra tag", path)
	}
}

func TestLoad_MissingFileIsNil(t *testing.T) {
	st := newTestStore(t)

	envelope, err := st.Load(filepath.Join(st.Root(), "reports", "nope.json"))
	if err != nil {
		t.Fatalf("Load of missing file should not error, got %v", err)
	}
	if envelope != nil {
		t.Errorf("Load of missing file = %+v, want nil", envelope)
	}
}

func TestLoad_InvalidJSONIsError(t *testing.T) {
	st := newTestStore(t)

	dir := filepath.Join(st.Root(), CategoryReports)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "20250101_000000__broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := st.Load(path); err == nil {
		t.Error("Load of invalid JSON should error")
	}
}

func writeNamed(t *testing.T, st *Store, category, name string) {
	t.Helper()
	dir := filepath.Join(st.Root(), category)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	envelope := `{"metadata":{"savedAt":"2025-01-01T00:00:00.000Z","category":"` + category +
		`","operation":"op","propertyId":"123456"},"data":{"file":"` + name + `"}}`
	if err := os.WriteFile(filepath.Join(dir, name), []byte(envelope), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestList_NewestFirstAndLimit(t *testing.T) {
	st := newTestStore(t)

	names := []string{
		"20250101_120000__page_views.json",
		"20250103_090000__events.json",
		"20250102_230000__page_views.json",
	}
	for _, name := range names {
		writeNamed(t, st, CategoryReports, name)
	}

	paths, err := st.List(CategoryReports, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("List returned %d entries, want 3", len(paths))
	}

	wantOrder := []string{
		"20250103_090000__events.json",
		"20250102_230000__page_views.json",
		"20250101_120000__page_views.json",
	}
	for i, want := range wantOrder {
		if filepath.Base(paths[i]) != want {
			t.Errorf("paths[%d] = %s, want %s", i, filepath.Base(paths[i]), want)
		}
	}

	limited, err := st.List(CategoryReports, 2)
	if err != nil {
		t.Fatalf("List with limit: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("List(limit=2) returned %d entries", len(limited))
	}
	if filepath.Base(limited[0]) != wantOrder[0] {
		t.Errorf("limited list out of order: %s", limited[0])
	}
}

func TestList_MissingCategoryIsEmpty(t *testing.T) {
	st := newTestStore(t)

	paths, err := st.List("realtime", 0)
	if err != nil {
		t.Fatalf("List of missing category should not error, got %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("List of missing category = %v, want empty", paths)
	}
}

func TestList_IgnoresNonJSON(t *testing.T) {
	st := newTestStore(t)
	writeNamed(t, st, CategoryReports, "20250101_120000__page_views.json")

	dir := filepath.Join(st.Root(), CategoryReports)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	paths, err := st.List(CategoryReports, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 1 {
		t.Errorf("List returned %d entries, want 1", len(paths))
	}
}

func TestLatest(t *testing.T) {
	st := newTestStore(t)

	writeNamed(t, st, CategoryReports, "20250101_120000__page_views.json")
	writeNamed(t, st, CategoryReports, "20250102_120000__traffic_sources.json")
	writeNamed(t, st, CategoryReports, "20250103_120000__page_views.json")

	envelope, err := st.Latest(CategoryReports, "traffic_sources")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if envelope == nil {
		t.Fatal("Latest returned nil for an existing operation")
	}
	var data map[string]string
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data["file"] != "20250102_120000__traffic_sources.json" {
		t.Errorf("Latest loaded %q, want the traffic_sources file", data["file"])
	}

	// Unfiltered lookup returns the newest overall.
	newest, err := st.Latest(CategoryReports, "")
	if err != nil {
		t.Fatal(err)
	}
	json.Unmarshal(newest.Data, &data)
	if data["file"] != "20250103_120000__page_views.json" {
		t.Errorf("unfiltered Latest loaded %q", data["file"])
	}

	// No match is nil, not an error.
	missing, err := st.Latest(CategoryReports, "no_such_operation")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Errorf("Latest with no match = %+v, want nil", missing)
	}
}
