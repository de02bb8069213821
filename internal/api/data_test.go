package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const sampleReportJSON = `{
	"dimensionHeaders": [{"name": "date"}],
	"metricHeaders": [{"name": "activeUsers", "type": "TYPE_INTEGER"}],
	"rows": [
		{"dimensionValues": [{"value": "20250101"}], "metricValues": [{"value": "42"}]}
	],
	"rowCount": 1
}`

func newStubClient(t *testing.T, handler http.HandlerFunc) (*DataClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewDataClient(server.Client())
	client.SetBaseURL(server.URL)
	return client, server
}

func TestRunReport(t *testing.T) {
	var gotPath string
	var gotBody RunReportRequest

	client, _ := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleReportJSON))
	})

	request := &RunReportRequest{
		Property:   "properties/123456",
		Dimensions: []Dimension{{Name: "date"}},
		Metrics:    []Metric{{Name: "activeUsers"}},
		DateRanges: []DateRange{{StartDate: "7daysAgo", EndDate: "today"}},
	}

	response, err := client.RunReport(context.Background(), request)
	if err != nil {
		t.Fatalf("RunReport: %v", err)
	}

	if gotPath != "/properties/123456:runReport" {
		t.Errorf("request path = %q", gotPath)
	}
	if len(gotBody.DateRanges) != 1 || gotBody.DateRanges[0].StartDate != "7daysAgo" {
		t.Errorf("request dateRanges = %+v", gotBody.DateRanges)
	}

	if response.RowCount != 1 {
		t.Errorf("RowCount = %d, want 1", response.RowCount)
	}
	if got := response.Rows[0].MetricValues[0].Value; got != "42" {
		t.Errorf("metric value = %q, want 42", got)
	}
}

func TestRunReport_Validation(t *testing.T) {
	client, _ := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be made for an invalid report")
	})

	tests := []struct {
		name    string
		request *RunReportRequest
	}{
		{"missing property", &RunReportRequest{DateRanges: []DateRange{{StartDate: "today", EndDate: "today"}}}},
		{"missing date range", &RunReportRequest{Property: "properties/1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := client.RunReport(context.Background(), tt.request); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestRunReport_APIError(t *testing.T) {
	client, _ := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "permission denied"}}`, http.StatusForbidden)
	})

	request := &RunReportRequest{
		Property:   "properties/123456",
		DateRanges: []DateRange{{StartDate: "today", EndDate: "today"}},
	}

	_, err := client.RunReport(context.Background(), request)
	if err == nil {
		t.Fatal("expected error for 403 response")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d, want 403", apiErr.StatusCode)
	}
}

func TestRunRealtimeReport(t *testing.T) {
	var gotPath string
	client, _ := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(sampleReportJSON))
	})

	request := &RunRealtimeReportRequest{
		Property: "properties/123456",
		Metrics:  []Metric{{Name: "activeUsers"}},
	}

	response, err := client.RunRealtimeReport(context.Background(), request)
	if err != nil {
		t.Fatalf("RunRealtimeReport: %v", err)
	}
	if gotPath != "/properties/123456:runRealtimeReport" {
		t.Errorf("request path = %q", gotPath)
	}
	if response.RowCount != 1 {
		t.Errorf("RowCount = %d", response.RowCount)
	}
}

func TestGetMetadata(t *testing.T) {
	var gotPath, gotMethod string
	client, _ := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		w.Write([]byte(`{
			"name": "properties/123456/metadata",
			"dimensions": [{"apiName": "country", "uiName": "Country"}],
			"metrics": [{"apiName": "activeUsers", "uiName": "Active users", "type": "TYPE_INTEGER"}]
		}`))
	})

	metadata, err := client.GetMetadata(context.Background(), "properties/123456")
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if gotMethod != http.MethodGet || gotPath != "/properties/123456/metadata" {
		t.Errorf("request = %s %s", gotMethod, gotPath)
	}
	if len(metadata.Dimensions) != 1 || metadata.Dimensions[0].APIName != "country" {
		t.Errorf("dimensions = %+v", metadata.Dimensions)
	}
}

// fakeCache records calls and serves one canned response.
type fakeCache struct {
	reports     map[string][]byte
	reportPuts  int
	metadataGet int
}

func (f *fakeCache) GetCachedMetadata(ctx context.Context, propertyID, cacheType string, result interface{}) (bool, error) {
	f.metadataGet++
	return false, nil
}

func (f *fakeCache) CacheMetadata(ctx context.Context, propertyID, cacheType string, data interface{}, ttlHours int) error {
	return nil
}

func (f *fakeCache) GetCachedReport(ctx context.Context, requestHash string, result interface{}) (bool, error) {
	data, ok := f.reports[requestHash]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, result)
}

func (f *fakeCache) CacheReport(ctx context.Context, propertyID, requestHash string, request, response interface{}, rowCount, ttlHours int) error {
	f.reportPuts++
	data, err := json.Marshal(response)
	if err != nil {
		return err
	}
	if f.reports == nil {
		f.reports = make(map[string][]byte)
	}
	f.reports[requestHash] = data
	return nil
}

func (f *fakeCache) Close() error { return nil }

func TestRunReport_UsesCache(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(sampleReportJSON))
	}))
	t.Cleanup(server.Close)

	cache := &fakeCache{}
	client := NewDataClientWithCache(server.Client(), cache)
	client.SetBaseURL(server.URL)

	request := &RunReportRequest{
		Property:   "properties/123456",
		DateRanges: []DateRange{{StartDate: "7daysAgo", EndDate: "today"}},
	}

	if _, err := client.RunReport(context.Background(), request); err != nil {
		t.Fatal(err)
	}
	if _, err := client.RunReport(context.Background(), request); err != nil {
		t.Fatal(err)
	}

	if calls != 1 {
		t.Errorf("upstream calls = %d, want 1 (second served from cache)", calls)
	}
	if cache.reportPuts != 1 {
		t.Errorf("cache writes = %d, want 1", cache.reportPuts)
	}
}
