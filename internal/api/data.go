package api

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const dataAPIBaseURL = "https://analyticsdata.googleapis.com/v1beta"

// DataClient handles GA4 Data API operations: reports, realtime reports,
// and property metadata.
type DataClient struct {
	httpClient *http.Client
	baseURL    string
	cache      CacheInterface // optional, nil disables caching
}

// CacheInterface defines the pluggable caching contract for GA4 responses.
type CacheInterface interface {
	GetCachedMetadata(ctx context.Context, propertyID, cacheType string, result interface{}) (bool, error)
	CacheMetadata(ctx context.Context, propertyID, cacheType string, data interface{}, ttlHours int) error
	GetCachedReport(ctx context.Context, requestHash string, result interface{}) (bool, error)
	CacheReport(ctx context.Context, propertyID, requestHash string, request, response interface{}, rowCount, ttlHours int) error
	Close() error
}

// NewDataClient creates a GA4 Data API client on top of an authenticated
// HTTP client. The registry is the normal constructor path; tests build one
// directly against an httptest server.
func NewDataClient(httpClient *http.Client) *DataClient {
	return &DataClient{
		httpClient: httpClient,
		baseURL:    dataAPIBaseURL,
	}
}

// NewDataClientWithCache creates a GA4 Data API client with response caching.
func NewDataClientWithCache(httpClient *http.Client, cache CacheInterface) *DataClient {
	c := NewDataClient(httpClient)
	c.cache = cache
	return c
}

// SetBaseURL overrides the API endpoint. Used by tests.
func (c *DataClient) SetBaseURL(url string) {
	c.baseURL = url
}

// Close releases cache resources, if any.
func (c *DataClient) Close() error {
	if c.cache != nil {
		return c.cache.Close()
	}
	return nil
}

// APIError is a non-2xx response from a Google API, carried through to the
// caller without reclassification.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("GA4 Data API returned status %d: %s", e.StatusCode, e.Status)
}

// RunReport request/response structures, mirroring the GA4 Data API wire
// format. Metric values always arrive as strings.

type RunReportRequest struct {
	Property        string            `json:"-"` // resource name, not part of the JSON body
	Dimensions      []Dimension       `json:"dimensions,omitempty"`
	Metrics         []Metric          `json:"metrics,omitempty"`
	DateRanges      []DateRange       `json:"dateRanges,omitempty"`
	DimensionFilter *FilterExpression `json:"dimensionFilter,omitempty"`
	OrderBys        []OrderBy         `json:"orderBys,omitempty"`
	Limit           int64             `json:"limit,omitempty"`
}

type RunRealtimeReportRequest struct {
	Property   string      `json:"-"`
	Dimensions []Dimension `json:"dimensions,omitempty"`
	Metrics    []Metric    `json:"metrics,omitempty"`
	Limit      int64       `json:"limit,omitempty"`
}

type RunReportResponse struct {
	DimensionHeaders []DimensionHeader `json:"dimensionHeaders"`
	MetricHeaders    []MetricHeader    `json:"metricHeaders"`
	Rows             []Row             `json:"rows"`
	Totals           []Row             `json:"totals,omitempty"`
	RowCount         int               `json:"rowCount"`
	Kind             string            `json:"kind,omitempty"`
}

type MetadataResponse struct {
	Name       string              `json:"name"`
	Dimensions []DimensionMetadata `json:"dimensions"`
	Metrics    []MetricMetadata    `json:"metrics"`
}

type DimensionMetadata struct {
	APIName          string `json:"apiName"`
	UIName           string `json:"uiName"`
	Description      string `json:"description"`
	CustomDefinition bool   `json:"customDefinition"`
	Category         string `json:"category"`
}

type MetricMetadata struct {
	APIName          string `json:"apiName"`
	UIName           string `json:"uiName"`
	Description      string `json:"description"`
	Type             string `json:"type"`
	CustomDefinition bool   `json:"customDefinition"`
	Category         string `json:"category"`
}

type Dimension struct {
	Name string `json:"name"`
}

type Metric struct {
	Name string `json:"name"`
}

type DateRange struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type FilterExpression struct {
	AndGroup      *FilterExpressionList `json:"andGroup,omitempty"`
	NotExpression *FilterExpression     `json:"notExpression,omitempty"`
	Filter        *Filter               `json:"filter,omitempty"`
}

type FilterExpressionList struct {
	Expressions []FilterExpression `json:"expressions"`
}

type Filter struct {
	FieldName    string        `json:"fieldName"`
	StringFilter *StringFilter `json:"stringFilter,omitempty"`
}

type StringFilter struct {
	MatchType     string `json:"matchType"` // EXACT, CONTAINS, STARTS_WITH, ENDS_WITH, REGEX
	Value         string `json:"value"`
	CaseSensitive bool   `json:"caseSensitive,omitempty"`
}

type OrderBy struct {
	Desc      bool              `json:"desc,omitempty"`
	Dimension *DimensionOrderBy `json:"dimension,omitempty"`
	Metric    *MetricOrderBy    `json:"metric,omitempty"`
}

type DimensionOrderBy struct {
	DimensionName string `json:"dimensionName"`
}

type MetricOrderBy struct {
	MetricName string `json:"metricName"`
}

type DimensionHeader struct {
	Name string `json:"name"`
}

type MetricHeader struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type Row struct {
	DimensionValues []DimensionValue `json:"dimensionValues"`
	MetricValues    []MetricValue    `json:"metricValues"`
}

type DimensionValue struct {
	Value string `json:"value"`
}

type MetricValue struct {
	Value string `json:"value"`
}

// RunReport executes a GA4 report query.
func (c *DataClient) RunReport(ctx context.Context, request *RunReportRequest) (*RunReportResponse, error) {
	if request.Property == "" {
		return nil, fmt.Errorf("property resource name is required")
	}
	if len(request.DateRanges) == 0 {
		return nil, fmt.Errorf("at least one date range is required")
	}

	var requestHash string
	if c.cache != nil {
		requestHash = hashRequest(request)
		var cached RunReportResponse
		if found, err := c.cache.GetCachedReport(ctx, requestHash, &cached); err == nil && found {
			return &cached, nil
		}
	}

	url := fmt.Sprintf("%s/%s:runReport", c.baseURL, request.Property)

	var response RunReportResponse
	if err := c.post(ctx, url, request, &response); err != nil {
		return nil, err
	}

	if c.cache != nil {
		c.cache.CacheReport(ctx, request.Property, requestHash, request, response, response.RowCount, 1)
	}

	return &response, nil
}

// RunRealtimeReport executes a GA4 realtime report query. Realtime data is
// never cached.
func (c *DataClient) RunRealtimeReport(ctx context.Context, request *RunRealtimeReportRequest) (*RunReportResponse, error) {
	if request.Property == "" {
		return nil, fmt.Errorf("property resource name is required")
	}

	url := fmt.Sprintf("%s/%s:runRealtimeReport", c.baseURL, request.Property)

	var response RunReportResponse
	if err := c.post(ctx, url, request, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// GetMetadata retrieves the dimensions and metrics available for a property.
// property is the full resource name ("properties/123456").
func (c *DataClient) GetMetadata(ctx context.Context, property string) (*MetadataResponse, error) {
	if c.cache != nil {
		var cached MetadataResponse
		if found, err := c.cache.GetCachedMetadata(ctx, property, "metadata", &cached); err == nil && found {
			return &cached, nil
		}
	}

	url := fmt.Sprintf("%s/%s/metadata", c.baseURL, property)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var metadata MetadataResponse
	if err := c.do(req, &metadata); err != nil {
		return nil, err
	}

	if c.cache != nil {
		c.cache.CacheMetadata(ctx, property, "metadata", metadata, 24)
	}

	return &metadata, nil
}

func (c *DataClient) post(ctx context.Context, url string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *DataClient) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// hashRequest creates a deterministic cache key for a report request.
func hashRequest(request *RunReportRequest) string {
	data, _ := json.Marshal(request)
	sum := sha256.Sum256(append([]byte(request.Property+"|"), data...))
	return fmt.Sprintf("%x", sum)
}
