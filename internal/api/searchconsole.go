package api

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	searchconsole "google.golang.org/api/searchconsole/v1"

	"siteinsight/internal/settings"
)

// SearchConsoleClient wraps the Search Console API: search analytics
// queries and URL inspection.
type SearchConsoleClient struct {
	svc *searchconsole.Service
}

// NewSearchConsoleClient creates a Search Console client authenticated as
// the configured service account.
func NewSearchConsoleClient(ctx context.Context, s settings.Settings) (*SearchConsoleClient, error) {
	httpClient := serviceAccountClient(ctx, s, WebmastersScope)
	svc, err := searchconsole.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Search Console service: %w", err)
	}
	return &SearchConsoleClient{svc: svc}, nil
}

// Query runs a search analytics query against a site. Dates must be
// absolute YYYY-MM-DD; Search Console does not accept relative tokens.
func (c *SearchConsoleClient) Query(ctx context.Context, siteURL string, request *searchconsole.SearchAnalyticsQueryRequest) (*searchconsole.SearchAnalyticsQueryResponse, error) {
	return c.svc.Searchanalytics.Query(siteURL, request).Context(ctx).Do()
}

// InspectURL fetches the index status of a single URL within a site.
func (c *SearchConsoleClient) InspectURL(ctx context.Context, siteURL, inspectionURL string) (*searchconsole.InspectUrlIndexResponse, error) {
	request := &searchconsole.InspectUrlIndexRequest{
		InspectionUrl: inspectionURL,
		SiteUrl:       siteURL,
	}
	return c.svc.UrlInspection.Index.Inspect(request).Context(ctx).Do()
}
