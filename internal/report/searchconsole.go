package report

import (
	"context"
	"time"

	searchconsole "google.golang.org/api/searchconsole/v1"

	"siteinsight/internal/daterange"
	"siteinsight/internal/store"
)

// searchQuery is the shared path for search analytics reports. Search
// Console only accepts absolute dates, so shorthand ranges resolve against
// the wall clock here.
func (s *Service) searchQuery(ctx context.Context, dimensions []string, dr daterange.Spec, rowLimit int64, operation string, opts Options) (*searchconsole.SearchAnalyticsQueryResponse, error) {
	client, err := s.registry.SearchConsole(ctx)
	if err != nil {
		return nil, err
	}

	r := rangeOrDefault(dr).ForSearchConsole(time.Now())
	request := &searchconsole.SearchAnalyticsQueryRequest{
		StartDate:  r.Start,
		EndDate:    r.End,
		Dimensions: dimensions,
		RowLimit:   rowLimit,
	}

	response, err := client.Query(ctx, s.registry.SiteURL(), request)
	if err != nil {
		return nil, err
	}

	if err := s.persist(opts, response, store.CategorySearchConsole, operation); err != nil {
		return nil, err
	}
	return response, nil
}

// SearchAnalytics runs a search analytics query with caller-chosen
// dimensions (query, page, country, device, date).
func (s *Service) SearchAnalytics(ctx context.Context, dimensions []string, dr daterange.Spec, rowLimit int64, opts Options) (*searchconsole.SearchAnalyticsQueryResponse, error) {
	return s.searchQuery(ctx, dimensions, dr, rowLimit, "search_analytics", opts)
}

// TopQueries lists the search queries driving the most traffic.
func (s *Service) TopQueries(ctx context.Context, dr daterange.Spec, rowLimit int64, opts Options) (*searchconsole.SearchAnalyticsQueryResponse, error) {
	return s.searchQuery(ctx, []string{"query"}, dr, rowLimit, "top_queries", opts)
}

// TopSearchPages lists the pages receiving the most search traffic.
func (s *Service) TopSearchPages(ctx context.Context, dr daterange.Spec, rowLimit int64, opts Options) (*searchconsole.SearchAnalyticsQueryResponse, error) {
	return s.searchQuery(ctx, []string{"page"}, dr, rowLimit, "top_search_pages", opts)
}

// InspectURL fetches the index status of a single URL of the configured
// site.
func (s *Service) InspectURL(ctx context.Context, inspectionURL string, opts Options) (*searchconsole.InspectUrlIndexResponse, error) {
	client, err := s.registry.SearchConsole(ctx)
	if err != nil {
		return nil, err
	}

	response, err := client.InspectURL(ctx, s.registry.SiteURL(), inspectionURL)
	if err != nil {
		return nil, err
	}

	if err := s.persist(opts, response, store.CategorySearchConsole, "url_inspection"); err != nil {
		return nil, err
	}
	return response, nil
}
