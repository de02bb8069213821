package report

import (
	"context"

	"siteinsight/internal/api"
	"siteinsight/internal/daterange"
	"siteinsight/internal/store"
)

// runReport is the shared path for all GA4 report functions: resolve the
// date range, fill the request, call the cached client, persist the raw
// response under the reports category.
func (s *Service) runReport(ctx context.Context, request *api.RunReportRequest, dr daterange.Spec, operation string, opts Options) (*api.RunReportResponse, error) {
	client, err := s.registry.GA4(ctx)
	if err != nil {
		return nil, err
	}

	r := rangeOrDefault(dr).ForGA4()
	request.Property = s.registry.PropertyID()
	request.DateRanges = []api.DateRange{{StartDate: r.Start, EndDate: r.End}}

	response, err := client.RunReport(ctx, request)
	if err != nil {
		return nil, err
	}

	if err := s.persist(opts, response, store.CategoryReports, operation); err != nil {
		return nil, err
	}
	return response, nil
}

// PageViews reports page views and viewers per day and page path.
func (s *Service) PageViews(ctx context.Context, dr daterange.Spec, opts Options) (*api.RunReportResponse, error) {
	request := &api.RunReportRequest{
		Dimensions: []api.Dimension{{Name: "date"}, {Name: "pagePath"}},
		Metrics:    []api.Metric{{Name: "screenPageViews"}, {Name: "activeUsers"}},
	}
	return s.runReport(ctx, request, dr, "page_views", opts)
}

// ActiveUsers reports active and new users per day.
func (s *Service) ActiveUsers(ctx context.Context, dr daterange.Spec, opts Options) (*api.RunReportResponse, error) {
	request := &api.RunReportRequest{
		Dimensions: []api.Dimension{{Name: "date"}},
		Metrics:    []api.Metric{{Name: "activeUsers"}, {Name: "newUsers"}},
	}
	return s.runReport(ctx, request, dr, "active_users", opts)
}

// TrafficSources breaks sessions down by source and medium.
func (s *Service) TrafficSources(ctx context.Context, dr daterange.Spec, opts Options) (*api.RunReportResponse, error) {
	request := &api.RunReportRequest{
		Dimensions: []api.Dimension{{Name: "sessionSource"}, {Name: "sessionMedium"}},
		Metrics:    []api.Metric{{Name: "sessions"}, {Name: "activeUsers"}},
	}
	return s.runReport(ctx, request, dr, "traffic_sources", opts)
}

// Demographics breaks active users down by country and city.
func (s *Service) Demographics(ctx context.Context, dr daterange.Spec, opts Options) (*api.RunReportResponse, error) {
	request := &api.RunReportRequest{
		Dimensions: []api.Dimension{{Name: "country"}, {Name: "city"}},
		Metrics:    []api.Metric{{Name: "activeUsers"}},
	}
	return s.runReport(ctx, request, dr, "user_demographics", opts)
}

// DeviceBreakdown breaks sessions down by device category and OS.
func (s *Service) DeviceBreakdown(ctx context.Context, dr daterange.Spec, opts Options) (*api.RunReportResponse, error) {
	request := &api.RunReportRequest{
		Dimensions: []api.Dimension{{Name: "deviceCategory"}, {Name: "operatingSystem"}},
		Metrics:    []api.Metric{{Name: "activeUsers"}, {Name: "sessions"}},
	}
	return s.runReport(ctx, request, dr, "device_breakdown", opts)
}

// TopPages lists the most viewed pages, busiest first.
func (s *Service) TopPages(ctx context.Context, dr daterange.Spec, limit int64, opts Options) (*api.RunReportResponse, error) {
	request := &api.RunReportRequest{
		Dimensions: []api.Dimension{{Name: "pagePath"}},
		Metrics:    []api.Metric{{Name: "screenPageViews"}},
		OrderBys: []api.OrderBy{
			{Desc: true, Metric: &api.MetricOrderBy{MetricName: "screenPageViews"}},
		},
		Limit: limit,
	}
	return s.runReport(ctx, request, dr, "top_pages", opts)
}

// Events lists event volume per event name, busiest first.
func (s *Service) Events(ctx context.Context, dr daterange.Spec, opts Options) (*api.RunReportResponse, error) {
	request := &api.RunReportRequest{
		Dimensions: []api.Dimension{{Name: "eventName"}},
		Metrics:    []api.Metric{{Name: "eventCount"}, {Name: "activeUsers"}},
		OrderBys: []api.OrderBy{
			{Desc: true, Metric: &api.MetricOrderBy{MetricName: "eventCount"}},
		},
	}
	return s.runReport(ctx, request, dr, "events", opts)
}

// CustomReport runs a report with caller-chosen dimensions and metrics.
func (s *Service) CustomReport(ctx context.Context, dimensions, metrics []string, dr daterange.Spec, limit int64, opts Options) (*api.RunReportResponse, error) {
	request := &api.RunReportRequest{Limit: limit}
	for _, name := range dimensions {
		request.Dimensions = append(request.Dimensions, api.Dimension{Name: name})
	}
	for _, name := range metrics {
		request.Metrics = append(request.Metrics, api.Metric{Name: name})
	}
	return s.runReport(ctx, request, dr, "custom_report", opts)
}

// Realtime snapshots the users currently on the site, by country and
// device. Persisted under the realtime category.
func (s *Service) Realtime(ctx context.Context, opts Options) (*api.RunReportResponse, error) {
	client, err := s.registry.GA4(ctx)
	if err != nil {
		return nil, err
	}

	request := &api.RunRealtimeReportRequest{
		Property:   s.registry.PropertyID(),
		Dimensions: []api.Dimension{{Name: "country"}, {Name: "deviceCategory"}},
		Metrics:    []api.Metric{{Name: "activeUsers"}},
	}

	response, err := client.RunRealtimeReport(ctx, request)
	if err != nil {
		return nil, err
	}

	if err := s.persist(opts, response, store.CategoryRealtime, "realtime_users"); err != nil {
		return nil, err
	}
	return response, nil
}

// Metadata fetches the property's available dimensions and metrics.
func (s *Service) Metadata(ctx context.Context, opts Options) (*api.MetadataResponse, error) {
	client, err := s.registry.GA4(ctx)
	if err != nil {
		return nil, err
	}

	response, err := client.GetMetadata(ctx, s.registry.PropertyID())
	if err != nil {
		return nil, err
	}

	if err := s.persist(opts, response, store.CategoryReports, "property_metadata"); err != nil {
		return nil, err
	}
	return response, nil
}
