package report

import (
	"context"

	searchconsole "google.golang.org/api/searchconsole/v1"

	"siteinsight/internal/api"
	"siteinsight/internal/daterange"
	"siteinsight/internal/store"
)

// Overview bundles the constituent GA4 reports of a site overview, keyed
// by logical section.
type Overview struct {
	PageViews      *api.RunReportResponse `json:"pageViews"`
	TrafficSources *api.RunReportResponse `json:"trafficSources"`
	Demographics   *api.RunReportResponse `json:"demographics"`
	Devices        *api.RunReportResponse `json:"devices"`
	Events         *api.RunReportResponse `json:"events"`
}

// SiteOverview runs the page views, traffic sources, demographics, device
// and event reports in sequence and persists the combined bundle once.
// Intermediate saves are suppressed; a failure in any step aborts the
// whole analysis and nothing is persisted.
func (s *Service) SiteOverview(ctx context.Context, dr daterange.Spec, opts Options) (*Overview, error) {
	dr = rangeOrDefault(dr)
	quiet := Options{Persist: false}

	pageViews, err := s.PageViews(ctx, dr, quiet)
	if err != nil {
		return nil, err
	}
	trafficSources, err := s.TrafficSources(ctx, dr, quiet)
	if err != nil {
		return nil, err
	}
	demographics, err := s.Demographics(ctx, dr, quiet)
	if err != nil {
		return nil, err
	}
	devices, err := s.DeviceBreakdown(ctx, dr, quiet)
	if err != nil {
		return nil, err
	}
	events, err := s.Events(ctx, dr, quiet)
	if err != nil {
		return nil, err
	}

	overview := &Overview{
		PageViews:      pageViews,
		TrafficSources: trafficSources,
		Demographics:   demographics,
		Devices:        devices,
		Events:         events,
	}

	if err := s.persist(opts, overview, store.CategoryReports, "site_overview"); err != nil {
		return nil, err
	}
	return overview, nil
}

// SearchOverview bundles the constituent Search Console reports, keyed by
// logical section.
type SearchOverview struct {
	Totals     *searchconsole.SearchAnalyticsQueryResponse `json:"totals"`
	TopQueries *searchconsole.SearchAnalyticsQueryResponse `json:"topQueries"`
	TopPages   *searchconsole.SearchAnalyticsQueryResponse `json:"topPages"`
}

// SearchOverviewReport runs the dimensionless totals, top queries and top
// pages queries in sequence and persists the combined bundle once. Same
// abort semantics as SiteOverview.
func (s *Service) SearchOverviewReport(ctx context.Context, dr daterange.Spec, opts Options) (*SearchOverview, error) {
	dr = rangeOrDefault(dr)
	quiet := Options{Persist: false}

	totals, err := s.SearchAnalytics(ctx, nil, dr, 1, quiet)
	if err != nil {
		return nil, err
	}
	topQueries, err := s.TopQueries(ctx, dr, 25, quiet)
	if err != nil {
		return nil, err
	}
	topPages, err := s.TopSearchPages(ctx, dr, 25, quiet)
	if err != nil {
		return nil, err
	}

	overview := &SearchOverview{
		Totals:     totals,
		TopQueries: topQueries,
		TopPages:   topPages,
	}

	if err := s.persist(opts, overview, store.CategorySearchConsole, "search_overview"); err != nil {
		return nil, err
	}
	return overview, nil
}
