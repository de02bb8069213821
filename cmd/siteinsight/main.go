package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"siteinsight/internal/api"
	"siteinsight/internal/cache"
	"siteinsight/internal/daterange"
	"siteinsight/internal/export"
	"siteinsight/internal/preset"
	"siteinsight/internal/report"
	"siteinsight/internal/settings"
	"siteinsight/internal/store"
)

var (
	version = "0.1.0"
	rootCmd = &cobra.Command{
		Use:   "siteinsight",
		Short: "Site analytics tool over GA4, Search Console and the Indexing API",
		Long: `siteinsight runs Google Analytics 4 reports, Search Console queries and
Indexing API operations for one configured property, saving every raw
response as a timestamped JSON artifact under ./results.

Examples:
  siteinsight settings check
  siteinsight report traffic_sources --range 7d
  siteinsight overview --range 30d
  siteinsight search queries --range 28d
  siteinsight index publish https://example.com/page --type URL_UPDATED
  siteinsight results list --category reports`,
		Version: version,
	}

	settingsCmd = &cobra.Command{
		Use:   "settings",
		Short: "Inspect runtime configuration",
	}

	reportCmd = &cobra.Command{
		Use:   "report <name>",
		Short: "Run a GA4 report",
		Long: `Run a named GA4 report. Available reports:
  page_views, active_users, traffic_sources, demographics, devices,
  top_pages, events, metadata, custom`,
		Args: cobra.ExactArgs(1),
	}

	realtimeCmd = &cobra.Command{
		Use:   "realtime",
		Short: "Snapshot users currently on the site",
	}

	overviewCmd = &cobra.Command{
		Use:   "overview",
		Short: "Run the combined site overview analysis",
	}

	searchCmd = &cobra.Command{
		Use:   "search",
		Short: "Search Console queries",
	}

	indexCmd = &cobra.Command{
		Use:   "index",
		Short: "Indexing API operations",
	}

	resultsCmd = &cobra.Command{
		Use:   "results",
		Short: "Browse saved result artifacts",
	}

	presetCmd = &cobra.Command{
		Use:   "preset",
		Short: "Manage saved report presets",
	}

	exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Export saved results for SQL analysis",
	}

	cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "Manage the GA4 response cache",
	}
)

// newService builds the report service from the global flags.
func newService(cmd *cobra.Command) (*report.Service, error) {
	var cacheClient api.CacheInterface
	if useCache, _ := cmd.Flags().GetBool("cache"); useCache {
		c, err := cache.New("default")
		if err != nil {
			return nil, fmt.Errorf("failed to open cache: %w", err)
		}
		cacheClient = c
	}

	registry := api.NewRegistry(cacheClient)
	st := store.New(settings.Load().ResultsDir)
	return report.NewService(registry, st), nil
}

func rangeSpec(cmd *cobra.Command) daterange.Spec {
	rangeToken, _ := cmd.Flags().GetString("range")
	start, _ := cmd.Flags().GetString("start")
	end, _ := cmd.Flags().GetString("end")
	if start != "" || end != "" {
		return daterange.Explicit(start, end)
	}
	if rangeToken != "" {
		return daterange.Shorthand(rangeToken)
	}
	return daterange.Spec{}
}

func callOptions(cmd *cobra.Command) report.Options {
	opts := report.DefaultOptions()
	if noSave, _ := cmd.Flags().GetBool("no-save"); noSave {
		opts.Persist = false
	}
	return opts
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func init() {
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().Bool("cache", false, "Cache GA4 responses in DuckDB")
	rootCmd.PersistentFlags().Bool("no-save", false, "Do not persist the response to the results directory")
	rootCmd.PersistentFlags().String("range", "", `Date range shorthand, e.g. "7d"`)
	rootCmd.PersistentFlags().String("start", "", "Explicit start date")
	rootCmd.PersistentFlags().String("end", "", "Explicit end date")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	}

	// settings check
	settingsCmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Validate credentials and show resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := settings.Load()
			validation := settings.Validate()

			fmt.Printf("Property ID:        %s\n", orUnset(s.PropertyID))
			fmt.Printf("Client email:       %s\n", orUnset(s.ClientEmail))
			fmt.Printf("Private key:        %s\n", orUnset(mask(s.PrivateKey)))
			fmt.Printf("Default date range: %s\n", s.DefaultDateRange)
			fmt.Printf("Site URL:           %s\n", orUnset(s.SiteURL))
			fmt.Printf("Results directory:  %s\n", s.ResultsDir)

			if !validation.Valid {
				fmt.Println("\nMissing configuration:")
				for _, e := range validation.Errors {
					fmt.Printf("  - %s\n", e)
				}
				return fmt.Errorf("settings are incomplete")
			}
			fmt.Println("\nSettings OK")
			return nil
		},
	})

	// report <name>
	reportCmd.Flags().Int64("limit", 0, "Row limit")
	reportCmd.Flags().StringSlice("dimensions", nil, "Dimensions for the custom report")
	reportCmd.Flags().StringSlice("metrics", nil, "Metrics for the custom report")
	reportCmd.RunE = func(cmd *cobra.Command, args []string) error {
		svc, err := newService(cmd)
		if err != nil {
			return err
		}
		ctx := context.Background()
		dr := rangeSpec(cmd)
		opts := callOptions(cmd)
		limit, _ := cmd.Flags().GetInt64("limit")

		var response interface{}
		switch args[0] {
		case "page_views":
			response, err = svc.PageViews(ctx, dr, opts)
		case "active_users":
			response, err = svc.ActiveUsers(ctx, dr, opts)
		case "traffic_sources":
			response, err = svc.TrafficSources(ctx, dr, opts)
		case "demographics":
			response, err = svc.Demographics(ctx, dr, opts)
		case "devices":
			response, err = svc.DeviceBreakdown(ctx, dr, opts)
		case "top_pages":
			if limit == 0 {
				limit = 25
			}
			response, err = svc.TopPages(ctx, dr, limit, opts)
		case "events":
			response, err = svc.Events(ctx, dr, opts)
		case "metadata":
			response, err = svc.Metadata(ctx, opts)
		case "custom":
			dimensions, _ := cmd.Flags().GetStringSlice("dimensions")
			metrics, _ := cmd.Flags().GetStringSlice("metrics")
			response, err = svc.CustomReport(ctx, dimensions, metrics, dr, limit, opts)
		default:
			return fmt.Errorf("unknown report %q", args[0])
		}
		if err != nil {
			return err
		}
		return printJSON(response)
	}

	// realtime
	realtimeCmd.RunE = func(cmd *cobra.Command, args []string) error {
		svc, err := newService(cmd)
		if err != nil {
			return err
		}
		response, err := svc.Realtime(context.Background(), callOptions(cmd))
		if err != nil {
			return err
		}
		return printJSON(response)
	}

	// overview
	overviewCmd.RunE = func(cmd *cobra.Command, args []string) error {
		svc, err := newService(cmd)
		if err != nil {
			return err
		}
		overview, err := svc.SiteOverview(context.Background(), rangeSpec(cmd), callOptions(cmd))
		if err != nil {
			return err
		}
		return printJSON(overview)
	}

	// search queries|pages|query|inspect|overview
	searchQueriesCmd := &cobra.Command{
		Use:   "queries",
		Short: "Top search queries",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(cmd)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt64("limit")
			response, err := svc.TopQueries(context.Background(), rangeSpec(cmd), limit, callOptions(cmd))
			if err != nil {
				return err
			}
			return printJSON(response)
		},
	}
	searchQueriesCmd.Flags().Int64("limit", 25, "Row limit")

	searchPagesCmd := &cobra.Command{
		Use:   "pages",
		Short: "Top pages by search traffic",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(cmd)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt64("limit")
			response, err := svc.TopSearchPages(context.Background(), rangeSpec(cmd), limit, callOptions(cmd))
			if err != nil {
				return err
			}
			return printJSON(response)
		},
	}
	searchPagesCmd.Flags().Int64("limit", 25, "Row limit")

	searchQueryCmd := &cobra.Command{
		Use:   "query",
		Short: "Search analytics query with custom dimensions",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(cmd)
			if err != nil {
				return err
			}
			dimensions, _ := cmd.Flags().GetStringSlice("dimensions")
			limit, _ := cmd.Flags().GetInt64("limit")
			response, err := svc.SearchAnalytics(context.Background(), dimensions, rangeSpec(cmd), limit, callOptions(cmd))
			if err != nil {
				return err
			}
			return printJSON(response)
		},
	}
	searchQueryCmd.Flags().StringSlice("dimensions", nil, "Dimensions (query, page, country, device, date)")
	searchQueryCmd.Flags().Int64("limit", 100, "Row limit")

	searchInspectCmd := &cobra.Command{
		Use:   "inspect <url>",
		Short: "Inspect the index status of a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(cmd)
			if err != nil {
				return err
			}
			response, err := svc.InspectURL(context.Background(), args[0], callOptions(cmd))
			if err != nil {
				return err
			}
			return printJSON(response)
		},
	}

	searchOverviewCmd := &cobra.Command{
		Use:   "overview",
		Short: "Run the combined search overview analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(cmd)
			if err != nil {
				return err
			}
			overview, err := svc.SearchOverviewReport(context.Background(), rangeSpec(cmd), callOptions(cmd))
			if err != nil {
				return err
			}
			return printJSON(overview)
		},
	}

	searchCmd.AddCommand(searchQueriesCmd, searchPagesCmd, searchQueryCmd, searchInspectCmd, searchOverviewCmd)

	// index publish|status
	indexPublishCmd := &cobra.Command{
		Use:   "publish <url>",
		Short: "Notify Google that a URL was updated or deleted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(cmd)
			if err != nil {
				return err
			}
			notificationType, _ := cmd.Flags().GetString("type")
			response, err := svc.PublishURL(context.Background(), args[0], notificationType, callOptions(cmd))
			if err != nil {
				return err
			}
			return printJSON(response)
		},
	}
	indexPublishCmd.Flags().String("type", api.NotificationURLUpdated, "URL_UPDATED or URL_DELETED")

	indexStatusCmd := &cobra.Command{
		Use:   "status <url>",
		Short: "Show the latest notification metadata for a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(cmd)
			if err != nil {
				return err
			}
			response, err := svc.NotificationStatus(context.Background(), args[0], callOptions(cmd))
			if err != nil {
				return err
			}
			return printJSON(response)
		},
	}

	indexCmd.AddCommand(indexPublishCmd, indexStatusCmd)

	// results list|latest|show
	resultsListCmd := &cobra.Command{
		Use:   "list",
		Short: "List saved artifacts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			st := store.New(settings.Load().ResultsDir)
			category, _ := cmd.Flags().GetString("category")
			limit, _ := cmd.Flags().GetInt("limit")
			paths, err := st.List(category, limit)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				fmt.Println("No results found")
				return nil
			}
			for _, p := range paths {
				fmt.Println(p)
			}
			return nil
		},
	}
	resultsListCmd.Flags().String("category", store.CategoryReports, "Result category")
	resultsListCmd.Flags().Int("limit", 0, "Maximum entries (0 = all)")

	resultsLatestCmd := &cobra.Command{
		Use:   "latest",
		Short: "Show the newest artifact, optionally filtered by operation",
		RunE: func(cmd *cobra.Command, args []string) error {
			st := store.New(settings.Load().ResultsDir)
			category, _ := cmd.Flags().GetString("category")
			operation, _ := cmd.Flags().GetString("operation")
			envelope, err := st.Latest(category, operation)
			if err != nil {
				return err
			}
			if envelope == nil {
				fmt.Println("No matching result")
				return nil
			}
			return printJSON(envelope)
		},
	}
	resultsLatestCmd.Flags().String("category", store.CategoryReports, "Result category")
	resultsLatestCmd.Flags().String("operation", "", "Filter by operation name")

	resultsShowCmd := &cobra.Command{
		Use:   "show <path>",
		Short: "Show a saved artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := store.New(settings.Load().ResultsDir)
			envelope, err := st.Load(args[0])
			if err != nil {
				return err
			}
			if envelope == nil {
				return fmt.Errorf("no result at %s", args[0])
			}
			return printJSON(envelope)
		},
	}

	resultsCmd.AddCommand(resultsListCmd, resultsLatestCmd, resultsShowCmd)

	// preset list|save|delete|run
	presetListCmd := &cobra.Command{
		Use:   "list",
		Short: "List saved presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := preset.List()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Println("No presets saved")
				return nil
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}

	presetSaveCmd := &cobra.Command{
		Use:   "save <name>",
		Short: "Save a report configuration as a preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reportName, _ := cmd.Flags().GetString("report")
			dimensions, _ := cmd.Flags().GetStringSlice("dimensions")
			metrics, _ := cmd.Flags().GetStringSlice("metrics")
			rangeToken, _ := cmd.Flags().GetString("range")
			limit, _ := cmd.Flags().GetInt64("limit")
			description, _ := cmd.Flags().GetString("description")

			p := &preset.Preset{
				Name:        args[0],
				Description: description,
				Report:      reportName,
				Dimensions:  dimensions,
				Metrics:     metrics,
				DateRange:   rangeToken,
				Limit:       limit,
			}
			if err := preset.Save(p); err != nil {
				return err
			}
			fmt.Printf("Saved preset %q\n", p.Name)
			return nil
		},
	}
	presetSaveCmd.Flags().String("report", "custom", "Report name")
	presetSaveCmd.Flags().StringSlice("dimensions", nil, "Dimensions for the custom report")
	presetSaveCmd.Flags().StringSlice("metrics", nil, "Metrics for the custom report")
	presetSaveCmd.Flags().Int64("limit", 0, "Row limit")
	presetSaveCmd.Flags().String("description", "", "Preset description")

	presetDeleteCmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := preset.Delete(args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted preset %q\n", args[0])
			return nil
		},
	}

	presetRunCmd := &cobra.Command{
		Use:   "run <name>",
		Short: "Run a saved preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := preset.Load(args[0])
			if err != nil {
				return err
			}
			svc, err := newService(cmd)
			if err != nil {
				return err
			}

			ctx := context.Background()
			dr := daterange.Spec{}
			if p.DateRange != "" {
				dr = daterange.Shorthand(p.DateRange)
			}
			opts := callOptions(cmd)
			opts.ExtraInfo = p.Name

			var response interface{}
			switch p.Report {
			case "custom", "":
				response, err = svc.CustomReport(ctx, p.Dimensions, p.Metrics, dr, p.Limit, opts)
			case "page_views":
				response, err = svc.PageViews(ctx, dr, opts)
			case "active_users":
				response, err = svc.ActiveUsers(ctx, dr, opts)
			case "traffic_sources":
				response, err = svc.TrafficSources(ctx, dr, opts)
			case "demographics":
				response, err = svc.Demographics(ctx, dr, opts)
			case "devices":
				response, err = svc.DeviceBreakdown(ctx, dr, opts)
			case "top_pages":
				response, err = svc.TopPages(ctx, dr, p.Limit, opts)
			case "events":
				response, err = svc.Events(ctx, dr, opts)
			default:
				return fmt.Errorf("preset %q names unknown report %q", p.Name, p.Report)
			}
			if err != nil {
				return err
			}
			preset.Touch(p.Name)
			return printJSON(response)
		},
	}

	presetCmd.AddCommand(presetListCmd, presetSaveCmd, presetDeleteCmd, presetRunCmd)

	// export duckdb
	exportDuckDBCmd := &cobra.Command{
		Use:   "duckdb",
		Short: "Load saved results into a DuckDB database",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, _ := cmd.Flags().GetString("db")
			resultsDir := settings.Load().ResultsDir

			parser := export.NewParser(dbPath, resultsDir)
			loaded, err := parser.ParseAll(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("Loaded %d result files into %s\n", loaded, dbPath)
			return nil
		},
	}
	exportDuckDBCmd.Flags().String("db", filepath.Join(".", "results.db"), "DuckDB database path")

	// cache stats|cleanup
	cacheStatsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache hit/miss statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cache.New("default")
			if err != nil {
				return err
			}
			defer c.Close()
			stats, err := c.GetStats(context.Background())
			if err != nil {
				return err
			}
			return printJSON(stats)
		},
	}

	cacheCleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove expired cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cache.New("default")
			if err != nil {
				return err
			}
			defer c.Close()
			deleted, err := c.CleanupExpired(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d expired entries\n", deleted)
			return nil
		},
	}

	cacheCmd.AddCommand(cacheStatsCmd, cacheCleanupCmd)

	rootCmd.AddCommand(settingsCmd, reportCmd, realtimeCmd, overviewCmd,
		searchCmd, indexCmd, resultsCmd, presetCmd, exportCmd, cacheCmd)
	exportCmd.AddCommand(exportDuckDBCmd)
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func mask(key string) string {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return ""
	}
	return fmt.Sprintf("(set, %d bytes)", len(trimmed))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
