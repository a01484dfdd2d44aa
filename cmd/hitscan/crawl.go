package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/hitscan/internal/browser"
	"github.com/nao1215/hitscan/internal/capture"
	"github.com/nao1215/hitscan/internal/cascade"
	"github.com/nao1215/hitscan/internal/config"
	"github.com/nao1215/hitscan/internal/database"
	"github.com/nao1215/hitscan/internal/extract"
	"github.com/nao1215/hitscan/internal/metrics"
	"github.com/nao1215/hitscan/internal/model"
	"github.com/nao1215/hitscan/internal/pipeline"
	"github.com/nao1215/hitscan/internal/report"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <listing-url>...",
		Short: "Crawl listing pages and collect bonus hits",
		Long: `Crawl opens each listing page, visits every machine card and collects
the BIG/REG bonus hits of each machine number through a cascade of
fallbacks (detail links, DOM attributes, widget probes, page text).

Results:
  hits_<timestamp>.csv          one row per hit
  hits_summary_<timestamp>.csv  count and mean game count per machine

Both files are UTF-8 with BOM. A summary table is printed and the run is
stored in the history database (see "hitscan history").

Examples:
  # Crawl one listing
  hitscan crawl https://hall.example.com/nc-v05-001.php

  # Crawl at most 10 cards and write CSV files to ./out
  hitscan crawl -n 10 -d out https://hall.example.com/nc-v05-001.php

  # Print a Markdown report to a file
  hitscan crawl --markdown -o report.md https://hall.example.com/nc-v05-001.php`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Crawl behavior flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each HTTP request")
	cmd.Flags().Duration("nav-timeout", config.DefaultNavigationTimeout,
		"Timeout for each attempt to open a detail view")
	cmd.Flags().IntP("per-card-limit", "l", config.DefaultPerCardLimit,
		"Maximum detail visits per fallback tier and card (0 for no limit)")
	cmd.Flags().IntP("max-cards", "n", 0,
		"Maximum cards crawled per listing (0 for all)")
	cmd.Flags().Int("retries", config.DefaultDetailRetries,
		"Retries of a failed detail navigation")
	cmd.Flags().Duration("retry-delay", config.DefaultRetryDelay,
		"Pause between navigation retries")
	cmd.Flags().String("canonical-template", config.DefaultCanonicalTemplate,
		"Detail URL of a machine number; {id} is replaced")
	cmd.Flags().IntP("sessions", "s", config.DefaultSessions,
		"Number of listings crawled concurrently")
	cmd.Flags().Int("concurrency", 0,
		"Documents parsed concurrently (0 for one per CPU)")
	cmd.Flags().String("user-agent", "",
		"User-Agent header (default: a desktop browser)")

	// Capture flags
	cmd.Flags().Int("ring-capacity", config.DefaultRingCapacity,
		"Captured responses kept between extractions")
	cmd.Flags().Int("max-response-bytes", config.DefaultMaxResponseBytes,
		"Largest response body captured")
	cmd.Flags().StringSlice("keyword", nil,
		"Extra URL fragment that marks a data endpoint (repeatable)")
	cmd.Flags().String("mirror-dir", "",
		"Copy every captured response into this directory")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .hitscan in current or home directory)")

	// Output flags
	cmd.Flags().StringP("output-dir", "d", config.DefaultOutputDir,
		"Directory for the CSV files")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write the report to this file instead of stdout")
	cmd.Flags().String("metrics-file", "",
		"Write crawl counters in the Prometheus text format to this file")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")
	cmd.Flags().Bool("no-db", false,
		"Do not store the run in the history database")

	return cmd
}

func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// buildConfig creates a Config from cobra command flags and the
// configuration file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.StartURLs = args
	flags := cmd.Flags()

	var err error
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.NavigationTimeout, err = flags.GetDuration("nav-timeout"); err != nil {
		return nil, err
	}
	if cfg.PerCardLimit, err = flags.GetInt("per-card-limit"); err != nil {
		return nil, err
	}
	if cfg.MaxCards, err = flags.GetInt("max-cards"); err != nil {
		return nil, err
	}
	if cfg.DetailRetries, err = flags.GetInt("retries"); err != nil {
		return nil, err
	}
	if cfg.RetryDelay, err = flags.GetDuration("retry-delay"); err != nil {
		return nil, err
	}
	if cfg.CanonicalTemplate, err = flags.GetString("canonical-template"); err != nil {
		return nil, err
	}
	if cfg.Sessions, err = flags.GetInt("sessions"); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.RingCapacity, err = flags.GetInt("ring-capacity"); err != nil {
		return nil, err
	}
	if cfg.MaxResponseBytes, err = flags.GetInt("max-response-bytes"); err != nil {
		return nil, err
	}
	if cfg.ResponseKeywords, err = flags.GetStringSlice("keyword"); err != nil {
		return nil, err
	}
	if cfg.MirrorDir, err = flags.GetString("mirror-dir"); err != nil {
		return nil, err
	}
	if cfg.OutputDir, err = flags.GetString("output-dir"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.MetricsFile, err = flags.GetString("metrics-file"); err != nil {
		return nil, err
	}
	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}
	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB
	cfg.Verbose, cfg.LogJSON = getLogFlags(cmd)

	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	// An explicit path must exist; the implicit lookup may find nothing.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		if cfg.SiteConfigs, err = config.LoadConfigFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{Sites: make(map[string]config.SiteConfig)}
	}
	return cfg, nil
}

// runCrawl crawls every listing, then aggregates, stores and writes the
// merged result. Partial results are written when ctx is cancelled.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer) error {
	logger.Info("starting crawl",
		"start_urls", cfg.StartURLs,
		"sessions", cfg.Sessions,
		"save_to_db", cfg.SaveToDB,
	)

	var db *database.CrawlDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
	}

	m := metrics.New()
	var sessionSeq atomic.Int32
	bp := pipeline.NewBatchProcessor(
		func(startURL string) *pipeline.Pipeline {
			seq := int(sessionSeq.Add(1))
			p := pipeline.New(pipeline.WithLogger(logger))
			p.AddStep(newCrawlStep(cfg, startURL, seq, m, logger))
			return p
		},
		pipeline.WithConcurrency(cfg.Sessions),
		pipeline.WithBatchLogger(logger),
	)

	fmt.Fprintf(stderr, "Crawling %d listing(s)...\n", len(cfg.StartURLs))
	startTime := time.Now()
	reports, err := bp.ProcessBatch(ctx, cfg.StartURLs)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("batch ended early", "error", err)
	}
	if ctx.Err() != nil {
		logger.Warn("crawl interrupted, writing partial results")
	}
	crawlReport := pipeline.Merge(cfg.StartURLs, reports)

	// The finishing steps run even after an interrupt.
	finishCtx := context.WithoutCancel(ctx)
	export := pipeline.NewExportStep(cfg.OutputDir, logger)
	finish := pipeline.New(pipeline.WithLogger(logger), pipeline.WithContinueOnError(true))
	finish.AddStep(pipeline.NewAggregateStep())
	if db != nil {
		finish.AddStep(pipeline.NewStoreStep(db, logger))
	}
	finish.AddStep(export)
	if cfg.MetricsFile != "" {
		finish.AddStep(pipeline.NewMetricsStep(m, cfg.MetricsFile))
	}
	// Step errors are recorded in the report.
	_ = finish.Execute(finishCtx, crawlReport)

	fmt.Fprintf(stderr, "Crawl finished in %s: %s\n",
		time.Since(startTime).Round(time.Millisecond), crawlReport.Status)
	if files := export.Files(); files.Detail != "" {
		fmt.Fprintf(stderr, "Wrote %s\n", files.Detail)
		if files.Summary != "" {
			fmt.Fprintf(stderr, "Wrote %s\n", files.Summary)
		}
	}

	return outputReport(cfg, crawlReport, stdout)
}

// newCrawlStep wires a browsing session, its capture ring and the cascade
// for one listing, with the site settings of the listing's host.
func newCrawlStep(cfg *config.Config, startURL string, seq int, m *metrics.Metrics, logger *slog.Logger) *pipeline.CrawlStep {
	site := cfg.SiteConfigs.SiteConfigFor(startURL)
	logger = logger.With("listing", startURL)

	keywords := append(capture.DefaultKeywords(), cfg.ResponseKeywords...)
	keywords = append(keywords, site.ResponseKeywords...)

	var ringOpts []capture.RingOption
	ringOpts = append(ringOpts, capture.WithRingLogger(logger))
	if cfg.MirrorDir != "" {
		mirror, err := capture.NewFileMirror(filepath.Join(cfg.MirrorDir, strconv.Itoa(seq)))
		if err != nil {
			logger.Warn("response mirror disabled", "error", err)
		} else {
			ringOpts = append(ringOpts, capture.WithMirror(mirror))
		}
	}
	// Validate guarantees a positive capacity.
	ring, err := capture.NewRing(cfg.RingCapacity, ringOpts...)
	if err != nil {
		panic(err)
	}

	sessionOpts := []browser.Option{
		browser.WithTimeout(cfg.Timeout),
		browser.WithMaxBodySize(cfg.MaxBodySize),
		browser.WithAdmission(capture.NewAdmission(keywords, cfg.MaxResponseBytes)),
		browser.WithMaxCards(firstPositive(site.MaxCards, cfg.MaxCards)),
		browser.WithLogger(logger),
	}
	if cfg.UserAgent != "" {
		sessionOpts = append(sessionOpts, browser.WithUserAgent(cfg.UserAgent))
	}
	if site.Cookie != "" {
		sessionOpts = append(sessionOpts, browser.WithCookie(site.Cookie))
	}
	if len(site.Headers) > 0 {
		sessionOpts = append(sessionOpts, browser.WithHeaders(site.Headers))
	}
	if len(site.CardSelectors) > 0 {
		sessionOpts = append(sessionOpts, browser.WithCardSelectors(site.CardSelectors))
	}
	if len(site.IgnorePatterns) > 0 {
		sessionOpts = append(sessionOpts, browser.WithIgnorePatterns(site.IgnorePatterns))
	}
	if len(site.FollowPatterns) > 0 {
		sessionOpts = append(sessionOpts, browser.WithFollowPatterns(site.FollowPatterns))
	}
	session := browser.New(ring, sessionOpts...)

	return pipeline.NewCrawlStep(session, ring,
		pipeline.WithCrawlLogger(logger),
		pipeline.WithCrawlObserver(m),
		pipeline.WithCascadeOptions(
			cascade.WithConfig(cascadeConfig(cfg, site)),
			cascade.WithLogger(logger),
			cascade.WithObserver(m),
			cascade.WithExtractor(extract.NewExtractor(
				extract.WithLogger(logger),
				extract.WithConcurrency(cfg.Concurrency),
			)),
		),
	)
}

// cascadeConfig merges the global settings with the site overrides.
func cascadeConfig(cfg *config.Config, site config.SiteConfig) cascade.Config {
	cc := cascade.Config{
		PerCardLimit:      firstPositive(site.PerCardLimit, cfg.PerCardLimit),
		CanonicalTemplate: cfg.CanonicalTemplate,
		DeepLinkMarkers:   cascade.DefaultDeepLinkMarkers(),
		MachineDataMarker: cascade.DefaultMachineDataMarker,
		NavigationTimeout: cfg.NavigationTimeout,
		DetailRetries:     cfg.DetailRetries,
		RetryDelay:        cfg.RetryDelay,
		Probe: cascade.ProbeGrid{
			Cols:      cfg.ProbeCols,
			Rows:      cfg.ProbeRows,
			Pause:     cfg.ProbePause,
			MaxClicks: cfg.ProbeMaxClicks,
		},
	}
	if site.CanonicalTemplate != "" {
		cc.CanonicalTemplate = site.CanonicalTemplate
	}
	if site.MachineDataMarker != "" {
		cc.MachineDataMarker = site.MachineDataMarker
	}
	if len(cfg.DeepLinkMarkers) > 0 {
		cc.DeepLinkMarkers = cfg.DeepLinkMarkers
	}
	if len(site.DeepLinkMarkers) > 0 {
		cc.DeepLinkMarkers = site.DeepLinkMarkers
	}
	return cc
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

// outputReport writes the report in the requested format to the report
// file or stdout.
func outputReport(cfg *config.Config, crawlReport *model.CrawlReport, stdout io.Writer) (err error) {
	output := stdout
	if cfg.ReportFile != "" {
		if dir := filepath.Dir(cfg.ReportFile); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		output = f
	}

	var w report.Writer
	switch {
	case cfg.JSONReport:
		w = report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		w = report.NewMarkdownWriter(output)
	default:
		w = report.NewTableWriter(output)
	}
	if _, err := w.Write(crawlReport); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
