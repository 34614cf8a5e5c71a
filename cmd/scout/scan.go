package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FranksOps/scout/internal/config"
	"github.com/FranksOps/scout/internal/filter"
	"github.com/FranksOps/scout/internal/metrics"
	"github.com/FranksOps/scout/internal/pipeline"
	"github.com/FranksOps/scout/internal/placement"
	"github.com/FranksOps/scout/internal/query"
	"github.com/FranksOps/scout/internal/report"
	"github.com/FranksOps/scout/internal/serp"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run every query for the selected sectors and print surviving links",
		Args:  cobra.NoArgs,
		RunE:  runScan,
	}

	f := cmd.Flags()
	f.StringSlice("sector", nil, "sector to scan (repeatable; default all)")
	f.String("region", "", "region or city appended to the first four query variants")
	f.Duration("delay", config.DefaultDelay, "pause after every query")
	f.Float64("jitter", 0, "randomize the pause by up to this fraction of --delay (0-1)")
	f.Duration("timeout", serp.DefaultTimeout, "per-request timeout")
	f.String("fingerprint", "go", "TLS fingerprint: go, chrome, firefox, safari, random")
	f.Bool("cookies", false, "keep cookies set by the search engine across queries")
	f.Bool("rotate-ua", false, "rotate the User-Agent per request instead of sending a fixed one")
	f.StringSlice("proxy", nil, "route searches through these proxies in turn (repeatable)")
	f.String("proxy-file", "", "file with one proxy URL per line")
	f.Bool("fallback", false, "fall back to all outbound anchors when the result selector matches nothing")
	f.String("format", "text", "export format: text, json, csv, yaml, table, html")
	f.StringP("output", "o", "", "write the export to this file instead of stdout")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	f.Bool("summary", false, "print a summary after the results")
	return cmd
}

func runScan(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	gc, err := cfg.GoogleConfig()
	if err != nil {
		return err
	}
	provider, err := serp.NewGoogleScrape(gc, logger)
	if err != nil {
		return err
	}
	extractor, err := cfg.Extractor()
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(cfg.Report.Format)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	catalog := cfg.Catalog()
	p := &pipeline.Pipeline{
		Catalog:   catalog,
		Builder:   cfg.Builder(),
		Provider:  provider,
		Extractor: extractor,
		Filter:    filter.New(cfg.FilterRules()),
		Policy:    cfg.Policy(),
		Out:       cmd.OutOrStdout(),
		Logger:    logger,
	}

	logger.Info("starting scan",
		"sectors", len(catalog.Sectors()),
		"placement_types", len(catalog.PlacementTypes()),
		"queries", len(catalog.Sectors())*len(catalog.PlacementTypes())*query.VariantCount,
		"region", cfg.Region,
		"delay", cfg.Delay,
	)
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	runCtx, cancelRun := context.WithCancel(gctx)
	defer cancelRun()

	if cfg.Metrics.Addr != "" {
		srv := metrics.Start(cfg.Metrics.Addr, logger)
		logger.Info("metrics server listening", "addr", cfg.Metrics.Addr)
		g.Go(func() error {
			<-runCtx.Done()
			return srv.Stop(context.Background())
		})
	}

	var hits []placement.Hit
	g.Go(func() error {
		defer cancelRun()
		var err error
		hits, err = p.Run(runCtx, catalog.Sectors(), cfg.Region)
		return err
	})

	runErr := g.Wait()
	logger.Info("scan finished", "hits", len(hits), "elapsed", time.Since(start).Round(time.Millisecond))
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			logger.Warn("scan interrupted", "hits", len(hits))
		}
		return runErr
	}

	if err := export(cmd, cfg, format, hits, logger); err != nil {
		return err
	}

	if summary, _ := cmd.Flags().GetBool("summary"); summary {
		return report.WriteText(cmd.OutOrStdout(), report.GenerateSummary(hits))
	}
	return nil
}

// export writes hits in the configured format. The text listing has already
// gone to stdout, so text without --output writes nothing further.
func export(cmd *cobra.Command, cfg *config.Config, format report.Format, hits []placement.Hit, logger *slog.Logger) error {
	if cfg.Report.Output == "" {
		if format == report.FormatText {
			return nil
		}
		return report.WriteHits(cmd.OutOrStdout(), format, hits)
	}

	f, err := os.Create(cfg.Report.Output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := report.WriteHits(f, format, hits); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	logger.Info("report written", "path", cfg.Report.Output, "format", format)
	return nil
}
