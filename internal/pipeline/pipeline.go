package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/FranksOps/scout/internal/extract"
	"github.com/FranksOps/scout/internal/filter"
	"github.com/FranksOps/scout/internal/metrics"
	"github.com/FranksOps/scout/internal/placement"
	"github.com/FranksOps/scout/internal/query"
	"github.com/FranksOps/scout/internal/report"
	"github.com/FranksOps/scout/internal/serp"
	"github.com/FranksOps/scout/pkg/ratelimit"
)

// Pipeline runs the scan: build queries, search, extract links, filter them and
// collect tagged hits. It is strictly sequential; one query is in flight at a time.
type Pipeline struct {
	Catalog   placement.Catalog
	Builder   *query.Builder
	Provider  serp.Provider
	Extractor extract.Extractor
	Filter    *filter.LinkFilter
	// Policy is waited on after every query, whatever its outcome.
	Policy ratelimit.Policy
	// Out receives the "[SCAN] <query>" lines and the final listing. Nil discards.
	Out    io.Writer
	Logger *slog.Logger
}

func (p *Pipeline) validate() error {
	switch {
	case p.Builder == nil:
		return errors.New("query builder is nil")
	case p.Provider == nil:
		return errors.New("search provider is nil")
	case p.Extractor == nil:
		return errors.New("link extractor is nil")
	case p.Filter == nil:
		return errors.New("link filter is nil")
	case p.Policy == nil:
		return errors.New("rate limit policy is nil")
	}
	return nil
}

// Run iterates sectors × catalog placement types × query variants and returns
// every hit in processing order. A failing query contributes zero hits and
// the run moves on; only cancellation stops it early, in which case the hits
// gathered so far are returned along with the context error.
func (p *Pipeline) Run(ctx context.Context, sectors []placement.Sector, region string) ([]placement.Hit, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	out := p.Out
	if out == nil {
		out = io.Discard
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var hits []placement.Hit
	for _, sector := range sectors {
		for _, pt := range p.Catalog.PlacementTypes() {
			queries, err := p.Builder.Build(sector, pt, region)
			if err != nil {
				logger.Warn("skipping pair", "sector", sector, "placement_type", pt, "err", err)
				continue
			}

			for _, q := range queries {
				if _, err := fmt.Fprintf(out, "[SCAN] %s\n", q); err != nil {
					return hits, fmt.Errorf("failed to write scan line: %w", err)
				}

				found, err := p.runQuery(ctx, logger, sector, pt, q)
				if err != nil {
					return hits, err
				}
				hits = append(hits, found...)

				if err := p.Policy.Wait(ctx); err != nil {
					return hits, err
				}
			}
		}
	}

	logger.Info("scan complete", "sectors", len(sectors), "hits", len(hits))

	if err := report.WriteListing(out, hits); err != nil {
		return hits, err
	}
	return hits, nil
}

func (p *Pipeline) runQuery(ctx context.Context, logger *slog.Logger, sector placement.Sector, pt placement.PlacementType, q string) ([]placement.Hit, error) {
	body, err := p.Provider.Search(ctx, q)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Providers should absorb their own failures; treat a stray error the same way.
		logger.Warn("search failed", "query", q, "err", err)
		return nil, nil
	}

	links := p.Extractor.Extract(body)
	kept := p.Filter.Clean(links)
	metrics.RecordLinks("extracted", len(links))
	metrics.RecordLinks("kept", len(kept))

	if logger.Enabled(ctx, slog.LevelDebug) {
		for _, l := range links {
			if reason, rejected := p.Filter.Reason(l); rejected {
				logger.Debug("link excluded", "url", l, "pattern", reason)
			}
		}
	}
	logger.Debug("query processed", "query", q, "extracted", len(links), "kept", len(kept))

	found := make([]placement.Hit, 0, len(kept))
	for _, u := range kept {
		found = append(found, placement.Hit{
			Sector:        sector,
			PlacementType: pt,
			Query:         q,
			URL:           u,
		})
		metrics.RecordHit(string(sector), string(pt))
	}
	return found, nil
}
