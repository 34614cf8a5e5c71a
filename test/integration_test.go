//go:build integration

package test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/FranksOps/scout/internal/extract"
	"github.com/FranksOps/scout/internal/filter"
	"github.com/FranksOps/scout/internal/pipeline"
	"github.com/FranksOps/scout/internal/placement"
	"github.com/FranksOps/scout/internal/query"
	"github.com/FranksOps/scout/internal/serp"
	"github.com/FranksOps/scout/pkg/ratelimit"
)

// fakeGoogle serves a result page keyed on the query, a block page for queries
// mentioning "Legal", and a 404 for org/gov-restricted queries.
type fakeGoogle struct {
	mu      sync.Mutex
	queries []string
}

func (f *fakeGoogle) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()

	switch {
	case strings.Contains(q, "site:org OR"):
		w.WriteHeader(http.StatusNotFound)
		return
	case strings.Contains(q, "Legal"):
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `<html><body><form id="captcha-form"></form>Our systems have detected unusual traffic from your computer network.</body></html>`)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `<html><body><div id="search">
		<div class="tF2Cxc"><a href="https://acme.co.ug/careers/2025-intern"><h3>Acme</h3></a></div>
		<div class="tF2Cxc"><a href="https://mak.ac.ug/admissions">Makerere</a></div>
		<div class="tF2Cxc"><a href="https://firm.com/training-2022-report">Old</a></div>
		<div class="tF2Cxc"><a href="">empty</a></div>
		<a href="https://outside.co.ug/not-a-result">stray</a>
	</div></body></html>`)
}

func TestIntegration_Scan(t *testing.T) {
	google := &fakeGoogle{}
	ts := httptest.NewServer(google)
	defer ts.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	provider, err := serp.NewGoogleScrape(serp.GoogleConfig{
		Endpoint: ts.URL + "/search",
		Timeout:  5 * time.Second,
	}, logger)
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	ex, err := extract.NewSelectorExtractor("")
	if err != nil {
		t.Fatalf("failed to create extractor: %v", err)
	}

	var out bytes.Buffer
	p := &pipeline.Pipeline{
		Catalog:   placement.NewCatalog(nil, []placement.PlacementType{"internship"}),
		Builder:   query.DefaultBuilder(),
		Provider:  provider,
		Extractor: ex,
		Filter:    filter.New(filter.DefaultRules()),
		Policy:    ratelimit.None{},
		Out:       &out,
		Logger:    logger,
	}

	sectors := []placement.Sector{"Media & ICT", "Legal & Professional Services"}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	hits, err := p.Run(ctx, sectors, "Kampala")
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	if len(google.queries) != 2*query.VariantCount {
		t.Fatalf("expected %d searches, got %d", 2*query.VariantCount, len(google.queries))
	}

	// Media & ICT: 6 variants minus the 404 org/gov one; Legal is blocked throughout.
	if len(hits) != query.VariantCount-1 {
		t.Fatalf("expected %d hits, got %d: %+v", query.VariantCount-1, len(hits), hits)
	}
	for _, h := range hits {
		if h.Sector != "Media & ICT" || h.URL != "https://acme.co.ug/careers/2025-intern" {
			t.Errorf("unexpected hit %+v", h)
		}
	}

	output := out.String()
	if !strings.Contains(output, `[SCAN] Uganda "Media & ICT" internship 2025 Kampala`+"\n") {
		t.Errorf("expected scan line for the plain query:\n%s", output)
	}
	if !strings.Contains(output, "\n--- RESULTS ---\n") {
		t.Errorf("expected results header:\n%s", output)
	}
	if strings.Contains(output, "outside.co.ug") {
		t.Errorf("expected stray anchors to be ignored without fallback")
	}
}

func TestIntegration_FallbackExtraction(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `<html><body>
			<a href="/search?q=next">next page</a>
			<a href="https://www.google.com/preferences">prefs</a>
			<a href="https://hotel.co.ug/internships">Hotel</a>
		</body></html>`)
	}))
	defer ts.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	provider, err := serp.NewGoogleScrape(serp.GoogleConfig{Endpoint: ts.URL}, logger)
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	sel, err := extract.NewSelectorExtractor(extract.DefaultResultSelector)
	if err != nil {
		t.Fatalf("failed to create extractor: %v", err)
	}

	p := &pipeline.Pipeline{
		Catalog:   placement.NewCatalog(nil, []placement.PlacementType{"internship"}),
		Builder:   query.DefaultBuilder(),
		Provider:  provider,
		Extractor: extract.Chain{sel, extract.NewAnchorExtractor()},
		Filter:    filter.New(filter.DefaultRules()),
		Policy:    ratelimit.None{},
		Logger:    logger,
	}

	hits, err := p.Run(context.Background(), []placement.Sector{"Tourism & Hospitality"}, "")
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(hits) != query.VariantCount {
		t.Fatalf("expected one fallback hit per query, got %d", len(hits))
	}
	if hits[0].URL != "https://hotel.co.ug/internships" {
		t.Errorf("unexpected fallback hit %q", hits[0].URL)
	}
}
