package serp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/FranksOps/scout/internal/bypass"
	"github.com/FranksOps/scout/internal/fingerprint"
	"github.com/FranksOps/scout/internal/metrics"
	"github.com/FranksOps/scout/pkg/httpclient"
	"github.com/FranksOps/scout/pkg/proxy"
	"github.com/FranksOps/scout/pkg/useragent"
)

const (
	// DefaultEndpoint is Google's HTML search endpoint.
	DefaultEndpoint = "https://www.google.com/search"
	// DefaultUserAgent is the fixed desktop Chrome identity sent with every search.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36"
	// DefaultTimeout bounds a single search request.
	DefaultTimeout = 10 * time.Second

	maxBodyBytes = 8 << 20
)

// GoogleConfig configures a GoogleScrape provider.
type GoogleConfig struct {
	Endpoint    string
	UserAgent   string
	Timeout     time.Duration
	Fingerprint fingerprint.Profile
	// Detectors classify block/challenge pages. Nil uses bypass.DefaultDetectors.
	Detectors []bypass.Detector
	// UserAgents, when set, replaces UserAgent with a per-request rotation.
	UserAgents *useragent.Rotator
	// Proxies, when set, routes each search through the pool's next healthy
	// proxy. Failed and blocked searches count against the proxy used.
	Proxies *proxy.Pool
	// Cookies keeps a cookie jar across searches so consent and session
	// cookies set on one query are sent with the next.
	Cookies bool
}

// GoogleScrape is a Provider that fetches Google's HTML results page directly.
// Each Search is exactly one GET; there are no retries.
type GoogleScrape struct {
	cfg       GoogleConfig
	endpoint  *url.URL
	client    *httpclient.Client
	detectors []bypass.Detector
	logger    *slog.Logger
}

var _ Provider = (*GoogleScrape)(nil)

// NewGoogleScrape builds a provider from cfg, filling in defaults for zero fields.
func NewGoogleScrape(cfg GoogleConfig, logger *slog.Logger) (*GoogleScrape, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Fingerprint == "" {
		cfg.Fingerprint = fingerprint.ProfileGo
	}
	if cfg.Detectors == nil {
		cfg.Detectors = bypass.DefaultDetectors()
	}
	if logger == nil {
		logger = slog.Default()
	}

	endpoint, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid search endpoint: %w", err)
	}
	if endpoint.Scheme != "http" && endpoint.Scheme != "https" {
		return nil, fmt.Errorf("invalid search endpoint %q: scheme must be http or https", cfg.Endpoint)
	}

	var proxyFunc func(*http.Request) (*url.URL, error)
	if cfg.Proxies != nil {
		proxyFunc = proxy.ProxyFunc
	}
	transport, err := fingerprint.Transport(cfg.Fingerprint, proxyFunc)
	if err != nil {
		return nil, fmt.Errorf("failed to setup transport: %w", err)
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: 5,
		UseCookieJar: cfg.Cookies,
		Transport:    transport,
		Headers: http.Header{
			"User-Agent":      {cfg.UserAgent},
			"Accept":          {"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
			"Accept-Language": {"en-US,en;q=0.5"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &GoogleScrape{
		cfg:       cfg,
		endpoint:  endpoint,
		client:    client,
		detectors: cfg.Detectors,
		logger:    logger,
	}, nil
}

// SearchURL returns the URL Search requests for query.
func (g *GoogleScrape) SearchURL(query string) string {
	u := *g.endpoint
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()
	return u.String()
}

// Search fetches the results page for query. Non-200 responses, detected block
// pages and transport failures all produce an empty body with a nil error.
func (g *GoogleScrape) Search(ctx context.Context, query string) ([]byte, error) {
	target := g.SearchURL(query)
	start := time.Now()

	reqCtx := ctx
	var via *url.URL
	if g.cfg.Proxies != nil {
		if via = g.cfg.Proxies.Next(); via != nil {
			reqCtx = proxy.WithProxy(ctx, via)
		} else {
			g.logger.Warn("no healthy proxy, searching directly", "query", query)
		}
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if g.cfg.UserAgents != nil {
		req.Header.Set("User-Agent", g.cfg.UserAgents.Next())
	}

	resp, err := g.client.Do(reqCtx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		g.markProxy(via, false)
		metrics.RecordSearch(metrics.Search{Failed: true, Duration: time.Since(start)})
		g.logger.Warn("search request failed", "query", query, "err", err)
		return nil, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		metrics.RecordSearch(metrics.Search{StatusCode: resp.StatusCode, Failed: true, Duration: time.Since(start)})
		g.logger.Warn("failed to read search response", "query", query, "err", err)
		return nil, nil
	}

	page := &bypass.Page{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
		FinalURL:   resp.Request.URL.String(),
	}
	detected, source := bypass.Analyze(page, g.detectors)

	metrics.RecordSearch(metrics.Search{
		StatusCode:   resp.StatusCode,
		DetectedBot:  detected,
		DetectionSrc: source,
		Bytes:        len(body),
		Duration:     time.Since(start),
	})

	g.markProxy(via, !detected)
	if detected {
		g.logger.Warn("search request blocked", "query", query, "status", resp.StatusCode, "source", source)
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		g.logger.Debug("non-200 search response", "query", query, "status", resp.StatusCode)
		return nil, nil
	}

	g.logger.Debug("search ok", "query", query, "bytes", len(body), "duration", time.Since(start))
	return body, nil
}

func (g *GoogleScrape) markProxy(via *url.URL, ok bool) {
	if via == nil {
		return
	}
	mark := g.cfg.Proxies.MarkFailure
	if ok {
		mark = g.cfg.Proxies.MarkSuccess
	}
	if err := mark(via); err != nil {
		g.logger.Debug("failed to update proxy health", "proxy", via.Redacted(), "err", err)
	}
}
