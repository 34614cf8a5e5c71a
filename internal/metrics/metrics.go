package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SearchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_search_requests_total",
			Help: "Total number of search engine requests executed",
		},
		[]string{"status", "detected", "detection_src"},
	)

	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scout_search_duration_seconds",
			Help:    "Duration of search engine requests in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		},
	)

	SearchBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scout_search_bytes_total",
			Help: "Total bytes downloaded from the search engine",
		},
	)

	LinksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_links_total",
			Help: "Links seen per pipeline stage (extracted, kept)",
		},
		[]string{"stage"},
	)

	HitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_hits_total",
			Help: "Hits recorded per sector and placement type",
		},
		[]string{"sector", "placement_type"},
	)
)

// Search describes one completed search request for RecordSearch.
type Search struct {
	// StatusCode is 0 when the request failed before a response arrived.
	StatusCode   int
	Failed       bool
	DetectedBot  bool
	DetectionSrc string
	Bytes        int
	Duration     time.Duration
}

// RecordSearch updates the search request metrics.
func RecordSearch(s Search) {
	statusStr := strconv.Itoa(s.StatusCode)
	if s.Failed {
		statusStr = "error"
	}

	SearchRequestsTotal.WithLabelValues(statusStr, strconv.FormatBool(s.DetectedBot), s.DetectionSrc).Inc()
	SearchDuration.Observe(s.Duration.Seconds())
	SearchBytesTotal.Add(float64(s.Bytes))
}

// RecordLinks adds n links to the given stage counter.
func RecordLinks(stage string, n int) {
	LinksTotal.WithLabelValues(stage).Add(float64(n))
}

// RecordHit counts one hit for the sector / placement type pair.
func RecordHit(sector, placementType string) {
	HitsTotal.WithLabelValues(sector, placementType).Inc()
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on addr (e.g. ":9090") and exposes /metrics.
func Start(addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "err", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
