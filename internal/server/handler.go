package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Check probes one dependency for /readyz.
type Check func(ctx context.Context) error

// HandlerOptions configures the admin routes.
type HandlerOptions struct {
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
	// Checks are run by /readyz, keyed by dependency name.
	Checks map[string]Check
	// Catalog is served as JSON on /tools when set.
	Catalog json.Marshaler
	// CheckTimeout bounds each readiness probe.
	CheckTimeout time.Duration
}

type checkResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// NewHandler builds the admin mux.
func NewHandler(opts HandlerOptions, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.CheckTimeout <= 0 {
		opts.CheckTimeout = 2 * time.Second
	}
	log := logger.With(zap.String("component", "admin_handler"))

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		names := make([]string, 0, len(opts.Checks))
		for name := range opts.Checks {
			names = append(names, name)
		}
		sort.Strings(names)

		status := http.StatusOK
		results := make(map[string]checkResult, len(names))
		for _, name := range names {
			ctx, cancel := context.WithTimeout(r.Context(), opts.CheckTimeout)
			err := opts.Checks[name](ctx)
			cancel()
			if err != nil {
				status = http.StatusServiceUnavailable
				results[name] = checkResult{Status: "fail", Error: err.Error()}
				log.Warn("readiness check failed", zap.String("check", name), zap.Error(err))
				continue
			}
			results[name] = checkResult{Status: "ok"}
		}
		writeJSON(w, status, results)
	})

	if opts.Catalog != nil {
		mux.HandleFunc("GET /tools", func(w http.ResponseWriter, _ *http.Request) {
			data, err := opts.Catalog.MarshalJSON()
			if err != nil {
				log.Error("marshal catalog", zap.Error(err))
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(data)
		})
	}
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
