// Package httptransport is the JSON binding of the transactions. Handlers only
// decode, delegate to the orchestrator and encode.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"xhuma/internal/platform/metrics"
	"xhuma/pkg/platform/httputil"
	"xhuma/pkg/platform/middleware/auth"
	"xhuma/pkg/platform/middleware/device"
	"xhuma/pkg/platform/middleware/metadata"
	"xhuma/pkg/platform/middleware/requestid"
	"xhuma/pkg/platform/middleware/requesttime"
)

// HealthCheck pings one backing service.
type HealthCheck func(ctx context.Context) error

type RouterConfig struct {
	Service Service
	Logger  *slog.Logger
	// Verifier enables bearer authentication on the transaction routes when
	// non-nil.
	Verifier auth.TokenVerifier
	Checks   map[string]HealthCheck
	Metrics  *metrics.HTTP
	Gatherer prometheus.Gatherer
}

// NewRouter builds the public HTTP surface.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(device.Middleware)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}

	r.Get("/health", healthHandler(cfg.Checks))
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(cfg.Gatherer))
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireBearer(cfg.Verifier, cfg.Logger))
		NewHandler(cfg.Service, cfg.Logger).Register(r)
	})
	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
		}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
