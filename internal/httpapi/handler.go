package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/qwc-services/qwc-legend-service/internal/db"
	"github.com/qwc-services/qwc-legend-service/internal/metrics"
	"github.com/qwc-services/qwc-legend-service/internal/tenant"
)

// Options configures the request headers the handler reads.
type Options struct {
	TenantHeader   string
	IdentityHeader string
}

type Handler struct {
	log            zerolog.Logger
	registry       *tenant.Registry
	pool           *db.Pool
	metrics        *metrics.Metrics
	tenantHeader   string
	identityHeader string
	loginClient    *http.Client
}

func NewHandler(log zerolog.Logger, registry *tenant.Registry, pool *db.Pool, m *metrics.Metrics, opts Options) *Handler {
	th := opts.TenantHeader
	if th == "" {
		th = "X-Tenant"
	}
	ih := opts.IdentityHeader
	if ih == "" {
		ih = "X-Identity"
	}
	return &Handler{
		log:            log,
		registry:       registry,
		pool:           pool,
		metrics:        m,
		tenantHeader:   th,
		identityHeader: ih,
		loginClient:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(h.accessLog)

	// Health
	r.Get("/healthz", h.handleHealthz)
	r.Get("/readyz", h.handleReadyZ)

	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	// Legend endpoint; service names may contain path separators.
	r.Get("/*", h.handleLegend)

	return r
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		h.metrics.ObserveHTTPRequest(r.Method, r.URL.Path, ww.Status(), time.Since(start))
		h.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("http_request")
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "OK"})
}

func (h *Handler) handleReadyZ(w http.ResponseWriter, r *http.Request) {
	if h.pool != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.pool.Ping(ctx); err != nil {
			h.writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "permissions database not ready",
			})
			return
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "OK"})
}

func (h *Handler) handleLegend(w http.ResponseWriter, r *http.Request) {
	serviceName := chi.URLParam(r, "*")
	if serviceName == "" {
		http.NotFound(w, r)
		return
	}

	tenantName := r.Header.Get(h.tenantHeader)
	if tenantName == "" {
		tenantName = tenant.DefaultTenant
	}

	svc, err := h.registry.Service(tenantName)
	if err != nil {
		h.log.Error().Err(err).Str("tenant", tenantName).
			Msg("could not load tenant configuration")
		h.writeJSON(w, http.StatusInternalServerError, map[string]any{
			"status": "tenant configuration unavailable",
		})
		return
	}

	req := parseLegendRequest(r, serviceName)
	req.Identity = h.identity(r, tenantName, svc.BasicAuthLoginURLs())

	result := svc.GetLegend(r.Context(), req)
	w.Header().Set("Content-Type", result.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}
