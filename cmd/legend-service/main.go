package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qwc-services/qwc-legend-service/internal/db"
	"github.com/qwc-services/qwc-legend-service/internal/httpapi"
	"github.com/qwc-services/qwc-legend-service/internal/metrics"
	"github.com/qwc-services/qwc-legend-service/internal/tenant"
)

func main() {
	addr := envOr("HTTP_ADDR", ":5014")
	logLevel := envOr("LOG_LEVEL", "info")
	configPath := envOr("CONFIG_PATH", "config")
	tenantHeader := envOr("TENANT_HEADER", "X-Tenant")
	identityHeader := envOr("IDENTITY_HEADER", "X-Identity")
	permissionsDatabaseURL := envOr("PERMISSIONS_DATABASE_URL", "")

	logger := httpapi.NewLogger(logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *db.Pool
	if permissionsDatabaseURL != "" {
		p, err := db.Open(ctx, permissionsDatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to permissions database")
		}
		defer p.Close()
		pool = p
	}

	m := metrics.New()
	registry := tenant.NewRegistry(configPath, pool, m, logger)
	defer registry.Close()

	h := httpapi.NewHandler(logger, registry, pool, m, httpapi.Options{
		TenantHeader:   tenantHeader,
		IdentityHeader: identityHeader,
	})
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("legend-service listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info().Msg("shutdown complete")
}

func envOr(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}
