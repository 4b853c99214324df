// Package tenant owns the per-tenant legend service handlers: created on
// first use, rebuilt when the tenant's configuration files change, and
// disposed with their scratch areas on teardown.
package tenant

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/qwc-services/qwc-legend-service/internal/config"
	"github.com/qwc-services/qwc-legend-service/internal/db"
	"github.com/qwc-services/qwc-legend-service/internal/legend"
	"github.com/qwc-services/qwc-legend-service/internal/metrics"
	"github.com/qwc-services/qwc-legend-service/internal/permissions"
)

// DefaultTenant is used when no tenant header is present.
const DefaultTenant = "default"

type entry struct {
	svc         *legend.Service
	cfgModTime  time.Time
	permModTime time.Time
}

// Registry hands out tenant legend services. Handlers are shared across
// requests; a configuration change swaps the whole handler atomically.
type Registry struct {
	configPath string
	pool       *db.Pool
	metrics    *metrics.Metrics
	log        zerolog.Logger

	mu       sync.RWMutex
	handlers map[string]*entry
}

func NewRegistry(configPath string, pool *db.Pool, m *metrics.Metrics, log zerolog.Logger) *Registry {
	return &Registry{
		configPath: configPath,
		pool:       pool,
		metrics:    m,
		log:        log,
		handlers:   make(map[string]*entry),
	}
}

// Service returns the legend service for a tenant, creating or rebuilding
// it as needed.
func (r *Registry) Service(tenant string) (*legend.Service, error) {
	cfgMod, permMod, err := r.modTimes(tenant)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	e := r.handlers[tenant]
	r.mu.RUnlock()
	if e != nil && e.cfgModTime.Equal(cfgMod) && e.permModTime.Equal(permMod) {
		return e.svc, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another request may have rebuilt the handler while we waited.
	if e = r.handlers[tenant]; e != nil && e.cfgModTime.Equal(cfgMod) && e.permModTime.Equal(permMod) {
		return e.svc, nil
	}

	cfg, err := config.LoadTenantConfig(r.configPath, tenant)
	if err != nil {
		return nil, err
	}
	perms, err := r.permissionsReader(tenant)
	if err != nil {
		return nil, err
	}

	svc := legend.NewService(tenant, cfg, perms, r.metrics, r.log)
	if old := r.handlers[tenant]; old != nil {
		old.svc.Close()
		r.log.Info().Str("tenant", tenant).Msg("tenant configuration reloaded")
	}
	r.handlers[tenant] = &entry{svc: svc, cfgModTime: cfgMod, permModTime: permMod}
	return svc, nil
}

// Close disposes all tenant handlers and their scratch areas.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for tenant, e := range r.handlers {
		e.svc.Close()
		delete(r.handlers, tenant)
	}
}

func (r *Registry) permissionsReader(tenant string) (permissions.Reader, error) {
	if r.pool != nil {
		return permissions.NewStore(r.pool), nil
	}
	return permissions.LoadFile(config.PermissionsPath(r.configPath, tenant))
}

func (r *Registry) modTimes(tenant string) (cfgMod, permMod time.Time, err error) {
	info, err := os.Stat(config.TenantConfigPath(r.configPath, tenant))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("tenant %q not configured: %w", tenant, err)
	}
	cfgMod = info.ModTime()

	// Permissions come from the database when a pool is configured; only
	// file-backed permissions participate in mtime invalidation.
	if r.pool == nil {
		info, err := os.Stat(config.PermissionsPath(r.configPath, tenant))
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("tenant %q permissions missing: %w", tenant, err)
		}
		permMod = info.ModTime()
	}
	return cfgMod, permMod, nil
}
