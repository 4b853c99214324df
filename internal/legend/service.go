package legend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/qwc-services/qwc-legend-service/internal/config"
	"github.com/qwc-services/qwc-legend-service/internal/metrics"
	"github.com/qwc-services/qwc-legend-service/internal/permissions"
	"github.com/qwc-services/qwc-legend-service/internal/resources"
)

// Service serves legend graphics for one tenant. It is read-only after
// construction and safe for concurrent use; the tenant registry swaps the
// whole instance on configuration reload.
type Service struct {
	tenant      string
	log         zerolog.Logger
	cfg         *config.TenantConfig
	lookup      *resources.Lookup
	perms       permissions.Reader
	client      *Client
	metrics     *metrics.Metrics
	scratch     *scratch
	concurrency int
}

// NewService builds a tenant legend service from its configuration.
func NewService(tenant string, cfg *config.TenantConfig, perms permissions.Reader, m *metrics.Metrics, log zerolog.Logger) *Service {
	log = log.With().Str("tenant", tenant).Logger()
	return &Service{
		tenant:      tenant,
		log:         log,
		cfg:         cfg,
		lookup:      resources.Collect(cfg.Resources),
		perms:       perms,
		client:      NewClient(cfg.OGCServiceURL, cfg.LegendDefaultFontSize, cfg.NetworkTimeout(), log),
		metrics:     m,
		scratch:     newScratch(tenant),
		concurrency: cfg.FetchConcurrency,
	}
}

// BasicAuthLoginURLs returns the configured login endpoints for resolving
// an identity from Basic auth credentials.
func (s *Service) BasicAuthLoginURLs() []string {
	return s.cfg.BasicAuthLoginURL
}

// Close releases tenant resources (the inline-image scratch area).
func (s *Service) Close() {
	s.scratch.cleanup()
}

// GetLegend resolves one legend request to image data or an exception
// document. It never returns a process-level error; all per-entry failures
// degrade to placeholders.
func (s *Service) GetLegend(ctx context.Context, req Request) *Result {
	grants := s.wmsPermissions(ctx, req.Service, req.Identity)
	permitted, ok := permissions.PermittedLayers(grants)
	if !ok {
		// Unknown service and missing grant are indistinguishable on
		// purpose, to avoid leaking which services exist.
		s.metrics.IncLegendRequest("map_not_defined")
		return serviceException(CodeMapNotDefined,
			fmt.Sprintf("Map %q does not exist or is not permitted", req.Service))
	}

	format := req.Format
	if format == "" {
		format = DefaultFormat
	}
	if !SupportedFormat(format) {
		s.log.Warn().Str("format", format).
			Msg("unsupported format requested, falling back to image/png")
		format = DefaultFormat
	}

	typ := strings.ToLower(req.Type)
	if typ == "" {
		typ = TypeDefault
	}

	tree := s.lookup.Service(req.Service)
	requested := zipLayerStyles(req.Layers, req.Styles)

	// Children of hide-sublayers groups cannot be requested directly.
	filtered := requested[:0]
	for _, ls := range requested {
		if node := tree.Layer(ls.Layer); node != nil && node.Hidden {
			continue
		}
		filtered = append(filtered, ls)
	}

	var entries []expandedEntry
	for _, ls := range filtered {
		s.expandLayer(ls, tree, permitted, req.Service, typ, 0, &entries)
	}
	if len(entries) == 0 {
		s.metrics.IncLegendRequest("layer_not_defined")
		return serviceException(CodeLayerNotDefined,
			fmt.Sprintf("Layer %q does not exist or is not permitted", req.Layers))
	}

	images := s.fetchImages(ctx, req.Service, entries, format, req.DPI, req.Params)

	start := time.Now()
	data := s.composeImage(images, format)
	s.metrics.ObserveCompose(time.Since(start))

	s.metrics.IncLegendRequest("image")
	return &Result{Data: data, ContentType: format}
}

// wmsPermissions returns the identity's grants, or nil when the service is
// unknown or the permission source failed.
func (s *Service) wmsPermissions(ctx context.Context, service, identity string) []permissions.Grant {
	if s.lookup.Service(service) == nil {
		return nil
	}
	grants, err := s.perms.ResourcePermissions(ctx, service, identity)
	if err != nil {
		s.log.Error().Err(err).Str("service", service).
			Msg("permission lookup failed")
		return nil
	}
	return grants
}
