package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// LayerEntry is one node of the declarative layer hierarchy. A node with a
// non-empty Layers list is a group; everything else is a leaf.
type LayerEntry struct {
	Name              string       `yaml:"name"`
	Layers            []LayerEntry `yaml:"layers,omitempty"`
	HideSublayers     bool         `yaml:"hide_sublayers,omitempty"`
	LegendImage       string       `yaml:"legend_image,omitempty"`
	LegendImageBase64 string       `yaml:"legend_image_base64,omitempty"`
}

// WMSService is one named map service with its layer tree.
type WMSService struct {
	Name      string     `yaml:"name"`
	RootLayer LayerEntry `yaml:"root_layer"`
}

type Resources struct {
	WMSServices []WMSService `yaml:"wms_services"`
}

// TenantConfig holds the per-tenant legend service settings.
type TenantConfig struct {
	OGCServiceURL         string    `yaml:"ogc_service_url"`
	NetworkTimeoutSeconds int       `yaml:"network_timeout"`
	LegendImagesPath      string    `yaml:"legend_images_path"`
	LegendDefaultFontSize string    `yaml:"legend_default_font_size"`
	BasicAuthLoginURL     []string  `yaml:"basic_auth_login_url"`
	FetchConcurrency      int       `yaml:"fetch_concurrency"`
	Resources             Resources `yaml:"resources"`
}

// NetworkTimeout returns the configured outbound timeout, defaulting to 30s.
func (c *TenantConfig) NetworkTimeout() time.Duration {
	if c.NetworkTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.NetworkTimeoutSeconds) * time.Second
}

// TenantConfigPath returns the path of a tenant's legend config file.
func TenantConfigPath(configPath, tenant string) string {
	return filepath.Join(configPath, tenant, "legend.yaml")
}

// PermissionsPath returns the path of a tenant's permissions file.
func PermissionsPath(configPath, tenant string) string {
	return filepath.Join(configPath, tenant, "permissions.yaml")
}

// LoadTenantConfig reads and validates the config file for a tenant.
func LoadTenantConfig(configPath, tenant string) (*TenantConfig, error) {
	path := TenantConfigPath(configPath, tenant)
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tenant config %s: %w", path, err)
	}

	var cfg TenantConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse tenant config %s: %w", path, err)
	}

	for _, wms := range cfg.Resources.WMSServices {
		if wms.Name == "" {
			return nil, fmt.Errorf("tenant config %s: wms_service without name", path)
		}
		if err := validateLayer(wms.RootLayer, wms.Name); err != nil {
			return nil, fmt.Errorf("tenant config %s: %w", path, err)
		}
	}

	return &cfg, nil
}

func validateLayer(entry LayerEntry, service string) error {
	if entry.Name == "" {
		return fmt.Errorf("service %q: layer entry without name", service)
	}
	for _, sub := range entry.Layers {
		if err := validateLayer(sub, service); err != nil {
			return err
		}
	}
	return nil
}
