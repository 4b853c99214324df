package legend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var exceptionMarker = []byte("<ServiceExceptionReport")

// Client issues WMS GetLegendGraphic requests to the OGC rendering server.
type Client struct {
	baseURL         string
	defaultFontSize string
	httpClient      *http.Client
	log             zerolog.Logger
}

// NewClient builds a renderer client for the given base URL. A trailing
// slash is ensured so service names can be appended directly.
func NewClient(baseURL, defaultFontSize string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL:         strings.TrimRight(baseURL, "/") + "/",
		defaultFontSize: defaultFontSize,
		httpClient:      &http.Client{Timeout: timeout},
		log:             log,
	}
}

// GetLegendGraphic fetches the rendered legend for one layer. Any non-200
// response, network failure or embedded exception document is returned as
// an error; callers substitute a placeholder per entry.
func (c *Client) GetLegendGraphic(ctx context.Context, service, layer, style, format string, params map[string]string) ([]byte, error) {
	query := url.Values{}
	query.Set("service", "WMS")
	query.Set("version", "1.3.0")
	query.Set("request", "GetLegendGraphic")
	query.Set("layer", layer)
	query.Set("format", format)
	query.Set("style", style)
	for k, v := range params {
		query.Set(k, v)
	}
	if c.defaultFontSize != "" {
		if _, ok := params["layerfontsize"]; !ok {
			query.Set("layerfontsize", c.defaultFontSize)
		}
		if _, ok := params["itemfontsize"]; !ok {
			query.Set("itemfontsize", c.defaultFontSize)
		}
	}

	reqURL := c.baseURL + service + "?" + query.Encode()
	c.log.Debug().Str("url", reqURL).Msg("forwarding legend request")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if bytes.HasPrefix(body, exceptionMarker) {
		c.log.Warn().Str("layer", layer).Str("body", string(body)).
			Msg("renderer returned exception document")
		return nil, fmt.Errorf("renderer exception for layer %q", layer)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("renderer returned status %d for layer %q", resp.StatusCode, layer)
	}
	return body, nil
}
