package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"image/color"

	"github.com/qwc-services/qwc-legend-service/internal/metrics"
	"github.com/qwc-services/qwc-legend-service/internal/tenant"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.New(w, h, color.NRGBA{0, 100, 0, 255}), imaging.PNG); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// testEnv writes a complete tenant configuration and returns a handler
// backed by it plus the stub renderer.
func testEnv(t *testing.T) (*Handler, *httptest.Server, string) {
	t.Helper()

	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(pngBytes(t, 20, 10))
	}))
	t.Cleanup(remote.Close)

	configPath := t.TempDir()
	tenantDir := filepath.Join(configPath, tenant.DefaultTenant)
	if err := os.MkdirAll(tenantDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	imagesDir := filepath.Join(tenantDir, "legends", "qwc_demo")
	if err := os.MkdirAll(imagesDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(imagesDir, "edit_points.png"), pngBytes(t, 5, 5), 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}

	cfg := fmt.Sprintf(`
ogc_service_url: %s/ows/
legend_images_path: %s
resources:
  wms_services:
    - name: qwc_demo
      root_layer:
        name: root
        layers:
          - name: edit_points
          - name: edit_lines
`, remote.URL, filepath.Join(tenantDir, "legends"))
	if err := os.WriteFile(filepath.Join(tenantDir, "legend.yaml"), []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	perms := `
roles:
  - role: public
    wms_services:
      - name: qwc_demo
        layers: [root, edit_points, edit_lines]
`
	if err := os.WriteFile(filepath.Join(tenantDir, "permissions.yaml"), []byte(perms), 0o644); err != nil {
		t.Fatalf("write permissions: %v", err)
	}

	registry := tenant.NewRegistry(configPath, nil, metrics.New(), NewLogger("error"))
	t.Cleanup(registry.Close)

	h := NewHandler(NewLogger("error"), registry, nil, metrics.New(), Options{})
	return h, remote, configPath
}

func TestHealthz(t *testing.T) {
	h, _, _ := testEnv(t)
	rr := httptest.NewRecorder()
	h.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body["status"] != "OK" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestReadyz_NoDatabase(t *testing.T) {
	h, _, _ := testEnv(t)
	rr := httptest.NewRecorder()
	h.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h, _, _ := testEnv(t)
	rr := httptest.NewRecorder()
	h.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestLegend_CustomImage(t *testing.T) {
	h, _, _ := testEnv(t)
	rr := httptest.NewRecorder()
	h.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/qwc_demo?layer=edit_points", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("expected image/png, got %q", ct)
	}
	if !bytes.Equal(rr.Body.Bytes(), pngBytes(t, 5, 5)) {
		t.Fatalf("expected the custom image bytes unchanged")
	}
}

func TestLegend_RemoteFetch(t *testing.T) {
	h, _, _ := testEnv(t)
	rr := httptest.NewRecorder()
	h.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/qwc_demo?layer=edit_lines", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	img, err := imaging.Decode(bytes.NewReader(rr.Body.Bytes()))
	if err != nil {
		t.Fatalf("response is not a valid image: %v", err)
	}
	if img.Bounds().Dx() != 20 || img.Bounds().Dy() != 10 {
		t.Fatalf("unexpected image size %v", img.Bounds())
	}
}

func TestLegend_CaseInsensitiveParams(t *testing.T) {
	h, _, _ := testEnv(t)
	rr := httptest.NewRecorder()
	h.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/qwc_demo?LAYER=edit_points&FORMAT=image/png", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("expected image/png, got %q", ct)
	}
}

func TestLegend_UnknownService_ExceptionWith200(t *testing.T) {
	h, _, _ := testEnv(t)
	rr := httptest.NewRecorder()
	h.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/no_such_map?layer=edit_points", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("exception documents carry a success status, got %d", rr.Code)
	}
	if !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/xml") {
		t.Fatalf("expected text/xml, got %q", rr.Header().Get("Content-Type"))
	}
	if !strings.Contains(rr.Body.String(), "MapNotDefined") {
		t.Fatalf("expected MapNotDefined, got %s", rr.Body.String())
	}
}

func TestLegend_MissingLayerParam(t *testing.T) {
	h, _, _ := testEnv(t)
	rr := httptest.NewRecorder()
	h.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/qwc_demo", nil))

	if !strings.Contains(rr.Body.String(), "LayerNotDefined") {
		t.Fatalf("expected LayerNotDefined, got %s", rr.Body.String())
	}
}

func TestLegend_UnknownTenant(t *testing.T) {
	h, _, _ := testEnv(t)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/qwc_demo?layer=edit_points", nil)
	req.Header.Set("X-Tenant", "missing")
	h.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for unconfigured tenant, got %d", rr.Code)
	}
}

