package legend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/qwc-services/qwc-legend-service/internal/config"
)

// Entries must come back in request-expansion order even when fetches
// complete out of order.
func TestFetchImages_ConcurrentOrderPreserved(t *testing.T) {
	sizes := map[string]int{"a": 11, "b": 12, "c": 13, "d": 14}
	delays := map[string]time.Duration{"a": 60 * time.Millisecond, "b": 40 * time.Millisecond, "c": 20 * time.Millisecond, "d": 0}

	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		layer := r.URL.Query().Get("layer")
		time.Sleep(delays[layer])
		_, _ = w.Write(pngBytes(t, sizes[layer], 1))
	}))
	defer remote.Close()

	cfg := &config.TenantConfig{
		OGCServiceURL:    remote.URL + "/ows/",
		FetchConcurrency: 4,
		Resources:        demoResources(),
	}
	s := newTestService(t, cfg, allPermitted())

	entries := []expandedEntry{
		{Layer: "a"}, {Layer: "b"}, {Layer: "c"}, {Layer: "d"},
	}
	results := s.fetchImages(context.Background(), "demo", entries, "image/png", "", nil)
	if len(results) != len(entries) {
		t.Fatalf("expected %d results, got %d", len(entries), len(results))
	}
	for i, entry := range entries {
		w, _ := decodeSize(t, results[i].data)
		if w != sizes[entry.Layer] {
			t.Fatalf("slot %d: expected image for %q (width %d), got width %d", i, entry.Layer, sizes[entry.Layer], w)
		}
	}
}

func TestFetchImages_CustomImagesSkipRemote(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected remote fetch for %s", r.URL.Query().Get("layer"))
	}))
	defer remote.Close()

	cfg := &config.TenantConfig{
		OGCServiceURL: remote.URL + "/ows/",
		Resources:     demoResources(),
	}
	s := newTestService(t, cfg, allPermitted())

	custom := pngBytes(t, 4, 4)
	results := s.fetchImages(context.Background(), "demo", []expandedEntry{
		{Layer: "roofs", CustomImage: custom},
	}, "image/png", "", nil)
	if len(results) != 1 || results[0].format != DefaultFormat {
		t.Fatalf("expected custom image entry tagged as png, got %+v", results)
	}
}

func TestFetchImages_DPIScalesCustomImagesOnly(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(pngBytes(t, 10, 20))
	}))
	defer remote.Close()

	cfg := &config.TenantConfig{
		OGCServiceURL: remote.URL + "/ows/",
		Resources:     demoResources(),
	}
	s := newTestService(t, cfg, allPermitted())

	custom := pngBytes(t, 10, 20)
	results := s.fetchImages(context.Background(), "demo", []expandedEntry{
		{Layer: "roofs", CustomImage: custom},
		{Layer: "walls"},
	}, "image/png", "180", nil)

	if w, h := decodeSize(t, results[0].data); w != 20 || h != 40 {
		t.Fatalf("expected custom image rescaled to 20x40, got %dx%d", w, h)
	}
	// The renderer receives the dpi parameter instead; its output is not rescaled.
	if w, h := decodeSize(t, results[1].data); w != 10 || h != 20 {
		t.Fatalf("expected remote image untouched, got %dx%d", w, h)
	}
}
