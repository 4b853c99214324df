package legend

import (
	"context"
	"sync"
	"time"
)

// fetchImages resolves every expanded entry to encoded image data: custom
// images are DPI-rescaled as needed, the rest are fetched from the
// renderer. Remote fetches fan out over a bounded worker pool; result
// order always matches entry order, never completion order. A failed fetch
// yields a placeholder in the target format, so composition keeps one slot
// per entry.
func (s *Service) fetchImages(ctx context.Context, service string, entries []expandedEntry, format, dpi string, params map[string]string) []imageEntry {
	results := make([]imageEntry, len(entries))

	var remote []int
	for i, entry := range entries {
		if entry.CustomImage != nil {
			data := entry.CustomImage
			if dpi != "" && dpi != "90" {
				data = s.rescaleForDPI(data, dpi, entry.Layer)
			}
			// Custom legend images are PNG by convention.
			results[i] = imageEntry{layer: entry.Layer, data: data, format: DefaultFormat}
			continue
		}
		remote = append(remote, i)
	}
	if len(remote) == 0 {
		return results
	}

	workers := s.concurrency
	if workers <= 0 {
		workers = 1
	}
	if workers > len(remote) {
		workers = len(remote)
	}

	jobs := make(chan int, workers)
	var wg sync.WaitGroup
	for n := 0; n < workers; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				entry := entries[i]
				start := time.Now()
				data, err := s.client.GetLegendGraphic(ctx, service, entry.Layer, entry.Style, format, params)
				s.metrics.ObserveRemoteFetch(time.Since(start))
				if err != nil {
					s.log.Warn().Err(err).Str("layer", entry.Layer).
						Msg("legend fetch failed, substituting placeholder")
					s.metrics.IncRemoteFetchFailure()
					results[i] = imageEntry{layer: entry.Layer, data: placeholderImage(format), format: format}
					continue
				}
				results[i] = imageEntry{layer: entry.Layer, data: data, format: format}
			}
		}()
	}
	for _, i := range remote {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}
