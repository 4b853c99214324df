package legend

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"

	"github.com/qwc-services/qwc-legend-service/internal/resources"
)

// Legend image types selecting the filename fallback chain.
const (
	TypeDefault   = "default"
	TypeThumbnail = "thumbnail"
	TypeTooltip   = "tooltip"
)

// customImage returns the custom legend image for a layer, trying in order:
//   - <service>/<layer>_<style>_<suffix>.png
//   - <service>/<layer>_<suffix>.png
//   - default_<suffix>.png
//   - <service>/<layer>_<style>.png
//   - <service>/<layer>.png
//   - the node's configured legend_image path
//   - default.png
//   - the node's inline base64 legend image
//
// where _<suffix> applies for the "thumbnail" and "tooltip" types. The
// first existing non-empty file wins; empty files are skipped and the
// search continues. Returns nil when no candidate matches.
func (s *Service) customImage(node *resources.LayerNode, service, layer, style, typ string) []byte {
	var candidates []string
	switch typ {
	case TypeThumbnail:
		candidates = append(candidates,
			filepath.Join(service, layer+"_"+style+"_thumbnail.png"),
			filepath.Join(service, layer+"_thumbnail.png"),
			"default_thumbnail.png",
		)
	case TypeTooltip:
		candidates = append(candidates,
			filepath.Join(service, layer+"_"+style+"_tooltip.png"),
			filepath.Join(service, layer+"_tooltip.png"),
			"default_tooltip.png",
		)
	}
	candidates = append(candidates,
		filepath.Join(service, layer+"_"+style+".png"),
		filepath.Join(service, layer+".png"),
	)
	if node.LegendImage != "" {
		candidates = append(candidates, node.LegendImage)
	}
	candidates = append(candidates, "default.png")

	for _, name := range candidates {
		path := filepath.Join(s.cfg.LegendImagesPath, name)
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			continue
		case err != nil:
			s.log.Warn().Err(err).Str("layer", layer).Str("path", path).
				Msg("legend image unreadable")
			continue
		case len(data) == 0:
			// An existing but empty file does not terminate the search.
			continue
		}
		s.log.Debug().Str("layer", layer).Str("path", path).
			Msg("using custom legend image")
		return data
	}

	if node.LegendImageBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(node.LegendImageBase64)
		if err != nil {
			s.log.Warn().Err(err).Str("layer", layer).
				Msg("invalid base64 legend image")
			return nil
		}
		if path, err := s.scratch.materialize(service+"/"+layer, data); err != nil {
			s.log.Warn().Err(err).Str("layer", layer).
				Msg("could not materialize inline legend image")
		} else {
			s.log.Debug().Str("layer", layer).Str("path", path).
				Msg("materialized inline legend image")
		}
		return data
	}

	s.log.Debug().Str("layer", layer).Str("type", typ).
		Msg("no custom legend image found")
	return nil
}
