// Package legend resolves and assembles legend graphics for WMS layers,
// serving custom legend images where configured and proxying everything
// else to the OGC rendering server.
package legend

import "strings"

// Request carries one parsed legend request.
type Request struct {
	Service  string
	Layers   string
	Styles   string
	Format   string
	Type     string
	DPI      string
	Params   map[string]string
	Identity string
}

// Result is the response payload: either image data or an exception
// document, with its media type.
type Result struct {
	Data        []byte
	ContentType string
}

// LayerStyle pairs a requested layer name with its style.
type LayerStyle struct {
	Layer string
	Style string
}

// expandedEntry is one resolved unit of work. A non-nil CustomImage means
// no remote fetch is needed.
type expandedEntry struct {
	Layer       string
	Style       string
	CustomImage []byte
}

// zipLayerStyles pairs the comma-separated layer and style lists, padding
// missing trailing styles with the empty string.
func zipLayerStyles(layersParam, stylesParam string) []LayerStyle {
	layers := splitList(layersParam)
	styles := splitList(stylesParam)
	out := make([]LayerStyle, 0, len(layers))
	for i, layer := range layers {
		style := ""
		if i < len(styles) {
			style = styles[i]
		}
		out = append(out, LayerStyle{Layer: layer, Style: style})
	}
	return out
}

func splitList(param string) []string {
	if param == "" {
		return nil
	}
	return strings.Split(param, ",")
}
