package httpapi

import (
	"net/http"
	"strings"

	"github.com/qwc-services/qwc-legend-service/internal/legend"
)

// passthroughParams are forwarded verbatim to the rendering server.
// Empty values are stripped before forwarding.
var passthroughParams = []string{
	"bbox",
	"crs",
	"scale",
	"width",
	"height",
	"boxspace",
	"layerspace",
	"layertitlespace",
	"symbolspace",
	"iconlabelspace",
	"symbolwidth",
	"symbolheight",
	"layerfontfamily",
	"itemfontfamily",
	"layerfontbold",
	"itemfontbold",
	"layerfontsize",
	"itemfontsize",
	"layerfontitalic",
	"itemfontitalic",
	"layerfontcolor",
	"itemfontcolor",
	"layertitle",
	"rulelabel",
	"transparent",
}

// parseLegendRequest reads the legend query parameters. Parameter names are
// matched case-insensitively, as WMS clients mix cases freely.
func parseLegendRequest(r *http.Request, serviceName string) legend.Request {
	args := make(map[string]string)
	for key, values := range r.URL.Query() {
		if len(values) == 0 {
			continue
		}
		lower := strings.ToLower(key)
		if _, ok := args[lower]; !ok {
			args[lower] = values[0]
		}
	}

	dpi := args["dpi"]
	params := make(map[string]string)
	if dpi != "" {
		params["dpi"] = dpi
	}
	for _, name := range passthroughParams {
		if v := args[name]; v != "" {
			params[name] = v
		}
	}

	format := args["format"]
	if format == "" {
		format = legend.DefaultFormat
	}

	return legend.Request{
		Service: serviceName,
		Layers:  args["layer"],
		Styles:  args["styles"],
		Format:  format,
		Type:    strings.ToLower(args["type"]),
		DPI:     dpi,
		Params:  params,
	}
}
