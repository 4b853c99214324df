package resources

import (
	"github.com/qwc-services/qwc-legend-service/internal/config"
)

// LayerNode is one layer or group of a map service, flattened out of the
// configured hierarchy. Nodes are never mutated after Collect.
type LayerNode struct {
	Name              string
	IsGroup           bool
	Hidden            bool
	HideSublayers     bool
	Sublayers         []string
	LegendImage       string
	LegendImageBase64 string
}

// ServiceTree is the flat lookup for one map service.
type ServiceTree struct {
	Root   string
	Layers map[string]*LayerNode
}

// Lookup is the per-tenant map of service name to layer tree.
type Lookup struct {
	Services map[string]*ServiceTree
}

// Collect builds the lookup for all configured WMS services.
func Collect(res config.Resources) *Lookup {
	services := make(map[string]*ServiceTree, len(res.WMSServices))
	for _, wms := range res.WMSServices {
		tree := &ServiceTree{
			Root:   wms.RootLayer.Name,
			Layers: make(map[string]*LayerNode),
		}
		collectLayers(wms.RootLayer, tree.Layers, false)
		services[wms.Name] = tree
	}
	return &Lookup{Services: services}
}

// Service returns the tree for a service name, or nil if unknown.
func (l *Lookup) Service(name string) *ServiceTree {
	if l == nil {
		return nil
	}
	return l.Services[name]
}

// Layer returns the node for a layer name, or nil if unknown.
func (t *ServiceTree) Layer(name string) *LayerNode {
	if t == nil {
		return nil
	}
	return t.Layers[name]
}

func collectLayers(entry config.LayerEntry, layers map[string]*LayerNode, hidden bool) {
	if len(entry.Layers) > 0 {
		node := &LayerNode{
			Name:          entry.Name,
			IsGroup:       true,
			Hidden:        hidden,
			HideSublayers: entry.HideSublayers,
		}
		layers[entry.Name] = node
		hidden = hidden || entry.HideSublayers
		for _, sub := range entry.Layers {
			collectLayers(sub, layers, hidden)
			// Colliding group/layer names: the group entry may have been
			// overwritten by a leaf entry in the nested call.
			if layers[entry.Name] == node {
				node.Sublayers = append(node.Sublayers, sub.Name)
			}
		}
		return
	}

	layers[entry.Name] = &LayerNode{
		Name:              entry.Name,
		Hidden:            hidden,
		LegendImage:       entry.LegendImage,
		LegendImageBase64: entry.LegendImageBase64,
	}
}
