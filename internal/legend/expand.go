package legend

import (
	"github.com/qwc-services/qwc-legend-service/internal/resources"
)

// maxExpandDepth bounds the group recursion. The layer tree comes from
// trusted configuration, so this is a guard, not a correctness requirement.
const maxExpandDepth = 32

// expandLayer recursively expands a requested layer against the resource
// tree and the permitted-layer set, appending resolved entries to out.
// Returns true when any emitted entry carries a custom legend image.
//
// Groups collapse to a single fetch entry named after the group unless a
// sublayer has a custom image or the group hides its sublayers, in which
// case the filtered sublayer entries are emitted directly.
func (s *Service) expandLayer(ls LayerStyle, tree *resources.ServiceTree, permitted map[string]struct{}, service, typ string, depth int, out *[]expandedEntry) bool {
	if depth > maxExpandDepth {
		return false
	}
	if _, ok := permitted[ls.Layer]; !ok {
		return false
	}
	node := tree.Layer(ls.Layer)
	if node == nil {
		return false
	}

	if node.IsGroup {
		haveCustomImages := false
		var groupEntries []expandedEntry
		for _, sublayer := range node.Sublayers {
			sub := LayerStyle{Layer: sublayer, Style: ls.Style}
			haveCustomImages = s.expandLayer(sub, tree, permitted, service, typ, depth+1, &groupEntries) || haveCustomImages
		}

		if haveCustomImages || node.HideSublayers {
			*out = append(*out, groupEntries...)
		} else {
			// No special handling needed below: fetch the whole group in
			// one renderer call.
			*out = append(*out, expandedEntry{Layer: ls.Layer, Style: ls.Style})
		}
		return haveCustomImages
	}

	custom := s.customImage(node, service, ls.Layer, ls.Style, typ)
	*out = append(*out, expandedEntry{Layer: ls.Layer, Style: ls.Style, CustomImage: custom})
	return custom != nil
}
