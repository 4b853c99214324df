package permissions

import (
	"context"
)

// Grant is one permission record: a role granting visibility of an ordered
// list of layer names within a map service. No wildcard expansion happens
// here; grants carry concrete layer names only.
type Grant struct {
	Role   string
	Layers []string
}

// Reader resolves the grants an identity holds for a map service. An empty
// result means the service is unknown to the permission source or the
// identity holds no grant for it; callers must not distinguish the two.
type Reader interface {
	ResourcePermissions(ctx context.Context, service, identity string) ([]Grant, error)
}

// PermittedLayers unions the layer names of all grants. The second return
// is false when no grant applies at all.
func PermittedLayers(grants []Grant) (map[string]struct{}, bool) {
	if len(grants) == 0 {
		return nil, false
	}
	permitted := make(map[string]struct{})
	for _, g := range grants {
		for _, name := range g.Layers {
			permitted[name] = struct{}{}
		}
	}
	return permitted, true
}
