package permissions

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PublicRole is granted to every identity, including anonymous requests.
const PublicRole = "public"

type fileServiceGrant struct {
	Name   string   `yaml:"name"`
	Layers []string `yaml:"layers"`
}

type fileRole struct {
	Role        string             `yaml:"role"`
	WMSServices []fileServiceGrant `yaml:"wms_services"`
}

type fileUser struct {
	Name  string   `yaml:"name"`
	Roles []string `yaml:"roles"`
}

type permissionsFile struct {
	Users []fileUser `yaml:"users"`
	Roles []fileRole `yaml:"roles"`
}

// FileReader serves grants from a per-tenant permissions file. The file is
// parsed once at construction; the tenant registry rebuilds the reader on
// configuration reload.
type FileReader struct {
	userRoles map[string][]string
	roles     map[string]fileRole
	roleOrder []string
}

// LoadFile parses a permissions file into a FileReader.
func LoadFile(path string) (*FileReader, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read permissions %s: %w", path, err)
	}

	var pf permissionsFile
	if err := yaml.Unmarshal(b, &pf); err != nil {
		return nil, fmt.Errorf("parse permissions %s: %w", path, err)
	}

	r := &FileReader{
		userRoles: make(map[string][]string, len(pf.Users)),
		roles:     make(map[string]fileRole, len(pf.Roles)),
	}
	for _, u := range pf.Users {
		r.userRoles[u.Name] = u.Roles
	}
	for _, role := range pf.Roles {
		r.roles[role.Role] = role
		r.roleOrder = append(r.roleOrder, role.Role)
	}
	return r, nil
}

// ResourcePermissions returns the grants for a service visible to the
// identity: the public role plus every role the identity is a member of.
func (r *FileReader) ResourcePermissions(ctx context.Context, service, identity string) ([]Grant, error) {
	held := map[string]struct{}{PublicRole: {}}
	for _, role := range r.userRoles[identity] {
		held[role] = struct{}{}
	}

	var grants []Grant
	for _, roleName := range r.roleOrder {
		if _, ok := held[roleName]; !ok {
			continue
		}
		role := r.roles[roleName]
		for _, svc := range role.WMSServices {
			if svc.Name != service {
				continue
			}
			grants = append(grants, Grant{Role: role.Role, Layers: svc.Layers})
		}
	}
	return grants, nil
}
