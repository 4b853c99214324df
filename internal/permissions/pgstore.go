package permissions

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/qwc-services/qwc-legend-service/internal/db"
)

// Store reads grants from a permissions table in the config database,
// for deployments that keep permissions there instead of in tenant files.
//
// Expected schema: wms_layer_permissions(identity, role, service_name,
// layer_name, position). The public role applies to every identity.
type Store struct {
	pool *db.Pool
}

func NewStore(pool *db.Pool) *Store {
	return &Store{pool: pool}
}

const grantsQuery = `
SELECT role, layer_name
FROM wms_layer_permissions
WHERE service_name = $1 AND (identity = $2 OR role = $3)
ORDER BY role, position
`

func (s *Store) ResourcePermissions(ctx context.Context, service, identity string) ([]Grant, error) {
	rows, err := s.pool.Query(ctx, grantsQuery, service, identity, PublicRole)
	if err != nil {
		return nil, fmt.Errorf("query permissions for %q: %w", service, err)
	}
	defer rows.Close()

	var grants []Grant
	var current *Grant
	for rows.Next() {
		var role, layer string
		if err := rows.Scan(&role, &layer); err != nil {
			return nil, err
		}
		if current == nil || current.Role != role {
			grants = append(grants, Grant{Role: role})
			current = &grants[len(grants)-1]
		}
		current.Layers = append(current.Layers, layer)
	}
	if err := rows.Err(); err != nil && err != pgx.ErrNoRows {
		return nil, err
	}
	return grants, nil
}
