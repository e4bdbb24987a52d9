package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskforge/authcore/internal/corerr"
	"github.com/taskforge/authcore/internal/model"
)

// RoleRepository persists the administrator-mutable part of the role
// catalog. The two reserved roles are seeded by migration
// and never deleted here; this repository only loads and upserts rows, it
// does not own the in-memory Catalog's reserved-role constants.
type RoleRepository interface {
	LoadAll(ctx context.Context) ([]model.Role, error)
	Upsert(ctx context.Context, role model.Role) error
}

// PostgresRoleRepository implements RoleRepository over pgxpool, storing
// the permission set as a JSONB column.
type PostgresRoleRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRoleRepository(pool *pgxpool.Pool) *PostgresRoleRepository {
	return &PostgresRoleRepository{pool: pool}
}

func (r *PostgresRoleRepository) LoadAll(ctx context.Context) ([]model.Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT name, display_name, active, permissions FROM roles`)
	if err != nil {
		return nil, corerr.Internal(fmt.Errorf("load roles: %w", err))
	}
	defer rows.Close()

	var out []model.Role
	for rows.Next() {
		var role model.Role
		var raw []byte
		if err := rows.Scan(&role.Name, &role.DisplayName, &role.Active, &raw); err != nil {
			return nil, corerr.Internal(fmt.Errorf("scan role: %w", err))
		}
		if err := json.Unmarshal(raw, &role.Permissions); err != nil {
			return nil, corerr.Internal(fmt.Errorf("decode role permissions: %w", err))
		}
		out = append(out, role)
	}
	return out, nil
}

func (r *PostgresRoleRepository) Upsert(ctx context.Context, role model.Role) error {
	raw, err := json.Marshal(role.Permissions)
	if err != nil {
		return corerr.Internal(fmt.Errorf("encode role permissions: %w", err))
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO roles (name, display_name, active, permissions)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET display_name = $2, active = $3, permissions = $4`,
		role.Name, role.DisplayName, role.Active, raw)
	if err != nil {
		return corerr.Internal(fmt.Errorf("upsert role: %w", err))
	}
	return nil
}

var _ RoleRepository = (*PostgresRoleRepository)(nil)
