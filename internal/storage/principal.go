// Package storage is the Postgres-backed persistence layer for
// principals, roles, and their membership sets. It is hand-written raw
// SQL over pgxpool rather than a generated query layer, because an
// internal/storage/db package (sqlc-generated) was referenced
// throughout the wider service but never present in the retrieved
// pack (see DESIGN.md).
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskforge/authcore/internal/corerr"
	"github.com/taskforge/authcore/internal/model"
)

// PrincipalRepository is the contract the principal resolver and credential service depend on for loading and
// mutating principal rows.
type PrincipalRepository interface {
	Create(ctx context.Context, handle, contact, passwordVerifier string, role string, tier model.Tier) (model.Principal, error)
	GetByID(ctx context.Context, id uuid.UUID) (model.Principal, error)
	GetByHandleOrContact(ctx context.Context, identifier string) (model.Principal, error)
	PasswordVerifier(ctx context.Context, id uuid.UUID) (string, error)
	UpdatePasswordVerifier(ctx context.Context, id uuid.UUID, verifier string) error
	SetVerified(ctx context.Context, id uuid.UUID) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	SetRole(ctx context.Context, id uuid.UUID, role string) error
	SetTier(ctx context.Context, id uuid.UUID, tier model.Tier) error
}

// PostgresPrincipalRepository implements PrincipalRepository over pgxpool.
type PostgresPrincipalRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresPrincipalRepository(pool *pgxpool.Pool) *PostgresPrincipalRepository {
	return &PostgresPrincipalRepository{pool: pool}
}

func (r *PostgresPrincipalRepository) Create(ctx context.Context, handle, contact, passwordVerifier string, role string, tier model.Tier) (model.Principal, error) {
	now := time.Now()
	id := uuid.New()

	_, err := r.pool.Exec(ctx, `
		INSERT INTO principals (id, handle, contact, password_verifier, active, verified, role, tier, created_at)
		VALUES ($1, $2, $3, $4, true, false, $5, $6, $7)`,
		id, handle, contact, passwordVerifier, role, tier, now)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Principal{}, corerr.Conflict("handle or contact already registered")
		}
		return model.Principal{}, corerr.Internal(fmt.Errorf("insert principal: %w", err))
	}

	return model.Principal{
		ID:        id,
		Handle:    handle,
		Contact:   contact,
		Active:    true,
		Verified:  false,
		Role:      role,
		Tier:      tier,
		CreatedAt: now,
	}, nil
}

func (r *PostgresPrincipalRepository) GetByID(ctx context.Context, id uuid.UUID) (model.Principal, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, handle, contact, active, verified, role, tier, created_at
		FROM principals WHERE id = $1`, id)
	return scanPrincipal(row, func(p *model.Principal) error {
		return r.loadMemberships(ctx, p)
	})
}

func (r *PostgresPrincipalRepository) GetByHandleOrContact(ctx context.Context, identifier string) (model.Principal, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, handle, contact, active, verified, role, tier, created_at
		FROM principals WHERE handle = $1 OR contact = $1`, identifier)
	return scanPrincipal(row, func(p *model.Principal) error {
		return r.loadMemberships(ctx, p)
	})
}

func scanPrincipal(row pgx.Row, loadMemberships func(*model.Principal) error) (model.Principal, error) {
	var p model.Principal
	var role string
	var tier model.Tier
	if err := row.Scan(&p.ID, &p.Handle, &p.Contact, &p.Active, &p.Verified, &role, &tier, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Principal{}, corerr.Unauthorized
		}
		return model.Principal{}, corerr.Internal(fmt.Errorf("scan principal: %w", err))
	}
	p.Role = role
	p.Tier = tier

	if err := loadMemberships(&p); err != nil {
		return model.Principal{}, err
	}
	return p, nil
}

func (r *PostgresPrincipalRepository) loadMemberships(ctx context.Context, p *model.Principal) error {
	teamRows, err := r.pool.Query(ctx, `SELECT team_id, role FROM team_memberships WHERE principal_id = $1`, p.ID)
	if err != nil {
		return corerr.Internal(fmt.Errorf("load team memberships: %w", err))
	}
	defer teamRows.Close()
	for teamRows.Next() {
		var m model.TeamMembership
		if err := teamRows.Scan(&m.TeamID, &m.Role); err != nil {
			return corerr.Internal(fmt.Errorf("scan team membership: %w", err))
		}
		p.TeamMemberships = append(p.TeamMemberships, m)
	}

	orgRows, err := r.pool.Query(ctx, `SELECT organization_id, role FROM org_memberships WHERE principal_id = $1`, p.ID)
	if err != nil {
		return corerr.Internal(fmt.Errorf("load org memberships: %w", err))
	}
	defer orgRows.Close()
	for orgRows.Next() {
		var m model.OrgMembership
		if err := orgRows.Scan(&m.OrganizationID, &m.Role); err != nil {
			return corerr.Internal(fmt.Errorf("scan org membership: %w", err))
		}
		p.OrgMemberships = append(p.OrgMemberships, m)
	}

	return nil
}

func (r *PostgresPrincipalRepository) PasswordVerifier(ctx context.Context, id uuid.UUID) (string, error) {
	var verifier string
	row := r.pool.QueryRow(ctx, `SELECT password_verifier FROM principals WHERE id = $1`, id)
	if err := row.Scan(&verifier); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", corerr.Unauthorized
		}
		return "", corerr.Internal(fmt.Errorf("load password verifier: %w", err))
	}
	return verifier, nil
}

func (r *PostgresPrincipalRepository) UpdatePasswordVerifier(ctx context.Context, id uuid.UUID, verifier string) error {
	_, err := r.pool.Exec(ctx, `UPDATE principals SET password_verifier = $2 WHERE id = $1`, id, verifier)
	if err != nil {
		return corerr.Internal(fmt.Errorf("update password verifier: %w", err))
	}
	return nil
}

func (r *PostgresPrincipalRepository) SetVerified(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE principals SET verified = true WHERE id = $1`, id)
	if err != nil {
		return corerr.Internal(fmt.Errorf("set verified: %w", err))
	}
	return nil
}

func (r *PostgresPrincipalRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	_, err := r.pool.Exec(ctx, `UPDATE principals SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return corerr.Internal(fmt.Errorf("set active: %w", err))
	}
	return nil
}

func (r *PostgresPrincipalRepository) SetRole(ctx context.Context, id uuid.UUID, role string) error {
	_, err := r.pool.Exec(ctx, `UPDATE principals SET role = $2 WHERE id = $1`, id, role)
	if err != nil {
		return corerr.Internal(fmt.Errorf("set role: %w", err))
	}
	return nil
}

func (r *PostgresPrincipalRepository) SetTier(ctx context.Context, id uuid.UUID, tier model.Tier) error {
	_, err := r.pool.Exec(ctx, `UPDATE principals SET tier = $2 WHERE id = $1`, id, tier)
	if err != nil {
		return corerr.Internal(fmt.Errorf("set tier: %w", err))
	}
	return nil
}

// isUniqueViolation recognizes Postgres unique-constraint violations
// (SQLSTATE 23505) without pulling in a pgconn-specific error type at
// every call site.
func isUniqueViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}

var _ PrincipalRepository = (*PostgresPrincipalRepository)(nil)
