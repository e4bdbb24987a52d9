package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskforge/authcore/internal/corerr"
)

// PostgresMFAStore backs mfa.Store with two tables: principals carry a
// nullable mfa_secret/mfa_enabled pair directly, and backup_codes holds
// one row per unused or consumed hash.
type PostgresMFAStore struct {
	pool *pgxpool.Pool
}

func NewPostgresMFAStore(pool *pgxpool.Pool) *PostgresMFAStore {
	return &PostgresMFAStore{pool: pool}
}

func (s *PostgresMFAStore) SaveSecret(ctx context.Context, principalID uuid.UUID, secret string) error {
	_, err := s.pool.Exec(ctx, `UPDATE principals SET mfa_secret = $2, mfa_enabled = false WHERE id = $1`, principalID, secret)
	if err != nil {
		return corerr.Internal(fmt.Errorf("save mfa secret: %w", err))
	}
	return nil
}

func (s *PostgresMFAStore) Enable(ctx context.Context, principalID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `UPDATE principals SET mfa_enabled = true WHERE id = $1`, principalID)
	if err != nil {
		return corerr.Internal(fmt.Errorf("enable mfa: %w", err))
	}
	return nil
}

func (s *PostgresMFAStore) Secret(ctx context.Context, principalID uuid.UUID) (string, bool, error) {
	var secret *string
	var enabled bool
	row := s.pool.QueryRow(ctx, `SELECT mfa_secret, mfa_enabled FROM principals WHERE id = $1`, principalID)
	if err := row.Scan(&secret, &enabled); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, corerr.Unauthorized
		}
		return "", false, corerr.Internal(fmt.Errorf("load mfa secret: %w", err))
	}
	if secret == nil {
		return "", false, nil
	}
	return *secret, enabled, nil
}

func (s *PostgresMFAStore) ReplaceBackupCodes(ctx context.Context, principalID uuid.UUID, hashes []string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return corerr.Internal(fmt.Errorf("begin backup code tx: %w", err))
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM backup_codes WHERE principal_id = $1`, principalID); err != nil {
		return corerr.Internal(fmt.Errorf("clear backup codes: %w", err))
	}
	for _, h := range hashes {
		if _, err := tx.Exec(ctx, `INSERT INTO backup_codes (principal_id, code_hash) VALUES ($1, $2)`, principalID, h); err != nil {
			return corerr.Internal(fmt.Errorf("insert backup code: %w", err))
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return corerr.Internal(fmt.Errorf("commit backup codes: %w", err))
	}
	return nil
}

func (s *PostgresMFAStore) ConsumeBackupCode(ctx context.Context, principalID uuid.UUID, hash string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM backup_codes WHERE principal_id = $1 AND code_hash = $2`, principalID, hash)
	if err != nil {
		return false, corerr.Internal(fmt.Errorf("consume backup code: %w", err))
	}
	return tag.RowsAffected() == 1, nil
}
