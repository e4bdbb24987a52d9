package refreshstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskforge/authcore/internal/corerr"
	"github.com/taskforge/authcore/internal/model"
)

// PostgresStore is the pgxpool-backed Store implementation. It uses raw
// SQL rather than a generated query layer (a db.Queries
// package was not part of the retrieved pack).
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Issue(ctx context.Context, principalID uuid.UUID, parent *uuid.UUID, ttl time.Duration) (string, model.RefreshTokenRecord, error) {
	plaintext, err := GenerateToken()
	if err != nil {
		return "", model.RefreshTokenRecord{}, err
	}

	record, err := s.insert(ctx, s.pool, principalID, HashToken(plaintext), parent, ttl)
	if err != nil {
		return "", model.RefreshTokenRecord{}, corerr.Internal(fmt.Errorf("insert refresh token: %w", err))
	}
	return plaintext, record, nil
}

func (s *PostgresStore) insert(ctx context.Context, q queryer, principalID uuid.UUID, tokenHash string, parent *uuid.UUID, ttl time.Duration) (model.RefreshTokenRecord, error) {
	now := time.Now()
	var rec model.RefreshTokenRecord
	row := q.QueryRow(ctx, `
		INSERT INTO refresh_tokens (id, principal_id, token_hash, parent_id, issued_at, expires_at, revoked)
		VALUES ($1, $2, $3, $4, $5, $6, false)
		RETURNING id, principal_id, token_hash, parent_id, issued_at, expires_at, revoked`,
		uuid.New(), principalID, tokenHash, parent, now, now.Add(ttl))

	var parentID *uuid.UUID
	if err := row.Scan(&rec.ID, &rec.PrincipalID, &rec.TokenHash, &parentID, &rec.IssuedAt, &rec.ExpiresAt, &rec.Revoked); err != nil {
		return model.RefreshTokenRecord{}, err
	}
	rec.ParentID = parentID
	return rec, nil
}

// queryer is satisfied by both *pgxpool.Pool and pgx.Tx, letting insert be
// shared between the standalone Issue path and Rotate's in-transaction path.
type queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Rotate implements the atomicity a rotation requires: a single transaction
// performs lookup-revoke-issue. The SELECT ... FOR UPDATE row lock plus the
// conditional UPDATE ... WHERE revoked = false, combined with checking rows
// affected, is what guarantees exactly one winner under concurrent rotation
// attempts.
func (s *PostgresStore) Rotate(ctx context.Context, plaintext string, ttl time.Duration) (string, model.RefreshTokenRecord, error) {
	hash := HashToken(plaintext)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", model.RefreshTokenRecord{}, corerr.Internal(fmt.Errorf("begin rotate tx: %w", err))
	}
	defer tx.Rollback(ctx)

	var existing model.RefreshTokenRecord
	row := tx.QueryRow(ctx, `
		SELECT id, principal_id, token_hash, parent_id, issued_at, expires_at, revoked
		FROM refresh_tokens WHERE token_hash = $1 FOR UPDATE`, hash)
	var parentID *uuid.UUID
	if err := row.Scan(&existing.ID, &existing.PrincipalID, &existing.TokenHash, &parentID, &existing.IssuedAt, &existing.ExpiresAt, &existing.Revoked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", model.RefreshTokenRecord{}, corerr.Unauthorized
		}
		return "", model.RefreshTokenRecord{}, corerr.Internal(fmt.Errorf("lookup refresh token: %w", err))
	}
	existing.ParentID = parentID

	if existing.Revoked {
		// Reuse-after-rotation: theft. Commit is unnecessary here — use a
		// fresh top-level call so family revocation isn't lost if this
		// transaction later rolls back for an unrelated reason.
		if err := s.revokeFamily(ctx, s.pool, existing, "theft_detected"); err != nil {
			return "", model.RefreshTokenRecord{}, corerr.Internal(err)
		}
		return "", existing, corerr.TheftDetected
	}

	if time.Now().After(existing.ExpiresAt) {
		return "", model.RefreshTokenRecord{}, corerr.Unauthorized
	}

	tag, err := tx.Exec(ctx, `UPDATE refresh_tokens SET revoked = true, revoked_reason = 'rotated', revoked_at = now() WHERE id = $1 AND revoked = false`, existing.ID)
	if err != nil {
		return "", model.RefreshTokenRecord{}, corerr.Internal(fmt.Errorf("revoke prior token: %w", err))
	}
	if tag.RowsAffected() != 1 {
		// Another concurrent rotation won the race after our SELECT FOR
		// UPDATE released (shouldn't happen under FOR UPDATE, but fail
		// closed rather than issue a duplicate successor).
		return "", model.RefreshTokenRecord{}, corerr.Unauthorized
	}

	newPlaintext, err := GenerateToken()
	if err != nil {
		return "", model.RefreshTokenRecord{}, err
	}
	parentCopy := existing.ID
	newRecord, err := s.insert(ctx, tx, existing.PrincipalID, HashToken(newPlaintext), &parentCopy, ttl)
	if err != nil {
		return "", model.RefreshTokenRecord{}, corerr.Internal(fmt.Errorf("insert rotated token: %w", err))
	}

	if err := tx.Commit(ctx); err != nil {
		return "", model.RefreshTokenRecord{}, corerr.Internal(fmt.Errorf("commit rotate tx: %w", err))
	}
	return newPlaintext, newRecord, nil
}

func (s *PostgresStore) RevokeFamilyByToken(ctx context.Context, plaintext string, reason string) error {
	hash := HashToken(plaintext)
	var rec model.RefreshTokenRecord
	row := s.pool.QueryRow(ctx, `SELECT id, principal_id, parent_id FROM refresh_tokens WHERE token_hash = $1`, hash)
	var parentID *uuid.UUID
	if err := row.Scan(&rec.ID, &rec.PrincipalID, &parentID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return corerr.Internal(err)
	}
	rec.ParentID = parentID
	return s.revokeFamily(ctx, s.pool, rec, reason)
}

// revokeFamily walks up to the root via parent pointers, then revokes
// every row sharing that root (root and all descendants) in one
// statement using a recursive CTE.
func (s *PostgresStore) revokeFamily(ctx context.Context, q queryer, rec model.RefreshTokenRecord, reason string) error {
	rootID := rec.ID
	for {
		var parent *uuid.UUID
		row := q.QueryRow(ctx, `SELECT parent_id FROM refresh_tokens WHERE id = $1`, rootID)
		if err := row.Scan(&parent); err != nil {
			return fmt.Errorf("walk to family root: %w", err)
		}
		if parent == nil {
			break
		}
		rootID = *parent
	}

	_, err := q.Exec(ctx, `
		WITH RECURSIVE family AS (
			SELECT id FROM refresh_tokens WHERE id = $1
			UNION ALL
			SELECT rt.id FROM refresh_tokens rt JOIN family f ON rt.parent_id = f.id
		)
		UPDATE refresh_tokens SET revoked = true, revoked_reason = $2, revoked_at = now()
		WHERE id IN (SELECT id FROM family) AND revoked = false`, rootID, reason)
	return err
}

func (s *PostgresStore) RevokeAllForPrincipal(ctx context.Context, principalID uuid.UUID, reason string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE refresh_tokens SET revoked = true, revoked_reason = $2, revoked_at = now()
		WHERE principal_id = $1 AND revoked = false`, principalID, reason)
	if err != nil {
		return corerr.Internal(fmt.Errorf("revoke all for principal: %w", err))
	}
	return nil
}

func (s *PostgresStore) RevokeExpired(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < now()`)
	if err != nil {
		return 0, corerr.Internal(fmt.Errorf("sweep expired refresh tokens: %w", err))
	}
	return tag.RowsAffected(), nil
}
