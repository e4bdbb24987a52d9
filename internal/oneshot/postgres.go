package oneshot

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
	"github.com/taskforge/authcore/internal/refreshstore"
)

// PostgresStore is the pgxpool-backed Store implementation, raw SQL,
// no generated query layer (mirrors refreshstore.PostgresStore).
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Issue(ctx context.Context, principalID uuid.UUID, purpose model.OneShotPurpose, ttl time.Duration) (string, error) {
	plaintext, err := refreshstore.GenerateToken()
	if err != nil {
		return "", err
	}

	now := time.Now()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO one_shot_tokens (id, principal_id, token_hash, purpose, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New(), principalID, refreshstore.HashToken(plaintext), purpose, now, now.Add(ttl))
	if err != nil {
		return "", corerr.Internal(fmt.Errorf("insert one-shot token: %w", err))
	}
	return plaintext, nil
}

// Consume uses the affected-row pattern: the UPDATE predicate includes
// consumed_at IS NULL, and exactly one concurrent caller can ever see
// RowsAffected() == 1 for a given row.
func (s *PostgresStore) Consume(ctx context.Context, plaintext string, purpose model.OneShotPurpose) (uuid.UUID, error) {
	hash := refreshstore.HashToken(plaintext)

	var id, principalID uuid.UUID
	var expiresAt time.Time
	row := s.pool.QueryRow(ctx, `SELECT id, principal_id, expires_at FROM one_shot_tokens WHERE token_hash = $1 AND purpose = $2`, hash, purpose)
	if err := row.Scan(&id, &principalID, &expiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrInvalid
		}
		return uuid.Nil, corerr.Internal(fmt.Errorf("lookup one-shot token: %w", err))
	}

	if time.Now().After(expiresAt) {
		return uuid.Nil, ErrExpired
	}

	tag, err := s.pool.Exec(ctx, `UPDATE one_shot_tokens SET consumed_at = now() WHERE id = $1 AND consumed_at IS NULL`, id)
	if err != nil {
		return uuid.Nil, corerr.Internal(fmt.Errorf("consume one-shot token: %w", err))
	}
	if tag.RowsAffected() != 1 {
		return uuid.Nil, ErrAlreadyUsed
	}

	return principalID, nil
}

func (s *PostgresStore) RevokeOutstanding(ctx context.Context, principalID uuid.UUID, purpose model.OneShotPurpose) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE one_shot_tokens SET consumed_at = now()
		WHERE principal_id = $1 AND purpose = $2 AND consumed_at IS NULL AND expires_at > now()`,
		principalID, purpose)
	if err != nil {
		return corerr.Internal(fmt.Errorf("revoke outstanding one-shot tokens: %w", err))
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
