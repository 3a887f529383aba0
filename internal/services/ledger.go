package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/cotravels/internal/logging"
	"github.com/HammerMeetNail/cotravels/internal/models"
)

const blacklistKeyPrefix = "token_blacklist:"

// SessionLedger records issued tokens and revocations. Tokens are stored as
// SHA-256 hashes. Postgres is the source of truth; Redis only mirrors
// blacklist entries so a hit can skip the database. A Redis miss always
// falls through to Postgres.
type SessionLedger struct {
	db    DB
	redis RedisClient
	now   func() time.Time
}

func NewSessionLedger(db DB, redis RedisClient) *SessionLedger {
	return &SessionLedger{db: db, redis: redis, now: time.Now}
}

func (l *SessionLedger) RecordAccess(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	return recordAccess(ctx, l.db, userID, token, l.now(), expiresAt)
}

// RecordRefresh stores a refresh token valid for ttl and returns its expiry.
func (l *SessionLedger) RecordRefresh(ctx context.Context, userID uuid.UUID, token string, ttl time.Duration) (time.Time, error) {
	now := l.now()
	expiresAt := now.Add(ttl)
	if err := recordRefresh(ctx, l.db, userID, token, now, expiresAt); err != nil {
		return time.Time{}, err
	}
	return expiresAt, nil
}

// RecordSession stores an access/refresh pair in one transaction.
func (l *SessionLedger) RecordSession(ctx context.Context, userID uuid.UUID, access string, accessExpiry time.Time, refresh string, refreshTTL time.Duration) (time.Time, error) {
	now := l.now()
	refreshExpiry := now.Add(refreshTTL)

	err := withTx(ctx, l.db, func(tx Tx) error {
		if err := recordAccess(ctx, tx, userID, access, now, accessExpiry); err != nil {
			return err
		}
		return recordRefresh(ctx, tx, userID, refresh, now, refreshExpiry)
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("record session: %w", err)
	}
	return refreshExpiry, nil
}

func recordAccess(ctx context.Context, q Querier, userID uuid.UUID, token string, issuedAt, expiresAt time.Time) error {
	_, err := q.Exec(ctx,
		`INSERT INTO jwt_sessions (user_id, token_hash, issued_at, expires_at)
		 VALUES ($1, $2, $3, $4)`,
		userID, hashToken(token), issuedAt, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert access session: %w", err)
	}
	return nil
}

func recordRefresh(ctx context.Context, q Querier, userID uuid.UUID, token string, issuedAt, expiresAt time.Time) error {
	_, err := q.Exec(ctx,
		`INSERT INTO refresh_tokens (user_id, token_hash, issued_at, expires_at)
		 VALUES ($1, $2, $3, $4)`,
		userID, hashToken(token), issuedAt, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

func (l *SessionLedger) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	hash := hashToken(token)

	if l.redis != nil {
		hit, err := l.redis.Exists(ctx, blacklistKeyPrefix+hash)
		if err != nil {
			logging.Warn("Blacklist cache lookup failed", logging.Fields{"error": err.Error()})
		} else if hit {
			return true, nil
		}
	}

	var blacklisted bool
	err := l.db.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM token_blacklist WHERE token_hash = $1)",
		hash,
	).Scan(&blacklisted)
	if err != nil {
		return false, fmt.Errorf("check blacklist: %w", err)
	}
	return blacklisted, nil
}

// Blacklist revokes a single access token. Repeating it is a no-op.
func (l *SessionLedger) Blacklist(ctx context.Context, token string, expiresAt time.Time) error {
	hash := hashToken(token)
	_, err := l.db.Exec(ctx,
		`INSERT INTO token_blacklist (token_hash, expires_at)
		 VALUES ($1, $2)
		 ON CONFLICT (token_hash) DO NOTHING`,
		hash, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert blacklist entry: %w", err)
	}
	l.mirror(ctx, []models.BlacklistEntry{{TokenHash: hash, ExpiresAt: expiresAt}})
	return nil
}

// BlacklistAllForUser revokes every recorded access token of the user and
// deletes all of their refresh tokens in a single transaction. Sessions
// recorded after the transaction starts are not covered.
func (l *SessionLedger) BlacklistAllForUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var inserted []models.BlacklistEntry

	err := withTx(ctx, l.db, func(tx Tx) error {
		rows, err := tx.Query(ctx,
			`INSERT INTO token_blacklist (token_hash, expires_at)
			 SELECT DISTINCT token_hash, expires_at FROM jwt_sessions WHERE user_id = $1
			 ON CONFLICT (token_hash) DO NOTHING
			 RETURNING token_hash, expires_at`,
			userID,
		)
		if err != nil {
			return fmt.Errorf("blacklist sessions: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var e models.BlacklistEntry
			if err := rows.Scan(&e.TokenHash, &e.ExpiresAt); err != nil {
				return fmt.Errorf("scan blacklisted session: %w", err)
			}
			inserted = append(inserted, e)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate blacklisted sessions: %w", err)
		}
		rows.Close()

		if _, err := tx.Exec(ctx, "DELETE FROM refresh_tokens WHERE user_id = $1", userID); err != nil {
			return fmt.Errorf("delete refresh tokens: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	l.mirror(ctx, inserted)
	return len(inserted), nil
}

// FindRefresh returns the stored refresh token owned by userID, or nil.
func (l *SessionLedger) FindRefresh(ctx context.Context, token string, userID uuid.UUID) (*models.RefreshToken, error) {
	rt := &models.RefreshToken{}
	err := l.db.QueryRow(ctx,
		`SELECT user_id, token_hash, issued_at, expires_at
		 FROM refresh_tokens
		 WHERE token_hash = $1 AND user_id = $2`,
		hashToken(token), userID,
	).Scan(&rt.UserID, &rt.TokenHash, &rt.IssuedAt, &rt.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return rt, nil
}

func (l *SessionLedger) DeleteRefresh(ctx context.Context, token string, userID uuid.UUID) error {
	_, err := l.db.Exec(ctx,
		"DELETE FROM refresh_tokens WHERE token_hash = $1 AND user_id = $2",
		hashToken(token), userID,
	)
	if err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

// PurgeExpired drops rows whose tokens can no longer be presented
// successfully. Blacklist rows go only once the token itself has expired.
func (l *SessionLedger) PurgeExpired(ctx context.Context) (models.PurgeResult, error) {
	now := l.now()
	var result models.PurgeResult

	statements := []struct {
		sql   string
		count *int64
	}{
		{"DELETE FROM jwt_sessions WHERE expires_at < $1", &result.AccessSessions},
		{"DELETE FROM refresh_tokens WHERE expires_at < $1", &result.RefreshTokens},
		{"DELETE FROM token_blacklist WHERE expires_at < $1", &result.Blacklisted},
	}
	for _, st := range statements {
		tag, err := l.db.Exec(ctx, st.sql, now)
		if err != nil {
			return result, fmt.Errorf("purge expired tokens: %w", err)
		}
		*st.count = tag.RowsAffected()
	}
	return result, nil
}

func (l *SessionLedger) mirror(ctx context.Context, entries []models.BlacklistEntry) {
	if l.redis == nil {
		return
	}
	now := l.now()
	for _, e := range entries {
		ttl := e.ExpiresAt.Sub(now)
		if ttl <= 0 {
			continue
		}
		if err := l.redis.Set(ctx, blacklistKeyPrefix+e.TokenHash, "1", ttl); err != nil {
			logging.Warn("Failed to mirror blacklist entry", logging.Fields{"error": err.Error()})
			return
		}
	}
}
