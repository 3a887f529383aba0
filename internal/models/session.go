package models

import (
	"time"

	"github.com/google/uuid"
)

// AccessSession is one issued access token. Rows are never mutated; the
// blacklist decides revocation.
type AccessSession struct {
	UserID    uuid.UUID
	TokenHash string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type RefreshToken struct {
	UserID    uuid.UUID
	TokenHash string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (r *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

type BlacklistEntry struct {
	TokenHash     string
	ExpiresAt     time.Time
	BlacklistedAt time.Time
}

// TokenPair is what a successful signin hands back to the caller.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"-"`
	RefreshExpiresAt time.Time `json:"-"`
	TokenType        string    `json:"token_type"`
}

type LogoutMode int

const (
	LogoutSingle LogoutMode = iota
	LogoutAll
)

// PurgeResult counts rows removed by a ledger purge.
type PurgeResult struct {
	AccessSessions int64
	RefreshTokens  int64
	Blacklisted    int64
}
