package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMissingToken        = kindError(ErrUnauthorized, "authorization header missing")
	ErrInvalidToken        = kindError(ErrUnauthorized, "invalid token")
	ErrTokenExpired        = kindError(ErrUnauthorized, "token expired")
	ErrTokenBlacklisted    = kindError(ErrUnauthorized, "token revoked")
	ErrInvalidRefreshToken = kindError(ErrUnauthorized, "invalid refresh token")
)

// AccessClaims is the payload of an access token: sub carries the email,
// uid the user id and jti a per-token identifier.
type AccessClaims struct {
	UserID uuid.UUID `json:"uid"`
	jwt.RegisteredClaims
}

func (c *AccessClaims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// TokenCodec signs and verifies HS256 access tokens.
type TokenCodec struct {
	secret []byte
	now    func() time.Time
}

func NewTokenCodec(secret string) *TokenCodec {
	return &TokenCodec{secret: []byte(secret), now: time.Now}
}

// Sign issues a token for the given identity that expires after ttl.
func (c *TokenCodec) Sign(email string, userID uuid.UUID, ttl time.Duration) (string, time.Time, error) {
	issued := c.now()
	expiry := issued.Add(ttl)

	claims := AccessClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return token, claims.ExpiresAt.Time, nil
}

// Verify checks structure and signature only. Expired tokens pass so the
// refresh flow can recover the user from them.
func (c *TokenCodec) Verify(raw string) (*AccessClaims, error) {
	if raw == "" {
		return nil, ErrMissingToken
	}

	claims := &AccessClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID == uuid.Nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing required claims", ErrInvalidToken)
	}
	return claims, nil
}

// VerifyCurrent is Verify plus an expiry check.
func (c *TokenCodec) VerifyCurrent(raw string) (*AccessClaims, error) {
	claims, err := c.Verify(raw)
	if err != nil {
		return nil, err
	}
	if c.Expired(claims) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}

func (c *TokenCodec) Expired(claims *AccessClaims) bool {
	return !c.now().Before(claims.ExpiresAtTime())
}

// refreshTokenBytes gives 96 hex characters of opaque refresh token.
const refreshTokenBytes = 48

func generateRefreshToken() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// hashToken is the form in which every token is stored.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// IsAuthError reports whether err is one of the authorization failures.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
