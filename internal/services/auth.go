package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/cotravels/internal/models"
)

var (
	ErrAccountDeleted     = kindError(ErrForbidden, "account has been deleted")
	ErrInvalidCredentials = kindError(ErrUnauthorized, "invalid credentials")
	ErrInvalidOldPassword = kindError(ErrValidation, "current password is incorrect")
)

type AuthOptions struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// AuthService runs the session lifecycle: signup, signin, refresh, logout
// and per-request authorization.
type AuthService struct {
	db     DB
	users  *UserService
	creds  *CredentialStore
	codec  *TokenCodec
	ledger *SessionLedger
	opts   AuthOptions
	now    func() time.Time
}

func NewAuthService(db DB, users *UserService, creds *CredentialStore, codec *TokenCodec, ledger *SessionLedger, opts AuthOptions) *AuthService {
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 15 * time.Minute
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 24 * time.Hour
	}
	return &AuthService{
		db:     db,
		users:  users,
		creds:  creds,
		codec:  codec,
		ledger: ledger,
		opts:   opts,
		now:    time.Now,
	}
}

// Signup creates an account. When the email or username belongs to a
// soft-deleted account, that account is restored instead.
func (s *AuthService) Signup(ctx context.Context, p models.SignupParams) (*models.User, error) {
	p.Email = normalizeEmail(p.Email)
	p.Username = strings.TrimSpace(p.Username)
	p.Name = strings.TrimSpace(p.Name)
	if err := validateStruct(p); err != nil {
		return nil, err
	}

	var dob *time.Time
	if p.DateOfBirth != "" {
		d, err := time.Parse(dateLayout, p.DateOfBirth)
		if err != nil {
			return nil, fieldError("date_of_birth", "must be a date formatted YYYY-MM-DD")
		}
		dob = &d
	}

	hash, err := s.creds.Hash(p.Password)
	if err != nil {
		return nil, err
	}

	var user *models.User
	err = withTx(ctx, s.db, func(tx Tx) error {
		matches, err := identityMatches(ctx, tx, p.Email, p.Username)
		if err != nil {
			return err
		}
		restore, err := resolveSignup(matches, p.Email)
		if err != nil {
			return err
		}
		if restore != nil {
			user, err = restoreUser(ctx, tx, restore.ID, p, hash, dob)
		} else {
			user, err = insertUser(ctx, tx, p, hash, dob)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// resolveSignup decides between create (nil, nil), restore (user, nil) and
// conflict for the users already holding the requested identity.
func resolveSignup(matches []*models.User, email string) (*models.User, error) {
	for _, u := range matches {
		if u.IsDeleted {
			continue
		}
		if u.Email == email {
			return nil, ErrDuplicateEmail
		}
		return nil, ErrDuplicateUsername
	}

	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	default:
		// Email and username are reserved by two different deleted accounts.
		return nil, ErrDuplicateUsername
	}
}

// Signin checks credentials and issues an access/refresh pair.
func (s *AuthService) Signin(ctx context.Context, identifier, password string) (*models.TokenPair, *models.User, error) {
	if strings.TrimSpace(identifier) == "" || password == "" {
		return nil, nil, fieldError("identifier", "identifier and password are required")
	}

	user, err := s.users.findByIdentifier(ctx, identifier)
	if err != nil {
		return nil, nil, err
	}
	if user.IsDeleted {
		return nil, nil, ErrAccountDeleted
	}

	ok, err := s.creds.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, nil, fmt.Errorf("verify password for %s: %w", user.ID, err)
	}
	if !ok {
		return nil, nil, ErrInvalidCredentials
	}

	access, accessExpiry, err := s.codec.Sign(user.Email, user.ID, s.opts.AccessTTL)
	if err != nil {
		return nil, nil, err
	}
	refresh, err := generateRefreshToken()
	if err != nil {
		return nil, nil, err
	}
	refreshExpiry, err := s.ledger.RecordSession(ctx, user.ID, access, accessExpiry, refresh, s.opts.RefreshTTL)
	if err != nil {
		return nil, nil, err
	}

	return &models.TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExpiry,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExpiry,
		TokenType:        "bearer",
	}, user, nil
}

// Refresh mints a new access token for the user named in the presented,
// possibly expired, access token. The refresh token is not rotated.
func (s *AuthService) Refresh(ctx context.Context, accessToken, refreshToken string) (string, time.Time, error) {
	if accessToken == "" {
		return "", time.Time{}, ErrMissingToken
	}
	if refreshToken == "" {
		return "", time.Time{}, ErrInvalidRefreshToken
	}

	claims, err := s.codec.Verify(accessToken)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %v", ErrInvalidRefreshToken, err)
	}

	stored, err := s.ledger.FindRefresh(ctx, refreshToken, claims.UserID)
	if err != nil {
		return "", time.Time{}, err
	}
	if stored == nil || stored.Expired(s.now()) {
		return "", time.Time{}, ErrInvalidRefreshToken
	}

	token, expiry, err := s.codec.Sign(claims.Subject, claims.UserID, s.opts.AccessTTL)
	if err != nil {
		return "", time.Time{}, err
	}
	if err := s.ledger.RecordAccess(ctx, claims.UserID, token, expiry); err != nil {
		return "", time.Time{}, err
	}
	return token, expiry, nil
}

// Logout revokes the presented access token and its refresh token, or with
// LogoutAll every session the user has.
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID, accessToken, refreshToken string, mode models.LogoutMode) error {
	if mode == models.LogoutAll {
		_, err := s.ledger.BlacklistAllForUser(ctx, userID)
		return err
	}

	claims, err := s.codec.Verify(accessToken)
	if err != nil {
		return err
	}
	if err := s.ledger.Blacklist(ctx, accessToken, claims.ExpiresAtTime()); err != nil {
		return err
	}
	if refreshToken != "" {
		return s.ledger.DeleteRefresh(ctx, refreshToken, userID)
	}
	return nil
}

// Authorize validates an access token in a fixed order: signature, then
// blacklist, then expiry.
func (s *AuthService) Authorize(ctx context.Context, token string) (*AccessClaims, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	claims, err := s.codec.Verify(token)
	if err != nil {
		return nil, err
	}

	blacklisted, err := s.ledger.IsBlacklisted(ctx, token)
	if err != nil {
		return nil, err
	}
	if blacklisted {
		return nil, ErrTokenBlacklisted
	}

	if s.codec.Expired(claims) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}

// ChangePassword replaces the password. Existing sessions stay valid.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, p models.ChangePasswordParams) error {
	if err := validateStruct(p); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := s.creds.Verify(p.OldPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password for %s: %w", userID, err)
	}
	if !ok {
		return ErrInvalidOldPassword
	}
	if p.OldPassword == p.NewPassword {
		return fieldError("new_password", "must differ from the current password")
	}

	hash, err := s.creds.Hash(p.NewPassword)
	if err != nil {
		return err
	}
	return s.users.updatePasswordHash(ctx, userID, hash)
}

// DeleteAccount soft-deletes the user and then revokes every session.
func (s *AuthService) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	if err := s.users.softDelete(ctx, userID); err != nil {
		return err
	}
	if _, err := s.ledger.BlacklistAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("revoke sessions after delete: %w", err)
	}
	return nil
}

// PurgeExpired removes ledger rows for tokens that have expired.
func (s *AuthService) PurgeExpired(ctx context.Context) (models.PurgeResult, error) {
	return s.ledger.PurgeExpired(ctx)
}
