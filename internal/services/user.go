package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/cotravels/internal/logging"
	"github.com/HammerMeetNail/cotravels/internal/models"
)

var (
	ErrUserNotFound      = kindError(ErrNotFound, "user not found")
	ErrDuplicateEmail    = kindError(ErrConflict, "email already registered")
	ErrDuplicateUsername = kindError(ErrConflict, "username already taken")
	ErrEmptyPatch        = kindError(ErrValidation, "no fields to update")
	ErrUnsupportedImage  = kindError(ErrValidation, "profile picture must be a JPEG, PNG, GIF or WebP image")
	ErrImageTooLarge     = kindError(ErrValidation, "profile picture must be at most 5 MB")
	ErrEmptyImage        = kindError(ErrValidation, "profile picture is empty")
)

const MaxProfilePictureBytes = 5 << 20

// AllowedImageTypes maps accepted picture content types to file extensions.
var AllowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// BlobStore keeps uploaded files and hands back an opaque name.
type BlobStore interface {
	Store(ctx context.Context, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, name string) error
}

const userColumns = `id, name, username, email, password_hash, phone_number, profile_picture,
	date_of_birth, gender, city, state, country, bio, travel_preferences, languages_spoken,
	verification_status, friends_list_privacy, friend_requests_privacy, is_deleted,
	created_at, updated_at`

func scanUser(row Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(
		&u.ID, &u.Name, &u.Username, &u.Email, &u.PasswordHash, &u.PhoneNumber, &u.ProfilePicture,
		&u.DateOfBirth, &u.Gender, &u.City, &u.State, &u.Country, &u.Bio, &u.TravelPreferences,
		&u.LanguagesSpoken, &u.VerificationStatus, &u.FriendsListPrivacy, &u.FriendRequestsPrivacy,
		&u.IsDeleted, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type UserService struct {
	db    DB
	blobs BlobStore
}

func NewUserService(db DB, blobs BlobStore) *UserService {
	return &UserService{db: db, blobs: blobs}
}

// GetByID returns an active user.
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1 AND NOT is_deleted",
		id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// findByIdentifier matches username or email and includes deleted users.
func (s *UserService) findByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = $1 OR email = $2 LIMIT 1",
		strings.TrimSpace(identifier), normalizeEmail(identifier),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

// identityMatches returns every user, deleted or not, holding either the
// email or the username.
func identityMatches(ctx context.Context, q Querier, email, username string) ([]*models.User, error) {
	rows, err := q.Query(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = $1 OR username = $2 FOR UPDATE",
		email, username,
	)
	if err != nil {
		return nil, fmt.Errorf("find identity matches: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan identity match: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identity matches: %w", err)
	}
	return users, nil
}

func insertUser(ctx context.Context, q Querier, p models.SignupParams, hash string, dob *time.Time) (*models.User, error) {
	u, err := scanUser(q.QueryRow(ctx,
		`INSERT INTO users (name, username, email, password_hash, phone_number, date_of_birth,
		                    gender, city, state, country, bio)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING `+userColumns,
		p.Name, p.Username, p.Email, hash, p.PhoneNumber, dob,
		p.Gender, p.City, p.State, p.Country, p.Bio,
	))
	if err != nil {
		return nil, identityConflict(err, "create user")
	}
	return u, nil
}

// restoreUser reactivates a soft-deleted row, overwriting its profile and
// password. Privacy settings and preferences reset to defaults.
func restoreUser(ctx context.Context, q Querier, id uuid.UUID, p models.SignupParams, hash string, dob *time.Time) (*models.User, error) {
	u, err := scanUser(q.QueryRow(ctx,
		`UPDATE users
		 SET name = $2, username = $3, email = $4, password_hash = $5, phone_number = $6,
		     date_of_birth = $7, gender = $8, city = $9, state = $10, country = $11, bio = $12,
		     profile_picture = NULL, travel_preferences = '{}', languages_spoken = '{}',
		     friends_list_privacy = 'public', friend_requests_privacy = 'everyone',
		     is_deleted = FALSE, updated_at = NOW()
		 WHERE id = $1 AND is_deleted
		 RETURNING `+userColumns,
		id, p.Name, p.Username, p.Email, hash, p.PhoneNumber, dob,
		p.Gender, p.City, p.State, p.Country, p.Bio,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, identityConflict(err, "restore user")
	}
	return u, nil
}

func identityConflict(err error, op string) error {
	switch uniqueConstraint(err) {
	case "":
		return fmt.Errorf("%s: %w", op, err)
	case "users_username_key":
		return ErrDuplicateUsername
	default:
		return ErrDuplicateEmail
	}
}

func (s *UserService) softDelete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.Exec(ctx,
		"UPDATE users SET is_deleted = TRUE, updated_at = NOW() WHERE id = $1 AND NOT is_deleted",
		id,
	)
	if err != nil {
		return fmt.Errorf("soft delete user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *UserService) updatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	result, err := s.db.Exec(ctx,
		"UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1 AND NOT is_deleted",
		id, hash,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Update applies the non-nil fields of patch.
func (s *UserService) Update(ctx context.Context, id uuid.UUID, patch models.UserPatch) (*models.User, error) {
	if patch.Empty() {
		return nil, ErrEmptyPatch
	}
	if err := validateStruct(patch); err != nil {
		return nil, err
	}

	var sets []string
	var args []any
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Email != nil {
		set("email", normalizeEmail(*patch.Email))
	}
	if patch.Name != nil {
		set("name", strings.TrimSpace(*patch.Name))
	}
	if patch.DateOfBirth != nil {
		dob, err := time.Parse(dateLayout, *patch.DateOfBirth)
		if err != nil {
			return nil, fieldError("date_of_birth", "must be a date formatted YYYY-MM-DD")
		}
		set("date_of_birth", dob)
	}
	if patch.Gender != nil {
		set("gender", *patch.Gender)
	}
	if patch.PhoneNumber != nil {
		set("phone_number", *patch.PhoneNumber)
	}
	if patch.City != nil {
		set("city", strings.TrimSpace(*patch.City))
	}
	if patch.State != nil {
		set("state", strings.TrimSpace(*patch.State))
	}
	if patch.Country != nil {
		set("country", strings.TrimSpace(*patch.Country))
	}
	if patch.Bio != nil {
		set("bio", *patch.Bio)
	}
	if patch.TravelPreferences != nil {
		set("travel_preferences", normalizeTags(*patch.TravelPreferences))
	}
	if patch.LanguagesSpoken != nil {
		set("languages_spoken", normalizeTags(*patch.LanguagesSpoken))
	}

	args = append(args, id)
	query := fmt.Sprintf(
		"UPDATE users SET %s, updated_at = NOW() WHERE id = $%d AND NOT is_deleted RETURNING %s",
		strings.Join(sets, ", "), len(args), userColumns,
	)

	u, err := scanUser(s.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, identityConflict(err, "update user")
	}
	return u, nil
}

// normalizeTags trims, drops empties and de-duplicates case-insensitively,
// keeping the first spelling.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

// SetProfilePicture stores data as the user's picture and removes the
// previous one.
func (s *UserService) SetProfilePicture(ctx context.Context, id uuid.UUID, data []byte) (*models.User, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	if len(data) > MaxProfilePictureBytes {
		return nil, ErrImageTooLarge
	}
	contentType := http.DetectContentType(data)
	if _, ok := AllowedImageTypes[contentType]; !ok {
		return nil, ErrUnsupportedImage
	}

	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name, err := s.blobs.Store(ctx, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("store profile picture: %w", err)
	}

	u, err := scanUser(s.db.QueryRow(ctx,
		"UPDATE users SET profile_picture = $2, updated_at = NOW() WHERE id = $1 AND NOT is_deleted RETURNING "+userColumns,
		id, name,
	))
	if err != nil {
		s.deleteBlob(ctx, name)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("save profile picture: %w", err)
	}

	if current.ProfilePicture != nil && *current.ProfilePicture != "" {
		s.deleteBlob(ctx, *current.ProfilePicture)
	}
	return u, nil
}

func (s *UserService) deleteBlob(ctx context.Context, name string) {
	if err := s.blobs.Delete(ctx, name); err != nil {
		logging.Warn("Failed to delete profile picture", logging.Fields{
			"blob":  name,
			"error": err.Error(),
		})
	}
}
