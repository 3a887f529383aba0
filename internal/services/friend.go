package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/cotravels/internal/logging"
	"github.com/HammerMeetNail/cotravels/internal/models"
)

var (
	ErrSelfRequest             = kindError(ErrValidation, "cannot send a friend request to yourself")
	ErrReceiverNotFound        = kindError(ErrNotFound, "receiver not found")
	ErrRequestsDisabled        = kindError(ErrForbidden, "user is not accepting friend requests")
	ErrRequiresMutualFriend    = kindError(ErrForbidden, "user only accepts requests from friends of friends")
	ErrUserBlocked             = kindError(ErrForbidden, "cannot send a friend request to this user")
	ErrDuplicateRequest        = kindError(ErrConflict, "a friend request already exists between these users")
	ErrAlreadyFriends          = kindError(ErrConflict, "already friends")
	ErrFriendRequestNotFound   = kindError(ErrNotFound, "friend request not found")
	ErrRequestAlreadyProcessed = kindError(ErrConflict, "friend request already processed")
	ErrNotFriends              = kindError(ErrNotFound, "friendship not found")
	ErrFriendshipIntegrity     = kindError(ErrIntegrity, "friendship rows are not symmetric")
	ErrFriendsListForbidden    = kindError(ErrForbidden, "friends list is not visible")
)

const MaxSuggestions = 10

type FriendService struct {
	db            DB
	notifications *NotificationService
}

func NewFriendService(db DB, notifications *NotificationService) *FriendService {
	return &FriendService{db: db, notifications: notifications}
}

// SendRequest creates a pending request from sender to receiver and
// notifies the receiver. Preconditions are checked in a fixed order.
func (s *FriendService) SendRequest(ctx context.Context, senderID, receiverID uuid.UUID) (*models.FriendRequest, error) {
	if senderID == receiverID {
		return nil, ErrSelfRequest
	}

	var policy models.FriendRequestsPrivacy
	err := s.db.QueryRow(ctx,
		"SELECT friend_requests_privacy FROM users WHERE id = $1 AND NOT is_deleted",
		receiverID,
	).Scan(&policy)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrReceiverNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get receiver: %w", err)
	}

	switch policy {
	case models.FriendRequestsNone:
		return nil, ErrRequestsDisabled
	case models.FriendRequestsFriendsOfFriends:
		mutual, err := s.hasMutualFriend(ctx, senderID, receiverID)
		if err != nil {
			return nil, err
		}
		if !mutual {
			return nil, ErrRequiresMutualFriend
		}
	}

	blocked, err := blockedEitherWay(ctx, s.db, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, ErrUserBlocked
	}

	// Any earlier request between the pair counts, whatever its status.
	// Only a block clears the history.
	existing, err := s.exists(ctx, "check existing request",
		`SELECT EXISTS(
			SELECT 1 FROM friend_requests
			WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
		)`, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if existing {
		return nil, ErrDuplicateRequest
	}

	friends, err := s.AreFriends(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if friends {
		return nil, ErrAlreadyFriends
	}

	var req *models.FriendRequest
	var note *models.Notification
	err = withTx(ctx, s.db, func(tx Tx) error {
		req, err = scanFriendRequest(tx.QueryRow(ctx,
			`INSERT INTO friend_requests (sender_id, receiver_id, status)
			 VALUES ($1, $2, 'pending')
			 RETURNING `+friendRequestColumns,
			senderID, receiverID,
		))
		if err != nil {
			if uniqueConstraint(err) != "" {
				return ErrDuplicateRequest
			}
			return fmt.Errorf("insert friend request: %w", err)
		}

		username, err := usernameOf(ctx, tx, senderID)
		if err != nil {
			return err
		}
		note, err = s.notifications.Append(ctx, tx, receiverID, models.NotificationTypeFriendRequest,
			username+" sent you a friend request")
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifications.Dispatch(note)
	return req, nil
}

// AcceptRequest lets the receiver accept a pending request. Both friend
// rows and the sender's notification commit together.
func (s *FriendService) AcceptRequest(ctx context.Context, userID, requestID uuid.UUID) (*models.FriendRequest, error) {
	var req *models.FriendRequest
	var note *models.Notification

	err := withTx(ctx, s.db, func(tx Tx) error {
		var err error
		req, err = lockPendingRequest(ctx, tx, userID, requestID)
		if err != nil {
			return err
		}

		if err := respond(ctx, tx, req, models.FriendRequestAccepted); err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO friends (user_id, friend_id) VALUES ($1, $2), ($2, $1)`,
			req.SenderID, req.ReceiverID,
		)
		if err != nil {
			if uniqueConstraint(err) != "" {
				return ErrAlreadyFriends
			}
			return fmt.Errorf("insert friendship: %w", err)
		}

		username, err := usernameOf(ctx, tx, req.ReceiverID)
		if err != nil {
			return err
		}
		note, err = s.notifications.Append(ctx, tx, req.SenderID, models.NotificationTypeFriendAccept,
			username+" accepted your friend request")
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifications.Dispatch(note)
	return req, nil
}

// RejectRequest lets the receiver reject a pending request.
func (s *FriendService) RejectRequest(ctx context.Context, userID, requestID uuid.UUID) (*models.FriendRequest, error) {
	var req *models.FriendRequest
	err := withTx(ctx, s.db, func(tx Tx) error {
		var err error
		req, err = lockPendingRequest(ctx, tx, userID, requestID)
		if err != nil {
			return err
		}
		return respond(ctx, tx, req, models.FriendRequestRejected)
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

const friendRequestColumns = "id, sender_id, receiver_id, status, sent_at, responded_at"

func scanFriendRequest(row Row) (*models.FriendRequest, error) {
	r := &models.FriendRequest{}
	if err := row.Scan(&r.ID, &r.SenderID, &r.ReceiverID, &r.Status, &r.SentAt, &r.RespondedAt); err != nil {
		return nil, err
	}
	return r, nil
}

// lockPendingRequest loads a request addressed to receiverID and requires
// it to still be pending.
func lockPendingRequest(ctx context.Context, tx Tx, receiverID, requestID uuid.UUID) (*models.FriendRequest, error) {
	req, err := scanFriendRequest(tx.QueryRow(ctx,
		"SELECT "+friendRequestColumns+" FROM friend_requests WHERE id = $1 AND receiver_id = $2 FOR UPDATE",
		requestID, receiverID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrFriendRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get friend request: %w", err)
	}
	if req.Status.Terminal() {
		return nil, ErrRequestAlreadyProcessed
	}
	return req, nil
}

func respond(ctx context.Context, tx Tx, req *models.FriendRequest, status models.FriendRequestStatus) error {
	var respondedAt time.Time
	err := tx.QueryRow(ctx,
		"UPDATE friend_requests SET status = $2, responded_at = NOW() WHERE id = $1 RETURNING responded_at",
		req.ID, status,
	).Scan(&respondedAt)
	if err != nil {
		return fmt.Errorf("update friend request: %w", err)
	}
	req.Status = status
	req.RespondedAt = &respondedAt
	return nil
}

func usernameOf(ctx context.Context, q Querier, userID uuid.UUID) (string, error) {
	var username string
	err := q.QueryRow(ctx, "SELECT username FROM users WHERE id = $1", userID).Scan(&username)
	if err != nil {
		return "", fmt.Errorf("get username: %w", err)
	}
	return username, nil
}

// ListPendingRequests returns pending requests the user has received.
func (s *FriendService) ListPendingRequests(ctx context.Context, userID uuid.UUID) ([]models.FriendRequestWithUser, error) {
	return s.listRequests(ctx,
		`SELECT r.id, r.sender_id, r.receiver_id, r.status, r.sent_at, r.responded_at,
		        u.id, u.username, u.name, u.profile_picture, u.city, u.country
		 FROM friend_requests r
		 JOIN users u ON u.id = r.sender_id
		 WHERE r.receiver_id = $1 AND r.status = 'pending' AND NOT u.is_deleted
		 ORDER BY r.sent_at DESC`,
		userID,
	)
}

// ListSentRequests returns pending requests the user has sent.
func (s *FriendService) ListSentRequests(ctx context.Context, userID uuid.UUID) ([]models.FriendRequestWithUser, error) {
	return s.listRequests(ctx,
		`SELECT r.id, r.sender_id, r.receiver_id, r.status, r.sent_at, r.responded_at,
		        u.id, u.username, u.name, u.profile_picture, u.city, u.country
		 FROM friend_requests r
		 JOIN users u ON u.id = r.receiver_id
		 WHERE r.sender_id = $1 AND r.status = 'pending' AND NOT u.is_deleted
		 ORDER BY r.sent_at DESC`,
		userID,
	)
}

func (s *FriendService) listRequests(ctx context.Context, query string, userID uuid.UUID) ([]models.FriendRequestWithUser, error) {
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list friend requests: %w", err)
	}
	defer rows.Close()

	requests := []models.FriendRequestWithUser{}
	for rows.Next() {
		var r models.FriendRequestWithUser
		if err := rows.Scan(
			&r.ID, &r.SenderID, &r.ReceiverID, &r.Status, &r.SentAt, &r.RespondedAt,
			&r.User.ID, &r.User.Username, &r.User.Name, &r.User.ProfilePicture, &r.User.City, &r.User.Country,
		); err != nil {
			return nil, fmt.Errorf("scan friend request: %w", err)
		}
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate friend requests: %w", err)
	}
	return requests, nil
}

// ListFriends returns target's friends if viewer may see them under the
// target's friends_list_privacy.
func (s *FriendService) ListFriends(ctx context.Context, targetID, viewerID uuid.UUID) ([]models.Friend, error) {
	var privacy models.FriendsListPrivacy
	err := s.db.QueryRow(ctx,
		"SELECT friends_list_privacy FROM users WHERE id = $1 AND NOT is_deleted",
		targetID,
	).Scan(&privacy)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get friends list privacy: %w", err)
	}

	visible, err := s.canViewFriends(ctx, privacy, targetID, viewerID)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, ErrFriendsListForbidden
	}

	rows, err := s.db.Query(ctx,
		`SELECT u.id, u.username, u.name, u.profile_picture, u.city, u.country, f.created_at
		 FROM friends f
		 JOIN users u ON u.id = f.friend_id
		 WHERE f.user_id = $1 AND NOT u.is_deleted
		 ORDER BY u.username`,
		targetID,
	)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	defer rows.Close()

	friends := []models.Friend{}
	for rows.Next() {
		var f models.Friend
		if err := rows.Scan(&f.ID, &f.Username, &f.Name, &f.ProfilePicture, &f.City, &f.Country, &f.Since); err != nil {
			return nil, fmt.Errorf("scan friend: %w", err)
		}
		friends = append(friends, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate friends: %w", err)
	}
	return friends, nil
}

func (s *FriendService) canViewFriends(ctx context.Context, privacy models.FriendsListPrivacy, targetID, viewerID uuid.UUID) (bool, error) {
	if viewerID == targetID {
		return true, nil
	}
	switch privacy {
	case models.FriendsListPublic:
		return true, nil
	case models.FriendsListFriends:
		return s.AreFriends(ctx, viewerID, targetID)
	default:
		return false, nil
	}
}

// RemoveFriend deletes both rows of a friendship. Finding exactly one row
// means the pair is corrupt; the transaction is rolled back untouched.
func (s *FriendService) RemoveFriend(ctx context.Context, userID, friendID uuid.UUID) error {
	return withTx(ctx, s.db, func(tx Tx) error {
		result, err := tx.Exec(ctx,
			`DELETE FROM friends
			 WHERE (user_id = $1 AND friend_id = $2)
			    OR (user_id = $2 AND friend_id = $1)`,
			userID, friendID,
		)
		if err != nil {
			return fmt.Errorf("delete friendship: %w", err)
		}

		switch result.RowsAffected() {
		case 2:
			return nil
		case 0:
			return ErrNotFriends
		default:
			logging.Error("Asymmetric friendship detected", logging.Fields{
				"operation": "remove_friend",
				"user_id":   userID.String(),
				"friend_id": friendID.String(),
				"rows":      result.RowsAffected(),
			})
			return ErrFriendshipIntegrity
		}
	})
}

// UpdatePrivacy validates and stores both privacy settings.
func (s *FriendService) UpdatePrivacy(ctx context.Context, userID uuid.UUID, settings models.PrivacySettings) (*models.PrivacySettings, error) {
	verr := &ValidationError{}
	if !settings.FriendsListPrivacy.Valid() {
		verr.Fields = append(verr.Fields, FieldError{
			Field:   "friends_list_privacy",
			Message: "must be one of: public friends private",
		})
	}
	if !settings.FriendRequestsPrivacy.Valid() {
		verr.Fields = append(verr.Fields, FieldError{
			Field:   "friend_requests_privacy",
			Message: "must be one of: everyone friends_of_friends none",
		})
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}

	out := &models.PrivacySettings{}
	err := s.db.QueryRow(ctx,
		`UPDATE users SET friends_list_privacy = $2, friend_requests_privacy = $3, updated_at = NOW()
		 WHERE id = $1 AND NOT is_deleted
		 RETURNING friends_list_privacy, friend_requests_privacy`,
		userID, settings.FriendsListPrivacy, settings.FriendRequestsPrivacy,
	).Scan(&out.FriendsListPrivacy, &out.FriendRequestsPrivacy)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update privacy: %w", err)
	}
	return out, nil
}

type suggestionCandidate struct {
	summary        models.UserSummary
	friendOfFriend bool
	preferences    []string
}

// Suggestions ranks up to MaxSuggestions users: friends of friends first,
// then by number of shared travel preferences.
func (s *FriendService) Suggestions(ctx context.Context, userID uuid.UUID) ([]models.Suggestion, error) {
	var prefs []string
	err := s.db.QueryRow(ctx,
		"SELECT travel_preferences FROM users WHERE id = $1 AND NOT is_deleted",
		userID,
	).Scan(&prefs)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get travel preferences: %w", err)
	}

	rows, err := s.db.Query(ctx,
		`WITH excluded AS (
			SELECT $1::uuid AS id
			UNION SELECT friend_id FROM friends WHERE user_id = $1
			UNION SELECT blocked_id FROM user_blocks WHERE blocker_id = $1
			UNION SELECT blocker_id FROM user_blocks WHERE blocked_id = $1
		), fof AS (
			SELECT DISTINCT f2.friend_id AS id
			FROM friends f1
			JOIN friends f2 ON f2.user_id = f1.friend_id
			WHERE f1.user_id = $1
		)
		SELECT u.id, u.username, u.name, u.profile_picture, u.city, u.country,
		       u.id IN (SELECT id FROM fof) AS friend_of_friend, u.travel_preferences
		FROM users u
		WHERE NOT u.is_deleted
		  AND u.id NOT IN (SELECT id FROM excluded)
		  AND (u.id IN (SELECT id FROM fof) OR u.travel_preferences && $2::text[])
		ORDER BY u.username`,
		userID, prefs,
	)
	if err != nil {
		return nil, fmt.Errorf("query suggestion candidates: %w", err)
	}
	defer rows.Close()

	var candidates []suggestionCandidate
	for rows.Next() {
		var c suggestionCandidate
		if err := rows.Scan(
			&c.summary.ID, &c.summary.Username, &c.summary.Name, &c.summary.ProfilePicture,
			&c.summary.City, &c.summary.Country, &c.friendOfFriend, &c.preferences,
		); err != nil {
			return nil, fmt.Errorf("scan suggestion candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate suggestion candidates: %w", err)
	}

	return rankSuggestions(candidates, prefs, MaxSuggestions), nil
}

// rankSuggestions keeps candidates that are friends of friends or share a
// preference, sorts them stably and truncates to limit.
func rankSuggestions(candidates []suggestionCandidate, prefs []string, limit int) []models.Suggestion {
	mine := make(map[string]bool, len(prefs))
	for _, p := range prefs {
		mine[strings.ToLower(p)] = true
	}

	out := make([]models.Suggestion, 0, len(candidates))
	for _, c := range candidates {
		shared := []string{}
		for _, p := range c.preferences {
			if mine[strings.ToLower(p)] {
				shared = append(shared, p)
			}
		}
		if !c.friendOfFriend && len(shared) == 0 {
			continue
		}
		out = append(out, models.Suggestion{
			UserSummary:       c.summary,
			FriendOfFriend:    c.friendOfFriend,
			SharedPreferences: shared,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FriendOfFriend != out[j].FriendOfFriend {
			return out[i].FriendOfFriend
		}
		return len(out[i].SharedPreferences) > len(out[j].SharedPreferences)
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// AreFriends reports a friendship row in either direction, so a pair left
// half-written still counts.
func (s *FriendService) AreFriends(ctx context.Context, a, b uuid.UUID) (bool, error) {
	return s.exists(ctx, "check friendship",
		`SELECT EXISTS(
			SELECT 1 FROM friends
			WHERE (user_id = $1 AND friend_id = $2) OR (user_id = $2 AND friend_id = $1)
		)`, a, b)
}

func (s *FriendService) hasMutualFriend(ctx context.Context, a, b uuid.UUID) (bool, error) {
	return s.exists(ctx, "check mutual friend",
		`SELECT EXISTS(
			SELECT 1 FROM friends fa
			JOIN friends fb ON fb.friend_id = fa.friend_id
			WHERE fa.user_id = $1 AND fb.user_id = $2
		)`, a, b)
}

func (s *FriendService) exists(ctx context.Context, op, query string, args ...any) (bool, error) {
	var found bool
	if err := s.db.QueryRow(ctx, query, args...).Scan(&found); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return found, nil
}
