package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/cotravels/internal/models"
)

// AuthServiceInterface defines the contract for session lifecycle operations.
type AuthServiceInterface interface {
	Signup(ctx context.Context, params models.SignupParams) (*models.User, error)
	Signin(ctx context.Context, identifier, password string) (*models.TokenPair, *models.User, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (string, time.Time, error)
	Logout(ctx context.Context, userID uuid.UUID, accessToken, refreshToken string, mode models.LogoutMode) error
	Authorize(ctx context.Context, token string) (*AccessClaims, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, params models.ChangePasswordParams) error
	DeleteAccount(ctx context.Context, userID uuid.UUID) error
}

// UserServiceInterface defines the contract for profile operations.
type UserServiceInterface interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Update(ctx context.Context, id uuid.UUID, patch models.UserPatch) (*models.User, error)
	SetProfilePicture(ctx context.Context, id uuid.UUID, data []byte) (*models.User, error)
}

// FriendServiceInterface defines the contract for friend-graph operations.
type FriendServiceInterface interface {
	SendRequest(ctx context.Context, senderID, receiverID uuid.UUID) (*models.FriendRequest, error)
	AcceptRequest(ctx context.Context, userID, requestID uuid.UUID) (*models.FriendRequest, error)
	RejectRequest(ctx context.Context, userID, requestID uuid.UUID) (*models.FriendRequest, error)
	ListPendingRequests(ctx context.Context, userID uuid.UUID) ([]models.FriendRequestWithUser, error)
	ListSentRequests(ctx context.Context, userID uuid.UUID) ([]models.FriendRequestWithUser, error)
	ListFriends(ctx context.Context, targetID, viewerID uuid.UUID) ([]models.Friend, error)
	RemoveFriend(ctx context.Context, userID, friendID uuid.UUID) error
	UpdatePrivacy(ctx context.Context, userID uuid.UUID, settings models.PrivacySettings) (*models.PrivacySettings, error)
	Suggestions(ctx context.Context, userID uuid.UUID) ([]models.Suggestion, error)
}

// BlockServiceInterface defines the contract for blocking operations.
type BlockServiceInterface interface {
	Block(ctx context.Context, blockerID, blockedID uuid.UUID) error
	Unblock(ctx context.Context, blockerID, blockedID uuid.UUID) error
	ListBlocked(ctx context.Context, blockerID uuid.UUID) ([]models.BlockedUser, error)
}

// NotificationServiceInterface defines the contract for reading notifications.
type NotificationServiceInterface interface {
	List(ctx context.Context, userID uuid.UUID, page models.NotificationPage) ([]models.Notification, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) (*models.Notification, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

var (
	_ AuthServiceInterface         = (*AuthService)(nil)
	_ UserServiceInterface         = (*UserService)(nil)
	_ FriendServiceInterface       = (*FriendService)(nil)
	_ BlockServiceInterface        = (*BlockService)(nil)
	_ NotificationServiceInterface = (*NotificationService)(nil)
)
