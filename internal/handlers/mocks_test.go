package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/cotravels/internal/models"
	"github.com/HammerMeetNail/cotravels/internal/services"
)

type mockAuthService struct {
	SignupFunc         func(ctx context.Context, params models.SignupParams) (*models.User, error)
	SigninFunc         func(ctx context.Context, identifier, password string) (*models.TokenPair, *models.User, error)
	RefreshFunc        func(ctx context.Context, accessToken, refreshToken string) (string, time.Time, error)
	LogoutFunc         func(ctx context.Context, userID uuid.UUID, accessToken, refreshToken string, mode models.LogoutMode) error
	AuthorizeFunc      func(ctx context.Context, token string) (*services.AccessClaims, error)
	ChangePasswordFunc func(ctx context.Context, userID uuid.UUID, params models.ChangePasswordParams) error
	DeleteAccountFunc  func(ctx context.Context, userID uuid.UUID) error
}

func (m *mockAuthService) Signup(ctx context.Context, params models.SignupParams) (*models.User, error) {
	if m.SignupFunc != nil {
		return m.SignupFunc(ctx, params)
	}
	return nil, nil
}

func (m *mockAuthService) Signin(ctx context.Context, identifier, password string) (*models.TokenPair, *models.User, error) {
	if m.SigninFunc != nil {
		return m.SigninFunc(ctx, identifier, password)
	}
	return nil, nil, nil
}

func (m *mockAuthService) Refresh(ctx context.Context, accessToken, refreshToken string) (string, time.Time, error) {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, accessToken, refreshToken)
	}
	return "", time.Time{}, nil
}

func (m *mockAuthService) Logout(ctx context.Context, userID uuid.UUID, accessToken, refreshToken string, mode models.LogoutMode) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, userID, accessToken, refreshToken, mode)
	}
	return nil
}

func (m *mockAuthService) Authorize(ctx context.Context, token string) (*services.AccessClaims, error) {
	if m.AuthorizeFunc != nil {
		return m.AuthorizeFunc(ctx, token)
	}
	return nil, nil
}

func (m *mockAuthService) ChangePassword(ctx context.Context, userID uuid.UUID, params models.ChangePasswordParams) error {
	if m.ChangePasswordFunc != nil {
		return m.ChangePasswordFunc(ctx, userID, params)
	}
	return nil
}

func (m *mockAuthService) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	if m.DeleteAccountFunc != nil {
		return m.DeleteAccountFunc(ctx, userID)
	}
	return nil
}

type mockUserService struct {
	GetByIDFunc           func(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateFunc            func(ctx context.Context, id uuid.UUID, patch models.UserPatch) (*models.User, error)
	SetProfilePictureFunc func(ctx context.Context, id uuid.UUID, data []byte) (*models.User, error)
}

func (m *mockUserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockUserService) Update(ctx context.Context, id uuid.UUID, patch models.UserPatch) (*models.User, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, patch)
	}
	return nil, nil
}

func (m *mockUserService) SetProfilePicture(ctx context.Context, id uuid.UUID, data []byte) (*models.User, error) {
	if m.SetProfilePictureFunc != nil {
		return m.SetProfilePictureFunc(ctx, id, data)
	}
	return nil, nil
}

type mockFriendService struct {
	SendRequestFunc         func(ctx context.Context, senderID, receiverID uuid.UUID) (*models.FriendRequest, error)
	AcceptRequestFunc       func(ctx context.Context, userID, requestID uuid.UUID) (*models.FriendRequest, error)
	RejectRequestFunc       func(ctx context.Context, userID, requestID uuid.UUID) (*models.FriendRequest, error)
	ListPendingRequestsFunc func(ctx context.Context, userID uuid.UUID) ([]models.FriendRequestWithUser, error)
	ListSentRequestsFunc    func(ctx context.Context, userID uuid.UUID) ([]models.FriendRequestWithUser, error)
	ListFriendsFunc         func(ctx context.Context, targetID, viewerID uuid.UUID) ([]models.Friend, error)
	RemoveFriendFunc        func(ctx context.Context, userID, friendID uuid.UUID) error
	UpdatePrivacyFunc       func(ctx context.Context, userID uuid.UUID, settings models.PrivacySettings) (*models.PrivacySettings, error)
	SuggestionsFunc         func(ctx context.Context, userID uuid.UUID) ([]models.Suggestion, error)
}

func (m *mockFriendService) SendRequest(ctx context.Context, senderID, receiverID uuid.UUID) (*models.FriendRequest, error) {
	if m.SendRequestFunc != nil {
		return m.SendRequestFunc(ctx, senderID, receiverID)
	}
	return nil, nil
}

func (m *mockFriendService) AcceptRequest(ctx context.Context, userID, requestID uuid.UUID) (*models.FriendRequest, error) {
	if m.AcceptRequestFunc != nil {
		return m.AcceptRequestFunc(ctx, userID, requestID)
	}
	return nil, nil
}

func (m *mockFriendService) RejectRequest(ctx context.Context, userID, requestID uuid.UUID) (*models.FriendRequest, error) {
	if m.RejectRequestFunc != nil {
		return m.RejectRequestFunc(ctx, userID, requestID)
	}
	return nil, nil
}

func (m *mockFriendService) ListPendingRequests(ctx context.Context, userID uuid.UUID) ([]models.FriendRequestWithUser, error) {
	if m.ListPendingRequestsFunc != nil {
		return m.ListPendingRequestsFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockFriendService) ListSentRequests(ctx context.Context, userID uuid.UUID) ([]models.FriendRequestWithUser, error) {
	if m.ListSentRequestsFunc != nil {
		return m.ListSentRequestsFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockFriendService) ListFriends(ctx context.Context, targetID, viewerID uuid.UUID) ([]models.Friend, error) {
	if m.ListFriendsFunc != nil {
		return m.ListFriendsFunc(ctx, targetID, viewerID)
	}
	return nil, nil
}

func (m *mockFriendService) RemoveFriend(ctx context.Context, userID, friendID uuid.UUID) error {
	if m.RemoveFriendFunc != nil {
		return m.RemoveFriendFunc(ctx, userID, friendID)
	}
	return nil
}

func (m *mockFriendService) UpdatePrivacy(ctx context.Context, userID uuid.UUID, settings models.PrivacySettings) (*models.PrivacySettings, error) {
	if m.UpdatePrivacyFunc != nil {
		return m.UpdatePrivacyFunc(ctx, userID, settings)
	}
	return nil, nil
}

func (m *mockFriendService) Suggestions(ctx context.Context, userID uuid.UUID) ([]models.Suggestion, error) {
	if m.SuggestionsFunc != nil {
		return m.SuggestionsFunc(ctx, userID)
	}
	return nil, nil
}

type mockBlockService struct {
	BlockFunc       func(ctx context.Context, blockerID, blockedID uuid.UUID) error
	UnblockFunc     func(ctx context.Context, blockerID, blockedID uuid.UUID) error
	ListBlockedFunc func(ctx context.Context, blockerID uuid.UUID) ([]models.BlockedUser, error)
}

func (m *mockBlockService) Block(ctx context.Context, blockerID, blockedID uuid.UUID) error {
	if m.BlockFunc != nil {
		return m.BlockFunc(ctx, blockerID, blockedID)
	}
	return nil
}

func (m *mockBlockService) Unblock(ctx context.Context, blockerID, blockedID uuid.UUID) error {
	if m.UnblockFunc != nil {
		return m.UnblockFunc(ctx, blockerID, blockedID)
	}
	return nil
}

func (m *mockBlockService) ListBlocked(ctx context.Context, blockerID uuid.UUID) ([]models.BlockedUser, error) {
	if m.ListBlockedFunc != nil {
		return m.ListBlockedFunc(ctx, blockerID)
	}
	return nil, nil
}

type mockNotificationService struct {
	ListFunc        func(ctx context.Context, userID uuid.UUID, page models.NotificationPage) ([]models.Notification, error)
	UnreadCountFunc func(ctx context.Context, userID uuid.UUID) (int, error)
	MarkReadFunc    func(ctx context.Context, userID, notificationID uuid.UUID) (*models.Notification, error)
	MarkAllReadFunc func(ctx context.Context, userID uuid.UUID) (int64, error)
}

func (m *mockNotificationService) List(ctx context.Context, userID uuid.UUID, page models.NotificationPage) ([]models.Notification, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, userID, page)
	}
	return nil, nil
}

func (m *mockNotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	if m.UnreadCountFunc != nil {
		return m.UnreadCountFunc(ctx, userID)
	}
	return 0, nil
}

func (m *mockNotificationService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) (*models.Notification, error) {
	if m.MarkReadFunc != nil {
		return m.MarkReadFunc(ctx, userID, notificationID)
	}
	return nil, nil
}

func (m *mockNotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	if m.MarkAllReadFunc != nil {
		return m.MarkAllReadFunc(ctx, userID)
	}
	return 0, nil
}
