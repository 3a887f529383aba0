package models

import (
	"time"

	"github.com/google/uuid"
)

type FriendRequestStatus string

// Cancelled is a valid stored state, but no operation transitions into it.
const (
	FriendRequestPending   FriendRequestStatus = "pending"
	FriendRequestAccepted  FriendRequestStatus = "accepted"
	FriendRequestRejected  FriendRequestStatus = "rejected"
	FriendRequestCancelled FriendRequestStatus = "cancelled"
)

func (s FriendRequestStatus) Terminal() bool {
	return s != FriendRequestPending
}

type FriendRequest struct {
	ID          uuid.UUID           `json:"id"`
	SenderID    uuid.UUID           `json:"sender_id"`
	ReceiverID  uuid.UUID           `json:"receiver_id"`
	Status      FriendRequestStatus `json:"status"`
	SentAt      time.Time           `json:"sent_at"`
	RespondedAt *time.Time          `json:"responded_at,omitempty"`
}

// FriendRequestWithUser pairs a request with the other party's profile.
type FriendRequestWithUser struct {
	FriendRequest
	User UserSummary `json:"user"`
}

type Friend struct {
	UserSummary
	Since time.Time `json:"since"`
}

// Suggestion is a ranked candidate friend.
type Suggestion struct {
	UserSummary
	FriendOfFriend    bool     `json:"friend_of_friend"`
	SharedPreferences []string `json:"shared_preferences"`
}
