package models

import (
	"time"

	"github.com/google/uuid"
)

type FriendsListPrivacy string

const (
	FriendsListPublic  FriendsListPrivacy = "public"
	FriendsListFriends FriendsListPrivacy = "friends"
	FriendsListPrivate FriendsListPrivacy = "private"
)

func (p FriendsListPrivacy) Valid() bool {
	switch p {
	case FriendsListPublic, FriendsListFriends, FriendsListPrivate:
		return true
	}
	return false
}

type FriendRequestsPrivacy string

const (
	FriendRequestsEveryone         FriendRequestsPrivacy = "everyone"
	FriendRequestsFriendsOfFriends FriendRequestsPrivacy = "friends_of_friends"
	FriendRequestsNone             FriendRequestsPrivacy = "none"
)

func (p FriendRequestsPrivacy) Valid() bool {
	switch p {
	case FriendRequestsEveryone, FriendRequestsFriendsOfFriends, FriendRequestsNone:
		return true
	}
	return false
}

type User struct {
	ID                    uuid.UUID             `json:"id"`
	Name                  string                `json:"name"`
	Username              string                `json:"username"`
	Email                 string                `json:"email"`
	PasswordHash          string                `json:"-"`
	PhoneNumber           string                `json:"phone_number,omitempty"`
	ProfilePicture        *string               `json:"profile_picture,omitempty"`
	DateOfBirth           *time.Time            `json:"date_of_birth,omitempty"`
	Gender                string                `json:"gender,omitempty"`
	City                  string                `json:"city,omitempty"`
	State                 string                `json:"state,omitempty"`
	Country               string                `json:"country,omitempty"`
	Bio                   string                `json:"bio,omitempty"`
	TravelPreferences     []string              `json:"travel_preferences"`
	LanguagesSpoken       []string              `json:"languages_spoken"`
	VerificationStatus    string                `json:"verification_status"`
	FriendsListPrivacy    FriendsListPrivacy    `json:"friends_list_privacy"`
	FriendRequestsPrivacy FriendRequestsPrivacy `json:"friend_requests_privacy"`
	IsDeleted             bool                  `json:"-"`
	CreatedAt             time.Time             `json:"created_at"`
	UpdatedAt             time.Time             `json:"updated_at"`
}

// Summary is the view of a user shown to other users.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:             u.ID,
		Username:       u.Username,
		Name:           u.Name,
		ProfilePicture: u.ProfilePicture,
		City:           u.City,
		Country:        u.Country,
	}
}

type UserSummary struct {
	ID             uuid.UUID `json:"id"`
	Username       string    `json:"username"`
	Name           string    `json:"name"`
	ProfilePicture *string   `json:"profile_picture,omitempty"`
	City           string    `json:"city,omitempty"`
	Country        string    `json:"country,omitempty"`
}

// SignupParams is the registration payload. A soft-deleted account with the
// same email or username is restored from these values.
type SignupParams struct {
	Name        string `json:"name" validate:"required,personname"`
	Username    string `json:"username" validate:"required,min=3,max=50,username"`
	Email       string `json:"email" validate:"required,email,max=255"`
	Password    string `json:"password" validate:"required,strongpassword"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,phone"`
	Gender      string `json:"gender" validate:"omitempty,oneof=male female other"`
	DateOfBirth string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02,notfuture"`
	City        string `json:"city" validate:"omitempty,max=100"`
	State       string `json:"state" validate:"omitempty,max=100"`
	Country     string `json:"country" validate:"omitempty,max=100"`
	Bio         string `json:"bio" validate:"omitempty,max=500"`
}

// UserPatch lists every profile field a user may change. Fields left nil are
// untouched. Credentials, privacy and deletion state have their own operations.
type UserPatch struct {
	Email             *string   `json:"email" validate:"omitempty,email,max=255"`
	Name              *string   `json:"name" validate:"omitempty,personname"`
	DateOfBirth       *string   `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02,notfuture"`
	Gender            *string   `json:"gender" validate:"omitempty,oneof=male female other"`
	PhoneNumber       *string   `json:"phone_number" validate:"omitempty,phone"`
	City              *string   `json:"city" validate:"omitempty,min=1,max=100"`
	State             *string   `json:"state" validate:"omitempty,min=1,max=100"`
	Country           *string   `json:"country" validate:"omitempty,min=1,max=100"`
	Bio               *string   `json:"bio" validate:"omitempty,max=500"`
	TravelPreferences *[]string `json:"travel_preferences" validate:"omitempty,max=10,dive,required,max=50"`
	LanguagesSpoken   *[]string `json:"languages_spoken" validate:"omitempty,max=10,dive,required,max=50"`
}

func (p UserPatch) Empty() bool {
	return p.Email == nil && p.Name == nil && p.DateOfBirth == nil && p.Gender == nil &&
		p.PhoneNumber == nil && p.City == nil && p.State == nil && p.Country == nil &&
		p.Bio == nil && p.TravelPreferences == nil && p.LanguagesSpoken == nil
}

type ChangePasswordParams struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,strongpassword"`
}

type PrivacySettings struct {
	FriendsListPrivacy    FriendsListPrivacy    `json:"friends_list_privacy"`
	FriendRequestsPrivacy FriendRequestsPrivacy `json:"friend_requests_privacy"`
}
