package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/cotravels/internal/models"
	"github.com/HammerMeetNail/cotravels/internal/services"
)

type FriendHandler struct {
	friendService services.FriendServiceInterface
}

func NewFriendHandler(friendService services.FriendServiceInterface) *FriendHandler {
	return &FriendHandler{friendService: friendService}
}

type SendRequestRequest struct {
	ReceiverID string `json:"receiver_id"`
}

type FriendRequestResponse struct {
	Request *models.FriendRequest `json:"request"`
}

type FriendRequestListResponse struct {
	Requests []models.FriendRequestWithUser `json:"requests"`
}

type FriendListResponse struct {
	Friends []models.Friend `json:"friends"`
}

type SuggestionListResponse struct {
	Suggestions []models.Suggestion `json:"suggestions"`
}

type PrivacyResponse struct {
	Privacy *models.PrivacySettings `json:"privacy"`
}

func (h *FriendHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req SendRequestRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	receiverID, err := uuid.Parse(req.ReceiverID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid receiver ID")
		return
	}

	request, err := h.friendService.SendRequest(r.Context(), user.ID, receiverID)
	if err != nil {
		writeServiceError(w, r, "send_friend_request", err)
		return
	}

	writeJSON(w, http.StatusCreated, FriendRequestResponse{Request: request})
}

func (h *FriendHandler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "accept_friend_request", h.friendService.AcceptRequest)
}

func (h *FriendHandler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "reject_friend_request", h.friendService.RejectRequest)
}

type respondFunc func(ctx context.Context, userID, requestID uuid.UUID) (*models.FriendRequest, error)

func (h *FriendHandler) respond(w http.ResponseWriter, r *http.Request, operation string, fn respondFunc) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	requestID, ok := pathUUID(w, r, "id", "Invalid request ID")
	if !ok {
		return
	}

	request, err := fn(r.Context(), user.ID, requestID)
	if err != nil {
		writeServiceError(w, r, operation, err)
		return
	}

	writeJSON(w, http.StatusOK, FriendRequestResponse{Request: request})
}

func (h *FriendHandler) ListPendingRequests(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	requests, err := h.friendService.ListPendingRequests(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, r, "list_pending_requests", err)
		return
	}

	writeJSON(w, http.StatusOK, FriendRequestListResponse{Requests: requests})
}

func (h *FriendHandler) ListSentRequests(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	requests, err := h.friendService.ListSentRequests(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, r, "list_sent_requests", err)
		return
	}

	writeJSON(w, http.StatusOK, FriendRequestListResponse{Requests: requests})
}

// ListFriends serves GET /api/users/{id}/friends under the target's
// friends-list privacy.
func (h *FriendHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	targetID, ok := pathUUID(w, r, "id", "Invalid user ID")
	if !ok {
		return
	}

	friends, err := h.friendService.ListFriends(r.Context(), targetID, user.ID)
	if err != nil {
		writeServiceError(w, r, "list_friends", err)
		return
	}

	writeJSON(w, http.StatusOK, FriendListResponse{Friends: friends})
}

func (h *FriendHandler) Remove(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	friendID, ok := pathUUID(w, r, "id", "Invalid friend ID")
	if !ok {
		return
	}

	if err := h.friendService.RemoveFriend(r.Context(), user.ID, friendID); err != nil {
		writeServiceError(w, r, "remove_friend", err)
		return
	}

	writeMessage(w, http.StatusOK, "Friend removed")
}

func (h *FriendHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	suggestions, err := h.friendService.Suggestions(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, r, "friend_suggestions", err)
		return
	}

	writeJSON(w, http.StatusOK, SuggestionListResponse{Suggestions: suggestions})
}

func (h *FriendHandler) UpdatePrivacy(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req models.PrivacySettings
	if !decodeJSON(w, r, &req) {
		return
	}

	settings, err := h.friendService.UpdatePrivacy(r.Context(), user.ID, req)
	if err != nil {
		writeServiceError(w, r, "update_privacy", err)
		return
	}

	writeJSON(w, http.StatusOK, PrivacyResponse{Privacy: settings})
}
