package handlers

import (
	"net/http"
	"strconv"

	"github.com/HammerMeetNail/cotravels/internal/models"
	"github.com/HammerMeetNail/cotravels/internal/services"
)

type NotificationHandler struct {
	notificationService services.NotificationServiceInterface
}

func NewNotificationHandler(notificationService services.NotificationServiceInterface) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

type NotificationListResponse struct {
	Notifications []models.Notification `json:"notifications"`
}

type NotificationResponse struct {
	Notification *models.Notification `json:"notification"`
}

type UnreadCountResponse struct {
	Count int `json:"count"`
}

type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}

// List serves GET /api/notifications?skip=&limit=.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var page models.NotificationPage
	var problems []string
	if raw := r.URL.Query().Get("skip"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			problems = append(problems, "skip: must be a non-negative integer")
		}
		page.Skip = n
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > services.MaxNotificationLimit {
			problems = append(problems, "limit: must be between 1 and "+strconv.Itoa(services.MaxNotificationLimit))
		}
		page.Limit = n
	}
	if len(problems) > 0 {
		writeError(w, http.StatusBadRequest, problems...)
		return
	}

	notifications, err := h.notificationService.List(r.Context(), user.ID, page)
	if err != nil {
		writeServiceError(w, r, "list_notifications", err)
		return
	}

	writeJSON(w, http.StatusOK, NotificationListResponse{Notifications: notifications})
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	count, err := h.notificationService.UnreadCount(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, r, "unread_count", err)
		return
	}

	writeJSON(w, http.StatusOK, UnreadCountResponse{Count: count})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, ok := pathUUID(w, r, "id", "Invalid notification ID")
	if !ok {
		return
	}

	notification, err := h.notificationService.MarkRead(r.Context(), user.ID, id)
	if err != nil {
		writeServiceError(w, r, "mark_notification_read", err)
		return
	}

	writeJSON(w, http.StatusOK, NotificationResponse{Notification: notification})
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	updated, err := h.notificationService.MarkAllRead(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, r, "mark_all_notifications_read", err)
		return
	}

	writeJSON(w, http.StatusOK, MarkAllReadResponse{Updated: updated})
}
