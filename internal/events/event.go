// Package events carries notification events from the API to downstream
// delivery workers over AMQP.
package events

import (
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/HammerMeetNail/cotravels/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// NotificationEvent is published once a notification row has committed.
// Consumers must tolerate duplicates; ID identifies the notification.
type NotificationEvent struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func FromNotification(n *models.Notification) NotificationEvent {
	return NotificationEvent{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      string(n.Type),
		Content:   n.Content,
		CreatedAt: n.CreatedAt,
	}
}

func Encode(ev NotificationEvent) ([]byte, error) {
	return json.Marshal(ev)
}

func Decode(body []byte) (NotificationEvent, error) {
	var ev NotificationEvent
	err := json.Unmarshal(body, &ev)
	return ev, err
}
