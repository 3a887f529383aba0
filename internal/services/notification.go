package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/cotravels/internal/events"
	"github.com/HammerMeetNail/cotravels/internal/logging"
	"github.com/HammerMeetNail/cotravels/internal/models"
)

var ErrNotificationNotFound = kindError(ErrNotFound, "notification not found")

const (
	DefaultNotificationLimit = 100
	MaxNotificationLimit     = 100
)

const notificationColumns = "id, user_id, type, content, is_read, created_at"

func scanNotification(row Row) (*models.Notification, error) {
	n := &models.Notification{}
	if err := row.Scan(&n.ID, &n.UserID, &n.Type, &n.Content, &n.IsRead, &n.CreatedAt); err != nil {
		return nil, err
	}
	return n, nil
}

// NotificationService stores notifications and forwards them to the event
// publisher once the row that produced them has committed.
type NotificationService struct {
	db        DB
	publisher events.Publisher
	async     func(fn func())
	asyncCtx  context.Context
}

func NewNotificationService(db DB, publisher events.Publisher) *NotificationService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &NotificationService{
		db:        db,
		publisher: publisher,
		async: func(fn func()) {
			go fn()
		},
		asyncCtx: context.Background(),
	}
}

func (s *NotificationService) SetAsync(fn func(fn func())) {
	s.async = fn
}

// Append inserts a notification through q, normally the transaction of the
// friend-graph change that caused it.
func (s *NotificationService) Append(ctx context.Context, q Querier, userID uuid.UUID, nType models.NotificationType, content string) (*models.Notification, error) {
	n, err := scanNotification(q.QueryRow(ctx,
		`INSERT INTO notifications (user_id, type, content)
		 VALUES ($1, $2, $3)
		 RETURNING `+notificationColumns,
		userID, nType, content,
	))
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	return n, nil
}

// Dispatch publishes committed notifications in the background. Failures
// are logged; the stored row remains the source of truth.
func (s *NotificationService) Dispatch(notifications ...*models.Notification) {
	if len(notifications) == 0 {
		return
	}
	s.async(func() {
		for _, n := range notifications {
			if err := s.publisher.Publish(s.asyncCtx, events.FromNotification(n)); err != nil {
				logging.Warn("Failed to publish notification event", logging.Fields{
					"notification_id": n.ID.String(),
					"user_id":         n.UserID.String(),
					"error":           err.Error(),
				})
			}
		}
	})
}

// List returns notifications newest first.
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, page models.NotificationPage) ([]models.Notification, error) {
	if page.Skip < 0 {
		page.Skip = 0
	}
	if page.Limit <= 0 {
		page.Limit = DefaultNotificationLimit
	}
	if page.Limit > MaxNotificationLimit {
		page.Limit = MaxNotificationLimit
	}

	rows, err := s.db.Query(ctx,
		"SELECT "+notificationColumns+` FROM notifications
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC
		 OFFSET $2 LIMIT $3`,
		userID, page.Skip, page.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return notifications, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT is_read",
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead flags one of the user's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) (*models.Notification, error) {
	n, err := scanNotification(s.db.QueryRow(ctx,
		`UPDATE notifications SET is_read = TRUE
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+notificationColumns,
		notificationID, userID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotificationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mark notification read: %w", err)
	}
	return n, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	result, err := s.db.Exec(ctx,
		"UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND NOT is_read",
		userID,
	)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return result.RowsAffected(), nil
}
