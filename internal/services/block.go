package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/cotravels/internal/models"
)

var (
	ErrCannotBlockSelf = kindError(ErrValidation, "cannot block yourself")
	ErrBlockTargetGone = kindError(ErrNotFound, "user not found")
	ErrBlockExists     = kindError(ErrConflict, "user is already blocked")
	ErrBlockNotFound   = kindError(ErrNotFound, "user is not blocked")
)

const blockedEitherWayQuery = `SELECT EXISTS(
	SELECT 1 FROM user_blocks
	WHERE (blocker_id = $1 AND blocked_id = $2) OR (blocker_id = $2 AND blocked_id = $1)
)`

// blockedEitherWay reports whether a or b has blocked the other.
func blockedEitherWay(ctx context.Context, q Querier, a, b uuid.UUID) (bool, error) {
	var blocked bool
	if err := q.QueryRow(ctx, blockedEitherWayQuery, a, b).Scan(&blocked); err != nil {
		return false, fmt.Errorf("check block: %w", err)
	}
	return blocked, nil
}

type BlockService struct {
	db DB
}

func NewBlockService(db DB) *BlockService {
	return &BlockService{db: db}
}

// Block adds the edge and clears the pair's friendship rows and every
// request between them, whatever its direction or status.
func (s *BlockService) Block(ctx context.Context, actorID, targetID uuid.UUID) error {
	if actorID == targetID {
		return ErrCannotBlockSelf
	}
	if err := s.targetExists(ctx, targetID); err != nil {
		return err
	}

	err := withTx(ctx, s.db, func(tx Tx) error {
		tag, err := tx.Exec(ctx,
			`INSERT INTO user_blocks (blocker_id, blocked_id) VALUES ($1, $2)
			 ON CONFLICT (blocker_id, blocked_id) DO NOTHING`,
			actorID, targetID,
		)
		if err != nil {
			return fmt.Errorf("insert block: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrBlockExists
		}

		// Missing friend rows are fine; only the pair must end up absent.
		if _, err := tx.Exec(ctx,
			`DELETE FROM friends
			 WHERE (user_id, friend_id) IN (($1, $2), ($2, $1))`,
			actorID, targetID,
		); err != nil {
			return fmt.Errorf("drop friendship: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`DELETE FROM friend_requests
			 WHERE (sender_id, receiver_id) IN (($1, $2), ($2, $1))`,
			actorID, targetID,
		); err != nil {
			return fmt.Errorf("drop friend requests: %w", err)
		}
		return nil
	})
	if err != nil && KindOf(err) == KindInternal {
		return fmt.Errorf("block %s: %w", targetID, err)
	}
	return err
}

func (s *BlockService) Unblock(ctx context.Context, actorID, targetID uuid.UUID) error {
	if err := s.targetExists(ctx, targetID); err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx,
		"DELETE FROM user_blocks WHERE blocker_id = $1 AND blocked_id = $2",
		actorID, targetID,
	)
	if err != nil {
		return fmt.Errorf("unblock %s: %w", targetID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBlockNotFound
	}
	return nil
}

// ListBlocked returns the users actorID has blocked, newest first.
func (s *BlockService) ListBlocked(ctx context.Context, actorID uuid.UUID) ([]models.BlockedUser, error) {
	rows, err := s.db.Query(ctx,
		`SELECT u.id, u.username, u.name, b.created_at
		 FROM user_blocks b
		 JOIN users u ON u.id = b.blocked_id
		 WHERE b.blocker_id = $1
		 ORDER BY b.created_at DESC`,
		actorID,
	)
	if err != nil {
		return nil, fmt.Errorf("list blocked users: %w", err)
	}
	defer rows.Close()

	out := []models.BlockedUser{}
	for rows.Next() {
		var b models.BlockedUser
		if err := rows.Scan(&b.ID, &b.Username, &b.Name, &b.BlockedAt); err != nil {
			return nil, fmt.Errorf("scan blocked user: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blocked users: %w", err)
	}
	return out, nil
}

func (s *BlockService) targetExists(ctx context.Context, id uuid.UUID) error {
	var found bool
	if err := s.db.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE id = $1 AND NOT is_deleted)",
		id,
	).Scan(&found); err != nil {
		return fmt.Errorf("look up block target: %w", err)
	}
	if !found {
		return ErrBlockTargetGone
	}
	return nil
}
