package friends

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aliuyar1234/taskboard/internal/apperrors"
	"github.com/aliuyar1234/taskboard/internal/db"
	"github.com/aliuyar1234/taskboard/internal/users"
)

var (
	// ErrSelfInvite is returned when the caller targets themselves
	ErrSelfInvite = apperrors.BadRequest("You can't invite yourself")

	// ErrSelfTarget is returned when accept, reject, cancel or unfriend names the caller
	ErrSelfTarget = apperrors.BadRequest("You can't target yourself")

	// ErrInvitationExists is returned when the pair already has a pending invitation
	ErrInvitationExists = apperrors.BadRequest("There is already an invitation like this")

	// ErrAlreadyFriends is returned when the pair is already friends
	ErrAlreadyFriends = apperrors.BadRequest("You are already friends")

	// ErrInvitationNotFound is returned when no invitation matches the direction
	ErrInvitationNotFound = apperrors.NotFound("Invitation not found")

	// ErrFriendshipNotFound is returned when the pair is not friends
	ErrFriendshipNotFound = apperrors.NotFound("Friendship not found")
)

// Relation is the state of an unordered pair of users
type Relation string

const (
	RelationNone       Relation = "none"
	RelationInvitation Relation = "invitation"
	RelationFriends    Relation = "friends"
)

// Service implements the friend invitation lifecycle
type Service struct {
	db    *sql.DB
	users *users.Service
}

// NewService creates a new friends service
func NewService(sqlDB *sql.DB) *Service {
	return &Service{db: sqlDB, users: users.NewService(sqlDB)}
}

// pair orders two ids the way friendships stores them
func pair(a, b int64) (int64, int64) {
	if a < b {
		return a, b
	}
	return b, a
}

// RelationBetween reports the pair state in one round trip. The 'none' row
// is always present so an empty result never stands in for a failure.
func (s *Service) RelationBetween(ctx context.Context, a, b int64) (Relation, error) {
	lo, hi := pair(a, b)

	var rel Relation
	err := s.db.QueryRowContext(ctx, `
		SELECT kind FROM (
			SELECT 'invitation' AS kind, 1 AS rank
			FROM friend_invitations
			WHERE (from_id = $1 AND to_id = $2) OR (from_id = $2 AND to_id = $1)
			UNION ALL
			SELECT 'friends', 2
			FROM friendships
			WHERE user_id_1 = $1 AND user_id_2 = $2
			UNION ALL
			SELECT 'none', 3
		) r
		ORDER BY rank
		LIMIT 1
	`, lo, hi).Scan(&rel)
	if err != nil {
		return "", fmt.Errorf("failed to check relation: %w", err)
	}
	return rel, nil
}

// Invite creates a pending invitation from me to target and returns the
// target's public profile
func (s *Service) Invite(ctx context.Context, me, target int64) (*users.User, error) {
	if me == target {
		return nil, ErrSelfInvite
	}

	rel, err := s.RelationBetween(ctx, me, target)
	if err != nil {
		return nil, err
	}
	switch rel {
	case RelationInvitation:
		return nil, ErrInvitationExists
	case RelationFriends:
		return nil, ErrAlreadyFriends
	}

	profile, err := s.users.Get(ctx, target)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO friend_invitations (from_id, to_id) VALUES ($1, $2)
	`, me, target)
	if err != nil {
		// Lost the race against a concurrent invite for the same pair
		if db.IsUniqueViolation(err) {
			return nil, ErrInvitationExists
		}
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	return profile, nil
}

// Accept turns the invitation from -> me into a friendship
func (s *Service) Accept(ctx context.Context, me, from int64) (*users.User, error) {
	if me == from {
		return nil, ErrSelfTarget
	}

	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var matched int64
		err := tx.QueryRowContext(ctx, `
			DELETE FROM friend_invitations
			WHERE from_id = $1 AND to_id = $2
			RETURNING from_id
		`, from, me).Scan(&matched)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrInvitationNotFound
			}
			return fmt.Errorf("failed to delete invitation: %w", err)
		}

		lo, hi := pair(me, from)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO friendships (user_id_1, user_id_2) VALUES ($1, $2)
		`, lo, hi); err != nil {
			if db.IsUniqueViolation(err) {
				return ErrAlreadyFriends
			}
			return fmt.Errorf("failed to create friendship: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.users.Get(ctx, from)
}

// Reject removes the inbound invitation from -> me
func (s *Service) Reject(ctx context.Context, me, from int64) error {
	if me == from {
		return ErrSelfTarget
	}
	return s.deleteInvitation(ctx, from, me)
}

// Cancel withdraws the outbound invitation me -> to
func (s *Service) Cancel(ctx context.Context, me, to int64) error {
	if me == to {
		return ErrSelfTarget
	}
	return s.deleteInvitation(ctx, me, to)
}

func (s *Service) deleteInvitation(ctx context.Context, from, to int64) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM friend_invitations WHERE from_id = $1 AND to_id = $2
	`, from, to)
	if err != nil {
		return fmt.Errorf("failed to delete invitation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete invitation: %w", err)
	}
	if n == 0 {
		return ErrInvitationNotFound
	}
	return nil
}

// Unfriend removes the friendship between me and other
func (s *Service) Unfriend(ctx context.Context, me, other int64) error {
	if me == other {
		return ErrSelfTarget
	}

	lo, hi := pair(me, other)
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM friendships WHERE user_id_1 = $1 AND user_id_2 = $2
	`, lo, hi)
	if err != nil {
		return fmt.Errorf("failed to delete friendship: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete friendship: %w", err)
	}
	if n == 0 {
		return ErrFriendshipNotFound
	}
	return nil
}

// Friends lists the public profiles of my friends
func (s *Service) Friends(ctx context.Context, me int64) ([]users.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.user_id, u.name, u.surname, u.nick
		FROM friendships f
		JOIN users u
		  ON u.user_id = CASE WHEN f.user_id_1 = $1 THEN f.user_id_2 ELSE f.user_id_1 END
		WHERE f.user_id_1 = $1 OR f.user_id_2 = $1
		ORDER BY u.nick
	`, me)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	return users.ScanUsers(rows)
}

// Outbound lists users I have invited and who have not answered
func (s *Service) Outbound(ctx context.Context, me int64) ([]users.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.user_id, u.name, u.surname, u.nick
		FROM friend_invitations i
		JOIN users u ON u.user_id = i.to_id
		WHERE i.from_id = $1
		ORDER BY i.created_at DESC
	`, me)
	if err != nil {
		return nil, fmt.Errorf("failed to list outbound invitations: %w", err)
	}
	return users.ScanUsers(rows)
}

// Inbound lists users who invited me
func (s *Service) Inbound(ctx context.Context, me int64) ([]users.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.user_id, u.name, u.surname, u.nick
		FROM friend_invitations i
		JOIN users u ON u.user_id = i.from_id
		WHERE i.to_id = $1
		ORDER BY i.created_at DESC
	`, me)
	if err != nil {
		return nil, fmt.Errorf("failed to list inbound invitations: %w", err)
	}
	return users.ScanUsers(rows)
}
