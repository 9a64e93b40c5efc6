// Package notifications collects the invitations waiting on a user.
package notifications

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/aliuyar1234/taskboard/internal/apperrors"
	"github.com/aliuyar1234/taskboard/internal/guard"
	"github.com/aliuyar1234/taskboard/internal/teams"
	"github.com/aliuyar1234/taskboard/internal/users"
	"github.com/samber/lo"
)

const (
	KindTeamInvitation   = "team_invitation"
	KindFriendInvitation = "friend_invitation"
)

// Item is one entry of the combined feed
type Item struct {
	Kind   string     `json:"kind"`
	TeamID *int64     `json:"team_id,omitempty"`
	From   users.User `json:"from"`
}

// Feed lists pending inbound invitations
type Feed struct {
	TeamInvitations   []teams.Summary `json:"team_invitations"`
	FriendInvitations []users.User    `json:"friend_invitations"`
	Items             []Item          `json:"items"`
}

// InboundFriends lists users who sent the caller a friend request
type InboundFriends interface {
	Inbound(ctx context.Context, me int64) ([]users.User, error)
}

// Service builds notification feeds
type Service struct {
	db      *sql.DB
	friends InboundFriends
}

// NewService creates a new notification service
func NewService(sqlDB *sql.DB, friends InboundFriends) *Service {
	return &Service{db: sqlDB, friends: friends}
}

// PendingTeams returns the teams that invited userID and are still waiting
// for an answer
func (s *Service) PendingTeams(ctx context.Context, userID int64) ([]teams.Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.team_id, t.name, u.user_id, u.name, u.surname, u.nick,
		       (SELECT COUNT(*) + 1 FROM team_members c WHERE c.team_id = t.team_id AND c.permission <> 0)
		FROM team_members m
		JOIN teams t ON t.team_id = m.team_id
		JOIN users u ON u.user_id = t.owner_id
		WHERE m.user_id = $1 AND m.permission = 0
		ORDER BY m.created_at DESC, t.team_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team invitations: %w", err)
	}
	return teams.ScanSummaries(rows)
}

// Feed returns every pending invitation addressed to userID
func (s *Service) Feed(ctx context.Context, userID int64) (*Feed, error) {
	pending, err := s.PendingTeams(ctx, userID)
	if err != nil {
		return nil, err
	}
	inbound, err := s.friends.Inbound(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := lo.Map(pending, func(t teams.Summary, _ int) Item {
		return Item{Kind: KindTeamInvitation, TeamID: lo.ToPtr(t.ID), From: t.Owner}
	})
	items = append(items, lo.Map(inbound, func(u users.User, _ int) Item {
		return Item{Kind: KindFriendInvitation, From: u}
	})...)

	return &Feed{
		TeamInvitations:   pending,
		FriendInvitations: inbound,
		Items:             items,
	}, nil
}

// HandleFeed handles GET /api/v1/notifications
func HandleFeed(svc *Service) guard.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, gc guard.Context) {
		feed, err := svc.Feed(r.Context(), gc.UserID)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}
		apperrors.WriteSuccess(w, r, http.StatusOK, feed)
	}
}
