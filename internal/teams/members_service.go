package teams

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aliuyar1234/taskboard/internal/db"
	"github.com/aliuyar1234/taskboard/internal/membership"
	"github.com/aliuyar1234/taskboard/internal/users"
)

// AddMember invites target into the team at pending permission
func (s *Service) AddMember(ctx context.Context, team *membership.TeamAccess, actorID, targetID int64) (*MembershipRow, error) {
	if actorID == targetID {
		return nil, ErrSelfInvite
	}
	if targetID == team.OwnerID {
		return nil, ErrAlreadyMember
	}

	_, found, err := membership.NewStore(s.db).TeamPermission(ctx, team.TeamID, targetID)
	if err != nil {
		return nil, err
	}
	if found {
		return nil, ErrAlreadyMember
	}

	if _, err := s.users.Get(ctx, targetID); err != nil {
		return nil, err
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO team_members (team_id, user_id, permission)
		VALUES ($1, $2, $3)
	`, team.TeamID, targetID, membership.PermissionPending); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrAlreadyMember
		}
		if db.IsForeignKeyViolation(err) {
			return nil, users.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	return &MembershipRow{TeamID: team.TeamID, UserID: targetID, Permission: membership.PermissionPending}, nil
}

// Accept moves the caller's own pending row to member
func (s *Service) Accept(ctx context.Context, team *membership.TeamAccess, userID int64) (*MembershipRow, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE team_members
		SET permission = $3
		WHERE team_id = $1 AND user_id = $2 AND permission = $4
	`, team.TeamID, userID, membership.PermissionMember, membership.PermissionPending)
	if err != nil {
		return nil, fmt.Errorf("failed to accept invitation: %w", err)
	}
	if err := expectOne(res, ErrInvitationNotFound); err != nil {
		return nil, err
	}
	return &MembershipRow{TeamID: team.TeamID, UserID: userID, Permission: membership.PermissionMember}, nil
}

// Leave removes the caller's own row. A pending invitee leaving declines the
// invitation.
func (s *Service) Leave(ctx context.Context, team *membership.TeamAccess, userID int64) error {
	if userID == team.OwnerID {
		return ErrOwnerCannotLeave
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM team_members WHERE team_id = $1 AND user_id = $2
	`, team.TeamID, userID)
	if err != nil {
		return fmt.Errorf("failed to leave team: %w", err)
	}
	return expectOne(res, ErrMembershipNotFound)
}

// Kick removes another member's row, pending invitations included
func (s *Service) Kick(ctx context.Context, team *membership.TeamAccess, actorID, targetID int64) error {
	if actorID == targetID {
		return ErrSelfKick
	}
	if targetID == team.OwnerID {
		return ErrKickOwner
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM team_members WHERE team_id = $1 AND user_id = $2
	`, team.TeamID, targetID)
	if err != nil {
		return fmt.Errorf("failed to kick member: %w", err)
	}
	return expectOne(res, ErrMemberNotFound)
}

// ChangePermission sets an accepted member's permission to member or moderator
func (s *Service) ChangePermission(ctx context.Context, team *membership.TeamAccess, actorID, targetID int64, permission membership.Permission) (*MembershipRow, error) {
	if actorID == targetID {
		return nil, ErrSelfPermission
	}
	if permission != membership.PermissionMember && permission != membership.PermissionModerator {
		return nil, ErrInvalidPermission
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE team_members
		SET permission = $3
		WHERE team_id = $1 AND user_id = $2 AND permission <> 0
	`, team.TeamID, targetID, permission)
	if err != nil {
		return nil, fmt.Errorf("failed to change permission: %w", err)
	}
	if err := expectOne(res, ErrMemberNotFound); err != nil {
		return nil, err
	}
	return &MembershipRow{TeamID: team.TeamID, UserID: targetID, Permission: permission}, nil
}

// ChangeOwner hands the team to an accepted member in one transaction: the
// outgoing owner becomes a moderator, the incoming owner's row is removed and
// the owner pointer is rewritten last.
func (s *Service) ChangeOwner(ctx context.Context, team *membership.TeamAccess, newOwnerID int64) (*Team, error) {
	if newOwnerID == team.OwnerID {
		return nil, ErrSelfOwner
	}

	var updated Team
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var current membership.Permission
		if err := tx.QueryRowContext(ctx, `
			SELECT permission
			FROM team_members
			WHERE team_id = $1 AND user_id = $2
			FOR UPDATE
		`, team.TeamID, newOwnerID).Scan(&current); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrMemberNotFound
			}
			return fmt.Errorf("failed to load new owner: %w", err)
		}
		if !current.Accepted() {
			return ErrMemberNotFound
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO team_members (team_id, user_id, permission)
			VALUES ($1, $2, $3)
			ON CONFLICT (team_id, user_id) DO UPDATE SET permission = EXCLUDED.permission
		`, team.TeamID, team.OwnerID, membership.PermissionModerator); err != nil {
			return fmt.Errorf("failed to demote previous owner: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			DELETE FROM team_members WHERE team_id = $1 AND user_id = $2
		`, team.TeamID, newOwnerID); err != nil {
			return fmt.Errorf("failed to remove new owner membership: %w", err)
		}

		if err := tx.QueryRowContext(ctx, `
			UPDATE teams
			SET owner_id = $2
			WHERE team_id = $1 AND owner_id = $3
			RETURNING team_id, name, owner_id, created_at
		`, team.TeamID, newOwnerID, team.OwnerID).Scan(&updated.ID, &updated.Name, &updated.OwnerID, &updated.CreatedAt); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// Ownership moved since the guard resolved it
				return membership.ErrNotTeamMember
			}
			return fmt.Errorf("failed to update owner: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes the team. Its projects become user-owned by their creators
// and every membership row goes first.
func (s *Service) Delete(ctx context.Context, team *membership.TeamAccess) (*DeleteResult, error) {
	result := DeleteResult{TeamID: team.TeamID}

	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE projects
			SET owner_type = 'user', team_id = NULL
			WHERE team_id = $1
		`, team.TeamID)
		if err != nil {
			return fmt.Errorf("failed to detach projects: %w", err)
		}
		if result.ProjectsDetached, err = res.RowsAffected(); err != nil {
			return fmt.Errorf("failed to detach projects: %w", err)
		}

		res, err = tx.ExecContext(ctx, `
			DELETE FROM team_members WHERE team_id = $1
		`, team.TeamID)
		if err != nil {
			return fmt.Errorf("failed to delete memberships: %w", err)
		}
		if result.MembersRemoved, err = res.RowsAffected(); err != nil {
			return fmt.Errorf("failed to delete memberships: %w", err)
		}

		res, err = tx.ExecContext(ctx, `
			DELETE FROM teams WHERE team_id = $1
		`, team.TeamID)
		if err != nil {
			return fmt.Errorf("failed to delete team: %w", err)
		}
		return expectOne(res, membership.ErrNotTeamMember)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func expectOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
