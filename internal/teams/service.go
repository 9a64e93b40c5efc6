package teams

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aliuyar1234/taskboard/internal/apperrors"
	"github.com/aliuyar1234/taskboard/internal/membership"
	"github.com/aliuyar1234/taskboard/internal/users"
)

var (
	// ErrSelfInvite is returned when a moderator adds themselves
	ErrSelfInvite = apperrors.BadRequest("You can't invite yourself")

	// ErrAlreadyMember is returned when the target already has a row or owns the team
	ErrAlreadyMember = apperrors.BadRequest("User is already a team member")

	// ErrInvitationNotFound is returned when there is no pending row to accept
	ErrInvitationNotFound = apperrors.NotFound("Invitation not found")

	// ErrMembershipNotFound is returned when the caller has no row to leave
	ErrMembershipNotFound = apperrors.NotFound("Membership not found")

	// ErrOwnerCannotLeave is returned when the owner tries to leave
	ErrOwnerCannotLeave = apperrors.BadRequest("The owner can't leave the team")

	// ErrSelfKick is returned when a moderator kicks themselves
	ErrSelfKick = apperrors.BadRequest("You can't kick yourself")

	// ErrKickOwner is returned when the target is the team owner
	ErrKickOwner = apperrors.BadRequest("You can't kick the team owner")

	// ErrMemberNotFound is returned when the target has no accepted row
	ErrMemberNotFound = apperrors.NotFound("Member not found")

	// ErrSelfPermission is returned when a moderator changes their own permission
	ErrSelfPermission = apperrors.BadRequest("You can't change your own permission")

	// ErrInvalidPermission is returned for a permission other than member or moderator
	ErrInvalidPermission = apperrors.BadRequest("Permission must be 1 (member) or 2 (moderator)")

	// ErrSelfOwner is returned when the owner transfers the team to themselves
	ErrSelfOwner = apperrors.BadRequest("You already own this team")
)

// Service provides team operations. Callers pass the team access resolved by
// the guard chain; the service does not re-check the caller's role.
type Service struct {
	db    *sql.DB
	users *users.Service
}

// NewService creates a new team service
func NewService(sqlDB *sql.DB) *Service {
	return &Service{db: sqlDB, users: users.NewService(sqlDB)}
}

// Create inserts a team owned by ownerID
func (s *Service) Create(ctx context.Context, ownerID int64, name string) (*Team, error) {
	var team Team
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO teams (name, owner_id)
		VALUES ($1, $2)
		RETURNING team_id, name, owner_id, created_at
	`, name, ownerID).Scan(&team.ID, &team.Name, &team.OwnerID, &team.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}
	return &team, nil
}

// ListForUser returns the teams userID owns or has accepted membership in.
// members_count is accepted members plus the owner.
func (s *Service) ListForUser(ctx context.Context, userID int64) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.team_id, t.name, u.user_id, u.name, u.surname, u.nick,
		       (SELECT COUNT(*) + 1 FROM team_members c WHERE c.team_id = t.team_id AND c.permission <> 0)
		FROM teams t
		JOIN users u ON u.user_id = t.owner_id
		WHERE t.owner_id = $1
		   OR EXISTS (
		        SELECT 1 FROM team_members m
		        WHERE m.team_id = t.team_id AND m.user_id = $1 AND m.permission <> 0
		   )
		ORDER BY t.name, t.team_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return ScanSummaries(rows)
}

// ScanSummaries reads team summary rows and closes rows
func ScanSummaries(rows *sql.Rows) ([]Summary, error) {
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var s Summary
		if err := rows.Scan(
			&s.ID,
			&s.Name,
			&s.Owner.ID,
			&s.Owner.Name,
			&s.Owner.Surname,
			&s.Owner.Nick,
			&s.MembersCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating team rows: %w", err)
	}
	return out, nil
}

// Members lists the owner followed by every membership row, pending included
func (s *Service) Members(ctx context.Context, team *membership.TeamAccess) ([]Member, error) {
	owner, err := s.users.Get(ctx, team.OwnerID)
	if err != nil {
		return nil, err
	}
	out := []Member{{User: *owner, Role: membership.OwnerRole().String()}}

	rows, err := s.db.QueryContext(ctx, `
		SELECT u.user_id, u.name, u.surname, u.nick, m.permission
		FROM team_members m
		JOIN users u ON u.user_id = m.user_id
		WHERE m.team_id = $1
		ORDER BY m.permission DESC, u.nick
	`, team.TeamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			m Member
			p membership.Permission
		)
		if err := rows.Scan(&m.ID, &m.Name, &m.Surname, &m.Nick, &p); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		m.Permission = &p
		m.Role = p.String()
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating member rows: %w", err)
	}
	return out, nil
}
