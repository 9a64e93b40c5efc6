package membership

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aliuyar1234/taskboard/internal/apperrors"
	"github.com/aliuyar1234/taskboard/internal/db"
)

var (
	// ErrNotTeamMember is returned when the caller neither owns the team nor
	// has a membership row in it
	ErrNotTeamMember = apperrors.Unauthorized("You are not member of this team")

	// ErrProjectNotFound is returned when the project does not exist
	ErrProjectNotFound = apperrors.NotFound("Project not found")

	// ErrNotProjectMember is returned when the caller has no route to the project
	ErrNotProjectMember = apperrors.Unauthorized("You are not allowed to modify this project")

	// ErrColumnNotFound is returned when the column does not exist
	ErrColumnNotFound = apperrors.NotFound("Column not found")

	// ErrTaskNotFound is returned when the task does not exist
	ErrTaskNotFound = apperrors.NotFound("Task not found")
)

// TeamAccess is the caller's resolved standing in a team
type TeamAccess struct {
	TeamID  int64
	Name    string
	OwnerID int64
	Role    Role
}

// ProjectAccess is the caller's resolved standing in a project
type ProjectAccess struct {
	ProjectID   int64
	CreatorID   int64
	TeamID      *int64
	TeamOwnerID *int64
	Role        Role
}

// Store answers read-only relationship questions
type Store struct {
	db db.DBTX
}

// NewStore creates a new membership store
func NewStore(q db.DBTX) *Store {
	return &Store{db: q}
}

// TeamAccess resolves userID's role in teamID in one query. The owner matches
// even without a membership row.
func (s *Store) TeamAccess(ctx context.Context, teamID, userID int64) (*TeamAccess, error) {
	var (
		access     TeamAccess
		permission sql.NullInt16
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT t.team_id, t.name, t.owner_id, m.permission
		FROM teams t
		LEFT JOIN team_members m ON m.team_id = t.team_id AND m.user_id = $2
		WHERE t.team_id = $1
		  AND (t.owner_id = $2 OR m.user_id IS NOT NULL)
	`, teamID, userID).Scan(&access.TeamID, &access.Name, &access.OwnerID, &permission)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotTeamMember
		}
		return nil, fmt.Errorf("failed to resolve team access: %w", err)
	}

	if access.OwnerID == userID {
		access.Role = OwnerRole()
	} else {
		access.Role = MemberRole(Permission(permission.Int16))
	}
	return &access, nil
}

// ProjectAccess resolves userID's role in projectID. Creator and team owner
// are resolved from the first query; everyone else needs a row in the
// project's team.
func (s *Store) ProjectAccess(ctx context.Context, projectID, userID int64) (*ProjectAccess, error) {
	var (
		access      ProjectAccess
		teamID      sql.NullInt64
		teamOwnerID sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT p.project_id, p.creator_id, p.team_id, t.owner_id
		FROM projects p
		LEFT JOIN teams t ON t.team_id = p.team_id
		WHERE p.project_id = $1
	`, projectID).Scan(&access.ProjectID, &access.CreatorID, &teamID, &teamOwnerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to resolve project: %w", err)
	}
	if teamID.Valid {
		access.TeamID = &teamID.Int64
	}
	if teamOwnerID.Valid {
		access.TeamOwnerID = &teamOwnerID.Int64
	}

	if access.CreatorID == userID || (teamOwnerID.Valid && teamOwnerID.Int64 == userID) {
		access.Role = OwnerRole()
		return &access, nil
	}
	if !teamID.Valid {
		return nil, ErrNotProjectMember
	}

	permission, found, err := s.TeamPermission(ctx, teamID.Int64, userID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotProjectMember
	}
	access.Role = MemberRole(permission)
	return &access, nil
}

// TeamPermission returns the membership row of userID in teamID, if any
func (s *Store) TeamPermission(ctx context.Context, teamID, userID int64) (Permission, bool, error) {
	var permission Permission
	err := s.db.QueryRowContext(ctx, `
		SELECT permission FROM team_members WHERE team_id = $1 AND user_id = $2
	`, teamID, userID).Scan(&permission)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get team permission: %w", err)
	}
	return permission, true, nil
}

// IsAcceptedTeamMember reports whether userID owns teamID or holds an
// accepted membership in it
func (s *Store) IsAcceptedTeamMember(ctx context.Context, teamID, userID int64) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM teams WHERE team_id = $1 AND owner_id = $2
			UNION ALL
			SELECT 1 FROM team_members WHERE team_id = $1 AND user_id = $2 AND permission <> 0
		)
	`, teamID, userID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("failed to check team membership: %w", err)
	}
	return ok, nil
}

// ColumnProject returns the project a column belongs to
func (s *Store) ColumnProject(ctx context.Context, columnID int64) (int64, error) {
	var projectID int64
	err := s.db.QueryRowContext(ctx, `
		SELECT project_id FROM project_columns WHERE column_id = $1
	`, columnID).Scan(&projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrColumnNotFound
		}
		return 0, fmt.Errorf("failed to get column: %w", err)
	}
	return projectID, nil
}

// TaskColumn returns the column a task belongs to
func (s *Store) TaskColumn(ctx context.Context, taskID int64) (int64, error) {
	var columnID int64
	err := s.db.QueryRowContext(ctx, `
		SELECT column_id FROM project_tasks WHERE task_id = $1
	`, taskID).Scan(&columnID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrTaskNotFound
		}
		return 0, fmt.Errorf("failed to get task: %w", err)
	}
	return columnID, nil
}
