package projects

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aliuyar1234/taskboard/internal/apperrors"
	"github.com/aliuyar1234/taskboard/internal/db"
	"github.com/aliuyar1234/taskboard/internal/membership"
)

var (
	// ErrInvalidOwner is returned when owner_type and team_id disagree
	ErrInvalidOwner = apperrors.BadRequest("owner_type 'team' requires team_id and owner_type 'user' forbids it")

	// ErrSameOwner is returned when the project already has the requested owner
	ErrSameOwner = apperrors.BadRequest("Project already has this owner")
)

const projectColumns = `project_id, name, description, open, owner_type, creator_id, team_id, created_at`

// Service provides project-related operations
type Service struct {
	db *sql.DB
}

// NewService creates a new project service
func NewService(sqlDB *sql.DB) *Service {
	return &Service{db: sqlDB}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*Project, error) {
	var (
		p      Project
		teamID sql.NullInt64
	)
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Open,
		&p.OwnerType,
		&p.CreatorID,
		&teamID,
		&p.CreatedAt,
	); err != nil {
		return nil, err
	}
	if teamID.Valid {
		p.TeamID = &teamID.Int64
	}
	return &p, nil
}

func nullTeam(teamID *int64) sql.NullInt64 {
	if teamID == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *teamID, Valid: true}
}

// Create inserts a project. Team membership has been checked by the caller.
func (s *Service) Create(ctx context.Context, creatorID int64, np NewProject) (*Project, error) {
	p, err := scanProject(s.db.QueryRowContext(ctx, `
		INSERT INTO projects (name, description, owner_type, creator_id, team_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+projectColumns,
		np.Name, np.Description, OwnerTypeFor(np.TeamID), creatorID, nullTeam(np.TeamID)))
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return p, nil
}

// GetByID retrieves a project by ID
func (s *Service) GetByID(ctx context.Context, projectID int64) (*Project, error) {
	p, err := scanProject(s.db.QueryRowContext(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE project_id = $1
	`, projectID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, membership.ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

// ListForUser returns projects userID created or reaches through a team they
// own or are an accepted member of
func (s *Service) ListForUser(ctx context.Context, userID int64) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.project_id, p.name, p.description, p.open, p.owner_type, p.creator_id, p.team_id, p.created_at
		FROM projects p
		LEFT JOIN teams t ON t.team_id = p.team_id
		WHERE p.creator_id = $1
		   OR t.owner_id = $1
		   OR EXISTS (
		        SELECT 1 FROM team_members m
		        WHERE m.team_id = p.team_id AND m.user_id = $1 AND m.permission <> 0
		   )
		ORDER BY p.created_at DESC, p.project_id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	out := []Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project rows: %w", err)
	}
	return out, nil
}

// ToggleOpen flips the open flag
func (s *Service) ToggleOpen(ctx context.Context, projectID int64) (*Project, error) {
	p, err := scanProject(s.db.QueryRowContext(ctx, `
		UPDATE projects
		SET open = NOT open
		WHERE project_id = $1
		RETURNING `+projectColumns, projectID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, membership.ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to toggle project: %w", err)
	}
	return p, nil
}

// ChangeOwner moves the project between its creator and a team
func (s *Service) ChangeOwner(ctx context.Context, current *membership.ProjectAccess, ownerType OwnerType, teamID *int64) (*Project, error) {
	if err := CheckOwner(ownerType, teamID); err != nil {
		return nil, err
	}
	if sameTeam(current.TeamID, teamID) {
		return nil, ErrSameOwner
	}

	p, err := scanProject(s.db.QueryRowContext(ctx, `
		UPDATE projects
		SET owner_type = $2, team_id = $3
		WHERE project_id = $1
		RETURNING `+projectColumns,
		current.ProjectID, ownerType, nullTeam(teamID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, membership.ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to change project owner: %w", err)
	}
	return p, nil
}

func sameTeam(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Delete removes the project with its columns, tasks and assignees
func (s *Service) Delete(ctx context.Context, projectID int64) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM task_users
			WHERE task_id IN (
				SELECT t.task_id
				FROM project_tasks t
				JOIN project_columns c ON c.column_id = t.column_id
				WHERE c.project_id = $1
			)
		`, projectID); err != nil {
			return fmt.Errorf("failed to delete assignees: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			DELETE FROM project_tasks
			WHERE column_id IN (SELECT column_id FROM project_columns WHERE project_id = $1)
		`, projectID); err != nil {
			return fmt.Errorf("failed to delete tasks: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			DELETE FROM project_columns WHERE project_id = $1
		`, projectID); err != nil {
			return fmt.Errorf("failed to delete columns: %w", err)
		}

		res, err := tx.ExecContext(ctx, `
			DELETE FROM projects WHERE project_id = $1
		`, projectID)
		if err != nil {
			return fmt.Errorf("failed to delete project: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to delete project: %w", err)
		}
		if n == 0 {
			return membership.ErrProjectNotFound
		}
		return nil
	})
}
