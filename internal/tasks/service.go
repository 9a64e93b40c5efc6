package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aliuyar1234/taskboard/internal/apperrors"
	"github.com/aliuyar1234/taskboard/internal/db"
	"github.com/aliuyar1234/taskboard/internal/membership"
	"github.com/aliuyar1234/taskboard/internal/users"
)

var (
	// ErrAlreadyAssigned is returned when the user is already on the task
	ErrAlreadyAssigned = apperrors.BadRequest("This user is already assigned to this task")

	// ErrNotAssigned is returned when the user is not on the task
	ErrNotAssigned = apperrors.NotFound("This user is not assigned to this task")

	// ErrAssigneeNotMember is returned when the assignee cannot see the project
	ErrAssigneeNotMember = apperrors.BadRequest("This user is not a member of the project team")
)

const taskColumns = `task_id, column_id, name, description, creator_id, created_at`

// Membership answers the relationship questions tasks depend on
type Membership interface {
	IsAcceptedTeamMember(ctx context.Context, teamID, userID int64) (bool, error)
	ColumnProject(ctx context.Context, columnID int64) (int64, error)
}

// Service provides task and assignee operations
type Service struct {
	db      *sql.DB
	members Membership
}

// NewService creates a new task service
func NewService(sqlDB *sql.DB, members Membership) *Service {
	return &Service{db: sqlDB, members: members}
}

func scanTask(row interface{ Scan(dest ...any) error }) (*Task, error) {
	var t Task
	if err := row.Scan(&t.ID, &t.ColumnID, &t.Name, &t.Description, &t.CreatorID, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// Create adds a task to a column
func (s *Service) Create(ctx context.Context, columnID, creatorID int64, req TaskRequest) (*Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, `
		INSERT INTO project_tasks (column_id, name, description, creator_id)
		VALUES ($1, $2, $3, $4)
		RETURNING `+taskColumns,
		columnID, req.Name, req.Description, creatorID))
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return t, nil
}

// ListByColumn returns the tasks of a column, oldest first
func (s *Service) ListByColumn(ctx context.Context, columnID int64) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM project_tasks
		WHERE column_id = $1
		ORDER BY created_at, task_id
	`, columnID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	out := []Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}
	return out, nil
}

// Update replaces the name and description of a task
func (s *Service) Update(ctx context.Context, taskID int64, req TaskRequest) (*Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, `
		UPDATE project_tasks
		SET name = $2, description = $3
		WHERE task_id = $1
		RETURNING `+taskColumns,
		taskID, req.Name, req.Description))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, membership.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return t, nil
}

// Delete removes a task and its assignees
func (s *Service) Delete(ctx context.Context, taskID int64) (*Task, error) {
	var deleted *Task
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM task_users WHERE task_id = $1`, taskID); err != nil {
			return fmt.Errorf("failed to delete assignees: %w", err)
		}

		t, err := scanTask(tx.QueryRowContext(ctx, `
			DELETE FROM project_tasks
			WHERE task_id = $1
			RETURNING `+taskColumns, taskID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return membership.ErrTaskNotFound
			}
			return fmt.Errorf("failed to delete task: %w", err)
		}
		deleted = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// Move puts a task into another column of the same project. A destination
// outside projectID is reported as a missing column.
func (s *Service) Move(ctx context.Context, projectID, taskID, toColumnID int64) (*Task, error) {
	destProject, err := s.members.ColumnProject(ctx, toColumnID)
	if err != nil {
		return nil, err
	}
	if destProject != projectID {
		return nil, membership.ErrColumnNotFound
	}

	t, err := scanTask(s.db.QueryRowContext(ctx, `
		UPDATE project_tasks
		SET column_id = $2
		WHERE task_id = $1
		RETURNING `+taskColumns,
		taskID, toColumnID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, membership.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to move task: %w", err)
	}
	return t, nil
}

// Assign adds userID to the task. Callers may assign themselves; anyone else
// must be an accepted member or the owner of the project's team.
func (s *Service) Assign(ctx context.Context, project *membership.ProjectAccess, taskID, callerID, userID int64) error {
	if userID != callerID {
		if project.TeamID == nil {
			return ErrAssigneeNotMember
		}
		ok, err := s.members.IsAcceptedTeamMember(ctx, *project.TeamID, userID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAssigneeNotMember
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO task_users (task_id, user_id)
		VALUES ($1, $2)
	`, taskID, userID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrAlreadyAssigned
		}
		return fmt.Errorf("failed to assign user: %w", err)
	}
	return nil
}

// Unassign removes userID from the task
func (s *Service) Unassign(ctx context.Context, taskID, userID int64) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM task_users
		WHERE task_id = $1 AND user_id = $2
	`, taskID, userID)
	if err != nil {
		return fmt.Errorf("failed to unassign user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to unassign user: %w", err)
	}
	if n == 0 {
		return ErrNotAssigned
	}
	return nil
}

// Assignees returns the public profiles of the users on a task
func (s *Service) Assignees(ctx context.Context, taskID int64) ([]users.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.user_id, u.name, u.surname, u.nick
		FROM task_users tu
		JOIN users u ON u.user_id = tu.user_id
		WHERE tu.task_id = $1
		ORDER BY u.nick
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignees: %w", err)
	}
	return users.ScanUsers(rows)
}
