// Package columns manages the ordered columns of a project board.
package columns

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aliuyar1234/taskboard/internal/apperrors"
	"github.com/aliuyar1234/taskboard/internal/db"
	"github.com/aliuyar1234/taskboard/internal/guard"
	"github.com/aliuyar1234/taskboard/internal/membership"
	"github.com/aliuyar1234/taskboard/internal/validation"
)

// Column is one column of a project board
type Column struct {
	ID        int64  `json:"column_id"`
	ProjectID int64  `json:"project_id"`
	Name      string `json:"name"`
	Position  int    `json:"position"`
}

// NameRequest carries a column name
type NameRequest struct {
	Name string `json:"name" validate:"required,min=1,max=30"`
}

// Service provides column operations
type Service struct {
	db *sql.DB
}

// NewService creates a new column service
func NewService(sqlDB *sql.DB) *Service {
	return &Service{db: sqlDB}
}

// Create appends a column after the last one. The first column of a project
// gets position 0.
func (s *Service) Create(ctx context.Context, projectID int64, name string) (*Column, error) {
	var c Column
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO project_columns (project_id, name, position)
		VALUES (
			$1, $2,
			(SELECT COALESCE(MAX(position) + 1, 0) FROM project_columns WHERE project_id = $1)
		)
		RETURNING column_id, project_id, name, position
	`, projectID, name).Scan(&c.ID, &c.ProjectID, &c.Name, &c.Position)
	if err != nil {
		return nil, fmt.Errorf("failed to create column: %w", err)
	}
	return &c, nil
}

// List returns the columns of a project in board order
func (s *Service) List(ctx context.Context, projectID int64) ([]Column, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT column_id, project_id, name, position
		FROM project_columns
		WHERE project_id = $1
		ORDER BY position, column_id
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns: %w", err)
	}
	defer rows.Close()

	out := []Column{}
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.Name, &c.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column rows: %w", err)
	}
	return out, nil
}

// Rename changes a column's name
func (s *Service) Rename(ctx context.Context, columnID int64, name string) (*Column, error) {
	var c Column
	err := s.db.QueryRowContext(ctx, `
		UPDATE project_columns
		SET name = $2
		WHERE column_id = $1
		RETURNING column_id, project_id, name, position
	`, columnID, name).Scan(&c.ID, &c.ProjectID, &c.Name, &c.Position)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, membership.ErrColumnNotFound
		}
		return nil, fmt.Errorf("failed to rename column: %w", err)
	}
	return &c, nil
}

// Delete removes a column together with its tasks and their assignees.
// Positions of the remaining columns are left as they are.
func (s *Service) Delete(ctx context.Context, columnID int64) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM task_users
			WHERE task_id IN (SELECT task_id FROM project_tasks WHERE column_id = $1)
		`, columnID); err != nil {
			return fmt.Errorf("failed to delete assignees: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM project_tasks WHERE column_id = $1`, columnID); err != nil {
			return fmt.Errorf("failed to delete tasks: %w", err)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM project_columns WHERE column_id = $1`, columnID)
		if err != nil {
			return fmt.Errorf("failed to delete column: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to delete column: %w", err)
		}
		if n == 0 {
			return membership.ErrColumnNotFound
		}
		return nil
	})
}

func decodeName(r *http.Request) (string, error) {
	var req NameRequest
	if err := validation.DecodeJSON(r, &req); err != nil {
		return "", err
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := validation.Struct(req); err != nil {
		return "", err
	}
	return req.Name, nil
}

// HandleCreate handles POST /api/v1/projects/{project_id}/columns
func HandleCreate(svc *Service) guard.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, gc guard.Context) {
		name, err := decodeName(r)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}
		c, err := svc.Create(r.Context(), gc.Project.ProjectID, name)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}
		apperrors.WriteSuccess(w, r, http.StatusCreated, c)
	}
}

// HandleList handles GET /api/v1/projects/{project_id}/columns
func HandleList(svc *Service) guard.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, gc guard.Context) {
		list, err := svc.List(r.Context(), gc.Project.ProjectID)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}
		apperrors.WriteSuccess(w, r, http.StatusOK, list)
	}
}

// HandleRename handles PUT /api/v1/projects/{project_id}/columns/{column_id}
func HandleRename(svc *Service) guard.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, _ guard.Context) {
		columnID, err := guard.PathID(r, "column_id")
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}
		name, err := decodeName(r)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}
		c, err := svc.Rename(r.Context(), *columnID, name)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}
		apperrors.WriteSuccess(w, r, http.StatusOK, c)
	}
}

// HandleDelete handles DELETE /api/v1/projects/{project_id}/columns/{column_id}
func HandleDelete(svc *Service) guard.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, _ guard.Context) {
		columnID, err := guard.PathID(r, "column_id")
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}
		if err := svc.Delete(r.Context(), *columnID); err != nil {
			apperrors.Write(w, r, err)
			return
		}
		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]int64{"column_id": *columnID})
	}
}
