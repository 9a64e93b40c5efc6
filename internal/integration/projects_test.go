//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

type idOnly struct {
	ProjectID int64 `json:"project_id"`
	ColumnID  int64 `json:"column_id"`
	TaskID    int64 `json:"task_id"`
}

func createProject(t *testing.T, s *session, body map[string]any) int64 {
	t.Helper()
	var p idOnly
	s.decode(s.expect(http.MethodPost, "/api/v1/projects", http.StatusCreated, body), &p)
	require.NotZero(t, p.ProjectID)
	return p.ProjectID
}

func createColumn(t *testing.T, s *session, projectID int64, name string) (int64, int) {
	t.Helper()
	var c struct {
		ID       int64 `json:"column_id"`
		Position int   `json:"position"`
	}
	s.decode(s.expect(http.MethodPost, path("/api/v1/projects/%d/columns", projectID), http.StatusCreated, map[string]any{"name": name}), &c)
	return c.ID, c.Position
}

func TestIntegration_ProjectBoardFlow(t *testing.T) {
	srv := newTestServer(t)
	owner := srv.signup("owner")
	member := srv.signup("member")
	outsider := srv.signup("outsider")

	teamID := createTeam(t, owner, "core")
	joinTeam(t, teamID, owner, member)

	member.expectError(http.MethodPost, "/api/v1/projects", http.StatusForbidden, "Team permission:moderator", map[string]any{
		"name": "Nope", "team_id": teamID,
	})
	projectID := createProject(t, owner, map[string]any{"name": "Roadmap", "description": "Q3", "team_id": teamID})

	todo, pos0 := createColumn(t, owner, projectID, "Todo")
	done, pos1 := createColumn(t, owner, projectID, "Done")
	require.Equal(t, 0, pos0)
	require.Equal(t, 1, pos1)

	member.expectError(http.MethodPost, path("/api/v1/projects/%d/columns", projectID), http.StatusForbidden, "Project permission:moderator", map[string]any{"name": "Later"})
	outsider.expectError(http.MethodGet, path("/api/v1/projects/%d", projectID), http.StatusForbidden, "You are not allowed to modify this project", nil)

	var task idOnly
	member.decode(member.expect(http.MethodPost, path("/api/v1/projects/%d/columns/%d/tasks", projectID, todo), http.StatusCreated, map[string]any{
		"name": "Write docs",
	}), &task)
	taskPath := path("/api/v1/projects/%d/columns/%d/tasks/%d", projectID, todo, task.TaskID)

	member.expect(http.MethodPut, taskPath, http.StatusOK, map[string]any{"name": "Write better docs", "description": "all of them"})
	member.expectError(http.MethodPost, taskPath+"/move", http.StatusForbidden, "Project permission:moderator", map[string]any{"column_id": done})

	// Task addressed through the wrong column.
	owner.expectError(http.MethodPut, path("/api/v1/projects/%d/columns/%d/tasks/%d", projectID, done, task.TaskID), http.StatusNotFound, "Task not found", map[string]any{"name": "x"})

	// Destination column from another project.
	otherProject := createProject(t, owner, map[string]any{"name": "Personal"})
	foreignColumn, _ := createColumn(t, owner, otherProject, "Inbox")
	owner.expectError(http.MethodPost, taskPath+"/move", http.StatusNotFound, "Column not found", map[string]any{"column_id": foreignColumn})

	owner.expect(http.MethodPost, taskPath+"/move", http.StatusOK, map[string]any{"column_id": done})
	taskPath = path("/api/v1/projects/%d/columns/%d/tasks/%d", projectID, done, task.TaskID)

	member.expect(http.MethodPost, taskPath+"/users", http.StatusCreated, map[string]any{"user_id": member.ID})
	member.expectError(http.MethodPost, taskPath+"/users", http.StatusBadRequest, "This user is already assigned to this task", map[string]any{"user_id": member.ID})
	member.expect(http.MethodPost, taskPath+"/users", http.StatusCreated, map[string]any{"user_id": owner.ID})
	member.expectError(http.MethodPost, taskPath+"/users", http.StatusBadRequest, "This user is not a member of the project team", map[string]any{"user_id": outsider.ID})

	var assignees []struct {
		ID int64 `json:"user_id"`
	}
	member.decode(member.expect(http.MethodGet, taskPath+"/users", http.StatusOK, nil), &assignees)
	require.Len(t, assignees, 2)

	member.expect(http.MethodDelete, path("%s/users/%d", taskPath, owner.ID), http.StatusOK, nil)
	member.expectError(http.MethodDelete, path("%s/users/%d", taskPath, owner.ID), http.StatusNotFound, "", nil)

	member.expectError(http.MethodDelete, path("/api/v1/projects/%d", projectID), http.StatusForbidden, "Project permission:admin", nil)
	owner.expect(http.MethodDelete, path("/api/v1/projects/%d", projectID), http.StatusOK, nil)

	require.Zero(t, countRows(t, srv, `SELECT COUNT(*) FROM projects WHERE project_id = $1`, projectID))
	require.Zero(t, countRows(t, srv, `SELECT COUNT(*) FROM project_columns WHERE project_id = $1`, projectID))
	require.Zero(t, countRows(t, srv, `SELECT COUNT(*) FROM project_tasks WHERE task_id = $1`, task.TaskID))
	require.Zero(t, countRows(t, srv, `SELECT COUNT(*) FROM task_users WHERE task_id = $1`, task.TaskID))
}

func TestIntegration_ProjectOwnerType(t *testing.T) {
	srv := newTestServer(t)
	owner := srv.signup("owner")
	member := srv.signup("member")

	teamID := createTeam(t, owner, "core")
	joinTeam(t, teamID, owner, member)

	projectID := createProject(t, member, map[string]any{"name": "Side project"})
	ownerPath := path("/api/v1/projects/%d/owner", projectID)

	member.expectError(http.MethodPut, ownerPath, http.StatusBadRequest, "", map[string]any{"owner_type": "team"})
	member.expectError(http.MethodPut, ownerPath, http.StatusForbidden, "Team permission:moderator", map[string]any{"owner_type": "team", "team_id": teamID})

	owner.expect(http.MethodPut, path("/api/v1/teams/%d/members/%d", teamID, member.ID), http.StatusOK, map[string]any{"permission": 2})
	member.expect(http.MethodPut, ownerPath, http.StatusOK, map[string]any{"owner_type": "team", "team_id": teamID})
	require.Equal(t, 1, countRows(t, srv, `SELECT COUNT(*) FROM projects WHERE project_id = $1 AND owner_type = 'team' AND team_id = $2`, projectID, teamID))

	// The team owner now reaches the project with full rights.
	owner.expect(http.MethodPut, path("/api/v1/projects/%d/open", projectID), http.StatusOK, nil)

	member.expect(http.MethodPut, ownerPath, http.StatusOK, map[string]any{"owner_type": "user"})
	require.Equal(t, 1, countRows(t, srv, `SELECT COUNT(*) FROM projects WHERE project_id = $1 AND owner_type = 'user' AND team_id IS NULL`, projectID))
	owner.expectError(http.MethodGet, path("/api/v1/projects/%d", projectID), http.StatusForbidden, "", nil)
}
