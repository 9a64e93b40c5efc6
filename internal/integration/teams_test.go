//go:build integration

package integration

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func createTeam(t *testing.T, owner *session, name string) int64 {
	t.Helper()
	var team struct {
		ID int64 `json:"team_id"`
	}
	owner.decode(owner.expect(http.MethodPost, "/api/v1/teams", http.StatusCreated, map[string]any{"name": name}), &team)
	require.NotZero(t, team.ID)
	return team.ID
}

// joinTeam invites member through inviter and accepts as member
func joinTeam(t *testing.T, teamID int64, inviter, member *session) {
	t.Helper()
	inviter.expect(http.MethodPost, path("/api/v1/teams/%d/members", teamID), http.StatusCreated, map[string]any{"user_id": member.ID})
	member.expect(http.MethodPost, path("/api/v1/teams/%d/accept", teamID), http.StatusOK, nil)
}

func TestIntegration_TeamMembershipFlow(t *testing.T) {
	srv := newTestServer(t)
	u1 := srv.signup("owner")
	u2 := srv.signup("second")
	u3 := srv.signup("third")
	u4 := srv.signup("stranger")

	teamID := createTeam(t, u1, "core")
	membersPath := path("/api/v1/teams/%d/members", teamID)

	u1.expect(http.MethodPost, membersPath, http.StatusCreated, map[string]any{"user_id": u2.ID})
	u1.expectError(http.MethodPost, membersPath, http.StatusBadRequest, "", map[string]any{"user_id": u2.ID})
	u1.expectError(http.MethodPost, membersPath, http.StatusBadRequest, "", map[string]any{"user_id": u1.ID})

	// Pending invitees see the invitation but not the team.
	var feed struct {
		TeamInvitations []struct {
			ID int64 `json:"team_id"`
		} `json:"team_invitations"`
	}
	u2.decode(u2.expect(http.MethodGet, "/api/v1/notifications", http.StatusOK, nil), &feed)
	require.Len(t, feed.TeamInvitations, 1)
	require.Equal(t, teamID, feed.TeamInvitations[0].ID)
	u2.expectError(http.MethodGet, membersPath, http.StatusForbidden, "Team permission:member", nil)

	u2.expect(http.MethodPost, path("/api/v1/teams/%d/accept", teamID), http.StatusOK, nil)
	u2.expectError(http.MethodPost, path("/api/v1/teams/%d/accept", teamID), http.StatusNotFound, "", nil)
	u2.expect(http.MethodGet, membersPath, http.StatusOK, nil)

	// Members cannot invite until promoted.
	u2.expectError(http.MethodPost, membersPath, http.StatusForbidden, "Team permission:moderator", map[string]any{"user_id": u3.ID})
	u1.expect(http.MethodPut, path("/api/v1/teams/%d/members/%d", teamID, u2.ID), http.StatusOK, map[string]any{"permission": 2})
	u2.expectError(http.MethodPut, path("/api/v1/teams/%d/members/%d", teamID, u2.ID), http.StatusBadRequest, "", map[string]any{"permission": 1})

	u2.expect(http.MethodPost, membersPath, http.StatusCreated, map[string]any{"user_id": u3.ID})
	u3.expect(http.MethodPost, path("/api/v1/teams/%d/accept", teamID), http.StatusOK, nil)

	u4.expectError(http.MethodGet, membersPath, http.StatusForbidden, "You are not member of this team", nil)
	u4.expectError(http.MethodPost, membersPath, http.StatusForbidden, "You are not member of this team", map[string]any{"user_id": u4.ID})

	var members []struct {
		ID   int64  `json:"user_id"`
		Role string `json:"role"`
	}
	u3.decode(u3.expect(http.MethodGet, membersPath, http.StatusOK, nil), &members)
	require.Len(t, members, 3)
	require.Equal(t, u1.ID, members[0].ID)

	var teamsList []struct {
		ID           int64 `json:"team_id"`
		MembersCount int   `json:"members_count"`
	}
	u3.decode(u3.expect(http.MethodGet, "/api/v1/teams", http.StatusOK, nil), &teamsList)
	require.Len(t, teamsList, 1)
	require.Equal(t, 3, teamsList[0].MembersCount)

	// Moderators may kick members but never the owner.
	u2.expectError(http.MethodDelete, path("/api/v1/teams/%d/members/%d", teamID, u1.ID), http.StatusBadRequest, "", nil)
	u2.expect(http.MethodDelete, path("/api/v1/teams/%d/members/%d", teamID, u3.ID), http.StatusOK, nil)
	u3.expectError(http.MethodGet, membersPath, http.StatusForbidden, "You are not member of this team", nil)

	u1.expectError(http.MethodDelete, path("/api/v1/teams/%d/membership", teamID), http.StatusBadRequest, "", nil)
	u2.expect(http.MethodDelete, path("/api/v1/teams/%d/membership", teamID), http.StatusOK, nil)
	u2.expectError(http.MethodDelete, path("/api/v1/teams/%d/membership", teamID), http.StatusForbidden, "", nil)

	var events []struct {
		Action string `json:"action"`
	}
	u1.decode(u1.expect(http.MethodGet, path("/api/v1/teams/%d/audit", teamID), http.StatusOK, nil), &events)
	require.NotEmpty(t, events)
}

func TestIntegration_ChangeOwner(t *testing.T) {
	srv := newTestServer(t)
	u1 := srv.signup("owner")
	u2 := srv.signup("member")
	u3 := srv.signup("pending")

	teamID := createTeam(t, u1, "core")
	joinTeam(t, teamID, u1, u2)
	u1.expect(http.MethodPost, path("/api/v1/teams/%d/members", teamID), http.StatusCreated, map[string]any{"user_id": u3.ID})

	ownerPath := path("/api/v1/teams/%d/owner", teamID)
	u2.expectError(http.MethodPut, ownerPath, http.StatusForbidden, "Team permission:owner", map[string]any{"user_id": u2.ID})
	u1.expectError(http.MethodPut, ownerPath, http.StatusBadRequest, "", map[string]any{"user_id": u1.ID})
	u1.expectError(http.MethodPut, ownerPath, http.StatusNotFound, "", map[string]any{"user_id": u3.ID})

	u1.expect(http.MethodPut, ownerPath, http.StatusOK, map[string]any{"user_id": u2.ID})

	ctx := context.Background()
	var ownerID int64
	require.NoError(t, srv.Pool.QueryRow(ctx, `SELECT owner_id FROM teams WHERE team_id = $1`, teamID).Scan(&ownerID))
	require.Equal(t, u2.ID, ownerID)

	var permission int16
	require.NoError(t, srv.Pool.QueryRow(ctx, `SELECT permission FROM team_members WHERE team_id = $1 AND user_id = $2`, teamID, u1.ID).Scan(&permission))
	require.Equal(t, int16(2), permission)
	require.Zero(t, countRows(t, srv, `SELECT COUNT(*) FROM team_members WHERE team_id = $1 AND user_id = $2`, teamID, u2.ID))

	// The previous owner is now a moderator.
	u1.expectError(http.MethodDelete, path("/api/v1/teams/%d", teamID), http.StatusForbidden, "Team permission:owner", nil)
	u1.expect(http.MethodGet, path("/api/v1/teams/%d/members", teamID), http.StatusOK, nil)
}

func TestIntegration_DeleteTeamDetachesProjects(t *testing.T) {
	srv := newTestServer(t)
	u1 := srv.signup("owner")
	u2 := srv.signup("member")

	teamID := createTeam(t, u1, "core")
	joinTeam(t, teamID, u1, u2)

	var project struct {
		ID int64 `json:"project_id"`
	}
	u1.decode(u1.expect(http.MethodPost, "/api/v1/projects", http.StatusCreated, map[string]any{
		"name":    "Roadmap",
		"team_id": teamID,
	}), &project)

	u1.expect(http.MethodDelete, path("/api/v1/teams/%d", teamID), http.StatusOK, nil)

	require.Zero(t, countRows(t, srv, `SELECT COUNT(*) FROM teams WHERE team_id = $1`, teamID))
	require.Zero(t, countRows(t, srv, `SELECT COUNT(*) FROM team_members WHERE team_id = $1`, teamID))
	require.Zero(t, countRows(t, srv, `SELECT COUNT(*) FROM projects WHERE team_id = $1`, teamID))
	require.Equal(t, 1, countRows(t, srv, `SELECT COUNT(*) FROM projects WHERE project_id = $1 AND owner_type = 'user' AND team_id IS NULL`, project.ID))

	// The creator keeps the project; former members lose it.
	u1.expect(http.MethodGet, path("/api/v1/projects/%d", project.ID), http.StatusOK, nil)
	u2.expectError(http.MethodGet, path("/api/v1/projects/%d", project.ID), http.StatusForbidden, "You are not allowed to modify this project", nil)
}
