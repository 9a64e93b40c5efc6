package guard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aliuyar1234/taskboard/internal/apperrors"
	"github.com/aliuyar1234/taskboard/internal/auth"
	"github.com/aliuyar1234/taskboard/internal/membership"
	"github.com/aliuyar1234/taskboard/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

// fakeStore holds teams as owner + rows, projects and column/task parents
type fakeStore struct {
	teamOwners map[int64]int64
	teamRows   map[int64]map[int64]membership.Permission
	projects   map[int64]membership.ProjectAccess
	columns    map[int64]int64
	tasks      map[int64]int64

	teamLookups int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		teamOwners: map[int64]int64{10: 1},
		teamRows: map[int64]map[int64]membership.Permission{
			10: {2: membership.PermissionModerator, 3: membership.PermissionMember, 5: membership.PermissionPending},
		},
		projects: map[int64]membership.ProjectAccess{
			100: {ProjectID: 100, CreatorID: 3, TeamID: ptr(10), TeamOwnerID: ptr(1)},
			200: {ProjectID: 200, CreatorID: 7},
		},
		columns: map[int64]int64{1000: 100, 2000: 200},
		tasks:   map[int64]int64{9000: 1000},
	}
}

func ptr(v int64) *int64 { return &v }

func (f *fakeStore) TeamAccess(_ context.Context, teamID, userID int64) (*membership.TeamAccess, error) {
	f.teamLookups++
	owner, ok := f.teamOwners[teamID]
	if !ok {
		return nil, membership.ErrNotTeamMember
	}
	if owner == userID {
		return &membership.TeamAccess{TeamID: teamID, OwnerID: owner, Role: membership.OwnerRole()}, nil
	}
	p, ok := f.teamRows[teamID][userID]
	if !ok {
		return nil, membership.ErrNotTeamMember
	}
	return &membership.TeamAccess{TeamID: teamID, OwnerID: owner, Role: membership.MemberRole(p)}, nil
}

func (f *fakeStore) ProjectAccess(_ context.Context, projectID, userID int64) (*membership.ProjectAccess, error) {
	p, ok := f.projects[projectID]
	if !ok {
		return nil, membership.ErrProjectNotFound
	}
	if p.CreatorID == userID || (p.TeamOwnerID != nil && *p.TeamOwnerID == userID) {
		p.Role = membership.OwnerRole()
		return &p, nil
	}
	if p.TeamID == nil {
		return nil, membership.ErrNotProjectMember
	}
	perm, ok := f.teamRows[*p.TeamID][userID]
	if !ok {
		return nil, membership.ErrNotProjectMember
	}
	p.Role = membership.MemberRole(perm)
	return &p, nil
}

func (f *fakeStore) ColumnProject(_ context.Context, columnID int64) (int64, error) {
	projectID, ok := f.columns[columnID]
	if !ok {
		return 0, membership.ErrColumnNotFound
	}
	return projectID, nil
}

func (f *fakeStore) TaskColumn(_ context.Context, taskID int64) (int64, error) {
	columnID, ok := f.tasks[taskID]
	if !ok {
		return 0, membership.ErrTaskNotFound
	}
	return columnID, nil
}

func as(userID int64) context.Context {
	return auth.WithIdentity(context.Background(), auth.Identity{UserID: userID})
}

func teamModeratorChain(g *Guards) Chain {
	return g.Chain("team.moderator",
		g.Authenticate(),
		g.TeamMembershipLookup(),
		g.TeamRoleAtLeast(membership.TierModerator),
	)
}

func TestChain_TeamModerator(t *testing.T) {
	g := New(newFakeStore(), nil)
	chain := teamModeratorChain(g)
	args := Args{TeamID: ptr(10)}

	tests := []struct {
		name   string
		userID int64
		want   apperrors.Kind
	}{
		{"owner without row", 1, ""},
		{"moderator", 2, ""},
		{"member", 3, apperrors.KindUnauthorized},
		{"pending", 5, apperrors.KindUnauthorized},
		{"stranger", 4, apperrors.KindUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gc, err := chain.Run(as(tt.userID), args)
			require.Equal(t, tt.want, apperrors.KindOf(err))
			if tt.want == "" {
				require.Equal(t, tt.userID, gc.UserID)
				require.NotNil(t, gc.Team)
			}
		})
	}
}

func TestChain_StrangerGetsNoContext(t *testing.T) {
	g := New(newFakeStore(), nil)

	gc, err := teamModeratorChain(g).Run(as(4), Args{TeamID: ptr(10)})
	require.ErrorIs(t, err, membership.ErrNotTeamMember)
	require.Equal(t, "You are not member of this team", apperrors.As(err).Message)
	require.Equal(t, Context{}, gc)
}

func TestChain_StopsAtFirstFailure(t *testing.T) {
	store := newFakeStore()
	g := New(store, nil)

	calls := 0
	spy := func(_ context.Context, _ Args, gc Context) (Context, error) {
		calls++
		return gc, nil
	}
	chain := g.Chain("ordered", g.Authenticate(), spy, g.TeamMembershipLookup(), spy)

	_, err := chain.Run(context.Background(), Args{TeamID: ptr(10)})
	require.Equal(t, apperrors.KindUnauthorized, apperrors.KindOf(err))
	require.Equal(t, 401, apperrors.As(err).HTTPStatus())
	require.Zero(t, calls)
	require.Zero(t, store.teamLookups)

	_, err = chain.Run(as(4), Args{TeamID: ptr(10)})
	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestChain_TeamGuardsPassWithoutTeam(t *testing.T) {
	store := newFakeStore()
	g := New(store, nil)

	gc, err := teamModeratorChain(g).Run(as(4), Args{})
	require.NoError(t, err)
	require.Nil(t, gc.Team)
	require.Zero(t, store.teamLookups)
}

func TestTeamRoleAtLeast_WithoutLookup(t *testing.T) {
	g := New(newFakeStore(), nil)
	chain := g.Chain("misordered", g.Authenticate(), g.TeamRoleAtLeast(membership.TierMember))

	_, err := chain.Run(as(1), Args{TeamID: ptr(10)})
	require.Equal(t, apperrors.KindUnauthorized, apperrors.KindOf(err))
}

func TestChain_ProjectTiers(t *testing.T) {
	g := New(newFakeStore(), nil)

	admin := g.Chain("project.admin", g.Authenticate(), g.ProjectOwnershipLookup(), g.ProjectRoleAtLeast(membership.TierAdmin))
	moderator := g.Chain("project.moderator", g.Authenticate(), g.ProjectOwnershipLookup(), g.ProjectRoleAtLeast(membership.TierModerator))
	member := g.Chain("project.member", g.Authenticate(), g.ProjectOwnershipLookup(), g.ProjectRoleAtLeast(membership.TierMember))

	args := Args{ProjectID: ptr(100)}

	// creator
	_, err := admin.Run(as(3), args)
	require.NoError(t, err)
	// team owner
	_, err = admin.Run(as(1), args)
	require.NoError(t, err)

	// team moderator is not admin
	_, err = admin.Run(as(2), args)
	require.Equal(t, "Project permission:admin", apperrors.As(err).Message)
	_, err = moderator.Run(as(2), args)
	require.NoError(t, err)

	// pending member has a row but not the member tier
	_, err = member.Run(as(5), args)
	require.Equal(t, "Project permission:member", apperrors.As(err).Message)

	// user-owned project
	_, err = member.Run(as(2), Args{ProjectID: ptr(200)})
	require.ErrorIs(t, err, membership.ErrNotProjectMember)

	_, err = member.Run(as(2), Args{ProjectID: ptr(999)})
	require.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
	_, err = member.Run(as(2), Args{})
	require.ErrorIs(t, err, membership.ErrProjectNotFound)
}

func TestChain_ColumnAndTask(t *testing.T) {
	g := New(newFakeStore(), nil)
	chain := g.Chain("task.write",
		g.Authenticate(),
		g.ProjectOwnershipLookup(),
		g.ProjectRoleAtLeast(membership.TierModerator),
		g.ColumnBelongsToProject(),
		g.TaskBelongsToColumn(),
	)

	_, err := chain.Run(as(2), Args{ProjectID: ptr(100), ColumnID: ptr(1000), TaskID: ptr(9000)})
	require.NoError(t, err)

	// column of another project
	_, err = chain.Run(as(2), Args{ProjectID: ptr(100), ColumnID: ptr(2000), TaskID: ptr(9000)})
	require.ErrorIs(t, err, membership.ErrColumnNotFound)

	// task of another column
	_, err = chain.Run(as(1), Args{ProjectID: ptr(100), ColumnID: ptr(1000), TaskID: ptr(9001)})
	require.ErrorIs(t, err, membership.ErrTaskNotFound)
}

func TestChain_RecordsDecisions(t *testing.T) {
	m := metrics.New()
	g := New(newFakeStore(), m)
	chain := teamModeratorChain(g)

	_, _ = chain.Run(as(1), Args{TeamID: ptr(10)})
	_, _ = chain.Run(as(3), Args{TeamID: ptr(10)})
	_, _ = chain.Run(context.Background(), Args{TeamID: ptr(10)})

	require.Equal(t, float64(1), testutil.ToFloat64(m.GuardDecisionsTotal.WithLabelValues("team.moderator", "allowed")))
	require.Equal(t, float64(2), testutil.ToFloat64(m.GuardDecisionsTotal.WithLabelValues("team.moderator", "Unauthorized")))
}

func TestChain_Handle(t *testing.T) {
	g := New(newFakeStore(), nil)

	var seen Context
	r := chi.NewRouter()
	r.Post("/teams/{team_id}/members", teamModeratorChain(g).Handle(func(w http.ResponseWriter, r *http.Request, gc Context) {
		seen = gc
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/teams/10/members", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req.WithContext(as(2)))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, int64(10), seen.Team.TeamID)

	req = httptest.NewRequest(http.MethodPost, "/teams/abc/members", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req.WithContext(as(2)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/teams/10/members", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req.WithContext(as(3)))
	require.Equal(t, http.StatusForbidden, rec.Code)
}
