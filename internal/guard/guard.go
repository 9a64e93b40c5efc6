package guard

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/aliuyar1234/taskboard/internal/apperrors"
	"github.com/aliuyar1234/taskboard/internal/auth"
	"github.com/aliuyar1234/taskboard/internal/membership"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// Args are the entity ids an operation targets. Nil means the operation does
// not name that entity.
type Args struct {
	TeamID    *int64
	ProjectID *int64
	ColumnID  *int64
	TaskID    *int64
}

// Context carries the facts resolved by earlier guards. It is returned by
// Chain.Run and passed explicitly to the operation.
type Context struct {
	UserID  int64
	Team    *membership.TeamAccess
	Project *membership.ProjectAccess
}

// Guard checks one authorization rule. On success it returns gc, possibly
// extended; on failure the chain stops.
type Guard func(ctx context.Context, args Args, gc Context) (Context, error)

// Store is the relationship lookup the guards depend on
type Store interface {
	TeamAccess(ctx context.Context, teamID, userID int64) (*membership.TeamAccess, error)
	ProjectAccess(ctx context.Context, projectID, userID int64) (*membership.ProjectAccess, error)
	ColumnProject(ctx context.Context, columnID int64) (int64, error)
	TaskColumn(ctx context.Context, taskID int64) (int64, error)
}

// Recorder counts chain outcomes
type Recorder interface {
	GuardDecision(chain, outcome string)
}

// Guards builds guards and chains over one store
type Guards struct {
	store    Store
	recorder Recorder
}

// New creates a guard set. recorder may be nil.
func New(store Store, recorder Recorder) *Guards {
	return &Guards{store: store, recorder: recorder}
}

// Chain is an ordered list of guards
type Chain struct {
	name     string
	guards   []Guard
	recorder Recorder
}

// Chain composes guards in the order given
func (g *Guards) Chain(name string, guards ...Guard) Chain {
	return Chain{name: name, guards: guards, recorder: g.recorder}
}

// Name returns the chain label used in logs and metrics
func (c Chain) Name() string {
	return c.name
}

// Run executes every guard in order. The first failure is returned verbatim
// and no later guard runs.
func (c Chain) Run(ctx context.Context, args Args) (Context, error) {
	var gc Context
	for i, g := range c.guards {
		next, err := g(ctx, args, gc)
		if err != nil {
			kind := apperrors.KindOf(err)
			log.Debug().
				Str("chain", c.name).
				Int("guard", i).
				Int64("user_id", gc.UserID).
				Str("type", string(kind)).
				Msg("Guard denied request")
			c.record(string(kind))
			return Context{}, err
		}
		gc = next
	}
	c.record("allowed")
	return gc, nil
}

func (c Chain) record(outcome string) {
	if c.recorder != nil {
		c.recorder.GuardDecision(c.name, outcome)
	}
}

// HandlerFunc is an HTTP handler that receives the resolved guard context
type HandlerFunc func(w http.ResponseWriter, r *http.Request, gc Context)

// Handle runs the chain with ids taken from the chi path and calls h only
// when every guard passes.
func (c Chain) Handle(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		args, err := PathArgs(r)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}

		gc, err := c.Run(r.Context(), args)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}

		h(w, r, gc)
	}
}

// PathArgs reads team_id, project_id, column_id and task_id path parameters
func PathArgs(r *http.Request) (Args, error) {
	var (
		args Args
		err  error
	)
	if args.TeamID, err = PathID(r, "team_id"); err != nil {
		return Args{}, err
	}
	if args.ProjectID, err = PathID(r, "project_id"); err != nil {
		return Args{}, err
	}
	if args.ColumnID, err = PathID(r, "column_id"); err != nil {
		return Args{}, err
	}
	if args.TaskID, err = PathID(r, "task_id"); err != nil {
		return Args{}, err
	}
	return args, nil
}

// PathID parses an optional numeric path parameter
func PathID(r *http.Request, name string) (*int64, error) {
	raw := chi.URLParam(r, name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, apperrors.BadRequest(fmt.Sprintf("Invalid %s", name))
	}
	return &id, nil
}

// Authenticate requires a resolved identity
func (g *Guards) Authenticate() Guard {
	return func(ctx context.Context, _ Args, gc Context) (Context, error) {
		id, ok := auth.IdentityFromContext(ctx)
		if !ok {
			return gc, apperrors.Unauthenticated()
		}
		gc.UserID = id.UserID
		return gc, nil
	}
}

// TeamMembershipLookup attaches the caller's standing in args.TeamID.
// Operations without a team pass unchanged.
func (g *Guards) TeamMembershipLookup() Guard {
	return func(ctx context.Context, args Args, gc Context) (Context, error) {
		if args.TeamID == nil {
			return gc, nil
		}
		access, err := g.store.TeamAccess(ctx, *args.TeamID, gc.UserID)
		if err != nil {
			return gc, err
		}
		gc.Team = access
		return gc, nil
	}
}

// TeamRoleAtLeast requires the attached team role to meet tier. With no team
// in args the operation is user-scoped and passes.
func (g *Guards) TeamRoleAtLeast(tier membership.Tier) Guard {
	return func(_ context.Context, args Args, gc Context) (Context, error) {
		if args.TeamID == nil {
			return gc, nil
		}
		if gc.Team == nil || !gc.Team.Role.Satisfies(tier) {
			return gc, apperrors.Unauthorized("Team permission:" + tier.String())
		}
		return gc, nil
	}
}

// ProjectOwnershipLookup attaches the caller's standing in args.ProjectID
func (g *Guards) ProjectOwnershipLookup() Guard {
	return func(ctx context.Context, args Args, gc Context) (Context, error) {
		if args.ProjectID == nil {
			return gc, membership.ErrProjectNotFound
		}
		access, err := g.store.ProjectAccess(ctx, *args.ProjectID, gc.UserID)
		if err != nil {
			return gc, err
		}
		gc.Project = access
		return gc, nil
	}
}

// ProjectRoleAtLeast requires the attached project role to meet tier
func (g *Guards) ProjectRoleAtLeast(tier membership.Tier) Guard {
	name := tier.String()
	if tier == membership.TierAdmin {
		name = "admin"
	}
	return func(_ context.Context, _ Args, gc Context) (Context, error) {
		if gc.Project == nil || !gc.Project.Role.Satisfies(tier) {
			return gc, apperrors.Unauthorized("Project permission:" + name)
		}
		return gc, nil
	}
}

// ColumnBelongsToProject requires args.ColumnID to be a column of the
// attached project
func (g *Guards) ColumnBelongsToProject() Guard {
	return func(ctx context.Context, args Args, gc Context) (Context, error) {
		if args.ColumnID == nil || gc.Project == nil {
			return gc, membership.ErrColumnNotFound
		}
		projectID, err := g.store.ColumnProject(ctx, *args.ColumnID)
		if err != nil {
			return gc, err
		}
		if projectID != gc.Project.ProjectID {
			return gc, membership.ErrColumnNotFound
		}
		return gc, nil
	}
}

// TaskBelongsToColumn requires args.TaskID to be a task of args.ColumnID
func (g *Guards) TaskBelongsToColumn() Guard {
	return func(ctx context.Context, args Args, gc Context) (Context, error) {
		if args.TaskID == nil || args.ColumnID == nil {
			return gc, membership.ErrTaskNotFound
		}
		columnID, err := g.store.TaskColumn(ctx, *args.TaskID)
		if err != nil {
			return gc, err
		}
		if columnID != *args.ColumnID {
			return gc, membership.ErrTaskNotFound
		}
		return gc, nil
	}
}
