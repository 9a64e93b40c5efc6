package app

import (
	"database/sql"
	"net/http"

	"github.com/aliuyar1234/taskboard/internal/apperrors"
	"github.com/aliuyar1234/taskboard/internal/audit"
	"github.com/aliuyar1234/taskboard/internal/auth"
	"github.com/aliuyar1234/taskboard/internal/columns"
	"github.com/aliuyar1234/taskboard/internal/config"
	"github.com/aliuyar1234/taskboard/internal/friends"
	"github.com/aliuyar1234/taskboard/internal/guard"
	"github.com/aliuyar1234/taskboard/internal/membership"
	"github.com/aliuyar1234/taskboard/internal/metrics"
	"github.com/aliuyar1234/taskboard/internal/notifications"
	"github.com/aliuyar1234/taskboard/internal/projects"
	"github.com/aliuyar1234/taskboard/internal/tasks"
	"github.com/aliuyar1234/taskboard/internal/teams"
	"github.com/aliuyar1234/taskboard/internal/users"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// chains are the guard compositions the routes use, named for logs and metrics
type chains struct {
	authenticated guard.Chain
	teamLookup    guard.Chain
	teamMember    guard.Chain
	teamModerator guard.Chain
	teamOwner     guard.Chain

	projectCreate      guard.Chain
	projectMember      guard.Chain
	projectModerator   guard.Chain
	projectAdmin       guard.Chain
	projectChangeOwner guard.Chain

	columnMember    guard.Chain
	columnModerator guard.Chain
	taskMember      guard.Chain
	taskModerator   guard.Chain
}

func newChains(g *guard.Guards) chains {
	teamRole := func(name string, tier membership.Tier) guard.Chain {
		return g.Chain(name, g.Authenticate(), g.TeamMembershipLookup(), g.TeamRoleAtLeast(tier))
	}
	projectRole := func(name string, tier membership.Tier, extra ...guard.Guard) guard.Chain {
		guards := append([]guard.Guard{g.Authenticate(), g.ProjectOwnershipLookup(), g.ProjectRoleAtLeast(tier)}, extra...)
		return g.Chain(name, guards...)
	}

	return chains{
		authenticated: g.Chain("authenticated", g.Authenticate()),
		teamLookup:    g.Chain("team.lookup", g.Authenticate(), g.TeamMembershipLookup()),
		teamMember:    teamRole("team.member", membership.TierMember),
		teamModerator: teamRole("team.moderator", membership.TierModerator),
		teamOwner:     teamRole("team.owner", membership.TierOwner),

		projectCreate:    teamRole("project.create", membership.TierModerator),
		projectMember:    projectRole("project.member", membership.TierMember),
		projectModerator: projectRole("project.moderator", membership.TierModerator),
		projectAdmin:     projectRole("project.admin", membership.TierAdmin),
		projectChangeOwner: projectRole("project.change_owner", membership.TierAdmin,
			g.TeamMembershipLookup(), g.TeamRoleAtLeast(membership.TierModerator)),

		columnMember:    projectRole("column.member", membership.TierMember, g.ColumnBelongsToProject()),
		columnModerator: projectRole("column.moderator", membership.TierModerator, g.ColumnBelongsToProject()),
		taskMember:      projectRole("task.member", membership.TierMember, g.ColumnBelongsToProject(), g.TaskBelongsToColumn()),
		taskModerator:   projectRole("task.moderator", membership.TierModerator, g.ColumnBelongsToProject(), g.TaskBelongsToColumn()),
	}
}

// NewRouter creates and configures the Chi router with all middleware and routes
func NewRouter(cfg *config.Config, sqlDB *sql.DB, m *metrics.Metrics) *chi.Mux {
	r := chi.NewRouter()

	isProduction := !cfg.IsDev()

	r.Use(middleware.RealIP)
	r.Use(apperrors.RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)
	r.Use(m.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.BaseURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", auth.CSRFHeaderName},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(auth.AuthMiddleware(cfg.JWTSecret))

	store := membership.NewStore(sqlDB)
	c := newChains(guard.New(store, m))

	auditor := audit.NewWriter(sqlDB, m)
	auditReader := audit.NewReader(sqlDB)

	userSvc := users.NewService(sqlDB)
	friendSvc := friends.NewService(sqlDB)
	teamSvc := teams.NewService(sqlDB)
	projectSvc := projects.NewService(sqlDB)
	columnSvc := columns.NewService(sqlDB)
	taskSvc := tasks.NewService(sqlDB, store)
	notificationSvc := notifications.NewService(sqlDB, friendSvc)

	authOpts := auth.Options{
		JWTSecret:    cfg.JWTSecret,
		SessionDays:  cfg.SessionDays,
		BcryptCost:   cfg.BcryptCost,
		IsProduction: isProduction,
	}

	r.Get("/healthz", handleHealthz)
	r.Get("/readyz", handleReadyz(sqlDB))
	r.Handle("/metrics", m.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(NoCacheMiddleware)
		r.Use(CSRFMiddleware)

		r.Route("/auth", func(r chi.Router) {
			r.Get("/csrf", auth.HandleCSRFToken(isProduction))
			r.Post("/signup", auth.HandleSignup(userSvc, authOpts))
			r.With(LoginRateLimitMiddleware(cfg.LoginRateLimit)).Post("/login", auth.HandleLogin(userSvc, authOpts))
			r.With(auth.RequireAuth).Post("/logout", auth.HandleLogout)
			r.Get("/status", auth.HandleStatus(userSvc))
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(auth.RequireAuth)
			r.Get("/", users.HandleList(userSvc))
			r.Get("/{user_id}", users.HandleGet(userSvc))
		})

		r.Route("/friends", func(r chi.Router) {
			r.Get("/", c.authenticated.Handle(friends.HandleList(friendSvc)))
			r.Delete("/{user_id}", c.authenticated.Handle(friends.HandleUnfriend(friendSvc)))
			r.Post("/invitations", c.authenticated.Handle(friends.HandleInvite(friendSvc)))
			r.Get("/invitations/outbound", c.authenticated.Handle(friends.HandleOutbound(friendSvc)))
			r.Get("/invitations/inbound", c.authenticated.Handle(friends.HandleInbound(friendSvc)))
			r.Post("/invitations/{user_id}/accept", c.authenticated.Handle(friends.HandleAccept(friendSvc)))
			r.Post("/invitations/{user_id}/reject", c.authenticated.Handle(friends.HandleReject(friendSvc)))
			r.Delete("/invitations/{user_id}", c.authenticated.Handle(friends.HandleCancel(friendSvc)))
		})

		r.Get("/notifications", c.authenticated.Handle(notifications.HandleFeed(notificationSvc)))

		r.Route("/teams", func(r chi.Router) {
			r.Post("/", c.authenticated.Handle(teams.HandleCreate(teamSvc, auditor)))
			r.Get("/", c.authenticated.Handle(teams.HandleList(teamSvc)))

			r.Route("/{team_id}", func(r chi.Router) {
				r.Get("/members", c.teamMember.Handle(teams.HandleMembers(teamSvc)))
				r.Post("/members", c.teamModerator.Handle(teams.HandleAddMember(teamSvc, auditor)))
				r.Delete("/members/{user_id}", c.teamModerator.Handle(teams.HandleKick(teamSvc, auditor)))
				r.Put("/members/{user_id}", c.teamModerator.Handle(teams.HandleChangePermission(teamSvc, auditor)))
				r.Post("/accept", c.teamLookup.Handle(teams.HandleAccept(teamSvc, auditor)))
				r.Delete("/membership", c.teamLookup.Handle(teams.HandleLeave(teamSvc, auditor)))
				r.Put("/owner", c.teamOwner.Handle(teams.HandleChangeOwner(teamSvc, auditor)))
				r.Delete("/", c.teamOwner.Handle(teams.HandleDelete(teamSvc, auditor)))
				r.Get("/audit", c.teamModerator.Handle(teams.HandleAudit(auditReader)))
			})
		})

		r.Route("/projects", func(r chi.Router) {
			r.With(auth.RequireAuth).Post("/", projects.HandleCreate(projectSvc, c.projectCreate, auditor))
			r.Get("/", c.authenticated.Handle(projects.HandleList(projectSvc)))

			r.Route("/{project_id}", func(r chi.Router) {
				r.Get("/", c.projectMember.Handle(projects.HandleGet(projectSvc)))
				r.Put("/open", c.projectModerator.Handle(projects.HandleToggleOpen(projectSvc)))
				r.With(auth.RequireAuth).Put("/owner", projects.HandleChangeOwner(projectSvc, c.projectChangeOwner, auditor))
				r.Delete("/", c.projectAdmin.Handle(projects.HandleDelete(projectSvc, auditor)))

				r.Get("/columns", c.projectMember.Handle(columns.HandleList(columnSvc)))
				r.Post("/columns", c.projectModerator.Handle(columns.HandleCreate(columnSvc)))

				r.Route("/columns/{column_id}", func(r chi.Router) {
					r.Put("/", c.columnModerator.Handle(columns.HandleRename(columnSvc)))
					r.Delete("/", c.columnModerator.Handle(columns.HandleDelete(columnSvc)))

					r.Get("/tasks", c.columnMember.Handle(tasks.HandleList(taskSvc)))
					r.Post("/tasks", c.columnMember.Handle(tasks.HandleCreate(taskSvc)))

					r.Route("/tasks/{task_id}", func(r chi.Router) {
						r.Put("/", c.taskMember.Handle(tasks.HandleUpdate(taskSvc)))
						r.Delete("/", c.taskModerator.Handle(tasks.HandleDelete(taskSvc)))
						r.Post("/move", c.taskModerator.Handle(tasks.HandleMove(taskSvc)))
						r.Get("/users", c.taskMember.Handle(tasks.HandleAssignees(taskSvc)))
						r.Post("/users", c.taskMember.Handle(tasks.HandleAssign(taskSvc)))
						r.Delete("/users/{user_id}", c.taskMember.Handle(tasks.HandleUnassign(taskSvc)))
					})
				})
			})
		})
	})

	return r
}

// handleHealthz returns a simple liveness check
func handleHealthz(w http.ResponseWriter, r *http.Request) {
	apperrors.WriteSuccess(w, r, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// handleReadyz reports 503 until the database answers a ping
func handleReadyz(sqlDB *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := sqlDB.PingContext(r.Context()); err != nil {
			apperrors.WriteServiceUnavailable(w, r, "Database connection failed")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]string{
			"status": "ready",
			"db":     "ok",
		})
	}
}
