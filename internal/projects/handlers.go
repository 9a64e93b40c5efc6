package projects

import (
	"net/http"
	"strings"

	"github.com/aliuyar1234/taskboard/internal/apperrors"
	"github.com/aliuyar1234/taskboard/internal/audit"
	"github.com/aliuyar1234/taskboard/internal/guard"
	"github.com/aliuyar1234/taskboard/internal/validation"
	"github.com/rs/zerolog/log"
)

// CreateRequest represents the request to create a project
type CreateRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=50"`
	Description string `json:"description" validate:"max=500"`
	TeamID      *int64 `json:"team_id" validate:"omitempty,gt=0"`
}

// ChangeOwnerRequest moves a project between its creator and a team
type ChangeOwnerRequest struct {
	OwnerType OwnerType `json:"owner_type" validate:"required,oneof=user team"`
	TeamID    *int64    `json:"team_id" validate:"omitempty,gt=0"`
}

func logAudit(r *http.Request, auditor *audit.Writer, p *Project, actorID int64, action string, meta map[string]interface{}) {
	if err := auditor.Project(r.Context(), p.ID, p.TeamID, actorID, action, meta); err != nil {
		log.Error().Err(err).Str("action", action).Msg("Failed to log audit event")
	}
}

// HandleCreate handles POST /api/v1/projects. The team comes from the body,
// so chain runs here instead of through Chain.Handle.
func HandleCreate(svc *Service, chain guard.Chain, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateRequest
		if err := validation.DecodeJSON(r, &req); err != nil {
			apperrors.Write(w, r, err)
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if err := validation.Struct(req); err != nil {
			apperrors.Write(w, r, err)
			return
		}

		gc, err := chain.Run(r.Context(), guard.Args{TeamID: req.TeamID})
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}

		project, err := svc.Create(r.Context(), gc.UserID, NewProject{
			Name:        req.Name,
			Description: req.Description,
			TeamID:      req.TeamID,
		})
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}

		logAudit(r, auditor, project, gc.UserID, audit.EventProjectCreated, map[string]interface{}{
			"name":       project.Name,
			"owner_type": project.OwnerType,
		})
		apperrors.WriteSuccess(w, r, http.StatusCreated, project)
	}
}

// HandleList handles GET /api/v1/projects
func HandleList(svc *Service) guard.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, gc guard.Context) {
		list, err := svc.ListForUser(r.Context(), gc.UserID)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}
		apperrors.WriteSuccess(w, r, http.StatusOK, list)
	}
}

// HandleGet handles GET /api/v1/projects/{project_id}
func HandleGet(svc *Service) guard.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, gc guard.Context) {
		project, err := svc.GetByID(r.Context(), gc.Project.ProjectID)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}
		apperrors.WriteSuccess(w, r, http.StatusOK, project)
	}
}

// HandleToggleOpen handles PUT /api/v1/projects/{project_id}/open
func HandleToggleOpen(svc *Service) guard.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, gc guard.Context) {
		project, err := svc.ToggleOpen(r.Context(), gc.Project.ProjectID)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}
		apperrors.WriteSuccess(w, r, http.StatusOK, project)
	}
}

// HandleChangeOwner handles PUT /api/v1/projects/{project_id}/owner. The
// project comes from the path and the destination team from the body.
func HandleChangeOwner(svc *Service, chain guard.Chain, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChangeOwnerRequest
		if err := validation.DecodeJSON(r, &req); err != nil {
			apperrors.Write(w, r, err)
			return
		}

		args, err := guard.PathArgs(r)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}
		args.TeamID = req.TeamID

		gc, err := chain.Run(r.Context(), args)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}

		previous := gc.Project.TeamID
		project, err := svc.ChangeOwner(r.Context(), gc.Project, req.OwnerType, req.TeamID)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}

		meta := map[string]interface{}{"owner_type": project.OwnerType}
		if previous != nil {
			meta["previous_team_id"] = *previous
		}
		logAudit(r, auditor, project, gc.UserID, audit.EventProjectOwnerChanged, meta)
		apperrors.WriteSuccess(w, r, http.StatusOK, project)
	}
}

// HandleDelete handles DELETE /api/v1/projects/{project_id}
func HandleDelete(svc *Service, auditor *audit.Writer) guard.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, gc guard.Context) {
		projectID := gc.Project.ProjectID
		if err := svc.Delete(r.Context(), projectID); err != nil {
			apperrors.Write(w, r, err)
			return
		}

		logAudit(r, auditor, &Project{ID: projectID, TeamID: gc.Project.TeamID}, gc.UserID, audit.EventProjectDeleted, nil)
		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]int64{"project_id": projectID})
	}
}
