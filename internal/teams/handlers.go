package teams

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/aliuyar1234/taskboard/internal/apperrors"
	"github.com/aliuyar1234/taskboard/internal/audit"
	"github.com/aliuyar1234/taskboard/internal/guard"
	"github.com/aliuyar1234/taskboard/internal/membership"
	"github.com/aliuyar1234/taskboard/internal/validation"
	"github.com/rs/zerolog/log"
)

// CreateRequest represents the request to create a team
type CreateRequest struct {
	Name string `json:"name" validate:"required,min=3,max=30"`
}

// UserRequest names a target user
type UserRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}

// PermissionRequest carries the new permission of a member
type PermissionRequest struct {
	Permission membership.Permission `json:"permission"`
}

func logAudit(r *http.Request, auditor *audit.Writer, teamID, actorID int64, action string, meta map[string]interface{}) {
	if err := auditor.Team(r.Context(), teamID, actorID, action, meta); err != nil {
		log.Error().Err(err).Str("action", action).Msg("Failed to log audit event")
		// Continue - don't fail the request
	}
}

func pathUserID(r *http.Request) (int64, error) {
	id, err := guard.PathID(r, "user_id")
	if err != nil {
		return 0, err
	}
	if id == nil {
		return 0, apperrors.BadRequest("Invalid user_id")
	}
	return *id, nil
}

// HandleCreate handles POST /api/v1/teams
func HandleCreate(svc *Service, auditor *audit.Writer) guard.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, gc guard.Context) {
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

		team, err := svc.Create(r.Context(), gc.UserID, req.Name)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}

		logAudit(r, auditor, team.ID, gc.UserID, audit.EventTeamCreated, map[string]interface{}{"name": team.Name})
		apperrors.WriteSuccess(w, r, http.StatusCreated, team)
	}
}

// HandleList handles GET /api/v1/teams
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

// HandleMembers handles GET /api/v1/teams/{team_id}/members
func HandleMembers(svc *Service) guard.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, gc guard.Context) {
		members, err := svc.Members(r.Context(), gc.Team)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}
		apperrors.WriteSuccess(w, r, http.StatusOK, members)
	}
}

// HandleAddMember handles POST /api/v1/teams/{team_id}/members
func HandleAddMember(svc *Service, auditor *audit.Writer) guard.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, gc guard.Context) {
		var req UserRequest
		if err := validation.DecodeJSON(r, &req); err != nil {
			apperrors.Write(w, r, err)
			return
		}

		row, err := svc.AddMember(r.Context(), gc.Team, gc.UserID, req.UserID)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}

		logAudit(r, auditor, row.TeamID, gc.UserID, audit.EventTeamMemberInvited, map[string]interface{}{"user_id": row.UserID})
		apperrors.WriteSuccess(w, r, http.StatusCreated, row)
	}
}

// HandleAccept handles POST /api/v1/teams/{team_id}/accept
func HandleAccept(svc *Service, auditor *audit.Writer) guard.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, gc guard.Context) {
		row, err := svc.Accept(r.Context(), gc.Team, gc.UserID)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}

		logAudit(r, auditor, row.TeamID, gc.UserID, audit.EventTeamInviteAccepted, nil)
		apperrors.WriteSuccess(w, r, http.StatusOK, row)
	}
}

// HandleLeave handles DELETE /api/v1/teams/{team_id}/membership
func HandleLeave(svc *Service, auditor *audit.Writer) guard.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, gc guard.Context) {
		if err := svc.Leave(r.Context(), gc.Team, gc.UserID); err != nil {
			apperrors.Write(w, r, err)
			return
		}

		logAudit(r, auditor, gc.Team.TeamID, gc.UserID, audit.EventTeamMemberLeft, nil)
		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]bool{"left": true})
	}
}

// HandleKick handles DELETE /api/v1/teams/{team_id}/members/{user_id}
func HandleKick(svc *Service, auditor *audit.Writer) guard.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, gc guard.Context) {
		targetID, err := pathUserID(r)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}

		if err := svc.Kick(r.Context(), gc.Team, gc.UserID, targetID); err != nil {
			apperrors.Write(w, r, err)
			return
		}

		logAudit(r, auditor, gc.Team.TeamID, gc.UserID, audit.EventTeamMemberKicked, map[string]interface{}{"user_id": targetID})
		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]bool{"removed": true})
	}
}

// HandleChangePermission handles PUT /api/v1/teams/{team_id}/members/{user_id}
func HandleChangePermission(svc *Service, auditor *audit.Writer) guard.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, gc guard.Context) {
		targetID, err := pathUserID(r)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}

		var req PermissionRequest
		if err := validation.DecodeJSON(r, &req); err != nil {
			apperrors.Write(w, r, err)
			return
		}

		row, err := svc.ChangePermission(r.Context(), gc.Team, gc.UserID, targetID, req.Permission)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}

		logAudit(r, auditor, row.TeamID, gc.UserID, audit.EventTeamPermissionChanged, map[string]interface{}{
			"user_id":    row.UserID,
			"permission": row.Permission,
		})
		apperrors.WriteSuccess(w, r, http.StatusOK, row)
	}
}

// HandleChangeOwner handles PUT /api/v1/teams/{team_id}/owner
func HandleChangeOwner(svc *Service, auditor *audit.Writer) guard.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, gc guard.Context) {
		var req UserRequest
		if err := validation.DecodeJSON(r, &req); err != nil {
			apperrors.Write(w, r, err)
			return
		}

		team, err := svc.ChangeOwner(r.Context(), gc.Team, req.UserID)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}

		log.Info().
			Int64("team_id", team.ID).
			Int64("previous_owner_id", gc.Team.OwnerID).
			Int64("owner_id", team.OwnerID).
			Msg("Team ownership transferred")

		logAudit(r, auditor, team.ID, gc.UserID, audit.EventTeamOwnerChanged, map[string]interface{}{
			"previous_owner_id": gc.Team.OwnerID,
			"owner_id":          team.OwnerID,
		})
		apperrors.WriteSuccess(w, r, http.StatusOK, team)
	}
}

// HandleDelete handles DELETE /api/v1/teams/{team_id}
func HandleDelete(svc *Service, auditor *audit.Writer) guard.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, gc guard.Context) {
		result, err := svc.Delete(r.Context(), gc.Team)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}

		logAudit(r, auditor, result.TeamID, gc.UserID, audit.EventTeamDeleted, map[string]interface{}{
			"name":              gc.Team.Name,
			"projects_detached": result.ProjectsDetached,
		})
		apperrors.WriteSuccess(w, r, http.StatusOK, result)
	}
}

// HandleAudit handles GET /api/v1/teams/{team_id}/audit
func HandleAudit(reader *audit.Reader) guard.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, gc guard.Context) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				apperrors.Write(w, r, apperrors.BadRequest("Invalid limit"))
				return
			}
			limit = n
		}

		items, err := reader.ListByTeam(r.Context(), gc.Team.TeamID, limit)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}
		apperrors.WriteSuccess(w, r, http.StatusOK, items)
	}
}
