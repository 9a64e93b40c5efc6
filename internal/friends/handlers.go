package friends

import (
	"net/http"

	"github.com/aliuyar1234/taskboard/internal/apperrors"
	"github.com/aliuyar1234/taskboard/internal/guard"
	"github.com/aliuyar1234/taskboard/internal/validation"
	"github.com/rs/zerolog/log"
)

// InviteRequest names the user to invite
type InviteRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}

func targetID(r *http.Request) (int64, error) {
	id, err := guard.PathID(r, "user_id")
	if err != nil {
		return 0, err
	}
	if id == nil {
		return 0, apperrors.BadRequest("Invalid user_id")
	}
	return *id, nil
}

// HandleList handles GET /api/v1/friends
func HandleList(svc *Service) guard.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, gc guard.Context) {
		list, err := svc.Friends(r.Context(), gc.UserID)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}
		apperrors.WriteSuccess(w, r, http.StatusOK, list)
	}
}

// HandleUnfriend handles DELETE /api/v1/friends/{user_id}
func HandleUnfriend(svc *Service) guard.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, gc guard.Context) {
		other, err := targetID(r)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}
		if err := svc.Unfriend(r.Context(), gc.UserID, other); err != nil {
			apperrors.Write(w, r, err)
			return
		}
		log.Info().Int64("user_id", gc.UserID).Int64("other_id", other).Msg("Friendship removed")
		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]bool{"removed": true})
	}
}

// HandleInvite handles POST /api/v1/friends/invitations
func HandleInvite(svc *Service) guard.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, gc guard.Context) {
		var req InviteRequest
		if err := validation.DecodeJSON(r, &req); err != nil {
			apperrors.Write(w, r, err)
			return
		}

		profile, err := svc.Invite(r.Context(), gc.UserID, req.UserID)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}

		log.Info().Int64("from_id", gc.UserID).Int64("to_id", req.UserID).Msg("Friend invitation sent")
		apperrors.WriteSuccess(w, r, http.StatusCreated, profile)
	}
}

// HandleOutbound handles GET /api/v1/friends/invitations/outbound
func HandleOutbound(svc *Service) guard.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, gc guard.Context) {
		list, err := svc.Outbound(r.Context(), gc.UserID)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}
		apperrors.WriteSuccess(w, r, http.StatusOK, list)
	}
}

// HandleInbound handles GET /api/v1/friends/invitations/inbound
func HandleInbound(svc *Service) guard.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, gc guard.Context) {
		list, err := svc.Inbound(r.Context(), gc.UserID)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}
		apperrors.WriteSuccess(w, r, http.StatusOK, list)
	}
}

// HandleAccept handles POST /api/v1/friends/invitations/{user_id}/accept
func HandleAccept(svc *Service) guard.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, gc guard.Context) {
		from, err := targetID(r)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}

		profile, err := svc.Accept(r.Context(), gc.UserID, from)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}

		log.Info().Int64("user_id", gc.UserID).Int64("from_id", from).Msg("Friend invitation accepted")
		apperrors.WriteSuccess(w, r, http.StatusOK, profile)
	}
}

// HandleReject handles POST /api/v1/friends/invitations/{user_id}/reject
func HandleReject(svc *Service) guard.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, gc guard.Context) {
		from, err := targetID(r)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}
		if err := svc.Reject(r.Context(), gc.UserID, from); err != nil {
			apperrors.Write(w, r, err)
			return
		}
		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]bool{"rejected": true})
	}
}

// HandleCancel handles DELETE /api/v1/friends/invitations/{user_id}
func HandleCancel(svc *Service) guard.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, gc guard.Context) {
		to, err := targetID(r)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}
		if err := svc.Cancel(r.Context(), gc.UserID, to); err != nil {
			apperrors.Write(w, r, err)
			return
		}
		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]bool{"cancelled": true})
	}
}
