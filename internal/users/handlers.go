package users

import (
	"net/http"
	"strconv"

	"github.com/aliuyar1234/taskboard/internal/apperrors"
	"github.com/go-chi/chi/v5"
)

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.BadRequest("Invalid " + name)
	}
	return v, nil
}

// HandleList handles GET /api/v1/users
func HandleList(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := queryInt(r, "limit", DefaultPageSize)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}
		offset, err := queryInt(r, "offset", 0)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}

		list, err := svc.List(r.Context(), limit, offset)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}
		apperrors.WriteSuccess(w, r, http.StatusOK, list)
	}
}

// HandleGet handles GET /api/v1/users/{user_id}
func HandleGet(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "user_id"), 10, 64)
		if err != nil || id <= 0 {
			apperrors.Write(w, r, apperrors.BadRequest("Invalid user_id"))
			return
		}

		user, err := svc.Get(r.Context(), id)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}
		apperrors.WriteSuccess(w, r, http.StatusOK, user)
	}
}
