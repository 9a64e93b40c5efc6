package tasks

import (
	"net/http"
	"strings"

	"github.com/aliuyar1234/taskboard/internal/apperrors"
	"github.com/aliuyar1234/taskboard/internal/guard"
	"github.com/aliuyar1234/taskboard/internal/validation"
)

func pathID(r *http.Request, name string) (int64, error) {
	id, err := guard.PathID(r, name)
	if err != nil {
		return 0, err
	}
	if id == nil {
		return 0, apperrors.BadRequest("Invalid " + name)
	}
	return *id, nil
}

func decodeTask(r *http.Request) (TaskRequest, error) {
	var req TaskRequest
	if err := validation.DecodeJSON(r, &req); err != nil {
		return req, err
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := validation.Struct(req); err != nil {
		return req, err
	}
	return req, nil
}

// HandleCreate handles POST .../columns/{column_id}/tasks
func HandleCreate(svc *Service) guard.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, gc guard.Context) {
		columnID, err := pathID(r, "column_id")
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}
		req, err := decodeTask(r)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}

		task, err := svc.Create(r.Context(), columnID, gc.UserID, req)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}
		apperrors.WriteSuccess(w, r, http.StatusCreated, task)
	}
}

// HandleList handles GET .../columns/{column_id}/tasks
func HandleList(svc *Service) guard.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, _ guard.Context) {
		columnID, err := pathID(r, "column_id")
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}
		list, err := svc.ListByColumn(r.Context(), columnID)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}
		apperrors.WriteSuccess(w, r, http.StatusOK, list)
	}
}

// HandleUpdate handles PUT .../tasks/{task_id}
func HandleUpdate(svc *Service) guard.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, _ guard.Context) {
		taskID, err := pathID(r, "task_id")
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}
		req, err := decodeTask(r)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}

		task, err := svc.Update(r.Context(), taskID, req)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}
		apperrors.WriteSuccess(w, r, http.StatusOK, task)
	}
}

// HandleDelete handles DELETE .../tasks/{task_id}
func HandleDelete(svc *Service) guard.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, _ guard.Context) {
		taskID, err := pathID(r, "task_id")
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}
		task, err := svc.Delete(r.Context(), taskID)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}
		apperrors.WriteSuccess(w, r, http.StatusOK, task)
	}
}

// HandleMove handles POST .../tasks/{task_id}/move
func HandleMove(svc *Service) guard.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, gc guard.Context) {
		taskID, err := pathID(r, "task_id")
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}
		var req MoveRequest
		if err := validation.DecodeJSON(r, &req); err != nil {
			apperrors.Write(w, r, err)
			return
		}

		task, err := svc.Move(r.Context(), gc.Project.ProjectID, taskID, req.ColumnID)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}
		apperrors.WriteSuccess(w, r, http.StatusOK, task)
	}
}

// HandleAssign handles POST .../tasks/{task_id}/users
func HandleAssign(svc *Service) guard.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, gc guard.Context) {
		taskID, err := pathID(r, "task_id")
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}
		var req AssignRequest
		if err := validation.DecodeJSON(r, &req); err != nil {
			apperrors.Write(w, r, err)
			return
		}

		if err := svc.Assign(r.Context(), gc.Project, taskID, gc.UserID, req.UserID); err != nil {
			apperrors.Write(w, r, err)
			return
		}
		apperrors.WriteSuccess(w, r, http.StatusCreated, map[string]int64{"task_id": taskID, "user_id": req.UserID})
	}
}

// HandleUnassign handles DELETE .../tasks/{task_id}/users/{user_id}
func HandleUnassign(svc *Service) guard.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, _ guard.Context) {
		taskID, err := pathID(r, "task_id")
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}
		userID, err := pathID(r, "user_id")
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}

		if err := svc.Unassign(r.Context(), taskID, userID); err != nil {
			apperrors.Write(w, r, err)
			return
		}
		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]int64{"task_id": taskID, "user_id": userID})
	}
}

// HandleAssignees handles GET .../tasks/{task_id}/users
func HandleAssignees(svc *Service) guard.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, _ guard.Context) {
		taskID, err := pathID(r, "task_id")
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}
		list, err := svc.Assignees(r.Context(), taskID)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}
		apperrors.WriteSuccess(w, r, http.StatusOK, list)
	}
}
