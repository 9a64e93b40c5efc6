package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/aliuyar1234/taskboard/internal/db"
	"github.com/rs/zerolog/log"
)

const (
	EventTeamCreated           = "team.created"
	EventTeamMemberInvited     = "team.member_invited"
	EventTeamInviteAccepted    = "team.invite_accepted"
	EventTeamMemberLeft        = "team.member_left"
	EventTeamMemberKicked      = "team.member_kicked"
	EventTeamPermissionChanged = "team.permission_changed"
	EventTeamOwnerChanged      = "team.owner_changed"
	EventTeamDeleted           = "team.deleted"
	EventProjectCreated        = "project.created"
	EventProjectOwnerChanged   = "project.owner_changed"
	EventProjectDeleted        = "project.deleted"
)

// Recorder counts audit writes
type Recorder interface {
	AuditEvent(action string)
	AuditFailure()
}

// Writer provides methods to write audit log entries.
type Writer struct {
	db       db.DBTX
	recorder Recorder
}

// NewWriter creates an audit writer. recorder may be nil.
func NewWriter(q db.DBTX, recorder Recorder) *Writer {
	return &Writer{db: q, recorder: recorder}
}

// LogParams contains parameters for logging an audit event.
type LogParams struct {
	TeamID      *int64
	ProjectID   *int64
	ActorUserID int64
	Action      string
	Meta        map[string]interface{}
}

// Log writes one event. Callers treat failures as non-fatal: the mutation
// has already committed.
func (w *Writer) Log(ctx context.Context, params LogParams) error {
	metaJSON := []byte("{}")
	if params.Meta != nil {
		b, err := json.Marshal(params.Meta)
		if err != nil {
			w.failed(err, params.Action)
			return fmt.Errorf("failed to marshal audit meta: %w", err)
		}
		metaJSON = b
	}

	_, err := w.db.ExecContext(ctx, `
		INSERT INTO audit_log (team_id, project_id, actor_user_id, action, meta)
		VALUES ($1, $2, $3, $4, $5)
	`, nullInt64(params.TeamID), nullInt64(params.ProjectID), params.ActorUserID, params.Action, metaJSON)
	if err != nil {
		w.failed(err, params.Action)
		return fmt.Errorf("failed to write audit log: %w", err)
	}

	if w.recorder != nil {
		w.recorder.AuditEvent(params.Action)
	}

	log.Info().
		Str("action", params.Action).
		Interface("team_id", params.TeamID).
		Interface("project_id", params.ProjectID).
		Int64("actor_user_id", params.ActorUserID).
		Msg("Audit event logged")

	return nil
}

func (w *Writer) failed(err error, action string) {
	log.Error().Err(err).Str("action", action).Msg("Failed to write audit log")
	if w.recorder != nil {
		w.recorder.AuditFailure()
	}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

// Team logs an event scoped to teamID
func (w *Writer) Team(ctx context.Context, teamID, actorUserID int64, action string, meta map[string]interface{}) error {
	return w.Log(ctx, LogParams{
		TeamID:      &teamID,
		ActorUserID: actorUserID,
		Action:      action,
		Meta:        meta,
	})
}

// Project logs an event scoped to projectID and, when set, its team
func (w *Writer) Project(ctx context.Context, projectID int64, teamID *int64, actorUserID int64, action string, meta map[string]interface{}) error {
	return w.Log(ctx, LogParams{
		TeamID:      teamID,
		ProjectID:   &projectID,
		ActorUserID: actorUserID,
		Action:      action,
		Meta:        meta,
	})
}
