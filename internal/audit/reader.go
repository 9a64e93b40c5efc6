package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aliuyar1234/taskboard/internal/db"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

type Reader struct {
	db db.DBTX
}

func NewReader(q db.DBTX) *Reader {
	return &Reader{db: q}
}

type ListItem struct {
	ID          int64          `json:"id"`
	Action      string         `json:"action"`
	TeamID      int64          `json:"team_id"`
	ProjectID   *int64         `json:"project_id,omitempty"`
	ActorUserID int64          `json:"actor_user_id"`
	ActorNick   string         `json:"actor_nick,omitempty"`
	Meta        map[string]any `json:"meta"`
	CreatedAt   time.Time      `json:"created_at"`
}

func (r *Reader) ListByTeam(ctx context.Context, teamID int64, limit int) ([]ListItem, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = DefaultListLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT
		  al.id,
		  al.team_id,
		  al.project_id,
		  al.actor_user_id,
		  u.nick,
		  al.action,
		  al.meta,
		  al.created_at
		FROM audit_log al
		LEFT JOIN users u ON u.user_id = al.actor_user_id
		WHERE al.team_id = $1
		ORDER BY al.created_at DESC, al.id DESC
		LIMIT $2
	`, teamID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	out := []ListItem{}
	for rows.Next() {
		var item ListItem
		var projectID sql.NullInt64
		var actorNick sql.NullString
		var metaRaw []byte

		if err := rows.Scan(&item.ID, &item.TeamID, &projectID, &item.ActorUserID, &actorNick, &item.Action, &metaRaw, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}

		if projectID.Valid {
			item.ProjectID = &projectID.Int64
		}
		item.ActorNick = actorNick.String

		item.Meta = map[string]any{}
		if len(metaRaw) > 0 {
			_ = json.Unmarshal(metaRaw, &item.Meta)
		}

		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit rows: %w", err)
	}

	return out, nil
}
