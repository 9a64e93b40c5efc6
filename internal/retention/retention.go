package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/aliuyar1234/taskboard/internal/db"
	"github.com/rs/zerolog/log"
)

// Recorder counts purged rows
type Recorder interface {
	AuditPurged(n int64)
}

// DeleteOldAuditEvents deletes audit_log rows older than the specified days.
// The function is idempotent - safe to run repeatedly.
//
// Returns the number of rows deleted.
func DeleteOldAuditEvents(ctx context.Context, q db.DBTX, retentionDays int) (int64, error) {
	result, err := q.ExecContext(ctx, `
		DELETE FROM audit_log
		WHERE created_at < NOW() - INTERVAL '1 day' * $1
	`, retentionDays)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old audit events: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

// RunRetentionJob purges expired audit events and logs the result.
// This is the main entry point called by the cron scheduler.
func RunRetentionJob(ctx context.Context, q db.DBTX, auditDays int, recorder Recorder) error {
	if auditDays <= 0 {
		log.Debug().Msg("Audit retention disabled")
		return nil
	}

	log.Info().Int("audit_retention_days", auditDays).Msg("Starting retention job")
	startTime := time.Now()

	deleted, err := DeleteOldAuditEvents(ctx, q, auditDays)
	if err != nil {
		log.Error().Err(err).Msg("Failed to delete old audit events")
		return fmt.Errorf("audit cleanup failed: %w", err)
	}

	if recorder != nil {
		recorder.AuditPurged(deleted)
	}

	log.Info().
		Int64("audit_events_deleted", deleted).
		Dur("duration", time.Since(startTime)).
		Msg("Retention job completed")

	return nil
}
