package sqlite

import (
	"context"
	"fmt"

	"github.com/opshq/backoffice/internal/models"
)

func (r *SQLiteRepo) RecordAudit(ctx context.Context, e *models.AuditEvent) error {
	if e == nil {
		return fmt.Errorf("audit event is nil")
	}

	_, err := r.conn.Exec(ctx, `INSERT INTO audit_events (org_id, actor_id, action, entity, entity_id, created) VALUES (?, ?, ?, ?, ?, ?)`,
		e.OrgID, e.ActorID, e.Action, e.Entity, e.EntityID, now())
	if err != nil {
		r.logger.Error("record audit event", "err", err, "action", e.Action, "entity", e.Entity)
	}
	return err
}

func (r *SQLiteRepo) ListAudit(ctx context.Context, orgID int64, entity string, limit, offset int) ([]models.AuditEvent, int64, error) {
	limit, offset = clampPage(limit, offset)

	where := `WHERE org_id = ?`
	args := []any{orgID}
	if entity != "" {
		where += ` AND entity = ?`
		args = append(args, entity)
	}

	var total int64
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM audit_events `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn.QueryRows(ctx, `SELECT id, org_id, actor_id, action, entity, entity_id, created FROM audit_events `+where+` ORDER BY created DESC LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.AuditEvent
	for rows.Next() {
		var e models.AuditEvent
		if err := rows.Scan(&e.ID, &e.OrgID, &e.ActorID, &e.Action, &e.Entity, &e.EntityID, &e.Created); err != nil {
			return nil, 0, err
		}

		out = append(out, e)
	}

	return out, total, rows.Err()
}
