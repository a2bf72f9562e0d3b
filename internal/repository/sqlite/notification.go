package sqlite

import (
	"context"
	"fmt"

	"github.com/opshq/backoffice/internal/models"
	"github.com/opshq/backoffice/pkg/repository"
)

func (r *SQLiteRepo) CreateNotification(ctx context.Context, n *models.Notification) (int64, error) {
	if n == nil {
		return 0, fmt.Errorf("notification is nil")
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO notifications (org_id, kind, message, read, created) VALUES (?, ?, ?, 0, ?)`,
		n.OrgID, n.Kind, n.Message, now())
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) ListNotifications(ctx context.Context, orgID int64, unreadOnly bool, limit, offset int) ([]models.Notification, int64, error) {
	limit, offset = clampPage(limit, offset)

	where := `WHERE org_id = ?`
	args := []any{orgID}
	if unreadOnly {
		where += ` AND read = 0`
	}

	var total int64
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM notifications `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn.QueryRows(ctx, `SELECT id, org_id, kind, message, read, created FROM notifications `+where+` ORDER BY created DESC LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.OrgID, &n.Kind, &n.Message, &n.Read, &n.Created); err != nil {
			return nil, 0, err
		}

		out = append(out, n)
	}

	return out, total, rows.Err()
}

func (r *SQLiteRepo) MarkNotificationRead(ctx context.Context, orgID, id int64) error {
	res, err := r.conn.Exec(ctx, `UPDATE notifications SET read = 1 WHERE org_id = ? AND id = ?`, orgID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}

	return nil
}
