package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/opshq/backoffice/internal/models"
	"github.com/opshq/backoffice/pkg/repository"
)

func (r *SQLiteRepo) CreateFeedback(ctx context.Context, fb *models.Feedback) (int64, error) {
	if fb == nil {
		return 0, fmt.Errorf("feedback is nil")
	}

	ts := now()
	res, err := r.conn.Exec(ctx, `INSERT INTO feedback (org_id, subject, body, category, rating, status, has_response, created_by, created, updated) VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?, ?)`,
		fb.OrgID, fb.Subject, fb.Body, fb.Category, fb.Rating, models.FeedbackNew, fb.CreatedBy, ts, ts)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetFeedback(ctx context.Context, orgID, id int64) (*models.Feedback, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, org_id, subject, body, category, rating, status, has_response, response, responded_by, created_by, created, updated FROM feedback WHERE org_id = ? AND id = ?`, orgID, id)
	fb, err := scanFeedback(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return fb, nil
}

func (r *SQLiteRepo) ListFeedback(ctx context.Context, f repository.ListFilter) ([]models.Feedback, int64, error) {
	limit, offset := clampPage(f.Limit, f.Offset)

	where := `WHERE org_id = ?`
	args := []any{f.OrgID}
	if f.Status != "" {
		where += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.Category != "" {
		where += ` AND category = ?`
		args = append(args, f.Category)
	}

	var total int64
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM feedback `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn.QueryRows(ctx, `SELECT id, org_id, subject, body, category, rating, status, has_response, response, responded_by, created_by, created, updated FROM feedback `+where+` ORDER BY created DESC LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.Feedback
	for rows.Next() {
		fb, err := scanFeedback(rows.Scan)
		if err != nil {
			return nil, 0, err
		}

		out = append(out, *fb)
	}

	return out, total, rows.Err()
}

func scanFeedback(scan func(...any) error) (*models.Feedback, error) {
	var fb models.Feedback
	var rating sql.NullInt64
	var response sql.NullString
	var respondedBy sql.NullInt64
	if err := scan(&fb.ID, &fb.OrgID, &fb.Subject, &fb.Body, &fb.Category, &rating, &fb.Status, &fb.HasResponse, &response, &respondedBy, &fb.CreatedBy, &fb.Created, &fb.Updated); err != nil {
		return nil, err
	}
	if rating.Valid {
		v := int(rating.Int64)
		fb.Rating = &v
	}
	if response.Valid {
		fb.Response = &response.String
	}
	if respondedBy.Valid {
		fb.RespondedBy = &respondedBy.Int64
	}

	return &fb, nil
}

func (r *SQLiteRepo) UpdateFeedbackStatus(ctx context.Context, orgID, id int64, status string) error {
	res, err := r.conn.Exec(ctx, `UPDATE feedback SET status = ?, updated = ? WHERE org_id = ? AND id = ?`, status, now(), orgID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *SQLiteRepo) RespondFeedback(ctx context.Context, orgID, id int64, response string, responder int64) error {
	res, err := r.conn.Exec(ctx, `UPDATE feedback SET response = ?, responded_by = ?, has_response = 1, status = ?, updated = ? WHERE org_id = ? AND id = ?`,
		response, responder, models.FeedbackResponded, now(), orgID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *SQLiteRepo) DeleteFeedback(ctx context.Context, orgID, id int64) error {
	res, err := r.conn.Exec(ctx, `DELETE FROM feedback WHERE org_id = ? AND id = ?`, orgID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}

	return nil
}
