package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/opshq/backoffice/internal/models"
	"github.com/opshq/backoffice/pkg/repository"
)

func (r *SQLiteRepo) CreatePosting(ctx context.Context, p *models.JobPosting) (int64, error) {
	if p == nil {
		return 0, fmt.Errorf("posting is nil")
	}

	ts := now()
	res, err := r.conn.Exec(ctx, `INSERT INTO job_postings (org_id, title, description, department, location, status, created_by, updated_by, created, updated) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.OrgID, p.Title, p.Description, p.Department, p.Location, models.PostingDraft, p.CreatedBy, p.UpdatedBy, ts, ts)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetPosting(ctx context.Context, orgID, id int64) (*models.JobPosting, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, org_id, title, description, department, location, status, published_at, closed_at, created_by, updated_by, created, updated FROM job_postings WHERE org_id = ? AND id = ?`, orgID, id)
	p, err := scanPosting(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return p, nil
}

func (r *SQLiteRepo) ListPostings(ctx context.Context, f repository.ListFilter) ([]models.JobPosting, int64, error) {
	limit, offset := clampPage(f.Limit, f.Offset)

	where := `WHERE org_id = ?`
	args := []any{f.OrgID}
	if f.Status != "" {
		where += ` AND status = ?`
		args = append(args, f.Status)
	}

	var total int64
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM job_postings `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn.QueryRows(ctx, `SELECT id, org_id, title, description, department, location, status, published_at, closed_at, created_by, updated_by, created, updated FROM job_postings `+where+` ORDER BY created DESC LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.JobPosting
	for rows.Next() {
		p, err := scanPosting(rows.Scan)
		if err != nil {
			return nil, 0, err
		}

		out = append(out, *p)
	}

	return out, total, rows.Err()
}

func scanPosting(scan func(...any) error) (*models.JobPosting, error) {
	var p models.JobPosting
	var published, closed sql.NullInt64
	if err := scan(&p.ID, &p.OrgID, &p.Title, &p.Description, &p.Department, &p.Location, &p.Status, &published, &closed, &p.CreatedBy, &p.UpdatedBy, &p.Created, &p.Updated); err != nil {
		return nil, err
	}
	if published.Valid {
		p.PublishedAt = &published.Int64
	}
	if closed.Valid {
		p.ClosedAt = &closed.Int64
	}

	return &p, nil
}

func (r *SQLiteRepo) UpdatePosting(ctx context.Context, p *models.JobPosting) error {
	if p == nil {
		return fmt.Errorf("posting is nil")
	}

	res, err := r.conn.Exec(ctx, `UPDATE job_postings SET title = ?, description = ?, department = ?, location = ?, updated_by = ?, updated = ? WHERE org_id = ? AND id = ?`,
		p.Title, p.Description, p.Department, p.Location, p.UpdatedBy, now(), p.OrgID, p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetPostingStatus transitions a posting and stamps published_at or closed_at
// when entering those states.
func (r *SQLiteRepo) SetPostingStatus(ctx context.Context, orgID, id int64, status string, stamp int64) error {
	var res sql.Result
	var err error
	switch status {
	case models.PostingPublished:
		res, err = r.conn.Exec(ctx, `UPDATE job_postings SET status = ?, published_at = ?, updated = ? WHERE org_id = ? AND id = ?`, status, stamp, now(), orgID, id)
	case models.PostingClosed:
		res, err = r.conn.Exec(ctx, `UPDATE job_postings SET status = ?, closed_at = ?, updated = ? WHERE org_id = ? AND id = ?`, status, stamp, now(), orgID, id)
	default:
		res, err = r.conn.Exec(ctx, `UPDATE job_postings SET status = ?, updated = ? WHERE org_id = ? AND id = ?`, status, now(), orgID, id)
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *SQLiteRepo) DeletePosting(ctx context.Context, orgID, id int64) error {
	res, err := r.conn.Exec(ctx, `DELETE FROM job_postings WHERE org_id = ? AND id = ?`, orgID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}

	return nil
}
