package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/opshq/backoffice/internal/models"
	"github.com/opshq/backoffice/pkg/repository"
)

func (r *SQLiteRepo) CreateProject(ctx context.Context, p *models.Project) (int64, error) {
	if p == nil {
		return 0, fmt.Errorf("project is nil")
	}

	ts := now()
	res, err := r.conn.Exec(ctx, `INSERT INTO projects (org_id, name, description, status, created_by, updated_by, created, updated) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.OrgID, p.Name, p.Description, p.Status, p.CreatedBy, p.UpdatedBy, ts, ts)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetProject(ctx context.Context, orgID, id int64) (*models.Project, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, org_id, name, description, status, created_by, updated_by, created, updated FROM projects WHERE org_id = ? AND id = ?`, orgID, id)
	var p models.Project
	if err := row.Scan(&p.ID, &p.OrgID, &p.Name, &p.Description, &p.Status, &p.CreatedBy, &p.UpdatedBy, &p.Created, &p.Updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return &p, nil
}

func (r *SQLiteRepo) ListProjects(ctx context.Context, f repository.ListFilter) ([]models.Project, int64, error) {
	limit, offset := clampPage(f.Limit, f.Offset)

	where := `WHERE org_id = ?`
	args := []any{f.OrgID}
	if f.Status != "" {
		where += ` AND status = ?`
		args = append(args, f.Status)
	}

	var total int64
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM projects `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn.QueryRows(ctx, `SELECT id, org_id, name, description, status, created_by, updated_by, created, updated FROM projects `+where+` ORDER BY created DESC LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.OrgID, &p.Name, &p.Description, &p.Status, &p.CreatedBy, &p.UpdatedBy, &p.Created, &p.Updated); err != nil {
			return nil, 0, err
		}

		out = append(out, p)
	}

	return out, total, rows.Err()
}

func (r *SQLiteRepo) UpdateProject(ctx context.Context, p *models.Project) error {
	if p == nil {
		return fmt.Errorf("project is nil")
	}

	res, err := r.conn.Exec(ctx, `UPDATE projects SET name = ?, description = ?, status = ?, updated_by = ?, updated = ? WHERE org_id = ? AND id = ?`,
		p.Name, p.Description, p.Status, p.UpdatedBy, now(), p.OrgID, p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *SQLiteRepo) DeleteProject(ctx context.Context, orgID, id int64) error {
	res, err := r.conn.Exec(ctx, `DELETE FROM projects WHERE org_id = ? AND id = ?`, orgID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}

	return nil
}
