package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/opshq/backoffice/internal/models"
	"github.com/opshq/backoffice/pkg/repository"
)

func (r *SQLiteRepo) CreateTemplate(ctx context.Context, t *models.BillingTemplate) (int64, error) {
	if t == nil {
		return 0, fmt.Errorf("template is nil")
	}

	ts := now()
	res, err := r.conn.Exec(ctx, `INSERT INTO billing_templates (org_id, kind, name, body, is_default, created_by, updated_by, created, updated) VALUES (?, ?, ?, ?, 0, ?, ?, ?, ?)`,
		t.OrgID, t.Kind, t.Name, t.Body, t.CreatedBy, t.UpdatedBy, ts, ts)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetTemplate(ctx context.Context, orgID, id int64) (*models.BillingTemplate, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, org_id, kind, name, body, is_default, created_by, updated_by, created, updated FROM billing_templates WHERE org_id = ? AND id = ?`, orgID, id)
	var t models.BillingTemplate
	if err := row.Scan(&t.ID, &t.OrgID, &t.Kind, &t.Name, &t.Body, &t.IsDefault, &t.CreatedBy, &t.UpdatedBy, &t.Created, &t.Updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return &t, nil
}

func (r *SQLiteRepo) ListTemplates(ctx context.Context, orgID int64, kind string) ([]models.BillingTemplate, error) {
	where := `WHERE org_id = ?`
	args := []any{orgID}
	if kind != "" {
		where += ` AND kind = ?`
		args = append(args, kind)
	}

	rows, err := r.conn.QueryRows(ctx, `SELECT id, org_id, kind, name, body, is_default, created_by, updated_by, created, updated FROM billing_templates `+where+` ORDER BY kind, name`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.BillingTemplate
	for rows.Next() {
		var t models.BillingTemplate
		if err := rows.Scan(&t.ID, &t.OrgID, &t.Kind, &t.Name, &t.Body, &t.IsDefault, &t.CreatedBy, &t.UpdatedBy, &t.Created, &t.Updated); err != nil {
			return nil, err
		}

		out = append(out, t)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) UpdateTemplate(ctx context.Context, t *models.BillingTemplate) error {
	if t == nil {
		return fmt.Errorf("template is nil")
	}

	res, err := r.conn.Exec(ctx, `UPDATE billing_templates SET name = ?, body = ?, updated_by = ?, updated = ? WHERE org_id = ? AND id = ?`,
		t.Name, t.Body, t.UpdatedBy, now(), t.OrgID, t.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetDefaultTemplate marks one template as the default for its (org, kind)
// pair, clearing the flag on its siblings.
func (r *SQLiteRepo) SetDefaultTemplate(ctx context.Context, orgID, id int64) error {
	tx, err := r.conn.GetConn().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var kind string
	err = tx.QueryRowContext(ctx, `SELECT kind FROM billing_templates WHERE org_id = ? AND id = ?`, orgID, id).Scan(&kind)
	if err == sql.ErrNoRows {
		return repository.ErrNotFound
	}
	if err != nil {
		return err
	}

	ts := now()
	if _, err := tx.ExecContext(ctx, `UPDATE billing_templates SET is_default = 0, updated = ? WHERE org_id = ? AND kind = ? AND is_default = 1`, ts, orgID, kind); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE billing_templates SET is_default = 1, updated = ? WHERE org_id = ? AND id = ?`, ts, orgID, id); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *SQLiteRepo) DeleteTemplate(ctx context.Context, orgID, id int64) error {
	res, err := r.conn.Exec(ctx, `DELETE FROM billing_templates WHERE org_id = ? AND id = ?`, orgID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}

	return nil
}
