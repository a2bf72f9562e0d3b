package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/opshq/backoffice/internal/models"
	"github.com/opshq/backoffice/pkg/repository"
)

func (r *SQLiteRepo) CreateDocument(ctx context.Context, d *models.Document) (int64, error) {
	if d == nil {
		return 0, fmt.Errorf("document is nil")
	}

	ts := now()
	res, err := r.conn.Exec(ctx, `INSERT INTO documents (org_id, title, category, tags, created_by, updated_by, created, updated) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.OrgID, d.Title, d.Category, d.Tags, d.CreatedBy, d.UpdatedBy, ts, ts)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetDocument(ctx context.Context, orgID, id int64) (*models.Document, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, org_id, title, category, tags, file_key, file_name, file_size, created_by, updated_by, created, updated FROM documents WHERE org_id = ? AND id = ?`, orgID, id)
	d, err := scanDocument(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return d, nil
}

func (r *SQLiteRepo) ListDocuments(ctx context.Context, f repository.ListFilter) ([]models.Document, int64, error) {
	limit, offset := clampPage(f.Limit, f.Offset)

	where := `WHERE org_id = ?`
	args := []any{f.OrgID}
	if f.Category != "" {
		where += ` AND category = ?`
		args = append(args, f.Category)
	}

	var total int64
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM documents `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn.QueryRows(ctx, `SELECT id, org_id, title, category, tags, file_key, file_name, file_size, created_by, updated_by, created, updated FROM documents `+where+` ORDER BY created DESC LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		d, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, 0, err
		}

		out = append(out, *d)
	}

	return out, total, rows.Err()
}

func scanDocument(scan func(...any) error) (*models.Document, error) {
	var d models.Document
	var key, name sql.NullString
	if err := scan(&d.ID, &d.OrgID, &d.Title, &d.Category, &d.Tags, &key, &name, &d.FileSize, &d.CreatedBy, &d.UpdatedBy, &d.Created, &d.Updated); err != nil {
		return nil, err
	}
	if key.Valid {
		d.FileKey = &key.String
	}
	if name.Valid {
		d.FileName = &name.String
	}

	return &d, nil
}

func (r *SQLiteRepo) UpdateDocument(ctx context.Context, d *models.Document) error {
	if d == nil {
		return fmt.Errorf("document is nil")
	}

	res, err := r.conn.Exec(ctx, `UPDATE documents SET title = ?, category = ?, tags = ?, updated_by = ?, updated = ? WHERE org_id = ? AND id = ?`,
		d.Title, d.Category, d.Tags, d.UpdatedBy, now(), d.OrgID, d.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *SQLiteRepo) AttachFile(ctx context.Context, orgID, id int64, key, name string, size int64) error {
	res, err := r.conn.Exec(ctx, `UPDATE documents SET file_key = ?, file_name = ?, file_size = ?, updated = ? WHERE org_id = ? AND id = ?`,
		key, name, size, now(), orgID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *SQLiteRepo) DeleteDocument(ctx context.Context, orgID, id int64) error {
	res, err := r.conn.Exec(ctx, `DELETE FROM documents WHERE org_id = ? AND id = ?`, orgID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}

	return nil
}
