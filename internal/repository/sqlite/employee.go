package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/opshq/backoffice/internal/models"
	"github.com/opshq/backoffice/pkg/repository"
)

func (r *SQLiteRepo) CreateEmployee(ctx context.Context, e *models.Employee) (int64, error) {
	if e == nil {
		return 0, fmt.Errorf("employee is nil")
	}

	ts := now()
	res, err := r.conn.Exec(ctx, `INSERT INTO employees (org_id, full_name, email, department, position, status, salary_amount, salary_currency, hired_at, created_by, updated_by, created, updated) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.OrgID, e.FullName, e.Email, e.Department, e.Position, e.Status, e.SalaryAmount, e.SalaryCurrency, e.HiredAt, e.CreatedBy, e.UpdatedBy, ts, ts)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetEmployee(ctx context.Context, orgID, id int64) (*models.Employee, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, org_id, full_name, email, department, position, status, salary_amount, salary_currency, hired_at, created_by, updated_by, created, updated FROM employees WHERE org_id = ? AND id = ?`, orgID, id)
	e, err := scanEmployee(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return e, nil
}

func (r *SQLiteRepo) ListEmployees(ctx context.Context, f repository.ListFilter, department string) ([]models.Employee, int64, error) {
	limit, offset := clampPage(f.Limit, f.Offset)

	where := `WHERE org_id = ?`
	args := []any{f.OrgID}
	if f.Status != "" {
		where += ` AND status = ?`
		args = append(args, f.Status)
	}
	if department != "" {
		where += ` AND department = ?`
		args = append(args, department)
	}

	var total int64
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM employees `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn.QueryRows(ctx, `SELECT id, org_id, full_name, email, department, position, status, salary_amount, salary_currency, hired_at, created_by, updated_by, created, updated FROM employees `+where+` ORDER BY full_name LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.Employee
	for rows.Next() {
		e, err := scanEmployee(rows.Scan)
		if err != nil {
			return nil, 0, err
		}

		out = append(out, *e)
	}

	return out, total, rows.Err()
}

func scanEmployee(scan func(...any) error) (*models.Employee, error) {
	var e models.Employee
	var hired sql.NullInt64
	if err := scan(&e.ID, &e.OrgID, &e.FullName, &e.Email, &e.Department, &e.Position, &e.Status, &e.SalaryAmount, &e.SalaryCurrency, &hired, &e.CreatedBy, &e.UpdatedBy, &e.Created, &e.Updated); err != nil {
		return nil, err
	}
	if hired.Valid {
		e.HiredAt = &hired.Int64
	}

	return &e, nil
}

func (r *SQLiteRepo) UpdateEmployee(ctx context.Context, e *models.Employee) error {
	if e == nil {
		return fmt.Errorf("employee is nil")
	}

	res, err := r.conn.Exec(ctx, `UPDATE employees SET full_name = ?, email = ?, department = ?, position = ?, status = ?, salary_amount = ?, salary_currency = ?, hired_at = ?, updated_by = ?, updated = ? WHERE org_id = ? AND id = ?`,
		e.FullName, e.Email, e.Department, e.Position, e.Status, e.SalaryAmount, e.SalaryCurrency, e.HiredAt, e.UpdatedBy, now(), e.OrgID, e.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *SQLiteRepo) DeleteEmployee(ctx context.Context, orgID, id int64) error {
	res, err := r.conn.Exec(ctx, `DELETE FROM employees WHERE org_id = ? AND id = ?`, orgID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}

	return nil
}
