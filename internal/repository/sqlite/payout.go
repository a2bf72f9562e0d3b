package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/opshq/backoffice/internal/models"
	"github.com/opshq/backoffice/pkg/repository"
)

func (r *SQLiteRepo) CreatePayout(ctx context.Context, p *models.Payout) (int64, error) {
	if p == nil {
		return 0, fmt.Errorf("payout is nil")
	}

	ts := now()
	res, err := r.conn.Exec(ctx, `INSERT INTO payouts (org_id, affiliate, amount, currency, status, created_by, updated_by, created, updated) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.OrgID, p.Affiliate, p.Amount, p.Currency, models.PayoutPending, p.CreatedBy, p.UpdatedBy, ts, ts)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetPayout(ctx context.Context, orgID, id int64) (*models.Payout, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, org_id, affiliate, amount, currency, status, reason, paid_at, created_by, updated_by, created, updated FROM payouts WHERE org_id = ? AND id = ?`, orgID, id)
	p, err := scanPayout(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return p, nil
}

func (r *SQLiteRepo) ListPayouts(ctx context.Context, f repository.ListFilter) ([]models.Payout, int64, error) {
	limit, offset := clampPage(f.Limit, f.Offset)

	where := `WHERE org_id = ?`
	args := []any{f.OrgID}
	if f.Status != "" {
		where += ` AND status = ?`
		args = append(args, f.Status)
	}

	var total int64
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM payouts `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn.QueryRows(ctx, `SELECT id, org_id, affiliate, amount, currency, status, reason, paid_at, created_by, updated_by, created, updated FROM payouts `+where+` ORDER BY created DESC LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.Payout
	for rows.Next() {
		p, err := scanPayout(rows.Scan)
		if err != nil {
			return nil, 0, err
		}

		out = append(out, *p)
	}

	return out, total, rows.Err()
}

func scanPayout(scan func(...any) error) (*models.Payout, error) {
	var p models.Payout
	var reason sql.NullString
	var paidAt sql.NullInt64
	if err := scan(&p.ID, &p.OrgID, &p.Affiliate, &p.Amount, &p.Currency, &p.Status, &reason, &paidAt, &p.CreatedBy, &p.UpdatedBy, &p.Created, &p.Updated); err != nil {
		return nil, err
	}
	if reason.Valid {
		p.Reason = &reason.String
	}
	if paidAt.Valid {
		p.PaidAt = &paidAt.Int64
	}

	return &p, nil
}

// SetPayoutStatus transitions a payout inside a transaction so the
// current-status check and the update are atomic.
func (r *SQLiteRepo) SetPayoutStatus(ctx context.Context, orgID, id int64, status string, reason *string, actor int64, allowedFrom ...string) error {
	tx, err := r.conn.GetConn().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT status FROM payouts WHERE org_id = ? AND id = ?`, orgID, id).Scan(&current)
	if err == sql.ErrNoRows {
		return repository.ErrNotFound
	}
	if err != nil {
		return err
	}
	if !models.ValidStatus(current, allowedFrom...) {
		return repository.ErrBadTransition
	}

	ts := now()
	var paidAt any
	if status == models.PayoutPaid {
		paidAt = ts
	}
	if _, err := tx.ExecContext(ctx, `UPDATE payouts SET status = ?, reason = ?, paid_at = COALESCE(?, paid_at), updated_by = ?, updated = ? WHERE org_id = ? AND id = ?`,
		status, reason, paidAt, actor, ts, orgID, id); err != nil {
		return err
	}

	return tx.Commit()
}
