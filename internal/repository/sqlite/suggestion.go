package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/opshq/backoffice/internal/models"
	"github.com/opshq/backoffice/pkg/repository"
)

func (r *SQLiteRepo) CreateSuggestion(ctx context.Context, s *models.Suggestion) (int64, error) {
	if s == nil {
		return 0, fmt.Errorf("suggestion is nil")
	}

	ts := now()
	res, err := r.conn.Exec(ctx, `INSERT INTO suggestions (org_id, title, body, status, created_by, created, updated) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.OrgID, s.Title, s.Body, models.SuggestionOpen, s.CreatedBy, ts, ts)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetSuggestion(ctx context.Context, orgID, id int64) (*models.Suggestion, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, org_id, title, body, status, upvotes, downvotes, created_by, created, updated FROM suggestions WHERE org_id = ? AND id = ?`, orgID, id)
	var s models.Suggestion
	if err := row.Scan(&s.ID, &s.OrgID, &s.Title, &s.Body, &s.Status, &s.Upvotes, &s.Downvotes, &s.CreatedBy, &s.Created, &s.Updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return &s, nil
}

func (r *SQLiteRepo) ListSuggestions(ctx context.Context, f repository.ListFilter) ([]models.Suggestion, int64, error) {
	limit, offset := clampPage(f.Limit, f.Offset)

	where := `WHERE org_id = ?`
	args := []any{f.OrgID}
	if f.Status != "" {
		where += ` AND status = ?`
		args = append(args, f.Status)
	}

	var total int64
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM suggestions `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn.QueryRows(ctx, `SELECT id, org_id, title, body, status, upvotes, downvotes, created_by, created, updated FROM suggestions `+where+` ORDER BY upvotes - downvotes DESC, created DESC LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.Suggestion
	for rows.Next() {
		var s models.Suggestion
		if err := rows.Scan(&s.ID, &s.OrgID, &s.Title, &s.Body, &s.Status, &s.Upvotes, &s.Downvotes, &s.CreatedBy, &s.Created, &s.Updated); err != nil {
			return nil, 0, err
		}

		out = append(out, s)
	}

	return out, total, rows.Err()
}

func (r *SQLiteRepo) UpdateSuggestion(ctx context.Context, s *models.Suggestion) error {
	if s == nil {
		return fmt.Errorf("suggestion is nil")
	}

	res, err := r.conn.Exec(ctx, `UPDATE suggestions SET title = ?, body = ?, status = ?, updated = ? WHERE org_id = ? AND id = ?`,
		s.Title, s.Body, s.Status, now(), s.OrgID, s.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *SQLiteRepo) DeleteSuggestion(ctx context.Context, orgID, id int64) error {
	res, err := r.conn.Exec(ctx, `DELETE FROM suggestions WHERE org_id = ? AND id = ?`, orgID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Vote records userID's vote on a suggestion. Repeating the same direction is
// rejected with ErrDuplicateVote; the opposite direction flips both tallies.
func (r *SQLiteRepo) Vote(ctx context.Context, orgID, id, userID int64, direction string) (*models.Suggestion, error) {
	tx, err := r.conn.GetConn().BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM suggestions WHERE org_id = ? AND id = ?`, orgID, id).Scan(&exists); err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, repository.ErrNotFound
	}

	var prev sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT direction FROM suggestion_votes WHERE suggestion_id = ? AND user_id = ?`, id, userID).Scan(&prev)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}

	ts := now()
	switch {
	case !prev.Valid:
		if _, err := tx.ExecContext(ctx, `INSERT INTO suggestion_votes (suggestion_id, user_id, direction, created) VALUES (?, ?, ?, ?)`, id, userID, direction, ts); err != nil {
			return nil, err
		}
		col := voteColumn(direction)
		if _, err := tx.ExecContext(ctx, `UPDATE suggestions SET `+col+` = `+col+` + 1, updated = ? WHERE id = ?`, ts, id); err != nil {
			return nil, err
		}
	case prev.String == direction:
		return nil, repository.ErrDuplicateVote
	default:
		// flip: decrement the old column, increment the new one
		if _, err := tx.ExecContext(ctx, `UPDATE suggestion_votes SET direction = ?, created = ? WHERE suggestion_id = ? AND user_id = ?`, direction, ts, id, userID); err != nil {
			return nil, err
		}
		oldCol, newCol := voteColumn(prev.String), voteColumn(direction)
		if _, err := tx.ExecContext(ctx, `UPDATE suggestions SET `+oldCol+` = `+oldCol+` - 1, `+newCol+` = `+newCol+` + 1, updated = ? WHERE id = ?`, ts, id); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return r.GetSuggestion(ctx, orgID, id)
}

func voteColumn(direction string) string {
	if direction == models.VoteDown {
		return "downvotes"
	}
	return "upvotes"
}
