package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/opshq/backoffice/internal/models"
	"github.com/opshq/backoffice/pkg/repository"
)

func (r *SQLiteRepo) CreateOrganization(ctx context.Context, o *models.Organization) (int64, error) {
	if o == nil {
		return 0, fmt.Errorf("organization is nil")
	}

	ts := now()
	res, err := r.conn.Exec(ctx, `INSERT INTO organizations (name, created, updated) VALUES (?, ?, ?)`, o.Name, ts, ts)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) CreateOrganizationWithOwner(ctx context.Context, o *models.Organization, u *models.User) (int64, int64, error) {
	if o == nil || u == nil {
		return 0, 0, fmt.Errorf("organization and user are required")
	}

	tx, err := r.conn.GetConn().BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin signup tx: %w", err)
	}
	defer tx.Rollback()

	ts := now()
	res, err := tx.ExecContext(ctx, `INSERT INTO organizations (name, created, updated) VALUES (?, ?, ?)`, o.Name, ts, ts)
	if err != nil {
		return 0, 0, fmt.Errorf("create organization: %w", err)
	}
	orgID, err := res.LastInsertId()
	if err != nil {
		return 0, 0, err
	}

	res, err = tx.ExecContext(ctx, `INSERT INTO users (org_id, name, email, password_hash, created, updated) VALUES (?, ?, ?, ?, ?, ?)`,
		orgID, u.Name, u.Email, u.PasswordHash, ts, ts)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: users.email") {
			return 0, 0, repository.ErrDuplicateEmail
		}
		return 0, 0, fmt.Errorf("create owner: %w", err)
	}
	userID, err := res.LastInsertId()
	if err != nil {
		return 0, 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit signup tx: %w", err)
	}
	return orgID, userID, nil
}

func (r *SQLiteRepo) GetOrganization(ctx context.Context, id int64) (*models.Organization, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, name, created, updated FROM organizations WHERE id = ?`, id)
	var o models.Organization
	if err := row.Scan(&o.ID, &o.Name, &o.Created, &o.Updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return &o, nil
}

func (r *SQLiteRepo) CreateUser(ctx context.Context, u *models.User) (int64, error) {
	if u == nil {
		return 0, fmt.Errorf("user is nil")
	}

	ts := now()
	res, err := r.conn.Exec(ctx, `INSERT INTO users (org_id, name, email, password_hash, created, updated) VALUES (?, ?, ?, ?, ?, ?)`,
		u.OrgID, u.Name, u.Email, u.PasswordHash, ts, ts)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return r.scanUser(ctx, `SELECT id, org_id, name, email, password_hash, created, updated FROM users WHERE id = ?`, id)
}

func (r *SQLiteRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.scanUser(ctx, `SELECT id, org_id, name, email, password_hash, created, updated FROM users WHERE email = ?`, email)
}

func (r *SQLiteRepo) scanUser(ctx context.Context, query string, arg any) (*models.User, error) {
	row := r.conn.QueryRow(ctx, query, arg)
	var u models.User
	if err := row.Scan(&u.ID, &u.OrgID, &u.Name, &u.Email, &u.PasswordHash, &u.Created, &u.Updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return &u, nil
}
