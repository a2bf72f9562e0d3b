package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/opshq/backoffice/internal/models"
	"github.com/opshq/backoffice/pkg/repository"
)

func (r *SQLiteRepo) CreateRule(ctx context.Context, rule *models.WorkflowRule) (int64, error) {
	if rule == nil {
		return 0, fmt.Errorf("rule is nil")
	}

	ts := now()
	res, err := r.conn.Exec(ctx, `INSERT INTO workflow_rules (org_id, name, event, conditions_json, actions_json, enabled, created_by, created, updated) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.OrgID, rule.Name, rule.Event, string(rule.Conditions), string(rule.Actions), rule.Enabled, rule.CreatedBy, ts, ts)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetRule(ctx context.Context, orgID, id int64) (*models.WorkflowRule, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, org_id, name, event, conditions_json, actions_json, enabled, created_by, created, updated FROM workflow_rules WHERE org_id = ? AND id = ?`, orgID, id)
	rule, err := scanRule(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return rule, nil
}

func (r *SQLiteRepo) ListRules(ctx context.Context, orgID int64, event string, enabledOnly bool) ([]models.WorkflowRule, error) {
	where := `WHERE org_id = ?`
	args := []any{orgID}
	if event != "" {
		where += ` AND event = ?`
		args = append(args, event)
	}
	if enabledOnly {
		where += ` AND enabled = 1`
	}

	rows, err := r.conn.QueryRows(ctx, `SELECT id, org_id, name, event, conditions_json, actions_json, enabled, created_by, created, updated FROM workflow_rules `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.WorkflowRule
	for rows.Next() {
		rule, err := scanRule(rows.Scan)
		if err != nil {
			return nil, err
		}

		out = append(out, *rule)
	}

	return out, rows.Err()
}

func scanRule(scan func(...any) error) (*models.WorkflowRule, error) {
	var rule models.WorkflowRule
	var conditions, actions string
	if err := scan(&rule.ID, &rule.OrgID, &rule.Name, &rule.Event, &conditions, &actions, &rule.Enabled, &rule.CreatedBy, &rule.Created, &rule.Updated); err != nil {
		return nil, err
	}
	rule.Conditions = json.RawMessage(conditions)
	rule.Actions = json.RawMessage(actions)

	return &rule, nil
}

func (r *SQLiteRepo) UpdateRule(ctx context.Context, rule *models.WorkflowRule) error {
	if rule == nil {
		return fmt.Errorf("rule is nil")
	}

	res, err := r.conn.Exec(ctx, `UPDATE workflow_rules SET name = ?, event = ?, conditions_json = ?, actions_json = ?, enabled = ?, updated = ? WHERE org_id = ? AND id = ?`,
		rule.Name, rule.Event, string(rule.Conditions), string(rule.Actions), rule.Enabled, now(), rule.OrgID, rule.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *SQLiteRepo) DeleteRule(ctx context.Context, orgID, id int64) error {
	res, err := r.conn.Exec(ctx, `DELETE FROM workflow_rules WHERE org_id = ? AND id = ?`, orgID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *SQLiteRepo) CreateInstance(ctx context.Context, i *models.WorkflowInstance) error {
	if i == nil {
		return fmt.Errorf("instance is nil")
	}

	ts := now()
	_, err := r.conn.Exec(ctx, `INSERT INTO workflow_instances (id, org_id, rule_id, event, status, action_log_json, created, updated) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		i.ID, i.OrgID, i.RuleID, i.Event, i.Status, string(i.ActionLog), ts, ts)
	return err
}

func (r *SQLiteRepo) GetInstance(ctx context.Context, orgID int64, id string) (*models.WorkflowInstance, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, org_id, rule_id, event, status, action_log_json, created, updated FROM workflow_instances WHERE org_id = ? AND id = ?`, orgID, id)
	i, err := scanInstance(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return i, nil
}

func (r *SQLiteRepo) ListInstances(ctx context.Context, orgID int64, status, event string, limit, offset int) ([]models.WorkflowInstance, int64, error) {
	limit, offset = clampPage(limit, offset)

	where := `WHERE org_id = ?`
	args := []any{orgID}
	if status != "" {
		where += ` AND status = ?`
		args = append(args, status)
	}
	if event != "" {
		where += ` AND event = ?`
		args = append(args, event)
	}

	var total int64
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM workflow_instances `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn.QueryRows(ctx, `SELECT id, org_id, rule_id, event, status, action_log_json, created, updated FROM workflow_instances `+where+` ORDER BY created DESC LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.WorkflowInstance
	for rows.Next() {
		i, err := scanInstance(rows.Scan)
		if err != nil {
			return nil, 0, err
		}

		out = append(out, *i)
	}

	return out, total, rows.Err()
}

func scanInstance(scan func(...any) error) (*models.WorkflowInstance, error) {
	var i models.WorkflowInstance
	var log string
	if err := scan(&i.ID, &i.OrgID, &i.RuleID, &i.Event, &i.Status, &log, &i.Created, &i.Updated); err != nil {
		return nil, err
	}
	i.ActionLog = json.RawMessage(log)

	return &i, nil
}

func (r *SQLiteRepo) SetInstanceStatus(ctx context.Context, orgID int64, id, status string) error {
	res, err := r.conn.Exec(ctx, `UPDATE workflow_instances SET status = ?, updated = ? WHERE org_id = ? AND id = ?`, status, now(), orgID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}

	return nil
}
