package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/opshq/backoffice/internal/models"
	"github.com/opshq/backoffice/pkg/repository"
)

func (r *SQLiteRepo) CreateSurvey(ctx context.Context, s *models.Survey) (int64, error) {
	if s == nil {
		return 0, fmt.Errorf("survey is nil")
	}

	ts := now()
	res, err := r.conn.Exec(ctx, `INSERT INTO surveys (org_id, title, description, questions_json, status, created_by, created, updated) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.OrgID, s.Title, s.Description, string(s.Questions), models.SurveyDraft, s.CreatedBy, ts, ts)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetSurvey(ctx context.Context, orgID, id int64) (*models.Survey, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, org_id, title, description, questions_json, status, created_by, created, updated FROM surveys WHERE org_id = ? AND id = ?`, orgID, id)
	s, err := scanSurvey(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return s, nil
}

func (r *SQLiteRepo) ListSurveys(ctx context.Context, f repository.ListFilter) ([]models.Survey, int64, error) {
	limit, offset := clampPage(f.Limit, f.Offset)

	where := `WHERE org_id = ?`
	args := []any{f.OrgID}
	if f.Status != "" {
		where += ` AND status = ?`
		args = append(args, f.Status)
	}

	var total int64
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM surveys `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn.QueryRows(ctx, `SELECT id, org_id, title, description, questions_json, status, created_by, created, updated FROM surveys `+where+` ORDER BY created DESC LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.Survey
	for rows.Next() {
		s, err := scanSurvey(rows.Scan)
		if err != nil {
			return nil, 0, err
		}

		out = append(out, *s)
	}

	return out, total, rows.Err()
}

func scanSurvey(scan func(...any) error) (*models.Survey, error) {
	var s models.Survey
	var questions string
	if err := scan(&s.ID, &s.OrgID, &s.Title, &s.Description, &questions, &s.Status, &s.CreatedBy, &s.Created, &s.Updated); err != nil {
		return nil, err
	}
	s.Questions = json.RawMessage(questions)

	return &s, nil
}

func (r *SQLiteRepo) UpdateSurvey(ctx context.Context, s *models.Survey) error {
	if s == nil {
		return fmt.Errorf("survey is nil")
	}

	res, err := r.conn.Exec(ctx, `UPDATE surveys SET title = ?, description = ?, questions_json = ?, updated = ? WHERE org_id = ? AND id = ?`,
		s.Title, s.Description, string(s.Questions), now(), s.OrgID, s.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *SQLiteRepo) SetSurveyStatus(ctx context.Context, orgID, id int64, status string) error {
	res, err := r.conn.Exec(ctx, `UPDATE surveys SET status = ?, updated = ? WHERE org_id = ? AND id = ?`, status, now(), orgID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *SQLiteRepo) DeleteSurvey(ctx context.Context, orgID, id int64) error {
	res, err := r.conn.Exec(ctx, `DELETE FROM surveys WHERE org_id = ? AND id = ?`, orgID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *SQLiteRepo) CreateSurveyResponse(ctx context.Context, resp *models.SurveyResponse) (int64, error) {
	if resp == nil {
		return 0, fmt.Errorf("survey response is nil")
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO survey_responses (survey_id, respondent, answers_json, submitted_at) VALUES (?, ?, ?, ?)`,
		resp.SurveyID, resp.Respondent, string(resp.Answers), now())
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) ListSurveyResponses(ctx context.Context, surveyID int64, limit, offset int) ([]models.SurveyResponse, int64, error) {
	limit, offset = clampPage(limit, offset)

	var total int64
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM survey_responses WHERE survey_id = ?`, surveyID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn.QueryRows(ctx, `SELECT id, survey_id, respondent, answers_json, submitted_at FROM survey_responses WHERE survey_id = ? ORDER BY submitted_at DESC LIMIT ? OFFSET ?`, surveyID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.SurveyResponse
	for rows.Next() {
		var resp models.SurveyResponse
		var answers string
		if err := rows.Scan(&resp.ID, &resp.SurveyID, &resp.Respondent, &answers, &resp.SubmittedAt); err != nil {
			return nil, 0, err
		}
		resp.Answers = json.RawMessage(answers)

		out = append(out, resp)
	}

	return out, total, rows.Err()
}
