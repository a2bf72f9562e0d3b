package analytics

import (
	"context"
	"database/sql"
	"fmt"
)

// Converter converts money amounts between currencies; satisfied by
// rates.Client.
type Converter interface {
	Convert(ctx context.Context, amount float64, from, to string) (float64, error)
}

// Range bounds a report by row creation time (unix milliseconds). A zero
// bound is open.
type Range struct {
	From int64
	To   int64
}

func (r Range) clause(col string) (string, []any) {
	q := ""
	var args []any
	if r.From > 0 {
		q += ` AND ` + col + ` >= ?`
		args = append(args, r.From)
	}
	if r.To > 0 {
		q += ` AND ` + col + ` <= ?`
		args = append(args, r.To)
	}
	return q, args
}

// Service is the catalog of read-only aggregation reports. Each report is a
// single GROUP BY query; money-valued reports convert per group through the
// rates client.
type Service struct {
	db *sql.DB
	fx Converter
}

func New(db *sql.DB, fx Converter) *Service {
	return &Service{db: db, fx: fx}
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

type FeedbackSummary struct {
	ByStatus  []StatusCount `json:"by_status"`
	AvgRating *float64      `json:"avg_rating,omitempty"`
	Total     int64         `json:"total"`
}

func (s *Service) FeedbackSummary(ctx context.Context, orgID int64, r Range) (*FeedbackSummary, error) {
	rangeQ, rangeArgs := r.clause("created")

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM feedback WHERE org_id = ?`+rangeQ+` GROUP BY status ORDER BY status`, append([]any{orgID}, rangeArgs...)...)
	if err != nil {
		return nil, fmt.Errorf("feedback by status: %w", err)
	}
	defer rows.Close()

	out := &FeedbackSummary{}
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, err
		}
		out.ByStatus = append(out.ByStatus, sc)
		out.Total += sc.Count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var avg sql.NullFloat64
	if err := s.db.QueryRowContext(ctx, `SELECT AVG(rating) FROM feedback WHERE org_id = ? AND rating IS NOT NULL`+rangeQ, append([]any{orgID}, rangeArgs...)...).Scan(&avg); err != nil {
		return nil, fmt.Errorf("feedback avg rating: %w", err)
	}
	if avg.Valid {
		out.AvgRating = &avg.Float64
	}

	return out, nil
}

func (s *Service) ProjectBreakdown(ctx context.Context, orgID int64, r Range) ([]StatusCount, error) {
	rangeQ, rangeArgs := r.clause("created")

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM projects WHERE org_id = ?`+rangeQ+` GROUP BY status ORDER BY status`, append([]any{orgID}, rangeArgs...)...)
	if err != nil {
		return nil, fmt.Errorf("project breakdown: %w", err)
	}
	defer rows.Close()

	var out []StatusCount
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}

	return out, rows.Err()
}

type DepartmentCount struct {
	Department string `json:"department"`
	Count      int64  `json:"count"`
}

func (s *Service) Headcount(ctx context.Context, orgID int64) ([]DepartmentCount, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT department, COUNT(*) FROM employees WHERE org_id = ? AND status != 'terminated' GROUP BY department ORDER BY department`, orgID)
	if err != nil {
		return nil, fmt.Errorf("headcount: %w", err)
	}
	defer rows.Close()

	var out []DepartmentCount
	for rows.Next() {
		var dc DepartmentCount
		if err := rows.Scan(&dc.Department, &dc.Count); err != nil {
			return nil, err
		}
		out = append(out, dc)
	}

	return out, rows.Err()
}

type PayoutTotal struct {
	Status   string  `json:"status"`
	Total    float64 `json:"total"`
	Currency string  `json:"currency"`
	Count    int64   `json:"count"`
}

// PayoutTotals groups payout sums by status and converts each (status,
// currency) bucket into the target currency.
func (s *Service) PayoutTotals(ctx context.Context, orgID int64, r Range, currency string) ([]PayoutTotal, error) {
	rangeQ, rangeArgs := r.clause("created")

	rows, err := s.db.QueryContext(ctx, `SELECT status, currency, SUM(amount), COUNT(*) FROM payouts WHERE org_id = ?`+rangeQ+` GROUP BY status, currency ORDER BY status, currency`, append([]any{orgID}, rangeArgs...)...)
	if err != nil {
		return nil, fmt.Errorf("payout totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]*PayoutTotal)
	var order []string
	for rows.Next() {
		var status, cur string
		var sum float64
		var count int64
		if err := rows.Scan(&status, &cur, &sum, &count); err != nil {
			return nil, err
		}

		converted, err := s.fx.Convert(ctx, sum, cur, currency)
		if err != nil {
			return nil, fmt.Errorf("convert %s->%s: %w", cur, currency, err)
		}

		t, ok := totals[status]
		if !ok {
			t = &PayoutTotal{Status: status, Currency: currency}
			totals[status] = t
			order = append(order, status)
		}
		t.Total += converted
		t.Count += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]PayoutTotal, 0, len(order))
	for _, status := range order {
		out = append(out, *totals[status])
	}

	return out, nil
}

type SurveyActivity struct {
	SurveyID  int64  `json:"survey_id"`
	Title     string `json:"title"`
	Responses int64  `json:"responses"`
}

func (s *Service) SurveyActivity(ctx context.Context, orgID int64, r Range) ([]SurveyActivity, error) {
	rangeQ, rangeArgs := r.clause("sr.submitted_at")

	rows, err := s.db.QueryContext(ctx, `SELECT s.id, s.title, COUNT(sr.id) FROM surveys s LEFT JOIN survey_responses sr ON sr.survey_id = s.id`+rangeQ+` WHERE s.org_id = ? GROUP BY s.id, s.title ORDER BY s.id`, append(rangeArgs, orgID)...)
	if err != nil {
		return nil, fmt.Errorf("survey activity: %w", err)
	}
	defer rows.Close()

	var out []SurveyActivity
	for rows.Next() {
		var sa SurveyActivity
		if err := rows.Scan(&sa.SurveyID, &sa.Title, &sa.Responses); err != nil {
			return nil, err
		}
		out = append(out, sa)
	}

	return out, rows.Err()
}
