package sqlite

import (
	"io"
	"log/slog"
	"time"

	"github.com/opshq/backoffice/internal/db"
	"github.com/opshq/backoffice/pkg/repository"
)

// SQLiteRepo implements repository interfaces using the internal DB wrapper.
type SQLiteRepo struct {
	conn   *db.DB
	logger *slog.Logger
}

// Ensure SQLiteRepo implements the public interfaces.
var _ repository.OrganizationRepo = (*SQLiteRepo)(nil)
var _ repository.UserRepo = (*SQLiteRepo)(nil)
var _ repository.ProjectRepo = (*SQLiteRepo)(nil)
var _ repository.EmployeeRepo = (*SQLiteRepo)(nil)
var _ repository.FeedbackRepo = (*SQLiteRepo)(nil)
var _ repository.SuggestionRepo = (*SQLiteRepo)(nil)
var _ repository.SurveyRepo = (*SQLiteRepo)(nil)
var _ repository.JobPostingRepo = (*SQLiteRepo)(nil)
var _ repository.DocumentRepo = (*SQLiteRepo)(nil)
var _ repository.PayoutRepo = (*SQLiteRepo)(nil)
var _ repository.TemplateRepo = (*SQLiteRepo)(nil)
var _ repository.WorkflowRepo = (*SQLiteRepo)(nil)
var _ repository.NotificationRepo = (*SQLiteRepo)(nil)
var _ repository.AuditRepo = (*SQLiteRepo)(nil)

func New(conn *db.DB, logger *slog.Logger) *SQLiteRepo {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &SQLiteRepo{conn: conn, logger: logger}
}

func now() int64 {
	return time.Now().UTC().UnixMilli()
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
