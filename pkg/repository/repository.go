package repository

import (
	"context"
	"errors"

	"github.com/opshq/backoffice/internal/models"
)

// Sentinel errors surfaced by implementations. Get methods return (nil, nil)
// for missing rows; mutating methods that need a distinguishable rejection
// return one of these.
var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateVote  = errors.New("duplicate vote")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrBadTransition  = errors.New("status transition not allowed")
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.

type OrganizationRepo interface {
	CreateOrganization(ctx context.Context, o *models.Organization) (int64, error)
	GetOrganization(ctx context.Context, id int64) (*models.Organization, error)
	// CreateOrganizationWithOwner creates the organization and its first user
	// in one transaction; a taken email returns ErrDuplicateEmail and leaves
	// no organization row behind.
	CreateOrganizationWithOwner(ctx context.Context, o *models.Organization, u *models.User) (orgID, userID int64, err error)
}

type UserRepo interface {
	CreateUser(ctx context.Context, u *models.User) (int64, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// ListFilter carries the common list-endpoint query parameters. Zero values
// mean "no filter"; Limit is clamped by the implementation.
type ListFilter struct {
	OrgID    int64
	Status   string
	Category string
	Limit    int
	Offset   int
}

type ProjectRepo interface {
	CreateProject(ctx context.Context, p *models.Project) (int64, error)
	GetProject(ctx context.Context, orgID, id int64) (*models.Project, error)
	ListProjects(ctx context.Context, f ListFilter) ([]models.Project, int64, error)
	UpdateProject(ctx context.Context, p *models.Project) error
	DeleteProject(ctx context.Context, orgID, id int64) error
}

type EmployeeRepo interface {
	CreateEmployee(ctx context.Context, e *models.Employee) (int64, error)
	GetEmployee(ctx context.Context, orgID, id int64) (*models.Employee, error)
	ListEmployees(ctx context.Context, f ListFilter, department string) ([]models.Employee, int64, error)
	UpdateEmployee(ctx context.Context, e *models.Employee) error
	DeleteEmployee(ctx context.Context, orgID, id int64) error
}

type FeedbackRepo interface {
	CreateFeedback(ctx context.Context, fb *models.Feedback) (int64, error)
	GetFeedback(ctx context.Context, orgID, id int64) (*models.Feedback, error)
	ListFeedback(ctx context.Context, f ListFilter) ([]models.Feedback, int64, error)
	UpdateFeedbackStatus(ctx context.Context, orgID, id int64, status string) error
	RespondFeedback(ctx context.Context, orgID, id int64, response string, responder int64) error
	DeleteFeedback(ctx context.Context, orgID, id int64) error
}

type SuggestionRepo interface {
	CreateSuggestion(ctx context.Context, s *models.Suggestion) (int64, error)
	GetSuggestion(ctx context.Context, orgID, id int64) (*models.Suggestion, error)
	ListSuggestions(ctx context.Context, f ListFilter) ([]models.Suggestion, int64, error)
	UpdateSuggestion(ctx context.Context, s *models.Suggestion) error
	DeleteSuggestion(ctx context.Context, orgID, id int64) error
	// Vote records a vote by userID. It returns the updated suggestion, or
	// ErrDuplicateVote when the same direction was already recorded.
	Vote(ctx context.Context, orgID, id, userID int64, direction string) (*models.Suggestion, error)
}

type SurveyRepo interface {
	CreateSurvey(ctx context.Context, s *models.Survey) (int64, error)
	GetSurvey(ctx context.Context, orgID, id int64) (*models.Survey, error)
	ListSurveys(ctx context.Context, f ListFilter) ([]models.Survey, int64, error)
	UpdateSurvey(ctx context.Context, s *models.Survey) error
	SetSurveyStatus(ctx context.Context, orgID, id int64, status string) error
	DeleteSurvey(ctx context.Context, orgID, id int64) error
	CreateSurveyResponse(ctx context.Context, r *models.SurveyResponse) (int64, error)
	ListSurveyResponses(ctx context.Context, surveyID int64, limit, offset int) ([]models.SurveyResponse, int64, error)
}

type JobPostingRepo interface {
	CreatePosting(ctx context.Context, p *models.JobPosting) (int64, error)
	GetPosting(ctx context.Context, orgID, id int64) (*models.JobPosting, error)
	ListPostings(ctx context.Context, f ListFilter) ([]models.JobPosting, int64, error)
	UpdatePosting(ctx context.Context, p *models.JobPosting) error
	SetPostingStatus(ctx context.Context, orgID, id int64, status string, stamp int64) error
	DeletePosting(ctx context.Context, orgID, id int64) error
}

type DocumentRepo interface {
	CreateDocument(ctx context.Context, d *models.Document) (int64, error)
	GetDocument(ctx context.Context, orgID, id int64) (*models.Document, error)
	ListDocuments(ctx context.Context, f ListFilter) ([]models.Document, int64, error)
	UpdateDocument(ctx context.Context, d *models.Document) error
	AttachFile(ctx context.Context, orgID, id int64, key, name string, size int64) error
	DeleteDocument(ctx context.Context, orgID, id int64) error
}

type PayoutRepo interface {
	CreatePayout(ctx context.Context, p *models.Payout) (int64, error)
	GetPayout(ctx context.Context, orgID, id int64) (*models.Payout, error)
	ListPayouts(ctx context.Context, f ListFilter) ([]models.Payout, int64, error)
	// SetPayoutStatus transitions a payout; it returns ErrBadTransition when
	// the current status is not in allowedFrom.
	SetPayoutStatus(ctx context.Context, orgID, id int64, status string, reason *string, actor int64, allowedFrom ...string) error
}

type TemplateRepo interface {
	CreateTemplate(ctx context.Context, t *models.BillingTemplate) (int64, error)
	GetTemplate(ctx context.Context, orgID, id int64) (*models.BillingTemplate, error)
	ListTemplates(ctx context.Context, orgID int64, kind string) ([]models.BillingTemplate, error)
	UpdateTemplate(ctx context.Context, t *models.BillingTemplate) error
	SetDefaultTemplate(ctx context.Context, orgID, id int64) error
	DeleteTemplate(ctx context.Context, orgID, id int64) error
}

type WorkflowRepo interface {
	CreateRule(ctx context.Context, r *models.WorkflowRule) (int64, error)
	GetRule(ctx context.Context, orgID, id int64) (*models.WorkflowRule, error)
	ListRules(ctx context.Context, orgID int64, event string, enabledOnly bool) ([]models.WorkflowRule, error)
	UpdateRule(ctx context.Context, r *models.WorkflowRule) error
	DeleteRule(ctx context.Context, orgID, id int64) error
	CreateInstance(ctx context.Context, i *models.WorkflowInstance) error
	GetInstance(ctx context.Context, orgID int64, id string) (*models.WorkflowInstance, error)
	ListInstances(ctx context.Context, orgID int64, status, event string, limit, offset int) ([]models.WorkflowInstance, int64, error)
	SetInstanceStatus(ctx context.Context, orgID int64, id, status string) error
}

type NotificationRepo interface {
	CreateNotification(ctx context.Context, n *models.Notification) (int64, error)
	ListNotifications(ctx context.Context, orgID int64, unreadOnly bool, limit, offset int) ([]models.Notification, int64, error)
	MarkNotificationRead(ctx context.Context, orgID, id int64) error
}

type AuditRepo interface {
	RecordAudit(ctx context.Context, e *models.AuditEvent) error
	ListAudit(ctx context.Context, orgID int64, entity string, limit, offset int) ([]models.AuditEvent, int64, error)
}
