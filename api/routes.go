package api

import (
	"github.com/gorilla/mux"

	"github.com/opshq/backoffice/internal/analytics"
	"github.com/opshq/backoffice/internal/config"
	"github.com/opshq/backoffice/internal/notify"
	"github.com/opshq/backoffice/pkg/repository"
	"github.com/opshq/backoffice/pkg/storage"
)

// Repos is the union of every repository contract the handlers need; the
// sqlite implementation satisfies all of them on one receiver.
type Repos interface {
	repository.OrganizationRepo
	repository.UserRepo
	repository.ProjectRepo
	repository.EmployeeRepo
	repository.FeedbackRepo
	repository.SuggestionRepo
	repository.SurveyRepo
	repository.JobPostingRepo
	repository.DocumentRepo
	repository.PayoutRepo
	repository.TemplateRepo
	repository.WorkflowRepo
	repository.NotificationRepo
	repository.AuditRepo
}

// Deps carries the wired services handlers depend on.
type Deps struct {
	Repo      Repos
	Store     storage.Store
	Hub       *notify.Hub
	Engine    Triggerer
	Analytics *analytics.Service
}

func SetupRoutes(cfg *config.Config, version, buildTime string, deps Deps) *mux.Router {
	r := mux.NewRouter()

	// Middleware chain
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)
	r.Use(RecoveryMiddleware)

	repo := deps.Repo

	// a typed nil *notify.Hub must not end up inside the interface
	var pub Publisher
	if deps.Hub != nil {
		pub = deps.Hub
	}

	// Create handlers
	systemHandler := &SystemHandler{}
	authHandler := NewAuthHandler(repo, repo, cfg.JWTSecret, cfg.TokenDuration)
	projectsHandler := NewProjectsHandler(repo, repo)
	employeesHandler := NewEmployeesHandler(repo, repo)
	feedbackHandler := NewFeedbackHandler(repo, repo, repo, deps.Engine, pub)
	suggestionsHandler := NewSuggestionsHandler(repo, repo)
	surveysHandler := NewSurveysHandler(repo, repo)
	postingsHandler := NewJobPostingsHandler(repo, repo)
	documentsHandler := NewDocumentsHandler(repo, deps.Store, repo)
	payoutsHandler := NewPayoutsHandler(repo, repo, repo, deps.Engine, pub)
	templatesHandler := NewTemplatesHandler(repo, repo)
	workflowsHandler := NewWorkflowsHandler(repo, repo, deps.Engine)
	analyticsHandler := NewAnalyticsHandler(deps.Analytics)
	notificationsHandler := NewNotificationsHandler(repo, deps.Hub)
	auditHandler := NewAuditHandler(repo)

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")
	r.HandleFunc("/v1/auth/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/v1/auth/signin", authHandler.Signin).Methods("POST")

	// API v1 Protected routes
	apiV1 := r.PathPrefix("/v1").Subrouter()
	apiV1.Use(JWTAuthMiddlewareWithSecret(cfg.JWTSecret))

	// Auth endpoints
	apiV1.HandleFunc("/auth/signout", authHandler.Signout).Methods("POST")

	// Projects
	apiV1.HandleFunc("/projects", projectsHandler.Create).Methods("POST")
	apiV1.HandleFunc("/projects", projectsHandler.List).Methods("GET")
	apiV1.HandleFunc("/projects/{id}", projectsHandler.Get).Methods("GET")
	apiV1.HandleFunc("/projects/{id}", projectsHandler.Update).Methods("PUT")
	apiV1.HandleFunc("/projects/{id}", projectsHandler.Delete).Methods("DELETE")

	// Employees
	apiV1.HandleFunc("/employees", employeesHandler.Create).Methods("POST")
	apiV1.HandleFunc("/employees", employeesHandler.List).Methods("GET")
	apiV1.HandleFunc("/employees/{id}", employeesHandler.Get).Methods("GET")
	apiV1.HandleFunc("/employees/{id}", employeesHandler.Update).Methods("PUT")
	apiV1.HandleFunc("/employees/{id}", employeesHandler.Delete).Methods("DELETE")

	// Feedback
	apiV1.HandleFunc("/feedback", feedbackHandler.Create).Methods("POST")
	apiV1.HandleFunc("/feedback", feedbackHandler.List).Methods("GET")
	apiV1.HandleFunc("/feedback/{id}", feedbackHandler.Get).Methods("GET")
	apiV1.HandleFunc("/feedback/{id}/status", feedbackHandler.SetStatus).Methods("PATCH")
	apiV1.HandleFunc("/feedback/{id}/respond", feedbackHandler.Respond).Methods("POST")
	apiV1.HandleFunc("/feedback/{id}", feedbackHandler.Delete).Methods("DELETE")

	// Suggestions
	apiV1.HandleFunc("/suggestions", suggestionsHandler.Create).Methods("POST")
	apiV1.HandleFunc("/suggestions", suggestionsHandler.List).Methods("GET")
	apiV1.HandleFunc("/suggestions/{id}", suggestionsHandler.Get).Methods("GET")
	apiV1.HandleFunc("/suggestions/{id}", suggestionsHandler.Update).Methods("PUT")
	apiV1.HandleFunc("/suggestions/{id}/vote", suggestionsHandler.Vote).Methods("POST")
	apiV1.HandleFunc("/suggestions/{id}", suggestionsHandler.Delete).Methods("DELETE")

	// Surveys
	apiV1.HandleFunc("/surveys", surveysHandler.Create).Methods("POST")
	apiV1.HandleFunc("/surveys", surveysHandler.List).Methods("GET")
	apiV1.HandleFunc("/surveys/{id}", surveysHandler.Get).Methods("GET")
	apiV1.HandleFunc("/surveys/{id}", surveysHandler.Update).Methods("PUT")
	apiV1.HandleFunc("/surveys/{id}/open", surveysHandler.Open).Methods("POST")
	apiV1.HandleFunc("/surveys/{id}/close", surveysHandler.Close).Methods("POST")
	apiV1.HandleFunc("/surveys/{id}/responses", surveysHandler.Respond).Methods("POST")
	apiV1.HandleFunc("/surveys/{id}/responses", surveysHandler.ListResponses).Methods("GET")
	apiV1.HandleFunc("/surveys/{id}", surveysHandler.Delete).Methods("DELETE")

	// Job postings
	apiV1.HandleFunc("/job-postings", postingsHandler.Create).Methods("POST")
	apiV1.HandleFunc("/job-postings", postingsHandler.List).Methods("GET")
	apiV1.HandleFunc("/job-postings/{id}", postingsHandler.Get).Methods("GET")
	apiV1.HandleFunc("/job-postings/{id}", postingsHandler.Update).Methods("PUT")
	apiV1.HandleFunc("/job-postings/{id}/publish", postingsHandler.Publish).Methods("POST")
	apiV1.HandleFunc("/job-postings/{id}/close", postingsHandler.Close).Methods("POST")
	apiV1.HandleFunc("/job-postings/{id}", postingsHandler.Delete).Methods("DELETE")

	// Documents
	apiV1.HandleFunc("/documents", documentsHandler.Create).Methods("POST")
	apiV1.HandleFunc("/documents", documentsHandler.List).Methods("GET")
	apiV1.HandleFunc("/documents/{id}", documentsHandler.Get).Methods("GET")
	apiV1.HandleFunc("/documents/{id}", documentsHandler.Update).Methods("PUT")
	apiV1.HandleFunc("/documents/{id}/file", documentsHandler.Upload).Methods("POST")
	apiV1.HandleFunc("/documents/{id}/file", documentsHandler.Download).Methods("GET")
	apiV1.HandleFunc("/documents/{id}", documentsHandler.Delete).Methods("DELETE")

	// Payouts
	apiV1.HandleFunc("/payouts", payoutsHandler.Create).Methods("POST")
	apiV1.HandleFunc("/payouts", payoutsHandler.List).Methods("GET")
	apiV1.HandleFunc("/payouts/{id}", payoutsHandler.Get).Methods("GET")
	apiV1.HandleFunc("/payouts/{id}/approve", payoutsHandler.Approve).Methods("POST")
	apiV1.HandleFunc("/payouts/{id}/pay", payoutsHandler.MarkPaid).Methods("POST")
	apiV1.HandleFunc("/payouts/{id}/reject", payoutsHandler.Reject).Methods("POST")

	// Billing templates
	apiV1.HandleFunc("/templates", templatesHandler.Create).Methods("POST")
	apiV1.HandleFunc("/templates", templatesHandler.List).Methods("GET")
	apiV1.HandleFunc("/templates/{id}", templatesHandler.Get).Methods("GET")
	apiV1.HandleFunc("/templates/{id}", templatesHandler.Update).Methods("PUT")
	apiV1.HandleFunc("/templates/{id}/default", templatesHandler.SetDefault).Methods("POST")
	apiV1.HandleFunc("/templates/{id}/preview", templatesHandler.Preview).Methods("POST")
	apiV1.HandleFunc("/templates/{id}", templatesHandler.Delete).Methods("DELETE")

	// Workflows
	apiV1.HandleFunc("/workflows/rules", workflowsHandler.CreateRule).Methods("POST")
	apiV1.HandleFunc("/workflows/rules", workflowsHandler.ListRules).Methods("GET")
	apiV1.HandleFunc("/workflows/rules/{id}", workflowsHandler.GetRule).Methods("GET")
	apiV1.HandleFunc("/workflows/rules/{id}", workflowsHandler.UpdateRule).Methods("PUT")
	apiV1.HandleFunc("/workflows/rules/{id}", workflowsHandler.DeleteRule).Methods("DELETE")
	apiV1.HandleFunc("/workflows/trigger", workflowsHandler.Trigger).Methods("POST")
	apiV1.HandleFunc("/workflows/instances", workflowsHandler.ListInstances).Methods("GET")
	apiV1.HandleFunc("/workflows/instances/{id}", workflowsHandler.GetInstance).Methods("GET")
	apiV1.HandleFunc("/workflows/instances/{id}/approve", workflowsHandler.ApproveInstance).Methods("POST")

	// Analytics
	apiV1.HandleFunc("/analytics/feedback", analyticsHandler.Feedback).Methods("GET")
	apiV1.HandleFunc("/analytics/projects", analyticsHandler.Projects).Methods("GET")
	apiV1.HandleFunc("/analytics/headcount", analyticsHandler.Headcount).Methods("GET")
	apiV1.HandleFunc("/analytics/payouts", analyticsHandler.Payouts).Methods("GET")
	apiV1.HandleFunc("/analytics/surveys", analyticsHandler.Surveys).Methods("GET")

	// Notifications and audit
	apiV1.HandleFunc("/notifications", notificationsHandler.List).Methods("GET")
	apiV1.HandleFunc("/notifications/{id}/read", notificationsHandler.MarkRead).Methods("POST")
	apiV1.HandleFunc("/notifications/stream", notificationsHandler.Stream).Methods("GET")
	apiV1.HandleFunc("/audit", auditHandler.List).Methods("GET")

	return r
}
