package sqlite_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	dbfs "github.com/opshq/backoffice/db"
	dbpkg "github.com/opshq/backoffice/internal/db"
	"github.com/opshq/backoffice/internal/models"
	sqlite "github.com/opshq/backoffice/internal/repository/sqlite"
	"github.com/opshq/backoffice/pkg/repository"
)

// setupRepo opens a private in-memory database with the full schema applied.
func setupRepo(t *testing.T) (*sqlite.SQLiteRepo, func()) {
	t.Helper()
	ctx := context.Background()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	d, err := dbpkg.New(ctx, "file:"+name+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbpkg.Migrate(ctx, d, dbfs.Migrations); err != nil {
		d.Close()
		t.Fatalf("failed to migrate: %v", err)
	}

	repo := sqlite.New(d, nil)
	return repo, func() { d.Close() }
}

func seedOrgAndUser(t *testing.T, repo *sqlite.SQLiteRepo) (orgID, userID int64) {
	t.Helper()
	ctx := context.Background()

	orgID, err := repo.CreateOrganization(ctx, &models.Organization{Name: "Acme"})
	if err != nil {
		t.Fatalf("CreateOrganization: %v", err)
	}
	userID, err = repo.CreateUser(ctx, &models.User{OrgID: orgID, Name: "Alice", Email: t.Name() + "@example.com", PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return orgID, userID
}

func TestSignupTransactionRollsBack(t *testing.T) {
	ctx := context.Background()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	d, err := dbpkg.New(ctx, "file:"+name+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	defer d.Close()
	if err := dbpkg.Migrate(ctx, d, dbfs.Migrations); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	repo := sqlite.New(d, nil)

	email := name + "@example.com"
	orgID, userID, err := repo.CreateOrganizationWithOwner(ctx,
		&models.Organization{Name: "Acme"},
		&models.User{Name: "Alice", Email: email, PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("CreateOrganizationWithOwner: %v", err)
	}
	if orgID == 0 || userID == 0 {
		t.Fatalf("expected non-zero ids, got org=%d user=%d", orgID, userID)
	}

	// the owner row carries the org it was created with
	u, err := repo.GetUserByEmail(ctx, email)
	if err != nil || u == nil || u.OrgID != orgID {
		t.Fatalf("owner not linked to organization: %#v err=%v", u, err)
	}

	// a taken email fails with the sentinel and rolls the organization back
	_, _, err = repo.CreateOrganizationWithOwner(ctx,
		&models.Organization{Name: "Other"},
		&models.User{Name: "Bob", Email: email, PasswordHash: "hash"})
	if !errors.Is(err, repository.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	var orgs int
	if err := d.QueryRow(ctx, `SELECT COUNT(*) FROM organizations`).Scan(&orgs); err != nil {
		t.Fatalf("count organizations: %v", err)
	}
	if orgs != 1 {
		t.Fatalf("duplicate signup left an orphan organization: %d rows", orgs)
	}
}

func TestProjectCRUD(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()
	orgID, userID := seedOrgAndUser(t, repo)

	// missing rows return nil, nil
	got, err := repo.GetProject(ctx, orgID, 9999)
	if err != nil {
		t.Fatalf("GetProject missing: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing project, got %#v", got)
	}

	p := &models.Project{OrgID: orgID, Name: "Migration", Description: "move the racks", Status: models.ProjectPlanning, CreatedBy: userID, UpdatedBy: userID}
	id, err := repo.CreateProject(ctx, p)
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected non-zero id")
	}

	got, err = repo.GetProject(ctx, orgID, id)
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if got == nil || got.Name != "Migration" || got.Created == 0 {
		t.Fatalf("GetProject wrong result: %#v", got)
	}

	// org scoping: another org cannot see it
	other, _ := repo.CreateOrganization(ctx, &models.Organization{Name: "Other"})
	if cross, _ := repo.GetProject(ctx, other, id); cross != nil {
		t.Fatalf("project leaked across orgs: %#v", cross)
	}

	got.Status = models.ProjectActive
	if err := repo.UpdateProject(ctx, got); err != nil {
		t.Fatalf("UpdateProject: %v", err)
	}

	items, total, err := repo.ListProjects(ctx, repository.ListFilter{OrgID: orgID, Status: models.ProjectActive})
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("expected 1 active project, got total=%d len=%d", total, len(items))
	}

	if err := repo.DeleteProject(ctx, orgID, id); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
	if err := repo.DeleteProject(ctx, orgID, id); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestFeedbackRespond(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()
	orgID, userID := seedOrgAndUser(t, repo)

	rating := 2
	fb := &models.Feedback{OrgID: orgID, Subject: "Slow checkout", Body: "spinner forever", Category: "product", Rating: &rating, Status: models.FeedbackNew, CreatedBy: userID}
	id, err := repo.CreateFeedback(ctx, fb)
	if err != nil {
		t.Fatalf("CreateFeedback: %v", err)
	}

	got, err := repo.GetFeedback(ctx, orgID, id)
	if err != nil {
		t.Fatalf("GetFeedback: %v", err)
	}
	if got.HasResponse || got.Response != nil {
		t.Fatalf("fresh feedback should have no response: %#v", got)
	}

	if err := repo.RespondFeedback(ctx, orgID, id, "fixed in 2.3", userID); err != nil {
		t.Fatalf("RespondFeedback: %v", err)
	}

	got, err = repo.GetFeedback(ctx, orgID, id)
	if err != nil {
		t.Fatalf("GetFeedback after respond: %v", err)
	}
	if !got.HasResponse || got.Response == nil || *got.Response != "fixed in 2.3" {
		t.Fatalf("response not recorded: %#v", got)
	}
	if got.Status != models.FeedbackResponded {
		t.Fatalf("expected status responded, got %s", got.Status)
	}
	if got.RespondedBy == nil || *got.RespondedBy != userID {
		t.Fatalf("responded_by not recorded: %#v", got.RespondedBy)
	}

	// filter by status
	items, total, err := repo.ListFeedback(ctx, repository.ListFilter{OrgID: orgID, Status: models.FeedbackNew})
	if err != nil {
		t.Fatalf("ListFeedback: %v", err)
	}
	if total != 0 || len(items) != 0 {
		t.Fatalf("responded feedback still listed as new: total=%d", total)
	}
}

func TestSuggestionVote(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()
	orgID, userID := seedOrgAndUser(t, repo)

	id, err := repo.CreateSuggestion(ctx, &models.Suggestion{OrgID: orgID, Title: "Dark mode", Body: "please", Status: models.SuggestionOpen, CreatedBy: userID})
	if err != nil {
		t.Fatalf("CreateSuggestion: %v", err)
	}

	s, err := repo.Vote(ctx, orgID, id, userID, models.VoteUp)
	if err != nil {
		t.Fatalf("first vote: %v", err)
	}
	if s.Upvotes != 1 || s.Downvotes != 0 {
		t.Fatalf("after first vote: up=%d down=%d", s.Upvotes, s.Downvotes)
	}

	// same direction again is rejected
	if _, err := repo.Vote(ctx, orgID, id, userID, models.VoteUp); !errors.Is(err, repository.ErrDuplicateVote) {
		t.Fatalf("expected ErrDuplicateVote, got %v", err)
	}

	// opposite direction flips both tallies
	s, err = repo.Vote(ctx, orgID, id, userID, models.VoteDown)
	if err != nil {
		t.Fatalf("flip vote: %v", err)
	}
	if s.Upvotes != 0 || s.Downvotes != 1 {
		t.Fatalf("after flip: up=%d down=%d", s.Upvotes, s.Downvotes)
	}

	// a second voter counts independently
	voter2, err := repo.CreateUser(ctx, &models.User{OrgID: orgID, Name: "Bob", Email: "bob-" + t.Name() + "@example.com", PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("CreateUser voter2: %v", err)
	}
	s, err = repo.Vote(ctx, orgID, id, voter2, models.VoteUp)
	if err != nil {
		t.Fatalf("voter2 vote: %v", err)
	}
	if s.Upvotes != 1 || s.Downvotes != 1 {
		t.Fatalf("after voter2: up=%d down=%d", s.Upvotes, s.Downvotes)
	}

	// voting on a missing suggestion
	if _, err := repo.Vote(ctx, orgID, 9999, userID, models.VoteUp); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPayoutTransitions(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()
	orgID, userID := seedOrgAndUser(t, repo)

	id, err := repo.CreatePayout(ctx, &models.Payout{OrgID: orgID, Affiliate: "partner-7", Amount: 120.50, Currency: "EUR", Status: models.PayoutPending, CreatedBy: userID, UpdatedBy: userID})
	if err != nil {
		t.Fatalf("CreatePayout: %v", err)
	}

	// paying before approval is rejected
	err = repo.SetPayoutStatus(ctx, orgID, id, models.PayoutPaid, nil, userID, models.PayoutApproved)
	if !errors.Is(err, repository.ErrBadTransition) {
		t.Fatalf("expected ErrBadTransition, got %v", err)
	}

	if err := repo.SetPayoutStatus(ctx, orgID, id, models.PayoutApproved, nil, userID, models.PayoutPending); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := repo.SetPayoutStatus(ctx, orgID, id, models.PayoutPaid, nil, userID, models.PayoutApproved); err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	p, err := repo.GetPayout(ctx, orgID, id)
	if err != nil {
		t.Fatalf("GetPayout: %v", err)
	}
	if p.Status != models.PayoutPaid {
		t.Fatalf("expected paid, got %s", p.Status)
	}
	if p.PaidAt == nil || *p.PaidAt == 0 {
		t.Fatalf("paid_at not stamped: %#v", p.PaidAt)
	}

	// rejecting a paid payout is not allowed
	reason := "duplicate"
	err = repo.SetPayoutStatus(ctx, orgID, id, models.PayoutRejected, &reason, userID, models.PayoutPending, models.PayoutApproved)
	if !errors.Is(err, repository.ErrBadTransition) {
		t.Fatalf("expected ErrBadTransition rejecting paid, got %v", err)
	}
}

func TestTemplateDefault(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()
	orgID, userID := seedOrgAndUser(t, repo)

	a, err := repo.CreateTemplate(ctx, &models.BillingTemplate{OrgID: orgID, Kind: models.TemplateInvoice, Name: "classic", Body: "Invoice {{.Number}}", CreatedBy: userID, UpdatedBy: userID})
	if err != nil {
		t.Fatalf("CreateTemplate a: %v", err)
	}
	b, err := repo.CreateTemplate(ctx, &models.BillingTemplate{OrgID: orgID, Kind: models.TemplateInvoice, Name: "modern", Body: "INV {{.Number}}", CreatedBy: userID, UpdatedBy: userID})
	if err != nil {
		t.Fatalf("CreateTemplate b: %v", err)
	}

	if err := repo.SetDefaultTemplate(ctx, orgID, a); err != nil {
		t.Fatalf("SetDefaultTemplate a: %v", err)
	}
	if err := repo.SetDefaultTemplate(ctx, orgID, b); err != nil {
		t.Fatalf("SetDefaultTemplate b: %v", err)
	}

	items, err := repo.ListTemplates(ctx, orgID, models.TemplateInvoice)
	if err != nil {
		t.Fatalf("ListTemplates: %v", err)
	}
	defaults := 0
	for _, it := range items {
		if it.IsDefault {
			defaults++
			if it.ID != b {
				t.Fatalf("wrong default template: %d", it.ID)
			}
		}
	}
	if defaults != 1 {
		t.Fatalf("expected exactly one default, got %d", defaults)
	}
}

func TestWorkflowInstancePersistence(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()
	orgID, userID := seedOrgAndUser(t, repo)

	ruleID, err := repo.CreateRule(ctx, &models.WorkflowRule{
		OrgID:      orgID,
		Name:       "big payouts need approval",
		Event:      "payout.requested",
		Conditions: json.RawMessage(`{"amount":{"min":1000}}`),
		Actions:    json.RawMessage(`[{"type":"require-approval"}]`),
		Enabled:    true,
		CreatedBy:  userID,
	})
	if err != nil {
		t.Fatalf("CreateRule: %v", err)
	}

	inst := &models.WorkflowInstance{
		ID:        "wf-test-1",
		OrgID:     orgID,
		RuleID:    ruleID,
		Event:     "payout.requested",
		Status:    models.InstancePendingApproval,
		ActionLog: json.RawMessage(`[{"type":"require-approval","outcome":"approval-requested"}]`),
	}
	if err := repo.CreateInstance(ctx, inst); err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}

	got, err := repo.GetInstance(ctx, orgID, "wf-test-1")
	if err != nil {
		t.Fatalf("GetInstance: %v", err)
	}
	if got == nil || got.Status != models.InstancePendingApproval || got.RuleID != ruleID {
		t.Fatalf("GetInstance wrong result: %#v", got)
	}

	if err := repo.SetInstanceStatus(ctx, orgID, "wf-test-1", models.InstanceEscalated); err != nil {
		t.Fatalf("SetInstanceStatus: %v", err)
	}

	items, total, err := repo.ListInstances(ctx, orgID, models.InstanceEscalated, "", 10, 0)
	if err != nil {
		t.Fatalf("ListInstances: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("expected 1 escalated instance, got total=%d", total)
	}

	// enabled filter on rules
	rules, err := repo.ListRules(ctx, orgID, "payout.requested", true)
	if err != nil {
		t.Fatalf("ListRules: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("expected 1 enabled rule, got %d", len(rules))
	}
}

func TestSurveyResponses(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()
	orgID, userID := seedOrgAndUser(t, repo)

	id, err := repo.CreateSurvey(ctx, &models.Survey{
		OrgID:     orgID,
		Title:     "Onboarding check",
		Questions: json.RawMessage(`[{"id":"q1","label":"How was week one?","type":"text"}]`),
		Status:    models.SurveyDraft,
		CreatedBy: userID,
	})
	if err != nil {
		t.Fatalf("CreateSurvey: %v", err)
	}

	if err := repo.SetSurveyStatus(ctx, orgID, id, models.SurveyOpen); err != nil {
		t.Fatalf("SetSurveyStatus: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := repo.CreateSurveyResponse(ctx, &models.SurveyResponse{SurveyID: id, Respondent: userID, Answers: json.RawMessage(`{"q1":"great"}`)}); err != nil {
			t.Fatalf("CreateSurveyResponse: %v", err)
		}
	}

	items, total, err := repo.ListSurveyResponses(ctx, id, 2, 0)
	if err != nil {
		t.Fatalf("ListSurveyResponses: %v", err)
	}
	if total != 3 || len(items) != 2 {
		t.Fatalf("expected total=3 page=2, got total=%d len=%d", total, len(items))
	}
}

func TestNotificationsAndAudit(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()
	orgID, userID := seedOrgAndUser(t, repo)

	nid, err := repo.CreateNotification(ctx, &models.Notification{OrgID: orgID, Kind: "workflow", Message: "hi"})
	if err != nil {
		t.Fatalf("CreateNotification: %v", err)
	}

	items, total, err := repo.ListNotifications(ctx, orgID, true, 10, 0)
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].Read {
		t.Fatalf("unexpected unread list: total=%d items=%#v", total, items)
	}

	if err := repo.MarkNotificationRead(ctx, orgID, nid); err != nil {
		t.Fatalf("MarkNotificationRead: %v", err)
	}
	_, total, err = repo.ListNotifications(ctx, orgID, true, 10, 0)
	if err != nil {
		t.Fatalf("ListNotifications after read: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected no unread notifications, got %d", total)
	}

	if err := repo.RecordAudit(ctx, &models.AuditEvent{OrgID: orgID, ActorID: userID, Action: "create", Entity: "project", EntityID: "1"}); err != nil {
		t.Fatalf("RecordAudit: %v", err)
	}
	events, total, err := repo.ListAudit(ctx, orgID, "project", 10, 0)
	if err != nil {
		t.Fatalf("ListAudit: %v", err)
	}
	if total != 1 || len(events) != 1 || events[0].Action != "create" {
		t.Fatalf("unexpected audit list: %#v", events)
	}
}
