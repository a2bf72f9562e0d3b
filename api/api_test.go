package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/opshq/backoffice/api"
	dbfs "github.com/opshq/backoffice/db"
	"github.com/opshq/backoffice/internal/analytics"
	"github.com/opshq/backoffice/internal/config"
	dbpkg "github.com/opshq/backoffice/internal/db"
	"github.com/opshq/backoffice/internal/models"
	sqlite "github.com/opshq/backoffice/internal/repository/sqlite"
	"github.com/opshq/backoffice/internal/workflow"
	"github.com/opshq/backoffice/pkg/storage"
)

type fakeQueue struct{ calls int }

func (q *fakeQueue) EnqueueAt(ctx context.Context, typ string, payload any, at time.Time, priority, maxAttempts int) (int64, error) {
	q.calls++
	return int64(q.calls), nil
}

type testServer struct {
	srv   *httptest.Server
	token string
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	d, err := dbpkg.New(ctx, "file:"+name+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := dbpkg.Migrate(ctx, d, dbfs.Migrations); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	repo := sqlite.New(d, nil)
	store, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("storage: %v", err)
	}

	engine := workflow.NewEngine(repo, repo, repo, &fakeQueue{}, nil, nil)

	cfg := &config.Config{
		JWTSecret:     "test-secret",
		TokenDuration: time.Hour,
	}
	handler := api.SetupRoutes(cfg, "test", "now", api.Deps{
		Repo:      repo,
		Store:     store,
		Engine:    engine,
		Analytics: analytics.New(d.GetConn(), staticRates{}),
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	ts := &testServer{srv: srv}
	ts.token = ts.signup(t, name+"@example.com")
	return ts
}

type staticRates struct{}

func (staticRates) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	if from == to {
		return amount, nil
	}
	return amount * 2, nil
}

// envelope mirrors the wire shape for assertions.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func (ts *testServer) signup(t *testing.T, email string) string {
	t.Helper()
	body := fmt.Sprintf(`{"organization":"Acme","name":"Alice","email":%q,"password":"hunter22"}`, email)
	res, err := http.Post(ts.srv.URL+"/v1/auth/signup", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("signup expected 201 got %d", res.StatusCode)
	}
	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		t.Fatalf("decode signup: %v", err)
	}
	var auth struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &auth); err != nil || auth.Token == "" {
		t.Fatalf("no token in signup response: %s", env.Data)
	}
	return auth.Token
}

// do issues an authenticated request and decodes the envelope.
func (ts *testServer) do(t *testing.T, method, path string, body any) (int, envelope) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+ts.token)
	req.Header.Set("Content-Type", "application/json")

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()

	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope for %s %s: %v", method, path, err)
	}
	return res.StatusCode, env
}

func TestAuthFlow(t *testing.T) {
	ts := setupServer(t)

	// protected route without a token
	res, err := http.Get(ts.srv.URL + "/v1/projects")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", res.StatusCode)
	}

	// duplicate email is rejected
	body := fmt.Sprintf(`{"organization":"Other","name":"Bob","email":%q,"password":"pw123456"}`, strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())+"@example.com")
	res2, err := http.Post(ts.srv.URL+"/v1/auth/signup", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("signup dup: %v", err)
	}
	if res2.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", res2.StatusCode)
	}

	// wrong password
	res3, err := http.Post(ts.srv.URL+"/v1/auth/signin", "application/json",
		strings.NewReader(fmt.Sprintf(`{"email":%q,"password":"wrong"}`, strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())+"@example.com")))
	if err != nil {
		t.Fatalf("signin: %v", err)
	}
	if res3.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %d", res3.StatusCode)
	}

	// with token everything works
	status, env := ts.do(t, "GET", "/v1/projects", nil)
	if status != http.StatusOK || !env.Success {
		t.Fatalf("authorized list failed: %d %s", status, env.Message)
	}
}

func TestFeedbackLifecycle(t *testing.T) {
	ts := setupServer(t)

	status, env := ts.do(t, "POST", "/v1/feedback", map[string]any{
		"subject": "Checkout is slow", "body": "spinner forever", "category": "product", "rating": 2,
	})
	if status != http.StatusCreated || !env.Success {
		t.Fatalf("create feedback: %d %s", status, env.Message)
	}
	var fb models.Feedback
	if err := json.Unmarshal(env.Data, &fb); err != nil {
		t.Fatalf("decode feedback: %v", err)
	}
	if fb.Status != models.FeedbackNew || fb.HasResponse {
		t.Fatalf("fresh feedback wrong defaults: %#v", fb)
	}

	// invalid rating
	status, _ = ts.do(t, "POST", "/v1/feedback", map[string]any{
		"subject": "x", "body": "y", "category": "z", "rating": 9,
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad rating, got %d", status)
	}

	// respond
	status, env = ts.do(t, "POST", fmt.Sprintf("/v1/feedback/%d/respond", fb.ID), map[string]any{"response": "fixed"})
	if status != http.StatusOK {
		t.Fatalf("respond: %d %s", status, env.Message)
	}
	if err := json.Unmarshal(env.Data, &fb); err != nil {
		t.Fatalf("decode responded feedback: %v", err)
	}
	if !fb.HasResponse || fb.Status != models.FeedbackResponded {
		t.Fatalf("respond did not update row: %#v", fb)
	}

	// filtered list excludes it
	status, env = ts.do(t, "GET", "/v1/feedback?status=new", nil)
	if status != http.StatusOK {
		t.Fatalf("list: %d", status)
	}
	var page struct {
		Total int64 `json:"total"`
	}
	if err := json.Unmarshal(env.Data, &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if page.Total != 0 {
		t.Fatalf("responded feedback still new: total=%d", page.Total)
	}

	// missing row
	status, env = ts.do(t, "GET", "/v1/feedback/9999", nil)
	if status != http.StatusNotFound || env.Success {
		t.Fatalf("expected 404 envelope, got %d success=%v", status, env.Success)
	}
	if env.Message == "" {
		t.Fatalf("error envelope missing message")
	}
}

func TestSuggestionVoteConflict(t *testing.T) {
	ts := setupServer(t)

	status, env := ts.do(t, "POST", "/v1/suggestions", map[string]any{"title": "Dark mode", "body": "please"})
	if status != http.StatusCreated {
		t.Fatalf("create suggestion: %d %s", status, env.Message)
	}
	var s models.Suggestion
	if err := json.Unmarshal(env.Data, &s); err != nil {
		t.Fatalf("decode suggestion: %v", err)
	}

	vote := func(direction string) (int, models.Suggestion) {
		st, e := ts.do(t, "POST", fmt.Sprintf("/v1/suggestions/%d/vote", s.ID), map[string]any{"direction": direction})
		var out models.Suggestion
		_ = json.Unmarshal(e.Data, &out)
		return st, out
	}

	st, out := vote("up")
	if st != http.StatusOK || out.Upvotes != 1 {
		t.Fatalf("first vote: %d %#v", st, out)
	}

	st, _ = vote("up")
	if st != http.StatusConflict {
		t.Fatalf("duplicate vote expected 409, got %d", st)
	}

	st, out = vote("down")
	if st != http.StatusOK || out.Upvotes != 0 || out.Downvotes != 1 {
		t.Fatalf("flip vote: %d %#v", st, out)
	}

	st, _ = ts.do(t, "POST", fmt.Sprintf("/v1/suggestions/%d/vote", s.ID), map[string]any{"direction": "sideways"})
	if st != http.StatusBadRequest {
		t.Fatalf("bad direction expected 400, got %d", st)
	}
}

func TestSurveyResponseGating(t *testing.T) {
	ts := setupServer(t)

	questions := []map[string]any{{"id": "q1", "label": "How is it going?", "type": "text"}}
	status, env := ts.do(t, "POST", "/v1/surveys", map[string]any{"title": "Pulse", "questions": questions})
	if status != http.StatusCreated {
		t.Fatalf("create survey: %d %s", status, env.Message)
	}
	var sv models.Survey
	if err := json.Unmarshal(env.Data, &sv); err != nil {
		t.Fatalf("decode survey: %v", err)
	}

	// invalid questions document
	status, _ = ts.do(t, "POST", "/v1/surveys", map[string]any{
		"title": "Bad", "questions": []map[string]any{{"id": "q1", "type": "teleport"}},
	})
	if status != http.StatusBadRequest {
		t.Fatalf("bad questions expected 400, got %d", status)
	}

	answers := map[string]any{"answers": map[string]any{"q1": "fine"}}

	// draft survey rejects responses
	status, _ = ts.do(t, "POST", fmt.Sprintf("/v1/surveys/%d/responses", sv.ID), answers)
	if status != http.StatusConflict {
		t.Fatalf("draft response expected 409, got %d", status)
	}

	if status, env = ts.do(t, "POST", fmt.Sprintf("/v1/surveys/%d/open", sv.ID), nil); status != http.StatusOK {
		t.Fatalf("open: %d %s", status, env.Message)
	}
	if status, _ = ts.do(t, "POST", fmt.Sprintf("/v1/surveys/%d/responses", sv.ID), answers); status != http.StatusCreated {
		t.Fatalf("open response expected 201, got %d", status)
	}

	if status, _ = ts.do(t, "POST", fmt.Sprintf("/v1/surveys/%d/close", sv.ID), nil); status != http.StatusOK {
		t.Fatalf("close: %d", status)
	}
	if status, _ = ts.do(t, "POST", fmt.Sprintf("/v1/surveys/%d/responses", sv.ID), answers); status != http.StatusConflict {
		t.Fatalf("closed response expected 409, got %d", status)
	}

	// reopening a closed survey is not allowed
	if status, _ = ts.do(t, "POST", fmt.Sprintf("/v1/surveys/%d/open", sv.ID), nil); status != http.StatusConflict {
		t.Fatalf("reopen expected 409, got %d", status)
	}
}

func TestPayoutEndpointTransitions(t *testing.T) {
	ts := setupServer(t)

	status, env := ts.do(t, "POST", "/v1/payouts", map[string]any{"affiliate": "partner-7", "amount": 1200.0, "currency": "eur"})
	if status != http.StatusCreated {
		t.Fatalf("create payout: %d %s", status, env.Message)
	}
	var p models.Payout
	if err := json.Unmarshal(env.Data, &p); err != nil {
		t.Fatalf("decode payout: %v", err)
	}
	if p.Currency != "EUR" || p.Status != models.PayoutPending {
		t.Fatalf("payout defaults wrong: %#v", p)
	}

	// paying before approval
	if status, _ = ts.do(t, "POST", fmt.Sprintf("/v1/payouts/%d/pay", p.ID), nil); status != http.StatusConflict {
		t.Fatalf("pay before approve expected 409, got %d", status)
	}

	if status, _ = ts.do(t, "POST", fmt.Sprintf("/v1/payouts/%d/approve", p.ID), nil); status != http.StatusOK {
		t.Fatalf("approve: %d", status)
	}
	status, env = ts.do(t, "POST", fmt.Sprintf("/v1/payouts/%d/pay", p.ID), nil)
	if status != http.StatusOK {
		t.Fatalf("pay: %d", status)
	}
	if err := json.Unmarshal(env.Data, &p); err != nil {
		t.Fatalf("decode paid payout: %v", err)
	}
	if p.Status != models.PayoutPaid || p.PaidAt == nil {
		t.Fatalf("paid payout wrong: %#v", p)
	}

	// rejecting a paid payout
	if status, _ = ts.do(t, "POST", fmt.Sprintf("/v1/payouts/%d/reject", p.ID), map[string]any{"reason": "dup"}); status != http.StatusConflict {
		t.Fatalf("reject paid expected 409, got %d", status)
	}

	// reason is mandatory
	status, env = ts.do(t, "POST", "/v1/payouts", map[string]any{"affiliate": "p2", "amount": 10.0, "currency": "USD"})
	if status != http.StatusCreated {
		t.Fatalf("create second payout: %d", status)
	}
	var p2 models.Payout
	_ = json.Unmarshal(env.Data, &p2)
	if status, _ = ts.do(t, "POST", fmt.Sprintf("/v1/payouts/%d/reject", p2.ID), map[string]any{}); status != http.StatusBadRequest {
		t.Fatalf("reject without reason expected 400, got %d", status)
	}
}

func TestTemplatePreview(t *testing.T) {
	ts := setupServer(t)

	status, env := ts.do(t, "POST", "/v1/templates", map[string]any{
		"kind": "invoice", "name": "classic", "body": "Invoice #{{.Number}} for {{.Customer}}",
	})
	if status != http.StatusCreated {
		t.Fatalf("create template: %d %s", status, env.Message)
	}
	var tpl models.BillingTemplate
	if err := json.Unmarshal(env.Data, &tpl); err != nil {
		t.Fatalf("decode template: %v", err)
	}

	// body that does not parse
	status, _ = ts.do(t, "POST", "/v1/templates", map[string]any{
		"kind": "invoice", "name": "broken", "body": "{{.Oops",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("broken template expected 400, got %d", status)
	}

	status, env = ts.do(t, "POST", fmt.Sprintf("/v1/templates/%d/preview", tpl.ID), map[string]any{
		"data": map[string]any{"Number": 42, "Customer": "Acme"},
	})
	if status != http.StatusOK {
		t.Fatalf("preview: %d %s", status, env.Message)
	}
	var out struct {
		Rendered string `json:"rendered"`
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	if out.Rendered != "Invoice #42 for Acme" {
		t.Fatalf("unexpected render: %q", out.Rendered)
	}

	// default handling
	if status, _ = ts.do(t, "POST", fmt.Sprintf("/v1/templates/%d/default", tpl.ID), nil); status != http.StatusOK {
		t.Fatalf("set default: %d", status)
	}
}

func TestWorkflowEndpoints(t *testing.T) {
	ts := setupServer(t)

	// invalid action type is rejected up front
	status, _ := ts.do(t, "POST", "/v1/workflows/rules", map[string]any{
		"name": "bad", "event": "feedback.created",
		"actions": []map[string]any{{"type": "launch-rocket"}},
	})
	if status != http.StatusBadRequest {
		t.Fatalf("invalid action expected 400, got %d", status)
	}

	status, env := ts.do(t, "POST", "/v1/workflows/rules", map[string]any{
		"name":       "flag bad ratings",
		"event":      "feedback.created",
		"conditions": map[string]any{"rating": map[string]any{"max": 2}},
		"actions":    []map[string]any{{"type": "notify", "message": "low rating"}},
	})
	if status != http.StatusCreated {
		t.Fatalf("create rule: %d %s", status, env.Message)
	}

	// a matching feedback fires the rule
	status, _ = ts.do(t, "POST", "/v1/feedback", map[string]any{
		"subject": "bad", "body": "very bad", "category": "product", "rating": 1,
	})
	if status != http.StatusCreated {
		t.Fatalf("create feedback: %d", status)
	}

	status, env = ts.do(t, "GET", "/v1/workflows/instances", nil)
	if status != http.StatusOK {
		t.Fatalf("list instances: %d", status)
	}
	var page struct {
		Total int64                     `json:"total"`
		Items []models.WorkflowInstance `json:"items"`
	}
	if err := json.Unmarshal(env.Data, &page); err != nil {
		t.Fatalf("decode instances: %v", err)
	}
	if page.Total != 1 || page.Items[0].Status != models.InstanceCompleted {
		t.Fatalf("expected one completed instance, got %+v", page)
	}

	// a non-matching feedback does not fire
	status, _ = ts.do(t, "POST", "/v1/feedback", map[string]any{
		"subject": "nice", "body": "love it", "category": "product", "rating": 5,
	})
	if status != http.StatusCreated {
		t.Fatalf("create feedback: %d", status)
	}
	_, env = ts.do(t, "GET", "/v1/workflows/instances", nil)
	_ = json.Unmarshal(env.Data, &page)
	if page.Total != 1 {
		t.Fatalf("non-matching feedback created an instance: total=%d", page.Total)
	}

	// manual trigger endpoint
	status, env = ts.do(t, "POST", "/v1/workflows/trigger", map[string]any{
		"event": "feedback.created",
		"data":  map[string]any{"rating": 2},
	})
	if status != http.StatusOK {
		t.Fatalf("trigger: %d %s", status, env.Message)
	}
	var created []models.WorkflowInstance
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode trigger result: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("expected one instance from manual trigger, got %d", len(created))
	}
}

func TestDocumentUploadDownload(t *testing.T) {
	ts := setupServer(t)

	status, env := ts.do(t, "POST", "/v1/documents", map[string]any{"title": "Handbook", "category": "hr"})
	if status != http.StatusCreated {
		t.Fatalf("create document: %d %s", status, env.Message)
	}
	var doc models.Document
	if err := json.Unmarshal(env.Data, &doc); err != nil {
		t.Fatalf("decode document: %v", err)
	}

	// multipart upload
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "handbook.txt")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	content := "welcome aboard"
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	mw.Close()

	req, _ := http.NewRequest("POST", ts.srv.URL+fmt.Sprintf("/v1/documents/%d/file", doc.ID), &buf)
	req.Header.Set("Authorization", "Bearer "+ts.token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("upload expected 200, got %d", res.StatusCode)
	}

	// download round-trips the content
	req, _ = http.NewRequest("GET", ts.srv.URL+fmt.Sprintf("/v1/documents/%d/file", doc.ID), nil)
	req.Header.Set("Authorization", "Bearer "+ts.token)
	res, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("download expected 200, got %d", res.StatusCode)
	}
	got, _ := io.ReadAll(res.Body)
	if string(got) != content {
		t.Fatalf("download mismatch: %q", got)
	}

	// delete removes the file too
	if status, _ = ts.do(t, "DELETE", fmt.Sprintf("/v1/documents/%d", doc.ID), nil); status != http.StatusOK {
		t.Fatalf("delete: %d", status)
	}
	if status, _ = ts.do(t, "GET", fmt.Sprintf("/v1/documents/%d", doc.ID), nil); status != http.StatusNotFound {
		t.Fatalf("document still present after delete: %d", status)
	}
}

func TestAnalyticsEndpoints(t *testing.T) {
	ts := setupServer(t)

	for _, body := range []map[string]any{
		{"affiliate": "a", "amount": 100.0, "currency": "USD"},
		{"affiliate": "b", "amount": 10.0, "currency": "EUR"},
	} {
		if status, env := ts.do(t, "POST", "/v1/payouts", body); status != http.StatusCreated {
			t.Fatalf("create payout: %d %s", status, env.Message)
		}
	}

	status, env := ts.do(t, "GET", "/v1/analytics/payouts?currency=USD", nil)
	if status != http.StatusOK {
		t.Fatalf("payout analytics: %d %s", status, env.Message)
	}
	var totals []analytics.PayoutTotal
	if err := json.Unmarshal(env.Data, &totals); err != nil {
		t.Fatalf("decode totals: %v", err)
	}
	if len(totals) != 1 || totals[0].Status != models.PayoutPending {
		t.Fatalf("unexpected totals: %+v", totals)
	}
	// 100 USD + 10 EUR doubled by the static converter
	if totals[0].Total != 120 {
		t.Fatalf("expected 120, got %v", totals[0].Total)
	}

	// bad date range
	if status, _ = ts.do(t, "GET", "/v1/analytics/feedback?from=yesterday", nil); status != http.StatusBadRequest {
		t.Fatalf("bad range expected 400, got %d", status)
	}

	if status, _ = ts.do(t, "GET", "/v1/analytics/headcount", nil); status != http.StatusOK {
		t.Fatalf("headcount: %d", status)
	}
}

func TestRespondAndPayCreateNotifications(t *testing.T) {
	ts := setupServer(t)

	status, env := ts.do(t, "POST", "/v1/feedback", map[string]any{
		"subject": "Slow search", "body": "results take ages", "category": "product",
	})
	if status != http.StatusCreated {
		t.Fatalf("create feedback: %d %s", status, env.Message)
	}
	var fb models.Feedback
	if err := json.Unmarshal(env.Data, &fb); err != nil {
		t.Fatalf("decode feedback: %v", err)
	}
	if status, env = ts.do(t, "POST", fmt.Sprintf("/v1/feedback/%d/respond", fb.ID), map[string]any{"response": "indexing fixed"}); status != http.StatusOK {
		t.Fatalf("respond: %d %s", status, env.Message)
	}

	status, env = ts.do(t, "POST", "/v1/payouts", map[string]any{"affiliate": "partner-1", "amount": 75.0, "currency": "USD"})
	if status != http.StatusCreated {
		t.Fatalf("create payout: %d", status)
	}
	var p models.Payout
	if err := json.Unmarshal(env.Data, &p); err != nil {
		t.Fatalf("decode payout: %v", err)
	}
	if status, _ = ts.do(t, "POST", fmt.Sprintf("/v1/payouts/%d/approve", p.ID), nil); status != http.StatusOK {
		t.Fatalf("approve: %d", status)
	}
	if status, _ = ts.do(t, "POST", fmt.Sprintf("/v1/payouts/%d/pay", p.ID), nil); status != http.StatusOK {
		t.Fatalf("pay: %d", status)
	}

	status, env = ts.do(t, "GET", "/v1/notifications", nil)
	if status != http.StatusOK {
		t.Fatalf("list notifications: %d", status)
	}
	var page struct {
		Total int64                 `json:"total"`
		Items []models.Notification `json:"items"`
	}
	if err := json.Unmarshal(env.Data, &page); err != nil {
		t.Fatalf("decode notifications: %v", err)
	}
	if page.Total != 2 {
		t.Fatalf("expected 2 notifications, got %d", page.Total)
	}
	kinds := map[string]bool{}
	for _, n := range page.Items {
		kinds[n.Kind] = true
		if n.Message == "" {
			t.Fatalf("notification without a message: %+v", n)
		}
	}
	if !kinds["feedback"] || !kinds["payout"] {
		t.Fatalf("missing notification kinds: %v", kinds)
	}
}

func TestAuditTrail(t *testing.T) {
	ts := setupServer(t)

	if status, _ := ts.do(t, "POST", "/v1/projects", map[string]any{"name": "Apollo"}); status != http.StatusCreated {
		t.Fatalf("create project: %d", status)
	}

	status, env := ts.do(t, "GET", "/v1/audit?entity=project", nil)
	if status != http.StatusOK {
		t.Fatalf("audit list: %d", status)
	}
	var page struct {
		Total int64               `json:"total"`
		Items []models.AuditEvent `json:"items"`
	}
	if err := json.Unmarshal(env.Data, &page); err != nil {
		t.Fatalf("decode audit: %v", err)
	}
	if page.Total != 1 || page.Items[0].Action != "create" {
		t.Fatalf("unexpected audit trail: %+v", page)
	}
}
