package analytics_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbfs "github.com/opshq/backoffice/db"
	"github.com/opshq/backoffice/internal/analytics"
	dbpkg "github.com/opshq/backoffice/internal/db"
	"github.com/opshq/backoffice/internal/models"
	sqlite "github.com/opshq/backoffice/internal/repository/sqlite"
)

// fixedRates converts through a static table keyed "FROM->TO".
type fixedRates struct {
	table map[string]float64
	err   error
}

func (f *fixedRates) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if from == to {
		return amount, nil
	}
	return amount * f.table[from+"->"+to], nil
}

func setupData(t *testing.T) (*analytics.Service, *sqlite.SQLiteRepo, int64, *fixedRates) {
	t.Helper()
	ctx := context.Background()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	d, err := dbpkg.New(ctx, "file:"+name+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	require.NoError(t, dbpkg.Migrate(ctx, d, dbfs.Migrations))

	repo := sqlite.New(d, nil)
	orgID, err := repo.CreateOrganization(ctx, &models.Organization{Name: "Acme"})
	require.NoError(t, err)
	userID, err := repo.CreateUser(ctx, &models.User{OrgID: orgID, Name: "A", Email: name + "@x.com", PasswordHash: "h"})
	require.NoError(t, err)

	fx := &fixedRates{table: map[string]float64{"EUR->USD": 1.1, "USD->USD": 1}}
	svc := analytics.New(d.GetConn(), fx)

	// shared fixture rows
	for _, fb := range []struct {
		status string
		rating int
	}{
		{models.FeedbackNew, 2},
		{models.FeedbackNew, 4},
		{models.FeedbackResolved, 0},
	} {
		f := &models.Feedback{OrgID: orgID, Subject: "s", Body: "b", Category: "product", Status: fb.status, CreatedBy: userID}
		if fb.rating > 0 {
			r := fb.rating
			f.Rating = &r
		}
		_, err := repo.CreateFeedback(ctx, f)
		require.NoError(t, err)
	}

	for _, p := range []struct {
		amount   float64
		currency string
		status   string
	}{
		{100, "USD", models.PayoutPending},
		{200, "EUR", models.PayoutPending},
		{50, "USD", models.PayoutPaid},
	} {
		id, err := repo.CreatePayout(ctx, &models.Payout{OrgID: orgID, Affiliate: "aff", Amount: p.amount, Currency: p.currency, Status: models.PayoutPending, CreatedBy: userID, UpdatedBy: userID})
		require.NoError(t, err)
		if p.status == models.PayoutPaid {
			require.NoError(t, repo.SetPayoutStatus(ctx, orgID, id, models.PayoutApproved, nil, userID, models.PayoutPending))
			require.NoError(t, repo.SetPayoutStatus(ctx, orgID, id, models.PayoutPaid, nil, userID, models.PayoutApproved))
		}
	}

	for _, e := range []struct {
		dept   string
		status string
	}{
		{"engineering", models.EmployeeActive},
		{"engineering", models.EmployeeActive},
		{"sales", models.EmployeeActive},
		{"sales", models.EmployeeTerminated},
	} {
		_, err := repo.CreateEmployee(ctx, &models.Employee{OrgID: orgID, FullName: "E", Email: e.dept + name + "@x.com", Department: e.dept, Status: e.status, SalaryCurrency: "USD", CreatedBy: userID, UpdatedBy: userID})
		require.NoError(t, err)
	}

	return svc, repo, orgID, fx
}

func TestFeedbackSummary(t *testing.T) {
	svc, _, orgID, _ := setupData(t)

	out, err := svc.FeedbackSummary(context.Background(), orgID, analytics.Range{})
	require.NoError(t, err)

	assert.Equal(t, int64(3), out.Total)
	counts := map[string]int64{}
	for _, sc := range out.ByStatus {
		counts[sc.Status] = sc.Count
	}
	assert.Equal(t, int64(2), counts[models.FeedbackNew])
	assert.Equal(t, int64(1), counts[models.FeedbackResolved])

	require.NotNil(t, out.AvgRating)
	assert.InDelta(t, 3.0, *out.AvgRating, 0.001)
}

func TestPayoutTotalsConvertsCurrency(t *testing.T) {
	svc, _, orgID, _ := setupData(t)

	out, err := svc.PayoutTotals(context.Background(), orgID, analytics.Range{}, "USD")
	require.NoError(t, err)

	byStatus := map[string]analytics.PayoutTotal{}
	for _, pt := range out {
		byStatus[pt.Status] = pt
	}

	// pending: 100 USD + 200 EUR * 1.1 = 320 USD across 2 payouts
	pending := byStatus[models.PayoutPending]
	assert.InDelta(t, 320.0, pending.Total, 0.001)
	assert.Equal(t, int64(2), pending.Count)
	assert.Equal(t, "USD", pending.Currency)

	paid := byStatus[models.PayoutPaid]
	assert.InDelta(t, 50.0, paid.Total, 0.001)
}

func TestPayoutTotalsPropagatesRateFailure(t *testing.T) {
	svc, _, orgID, fx := setupData(t)
	fx.err = errors.New("rates down")

	_, err := svc.PayoutTotals(context.Background(), orgID, analytics.Range{}, "USD")
	require.Error(t, err)
	assert.ErrorContains(t, err, "rates down")
}

func TestHeadcountExcludesTerminated(t *testing.T) {
	svc, _, orgID, _ := setupData(t)

	out, err := svc.Headcount(context.Background(), orgID)
	require.NoError(t, err)

	byDept := map[string]int64{}
	for _, dc := range out {
		byDept[dc.Department] = dc.Count
	}
	assert.Equal(t, int64(2), byDept["engineering"])
	assert.Equal(t, int64(1), byDept["sales"])
}

func TestRangeFilter(t *testing.T) {
	svc, _, orgID, _ := setupData(t)

	// all fixture rows were created "now"; a window in the past is empty
	out, err := svc.FeedbackSummary(context.Background(), orgID, analytics.Range{From: 1, To: 2})
	require.NoError(t, err)
	assert.Zero(t, out.Total)
	assert.Empty(t, out.ByStatus)
}

func TestQueryErrorsSurface(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := analytics.New(db, &fixedRates{})

	mock.ExpectQuery("SELECT status, COUNT").WillReturnError(errors.New("disk gone"))
	_, err = svc.FeedbackSummary(context.Background(), 1, analytics.Range{})
	require.Error(t, err)
	assert.ErrorContains(t, err, "disk gone")

	mock.ExpectQuery("SELECT department, COUNT").WillReturnError(errors.New("disk gone"))
	_, err = svc.Headcount(context.Background(), 1)
	require.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
