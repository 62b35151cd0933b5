package reporting

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/audit"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/coa"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/database"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/journal"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/model"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/registry"
)

var actor = model.Actor{TenantID: "t1", UserID: "u1"}

type fixture struct {
	svc     *Service
	journal *journal.Service
	entity  *model.Entity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := database.OpenTest(t)
	rec := audit.NewRecorder(db, zerolog.Nop())
	t.Cleanup(rec.Close)
	reg := registry.NewService(db, rec, zerolog.Nop())
	charts := coa.NewService(db, rec, reg, zerolog.Nop())

	e, err := reg.CreateEntity(actor, registry.EntityParams{
		Code: "ACME", Name: "Acme Inc", Currency: "USD"})
	require.NoError(t, err)
	chart, err := charts.CreateDefaultChart(actor, e.ID, "Standard")
	require.NoError(t, err)
	_, err = charts.InstantiateAccounts(actor, chart.ID)
	require.NoError(t, err)

	return &fixture{
		svc:     NewService(db, zerolog.Nop()),
		journal: journal.NewService(db, rec, reg, journal.Options{}, zerolog.Nop()),
		entity:  e,
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (f *fixture) post(t *testing.T, d time.Time, debitAcct, creditAcct, amount string) *model.JournalEntry {
	t.Helper()
	e, err := f.journal.PostEntry(actor, journal.PostParams{
		EntityID: f.entity.ID, Date: d,
		Lines: []journal.LineInput{
			{AccountNumber: debitAcct, Side: model.SideDebit, Amount: dec(amount)},
			{AccountNumber: creditAcct, Side: model.SideCredit, Amount: dec(amount)},
		},
	})
	require.NoError(t, err)
	return e
}

// Scenario D: one debit-type and one credit-type account at 1000 each.
func TestTrialBalanceTotalsBalance(t *testing.T) {
	f := newFixture(t)
	f.post(t, date(2025, time.January, 10), "1000", "4000", "1000")

	tb, err := f.svc.TrialBalance(actor, f.entity.ID,
		date(2025, time.January, 1), date(2025, time.January, 31), LevelDetail)
	require.NoError(t, err)

	assert.True(t, tb.Totals.Debits.Equal(dec("1000")), "debits = %s", tb.Totals.Debits)
	assert.True(t, tb.Totals.Credits.Equal(dec("1000")))
	require.Len(t, tb.Rows, 2)
	assert.Equal(t, "1000", tb.Rows[0].AccountNumber)
	assert.True(t, tb.Rows[0].Balance.Equal(dec("1000")))
	assert.True(t, tb.Rows[1].Balance.Equal(dec("1000")), "credit-positive net")
}

func TestTrialBalanceRespectsRange(t *testing.T) {
	f := newFixture(t)
	f.post(t, date(2025, time.January, 10), "1000", "4000", "100")
	f.post(t, date(2025, time.March, 10), "1000", "4000", "900")

	tb, err := f.svc.TrialBalance(actor, f.entity.ID,
		date(2025, time.January, 1), date(2025, time.January, 31), LevelDetail)
	require.NoError(t, err)
	assert.True(t, tb.Totals.Debits.Equal(dec("100")), "march entry excluded")
}

func TestTrialBalanceSummaryLevel(t *testing.T) {
	f := newFixture(t)
	// Two 10xx asset accounts and revenue.
	f.post(t, date(2025, time.January, 5), "1000", "4000", "300")
	f.post(t, date(2025, time.January, 6), "1100", "4000", "200")

	tb, err := f.svc.TrialBalance(actor, f.entity.ID,
		date(2025, time.January, 1), date(2025, time.January, 31), LevelSummary)
	require.NoError(t, err)

	require.Len(t, tb.Rows, 2, "10xx and 40xx groups")
	assert.Equal(t, "10", tb.Rows[0].AccountNumber)
	assert.True(t, tb.Rows[0].Debits.Equal(dec("500")))
	assert.Equal(t, "40", tb.Rows[1].AccountNumber)
	assert.True(t, tb.Totals.Debits.Equal(tb.Totals.Credits))
}

func TestTrialBalanceIncludesReversedPairsNettingToZero(t *testing.T) {
	f := newFixture(t)
	e := f.post(t, date(2025, time.January, 10), "5200", "1000", "80")
	_, err := f.journal.ReverseEntry(actor, e.ID)
	require.NoError(t, err)

	tb, err := f.svc.TrialBalance(actor, f.entity.ID,
		date(2025, time.January, 1), date(2025, time.January, 31), LevelDetail)
	require.NoError(t, err)

	for _, row := range tb.Rows {
		assert.True(t, row.Balance.IsZero(), "account %s nets to zero, got %s", row.AccountNumber, row.Balance)
	}
	assert.True(t, tb.Totals.Debits.Equal(tb.Totals.Credits))
}

// Balance-sheet identity: assets == liabilities + equity + netIncome
// for any as-of date.
func TestBalanceSheetIdentity(t *testing.T) {
	f := newFixture(t)
	f.post(t, date(2025, time.January, 5), "1000", "3000", "10000")  // capital in
	f.post(t, date(2025, time.January, 20), "1000", "4000", "2500")  // revenue
	f.post(t, date(2025, time.February, 3), "5200", "1000", "800")   // rent
	f.post(t, date(2025, time.February, 10), "1200", "2000", "1500") // inventory on credit

	for _, asOf := range []time.Time{
		date(2025, time.January, 31),
		date(2025, time.February, 28),
		date(2025, time.December, 31),
	} {
		bs, err := f.svc.BalanceSheet(actor, f.entity.ID, asOf)
		require.NoError(t, err)

		rhs := bs.Totals.Liabilities.Add(bs.Totals.Equity).Add(bs.NetIncome)
		assert.True(t, bs.Totals.Assets.Sub(rhs).Abs().LessThanOrEqual(dec("0.01")),
			"as of %s: assets %s != liabilities+equity+netIncome %s",
			asOf.Format("2006-01-02"), bs.Totals.Assets, rhs)
	}
}

func TestBalanceSheetSections(t *testing.T) {
	f := newFixture(t)
	f.post(t, date(2025, time.January, 5), "1000", "3000", "10000")
	f.post(t, date(2025, time.January, 20), "1000", "4000", "2500")

	bs, err := f.svc.BalanceSheet(actor, f.entity.ID, date(2025, time.January, 31))
	require.NoError(t, err)

	require.Len(t, bs.Assets, 1)
	assert.True(t, bs.Assets[0].Balance.Equal(dec("12500")))
	require.Len(t, bs.Equity, 1)
	assert.True(t, bs.Equity[0].Balance.Equal(dec("10000")))
	assert.True(t, bs.NetIncome.Equal(dec("2500")))
	assert.Empty(t, bs.Liabilities)
}

func TestIncomeStatement(t *testing.T) {
	f := newFixture(t)
	f.post(t, date(2025, time.January, 20), "1000", "4000", "2500")
	f.post(t, date(2025, time.January, 25), "1000", "4100", "500")
	f.post(t, date(2025, time.February, 3), "5200", "1000", "800")

	is, err := f.svc.IncomeStatement(actor, f.entity.ID,
		date(2025, time.January, 1), date(2025, time.February, 28))
	require.NoError(t, err)

	assert.True(t, is.Totals.Revenue.Equal(dec("3000")))
	assert.True(t, is.Totals.Expenses.Equal(dec("800")))
	assert.True(t, is.Totals.NetIncome.Equal(dec("2200")))
	assert.Len(t, is.Revenue, 2)
	assert.Len(t, is.Expenses, 1)
}

func TestIncomeStatementOutsideRangeExcluded(t *testing.T) {
	f := newFixture(t)
	f.post(t, date(2025, time.January, 20), "1000", "4000", "2500")

	is, err := f.svc.IncomeStatement(actor, f.entity.ID,
		date(2025, time.March, 1), date(2025, time.March, 31))
	require.NoError(t, err)
	assert.True(t, is.Totals.NetIncome.IsZero())
	assert.Empty(t, is.Revenue)
}

func TestReportsAreReadOnly(t *testing.T) {
	f := newFixture(t)
	f.post(t, date(2025, time.January, 10), "1000", "4000", "100")

	before, err := f.svc.TrialBalance(actor, f.entity.ID,
		date(2025, time.January, 1), date(2025, time.January, 31), LevelDetail)
	require.NoError(t, err)

	// Running the same report twice yields identical results.
	after, err := f.svc.TrialBalance(actor, f.entity.ID,
		date(2025, time.January, 1), date(2025, time.January, 31), LevelDetail)
	require.NoError(t, err)
	assert.Equal(t, len(before.Rows), len(after.Rows))
	assert.True(t, before.Totals.Debits.Equal(after.Totals.Debits))
}
