package consolidation

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/apperr"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/audit"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/coa"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/database"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/journal"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/model"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/registry"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/reporting"
)

var actor = model.Actor{TenantID: "t1", UserID: "u1"}

type fixture struct {
	svc     *Service
	journal *journal.Service
	reg     *registry.Service
	parent  *model.Entity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := database.OpenTest(t)
	rec := audit.NewRecorder(db, zerolog.Nop())
	t.Cleanup(rec.Close)
	reg := registry.NewService(db, rec, zerolog.Nop())

	f := &fixture{
		svc:     NewService(db, rec, reg, zerolog.Nop()),
		journal: journal.NewService(db, rec, reg, journal.Options{}, zerolog.Nop()),
		reg:     reg,
	}
	f.parent = f.entity(t, db, rec, "HOLD", "Holding Co", "USD")
	return f
}

func (f *fixture) entity(t *testing.T, db *database.DB, rec *audit.Recorder, code, name, currency string) *model.Entity {
	t.Helper()
	e, err := f.reg.CreateEntity(actor, registry.EntityParams{
		Code: code, Name: name, Currency: currency})
	require.NoError(t, err)
	charts := coa.NewService(db, rec, f.reg, zerolog.Nop())
	chart, err := charts.CreateDefaultChart(actor, e.ID, "Standard")
	require.NoError(t, err)
	_, err = charts.InstantiateAccounts(actor, chart.ID)
	require.NoError(t, err)
	return e
}

func (f *fixture) post(t *testing.T, entityID string, d time.Time, debitAcct, creditAcct, amount string) {
	t.Helper()
	_, err := f.journal.PostEntry(actor, journal.PostParams{
		EntityID: entityID, Date: d,
		Lines: []journal.LineInput{
			{AccountNumber: debitAcct, Side: model.SideDebit, Amount: dec(amount)},
			{AccountNumber: creditAcct, Side: model.SideCredit, Amount: dec(amount)},
		},
	})
	require.NoError(t, err)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func report(t *testing.T, c *model.Consolidation) *reporting.TrialBalanceReport {
	t.Helper()
	var r reporting.TrialBalanceReport
	require.NoError(t, json.Unmarshal([]byte(c.Report), &r))
	return &r
}

func rowBalance(r *reporting.TrialBalanceReport, number string) decimal.Decimal {
	for _, row := range r.Rows {
		if row.AccountNumber == number {
			return row.Balance
		}
	}
	return decimal.Zero
}

// Full consolidation nets eliminated intercompany balances to zero.
func TestRunFullMethodEliminatesIntercompany(t *testing.T) {
	f := newFixture(t)
	db, rec := f.svc.db, f.svc.audit
	subA := f.entity(t, db, rec, "SUBA", "Sub A", "USD")
	subB := f.entity(t, db, rec, "SUBB", "Sub B", "USD")

	// A lends B 400: IC receivable in A, IC payable in B.
	f.post(t, subA.ID, date(2025, time.March, 5), "1400", "1000", "400")
	f.post(t, subB.ID, date(2025, time.March, 5), "1000", "2200", "400")
	// Regular activity.
	f.post(t, subA.ID, date(2025, time.March, 10), "1000", "4000", "900")
	f.post(t, subB.ID, date(2025, time.March, 12), "5200", "1000", "150")

	c, err := f.svc.Run(actor, RunParams{
		EntityID: f.parent.ID, Year: 2025, Month: 3,
		Members: []model.ConsolidationMember{
			{EntityID: subA.ID, Ownership: dec("100"), Method: model.MethodFull},
			{EntityID: subB.ID, Ownership: dec("100"), Method: model.MethodFull},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, model.ConsolidationCompleted, c.Status)

	r := report(t, c)
	assert.True(t, rowBalance(r, "1400").IsZero(), "IC receivable eliminated")
	assert.True(t, rowBalance(r, "2200").IsZero(), "IC payable eliminated")
	assert.True(t, rowBalance(r, "4000").Equal(dec("900")))
	assert.True(t, r.Totals.Debits.Equal(r.Totals.Credits),
		"totals still balance after elimination: %s vs %s", r.Totals.Debits, r.Totals.Credits)

	require.Len(t, c.Eliminations, 2)
	for _, e := range c.Eliminations {
		assert.Equal(t, model.EliminationReceivablePayable, e.Category)
	}
}

func TestRunProportionalScalesByOwnership(t *testing.T) {
	f := newFixture(t)
	db, rec := f.svc.db, f.svc.audit
	sub := f.entity(t, db, rec, "JV", "Joint Venture", "USD")
	f.post(t, sub.ID, date(2025, time.March, 10), "1000", "4000", "1000")

	c, err := f.svc.Run(actor, RunParams{
		EntityID: f.parent.ID, Year: 2025, Month: 3,
		Members: []model.ConsolidationMember{
			{EntityID: sub.ID, Ownership: dec("40"), Method: model.MethodProportional},
		},
	})
	require.NoError(t, err)

	r := report(t, c)
	assert.True(t, rowBalance(r, "1000").Equal(dec("400")))
	assert.True(t, rowBalance(r, "4000").Equal(dec("400")))
}

func TestRunEquityMethodCollapsesToInvestmentLine(t *testing.T) {
	f := newFixture(t)
	db, rec := f.svc.db, f.svc.audit
	assoc := f.entity(t, db, rec, "ASSC", "Associate", "USD")
	f.post(t, assoc.ID, date(2025, time.March, 5), "1000", "4000", "1000")
	f.post(t, assoc.ID, date(2025, time.March, 8), "1200", "2000", "500")

	c, err := f.svc.Run(actor, RunParams{
		EntityID: f.parent.ID, Year: 2025, Month: 3,
		Members: []model.ConsolidationMember{
			{EntityID: assoc.ID, Ownership: dec("30"), Method: model.MethodEquity},
		},
	})
	require.NoError(t, err)

	r := report(t, c)
	require.Len(t, r.Rows, 1, "associate collapses to a single line")
	assert.Equal(t, "1600", r.Rows[0].AccountNumber)
	// Net assets = 1000 + 500 - 500 = 1000; 30% share = 300.
	assert.True(t, r.Rows[0].Balance.Equal(dec("300")), "got %s", r.Rows[0].Balance)
}

func TestRunSkipsNotConsolidatedMembers(t *testing.T) {
	f := newFixture(t)
	db, rec := f.svc.db, f.svc.audit
	sub := f.entity(t, db, rec, "SUBA", "Sub A", "USD")
	other := f.entity(t, db, rec, "PASV", "Passive", "USD")
	f.post(t, sub.ID, date(2025, time.March, 10), "1000", "4000", "100")
	f.post(t, other.ID, date(2025, time.March, 10), "1000", "4000", "9999")

	c, err := f.svc.Run(actor, RunParams{
		EntityID: f.parent.ID, Year: 2025, Month: 3,
		Members: []model.ConsolidationMember{
			{EntityID: sub.ID, Method: model.MethodFull},
			{EntityID: other.ID, Method: model.MethodNotConsolidated},
		},
	})
	require.NoError(t, err)
	assert.True(t, report(t, c).Totals.Debits.Equal(dec("100")))
}

func TestRunTranslatesForeignCurrencyMembers(t *testing.T) {
	f := newFixture(t)
	db, rec := f.svc.db, f.svc.audit
	sub := f.entity(t, db, rec, "EUSB", "Euro Sub", "EUR")
	f.post(t, sub.ID, date(2025, time.March, 10), "1000", "4000", "200")

	require.NoError(t, f.svc.SetExchangeRate(actor, "EUR", "USD", date(2025, time.March, 1), dec("1.10")))
	// A later rate outside the period must not win.
	require.NoError(t, f.svc.SetExchangeRate(actor, "EUR", "USD", date(2025, time.April, 15), dec("2")))

	c, err := f.svc.Run(actor, RunParams{
		EntityID: f.parent.ID, Year: 2025, Month: 3,
		Members: []model.ConsolidationMember{
			{EntityID: sub.ID, Method: model.MethodFull},
		},
	})
	require.NoError(t, err)
	assert.True(t, rowBalance(report(t, c), "1000").Equal(dec("220")))
}

func TestRunMissingRatePersistsErrorStatus(t *testing.T) {
	f := newFixture(t)
	db, rec := f.svc.db, f.svc.audit
	sub := f.entity(t, db, rec, "EUSB", "Euro Sub", "EUR")
	f.post(t, sub.ID, date(2025, time.March, 10), "1000", "4000", "200")

	_, err := f.svc.Run(actor, RunParams{
		EntityID: f.parent.ID, Year: 2025, Month: 3,
		Members: []model.ConsolidationMember{
			{EntityID: sub.ID, Method: model.MethodFull},
		},
	})
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))

	c, err := f.svc.Get(actor, f.parent.ID, 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, model.ConsolidationError, c.Status)
	assert.Contains(t, c.Error, "no exchange rate")
}

func TestRerunSupersedesPriorSnapshot(t *testing.T) {
	f := newFixture(t)
	db, rec := f.svc.db, f.svc.audit
	sub := f.entity(t, db, rec, "SUBA", "Sub A", "USD")
	f.post(t, sub.ID, date(2025, time.March, 10), "1000", "4000", "100")

	members := []model.ConsolidationMember{{EntityID: sub.ID, Method: model.MethodFull}}
	first, err := f.svc.Run(actor, RunParams{EntityID: f.parent.ID, Year: 2025, Month: 3, Members: members})
	require.NoError(t, err)

	f.post(t, sub.ID, date(2025, time.March, 20), "1000", "4000", "50")
	second, err := f.svc.Run(actor, RunParams{EntityID: f.parent.ID, Year: 2025, Month: 3, Members: members})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	got, err := f.svc.Get(actor, f.parent.ID, 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
	assert.True(t, report(t, got).Totals.Debits.Equal(dec("150")))
	require.Len(t, got.Members, 1)
	assert.Equal(t, sub.ID, got.Members[0].EntityID)
}

func TestRunValidation(t *testing.T) {
	f := newFixture(t)
	db, rec := f.svc.db, f.svc.audit
	sub := f.entity(t, db, rec, "SUBA", "Sub A", "USD")
	member := model.ConsolidationMember{EntityID: sub.ID, Method: model.MethodFull}

	cases := []struct {
		name string
		p    RunParams
	}{
		{"no members", RunParams{EntityID: f.parent.ID, Year: 2025, Month: 3}},
		{"bad month", RunParams{EntityID: f.parent.ID, Year: 2025, Month: 13,
			Members: []model.ConsolidationMember{member}}},
		{"ownership out of range", RunParams{EntityID: f.parent.ID, Year: 2025, Month: 3,
			Members: []model.ConsolidationMember{{EntityID: sub.ID, Ownership: dec("150"), Method: model.MethodFull}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Run(actor, tc.p)
			assert.True(t, apperr.IsValidation(err), "got %v", err)
		})
	}

	_, err := f.svc.Run(actor, RunParams{EntityID: "nope", Year: 2025, Month: 3,
		Members: []model.ConsolidationMember{member}})
	assert.True(t, apperr.IsNotFound(err))
}

func TestGetUnknownPeriod(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Get(actor, f.parent.ID, 2030, 1)
	assert.True(t, apperr.IsNotFound(err))
}

func TestSetExchangeRateValidation(t *testing.T) {
	f := newFixture(t)
	d := date(2025, time.March, 1)
	assert.True(t, apperr.IsValidation(f.svc.SetExchangeRate(actor, "EU", "USD", d, dec("1"))))
	assert.True(t, apperr.IsValidation(f.svc.SetExchangeRate(actor, "USD", "USD", d, dec("1"))))
	assert.True(t, apperr.IsValidation(f.svc.SetExchangeRate(actor, "EUR", "USD", d, dec("0"))))
}
