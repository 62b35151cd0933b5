// Package reporting computes trial balance, balance sheet and income
// statement. All reads recompute from transaction history, never from
// materialized snapshots, and never block posting.
package reporting

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/database"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/model"
)

const dateLayout = "2006-01-02"

// Level selects trial-balance granularity.
type Level string

const (
	LevelDetail  Level = "detail"
	LevelSummary Level = "summary" // regrouped by 2-digit account prefix
)

// Service provides read-side report computation.
type Service struct {
	db  *database.DB
	log zerolog.Logger
}

// NewService creates a reporting Service.
func NewService(db *database.DB, log zerolog.Logger) *Service {
	return &Service{
		db:  db,
		log: log.With().Str("component", "reporting").Logger(),
	}
}

// accountActivity is the per-account aggregate every report starts
// from.
type accountActivity struct {
	number  string
	name    string
	accType model.AccountType
	debits  decimal.Decimal
	credits decimal.Decimal
}

// balance returns the signed net per the account type's convention.
func (a accountActivity) balance() decimal.Decimal {
	if a.accType.DebitPositive() {
		return a.debits.Sub(a.credits)
	}
	return a.credits.Sub(a.debits)
}

// TrialBalance computes per-account debit/credit totals over the range.
// Summary level regroups rows by the first two digits of the account
// number.
func (s *Service) TrialBalance(actor model.Actor, entityID string, from, to time.Time, level Level) (*TrialBalanceReport, error) {
	activity, err := s.activity(actor, entityID, from, to)
	if err != nil {
		return nil, err
	}
	if level == LevelSummary {
		activity = summarize(activity)
	}

	report := &TrialBalanceReport{
		Totals: TrialBalanceTotals{Debits: decimal.Zero, Credits: decimal.Zero},
		Period: Period{From: from.Format(dateLayout), To: to.Format(dateLayout)},
	}
	for _, a := range activity {
		report.Rows = append(report.Rows, TrialBalanceRow{
			AccountNumber: a.number,
			AccountName:   a.name,
			AccountType:   a.accType,
			Debits:        a.debits,
			Credits:       a.credits,
			Balance:       a.balance(),
		})
		report.Totals.Debits = report.Totals.Debits.Add(a.debits)
		report.Totals.Credits = report.Totals.Credits.Add(a.credits)
	}
	return report, nil
}

// BalanceSheet partitions inception-to-date balances into assets,
// liabilities and equity, with net income folded in so the accounting
// identity holds for any as-of date.
func (s *Service) BalanceSheet(actor model.Actor, entityID string, asOf time.Time) (*BalanceSheetReport, error) {
	activity, err := s.activity(actor, entityID, time.Time{}, asOf)
	if err != nil {
		return nil, err
	}

	report := &BalanceSheetReport{
		AsOfDate:  asOf.Format(dateLayout),
		NetIncome: decimal.Zero,
		Totals: BalanceSheetTotals{
			Assets: decimal.Zero, Liabilities: decimal.Zero, Equity: decimal.Zero,
		},
	}
	for _, a := range activity {
		entry := AccountBalance{AccountNumber: a.number, AccountName: a.name, Balance: a.balance()}
		switch a.accType {
		case model.AccountTypeAsset:
			report.Assets = append(report.Assets, entry)
			report.Totals.Assets = report.Totals.Assets.Add(entry.Balance)
		case model.AccountTypeLiability:
			report.Liabilities = append(report.Liabilities, entry)
			report.Totals.Liabilities = report.Totals.Liabilities.Add(entry.Balance)
		case model.AccountTypeEquity:
			report.Equity = append(report.Equity, entry)
			report.Totals.Equity = report.Totals.Equity.Add(entry.Balance)
		case model.AccountTypeRevenue:
			report.NetIncome = report.NetIncome.Add(a.balance())
		case model.AccountTypeExpense:
			report.NetIncome = report.NetIncome.Sub(a.balance())
		}
	}
	return report, nil
}

// IncomeStatement nets revenue against expenses over the range.
func (s *Service) IncomeStatement(actor model.Actor, entityID string, from, to time.Time) (*IncomeStatementReport, error) {
	activity, err := s.activity(actor, entityID, from, to)
	if err != nil {
		return nil, err
	}

	report := &IncomeStatementReport{
		Period: Period{From: from.Format(dateLayout), To: to.Format(dateLayout)},
		Totals: IncomeStatementTotals{
			Revenue: decimal.Zero, Expenses: decimal.Zero, NetIncome: decimal.Zero,
		},
	}
	for _, a := range activity {
		entry := AccountBalance{AccountNumber: a.number, AccountName: a.name, Balance: a.balance()}
		switch a.accType {
		case model.AccountTypeRevenue:
			report.Revenue = append(report.Revenue, entry)
			report.Totals.Revenue = report.Totals.Revenue.Add(entry.Balance)
		case model.AccountTypeExpense:
			report.Expenses = append(report.Expenses, entry)
			report.Totals.Expenses = report.Totals.Expenses.Add(entry.Balance)
		}
	}
	report.Totals.NetIncome = report.Totals.Revenue.Sub(report.Totals.Expenses)
	return report, nil
}

// activity aggregates posted lines per account over [from, to]. A zero
// from means inception. Reversed originals and their mirroring
// reversals are both included, so a reversed pair nets to zero.
func (s *Service) activity(actor model.Actor, entityID string, from, to time.Time) ([]accountActivity, error) {
	query := `SELECT a.number, a.name, a.type, l.side, l.amount
		FROM journal_lines l
		JOIN journal_entries e ON e.id = l.entry_id
		JOIN accounts a ON a.id = l.account_id
		WHERE e.entity_id = ? AND e.tenant_id = ? AND e.status != 'draft' AND e.entry_date <= ?`
	args := []any{entityID, actor.TenantID, to.Format(dateLayout)}
	if !from.IsZero() {
		query += ` AND e.entry_date >= ?`
		args = append(args, from.Format(dateLayout))
	}

	rows, err := s.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying ledger activity: %w", err)
	}
	defer rows.Close()

	byNumber := map[string]*accountActivity{}
	for rows.Next() {
		var number, name, accType, side, raw string
		if err := rows.Scan(&number, &name, &accType, &side, &raw); err != nil {
			return nil, fmt.Errorf("scanning activity: %w", err)
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing amount: %w", err)
		}

		a, ok := byNumber[number]
		if !ok {
			a = &accountActivity{
				number:  number,
				name:    name,
				accType: model.AccountType(accType),
				debits:  decimal.Zero,
				credits: decimal.Zero,
			}
			byNumber[number] = a
		}
		if model.Side(side) == model.SideDebit {
			a.debits = a.debits.Add(amount)
		} else {
			a.credits = a.credits.Add(amount)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	activity := make([]accountActivity, 0, len(byNumber))
	for _, a := range byNumber {
		activity = append(activity, *a)
	}
	sort.Slice(activity, func(i, j int) bool { return activity[i].number < activity[j].number })
	return activity, nil
}

// summarize regroups activity by 2-digit account prefix. Each group
// keeps the type of its first account for the sign convention; the
// default numbering scheme keeps prefixes homogeneous.
func summarize(activity []accountActivity) []accountActivity {
	grouped := map[string]*accountActivity{}
	var order []string
	for _, a := range activity {
		prefix := a.number
		if len(prefix) > 2 {
			prefix = prefix[:2]
		}
		g, ok := grouped[prefix]
		if !ok {
			g = &accountActivity{
				number:  prefix,
				name:    prefix + "xx",
				accType: a.accType,
				debits:  decimal.Zero,
				credits: decimal.Zero,
			}
			grouped[prefix] = g
			order = append(order, prefix)
		}
		g.debits = g.debits.Add(a.debits)
		g.credits = g.credits.Add(a.credits)
	}

	sort.Strings(order)
	out := make([]accountActivity, 0, len(order))
	for _, prefix := range order {
		out = append(out, *grouped[prefix])
	}
	return out
}
