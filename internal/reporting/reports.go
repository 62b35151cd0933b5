package reporting

import (
	"github.com/shopspring/decimal"

	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/model"
)

// Period is a report's date range, ISO-8601.
type Period struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// TrialBalanceRow is one account's activity over the period.
type TrialBalanceRow struct {
	AccountNumber string            `json:"accountNumber"`
	AccountName   string            `json:"accountName"`
	AccountType   model.AccountType `json:"accountType"`
	Debits        decimal.Decimal   `json:"debits"`
	Credits       decimal.Decimal   `json:"credits"`
	Balance       decimal.Decimal   `json:"balance"`
}

// TrialBalanceTotals are the column sums of a trial balance.
type TrialBalanceTotals struct {
	Debits  decimal.Decimal `json:"debits"`
	Credits decimal.Decimal `json:"credits"`
}

// TrialBalanceReport is the per-account debit/credit report.
type TrialBalanceReport struct {
	Rows   []TrialBalanceRow  `json:"rows"`
	Totals TrialBalanceTotals `json:"totals"`
	Period Period             `json:"period"`
}

// AccountBalance is an account with its net amount, used by the
// balance sheet and income statement.
type AccountBalance struct {
	AccountNumber string          `json:"accountNumber"`
	AccountName   string          `json:"accountName"`
	Balance       decimal.Decimal `json:"balance"`
}

// BalanceSheetTotals are the section sums of a balance sheet.
type BalanceSheetTotals struct {
	Assets      decimal.Decimal `json:"assets"`
	Liabilities decimal.Decimal `json:"liabilities"`
	Equity      decimal.Decimal `json:"equity"`
}

// BalanceSheetReport partitions balances as of a date. Net income from
// Revenue/Expense folds into the equity side so that
// assets == liabilities + equity + netIncome.
type BalanceSheetReport struct {
	AsOfDate    string             `json:"asOfDate"`
	Assets      []AccountBalance   `json:"assets"`
	Liabilities []AccountBalance   `json:"liabilities"`
	Equity      []AccountBalance   `json:"equity"`
	NetIncome   decimal.Decimal    `json:"netIncome"`
	Totals      BalanceSheetTotals `json:"totals"`
}

// IncomeStatementTotals are the section sums of an income statement.
type IncomeStatementTotals struct {
	Revenue   decimal.Decimal `json:"revenue"`
	Expenses  decimal.Decimal `json:"expenses"`
	NetIncome decimal.Decimal `json:"netIncome"`
}

// IncomeStatementReport nets Revenue - Expense over a period.
type IncomeStatementReport struct {
	Period   Period                `json:"period"`
	Revenue  []AccountBalance      `json:"revenue"`
	Expenses []AccountBalance      `json:"expenses"`
	Totals   IncomeStatementTotals `json:"totals"`
}
