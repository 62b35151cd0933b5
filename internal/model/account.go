package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType classifies accounts in the chart of accounts.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

// Valid reports whether t is one of the five account types.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity,
		AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// DebitPositive reports the sign convention for the type: asset and
// expense accounts grow with debits, the rest grow with credits.
func (t AccountType) DebitPositive() bool {
	return t == AccountTypeAsset || t == AccountTypeExpense
}

// SubledgerType is a secondary classification used for drill-down.
type SubledgerType string

const (
	SubledgerNone      SubledgerType = ""
	SubledgerAP        SubledgerType = "accounts_payable"
	SubledgerAR        SubledgerType = "accounts_receivable"
	SubledgerPayroll   SubledgerType = "payroll"
	SubledgerInventory SubledgerType = "inventory"
)

// ChartOfAccounts is a named, versioned template catalogue owned by one
// entity. Version is a true optimistic-concurrency token: chart
// mutations carry the expected version and fail on mismatch.
type ChartOfAccounts struct {
	ID        string
	TenantID  string
	EntityID  string
	Name      string // unique per entity
	Version   int
	CreatedAt time.Time
	Templates []AccountTemplate
}

// AccountTemplate is one row of a chart of accounts.
type AccountTemplate struct {
	ID           string
	ChartID      string
	Number       string // unique within the chart
	Name         string
	Type         AccountType
	FSLI         string // financial statement line item category
	Subledger    SubledgerType
	ParentNumber string // "" = top-level
	Intercompany bool
}

// Account is a live ledger account. Number and Type are immutable after
// creation; Balance is written only by the journal engine.
type Account struct {
	ID           string
	TenantID     string
	EntityID     string
	ChartID      string
	Number       string // unique per (entity, chart)
	Name         string
	Type         AccountType
	Subledger    SubledgerType
	ParentID     string // "" = top-level
	Intercompany bool
	Currency     string
	Active       bool
	Balance      decimal.Decimal
	CreatedAt    time.Time
}

// SignedDelta returns the balance movement a line causes on an account
// of type t: debit-positive types gain on debits, the others on
// credits.
func SignedDelta(t AccountType, side Side, amount decimal.Decimal) decimal.Decimal {
	if (side == SideDebit) == t.DebitPositive() {
		return amount
	}
	return amount.Neg()
}
