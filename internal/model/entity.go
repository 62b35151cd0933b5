package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Actor carries the resolved identity supplied by the external auth
// layer. The core never authenticates credentials; it only scopes
// reads and writes by tenant and records who acted.
type Actor struct {
	TenantID string
	UserID   string
}

// ConsolidationMethod controls how an entity's ledger is folded into a
// consolidated statement.
type ConsolidationMethod string

const (
	MethodFull            ConsolidationMethod = "full"
	MethodProportional    ConsolidationMethod = "proportional"
	MethodEquity          ConsolidationMethod = "equity"
	MethodNotConsolidated ConsolidationMethod = "not_consolidated"
)

// Valid reports whether m is a known consolidation method.
func (m ConsolidationMethod) Valid() bool {
	switch m {
	case MethodFull, MethodProportional, MethodEquity, MethodNotConsolidated:
		return true
	}
	return false
}

// Entity is a legal unit owning its own chart, accounts and journal.
type Entity struct {
	ID        string
	TenantID  string
	Code      string // unique per tenant
	Name      string
	Currency  string
	ParentID  string // "" = top-level
	Ownership decimal.Decimal
	Method    ConsolidationMethod
	Active    bool
	CreatedAt time.Time
}
