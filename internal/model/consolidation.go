package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConsolidationStatus tracks a consolidation run.
type ConsolidationStatus string

const (
	ConsolidationDraft      ConsolidationStatus = "draft"
	ConsolidationProcessing ConsolidationStatus = "processing"
	ConsolidationCompleted  ConsolidationStatus = "completed"
	ConsolidationError      ConsolidationStatus = "error"
)

// EliminationCategory tags why an intercompany balance was cancelled.
type EliminationCategory string

const (
	EliminationInvestment        EliminationCategory = "investment"
	EliminationReceivablePayable EliminationCategory = "receivable_payable"
	EliminationRevenueExpense    EliminationCategory = "revenue_expense"
	EliminationOther             EliminationCategory = "other"
)

// ConsolidationMember describes one included entity and how it folds in.
type ConsolidationMember struct {
	EntityID  string
	Ownership decimal.Decimal // percent, 0-100
	Method    ConsolidationMethod
}

// EliminationEntry is one consolidation adjustment removing an
// intercompany balance.
type EliminationEntry struct {
	ID              string
	ConsolidationID string
	Category        EliminationCategory
	AccountNumber   string
	Description     string
	Amount          decimal.Decimal // signed, in presentation currency
	RelatedEntityID string
}

// Consolidation is a snapshot of one consolidation run for a period.
// Re-running the same (entity, period) supersedes the prior snapshot.
type Consolidation struct {
	ID           string
	TenantID     string
	EntityID     string // the consolidated (parent) entity
	Year         int
	Month        int
	Status       ConsolidationStatus
	Currency     string
	Members      []ConsolidationMember
	Eliminations []EliminationEntry
	Report       string // JSON-encoded consolidated trial balance
	Error        string
	StartedAt    time.Time
	CompletedAt  time.Time
}
