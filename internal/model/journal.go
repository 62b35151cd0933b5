package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryStatus represents the lifecycle state of a journal entry.
// Entries transition posted -> reversed and are never edited or
// hard-deleted; draft exists for entries staged before posting.
type EntryStatus string

const (
	StatusDraft    EntryStatus = "draft"
	StatusPosted   EntryStatus = "posted"
	StatusReversed EntryStatus = "reversed"
)

// Side marks which column of the ledger a line lands in.
type Side string

const (
	SideDebit  Side = "debit"
	SideCredit Side = "credit"
)

// Valid reports whether s is debit or credit.
func (s Side) Valid() bool {
	return s == SideDebit || s == SideCredit
}

// JournalEntry is the header of a balanced double-entry posting.
type JournalEntry struct {
	ID           string
	TenantID     string
	EntityID     string
	EntryNumber  string // "{year}-{month:02}-{seq:05}", unique per entity
	Date         time.Time
	Year         int
	Month        int
	Description  string
	Status       EntryStatus
	Total        decimal.Decimal // sum of debit lines
	Currency     string
	ExchangeRate decimal.Decimal
	ReversalOf   string // id of the entry this one reverses, "" otherwise
	ReversedBy   string // id of the mirroring reversal, "" otherwise
	CreatedAt    time.Time
	Lines        []TransactionLine
}

// TransactionLine is a single debit or credit against one account.
// Lines of posted entries are immutable; corrections happen only via a
// mirrored reversal entry.
type TransactionLine struct {
	ID              string
	EntryID         string
	LineNo          int
	AccountID       string
	AccountNumber   string
	Side            Side
	Amount          decimal.Decimal
	Description     string
	RelatedEntityID string // set on intercompany lines
	EliminationRef  string
}
