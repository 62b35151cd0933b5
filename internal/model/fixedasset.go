package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DepreciationMethod selects the depreciation calculation. Only
// straight-line is implemented; the other variants are declared so
// callers get a loud failure instead of a silent zero.
type DepreciationMethod string

const (
	DepreciationStraightLine     DepreciationMethod = "straight_line"
	DepreciationDecliningBalance DepreciationMethod = "declining_balance"
	DepreciationUnitsOfProduction DepreciationMethod = "units_of_production"
)

// Valid reports whether m is a declared depreciation method.
func (m DepreciationMethod) Valid() bool {
	switch m {
	case DepreciationStraightLine, DepreciationDecliningBalance, DepreciationUnitsOfProduction:
		return true
	}
	return false
}

// FixedAsset is a depreciable asset tied to one entity. BookValue never
// drops below SalvageValue.
type FixedAsset struct {
	ID               string
	TenantID         string
	EntityID         string
	Name             string
	AcquisitionCost  decimal.Decimal
	AcquiredAt       time.Time
	Method           DepreciationMethod
	UsefulLifeMonths int
	SalvageValue     decimal.Decimal
	BookValue        decimal.Decimal
	// Account numbers the monthly run posts against.
	ExpenseAccount     string
	AccumulatedAccount string
	Disposed           bool
	DisposedAt         time.Time
	CreatedAt          time.Time
}

// DepreciationEntry is one scheduled period of depreciation for an
// asset, linked to the journal entry that recorded it.
type DepreciationEntry struct {
	ID             string
	AssetID        string
	Year           int
	Month          int
	Amount         decimal.Decimal
	BookValueAfter decimal.Decimal
	JournalEntryID string
	CreatedAt      time.Time
}
