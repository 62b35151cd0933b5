package journal

import (
	"github.com/shopspring/decimal"

	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/apperr"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/model"
)

// balanceTolerance is the maximum allowed absolute difference between
// total debits and total credits.
var balanceTolerance = decimal.New(1, -2) // 0.01

// LineInput is one requested debit or credit of a posting.
type LineInput struct {
	AccountNumber   string
	Side            model.Side
	Amount          decimal.Decimal
	Description     string
	RelatedEntityID string
	EliminationRef  string
}

// ValidateLines enforces the pre-write invariants on a posting's lines:
// at least two lines, a valid side and a positive amount with at most
// two decimal places per line.
func ValidateLines(lines []LineInput) error {
	if len(lines) < 2 {
		return apperr.Validation("a journal entry needs at least two lines")
	}
	hundred := decimal.NewFromInt(100)
	for i, l := range lines {
		if l.AccountNumber == "" {
			return apperr.Validation("line %d: account number is required", i+1)
		}
		if !l.Side.Valid() {
			return apperr.Validation("line %d: side must be debit or credit", i+1)
		}
		if !l.Amount.IsPositive() {
			return apperr.Validation("line %d: amount must be positive", i+1)
		}
		if !l.Amount.Mul(hundred).Equal(l.Amount.Mul(hundred).Floor()) {
			return apperr.Validation("line %d: amount %s has more than 2 decimal places", i+1, l.Amount)
		}
	}
	return nil
}

// SumSides totals the debit and credit columns.
func SumSides(lines []LineInput) (debits, credits decimal.Decimal) {
	debits, credits = decimal.Zero, decimal.Zero
	for _, l := range lines {
		if l.Side == model.SideDebit {
			debits = debits.Add(l.Amount)
		} else {
			credits = credits.Add(l.Amount)
		}
	}
	return debits, credits
}

// CheckBalanced rejects a line set whose debit/credit difference
// exceeds the tolerance.
func CheckBalanced(lines []LineInput) error {
	debits, credits := SumSides(lines)
	if diff := debits.Sub(credits).Abs(); diff.GreaterThan(balanceTolerance) {
		return apperr.Unbalanced("debits (%s) != credits (%s), off by %s",
			debits.StringFixed(2), credits.StringFixed(2), diff.StringFixed(2))
	}
	return nil
}
