package journal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/apperr"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/model"
)

func TestCheckBalanced(t *testing.T) {
	tests := []struct {
		name    string
		debit   string
		credit  string
		wantErr bool
	}{
		{"exact", "100.00", "100.00", false},
		{"one cent off", "100.00", "99.99", false},
		{"two cents off", "100.00", "99.98", true},
		{"wildly off", "100.00", "50.00", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckBalanced([]LineInput{
				{AccountNumber: "1000", Side: model.SideDebit, Amount: dec(tt.debit)},
				{AccountNumber: "4000", Side: model.SideCredit, Amount: dec(tt.credit)},
			})
			if tt.wantErr {
				assert.True(t, apperr.IsUnbalanced(err), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSumSides(t *testing.T) {
	debits, credits := SumSides([]LineInput{
		{Side: model.SideDebit, Amount: dec("30")},
		{Side: model.SideDebit, Amount: dec("70")},
		{Side: model.SideCredit, Amount: dec("100")},
	})
	assert.True(t, debits.Equal(dec("100")))
	assert.True(t, credits.Equal(dec("100")))
}

func TestValidateLinesMultiLine(t *testing.T) {
	// A compound entry with several lines per side is fine.
	err := ValidateLines([]LineInput{
		{AccountNumber: "1000", Side: model.SideDebit, Amount: dec("60")},
		{AccountNumber: "1100", Side: model.SideDebit, Amount: dec("40")},
		{AccountNumber: "4000", Side: model.SideCredit, Amount: dec("100")},
	})
	assert.NoError(t, err)
}

func TestValidateLinesMissingAccount(t *testing.T) {
	err := ValidateLines([]LineInput{
		{Side: model.SideDebit, Amount: dec("60")},
		{AccountNumber: "4000", Side: model.SideCredit, Amount: dec("60")},
	})
	assert.True(t, apperr.IsValidation(err))
}
