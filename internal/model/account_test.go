package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSignedDelta(t *testing.T) {
	amt := decimal.RequireFromString("500")
	tests := []struct {
		accountType AccountType
		side        Side
		want        string
	}{
		{AccountTypeAsset, SideDebit, "500"},
		{AccountTypeAsset, SideCredit, "-500"},
		{AccountTypeExpense, SideDebit, "500"},
		{AccountTypeExpense, SideCredit, "-500"},
		{AccountTypeLiability, SideDebit, "-500"},
		{AccountTypeLiability, SideCredit, "500"},
		{AccountTypeEquity, SideCredit, "500"},
		{AccountTypeRevenue, SideDebit, "-500"},
		{AccountTypeRevenue, SideCredit, "500"},
	}
	for _, tt := range tests {
		got := SignedDelta(tt.accountType, tt.side, amt)
		assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
			"SignedDelta(%s, %s) = %s, want %s", tt.accountType, tt.side, got, tt.want)
	}
}

func TestAccountTypeValid(t *testing.T) {
	assert.True(t, AccountTypeAsset.Valid())
	assert.True(t, AccountTypeRevenue.Valid())
	assert.False(t, AccountType("contra").Valid())
}
