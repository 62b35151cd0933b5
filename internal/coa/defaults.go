package coa

import "github.com/wilcoxadvisors/wilcox-advisors-backend/internal/model"

// DefaultTemplates returns the canonical seed chart: 23 accounts
// spanning all five types, including the accumulated-depreciation pair
// used by the fixed-asset engine and the intercompany accounts used by
// consolidation.
func DefaultTemplates() []model.AccountTemplate {
	return []model.AccountTemplate{
		{Number: "1000", Name: "Cash", Type: model.AccountTypeAsset, FSLI: "Cash and Cash Equivalents"},
		{Number: "1100", Name: "Accounts Receivable", Type: model.AccountTypeAsset, FSLI: "Trade Receivables", Subledger: model.SubledgerAR},
		{Number: "1200", Name: "Inventory", Type: model.AccountTypeAsset, FSLI: "Inventories", Subledger: model.SubledgerInventory},
		{Number: "1300", Name: "Prepaid Expenses", Type: model.AccountTypeAsset, FSLI: "Other Current Assets"},
		{Number: "1400", Name: "Intercompany Receivable", Type: model.AccountTypeAsset, FSLI: "Intercompany Assets", Subledger: model.SubledgerAR, Intercompany: true},
		{Number: "1500", Name: "Property, Plant & Equipment", Type: model.AccountTypeAsset, FSLI: "Fixed Assets"},
		{Number: "1590", Name: "Accumulated Depreciation", Type: model.AccountTypeAsset, FSLI: "Fixed Assets", ParentNumber: "1500"},
		{Number: "1600", Name: "Investment in Subsidiaries", Type: model.AccountTypeAsset, FSLI: "Investments", Intercompany: true},
		{Number: "2000", Name: "Accounts Payable", Type: model.AccountTypeLiability, FSLI: "Trade Payables", Subledger: model.SubledgerAP},
		{Number: "2100", Name: "Accrued Liabilities", Type: model.AccountTypeLiability, FSLI: "Other Current Liabilities"},
		{Number: "2200", Name: "Intercompany Payable", Type: model.AccountTypeLiability, FSLI: "Intercompany Liabilities", Subledger: model.SubledgerAP, Intercompany: true},
		{Number: "2700", Name: "Long-Term Debt", Type: model.AccountTypeLiability, FSLI: "Borrowings"},
		{Number: "3000", Name: "Common Stock", Type: model.AccountTypeEquity, FSLI: "Share Capital"},
		{Number: "3100", Name: "Retained Earnings", Type: model.AccountTypeEquity, FSLI: "Retained Earnings"},
		{Number: "4000", Name: "Service Revenue", Type: model.AccountTypeRevenue, FSLI: "Revenue"},
		{Number: "4100", Name: "Product Revenue", Type: model.AccountTypeRevenue, FSLI: "Revenue"},
		{Number: "4200", Name: "Intercompany Revenue", Type: model.AccountTypeRevenue, FSLI: "Intercompany Revenue", Intercompany: true},
		{Number: "5000", Name: "Cost of Services", Type: model.AccountTypeExpense, FSLI: "Cost of Sales"},
		{Number: "5100", Name: "Salaries & Wages", Type: model.AccountTypeExpense, FSLI: "Operating Expenses", Subledger: model.SubledgerPayroll},
		{Number: "5200", Name: "Rent", Type: model.AccountTypeExpense, FSLI: "Operating Expenses"},
		{Number: "5300", Name: "Professional Services", Type: model.AccountTypeExpense, FSLI: "Operating Expenses"},
		{Number: "5500", Name: "Depreciation Expense", Type: model.AccountTypeExpense, FSLI: "Depreciation and Amortization"},
		{Number: "5600", Name: "Intercompany Expense", Type: model.AccountTypeExpense, FSLI: "Intercompany Expenses", Intercompany: true},
	}
}
