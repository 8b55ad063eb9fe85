// Package accounting computes the financial reports the gateway builds from
// Odoo journal items, and the pro-rata aggregation used for budget lines.
package accounting

// Odoo account.account account_type values, grouped by report section
var (
	AssetTypes = []string{
		"asset_receivable",
		"asset_cash",
		"asset_current",
		"asset_non_current",
		"asset_prepayments",
		"asset_fixed",
	}
	LiabilityTypes = []string{
		"liability_payable",
		"liability_credit_card",
		"liability_current",
		"liability_non_current",
	}
	EquityTypes = []string{"equity", "equity_unaffected"}

	RevenueTypes = []string{"income", "income_other"}
	COGSTypes    = []string{"expense_direct_cost"}
	ExpenseTypes = []string{"expense", "expense_depreciation"}

	OperatingTypes = []string{"income", "income_other", "expense", "expense_direct_cost"}
	InvestingTypes = []string{"asset_fixed", "asset_non_current"}
	FinancingTypes = []string{"liability_non_current", "equity"}
)

// BalanceSheetTypes is the union of every account type shown on the balance sheet
func BalanceSheetTypes() []string {
	return concat(AssetTypes, LiabilityTypes, EquityTypes)
}

// ProfitLossTypes is the union of every account type shown on the P&L
func ProfitLossTypes() []string {
	return concat(RevenueTypes, COGSTypes, ExpenseTypes)
}

// CashFlowTypes is the union of every account type used by the cash flow report
func CashFlowTypes() []string {
	return dedupe(concat(OperatingTypes, InvestingTypes, FinancingTypes))
}

func concat(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
