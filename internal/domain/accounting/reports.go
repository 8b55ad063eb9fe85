package accounting

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// TypeBalance is the debit/credit total of every journal item posted on
// accounts of one account type.
type TypeBalance struct {
	AccountType string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// Balances indexes type balances by account type
type Balances map[string]TypeBalance

// NewBalances merges rows that share an account type
func NewBalances(rows []TypeBalance) Balances {
	b := make(Balances, len(rows))
	for _, r := range rows {
		cur := b[r.AccountType]
		cur.AccountType = r.AccountType
		cur.Debit = cur.Debit.Add(r.Debit)
		cur.Credit = cur.Credit.Add(r.Credit)
		b[r.AccountType] = cur
	}
	return b
}

// DebitBalance sums debit - credit over the given types
func (b Balances) DebitBalance(types []string) decimal.Decimal {
	total := decimal.Zero
	for _, t := range types {
		if row, ok := b[t]; ok {
			total = total.Add(row.Debit.Sub(row.Credit))
		}
	}
	return total
}

// CreditBalance sums credit - debit over the given types
func (b Balances) CreditBalance(types []string) decimal.Decimal {
	return b.DebitBalance(types).Neg()
}

// BalanceSheet is the statement of financial position at a date
type BalanceSheet struct {
	Date         string          `json:"date"`
	Assets       decimal.Decimal `json:"assets"`
	Liabilities  decimal.Decimal `json:"liabilities"`
	Equity       decimal.Decimal `json:"equity"`
	BalanceCheck decimal.Decimal `json:"balance_check"` // assets - (liabilities + equity), zero when balanced
}

// NewBalanceSheet computes the balance sheet from type balances
func NewBalanceSheet(date time.Time, b Balances) BalanceSheet {
	assets := b.DebitBalance(AssetTypes)
	liabilities := b.CreditBalance(LiabilityTypes)
	equity := b.CreditBalance(EquityTypes)
	return BalanceSheet{
		Date:         date.Format(time.DateOnly),
		Assets:       assets,
		Liabilities:  liabilities,
		Equity:       equity,
		BalanceCheck: assets.Sub(liabilities.Add(equity)),
	}
}

// ProfitLoss is the income statement for a period
type ProfitLoss struct {
	DateFrom      string          `json:"date_from"`
	DateTo        string          `json:"date_to"`
	Revenue       decimal.Decimal `json:"revenue"`
	COGS          decimal.Decimal `json:"cogs"`
	GrossProfit   decimal.Decimal `json:"gross_profit"`
	Expenses      decimal.Decimal `json:"expenses"`
	NetProfit     decimal.Decimal `json:"net_profit"`
	MarginPercent decimal.Decimal `json:"margin_percent"`
}

// NewProfitLoss computes the income statement from type balances
func NewProfitLoss(from, to time.Time, b Balances) ProfitLoss {
	revenue := b.CreditBalance(RevenueTypes)
	cogs := b.DebitBalance(COGSTypes)
	expenses := b.DebitBalance(ExpenseTypes)
	gross := revenue.Sub(cogs)
	net := gross.Sub(expenses)
	return ProfitLoss{
		DateFrom:      formatDate(from),
		DateTo:        formatDate(to),
		Revenue:       revenue,
		COGS:          cogs,
		GrossProfit:   gross,
		Expenses:      expenses,
		NetProfit:     net,
		MarginPercent: Percent(net, revenue),
	}
}

// CashFlow is an indirect cash flow summary for a period
type CashFlow struct {
	DateFrom  string          `json:"date_from"`
	DateTo    string          `json:"date_to"`
	Operating decimal.Decimal `json:"operating"`
	Investing decimal.Decimal `json:"investing"`
	Financing decimal.Decimal `json:"financing"`
	Net       decimal.Decimal `json:"net"`
}

// NewCashFlow computes the cash flow summary from type balances
func NewCashFlow(from, to time.Time, b Balances) CashFlow {
	operating := b.CreditBalance(OperatingTypes)
	investing := b.DebitBalance(InvestingTypes)
	financing := b.CreditBalance(FinancingTypes)
	return CashFlow{
		DateFrom:  formatDate(from),
		DateTo:    formatDate(to),
		Operating: operating,
		Investing: investing,
		Financing: financing,
		Net:       operating.Add(investing).Add(financing),
	}
}

// Percent returns part/whole*100 rounded to 2 places, or 0 when whole is 0
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100)).Round(2)
}

// OpenInvoice is a posted invoice with an outstanding residual
type OpenInvoice struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	PartnerID   int             `json:"partner_id"`
	PartnerName string          `json:"partner_name"`
	InvoiceDate time.Time       `json:"-"`
	DueDate     time.Time       `json:"-"`
	Total       decimal.Decimal `json:"amount_total"`
	Residual    decimal.Decimal `json:"amount_residual"`
	DaysOverdue int             `json:"days_overdue"`
}

// AgingBucket groups open invoices of one age range
type AgingBucket struct {
	Invoices []OpenInvoice   `json:"invoices"`
	Total    decimal.Decimal `json:"total"`
}

func (b *AgingBucket) add(inv OpenInvoice) {
	b.Invoices = append(b.Invoices, inv)
	b.Total = b.Total.Add(inv.Residual)
}

// Aged receivable bucket names
const (
	BucketCurrent = "current"
	Bucket1To30   = "1-30_days"
	Bucket31To60  = "31-60_days"
	Bucket61To90  = "61-90_days"
	Bucket90Plus  = "90+_days"
)

// AgedReceivables is the aged receivables report at a date
type AgedReceivables struct {
	Date             string                  `json:"date"`
	Buckets          map[string]*AgingBucket `json:"buckets"`
	TotalOutstanding decimal.Decimal         `json:"total_outstanding"`
}

// NewAgedReceivables buckets invoices by days past their due date. Invoices
// without a due date age from their invoice date.
func NewAgedReceivables(asOf time.Time, invoices []OpenInvoice) AgedReceivables {
	report := AgedReceivables{
		Date: asOf.Format(time.DateOnly),
		Buckets: map[string]*AgingBucket{
			BucketCurrent: {Invoices: []OpenInvoice{}},
			Bucket1To30:   {Invoices: []OpenInvoice{}},
			Bucket31To60:  {Invoices: []OpenInvoice{}},
			Bucket61To90:  {Invoices: []OpenInvoice{}},
			Bucket90Plus:  {Invoices: []OpenInvoice{}},
		},
	}
	for _, inv := range invoices {
		// An invoice without a due date is never overdue
		inv.DaysOverdue = 0
		if !inv.DueDate.IsZero() {
			inv.DaysOverdue = DaysBetween(inv.DueDate, asOf)
		}
		report.Buckets[OverdueBucket(inv.DaysOverdue)].add(inv)
		report.TotalOutstanding = report.TotalOutstanding.Add(inv.Residual)
	}
	return report
}

// OverdueBucket names the aged receivables bucket for a number of days overdue
func OverdueBucket(days int) string {
	switch {
	case days <= 0:
		return BucketCurrent
	case days <= 30:
		return Bucket1To30
	case days <= 60:
		return Bucket31To60
	case days <= 90:
		return Bucket61To90
	}
	return Bucket90Plus
}

// Debtor is a customer's total outstanding amount
type Debtor struct {
	PartnerID    int             `json:"partner_id"`
	PartnerName  string          `json:"partner_name"`
	Amount       decimal.Decimal `json:"amount"`
	InvoiceCount int             `json:"invoice_count"`
}

// ReceivablesSummary is the business dashboard view of unpaid invoices,
// bucketed by invoice age rather than due date.
type ReceivablesSummary struct {
	Buckets      map[string]decimal.Decimal `json:"aging"`
	TopDebtors   []Debtor                   `json:"top_debtors"`
	TotalUnpaid  decimal.Decimal            `json:"total_unpaid"`
	InvoiceCount int                        `json:"invoice_count"`
}

// NewReceivablesSummary summarizes unpaid invoices at asOf, keeping the
// topN debtors by amount.
func NewReceivablesSummary(asOf time.Time, invoices []OpenInvoice, topN int) ReceivablesSummary {
	s := ReceivablesSummary{
		Buckets: map[string]decimal.Decimal{
			"0-30":  decimal.Zero,
			"30-60": decimal.Zero,
			"60-90": decimal.Zero,
			"90+":   decimal.Zero,
		},
		TopDebtors:   []Debtor{},
		InvoiceCount: len(invoices),
	}

	debtors := map[int]*Debtor{}
	for _, inv := range invoices {
		age := DaysBetween(inv.InvoiceDate, asOf)
		var key string
		switch {
		case age <= 30:
			key = "0-30"
		case age <= 60:
			key = "30-60"
		case age <= 90:
			key = "60-90"
		default:
			key = "90+"
		}
		s.Buckets[key] = s.Buckets[key].Add(inv.Residual)
		s.TotalUnpaid = s.TotalUnpaid.Add(inv.Residual)

		d, ok := debtors[inv.PartnerID]
		if !ok {
			d = &Debtor{PartnerID: inv.PartnerID, PartnerName: inv.PartnerName}
			debtors[inv.PartnerID] = d
		}
		d.Amount = d.Amount.Add(inv.Residual)
		d.InvoiceCount++
	}

	for _, d := range debtors {
		s.TopDebtors = append(s.TopDebtors, *d)
	}
	sort.Slice(s.TopDebtors, func(i, j int) bool {
		if s.TopDebtors[i].Amount.Equal(s.TopDebtors[j].Amount) {
			return s.TopDebtors[i].PartnerID < s.TopDebtors[j].PartnerID
		}
		return s.TopDebtors[i].Amount.GreaterThan(s.TopDebtors[j].Amount)
	})
	if topN > 0 && len(s.TopDebtors) > topN {
		s.TopDebtors = s.TopDebtors[:topN]
	}
	return s
}

// TaxAmount is a per-tax balance from journal items
type TaxAmount struct {
	TaxID   int
	TaxName string
	Amount  decimal.Decimal
}

// TaxLine is one row of the tax report
type TaxLine struct {
	TaxID     int             `json:"tax_id"`
	TaxName   string          `json:"tax_name"`
	Base      decimal.Decimal `json:"base"`
	TaxAmount decimal.Decimal `json:"tax_amount"`
	Total     decimal.Decimal `json:"total"`
}

// NewTaxReport joins base amounts (items carrying the tax) with tax amounts
// (items generated by the tax), ordered by tax name.
func NewTaxReport(bases, taxes []TaxAmount) []TaxLine {
	rows := map[int]*TaxLine{}
	get := func(a TaxAmount) *TaxLine {
		row, ok := rows[a.TaxID]
		if !ok {
			row = &TaxLine{TaxID: a.TaxID, TaxName: a.TaxName}
			rows[a.TaxID] = row
		}
		if row.TaxName == "" {
			row.TaxName = a.TaxName
		}
		return row
	}
	for _, b := range bases {
		row := get(b)
		row.Base = row.Base.Add(b.Amount)
	}
	for _, t := range taxes {
		row := get(t)
		row.TaxAmount = row.TaxAmount.Add(t.Amount)
	}

	out := make([]TaxLine, 0, len(rows))
	for _, row := range rows {
		row.Total = row.Base.Add(row.TaxAmount)
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TaxName == out[j].TaxName {
			return out[i].TaxID < out[j].TaxID
		}
		return out[i].TaxName < out[j].TaxName
	})
	return out
}

// DaysBetween returns the whole days from a to b, ignoring time of day
func DaysBetween(a, b time.Time) int {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}
