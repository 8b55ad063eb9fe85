package business

import (
	"github.com/shopspring/decimal"

	"github.com/safee-analytics/odoo/internal/infrastructure/odoo"
)

// SalesDashboard aggregates confirmed sales
type SalesDashboard struct {
	RevenueByState []odoo.Record `json:"revenue_by_state"`
	TopCustomers   []odoo.Record `json:"top_customers"`
	MonthlyRevenue []odoo.Record `json:"monthly_revenue"`
	BySalesperson  []odoo.Record `json:"by_salesperson"`
}

// OrderConfirmation is the order state after action_confirm
type OrderConfirmation struct {
	OrderID       int    `json:"order_id"`
	Name          string `json:"name"`
	State         string `json:"state"`
	DeliveryCount int    `json:"delivery_count"`
	InvoiceStatus string `json:"invoice_status"`
}

// CreatedInvoice is the invoice generated from an order
type CreatedInvoice struct {
	InvoiceID   int             `json:"invoice_id"`
	InvoiceName string          `json:"invoice_name"`
	AmountTotal decimal.Decimal `json:"amount_total"`
	State       string          `json:"state"`
}

// ProductStock is one low stock product
type ProductStock struct {
	ID               int             `json:"id"`
	Name             string          `json:"name"`
	QtyAvailable     decimal.Decimal `json:"qty_available"`
	VirtualAvailable decimal.Decimal `json:"virtual_available"`
	IncomingQty      decimal.Decimal `json:"incoming_qty"`
	OutgoingQty      decimal.Decimal `json:"outgoing_qty"`
}

// CategoryStock sums quantities of one product category
type CategoryStock struct {
	CategoryID       int             `json:"categ_id"`
	CategoryName     string          `json:"category"`
	ProductCount     int             `json:"product_count"`
	QtyAvailable     decimal.Decimal `json:"qty_available"`
	VirtualAvailable decimal.Decimal `json:"virtual_available"`
}

// StockLevels is the inventory overview
type StockLevels struct {
	Threshold       decimal.Decimal `json:"threshold"`
	LowStock        []ProductStock  `json:"low_stock"`
	StockByCategory []CategoryStock `json:"stock_by_category"`
	TotalProducts   int             `json:"total_products"`
	LowStockCount   int             `json:"low_stock_count"`
	TotalQty        decimal.Decimal `json:"total_qty_available"`
}

// DeliveryValidation is the picking state after button_validate
type DeliveryValidation struct {
	PickingID     int    `json:"picking_id"`
	Name          string `json:"name"`
	State         string `json:"state"`
	ProductsMoved int    `json:"products_moved"`
}

// ProfitLossSummary is the short P&L shown on the business dashboard
type ProfitLossSummary struct {
	Revenue  decimal.Decimal `json:"revenue"`
	Expenses decimal.Decimal `json:"expenses"`
	Profit   decimal.Decimal `json:"profit"`
	Margin   decimal.Decimal `json:"margin"`
}

// TopCustomer is a customer ranked by confirmed sales
type TopCustomer struct {
	PartnerID    int             `json:"partner_id"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	Phone        string          `json:"phone"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	OrderCount   int             `json:"order_count"`
	CreditLimit  decimal.Decimal `json:"credit_limit"`
	Credit       decimal.Decimal `json:"credit"`
	Country      *string         `json:"country"`
}
