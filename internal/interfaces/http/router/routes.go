package router

import (
	"github.com/gin-gonic/gin"

	"github.com/safee-analytics/odoo/internal/interfaces/http/handler"
)

// Handlers holds every HTTP handler of the gateway
type Handlers struct {
	Auth       *handler.AuthHandler
	APIKey     *handler.APIKeyHandler
	Records    *handler.RecordsHandler
	Discovery  *handler.DiscoveryHandler
	Accounting *handler.AccountingHandler
	Business   *handler.BusinessHandler
	Branding   *handler.BrandingHandler
	Webhook    *handler.WebhookHandler
	DBManager  *handler.DBManagerHandler
	System     *handler.SystemHandler
}

// Guards are the middlewares applied per group
type Guards struct {
	// Authenticate resolves the bearer token or API key
	Authenticate gin.HandlerFunc
	// SignIn throttles credential endpoints; nil disables it
	SignIn gin.HandlerFunc
}

func (g Guards) signIn() []gin.HandlerFunc {
	if g.SignIn == nil {
		return nil
	}
	return []gin.HandlerFunc{g.SignIn}
}

// APIGroups returns the route groups of the gateway API
func APIGroups(h Handlers, g Guards) []*DomainGroup {
	signIn := g.signIn()

	publicAuth := NewDomainGroup("Authentication", "/api")
	publicAuth.POST("/auth/login", append(signIn, h.Auth.Login)...).Describe("Sign in against Odoo and receive a bearer token")
	publicAuth.POST("/auth/refresh", h.Auth.Refresh).Describe("Exchange a bearer token for a new one")
	publicAuth.POST("/generate_key", append(signIn, h.APIKey.Generate)...).Describe("Generate an Odoo API key for a user")

	auth := NewDomainGroup("Authentication", "/api").RequireAuth(g.Authenticate)
	auth.GET("/auth/me", h.Auth.Me).Describe("Current user")
	auth.POST("/auth/logout", h.Auth.Logout).Describe("End the session behind the bearer token")
	auth.GET("/keys", h.APIKey.List).Describe("List the caller's API keys")
	auth.DELETE("/keys/:id", h.APIKey.Revoke).Describe("Revoke an API key")

	discovery := NewDomainGroup("Discovery", "/api/discover").RequireAuth(g.Authenticate)
	discovery.GET("/models", h.Discovery.Models).Describe("List installed models")
	discovery.GET("/fields/:model", h.Discovery.Fields).Describe("Describe the fields of a model")
	discovery.GET("/methods/:model", h.Discovery.Methods).Describe("List the public methods of a model")
	discovery.GET("/method/:model/:method", h.Discovery.Method).Describe("Describe a method")

	// The GET list and report routes are query string aliases of the POST ones
	accounting := NewDomainGroup("Accounting", "/api/accounting").RequireAuth(g.Authenticate)
	accounting.POST("/invoices/list", h.Accounting.ListInvoices).Describe("List invoices")
	accounting.GET("/invoices", h.Accounting.ListInvoices).Describe("List invoices")
	accounting.POST("/invoice/:id/post", h.Accounting.PostInvoice).Describe("Post a draft invoice")
	accounting.POST("/invoice/:id/register_payment", h.Accounting.RegisterPayment).Describe("Register a payment")
	accounting.POST("/invoice/:id/send_email", h.Accounting.SendEmail).Describe("Email an invoice")
	accounting.GET("/invoice/:id/pdf", h.Accounting.InvoicePDF).Describe("Render an invoice PDF")
	accounting.POST("/payments/list", h.Accounting.ListPayments).Describe("List payments")
	accounting.GET("/payments", h.Accounting.ListPayments).Describe("List payments")
	accounting.GET("/reconciliation/bank_statements", h.Accounting.BankStatements).Describe("Open bank statements")
	accounting.GET("/reconciliation/suggestions/:line_id", h.Accounting.Suggestions).Describe("Matching suggestions for a statement line")
	accounting.POST("/reports/prorata", h.Accounting.Prorata).Describe("Prorated read_group over date periods")
	accounting.POST("/reports/:report", h.Accounting.Report).Describe("Build a financial report")
	accounting.GET("/reports/:report", h.Accounting.Report).Describe("Build a financial report")
	accounting.POST("/reports/:report/export", h.Accounting.ExportReport).Describe("Store a financial report in object storage")
	accounting.GET("/receivables", h.Business.Receivables).Describe("Receivables aging")
	accounting.POST("/post_invoice/:id", h.Business.PostInvoice).Describe("Post a draft invoice")

	business := NewDomainGroup("Business", "/api").RequireAuth(g.Authenticate)
	business.GET("/sales/dashboard", h.Business.SalesDashboard).Describe("Sales dashboard")
	business.POST("/sales/confirm/:id", h.Business.ConfirmOrder).Describe("Confirm a quotation")
	business.POST("/sales/:id/create_invoice", h.Business.CreateInvoice).Describe("Invoice a confirmed order")
	business.GET("/inventory/stock_levels", h.Business.StockLevels).Describe("Stock overview")
	business.POST("/inventory/validate_delivery/:picking_id", h.Business.ValidateDelivery).Describe("Validate a delivery")
	business.GET("/reports/profit_loss", h.Business.ProfitLoss).Describe("Short profit and loss")
	business.GET("/customers/top", h.Business.TopCustomers).Describe("Top customers by confirmed sales")

	branding := NewDomainGroup("Business", "/api/branding").RequireAuth(g.Authenticate)
	branding.GET("", h.Branding.Get).Describe("Document style of the caller's company")
	branding.PUT("", h.Branding.Update).Describe("Update the document style")

	publicHooks := NewDomainGroup("Webhooks", "/api/webhooks")
	publicHooks.POST("/verify", h.Webhook.Verify).Describe("Check a webhook signature")

	hooks := NewDomainGroup("Webhooks", "/api/webhooks").RequireAuth(g.Authenticate)
	hooks.POST("/database_ready", h.Webhook.DatabaseReady).Describe("Send the database ready notification")
	hooks.GET("/deliveries", h.Webhook.Deliveries).Describe("Delivery log of the caller's database")

	database := NewDomainGroup("Database", "/safee/db")
	database.POST("/close_connections", h.DBManager.CloseConnections).Describe("Terminate every session on a database")
	database.POST("/duplicate", h.DBManager.Duplicate).Describe("Duplicate a database")
	database.GET("/jobs/:id", h.DBManager.Job).Describe("Duplication job status")

	system := NewDomainGroup("System", "")
	system.GET("/health", h.System.Health).Describe("Dependency health")
	system.GET("/api/system/info", h.System.GetSystemInfo).Describe("Service information")
	system.GET("/api/system/ping", h.System.Ping).Describe("Liveness probe")

	// Static segments take precedence over /api/:model in gin's tree
	records := NewDomainGroup("CRUD Operations", "/api").RequireAuth(g.Authenticate)
	records.GET("/:model", h.Records.List).Describe("Search and read records")
	records.POST("/:model", h.Records.Create).Describe("Create a record")
	records.GET("/:model/:id", h.Records.Get).Describe("Read a record")
	records.PUT("/:model/:id", h.Records.Update).Describe("Update a record")
	records.PATCH("/:model/:id", h.Records.Update).Describe("Update a record")
	records.DELETE("/:model/:id", h.Records.Delete).Describe("Delete a record")

	methods := NewDomainGroup("Custom Methods", "/api").RequireAuth(g.Authenticate)
	methods.POST("/:model/:id/call/:method", h.Records.CallRecord).Describe("Call a method on a record")
	methods.POST("/:model/call/:method", h.Records.CallModel).Describe("Call a model-level method")

	return []*DomainGroup{
		publicAuth, auth, discovery, accounting, business, branding,
		publicHooks, hooks, database, system, records, methods,
	}
}
