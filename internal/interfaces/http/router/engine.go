package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/safee-analytics/odoo/internal/domain/shared"
	"github.com/safee-analytics/odoo/internal/infrastructure/config"
	"github.com/safee-analytics/odoo/internal/infrastructure/logger"
	"github.com/safee-analytics/odoo/internal/interfaces/http/middleware"
	"github.com/safee-analytics/odoo/internal/interfaces/http/openapi"
)

// Paths served outside the route groups
const (
	OpenAPIPath = "/api/openapi.json"
	DocsPath    = "/api/docs"
)

// EngineDeps are the collaborators NewEngine wires into the middleware chain
type EngineDeps struct {
	Logger  *zap.Logger
	Metrics interface {
		middleware.HTTPObserver
		Handler() http.Handler
	}
	Handlers Handlers
	Guards   Guards
	// Idempotency enables Idempotency-Key handling on POST requests when set
	Idempotency shared.IdempotencyStore
	// Version is the API document version
	Version string
}

// Engine is the configured gin engine with the limiters it owns
type Engine struct {
	*gin.Engine
	Router   *Router
	limiters []*middleware.RateLimiter
}

// Close stops the rate limiter cleanup goroutines
func (e *Engine) Close() {
	for _, l := range e.limiters {
		l.Close()
	}
}

// NewEngine applies the middleware stack in order:
//  1. RequestID, logging and panic recovery
//  2. tracing, metrics and profiling
//  3. security headers, CORS and body limit
//  4. global rate limit and Idempotency-Key replay protection
//
// and mounts the API groups, /metrics and the API documentation.
func NewEngine(cfg *config.Config, deps EngineDeps) *Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	g := gin.New()
	e := &Engine{Engine: g}

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := g.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	g.Use(middleware.RequestID())
	g.Use(logger.GinMiddleware(log))
	g.Use(logger.Recovery(log))

	g.Use(middleware.Tracing(cfg.Telemetry.ServiceName, cfg.Telemetry.Enabled))
	if cfg.Telemetry.Enabled {
		g.Use(middleware.SpanAttributes())
	}
	if cfg.Metrics.Enabled && deps.Metrics != nil {
		g.Use(middleware.Metrics(deps.Metrics, cfg.Metrics.Path, "/health"))
	}
	g.Use(middleware.Profiling(cfg.Telemetry.ProfilingEnabled))

	security := middleware.DefaultSecurityConfig()
	security.HSTSEnabled = cfg.IsProduction()
	g.Use(middleware.Secure(security))
	g.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	g.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		global := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow, cfg.HTTP.RateLimitBurst)
		signIn := middleware.NewRateLimiter(cfg.HTTP.AuthRateLimit, cfg.HTTP.RateLimitWindow, cfg.HTTP.AuthRateLimit)
		e.limiters = append(e.limiters, global, signIn)
		g.Use(middleware.RateLimit(global))
		if deps.Guards.SignIn == nil {
			deps.Guards.SignIn = middleware.RateLimit(signIn)
		}
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
			zap.Int("sign_in_requests", cfg.HTTP.AuthRateLimit),
		)
	}
	if deps.Idempotency != nil {
		g.Use(middleware.Idempotency(deps.Idempotency, cfg.HTTP.IdempotencyTTL, log))
	}

	if cfg.Metrics.Enabled && deps.Metrics != nil {
		g.GET(cfg.Metrics.Path, gin.WrapH(deps.Metrics.Handler()))
	}

	e.Router = NewRouter(g)
	for _, group := range APIGroups(deps.Handlers, deps.Guards) {
		e.Router.Register(group)
	}
	e.Router.Setup()

	doc := openapi.Build(openapi.Config{
		Title:        "Odoo REST API",
		Version:      deps.Version,
		Description:  "REST gateway over the Odoo JSON-RPC API",
		CommonModels: cfg.Odoo.CommonModels,
	}, Operations(e.Router.Routes()))

	docs := middleware.DocsProtection(middleware.DocsConfig{
		Enabled:    cfg.HTTP.DocsEnabled,
		AllowedIPs: cfg.HTTP.DocsAllowedIPs,
	})
	g.GET(OpenAPIPath, docs, openapi.Handler(doc))
	g.GET(DocsPath+"/*any", docs, ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL(OpenAPIPath)))

	return e
}

// Operations converts routes into API document operations
func Operations(routes []Route) []openapi.Operation {
	ops := make([]openapi.Operation, 0, len(routes))
	for _, r := range routes {
		ops = append(ops, openapi.Operation{
			Method:  r.Method,
			Path:    r.Path,
			Tag:     r.Tag,
			Summary: r.Summary,
			Secured: r.Secured,
		})
	}
	return ops
}
