package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appauth "github.com/safee-analytics/odoo/internal/application/auth"
	"github.com/safee-analytics/odoo/internal/domain/shared"
	"github.com/safee-analytics/odoo/internal/infrastructure/logger"
	"github.com/safee-analytics/odoo/internal/infrastructure/odoo"
	"github.com/safee-analytics/odoo/internal/interfaces/http/dto"
)

// Auth context keys and headers
const (
	PrincipalKey  = "principal"
	AuthHeaderKey = "Authorization"
	APIKeyHeader  = "X-API-Key"
)

// TokenAuthenticator resolves bearer tokens
type TokenAuthenticator interface {
	AuthenticateToken(ctx context.Context, bearer string) (*appauth.Principal, error)
}

// KeyAuthenticator resolves X-API-Key values
type KeyAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*appauth.Principal, error)
}

// AuthConfig wires the authenticators. Keys may be nil to disable API keys.
type AuthConfig struct {
	Tokens TokenAuthenticator
	Keys   KeyAuthenticator
	Logger *zap.Logger
}

// Authenticate requires a bearer token or, when no bearer token is sent, an
// API key. The resolved principal is stored on the gin context.
func Authenticate(cfg AuthConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var (
			principal *appauth.Principal
			err       error
		)
		bearer, hasBearer := appauth.BearerToken(c.GetHeader(AuthHeaderKey))
		apiKey := strings.TrimSpace(c.GetHeader(APIKeyHeader))
		switch {
		case hasBearer:
			principal, err = cfg.Tokens.AuthenticateToken(ctx, bearer)
		case apiKey != "" && cfg.Keys != nil:
			principal, err = cfg.Keys.Authenticate(ctx, apiKey)
		default:
			abortAuth(c, shared.NewUnauthorizedError("Missing or invalid authorization header"))
			return
		}
		if err != nil {
			log.Warn("Authentication failed",
				zap.Error(err),
				zap.Bool("api_key", !hasBearer),
				zap.String("path", c.Request.URL.Path),
			)
			abortAuth(c, err)
			return
		}

		c.Set(PrincipalKey, principal)

		reqLogger := logger.GetGinLogger(c)
		ctx, reqLogger = logger.WithDatabase(ctx, reqLogger, principal.Session.DB)
		ctx, reqLogger = logger.WithUserID(ctx, reqLogger, principal.Session.UID)
		c.Request = c.Request.WithContext(ctx)
		logger.SetGinLogger(c, reqLogger.With(zap.String("auth_method", string(principal.Method))))

		c.Next()
	}
}

func abortAuth(c *gin.Context, err error) {
	var domainErr *shared.DomainError
	if !errors.As(err, &domainErr) {
		c.AbortWithStatusJSON(http.StatusInternalServerError,
			dto.NewErrorResponseWithStatus(http.StatusInternalServerError, dto.ErrCodeInternal, "Authentication unavailable", c.GetString(RequestIDKey)))
		return
	}
	status := dto.GetHTTPStatus(domainErr.Code)
	if status != http.StatusForbidden {
		status = http.StatusUnauthorized
	}
	c.AbortWithStatusJSON(status,
		dto.NewErrorResponseWithStatus(status, domainErr.Code, domainErr.Message, c.GetString(RequestIDKey)))
}

// GetPrincipal returns the authenticated caller, or nil
func GetPrincipal(c *gin.Context) *appauth.Principal {
	if v, ok := c.Get(PrincipalKey); ok {
		if p, ok := v.(*appauth.Principal); ok {
			return p
		}
	}
	return nil
}

// GetSession returns the caller's Odoo session
func GetSession(c *gin.Context) (odoo.Session, bool) {
	p := GetPrincipal(c)
	if p == nil {
		return odoo.Session{}, false
	}
	return p.Session, true
}
