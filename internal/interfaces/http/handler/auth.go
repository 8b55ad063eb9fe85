package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	appauth "github.com/safee-analytics/odoo/internal/application/auth"
	infraauth "github.com/safee-analytics/odoo/internal/infrastructure/auth"
	"github.com/safee-analytics/odoo/internal/infrastructure/odoo"
	"github.com/safee-analytics/odoo/internal/interfaces/http/middleware"
)

// AuthService is the sign-in surface used by AuthHandler
type AuthService interface {
	Login(ctx context.Context, input appauth.LoginInput) (*appauth.LoginResult, error)
	Me(ctx context.Context, sess odoo.Session) (*appauth.UserInfo, error)
	Refresh(ctx context.Context, bearer string) (*appauth.TokenResult, error)
	Logout(ctx context.Context, claims *infraauth.Claims) error
}

// AuthHandler serves /api/auth
type AuthHandler struct {
	BaseHandler
	auth AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// LoginRequest is the body of POST /api/auth/login
type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	DB       string `json:"db"`
}

// Login godoc
// @Summary      Sign in against Odoo
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Odoo credentials"
// @Success      200 {object} dto.Response{data=appauth.LoginResult}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid JSON body")
		return
	}
	result, err := h.auth.Login(c.Request.Context(), appauth.LoginInput{
		Login:    req.Login,
		Password: req.Password,
		DB:       req.DB,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Me returns the signed-in Odoo user
func (h *AuthHandler) Me(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	user, err := h.auth.Me(c.Request.Context(), sess)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// Refresh godoc
// @Summary      Exchange a bearer token for a new one
// @Description  The presented token may be expired; its session must still exist.
// @Tags         Authentication
// @Produce      json
// @Success      200 {object} dto.Response{data=appauth.TokenResult}
// @Failure      401 {object} dto.Response
// @Router       /api/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	bearer, ok := appauth.BearerToken(c.GetHeader(middleware.AuthHeaderKey))
	if !ok {
		h.Unauthorized(c, "Missing or invalid authorization header")
		return
	}
	result, err := h.auth.Refresh(c.Request.Context(), bearer)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Logout ends the session behind the bearer token
func (h *AuthHandler) Logout(c *gin.Context) {
	p := middleware.GetPrincipal(c)
	if p == nil || p.Claims == nil {
		h.BadRequest(c, "Logout requires a bearer token")
		return
	}
	if err := h.auth.Logout(c.Request.Context(), p.Claims); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"message": "Logged out"})
}
