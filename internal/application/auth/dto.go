package auth

import (
	"github.com/google/uuid"

	infraauth "github.com/safee-analytics/odoo/internal/infrastructure/auth"
	"github.com/safee-analytics/odoo/internal/infrastructure/odoo"
)

// Method is how a request proved its identity
type Method string

const (
	MethodJWT    Method = "jwt"
	MethodAPIKey Method = "api_key"
)

// Principal is an authenticated caller bound to an Odoo session
type Principal struct {
	Session odoo.Session
	Method  Method
	// Claims is set for bearer tokens
	Claims *infraauth.Claims
	// KeyID is set for API keys
	KeyID uuid.UUID
}

// LoginInput contains login credentials
type LoginInput struct {
	Login    string
	Password string
	DB       string
}

// UserInfo is the Odoo user returned by login and /me
type UserInfo struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Login       string `json:"login"`
	Email       string `json:"email"`
	CompanyID   int    `json:"company_id"`
	CompanyName string `json:"company_name"`
}

func userInfoFromRecord(rec odoo.Record) *UserInfo {
	companyID, companyName := rec.Many2One("company_id")
	return &UserInfo{
		ID:          rec.ID(),
		Name:        rec.String("name"),
		Login:       rec.String("login"),
		Email:       rec.String("email"),
		CompanyID:   companyID,
		CompanyName: companyName,
	}
}

// LoginResult is the login response body
type LoginResult struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	User        *UserInfo `json:"user"`
}

func newLoginResult(token *infraauth.Token, user *UserInfo) *LoginResult {
	return &LoginResult{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresIn:   token.ExpiresIn,
		User:        user,
	}
}

// TokenResult is the refresh response body
type TokenResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}
