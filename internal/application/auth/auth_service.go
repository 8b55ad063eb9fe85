// Package auth signs gateway users in against Odoo and resolves bearer
// tokens back to Odoo sessions.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/safee-analytics/odoo/internal/domain/shared"
	infraauth "github.com/safee-analytics/odoo/internal/infrastructure/auth"
	"github.com/safee-analytics/odoo/internal/infrastructure/odoo"
	"github.com/safee-analytics/odoo/internal/infrastructure/session"
)

// Error codes returned for token problems
const (
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeTokenRevoked       = "TOKEN_REVOKED"
	CodeMaxRefresh         = "TOKEN_MAX_REFRESH"
)

// DefaultSessionTTL applies when the session TTL is unset
const DefaultSessionTTL = 7 * 24 * time.Hour

// userFields are read for the login response and /me
var userFields = []string{"id", "name", "login", "email", "company_id"}

// OdooAuthenticator is the part of the Odoo client used for sign-in
type OdooAuthenticator interface {
	Authenticate(ctx context.Context, db, login, password string) (int, error)
	ReadOne(ctx context.Context, sess odoo.Session, model string, id int, fields []string) (odoo.Record, error)
}

// AuthService handles login, refresh and logout
type AuthService struct {
	odoo       OdooAuthenticator
	jwt        *infraauth.JWTService
	sessions   session.Store
	blacklist  infraauth.TokenBlacklist
	defaultDB  string
	sessionTTL time.Duration
	logger     *zap.Logger
}

// NewAuthService creates the service
func NewAuthService(
	odooClient OdooAuthenticator,
	jwtService *infraauth.JWTService,
	sessions session.Store,
	blacklist infraauth.TokenBlacklist,
	defaultDB string,
	sessionTTL time.Duration,
	logger *zap.Logger,
) *AuthService {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &AuthService{
		odoo:       odooClient,
		jwt:        jwtService,
		sessions:   sessions,
		blacklist:  blacklist,
		defaultDB:  defaultDB,
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

// Login authenticates against Odoo and returns a bearer token
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	if input.Login == "" || input.Password == "" {
		return nil, shared.NewInvalidInputError("Missing login or password")
	}
	db := input.DB
	if db == "" {
		db = s.defaultDB
	}
	if db == "" {
		return nil, shared.NewInvalidInputError("Missing db")
	}

	s.logger.Info("Login attempt", zap.String("login", input.Login), zap.String("db", db))

	uid, err := s.odoo.Authenticate(ctx, db, input.Login, input.Password)
	if err != nil {
		if errors.Is(err, odoo.ErrAuthenticationFailed) {
			s.logger.Warn("Invalid credentials", zap.String("login", input.Login), zap.String("db", db))
			return nil, shared.NewDomainError(CodeInvalidCredentials, "Invalid credentials")
		}
		s.logger.Error("Odoo authentication call failed", zap.Error(err))
		return nil, shared.WrapDomainError(shared.ErrUnavailable.Code, "Authentication service unavailable", err)
	}

	creds := session.Credentials{DB: db, UID: uid, Login: input.Login, Secret: input.Password}
	sess := odoo.Session{DB: db, UID: uid, Login: input.Login, Secret: input.Password}

	user, err := s.readUser(ctx, sess)
	if err != nil {
		return nil, err
	}

	sid := session.NewID()
	if err := s.sessions.Save(ctx, sid, creds, s.sessionTTL); err != nil {
		s.logger.Error("Failed to store session", zap.Error(err))
		return nil, shared.WrapDomainError("INTERNAL_ERROR", "Failed to create session", err)
	}

	token, err := s.jwt.Issue(infraauth.IssueInput{UID: uid, Login: input.Login, DB: db, SessionID: sid})
	if err != nil {
		s.logger.Error("Failed to issue token", zap.Error(err))
		return nil, shared.WrapDomainError("INTERNAL_ERROR", "Failed to generate authentication token", err)
	}

	s.logger.Info("User logged in", zap.String("login", input.Login), zap.Int("uid", uid), zap.String("db", db))
	return newLoginResult(token, user), nil
}

// Me returns the current user's profile
func (s *AuthService) Me(ctx context.Context, sess odoo.Session) (*UserInfo, error) {
	return s.readUser(ctx, sess)
}

func (s *AuthService) readUser(ctx context.Context, sess odoo.Session) (*UserInfo, error) {
	rec, err := s.odoo.ReadOne(ctx, sess, odoo.ModelUsers, sess.UID, userFields)
	if err != nil {
		if errors.Is(err, odoo.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("User not found")
		}
		return nil, err
	}
	return userInfoFromRecord(rec), nil
}

// Refresh exchanges a token, expired or not, for a new one while its session
// lives. Only the latest token of a session is accepted: the session records
// the refresh count it handed out last, and the old token is revoked until
// the session itself would expire.
func (s *AuthService) Refresh(ctx context.Context, bearer string) (*TokenResult, error) {
	claims, err := s.jwt.ValidateIgnoringExpiry(bearer)
	if err != nil {
		return nil, shared.NewDomainError(CodeInvalidToken, "Invalid token")
	}
	if s.isRevoked(ctx, claims.ID) {
		return nil, shared.NewDomainError(CodeTokenRevoked, "Token has been revoked")
	}
	creds, err := s.sessions.Load(ctx, claims.SessionID)
	if err != nil {
		return nil, shared.NewDomainError(CodeTokenRevoked, "Session expired, please log in again")
	}
	if claims.RefreshCount != creds.Refreshes {
		s.logger.Warn("Stale token presented for refresh",
			zap.String("login", claims.Login),
			zap.Int("refresh_count", claims.RefreshCount),
			zap.Int("session_refreshes", creds.Refreshes))
		return nil, shared.NewDomainError(CodeTokenRevoked, "Token has been revoked")
	}

	token, err := s.jwt.Refresh(claims)
	if err != nil {
		if errors.Is(err, infraauth.ErrMaxRefreshExceeded) {
			return nil, shared.NewDomainError(CodeMaxRefresh, "Maximum token refresh count exceeded. Please log in again")
		}
		return nil, shared.WrapDomainError("INTERNAL_ERROR", "Failed to generate authentication token", err)
	}

	creds.Refreshes = claims.RefreshCount + 1
	if err := s.sessions.Save(ctx, claims.SessionID, creds, s.sessionTTL); err != nil {
		s.logger.Error("Failed to record token refresh", zap.Error(err))
		return nil, shared.WrapDomainError("INTERNAL_ERROR", "Failed to refresh session", err)
	}
	s.revoke(ctx, claims, time.Now().Add(s.sessionTTL))

	s.logger.Info("Token refreshed", zap.String("login", claims.Login), zap.Int("refresh_count", creds.Refreshes))
	return &TokenResult{AccessToken: token.AccessToken, TokenType: token.TokenType, ExpiresIn: token.ExpiresIn}, nil
}

// Logout deletes the session and revokes the token
func (s *AuthService) Logout(ctx context.Context, claims *infraauth.Claims) error {
	if claims == nil {
		return nil
	}
	if err := s.sessions.Delete(ctx, claims.SessionID); err != nil && !errors.Is(err, session.ErrNotFound) {
		s.logger.Warn("Failed to delete session", zap.Error(err))
	}
	s.revoke(ctx, claims, claims.GetExpiresAtTime())
	s.logger.Info("User logged out", zap.String("login", claims.Login))
	return nil
}

// AuthenticateToken resolves a bearer token to the caller's Odoo session
func (s *AuthService) AuthenticateToken(ctx context.Context, bearer string) (*Principal, error) {
	claims, err := s.jwt.Validate(bearer)
	if err != nil {
		if errors.Is(err, infraauth.ErrExpiredToken) {
			return nil, shared.NewDomainError(CodeTokenExpired, "Token expired")
		}
		return nil, shared.NewDomainError(CodeInvalidToken, "Invalid token")
	}
	if s.isRevoked(ctx, claims.ID) {
		return nil, shared.NewDomainError(CodeTokenRevoked, "Token has been revoked")
	}
	creds, err := s.sessions.Load(ctx, claims.SessionID)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			s.logger.Warn("Failed to load session", zap.Error(err))
		}
		return nil, shared.NewDomainError(CodeTokenRevoked, "Session expired, please log in again")
	}
	return &Principal{
		Session: odoo.Session{DB: creds.DB, UID: creds.UID, Login: creds.Login, Secret: creds.Secret},
		Method:  MethodJWT,
		Claims:  claims,
	}, nil
}

// isRevoked fails open: a blacklist outage must not lock everyone out
func (s *AuthService) isRevoked(ctx context.Context, jti string) bool {
	if s.blacklist == nil || jti == "" {
		return false
	}
	revoked, err := s.blacklist.IsRevoked(ctx, jti)
	if err != nil {
		s.logger.Warn("Token blacklist check failed", zap.Error(err))
		return false
	}
	return revoked
}

// revoke blacklists the token id until until. Tokens without an expiry are
// held for the session lifetime.
func (s *AuthService) revoke(ctx context.Context, claims *infraauth.Claims, until time.Time) {
	if s.blacklist == nil || claims.ID == "" {
		return
	}
	if until.IsZero() {
		until = time.Now().Add(s.sessionTTL)
	}
	if err := s.blacklist.Revoke(ctx, claims.ID, until); err != nil {
		s.logger.Warn("Failed to blacklist token", zap.Error(err))
	}
}

// BearerToken extracts the token from an Authorization header value
func BearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
