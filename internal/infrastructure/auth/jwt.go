package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/safee-analytics/odoo/internal/infrastructure/config"
)

// Common errors
var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token has expired")
	ErrInvalidClaims      = errors.New("invalid token claims")
	ErrTokenNotYetValid   = errors.New("token is not yet valid")
	ErrMissingDatabase    = errors.New("missing db in claims")
	ErrMissingUserID      = errors.New("missing uid in claims")
	ErrMaxRefreshExceeded = errors.New("maximum refresh count exceeded")
	ErrTokenBlacklisted   = errors.New("token has been revoked")
)

// Claims carries the Odoo identity of a gateway token. The Odoo secret is
// never put in the token; SessionID points at the sealed credentials.
type Claims struct {
	jwt.RegisteredClaims
	UID          int    `json:"uid"`
	Login        string `json:"login"`
	DB           string `json:"db"`
	SessionID    string `json:"sid"`
	RefreshCount int    `json:"refresh_count"`
}

// Token is an issued access token
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"` // Bearer
	ExpiresIn   int64     `json:"expires_in"` // seconds
	ExpiresAt   time.Time `json:"-"`
	JTI         string    `json:"-"`
}

// JWTService handles JWT token operations
type JWTService struct {
	secret          []byte
	expiration      time.Duration
	issuer          string
	maxRefreshCount int
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{
		secret:          []byte(cfg.Secret),
		expiration:      cfg.Expiration,
		issuer:          cfg.Issuer,
		maxRefreshCount: cfg.MaxRefreshCount,
	}
}

// IssueInput contains input for token generation
type IssueInput struct {
	UID          int
	Login        string
	DB           string
	SessionID    string
	RefreshCount int
}

// Issue signs a new access token
func (s *JWTService) Issue(input IssueInput) (*Token, error) {
	now := time.Now()
	jti := uuid.New().String()
	expiresAt := now.Add(s.expiration)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    s.issuer,
			Subject:   input.Login,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UID:          input.UID,
		Login:        input.Login,
		DB:           input.DB,
		SessionID:    input.SessionID,
		RefreshCount: input.RefreshCount,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, err
	}

	return &Token{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.expiration.Seconds()),
		ExpiresAt:   expiresAt,
		JTI:         jti,
	}, nil
}

// Validate verifies signature and expiry and returns the claims
func (s *JWTService) Validate(tokenString string) (*Claims, error) {
	return s.parse(tokenString)
}

// ValidateIgnoringExpiry verifies the signature but accepts expired tokens.
// Refresh uses it: a token past its exp can still be exchanged while its
// session lives.
func (s *JWTService) ValidateIgnoringExpiry(tokenString string) (*Claims, error) {
	return s.parse(tokenString, jwt.WithoutClaimsValidation())
}

func (s *JWTService) parse(tokenString string, opts ...jwt.ParserOption) (*Claims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, opts...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}

	if claims.DB == "" {
		return nil, ErrMissingDatabase
	}
	if claims.UID <= 0 {
		return nil, ErrMissingUserID
	}

	return claims, nil
}

// Refresh issues a successor token for claims, bumping the refresh count
func (s *JWTService) Refresh(claims *Claims) (*Token, error) {
	if claims.RefreshCount >= s.maxRefreshCount {
		return nil, ErrMaxRefreshExceeded
	}
	return s.Issue(IssueInput{
		UID:          claims.UID,
		Login:        claims.Login,
		DB:           claims.DB,
		SessionID:    claims.SessionID,
		RefreshCount: claims.RefreshCount + 1,
	})
}

// Expiration returns the access token lifetime
func (s *JWTService) Expiration() time.Duration {
	return s.expiration
}

// GetExpiresAtTime returns the token's expiration time as time.Time
func (c *Claims) GetExpiresAtTime() time.Time {
	if c.ExpiresAt != nil {
		return c.ExpiresAt.Time
	}
	return time.Time{}
}
