package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/safee-analytics/odoo/internal/domain/shared"
	infraauth "github.com/safee-analytics/odoo/internal/infrastructure/auth"
	"github.com/safee-analytics/odoo/internal/infrastructure/config"
	"github.com/safee-analytics/odoo/internal/infrastructure/odoo"
	"github.com/safee-analytics/odoo/internal/infrastructure/session"
)

type MockOdoo struct {
	mock.Mock
}

func (m *MockOdoo) Authenticate(ctx context.Context, db, login, password string) (int, error) {
	args := m.Called(ctx, db, login, password)
	return args.Int(0), args.Error(1)
}

func (m *MockOdoo) ReadOne(ctx context.Context, sess odoo.Session, model string, id int, fields []string) (odoo.Record, error) {
	args := m.Called(ctx, sess, model, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(odoo.Record), args.Error(1)
}

type authFixture struct {
	svc       *AuthService
	odoo      *MockOdoo
	jwt       *infraauth.JWTService
	sessions  session.Store
	blacklist *infraauth.InMemoryTokenBlacklist
}

func newAuthFixture(t *testing.T, maxRefresh int) *authFixture {
	t.Helper()
	sealer, err := session.NewSealer("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	f := &authFixture{
		odoo: new(MockOdoo),
		jwt: infraauth.NewJWTService(config.JWTConfig{
			Secret:          "test-secret-key-that-is-long-enough-32",
			Expiration:      time.Hour,
			Issuer:          "odoo-gateway",
			MaxRefreshCount: maxRefresh,
		}),
		sessions:  session.NewMemoryStore(sealer),
		blacklist: infraauth.NewInMemoryTokenBlacklist(),
	}
	f.svc = NewAuthService(f.odoo, f.jwt, f.sessions, f.blacklist, "acme", 0, zap.NewNop())
	return f
}

func userRecord(login string) odoo.Record {
	return odoo.Record{
		"id":         2,
		"name":       gofakeit.Name(),
		"login":      login,
		"email":      login,
		"company_id": []any{1, "Acme Ltd"},
	}
}

func (f *authFixture) login(t *testing.T) *LoginResult {
	t.Helper()
	f.odoo.On("Authenticate", mock.Anything, "acme", "admin@acme.test", "s3cret").Return(2, nil)
	f.odoo.On("ReadOne", mock.Anything, mock.Anything, odoo.ModelUsers, 2, userFields).Return(userRecord("admin@acme.test"), nil)
	res, err := f.svc.Login(context.Background(), LoginInput{Login: "admin@acme.test", Password: "s3cret"})
	require.NoError(t, err)
	return res
}

func TestLogin_Success(t *testing.T) {
	f := newAuthFixture(t, 3)
	res := f.login(t)

	assert.Equal(t, "Bearer", res.TokenType)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.Equal(t, 2, res.User.ID)
	assert.Equal(t, 1, res.User.CompanyID)
	assert.Equal(t, "Acme Ltd", res.User.CompanyName)

	claims, err := f.jwt.Validate(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "acme", claims.DB)
	assert.Equal(t, 2, claims.UID)

	creds, err := f.sessions.Load(context.Background(), claims.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", creds.Secret)
}

func TestLogin_Errors(t *testing.T) {
	f := newAuthFixture(t, 3)

	_, err := f.svc.Login(context.Background(), LoginInput{Login: "x"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	f.odoo.On("Authenticate", mock.Anything, "other", "x", "bad").Return(0, odoo.ErrAuthenticationFailed)
	_, err = f.svc.Login(context.Background(), LoginInput{Login: "x", Password: "bad", DB: "other"})
	var de *shared.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, CodeInvalidCredentials, de.Code)
	assert.Equal(t, "Invalid credentials", de.Message)

	f.odoo.On("Authenticate", mock.Anything, "down", "x", "pw").Return(0, errors.New("connection refused"))
	_, err = f.svc.Login(context.Background(), LoginInput{Login: "x", Password: "pw", DB: "down"})
	assert.ErrorIs(t, err, shared.ErrUnavailable)
}

func TestAuthenticateToken(t *testing.T) {
	f := newAuthFixture(t, 3)
	res := f.login(t)

	p, err := f.svc.AuthenticateToken(context.Background(), res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, MethodJWT, p.Method)
	assert.Equal(t, "s3cret", p.Session.Secret)
	assert.True(t, p.Session.Valid())

	_, err = f.svc.AuthenticateToken(context.Background(), "garbage")
	assert.Equal(t, CodeInvalidToken, domainCode(err))
}

func TestAuthenticateToken_Expired(t *testing.T) {
	f := newAuthFixture(t, 3)
	expired := infraauth.NewJWTService(config.JWTConfig{
		Secret:     "test-secret-key-that-is-long-enough-32",
		Expiration: -time.Minute,
	})
	token, err := expired.Issue(infraauth.IssueInput{UID: 2, Login: "a", DB: "acme", SessionID: "sid"})
	require.NoError(t, err)

	_, err = f.svc.AuthenticateToken(context.Background(), token.AccessToken)
	assert.Equal(t, CodeTokenExpired, domainCode(err))
}

func TestRefreshAndLogout(t *testing.T) {
	f := newAuthFixture(t, 3)
	res := f.login(t)

	refreshed, err := f.svc.Refresh(context.Background(), res.AccessToken)
	require.NoError(t, err)
	assert.NotEqual(t, res.AccessToken, refreshed.AccessToken)

	_, err = f.svc.AuthenticateToken(context.Background(), res.AccessToken)
	assert.Equal(t, CodeTokenRevoked, domainCode(err))

	p, err := f.svc.AuthenticateToken(context.Background(), refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Claims.RefreshCount)

	require.NoError(t, f.svc.Logout(context.Background(), p.Claims))
	_, err = f.svc.AuthenticateToken(context.Background(), refreshed.AccessToken)
	assert.Equal(t, CodeTokenRevoked, domainCode(err))
	_, err = f.svc.Refresh(context.Background(), refreshed.AccessToken)
	assert.Equal(t, CodeTokenRevoked, domainCode(err))
}

func TestRefresh_MaxCount(t *testing.T) {
	f := newAuthFixture(t, 0)
	res := f.login(t)

	_, err := f.svc.Refresh(context.Background(), res.AccessToken)
	assert.Equal(t, CodeMaxRefresh, domainCode(err))
}

func TestRefresh_AcceptsExpiredToken(t *testing.T) {
	f := newAuthFixture(t, 3)
	require.NoError(t, f.sessions.Save(context.Background(), "sid-1", session.Credentials{DB: "acme", UID: 2, Login: "a", Secret: "pw"}, time.Hour))

	expired := infraauth.NewJWTService(config.JWTConfig{
		Secret:     "test-secret-key-that-is-long-enough-32",
		Expiration: -time.Minute,
	})
	token, err := expired.Issue(infraauth.IssueInput{UID: 2, Login: "a", DB: "acme", SessionID: "sid-1"})
	require.NoError(t, err)

	refreshed, err := f.svc.Refresh(context.Background(), token.AccessToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
}

func TestRefresh_StaleTokenRejectedAfterBlacklistLapse(t *testing.T) {
	f := newAuthFixture(t, 10)
	ctx := context.Background()
	require.NoError(t, f.sessions.Save(ctx, "sid-1", session.Credentials{DB: "acme", UID: 2, Login: "a", Secret: "pw"}, time.Hour))

	expired := infraauth.NewJWTService(config.JWTConfig{
		Secret:     "test-secret-key-that-is-long-enough-32",
		Expiration: -time.Second,
	})
	old, err := expired.Issue(infraauth.IssueInput{UID: 2, Login: "a", DB: "acme", SessionID: "sid-1"})
	require.NoError(t, err)

	_, err = f.svc.Refresh(ctx, old.AccessToken)
	require.NoError(t, err)

	oldClaims, err := f.jwt.ValidateIgnoringExpiry(old.AccessToken)
	require.NoError(t, err)
	revoked, err := f.blacklist.IsRevoked(ctx, oldClaims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)

	// An empty blacklist stands in for the revocation entry expiring
	f.svc.blacklist = infraauth.NewInMemoryTokenBlacklist()
	for i := 0; i < 5; i++ {
		_, err = f.svc.Refresh(ctx, old.AccessToken)
		assert.Equal(t, CodeTokenRevoked, domainCode(err), "replay %d", i)
	}

	creds, err := f.sessions.Load(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, 1, creds.Refreshes)
}

func TestRefresh_ChainAdvancesSessionGeneration(t *testing.T) {
	f := newAuthFixture(t, 3)
	res := f.login(t)
	ctx := context.Background()

	first, err := f.svc.Refresh(ctx, res.AccessToken)
	require.NoError(t, err)
	second, err := f.svc.Refresh(ctx, first.AccessToken)
	require.NoError(t, err)

	p, err := f.svc.AuthenticateToken(ctx, second.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Claims.RefreshCount)

	_, err = f.svc.Refresh(ctx, first.AccessToken)
	assert.Equal(t, CodeTokenRevoked, domainCode(err))
}

func TestBearerToken(t *testing.T) {
	tok, ok := BearerToken("Bearer abc.def")
	assert.True(t, ok)
	assert.Equal(t, "abc.def", tok)

	_, ok = BearerToken("Basic abc")
	assert.False(t, ok)
	_, ok = BearerToken("Bearer ")
	assert.False(t, ok)
}

func domainCode(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
