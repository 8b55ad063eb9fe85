// Package apikey issues Odoo API keys on behalf of administrators and
// authenticates requests presenting them.
package apikey

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appauth "github.com/safee-analytics/odoo/internal/application/auth"
	"github.com/safee-analytics/odoo/internal/domain/apikey"
	"github.com/safee-analytics/odoo/internal/domain/shared"
	infraauth "github.com/safee-analytics/odoo/internal/infrastructure/auth"
	"github.com/safee-analytics/odoo/internal/infrastructure/config"
	"github.com/safee-analytics/odoo/internal/infrastructure/odoo"
	"github.com/safee-analytics/odoo/internal/infrastructure/pgadmin"
)

// Defaults for generated keys
const (
	DefaultKeyName    = "Safee Integration Key"
	DefaultAdminGroup = "base.group_system"
)

// OdooUsers is the part of the Odoo client used to check admins and resolve
// target users
type OdooUsers interface {
	Authenticate(ctx context.Context, db, login, password string) (int, error)
	SearchRead(ctx context.Context, sess odoo.Session, model string, domain odoo.Domain, opts odoo.Options) ([]odoo.Record, error)
	CallMethod(ctx context.Context, sess odoo.Session, model, method string, ids []int, args []any, kwargs map[string]any) (any, error)
}

// KeyWriter writes key rows into an Odoo database
type KeyWriter interface {
	InsertAPIKey(ctx context.Context, dbName string, row pgadmin.APIKeyRow) (int, error)
	DeleteAPIKey(ctx context.Context, dbName string, id int) error
}

// Service manages API keys
type Service struct {
	odoo   OdooUsers
	writer KeyWriter
	keys   apikey.Repository
	cfg    config.APIKeyConfig
	logger *zap.Logger
}

// NewService creates the service
func NewService(odooClient OdooUsers, writer KeyWriter, keys apikey.Repository, cfg config.APIKeyConfig, logger *zap.Logger) *Service {
	if cfg.DefaultName == "" {
		cfg.DefaultName = DefaultKeyName
	}
	if cfg.DefaultScope == "" {
		cfg.DefaultScope = apikey.ScopeRPC
	}
	if cfg.AdminGroup == "" {
		cfg.AdminGroup = DefaultAdminGroup
	}
	if cfg.HashRounds <= 0 {
		cfg.HashRounds = infraauth.DefaultRounds
	}
	return &Service{odoo: odooClient, writer: writer, keys: keys, cfg: cfg, logger: logger}
}

// Generate creates a key for the target user, or for the admin when no
// target is given. The plaintext token is only ever returned here.
func (s *Service) Generate(ctx context.Context, input GenerateInput) (*GenerateResult, error) {
	if input.DB == "" || input.AdminLogin == "" || input.AdminPassword == "" {
		return nil, shared.NewInvalidInputError("Missing db/admin_login/admin_password")
	}

	adminUID, err := s.odoo.Authenticate(ctx, input.DB, input.AdminLogin, input.AdminPassword)
	if err != nil {
		if errors.Is(err, odoo.ErrAuthenticationFailed) {
			return nil, shared.NewUnauthorizedError("Invalid admin credentials")
		}
		return nil, shared.WrapDomainError(shared.ErrUnavailable.Code, "Authentication service unavailable", err)
	}
	admin := odoo.Session{DB: input.DB, UID: adminUID, Login: input.AdminLogin, Secret: input.AdminPassword}

	isAdmin, err := s.hasGroup(ctx, admin, s.cfg.AdminGroup)
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		s.logger.Warn("API key generation refused", zap.String("admin_login", input.AdminLogin), zap.String("db", input.DB))
		return nil, shared.NewForbiddenError("Admin user must belong to " + s.cfg.AdminGroup)
	}

	targetID, targetLogin, err := s.resolveTarget(ctx, admin, input)
	if err != nil {
		return nil, err
	}

	name := input.Name
	if name == "" {
		name = s.cfg.DefaultName
	}
	scope := input.Scope
	if scope == "" {
		scope = s.cfg.DefaultScope
	}

	token, index, err := infraauth.GenerateAPIKey()
	if err != nil {
		return nil, err
	}
	hash, err := infraauth.HashAPIKey(token, s.cfg.HashRounds)
	if err != nil {
		return nil, err
	}

	key, err := apikey.NewKey(input.DB, targetID, targetLogin, name, scope, index, hash)
	if err != nil {
		return nil, err
	}
	odooID, err := s.writer.InsertAPIKey(ctx, input.DB, pgadmin.APIKeyRow{
		Name:   name,
		UserID: targetID,
		Scope:  scope,
		Index:  index,
		Hash:   hash,
	})
	if err != nil {
		s.logger.Error("Failed to store API key in Odoo", zap.String("db", input.DB), zap.Error(err))
		return nil, shared.WrapDomainError("INTERNAL_ERROR", "Failed to store API key", err)
	}
	key.OdooKeyID = odooID

	if err := s.keys.Save(ctx, key); err != nil {
		s.logger.Error("Failed to mirror API key", zap.Error(err))
		if derr := s.writer.DeleteAPIKey(ctx, input.DB, odooID); derr != nil {
			s.logger.Error("Failed to roll back Odoo API key", zap.Int("odoo_key_id", odooID), zap.Error(derr))
		}
		return nil, shared.WrapDomainError("INTERNAL_ERROR", "Failed to store API key", err)
	}

	s.logger.Info("API key generated",
		zap.String("db", input.DB),
		zap.Int("user_id", targetID),
		zap.String("key_id", key.ID.String()),
		zap.String("issued_by", input.AdminLogin),
	)
	return &GenerateResult{
		OK:        true,
		UserID:    targetID,
		UserLogin: targetLogin,
		Name:      name,
		Scope:     scope,
		Token:     token,
		ID:        odooID,
		KeyID:     key.ID,
	}, nil
}

func (s *Service) hasGroup(ctx context.Context, sess odoo.Session, group string) (bool, error) {
	res, err := s.odoo.CallMethod(ctx, sess, odoo.ModelUsers, "has_group", []int{sess.UID}, []any{group}, nil)
	if err != nil {
		return false, err
	}
	ok, _ := res.(bool)
	return ok, nil
}

func (s *Service) resolveTarget(ctx context.Context, admin odoo.Session, input GenerateInput) (int, string, error) {
	opts := odoo.Options{Fields: []string{"id", "login"}, Limit: 1}
	switch {
	case input.TargetUserID > 0:
		recs, err := s.odoo.SearchRead(ctx, admin, odoo.ModelUsers, odoo.Where("id", "=", input.TargetUserID), opts)
		if err != nil {
			return 0, "", err
		}
		if len(recs) == 0 {
			return 0, "", shared.NewNotFoundError(fmt.Sprintf("User id %d not found", input.TargetUserID))
		}
		return recs[0].ID(), recs[0].String("login"), nil
	case input.TargetUserLogin != "":
		recs, err := s.odoo.SearchRead(ctx, admin, odoo.ModelUsers, odoo.Where("login", "=", input.TargetUserLogin), opts)
		if err != nil {
			return 0, "", err
		}
		if len(recs) == 0 {
			return 0, "", shared.NewNotFoundError(fmt.Sprintf("User login '%s' not found", input.TargetUserLogin))
		}
		return recs[0].ID(), recs[0].String("login"), nil
	default:
		return admin.UID, admin.Login, nil
	}
}

// List returns the caller's keys
func (s *Service) List(ctx context.Context, sess odoo.Session) ([]KeyInfo, error) {
	keys, err := s.keys.ListByUser(ctx, sess.DB, sess.UID)
	if err != nil {
		return nil, err
	}
	out := make([]KeyInfo, 0, len(keys))
	for _, k := range keys {
		out = append(out, keyInfoFrom(k))
	}
	return out, nil
}

// Revoke deletes one of the caller's keys from Odoo and the gateway store
func (s *Service) Revoke(ctx context.Context, sess odoo.Session, id uuid.UUID) error {
	key, err := s.keys.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewNotFoundError("API key not found")
		}
		return err
	}
	if key.Database != sess.DB || key.UserID != sess.UID {
		return shared.NewNotFoundError("API key not found")
	}
	if !key.Active() {
		return shared.NewDomainError(shared.ErrInvalidState.Code, "API key already revoked")
	}

	if key.OdooKeyID > 0 {
		if err := s.writer.DeleteAPIKey(ctx, key.Database, key.OdooKeyID); err != nil && !errors.Is(err, pgadmin.ErrAPIKeyNotFound) {
			return shared.WrapDomainError("INTERNAL_ERROR", "Failed to revoke API key", err)
		}
	}
	if err := s.keys.Revoke(ctx, key.ID); err != nil {
		return err
	}
	s.logger.Info("API key revoked", zap.String("key_id", key.ID.String()), zap.String("db", key.Database))
	return nil
}

// Authenticate resolves an X-API-Key value to a principal. The key itself
// becomes the Odoo secret, which Odoo accepts in place of a password.
func (s *Service) Authenticate(ctx context.Context, token string) (*appauth.Principal, error) {
	index, err := infraauth.APIKeyIndex(token)
	if err != nil {
		return nil, shared.NewUnauthorizedError("Invalid API key")
	}
	candidates, err := s.keys.FindActiveByIndex(ctx, index)
	if err != nil {
		return nil, err
	}
	for _, key := range candidates {
		ok, err := infraauth.VerifyAPIKey(token, key.Hash)
		if err != nil {
			s.logger.Warn("Stored API key hash is malformed", zap.String("key_id", key.ID.String()))
			continue
		}
		if !ok {
			continue
		}
		if err := s.keys.MarkUsed(ctx, key.ID, time.Now()); err != nil {
			s.logger.Warn("Failed to record API key use", zap.Error(err))
		}
		return &appauth.Principal{
			Session: odoo.Session{DB: key.Database, UID: key.UserID, Login: key.UserLogin, Secret: token},
			Method:  appauth.MethodAPIKey,
			KeyID:   key.ID,
		}, nil
	}
	return nil, shared.NewUnauthorizedError("Invalid API key")
}
