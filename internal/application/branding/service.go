// Package branding reads and updates the document style of the caller's
// company.
package branding

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/safee-analytics/odoo/internal/domain/branding"
	"github.com/safee-analytics/odoo/internal/domain/shared"
	"github.com/safee-analytics/odoo/internal/infrastructure/logger"
	"github.com/safee-analytics/odoo/internal/infrastructure/odoo"
)

// Odoo is the part of the Odoo client the branding service uses
type Odoo interface {
	ReadOne(ctx context.Context, sess odoo.Session, model string, id int, fields []string) (odoo.Record, error)
	Write(ctx context.Context, sess odoo.Session, model string, ids []int, vals map[string]any) error
}

// Service implements GET and PUT /api/branding
type Service struct {
	odoo   Odoo
	logger *zap.Logger
}

// NewService creates the service
func NewService(odooClient Odoo, logger *zap.Logger) *Service {
	return &Service{odoo: odooClient, logger: logger}
}

// Get returns the style of the session user's company
func (s *Service) Get(ctx context.Context, sess odoo.Session) (branding.Style, error) {
	companyID, err := s.companyID(ctx, sess)
	if err != nil {
		return branding.Style{}, err
	}
	rec, err := s.odoo.ReadOne(ctx, sess, odoo.ModelCompany, companyID, branding.CompanyFields)
	if err != nil {
		return branding.Style{}, err
	}
	return branding.FromCompany(rec), nil
}

// Update merges a JSON document into the current style, validates the
// result and stores it on the company. Fields absent from data keep their
// current value.
func (s *Service) Update(ctx context.Context, sess odoo.Session, data []byte) (branding.Style, error) {
	companyID, err := s.companyID(ctx, sess)
	if err != nil {
		return branding.Style{}, err
	}
	rec, err := s.odoo.ReadOne(ctx, sess, odoo.ModelCompany, companyID, branding.CompanyFields)
	if err != nil {
		return branding.Style{}, err
	}
	style := branding.FromCompany(rec)
	if err := json.Unmarshal(data, &style); err != nil {
		return branding.Style{}, shared.NewInvalidInputError("Invalid JSON body")
	}
	if err := style.Validate(); err != nil {
		return branding.Style{}, err
	}
	if err := s.odoo.Write(ctx, sess, odoo.ModelCompany, []int{companyID}, style.CompanyValues()); err != nil {
		return branding.Style{}, err
	}
	logger.FromContext(ctx).Info("Branding updated", zap.Int("company_id", companyID))
	return style, nil
}

func (s *Service) companyID(ctx context.Context, sess odoo.Session) (int, error) {
	user, err := s.odoo.ReadOne(ctx, sess, odoo.ModelUsers, sess.UID, []string{"company_id"})
	if err != nil {
		if errors.Is(err, odoo.ErrRecordNotFound) {
			return 0, shared.NewUnauthorizedError("User not found")
		}
		return 0, err
	}
	id := user.Many2OneID("company_id")
	if id == 0 {
		return 0, shared.NewNotFoundError("User has no company")
	}
	return id, nil
}
