// Package records exposes generic CRUD and method calls on any Odoo model,
// applying the gateway's value rules on the way in and out.
package records

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/safee-analytics/odoo/internal/domain/partner"
	"github.com/safee-analytics/odoo/internal/domain/shared"
	"github.com/safee-analytics/odoo/internal/domain/webhook"
	"github.com/safee-analytics/odoo/internal/infrastructure/logger"
	"github.com/safee-analytics/odoo/internal/infrastructure/odoo"
	"github.com/safee-analytics/odoo/internal/infrastructure/telemetry"
)

// Query defaults
const (
	DefaultLimit = 80
	DefaultOrder = "id desc"
)

// Odoo is the part of the Odoo client the records service uses
type Odoo interface {
	SearchRead(ctx context.Context, sess odoo.Session, model string, domain odoo.Domain, opts odoo.Options) ([]odoo.Record, error)
	SearchCount(ctx context.Context, sess odoo.Session, model string, domain odoo.Domain) (int, error)
	ReadOne(ctx context.Context, sess odoo.Session, model string, id int, fields []string) (odoo.Record, error)
	Create(ctx context.Context, sess odoo.Session, model string, vals map[string]any) (int, error)
	Write(ctx context.Context, sess odoo.Session, model string, ids []int, vals map[string]any) error
	Unlink(ctx context.Context, sess odoo.Session, model string, ids []int) error
	FieldsGet(ctx context.Context, sess odoo.Session, model string, attributes []string) (map[string]odoo.Record, error)
	CallMethod(ctx context.Context, sess odoo.Session, model, method string, ids []int, args []any, kwargs map[string]any) (any, error)
	CallModelMethod(ctx context.Context, sess odoo.Session, model, method string, args []any, kwargs map[string]any) (any, error)
	CheckAccessRights(ctx context.Context, sess odoo.Session, model, operation string) (bool, error)
}

// Notifier queues change webhooks
type Notifier interface {
	Enqueue(e webhook.Event) error
}

// Option configures a Service
type Option func(*Service)

// WithNotifier enables change webhooks
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithNamesOrder sets how partner names are composed
func WithNamesOrder(order partner.NamesOrder) Option {
	return func(s *Service) {
		s.namesOrder = order
	}
}

// WithNamesRequired sets which partner name parts a person must carry
func WithNamesRequired(required partner.Required) Option {
	return func(s *Service) {
		s.namesRequired = required
	}
}

// WithDefaultLimit overrides the list page size
func WithDefaultLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.defaultLimit = limit
		}
	}
}

// Service implements the generic record endpoints
type Service struct {
	odoo          Odoo
	notifier      Notifier
	hooks         map[string]valueHook
	namesOrder    partner.NamesOrder
	namesRequired partner.Required
	defaultLimit  int
	logger        *zap.Logger
}

// NewService creates the service
func NewService(odooClient Odoo, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		odoo:         odooClient,
		namesOrder:   partner.DefaultNamesOrder,
		defaultLimit: DefaultLimit,
		logger:       log,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hooks = defaultHooks(s.namesOrder, s.namesRequired)
	return s
}

// List runs search_read plus search_count for the total
func (s *Service) List(ctx context.Context, sess odoo.Session, q ListQuery) (*ListResult, error) {
	domain, err := odoo.ParseDomain(q.Domain)
	if err != nil {
		return nil, shared.NewInvalidInputError("Invalid domain")
	}
	fields, err := odoo.ParseFields(q.Fields)
	if err != nil {
		return nil, shared.NewInvalidInputError("Invalid fields")
	}
	if err := s.checkAccess(ctx, sess, q.Model, "read"); err != nil {
		return nil, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}
	order := q.Order
	if order == "" {
		order = DefaultOrder
	}

	ctx, span := telemetry.StartSpan(ctx, "records.list", telemetry.AttrModel, q.Model, telemetry.AttrDatabase, sess.DB)
	defer span.End()

	recs, err := s.odoo.SearchRead(ctx, sess, q.Model, domain, odoo.Options{
		Fields: fields,
		Limit:  limit,
		Offset: q.Offset,
		Order:  order,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	total, err := s.odoo.SearchCount(ctx, sess, q.Model, domain)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	decorate(q.Model, recs)
	return &ListResult{Records: recs, Count: len(recs), Total: total, Limit: limit, Offset: q.Offset}, nil
}

// Get reads one record
func (s *Service) Get(ctx context.Context, sess odoo.Session, model string, id int, fieldsRaw string) (odoo.Record, error) {
	fields, err := odoo.ParseFields(fieldsRaw)
	if err != nil {
		return nil, shared.NewInvalidInputError("Invalid fields")
	}
	if err := s.checkAccess(ctx, sess, model, "read"); err != nil {
		return nil, err
	}
	return s.read(ctx, sess, model, id, fields)
}

func (s *Service) read(ctx context.Context, sess odoo.Session, model string, id int, fields []string) (odoo.Record, error) {
	rec, err := s.odoo.ReadOne(ctx, sess, model, id, fields)
	if err != nil {
		if errors.Is(err, odoo.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Record not found")
		}
		return nil, err
	}
	decorate(model, []odoo.Record{rec})
	return rec, nil
}

// Create creates a record and returns it as read back from Odoo
func (s *Service) Create(ctx context.Context, sess odoo.Session, model string, vals map[string]any) (odoo.Record, error) {
	if err := s.checkAccess(ctx, sess, model, "create"); err != nil {
		return nil, err
	}
	vals = odoo.NormalizeValues(vals)
	if hook, ok := s.hooks[model]; ok {
		var err error
		if vals, err = hook.create(vals); err != nil {
			return nil, err
		}
	}

	id, err := s.odoo.Create(ctx, sess, model, vals)
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("Record created", zap.String("model", model), zap.Int("id", id))
	s.notify(webhook.EventCreated, model, id, sess)

	rec, err := s.read(ctx, sess, model, id, nil)
	if err != nil {
		return nil, err
	}
	rec["id"] = id
	return rec, nil
}

// Update writes vals to a record and returns it re-read
func (s *Service) Update(ctx context.Context, sess odoo.Session, model string, id int, vals map[string]any) (odoo.Record, error) {
	if err := s.checkAccess(ctx, sess, model, "write"); err != nil {
		return nil, err
	}
	vals = odoo.NormalizeValues(vals)

	if hook, ok := s.hooks[model]; ok {
		existing, err := s.read(ctx, sess, model, id, hook.fields)
		if err != nil {
			return nil, err
		}
		if vals, err = hook.write(vals, existing); err != nil {
			return nil, err
		}
	} else if err := s.exists(ctx, sess, model, id); err != nil {
		return nil, err
	}

	if err := s.odoo.Write(ctx, sess, model, []int{id}, vals); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("Record updated", zap.String("model", model), zap.Int("id", id))
	s.notify(webhook.EventUpdated, model, id, sess)
	return s.read(ctx, sess, model, id, nil)
}

// Delete unlinks a record
func (s *Service) Delete(ctx context.Context, sess odoo.Session, model string, id int) error {
	if err := s.checkAccess(ctx, sess, model, "unlink"); err != nil {
		return err
	}
	if err := s.exists(ctx, sess, model, id); err != nil {
		return err
	}
	if err := s.odoo.Unlink(ctx, sess, model, []int{id}); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("Record deleted", zap.String("model", model), zap.Int("id", id))
	s.notify(webhook.EventDeleted, model, id, sess)
	return nil
}

func (s *Service) exists(ctx context.Context, sess odoo.Session, model string, id int) error {
	_, err := s.read(ctx, sess, model, id, []string{"id"})
	return err
}

// CallRecordMethod invokes a public method on one record
func (s *Service) CallRecordMethod(ctx context.Context, sess odoo.Session, model string, id int, method string, args []any, kwargs map[string]any) (any, error) {
	if err := CheckPublicMethod(method); err != nil {
		return nil, err
	}
	if err := s.exists(ctx, sess, model, id); err != nil {
		return nil, err
	}
	ctx, span := telemetry.StartSpan(ctx, "records.call", telemetry.AttrModel, model, telemetry.AttrMethod, method, telemetry.AttrRecordID, id)
	defer span.End()

	res, err := s.odoo.CallMethod(ctx, sess, model, method, []int{id}, odoo.NormalizeArgs(args), odoo.NormalizeValues(kwargs))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.notify(webhook.EventUpdated, model, id, sess)
	return res, nil
}

// CallModelMethod invokes a public model-level method
func (s *Service) CallModelMethod(ctx context.Context, sess odoo.Session, model, method string, args []any, kwargs map[string]any) (any, error) {
	if err := CheckPublicMethod(method); err != nil {
		return nil, err
	}
	ctx, span := telemetry.StartSpan(ctx, "records.call_model", telemetry.AttrModel, model, telemetry.AttrMethod, method)
	defer span.End()

	res, err := s.odoo.CallModelMethod(ctx, sess, model, method, odoo.NormalizeArgs(args), odoo.NormalizeValues(kwargs))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return res, nil
}

// CheckPublicMethod rejects Odoo private methods
func CheckPublicMethod(method string) error {
	if method == "" {
		return shared.NewInvalidInputError("Method name is required")
	}
	if strings.HasPrefix(method, "_") {
		return shared.NewForbiddenError(fmt.Sprintf("Private method %s cannot be called", method))
	}
	return nil
}

func (s *Service) checkAccess(ctx context.Context, sess odoo.Session, model, operation string) error {
	ok, err := s.odoo.CheckAccessRights(ctx, sess, model, operation)
	if err != nil {
		return err
	}
	if !ok {
		return shared.NewForbiddenError("Access denied")
	}
	return nil
}

func (s *Service) notify(t webhook.EventType, model string, id int, sess odoo.Session) {
	if s.notifier == nil || !webhook.Notifies(model) {
		return
	}
	if err := s.notifier.Enqueue(webhook.NewRecordEvent(t, model, id, sess.UID, sess.DB)); err != nil {
		s.logger.Warn("Webhook not queued",
			zap.String("model", model),
			zap.Int("record_id", id),
			zap.Error(err),
		)
	}
}
