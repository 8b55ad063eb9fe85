package records

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/safee-analytics/odoo/internal/domain/partner"
	"github.com/safee-analytics/odoo/internal/domain/shared"
	"github.com/safee-analytics/odoo/internal/domain/webhook"
	"github.com/safee-analytics/odoo/internal/infrastructure/cache"
	"github.com/safee-analytics/odoo/internal/infrastructure/odoo"
)

type MockOdoo struct {
	mock.Mock
}

func (m *MockOdoo) SearchRead(ctx context.Context, sess odoo.Session, model string, domain odoo.Domain, opts odoo.Options) ([]odoo.Record, error) {
	args := m.Called(ctx, sess, model, domain, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]odoo.Record), args.Error(1)
}

func (m *MockOdoo) SearchCount(ctx context.Context, sess odoo.Session, model string, domain odoo.Domain) (int, error) {
	args := m.Called(ctx, sess, model, domain)
	return args.Int(0), args.Error(1)
}

func (m *MockOdoo) ReadOne(ctx context.Context, sess odoo.Session, model string, id int, fields []string) (odoo.Record, error) {
	args := m.Called(ctx, sess, model, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	// copy so decorations do not leak between calls
	rec := odoo.Record{}
	for k, v := range args.Get(0).(odoo.Record) {
		rec[k] = v
	}
	return rec, args.Error(1)
}

func (m *MockOdoo) Create(ctx context.Context, sess odoo.Session, model string, vals map[string]any) (int, error) {
	args := m.Called(ctx, sess, model, vals)
	return args.Int(0), args.Error(1)
}

func (m *MockOdoo) Write(ctx context.Context, sess odoo.Session, model string, ids []int, vals map[string]any) error {
	return m.Called(ctx, sess, model, ids, vals).Error(0)
}

func (m *MockOdoo) Unlink(ctx context.Context, sess odoo.Session, model string, ids []int) error {
	return m.Called(ctx, sess, model, ids).Error(0)
}

func (m *MockOdoo) FieldsGet(ctx context.Context, sess odoo.Session, model string, attributes []string) (map[string]odoo.Record, error) {
	args := m.Called(ctx, sess, model, attributes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]odoo.Record), args.Error(1)
}

func (m *MockOdoo) CallMethod(ctx context.Context, sess odoo.Session, model, method string, ids []int, a []any, kwargs map[string]any) (any, error) {
	args := m.Called(ctx, sess, model, method, ids, a, kwargs)
	return args.Get(0), args.Error(1)
}

func (m *MockOdoo) CallModelMethod(ctx context.Context, sess odoo.Session, model, method string, a []any, kwargs map[string]any) (any, error) {
	args := m.Called(ctx, sess, model, method, a, kwargs)
	return args.Get(0), args.Error(1)
}

func (m *MockOdoo) CheckAccessRights(ctx context.Context, sess odoo.Session, model, operation string) (bool, error) {
	args := m.Called(ctx, sess, model, operation)
	return args.Bool(0), args.Error(1)
}

type recordingNotifier struct {
	events []webhook.Event
}

func (r *recordingNotifier) Enqueue(e webhook.Event) error {
	r.events = append(r.events, e)
	return nil
}

var sess = odoo.Session{DB: "acme", UID: 2, Login: "admin", Secret: "pw"}

func newService(m *MockOdoo, n *recordingNotifier) *Service {
	return NewService(m, zap.NewNop(), WithNotifier(n))
}

func allowAll(m *MockOdoo) {
	m.On("CheckAccessRights", mock.Anything, sess, mock.Anything, mock.Anything).Return(true, nil)
}

func TestList(t *testing.T) {
	m := new(MockOdoo)
	allowAll(m)
	domain := odoo.Where("active", "=", true)
	m.On("SearchRead", mock.Anything, sess, odoo.ModelHrDepartment, domain, odoo.Options{
		Fields: []string{"name", "code"},
		Limit:  DefaultLimit,
		Order:  DefaultOrder,
	}).Return([]odoo.Record{
		{"id": 1, "name": "Sales", "code": "SAL"},
		{"id": 2, "name": "Support", "code": false},
	}, nil)
	m.On("SearchCount", mock.Anything, sess, odoo.ModelHrDepartment, domain).Return(42, nil)

	svc := newService(m, &recordingNotifier{})
	res, err := svc.List(context.Background(), sess, ListQuery{
		Model:  odoo.ModelHrDepartment,
		Domain: `[["active","=",true]]`,
		Fields: `["name","code"]`,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, 42, res.Total)
	assert.Equal(t, "[SAL] Sales", res.Records[0]["display_name"])
	assert.Equal(t, "Support", res.Records[1]["display_name"])
}

func TestList_InvalidInput(t *testing.T) {
	svc := newService(new(MockOdoo), &recordingNotifier{})

	_, err := svc.List(context.Background(), sess, ListQuery{Model: "res.partner", Domain: "not json"})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	assert.Contains(t, err.Error(), "Invalid domain")

	_, err = svc.List(context.Background(), sess, ListQuery{Model: "res.partner", Fields: "{"})
	assert.Contains(t, err.Error(), "Invalid fields")
}

func TestList_AccessDenied(t *testing.T) {
	m := new(MockOdoo)
	m.On("CheckAccessRights", mock.Anything, sess, "hr.leave", "read").Return(false, nil)

	_, err := newService(m, &recordingNotifier{}).List(context.Background(), sess, ListQuery{Model: "hr.leave"})
	assert.ErrorIs(t, err, shared.ErrForbidden)
	m.AssertNotCalled(t, "SearchRead")
}

func TestGet_NotFound(t *testing.T) {
	m := new(MockOdoo)
	allowAll(m)
	m.On("ReadOne", mock.Anything, sess, "res.partner", 404, []string(nil)).Return(nil, odoo.ErrRecordNotFound)

	_, err := newService(m, &recordingNotifier{}).Get(context.Background(), sess, "res.partner", 404, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Contains(t, err.Error(), "Record not found")
}

func TestCreate_PartnerNamesAndWebhook(t *testing.T) {
	m := new(MockOdoo)
	n := &recordingNotifier{}
	allowAll(m)
	m.On("Create", mock.Anything, sess, odoo.ModelPartner, map[string]any{
		"name":      "John Smith",
		"firstname": "John",
		"lastname":  "Smith",
	}).Return(7, nil)
	m.On("ReadOne", mock.Anything, sess, odoo.ModelPartner, 7, []string(nil)).
		Return(odoo.Record{"name": "John Smith"}, nil)

	rec, err := newService(m, n).Create(context.Background(), sess, odoo.ModelPartner, map[string]any{"name": "  John   Smith "})
	require.NoError(t, err)
	assert.Equal(t, 7, rec["id"])

	require.Len(t, n.events, 1)
	assert.Equal(t, webhook.EventCreated, n.events[0].Type)
	assert.Equal(t, 7, n.events[0].RecordID)
	assert.Equal(t, 2, n.events[0].UserID)
	assert.Equal(t, "acme", n.events[0].Database)
}

func TestCreate_DiscountOutOfRange(t *testing.T) {
	m := new(MockOdoo)
	allowAll(m)

	_, err := newService(m, &recordingNotifier{}).Create(context.Background(), sess, odoo.ModelSaleOrderLine, map[string]any{
		"discount1": 120.0,
	})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	m.AssertNotCalled(t, "Create")
}

func TestUpdate_MergesStoredDiscounts(t *testing.T) {
	m := new(MockOdoo)
	allowAll(m)
	m.On("ReadOne", mock.Anything, sess, odoo.ModelSaleOrderLine, 3, []string{"discount1", "discount2", "discount3"}).
		Return(odoo.Record{"id": 3, "discount1": 10.0, "discount2": 0.0, "discount3": 0.0}, nil)
	m.On("Write", mock.Anything, sess, odoo.ModelSaleOrderLine, []int{3}, mock.MatchedBy(func(vals map[string]any) bool {
		return vals["discount"] == 19.0 && vals["discount1"] == 10.0
	})).Return(nil)
	m.On("ReadOne", mock.Anything, sess, odoo.ModelSaleOrderLine, 3, []string(nil)).
		Return(odoo.Record{"id": 3, "discount": 19.0}, nil)

	n := &recordingNotifier{}
	rec, err := newService(m, n).Update(context.Background(), sess, odoo.ModelSaleOrderLine, 3, map[string]any{"discount2": 10.0})
	require.NoError(t, err)
	assert.Equal(t, 19.0, rec["discount"])
	assert.Empty(t, n.events)
	m.AssertExpectations(t)
}

func TestUpdate_PartnerKeepsStoredFirstname(t *testing.T) {
	m := new(MockOdoo)
	allowAll(m)
	m.On("ReadOne", mock.Anything, sess, odoo.ModelPartner, 5, []string{"name", "firstname", "lastname", "is_company", "type"}).
		Return(odoo.Record{"id": 5, "firstname": "Ada", "lastname": "Byron", "is_company": false}, nil)
	m.On("Write", mock.Anything, sess, odoo.ModelPartner, []int{5}, map[string]any{
		"lastname": "Lovelace",
		"name":     "Ada Lovelace",
	}).Return(nil)
	m.On("ReadOne", mock.Anything, sess, odoo.ModelPartner, 5, []string(nil)).
		Return(odoo.Record{"id": 5, "name": "Ada Lovelace"}, nil)

	n := &recordingNotifier{}
	_, err := newService(m, n).Update(context.Background(), sess, odoo.ModelPartner, 5, map[string]any{"lastname": "Lovelace"})
	require.NoError(t, err)
	require.Len(t, n.events, 1)
	assert.Equal(t, webhook.EventUpdated, n.events[0].Type)
}

func TestCreate_PartnerWithoutNamesRejected(t *testing.T) {
	m := new(MockOdoo)
	allowAll(m)
	svc := newService(m, &recordingNotifier{})

	_, err := svc.Create(context.Background(), sess, odoo.ModelPartner, map[string]any{"firstname": "", "lastname": ""})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = svc.Create(context.Background(), sess, odoo.ModelPartner, map[string]any{"name": " ", "is_company": true})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	m.AssertNotCalled(t, "Create")
}

func TestUpdate_PartnerRequiredLastname(t *testing.T) {
	m := new(MockOdoo)
	allowAll(m)
	m.On("ReadOne", mock.Anything, sess, odoo.ModelPartner, 5, []string{"name", "firstname", "lastname", "is_company", "type"}).
		Return(odoo.Record{"id": 5, "firstname": "Ada", "lastname": "Byron", "is_company": false, "type": "contact"}, nil)

	svc := NewService(m, zap.NewNop(), WithNamesRequired(partner.Required{Lastname: true}))
	_, err := svc.Update(context.Background(), sess, odoo.ModelPartner, 5, map[string]any{"lastname": false})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	m.AssertNotCalled(t, "Write")
}

func TestDelete(t *testing.T) {
	m := new(MockOdoo)
	allowAll(m)
	m.On("ReadOne", mock.Anything, sess, odoo.ModelCrmLead, 9, []string{"id"}).Return(odoo.Record{"id": 9}, nil)
	m.On("Unlink", mock.Anything, sess, odoo.ModelCrmLead, []int{9}).Return(nil)
	m.On("ReadOne", mock.Anything, sess, odoo.ModelCrmLead, 10, []string{"id"}).Return(nil, odoo.ErrRecordNotFound)

	n := &recordingNotifier{}
	svc := newService(m, n)
	require.NoError(t, svc.Delete(context.Background(), sess, odoo.ModelCrmLead, 9))
	require.Len(t, n.events, 1)
	assert.Equal(t, webhook.EventDeleted, n.events[0].Type)

	err := svc.Delete(context.Background(), sess, odoo.ModelCrmLead, 10)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCallMethods(t *testing.T) {
	m := new(MockOdoo)
	m.On("ReadOne", mock.Anything, sess, odoo.ModelSaleOrder, 4, []string{"id"}).Return(odoo.Record{"id": 4}, nil)
	m.On("CallMethod", mock.Anything, sess, odoo.ModelSaleOrder, "action_confirm", []int{4}, []any{}, map[string]any{}).
		Return(true, nil)
	m.On("CallModelMethod", mock.Anything, sess, odoo.ModelPartner, "name_search", []any{"Acme"}, map[string]any{"limit": int64(5)}).
		Return([]any{[]any{1, "Acme"}}, nil)

	svc := newService(m, &recordingNotifier{})
	res, err := svc.CallRecordMethod(context.Background(), sess, odoo.ModelSaleOrder, 4, "action_confirm", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, true, res)

	res, err = svc.CallModelMethod(context.Background(), sess, odoo.ModelPartner, "name_search", []any{"Acme"}, map[string]any{"limit": 5.0})
	require.NoError(t, err)
	assert.Len(t, res, 1)

	_, err = svc.CallRecordMethod(context.Background(), sess, odoo.ModelSaleOrder, 4, "_action_confirm", nil, nil)
	assert.ErrorIs(t, err, shared.ErrForbidden)
	_, err = svc.CallModelMethod(context.Background(), sess, odoo.ModelSaleOrder, "", nil, nil)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestDecorate_EmployeeAge(t *testing.T) {
	defer func(orig func() time.Time) { now = orig }(now)
	now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }

	recs := []odoo.Record{{"birthday": "1990-03-02"}, {"birthday": false}, {"name": "x"}}
	decorate(odoo.ModelHrEmployee, recs)
	assert.Equal(t, 35, recs[0]["age"])
	assert.Equal(t, 0, recs[1]["age"])
	assert.NotContains(t, recs[2], "age")
}

const saleOrderArch = `<form string="Sales Order">
  <header>
    <button name="action_confirm" string="Confirm" type="object" class="btn-primary"/>
    <button name="%(sale.action_view_sale_advance_payment_inv)d" string="Create Invoice" type="action"/>
    <button name="action_cancel" type="object" string="Cancel"/>
    <button name="_action_private" type="object"/>
  </header>
  <sheet><field name="partner_id"/></sheet>
</form>`

func TestObjectButtons(t *testing.T) {
	buttons, err := ObjectButtons(saleOrderArch)
	require.NoError(t, err)
	require.Len(t, buttons, 3)
	assert.Equal(t, "action_confirm", buttons[0].Name)
	assert.Equal(t, "Confirm", buttons[0].Label)
	assert.True(t, buttons[0].Discovered)
	assert.True(t, buttons[2].IsPrivate)

	buttons, err = ObjectButtons("")
	require.NoError(t, err)
	assert.Empty(t, buttons)
}

func TestDiscovery_MethodsCached(t *testing.T) {
	m := new(MockOdoo)
	m.On("FieldsGet", mock.Anything, sess, odoo.ModelSaleOrder, []string{"type"}).
		Return(map[string]odoo.Record{"name": {"type": "char"}}, nil).Once()
	m.On("SearchRead", mock.Anything, sess, odoo.ModelIrUIView, mock.Anything, odoo.Options{Fields: []string{"arch"}}).
		Return([]odoo.Record{{"id": 1, "arch": saleOrderArch}}, nil).Once()

	d := NewDiscovery(m, cache.NewInMemoryDiscoveryCache(), zap.NewNop())
	res, err := d.Methods(context.Background(), sess, odoo.ModelSaleOrder)
	require.NoError(t, err)
	assert.Equal(t, "action_cancel", res.Methods[0].Name)
	assert.Equal(t, "action_confirm", res.Methods[1].Name)
	assert.Equal(t, len(res.Methods), res.MethodCount)
	for _, meth := range res.Methods {
		assert.False(t, meth.IsPrivate, meth.Name)
	}

	info, err := d.Method(context.Background(), sess, odoo.ModelSaleOrder, "search_read")
	require.NoError(t, err)
	assert.True(t, info.ModelLevel)
	assert.False(t, info.Discovered)

	info, err = d.Method(context.Background(), sess, odoo.ModelSaleOrder, "action_confirm")
	require.NoError(t, err)
	assert.True(t, info.Discovered)
	m.AssertExpectations(t)
}

func TestDiscovery_Fields(t *testing.T) {
	m := new(MockOdoo)
	m.On("FieldsGet", mock.Anything, sess, odoo.ModelPartner, fieldAttributes).Return(map[string]odoo.Record{
		"name":  {"type": "char", "string": "Name", "required": true, "readonly": false, "help": false},
		"email": {"type": "char", "string": "Email"},
	}, nil)

	res, err := NewDiscovery(m, nil, zap.NewNop()).Fields(context.Background(), sess, odoo.ModelPartner)
	require.NoError(t, err)
	assert.Equal(t, 2, res.FieldCount)
	assert.Equal(t, "email", res.Fields[0].Name)
	assert.True(t, res.Fields[1].Required)
	assert.Equal(t, "", res.Fields[1].Help)
}

func TestDiscovery_Models(t *testing.T) {
	m := new(MockOdoo)
	m.On("SearchRead", mock.Anything, sess, odoo.ModelIrModel,
		odoo.Where("transient", "=", false).And("model", "ilike", "sale"),
		odoo.Options{Fields: []string{"model", "name", "info"}, Limit: DefaultModelLimit, Order: "model"}).
		Return([]odoo.Record{{"model": "sale.order", "name": "Sales Order", "info": false}}, nil)

	models, err := NewDiscovery(m, nil, zap.NewNop()).Models(context.Background(), sess, "sale", 0)
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, ModelInfo{Model: "sale.order", Name: "Sales Order"}, models[0])
}
